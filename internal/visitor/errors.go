package visitor

import (
	"errors"
	"fmt"

	"github.com/riftdata/shardsql/internal/parsetree"
)

var (
	// ErrContractViolation marks a tree whose shape does not match the
	// grammar the dialect table describes.
	ErrContractViolation = errors.New("parse tree contract violation")

	// ErrUnsupportedStatement is returned for roots that are not a DDL
	// statement this visitor builds.
	ErrUnsupportedStatement = errors.New("unsupported statement")
)

// ContractViolation describes a missing or malformed node.
type ContractViolation struct {
	Dialect string
	Rule    string
	Child   parsetree.Role
	Reason  string
}

func (e *ContractViolation) Error() string {
	msg := fmt.Sprintf("%s: %s rule %q", ErrContractViolation, e.Dialect, e.Rule)
	if e.Child != parsetree.RoleUnknown {
		msg += fmt.Sprintf(" missing %s", e.Child)
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

func (e *ContractViolation) Unwrap() error {
	return ErrContractViolation
}
