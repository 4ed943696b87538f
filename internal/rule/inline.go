package rule

import (
	"fmt"
	"strconv"
	"strings"
)

// ExpandInline expands an inline expression such as
// "ds_${0..1}.t_order_${0..1}" or "ds_${['a','b']}.t_order" into the ordered
// cartesian product of its ${...} groups. Top-level commas separate
// independent expressions.
func ExpandInline(expr string) ([]string, error) {
	var result []string
	for _, part := range splitTopLevel(expr) {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		expanded, err := expandOne(part)
		if err != nil {
			return nil, err
		}
		result = append(result, expanded...)
	}
	return result, nil
}

func splitTopLevel(expr string) []string {
	var parts []string
	depth, start := 0, 0
	for i := 0; i < len(expr); i++ {
		switch expr[i] {
		case '{':
			depth++
		case '}':
			depth--
		case ',':
			if depth == 0 {
				parts = append(parts, expr[start:i])
				start = i + 1
			}
		}
	}
	return append(parts, expr[start:])
}

func expandOne(expr string) ([]string, error) {
	open := strings.Index(expr, "${")
	if open < 0 {
		return []string{expr}, nil
	}
	closing := strings.Index(expr[open:], "}")
	if closing < 0 {
		return nil, fmt.Errorf("%w: unterminated inline group in %q", ErrInvalidRule, expr)
	}
	closing += open

	values, err := groupValues(expr[open+2 : closing])
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrInvalidRule, expr, err)
	}
	rest, err := expandOne(expr[closing+1:])
	if err != nil {
		return nil, err
	}

	prefix := expr[:open]
	result := make([]string, 0, len(values)*len(rest))
	for _, v := range values {
		for _, r := range rest {
			result = append(result, prefix+v+r)
		}
	}
	return result, nil
}

// groupValues reads "a..b" or "['x','y']" (brackets and quotes optional).
func groupValues(group string) ([]string, error) {
	group = strings.TrimSpace(group)
	if from, to, ok := strings.Cut(group, ".."); ok {
		lo, err := strconv.Atoi(strings.TrimSpace(from))
		if err != nil {
			return nil, fmt.Errorf("range start: %w", err)
		}
		hi, err := strconv.Atoi(strings.TrimSpace(to))
		if err != nil {
			return nil, fmt.Errorf("range end: %w", err)
		}
		if hi < lo {
			return nil, fmt.Errorf("range %d..%d is empty", lo, hi)
		}
		values := make([]string, 0, hi-lo+1)
		for i := lo; i <= hi; i++ {
			values = append(values, strconv.Itoa(i))
		}
		return values, nil
	}

	group = strings.TrimSuffix(strings.TrimPrefix(group, "["), "]")
	var values []string
	for _, item := range strings.Split(group, ",") {
		item = strings.Trim(strings.TrimSpace(item), `'"`)
		if item != "" {
			values = append(values, item)
		}
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("empty group")
	}
	return values, nil
}
