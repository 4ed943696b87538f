// Package router decides which data sources a DDL statement runs on and
// which actual table stands in for each logical one.
package router

import (
	"errors"
	"fmt"
	"strings"

	"github.com/riftdata/shardsql/internal/rule"
	"github.com/riftdata/shardsql/internal/statement"
)

var (
	// ErrNoDataSource is returned when an unsharded statement has nowhere
	// to go.
	ErrNoDataSource = errors.New("no default data source")

	// ErrUnboundTables is returned when sharded tables in one statement
	// cannot be paired node by node.
	ErrUnboundTables = errors.New("sharded tables are not bound")
)

// Unit is one statement execution: a data source plus the actual table for
// each logical table routed there.
type Unit struct {
	DataSource string            `json:"dataSource" yaml:"dataSource"`
	TableMap   map[string]string `json:"tables,omitempty" yaml:"tables,omitempty"`
}

// ActualTable returns the actual table for a logical name, or the name
// itself when the table is not sharded.
func (u Unit) ActualTable(logical string) string {
	if actual, ok := u.TableMap[strings.ToLower(logical)]; ok {
		return actual
	}
	return logical
}

type Result struct {
	Units     []Unit `json:"units" yaml:"units"`
	Broadcast bool   `json:"broadcast,omitempty" yaml:"broadcast,omitempty"`
}

// DataSources lists the data sources of all units, in unit order, without
// repeats.
func (r *Result) DataSources() []string {
	seen := make(map[string]bool)
	var result []string
	for _, u := range r.Units {
		if !seen[u.DataSource] {
			seen[u.DataSource] = true
			result = append(result, u.DataSource)
		}
	}
	return result
}

// Route routes stmt under rules.
func Route(stmt statement.Statement, rules *rule.RuleSet) (*Result, error) {
	if stmt.Kind() == statement.KindDropIndex {
		return broadcast(rules)
	}

	logical := logicalTables(stmt)
	var sharded []string
	isBroadcast := false
	for _, name := range logical {
		if rules.IsSharded(name) {
			sharded = append(sharded, name)
		} else if rules.IsBroadcast(name) {
			isBroadcast = true
		}
	}

	if len(sharded) == 0 {
		if isBroadcast {
			return broadcast(rules)
		}
		return Default(rules)
	}

	primary := sharded[0]
	nodes := rules.DataNodes(primary)
	result := &Result{Units: make([]Unit, 0, len(nodes))}
	for i, node := range nodes {
		unit := Unit{
			DataSource: node.DataSource,
			TableMap:   map[string]string{strings.ToLower(primary): node.Table},
		}
		for _, other := range sharded[1:] {
			bound := rules.DataNodes(other)
			if len(bound) != len(nodes) {
				return nil, fmt.Errorf("%w: %s has %d data nodes, %s has %d",
					ErrUnboundTables, primary, len(nodes), other, len(bound))
			}
			if bound[i].DataSource != node.DataSource {
				return nil, fmt.Errorf("%w: %s node %d is in %s, %s node %d is in %s",
					ErrUnboundTables, primary, i, node.DataSource, other, i, bound[i].DataSource)
			}
			unit.TableMap[strings.ToLower(other)] = bound[i].Table
		}
		result.Units = append(result.Units, unit)
	}
	return result, nil
}

// Default routes to the default data source, falling back to the only data
// source when exactly one exists.
func Default(rules *rule.RuleSet) (*Result, error) {
	ds := rules.Sharding.DefaultDataSource
	if ds == "" {
		all := rules.DataSources()
		if len(all) != 1 {
			return nil, ErrNoDataSource
		}
		ds = all[0]
	}
	return &Result{Units: []Unit{{DataSource: ds}}}, nil
}

func broadcast(rules *rule.RuleSet) (*Result, error) {
	all := rules.DataSources()
	if len(all) == 0 {
		return nil, ErrNoDataSource
	}
	result := &Result{Units: make([]Unit, 0, len(all)), Broadcast: true}
	for _, ds := range all {
		result.Units = append(result.Units, Unit{DataSource: ds})
	}
	return result, nil
}

// logicalTables returns the statement's table names in order, without
// repeats. Owners are ignored.
func logicalTables(stmt statement.Statement) []string {
	seen := make(map[string]bool)
	var result []string
	for _, table := range stmt.Tables() {
		key := strings.ToLower(table.Name.Value)
		if !seen[key] {
			seen[key] = true
			result = append(result, table.Name.Value)
		}
	}
	return result
}
