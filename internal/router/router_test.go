package router

import (
	"errors"
	"reflect"
	"testing"

	"github.com/riftdata/shardsql/internal/rule"
	"github.com/riftdata/shardsql/internal/segment"
	"github.com/riftdata/shardsql/internal/statement"
)

const testRules = `
shardingRule:
  defaultDataSourceName: ds_0
  tables:
    t_order:
      actualDataNodes: ds_${0..1}.t_order_${0..1}
    t_order_item:
      actualDataNodes: ds_${0..1}.t_order_item_${0..1}
    t_log:
      actualDataNodes: ds_0.t_log_${0..2}
  broadcastTables:
    - t_config
`

func mustRules(t *testing.T, doc string) *rule.RuleSet {
	t.Helper()
	rs, err := rule.Parse([]byte(doc))
	if err != nil {
		t.Fatal(err)
	}
	return rs
}

func table(name string) *segment.Table {
	return segment.NewTable(0, len(name)-1, nil, segment.Identifier{Value: name})
}

func dropTables(names ...string) statement.Statement {
	var tables []*segment.Table
	for _, n := range names {
		tables = append(tables, table(n))
	}
	return statement.NewDropTable(tables)
}

func TestRouteShardedTable(t *testing.T) {
	rules := mustRules(t, testRules)

	result, err := Route(dropTables("t_order"), rules)
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Units) != 4 {
		t.Fatalf("expected 4 units, got %d", len(result.Units))
	}
	want := []Unit{
		{DataSource: "ds_0", TableMap: map[string]string{"t_order": "t_order_0"}},
		{DataSource: "ds_0", TableMap: map[string]string{"t_order": "t_order_1"}},
		{DataSource: "ds_1", TableMap: map[string]string{"t_order": "t_order_0"}},
		{DataSource: "ds_1", TableMap: map[string]string{"t_order": "t_order_1"}},
	}
	if !reflect.DeepEqual(result.Units, want) {
		t.Errorf("unexpected units: %+v", result.Units)
	}
	if got := result.DataSources(); !reflect.DeepEqual(got, []string{"ds_0", "ds_1"}) {
		t.Errorf("unexpected data sources: %v", got)
	}
}

func TestRouteBindsTablesByIndex(t *testing.T) {
	rules := mustRules(t, testRules)

	result, err := Route(dropTables("T_ORDER", "t_order_item", "t_order"), rules)
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Units) != 4 {
		t.Fatalf("expected 4 units, got %d", len(result.Units))
	}
	last := result.Units[3]
	if last.ActualTable("t_order") != "t_order_1" || last.ActualTable("t_order_item") != "t_order_item_1" {
		t.Errorf("unexpected binding: %+v", last)
	}
}

func TestRouteUnboundTables(t *testing.T) {
	rules := mustRules(t, testRules)

	_, err := Route(dropTables("t_order", "t_log"), rules)
	if !errors.Is(err, ErrUnboundTables) {
		t.Errorf("expected ErrUnboundTables, got %v", err)
	}
}

func TestRouteUnshardedGoesToDefault(t *testing.T) {
	rules := mustRules(t, testRules)

	result, err := Route(dropTables("t_user"), rules)
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Units) != 1 || result.Units[0].DataSource != "ds_0" {
		t.Errorf("expected single unit on ds_0, got %+v", result.Units)
	}
	if result.Units[0].ActualTable("t_user") != "t_user" {
		t.Errorf("unsharded table should keep its name")
	}
}

func TestRouteBroadcast(t *testing.T) {
	rules := mustRules(t, testRules)

	tests := []struct {
		name string
		stmt statement.Statement
	}{
		{"broadcast table", dropTables("t_config")},
		{"drop index", statement.NewDropIndex()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := Route(tt.stmt, rules)
			if err != nil {
				t.Fatal(err)
			}
			if !result.Broadcast {
				t.Error("expected broadcast")
			}
			if got := result.DataSources(); !reflect.DeepEqual(got, []string{"ds_0", "ds_1"}) {
				t.Errorf("unexpected data sources: %v", got)
			}
		})
	}
}

func TestRouteNoDataSource(t *testing.T) {
	rules := mustRules(t, "dataSources: [ds_a, ds_b]\nshardingRule: {}")

	_, err := Route(dropTables("t_user"), rules)
	if !errors.Is(err, ErrNoDataSource) {
		t.Errorf("expected ErrNoDataSource, got %v", err)
	}

	single := mustRules(t, "dataSources: [only]\nshardingRule: {}")
	result, err := Route(dropTables("t_user"), single)
	if err != nil {
		t.Fatal(err)
	}
	if result.Units[0].DataSource != "only" {
		t.Errorf("expected the only data source, got %s", result.Units[0].DataSource)
	}
}
