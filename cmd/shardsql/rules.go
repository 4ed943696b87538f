package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/riftdata/shardsql/internal/orchestration"
	"github.com/riftdata/shardsql/internal/rule"
	"github.com/riftdata/shardsql/internal/ui"
	"github.com/riftdata/shardsql/pkg/logger"
)

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Inspect sharding and encrypt rules",
}

var rulesShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the expanded rules",
	Long: `Show every logical table with the actual data nodes its inline
expression expands to, plus broadcast tables and encrypted columns.`,
	RunE: runRulesShow,
}

var rulesValidateCmd = &cobra.Command{
	Use:     "validate [file]",
	Short:   "Check a rules file",
	Example: `  shardsql rules validate rules.yaml`,
	Args:    cobra.MaximumNArgs(1),
	RunE:    runRulesValidate,
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Reload the rules file whenever it changes",
	Long: `Watch the rules file and report every rule set that becomes active.
Invalid edits are reported and the previous rules stay in place.`,
	RunE: runWatch,
}

func registerRulesCommands() {
	rulesCmd.AddCommand(rulesShowCmd)
	rulesCmd.AddCommand(rulesValidateCmd)
	rootCmd.AddCommand(rulesCmd)
	rootCmd.AddCommand(watchCmd)
}

// tableRuleRow describes one logical table of a rule set.
type tableRuleRow struct {
	Table     string   `json:"table" yaml:"table"`
	Type      string   `json:"type" yaml:"type"`
	DataNodes []string `json:"dataNodes,omitempty" yaml:"dataNodes,omitempty"`
	Encrypted []string `json:"encrypted,omitempty" yaml:"encrypted,omitempty"`
}

func describeRules(rs *rule.RuleSet) []tableRuleRow {
	rows := make(map[string]*tableRuleRow)
	get := func(name, kind string) *tableRuleRow {
		key := strings.ToLower(name)
		if row, ok := rows[key]; ok {
			return row
		}
		row := &tableRuleRow{Table: name, Type: kind}
		rows[key] = row
		return row
	}

	for name := range rs.Sharding.Tables {
		row := get(name, "sharded")
		for _, node := range rs.DataNodes(name) {
			row.DataNodes = append(row.DataNodes, node.String())
		}
	}
	for _, name := range rs.Sharding.BroadcastTables {
		get(name, "broadcast")
	}
	for name, table := range rs.Encrypt.Tables {
		row := get(name, "single")
		for column, cfg := range table.Columns {
			row.Encrypted = append(row.Encrypted, column+"->"+cfg.CipherColumn)
		}
		sort.Strings(row.Encrypted)
	}

	result := make([]tableRuleRow, 0, len(rows))
	for _, row := range rows {
		result = append(result, *row)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Table < result[j].Table })
	return result
}

func runRulesShow(cmd *cobra.Command, args []string) error {
	rs, err := orchestration.NewFileCenter(cfg.Rules.File).Load(cmd.Context())
	if err != nil {
		return err
	}
	rows := describeRules(rs)
	if handled, err := out.Data(rows); handled {
		return err
	}

	out.Title("Rules")
	out.KeyValue("File", cfg.Rules.File)
	out.KeyValue("Data sources", strings.Join(rs.DataSources(), ", "))
	if rs.Sharding.DefaultDataSource != "" {
		out.KeyValue("Default", rs.Sharding.DefaultDataSource)
	}
	out.Print("")

	table := ui.NewTable(out, "TABLE", "TYPE", "DATA NODES", "ENCRYPTED")
	for _, row := range rows {
		table.AddRow(row.Table, row.Type, summarizeNodes(row.DataNodes), strings.Join(row.Encrypted, ", "))
	}
	return table.Render()
}

// summarizeNodes keeps long node lists readable in table output.
func summarizeNodes(nodes []string) string {
	const limit = 4
	if len(nodes) <= limit {
		return strings.Join(nodes, ", ")
	}
	return fmt.Sprintf("%s, ... (%d nodes)", strings.Join(nodes[:limit], ", "), len(nodes))
}

func runRulesValidate(cmd *cobra.Command, args []string) error {
	path := cfg.Rules.File
	if len(args) > 0 {
		path = args[0]
	}
	rs, err := rule.Load(path)
	if err != nil {
		return err
	}

	nodes := 0
	for name := range rs.Sharding.Tables {
		nodes += len(rs.DataNodes(name))
	}
	out.Success(fmt.Sprintf("%s is valid", path))
	out.KeyValue("Data sources", fmt.Sprintf("%d", len(rs.DataSources())))
	out.KeyValue("Sharded tables", fmt.Sprintf("%d (%d data nodes)", len(rs.Sharding.Tables), nodes))
	out.KeyValue("Broadcast tables", fmt.Sprintf("%d", len(rs.Sharding.BroadcastTables)))
	out.KeyValue("Encrypted tables", fmt.Sprintf("%d", len(rs.Encrypt.Tables)))
	return nil
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	center := orchestration.NewFileCenter(cfg.Rules.File, orchestration.WithDebounce(cfg.Rules.Debounce))
	registry := orchestration.NewRegistry(center)
	if err := registry.Refresh(ctx); err != nil {
		return err
	}

	report := func(rs *rule.RuleSet) {
		logger.Info("rules active",
			"version", registry.Version(),
			"dataSources", len(rs.DataSources()),
			"shardedTables", len(rs.Sharding.Tables))
	}
	current, err := registry.Rules()
	if err != nil {
		return err
	}
	report(current)
	out.Info(fmt.Sprintf("Watching %s (Ctrl+C to stop)", cfg.Rules.File))

	err = center.Watch(ctx, func(rs *rule.RuleSet) {
		registry.Set(rs)
		report(rs)
	})
	if ctx.Err() != nil {
		return nil
	}
	return err
}
