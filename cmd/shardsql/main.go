package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/riftdata/shardsql/internal/config"
	"github.com/riftdata/shardsql/internal/parsetree"
	"github.com/riftdata/shardsql/internal/ui"
	"github.com/riftdata/shardsql/pkg/logger"
)

// Build-time variables
var (
	version   = "dev"
	commit    = "unknown"
	buildTime = "unknown"
)

// Global flags
var (
	cfgFile   string
	noColor   bool
	quiet     bool
	verbose   bool
	output    string
	dialect   string
	rulesFile string
)

// Global instances
var (
	cfg *config.Config
	out *ui.Output
)

func main() {
	os.Exit(run())
}

func run() int {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		if out != nil {
			out.Error(err.Error())
		} else {
			_, _ = fmt.Fprintln(os.Stderr, err)
		}
		return 1
	}
	return 0
}

var rootCmd = &cobra.Command{
	Use:   "shardsql",
	Short: "Route and rewrite DDL for sharded databases",
	Long: `shardsql turns DDL parse trees into position-annotated statements, routes
them to the data sources of a sharding rule set and rewrites logical table
and column names into the actual ones.

PostgreSQL text is parsed directly. MySQL and Oracle statements are read as
parse trees exported by an ANTLR grammar (--tree).

Get started:
  shardsql parse "CREATE TABLE t_order (order_id INT PRIMARY KEY)"
  shardsql route --rules rules.yaml "DROP TABLE t_order"
  shardsql rewrite --tree create_order.json`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Skip for completion and help commands
		if cmd.Name() == "completion" || cmd.Name() == "help" {
			return nil
		}

		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}

		// Flags override the config file
		if cmd.Flags().Changed("output") {
			cfg.Output.Format = output
		}
		if cmd.Flags().Changed("dialect") {
			cfg.Dialect = dialect
		}
		if cmd.Flags().Changed("rules") {
			cfg.Rules.File = rulesFile
		}
		if verbose {
			cfg.Log.Level = "debug"
		}

		format, err := ui.ParseFormat(cfg.Output.Format)
		if err != nil {
			return err
		}
		out = ui.NewOutput(format, noColor, quiet)
		out.SetWriter(cmd.OutOrStdout())
		out.SetErrWriter(cmd.ErrOrStderr())

		logger.SetOutput(cmd.ErrOrStderr())
		logger.SetLevel(cfg.Log.Level)
		logger.SetFormat(cfg.Log.Format)

		// config show and path must work with a broken config
		if cmd.Parent() != nil && cmd.Parent().Name() == "config" {
			return nil
		}
		return cfg.Validate()
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	RunE: func(cmd *cobra.Command, args []string) error {
		info := map[string]string{
			"version":   version,
			"commit":    commit,
			"buildTime": buildTime,
			"goVersion": runtime.Version(),
			"os":        runtime.GOOS,
			"arch":      runtime.GOARCH,
		}
		if handled, err := out.Data(info); handled {
			return err
		}

		out.Title("shardsql")
		out.KeyValue("Version", version)
		out.KeyValue("Commit", commit)
		out.KeyValue("Built", buildTime)
		out.KeyValue("Go", runtime.Version())
		out.KeyValue("OS/Arch", fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH))
		return nil
	},
}

var completionCmd = &cobra.Command{
	Use:   "completion [bash|zsh|fish|powershell]",
	Short: "Generate shell completion scripts",
	Long: `Generate shell completion scripts for shardsql.

To load completions:

Bash:
  $ source <(shardsql completion bash)
  # To load completions for each session, execute once:
  # Linux:
  $ shardsql completion bash > /etc/bash_completion.d/shardsql
  # macOS:
  $ shardsql completion bash > $(brew --prefix)/etc/bash_completion.d/shardsql

Zsh:
  # If shell completion is not already enabled in your environment,
  # you will need to enable it. You can execute the following once:
  $ echo "autoload -U compinit; compinit" >> ~/.zshrc

  # To load completions for each session, execute once:
  $ shardsql completion zsh > "${fpath[1]}/_shardsql"

  # You will need to start a new shell for this setup to take effect.

Fish:
  $ shardsql completion fish | source
  # To load completions for each session, execute once:
  $ shardsql completion fish > ~/.config/fish/completions/shardsql.fish

PowerShell:
  PS> shardsql completion powershell | Out-String | Invoke-Expression
  # To load completions for every new session, run:
  PS> shardsql completion powershell > shardsql.ps1
  # and source this file from your PowerShell profile.
`,
	DisableFlagsInUseLine: true,
	ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
	Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	RunE: func(cmd *cobra.Command, args []string) error {
		w := cmd.OutOrStdout()
		switch args[0] {
		case "bash":
			return cmd.Root().GenBashCompletion(w)
		case "zsh":
			return cmd.Root().GenZshCompletion(w)
		case "fish":
			return cmd.Root().GenFishCompletion(w, true)
		case "powershell":
			return cmd.Root().GenPowerShellCompletionWithDesc(w)
		}
		return nil
	},
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.shardsql/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable color output")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress non-essential output")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVarP(&output, "output", "o", "table", "output format (table, json, yaml)")
	rootCmd.PersistentFlags().StringVarP(&dialect, "dialect", "d", "postgresql", "SQL dialect (mysql, oracle, postgresql)")
	rootCmd.PersistentFlags().StringVarP(&rulesFile, "rules", "r", "", "rules file (default: rules.yaml)")

	registerStatementCommands()
	registerRulesCommands()
	registerConfigCommands()

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(completionCmd)

	// Register completion functions
	_ = rootCmd.RegisterFlagCompletionFunc("output", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return []string{"table", "json", "yaml"}, cobra.ShellCompDirectiveNoFileComp
	})
	_ = rootCmd.RegisterFlagCompletionFunc("dialect", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return parsetree.Dialects(), cobra.ShellCompDirectiveNoFileComp
	})
	_ = rootCmd.RegisterFlagCompletionFunc("rules", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return []string{"yaml", "yml"}, cobra.ShellCompDirectiveFilterFileExt
	})
}
