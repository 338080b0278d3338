// Package commands implements the querykit CLI commands.
package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/satishbabariya/querykit/cmd/querykit/ui"
	"github.com/satishbabariya/querykit/internal/config"
	"github.com/satishbabariya/querykit/internal/debug"
	"github.com/satishbabariya/querykit/internal/metrics"
	"github.com/satishbabariya/querykit/query/codec"
	"github.com/satishbabariya/querykit/query/driver"
	"github.com/satishbabariya/querykit/query/executor"
)

// app is the state shared by the commands of one invocation.
type app struct {
	configFile string
	driver     string
	dsn        string
	prefix     string
	debug      bool
	stats      bool

	cfg     *config.Config
	exec    *executor.Executor
	metrics *metrics.Collector
}

// NewRootCommand creates the querykit root command.
func NewRootCommand() *cobra.Command {
	a := &app{metrics: metrics.NewCollector()}

	cmd := &cobra.Command{
		Use:           "querykit",
		Short:         "Compile and run condition-spec queries",
		Long:          "querykit compiles legacy condition specifications to SQL and runs them against MySQL, PostgreSQL or SQLite",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.load()
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			defer a.close()
			if a.stats {
				return a.printStats(cmd)
			}
			return nil
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&a.configFile, "config", "", "config file (default searches .querykit.yaml)")
	flags.StringVar(&a.driver, "driver", "", "database driver: mysql, postgres, sqlite, sqlite3")
	flags.StringVar(&a.dsn, "dsn", "", "data source name")
	flags.StringVar(&a.prefix, "prefix", "", "table prefix substituted for #__")
	flags.BoolVar(&a.debug, "debug", false, "log every statement")
	flags.BoolVar(&a.stats, "stats", false, "print statement statistics on exit")

	cmd.AddCommand(NewExecCommand(a))
	cmd.AddCommand(NewQueryCommand(a))
	cmd.AddCommand(NewCompileCommand(a))
	cmd.AddCommand(NewColumnsCommand(a))
	cmd.AddCommand(NewCallCommand(a))
	cmd.AddCommand(NewDropCommand(a))
	cmd.AddCommand(NewTruncateCommand(a))
	cmd.AddCommand(NewDoctorCommand(a))
	cmd.AddCommand(NewVersionCommand())

	return cmd
}

func (a *app) load() error {
	cfg, err := config.LoadConfig(a.configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if a.driver != "" {
		cfg.Driver = a.driver
	}
	if a.dsn != "" {
		cfg.DSN = a.dsn
	}
	if a.prefix != "" {
		cfg.Prefix = a.prefix
	}
	if a.debug {
		cfg.Debug = true
	}

	level := "warn"
	if cfg.Debug {
		level = "debug"
	}
	debug.Configure(debug.Options{Level: level, JSON: cfg.LogFormat == "json"})

	a.cfg = cfg
	return nil
}

// executor opens the connection on first use.
func (a *app) executor(ctx context.Context) (*executor.Executor, error) {
	if a.exec != nil {
		return a.exec, nil
	}
	if a.cfg.DSN == "" {
		return nil, fmt.Errorf("no dsn configured: set --dsn, QUERYKIT_DSN or DATABASE_URL")
	}

	drv, err := driver.Open(ctx, a.cfg.DriverConfig())
	if err != nil {
		return nil, err
	}
	a.exec = executor.New(drv, executor.Options{
		Prefix:   a.cfg.Prefix,
		Codec:    codec.New(a.cfg.CodecOptions()...),
		Observer: a.metrics,
		Results:  a.cfg.Results(),
	})
	return a.exec, nil
}

func (a *app) close() {
	if a.exec != nil {
		if err := a.exec.Close(); err != nil {
			debug.Warn("failed to close connection", "error", err)
		}
		a.exec = nil
	}
}

func (a *app) printStats(cmd *cobra.Command) error {
	snap := a.metrics.Snapshot()
	if len(snap) == 0 {
		return nil
	}
	rows := make([][]string, len(snap))
	for i, s := range snap {
		rows[i] = []string{
			s.Kind,
			fmt.Sprint(s.Count),
			fmt.Sprint(s.Errors),
			fmt.Sprint(s.Rows),
			s.Mean().String(),
			s.Max.String(),
		}
	}
	ui.PrintTitle(cmd.OutOrStdout(), "Statements")
	if err := ui.PrintTable(cmd.OutOrStdout(), []string{"kind", "count", "errors", "rows", "mean", "max"}, rows); err != nil {
		return err
	}

	if a.exec == nil || a.exec.Results() == nil {
		return nil
	}
	cs := a.exec.Results().Stats()
	ui.PrintTitle(cmd.OutOrStdout(), "Result cache")
	return ui.PrintTable(cmd.OutOrStdout(), []string{"hits", "misses", "evictions", "size", "hit rate"}, [][]string{{
		fmt.Sprint(cs.Hits),
		fmt.Sprint(cs.Misses),
		fmt.Sprint(cs.Evictions),
		fmt.Sprintf("%d/%d", cs.Size, cs.MaxSize),
		fmt.Sprintf("%.1f%%", cs.HitRate()),
	}})
}
