package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/turtacn/pdmews/internal/bootstrap"
	"github.com/turtacn/pdmews/internal/config"
	"github.com/turtacn/pdmews/internal/infrastructure/monitoring"
)

// containerBuilder turns a config path into a ready container.
type containerBuilder func(ctx context.Context, configPath string) (*bootstrap.Container, error)

// app carries the state shared by every subcommand of one invocation.
type app struct {
	configPath string
	build      containerBuilder
	container  *bootstrap.Container
}

// NewRootCmd returns the `pdmews-admin` command tree.
// It provides the entry point for the entire CLI application.
// NewRootCmd 返回 `pdmews-admin` 命令树，是整个 CLI 应用程序的入口点。
func NewRootCmd() *cobra.Command {
	return newRootCmd(buildFromConfig)
}

func newRootCmd(build containerBuilder) *cobra.Command {
	a := &app{build: build}
	root := &cobra.Command{
		Use:   "pdmews-admin",
		Short: "A CLI tool for operating the PD-MEWS risk correlation engine.",
		Long: `pdmews-admin runs administrative tasks against the PD-MEWS data store,
such as on-demand risk analyses, evidence preservation and reputation lookups.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			c, err := a.build(cmd.Context(), a.configPath)
			if err != nil {
				return err
			}
			a.container = c
			return nil
		},
	}
	root.PersistentFlags().StringVar(&a.configPath, "config", "", "path to config.yaml")

	root.AddCommand(a.riskCmd(), a.legalCmd(), a.reputationCmd())
	return root
}

// with adapts fn into a RunE that releases the container however fn returns.
func (a *app) with(fn func(cmd *cobra.Command, c *bootstrap.Container) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		defer func() { _ = a.close() }()
		return fn(cmd, a.container)
	}
}

func (a *app) close() error {
	if a.container == nil {
		return nil
	}
	err := a.container.Close()
	a.container = nil
	return err
}

func buildFromConfig(ctx context.Context, configPath string) (*bootstrap.Container, error) {
	// keep stdout for command output
	quiet := monitoring.NewZapLoggerWithWriter(&config.LogConfig{Level: "warn"}, os.Stderr)
	cfg, _, err := config.LoadConfig(configPath, quiet)
	if err != nil {
		return nil, err
	}
	log := monitoring.NewZapLoggerWithWriter(&cfg.Log, os.Stderr)
	return bootstrap.Build(ctx, cfg, log)
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// Execute is the main entry point for the CLI application.
// It parses the command-line arguments and executes the appropriate command.
// If an error occurs, it prints the error and exits.
// Execute 是 CLI 应用程序的主入口点。如果发生错误，它会打印错误并退出。
func Execute() {
	root := NewRootCmd()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
