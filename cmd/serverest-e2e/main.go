// serverest-e2e runs end-to-end checks against a ServeRest deployment or the
// local twin.
//
// Usage:
//
//	serverest-e2e run [--ui] [--parallel N] [--only name]...   Run the scenario suite
//	serverest-e2e scenarios                                      List suite scenarios
//	serverest-e2e test [path]                                    Run JSON scenarios
//	serverest-e2e status                                         Twin health and record counts
//	serverest-e2e reset                                          Reset the twin
//	serverest-e2e seed <file>                                    Load a YAML or JSON state file
//	serverest-e2e fault <method> <path> <status>                 Inject a fault into the twin
//	serverest-e2e up [--port N] [--seed-file f] [--data f]       Start a local twin in the background
//	serverest-e2e down                                           Stop it
//
// Targets come from --config, then API_URL / FRONT_URL, then flags.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/wondertwin-ai/twin-serverest/internal/config"
)

// version is set at build time via -ldflags "-X main.version=..."
var version = "dev"

type app struct {
	configPath string
	apiURL     string
	frontURL   string
	verbose    bool

	cfg    *config.Config
	logger *slog.Logger
	out    io.Writer
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(os.Stdout, os.Stderr).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	a := &app{out: stdout}
	root := &cobra.Command{
		Use:           "serverest-e2e",
		Short:         "End-to-end checks for the ServeRest API and frontend",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(stderr)
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	flags := root.PersistentFlags()
	flags.StringVarP(&a.configPath, "config", "c", "", "config file (.yaml, .json, or .toml)")
	flags.StringVar(&a.apiURL, "api-url", "", "ServeRest API base URL (overrides config and API_URL)")
	flags.StringVar(&a.frontURL, "front-url", "", "ServeRest frontend base URL (overrides config and FRONT_URL)")
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "debug logging")

	root.AddCommand(
		a.runCmd(),
		a.scenariosCmd(),
		a.testCmd(),
		a.statusCmd(),
		a.resetCmd(),
		a.seedCmd(),
		a.faultCmd(),
		a.upCmd(),
		a.downCmd(),
	)
	return root
}

func (a *app) init(stderr io.Writer) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.apiURL != "" {
		cfg.APIURL = a.apiURL
	}
	if a.frontURL != "" {
		cfg.FrontURL = a.frontURL
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	a.cfg = cfg

	level := log.InfoLevel
	if a.verbose {
		level = log.DebugLevel
	}
	handler := log.NewWithOptions(stderr, log.Options{
		Level:           level,
		ReportTimestamp: true,
		TimeFormat:      time.Kitchen,
	})
	a.logger = slog.New(handler)
	return nil
}
