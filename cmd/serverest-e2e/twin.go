package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/wondertwin-ai/twin-serverest/internal/client"
	"github.com/wondertwin-ai/twin-serverest/internal/procmgr"
)

func (a *app) upCmd() *cobra.Command {
	var (
		twin    procmgr.Twin
		dir     string
		timeout time.Duration
	)
	cmd := &cobra.Command{
		Use:   "up",
		Short: "Start a local twin-serverest in the background",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m := procmgr.New(dir)
			e, err := m.Start(twin)
			if err != nil {
				return err
			}
			ac := client.New(e.URL())
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()
			err = procmgr.WaitReady(ctx, func(ctx context.Context) bool {
				ok, _ := ac.Health(ctx)
				return ok
			})
			if err != nil {
				m.Stop(time.Second)
				return fmt.Errorf("%w (see %s)", err, e.Log)
			}
			fmt.Fprintf(a.out, "twin-serverest %s (pid %d, log %s)\n", passStyle.Render("up"), e.PID, e.Log)
			fmt.Fprintf(a.out, "  export API_URL=%s\n", e.URL())
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&twin.Binary, "binary", "twin-serverest", "twin binary (path or name on PATH)")
	f.IntVar(&twin.Port, "port", 3000, "listen port")
	f.StringVar(&twin.SeedFile, "seed-file", "", "initial state (YAML or JSON)")
	f.StringVar(&twin.DataFile, "data", "", "SQLite file that keeps state between runs")
	f.BoolVar(&twin.Verbose, "twin-verbose", false, "log every request in the twin")
	f.StringVar(&dir, "state-dir", procmgr.DefaultStateDir, "where the pid file and log live")
	f.DurationVar(&timeout, "timeout", 10*time.Second, "how long to wait for the twin to become healthy")
	return cmd
}

func (a *app) downCmd() *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "down",
		Short: "Stop the background twin",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			err := procmgr.New(dir).Stop(5 * time.Second)
			if errors.Is(err, procmgr.ErrNotRunning) {
				fmt.Fprintf(a.out, "twin-serverest %s\n", skipStyle.Render("not running"))
				return nil
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "twin-serverest %s\n", dimStyle.Render("stopped"))
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, "state-dir", procmgr.DefaultStateDir, "where the pid file and log live")
	return cmd
}
