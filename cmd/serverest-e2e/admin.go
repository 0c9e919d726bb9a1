package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/wondertwin-ai/twin-serverest/internal/client"
)

func (a *app) statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show twin health and record counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ac := client.New(a.cfg.APIURL)
			ok, msg := ac.Health(cmd.Context())
			if !ok {
				fmt.Fprintf(a.out, "  %-10s %s\n", "health", failStyle.Render("unreachable"))
				return fmt.Errorf("twin at %s: %s", a.cfg.APIURL, msg)
			}
			counts, err := ac.Status(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "  %-10s %s\n", "health", passStyle.Render("healthy"))
			fmt.Fprintf(a.out, "  %-10s %s\n", "url", a.cfg.APIURL)
			fmt.Fprintf(a.out, "  %-10s %d\n", "usuarios", counts.Users)
			fmt.Fprintf(a.out, "  %-10s %d\n", "produtos", counts.Products)
			fmt.Fprintf(a.out, "  %-10s %d\n", "carrinhos", counts.Carts)
			return nil
		},
	}
}

func (a *app) resetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Reset the twin's state, faults, and request log",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := client.New(a.cfg.APIURL).Reset(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Reset %s: %s\n", a.cfg.APIURL, resp)
			return nil
		},
	}
}

func (a *app) seedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed <file>",
		Short: "Load a YAML or JSON state file into the twin",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := client.New(a.cfg.APIURL).Seed(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("seeding %s: %w", a.cfg.APIURL, err)
			}
			fmt.Fprintf(a.out, "Seeded %s: %s\n", a.cfg.APIURL, resp)
			return nil
		},
	}
}

func (a *app) faultCmd() *cobra.Command {
	var remove bool
	cmd := &cobra.Command{
		Use:   "fault <method|*> <path> [status]",
		Short: "Make the twin fail a route, or clear the fault with --remove",
		Args:  cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			method := strings.ToUpper(args[0])
			if method == "*" {
				method = ""
			}
			ac := client.New(a.cfg.APIURL)
			if remove {
				if err := ac.RemoveFault(cmd.Context(), method, args[1]); err != nil {
					return err
				}
				fmt.Fprintf(a.out, "Removed fault on %s %s\n", args[0], args[1])
				return nil
			}
			if len(args) < 3 {
				return fmt.Errorf("status is required unless --remove is set")
			}
			status, err := strconv.Atoi(args[2])
			if err != nil || status < 100 || status > 599 {
				return fmt.Errorf("invalid status %q", args[2])
			}
			if err := ac.InjectFault(cmd.Context(), method, args[1], status); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Injected %d on %s %s\n", status, args[0], args[1])
			return nil
		},
	}
	cmd.Flags().BoolVar(&remove, "remove", false, "remove the fault instead")
	return cmd
}
