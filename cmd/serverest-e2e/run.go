package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/wondertwin-ai/twin-serverest/internal/apiactions"
	"github.com/wondertwin-ai/twin-serverest/internal/browser"
	"github.com/wondertwin-ai/twin-serverest/internal/fixture"
	"github.com/wondertwin-ai/twin-serverest/internal/scenario"
	"github.com/wondertwin-ai/twin-serverest/internal/suite"
	"github.com/wondertwin-ai/twin-serverest/internal/uiactions"
)

func (a *app) runCmd() *cobra.Command {
	var (
		withUI   bool
		parallel int
		only     []string
		seed     uint64
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the scenario suite",
		RunE: func(cmd *cobra.Command, args []string) error {
			if parallel > 0 {
				a.cfg.Parallel = parallel
			}
			scenarios := suite.APIScenarios()
			if withUI {
				scenarios = suite.Default()
			}
			s, err := suite.New(scenarios, suite.WithParallel(a.cfg.Parallel)).Only(only...)
			if err != nil {
				return err
			}

			gen := fixture.New(seed)
			env := &suite.Env{
				API:    apiactions.New(a.cfg.APIURL, apiactions.WithLogger(a.logger), apiactions.WithGenerator(gen)),
				Gen:    gen,
				Logger: a.logger,
			}
			if withUI {
				b, err := browser.New(browser.Options{
					Headless:     a.cfg.Headless,
					StepTimeout:  a.cfg.StepTimeout,
					ArtifactsDir: a.cfg.ArtifactsDir,
					Logger:       a.logger,
				})
				if err != nil {
					return err
				}
				defer b.Close()
				env.UI = uiactions.New(b, uiactions.Options{
					FrontURL:  a.cfg.FrontURL,
					APIURL:    a.cfg.APIURL,
					ImageURL:  a.cfg.ImageURL,
					Generator: gen,
					Logger:    a.logger,
				})
			}

			a.logger.Info("running suite", "api", a.cfg.APIURL, "scenarios", len(s.Scenarios()), "parallel", a.cfg.Parallel)
			results := s.Run(cmd.Context(), env)
			rows := make([]summaryRow, len(results))
			for i, r := range results {
				rows[i] = summaryRow{Name: r.Name, Kind: r.Kind.String(), Duration: r.Duration, Skipped: r.Skipped, Err: r.Err}
			}
			fmt.Fprint(a.out, renderSummary(rows))
			if n := suite.Failed(results); n > 0 {
				return fmt.Errorf("%d of %d scenarios failed", n, len(results))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&withUI, "ui", false, "also run browser scenarios")
	cmd.Flags().IntVarP(&parallel, "parallel", "p", 0, "API scenarios to run at once (default from config)")
	cmd.Flags().StringSliceVar(&only, "only", nil, "run only the named scenarios")
	cmd.Flags().Uint64Var(&seed, "seed", 0, "fixture seed (0 = random)")
	return cmd
}

func (a *app) scenariosCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "scenarios",
		Short: "List suite scenarios",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, sc := range suite.Default() {
				fmt.Fprintf(a.out, "  %-30s %s\n", sc.Name, sc.Kind)
			}
			return nil
		},
	}
}

func (a *app) testCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "test [path]",
		Short: "Run JSON scenarios from a file or directory (default ./scenarios)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "./scenarios"
			if len(args) > 0 {
				path = args[0]
			}
			scenarios, err := scenario.LoadPath(path)
			if err != nil {
				return err
			}
			runner := scenario.NewRunner(a.cfg.APIURL,
				scenario.WithFrontURL(a.cfg.FrontURL),
				scenario.WithLogger(a.logger),
			)

			var rows []summaryRow
			failed := 0
			for _, s := range scenarios {
				start := time.Now()
				res, err := runner.Run(cmd.Context(), s)
				row := summaryRow{Name: s.Name, Kind: "json", Duration: time.Since(start)}
				switch {
				case err != nil:
					row.Err = err
				case !res.Passed:
					row.Err = firstFailure(res)
				}
				if row.Err != nil {
					failed++
				}
				rows = append(rows, row)
			}
			fmt.Fprint(a.out, renderSummary(rows))
			if failed > 0 {
				return fmt.Errorf("%d of %d scenarios failed", failed, len(scenarios))
			}
			return nil
		},
	}
}

func firstFailure(res *scenario.Result) error {
	for _, sr := range res.Steps {
		if !sr.Passed {
			return fmt.Errorf("step %q: %s", sr.Name, sr.Error)
		}
	}
	return nil
}
