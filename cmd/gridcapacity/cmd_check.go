package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"gridcapacity/internal/backends"
	"gridcapacity/internal/backends/auto"
	"gridcapacity/internal/envs"
	"gridcapacity/internal/logging"
	"gridcapacity/internal/violations"
)

func newCheckCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check <case.json>",
		Short: "Solve a case and report operating limit violations",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env := envs.Load()
			log, err := logging.NewCLI(verboseFlag(cmd) || env.Verbose)
			if err != nil {
				return err
			}
			defer log.Sync()

			backend := auto.Backend(env, log)
			defer backend.Close()
			if err := backend.OpenCase(args[0]); err != nil {
				return err
			}

			limits := violations.DefaultLimits()
			if contingencyMode, _ := cmd.Flags().GetBool("contingency"); contingencyMode {
				limits = violations.ContingencyLimits()
			}
			fullNR, _ := cmd.Flags().GetBool("full-nr")

			checker := violations.NewChecker(log, env.TreatViolationsAsWarnings)
			v, err := checker.Check(backend, limits, backends.SolveOptions{FullNewtonRaphson: fullNR})
			if err != nil {
				return err
			}

			fmt.Printf("Case %q: %s\n", backend.CaseName(), v)
			if !checker.Stats().IsEmpty() {
				fmt.Println()
				checker.Stats().WriteReport(os.Stdout, func(violation violations.Violations, idx int) string {
					return violations.Describe(backend, violation, idx)
				})
			}
			// Returning instead of exiting lets the deferred backend close
			// and log flush run before the nonzero exit.
			if v != violations.NoViolations {
				return fmt.Errorf("case %q has violations: %s", backend.CaseName(), v)
			}
			return nil
		},
	}
	cmd.Flags().Bool("contingency", false, "Check against contingency limits instead of normal limits")
	cmd.Flags().Bool("full-nr", false, "Force the full Newton-Raphson solver")
	return cmd
}
