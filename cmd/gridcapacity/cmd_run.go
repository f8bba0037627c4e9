package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"gridcapacity/internal/backends/auto"
	"gridcapacity/internal/capacity"
	"gridcapacity/internal/config"
	"gridcapacity/internal/envs"
	"gridcapacity/internal/logging"
	"gridcapacity/internal/model"
	"gridcapacity/internal/output"
	"gridcapacity/internal/violations"
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <config.json>",
		Short: "Run a capacity analysis from a config file",
		Long: `Run computes the bus headroom for the case named in the config file
and writes the headroom, violation and feasibility statistics next to
the case file.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env := envs.Load()
			log, err := logging.NewCLI(verboseFlag(cmd) || env.Verbose)
			if err != nil {
				return err
			}
			defer log.Sync()

			cfg, err := config.Load(args[0])
			if err != nil {
				return err
			}
			params := cfg.Params()

			backend := auto.Backend(env, log)
			defer backend.Close()

			checker := violations.NewChecker(log, env.TreatViolationsAsWarnings)
			analyser, err := capacity.NewAnalyser(backend, checker, log, params)
			if err != nil {
				return err
			}
			headroom, err := analyser.BusesHeadroom()
			if err != nil {
				return err
			}
			log.Info("analysis finished",
				zap.Int("buses", len(headroom)),
				zap.Int("power_flows", analyser.PowerFlowCount()))

			printReports(analyser, checker, headroom)

			headroomPath, err := output.WriteHeadroom(
				params.CaseName, headroom, checker.Stats(), analyser.Stats())
			if err != nil {
				return err
			}
			fmt.Printf("\nHeadroom written to %q\n", headroomPath)

			if skipCSV, _ := cmd.Flags().GetBool("no-csv"); !skipCSV {
				csvPath, err := output.WriteHeadroomCSV(params.CaseName, headroom)
				if err != nil {
					return err
				}
				fmt.Printf("Headroom CSV written to %q\n", csvPath)
			}
			if exportData, _ := cmd.Flags().GetBool("export-data"); exportData {
				net, ok := backend.(interface{ Network() *model.Network })
				if !ok {
					return fmt.Errorf("backend does not expose the network for export")
				}
				dataPath, err := output.WriteExportedData(params.CaseName, net.Network())
				if err != nil {
					return err
				}
				fmt.Printf("Case data written to %q\n", dataPath)
			}
			return nil
		},
	}
	cmd.Flags().Bool("no-csv", false, "Skip the headroom CSV file")
	cmd.Flags().Bool("export-data", false, "Also export the full case data as JSON")
	return cmd
}

func printReports(analyser *capacity.Analyser, checker *violations.Checker, headroom capacity.Headroom) {
	analyser.Stats().WriteReport(os.Stdout)

	fmt.Println()
	fmt.Println(centered(" HEADROOM ", "="))
	if len(headroom) == 0 {
		fmt.Println("No headroom found")
	}
	for _, h := range headroom {
		fmt.Println(h)
	}

	fmt.Println()
	if checker.Stats().IsEmpty() {
		fmt.Println("No violations detected")
		return
	}
	fmt.Println(centered(" VIOLATIONS ", "="))
	b := analyser.Backend()
	checker.Stats().WriteReport(os.Stdout, func(v violations.Violations, idx int) string {
		return violations.Describe(b, v, idx)
	})
}

func centered(s, pad string) string {
	const width = 80
	if len(s) >= width {
		return s
	}
	left := (width - len(s)) / 2
	right := width - len(s) - left
	return strings.Repeat(pad, left) + s + strings.Repeat(pad, right)
}
