package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"gridcapacity/internal/caseio"
	"gridcapacity/internal/output"
)

func newConvertCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "convert <case.json>",
		Short: "Validate a case file and export its data",
		Long: `Convert loads and validates a case file. With --out the normalized
case is written there; otherwise the full case data is exported next to
the source file.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			net, err := caseio.LoadCase(args[0])
			if err != nil {
				return err
			}
			if outPath, _ := cmd.Flags().GetString("out"); outPath != "" {
				if err := caseio.SaveCase(net, outPath); err != nil {
					return err
				}
				fmt.Printf("Case written to %q\n", outPath)
				return nil
			}
			path, err := output.WriteExportedData(args[0], net)
			if err != nil {
				return err
			}
			fmt.Printf("Case data written to %q\n", path)
			return nil
		},
	}
	cmd.Flags().String("out", "", "Write the normalized case to this path")
	return cmd
}
