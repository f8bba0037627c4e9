// Command gridcapacity analyses the power grid capacity headroom of a
// grid case: per-bus load and generation headroom under normal and
// contingency operating limits.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "0.1.0-dev"

func main() {
	rootCmd := &cobra.Command{
		Use:   "gridcapacity",
		Short: "Power grid capacity analysis",
		Long: `gridcapacity computes per-bus load and generation headroom for a
grid case. Buses are probed with temporary injections and bisection
until the largest power that keeps the case clean under normal and
contingency limits is found.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(
		newVersionCmd(),
		newRunCmd(),
		newCheckCmd(),
		newConvertCmd(),
		newServeCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("gridcapacity version %s\n", version)
		},
	}
}

func verboseFlag(cmd *cobra.Command) bool {
	verbose, _ := cmd.Flags().GetBool("verbose")
	return verbose
}
