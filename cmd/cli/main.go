package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "statadvisor",
		Short:         "Classify assumption checks and rank candidate statistical tests",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().String("catalog", "", "Catalog file (.yaml, .json, .xlsx); defaults to the bundled catalog")

	rootCmd.AddCommand(
		newClassifyCmd(),
		newRankCmd(),
		newReportCmd(),
		newCatalogCmd(),
	)
	return rootCmd
}
