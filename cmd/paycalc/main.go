package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"paycalc/internal/domain/holiday"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var holidaysFile string

	root := &cobra.Command{
		Use:           "paycalc",
		Short:         "Payroll overtime calculator",
		Long:          "Calculate monthly pay with Saturday, Sunday and public holiday overtime.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&holidaysFile, "holidays", "", "Public holiday YAML file (defaults to the bundled table)")

	loadTable := func() (*holiday.Table, error) {
		if holidaysFile == "" {
			return holiday.Default()
		}
		return holiday.LoadFile(holidaysFile)
	}

	root.AddCommand(calculateCmd(loadTable), holidaysCmd(loadTable))
	return root
}
