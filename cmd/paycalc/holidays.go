package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"paycalc/internal/domain/holiday"
)

func holidaysCmd(loadTable func() (*holiday.Table, error)) *cobra.Command {
	var year int

	cmd := &cobra.Command{
		Use:   "holidays",
		Short: "List the public holidays known to the calculator",
		RunE: func(cmd *cobra.Command, args []string) error {
			table, err := loadTable()
			if err != nil {
				return fmt.Errorf("load holidays: %w", err)
			}

			list := table.All()
			if year != 0 {
				if !table.Supports(year) {
					return fmt.Errorf("%w: %d (known years: %v)", holiday.ErrUnsupportedYear, year, table.Years())
				}
				list = table.ForYear(year)
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			for _, h := range list {
				note := ""
				if h.Observed {
					note = "(observed)"
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\n", h.Date, h.Name, note)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().IntVar(&year, "year", 0, "Only list holidays for this year")
	return cmd
}
