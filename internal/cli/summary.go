package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/courtside/courtbill/internal/finance"
)

var summaryCmd = &cobra.Command{
	Use:   "summary <club> <label> [file]",
	Short: "Show the financial summary of a session or one file",
	Args:  cobra.RangeArgs(2, 3),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := openSession(cmd, args[0], args[1]); err != nil {
			return err
		}
		if len(args) == 3 {
			summary, err := svc.FileSummary(args[2])
			if err != nil {
				return err
			}
			printFileSummary(summary)
			return nil
		}

		summary, err := svc.Summary()
		if err != nil {
			return err
		}
		fmt.Printf("%s / %s\n", summary.Club, summary.Label)
		for _, fs := range summary.Files {
			printFileSummary(fs)
		}
		if summary.UndefinedFiles > 0 {
			fmt.Printf("%d file(s) with unresolved records excluded from the gross total\n",
				summary.UndefinedFiles)
		}
		fmt.Printf("Gross total:  %.2f\n", summary.GrossTotal)
		fmt.Printf("Club cut:     %.2f (platform share %.0f%%)\n",
			summary.ClubCut, summary.PlatformShare*100)
		return nil
	},
}

func printFileSummary(s finance.FileSummary) {
	fmt.Printf("%s:\n", s.Filename)
	for _, fee := range finance.FeeAmounts(s.ByFee) {
		line := s.ByFee[fee]
		fmt.Printf("  %d x %.2f = %.2f\n", line.Count, fee, line.Subtotal)
	}
	if s.NoShows > 0 {
		fmt.Printf("  no-shows: %d\n", s.NoShows)
	}
	if s.Unresolved > 0 {
		fmt.Printf("  unresolved: %d (total undefined)\n", s.Unresolved)
		return
	}
	if s.NetAdjustments < 0 {
		fmt.Printf("  net adjustments: %.2f\n", s.NetAdjustments)
	}
	fmt.Printf("  total: %.2f\n", *s.Total)
}

func init() {
	rootCmd.AddCommand(summaryCmd)
}
