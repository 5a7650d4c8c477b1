package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ohowland/feedercap/internal/pkg/analysis"
)

var summaryCmd = &cobra.Command{
	Use:   "summary <feeder.json>...",
	Short: "Fleet warning counts and capacity extremes",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		results, errs := analyzer.Batch(args)
		for _, err := range errs {
			fmt.Fprintln(os.Stderr, err)
		}

		s := analysis.Summarize(results)
		fmt.Printf("feeders analyzed:      %d (%d failed)\n", s.Feeders, len(errs))
		fmt.Printf("line heavy/overload:   %d / %d\n", s.Warnings.LineHeavy, s.Warnings.LineOverload)
		fmt.Printf("tf heavy/overload:     %d / %d\n", s.Warnings.TransformerHeavy, s.Warnings.TransformerOverload)
		if s.Feeders > 0 {
			fmt.Printf("largest capacity:      %s %.1f A\n", s.Best.Feeder, s.Best.Mean)
			fmt.Printf("smallest capacity:     %s %.1f A\n", s.Worst.Feeder, s.Worst.Mean)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(summaryCmd)
}
