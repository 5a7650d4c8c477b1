package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ohowland/feedercap/internal/pkg/analysis"
	"github.com/ohowland/feedercap/internal/pkg/msg"
	"github.com/ohowland/feedercap/internal/pkg/warning"
)

var runCmd = &cobra.Command{
	Use:   "run <feeder.json>...",
	Short: "Analyze feeders and write their results",
	Long: `Analyze one or more feeders. A feeder that fails is reported and skipped.

Examples:
  feedercap run feeders/F1.json feeders/F2.json
  feedercap run --sqldb config/database/sqldb.json feeders/*.json`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		results, errs := analyzer.Batch(args)
		for _, err := range errs {
			fmt.Fprintln(os.Stderr, err)
		}

		msgs := make([]msg.Msg, 0)
		for _, res := range results {
			printResult(res)
			msgs = append(msgs, res.Messages()...)
		}
		if err := publish(msgs); err != nil {
			return err
		}
		if len(results) == 0 {
			return fmt.Errorf("no feeder analyzed")
		}
		return nil
	},
}

func printResult(res *analysis.Result) {
	main := "none"
	if res.MainLine != nil {
		main = res.MainLine.ID()
	}
	fmt.Printf("%s %s (main line %s)\n", res.Feeder.ID, res.Feeder.Name, main)

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "SWITCH\tNAME\tDEPTH\tS1 MIN\tS2 MIN\tS3 MIN\tS4 MIN")
	for _, c := range res.Candidates {
		fmt.Fprintf(w, "%s\t%s\t%d", c.Switch.ID, c.Switch.Name, c.Depth)
		for s := range c.Capacity {
			fmt.Fprintf(w, "\t%.1f", c.Capacity.Min(s))
		}
		fmt.Fprintln(w)
	}
	w.Flush()

	for _, wr := range res.WarningRows() {
		fmt.Printf("  %s %s %s: %.1f / %.1f (%.2f)\n", warning.Level(wr.Level), wr.Kind, wr.ID, wr.Max, wr.Rated, wr.Ratio)
	}
}

func init() {
	rootCmd.AddCommand(runCmd)
}
