package cmd

import (
	"encoding/json"
	"fmt"
	"io/ioutil"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ohowland/feedercap/internal/pkg/loadpos"
)

var (
	loadPath string
	flatKW   float64
)

var loadposCmd = &cobra.Command{
	Use:   "loadpos <feeder.json>",
	Short: "Pick the connection point of a new load",
	Long: `Rank the feeder's switches for a new load curve, season by season, and pick the
transformer behind the best switch with the most headroom.

The load is a JSON array of kW values, one per slot, or a flat value.

Examples:
  feedercap loadpos feeders/F1.json --load loads/charging.json
  feedercap loadpos feeders/F1.json --kw 250`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		load, err := readLoad()
		if err != nil {
			return err
		}

		res, hist, err := analyzer.RunFile(args[0])
		if err != nil {
			return err
		}
		p, err := analyzer.PlaceLoad(res, hist, load)
		if err != nil {
			return err
		}

		printPlacement(p)
		return publish(res.PlacementMessages(p))
	},
}

func readLoad() ([]float64, error) {
	points := analyzer.Config().PointNum
	if loadPath == "" {
		if flatKW <= 0 {
			return nil, fmt.Errorf("one of --load or --kw is required")
		}
		load := make([]float64, points)
		for i := range load {
			load[i] = flatKW
		}
		return load, nil
	}

	jsonLoad, err := ioutil.ReadFile(loadPath)
	if err != nil {
		return nil, err
	}
	load := make([]float64, 0, points)
	if err := json.Unmarshal(jsonLoad, &load); err != nil {
		return nil, err
	}
	return load, nil
}

func printPlacement(p loadpos.Placement) {
	fmt.Printf("request %s\n", p.Request.ID)
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "SEASON\tSWITCH\tSCORE\tSECOND\tTRANSFORMER\tPHASE")
	for _, s := range p.Seasons {
		if !s.Feasible {
			fmt.Fprintf(w, "%d\t-\t-\t-\t-\t-\n", s.Season)
			continue
		}
		second := "-"
		if s.Secondary != nil {
			second = s.Secondary.Switch.ID
		}
		tf, phase := "-", "-"
		if s.LowVoltage {
			tf, phase = s.Transformer.ID, s.Phase.String()
		}
		fmt.Fprintf(w, "%d\t%s\t%.1f\t%s\t%s\t%s\n", s.Season, s.Primary.Switch.ID, s.Primary.Score(), second, tf, phase)
	}
	w.Flush()
}

func init() {
	rootCmd.AddCommand(loadposCmd)
	loadposCmd.Flags().StringVarP(&loadPath, "load", "l", "", "path to a JSON load curve in kW")
	loadposCmd.Flags().Float64Var(&flatKW, "kw", 0, "flat load in kW")
}
