package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ohowland/feedercap/internal/pkg/analysis"
)

var (
	configPath string
	sqlPath    string
	mongoPath  string
	natsPath   string
	pushPath   string
	analyzer   *analysis.Analyzer
)

var rootCmd = &cobra.Command{
	Use:   "feedercap",
	Short: "Feeder available capacity and load placement",
	Long: `feedercap computes the seasonal available capacity of distribution feeders,
raises loading warnings, relates switches to the transformers and line spans
they feed, and picks the connection point of new loads.

Results are printed and, when a sink configuration is given, written to SQL,
MongoDB, NATS or a remote HTTP collector.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Skip initialization for help commands
		if cmd.Name() == "help" || cmd.Name() == "completion" {
			return nil
		}
		var err error
		analyzer, err = analysis.New(configPath)
		return err
	},
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "./config/analysis.json", "path to the analysis configuration")
	rootCmd.PersistentFlags().StringVar(&sqlPath, "sqldb", "", "path to a SQL sink configuration")
	rootCmd.PersistentFlags().StringVar(&mongoPath, "mongodb", "", "path to a MongoDB sink configuration")
	rootCmd.PersistentFlags().StringVar(&natsPath, "nats", "", "path to a NATS sink configuration")
	rootCmd.PersistentFlags().StringVar(&pushPath, "push", "", "path to an HTTP push sink configuration")
}
