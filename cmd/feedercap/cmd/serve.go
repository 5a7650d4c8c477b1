package cmd

import (
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/ohowland/feedercap/internal/pkg/webservice"
)

var webPath string

var serveCmd = &cobra.Command{
	Use:   "serve <feeder.json>...",
	Short: "Serve feeder results and placement requests over HTTP",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSinks(nil)
		if err != nil {
			return err
		}
		defer s.close()

		svc, err := webservice.New(webPath, analyzer, s.list()...)
		if err != nil {
			return err
		}

		for _, path := range args {
			res, hist, err := analyzer.RunFile(path)
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				continue
			}
			svc.Add(res, hist)
			log.Printf("[Main] serving feeder %v", res.Feeder.ID)
		}
		return svc.ListenAndServe()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVarP(&webPath, "web", "w", "./config/webservice.json", "path to the webservice configuration")
}
