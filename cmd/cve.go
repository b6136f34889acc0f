// cmd/cve.go
package cmd

import (
	"context"
	"os"
	"os/signal"

	"ipLensGo/internal/core"
	"ipLensGo/internal/core/logger"
	"ipLensGo/internal/modules/reconnaissance"
	"ipLensGo/internal/output"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	cveOutputPath   string
	cveOutputFormat string
)

var cveCmd = &cobra.Command{
	Use:   "cve [CVE-ID]",
	Short: "Shows CVSS score, severity, summary and references for one CVE.",
	Example: `  iplens cve CVE-2021-44228
  iplens cve cve-2014-0160 -f json`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		log := logger.GetLogger()
		id, err := reconnaissance.NormalizeCVEID(args[0])
		if err != nil {
			color.Red("%v", err)
			os.Exit(1)
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		cache := openCache()
		defer cache.Close()
		client := reconnaissance.NewCVEClient(config, cache)
		log.Debugf("Fetching %s", reconnaissance.RelayURLFor(client.RelayURL, client.DetailURL, id))

		var detail *reconnaissance.CVEDetail
		err = core.WithSpinner("Loading "+id+"...", func() error {
			var ferr error
			detail, ferr = client.Fetch(ctx, id)
			return ferr
		})
		if err != nil {
			log.WithField("cve", id).WithError(err).Warn("CVE detail fetch failed")
		}

		formatted, ferr := output.FormatCVE(output.NewCVEView(id, detail, err), cveOutputFormat)
		if ferr != nil {
			color.Red("Output formatting failed: %v", ferr)
			os.Exit(1)
		}
		emit(formatted, cveOutputPath)
	},
}

func init() {
	rootCmd.AddCommand(cveCmd)

	cveCmd.Flags().StringVarP(&cveOutputPath, "output", "o", "", "Output file to save results.")
	cveCmd.Flags().StringVarP(&cveOutputFormat, "format", "f", "console", "Output format: console, json, txt.")
}
