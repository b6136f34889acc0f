// cmd/lookup.go
package cmd

import (
	"context"
	"os"
	"os/signal"

	"ipLensGo/internal/core/logger"
	"ipLensGo/internal/modules/reconnaissance"
	"ipLensGo/internal/output"
	"ipLensGo/internal/reporting"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	lookupOutputPath   string
	lookupOutputFormat string
	lookupWithCVE      bool
	lookupSkipProbe    bool
)

var lookupCmd = &cobra.Command{
	Use:   "lookup [ip]",
	Short: "Looks up one IPv4 address and probes its reported ports.",
	Long: `The lookup command fetches InternetDB data for a single address, probes every
reported port for reachability and prints ports, hostnames, CPEs and CVEs.
Reachability is a best-effort heuristic, not an authoritative port state.`,
	Example: `  iplens lookup 1.1.1.1
  iplens lookup 1.1.1.1 --with-cve
  iplens lookup 1.1.1.1 -f html -o host.html`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ip := args[0]
		log := logger.GetLogger()
		if !reconnaissance.IsDottedQuad(ip) {
			color.Red("Invalid IPv4 address: %s", ip)
			os.Exit(1)
		}
		if lookupOutputFormat == output.FormatHTML && lookupOutputPath == "" {
			color.Red("--format html requires --output")
			os.Exit(1)
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		cache := openCache()
		defer cache.Close()

		var prober reconnaissance.Prober
		if !lookupSkipProbe {
			p, err := reconnaissance.NewPortProber(reconnaissance.ProbeMode(config.Probe.Mode), config.Probe.SingleTimeout, config.Probe.Concurrency)
			if err != nil {
				color.Red("Failed to start prober: %v", err)
				os.Exit(1)
			}
			defer p.Release()
			prober = p
		}

		analyzer := reconnaissance.NewBulkAnalyzer(reconnaissance.NewInternetDBClient(config, cache), prober)
		log.Infof("Looking up %s", ip)
		rec, err := analyzer.AnalyzeHost(ctx, ip)
		if err != nil {
			color.Red("Lookup failed: %v", err)
			os.Exit(1)
		}

		view := output.NewHostView(rec)
		if lookupWithCVE {
			cves := reconnaissance.NewCVEClient(config, cache)
			for _, id := range rec.Vulns {
				detail, err := cves.Fetch(ctx, id)
				if err != nil {
					log.WithField("cve", id).WithError(err).Warn("CVE detail fetch failed")
				}
				view.CVEs = append(view.CVEs, output.NewCVEView(id, detail, err))
			}
		}

		if lookupOutputFormat == output.FormatHTML {
			if err := reporting.NewReportGenerator().GenerateHostHTML(view, lookupOutputPath); err != nil {
				color.Red("Failed to write report: %v", err)
				os.Exit(1)
			}
			color.Cyan("Report saved to %s", lookupOutputPath)
			return
		}

		formatted, err := output.FormatHost(view, lookupOutputFormat)
		if err != nil {
			color.Red("Output formatting failed: %v", err)
			os.Exit(1)
		}
		emit(formatted, lookupOutputPath)
	},
}

// emit prints formatted output or saves it when a path is given.
func emit(formatted, path string) {
	if path == "" {
		os.Stdout.WriteString(formatted + "\n")
		return
	}
	if err := output.WriteOutput(path, formatted); err != nil {
		color.Red("Failed to write output: %v", err)
		os.Exit(1)
	}
	color.Cyan("Results saved to %s", path)
}

func init() {
	rootCmd.AddCommand(lookupCmd)

	lookupCmd.Flags().StringVarP(&lookupOutputPath, "output", "o", "", "Output file to save results.")
	lookupCmd.Flags().StringVarP(&lookupOutputFormat, "format", "f", "console", "Output format: console, json, txt, html.")
	lookupCmd.Flags().BoolVar(&lookupWithCVE, "with-cve", false, "Fetch details for every listed CVE.")
	lookupCmd.Flags().BoolVar(&lookupSkipProbe, "skip-probe", false, "Report InternetDB ports without probing them.")
}
