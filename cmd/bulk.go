// cmd/bulk.go
package cmd

import (
	"context"
	"errors"
	"io"
	"os"
	"os/signal"
	"time"

	"ipLensGo/internal/core"
	"ipLensGo/internal/core/logger"
	"ipLensGo/internal/modules/reconnaissance"
	"ipLensGo/internal/output"
	"ipLensGo/internal/reporting"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

var (
	bulkOutputPath   string
	bulkOutputFormat string
	bulkProbeMode    string
	bulkTimeout      time.Duration
	bulkExpandCIDR   bool
	bulkSkipProbe    bool
)

var bulkCmd = &cobra.Command{
	Use:   "bulk [file|-]",
	Short: "Analyzes a newline-delimited list of IPv4 addresses and ranks them.",
	Long: `The bulk command validates and de-duplicates the input list, looks up each
address in InternetDB, probes the reported ports, and ranks the addresses by
open ports plus known CVEs. Failed lookups are skipped. Ctrl-C stops the run
between addresses and reports what was gathered so far.`,
	Example: `  iplens bulk ips.txt
  cat ips.txt | iplens bulk - -f csv -o report.csv
  iplens bulk ranges.txt --expand-cidr --probe-mode http -f html -o report.html`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		source := args[0]
		log := logger.GetLogger()

		if err := output.CheckReportFormat(bulkOutputFormat); err != nil {
			color.Red("%v: %s", err, bulkOutputFormat)
			os.Exit(1)
		}
		if bulkOutputFormat == output.FormatHTML && bulkOutputPath == "" {
			color.Red("--format html requires --output")
			os.Exit(1)
		}
		if cmd.Flags().Changed("probe-mode") {
			config.Probe.Mode = bulkProbeMode
		}
		if cmd.Flags().Changed("timeout") {
			config.Probe.Timeout = bulkTimeout
		}
		if err := config.Validate(); err != nil {
			color.Red("Invalid settings: %v", err)
			os.Exit(1)
		}

		text, err := readSource(source)
		if err != nil {
			color.Red("Failed to read input: %v", err)
			os.Exit(1)
		}
		input := reconnaissance.ParseInput(text, bulkExpandCIDR)
		log.Infof("Read %d lines from %s: %d valid addresses, %d dropped", input.Lines, source, len(input.Addresses), input.Dropped)

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		cache := openCache()
		defer cache.Close()
		if n, err := cache.Purge(ctx); err != nil {
			log.Warnf("Cache purge failed: %v", err)
		} else if n > 0 {
			log.Debugf("Purged %d expired cache entries", n)
		}

		var prober reconnaissance.Prober
		if !bulkSkipProbe {
			p, err := reconnaissance.NewPortProber(reconnaissance.ProbeMode(config.Probe.Mode), config.Probe.Timeout, config.Probe.Concurrency)
			if err != nil {
				color.Red("Failed to start prober: %v", err)
				os.Exit(1)
			}
			defer p.Release()
			p.NotFoundUnreachable = true
			prober = p
		}

		analyzer := reconnaissance.NewBulkAnalyzer(reconnaissance.NewInternetDBClient(config, cache), prober)
		analyzer.KeepRaw = bulkOutputFormat == output.FormatJSON

		stats := core.NewRunStats(len(input.Addresses))
		bar := progressbar.NewOptions(len(input.Addresses),
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionSetDescription("Analyzing"),
			progressbar.OptionShowCount(),
			progressbar.OptionClearOnFinish(),
		)
		analyzer.Progress = func(done, total int, rec *reconnaissance.IPRecord) {
			if rec == nil {
				stats.Record(false, 0, 0)
			} else {
				stats.Record(true, len(rec.OpenPorts), rec.VulnerabilityCount)
			}
			_ = bar.Add(1)
		}

		report, err := analyzer.Analyze(ctx, input.Addresses)
		_ = bar.Finish()
		if err != nil {
			if !errors.Is(err, context.Canceled) {
				color.Red("Bulk analysis failed: %v", err)
				os.Exit(1)
			}
			color.Yellow("Interrupted: reporting %d of %d addresses.", len(report.Records), len(input.Addresses))
		}
		if verbose {
			os.Stderr.WriteString(stats.Table() + "\n")
		}

		view := output.BulkView{Report: report, Source: source, Lines: input.Lines, Dropped: input.Dropped}
		if bulkOutputFormat == output.FormatHTML {
			if err := reporting.NewReportGenerator().GenerateBulkHTML(view, bulkOutputPath); err != nil {
				color.Red("Failed to write report: %v", err)
				os.Exit(1)
			}
			color.Cyan("Report saved to %s", bulkOutputPath)
			return
		}
		formatted, err := output.FormatReport(view, bulkOutputFormat)
		if err != nil {
			color.Red("Output formatting failed: %v", err)
			os.Exit(1)
		}
		emit(formatted, bulkOutputPath)
	},
}

func readSource(source string) (string, error) {
	var r io.Reader = os.Stdin
	if source != "-" {
		f, err := os.Open(source)
		if err != nil {
			return "", err
		}
		defer f.Close()
		r = f
	}
	return reconnaissance.ReadInput(r)
}

func init() {
	rootCmd.AddCommand(bulkCmd)

	bulkCmd.Flags().StringVarP(&bulkOutputPath, "output", "o", "", "Output file to save results.")
	bulkCmd.Flags().StringVarP(&bulkOutputFormat, "format", "f", "console", "Output format: console, json, csv, txt, html.")
	bulkCmd.Flags().StringVar(&bulkProbeMode, "probe-mode", "tcp", "Probe mode: tcp (connect) or http (HEAD, non-404 counts as reachable).")
	bulkCmd.Flags().DurationVarP(&bulkTimeout, "timeout", "w", 2*time.Second, "Timeout per port probe (e.g. 1s, 500ms)")
	bulkCmd.Flags().BoolVar(&bulkExpandCIDR, "expand-cidr", false, "Expand a.b.c.d/n lines into host addresses.")
	bulkCmd.Flags().BoolVar(&bulkSkipProbe, "skip-probe", false, "Count every InternetDB port as open without probing.")
}
