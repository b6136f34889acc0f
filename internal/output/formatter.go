// internal/output/formatter.go
package output

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"ipLensGo/internal/core"
	"ipLensGo/internal/core/logger"
	"ipLensGo/internal/modules/reconnaissance"

	"github.com/fatih/color"
	"github.com/gocarina/gocsv"
	"github.com/jedib0t/go-pretty/v6/table"
)

// Formats understood by the text renderers. HTML is rendered by the
// reporting package.
const (
	FormatConsole = "console"
	FormatJSON    = "json"
	FormatTXT     = "txt"
	FormatCSV     = "csv"
	FormatHTML    = "html"
)

// CheckReportFormat rejects formats FormatReport and the HTML generator
// cannot produce, so a bulk run can fail before any lookup.
func CheckReportFormat(outputFormat string) error {
	switch outputFormat {
	case FormatConsole, FormatJSON, FormatTXT, FormatCSV, FormatHTML:
		return nil
	}
	return core.ErrOutputFormat
}

type reportRow struct {
	Rank               int    `csv:"rank"`
	Address            string `csv:"address"`
	Score              int    `csv:"score"`
	OpenPortCount      int    `csv:"open_port_count"`
	OpenPorts          string `csv:"open_ports"`
	VulnerabilityCount int    `csv:"vulnerability_count"`
	Vulns              string `csv:"vulns"`
	Hostnames          string `csv:"hostnames"`
}

// FormatReport renders a bulk report in the requested format.
func FormatReport(view BulkView, outputFormat string) (string, error) {
	log := logger.GetLogger()
	report := view.Report
	switch outputFormat {
	case FormatJSON:
		jsonData, err := json.MarshalIndent(report, "", "    ")
		if err != nil {
			return "", fmt.Errorf("failed to marshal JSON: %w", err)
		}
		return string(jsonData), nil
	case FormatTXT:
		var b strings.Builder
		fmt.Fprintf(&b, "Total IPs: %d | Total open ports: %d | Total CVEs: %d\n",
			report.TotalInputs, report.TotalOpenPorts, report.TotalVulnerabilities)
		for _, r := range report.Records {
			fmt.Fprintf(&b, "%s\t%s\t%d CVE\n", r.Address, portText(r.OpenPorts), r.VulnerabilityCount)
		}
		return strings.TrimRight(b.String(), "\n"), nil
	case FormatCSV:
		rows := make([]reportRow, 0, len(report.Records))
		for i, r := range report.Records {
			rows = append(rows, reportRow{
				Rank:               i + 1,
				Address:            r.Address,
				Score:              r.Score(),
				OpenPortCount:      len(r.OpenPorts),
				OpenPorts:          joinInts(r.OpenPorts, ";"),
				VulnerabilityCount: r.VulnerabilityCount,
				Vulns:              strings.Join(r.Vulns, ";"),
				Hostnames:          strings.Join(r.Hostnames, ";"),
			})
		}
		csvData, err := gocsv.MarshalString(&rows)
		if err != nil {
			return "", fmt.Errorf("failed to marshal CSV: %w", err)
		}
		return csvData, nil
	case FormatConsole:
		return consoleReport(view), nil
	default:
		log.Errorf("Unsupported output format: %s", outputFormat)
		return "", core.ErrOutputFormat
	}
}

func consoleReport(view BulkView) string {
	report := view.Report
	var b strings.Builder
	header := color.New(color.FgCyan, color.Bold).Sprint("--- Analysis Summary ---")
	fmt.Fprintf(&b, "\n%s\n", header)
	fmt.Fprintf(&b, "Total IPs: %d | Total open ports: %d | Total CVEs: %d\n",
		report.TotalInputs, report.TotalOpenPorts, report.TotalVulnerabilities)
	if view.Dropped > 0 {
		fmt.Fprintf(&b, "Skipped input lines: %d\n", view.Dropped)
	}
	if report.Cancelled {
		b.WriteString(color.YellowString("Analysis was cancelled; the report is partial.") + "\n")
	}

	if len(report.Records) == 0 {
		b.WriteString("No hosts to report.\n")
	} else {
		t := table.NewWriter()
		t.SetStyle(table.StyleLight)
		t.AppendHeader(table.Row{"#", "IP", "Open Ports", "CVEs", "Score"})
		for i, r := range report.Records {
			cves := strconv.Itoa(r.VulnerabilityCount)
			if r.VulnerabilityCount > 0 {
				cves = color.RedString(cves)
			}
			t.AppendRow(table.Row{i + 1, r.Address, portText(r.OpenPorts), cves, r.Score()})
		}
		t.AppendFooter(table.Row{"", "Total", report.TotalOpenPorts, report.TotalVulnerabilities, ""})
		b.WriteString(t.Render())
		b.WriteString("\n")
	}

	if len(report.Failed) > 0 {
		fmt.Fprintf(&b, "%s\n", color.YellowString("Lookups skipped (%d):", len(report.Failed)))
		for _, f := range report.Failed {
			fmt.Fprintf(&b, "  %s: %s\n", f.Address, f.Error)
		}
	}
	return b.String()
}

// FormatHost renders a single-address view.
func FormatHost(view HostView, outputFormat string) (string, error) {
	rec := view.Record
	switch outputFormat {
	case FormatJSON:
		jsonData, err := json.MarshalIndent(view, "", "    ")
		if err != nil {
			return "", fmt.Errorf("failed to marshal JSON: %w", err)
		}
		return string(jsonData), nil
	case FormatTXT, FormatConsole:
		colored := outputFormat == FormatConsole
		var b strings.Builder
		fmt.Fprintf(&b, "IP Address: %s\n", rec.Address)
		if len(view.CPEs) > 0 {
			b.WriteString("CPEs:\n")
			for _, c := range view.CPEs {
				fmt.Fprintf(&b, "  - %s - %s\n", c.CPE, c.Description)
			}
		}
		if len(rec.Hostnames) > 0 {
			b.WriteString("Hostnames:\n")
			for _, h := range rec.Hostnames {
				fmt.Fprintf(&b, "  - %s\n", h)
			}
		}
		if len(rec.Probes) > 0 {
			b.WriteString("Ports (reachability is a best-effort heuristic):\n")
			for _, p := range rec.Probes {
				b.WriteString("  " + probeLine(p, colored) + "\n")
			}
		} else if len(rec.OpenPorts) > 0 {
			fmt.Fprintf(&b, "Ports: %s\n", joinInts(rec.OpenPorts, ", "))
		}
		if len(rec.Vulns) > 0 {
			b.WriteString("Vulnerabilities (CVE):\n")
			for _, v := range rec.Vulns {
				fmt.Fprintf(&b, "  - %s\n", v)
			}
		}
		for _, cv := range view.CVEs {
			text, _ := FormatCVE(cv, outputFormat)
			b.WriteString(text)
			b.WriteString("\n")
		}
		return strings.TrimRight(b.String(), "\n"), nil
	default:
		return "", core.ErrOutputFormat
	}
}

func probeLine(p reconnaissance.ProbeResult, colored bool) string {
	label := fmt.Sprintf("Port %d", p.Port)
	if p.Service != "" {
		label += " - " + p.Service
	}
	status := string(p.Status)
	if colored {
		if p.Status == reconnaissance.Reachable {
			status = color.GreenString(status)
		} else {
			status = color.RedString(status)
		}
	}
	return label + ": " + status
}

// FormatCVE renders one CVE detail panel. A failed fetch renders as its
// inline message.
func FormatCVE(view CVEView, outputFormat string) (string, error) {
	switch outputFormat {
	case FormatJSON:
		jsonData, err := json.MarshalIndent(view, "", "    ")
		if err != nil {
			return "", fmt.Errorf("failed to marshal JSON: %w", err)
		}
		return string(jsonData), nil
	case FormatTXT, FormatConsole:
		var b strings.Builder
		fmt.Fprintf(&b, "\n%s\n", view.ID)
		if view.Error != "" {
			msg := view.Error
			if outputFormat == FormatConsole {
				msg = color.RedString(msg)
			}
			b.WriteString(msg + "\n")
			return b.String(), nil
		}
		d := view.Detail
		score := "Not specified"
		if d.CVSS != nil {
			score = strconv.FormatFloat(*d.CVSS, 'f', 1, 64)
		}
		sev := strings.ToUpper(string(d.Severity))
		if outputFormat == FormatConsole {
			sev = severityColor(d.Severity).Sprint(sev)
		}
		fmt.Fprintf(&b, "CVSS: %s [%s]\n", score, sev)
		if d.KEV {
			b.WriteString("Listed in CISA KEV\n")
		}
		summary := d.Summary
		if summary == "" {
			summary = "No description available."
		}
		fmt.Fprintf(&b, "Summary: %s\n", summary)
		if len(d.References) == 0 {
			b.WriteString("No references found.\n")
		} else {
			b.WriteString("References:\n")
			for _, ref := range d.References {
				fmt.Fprintf(&b, "  - %s\n", ref)
			}
		}
		return b.String(), nil
	default:
		return "", core.ErrOutputFormat
	}
}

func severityColor(s reconnaissance.Severity) *color.Color {
	switch s {
	case reconnaissance.SeverityCritical:
		return color.New(color.FgHiRed, color.Bold)
	case reconnaissance.SeverityHigh:
		return color.New(color.FgRed)
	case reconnaissance.SeverityMedium:
		return color.New(color.FgYellow)
	default:
		return color.New(color.FgGreen)
	}
}

func portText(ports []int) string {
	if len(ports) == 0 {
		return "No open ports"
	}
	return fmt.Sprintf("%d open (%s)", len(ports), joinInts(ports, ", "))
}

func joinInts(values []int, sep string) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, sep)
}

// WriteOutput writes content to a specified file.
func WriteOutput(filepath string, content string) error {
	log := logger.GetLogger()
	err := os.WriteFile(filepath, []byte(content), 0644)
	if err != nil {
		log.Errorf("Failed to write output to %s: %v", filepath, err)
		return fmt.Errorf("%w: %v", core.ErrFileWrite, err)
	}
	return nil
}
