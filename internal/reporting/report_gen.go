// internal/reporting/report_gen.go
package reporting

import (
	"bytes"
	"fmt"
	"html/template"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"ipLensGo/internal/core"
	"ipLensGo/internal/core/logger"
	"ipLensGo/internal/modules/reconnaissance"
	"ipLensGo/internal/output"

	"github.com/sirupsen/logrus"
)

// ReportGenerator renders analysis views into standalone HTML files.
type ReportGenerator struct {
	log *logrus.Logger
	now func() time.Time
}

// NewReportGenerator creates a new instance of ReportGenerator
func NewReportGenerator() *ReportGenerator {
	return &ReportGenerator{
		log: logger.GetLogger(),
		now: time.Now,
	}
}

var funcs = template.FuncMap{
	"ports": func(ports []int) string {
		if len(ports) == 0 {
			return "No open ports"
		}
		parts := make([]string, len(ports))
		for i, p := range ports {
			parts[i] = strconv.Itoa(p)
		}
		return strings.Join(parts, ", ")
	},
	"risk":  riskClass,
	"inc":   func(i int) int { return i + 1 },
	"upper": strings.ToUpper,
	"score": func(f *float64) string {
		if f == nil {
			return "Not specified"
		}
		return strconv.FormatFloat(*f, 'f', 1, 64)
	},
}

// riskClass buckets a record score for row highlighting.
func riskClass(score int) string {
	switch {
	case score >= 10:
		return "risk-high"
	case score >= 3:
		return "risk-medium"
	default:
		return "risk-low"
	}
}

const pageHead = `<!DOCTYPE html>
<html>
<head>
    <meta charset="utf-8">
    <title>{{.Title}}</title>
    <style>
        body { font-family: 'Segoe UI', Tahoma, Geneva, Verdana, sans-serif; margin: 0; padding: 20px; background-color: #f5f5f5; }
        .container { max-width: 1200px; margin: 0 auto; background: white; padding: 30px; border-radius: 10px; box-shadow: 0 2px 10px rgba(0,0,0,0.1); }
        h1 { color: #2c3e50; border-bottom: 3px solid #3498db; padding-bottom: 10px; }
        .stats-grid { display: grid; grid-template-columns: repeat(auto-fit, minmax(200px, 1fr)); gap: 15px; margin: 20px 0; }
        .stat-card { background: #f8f9fa; padding: 15px; border-radius: 8px; text-align: center; border-left: 4px solid #3498db; }
        .stat-number { font-size: 2em; font-weight: bold; color: #2c3e50; }
        table { border-collapse: collapse; width: 100%; }
        th, td { border-bottom: 1px solid #dee2e6; padding: 8px; text-align: left; }
        .risk-high { background: #fdecea; }
        .risk-medium { background: #fff4e5; }
        .reachable { color: #27ae60; }
        .unreachable { color: #e74c3c; }
        .severity-critical, .severity-high { color: #e74c3c; font-weight: bold; }
        .severity-medium { color: #f39c12; }
        .severity-low { color: #27ae60; }
        .note { color: #7f8c8d; font-size: 0.9em; }
    </style>
</head>
<body>
<div class="container">
`

const pageFoot = `    <p class="note">Generated on {{.Generated}}</p>
</div>
</body>
</html>
`

var bulkTemplate = template.Must(template.New("bulk").Funcs(funcs).Parse(pageHead + `
    <h1>Bulk IP Analysis</h1>
    {{with .View}}{{if .Source}}<p>Source: {{.Source}}</p>{{end}}{{end}}
    {{with .View.Report}}
    <div class="stats-grid">
        <div class="stat-card"><div class="stat-number">{{.TotalInputs}}</div>Total IPs</div>
        <div class="stat-card"><div class="stat-number">{{.TotalOpenPorts}}</div>Total open ports</div>
        <div class="stat-card"><div class="stat-number">{{.TotalVulnerabilities}}</div>Total CVEs</div>
    </div>
    {{if .Cancelled}}<p class="note">Analysis was cancelled; the report is partial.</p>{{end}}
    {{if .Records}}
    <table>
        <tr><th>#</th><th>IP</th><th>Open Ports</th><th>CVEs</th><th>Score</th></tr>
        {{range $i, $r := .Records}}
        <tr class="{{risk $r.Score}}"><td>{{inc $i}}</td><td>{{$r.Address}}</td><td>{{ports $r.OpenPorts}}</td><td>{{$r.VulnerabilityCount}}</td><td>{{$r.Score}}</td></tr>
        {{end}}
    </table>
    {{else}}
    <p>No hosts to report.</p>
    {{end}}
    {{if .Failed}}
    <h2>Skipped lookups</h2>
    <ul>{{range .Failed}}<li>{{.Address}}: {{.Error}}</li>{{end}}</ul>
    {{end}}
    {{end}}
` + pageFoot))

var hostTemplate = template.Must(template.New("host").Funcs(funcs).Parse(pageHead + `
    {{with .View}}
    <h1>IP Address: {{.Record.Address}}</h1>
    {{if .CPEs}}
    <h2>CPEs</h2>
    <ul>{{range .CPEs}}<li>{{.CPE}} - {{.Description}}</li>{{end}}</ul>
    {{end}}
    {{if .Record.Hostnames}}
    <h2>Hostnames</h2>
    <ul>{{range .Record.Hostnames}}<li>{{.}}</li>{{end}}</ul>
    {{end}}
    <h2>Ports</h2>
    {{if .Record.Probes}}
    <p class="note">Reachability is a best-effort heuristic.</p>
    <ul>{{range .Record.Probes}}<li>Port {{.Port}}{{if .Service}} - {{.Service}}{{end}}: <span class="{{.Status}}">{{.Status}}</span></li>{{end}}</ul>
    {{else}}
    <p>{{ports .Record.OpenPorts}}</p>
    {{end}}
    {{if .Record.Vulns}}
    <h2>Vulnerabilities (CVE)</h2>
    <ul>{{range .Record.Vulns}}<li>{{.}}</li>{{end}}</ul>
    {{end}}
    {{range .CVEs}}
    <h3>{{.ID}}</h3>
    {{if .Error}}<p class="unreachable">{{.Error}}</p>{{else}}{{with .Detail}}
    <p>CVSS: {{score .CVSS}} <span class="severity-{{.Severity}}">[{{upper (print .Severity)}}]</span></p>
    <p>{{if .Summary}}{{.Summary}}{{else}}No description available.{{end}}</p>
    {{if .References}}<ul>{{range .References}}<li><a href="{{.}}">{{.}}</a></li>{{end}}</ul>{{else}}<p>No references found.</p>{{end}}
    {{end}}{{end}}
    {{end}}
    {{end}}
` + pageFoot))

type page struct {
	Title     string
	Generated string
	View      any
}

func (r *ReportGenerator) newPage(title string, view any) page {
	return page{
		Title:     title,
		Generated: r.now().Format("2006-01-02 15:04:05 MST"),
		View:      view,
	}
}

// RenderBulk writes the HTML rendering of a bulk report to w.
func (r *ReportGenerator) RenderBulk(w io.Writer, view output.BulkView) error {
	if view.Report == nil {
		view.Report = reconnaissance.BuildReport(0, nil)
	}
	return bulkTemplate.Execute(w, r.newPage("iplens bulk report", view))
}

// RenderHost writes the HTML rendering of a single-address view to w.
func (r *ReportGenerator) RenderHost(w io.Writer, view output.HostView) error {
	if view.Record == nil {
		return fmt.Errorf("host view has no record")
	}
	return hostTemplate.Execute(w, r.newPage("iplens "+view.Record.Address, view))
}

// GenerateBulkHTML renders the bulk report and saves it to outputPath.
func (r *ReportGenerator) GenerateBulkHTML(view output.BulkView, outputPath string) error {
	r.log.Infof("Generating HTML report and saving to %s...", outputPath)
	var buf bytes.Buffer
	if err := r.RenderBulk(&buf, view); err != nil {
		r.log.Errorf("Failed to render HTML report: %v", err)
		return fmt.Errorf("failed to render HTML report: %w", err)
	}
	return r.write(outputPath, buf.Bytes())
}

// GenerateHostHTML renders a single-address view and saves it to outputPath.
func (r *ReportGenerator) GenerateHostHTML(view output.HostView, outputPath string) error {
	r.log.Infof("Generating HTML report and saving to %s...", outputPath)
	var buf bytes.Buffer
	if err := r.RenderHost(&buf, view); err != nil {
		r.log.Errorf("Failed to render HTML report: %v", err)
		return fmt.Errorf("failed to render HTML report: %w", err)
	}
	return r.write(outputPath, buf.Bytes())
}

func (r *ReportGenerator) write(outputPath string, content []byte) error {
	if err := os.WriteFile(outputPath, content, 0644); err != nil {
		r.log.Errorf("Failed to write HTML report to %s: %v", outputPath, err)
		return fmt.Errorf("%w: %v", core.ErrFileWrite, err)
	}
	r.log.Info("HTML report generated successfully.")
	return nil
}
