// internal/modules/reconnaissance/bulk_analyzer.go
package reconnaissance

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"time"

	"ipLensGo/internal/core"
	"ipLensGo/internal/core/logger"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// IPRecord summarises one successfully looked-up address. It is built once,
// after every probe for the address has settled.
type IPRecord struct {
	Address            string          `json:"address"`
	OpenPorts          []int           `json:"open_ports"`
	VulnerabilityCount int             `json:"vulnerability_count"`
	Vulns              []string        `json:"vulns"`
	Hostnames          []string        `json:"hostnames"`
	CPEs               []string        `json:"cpes"`
	Probes             []ProbeResult   `json:"probes"`
	RawPayload         json.RawMessage `json:"raw_payload,omitempty"`
}

// Score is the ranking key: open ports plus known vulnerabilities.
func (r IPRecord) Score() int {
	return len(r.OpenPorts) + r.VulnerabilityCount
}

// FailedLookup is an address that was skipped because its lookup failed.
type FailedLookup struct {
	Address string `json:"address"`
	Error   string `json:"error"`
}

// AnalysisReport is the ranked outcome of a bulk run.
type AnalysisReport struct {
	ID                   string         `json:"id"`
	GeneratedAt          time.Time      `json:"generated_at"`
	TotalInputs          int            `json:"total_inputs"`
	TotalOpenPorts       int            `json:"total_open_ports"`
	TotalVulnerabilities int            `json:"total_vulnerabilities"`
	Records              []IPRecord     `json:"records"`
	Failed               []FailedLookup `json:"failed,omitempty"`
	Cancelled            bool           `json:"cancelled,omitempty"`
}

// BuildReport ranks records by descending score, keeping input order among
// equal scores, and totals the same open-port sets used for ranking.
func BuildReport(totalInputs int, records []IPRecord) *AnalysisReport {
	ranked := make([]IPRecord, len(records))
	copy(ranked, records)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score() > ranked[j].Score()
	})

	report := &AnalysisReport{
		ID:          uuid.NewString(),
		GeneratedAt: time.Now().UTC(),
		TotalInputs: totalInputs,
		Records:     ranked,
	}
	for _, r := range ranked {
		report.TotalOpenPorts += len(r.OpenPorts)
		report.TotalVulnerabilities += r.VulnerabilityCount
	}
	return report
}

// ProgressFunc is called after each address, whether or not its lookup
// succeeded (rec is nil on failure).
type ProgressFunc func(done, total int, rec *IPRecord)

// BulkAnalyzer runs the lookup -> probe -> rank pipeline over an address list.
type BulkAnalyzer struct {
	Lookup   HostLookup
	Prober   Prober // nil skips probing; every returned port counts as open
	Progress ProgressFunc
	KeepRaw  bool
	log      *logrus.Logger
}

// NewBulkAnalyzer wires a lookup and a prober together.
func NewBulkAnalyzer(lookup HostLookup, prober Prober) *BulkAnalyzer {
	return &BulkAnalyzer{
		Lookup:  lookup,
		Prober:  prober,
		KeepRaw: true,
		log:     logger.GetLogger(),
	}
}

// Analyze processes addresses one at a time. A failed lookup is logged and
// skipped. ctx is checked between addresses; when it is done, the records
// gathered so far are ranked into a report marked Cancelled and returned
// together with ctx.Err().
func (a *BulkAnalyzer) Analyze(ctx context.Context, addresses []string) (*AnalysisReport, error) {
	if a.log == nil {
		a.log = logger.GetLogger()
	}
	total := len(addresses)
	if total == 0 {
		return BuildReport(0, nil), nil
	}

	a.log.Infof("Starting bulk analysis of %d addresses", total)
	records := make([]IPRecord, 0, total)
	var failed []FailedLookup

	for i, ip := range addresses {
		if err := ctx.Err(); err != nil {
			a.log.Warnf("Bulk analysis cancelled after %d/%d addresses", i, total)
			return cancelledReport(total, records, failed), err
		}

		rec, err := a.AnalyzeHost(ctx, ip)
		if ctx.Err() != nil {
			// cut short mid-address: its probes are not trustworthy, drop it
			a.log.Warnf("Bulk analysis cancelled during %s", ip)
			return cancelledReport(total, records, failed), ctx.Err()
		}
		if err != nil {
			a.log.WithField("ip", ip).WithError(err).Warn("lookup failed, skipping address")
			failed = append(failed, FailedLookup{Address: ip, Error: err.Error()})
			if a.Progress != nil {
				a.Progress(i+1, total, nil)
			}
			continue
		}
		records = append(records, *rec)
		if a.Progress != nil {
			a.Progress(i+1, total, rec)
		}
	}

	report := BuildReport(total, records)
	report.Failed = failed
	a.log.Infof("Bulk analysis complete: %d records, %d failed, %d open ports, %d vulnerabilities",
		len(report.Records), len(failed), report.TotalOpenPorts, report.TotalVulnerabilities)
	return report, nil
}

func cancelledReport(total int, records []IPRecord, failed []FailedLookup) *AnalysisReport {
	report := BuildReport(total, records)
	report.Failed = failed
	report.Cancelled = true
	return report
}

// AnalyzeHost looks up one address and probes its reported ports. It is the
// unit of work of Analyze and also backs the single-address lookup.
func (a *BulkAnalyzer) AnalyzeHost(ctx context.Context, ip string) (*IPRecord, error) {
	info, err := a.Lookup.Lookup(ctx, ip)
	if err != nil {
		return nil, err
	}
	if info == nil {
		return nil, &core.LookupError{Address: ip, Err: errors.New("empty host-info response")}
	}

	candidates := validPorts(info.Ports)
	var probes []ProbeResult
	var open []int
	if a.Prober != nil && len(candidates) > 0 {
		probes = a.Prober.ProbeAll(ctx, ip, candidates)
		open = ReachablePorts(probes)
	} else {
		open = candidates
	}

	rec := &IPRecord{
		Address:            ip,
		OpenPorts:          open,
		VulnerabilityCount: len(uniqueStrings(info.Vulns)),
		Vulns:              uniqueStrings(info.Vulns),
		Hostnames:          info.Hostnames,
		CPEs:               info.CPEs,
		Probes:             probes,
	}
	if a.KeepRaw {
		rec.RawPayload = info.Raw
	}
	return rec, nil
}

// validPorts keeps distinct ports in [1, 65535], ascending.
func validPorts(ports []int) []int {
	seen := make(map[int]struct{}, len(ports))
	out := make([]int, 0, len(ports))
	for _, p := range ports {
		if p < 1 || p > 65535 {
			continue
		}
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	sort.Ints(out)
	return out
}

func uniqueStrings(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
