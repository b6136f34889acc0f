// internal/modules/reconnaissance/cve_detail.go
package reconnaissance

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"ipLensGo/internal/core"
	"ipLensGo/internal/core/logger"
	"ipLensGo/internal/storage"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
)

// Severity is a CVSS band.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
)

// ClassifySeverity maps a CVSS score to its band. A missing score is low.
func ClassifySeverity(cvss *float64) Severity {
	if cvss == nil {
		return SeverityLow
	}
	switch s := *cvss; {
	case s >= 9.0:
		return SeverityCritical
	case s >= 7.0:
		return SeverityHigh
	case s >= 4.0:
		return SeverityMedium
	default:
		return SeverityLow
	}
}

// CVEDetail is the structured record for one CVE.
type CVEDetail struct {
	ID            string   `json:"id"`
	CVSS          *float64 `json:"cvss,omitempty"`
	CVSSv3        *float64 `json:"cvss_v3,omitempty"`
	EPSS          *float64 `json:"epss,omitempty"`
	KEV           bool     `json:"kev"`
	Summary       string   `json:"summary"`
	References    []string `json:"references"`
	PublishedTime string   `json:"published_time,omitempty"`
	Severity      Severity `json:"severity"`
}

var cveIDPattern = regexp.MustCompile(`(?i)^CVE-\d{4}-\d{4,}$`)

// NormalizeCVEID trims and upper-cases id, rejecting anything that is not a
// CVE identifier.
func NormalizeCVEID(id string) (string, error) {
	id = strings.TrimSpace(id)
	if !cveIDPattern.MatchString(id) {
		return "", fmt.Errorf("%w: %q", core.ErrInvalidCVE, id)
	}
	return strings.ToUpper(id), nil
}

// CVEClient fetches CVE details, through a CORS relay when RelayURL is set.
type CVEClient struct {
	DetailURL string // e.g. https://cvedb.shodan.io/cve
	RelayURL  string // e.g. https://api.allorigins.win/get; empty fetches directly
	Cache     *storage.Cache

	http *resty.Client
	log  *logrus.Logger
}

// NewCVEClient builds a client with a single-attempt transport.
func NewCVEClient(cfg *core.Config, cache *storage.Cache) *CVEClient {
	rc := resty.New().
		SetTimeout(cfg.Lookup.Timeout).
		SetRetryCount(0).
		SetHeader("Accept", "application/json")
	if cfg.UserAgent != "" {
		rc.SetHeader("User-Agent", cfg.UserAgent)
	}
	return &CVEClient{
		DetailURL: strings.TrimRight(cfg.CVEDetailURL, "/"),
		RelayURL:  cfg.CORSRelayURL,
		Cache:     cache,
		http:      rc,
		log:       logger.GetLogger(),
	}
}

// relayEnvelope is what allorigins-style relays return from /get.
type relayEnvelope struct {
	Contents *string `json:"contents"`
	Status   struct {
		HTTPCode int `json:"http_code"`
	} `json:"status"`
}

type cvedbRecord struct {
	CVEID         string   `json:"cve_id"`
	Summary       string   `json:"summary"`
	CVSS          *float64 `json:"cvss"`
	CVSSv3        *float64 `json:"cvss_v3"`
	EPSS          *float64 `json:"epss"`
	KEV           bool     `json:"kev"`
	References    []string `json:"references"`
	PublishedTime string   `json:"published_time"`
}

// Fetch returns the detail for id. Failures are *core.DetailFetchError and
// are not retried.
func (c *CVEClient) Fetch(ctx context.Context, id string) (*CVEDetail, error) {
	norm, err := NormalizeCVEID(id)
	if err != nil {
		return nil, &core.DetailFetchError{CVE: id, Err: err}
	}

	if body, ok, err := c.Cache.Get(ctx, storage.KindCVE, norm); err == nil && ok {
		if detail, err := ParseCVEDetail(norm, body); err == nil {
			return detail, nil
		}
	}

	start := time.Now()
	inner, err := c.fetchInner(ctx, norm)
	if err != nil {
		return nil, &core.DetailFetchError{CVE: norm, Err: err}
	}
	detail, err := ParseCVEDetail(norm, inner)
	if err != nil {
		return nil, &core.DetailFetchError{CVE: norm, Err: err}
	}
	c.log.WithFields(logrus.Fields{"cve": norm, "took": time.Since(start)}).Debug("cve detail fetched")
	if err := c.Cache.Put(ctx, storage.KindCVE, norm, inner); err != nil {
		c.log.WithError(err).Debug("cache write failed")
	}
	return detail, nil
}

func (c *CVEClient) fetchInner(ctx context.Context, id string) ([]byte, error) {
	target := c.DetailURL + "/" + id
	req := c.http.R().SetContext(ctx)

	if c.RelayURL == "" {
		resp, err := req.Get(target)
		if err != nil {
			return nil, err
		}
		if !resp.IsSuccess() {
			return nil, fmt.Errorf("cve service returned %s", resp.Status())
		}
		return resp.Body(), nil
	}

	resp, err := req.SetQueryParam("url", target).Get(c.RelayURL)
	if err != nil {
		return nil, err
	}
	if !resp.IsSuccess() {
		return nil, fmt.Errorf("relay returned %s", resp.Status())
	}
	var env relayEnvelope
	if err := json.Unmarshal(resp.Body(), &env); err != nil {
		return nil, fmt.Errorf("decode relay envelope: %w", err)
	}
	if env.Status.HTTPCode != 0 && (env.Status.HTTPCode < 200 || env.Status.HTTPCode > 299) {
		return nil, fmt.Errorf("cve service returned HTTP %d via relay", env.Status.HTTPCode)
	}
	if env.Contents == nil || *env.Contents == "" {
		return nil, errors.New("relay response has no contents")
	}
	return []byte(*env.Contents), nil
}

// ParseCVEDetail decodes a cvedb record and derives severity and the
// de-duplicated reference list.
func ParseCVEDetail(id string, body []byte) (*CVEDetail, error) {
	var rec cvedbRecord
	if err := json.Unmarshal(body, &rec); err != nil {
		return nil, fmt.Errorf("decode cve detail: %w", err)
	}
	if rec.CVEID != "" {
		id = strings.ToUpper(rec.CVEID)
	}
	return &CVEDetail{
		ID:            id,
		CVSS:          rec.CVSS,
		CVSSv3:        rec.CVSSv3,
		EPSS:          rec.EPSS,
		KEV:           rec.KEV,
		Summary:       rec.Summary,
		References:    uniqueStrings(rec.References),
		PublishedTime: rec.PublishedTime,
		Severity:      ClassifySeverity(rec.CVSS),
	}, nil
}

// RelayURLFor shows the URL a relayed fetch would request, for --verbose output.
func RelayURLFor(relay, detailURL, id string) string {
	target := strings.TrimRight(detailURL, "/") + "/" + id
	if relay == "" {
		return target
	}
	return relay + "?url=" + url.QueryEscape(target)
}
