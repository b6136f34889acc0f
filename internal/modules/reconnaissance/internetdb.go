// internal/modules/reconnaissance/internetdb.go
package reconnaissance

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"ipLensGo/internal/core"
	"ipLensGo/internal/core/logger"
	"ipLensGo/internal/storage"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// HostInfo is one host-info record. Every field may be empty.
type HostInfo struct {
	IP        string          `json:"ip"`
	Ports     []int           `json:"ports"`
	Hostnames []string        `json:"hostnames"`
	CPEs      []string        `json:"cpes"`
	Vulns     []string        `json:"vulns"`
	Tags      []string        `json:"tags"`
	Raw       json.RawMessage `json:"-"`
}

// HostLookup fetches host-info for one address.
type HostLookup interface {
	Lookup(ctx context.Context, ip string) (*HostInfo, error)
}

// InternetDBClient queries an InternetDB-compatible endpoint: GET <base>/<ip>.
type InternetDBClient struct {
	BaseURL   string
	UserAgent string
	Cache     *storage.Cache

	http    *retryablehttp.Client
	limiter *rate.Limiter
	log     *logrus.Logger
}

// NewInternetDBClient builds a client from the lookup section of the config.
// ratePerSecond <= 0 disables rate limiting.
func NewInternetDBClient(cfg *core.Config, cache *storage.Cache) *InternetDBClient {
	log := logger.GetLogger()

	rc := retryablehttp.NewClient()
	rc.RetryMax = cfg.Lookup.Retries
	rc.RetryWaitMin = 500 * time.Millisecond
	rc.RetryWaitMax = 5 * time.Second
	rc.HTTPClient.Timeout = cfg.Lookup.Timeout
	rc.Logger = logger.RetryLogger{Log: log}

	limit := rate.Inf
	if cfg.Lookup.RatePerSecond > 0 {
		limit = rate.Limit(cfg.Lookup.RatePerSecond)
	}
	return &InternetDBClient{
		BaseURL:   strings.TrimRight(cfg.HostInfoURL, "/"),
		UserAgent: cfg.UserAgent,
		Cache:     cache,
		http:      rc,
		limiter:   rate.NewLimiter(limit, 1),
		log:       log,
	}
}

// Lookup returns the host-info record for ip. Any failure is a *core.LookupError.
func (c *InternetDBClient) Lookup(ctx context.Context, ip string) (*HostInfo, error) {
	if !IsDottedQuad(ip) {
		return nil, &core.LookupError{Address: ip, Err: core.ErrInvalidAddress}
	}

	if body, ok, err := c.Cache.Get(ctx, storage.KindHost, ip); err != nil {
		c.log.WithError(err).Debug("cache read failed")
	} else if ok {
		if info, err := ParseHostInfo(body); err == nil {
			c.log.WithField("ip", ip).Debug("host-info served from cache")
			return info, nil
		}
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, &core.LookupError{Address: ip, Err: err}
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/"+ip, nil)
	if err != nil {
		return nil, &core.LookupError{Address: ip, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if c.UserAgent != "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &core.LookupError{Address: ip, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &core.LookupError{Address: ip, StatusCode: resp.StatusCode, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &core.LookupError{Address: ip, StatusCode: resp.StatusCode, Err: errors.New(statusDetail(body, resp.Status))}
	}

	info, err := ParseHostInfo(body)
	if err != nil {
		return nil, &core.LookupError{Address: ip, StatusCode: resp.StatusCode, Err: err}
	}
	if err := c.Cache.Put(ctx, storage.KindHost, ip, body); err != nil {
		c.log.WithError(err).Debug("cache write failed")
	}
	return info, nil
}

// ParseHostInfo decodes a host-info body and keeps the raw bytes.
func ParseHostInfo(body []byte) (*HostInfo, error) {
	var info HostInfo
	if err := json.Unmarshal(body, &info); err != nil {
		return nil, fmt.Errorf("decode host-info: %w", err)
	}
	info.Raw = append(json.RawMessage(nil), body...)
	return &info, nil
}

// InternetDB answers unknown hosts with 404 {"detail": "..."}.
func statusDetail(body []byte, status string) string {
	var payload struct {
		Detail string `json:"detail"`
	}
	if json.Unmarshal(body, &payload) == nil && payload.Detail != "" {
		return payload.Detail
	}
	return status
}
