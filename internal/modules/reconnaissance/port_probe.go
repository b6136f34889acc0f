// internal/modules/reconnaissance/port_probe.go
package reconnaissance

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sort"
	"strconv"
	"sync"
	"time"

	"ipLensGo/internal/core/logger"

	"github.com/panjf2000/ants/v2"
	"github.com/sirupsen/logrus"
)

// Reachability is a heuristic verdict, not an authoritative port state. A
// filtered port, a middlebox answering on the host's behalf, or (in http mode)
// a non-HTTP service can all land on either side.
type Reachability string

const (
	Reachable   Reachability = "reachable"
	Unreachable Reachability = "unreachable"
)

// ProbeMode selects how reachability is tested.
type ProbeMode string

const (
	// ProbeTCP completes a TCP handshake.
	ProbeTCP ProbeMode = "tcp"
	// ProbeHTTP sends HEAD http://ip:port/ and treats any status but 404 as
	// reachable.
	ProbeHTTP ProbeMode = "http"
)

// ProbeResult is the verdict for one port.
type ProbeResult struct {
	Port    int           `json:"port"`
	Service string        `json:"service,omitempty"`
	Status  Reachability  `json:"status"`
	Elapsed time.Duration `json:"elapsed"`
}

// Prober is the probing contract the bulk analyzer depends on.
type Prober interface {
	ProbeAll(ctx context.Context, ip string, ports []int) []ProbeResult
}

// PortProber checks candidate ports on one address at a time.
type PortProber struct {
	Mode    ProbeMode
	Timeout time.Duration
	// NotFoundUnreachable makes an HTTP 404 count as unreachable. Bulk runs
	// set it; a single lookup counts any HTTP response as reachable.
	NotFoundUnreachable bool

	pool   *ants.Pool
	dialer *net.Dialer
	client *http.Client
	log    *logrus.Logger
}

// NewPortProber creates a prober whose ProbeAll runs at most concurrency
// probes at once. Call Release when done.
func NewPortProber(mode ProbeMode, timeout time.Duration, concurrency int) (*PortProber, error) {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	if concurrency < 1 {
		concurrency = 1
	}
	pool, err := ants.NewPool(concurrency)
	if err != nil {
		return nil, fmt.Errorf("create probe pool: %w", err)
	}
	return &PortProber{
		Mode:    mode,
		Timeout: timeout,
		pool:    pool,
		dialer:  &net.Dialer{},
		client: &http.Client{
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
			Transport: &http.Transport{DisableKeepAlives: true},
		},
		log: logger.GetLogger(),
	}, nil
}

// Release stops the worker pool.
func (p *PortProber) Release() {
	p.pool.Release()
}

// Probe checks a single port. It never returns an error: anything short of a
// positive answer within Timeout is Unreachable.
func (p *PortProber) Probe(ctx context.Context, ip string, port int) ProbeResult {
	ctx, cancel := context.WithTimeout(ctx, p.Timeout)
	defer cancel()

	start := time.Now()
	var status Reachability
	switch p.Mode {
	case ProbeHTTP:
		status = p.probeHTTP(ctx, ip, port)
	default:
		status = p.probeTCP(ctx, ip, port)
	}
	res := ProbeResult{Port: port, Service: PortService(port), Status: status, Elapsed: time.Since(start)}
	p.log.WithFields(logrus.Fields{"ip": ip, "port": port, "status": status}).Debug("probe finished")
	return res
}

func (p *PortProber) probeTCP(ctx context.Context, ip string, port int) Reachability {
	conn, err := p.dialer.DialContext(ctx, "tcp", net.JoinHostPort(ip, strconv.Itoa(port)))
	if err != nil {
		return Unreachable
	}
	conn.Close()
	return Reachable
}

func (p *PortProber) probeHTTP(ctx context.Context, ip string, port int) Reachability {
	target := "http://" + net.JoinHostPort(ip, strconv.Itoa(port)) + "/"
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, target, nil)
	if err != nil {
		return Unreachable
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return Unreachable
	}
	resp.Body.Close()
	if p.NotFoundUnreachable && resp.StatusCode == http.StatusNotFound {
		return Unreachable
	}
	return Reachable
}

// ProbeAll probes every port of one address concurrently and waits for all of
// them. Each probe carries its own timeout, so one expiring leaves the others
// running. Results are ordered reachable first, then by port.
func (p *PortProber) ProbeAll(ctx context.Context, ip string, ports []int) []ProbeResult {
	results := make([]ProbeResult, len(ports))
	var wg sync.WaitGroup
	for i, port := range ports {
		i, port := i, port
		wg.Add(1)
		task := func() {
			defer wg.Done()
			results[i] = p.Probe(ctx, ip, port)
		}
		if err := p.pool.Submit(task); err != nil {
			p.log.WithError(err).Debug("probe pool unavailable, probing inline")
			task()
		}
	}
	wg.Wait()
	SortProbes(results)
	return results
}

// SortProbes orders reachable ports before unreachable ones, then by number.
func SortProbes(results []ProbeResult) {
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Status != results[j].Status {
			return results[i].Status == Reachable
		}
		return results[i].Port < results[j].Port
	})
}

// ReachablePorts returns the distinct reachable ports in ascending order.
func ReachablePorts(results []ProbeResult) []int {
	seen := make(map[int]struct{})
	open := []int{}
	for _, r := range results {
		if r.Status != Reachable {
			continue
		}
		if _, dup := seen[r.Port]; dup {
			continue
		}
		seen[r.Port] = struct{}{}
		open = append(open, r.Port)
	}
	sort.Ints(open)
	return open
}
