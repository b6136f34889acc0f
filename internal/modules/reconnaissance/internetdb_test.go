package reconnaissance

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"ipLensGo/internal/core"
	"ipLensGo/internal/storage"
)

func testConfig(baseURL string) *core.Config {
	cfg := core.DefaultConfig()
	cfg.HostInfoURL = baseURL
	cfg.CVEDetailURL = baseURL + "/cve"
	cfg.CORSRelayURL = ""
	cfg.Lookup.Retries = 0
	cfg.Lookup.RatePerSecond = 0
	cfg.Lookup.Timeout = 2 * time.Second
	return cfg
}

func TestInternetDBClient_Lookup(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		switch r.URL.Path {
		case "/10.0.0.5":
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"ip":"10.0.0.5","ports":[80,443],"hostnames":["web.example"],"cpes":["cpe:/a:apache:http_server"],"vulns":["CVE-2021-1"],"tags":[]}`))
		case "/10.0.0.6":
			w.Write([]byte(`{"ip":"10.0.0.6"}`))
		case "/10.0.0.7":
			w.Write([]byte(`{"ip": [`))
		case "/10.0.0.8":
			w.WriteHeader(http.StatusInternalServerError)
		default:
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"detail":"No information available"}`))
		}
	}))
	defer srv.Close()

	client := NewInternetDBClient(testConfig(srv.URL), nil)
	ctx := context.Background()

	info, err := client.Lookup(ctx, "10.0.0.5")
	if err != nil {
		t.Fatalf("Lookup returned an error: %v", err)
	}
	if len(info.Ports) != 2 || info.Ports[0] != 80 || len(info.Vulns) != 1 || info.Hostnames[0] != "web.example" {
		t.Errorf("Unexpected host info: %+v", info)
	}
	if len(info.Raw) == 0 {
		t.Errorf("Expected raw payload to be kept")
	}

	sparse, err := client.Lookup(ctx, "10.0.0.6")
	if err != nil {
		t.Fatalf("Lookup of sparse record returned an error: %v", err)
	}
	if len(sparse.Ports) != 0 || len(sparse.Vulns) != 0 {
		t.Errorf("Expected empty fields, got %+v", sparse)
	}

	for _, ip := range []string{"10.0.0.7", "10.0.0.8", "10.0.0.9"} {
		_, err := client.Lookup(ctx, ip)
		if err == nil {
			t.Errorf("Expected lookup of %s to fail", ip)
			continue
		}
		var lerr *core.LookupError
		if !errors.As(err, &lerr) || !errors.Is(err, core.ErrLookup) {
			t.Errorf("Expected *core.LookupError for %s, got %T %v", ip, err, err)
			continue
		}
		if lerr.Address != ip {
			t.Errorf("LookupError carries address %q, want %q", lerr.Address, ip)
		}
	}

	_, err = client.Lookup(ctx, "10.0.0.9")
	var lerr *core.LookupError
	if errors.As(err, &lerr) && lerr.StatusCode != http.StatusNotFound {
		t.Errorf("Expected status 404 on LookupError, got %d", lerr.StatusCode)
	}

	before := atomic.LoadInt32(&hits)
	if _, err := client.Lookup(ctx, "not-an-ip"); !errors.Is(err, core.ErrInvalidAddress) {
		t.Errorf("Expected ErrInvalidAddress, got %v", err)
	}
	if atomic.LoadInt32(&hits) != before {
		t.Errorf("Malformed address must not reach the network")
	}
}

func TestInternetDBClient_UsesCache(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.Write([]byte(`{"ip":"1.2.3.4","ports":[22]}`))
	}))
	defer srv.Close()

	cache, err := storage.Open(filepath.Join(t.TempDir(), "c.db"), time.Hour)
	if err != nil {
		t.Fatalf("storage.Open returned an error: %v", err)
	}
	defer cache.Close()

	client := NewInternetDBClient(testConfig(srv.URL), cache)
	for i := 0; i < 3; i++ {
		info, err := client.Lookup(context.Background(), "1.2.3.4")
		if err != nil {
			t.Fatalf("Lookup returned an error: %v", err)
		}
		if len(info.Ports) != 1 || info.Ports[0] != 22 {
			t.Errorf("Unexpected ports %v", info.Ports)
		}
	}
	if atomic.LoadInt32(&hits) != 1 {
		t.Errorf("Expected 1 network request with cache enabled, got %d", hits)
	}
}

func TestInternetDBClient_ContextCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	client := NewInternetDBClient(testConfig(srv.URL), nil)
	if _, err := client.Lookup(ctx, "1.2.3.4"); !errors.Is(err, core.ErrLookup) {
		t.Errorf("Expected a LookupError on cancelled context, got %v", err)
	}
}
