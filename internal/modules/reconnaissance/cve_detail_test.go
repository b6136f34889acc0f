package reconnaissance

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync/atomic"
	"testing"

	"ipLensGo/internal/core"
)

func score(f float64) *float64 { return &f }

func TestClassifySeverity(t *testing.T) {
	cases := []struct {
		cvss *float64
		want Severity
	}{
		{score(10.0), SeverityCritical},
		{score(9.0), SeverityCritical},
		{score(8.9), SeverityHigh},
		{score(7.0), SeverityHigh},
		{score(6.9), SeverityMedium},
		{score(4.0), SeverityMedium},
		{score(3.9), SeverityLow},
		{score(0), SeverityLow},
		{nil, SeverityLow},
	}
	for _, c := range cases {
		if got := ClassifySeverity(c.cvss); got != c.want {
			v := "nil"
			if c.cvss != nil {
				v = fmt.Sprintf("%.1f", *c.cvss)
			}
			t.Errorf("ClassifySeverity(%s) = %s, want %s", v, got, c.want)
		}
	}
}

const log4shell = `{"cve_id":"CVE-2021-44228","summary":"Apache Log4j2 JNDI features do not protect against attacker controlled LDAP.","cvss":10.0,"cvss_v3":10.0,"epss":0.97,"kev":true,"references":["https://a.example/1","https://b.example/2","https://a.example/1"],"published_time":"2021-12-10T10:15:09"}`

func relayServer(t *testing.T, hits *int32, handler func(target string) (int, string)) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(hits, 1)
		code, contents := handler(r.URL.Query().Get("url"))
		env := map[string]interface{}{
			"contents": contents,
			"status":   map[string]int{"http_code": code},
		}
		json.NewEncoder(w).Encode(env)
	}))
}

func TestCVEClient_FetchViaRelay(t *testing.T) {
	var hits int32
	var gotTarget string
	relay := relayServer(t, &hits, func(target string) (int, string) {
		gotTarget = target
		return 200, log4shell
	})
	defer relay.Close()

	cfg := testConfig("https://cvedb.invalid")
	cfg.CVEDetailURL = "https://cvedb.invalid/cve"
	cfg.CORSRelayURL = relay.URL + "/get"
	client := NewCVEClient(cfg, nil)

	detail, err := client.Fetch(context.Background(), " cve-2021-44228 ")
	if err != nil {
		t.Fatalf("Fetch returned an error: %v", err)
	}
	if gotTarget != "https://cvedb.invalid/cve/CVE-2021-44228" {
		t.Errorf("Relay asked for %q", gotTarget)
	}
	if detail.ID != "CVE-2021-44228" || detail.Severity != SeverityCritical || !detail.KEV {
		t.Errorf("Unexpected detail %+v", detail)
	}
	refs := append([]string(nil), detail.References...)
	sort.Strings(refs)
	if len(refs) != 2 || refs[0] != "https://a.example/1" || refs[1] != "https://b.example/2" {
		t.Errorf("Expected de-duplicated references, got %v", detail.References)
	}
}

func TestCVEClient_FetchErrors(t *testing.T) {
	var hits int32
	relay := relayServer(t, &hits, func(target string) (int, string) {
		switch {
		case strings.HasSuffix(target, "CVE-2000-0001"):
			return 404, `{"detail":"Not found"}`
		case strings.HasSuffix(target, "CVE-2000-0002"):
			return 200, `{"summary": `
		default:
			return 200, ""
		}
	})
	defer relay.Close()

	cfg := testConfig("https://cvedb.invalid")
	cfg.CORSRelayURL = relay.URL
	client := NewCVEClient(cfg, nil)

	for _, id := range []string{"CVE-2000-0001", "CVE-2000-0002", "CVE-2000-0003"} {
		_, err := client.Fetch(context.Background(), id)
		var derr *core.DetailFetchError
		if !errors.As(err, &derr) || !errors.Is(err, core.ErrDetailFetch) {
			t.Errorf("Expected DetailFetchError for %s, got %v", id, err)
		}
	}
	if atomic.LoadInt32(&hits) != 3 {
		t.Errorf("Expected exactly one attempt per CVE, got %d", atomic.LoadInt32(&hits))
	}

	before := atomic.LoadInt32(&hits)
	if _, err := client.Fetch(context.Background(), "not-a-cve"); !errors.Is(err, core.ErrInvalidCVE) {
		t.Errorf("Expected ErrInvalidCVE, got %v", err)
	}
	if atomic.LoadInt32(&hits) != before {
		t.Errorf("Invalid identifiers must not reach the network")
	}
}

func TestCVEClient_FetchDirect(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/cve/CVE-2023-0001" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Write([]byte(`{"cve_id":"CVE-2023-0001","summary":"x","cvss":6.9}`))
	}))
	defer srv.Close()

	client := NewCVEClient(testConfig(srv.URL), nil)
	detail, err := client.Fetch(context.Background(), "CVE-2023-0001")
	if err != nil {
		t.Fatalf("Fetch returned an error: %v", err)
	}
	if detail.Severity != SeverityMedium || detail.References == nil {
		t.Errorf("Unexpected detail %+v", detail)
	}
	if _, err := client.Fetch(context.Background(), "CVE-2023-0002"); !errors.Is(err, core.ErrDetailFetch) {
		t.Errorf("Expected DetailFetchError on 404, got %v", err)
	}
}

func TestParseCVEDetail_MissingScore(t *testing.T) {
	d, err := ParseCVEDetail("CVE-2020-0001", []byte(`{"summary":"no score"}`))
	if err != nil {
		t.Fatalf("ParseCVEDetail returned an error: %v", err)
	}
	if d.CVSS != nil || d.Severity != SeverityLow {
		t.Errorf("Missing score should be low, got %+v", d)
	}
}
