// internal/modules/reconnaissance/input_validator.go
package reconnaissance

import (
	"fmt"
	"io"
	"net"
	"regexp"
	"strings"

	"github.com/projectdiscovery/mapcidr"
)

// Four dot-separated groups of 1-3 digits. Octet values are not range-checked,
// so 999.1.1.1 passes.
var dottedQuad = regexp.MustCompile(`^(?:[0-9]{1,3}\.){3}[0-9]{1,3}$`)

// InputSummary is the outcome of parsing an address list.
type InputSummary struct {
	Addresses []string // validated, de-duplicated, in first-seen order
	Lines     int      // non-blank input lines
	Dropped   int      // non-blank lines that were malformed or repeated
}

// IsDottedQuad reports whether s has IPv4 dotted-quad shape.
func IsDottedQuad(s string) bool {
	return dottedQuad.MatchString(s)
}

// ValidateAddresses keeps the lines of text that look like IPv4 addresses,
// dropping duplicates and everything else silently.
func ValidateAddresses(text string) []string {
	return ParseInput(text, false).Addresses
}

// ParseInput is ValidateAddresses plus counters. With expandCIDR set, lines in
// a.b.c.d/n form are expanded into their member addresses first.
func ParseInput(text string, expandCIDR bool) InputSummary {
	summary := InputSummary{Addresses: []string{}}
	seen := make(map[string]struct{})
	add := func(addr string) bool {
		if _, dup := seen[addr]; dup {
			return false
		}
		seen[addr] = struct{}{}
		summary.Addresses = append(summary.Addresses, addr)
		return true
	}

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		summary.Lines++
		if expandCIDR && strings.Contains(line, "/") {
			if n := expandLine(line, add); n > 0 {
				continue
			}
			summary.Dropped++
			continue
		}
		if !dottedQuad.MatchString(line) || !add(line) {
			summary.Dropped++
		}
	}
	return summary
}

// MinExpandPrefix is the widest CIDR prefix ParseInput will expand; wider
// ranges are dropped.
const MinExpandPrefix = 16

func expandLine(line string, add func(string) bool) int {
	ip, ipnet, err := net.ParseCIDR(line)
	if err != nil || ip.To4() == nil {
		return 0
	}
	if ones, _ := ipnet.Mask.Size(); ones < MinExpandPrefix {
		return 0
	}
	ips, err := mapcidr.IPAddresses(line)
	if err != nil {
		return 0
	}
	added := 0
	for _, addr := range ips {
		if dottedQuad.MatchString(addr) && add(addr) {
			added++
		}
	}
	return added
}

// ReadInput reads a newline-delimited address list. Lines of any length are
// accepted; ParseInput drops the malformed ones.
func ReadInput(r io.Reader) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("read address list: %w", err)
	}
	return string(data), nil
}
