// internal/core/errors.go
package core

import (
	"errors"
	"fmt"
)

// Define custom errors for better error handling and classification
var (
	ErrLookup         = errors.New("host lookup failed")
	ErrDetailFetch    = errors.New("cve detail fetch failed")
	ErrInvalidCVE     = errors.New("invalid CVE identifier")
	ErrInvalidAddress = errors.New("invalid IPv4 address")
	ErrOutputFormat   = errors.New("unsupported output format")
	ErrFileWrite      = errors.New("failed to write to file")
)

// LookupError reports a failed host-info lookup for one address. The bulk
// pipeline skips the address and keeps going.
type LookupError struct {
	Address    string
	StatusCode int // 0 when no response was received
	Err        error
}

func (e *LookupError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("lookup %s: HTTP %d: %v", e.Address, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("lookup %s: %v", e.Address, e.Err)
}

func (e *LookupError) Unwrap() []error { return []error{ErrLookup, e.Err} }

// DetailFetchError reports a failed CVE detail fetch. It is shown inline and
// never retried.
type DetailFetchError struct {
	CVE string
	Err error
}

func (e *DetailFetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.CVE, e.Err)
}

func (e *DetailFetchError) Unwrap() []error { return []error{ErrDetailFetch, e.Err} }
