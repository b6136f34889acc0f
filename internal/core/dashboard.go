package core

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/briandowns/spinner"
	"github.com/jedib0t/go-pretty/v6/table"
)

// RunStats tracks a bulk run as it progresses. Safe for concurrent use.
type RunStats struct {
	mu        sync.Mutex
	Total     int
	Done      int
	Failed    int
	OpenPorts int
	Vulns     int
	StartTime time.Time
}

func NewRunStats(total int) *RunStats {
	return &RunStats{Total: total, StartTime: time.Now()}
}

// Record counts one finished address. ok is false for a skipped lookup.
func (s *RunStats) Record(ok bool, openPorts, vulns int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Done++
	if !ok {
		s.Failed++
		return
	}
	s.OpenPorts += openPorts
	s.Vulns += vulns
}

// Snapshot returns done, failed, open ports and vulnerabilities so far.
func (s *RunStats) Snapshot() (done, failed, openPorts, vulns int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Done, s.Failed, s.OpenPorts, s.Vulns
}

// Table renders the current stats as a one-row table.
func (s *RunStats) Table() string {
	done, failed, open, vulns := s.Snapshot()
	t := table.NewWriter()
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Progress", "Skipped", "Open Ports", "Vulns Found", "Elapsed"})
	t.AppendRow(table.Row{
		formatProgress(done, s.Total),
		failed,
		open,
		vulns,
		time.Since(s.StartTime).Truncate(time.Second),
	})
	return t.Render()
}

func formatProgress(done, total int) string {
	return fmt.Sprintf("%d/%d", done, total)
}

// WithSpinner runs fn while a spinner with the given suffix spins on stderr.
func WithSpinner(suffix string, fn func() error) error {
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(os.Stderr))
	s.Suffix = " " + suffix
	s.Start()
	defer s.Stop()
	return fn()
}
