package project

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/blackwell-systems/claudetrail/internal/transcript"
)

// Project is every parseable transcript under one directory, with sessions
// ordered by start time (ties broken by path) and per-file parse failures
// collected as warnings rather than load errors.
type Project struct {
	Path     string                `json:"path"`
	Name     string                `json:"name"`
	Sessions []*transcript.Session `json:"sessions"`
	Warnings []string              `json:"warnings,omitempty"`
}

// Loader controls how transcripts are parsed and how many files are parsed
// concurrently. The zero value uses the default parser and GOMAXPROCS.
type Loader struct {
	Parser      transcript.Parser
	Parallelism int
}

// Load reads every transcript directly in or below dir with default options.
func Load(ctx context.Context, dir string) (*Project, error) {
	var l Loader
	return l.Load(ctx, dir)
}

// Load reads every *.jsonl file in or below dir, including files directly at
// dir itself, parsing in parallel. Files that fail to parse are skipped and
// reported in Warnings; only a missing directory or a cancelled context
// fails the load.
func (l *Loader) Load(ctx context.Context, dir string) (*Project, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("project dir: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("project dir %s: not a directory", dir)
	}

	var files []string
	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(d.Name(), ".jsonl") {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", dir, err)
	}
	sort.Strings(files)

	par := l.Parallelism
	if par <= 0 {
		par = runtime.GOMAXPROCS(0)
	}

	// One slot per file keeps results race-free without a mutex and
	// preserves a deterministic order regardless of completion order.
	sessions := make([]*transcript.Session, len(files))
	failures := make([]error, len(files))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(par)
	for i, path := range files {
		i, path := i, path
		g.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			s, err := l.Parser.ParseFile(path)
			if err != nil {
				failures[i] = err
				return nil
			}
			sessions[i] = s
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	p := &Project{
		Path:     dir,
		Name:     filepath.Base(filepath.Clean(dir)),
		Sessions: make([]*transcript.Session, 0, len(files)),
	}
	for i := range files {
		switch {
		case sessions[i] != nil:
			p.Sessions = append(p.Sessions, sessions[i])
		case failures[i] != nil:
			p.Warnings = append(p.Warnings, failures[i].Error())
		}
	}
	sort.SliceStable(p.Sessions, func(i, j int) bool {
		si, sj := p.Sessions[i], p.Sessions[j]
		ti, tj := si.StartTime(), sj.StartTime()
		if !ti.Equal(tj) {
			return ti.Before(tj)
		}
		return si.Path < sj.Path
	})
	return p, nil
}

// TotalSessions reports how many transcripts parsed successfully.
func (p *Project) TotalSessions() int { return len(p.Sessions) }

// TotalMessages sums message counts across all sessions.
func (p *Project) TotalMessages() int {
	n := 0
	for _, s := range p.Sessions {
		n += s.Len()
	}
	return n
}

// TotalCost sums reported API cost across all sessions.
func (p *Project) TotalCost() float64 {
	var total float64
	for _, s := range p.Sessions {
		total += s.TotalCost()
	}
	return total
}

// TotalDuration sums per-session wall-clock durations. Gaps between
// sessions do not count.
func (p *Project) TotalDuration() time.Duration {
	var total time.Duration
	for _, s := range p.Sessions {
		total += s.Duration()
	}
	return total
}

// ToolUsageSummary merges per-session tool invocation counts.
func (p *Project) ToolUsageSummary() map[string]int {
	merged := make(map[string]int)
	for _, s := range p.Sessions {
		for tool, n := range s.ToolUsageSummary() {
			merged[tool] += n
		}
	}
	return merged
}

// ToolStats aggregates execution outcomes for every tool used in the project.
func (p *Project) ToolStats() []transcript.ToolStats {
	return transcript.CollectToolStats(p.Sessions...)
}

// FilterSessions returns the sessions satisfying pred, in project order.
func (p *Project) FilterSessions(pred func(*transcript.Session) bool) []*transcript.Session {
	var out []*transcript.Session
	for _, s := range p.Sessions {
		if pred(s) {
			out = append(out, s)
		}
	}
	return out
}

// SessionsByDateRange returns sessions whose start time falls within
// [start, end], inclusive on both ends.
func (p *Project) SessionsByDateRange(start, end time.Time) []*transcript.Session {
	return p.FilterSessions(func(s *transcript.Session) bool {
		st := s.StartTime()
		if st.IsZero() {
			return false
		}
		return !st.Before(start) && !st.After(end)
	})
}

// MostExpensiveSessions returns up to n sessions ordered by descending total
// cost. Ties keep project order.
func (p *Project) MostExpensiveSessions(n int) []*transcript.Session {
	if n <= 0 {
		return nil
	}
	ranked := make([]*transcript.Session, len(p.Sessions))
	copy(ranked, p.Sessions)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].TotalCost() > ranked[j].TotalCost()
	})
	if n < len(ranked) {
		ranked = ranked[:n]
	}
	return ranked
}

// Session finds a session by its id.
func (p *Project) Session(id string) (*transcript.Session, bool) {
	for _, s := range p.Sessions {
		if s.SessionID == id {
			return s, true
		}
	}
	return nil, false
}

// AllMessages flattens every session's messages in project order.
func (p *Project) AllMessages() []transcript.Message {
	var out []transcript.Message
	for _, s := range p.Sessions {
		out = append(out, s.Messages...)
	}
	return out
}

// DailyCosts groups total cost by session start date, keyed "2006-01-02".
// Sessions without a start time are not attributed to any day.
func (p *Project) DailyCosts() map[string]float64 {
	daily := make(map[string]float64)
	for _, s := range p.Sessions {
		st := s.StartTime()
		if st.IsZero() {
			continue
		}
		daily[st.Format("2006-01-02")] += s.TotalCost()
	}
	return daily
}

// Len reports the number of loaded sessions.
func (p *Project) Len() int { return len(p.Sessions) }

// At returns the session at index i. Negative indices count from the end.
func (p *Project) At(i int) (*transcript.Session, bool) {
	if i < 0 {
		i += len(p.Sessions)
	}
	if i < 0 || i >= len(p.Sessions) {
		return nil, false
	}
	return p.Sessions[i], true
}

// Slice returns sessions in [lo, hi), clamped to the valid range. Negative
// bounds count from the end.
func (p *Project) Slice(lo, hi int) []*transcript.Session {
	n := len(p.Sessions)
	if lo < 0 {
		lo += n
	}
	if hi < 0 {
		hi += n
	}
	if lo < 0 {
		lo = 0
	}
	if hi > n {
		hi = n
	}
	if lo >= hi {
		return nil
	}
	return p.Sessions[lo:hi]
}
