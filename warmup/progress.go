package warmup

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// Progress prints a single self-overwriting status line for a run of
// known size.
type Progress struct {
	mu       sync.Mutex
	w        io.Writer
	label    string
	total    int
	done     int
	every    int
	reported int
	start    time.Time
	running  bool
}

// NewProgress reports to w at least every `every` items. A nil writer
// discards output.
func NewProgress(w io.Writer, label string, total, every int) *Progress {
	if w == nil {
		w = io.Discard
	}
	if every <= 0 {
		every = 1
	}
	return &Progress{w: w, label: label, total: total, every: every}
}

// Start resets the counters and the clock.
func (p *Progress) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.start = time.Now()
	p.running = true
	p.done = 0
	p.reported = 0
}

// Add records n more finished items.
func (p *Progress) Add(n int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.running {
		return
	}
	p.done = min(p.done+n, p.total)
	if p.done-p.reported >= p.every {
		p.print()
		p.reported = p.done
	}
}

// Done returns how many items have been recorded.
func (p *Progress) Done() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.done
}

// Finish prints the final line. Items not recorded stay unrecorded, so a
// failed run shows where it stopped.
func (p *Progress) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.running {
		return
	}
	p.running = false
	p.print()
	fmt.Fprintln(p.w)
}

// print must be called with mu held.
func (p *Progress) print() {
	pct := 100.0
	if p.total > 0 {
		pct = float64(p.done) / float64(p.total) * 100
	}
	rate := 0.0
	if secs := time.Since(p.start).Seconds(); secs > 0 {
		rate = float64(p.done) / secs
	}
	fmt.Fprintf(p.w, "\r%s: %d/%d (%.1f%%) - %.1f texts/s", p.label, p.done, p.total, pct, rate)
}
