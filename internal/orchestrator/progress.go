package orchestrator

import "sync"

// Progress is one progress report of a run.
type Progress struct {
	Percent int    `json:"percent"`
	Status  string `json:"status"`
}

// ProgressFunc receives progress reports. It is called on the run's
// goroutine and must not block for long.
type ProgressFunc func(Progress)

// progressReporter clamps reports so the percentage never decreases.
type progressReporter struct {
	mu   sync.Mutex
	fn   ProgressFunc
	last int
}

func newProgressReporter(fn ProgressFunc) *progressReporter {
	return &progressReporter{fn: fn}
}

func (p *progressReporter) report(percent int, status string) {
	p.mu.Lock()
	if percent < p.last {
		percent = p.last
	}
	if percent > 100 {
		percent = 100
	}
	p.last = percent
	p.mu.Unlock()

	if p.fn != nil {
		p.fn(Progress{Percent: percent, Status: status})
	}
}

// scale maps step i of n onto the percentage range [from, to).
func scale(from, to, i, n int) int {
	if n <= 0 {
		return from
	}
	return from + (to-from)*i/n
}
