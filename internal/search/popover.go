package search

import "strings"

// Status is what the popover currently shows.
type Status int

const (
	Closed Status = iota
	Searching
	NoResults
	Showing
)

// Popover tracks the query and the latest results. Every keystroke bumps a sequence
// number; debounce ticks and responses carrying an older number are dropped.
type Popover struct {
	query   string
	status  Status
	results []Result
	err     error
	seq     int
}

// Query is the raw input.
func (p *Popover) Query() string { return p.query }

// Status reports the display state.
func (p *Popover) Status() Status { return p.status }

// Results are the rows of the last applied search.
func (p *Popover) Results() []Result { return p.results }

// Err is the failure of the last applied search, if any.
func (p *Popover) Err() error { return p.err }

// Open reports whether the popover is visible.
func (p *Popover) Open() bool { return p.status != Closed }

// SetQuery records new input and returns the sequence number to debounce on.
// A blank query clears results and closes the popover immediately; ok is false then.
func (p *Popover) SetQuery(q string) (seq int, ok bool) {
	p.query = q
	p.seq++
	if strings.TrimSpace(q) == "" {
		p.status = Closed
		p.results = nil
		p.err = nil
		return p.seq, false
	}
	p.status = Searching
	return p.seq, true
}

// Due reports whether a debounce tick for seq should fire a search.
func (p *Popover) Due(seq int) bool {
	return seq == p.seq && p.status == Searching
}

// Apply stores the outcome of the search started for seq. Stale outcomes are ignored.
func (p *Popover) Apply(seq int, results []Result, err error) bool {
	if seq != p.seq || p.status == Closed {
		return false
	}
	p.results = results
	p.err = err
	if len(results) == 0 {
		p.status = NoResults
	} else {
		p.status = Showing
	}
	return true
}

// Close hides the popover and keeps the query.
func (p *Popover) Close() {
	p.seq++
	p.status = Closed
}

// Reset clears everything, used after a result has been chosen.
func (p *Popover) Reset() {
	p.seq++
	p.query = ""
	p.status = Closed
	p.results = nil
	p.err = nil
}
