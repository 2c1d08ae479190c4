// Package worker runs long scenario scans in the background with cooperative
// cancellation and progress reporting.
package worker

import "sync/atomic"

// Token is a cancellation flag shared between a caller and a running scan.
// A nil *Token is never cancelled.
type Token struct {
	cancelled atomic.Bool
}

// NewToken returns an uncancelled token.
func NewToken() *Token {
	return &Token{}
}

// Cancel requests cancellation. Safe to call more than once.
func (t *Token) Cancel() {
	if t == nil {
		return
	}
	t.cancelled.Store(true)
}

// Cancelled reports whether cancellation was requested.
func (t *Token) Cancelled() bool {
	if t == nil {
		return false
	}
	return t.cancelled.Load()
}

// ProgressFunc receives the number of finished units and the total.
type ProgressFunc func(current, total int)

// Control is passed into every scan. The zero value never cancels and reports nothing.
type Control struct {
	Token    *Token
	Progress ProgressFunc
}

// Cancelled reports whether the scan should stop before its next unit.
func (c Control) Cancelled() bool {
	return c.Token.Cancelled()
}

// Report forwards progress to the callback if one is set.
func (c Control) Report(current, total int) {
	if c.Progress != nil {
		c.Progress(current, total)
	}
}
