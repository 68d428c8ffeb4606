// Package progress reports pipeline operation progress to the terminal,
// wrapping pkg/pbar's byte-oriented progress bar with the begin/advance/end
// shape the extract/parse/analyze operations drive it through.
package progress

import (
	"github.com/ostafen/ntfstriage/pkg/pbar"
)

// Reporter is the interface extraction and decoding operations advance as
// they make progress through a known-size byte stream. A nil Reporter is
// never passed around; callers that want silence use NoOp.
type Reporter interface {
	// Begin starts reporting over a stream of totalBytes.
	Begin(totalBytes int64)
	// Advance reports n additional bytes processed and, optionally, that a
	// further record was decoded from them.
	Advance(n int64, recordDecoded bool)
	// End finalizes the report (e.g. moves the terminal to a fresh line).
	End()
}

// Terminal renders progress to stdout via pkg/pbar, redrawing at pbar's own
// MinRefreshRate cadence.
type Terminal struct {
	bar *pbar.ProgressBarState
}

// NewTerminal returns a Reporter that renders to the terminal.
func NewTerminal() *Terminal {
	return &Terminal{}
}

func (t *Terminal) Begin(totalBytes int64) {
	t.bar = pbar.NewProgressBarState(totalBytes)
	t.bar.Render(true)
}

func (t *Terminal) Advance(n int64, recordDecoded bool) {
	if t.bar == nil {
		return
	}
	t.bar.ProcessedBytes += n
	if recordDecoded {
		t.bar.RecordsFound++
	}
	t.bar.Render(false)
}

func (t *Terminal) End() {
	if t.bar == nil {
		return
	}
	t.bar.Render(true)
	t.bar.Finish()
}

// Bar exposes the underlying pbar state, mainly for tests; nil until Begin
// has been called.
func (t *Terminal) Bar() *pbar.ProgressBarState {
	return t.bar
}

// noop discards all progress reporting; used by non-interactive callers
// (tests, piped output) that still need a Reporter to satisfy the
// interface.
type noop struct{}

// NoOp is a Reporter that does nothing.
var NoOp Reporter = noop{}

func (noop) Begin(int64)            {}
func (noop) Advance(int64, bool)    {}
func (noop) End()                   {}
