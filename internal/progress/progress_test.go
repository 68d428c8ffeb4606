package progress_test

import (
	"testing"

	"github.com/ostafen/ntfstriage/internal/progress"
	"github.com/stretchr/testify/require"
)

func TestNoOp_NeverPanics(t *testing.T) {
	require.NotPanics(t, func() {
		progress.NoOp.Begin(1000)
		progress.NoOp.Advance(100, true)
		progress.NoOp.End()
	})
}

func TestTerminal_TracksRecordsFound(t *testing.T) {
	r := progress.NewTerminal()
	r.Begin(1000)
	r.Advance(100, true)
	r.Advance(100, false)
	r.Advance(100, true)
	require.Equal(t, 2, r.Bar().RecordsFound)
	require.Equal(t, int64(300), r.Bar().ProcessedBytes)
	r.End()
}
