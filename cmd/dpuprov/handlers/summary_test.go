package handlers

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/imamik/dpuprov/internal/orchestration"
)

func TestRenderSummary(t *testing.T) {
	updated := time.Date(2026, 3, 1, 14, 5, 9, 0, time.UTC)
	nodes := []orchestration.NodeStatus{
		{Node: "worker-0", Phase: orchestration.PhaseBFB, Stage: orchestration.StageImageLoaded, Updated: updated},
		{Node: "worker-1", Phase: orchestration.PhaseBFB, Stage: orchestration.StageFailed, Updated: updated,
			Err: errors.New("FirmwareUpgrade on worker-1 failed with status 3")},
		{Node: "worker-2", Stage: orchestration.StagePending, Updated: updated},
	}

	for _, styled := range []bool{false, true} {
		out := renderSummary(nodes, styled)

		assert.Contains(t, out, "NODE")
		assert.Contains(t, out, "worker-0")
		assert.Contains(t, out, "ImageLoaded")
		assert.Contains(t, out, "worker-1")
		assert.Contains(t, out, "failed with status 3")
		assert.Contains(t, out, "Pending")
		assert.Contains(t, out, "14:05:09")
	}
}

func TestRenderSummary_PlainHasNoEscapes(t *testing.T) {
	nodes := []orchestration.NodeStatus{
		{Node: "worker-0", Stage: orchestration.StageFailed, Err: errors.New("boom")},
	}

	assert.NotContains(t, renderSummary(nodes, false), "\x1b[")
}

func TestShortError(t *testing.T) {
	assert.Empty(t, shortError(nil))
	assert.Equal(t, "first", shortError(errors.New("first\nsecond")))

	long := shortError(errors.New(strings.Repeat("x", 100)))
	assert.Len(t, long, summaryErrorWidth)
	assert.True(t, strings.HasSuffix(long, "..."))
}
