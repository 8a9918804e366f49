package order

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseStatus(t *testing.T) {
	s, ok := ParseStatus("IN_PROGRESS")
	assert.True(t, ok)
	assert.Equal(t, StatusInProgress, s)

	_, ok = ParseStatus("in_progress")
	assert.False(t, ok)
	_, ok = ParseStatus("DELIVERED")
	assert.False(t, ok)
	_, ok = ParseStatus("")
	assert.False(t, ok)
}

func TestParseUsageType(t *testing.T) {
	u, ok := ParseUsageType("LIVE_PERFORMANCE")
	assert.True(t, ok)
	assert.Equal(t, UsageLivePerformance, u)

	_, ok = ParseUsageType("KARAOKE")
	assert.False(t, ok)
}

func TestCanSellerSet(t *testing.T) {
	tests := []struct {
		name    string
		current Status
		target  Status
		want    bool
	}{
		{"accepted to in_progress", StatusAccepted, StatusInProgress, true},
		{"accepted to completed", StatusAccepted, StatusCompleted, true},
		{"in_progress to completed", StatusInProgress, StatusCompleted, true},
		{"pending to in_progress before payment", StatusPending, StatusInProgress, false},
		{"pending to completed before payment", StatusPending, StatusCompleted, false},
		{"cancel pending", StatusPending, StatusCancelled, true},
		{"cancel accepted", StatusAccepted, StatusCancelled, true},
		{"cancel in_progress", StatusInProgress, StatusCancelled, true},
		{"cancel completed", StatusCompleted, StatusCancelled, false},
		{"revive cancelled", StatusCancelled, StatusInProgress, false},
		{"completed is terminal", StatusCompleted, StatusInProgress, false},
		{"seller cannot force accepted", StatusPending, StatusAccepted, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CanSellerSet(tt.current, tt.target))
		})
	}
}

func TestApplyPaymentSucceeded(t *testing.T) {
	next, changed := ApplyPaymentSucceeded(StatusPending)
	assert.True(t, changed)
	assert.Equal(t, StatusAccepted, next)

	// Duplicate delivery: already accepted, nothing moves.
	next, changed = ApplyPaymentSucceeded(StatusAccepted)
	assert.False(t, changed)
	assert.Equal(t, StatusAccepted, next)

	// Late delivery after the seller started or finished work.
	for _, s := range []Status{StatusInProgress, StatusCompleted, StatusCancelled} {
		next, changed = ApplyPaymentSucceeded(s)
		assert.False(t, changed)
		assert.Equal(t, s, next)
	}
}

func TestApplyPaymentFailed(t *testing.T) {
	for _, s := range []Status{StatusPending, StatusAccepted, StatusInProgress} {
		next, changed := ApplyPaymentFailed(s)
		assert.True(t, changed)
		assert.Equal(t, StatusCancelled, next)
	}

	// Terminal orders stay put, including repeat failure events.
	for _, s := range []Status{StatusCompleted, StatusCancelled} {
		next, changed := ApplyPaymentFailed(s)
		assert.False(t, changed)
		assert.Equal(t, s, next)
	}
}

func TestTerminal(t *testing.T) {
	assert.True(t, StatusCompleted.Terminal())
	assert.True(t, StatusCancelled.Terminal())
	assert.False(t, StatusPending.Terminal())
	assert.False(t, StatusAccepted.Terminal())
	assert.False(t, StatusInProgress.Terminal())
}
