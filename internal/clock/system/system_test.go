package system

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestClockNowUTC(t *testing.T) {
	t.Parallel()

	clk := New()
	before := time.Now().UTC().Add(-time.Second)
	got := clk.Now()
	after := time.Now().UTC().Add(time.Second)

	require.Equal(t, time.UTC, got.Location())
	require.True(t, got.After(before) && got.Before(after), "expected %v between %v and %v", got, before, after)
}

func TestFixedClock(t *testing.T) {
	t.Parallel()

	start := time.Date(2025, 2, 28, 12, 0, 0, 0, time.FixedZone("x", 3600))
	clk := NewFixed(start)
	require.True(t, clk.Now().Equal(start))
	require.Equal(t, time.UTC, clk.Now().Location())
	require.Equal(t, clk.Now(), clk.Now())

	clk.Advance(90 * time.Second)
	require.Equal(t, 90*time.Second, clk.Now().Sub(start))
}
