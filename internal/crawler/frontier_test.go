package crawler

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFrontierFIFO(t *testing.T) {
	t.Parallel()

	f := NewFrontier("a")
	f.Push("b", "", "c")
	require.Equal(t, 3, f.Pending())

	var order []string
	for {
		next, ok := f.Pop()
		if !ok {
			break
		}
		order = append(order, next)
	}
	require.Equal(t, []string{"a", "b", "c"}, order)
	require.Zero(t, f.Pending())
}

func TestFrontierVisitedGrowsAndFiltersPush(t *testing.T) {
	t.Parallel()

	f := NewFrontier()
	f.MarkVisited("a")
	f.MarkVisited("b")
	f.MarkVisited("a")
	require.Equal(t, []string{"a", "b"}, f.VisitedURLs())

	f.Push("a", "c", "c")
	require.Equal(t, 2, f.Pending(), "visited urls are not re-queued, pending duplicates are kept")

	require.True(t, f.Done("a"))
	require.False(t, f.Done("c"))
	f.MarkFailed("c")
	require.True(t, f.Done("c"))
	require.False(t, f.Visited("c"))
	require.Equal(t, 1, f.FailedCount())
}
