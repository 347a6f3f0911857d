package crawler

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func keys[R Record](records []R) []string {
	out := make([]string, 0, len(records))
	for _, r := range records {
		out = append(out, r.Key())
	}
	return out
}

func TestDedupe(t *testing.T) {
	t.Parallel()

	t.Run("first occurrence wins in order", func(t *testing.T) {
		in := []Paper{
			{PaperID: "A", Title: "first A"},
			{PaperID: "B"},
			{PaperID: "A", Title: "second A"},
			{PaperID: "C"},
			{PaperID: "B"},
		}
		out := Dedupe(in)
		require.Equal(t, []string{"A", "B", "C"}, keys(out))
		require.Equal(t, "first A", out[0].Title)
	})

	t.Run("mixed record variants", func(t *testing.T) {
		in := []Record{
			Post{URL: "https://blog.example.com/a"},
			DocPage{URL: "https://docs.example.com/a"},
			Post{URL: "https://blog.example.com/a"},
		}
		require.Equal(t, []string{"https://blog.example.com/a", "https://docs.example.com/a"}, keys(Dedupe(in)))
	})

	t.Run("empty input", func(t *testing.T) {
		require.Empty(t, Dedupe([]Post(nil)))
	})
}
