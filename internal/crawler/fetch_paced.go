package crawler

import (
	"context"
	"fmt"
)

// PacedFetcher waits on a Waiter before delegating every request, bounding
// the request rate against remote sites.
type PacedFetcher struct {
	next   Fetcher
	waiter Waiter
}

// NewPacedFetcher wraps next. A nil waiter disables pacing.
func NewPacedFetcher(next Fetcher, waiter Waiter) *PacedFetcher {
	return &PacedFetcher{next: next, waiter: waiter}
}

// Fetch implements Fetcher.
func (p *PacedFetcher) Fetch(ctx context.Context, request FetchRequest) (FetchResponse, error) {
	if p.waiter != nil {
		if err := p.waiter.Wait(ctx, request.URL); err != nil {
			return FetchResponse{}, &FetchError{URL: request.URL, Cause: fmt.Errorf("pacing: %w", err)}
		}
	}
	return p.next.Fetch(ctx, request)
}
