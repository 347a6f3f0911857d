package crawler

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockWaiter struct {
	mock.Mock
}

func (m *MockWaiter) Wait(ctx context.Context, rawURL string) error {
	args := m.Called(ctx, rawURL)
	return args.Error(0)
}

func TestPacedFetcherWaitsBeforeFetch(t *testing.T) {
	t.Parallel()

	const target = "https://docs.example.com/a"
	waiter := new(MockWaiter)
	next := new(MockFetcher)
	waiter.On("Wait", mock.Anything, target).Return(nil).Once()
	next.On("Fetch", mock.Anything, FetchRequest{URL: target}).
		Return(FetchResponse{URL: target, StatusCode: 200}, nil).Once()

	resp, err := NewPacedFetcher(next, waiter).Fetch(context.Background(), FetchRequest{URL: target})
	require.NoError(t, err)
	require.Equal(t, 200, resp.StatusCode)
	waiter.AssertExpectations(t)
	next.AssertExpectations(t)
}

func TestPacedFetcherWaitError(t *testing.T) {
	t.Parallel()

	const target = "https://docs.example.com/a"
	waiter := new(MockWaiter)
	next := new(MockFetcher)
	waiter.On("Wait", mock.Anything, target).Return(context.DeadlineExceeded)

	_, err := NewPacedFetcher(next, waiter).Fetch(context.Background(), FetchRequest{URL: target})
	require.ErrorIs(t, err, context.DeadlineExceeded)

	var fetchErr *FetchError
	require.True(t, errors.As(err, &fetchErr))
	require.Equal(t, target, fetchErr.URL)
	next.AssertNotCalled(t, "Fetch", mock.Anything, mock.Anything)
}

func TestPacedFetcherNilWaiter(t *testing.T) {
	t.Parallel()

	next := new(MockFetcher)
	next.On("Fetch", mock.Anything, mock.Anything).Return(FetchResponse{StatusCode: 204}, nil)

	resp, err := NewPacedFetcher(next, nil).Fetch(context.Background(), FetchRequest{URL: "https://x.example.com/"})
	require.NoError(t, err)
	require.Equal(t, 204, resp.StatusCode)
}
