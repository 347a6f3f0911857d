package app_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"cloud.google.com/go/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"github.com/JakeFAU/research-harvester/internal/app"
	"github.com/JakeFAU/research-harvester/internal/clock/system"
	"github.com/JakeFAU/research-harvester/internal/config"
	"github.com/JakeFAU/research-harvester/internal/crawler"
	memorypublisher "github.com/JakeFAU/research-harvester/internal/publisher/memory"
)

// MockIDGenerator mocks crawler.IDGenerator.
type MockIDGenerator struct {
	mock.Mock
}

func (m *MockIDGenerator) NewID() (string, error) {
	args := m.Called()
	return args.String(0), args.Error(1)
}

// MockNotifier mocks crawler.Notifier.
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Publish(ctx context.Context, topic string, payload any) (string, error) {
	args := m.Called(ctx, topic, payload)
	return args.String(0), args.Error(1)
}

func testConfig(t *testing.T, backend string) config.Config {
	t.Helper()
	cfg, err := config.Load("")
	require.NoError(t, err)
	cfg.Storage.Backend = backend
	cfg.Crawler.Delay = 0
	return cfg
}

func TestMemoryBackendSharesOneStore(t *testing.T) {
	a, err := app.New(context.Background(), testConfig(t, config.BackendMemory), app.WithLogger(zap.NewNop()))
	require.NoError(t, err)
	defer a.Close()

	papers, err := a.BlobStore(context.Background(), "data/papers")
	require.NoError(t, err)
	docs, err := a.BlobStore(context.Background(), "data/docs")
	require.NoError(t, err)
	assert.Same(t, papers, docs)

	uri, err := papers.PutObject(context.Background(), "x.json", "application/json", strings.NewReader("{}"))
	require.NoError(t, err)
	assert.Equal(t, "memory://x.json", uri)
}

func TestLocalBackendCreatesOutputDir(t *testing.T) {
	a, err := app.New(context.Background(), testConfig(t, config.BackendLocal), app.WithLogger(zap.NewNop()))
	require.NoError(t, err)
	defer a.Close()

	dir := filepath.Join(t.TempDir(), "nested", "papers")
	store, err := a.BlobStore(context.Background(), dir)
	require.NoError(t, err)
	require.NotNil(t, store)

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestGCSBackendChecksBucket(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Path, "/b/missing-bucket") {
			w.WriteHeader(http.StatusNotFound)
			fmt.Fprintln(w, `{"error": {"code": 404, "message": "Not Found"}}`)
			return
		}
		fmt.Fprintln(w, `{"name": "corpus-bucket"}`)
	}))
	defer server.Close()

	client, err := storage.NewClient(context.Background(), option.WithEndpoint(server.URL), option.WithoutAuthentication())
	require.NoError(t, err)
	defer client.Close()

	cfg := testConfig(t, config.BackendGCS)
	cfg.Storage.GCSBucket = "corpus-bucket"
	cfg.Storage.Prefix = "harvest"
	a, err := app.New(context.Background(), cfg, app.WithLogger(zap.NewNop()), app.WithGCSClient(client))
	require.NoError(t, err)
	defer a.Close()

	_, err = a.BlobStore(context.Background(), "data/papers")
	require.NoError(t, err)

	cfg.Storage.GCSBucket = "missing-bucket"
	missing, err := app.New(context.Background(), cfg, app.WithLogger(zap.NewNop()), app.WithGCSClient(client))
	require.NoError(t, err)
	defer missing.Close()
	_, err = missing.BlobStore(context.Background(), "data/papers")
	require.Error(t, err)
}

func TestFetcherUsesConfiguredUserAgent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, r.UserAgent())
	}))
	defer server.Close()

	cfg := testConfig(t, config.BackendMemory)
	cfg.HTTP.UserAgent = "harvester-test/1.0"
	a, err := app.New(context.Background(), cfg, app.WithLogger(zap.NewNop()))
	require.NoError(t, err)
	defer a.Close()

	resp, err := a.Fetcher(crawler.SourceDocs).Fetch(context.Background(), crawler.FetchRequest{URL: server.URL})
	require.NoError(t, err)
	assert.Equal(t, "harvester-test/1.0", string(resp.Body))
	resp, err = a.PacedFetcher(crawler.SourceDocs).Fetch(context.Background(), crawler.FetchRequest{URL: server.URL})
	require.NoError(t, err)
	assert.Equal(t, "harvester-test/1.0", string(resp.Body))
	assert.True(t, a.Robots(a.PacedFetcher(crawler.SourceDocs)).Allowed(context.Background(), server.URL+"/anything"))
}

func TestRunLifecycle(t *testing.T) {
	start := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := system.NewFixed(start)
	ids := new(MockIDGenerator)
	ids.On("NewID").Return("0195...run", nil).Once()
	notifier := memorypublisher.New()

	cfg := testConfig(t, config.BackendMemory)
	cfg.Metrics.Textfile = filepath.Join(t.TempDir(), "harvester.prom")
	a, err := app.New(context.Background(), cfg,
		app.WithLogger(zap.NewNop()),
		app.WithClock(clock),
		app.WithIDGenerator(ids),
		app.WithNotifier(notifier),
	)
	require.NoError(t, err)
	defer a.Close()

	run, err := a.StartRun(crawler.SourceArxiv)
	require.NoError(t, err)
	assert.Equal(t, "0195...run", run.Summary.RunID)

	clock.Advance(3 * time.Second)
	summary := a.FinishRun(context.Background(), run, 2, 1, []string{"memory://a.json", "memory://b.json"})
	assert.Equal(t, start, summary.StartedAt)
	assert.Equal(t, start.Add(3*time.Second), summary.FinishedAt)
	assert.Equal(t, 2, summary.Records)
	assert.Equal(t, 1, summary.Failures)

	msgs := notifier.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, app.DefaultTopic, msgs[0].Topic)
	var published crawler.RunSummary
	require.NoError(t, json.Unmarshal(msgs[0].Data, &published))
	assert.Equal(t, summary.RunID, published.RunID)
	assert.Equal(t, crawler.SourceArxiv, published.Source)

	textfile, err := os.ReadFile(cfg.Metrics.Textfile)
	require.NoError(t, err)
	assert.Contains(t, string(textfile), "harvester_records_total")
	ids.AssertExpectations(t)
}

func TestRunPublishFailureIsNotFatal(t *testing.T) {
	notifier := new(MockNotifier)
	notifier.On("Publish", mock.Anything, "harvests", mock.AnythingOfType("crawler.RunSummary")).
		Return("", errors.New("topic not found"))

	cfg := testConfig(t, config.BackendMemory)
	cfg.PubSub.Topic = "harvests"
	a, err := app.New(context.Background(), cfg, app.WithLogger(zap.NewNop()), app.WithNotifier(notifier))
	require.NoError(t, err)
	defer a.Close()

	run, err := a.StartRun(crawler.SourceBlog)
	require.NoError(t, err)
	summary := a.FinishRun(context.Background(), run, 0, 0, nil)
	assert.Equal(t, []string{}, summary.Paths)
	notifier.AssertExpectations(t)
}

func TestStartRunIDFailure(t *testing.T) {
	ids := new(MockIDGenerator)
	ids.On("NewID").Return("", errors.New("entropy exhausted"))

	a, err := app.New(context.Background(), testConfig(t, config.BackendMemory),
		app.WithLogger(zap.NewNop()), app.WithIDGenerator(ids))
	require.NoError(t, err)
	defer a.Close()

	_, err = a.StartRun(crawler.SourceDocs)
	require.ErrorContains(t, err, "generate run id")
}
