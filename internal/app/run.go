package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/JakeFAU/research-harvester/internal/crawler"
	"github.com/JakeFAU/research-harvester/internal/metrics"
)

// DefaultTopic labels summaries kept in memory when no Pub/Sub topic is set.
const DefaultTopic = "harvester-runs"

// Run tracks one harvest from start to summary.
type Run struct {
	Summary crawler.RunSummary
	Logger  *zap.Logger
}

// StartRun assigns a run id and records the start time.
func (a *App) StartRun(source crawler.SourceTag) (*Run, error) {
	id, err := a.ids.NewID()
	if err != nil {
		return nil, fmt.Errorf("generate run id: %w", err)
	}
	run := &Run{
		Summary: crawler.RunSummary{
			RunID:     id,
			Source:    source,
			StartedAt: a.clock.Now(),
			Paths:     []string{},
		},
		Logger: a.logger.With(zap.String("run_id", id), zap.String("source", string(source))),
	}
	run.Logger.Info("run started")
	return run, nil
}

// FinishRun completes the summary, records run metrics, writes the metrics
// textfile and publishes the summary. Export and publish failures are logged
// only; they never fail the run.
func (a *App) FinishRun(ctx context.Context, run *Run, records, failures int, paths []string) crawler.RunSummary {
	summary := run.Summary
	summary.FinishedAt = a.clock.Now()
	summary.Records = records
	summary.Failures = failures
	if paths != nil {
		summary.Paths = paths
	}

	source := string(summary.Source)
	metrics.ObserveRecords(source, records)
	metrics.ObserveRun(source, summary.FinishedAt.Sub(summary.StartedAt))

	run.Logger.Info("run finished",
		zap.Int("records", summary.Records),
		zap.Int("failures", summary.Failures),
		zap.Duration("elapsed", summary.FinishedAt.Sub(summary.StartedAt)),
	)

	if textfile := a.cfg.Metrics.Textfile; textfile != "" {
		if err := metrics.WriteTextfile(textfile); err != nil {
			run.Logger.Warn("metrics textfile export failed", zap.String("path", textfile), zap.Error(err))
		}
	}

	topic := a.cfg.PubSub.Topic
	if topic == "" {
		topic = DefaultTopic
	}
	if msgID, err := a.notifier.Publish(ctx, topic, summary); err != nil {
		run.Logger.Warn("publish run summary failed", zap.String("topic", topic), zap.Error(err))
	} else {
		run.Logger.Debug("run summary published", zap.String("topic", topic), zap.String("message_id", msgID))
	}
	return summary
}
