// Package scheduler drives the periodic batch cycle.
package scheduler

import (
	"context"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/goccy/go-json"
	log "github.com/sirupsen/logrus"

	"swelter/internal/cycle"
	"swelter/internal/ports"
)

// Scheduler runs the orchestrator over all stored users on a fixed interval.
// The cycle summary is logged and, when a publisher and topic are configured,
// published as JSON.
type Scheduler struct {
	scheduler *gocron.Scheduler
	orch      *cycle.Orchestrator
	interval  time.Duration

	publisher  ports.Publisher
	summaryARN string
}

func New(orch *cycle.Orchestrator, interval time.Duration) *Scheduler {
	return &Scheduler{
		scheduler: gocron.NewScheduler(time.UTC),
		orch:      orch,
		interval:  interval,
	}
}

// WithSummaryPublisher forwards every cycle summary to an SNS topic.
func (s *Scheduler) WithSummaryPublisher(p ports.Publisher, arn string) *Scheduler {
	s.publisher = p
	s.summaryARN = arn
	return s
}

// Start schedules the periodic job and starts the underlying scheduler.
func (s *Scheduler) Start() error {
	minutes := int(s.interval.Minutes())
	if minutes <= 0 {
		minutes = 15
	}

	_, err := s.scheduler.Every(minutes).Minutes().Do(s.runOnce)
	if err != nil {
		return err
	}
	s.scheduler.StartAsync()
	return nil
}

func (s *Scheduler) runOnce() {
	// The whole batch is bounded; a wedged upstream cannot pile cycles up.
	ctx, cancel := context.WithTimeout(context.Background(), s.interval)
	defer cancel()

	summary := s.orch.RunAll(ctx)
	log.WithFields(log.Fields{
		"processed": summary.Processed,
		"activated": summary.Activated,
		"failed":    summary.Failed,
		"skipped":   summary.Skipped,
	}).Info("batch cycle completed")

	if s.publisher == nil || s.summaryARN == "" {
		return
	}
	payload, err := json.Marshal(summary)
	if err != nil {
		log.WithError(err).Error("cannot marshal cycle summary")
		return
	}
	if err := s.publisher.PublishRaw(ctx, s.summaryARN, payload); err != nil {
		log.WithError(err).Error("cannot publish cycle summary")
	}
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
