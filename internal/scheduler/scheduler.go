// Package scheduler re-invokes the dispatch batch on a fixed interval.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"weather-notifier/internal/common/logger"
	"weather-notifier/internal/services/dispatch"

	"github.com/go-co-op/gocron"
)

const Component = "scheduler"

type Dispatcher interface {
	Run(ctx context.Context) (*dispatch.Report, error)
}

type Scheduler struct {
	scheduler  *gocron.Scheduler
	dispatcher Dispatcher
	interval   time.Duration
	logger     logger.Logger
}

func New(interval time.Duration, dispatcher Dispatcher, log logger.Logger) *Scheduler {
	return &Scheduler{
		scheduler:  gocron.NewScheduler(time.UTC),
		dispatcher: dispatcher,
		interval:   interval,
		logger:     logger.ForComponent(log, Component),
	}
}

// Start schedules the dispatch job. The first run happens one interval after Start, and
// a run still in progress when the next is due causes that tick to be skipped.
func (s *Scheduler) Start() error {
	if s.interval <= 0 {
		return fmt.Errorf("scheduler interval must be positive, got %s", s.interval)
	}

	_, err := s.scheduler.Every(s.interval).WaitForSchedule().SingletonMode().Do(s.run)
	if err != nil {
		return fmt.Errorf("schedule dispatch: %w", err)
	}

	s.scheduler.StartAsync()
	s.logger.Info("scheduler started", map[string]interface{}{"interval": s.interval.String()})
	return nil
}

func (s *Scheduler) run() {
	report, err := s.dispatcher.Run(context.Background())
	if err != nil {
		s.logger.Error("scheduled dispatch failed", map[string]interface{}{"error": err})
		return
	}
	sent, failed := report.Counts()
	s.logger.Info("scheduled dispatch completed", map[string]interface{}{
		"sent":   sent,
		"failed": failed,
	})
}

func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
