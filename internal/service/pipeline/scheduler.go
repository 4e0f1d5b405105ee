package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Refresher rebuilds the schema index.
type Refresher interface {
	Refresh(ctx context.Context) error
}

// refreshTimeout bounds one scheduled rebuild.
const refreshTimeout = 5 * time.Minute

// Scheduler runs periodic schema index refreshes on a cron expression.
// Manual refreshes through the admin API remain available alongside it.
type Scheduler struct {
	cron   *cron.Cron
	logger *slog.Logger
}

func NewScheduler(refresher Refresher, spec string, logger *slog.Logger) (*Scheduler, error) {
	s := &Scheduler{
		cron:   cron.New(),
		logger: logger.With("component", "scheduler"),
	}
	_, err := s.cron.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
		defer cancel()
		if err := refresher.Refresh(ctx); err != nil {
			s.logger.Error("scheduled schema refresh failed", "error", err)
			return
		}
		s.logger.Info("scheduled schema refresh completed")
	})
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("schema refresh scheduler started")
}

// Stop halts scheduling and waits for a running refresh to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("schema refresh scheduler stopped")
}
