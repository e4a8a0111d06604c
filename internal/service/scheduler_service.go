package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/headless-cms-admin/internal/models"
	"github.com/rs/zerolog"
)

const defaultSchedulerInterval = 30 * time.Second

// schedulerService is the concrete implementation of SchedulerService
type schedulerService struct {
	*deps
	log      zerolog.Logger
	interval time.Duration

	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool
	runMu   sync.Mutex
}

// newSchedulerService creates a new SchedulerService
func newSchedulerService(d *deps, log zerolog.Logger) *schedulerService {
	interval := d.cfg.Scheduler.Interval
	if interval <= 0 {
		interval = defaultSchedulerInterval
	}
	return &schedulerService{
		deps:     d,
		log:      log.With().Str("service", "scheduler").Logger(),
		interval: interval,
	}
}

// StartProcessor publishes due entries on every tick until ctx is done or
// StopProcessor is called. It blocks; run it in its own goroutine.
func (s *schedulerService) StartProcessor(ctx context.Context) {
	s.runMu.Lock()
	if s.running {
		s.runMu.Unlock()
		return
	}
	s.running = true
	s.ctx, s.cancel = context.WithCancel(ctx)
	runCtx := s.ctx
	s.wg.Add(1)
	s.runMu.Unlock()
	defer s.wg.Done()

	s.log.Info().Dur("interval", s.interval).Msg("Scheduled publish processor started")

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-runCtx.Done():
			s.log.Info().Msg("Scheduled publish processor stopping")
			return
		case <-ticker.C:
			s.tick(runCtx)
		}
	}
}

// StopProcessor stops the processor and waits for the current tick
func (s *schedulerService) StopProcessor() {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	if !s.running {
		return
	}

	s.cancel()
	s.wg.Wait()
	s.running = false
	s.log.Info().Msg("Scheduled publish processor stopped")
}

func (s *schedulerService) tick(ctx context.Context) {
	// a panic in one tick must not take the server down
	defer func() {
		if r := recover(); r != nil {
			s.log.Error().Interface("panic", r).Msg("Scheduled publish tick panicked - recovered")
		}
	}()

	n, err := s.PublishDue(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("Scheduled publish failed")
		return
	}
	if n > 0 {
		s.log.Info().Int("published", n).Msg("Scheduled entries published")
	}
}

// PublishDue publishes every scheduled entry whose time has come and returns
// how many were published
func (s *schedulerService) PublishDue(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, err := s.publishDue(ctx)
	s.metrics.ScheduledPublished(n)
	return n, s.record("scheduler", "publish_due", err)
}

func (s *schedulerService) publishDue(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	now := s.now()
	all := s.repos.Entries.List()
	published := 0
	for i := range all {
		e := &all[i]
		if e.Status != models.EntryStatusScheduled || e.ScheduledAt == nil || e.ScheduledAt.After(now) {
			continue
		}
		publish(e, now)
		e.UpdatedAt = now
		published++
	}
	if published == 0 {
		return 0, nil
	}
	if err := s.repos.Entries.ReplaceAll(ctx, all); err != nil {
		return 0, fmt.Errorf("failed to publish scheduled entries: %w", err)
	}
	return published, nil
}
