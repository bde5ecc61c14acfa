package escalation

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/geowarn/geowarn/internal/config"
)

// Scheduler periodically ticks the manager so unacknowledged
// escalations advance. Polling is the only place time passes through
// the state machine, so an escalation may fire up to one poll interval
// late, never early.
type Scheduler struct {
	manager *Manager
	cfgMgr  *config.Manager

	wg       sync.WaitGroup
	stopOnce sync.Once
	stopCh   chan struct{}
}

// NewScheduler creates a Scheduler driving the given manager.
func NewScheduler(manager *Manager, cfgMgr *config.Manager) *Scheduler {
	return &Scheduler{
		manager: manager,
		cfgMgr:  cfgMgr,
		stopCh:  make(chan struct{}),
	}
}

// Start launches the polling goroutine.
func (s *Scheduler) Start() {
	s.wg.Add(1)
	go s.run()
}

// Stop signals the polling goroutine and waits for any in-flight tick
// to finish.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopCh)
		s.wg.Wait()
	})
}

func (s *Scheduler) run() {
	defer s.wg.Done()

	interval := s.pollInterval()
	slog.Info("escalation scheduler started", "interval", interval)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	onChange := s.cfgMgr.Subscribe()

	for {
		select {
		case <-s.stopCh:
			slog.Info("escalation scheduler stopped")
			return
		case <-onChange:
			if next := s.pollInterval(); next != interval {
				slog.Info("poll interval changed", "old", interval, "new", next)
				interval = next
				ticker.Reset(interval)
			}
		case <-ticker.C:
			advanced := s.manager.Tick(context.Background(), time.Now())
			if len(advanced) > 0 {
				slog.Info("scheduler pass advanced escalations", "count", len(advanced))
			}
		}
	}
}

func (s *Scheduler) pollInterval() time.Duration {
	return time.Duration(s.cfgMgr.Get().System.PollInterval) * time.Second
}
