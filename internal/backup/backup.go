// Package backup periodically snapshots open releases with unsaved changes.
package backup

import (
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Source pushes revisions for dirty sessions and reports how many.
type Source interface {
	BackupDirty() (int, error)
}

// Scheduler runs Source.BackupDirty on a cron schedule.
type Scheduler struct {
	src  Source
	log  *zap.Logger
	mu   sync.Mutex
	cron *cron.Cron
}

func New(src Source, log *zap.Logger) *Scheduler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Scheduler{src: src, log: log.Named("backup")}
}

// Start schedules backups with a cron expression or descriptor such as
// "@every 5m". An empty schedule disables backups.
func (s *Scheduler) Start(schedule string) error {
	s.Stop()
	if schedule == "" {
		s.log.Info("backups disabled")
		return nil
	}

	c := cron.New()
	if _, err := c.AddFunc(schedule, s.Run); err != nil {
		return fmt.Errorf("invalid backup schedule %q: %w", schedule, err)
	}
	c.Start()

	s.mu.Lock()
	s.cron = c
	s.mu.Unlock()
	s.log.Info("backups scheduled", zap.String("schedule", schedule))
	return nil
}

// Run performs one backup pass.
func (s *Scheduler) Run() {
	n, err := s.src.BackupDirty()
	if err != nil {
		s.log.Warn("backup failed", zap.Error(err))
	}
	if n > 0 {
		s.log.Info("backed up releases", zap.Int("count", n))
	}
}

// Stop halts the schedule and waits for a running pass to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	c := s.cron
	s.cron = nil
	s.mu.Unlock()
	if c != nil {
		<-c.Stop().Done()
	}
}
