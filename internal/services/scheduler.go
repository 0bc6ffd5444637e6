package services

import (
	"context"
	"sync"
	"time"

	"github.com/mroshb/word_game/internal/models"
	"github.com/mroshb/word_game/pkg/logger"
)

// deadlineTimers holds one countdown timer per room in this process.
type deadlineTimers struct {
	mu     sync.Mutex
	timers map[string]*time.Timer
}

func newDeadlineTimers() *deadlineTimers {
	return &deadlineTimers{timers: make(map[string]*time.Timer)}
}

func (d *deadlineTimers) schedule(roomID string, after time.Duration, fire func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if t, ok := d.timers[roomID]; ok {
		t.Stop()
	}
	var t *time.Timer
	t = time.AfterFunc(after, func() {
		d.mu.Lock()
		if d.timers[roomID] == t {
			delete(d.timers, roomID)
		}
		d.mu.Unlock()
		fire()
	})
	d.timers[roomID] = t
}

func (d *deadlineTimers) cancel(roomID string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if t, ok := d.timers[roomID]; ok {
		t.Stop()
		delete(d.timers, roomID)
	}
}

func (d *deadlineTimers) pending(roomID string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	_, ok := d.timers[roomID]
	return ok
}

func (d *deadlineTimers) stopAll() {
	d.mu.Lock()
	defer d.mu.Unlock()

	for id, t := range d.timers {
		t.Stop()
		delete(d.timers, id)
	}
}

func (s *RoomService) scheduleDeadline(room *models.Room) {
	deadline, ok := room.Deadline()
	if !ok {
		return
	}
	roomID, round := room.ID, room.Round
	s.timers.schedule(roomID, deadline.Sub(s.now()), func() {
		if err := s.ExpireRound(context.Background(), roomID, round); err != nil {
			logger.Error("Failed to expire round", "room", roomID, "round", round, "error", err)
		}
	})
}

// SweepReport counts what one sweep did.
type SweepReport struct {
	Expired     int
	Reevaluated int
	Purged      int64
}

// Sweep catches up on work no timer in this process owns: rounds past their
// deadline, evaluations abandoned by a crashed instance and old finished rooms.
func (s *RoomService) Sweep(ctx context.Context) (SweepReport, error) {
	var report SweepReport
	now := s.now()

	playing, err := s.store.ListByGameState(ctx, models.GameStatePlaying)
	if err != nil {
		return report, err
	}
	for _, room := range playing {
		deadline, ok := room.Deadline()
		switch {
		case !ok || !now.Before(deadline):
			if err := s.ExpireRound(ctx, room.ID, room.Round); err != nil {
				logger.Warn("Sweep could not expire round", "room", room.ID, "error", err)
				continue
			}
			report.Expired++
		case !s.timers.pending(room.ID):
			s.scheduleDeadline(room)
		}
	}

	evaluating, err := s.store.ListByGameState(ctx, models.GameStateEvaluating)
	if err != nil {
		return report, err
	}
	staleBefore := now.Add(-s.cfg.GetEvaluationStaleAfter())
	for _, room := range evaluating {
		// updatedAt moves with every presence write, so it is only a fallback
		started := room.UpdatedAt
		if room.EvaluationStartedAt != nil {
			started = *room.EvaluationStartedAt
		}
		if started.After(staleBefore) {
			continue
		}
		logger.Warn("Re-running stale evaluation", "room", room.ID, "round", room.Round)
		s.evaluate(ctx, room)
		report.Reevaluated++
	}

	purged, err := s.store.PurgeFinished(ctx, now.Add(-s.cfg.GetFinishedRetention()))
	if err != nil {
		return report, err
	}
	report.Purged = purged
	return report, nil
}

// RunSweeper sweeps every interval until ctx is cancelled.
func (s *RoomService) RunSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			report, err := s.Sweep(ctx)
			if err != nil {
				logger.Error("Room sweep failed", "error", err)
				continue
			}
			if report.Expired+report.Reevaluated > 0 || report.Purged > 0 {
				logger.Info("Room sweep", "expired", report.Expired, "reevaluated", report.Reevaluated, "purged", report.Purged)
			}
		}
	}
}
