package scheduler

import (
	"bot-arena-go/internal/session"
	"bot-arena-go/internal/stage"
	"context"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"
)

// Start begins a new run on stageID (or the selected stage) at speed (or the
// current speed). It does nothing while a run is in progress.
func (s *Scheduler) Start(ctx context.Context, stageID string, speed float64) Snapshot {
	s.Init(ctx)
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.state
	if st.Status == session.Running {
		return s.snapshotLocked()
	}
	if stageID != "" {
		st.SelectedStageID = stageID
	}
	if validSpeed(speed) {
		st.Speed = speed
	}

	chosen, ok := stage.Find(st.Stages, st.SelectedStageID)
	if !ok {
		st.Message = "no stage selected"
		s.persistLocked()
		return s.snapshotLocked()
	}
	series := stage.BuildSeries(chosen, st.Daily, s.cfg.SeriesSeed)
	if len(series) == 0 {
		st.Message = fmt.Sprintf("stage %s has no price data", chosen.ID)
		s.persistLocked()
		return s.snapshotLocked()
	}

	now := s.now()
	st.Series = series
	st.Competitors = s.sim.NewCompetitors(s.registry.Bots())
	st.ProcessedIndex = 0
	st.StartedAt = now
	st.PausedAt = time.Time{}
	st.PausedTotal = 0
	st.TradeLogs = nil
	st.RunResult = nil
	st.Status = session.Running
	st.Message = fmt.Sprintf("running: %s / %gx", chosen.Title, st.Speed)
	s.logger.Info("run started", zap.String("stage", chosen.ID), zap.Float64("speed", st.Speed), zap.Int("ticks", len(series)))

	s.advanceLocked(0)
	s.metrics.RecordTicks(1, 0)
	if len(series) == 1 {
		s.finalizeLocked()
		return s.snapshotLocked()
	}
	s.armLocked()
	s.publishStatus()
	s.persistLocked()
	return s.snapshotLocked()
}

// Pause freezes a running session. Ticks due up to now are processed first.
func (s *Scheduler) Pause(ctx context.Context) Snapshot {
	s.Init(ctx)
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tickLocked()
	st := s.state
	if st.Status != session.Running {
		return s.snapshotLocked()
	}
	st.Status = session.Paused
	st.PausedAt = s.now()
	st.Message = "paused"
	s.disarmLocked()
	s.publishStatus()
	s.persistLocked()
	return s.snapshotLocked()
}

// Resume continues a paused session; the paused interval does not count as
// elapsed run time.
func (s *Scheduler) Resume(ctx context.Context) Snapshot {
	s.Init(ctx)
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.state
	if st.Status != session.Paused {
		return s.snapshotLocked()
	}
	if !st.PausedAt.IsZero() {
		if d := s.now().Sub(st.PausedAt); d > 0 {
			st.PausedTotal += d
		}
	}
	st.PausedAt = time.Time{}
	st.Status = session.Running
	st.Message = fmt.Sprintf("running / %gx", st.Speed)
	s.armLocked()
	s.publishStatus()
	s.persistLocked()
	return s.snapshotLocked()
}

// Stop halts the driver and returns to idle, keeping series and competitors.
func (s *Scheduler) Stop(ctx context.Context) Snapshot {
	s.Init(ctx)
	s.mu.Lock()
	defer s.mu.Unlock()

	s.disarmLocked()
	s.state.Status = session.Idle
	s.state.Message = "stopped"
	s.publishStatus()
	s.persistLocked()
	return s.snapshotLocked()
}

// Reset halts the driver and discards the run.
func (s *Scheduler) Reset(ctx context.Context) Snapshot {
	s.Init(ctx)
	s.mu.Lock()
	defer s.mu.Unlock()

	s.disarmLocked()
	st := s.state
	st.Status = session.Idle
	st.Series = nil
	st.Competitors = nil
	st.ProcessedIndex = 0
	st.StartedAt = time.Time{}
	st.PausedAt = time.Time{}
	st.PausedTotal = 0
	st.TradeLogs = nil
	st.RunResult = nil
	st.Message = "reset complete"
	s.publishStatus()
	s.persistLocked()
	return s.snapshotLocked()
}

// UpdateOptions changes the selected stage and speed. Ignored while running.
func (s *Scheduler) UpdateOptions(ctx context.Context, stageID string, speed float64) Snapshot {
	s.Init(ctx)
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.state
	if st.Status == session.Running {
		return s.snapshotLocked()
	}
	st.Message = "options updated"
	if stageID != "" {
		if _, ok := stage.Find(st.Stages, stageID); ok {
			st.SelectedStageID = stageID
		} else {
			st.Message = fmt.Sprintf("unknown stage %q", stageID)
		}
	}
	if validSpeed(speed) {
		st.Speed = speed
	}
	s.persistLocked()
	return s.snapshotLocked()
}

// RegenerateStages rebuilds the stage catalog from the loaded history and
// selects its first stage. An active run keeps its series.
func (s *Scheduler) RegenerateStages(ctx context.Context) Snapshot {
	s.Init(ctx)
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.state
	st.Stages = stage.Select(s.cfg.StageMode, st.Daily)
	st.SelectedStageID = ""
	if len(st.Stages) > 0 {
		st.SelectedStageID = st.Stages[0].ID
	}
	st.Message = fmt.Sprintf("stages regenerated: %d", len(st.Stages))
	s.persistLocked()
	return s.snapshotLocked()
}

func validSpeed(v float64) bool {
	return v > 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}
