package scheduler

import (
	"bot-arena-go/internal/session"
	"time"

	"go.uber.org/zap"
)

// persistLocked queues a copy of the session for the persistence loop. It
// never blocks: with the queue full the copy is dropped, the next one wins.
func (s *Scheduler) persistLocked() {
	now := s.now()
	s.lastPersist = now
	if s.repo == nil || s.closed {
		return
	}
	snap := s.state.Clone()
	snap.SavedAt = now
	select {
	case s.persistenceChan <- snap:
	default:
		s.logger.Warn("persistence queue full, dropping session copy")
	}
}

// persistenceLoop saves queued session copies in order.
func (s *Scheduler) persistenceLoop() {
	defer close(s.persistDone)
	for {
		select {
		case snap := <-s.persistenceChan:
			_ = s.save(snap)
		case <-s.stopChan:
			return
		}
	}
}

func (s *Scheduler) save(snap *session.Session) error {
	if s.repo == nil {
		return nil
	}
	start := time.Now()
	err := s.repo.SaveSession(snap)
	s.metrics.RecordPersist(time.Since(start), err)
	if err != nil {
		s.logger.Error("failed to save session", zap.Error(err))
	}
	return err
}
