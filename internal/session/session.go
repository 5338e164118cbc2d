// Package session defines the single mutable root of an arena run and its
// serialized form.
package session

import (
	"bot-arena-go/internal/models"
	"bot-arena-go/internal/simulator"
	"time"
)

// Status is the lifecycle state of a session.
type Status string

const (
	Idle     Status = "idle"
	Running  Status = "running"
	Paused   Status = "paused"
	Finished Status = "finished"
)

// Session is everything a run needs to be resumed after a restart. Decision
// rules are not part of it; competitors are re-linked to the catalog on load.
type Session struct {
	Initialized     bool                    `json:"initialized"`
	Status          Status                  `json:"status"`
	Message         string                  `json:"message"`
	Speed           float64                 `json:"speed"`
	SelectedStageID string                  `json:"selectedStageId"`
	HistorySource   string                  `json:"historySource"`
	Daily           []models.PricePoint     `json:"daily"`
	Stages          []models.Stage          `json:"stages"`
	Series          []models.PricePoint     `json:"series"`
	Competitors     []*simulator.Competitor `json:"competitors"`
	ProcessedIndex  int                     `json:"processedIndex"`
	StartedAt       time.Time               `json:"startedAt"`
	PausedAt        time.Time               `json:"pausedAt"`
	PausedTotal     time.Duration           `json:"pausedTotal"` // accumulated pause time of the current run
	TradeLogs       []string                `json:"tradeLogs"`   // newest first
	RunResult       *models.RunResult       `json:"runResult"`
	SavedAt         time.Time               `json:"savedAt"`
}

// New returns the state of a process that has not loaded anything yet.
func New(speed float64) *Session {
	return &Session{Status: Idle, Message: "initializing", Speed: speed}
}

// Clone returns a deep copy safe to hand to another goroutine. Price
// histories and stages are never mutated in place, so they are shared.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	cp := *s
	if s.Competitors != nil {
		cp.Competitors = make([]*simulator.Competitor, len(s.Competitors))
		for i, c := range s.Competitors {
			cp.Competitors[i] = c.Clone()
		}
	}
	cp.TradeLogs = append([]string(nil), s.TradeLogs...)
	if s.RunResult != nil {
		rr := *s.RunResult
		rr.Bots = append([]models.BotResult(nil), s.RunResult.Bots...)
		cp.RunResult = &rr
	}
	return &cp
}

// PushTradeLogs prepends lines, given oldest first, and keeps at most limit entries.
func (s *Session) PushTradeLogs(lines []string, limit int) {
	if len(lines) == 0 {
		return
	}
	merged := make([]string, 0, len(lines)+len(s.TradeLogs))
	for i := len(lines) - 1; i >= 0; i-- {
		merged = append(merged, lines[i])
	}
	merged = append(merged, s.TradeLogs...)
	if limit > 0 && len(merged) > limit {
		merged = merged[:limit]
	}
	s.TradeLogs = merged
}
