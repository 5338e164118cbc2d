package scheduler

import (
	"bot-arena-go/internal/models"
	"bot-arena-go/internal/session"
	"bot-arena-go/internal/strategy"
	"context"
)

// BotInfo is the static catalog entry of a bot.
type BotInfo struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"desc"`
	Inspiration string `json:"inspiration"`
}

// BotState is the public live state of one competitor.
type BotState struct {
	ID               string          `json:"id"`
	Name             string          `json:"name"`
	Cash             float64         `json:"cash"`
	Position         float64         `json:"position"`
	LastAction       strategy.Action `json:"lastAction"`
	LastActionReason string          `json:"lastActionReason"`
	LastActionTick   int             `json:"lastActionTick"`
	ReturnPct        float64         `json:"ret"`
	Equity           float64         `json:"equity"`
	Trades           int             `json:"trades"`
}

// Snapshot is a point-in-time, read-only projection of the session.
type Snapshot struct {
	Status          session.Status          `json:"status"`
	Message         string                  `json:"message"`
	Speed           float64                 `json:"speed"`
	HistorySource   string                  `json:"historySource"`
	Stages          []models.Stage          `json:"stages"`
	SelectedStageID string                  `json:"selectedStageId"`
	BotsCatalog     []BotInfo               `json:"botsCatalog"`
	Progress        float64                 `json:"progress"`
	ProcessedIndex  int                     `json:"processedIndex"`
	InitialCapital  float64                 `json:"initialCapital"`
	Leaderboard     []models.LeaderboardRow `json:"leaderboard"`
	BotStates       []BotState              `json:"botStates"`
	TradeLogs       []string                `json:"tradeLogs"`
	ChartSeries     []models.PricePoint     `json:"chartSeries"`
	RunResult       *models.RunResult       `json:"runResult"`
}

// Snapshot returns the current projection of the session.
func (s *Scheduler) Snapshot(ctx context.Context) Snapshot {
	s.Init(ctx)
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Scheduler) snapshotLocked() Snapshot {
	st := s.state
	board := s.leaderboardLocked()
	byID := make(map[string]models.LeaderboardRow, len(board))
	for _, row := range board {
		byID[row.ID] = row
	}

	bots := s.registry.Bots()
	catalog := make([]BotInfo, 0, len(bots))
	for _, b := range bots {
		catalog = append(catalog, BotInfo{ID: b.ID, Name: b.Name, Description: b.Description, Inspiration: b.Inspiration})
	}

	states := make([]BotState, 0, len(st.Competitors))
	for _, c := range st.Competitors {
		bs := BotState{
			ID:               c.ID,
			Name:             c.Name,
			Cash:             c.Cash,
			Position:         c.Position,
			LastAction:       c.LastAction,
			LastActionReason: c.LastActionReason,
			LastActionTick:   c.LastActionTick,
			Equity:           s.sim.InitialCapital(),
		}
		if row, ok := byID[c.ID]; ok {
			bs.ReturnPct, bs.Equity, bs.Trades = row.ReturnPct, row.Equity, row.Trades
		}
		states = append(states, bs)
	}

	var progress float64
	var chart []models.PricePoint
	if n := len(st.Series); n > 0 {
		upto := min(max(st.ProcessedIndex, 0), n-1) + 1
		progress = float64(upto) / float64(n) * 100
		chart = append([]models.PricePoint(nil), st.Series[:upto]...)
	}

	var result *models.RunResult
	if st.RunResult != nil {
		rr := *st.RunResult
		rr.Bots = append([]models.BotResult(nil), st.RunResult.Bots...)
		result = &rr
	}

	return Snapshot{
		Status:          st.Status,
		Message:         st.Message,
		Speed:           st.Speed,
		HistorySource:   st.HistorySource,
		Stages:          append([]models.Stage(nil), st.Stages...),
		SelectedStageID: st.SelectedStageID,
		BotsCatalog:     catalog,
		Progress:        progress,
		ProcessedIndex:  st.ProcessedIndex,
		InitialCapital:  s.sim.InitialCapital(),
		Leaderboard:     board,
		BotStates:       states,
		TradeLogs:       append([]string{}, st.TradeLogs...),
		ChartSeries:     chart,
		RunResult:       result,
	}
}
