// Package scheduler owns the process-wide arena session: it drives ticks from
// the wall clock, serves commands and snapshots, and persists the session so a
// restarted process can pick it up again.
package scheduler

import (
	"bot-arena-go/internal/exchange"
	"bot-arena-go/internal/history"
	"bot-arena-go/internal/models"
	"bot-arena-go/internal/observability"
	"bot-arena-go/internal/persistence"
	"bot-arena-go/internal/session"
	"bot-arena-go/internal/simulator"
	"bot-arena-go/internal/stage"
	"bot-arena-go/internal/strategy"
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// HistoryLoader produces the long daily history stages are cut from.
type HistoryLoader interface {
	Load(ctx context.Context) ([]models.PricePoint, history.Source)
}

// Deps are the collaborators of a Scheduler. Only Config and Loader are required.
type Deps struct {
	Config   *models.Config
	Loader   HistoryLoader
	Repo     persistence.SessionRepository // nil keeps the session in memory only
	Registry *strategy.Registry            // defaults to the built-in catalog
	Exchange exchange.Exchange             // defaults to a paper exchange built from Config
	Metrics  *observability.Metrics
	Logger   *zap.Logger
	Clock    func() time.Time
}

// Scheduler is the single owner of the session. All mutation happens under mu,
// either from a command or from the driver goroutine.
type Scheduler struct {
	cfg      *models.Config
	loader   HistoryLoader
	repo     persistence.SessionRepository
	registry *strategy.Registry
	sim      *simulator.Simulator
	metrics  *observability.Metrics
	logger   *zap.Logger
	now      func() time.Time

	initMu sync.Mutex
	ready  bool

	mu          sync.Mutex
	state       *session.Session
	driverStop  chan struct{} // nil while the driver is disarmed
	lastPersist time.Time
	closed      bool

	driverWG        sync.WaitGroup
	persistenceChan chan *session.Session
	stopChan        chan struct{}
	persistDone     chan struct{}
	closeOnce       sync.Once
}

// New creates a scheduler and starts its persistence loop. The session itself
// is loaded lazily by Init or the first command.
func New(deps Deps) *Scheduler {
	if deps.Config == nil {
		panic("scheduler: nil config")
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	registry := deps.Registry
	if registry == nil {
		registry = strategy.DefaultRegistry()
	}
	ex := deps.Exchange
	if ex == nil {
		ex = exchange.NewPaperExchange(deps.Config)
	}

	s := &Scheduler{
		cfg:             deps.Config,
		loader:          deps.Loader,
		repo:            deps.Repo,
		registry:        registry,
		sim:             simulator.New(ex, deps.Config.InitialCapital, logger.Named("simulator")),
		metrics:         deps.Metrics,
		logger:          logger,
		now:             clock,
		state:           session.New(deps.Config.DefaultSpeed),
		persistenceChan: make(chan *session.Session, 16),
		stopChan:        make(chan struct{}),
		persistDone:     make(chan struct{}),
	}
	go s.persistenceLoop()
	return s
}

// Init loads the persisted session and the price history if that has not
// happened yet. Every command calls it, so calling it up front is optional.
func (s *Scheduler) Init(ctx context.Context) {
	s.initMu.Lock()
	defer s.initMu.Unlock()
	if s.ready {
		return
	}

	restored := s.restore()

	s.mu.Lock()
	if restored != nil {
		s.state = restored
	}
	needData := !s.state.Initialized || len(s.state.Stages) == 0 || len(s.state.Daily) == 0
	s.mu.Unlock()

	if needData {
		var (
			daily  []models.PricePoint
			source history.Source = history.SourceSynthetic
		)
		if s.loader != nil {
			daily, source = s.loader.Load(ctx)
		} else {
			daily = history.Synthesize(s.cfg.SyntheticSeed)
		}
		stages := stage.Select(s.cfg.StageMode, daily)
		s.metrics.RecordHistoryLoad(string(source))

		s.mu.Lock()
		st := s.state
		st.Daily = daily
		st.HistorySource = string(source)
		st.Stages = stages
		st.SelectedStageID = ""
		if len(stages) > 0 {
			st.SelectedStageID = stages[0].ID
		}
		st.Initialized = true
		st.Message = fmt.Sprintf("ready: %d stages / %d bots", len(stages), len(s.registry.Bots()))
		s.mu.Unlock()
		s.logger.Info("session data ready",
			zap.String("source", string(source)), zap.Int("days", len(daily)), zap.Int("stages", len(stages)))
	}

	s.mu.Lock()
	if s.state.Status == session.Running {
		s.state.Status = session.Paused
		s.state.PausedAt = s.state.SavedAt
		if s.state.PausedAt.IsZero() || s.state.PausedAt.After(s.now()) {
			s.state.PausedAt = s.now()
		}
		s.state.Message = "paused by a server restart; resume to continue"
		s.logger.Info("restored a running session as paused", zap.Int("processedIndex", s.state.ProcessedIndex))
	}
	s.publishStatus()
	s.persistLocked()
	s.mu.Unlock()

	s.ready = true
}

// restore reads the persisted session. An unreadable record is ignored.
func (s *Scheduler) restore() *session.Session {
	if s.repo == nil {
		return nil
	}
	saved, err := s.repo.LoadSession()
	if err != nil {
		s.logger.Warn("ignoring unreadable persisted session", zap.Error(err))
		return nil
	}
	if saved == nil {
		return nil
	}

	saved.Competitors = simulator.Rehydrate(saved.Competitors, s.registry)
	if !(saved.Speed > 0) {
		saved.Speed = s.cfg.DefaultSpeed
	}
	switch saved.Status {
	case session.Running, session.Paused:
		if len(saved.Series) == 0 || len(saved.Competitors) == 0 {
			saved.Status = session.Idle
		}
	case session.Idle, session.Finished:
	default:
		saved.Status = session.Idle
	}
	if saved.ProcessedIndex >= len(saved.Series) {
		saved.ProcessedIndex = max(0, len(saved.Series)-1)
	}
	s.logger.Info("persisted session loaded",
		zap.String("status", string(saved.Status)), zap.Int("competitors", len(saved.Competitors)))
	return saved
}

// Close stops the driver and the persistence loop, then saves the session one
// last time. The repository itself is left open for the caller to close.
func (s *Scheduler) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.disarmLocked()
		s.closed = true
		final := s.state.Clone()
		final.SavedAt = s.now()
		s.mu.Unlock()

		s.driverWG.Wait()
		close(s.stopChan)
		<-s.persistDone
		err = s.save(final)
	})
	return err
}

// armLocked starts the driver goroutine unless it is already running.
func (s *Scheduler) armLocked() {
	if s.driverStop != nil || s.closed {
		return
	}
	stop := make(chan struct{})
	s.driverStop = stop
	s.driverWG.Add(1)
	go s.drive(stop)
}

// disarmLocked signals the driver to exit without waiting for it.
func (s *Scheduler) disarmLocked() {
	if s.driverStop != nil {
		close(s.driverStop)
		s.driverStop = nil
	}
}

func (s *Scheduler) drive(stop chan struct{}) {
	defer s.driverWG.Done()
	interval := s.cfg.DriverInterval()
	if interval <= 0 {
		interval = 250 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			s.mu.Lock()
			select {
			case <-stop:
				s.mu.Unlock()
				return
			default:
			}
			s.tickLocked()
			s.mu.Unlock()
		}
	}
}

// Tick runs one driver step: it advances the run to where the wall clock says
// it should be. The driver calls it periodically; tests may call it directly.
func (s *Scheduler) Tick() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tickLocked()
}

func (s *Scheduler) tickLocked() {
	st := s.state
	if st.Status != session.Running || len(st.Series) == 0 {
		return
	}

	target := s.targetIndexLocked()
	advanced := 0
	for st.ProcessedIndex < target {
		st.ProcessedIndex++
		s.advanceLocked(st.ProcessedIndex)
		advanced++
	}
	if advanced > 0 {
		s.metrics.RecordTicks(advanced, st.ProcessedIndex)
	}

	if st.ProcessedIndex >= len(st.Series)-1 {
		s.finalizeLocked()
		return
	}
	if advanced > 0 && s.now().Sub(s.lastPersist) >= s.cfg.PersistInterval() {
		s.persistLocked()
	}
}

// targetIndexLocked maps active elapsed time onto the series. The whole
// series spans GameDuration/speed of active time.
func (s *Scheduler) targetIndexLocked() int {
	st := s.state
	last := len(st.Series) - 1
	if last <= 0 {
		return 0
	}
	elapsed := s.now().Sub(st.StartedAt) - st.PausedTotal
	if elapsed <= 0 {
		return 0
	}
	effective := time.Duration(float64(s.cfg.GameDuration()) / st.Speed)
	if effective <= 0 || elapsed >= effective {
		return last
	}
	return int(int64(elapsed) * int64(last) / int64(effective))
}

// advanceLocked runs the simulator at index and records the orders.
func (s *Scheduler) advanceLocked(index int) {
	st := s.state
	res := s.sim.AdvanceTick(st.Competitors, st.Series, index)
	if len(res.Orders) == 0 {
		return
	}
	lines := make([]string, 0, len(res.Orders))
	for _, o := range res.Orders {
		lines = append(lines, formatOrderLog(o))
		s.metrics.RecordOrder(string(o.Side))
	}
	st.PushTradeLogs(lines, s.cfg.TradeLogLimit)
}

func (s *Scheduler) finalizeLocked() {
	st := s.state
	board := s.leaderboardLocked()
	now := s.now()
	result := simulator.BuildRunResult(simulator.NewRunID(now), st.SelectedStageID, st.Speed, board, now)

	st.Status = session.Finished
	st.RunResult = &result
	st.Message = "finished"
	if len(board) > 0 {
		st.Message = fmt.Sprintf("finished. winner: %s (%.2f%%)", board[0].Name, board[0].ReturnPct)
	}
	s.disarmLocked()
	s.metrics.RecordRunFinished()
	s.publishStatus()
	s.logger.Info("run finished", zap.String("runId", result.RunID), zap.String("stage", result.StageID))
	s.logger.Sugar().Infof("final standings:\n%s", renderResult(result))
	s.persistLocked()
}

func (s *Scheduler) leaderboardLocked() []models.LeaderboardRow {
	st := s.state
	if len(st.Series) == 0 || len(st.Competitors) == 0 {
		return []models.LeaderboardRow{}
	}
	idx := min(max(st.ProcessedIndex, 0), len(st.Series)-1)
	return s.sim.Leaderboard(st.Competitors, st.Series[idx].Price)
}

func (s *Scheduler) publishStatus() {
	s.metrics.SetStatus(string(s.state.Status),
		string(session.Idle), string(session.Running), string(session.Paused), string(session.Finished))
}
