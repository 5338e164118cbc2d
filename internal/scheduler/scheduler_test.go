package scheduler

import (
	"bot-arena-go/internal/config"
	"bot-arena-go/internal/history"
	"bot-arena-go/internal/models"
	"bot-arena-go/internal/persistence"
	"bot-arena-go/internal/session"
	"bot-arena-go/internal/stage"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type stubLoader struct {
	points []models.PricePoint
	calls  int
}

func (l *stubLoader) Load(context.Context) ([]models.PricePoint, history.Source) {
	l.calls++
	return l.points, history.SourceSynthetic
}

// mockSessionRepository records saves and signals each one on saveDoneChan.
type mockSessionRepository struct {
	sync.Mutex
	saved        *session.Session
	saveCount    int
	loadSession  *session.Session
	loadError    error
	saveError    error
	saveDoneChan chan bool
}

func newMockSessionRepository() *mockSessionRepository {
	return &mockSessionRepository{saveDoneChan: make(chan bool, 64)}
}

func (m *mockSessionRepository) SaveSession(s *session.Session) error {
	m.Lock()
	defer m.Unlock()
	m.saved = s.Clone()
	m.saveCount++
	select {
	case m.saveDoneChan <- true:
	default:
	}
	return m.saveError
}

func (m *mockSessionRepository) LoadSession() (*session.Session, error) {
	m.Lock()
	defer m.Unlock()
	return m.loadSession, m.loadError
}

func (m *mockSessionRepository) Close() error { return nil }

func (m *mockSessionRepository) lastSaved() *session.Session {
	m.Lock()
	defer m.Unlock()
	return m.saved
}

func testConfig() *models.Config {
	cfg := config.Default()
	cfg.DriverIntervalMs = int(time.Hour / time.Millisecond) // tests drive ticks by hand
	return cfg
}

type harness struct {
	s     *Scheduler
	clock *fakeClock
	cfg   *models.Config
}

func newHarness(t *testing.T, repo persistence.SessionRepository, points []models.PricePoint) *harness {
	t.Helper()
	if points == nil {
		points = history.Synthesize(history.DefaultSeed)
	}
	cfg := testConfig()
	clock := newFakeClock()
	s := New(Deps{
		Config: cfg,
		Loader: &stubLoader{points: points},
		Repo:   repo,
		Logger: zap.NewNop(),
		Clock:  clock.Now,
	})
	t.Cleanup(func() { _ = s.Close() })
	return &harness{s: s, clock: clock, cfg: cfg}
}

// activeDuration is the wall time a whole run takes at speed.
func (h *harness) activeDuration(speed float64) time.Duration {
	return time.Duration(float64(h.cfg.GameDuration()) / speed)
}

func TestInitLoadsStages(t *testing.T) {
	h := newHarness(t, nil, nil)
	snap := h.s.Snapshot(context.Background())

	assert.Equal(t, session.Idle, snap.Status)
	assert.Len(t, snap.Stages, 10)
	assert.Equal(t, "hist_2013_bubble", snap.SelectedStageID)
	assert.Len(t, snap.BotsCatalog, 20)
	assert.Equal(t, 10000.0, snap.InitialCapital)
	assert.Empty(t, snap.Leaderboard)
	assert.Equal(t, 0.0, snap.Progress)
	assert.Contains(t, snap.Message, "10 stages")
}

func TestStartProcessesFirstTick(t *testing.T) {
	h := newHarness(t, nil, nil)
	snap := h.s.Start(context.Background(), "hist_2020_covid", 4)

	assert.Equal(t, session.Running, snap.Status)
	assert.Equal(t, "hist_2020_covid", snap.SelectedStageID)
	assert.Equal(t, 4.0, snap.Speed)
	assert.Equal(t, 0, snap.ProcessedIndex)
	assert.Len(t, snap.ChartSeries, 1)
	assert.Len(t, snap.Leaderboard, 20)
	assert.Len(t, snap.BotStates, 20)
	assert.Nil(t, snap.RunResult)

	// Starting again while running changes nothing.
	again := h.s.Start(context.Background(), "hist_2022_ftx", 1)
	assert.Equal(t, "hist_2020_covid", again.SelectedStageID)
	assert.Equal(t, 4.0, again.Speed)
}

func TestFullDurationFinishesRun(t *testing.T) {
	h := newHarness(t, nil, nil)
	ctx := context.Background()
	start := h.s.Start(ctx, "", 0)
	require.Equal(t, session.Running, start.Status)

	h.clock.Advance(h.activeDuration(start.Speed))
	h.s.Tick()

	snap := h.s.Snapshot(ctx)
	series := int(stage.Span/stage.SeriesStep) + 1
	assert.Equal(t, session.Finished, snap.Status)
	assert.Equal(t, series-1, snap.ProcessedIndex)
	assert.Len(t, snap.ChartSeries, series)
	assert.Equal(t, 100.0, snap.Progress)
	require.NotNil(t, snap.RunResult)
	assert.Equal(t, "hist_2013_bubble", snap.RunResult.StageID)
	assert.Equal(t, start.Speed, snap.RunResult.Speed)
	assert.Len(t, snap.RunResult.Bots, 20)
	assert.Contains(t, snap.Message, "winner")

	// A finished run no longer ticks.
	h.clock.Advance(time.Hour)
	h.s.Tick()
	assert.Equal(t, series-1, h.s.Snapshot(ctx).ProcessedIndex)
}

func TestTickTracksWallClock(t *testing.T) {
	h := newHarness(t, nil, nil)
	ctx := context.Background()
	start := h.s.Start(ctx, "", 2)
	full := h.activeDuration(start.Speed)

	h.clock.Advance(full / 2)
	h.s.Tick()
	assert.Equal(t, 672, h.s.Snapshot(ctx).ProcessedIndex)

	// No time passing means no ticks.
	h.s.Tick()
	assert.Equal(t, 672, h.s.Snapshot(ctx).ProcessedIndex)
}

func TestPauseExcludesPausedTime(t *testing.T) {
	h := newHarness(t, nil, nil)
	ctx := context.Background()
	start := h.s.Start(ctx, "", 2)
	quarter := h.activeDuration(start.Speed) / 4

	h.clock.Advance(quarter)
	snap := h.s.Pause(ctx)
	assert.Equal(t, session.Paused, snap.Status)
	assert.Equal(t, 336, snap.ProcessedIndex)

	h.clock.Advance(time.Hour)
	h.s.Tick()
	assert.Equal(t, 336, h.s.Snapshot(ctx).ProcessedIndex)

	snap = h.s.Resume(ctx)
	assert.Equal(t, session.Running, snap.Status)
	h.s.Tick()
	assert.Equal(t, 336, h.s.Snapshot(ctx).ProcessedIndex)

	h.clock.Advance(quarter)
	h.s.Tick()
	assert.Equal(t, 672, h.s.Snapshot(ctx).ProcessedIndex)
}

func TestInvalidTransitionsAreNoops(t *testing.T) {
	h := newHarness(t, nil, nil)
	ctx := context.Background()

	assert.Equal(t, session.Idle, h.s.Pause(ctx).Status)
	assert.Equal(t, session.Idle, h.s.Resume(ctx).Status)

	h.s.Start(ctx, "", 0)
	assert.Equal(t, session.Running, h.s.Resume(ctx).Status)
}

func TestStartWithoutStages(t *testing.T) {
	short := history.Synthesize(history.DefaultSeed)[:10]
	h := newHarness(t, nil, short)
	snap := h.s.Start(context.Background(), "", 0)

	assert.Equal(t, session.Idle, snap.Status)
	assert.Equal(t, "no stage selected", snap.Message)
	assert.Empty(t, snap.Stages)
}

func TestUpdateOptions(t *testing.T) {
	h := newHarness(t, nil, nil)
	ctx := context.Background()

	snap := h.s.UpdateOptions(ctx, "hist_2024_etf", 8)
	assert.Equal(t, "hist_2024_etf", snap.SelectedStageID)
	assert.Equal(t, 8.0, snap.Speed)

	snap = h.s.UpdateOptions(ctx, "does_not_exist", -1)
	assert.Equal(t, "hist_2024_etf", snap.SelectedStageID)
	assert.Equal(t, 8.0, snap.Speed)
	assert.Contains(t, snap.Message, "unknown stage")

	h.s.Start(ctx, "", 0)
	snap = h.s.UpdateOptions(ctx, "hist_2013_bubble", 1)
	assert.Equal(t, "hist_2024_etf", snap.SelectedStageID)
	assert.Equal(t, 8.0, snap.Speed)
}

func TestStopKeepsRunAndResetClearsIt(t *testing.T) {
	h := newHarness(t, nil, nil)
	ctx := context.Background()
	start := h.s.Start(ctx, "", 0)
	h.clock.Advance(h.activeDuration(start.Speed) / 10)
	h.s.Tick()

	snap := h.s.Stop(ctx)
	assert.Equal(t, session.Idle, snap.Status)
	assert.Len(t, snap.BotStates, 20)
	assert.NotEmpty(t, snap.ChartSeries)
	stoppedAt := snap.ProcessedIndex

	h.clock.Advance(time.Hour)
	h.s.Tick()
	assert.Equal(t, stoppedAt, h.s.Snapshot(ctx).ProcessedIndex)

	snap = h.s.Reset(ctx)
	assert.Equal(t, session.Idle, snap.Status)
	assert.Empty(t, snap.BotStates)
	assert.Empty(t, snap.ChartSeries)
	assert.Empty(t, snap.TradeLogs)
	assert.Nil(t, snap.RunResult)
	assert.Equal(t, 0, snap.ProcessedIndex)
	assert.Len(t, snap.Stages, 10, "reset keeps the catalog")
}

func TestRegenerateStagesSelectsFirst(t *testing.T) {
	h := newHarness(t, nil, nil)
	ctx := context.Background()
	h.s.UpdateOptions(ctx, "hist_2022_ftx", 0)

	snap := h.s.RegenerateStages(ctx)
	assert.Len(t, snap.Stages, 10)
	assert.Equal(t, snap.Stages[0].ID, snap.SelectedStageID)
	assert.Contains(t, snap.Message, "regenerated")
}

func TestBalancesStayNonNegative(t *testing.T) {
	h := newHarness(t, nil, nil)
	ctx := context.Background()
	start := h.s.Start(ctx, "hist_2020_covid", 0)
	step := h.activeDuration(start.Speed) / 40

	for i := 0; i < 40; i++ {
		h.clock.Advance(step)
		h.s.Tick()
		for _, b := range h.s.Snapshot(ctx).BotStates {
			require.GreaterOrEqual(t, b.Cash, 0.0, b.ID)
			require.GreaterOrEqual(t, b.Position, 0.0, b.ID)
		}
	}
	snap := h.s.Snapshot(ctx)
	assert.Equal(t, session.Finished, snap.Status)
	assert.LessOrEqual(t, len(snap.TradeLogs), h.cfg.TradeLogLimit)
}

func TestRestoredRunningSessionIsPaused(t *testing.T) {
	repo := persistence.NewMemoryRepository()
	ctx := context.Background()

	first := newHarness(t, repo, nil)
	start := first.s.Start(ctx, "hist_2021_china_ban", 0)
	first.clock.Advance(first.activeDuration(start.Speed) / 3)
	first.s.Tick()
	before := first.s.Snapshot(ctx)
	require.Equal(t, session.Running, before.Status)
	require.NoError(t, first.s.Close())

	second := newHarness(t, repo, nil)
	loader := second.s.loader.(*stubLoader)
	after := second.s.Snapshot(ctx)

	assert.Equal(t, 0, loader.calls, "history comes from the persisted session")
	assert.Equal(t, session.Paused, after.Status)
	assert.Contains(t, after.Message, "resume")
	assert.Equal(t, before.ProcessedIndex, after.ProcessedIndex)
	assert.Equal(t, before.SelectedStageID, after.SelectedStageID)
	require.Len(t, after.BotStates, len(before.BotStates))
	for i := range before.BotStates {
		assert.Equal(t, before.BotStates[i].ID, after.BotStates[i].ID)
		assert.Equal(t, before.BotStates[i].Cash, after.BotStates[i].Cash)
		assert.Equal(t, before.BotStates[i].Position, after.BotStates[i].Position)
	}

	// The restored run continues from where it stopped once resumed.
	second.s.Resume(ctx)
	second.clock.Advance(second.activeDuration(after.Speed))
	second.s.Tick()
	assert.Equal(t, session.Finished, second.s.Snapshot(ctx).Status)
}

func TestCorruptPersistedStateIsIgnored(t *testing.T) {
	repo := newMockSessionRepository()
	repo.loadError = errors.New("unexpected end of JSON input")

	h := newHarness(t, repo, nil)
	snap := h.s.Snapshot(context.Background())
	assert.Equal(t, session.Idle, snap.Status)
	assert.Len(t, snap.Stages, 10)
}

func TestCommandsPersistAsynchronously(t *testing.T) {
	repo := newMockSessionRepository()
	h := newHarness(t, repo, nil)
	ctx := context.Background()

	h.s.Start(ctx, "", 0)
	deadline := time.After(5 * time.Second)
	for {
		select {
		case <-repo.saveDoneChan:
		case <-deadline:
			t.Fatal("session was never persisted")
		}
		if saved := repo.lastSaved(); saved != nil && saved.Status == session.Running {
			break
		}
	}

	saved := repo.lastSaved()
	assert.Len(t, saved.Competitors, 20)
	assert.False(t, saved.SavedAt.IsZero())
}

func TestSaveFailuresDoNotStopTheRun(t *testing.T) {
	repo := newMockSessionRepository()
	repo.saveError = errors.New("disk full")
	h := newHarness(t, repo, nil)
	ctx := context.Background()

	start := h.s.Start(ctx, "", 0)
	h.clock.Advance(h.activeDuration(start.Speed))
	h.s.Tick()
	assert.Equal(t, session.Finished, h.s.Snapshot(ctx).Status)
	assert.Error(t, h.s.Close())
}

func TestFormatOrderLog(t *testing.T) {
	line := formatOrderLog(models.TickOrder{
		BotID:   "soros",
		BotName: "Soros Reflexive",
		Order: models.Order{
			Side:   models.Buy,
			Price:  64321.456,
			Qty:    0.123456,
			Time:   time.Date(2024, 3, 5, 14, 30, 0, 0, time.UTC),
			Reason: "Soros volatility expansion",
		},
	})
	assert.Equal(t, "[2024-03-05 14:30] Soros Reflexive BUY 0.12346 @ $64,321.46 | Soros volatility expansion", line)
}
