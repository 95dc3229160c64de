package rotation

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/genricoloni/nowshowing/internal/domain"
	"github.com/genricoloni/nowshowing/internal/domain/mocks"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap"
)

const testSpeed = 1000 * time.Millisecond

// recordingPresenter captures every call made by the controller
type recordingPresenter struct {
	mu          sync.Mutex
	states      []domain.State
	trailers    []string
	clears      int
	sessions    []domain.AudioSession
	stopped     []domain.AudioSession
	nextSession int
}

func (p *recordingPresenter) Publish(s domain.State) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.states = append(p.states, s)
}

func (p *recordingPresenter) PlayTrailer(path string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.trailers = append(p.trailers, path)
}

func (p *recordingPresenter) ClearTrailer() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.clears++
}

func (p *recordingPresenter) PlayThemeMusic(path string) domain.AudioSession {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.nextSession++
	s := domain.AudioSession{ID: fmt.Sprintf("s%d", p.nextSession), Path: path}
	p.sessions = append(p.sessions, s)
	return s
}

func (p *recordingPresenter) StopThemeMusic(s domain.AudioSession) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopped = append(p.stopped, s)
}

func (p *recordingPresenter) stopCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.stopped)
}

func makePosters(n int) []domain.Poster {
	posters := make([]domain.Poster, n)
	for i := range posters {
		posters[i] = domain.Poster{
			ID:             int64(i + 1),
			Name:           fmt.Sprintf("Poster %d", i+1),
			ShowInRotation: true,
			// A stale show flag from the backend must be ignored
			Show: true,
		}
	}
	return posters
}

func testSettings() domain.Settings {
	s := domain.DefaultSettings()
	s.PosterDisplaySpeed = int(testSpeed / time.Millisecond)
	return s
}

func newTestController(t *testing.T, catalog domain.Catalog) (*Controller, *fakeClock, *recordingPresenter) {
	t.Helper()
	clock := newFakeClock()
	presenter := &recordingPresenter{}
	c := NewController(zap.NewNop(), catalog, presenter, nil, Options{Clock: clock})
	return c, clock, presenter
}

func activeName(t *testing.T, c *Controller) string {
	t.Helper()
	if n := c.ActiveCount(); n != 1 {
		t.Fatalf("expected exactly one active poster, got %d", n)
	}
	state := c.Snapshot()
	if state.Poster == nil {
		t.Fatal("expected an active poster in the snapshot")
	}
	return state.Poster.Name
}

func TestInitialize_SingleActiveAndSettle(t *testing.T) {
	c, clock, _ := newTestController(t, nil)

	first, err := c.Initialize(makePosters(3), testSettings())
	if err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	if first.ID != 1 {
		t.Errorf("expected first poster ID 1, got %d", first.ID)
	}
	if got := activeName(t, c); got != "Poster 1" {
		t.Errorf("expected Poster 1 active, got %s", got)
	}
	if !c.Snapshot().Loading {
		t.Error("expected loading until the settle delay elapses")
	}

	clock.Advance(12 * time.Second)
	state := c.Snapshot()
	if state.Loading {
		t.Error("expected loading cleared after the settle delay")
	}
	if state.LoadingMessage != LoadingMessage {
		t.Errorf("expected loading message reset, got %q", state.LoadingMessage)
	}

	clock.Advance(testSpeed)
	if got := activeName(t, c); got != "Poster 2" {
		t.Errorf("expected rotation to Poster 2, got %s", got)
	}
}

func TestInitialize_EmptyCatalog(t *testing.T) {
	c, clock, _ := newTestController(t, nil)

	_, err := c.Initialize(nil, testSettings())
	if !errors.Is(err, domain.ErrEmptyCatalog) {
		t.Fatalf("expected ErrEmptyCatalog, got %v", err)
	}

	state := c.Snapshot()
	if !state.Loading || state.LoadingMessage != EmptyMessage {
		t.Errorf("expected empty guidance state, got loading=%v message=%q", state.Loading, state.LoadingMessage)
	}
	if state.Poster != nil {
		t.Error("expected no active poster")
	}
	if n := len(clock.pending()); n != 0 {
		t.Errorf("expected no timers scheduled, got %d", n)
	}
	if _, err := c.Advance(); !errors.Is(err, domain.ErrEmptyCatalog) {
		t.Errorf("Advance on empty catalog: expected ErrEmptyCatalog, got %v", err)
	}
}

func TestAdvance_CyclicOrder(t *testing.T) {
	tests := []struct {
		name     string
		size     int
		steps    int
		expected []string
	}{
		{name: "Single poster stays", size: 1, steps: 2, expected: []string{"Poster 1", "Poster 1"}},
		{name: "Wraps around", size: 3, steps: 4, expected: []string{"Poster 2", "Poster 3", "Poster 1", "Poster 2"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _, _ := newTestController(t, nil)
			if _, err := c.Initialize(makePosters(tt.size), testSettings()); err != nil {
				t.Fatalf("Initialize failed: %v", err)
			}

			for i := 0; i < tt.steps; i++ {
				poster, err := c.Advance()
				if err != nil {
					t.Fatalf("Advance failed: %v", err)
				}
				if poster.Name != tt.expected[i] {
					t.Errorf("step %d: expected %s, got %s", i, tt.expected[i], poster.Name)
				}
				if got := activeName(t, c); got != tt.expected[i] {
					t.Errorf("step %d: snapshot shows %s", i, got)
				}
			}
		})
	}
}

func TestAdvance_RandomOrderKeepsOneActive(t *testing.T) {
	picks := []int{2, 2, 0, 1}
	clock := newFakeClock()
	c := NewController(zap.NewNop(), nil, &recordingPresenter{}, nil, Options{
		Clock: clock,
		Intn: func(n int) int {
			v := picks[0]
			picks = picks[1:]
			return v
		},
	})

	settings := testSettings()
	settings.RandomOrder = true
	first, err := c.Initialize(makePosters(3), settings)
	if err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	if first.ID != 3 {
		t.Errorf("expected random first poster ID 3, got %d", first.ID)
	}

	// Repeating the current index still leaves one active poster
	for _, want := range []string{"Poster 3", "Poster 1", "Poster 2"} {
		if _, err := c.Advance(); err != nil {
			t.Fatalf("Advance failed: %v", err)
		}
		if got := activeName(t, c); got != want {
			t.Errorf("expected %s, got %s", want, got)
		}
	}
}

func TestAdvance_ClearsSideEffects(t *testing.T) {
	c, _, presenter := newTestController(t, nil)

	posters := makePosters(2)
	posters[0].TrailerPath = "dune.mp4"
	posters[0].ShowTrailer = true
	posters[0].PlayThemeMusic = true
	posters[0].ThemeMusicPath = "dune.mp3"

	settings := testSettings()
	settings.PlayThemeMusic = true
	if _, err := c.Initialize(posters, settings); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}

	if len(presenter.trailers) != 1 || presenter.trailers[0] != "dune.mp4" {
		t.Errorf("expected trailer dune.mp4 to start, got %v", presenter.trailers)
	}
	state := c.Snapshot()
	if state.ThemeMusic == nil || state.ThemeMusic.Path != "dune.mp3" {
		t.Fatalf("expected theme music session, got %+v", state.ThemeMusic)
	}
	session := *state.ThemeMusic

	c.SetVideoPlaying(true)
	if _, err := c.Advance(); err != nil {
		t.Fatalf("Advance failed: %v", err)
	}

	state = c.Snapshot()
	if state.VideoPlaying {
		t.Error("expected video_playing cleared on advance")
	}
	if state.ThemeMusic != nil {
		t.Error("expected theme music cleared on advance")
	}
	if presenter.clears == 0 {
		t.Error("expected trailer to be cleared")
	}
	if presenter.stopCount() != 1 || presenter.stopped[0] != session {
		t.Errorf("expected session %v stopped, got %v", session, presenter.stopped)
	}
}

func TestBoot_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	catalog := mocks.NewMockCatalog(ctrl)

	settings := testSettings()
	settings.TransitionType = "slide"
	catalog.EXPECT().GetSettings(gomock.Any()).Return(settings, nil)
	catalog.EXPECT().ListPosters(gomock.Any()).Return(makePosters(2), nil)

	c, clock, _ := newTestController(t, catalog)
	if err := c.Boot(context.Background()); err != nil {
		t.Fatalf("Boot failed: %v", err)
	}

	if got := activeName(t, c); got != "Poster 1" {
		t.Errorf("expected Poster 1 active, got %s", got)
	}
	if tt := c.Snapshot().TransitionType; tt != "slide" {
		t.Errorf("expected transition slide, got %s", tt)
	}
	// settle timer plus cache refresh timer
	if n := len(clock.pending()); n != 2 {
		t.Errorf("expected 2 pending timers, got %d", n)
	}
}

func TestBoot_FetchFailuresLeaveStateUnchanged(t *testing.T) {
	boom := &domain.FetchError{Op: "list_posters", Err: errors.New("connection refused")}

	t.Run("Settings failure", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		catalog := mocks.NewMockCatalog(ctrl)
		catalog.EXPECT().GetSettings(gomock.Any()).Return(domain.Settings{}, boom)

		c, _, _ := newTestController(t, catalog)
		err := c.Boot(context.Background())
		if !domain.IsFetchError(err) {
			t.Fatalf("expected FetchError, got %v", err)
		}
		state := c.Snapshot()
		if !state.Loading || state.Poster != nil || state.LoadingMessage != LoadingMessage {
			t.Errorf("state changed after failed boot: %+v", state)
		}
	})

	t.Run("Posters failure", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		catalog := mocks.NewMockCatalog(ctrl)
		catalog.EXPECT().GetSettings(gomock.Any()).Return(testSettings(), nil)
		catalog.EXPECT().ListPosters(gomock.Any()).Return(nil, boom)

		c, _, _ := newTestController(t, catalog)
		if err := c.Boot(context.Background()); !errors.Is(err, boom) {
			t.Fatalf("expected wrapped error, got %v", err)
		}
		state := c.Snapshot()
		if state.Poster != nil || state.CatalogSize != 0 {
			t.Errorf("expected no catalog, got %+v", state)
		}
	})
}

func TestReload_StaleTimerIsNoop(t *testing.T) {
	ctrl := gomock.NewController(t)
	catalog := mocks.NewMockCatalog(ctrl)
	catalog.EXPECT().GetSettings(gomock.Any()).Return(testSettings(), nil).Times(2)
	catalog.EXPECT().ListPosters(gomock.Any()).Return(makePosters(3), nil).Times(2)

	c, clock, _ := newTestController(t, catalog)
	if err := c.Boot(context.Background()); err != nil {
		t.Fatalf("Boot failed: %v", err)
	}
	clock.Advance(12 * time.Second)
	if _, err := c.Advance(); err != nil {
		t.Fatalf("Advance failed: %v", err)
	}

	pending := clock.pending()
	if len(pending) == 0 {
		t.Fatal("expected a pending rotation timer")
	}
	stale := pending[0]

	if err := c.Reload(context.Background()); err != nil {
		t.Fatalf("Reload failed: %v", err)
	}
	before := c.Snapshot()
	if !before.Loading || before.Poster == nil || before.Poster.ID != 1 {
		t.Fatalf("unexpected state after reload: %+v", before)
	}

	// A callback that raced the cancel must not touch the new state
	stale.f()
	after := c.Snapshot()
	if after.Loading != before.Loading || after.Poster.ID != before.Poster.ID {
		t.Errorf("stale callback mutated state: before %+v after %+v", before, after)
	}
	if n := c.ActiveCount(); n != 1 {
		t.Errorf("expected one active poster, got %d", n)
	}
}

func TestReload_StaleSettleCallbackIsNoop(t *testing.T) {
	ctrl := gomock.NewController(t)
	catalog := mocks.NewMockCatalog(ctrl)
	catalog.EXPECT().GetSettings(gomock.Any()).Return(testSettings(), nil).Times(2)
	catalog.EXPECT().ListPosters(gomock.Any()).Return(makePosters(3), nil).Times(2)

	c, clock, _ := newTestController(t, catalog)
	if err := c.Boot(context.Background()); err != nil {
		t.Fatalf("Boot failed: %v", err)
	}
	// settle fires first, the cache refresh hours later
	stale := clock.pending()[0]

	if err := c.Reload(context.Background()); err != nil {
		t.Fatalf("Reload failed: %v", err)
	}

	stale.f()
	state := c.Snapshot()
	if !state.Loading || state.LoadingMessage != ReloadingMessage {
		t.Errorf("stale settle ended the reload loading window: %+v", state)
	}
}

func TestReload_StaleRefreshCallbackIsNoop(t *testing.T) {
	ctrl := gomock.NewController(t)
	catalog := mocks.NewMockCatalog(ctrl)
	catalog.EXPECT().GetSettings(gomock.Any()).Return(testSettings(), nil).Times(2)
	catalog.EXPECT().ListPosters(gomock.Any()).Return(makePosters(3), nil).Times(2)
	catalog.EXPECT().RefreshPosterCache(gomock.Any()).Return(makePosters(7), nil).Times(0)

	c, clock, _ := newTestController(t, catalog)
	if err := c.Boot(context.Background()); err != nil {
		t.Fatalf("Boot failed: %v", err)
	}
	pending := clock.pending()
	stale := pending[len(pending)-1]

	if err := c.Reload(context.Background()); err != nil {
		t.Fatalf("Reload failed: %v", err)
	}
	before := c.Snapshot().CatalogSize
	timersBefore := len(clock.pending())

	stale.f()

	if after := c.Snapshot().CatalogSize; after != before {
		t.Errorf("stale refresh replaced the reloaded catalog: %d -> %d", before, after)
	}
	if n := len(clock.pending()); n != timersBefore {
		t.Errorf("stale refresh re-armed itself: %d timers, want %d", n, timersBefore)
	}
}

func TestRefreshTimer_AppliesCache(t *testing.T) {
	ctrl := gomock.NewController(t)
	catalog := mocks.NewMockCatalog(ctrl)
	settings := testSettings()
	settings.PosterDisplaySpeed = int(time.Hour / time.Millisecond)
	catalog.EXPECT().GetSettings(gomock.Any()).Return(settings, nil)
	catalog.EXPECT().ListPosters(gomock.Any()).Return(makePosters(3), nil)
	catalog.EXPECT().RefreshPosterCache(gomock.Any()).Return(makePosters(7), nil)

	c, clock, _ := newTestController(t, catalog)
	if err := c.Boot(context.Background()); err != nil {
		t.Fatalf("Boot failed: %v", err)
	}

	clock.Advance(4 * time.Hour)

	if size := c.Snapshot().CatalogSize; size != 7 {
		t.Errorf("expected refreshed catalog of 7, got %d", size)
	}
}

func TestInitialize_DiscardsInFlightBoot(t *testing.T) {
	ctrl := gomock.NewController(t)
	catalog := mocks.NewMockCatalog(ctrl)

	c, _, _ := newTestController(t, catalog)
	catalog.EXPECT().GetSettings(gomock.Any()).Return(testSettings(), nil)
	catalog.EXPECT().ListPosters(gomock.Any()).DoAndReturn(func(context.Context) ([]domain.Poster, error) {
		if _, err := c.Initialize(makePosters(5), testSettings()); err != nil {
			t.Errorf("Initialize failed: %v", err)
		}
		return makePosters(3), nil
	})

	if err := c.Boot(context.Background()); err != nil {
		t.Fatalf("Boot failed: %v", err)
	}
	if size := c.Snapshot().CatalogSize; size != 5 {
		t.Errorf("expected the directly installed catalog of 5, got %d", size)
	}
}

func TestReload_ShowsReloadingMessage(t *testing.T) {
	ctrl := gomock.NewController(t)
	catalog := mocks.NewMockCatalog(ctrl)
	catalog.EXPECT().GetSettings(gomock.Any()).Return(domain.Settings{}, errors.New("down"))

	c, _, presenter := newTestController(t, catalog)
	_ = c.Reload(context.Background())

	if len(presenter.states) == 0 {
		t.Fatal("expected a published state")
	}
	if msg := presenter.states[0].LoadingMessage; msg != ReloadingMessage {
		t.Errorf("expected %q, got %q", ReloadingMessage, msg)
	}
}

func TestRefreshFromCache_DiscardedAfterStop(t *testing.T) {
	ctrl := gomock.NewController(t)
	catalog := mocks.NewMockCatalog(ctrl)

	c, _, _ := newTestController(t, catalog)
	if _, err := c.Initialize(makePosters(2), testSettings()); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}

	catalog.EXPECT().RefreshPosterCache(gomock.Any()).DoAndReturn(func(context.Context) ([]domain.Poster, error) {
		c.Stop()
		return makePosters(5), nil
	})

	if err := c.RefreshFromCache(context.Background()); err != nil {
		t.Fatalf("RefreshFromCache failed: %v", err)
	}
	if size := c.Snapshot().CatalogSize; size != 2 {
		t.Errorf("expected stale refresh to be discarded, catalog size %d", size)
	}
}

func TestRefreshCatalog(t *testing.T) {
	t.Run("Keeps active poster", func(t *testing.T) {
		c, _, presenter := newTestController(t, nil)
		posters := makePosters(3)
		posters[1].PlayThemeMusic = true
		posters[1].ThemeMusicPath = "theme.mp3"
		settings := testSettings()
		settings.PlayThemeMusic = true

		if _, err := c.Initialize(posters, settings); err != nil {
			t.Fatalf("Initialize failed: %v", err)
		}
		if _, err := c.Advance(); err != nil {
			t.Fatalf("Advance failed: %v", err)
		}
		stops := presenter.stopCount()

		updated := []domain.Poster{posters[2], posters[1], {ID: 9, Name: "Poster 9"}}
		updated[1].Name = "Poster 2 (remastered)"
		c.RefreshCatalog(updated)

		if got := activeName(t, c); got != "Poster 2 (remastered)" {
			t.Errorf("expected refreshed active poster, got %s", got)
		}
		if presenter.stopCount() != stops {
			t.Error("theme music should keep playing when the active poster survives")
		}
		if c.Snapshot().CatalogSize != 3 {
			t.Errorf("expected catalog size 3, got %d", c.Snapshot().CatalogSize)
		}
	})

	t.Run("Active poster removed", func(t *testing.T) {
		c, _, _ := newTestController(t, nil)
		if _, err := c.Initialize(makePosters(3), testSettings()); err != nil {
			t.Fatalf("Initialize failed: %v", err)
		}
		c.RefreshCatalog([]domain.Poster{{ID: 7, Name: "Poster 7"}, {ID: 8, Name: "Poster 8"}})

		if got := activeName(t, c); got != "Poster 7" {
			t.Errorf("expected first poster activated, got %s", got)
		}
	})

	t.Run("Empty refresh", func(t *testing.T) {
		c, clock, _ := newTestController(t, nil)
		if _, err := c.Initialize(makePosters(3), testSettings()); err != nil {
			t.Fatalf("Initialize failed: %v", err)
		}
		c.RefreshCatalog(nil)

		state := c.Snapshot()
		if state.Poster != nil || state.LoadingMessage != EmptyMessage {
			t.Errorf("expected empty guidance state, got %+v", state)
		}
		if n := len(clock.pending()); n != 0 {
			t.Errorf("expected no timers after empty refresh, got %d", n)
		}
	})

	t.Run("Refresh during loading uses short settle", func(t *testing.T) {
		c, clock, _ := newTestController(t, nil)
		if _, err := c.Initialize(makePosters(3), testSettings()); err != nil {
			t.Fatalf("Initialize failed: %v", err)
		}
		c.RefreshCatalog(makePosters(4))

		clock.Advance(5 * time.Second)
		if c.Snapshot().Loading {
			t.Error("expected loading cleared after the refresh settle delay")
		}
	})
}

func TestApplyPlaybackState(t *testing.T) {
	c, _, _ := newTestController(t, nil)

	if c.ApplyPlaybackState("buffering") {
		t.Error("unknown state must be ignored")
	}
	if !c.ApplyPlaybackState("playing") {
		t.Fatal("expected transition to now playing")
	}
	if c.ApplyPlaybackState("playing") {
		t.Error("repeated playing must not report a change")
	}

	c.SetNowPlayingDetails(domain.NowPlayingDetails{Title: "Dune", PosterURL: "http://plex/art"})
	state := c.Snapshot()
	if !state.NowPlaying || state.NowPlayingDetails == nil || state.NowPlayingDetails.Title != "Dune" {
		t.Errorf("expected now playing details, got %+v", state)
	}

	if !c.ApplyPlaybackState("paused") {
		t.Fatal("expected transition to idle")
	}
	state = c.Snapshot()
	if state.NowPlaying || state.NowPlayingDetails != nil {
		t.Errorf("expected override cleared, got %+v", state)
	}

	c.SetNowPlayingDetails(domain.NowPlayingDetails{Title: "Late"})
	if c.Snapshot().NowPlayingDetails != nil {
		t.Error("details must be ignored while idle")
	}
}
