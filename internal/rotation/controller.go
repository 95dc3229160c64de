package rotation

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/genricoloni/nowshowing/internal/domain"
	"github.com/genricoloni/nowshowing/internal/metrics"
	"github.com/genricoloni/nowshowing/internal/nowplaying"
	"go.uber.org/zap"
)

const (
	// LoadingMessage is shown while posters load
	LoadingMessage = "Loading Posters ..."
	// ReloadingMessage is shown after an explicit reload
	ReloadingMessage = "Re-loading Posters ..."
	// EmptyMessage guides the user when no poster is flagged for rotation
	EmptyMessage = "You do not have any posters loaded yet. Open this application in a browser and click here to manage your poster library."
)

// Options configures controller delays. Zero values use the defaults.
type Options struct {
	SettleDelay          time.Duration
	RefreshSettleDelay   time.Duration
	CacheRefreshInterval time.Duration
	Clock                Clock
	// Intn returns a uniform index in [0, n); defaults to math/rand/v2
	Intn func(n int) int
}

func (o Options) withDefaults() Options {
	if o.SettleDelay <= 0 {
		o.SettleDelay = 12 * time.Second
	}
	if o.RefreshSettleDelay <= 0 {
		o.RefreshSettleDelay = 5 * time.Second
	}
	if o.CacheRefreshInterval <= 0 {
		o.CacheRefreshInterval = 4 * time.Hour
	}
	if o.Clock == nil {
		o.Clock = RealClock{}
	}
	if o.Intn == nil {
		o.Intn = rand.Intn
	}
	return o
}

// timerSlot is an owned timer. A callback only runs if its seq still matches,
// so a timer that fired concurrently with a cancel is a no-op.
type timerSlot struct {
	timer Timer
	seq   uint64
}

// Controller owns the rotation state: the catalog, the active poster, the
// loading flags and the transient playback flags. Every mutation happens
// under mu, which plays the part of a single event loop.
type Controller struct {
	logger    *zap.Logger
	catalog   domain.Catalog
	presenter domain.Presenter
	metrics   *metrics.Metrics
	opts      Options

	mu             sync.Mutex
	generation     uint64
	seq            uint64
	settings       domain.Settings
	posters        []domain.Poster
	current        int
	loading        bool
	loadingMessage string
	rotating       bool
	presentation   *domain.PresentationFlags
	override       nowplaying.Override
	details        *domain.NowPlayingDetails
	videoPlaying   bool
	themeMusic     *domain.AudioSession

	settle     timerSlot
	rotation   timerSlot
	refresh    Timer
	refreshCtx context.Context
}

// NewController creates a controller in its initial loading state
func NewController(
	logger *zap.Logger,
	catalog domain.Catalog,
	presenter domain.Presenter,
	m *metrics.Metrics,
	opts Options,
) *Controller {
	return &Controller{
		logger:         logger,
		catalog:        catalog,
		presenter:      presenter,
		metrics:        m,
		opts:           opts.withDefaults(),
		settings:       domain.DefaultSettings(),
		current:        -1,
		loading:        true,
		loadingMessage: LoadingMessage,
	}
}

// Boot fetches settings and posters and initializes the rotation. Fetch
// failures are returned as *domain.FetchError and leave the state untouched.
// Results that arrive after a Reload or Stop are discarded.
func (c *Controller) Boot(ctx context.Context) error {
	gen := c.currentGeneration()

	settings, err := c.catalog.GetSettings(ctx)
	if err != nil {
		c.fetchFailed("get_settings", err)
		return err
	}

	c.mu.Lock()
	if gen != c.generation {
		c.mu.Unlock()
		return nil
	}
	c.settings = settings
	c.armRefreshLocked(ctx, gen)
	c.publishLocked()
	c.mu.Unlock()

	posters, err := c.catalog.ListPosters(ctx)
	if err != nil {
		c.fetchFailed("list_posters", err)
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.generation {
		return nil
	}
	if _, err := c.initializeLocked(posters); errors.Is(err, domain.ErrEmptyCatalog) {
		c.logger.Warn("No posters flagged for rotation")
	}
	c.publishLocked()
	return nil
}

// Initialize installs a catalog and settings. An empty catalog enters the
// guidance state and returns domain.ErrEmptyCatalog. A Boot or cache refresh
// still in flight is discarded.
func (c *Controller) Initialize(posters []domain.Poster, settings domain.Settings) (domain.Poster, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.generation++
	if c.refresh != nil {
		c.armRefreshLocked(c.refreshCtx, c.generation)
	}

	c.settings = settings
	poster, err := c.initializeLocked(posters)
	c.publishLocked()
	return poster, err
}

func (c *Controller) initializeLocked(posters []domain.Poster) (domain.Poster, error) {
	c.cancelLocked(&c.settle)
	c.cancelLocked(&c.rotation)
	c.rotating = false
	if c.current >= 0 || c.themeMusic != nil {
		c.clearEffectsLocked()
	}

	c.posters = clonePosters(posters)
	c.metrics.SetCatalogSize(len(c.posters))

	if len(c.posters) == 0 {
		c.enterEmptyLocked()
		return domain.Poster{}, domain.ErrEmptyCatalog
	}

	idx := 0
	if c.settings.RandomOrder {
		idx = c.opts.Intn(len(c.posters))
	}
	c.current = -1
	c.activateLocked(idx)

	c.armLocked(&c.settle, c.opts.SettleDelay, func() {
		c.loading = false
		c.loadingMessage = LoadingMessage
		c.startRotationLocked()
	})

	c.logger.Info("Rotation initialized",
		zap.Int("posters", len(c.posters)),
		zap.String("first", c.posters[idx].Name),
		zap.Bool("random", c.settings.RandomOrder))

	return c.posters[idx], nil
}

// Advance moves to the next poster: a uniform random index when random_order
// is set, else the cyclic successor.
func (c *Controller) Advance() (domain.Poster, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.posters) == 0 {
		return domain.Poster{}, domain.ErrEmptyCatalog
	}
	poster := c.advanceLocked()
	c.publishLocked()
	return poster, nil
}

func (c *Controller) advanceLocked() domain.Poster {
	c.clearEffectsLocked()

	n := len(c.posters)
	next := (c.current + 1) % n
	if c.settings.RandomOrder {
		next = c.opts.Intn(n)
	}
	c.activateLocked(next)
	c.metrics.IncRotations()

	c.logger.Debug("Poster advanced",
		zap.Int("index", next),
		zap.String("name", c.posters[next].Name))

	return c.posters[next]
}

// activateLocked swaps the show flag to idx and triggers its presentation
func (c *Controller) activateLocked(idx int) {
	if c.current >= 0 && c.current < len(c.posters) {
		c.posters[c.current].Show = false
	}
	c.posters[idx].Show = true
	c.current = idx

	flags := ResolvePresentation(c.posters[idx], c.settings)
	c.presentation = &flags

	if flags.PlayTrailer {
		c.presenter.PlayTrailer(flags.TrailerPath)
	}
	if flags.PlayThemeMusic {
		session := c.presenter.PlayThemeMusic(flags.ThemeMusicPath)
		c.themeMusic = &session
	}
}

// clearEffectsLocked removes the trailer and fades out theme music
func (c *Controller) clearEffectsLocked() {
	c.presenter.ClearTrailer()
	c.videoPlaying = false
	if c.themeMusic != nil {
		c.presenter.StopThemeMusic(*c.themeMusic)
		c.themeMusic = nil
	}
}

func (c *Controller) startRotationLocked() {
	if c.rotating || len(c.posters) == 0 {
		return
	}
	c.rotating = true
	c.armRotationLocked()
}

func (c *Controller) armRotationLocked() {
	c.armLocked(&c.rotation, c.displaySpeedLocked(), func() {
		if !c.rotating || len(c.posters) == 0 {
			return
		}
		c.advanceLocked()
		c.armRotationLocked()
	})
}

func (c *Controller) displaySpeedLocked() time.Duration {
	speed := c.settings.PosterDisplaySpeed
	if speed <= 0 {
		speed = domain.DefaultSettings().PosterDisplaySpeed
	}
	return time.Duration(speed) * time.Millisecond
}

// RefreshCatalog replaces the catalog wholesale. The active poster is kept
// when it is still present. During a loading window rotation starts after
// the refresh settle delay.
func (c *Controller) RefreshCatalog(posters []domain.Poster) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.applyCatalogLocked(posters)
	c.publishLocked()
}

// RefreshFromCache pulls the backend cache and applies it
func (c *Controller) RefreshFromCache(ctx context.Context) error {
	return c.refreshFromCache(ctx, c.currentGeneration())
}

// refreshFromCache applies the cache only while gen is still current
func (c *Controller) refreshFromCache(ctx context.Context, gen uint64) error {
	if gen != c.currentGeneration() {
		return nil
	}

	posters, err := c.catalog.RefreshPosterCache(ctx)
	if err != nil {
		c.fetchFailed("refresh_cache", err)
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.generation {
		return nil
	}
	c.applyCatalogLocked(posters)
	c.publishLocked()
	return nil
}

func (c *Controller) applyCatalogLocked(posters []domain.Poster) {
	c.metrics.SetCatalogSize(len(posters))

	if len(posters) == 0 {
		c.cancelLocked(&c.settle)
		c.cancelLocked(&c.rotation)
		c.rotating = false
		c.clearEffectsLocked()
		c.posters = nil
		c.enterEmptyLocked()
		c.logger.Warn("Catalog refresh returned no posters")
		return
	}

	activeID, hadActive := int64(0), false
	if c.current >= 0 && c.current < len(c.posters) {
		activeID, hadActive = c.posters[c.current].ID, true
	}

	next := clonePosters(posters)
	idx := -1
	if hadActive {
		for i := range next {
			if next[i].ID == activeID {
				idx = i
				break
			}
		}
	}

	c.posters = next
	if idx >= 0 {
		// Same poster: refresh its data, keep playing effects
		c.posters[idx].Show = true
		c.current = idx
		flags := ResolvePresentation(c.posters[idx], c.settings)
		c.presentation = &flags
	} else {
		if c.settings.RandomOrder {
			idx = c.opts.Intn(len(c.posters))
		} else {
			idx = 0
		}
		c.clearEffectsLocked()
		c.current = -1
		c.activateLocked(idx)
	}

	if c.loading {
		c.armLocked(&c.settle, c.opts.RefreshSettleDelay, func() {
			if !c.loading {
				return
			}
			c.loading = false
			c.loadingMessage = LoadingMessage
			c.startRotationLocked()
		})
	}

	c.logger.Info("Catalog refreshed",
		zap.Int("posters", len(c.posters)),
		zap.Bool("keptActive", hadActive && c.posters[idx].ID == activeID))
}

func (c *Controller) enterEmptyLocked() {
	c.current = -1
	c.presentation = nil
	c.loading = true
	c.loadingMessage = EmptyMessage
}

func (c *Controller) armRefreshLocked(ctx context.Context, gen uint64) {
	if c.refresh != nil {
		c.refresh.Stop()
	}
	c.refreshCtx = ctx
	c.refresh = c.opts.Clock.AfterFunc(c.opts.CacheRefreshInterval, func() {
		if err := c.refreshFromCache(ctx, gen); err != nil {
			c.logger.Warn("Poster cache refresh failed", zap.Error(err))
		}

		c.mu.Lock()
		defer c.mu.Unlock()
		if gen == c.generation {
			c.armRefreshLocked(ctx, gen)
		}
	})
}

// Reload cancels every owned timer, resets to the loading state, clears
// playback side effects and boots again.
func (c *Controller) Reload(ctx context.Context) error {
	c.mu.Lock()
	c.resetLocked()
	c.loading = true
	c.loadingMessage = ReloadingMessage
	c.publishLocked()
	c.mu.Unlock()

	c.logger.Info("Reloading posters")
	return c.Boot(ctx)
}

// Stop cancels all timers. Pending callbacks and in-flight fetches become no-ops.
func (c *Controller) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resetLocked()
}

func (c *Controller) resetLocked() {
	c.generation++
	c.cancelLocked(&c.settle)
	c.cancelLocked(&c.rotation)
	if c.refresh != nil {
		c.refresh.Stop()
		c.refresh = nil
		c.refreshCtx = nil
	}
	c.rotating = false
	c.clearEffectsLocked()
}

// ApplyPlaybackState feeds a now-playing notification into the override.
// It returns whether the override mode changed.
func (c *Controller) ApplyPlaybackState(state string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	recognized, changed := c.override.Apply(state)
	if !recognized {
		c.logger.Debug("Ignoring unknown play state", zap.String("state", state))
		return false
	}
	if !changed {
		return false
	}
	if !c.override.Active() {
		c.details = nil
	}
	c.metrics.SetNowPlaying(c.override.Active())
	c.publishLocked()
	return true
}

// SetNowPlayingDetails stores session details while the override is active
func (c *Controller) SetNowPlayingDetails(details domain.NowPlayingDetails) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.override.Active() {
		return
	}
	c.details = &details
	c.publishLocked()
}

// SetVideoPlaying records trailer playback reported by the presentation layer
func (c *Controller) SetVideoPlaying(playing bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.videoPlaying == playing {
		return
	}
	c.videoPlaying = playing
	c.publishLocked()
}

// Settings returns the current settings snapshot
func (c *Controller) Settings() domain.Settings {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.settings
}

// Snapshot returns a copy of the presentation state
func (c *Controller) Snapshot() domain.State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Controller) snapshotLocked() domain.State {
	state := domain.State{
		Loading:        c.loading,
		LoadingMessage: c.loadingMessage,
		NowPlaying:     c.override.Active(),
		VideoPlaying:   c.videoPlaying,
		TransitionType: c.settings.TransitionType,
		DisplaySpeedMS: int(c.displaySpeedLocked() / time.Millisecond),
		CatalogSize:    len(c.posters),
	}
	if c.current >= 0 && c.current < len(c.posters) {
		poster := c.posters[c.current]
		state.Poster = &poster
	}
	if c.presentation != nil {
		flags := *c.presentation
		state.Presentation = &flags
	}
	if c.details != nil {
		details := *c.details
		state.NowPlayingDetails = &details
	}
	if c.themeMusic != nil {
		session := *c.themeMusic
		state.ThemeMusic = &session
	}
	return state
}

// ActiveCount returns how many posters have show=true
func (c *Controller) ActiveCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for _, p := range c.posters {
		if p.Show {
			n++
		}
	}
	return n
}

func (c *Controller) publishLocked() {
	c.presenter.Publish(c.snapshotLocked())
}

func (c *Controller) currentGeneration() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generation
}

// armLocked replaces the slot's timer. fn runs under mu, and the new state
// is published afterwards.
func (c *Controller) armLocked(slot *timerSlot, d time.Duration, fn func()) {
	c.cancelLocked(slot)
	c.seq++
	seq := c.seq
	slot.seq = seq
	slot.timer = c.opts.Clock.AfterFunc(d, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if slot.seq != seq {
			return
		}
		slot.seq = 0
		slot.timer = nil
		fn()
		c.publishLocked()
	})
}

func (c *Controller) cancelLocked(slot *timerSlot) {
	if slot.timer != nil {
		slot.timer.Stop()
	}
	slot.timer = nil
	slot.seq = 0
}

func (c *Controller) fetchFailed(op string, err error) {
	var fe *domain.FetchError
	if errors.As(err, &fe) && fe.Op != "" {
		op = fe.Op
	}
	c.metrics.IncFetchFailure(op)
	c.logger.Warn("Fetch failed", zap.String("op", op), zap.Error(err))
}

func clonePosters(posters []domain.Poster) []domain.Poster {
	out := make([]domain.Poster, len(posters))
	copy(out, posters)
	for i := range out {
		out[i].Show = false
	}
	return out
}
