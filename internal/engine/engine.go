package engine

import (
	"context"
	"sync"

	"github.com/genricoloni/nowshowing/internal/domain"
	"github.com/genricoloni/nowshowing/internal/metrics"
	"github.com/genricoloni/nowshowing/internal/server"
	"go.uber.org/zap"
)

// NowPlayingArtwork is the file name generated for the now-playing poster
const NowPlayingArtwork = "now_playing"

// Rotation is the part of the rotation controller the engine drives
type Rotation interface {
	Boot(ctx context.Context) error
	Reload(ctx context.Context) error
	Stop()
	ApplyPlaybackState(state string) bool
	SetNowPlayingDetails(details domain.NowPlayingDetails)
	SetVideoPlaying(playing bool)
	Settings() domain.Settings
	Snapshot() domain.State
}

// PowerRequester sends gated power commands
type PowerRequester interface {
	Request(ctx context.Context, cmd domain.PowerCommand) (domain.PowerCommand, error)
}

// SessionSource looks up what Plex is currently playing
type SessionSource interface {
	NowPlaying(ctx context.Context, settings domain.Settings) (domain.NowPlayingDetails, bool, error)
}

// CommandSource delivers out-of-band commands
type CommandSource interface {
	Enabled() bool
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Commands() <-chan domain.Command
}

// Inbox delivers messages from presentation clients and the local API
type Inbox interface {
	Inbound() <-chan server.ClientMessage
}

// Source is the configured now-playing monitor. NeedsPlexService gates it on
// the plex_service setting. A nil Monitor disables now-playing.
type Source struct {
	Monitor          domain.Monitor
	NeedsPlexService bool
}

// Engine wires notifications, commands and presentation feedback into the
// rotation controller.
type Engine struct {
	logger    *zap.Logger
	rotation  Rotation
	power     PowerRequester
	source    Source
	sessions  SessionSource
	fetcher   domain.Fetcher
	processor domain.Processor
	commands  CommandSource
	inbox     Inbox
	metrics   *metrics.Metrics

	cancel         context.CancelFunc
	wg             sync.WaitGroup
	monitorStarted bool
	done           chan struct{}
}

// NewEngine creates a new orchestration engine
func NewEngine(
	logger *zap.Logger,
	rotation Rotation,
	power PowerRequester,
	source Source,
	sessions SessionSource,
	fetcher domain.Fetcher,
	processor domain.Processor,
	commands CommandSource,
	inbox Inbox,
	m *metrics.Metrics,
) *Engine {
	return &Engine{
		logger:    logger,
		rotation:  rotation,
		power:     power,
		source:    source,
		sessions:  sessions,
		fetcher:   fetcher,
		processor: processor,
		commands:  commands,
		inbox:     inbox,
		metrics:   m,
	}
}

// Start launches the engine loop in a goroutine and returns immediately.
// The loop outlives ctx; it ends on Stop.
func (e *Engine) Start(_ context.Context) error {
	e.logger.Info("Engine starting...")

	ctx, cancel := context.WithCancel(context.Background())
	e.cancel = cancel
	e.done = make(chan struct{})

	go e.run(ctx)
	return nil
}

func (e *Engine) run(ctx context.Context) {
	defer close(e.done)

	if err := e.rotation.Boot(ctx); err != nil {
		e.logger.Error("Boot failed, staying in loading state", zap.Error(err))
	}
	e.requestPower(ctx, domain.PowerOn)

	var events <-chan domain.PlaybackEvent
	if e.startMonitor(ctx) {
		events = e.source.Monitor.Events()
	}

	var commands <-chan domain.Command
	if e.commands != nil && e.commands.Enabled() {
		commands = e.commands.Commands()
		e.goRun(func() {
			if err := e.commands.Start(ctx); err != nil && ctx.Err() == nil {
				e.logger.Warn("Remote command channel stopped", zap.Error(err))
			}
		})
	}

	var inbound <-chan server.ClientMessage
	if e.inbox != nil {
		inbound = e.inbox.Inbound()
	}

	for {
		select {
		case <-ctx.Done():
			e.logger.Info("Engine loop stopped")
			return

		case ev, ok := <-events:
			if !ok {
				e.logger.Info("Now-playing events channel closed")
				events = nil
				continue
			}
			e.handlePlayback(ctx, ev)

		case cmd, ok := <-commands:
			if !ok {
				commands = nil
				continue
			}
			if cmd.Name == domain.CommandReload {
				if e.reload(ctx) {
					events = e.source.Monitor.Events()
				}
			} else {
				e.logger.Debug("Ignoring unknown command", zap.String("command", cmd.Name))
			}

		case msg := <-inbound:
			switch msg.Type {
			case server.MessageReload:
				if e.reload(ctx) {
					events = e.source.Monitor.Events()
				}
			case server.MessageVideoPlaying:
				e.rotation.SetVideoPlaying(true)
			case server.MessageVideoEnded:
				e.rotation.SetVideoPlaying(false)
			}
		}
	}
}

// reload re-reads settings and posters. It reports whether the monitor was
// started as a result.
func (e *Engine) reload(ctx context.Context) bool {
	if err := e.rotation.Reload(ctx); err != nil {
		e.logger.Error("Reload failed", zap.Error(err))
	}
	e.requestPower(ctx, domain.PowerOn)
	return e.startMonitor(ctx)
}

// startMonitor starts the now-playing monitor once its preconditions hold.
// It returns true only on the call that started it.
func (e *Engine) startMonitor(ctx context.Context) bool {
	if e.monitorStarted || e.source.Monitor == nil {
		return false
	}
	if e.source.NeedsPlexService && !e.rotation.Settings().PlexService {
		e.logger.Info("Plex service disabled, not listening for now-playing")
		return false
	}

	e.monitorStarted = true
	mon := e.source.Monitor
	e.goRun(func() {
		if err := mon.Start(ctx); err != nil && ctx.Err() == nil {
			e.logger.Warn("Now-playing monitor stopped", zap.Error(err))
		}
	})
	return true
}

func (e *Engine) handlePlayback(ctx context.Context, ev domain.PlaybackEvent) {
	if !e.rotation.ApplyPlaybackState(ev.State) {
		return
	}

	active := e.rotation.Snapshot().NowPlaying
	e.logger.Info("Now-playing override changed",
		zap.String("source", ev.Source),
		zap.String("state", ev.State),
		zap.Bool("active", active))
	if !active {
		return
	}

	settings := e.rotation.Settings()
	e.goRun(func() {
		details, ok := e.lookupDetails(ctx, ev, settings)
		if !ok {
			return
		}
		details.ArtworkPath = e.renderArtwork(ctx, details.PosterURL)
		e.rotation.SetNowPlayingDetails(details)
	})
}

func (e *Engine) lookupDetails(ctx context.Context, ev domain.PlaybackEvent, settings domain.Settings) (domain.NowPlayingDetails, bool) {
	if ev.Source != "plex" || e.sessions == nil {
		return domain.NowPlayingDetails{Title: ev.Title, PosterURL: ev.ArtURL}, true
	}

	details, ok, err := e.sessions.NowPlaying(ctx, settings)
	if err != nil {
		e.metrics.IncFetchFailure("plex_sessions")
		e.logger.Warn("Failed to fetch Plex sessions", zap.Error(err))
		return domain.NowPlayingDetails{}, false
	}
	if !ok {
		e.logger.Debug("Plex reports no active session")
	}
	return details, ok
}

// renderArtwork returns the served path of the fitted poster, or "" on failure
func (e *Engine) renderArtwork(ctx context.Context, url string) string {
	if url == "" || e.fetcher == nil || e.processor == nil {
		return ""
	}

	data, err := e.fetcher.Fetch(ctx, url)
	if err != nil {
		e.metrics.IncFetchFailure("artwork")
		e.logger.Warn("Failed to fetch now-playing artwork", zap.Error(err))
		return ""
	}
	if _, err := e.processor.Generate(data, NowPlayingArtwork); err != nil {
		e.logger.Error("Failed to generate now-playing artwork", zap.Error(err))
		return ""
	}
	return server.ArtworkPrefix + NowPlayingArtwork + ".jpg"
}

func (e *Engine) requestPower(ctx context.Context, cmd domain.PowerCommand) {
	if e.power == nil {
		return
	}
	sent, err := e.power.Request(ctx, cmd)
	if err != nil {
		e.logger.Warn("Power command failed", zap.String("command", string(cmd)), zap.Error(err))
		return
	}
	if sent != "" {
		e.logger.Info("Power command requested",
			zap.String("requested", string(cmd)),
			zap.String("sent", string(sent)))
	}
}

func (e *Engine) goRun(fn func()) {
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		fn()
	}()
}

// Stop ends the loop, cancels controller timers and stops the monitor and
// command channel.
func (e *Engine) Stop(ctx context.Context) error {
	e.logger.Info("Engine stopping...")
	if e.cancel == nil {
		return nil
	}
	e.cancel()

	select {
	case <-e.done:
	case <-ctx.Done():
		return ctx.Err()
	}

	e.rotation.Stop()

	if e.monitorStarted {
		if err := e.source.Monitor.Stop(ctx); err != nil {
			e.logger.Warn("Failed to stop now-playing monitor", zap.Error(err))
		}
	}
	if e.commands != nil && e.commands.Enabled() {
		if err := e.commands.Stop(ctx); err != nil {
			e.logger.Warn("Failed to stop command channel", zap.Error(err))
		}
	}

	waited := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(waited)
	}()
	select {
	case <-waited:
	case <-ctx.Done():
		return ctx.Err()
	}

	e.logger.Info("Engine stopped")
	return nil
}
