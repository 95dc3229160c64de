//go:build linux

package nowplaying

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/genricoloni/nowshowing/internal/domain"
	"github.com/godbus/dbus/v5"
	"go.uber.org/zap"
)

const (
	mprisSource     = "mpris"
	mprisPrefix     = "org.mpris.MediaPlayer2."
	mprisPath       = "/org/mpris/MediaPlayer2"
	mprisPlayer     = "org.mpris.MediaPlayer2.Player"
	propMetadata    = "org.mpris.MediaPlayer2.Player.Metadata"
	propStatus      = "org.mpris.MediaPlayer2.Player.PlaybackStatus"
	propertiesEvent = "org.freedesktop.DBus.Properties.PropertiesChanged"
	ownerEvent      = "org.freedesktop.DBus.NameOwnerChanged"
)

// MprisMonitor turns MPRIS playback changes of local players (Kodi, mpv)
// into play-state events
type MprisMonitor struct {
	logger          *zap.Logger
	connect         func() (DBusClient, error)
	events          chan domain.PlaybackEvent
	mu              sync.RWMutex
	running         bool
	cancel          context.CancelFunc
	conn            DBusClient
	lastDropWarning time.Time
	wg              sync.WaitGroup
	playerNames     map[string]string // unique bus name (:1.45) -> org.mpris.MediaPlayer2.kodi
}

// NewMprisMonitor creates a monitor on the session bus
func NewMprisMonitor(logger *zap.Logger) *MprisMonitor {
	return &MprisMonitor{
		logger:      logger,
		connect:     NewStdDBusClient,
		events:      make(chan domain.PlaybackEvent, 10),
		playerNames: make(map[string]string),
	}
}

// Start connects to the bus and blocks until ctx is cancelled or Stop is called
func (m *MprisMonitor) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return nil
	}
	m.running = true

	monitorCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.mu.Unlock()

	conn, err := m.connect()
	if err != nil {
		m.logger.Error("Failed to connect to session bus", zap.Error(err))
		m.mu.Lock()
		defer m.mu.Unlock()
		m.running = false
		m.cancel = nil
		return fmt.Errorf("session bus connection failed: %w", err)
	}

	select {
	case <-monitorCtx.Done():
		if err := conn.Close(); err != nil {
			m.logger.Warn("Failed to close D-Bus connection", zap.Error(err))
		}
		return monitorCtx.Err()
	default:
	}

	m.mu.Lock()
	m.conn = conn
	m.mu.Unlock()

	m.wg.Add(1)
	func() {
		defer m.wg.Done()
		if err := m.detectExistingPlayers(); err != nil {
			m.logger.Warn("Failed to detect existing players", zap.Error(err))
		}
	}()

	if err := conn.AddMatchSignal(
		dbus.WithMatchObjectPath(mprisPath),
		dbus.WithMatchInterface("org.freedesktop.DBus.Properties"),
		dbus.WithMatchMember("PropertiesChanged"),
	); err != nil {
		return fmt.Errorf("failed to add match signal: %w", err)
	}

	if err := conn.AddMatchSignal(
		dbus.WithMatchInterface("org.freedesktop.DBus"),
		dbus.WithMatchMember("NameOwnerChanged"),
	); err != nil {
		m.logger.Warn("Failed to add NameOwnerChanged match signal", zap.Error(err))
	}

	m.wg.Add(1)
	go m.monitorSignals(monitorCtx)

	m.logger.Info("MPRIS monitor started")
	<-monitorCtx.Done()

	m.logger.Info("MPRIS monitor stopped")
	return monitorCtx.Err()
}

// Stop cancels monitoring, waits for producers and closes the events channel
func (m *MprisMonitor) Stop(ctx context.Context) error {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return nil
	}
	if m.cancel != nil {
		m.cancel()
	}
	m.running = false
	m.mu.Unlock()

	m.wg.Wait()
	close(m.events)

	m.mu.Lock()
	if m.conn != nil {
		if err := m.conn.Close(); err != nil {
			m.logger.Warn("Failed to close D-Bus connection", zap.Error(err))
		}
	}
	m.mu.Unlock()

	m.logger.Info("MPRIS monitor shutdown complete")
	return nil
}

// Events returns the play-state notifications
func (m *MprisMonitor) Events() <-chan domain.PlaybackEvent {
	return m.events
}

func (m *MprisMonitor) detectExistingPlayers() error {
	names, err := m.conn.ListNames()
	if err != nil {
		return fmt.Errorf("failed to list bus names: %w", err)
	}

	players := 0
	for _, name := range names {
		if !strings.HasPrefix(name, mprisPrefix) {
			continue
		}
		players++

		if unique, err := m.conn.GetNameOwner(name); err == nil {
			m.mu.Lock()
			m.playerNames[unique] = name
			m.mu.Unlock()
		}

		if err := m.fetchPlayerState(name); err != nil {
			m.logger.Warn("Failed to fetch initial player state",
				zap.String("player", name),
				zap.Error(err))
		}
	}

	m.logger.Info("Player detection complete", zap.Int("count", players))
	return nil
}

// fetchPlayerState reads the status and metadata of one player and emits it
func (m *MprisMonitor) fetchPlayerState(player string) error {
	variant, err := m.conn.GetProperty(player, mprisPath, propMetadata)
	if err != nil {
		return fmt.Errorf("failed to get metadata: %w", err)
	}

	// Idle players may answer with an empty variant
	metadata, ok := variant.Value().(map[string]dbus.Variant)
	if !ok {
		m.logger.Debug("Metadata variant is not a map, skipping", zap.String("player", player))
		return nil
	}

	statusVariant, err := m.conn.GetProperty(player, mprisPath, propStatus)
	if err != nil {
		return fmt.Errorf("failed to get playback status: %w", err)
	}
	status, ok := statusVariant.Value().(string)
	if !ok {
		return fmt.Errorf("invalid playback status format")
	}

	m.emit(m.parseEvent(metadata, status), player)
	return nil
}

func (m *MprisMonitor) monitorSignals(ctx context.Context) {
	defer m.wg.Done()

	signals := make(chan *dbus.Signal, 10)
	m.conn.Signal(signals)

	for {
		select {
		case <-ctx.Done():
			return
		case sig := <-signals:
			if sig == nil {
				continue
			}
			if sig.Name == ownerEvent {
				m.handleNameOwnerChanged(sig)
			} else {
				m.handleSignal(sig)
			}
		}
	}
}

func (m *MprisMonitor) handleNameOwnerChanged(sig *dbus.Signal) {
	if len(sig.Body) < 3 {
		return
	}

	name, ok := sig.Body[0].(string)
	if !ok || !strings.HasPrefix(name, mprisPrefix) {
		return
	}
	oldOwner, _ := sig.Body[1].(string)
	newOwner, _ := sig.Body[2].(string)

	m.mu.Lock()
	if oldOwner != "" {
		delete(m.playerNames, oldOwner)
	}
	if newOwner != "" {
		m.playerNames[newOwner] = name
	}
	m.mu.Unlock()

	switch {
	case newOwner != "" && oldOwner == "":
		m.logger.Info("MPRIS player appeared", zap.String("player", name))
		if err := m.fetchPlayerState(name); err != nil {
			m.logger.Warn("Failed to fetch state from new player",
				zap.String("player", name),
				zap.Error(err))
		}
	case newOwner == "" && oldOwner != "":
		// A vanished player counts as stopped
		m.logger.Info("MPRIS player removed", zap.String("player", name))
		m.emit(domain.PlaybackEvent{Source: mprisSource, State: string(domain.StatusStopped)}, name)
	}
}

func (m *MprisMonitor) handleSignal(sig *dbus.Signal) {
	// PropertiesChanged body: interface name, changed properties, invalidated properties
	if sig.Name != propertiesEvent || len(sig.Body) < 2 {
		return
	}

	iface, ok := sig.Body[0].(string)
	if !ok || iface != mprisPlayer {
		return
	}

	changed, ok := sig.Body[1].(map[string]dbus.Variant)
	if !ok {
		return
	}

	metadataVariant, hasMetadata := changed["Metadata"]
	statusVariant, hasStatus := changed["PlaybackStatus"]
	if !hasMetadata && !hasStatus {
		return
	}

	var metadata map[string]dbus.Variant
	var status string

	if hasMetadata {
		metadata, ok = metadataVariant.Value().(map[string]dbus.Variant)
		if !ok {
			m.logger.Warn("Invalid metadata format in signal, ignoring")
			return
		}
	}

	if hasStatus {
		status, ok = statusVariant.Value().(string)
		if !ok {
			m.logger.Warn("Invalid playback status format in signal, ignoring")
			return
		}
	} else if variant, err := m.conn.GetProperty(sig.Sender, mprisPath, propStatus); err == nil {
		if s, ok := variant.Value().(string); ok {
			status = s
		}
	}

	if !hasMetadata {
		if variant, err := m.conn.GetProperty(sig.Sender, mprisPath, propMetadata); err == nil {
			if md, ok := variant.Value().(map[string]dbus.Variant); ok {
				metadata = md
			}
		}
	}

	m.emit(m.parseEvent(metadata, status), m.getPlayerName(sig.Sender))
}

// parseEvent maps MPRIS status names onto play-session states
func (m *MprisMonitor) parseEvent(metadata map[string]dbus.Variant, status string) domain.PlaybackEvent {
	event := domain.PlaybackEvent{Source: mprisSource}

	switch status {
	case "Playing":
		event.State = string(domain.StatusPlaying)
	case "Paused":
		event.State = string(domain.StatusPaused)
	default:
		event.State = string(domain.StatusStopped)
	}

	if metadata == nil {
		return event
	}
	if v, ok := metadata["xesam:title"]; ok {
		if title, ok := v.Value().(string); ok {
			event.Title = title
		}
	}
	if v, ok := metadata["mpris:artUrl"]; ok {
		if art, ok := v.Value().(string); ok {
			event.ArtURL = art
		}
	}
	return event
}

func (m *MprisMonitor) emit(event domain.PlaybackEvent, player string) {
	select {
	case m.events <- event:
		m.logger.Info("Player state change",
			zap.String("player", player),
			zap.String("state", event.State),
			zap.String("title", event.Title))
	default:
		m.logChannelFullWarning()
	}
}

func (m *MprisMonitor) getPlayerName(unique string) string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if name, ok := m.playerNames[unique]; ok {
		return name
	}
	return unique
}

// logChannelFullWarning warns at most once every 5 seconds
func (m *MprisMonitor) logChannelFullWarning() {
	m.mu.Lock()
	defer m.mu.Unlock()

	const warningInterval = 5 * time.Second
	now := time.Now()
	if now.Sub(m.lastDropWarning) >= warningInterval {
		m.logger.Warn("Events channel full, dropping player state")
		m.lastDropWarning = now
	}
}
