package nowplaying

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/url"
	"sync"
	"time"

	"github.com/genricoloni/nowshowing/internal/domain"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	// PlexPort is used when plex_ip_address carries no explicit port
	PlexPort = "32400"

	plexSource      = "plex"
	plexReadLimit   = 64 * 1024
	plexDialTimeout = 10 * time.Second
)

// SettingsSource exposes the current display settings
type SettingsSource interface {
	Settings() domain.Settings
}

// plexNotification is the subset of a Plex push message we care about
type plexNotification struct {
	NotificationContainer *struct {
		Type                         string `json:"type"`
		PlaySessionStateNotification []struct {
			State      string `json:"state"`
			SessionKey string `json:"sessionKey"`
			RatingKey  string `json:"ratingKey"`
		} `json:"PlaySessionStateNotification"`
	} `json:"NotificationContainer"`
}

// ParseNotification extracts the play-session state from a Plex push message.
// ok is false for well-formed messages of another type. Messages that cannot
// be decoded, or "playing" messages without a session entry, return
// domain.ErrMalformedNotification.
func ParseNotification(data []byte) (state string, ok bool, err error) {
	var n plexNotification
	if err := json.Unmarshal(data, &n); err != nil {
		return "", false, fmt.Errorf("%w: %v", domain.ErrMalformedNotification, err)
	}
	if n.NotificationContainer == nil {
		return "", false, fmt.Errorf("%w: missing NotificationContainer", domain.ErrMalformedNotification)
	}
	if n.NotificationContainer.Type != "playing" {
		return "", false, nil
	}
	if len(n.NotificationContainer.PlaySessionStateNotification) == 0 {
		return "", false, fmt.Errorf("%w: empty PlaySessionStateNotification", domain.ErrMalformedNotification)
	}
	return n.NotificationContainer.PlaySessionStateNotification[0].State, true, nil
}

// PlexHost returns host:port for a Plex address, adding the default port
func PlexHost(address string) string {
	if _, _, err := net.SplitHostPort(address); err == nil {
		return address
	}
	return net.JoinHostPort(address, PlexPort)
}

// NotificationURL builds the websocket URL of the Plex notification feed
func NotificationURL(address, token string) string {
	u := url.URL{
		Scheme:   "ws",
		Host:     PlexHost(address),
		Path:     "/:/websockets/notifications",
		RawQuery: url.Values{"X-Plex-Token": []string{token}}.Encode(),
	}
	return u.String()
}

// PlexSocket listens to the Plex notification websocket and emits a
// PlaybackEvent for every "playing" notification. The connection is
// re-established after ReconnectDelay when it drops.
type PlexSocket struct {
	logger         *zap.Logger
	settings       SettingsSource
	dialer         *websocket.Dialer
	reconnectDelay time.Duration
	events         chan domain.PlaybackEvent

	mu              sync.Mutex
	running         bool
	cancel          context.CancelFunc
	conn            *websocket.Conn
	wg              sync.WaitGroup
	lastDropWarning time.Time
}

// NewPlexSocket creates a notification listener. Server address and token are
// read from settings on every connection attempt.
func NewPlexSocket(logger *zap.Logger, settings SettingsSource, reconnectDelay time.Duration) *PlexSocket {
	if reconnectDelay <= 0 {
		reconnectDelay = 30 * time.Second
	}
	return &PlexSocket{
		logger:         logger,
		settings:       settings,
		dialer:         &websocket.Dialer{HandshakeTimeout: plexDialTimeout},
		reconnectDelay: reconnectDelay,
		events:         make(chan domain.PlaybackEvent, 10),
	}
}

// Start connects and reads notifications until ctx is cancelled or Stop is called
func (p *PlexSocket) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return nil
	}
	p.running = true
	socketCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.wg.Add(1)
	p.mu.Unlock()
	defer p.wg.Done()

	p.logger.Info("Plex notification socket started")

	for {
		if err := p.session(socketCtx); err != nil && socketCtx.Err() == nil {
			p.logger.Warn("Plex notification socket closed",
				zap.Error(err),
				zap.Duration("retryIn", p.reconnectDelay))
		}

		select {
		case <-socketCtx.Done():
			p.logger.Info("Plex notification socket stopped")
			return socketCtx.Err()
		case <-time.After(p.reconnectDelay):
		}
	}
}

// session runs one connection until it fails
func (p *PlexSocket) session(ctx context.Context) error {
	settings := p.settings.Settings()
	if settings.PlexIPAddress == "" {
		return fmt.Errorf("plex address not configured")
	}

	endpoint := NotificationURL(settings.PlexIPAddress, settings.PlexToken)
	conn, _, err := p.dialer.DialContext(ctx, endpoint, nil)
	if err != nil {
		return fmt.Errorf("dial plex notifications: %w", err)
	}
	conn.SetReadLimit(plexReadLimit)

	p.mu.Lock()
	p.conn = conn
	p.mu.Unlock()

	// Unblock ReadMessage on shutdown
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-done:
		}
	}()

	defer func() {
		p.mu.Lock()
		p.conn = nil
		p.mu.Unlock()
		_ = conn.Close()
	}()

	p.logger.Info("Connected to Plex notifications", zap.String("host", PlexHost(settings.PlexIPAddress)))

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		p.handleMessage(data)
	}
}

func (p *PlexSocket) handleMessage(data []byte) {
	state, ok, err := ParseNotification(data)
	if err != nil {
		p.logger.Debug("Ignoring Plex notification", zap.Error(err))
		return
	}
	if !ok {
		return
	}

	select {
	case p.events <- domain.PlaybackEvent{Source: plexSource, State: state}:
		p.logger.Debug("Plex play state", zap.String("state", state))
	default:
		p.logChannelFullWarning()
	}
}

// Stop closes the connection and the events channel
func (p *PlexSocket) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	p.running = false
	if p.cancel != nil {
		p.cancel()
	}
	if p.conn != nil {
		_ = p.conn.Close()
	}
	p.mu.Unlock()

	p.wg.Wait()
	close(p.events)

	p.logger.Info("Plex notification socket shutdown complete")
	return nil
}

// Events returns the play-state notifications
func (p *PlexSocket) Events() <-chan domain.PlaybackEvent {
	return p.events
}

func (p *PlexSocket) logChannelFullWarning() {
	p.mu.Lock()
	defer p.mu.Unlock()

	const warningInterval = 5 * time.Second
	now := time.Now()
	if now.Sub(p.lastDropWarning) >= warningInterval {
		p.logger.Warn("Events channel full, dropping Plex notification")
		p.lastDropWarning = now
	}
}
