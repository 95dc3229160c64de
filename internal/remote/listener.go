package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/genricoloni/nowshowing/internal/domain"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const readLimit = 8 * 1024

// Listener subscribes to the remote command channel and forwards every
// command it receives. It reconnects after a fixed delay.
type Listener struct {
	logger         *zap.Logger
	url            string
	dialer         *websocket.Dialer
	reconnectDelay time.Duration
	commands       chan domain.Command

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewListener creates a listener for the websocket at url. An empty url
// disables the channel: Start returns immediately.
func NewListener(logger *zap.Logger, url string, reconnectDelay time.Duration) *Listener {
	if reconnectDelay <= 0 {
		reconnectDelay = 30 * time.Second
	}
	return &Listener{
		logger:         logger,
		url:            url,
		dialer:         &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
		reconnectDelay: reconnectDelay,
		commands:       make(chan domain.Command, 4),
	}
}

// Enabled reports whether a command URL is configured
func (l *Listener) Enabled() bool {
	return l.url != ""
}

// Commands returns the received commands
func (l *Listener) Commands() <-chan domain.Command {
	return l.commands
}

// Start reads commands until ctx is cancelled or Stop is called
func (l *Listener) Start(ctx context.Context) error {
	if !l.Enabled() {
		l.logger.Info("Remote command channel disabled")
		return nil
	}

	l.mu.Lock()
	if l.running {
		l.mu.Unlock()
		return nil
	}
	l.running = true
	listenCtx, cancel := context.WithCancel(ctx)
	l.cancel = cancel
	l.wg.Add(1)
	l.mu.Unlock()
	defer l.wg.Done()

	for {
		if err := l.session(listenCtx); err != nil && listenCtx.Err() == nil {
			l.logger.Warn("Remote command channel closed",
				zap.Error(err),
				zap.Duration("retryIn", l.reconnectDelay))
		}

		select {
		case <-listenCtx.Done():
			return listenCtx.Err()
		case <-time.After(l.reconnectDelay):
		}
	}
}

func (l *Listener) session(ctx context.Context) error {
	conn, _, err := l.dialer.DialContext(ctx, l.url, nil)
	if err != nil {
		return fmt.Errorf("dial command channel: %w", err)
	}
	defer func() { _ = conn.Close() }()
	conn.SetReadLimit(readLimit)

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-done:
		}
	}()

	l.logger.Info("Connected to remote command channel", zap.String("url", l.url))

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		var cmd domain.Command
		if err := json.Unmarshal(data, &cmd); err != nil || cmd.Name == "" {
			l.logger.Debug("Ignoring malformed command", zap.ByteString("payload", data))
			continue
		}

		l.logger.Info("Remote command received", zap.String("command", cmd.Name))
		select {
		case l.commands <- cmd:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Stop ends the listener and closes the commands channel
func (l *Listener) Stop(ctx context.Context) error {
	l.mu.Lock()
	if !l.running {
		l.mu.Unlock()
		return nil
	}
	l.running = false
	if l.cancel != nil {
		l.cancel()
	}
	l.mu.Unlock()

	l.wg.Wait()
	close(l.commands)
	return nil
}
