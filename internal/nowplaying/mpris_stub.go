//go:build !linux

package nowplaying

import (
	"context"
	"fmt"

	"github.com/genricoloni/nowshowing/internal/domain"
	"go.uber.org/zap"
)

// MprisMonitor stub for non-Linux platforms
type MprisMonitor struct {
	logger *zap.Logger
	events chan domain.PlaybackEvent
}

// NewMprisMonitor creates a monitor whose Start always fails
func NewMprisMonitor(logger *zap.Logger) *MprisMonitor {
	events := make(chan domain.PlaybackEvent)
	close(events)
	return &MprisMonitor{logger: logger, events: events}
}

// Start returns an error: MPRIS needs a Linux session bus
func (m *MprisMonitor) Start(ctx context.Context) error {
	return fmt.Errorf("MPRIS monitoring is only supported on Linux systems")
}

// Events returns a closed channel
func (m *MprisMonitor) Events() <-chan domain.PlaybackEvent {
	return m.events
}

// Stop is a no-op
func (m *MprisMonitor) Stop(ctx context.Context) error {
	return nil
}
