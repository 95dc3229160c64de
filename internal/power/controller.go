package power

import (
	"context"
	"fmt"

	"github.com/genricoloni/nowshowing/internal/domain"
	"github.com/genricoloni/nowshowing/internal/metrics"
	"go.uber.org/zap"
)

// SettingsSource exposes the current display settings
type SettingsSource interface {
	Settings() domain.Settings
}

// Controller sends gated power commands when CEC power control is enabled
type Controller struct {
	logger   *zap.Logger
	sender   domain.PowerSender
	gate     *Gate
	settings SettingsSource
	metrics  *metrics.Metrics
}

// NewController creates a power controller
func NewController(
	logger *zap.Logger,
	sender domain.PowerSender,
	gate *Gate,
	settings SettingsSource,
	m *metrics.Metrics,
) *Controller {
	return &Controller{
		logger:   logger,
		sender:   sender,
		gate:     gate,
		settings: settings,
		metrics:  m,
	}
}

// Request sends cmd after applying the power window. It is a no-op when
// use_cec_power is off. The returned command is what was sent.
func (c *Controller) Request(ctx context.Context, cmd domain.PowerCommand) (domain.PowerCommand, error) {
	settings := c.settings.Settings()
	if !settings.UseCECPower {
		c.logger.Debug("CEC power control disabled, skipping", zap.String("command", string(cmd)))
		return "", nil
	}

	gated := c.gate.Apply(cmd, settings.StartPowerTime, settings.EndPowerTime)
	if gated != cmd {
		c.logger.Info("Outside power window, downgrading command",
			zap.String("requested", string(cmd)),
			zap.String("start", settings.StartPowerTime),
			zap.String("end", settings.EndPowerTime))
	}

	if err := c.sender.SendPowerCommand(ctx, gated); err != nil {
		return gated, fmt.Errorf("send power command %s: %w", gated, err)
	}

	c.metrics.IncPowerCommand(string(gated))
	c.logger.Info("Power command sent", zap.String("command", string(gated)))
	return gated, nil
}
