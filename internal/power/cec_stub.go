//go:build !linux

package power

import (
	"context"
	"fmt"

	"github.com/genricoloni/nowshowing/internal/domain"
	"go.uber.org/zap"
)

// CECExecutor is a placeholder for platforms without libcec tooling
type CECExecutor struct {
	logger *zap.Logger
}

// NewCECExecutor returns an executor that always fails
func NewCECExecutor(logger *zap.Logger) (*CECExecutor, error) {
	logger.Warn("CEC power control is not implemented for this platform")
	return &CECExecutor{logger: logger}, nil
}

// SendPowerCommand returns an error on this platform
func (e *CECExecutor) SendPowerCommand(ctx context.Context, cmd domain.PowerCommand) error {
	return fmt.Errorf("cec power command %q not supported on this platform", cmd)
}
