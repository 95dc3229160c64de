//go:build linux

package power

import (
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/genricoloni/nowshowing/internal/domain"
	"go.uber.org/zap"
)

// CECExecutor drives the display through libcec's cec-client
type CECExecutor struct {
	logger *zap.Logger
	binary string
	args   []string
}

// NewCECExecutor locates cec-client in PATH
func NewCECExecutor(logger *zap.Logger) (*CECExecutor, error) {
	binary, err := exec.LookPath("cec-client")
	if err != nil {
		return nil, fmt.Errorf("cec-client not found: %w", err)
	}

	logger.Info("CEC client detected", zap.String("binary", binary))
	return &CECExecutor{
		logger: logger,
		binary: binary,
		// single command mode, errors only
		args: []string{"-s", "-d", "1"},
	}, nil
}

// SendPowerCommand writes "on 0" or "standby 0" to cec-client
func (e *CECExecutor) SendPowerCommand(ctx context.Context, cmd domain.PowerCommand) error {
	switch cmd {
	case domain.PowerOn, domain.PowerStandby:
	default:
		return fmt.Errorf("unsupported power command %q", cmd)
	}

	line := string(cmd) + " 0"
	e.logger.Debug("Sending CEC command", zap.String("binary", e.binary), zap.String("input", line))

	c := exec.CommandContext(ctx, e.binary, e.args...)
	c.Stdin = strings.NewReader(line + "\n")
	output, err := c.CombinedOutput()
	if err != nil {
		return fmt.Errorf("cec-client %s failed: %w (output: %s)", line, err, strings.TrimSpace(string(output)))
	}
	return nil
}
