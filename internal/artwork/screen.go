package artwork

import (
	"github.com/genricoloni/nowshowing/internal/domain"
	"github.com/kbinani/screenshot"
	"go.uber.org/zap"
)

// ScreenSizer provides a configured screen size; zero means detect
type ScreenSizer interface {
	GetScreenSize() (int, int)
}

// NewScreenResolution uses the configured size, else the primary display bounds
func NewScreenResolution(logger *zap.Logger, cfg ScreenSizer) *domain.ScreenResolution {
	if w, h := cfg.GetScreenSize(); w > 0 && h > 0 {
		logger.Info("Using configured screen resolution", zap.Int("width", w), zap.Int("height", h))
		return &domain.ScreenResolution{Width: w, Height: h}
	}

	if screenshot.NumActiveDisplays() <= 0 {
		logger.Warn("No active displays detected, falling back to 1080x1920 portrait")
		return &domain.ScreenResolution{Width: 1080, Height: 1920}
	}

	bounds := screenshot.GetDisplayBounds(0)
	res := &domain.ScreenResolution{Width: bounds.Dx(), Height: bounds.Dy()}

	logger.Info("Screen resolution detected",
		zap.Int("width", res.Width),
		zap.Int("height", res.Height))
	return res
}
