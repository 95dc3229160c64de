package artwork

import (
	"testing"

	"go.uber.org/zap"
)

func TestNewScreenResolution_Configured(t *testing.T) {
	res := NewScreenResolution(zap.NewNop(), &mockConfig{width: 1080, height: 1920})
	if res.Width != 1080 || res.Height != 1920 {
		t.Errorf("expected 1080x1920, got %dx%d", res.Width, res.Height)
	}
}
