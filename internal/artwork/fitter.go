package artwork

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png" // PNG posters
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"
	"github.com/genricoloni/nowshowing/internal/domain"
	"go.uber.org/zap"
	_ "golang.org/x/image/webp" // Plex transcoder may serve WebP
)

const (
	defaultBlurRadius = 20.0
	// posters are portrait, so they take most of the screen height
	defaultPosterHeightRatio = 0.95
	jpegQuality              = 90
)

// FitterConfig tunes the composition
type FitterConfig struct {
	BlurRadius        float64
	PosterHeightRatio float64
}

// OutputDirer provides where rendered artwork is written
type OutputDirer interface {
	GetOutputDir() string
}

// PosterFitter renders artwork on a screen-sized canvas: a blurred, filled
// copy of the poster as backdrop and the sharp poster centered on top.
type PosterFitter struct {
	logger *zap.Logger
	res    *domain.ScreenResolution
	cfg    OutputDirer
	config FitterConfig
}

// NewPosterFitter creates a fitter for the detected screen
func NewPosterFitter(logger *zap.Logger, res *domain.ScreenResolution, cfg OutputDirer) *PosterFitter {
	return &PosterFitter{
		logger: logger,
		res:    res,
		cfg:    cfg,
		config: FitterConfig{
			BlurRadius:        defaultBlurRadius,
			PosterHeightRatio: defaultPosterHeightRatio,
		},
	}
}

// Fit composes the image and returns it JPEG-encoded
func (p *PosterFitter) Fit(imageData []byte) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(imageData))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	bounds := img.Bounds()
	if bounds.Dx() == 0 || bounds.Dy() == 0 {
		return nil, fmt.Errorf("invalid image dimensions: %dx%d", bounds.Dx(), bounds.Dy())
	}
	if p.res.Width <= 0 || p.res.Height <= 0 {
		return nil, fmt.Errorf("invalid screen resolution: %dx%d", p.res.Width, p.res.Height)
	}

	background := imaging.Fill(img, p.res.Width, p.res.Height, imaging.Center, imaging.Lanczos)
	background = imaging.Blur(background, p.config.BlurRadius)

	posterHeight := int(float64(p.res.Height) * p.config.PosterHeightRatio)
	posterWidth := posterHeight * bounds.Dx() / bounds.Dy()
	if posterWidth > p.res.Width {
		// landscape art on a portrait screen
		posterWidth = p.res.Width
		posterHeight = posterWidth * bounds.Dy() / bounds.Dx()
	}

	poster := imaging.Resize(img, posterWidth, posterHeight, imaging.Lanczos)
	offset := image.Pt((p.res.Width-posterWidth)/2, (p.res.Height-posterHeight)/2)
	result := imaging.Paste(background, poster, offset)

	buf := new(bytes.Buffer)
	if err := jpeg.Encode(buf, result, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, fmt.Errorf("failed to encode result: %w", err)
	}

	p.logger.Debug("Artwork fitted",
		zap.Int("poster_w", posterWidth),
		zap.Int("poster_h", posterHeight),
		zap.Int("bytes", buf.Len()))
	return buf.Bytes(), nil
}

// Generate fits the image and writes <output_dir>/<name>.jpg
func (p *PosterFitter) Generate(imgData []byte, name string) (string, error) {
	data, err := p.Fit(imgData)
	if err != nil {
		return "", fmt.Errorf("failed to process image: %w", err)
	}

	outputDir := p.cfg.GetOutputDir()
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	outputPath := filepath.Join(outputDir, name+".jpg")
	// Write then rename so readers never see a partial file
	tmp := outputPath + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write artwork: %w", err)
	}
	if err := os.Rename(tmp, outputPath); err != nil {
		return "", fmt.Errorf("failed to move artwork into place: %w", err)
	}

	p.logger.Info("Artwork generated", zap.String("path", outputPath), zap.Int("size", len(data)))

	if abs, err := filepath.Abs(outputPath); err == nil {
		return abs, nil
	}
	return outputPath, nil
}
