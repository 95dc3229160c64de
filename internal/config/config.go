package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/genricoloni/nowshowing/internal/domain"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

const (
	envPrefix = "NOWSHOWING_"

	defaultBackendURL       = "http://localhost"
	defaultListenAddr       = ":8090"
	defaultOutputDir        = "/tmp/nowshowing"
	defaultTimezone         = "America/New_York"
	defaultNowPlayingSource = "plex"
	defaultPowerBackend     = "api"

	defaultSettleDelay          = 12 * time.Second
	defaultRefreshSettleDelay   = 5 * time.Second
	defaultCacheRefreshInterval = 4 * time.Hour
	defaultReconnectDelay       = 30 * time.Second
)

// Timings groups the controller and socket delays
type Timings struct {
	SettleDelay          time.Duration
	RefreshSettleDelay   time.Duration
	CacheRefreshInterval time.Duration
	ReconnectDelay       time.Duration
}

var _ domain.Config = (*AppConfig)(nil)

// AppConfig holds application configuration
type AppConfig struct {
	logger           *zap.Logger
	backendURL       string
	listenAddr       string
	outputDir        string
	timezone         string
	commandURL       string
	nowPlayingSource string
	powerBackend     string
	screenWidth      int
	screenHeight     int
	timings          Timings
}

// LoadEnv reads an optional .env file. Existing variables win, and a missing
// file is not an error worth reporting.
func LoadEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	return godotenv.Load(paths...)
}

// NewAppConfig creates a new application configuration instance
func NewAppConfig(logger *zap.Logger) *AppConfig {
	outputDir := expandHome(os.ExpandEnv(getEnv("OUTPUT_DIR", defaultOutputDir)))

	cfg := &AppConfig{
		logger:           logger,
		backendURL:       strings.TrimRight(getEnv("BACKEND_URL", defaultBackendURL), "/"),
		listenAddr:       getEnv("LISTEN_ADDR", defaultListenAddr),
		outputDir:        outputDir,
		timezone:         getEnv("TIMEZONE", defaultTimezone),
		commandURL:       getEnv("COMMAND_URL", ""),
		nowPlayingSource: strings.ToLower(getEnv("NOWPLAYING_SOURCE", defaultNowPlayingSource)),
		powerBackend:     strings.ToLower(getEnv("POWER_BACKEND", defaultPowerBackend)),
		screenWidth:      getEnvInt("SCREEN_WIDTH", 0),
		screenHeight:     getEnvInt("SCREEN_HEIGHT", 0),
		timings: Timings{
			SettleDelay:          getEnvDuration("SETTLE_DELAY", defaultSettleDelay),
			RefreshSettleDelay:   getEnvDuration("REFRESH_SETTLE_DELAY", defaultRefreshSettleDelay),
			CacheRefreshInterval: getEnvDuration("CACHE_REFRESH_INTERVAL", defaultCacheRefreshInterval),
			ReconnectDelay:       getEnvDuration("RECONNECT_DELAY", defaultReconnectDelay),
		},
	}

	logger.Info("Configuration loaded",
		zap.String("backendURL", cfg.backendURL),
		zap.String("listenAddr", cfg.listenAddr),
		zap.String("outputDir", cfg.outputDir),
		zap.String("timezone", cfg.timezone),
		zap.String("nowPlayingSource", cfg.nowPlayingSource),
		zap.String("powerBackend", cfg.powerBackend),
		zap.Bool("remoteCommands", cfg.commandURL != ""))

	return cfg
}

func (c *AppConfig) GetBackendURL() string       { return c.backendURL }
func (c *AppConfig) GetListenAddr() string       { return c.listenAddr }
func (c *AppConfig) GetOutputDir() string        { return c.outputDir }
func (c *AppConfig) GetTimezone() string         { return c.timezone }
func (c *AppConfig) GetCommandURL() string       { return c.commandURL }
func (c *AppConfig) GetNowPlayingSource() string { return c.nowPlayingSource }
func (c *AppConfig) GetPowerBackend() string     { return c.powerBackend }

// GetTimings returns the controller and reconnect delays
func (c *AppConfig) GetTimings() Timings {
	return c.timings
}

// GetScreenSize returns the configured screen size; zero values mean "detect"
func (c *AppConfig) GetScreenSize() (int, int) {
	return c.screenWidth, c.screenHeight
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(envPrefix + key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(envPrefix + key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(envPrefix + key); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
	}
	return fallback
}

// expandHome resolves a leading ~ to the user's home directory
func expandHome(path string) string {
	if len(path) > 0 && path[0] == '~' {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[1:])
		}
	}
	return path
}
