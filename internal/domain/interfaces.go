package domain

import "context"

// Catalog is the poster management backend as seen by the display
//
//go:generate mockgen -destination=mocks/catalog_mock.go -package=mocks github.com/genricoloni/nowshowing/internal/domain Catalog,PowerSender
type Catalog interface {
	// GetSettings returns the global display configuration
	GetSettings(ctx context.Context) (Settings, error)

	// ListPosters returns the posters flagged show_in_rotation, ordered
	ListPosters(ctx context.Context) ([]Poster, error)

	// RefreshPosterCache asks the backend to rebuild its poster cache and
	// returns the fresh ordered list
	RefreshPosterCache(ctx context.Context) ([]Poster, error)
}

// PowerSender delivers a power command to the display (best effort)
type PowerSender interface {
	SendPowerCommand(ctx context.Context, cmd PowerCommand) error
}

// Presenter is the presentation layer. It owns trailer and audio playback;
// calls must not block.
type Presenter interface {
	// Publish pushes a fresh state snapshot
	Publish(state State)

	// PlayTrailer starts the trailer identified by trailerID
	PlayTrailer(trailerID string)

	// ClearTrailer removes any trailer currently shown
	ClearTrailer()

	// PlayThemeMusic starts theme music and returns the session handle
	PlayThemeMusic(path string) AudioSession

	// StopThemeMusic fades out and releases the given session
	StopThemeMusic(session AudioSession)
}

// PlaybackEvent is a push notification from a now-playing source.
// State is the raw play-session state string.
type PlaybackEvent struct {
	Source string
	State  string
	Title  string
	ArtURL string
}

// Monitor defines the interface for now-playing sources
type Monitor interface {
	// Start begins monitoring. It should block until context is cancelled
	// or an error occurs
	Start(ctx context.Context) error

	// Stop gracefully stops the monitor
	Stop(ctx context.Context) error

	// Events returns a read-only channel of playback notifications
	Events() <-chan PlaybackEvent
}

// Command is an out-of-band instruction for the display
type Command struct {
	Name string `json:"command"`
}

// CommandReload asks the display to reload settings and posters
const CommandReload = "reload"

// Fetcher defines the interface for retrieving artwork
type Fetcher interface {
	// Fetch downloads image data from a URL
	// Returns the raw image bytes or an error
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// Processor turns artwork into a screen-sized image on disk
type Processor interface {
	// Generate writes the processed image under name and returns its path
	Generate(imgData []byte, name string) (string, error)
}

// Config defines the interface for application configuration
type Config interface {
	GetBackendURL() string
	GetListenAddr() string
	GetOutputDir() string
	GetTimezone() string
	GetCommandURL() string
	GetNowPlayingSource() string
	GetPowerBackend() string
}
