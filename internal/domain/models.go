package domain

// PlayerStatus represents the playback state reported by a now-playing source
type PlayerStatus string

const (
	// StatusPlaying indicates the media is currently playing
	StatusPlaying PlayerStatus = "playing"
	// StatusPaused indicates the media is paused
	StatusPaused PlayerStatus = "paused"
	// StatusStopped indicates the media is stopped
	StatusStopped PlayerStatus = "stopped"
)

// PowerCommand is a display power request
type PowerCommand string

const (
	PowerOn      PowerCommand = "on"
	PowerStandby PowerCommand = "standby"
)

// Poster is a single entry of the rotation catalog.
// Show is owned by the rotation controller; the value received from the
// backend is ignored.
type Poster struct {
	ID             int64    `json:"id"`
	Name           string   `json:"name"`
	FileName       string   `json:"file_name"`
	ShowInRotation bool     `json:"show_in_rotation"`
	Ordinal        int      `json:"ordinal"`
	CanDelete      bool     `json:"can_delete"`
	ImdbID         string   `json:"imdb_id,omitempty"`
	MpaaRating     string   `json:"mpaa_rating,omitempty"`
	AudienceRating *float64 `json:"audience_rating,omitempty"`
	TrailerPath    string   `json:"trailer_path,omitempty"`
	ShowTrailer    bool     `json:"show_trailer"`
	Runtime        int      `json:"runtime,omitempty"`
	PlayThemeMusic bool     `json:"play_theme_music"`
	ThemeMusicPath string   `json:"theme_music_path,omitempty"`
	Image          *string  `json:"image"`
	Show           bool     `json:"show"`

	PosterProLogos
}

// PosterProLogos holds the per-poster badge overrides. Nil means "not set".
type PosterProLogos struct {
	DolbyAtmos  *bool `json:"show_dolby_atmos,omitempty"`
	DolbyVision *bool `json:"show_dolby_vision,omitempty"`
	DTSX        *bool `json:"show_dtsx,omitempty"`
	Auro3D      *bool `json:"show_auro_3d,omitempty"`
	IMAX        *bool `json:"show_imax,omitempty"`
	Dolby51     *bool `json:"show_dolby_51,omitempty"`
}

// Any reports whether at least one of the poster's badges is set to true
func (p PosterProLogos) Any() bool {
	for _, v := range []*bool{p.DolbyAtmos, p.DolbyVision, p.DTSX, p.Auro3D, p.IMAX, p.Dolby51} {
		if v != nil && *v {
			return true
		}
	}
	return false
}

// Flags resolves the overrides, treating missing values as false
func (p PosterProLogos) Flags() ProLogos {
	return ProLogos{
		DolbyAtmos:  deref(p.DolbyAtmos),
		DolbyVision: deref(p.DolbyVision),
		DTSX:        deref(p.DTSX),
		Auro3D:      deref(p.Auro3D),
		IMAX:        deref(p.IMAX),
		Dolby51:     deref(p.Dolby51),
	}
}

func deref(b *bool) bool {
	return b != nil && *b
}

// ProLogos is a resolved set of format badges
type ProLogos struct {
	DolbyAtmos  bool `json:"dolby_atmos"`
	DolbyVision bool `json:"dolby_vision"`
	DTSX        bool `json:"dtsx"`
	Auro3D      bool `json:"auro_3d"`
	IMAX        bool `json:"imax"`
	Dolby51     bool `json:"dolby_51"`
}

// Settings is the global display configuration snapshot served by the backend
type Settings struct {
	PosterDisplaySpeed    int    `json:"poster_display_speed"`
	TransitionType        string `json:"transition_type"`
	RandomOrder           bool   `json:"random_order"`
	ShowRuntime           bool   `json:"show_runtime"`
	PlayThemeMusic        bool   `json:"play_theme_music"`
	UseGlobalProLogos     bool   `json:"use_global_prologos"`
	UseGlobalIfNoProLogos bool   `json:"use_global_prologos_if_no_poster_prologos"`

	PlexService   bool   `json:"plex_service"`
	PlexIPAddress string `json:"plex_ip_address"`
	PlexToken     string `json:"plex_token"`

	UseCECPower    bool   `json:"use_cec_power"`
	StartPowerTime string `json:"start_power_time"`
	EndPowerTime   string `json:"end_power_time"`

	ShowDolbyAtmos  bool `json:"show_dolby_atmos_vertical"`
	ShowDolbyVision bool `json:"show_dolby_vision_vertical"`
	ShowDTS         bool `json:"show_dts"`
	ShowAuro3D      bool `json:"show_auro_3d"`
	ShowIMAX        bool `json:"show_imax"`
	ShowDolby51     bool `json:"show_dolby_51"`
}

// DefaultSettings mirrors what the display uses before the backend answers
func DefaultSettings() Settings {
	return Settings{
		PosterDisplaySpeed: 15000,
		TransitionType:     "fade",
	}
}

// ProLogos returns the settings-level badges
func (s Settings) ProLogos() ProLogos {
	return ProLogos{
		DolbyAtmos:  s.ShowDolbyAtmos,
		DolbyVision: s.ShowDolbyVision,
		DTSX:        s.ShowDTS,
		Auro3D:      s.ShowAuro3D,
		IMAX:        s.ShowIMAX,
		Dolby51:     s.ShowDolby51,
	}
}

// PresentationFlags describe which overlays the presentation layer renders
// for the active poster and which side effects it should trigger.
type PresentationFlags struct {
	MpaaRating     string   `json:"mpaa_rating,omitempty"`
	AudienceRating *float64 `json:"audience_rating,omitempty"`
	Runtime        *int     `json:"runtime,omitempty"`
	PlayTrailer    bool     `json:"play_trailer"`
	TrailerPath    string   `json:"trailer_path,omitempty"`
	PlayThemeMusic bool     `json:"play_theme_music"`
	ThemeMusicPath string   `json:"theme_music_path,omitempty"`
	ProLogos       ProLogos `json:"prologos"`
}

// NowPlayingDetails describes the title currently playing on the Plex server
type NowPlayingDetails struct {
	PosterURL     string   `json:"poster_url"`
	Title         string   `json:"title,omitempty"`
	ContentRating string   `json:"content_rating,omitempty"`
	Rating        *float64 `json:"rating,omitempty"`
	Runtime       *float64 `json:"runtime,omitempty"`
	ArtworkPath   string   `json:"artwork_path,omitempty"`
}

// AudioSession identifies a theme-music playback owned by the presentation layer
type AudioSession struct {
	ID   string `json:"id"`
	Path string `json:"path"`
}

// State is the read-only snapshot exposed to the presentation layer
type State struct {
	Loading           bool               `json:"loading"`
	LoadingMessage    string             `json:"loading_message"`
	Poster            *Poster            `json:"poster"`
	Presentation      *PresentationFlags `json:"presentation"`
	NowPlaying        bool               `json:"now_playing"`
	NowPlayingDetails *NowPlayingDetails `json:"now_playing_details"`
	VideoPlaying      bool               `json:"video_playing"`
	ThemeMusic        *AudioSession      `json:"theme_music"`
	TransitionType    string             `json:"transition_type"`
	DisplaySpeedMS    int                `json:"display_speed_ms"`
	CatalogSize       int                `json:"catalog_size"`
}

// ScreenResolution holds the display dimensions
type ScreenResolution struct {
	Width  int
	Height int
}
