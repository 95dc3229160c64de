package nowplaying

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/genricoloni/nowshowing/internal/domain"
	"go.uber.org/zap"
)

const opPlexSessions = "plex_sessions"

type sessionsResponse struct {
	MediaContainer struct {
		Size     int `json:"size"`
		Metadata []struct {
			Title            string   `json:"title"`
			GrandparentTitle string   `json:"grandparentTitle"`
			Thumb            string   `json:"thumb"`
			ContentRating    string   `json:"contentRating"`
			AudienceRating   *float64 `json:"audienceRating"`
			Duration         *float64 `json:"duration"`
		} `json:"Metadata"`
	} `json:"MediaContainer"`
}

// SessionsClient reads the active playback sessions of a Plex server
type SessionsClient struct {
	logger *zap.Logger
	client *http.Client
}

// NewSessionsClient creates a Plex sessions client
func NewSessionsClient(logger *zap.Logger) *SessionsClient {
	return &SessionsClient{
		logger: logger,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// NowPlaying returns details of the first active session. ok is false when
// nothing is playing. Rating is halved to the five-star scale and runtime,
// in minutes, is only filled when settings.show_runtime is set.
func (s *SessionsClient) NowPlaying(ctx context.Context, settings domain.Settings) (details domain.NowPlayingDetails, ok bool, err error) {
	if settings.PlexIPAddress == "" {
		return details, false, &domain.FetchError{Op: opPlexSessions, Err: fmt.Errorf("plex address not configured")}
	}

	base := "http://" + PlexHost(settings.PlexIPAddress)
	endpoint := base + "/status/sessions/?" + url.Values{"X-Plex-Token": []string{settings.PlexToken}}.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return details, false, &domain.FetchError{Op: opPlexSessions, Err: err}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return details, false, &domain.FetchError{Op: opPlexSessions, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return details, false, &domain.FetchError{Op: opPlexSessions, Err: fmt.Errorf("unexpected status %d", resp.StatusCode)}
	}

	var body sessionsResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&body); err != nil {
		return details, false, &domain.FetchError{Op: opPlexSessions, Err: fmt.Errorf("decode sessions: %w", err)}
	}

	if body.MediaContainer.Size == 0 || len(body.MediaContainer.Metadata) == 0 {
		return details, false, nil
	}

	session := body.MediaContainer.Metadata[0]
	details.Title = session.Title
	if session.GrandparentTitle != "" {
		details.Title = session.GrandparentTitle
	}
	details.ContentRating = session.ContentRating
	if session.Thumb != "" {
		details.PosterURL = base + session.Thumb + "?" + url.Values{"X-Plex-Token": []string{settings.PlexToken}}.Encode()
	}
	if session.AudienceRating != nil && *session.AudienceRating > 0 {
		rating := *session.AudienceRating / 2
		details.Rating = &rating
	}
	if session.Duration != nil && *session.Duration > 0 && settings.ShowRuntime {
		runtime := *session.Duration / 1000 / 60
		details.Runtime = &runtime
	}

	s.logger.Debug("Plex session found",
		zap.String("title", details.Title),
		zap.Int("sessions", body.MediaContainer.Size))

	return details, true, nil
}
