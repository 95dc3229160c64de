package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/genricoloni/nowshowing/internal/domain"
	"go.uber.org/zap"
)

const (
	_maxBodySize = 5 * 1024 * 1024
	userAgent    = "nowshowingDaemon/1.0"
)

// Operation names used in FetchError and metrics
const (
	OpGetSettings    = "get_settings"
	OpListPosters    = "list_posters"
	OpRefreshCache   = "refresh_cache"
	OpSetPosterField = "set_poster_field"
	OpPowerCommand   = "power_command"
)

// Client talks to the poster management backend
type Client struct {
	logger  *zap.Logger
	baseURL string
	client  *http.Client
}

// NewClient creates a backend client rooted at baseURL (e.g. http://posters.lan)
func NewClient(logger *zap.Logger, baseURL string) *Client {
	return &Client{
		logger:  logger,
		baseURL: baseURL,
		client: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// postersResponse is the envelope of the poster list endpoints
type postersResponse struct {
	Posters []domain.Poster `json:"posters"`
}

// GetSettings fetches the global display settings
func (c *Client) GetSettings(ctx context.Context) (domain.Settings, error) {
	settings := domain.DefaultSettings()
	if err := c.getJSON(ctx, OpGetSettings, "/api/settings", &settings); err != nil {
		return domain.Settings{}, err
	}
	if settings.PosterDisplaySpeed <= 0 {
		settings.PosterDisplaySpeed = domain.DefaultSettings().PosterDisplaySpeed
	}
	return settings, nil
}

// ListPosters fetches the posters flagged for rotation
func (c *Client) ListPosters(ctx context.Context) ([]domain.Poster, error) {
	return c.getPosters(ctx, OpListPosters, "/api/posters?show_in_rotation=true")
}

// RefreshPosterCache asks the backend to rebuild its cache and returns the result
func (c *Client) RefreshPosterCache(ctx context.Context) ([]domain.Poster, error) {
	return c.getPosters(ctx, OpRefreshCache, "/api/cache-posters")
}

func (c *Client) getPosters(ctx context.Context, op, path string) ([]domain.Poster, error) {
	var resp postersResponse
	if err := c.getJSON(ctx, op, path, &resp); err != nil {
		return nil, err
	}
	posters := resp.Posters
	if posters == nil {
		posters = []domain.Poster{}
	}
	for i := range posters {
		posters[i].Show = false
	}

	c.logger.Debug("Posters fetched", zap.String("op", op), zap.Int("count", len(posters)))
	return posters, nil
}

// SetPosterField updates a single column of a poster
func (c *Client) SetPosterField(ctx context.Context, posterID int64, field string, value any) error {
	if field == "" {
		return fmt.Errorf("field name is required")
	}
	body, err := json.Marshal(map[string]any{
		"_method": "put",
		"value":   value,
	})
	if err != nil {
		return fmt.Errorf("failed to encode field update: %w", err)
	}

	path := "/api/posters/" + strconv.FormatInt(posterID, 10) + "/" + url.PathEscape(field)
	req, err := c.newRequest(ctx, http.MethodPost, path, bytes.NewReader(body))
	if err != nil {
		return &domain.FetchError{Op: OpSetPosterField, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	if _, err := c.do(req); err != nil {
		return &domain.FetchError{Op: OpSetPosterField, Err: err}
	}

	c.logger.Info("Poster field updated",
		zap.Int64("poster", posterID),
		zap.String("field", field))
	return nil
}

// SendPowerCommand asks the backend to drive the display over CEC
func (c *Client) SendPowerCommand(ctx context.Context, cmd domain.PowerCommand) error {
	req, err := c.newRequest(ctx, http.MethodGet, "/api/control-display/"+url.PathEscape(string(cmd)), nil)
	if err != nil {
		return &domain.FetchError{Op: OpPowerCommand, Err: err}
	}
	body, err := c.do(req)
	if err != nil {
		return &domain.FetchError{Op: OpPowerCommand, Err: err}
	}

	c.logger.Info("Power command sent",
		zap.String("command", string(cmd)),
		zap.ByteString("response", body))
	return nil
}

func (c *Client) getJSON(ctx context.Context, op, path string, out any) error {
	req, err := c.newRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return &domain.FetchError{Op: op, Err: err}
	}
	req.Header.Set("Accept", "application/json")

	body, err := c.do(req)
	if err != nil {
		return &domain.FetchError{Op: op, Err: err}
	}
	if err := json.Unmarshal(body, out); err != nil {
		return &domain.FetchError{Op: op, Err: fmt.Errorf("failed to decode response: %w", err)}
	}
	return nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	return req, nil
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("network error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, _maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("failed to read body: %w", err)
	}
	return data, nil
}
