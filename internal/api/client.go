// Package api provides the HTTP clients for the resolution backend and the
// catalog fallback service.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/pipetune/pipetune/internal/stream"
	"github.com/pipetune/pipetune/internal/track"
	"github.com/rs/zerolog/log"
)

const (
	requestTimeout = 30 * time.Second
	historyTimeout = 10 * time.Second

	// DefaultAccessDeniedMessage is used when a 403 body carries no error text.
	DefaultAccessDeniedMessage = "Access denied by video provider"
)

// AccessDeniedError reports an HTTP 403 from the resolution backend. It is
// the only error the resolution path surfaces to callers: it usually means a
// regional or ownership restriction rather than absence, so the UI must
// present it distinctly from "not found".
type AccessDeniedError struct {
	Message string
}

func (e *AccessDeniedError) Error() string {
	return e.Message
}

// Client is the HTTP client for the resolution backend.
type Client struct {
	client  *resty.Client
	baseURL string
}

// NewClient creates a backend client with sensible defaults.
func NewClient(baseURL string) *Client {
	return &Client{
		client: resty.New().
			SetBaseURL(baseURL).
			SetTimeout(requestTimeout),
		baseURL: baseURL,
	}
}

// BaseURL returns the backend origin used for proxy rewriting.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// BestStream asks the backend for the best playable stream of a track.
// Source and instance are forwarded only when set, letting the backend pick
// its default provider otherwise.
//
// A nil result with a nil error means no playable stream was found. Network
// failures and non-403 error statuses degrade to the same nil result, since
// upstream gateway instability is routine. Only a 403 produces an error.
func (c *Client) BestStream(ctx context.Context, trackID, source, instance string) (*stream.Resolved, error) {
	req := c.client.R().SetContext(ctx)
	if source != "" {
		req.SetQueryParam("source", source)
	}
	if instance != "" {
		req.SetQueryParam("instance", instance)
	}

	resp, err := req.Get(fmt.Sprintf("/api/streams/%s/best", url.PathEscape(trackID)))
	if err != nil {
		log.Warn().Err(err).Str("track", trackID).Msg("Stream resolution request failed")
		return nil, nil
	}

	if resp.StatusCode() == 403 {
		return nil, &AccessDeniedError{Message: accessDeniedMessage(resp.Body())}
	}

	if !resp.IsSuccess() {
		log.Debug().Int("status", resp.StatusCode()).Str("track", trackID).Msg("Stream resolution returned non-success status")
		return nil, nil
	}

	var resolved stream.Resolved
	if err := json.Unmarshal(resp.Body(), &resolved); err != nil {
		log.Warn().Err(err).Str("track", trackID).Msg("Failed to parse stream resolution response")
		return nil, nil
	}

	if resolved.RawURL == "" {
		// Older backend builds return the upstream URL under "url" only.
		resolved.RawURL = resolved.URL
	}
	if resolved.RawURL == "" {
		return nil, nil
	}

	return &resolved, nil
}

func accessDeniedMessage(body []byte) string {
	var payload struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Error != "" {
		return payload.Error
	}
	return DefaultAccessDeniedMessage
}

// Search queries the backend search endpoint and maps results onto tracks.
func (c *Client) Search(ctx context.Context, query string) ([]track.Track, error) {
	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParam("q", query).
		Get("/api/search")
	if err != nil {
		return nil, fmt.Errorf("failed to search: %w", err)
	}

	if !resp.IsSuccess() {
		return nil, fmt.Errorf("search returned status %d: %s", resp.StatusCode(), resp.Status())
	}

	var response struct {
		Items []track.Track `json:"items"`
	}
	if err := json.Unmarshal(resp.Body(), &response); err != nil {
		return nil, fmt.Errorf("failed to parse search response: %w", err)
	}

	return response.Items, nil
}

// PushHistory records a played track on the backend.
func (c *Client) PushHistory(ctx context.Context, t track.Track) error {
	resp, err := c.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(t).
		Post("/api/history")
	if err != nil {
		return fmt.Errorf("failed to push history: %w", err)
	}

	if !resp.IsSuccess() {
		return fmt.Errorf("history endpoint returned status %d: %s", resp.StatusCode(), resp.Status())
	}

	return nil
}

// PushHistoryAsync sends a history entry without blocking the caller.
// Failures are logged and discarded; history must never block playback.
func (c *Client) PushHistoryAsync(t track.Track) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), historyTimeout)
		defer cancel()

		if err := c.PushHistory(ctx, t); err != nil {
			log.Warn().Err(err).Str("track", t.ID).Msg("Failed to record history entry")
		}
	}()
}
