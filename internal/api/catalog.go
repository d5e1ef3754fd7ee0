package api

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-resty/resty/v2"
	"github.com/pipetune/pipetune/internal/stream"
	"github.com/samber/lo"
)

// preferredCatalogTier is the quality label picked when the catalog offers
// multiple tiers for the same track.
const preferredCatalogTier = "320kbps"

// CatalogClient talks to the music-catalog fallback service. Unlike the
// primary providers it is queried by text (title/artist) rather than by
// track id and yields at most one audio stream at a fixed bitrate tier.
type CatalogClient struct {
	client *resty.Client
}

// NewCatalogClient creates a catalog client for the given base URL.
func NewCatalogClient(baseURL string) *CatalogClient {
	return &CatalogClient{
		client: resty.New().
			SetBaseURL(baseURL).
			SetTimeout(requestTimeout),
	}
}

type catalogDownload struct {
	Quality string `json:"quality"`
	URL     string `json:"url"`
}

type catalogResult struct {
	Title     string            `json:"title"`
	Artist    string            `json:"artist"`
	MimeType  string            `json:"mimeType"`
	Downloads []catalogDownload `json:"downloads"`
}

// FindTrack searches the catalog and returns the single best audio stream
// for the first match, or nil when nothing usable came back.
func (c *CatalogClient) FindTrack(ctx context.Context, query string) (*stream.Variant, error) {
	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParam("q", query).
		Get("/search")
	if err != nil {
		return nil, fmt.Errorf("failed to search catalog: %w", err)
	}

	if !resp.IsSuccess() {
		return nil, fmt.Errorf("catalog returned status %d: %s", resp.StatusCode(), resp.Status())
	}

	var response struct {
		Results []catalogResult `json:"results"`
	}
	if err := json.Unmarshal(resp.Body(), &response); err != nil {
		return nil, fmt.Errorf("failed to parse catalog response: %w", err)
	}

	if len(response.Results) == 0 {
		return nil, nil
	}

	result := response.Results[0]
	downloads := lo.Filter(result.Downloads, func(d catalogDownload, _ int) bool {
		return d.URL != ""
	})
	if len(downloads) == 0 {
		return nil, nil
	}

	best, found := lo.Find(downloads, func(d catalogDownload) bool {
		return d.Quality == preferredCatalogTier
	})
	if !found {
		best = lo.MaxBy(downloads, func(a, b catalogDownload) bool {
			return tierBitrate(a.Quality) > tierBitrate(b.Quality)
		})
	}

	mimeType := result.MimeType
	if mimeType == "" {
		mimeType = "audio/mpeg"
	}

	return &stream.Variant{
		URL:      best.URL,
		MimeType: mimeType,
		Quality:  best.Quality,
		Bitrate:  tierBitrate(best.Quality),
	}, nil
}

// Quality labels look like "320kbps" or "96kbps".
func tierBitrate(quality string) int {
	digits := strings.TrimSuffix(strings.ToLower(strings.TrimSpace(quality)), "kbps")
	bitrate, err := strconv.Atoi(digits)
	if err != nil {
		return 0
	}
	return bitrate
}
