// Package stream defines resolved stream models and proxy URL rewriting.
package stream

import (
	"net/url"
	"strings"

	"github.com/samber/lo"
)

// Variant is a single quality tier of a resolved stream.
type Variant struct {
	URL        string `json:"url"`
	ProxiedURL string `json:"proxiedUrl,omitempty"`
	MimeType   string `json:"mimeType,omitempty"`
	Codec      string `json:"codec,omitempty"`
	Quality    string `json:"quality,omitempty"`
	Bitrate    int    `json:"bitrate,omitempty"`
	Width      int    `json:"width,omitempty"`
	Height     int    `json:"height,omitempty"`
	FPS        int    `json:"fps,omitempty"`
}

// Resolved is the normalized result of a stream resolution. It is ephemeral:
// recomputed on every resolution call and never persisted.
type Resolved struct {
	// URL is the primary playable URL, already proxy-rewritten. It resolves
	// to ProxiedURL when one exists and falls back to RawURL otherwise.
	URL          string    `json:"url"`
	RawURL       string    `json:"rawUrl"`
	ProxiedURL   string    `json:"proxiedUrl,omitempty"`
	ManifestURL  string    `json:"manifestUrl,omitempty"`
	MimeType     string    `json:"mimeType,omitempty"`
	Origin       string    `json:"origin,omitempty"`
	Instance     string    `json:"instance,omitempty"`
	VideoStreams []Variant `json:"videoStreams,omitempty"`
	AudioStreams []Variant `json:"audioStreams,omitempty"`
}

// ProxyURL builds the backend proxy endpoint for an upstream URL so the
// player never hits the upstream host directly.
func ProxyURL(apiBase, trackID, upstream, source, instance string) string {
	q := url.Values{}
	q.Set("src", upstream)
	if source != "" {
		q.Set("source", source)
	}
	if instance != "" {
		q.Set("instance", instance)
	}
	return strings.TrimRight(apiBase, "/") + "/api/streams/" + url.PathEscape(trackID) + "/proxy?" + q.Encode()
}

// Rewrite routes every URL-bearing field through the backend proxy. The
// backend may return ProxiedURL as a same-origin relative path; it is
// prefixed with the API base so the result is usable from anywhere.
func (r *Resolved) Rewrite(apiBase, trackID, source, instance string) {
	base := strings.TrimRight(apiBase, "/")

	if r.ProxiedURL != "" && strings.HasPrefix(r.ProxiedURL, "/") {
		r.ProxiedURL = base + r.ProxiedURL
	}
	// A relative manifest path is already proxied by the backend; only
	// absolute upstream manifests need wrapping.
	switch {
	case r.ManifestURL == "" || strings.HasPrefix(r.ManifestURL, base):
	case strings.HasPrefix(r.ManifestURL, "/"):
		r.ManifestURL = base + r.ManifestURL
	default:
		r.ManifestURL = ProxyURL(apiBase, trackID, r.ManifestURL, source, instance)
	}

	rewriteVariants(r.VideoStreams, apiBase, trackID, source, instance)
	rewriteVariants(r.AudioStreams, apiBase, trackID, source, instance)

	if r.ProxiedURL != "" {
		r.URL = r.ProxiedURL
	} else {
		// Last resort: the raw upstream URL may fail under CORS, which is
		// acceptable degraded behavior.
		r.URL = r.RawURL
	}
}

func rewriteVariants(variants []Variant, apiBase, trackID, source, instance string) {
	for i := range variants {
		v := &variants[i]
		if v.URL == "" {
			continue
		}
		if v.ProxiedURL == "" {
			v.ProxiedURL = ProxyURL(apiBase, trackID, v.URL, source, instance)
		} else if strings.HasPrefix(v.ProxiedURL, "/") {
			v.ProxiedURL = strings.TrimRight(apiBase, "/") + v.ProxiedURL
		}
	}
}

// BestAudio returns the highest-bitrate audio variant, or nil when the
// resolution carried no audio stream list.
func (r *Resolved) BestAudio() *Variant {
	if len(r.AudioStreams) == 0 {
		return nil
	}
	best := lo.MaxBy(r.AudioStreams, func(a, b Variant) bool {
		return a.Bitrate > b.Bitrate
	})
	return &best
}

// Playable reports whether the resolution produced anything the player can
// consume.
func (r *Resolved) Playable() bool {
	return r != nil && r.URL != ""
}
