// Package resolver turns opaque track identifiers into playable, proxy-safe
// streams, remembering which provider satisfied each track.
package resolver

import (
	"context"

	"github.com/pipetune/pipetune/internal/api"
	"github.com/pipetune/pipetune/internal/prefs"
	"github.com/pipetune/pipetune/internal/stream"
	"github.com/rs/zerolog/log"
)

// Source identifies a provider family that can resolve a track.
type Source string

const (
	SourcePiped     Source = "piped"
	SourceInvidious Source = "invidious"
	// SourceCatalog is the audio-only last resort, queried by text rather
	// than by track id. It never becomes a stored preference.
	SourceCatalog Source = "catalog"

	// DefaultSource is what the backend falls back to when no source is
	// requested. Resolutions through it need no preference entry.
	DefaultSource = SourcePiped
)

// Hint carries an explicit provider/instance choice for one resolution.
type Hint struct {
	Source   Source
	Instance string
}

// IsZero reports whether the hint carries no explicit choice.
func (h Hint) IsZero() bool {
	return h.Source == "" && h.Instance == ""
}

// Resolver orchestrates stream resolution: preference lookup, one backend
// request, proxy rewriting, and the preference write-back.
type Resolver struct {
	client  *api.Client
	catalog *api.CatalogClient
	store   *prefs.Store
}

// New creates a resolver. The catalog client may be nil when no catalog
// fallback is configured.
func New(client *api.Client, catalog *api.CatalogClient, store *prefs.Store) *Resolver {
	return &Resolver{
		client:  client,
		catalog: catalog,
		store:   store,
	}
}

// Resolve fetches the best stream for a track. Precedence for the upstream
// choice is explicit hint, then stored preference, then none (backend picks
// its default).
//
// A nil result with nil error means no playable stream ("not found"); the
// only returned error type is api.AccessDeniedError. One call makes exactly
// one upstream attempt: retries against other sources are driven by the
// caller through explicit hints.
func (r *Resolver) Resolve(ctx context.Context, trackID string, hint *Hint) (*stream.Resolved, error) {
	source, instance := r.effectiveChoice(trackID, hint)

	resolved, err := r.client.BestStream(ctx, trackID, string(source), instance)
	if err != nil {
		return nil, err
	}
	if resolved == nil {
		return nil, nil
	}

	// Trust the backend's report of who actually served the request over
	// what was asked for.
	origin := source
	if resolved.Origin != "" {
		origin = Source(resolved.Origin)
	} else {
		resolved.Origin = string(origin)
	}
	if resolved.Instance == "" {
		resolved.Instance = instance
	}

	resolved.Rewrite(r.client.BaseURL(), trackID, string(origin), resolved.Instance)

	if origin != SourceCatalog && (origin != DefaultSource || (hint != nil && !hint.IsZero())) {
		r.store.Remember(trackID, string(origin), resolved.Instance)
	}

	return resolved, nil
}

// ResolveFromCatalog looks the track up in the catalog fallback by text
// query. At most one audio stream comes back, at the catalog's preferred
// bitrate tier, proxy-rewritten like any other result.
func (r *Resolver) ResolveFromCatalog(ctx context.Context, trackID, query string) (*stream.Resolved, error) {
	if r.catalog == nil || query == "" {
		return nil, nil
	}

	variant, err := r.catalog.FindTrack(ctx, query)
	if err != nil {
		log.Warn().Err(err).Str("track", trackID).Msg("Catalog fallback failed")
		return nil, nil
	}
	if variant == nil {
		return nil, nil
	}

	resolved := &stream.Resolved{
		RawURL:       variant.URL,
		MimeType:     variant.MimeType,
		Origin:       string(SourceCatalog),
		AudioStreams: []stream.Variant{*variant},
	}
	resolved.ProxiedURL = stream.ProxyURL(r.client.BaseURL(), trackID, variant.URL, string(SourceCatalog), "")
	resolved.Rewrite(r.client.BaseURL(), trackID, string(SourceCatalog), "")

	return resolved, nil
}

func (r *Resolver) effectiveChoice(trackID string, hint *Hint) (Source, string) {
	if hint != nil && !hint.IsZero() {
		return hint.Source, hint.Instance
	}

	if pref, ok := r.store.Lookup(trackID).Get(); ok {
		return Source(pref.Source), pref.Instance
	}

	return "", ""
}
