// Package service provides the playback orchestration layer: it drives the
// resolver, keeps the coordinator and audio engine in sync, and owns the
// explicit source-fallback retries.
package service

import (
	"context"
	"sync"
	"time"

	"github.com/pipetune/pipetune/internal/api"
	"github.com/pipetune/pipetune/internal/config"
	"github.com/pipetune/pipetune/internal/player"
	"github.com/pipetune/pipetune/internal/resolver"
	"github.com/pipetune/pipetune/internal/stream"
	"github.com/pipetune/pipetune/internal/track"
	"github.com/rs/zerolog/log"
)

const progressInterval = time.Second

// AudioEngine is the subset of the audio engine the service drives.
type AudioEngine interface {
	Play(url string) error
	Stop()
	SetPaused(paused bool)
	SetVolume(volumePercent int)
	SetMuted(muted bool)
	Position() time.Duration
}

// PlaybackService wires resolution into playback. It is the "caller" in the
// resolver's contract: one resolution per attempt, with explicit fallback
// retries driven from here or from the UI.
type PlaybackService struct {
	client      *api.Client
	resolver    *resolver.Resolver
	chain       *resolver.Chain
	coordinator *player.Coordinator
	engine      AudioEngine
	searches    *config.SearchHistory

	mu         sync.Mutex
	lastHint   resolver.Hint // hint used for the current track, zero for default
	nowOrigin  string
	nowBitrate int
}

// NewPlaybackService builds the service and wires engine callbacks and
// coordinator observation.
func NewPlaybackService(
	client *api.Client,
	res *resolver.Resolver,
	chain *resolver.Chain,
	coordinator *player.Coordinator,
	eng AudioEngine,
	searches *config.SearchHistory,
) *PlaybackService {
	s := &PlaybackService{
		client:      client,
		resolver:    res,
		chain:       chain,
		coordinator: coordinator,
		engine:      eng,
		searches:    searches,
	}

	coordinator.Subscribe(s.syncEngine)

	return s
}

// HandleTrackEnd decides what happens when a stream plays out: repeat
// restarts the current track, otherwise the queue advances. Install it as
// the engine's track-end callback.
func (s *PlaybackService) HandleTrackEnd() {
	state := s.coordinator.Snapshot()
	if state.CurrentTrack == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if state.IsRepeat {
		s.coordinator.SetProgress(0, state.Duration)
		if err := s.startCurrent(ctx); err != nil {
			log.Warn().Err(err).Msg("Failed to restart track on repeat")
		}
		return
	}

	// With nothing queued there is no next track; replaying the one that
	// just finished would make repeat-off loop like repeat-on.
	if len(state.Queue) == 0 {
		s.coordinator.SetIsPlaying(false)
		return
	}

	s.PlayNext(ctx)
}

// syncEngine pushes coordinator state changes down to the audio engine.
func (s *PlaybackService) syncEngine(state player.State) {
	s.engine.SetVolume(state.Volume)
	s.engine.SetMuted(state.IsMuted)

	if state.CurrentTrack == nil {
		s.engine.Stop()
		return
	}
	s.engine.SetPaused(!state.IsPlaying)
}

// PlayTrack resolves and plays a track, making it the current track ahead
// of the queue. The resolution result is discarded when the user has moved
// on to another track before it arrived.
func (s *PlaybackService) PlayTrack(ctx context.Context, t track.Track) error {
	s.coordinator.SetCurrentTrack(t)

	s.mu.Lock()
	s.lastHint = resolver.Hint{}
	s.mu.Unlock()

	return s.resolveAndStart(ctx, t, nil)
}

// PlayNext advances the queue and starts the new current track.
func (s *PlaybackService) PlayNext(ctx context.Context) {
	s.coordinator.PlayNext()
	if err := s.startCurrent(ctx); err != nil {
		log.Warn().Err(err).Msg("Failed to play next track")
	}
}

// PlayPrevious retreats the queue and starts the new current track.
func (s *PlaybackService) PlayPrevious(ctx context.Context) {
	s.coordinator.PlayPrevious()
	if err := s.startCurrent(ctx); err != nil {
		log.Warn().Err(err).Msg("Failed to play previous track")
	}
}

func (s *PlaybackService) startCurrent(ctx context.Context) error {
	state := s.coordinator.Snapshot()
	if state.CurrentTrack == nil {
		return nil
	}

	s.mu.Lock()
	s.lastHint = resolver.Hint{}
	s.mu.Unlock()

	return s.resolveAndStart(ctx, *state.CurrentTrack, nil)
}

// SwitchSource re-resolves the current track with an explicit
// provider/instance choice (user override).
func (s *PlaybackService) SwitchSource(ctx context.Context, hint resolver.Hint) error {
	state := s.coordinator.Snapshot()
	if state.CurrentTrack == nil {
		return nil
	}

	s.mu.Lock()
	s.lastHint = hint
	s.mu.Unlock()

	return s.resolveAndStart(ctx, *state.CurrentTrack, &hint)
}

// RetryNextSource advances the fallback chain one step past the hint used
// for the current track and retries. It reports whether another fallback
// existed.
func (s *PlaybackService) RetryNextSource(ctx context.Context) (bool, error) {
	state := s.coordinator.Snapshot()
	if state.CurrentTrack == nil {
		return false, nil
	}

	s.mu.Lock()
	hint, ok := s.chain.Next(s.lastHint)
	if ok {
		s.lastHint = hint
	}
	s.mu.Unlock()

	if !ok {
		return false, nil
	}

	return true, s.resolveAndStart(ctx, *state.CurrentTrack, &hint)
}

func (s *PlaybackService) resolveAndStart(ctx context.Context, t track.Track, hint *resolver.Hint) error {
	var (
		resolved *stream.Resolved
		err      error
	)

	if hint != nil && hint.Source == resolver.SourceCatalog {
		resolved, err = s.resolver.ResolveFromCatalog(ctx, t.ID, t.SearchQuery())
	} else {
		resolved, err = s.resolver.Resolve(ctx, t.ID, hint)
	}
	if err != nil {
		return err
	}

	// A late response loses to whatever the user selected meanwhile.
	if s.coordinator.CurrentTrackID() != t.ID {
		log.Debug().Str("track", t.ID).Msg("Discarding stale resolution result")
		return nil
	}

	if resolved == nil || !resolved.Playable() {
		log.Debug().Str("track", t.ID).Msg("No playable stream found")
		s.setNowPlayingSource("", 0)
		s.coordinator.SetIsPlaying(false)
		return nil
	}

	if err := s.engine.Play(playableURL(resolved)); err != nil {
		log.Warn().Err(err).Str("track", t.ID).Msg("Failed to start playback")
		s.setNowPlayingSource("", 0)
		s.coordinator.SetIsPlaying(false)
		return nil
	}

	bitrate := 0
	if best := resolved.BestAudio(); best != nil {
		bitrate = best.Bitrate
	}
	s.setNowPlayingSource(resolved.Origin, bitrate)

	s.coordinator.SetProgress(0, float64(t.Duration))
	s.client.PushHistoryAsync(t)
	return nil
}

func (s *PlaybackService) setNowPlayingSource(origin string, bitrate int) {
	s.mu.Lock()
	s.nowOrigin = origin
	s.nowBitrate = bitrate
	s.mu.Unlock()
}

// NowPlayingSource reports the origin and audio bitrate of the stream that is
// currently loaded, for display next to the track title. The bitrate is zero
// when the resolution carried no audio variant list.
func (s *PlaybackService) NowPlayingSource() (string, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nowOrigin, s.nowBitrate
}

// playableURL prefers the best proxied audio variant over the primary URL.
func playableURL(resolved *stream.Resolved) string {
	if best := resolved.BestAudio(); best != nil && best.ProxiedURL != "" {
		return best.ProxiedURL
	}
	return resolved.URL
}

// Search queries the backend and records the search string.
func (s *PlaybackService) Search(ctx context.Context, query string) ([]track.Track, error) {
	tracks, err := s.client.Search(ctx, query)
	if err != nil {
		return nil, err
	}
	if s.searches != nil {
		s.searches.Remember(query)
	}
	return tracks, nil
}

// RecentSearches returns the persisted search history.
func (s *PlaybackService) RecentSearches() []string {
	if s.searches == nil {
		return nil
	}
	return s.searches.Recent()
}

// Run reports playback progress to the coordinator until the context ends.
func (s *PlaybackService) Run(ctx context.Context) {
	ticker := time.NewTicker(progressInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			state := s.coordinator.Snapshot()
			if state.CurrentTrack == nil || !state.IsPlaying {
				continue
			}
			s.coordinator.SetProgress(s.engine.Position().Seconds(), float64(state.CurrentTrack.Duration))
		}
	}
}
