// Package player holds the playback state machine: current track, play
// queue, and transport flags. It is the only writer of that state; the UI
// and the audio engine observe it.
package player

import (
	"math/rand/v2"
	"sync"

	"github.com/pipetune/pipetune/internal/config"
	"github.com/pipetune/pipetune/internal/track"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
)

// Status is the derived playback phase.
type Status int

const (
	StatusIdle Status = iota
	StatusPlaying
	StatusPaused
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "IDLE"
	case StatusPlaying:
		return "PLAYING"
	case StatusPaused:
		return "PAUSED"
	default:
		return "UNKNOWN"
	}
}

// State is a snapshot of the playback state. Queue order is playback order
// and entries are unique by track id.
type State struct {
	CurrentTrack *track.Track
	Queue        []track.Track
	IsPlaying    bool
	Volume       int
	IsMuted      bool
	IsRepeat     bool
	IsShuffle    bool
	CurrentTime  float64
	Duration     float64
}

// Status derives the playback phase: no current track means idle no matter
// what IsPlaying says.
func (s State) Status() Status {
	if s.CurrentTrack == nil {
		return StatusIdle
	}
	if s.IsPlaying {
		return StatusPlaying
	}
	return StatusPaused
}

// Observer receives a state snapshot after every mutation.
type Observer func(State)

// Coordinator owns the playback state. Every mutation notifies all
// subscribed observers synchronously before the call returns.
type Coordinator struct {
	mu        sync.RWMutex
	state     State
	observers []Observer
}

// NewCoordinator creates a coordinator with the given initial volume.
func NewCoordinator(volume int) *Coordinator {
	return &Coordinator{
		state: State{Volume: config.ClampVolume(volume)},
	}
}

// Subscribe registers an observer for state changes. Not safe to call
// concurrently with mutations; register observers during setup.
func (c *Coordinator) Subscribe(fn Observer) {
	c.mu.Lock()
	c.observers = append(c.observers, fn)
	c.mu.Unlock()
}

// Snapshot returns a copy of the current state.
func (c *Coordinator) Snapshot() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snapshotLocked()
}

// CurrentTrackID returns the id of the current track, or "" when idle.
// Callers resolving streams use it to discard stale responses.
func (c *Coordinator) CurrentTrackID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.state.CurrentTrack == nil {
		return ""
	}
	return c.state.CurrentTrack.ID
}

func (c *Coordinator) snapshotLocked() State {
	snap := c.state
	if c.state.CurrentTrack != nil {
		t := *c.state.CurrentTrack
		snap.CurrentTrack = &t
	}
	snap.Queue = make([]track.Track, len(c.state.Queue))
	copy(snap.Queue, c.state.Queue)
	return snap
}

func (c *Coordinator) notify(snap State, observers []Observer) {
	for _, fn := range observers {
		fn(snap)
	}
}

// mutate runs fn under the write lock and notifies observers with the
// resulting snapshot before returning.
func (c *Coordinator) mutate(fn func(*State)) {
	c.mu.Lock()
	fn(&c.state)
	snap := c.snapshotLocked()
	observers := c.observers
	c.mu.Unlock()

	c.notify(snap, observers)
}

// SetCurrentTrack replaces the current track and implicitly starts playback.
// It does not reset the playhead; track changes driven by PlayNext and
// PlayPrevious do that themselves.
func (c *Coordinator) SetCurrentTrack(t track.Track) {
	c.mutate(func(s *State) {
		s.CurrentTrack = &t
		s.IsPlaying = true
	})
	log.Debug().Str("track", t.ID).Msg("Current track set")
}

// SetQueue replaces the queue wholesale, deduplicated by track id. The
// current track is left untouched.
func (c *Coordinator) SetQueue(tracks []track.Track) {
	unique := lo.UniqBy(tracks, func(t track.Track) string { return t.ID })
	c.mutate(func(s *State) {
		s.Queue = unique
	})
}

// AddToQueue appends a track, ignoring ids already queued.
func (c *Coordinator) AddToQueue(t track.Track) {
	c.mutate(func(s *State) {
		if lo.ContainsBy(s.Queue, func(q track.Track) bool { return q.ID == t.ID }) {
			return
		}
		s.Queue = append(s.Queue, t)
	})
}

// RemoveFromQueue removes the entry at the given position. An out-of-range
// index is a no-op.
func (c *Coordinator) RemoveFromQueue(index int) {
	c.mutate(func(s *State) {
		if index < 0 || index >= len(s.Queue) {
			return
		}
		s.Queue = append(s.Queue[:index], s.Queue[index+1:]...)
	})
}

// PlayNext advances to the next track and resets the playhead. On an empty
// queue it is a no-op. With shuffle on it picks uniformly among queued
// tracks other than the current one, replaying the current track when no
// distinct track exists. Otherwise it advances one position, wrapping at
// the end; a current track missing from the queue counts as index -1, so
// the next track is index 0.
func (c *Coordinator) PlayNext() {
	c.advance(func(index, size int) int {
		return (index + 1) % size
	})
}

// PlayPrevious retreats one position with the same rules as PlayNext,
// wrapping from the first entry to the last.
func (c *Coordinator) PlayPrevious() {
	c.advance(func(index, size int) int {
		if index <= 0 {
			return size - 1
		}
		return index - 1
	})
}

func (c *Coordinator) advance(step func(index, size int) int) {
	c.mutate(func(s *State) {
		if len(s.Queue) == 0 {
			return
		}

		currentID := ""
		if s.CurrentTrack != nil {
			currentID = s.CurrentTrack.ID
		}

		var next track.Track
		if s.IsShuffle {
			others := lo.Filter(s.Queue, func(t track.Track, _ int) bool {
				return t.ID != currentID
			})
			if len(others) == 0 {
				// Only the current track is queued: replay it from the top.
				s.CurrentTime = 0
				s.IsPlaying = true
				return
			}
			next = others[rand.IntN(len(others))]
		} else {
			index := lo.IndexOf(lo.Map(s.Queue, func(t track.Track, _ int) string { return t.ID }), currentID)
			next = s.Queue[step(index, len(s.Queue))]
		}

		s.CurrentTrack = &next
		s.CurrentTime = 0
		s.IsPlaying = true
	})
}

// TogglePlay flips the playing flag. It does not validate that a track is
// loaded.
func (c *Coordinator) TogglePlay() {
	c.mutate(func(s *State) {
		s.IsPlaying = !s.IsPlaying
	})
}

// SetIsPlaying sets the playing flag.
func (c *Coordinator) SetIsPlaying(playing bool) {
	c.mutate(func(s *State) {
		s.IsPlaying = playing
	})
}

// ToggleShuffle flips shuffle mode.
func (c *Coordinator) ToggleShuffle() {
	c.mutate(func(s *State) {
		s.IsShuffle = !s.IsShuffle
	})
}

// ToggleRepeat flips repeat mode. The coordinator only exposes the flag;
// the audio engine reads it to decide end-of-track behavior.
func (c *Coordinator) ToggleRepeat() {
	c.mutate(func(s *State) {
		s.IsRepeat = !s.IsRepeat
	})
}

// SetVolume sets the clamped volume and unmutes on a non-zero value.
func (c *Coordinator) SetVolume(volume int) {
	c.mutate(func(s *State) {
		s.Volume = config.ClampVolume(volume)
		if s.Volume > 0 {
			s.IsMuted = false
		}
	})
}

// ToggleMute flips the mute flag without losing the volume setting.
func (c *Coordinator) ToggleMute() {
	c.mutate(func(s *State) {
		s.IsMuted = !s.IsMuted
	})
}

// SetProgress records the playhead position reported by the audio engine.
func (c *Coordinator) SetProgress(currentTime, duration float64) {
	c.mutate(func(s *State) {
		s.CurrentTime = currentTime
		s.Duration = duration
	})
}

// ClearQueue empties the queue, clears the current track, and stops
// playback.
func (c *Coordinator) ClearQueue() {
	c.mutate(func(s *State) {
		s.Queue = nil
		s.CurrentTrack = nil
		s.IsPlaying = false
		s.CurrentTime = 0
		s.Duration = 0
	})
}
