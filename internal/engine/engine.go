// Package engine streams and plays a resolved audio URL. It is a
// collaborator of the playback coordinator: it consumes the proxy-safe URL
// the resolver produced and reports track end, but never decides what plays
// next.
package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/effects"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/speaker"
	"github.com/pipetune/pipetune/internal/config"
	"github.com/rs/zerolog/log"
)

const (
	DefaultSampleRate   = beep.SampleRate(44100)
	SpeakerBufferSize   = time.Millisecond * 250
	ReadTimeout         = 10 * time.Second
	VolumeCurveExponent = 0.5
	MinVolumeDB         = -10.0
)

type httpStatusError struct {
	StatusCode int
	Status     string
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("stream returned status %d: %s", e.StatusCode, e.Status)
}

// Relies on context cancellation to clean up the spawned read goroutine.
type contextReader struct {
	reader  io.Reader
	ctx     context.Context
	timeout time.Duration
}

func (cr *contextReader) Read(p []byte) (n int, err error) {
	select {
	case <-cr.ctx.Done():
		return 0, cr.ctx.Err()
	default:
	}

	timer := time.NewTimer(cr.timeout)
	defer timer.Stop()

	type result struct {
		n   int
		err error
	}
	done := make(chan result, 1)

	go func() {
		n, err := cr.reader.Read(p)
		select {
		case done <- result{n, err}:
		case <-cr.ctx.Done():
		}
	}()

	select {
	case res := <-done:
		return res.n, res.err
	case <-timer.C:
		return 0, fmt.Errorf("read timeout: no data received for %v", cr.timeout)
	case <-cr.ctx.Done():
		return 0, cr.ctx.Err()
	}
}

// Engine plays one audio stream at a time through the system speaker.
type Engine struct {
	mu          sync.Mutex
	httpClient  *http.Client
	format      beep.Format
	volume      *effects.Volume
	ctrl        *beep.Ctrl
	streamer    beep.StreamSeekCloser
	cancelFunc  context.CancelFunc
	speakerInit bool
	isPlaying   bool

	volumePercent int
	muted         bool

	onTrackEnd func()
}

// NewEngine creates an engine with an HTTP client tuned for long-lived
// media downloads.
func NewEngine() *Engine {
	httpClient := &http.Client{
		Timeout: 0, // No overall timeout, media downloads are long-lived
		Transport: &http.Transport{
			DialContext: (&net.Dialer{
				Timeout: 10 * time.Second,
			}).DialContext,
			TLSHandshakeTimeout:   10 * time.Second,
			ResponseHeaderTimeout: 15 * time.Second,
			MaxIdleConns:          10,
			IdleConnTimeout:       90 * time.Second,
			DisableCompression:    true,
		},
	}

	return &Engine{
		httpClient: httpClient,
		format: beep.Format{
			SampleRate:  DefaultSampleRate,
			NumChannels: 2,
			Precision:   2,
		},
		volumePercent: config.DefaultVolume,
	}
}

// OnTrackEnd registers the callback invoked when a stream plays to its
// natural end. Stopping or replacing the stream does not fire it.
func (e *Engine) OnTrackEnd(fn func()) {
	e.mu.Lock()
	e.onTrackEnd = fn
	e.mu.Unlock()
}

func (e *Engine) initSpeaker(sampleRate beep.SampleRate) error {
	if !e.speakerInit || sampleRate != e.format.SampleRate {
		if err := speaker.Init(sampleRate, sampleRate.N(SpeakerBufferSize)); err != nil {
			return fmt.Errorf("failed to initialize speaker: %w", err)
		}
		e.format.SampleRate = sampleRate
		e.speakerInit = true
		log.Debug().Msgf("Speaker initialized with sample rate: %d Hz", sampleRate)
	}
	return nil
}

// Play starts streaming the given URL, replacing any current playback. The
// URL is expected to be proxy-rewritten MP3 audio.
func (e *Engine) Play(url string) error {
	e.Stop()

	ctx, cancel := context.WithCancel(context.Background())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		cancel()
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", fmt.Sprintf("PipeTune/%s", config.AppVersion))

	resp, err := e.httpClient.Do(req)
	if err != nil {
		cancel()
		return fmt.Errorf("failed to fetch audio stream: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		cancel()
		return &httpStatusError{StatusCode: resp.StatusCode, Status: resp.Status}
	}

	body := &bodyCloser{
		Reader: &contextReader{reader: resp.Body, ctx: ctx, timeout: ReadTimeout},
		closer: resp.Body,
	}

	streamer, format, err := mp3.Decode(body)
	if err != nil {
		resp.Body.Close()
		cancel()
		return fmt.Errorf("failed to decode audio stream: %w", err)
	}

	e.mu.Lock()
	if err := e.initSpeaker(format.SampleRate); err != nil {
		e.mu.Unlock()
		streamer.Close()
		cancel()
		return err
	}

	e.cancelFunc = cancel
	e.streamer = streamer
	e.format = format

	volumeLevel := percentToExponent(float64(e.volumePercent))
	e.volume = &effects.Volume{
		Streamer: streamer,
		Base:     2,
		Volume:   volumeLevel,
		Silent:   e.muted || e.volumePercent == 0,
	}
	e.ctrl = &beep.Ctrl{Streamer: e.volume}
	e.isPlaying = true
	e.mu.Unlock()

	speaker.Play(beep.Seq(e.ctrl, beep.Callback(e.streamEnded)))

	log.Debug().Str("url", url).Msg("Playback started")
	return nil
}

// streamEnded runs on the speaker goroutine, which holds beep's internal
// mutex while streaming. It must return without touching the engine mutex:
// SetVolume and friends hold it while waiting on speaker.Lock, so blocking
// here would deadlock both goroutines.
func (e *Engine) streamEnded() {
	go func() {
		e.mu.Lock()
		ended := e.isPlaying
		onEnd := e.onTrackEnd
		e.isPlaying = false
		e.mu.Unlock()

		if ended && onEnd != nil {
			onEnd()
		}
	}()
}

// bodyCloser pairs the timeout-wrapped reader with the response body closer
// so mp3.Decode can own stream cleanup.
type bodyCloser struct {
	io.Reader
	closer io.Closer
}

func (b *bodyCloser) Close() error {
	return b.closer.Close()
}

// Stop halts playback without firing the track-end callback.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.cancelFunc != nil {
		e.cancelFunc()
		e.cancelFunc = nil
	}

	if e.isPlaying || e.ctrl != nil {
		e.isPlaying = false
		e.ctrl = nil
		speaker.Clear()
	}

	if e.streamer != nil {
		if err := e.streamer.Close(); err != nil && !errors.Is(err, context.Canceled) {
			log.Debug().Err(err).Msg("Failed to close streamer")
		}
		e.streamer = nil
	}
}

// SetPaused pauses or resumes the current stream.
func (e *Engine) SetPaused(paused bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.ctrl == nil {
		return
	}

	speaker.Lock()
	e.ctrl.Paused = paused
	speaker.Unlock()
}

// SetVolume applies the volume percentage through the exponential curve.
func (e *Engine) SetVolume(volumePercent int) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.volumePercent = config.ClampVolume(volumePercent)

	if e.volume == nil {
		return
	}

	speaker.Lock()
	e.volume.Volume = percentToExponent(float64(e.volumePercent))
	e.volume.Silent = e.muted || e.volumePercent == 0
	speaker.Unlock()
}

// SetMuted silences output without losing the volume setting.
func (e *Engine) SetMuted(muted bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.muted = muted

	if e.volume == nil {
		return
	}

	speaker.Lock()
	e.volume.Silent = muted || e.volumePercent == 0
	speaker.Unlock()
}

// Position reports how much of the current stream has played.
func (e *Engine) Position() time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.streamer == nil {
		return 0
	}

	speaker.Lock()
	pos := e.streamer.Position()
	speaker.Unlock()

	return e.format.SampleRate.D(pos)
}

func percentToExponent(p float64) float64 {
	if p <= 0 {
		return MinVolumeDB
	}
	if p >= 100 {
		return 0
	}

	normalized := p / 100.0
	adjusted := math.Pow(normalized, VolumeCurveExponent)
	return (1.0 - adjusted) * MinVolumeDB
}
