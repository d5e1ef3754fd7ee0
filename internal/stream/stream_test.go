package stream

import (
	"net/url"
	"strings"
	"testing"
)

func TestProxyURL(t *testing.T) {
	got := ProxyURL("http://localhost:3000", "abc123", "https://up.example/raw", "piped", "https://pipedapi.example")

	if !strings.HasPrefix(got, "http://localhost:3000/api/streams/abc123/proxy?") {
		t.Fatalf("ProxyURL() = %q, want localhost proxy prefix", got)
	}

	parsed, err := url.Parse(got)
	if err != nil {
		t.Fatalf("ProxyURL() produced unparsable URL: %v", err)
	}

	q := parsed.Query()
	if q.Get("src") != "https://up.example/raw" {
		t.Errorf("src = %q, want upstream URL", q.Get("src"))
	}
	if q.Get("source") != "piped" {
		t.Errorf("source = %q, want %q", q.Get("source"), "piped")
	}
	if q.Get("instance") != "https://pipedapi.example" {
		t.Errorf("instance = %q, want instance URL", q.Get("instance"))
	}
}

func TestProxyURLOmitsEmptyParams(t *testing.T) {
	got := ProxyURL("http://localhost:3000", "abc123", "https://up.example/raw", "", "")

	parsed, err := url.Parse(got)
	if err != nil {
		t.Fatalf("ProxyURL() produced unparsable URL: %v", err)
	}

	q := parsed.Query()
	if q.Has("source") {
		t.Error("source param should be omitted when empty")
	}
	if q.Has("instance") {
		t.Error("instance param should be omitted when empty")
	}
}

func TestRewritePrimaryURL(t *testing.T) {
	r := &Resolved{
		RawURL:     "https://up.example/raw",
		ProxiedURL: "/api/streams/abc123/proxy?src=https%3A%2F%2Fup.example%2Fraw",
	}

	r.Rewrite("http://localhost:3000", "abc123", "piped", "")

	want := "http://localhost:3000/api/streams/abc123/proxy?src=https%3A%2F%2Fup.example%2Fraw"
	if r.URL != want {
		t.Errorf("URL = %q, want %q", r.URL, want)
	}
	if r.RawURL != "https://up.example/raw" {
		t.Errorf("RawURL = %q, want original upstream URL", r.RawURL)
	}
}

func TestRewriteFallsBackToRawURL(t *testing.T) {
	r := &Resolved{RawURL: "https://up.example/raw"}

	r.Rewrite("http://localhost:3000", "abc123", "", "")

	if r.URL != "https://up.example/raw" {
		t.Errorf("URL = %q, want raw upstream fallback", r.URL)
	}
}

func TestRewriteVariantsAreProxySafe(t *testing.T) {
	r := &Resolved{
		RawURL:     "https://up.example/raw",
		ProxiedURL: "/api/streams/abc123/proxy?src=x",
		AudioStreams: []Variant{
			{URL: "https://up.example/audio-128", Bitrate: 128},
			{URL: "https://up.example/audio-160", Bitrate: 160, ProxiedURL: "/api/streams/abc123/proxy?src=y"},
		},
		VideoStreams: []Variant{
			{URL: "https://up.example/video-720", Width: 1280, Height: 720},
		},
	}

	r.Rewrite("http://localhost:3000", "abc123", "invidious", "https://yewtu.be")

	for _, v := range append(r.AudioStreams, r.VideoStreams...) {
		if v.ProxiedURL == "" {
			t.Errorf("variant %q has no proxied URL", v.URL)
			continue
		}
		if !strings.HasPrefix(v.ProxiedURL, "http://localhost:3000/") {
			t.Errorf("variant proxied URL %q is not same-origin", v.ProxiedURL)
		}
	}
}

func TestRewriteManifestURL(t *testing.T) {
	r := &Resolved{
		RawURL:      "https://up.example/raw",
		ManifestURL: "https://up.example/manifest.mpd",
	}

	r.Rewrite("http://localhost:3000", "abc123", "piped", "")

	if !strings.HasPrefix(r.ManifestURL, "http://localhost:3000/api/streams/abc123/proxy?") {
		t.Errorf("ManifestURL = %q, want proxy-rewritten URL", r.ManifestURL)
	}
}

func TestRewriteRelativeManifestURL(t *testing.T) {
	r := &Resolved{
		RawURL:      "https://up.example/raw",
		ManifestURL: "/api/streams/abc123/proxy?src=https%3A%2F%2Fup.example%2Fmanifest.mpd",
	}

	r.Rewrite("http://localhost:3000", "abc123", "piped", "")

	want := "http://localhost:3000/api/streams/abc123/proxy?src=https%3A%2F%2Fup.example%2Fmanifest.mpd"
	if r.ManifestURL != want {
		t.Errorf("ManifestURL = %q, want the API base prefixed, not a nested proxy URL", r.ManifestURL)
	}
}

func TestBestAudio(t *testing.T) {
	tests := []struct {
		name     string
		streams  []Variant
		wantURL  string
		wantNone bool
	}{
		{
			name: "picks highest bitrate",
			streams: []Variant{
				{URL: "low", Bitrate: 64},
				{URL: "high", Bitrate: 160},
				{URL: "mid", Bitrate: 128},
			},
			wantURL: "high",
		},
		{
			name:     "no audio streams",
			streams:  nil,
			wantNone: true,
		},
		{
			name:    "single stream",
			streams: []Variant{{URL: "only", Bitrate: 96}},
			wantURL: "only",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &Resolved{AudioStreams: tt.streams}
			best := r.BestAudio()

			if tt.wantNone {
				if best != nil {
					t.Errorf("BestAudio() = %+v, want nil", best)
				}
				return
			}

			if best == nil {
				t.Fatal("BestAudio() = nil, want a variant")
			}
			if best.URL != tt.wantURL {
				t.Errorf("BestAudio().URL = %q, want %q", best.URL, tt.wantURL)
			}
		})
	}
}

func TestPlayable(t *testing.T) {
	var nilResolved *Resolved
	if nilResolved.Playable() {
		t.Error("nil Resolved should not be playable")
	}
	if (&Resolved{}).Playable() {
		t.Error("Resolved without URL should not be playable")
	}
	if !(&Resolved{URL: "http://localhost:3000/x"}).Playable() {
		t.Error("Resolved with URL should be playable")
	}
}
