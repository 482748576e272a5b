// Package kokoro provides a Kokoro-backed TTS provider that connects to a
// locally-running Kokoro inference server via its REST API. It implements
// the tts.Provider interface.
//
// Synthesis is performed via POST /synthesize with a JSON body and returns a
// RIFF/WAVE response which is decoded into a float32 waveform. The voice
// catalogue is retrieved from GET /voices.
//
// Typical usage:
//
//	p, err := kokoro.New("http://localhost:8880",
//	    kokoro.WithTimeout(30*time.Second),
//	)
//	clip, err := p.Synthesize(ctx, tts.Request{
//	    Text:         "hello there",
//	    LanguageCode: "a",
//	    Voice:        "af_heart",
//	    Speed:        1.0,
//	    SampleRate:   24000,
//	})
package kokoro

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/sayright/sayright/pkg/audio"
	"github.com/sayright/sayright/pkg/provider/tts"
)

// Compile-time interface assertion.
var _ tts.Provider = (*Provider)(nil)

const (
	defaultTimeout     = 60 * time.Second
	synthesizeEndpoint = "/synthesize"
	voicesEndpoint     = "/voices"

	// maxResponseBytes caps the WAV response size (a few minutes of 24 kHz
	// 16-bit audio is well under this).
	maxResponseBytes = 64 << 20
)

// Option is a functional option for configuring a Kokoro Provider.
type Option func(*Provider)

// WithTimeout sets the per-request HTTP timeout for calls to the Kokoro
// server. Synthesis of long passages on CPU can take tens of seconds;
// defaults to 60 s.
func WithTimeout(d time.Duration) Option {
	return func(p *Provider) {
		p.httpClient.Timeout = d
	}
}

// WithHTTPClient replaces the internal HTTP client, primarily for tests.
func WithHTTPClient(c *http.Client) Option {
	return func(p *Provider) {
		p.httpClient = c
	}
}

// Provider implements tts.Provider backed by a Kokoro inference server.
// It is safe for concurrent use; multiple Synthesize calls may run in parallel.
type Provider struct {
	serverURL  string
	httpClient *http.Client
}

// New creates a Kokoro Provider that targets the inference server at
// serverURL (e.g., "http://localhost:8880"). serverURL must be non-empty.
func New(serverURL string, opts ...Option) (*Provider, error) {
	if serverURL == "" {
		return nil, errors.New("kokoro: serverURL must not be empty")
	}
	p := &Provider{
		serverURL:  strings.TrimRight(serverURL, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

// synthesizeRequest is the JSON body sent to POST /synthesize.
type synthesizeRequest struct {
	Text       string  `json:"text"`
	Voice      string  `json:"voice"`
	LangCode   string  `json:"lang_code"`
	Speed      float64 `json:"speed"`
	SampleRate int     `json:"sample_rate,omitempty"`
}

// voicesResponse is the JSON body returned by GET /voices.
type voicesResponse struct {
	Voices []struct {
		ID       string `json:"id"`
		Name     string `json:"name"`
		LangCode string `json:"lang_code"`
	} `json:"voices"`
}

// Synthesize performs a single POST /synthesize call and decodes the WAV
// response into a waveform.
func (p *Provider) Synthesize(ctx context.Context, req tts.Request) (audio.Clip, error) {
	if req.Text == "" {
		return audio.Clip{}, errors.New("kokoro: request text must not be empty")
	}
	speed := req.Speed
	if speed == 0 {
		speed = 1.0
	}
	body := synthesizeRequest{
		Text:       req.Text,
		Voice:      req.Voice,
		LangCode:   req.LanguageCode,
		Speed:      speed,
		SampleRate: req.SampleRate,
	}
	data, err := json.Marshal(body)
	if err != nil {
		return audio.Clip{}, fmt.Errorf("kokoro: marshal synthesize request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.serverURL+synthesizeEndpoint, bytes.NewReader(data))
	if err != nil {
		return audio.Clip{}, fmt.Errorf("kokoro: create synthesize request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "audio/wav")

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return audio.Clip{}, fmt.Errorf("kokoro: POST %s: %w", synthesizeEndpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return audio.Clip{}, fmt.Errorf("kokoro: POST %s returned status %d: %s",
			synthesizeEndpoint, resp.StatusCode, strings.TrimSpace(string(detail)))
	}

	wav, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return audio.Clip{}, fmt.Errorf("kokoro: read WAV response: %w", err)
	}

	clip, err := audio.DecodeWAV(wav)
	if err != nil {
		return audio.Clip{}, fmt.Errorf("kokoro: decode WAV response: %w", err)
	}
	return clip, nil
}

// Voices retrieves the voice catalogue from the Kokoro server via GET /voices.
// The returned list is sorted by voice ID for deterministic output.
func (p *Provider) Voices(ctx context.Context) ([]tts.Voice, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.serverURL+voicesEndpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("kokoro: create voices request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("kokoro: GET %s: %w", voicesEndpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("kokoro: GET %s returned status %d", voicesEndpoint, resp.StatusCode)
	}

	var raw voicesResponse
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("kokoro: decode voices response: %w", err)
	}

	voices := make([]tts.Voice, 0, len(raw.Voices))
	for _, v := range raw.Voices {
		name := v.Name
		if name == "" {
			name = v.ID
		}
		voices = append(voices, tts.Voice{ID: v.ID, Name: name, LanguageCode: v.LangCode})
	}
	sort.Slice(voices, func(i, j int) bool { return voices[i].ID < voices[j].ID })
	return voices, nil
}

// Ping probes the Kokoro server by fetching the voice catalogue. It is used
// by readiness checks.
func (p *Provider) Ping(ctx context.Context) error {
	_, err := p.Voices(ctx)
	return err
}
