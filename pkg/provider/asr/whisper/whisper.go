// Package whisper provides a whisper.cpp-backed ASR provider. It connects to
// a running whisper-server binary, which exposes a REST API at POST
// /inference accepting a multipart WAV upload and returning the transcription
// as JSON with per-segment timestamps.
//
// whisper.cpp expects 16 kHz mono input; callers should normalise clips with
// the audio package before transcribing.
//
// Usage:
//
//	p, err := whisper.New("http://localhost:8080",
//	    whisper.WithModel("base.en"),
//	)
//	result, err := p.Transcribe(ctx, clip, "en")
package whisper

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/sayright/sayright/pkg/audio"
	"github.com/sayright/sayright/pkg/provider/asr"
)

// Compile-time assertion that Provider implements asr.Provider.
var _ asr.Provider = (*Provider)(nil)

const (
	defaultTimeout    = 120 * time.Second
	inferenceEndpoint = "/inference"
)

// Option is a functional option for configuring a Provider.
type Option func(*Provider)

// WithModel sets the model identifier forwarded to the whisper-server (e.g.,
// "base.en", "small"). When empty the server uses whichever model it was
// started with — this is the default.
func WithModel(model string) Option {
	return func(p *Provider) {
		p.model = model
	}
}

// WithTimeout sets the per-request HTTP timeout. Transcription of long clips
// on CPU can take minutes; defaults to 120 s.
func WithTimeout(d time.Duration) Option {
	return func(p *Provider) {
		p.httpClient.Timeout = d
	}
}

// Provider implements asr.Provider backed by a whisper-server instance.
// It is safe for concurrent use.
type Provider struct {
	serverURL  string
	model      string
	httpClient *http.Client
}

// New creates a whisper Provider targeting the server at serverURL (e.g.,
// "http://localhost:8080"). serverURL must be non-empty.
func New(serverURL string, opts ...Option) (*Provider, error) {
	if serverURL == "" {
		return nil, errors.New("whisper: serverURL must not be empty")
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

// inferenceResponse is the JSON body returned by POST /inference when
// response_format=verbose_json is requested.
type inferenceResponse struct {
	Text     string `json:"text"`
	Segments []struct {
		Text  string  `json:"text"`
		Start float64 `json:"start"`
		End   float64 `json:"end"`
	} `json:"segments"`
	Error string `json:"error"`
}

// Transcribe encodes clip as WAV, submits it to the whisper-server, and maps
// the response into an asr.Result with segments ordered as returned by the
// engine.
func (p *Provider) Transcribe(ctx context.Context, clip audio.Clip, language string) (asr.Result, error) {
	if len(clip.Samples) == 0 {
		return asr.Result{}, errors.New("whisper: clip has no samples")
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	fw, err := mw.CreateFormFile("file", "audio.wav")
	if err != nil {
		return asr.Result{}, fmt.Errorf("whisper: create form file: %w", err)
	}
	if _, err := fw.Write(audio.EncodeWAV(clip)); err != nil {
		return asr.Result{}, fmt.Errorf("whisper: write form file: %w", err)
	}
	if err := mw.WriteField("response_format", "verbose_json"); err != nil {
		return asr.Result{}, fmt.Errorf("whisper: write form field: %w", err)
	}
	if language != "" {
		if err := mw.WriteField("language", language); err != nil {
			return asr.Result{}, fmt.Errorf("whisper: write form field: %w", err)
		}
	}
	if p.model != "" {
		if err := mw.WriteField("model", p.model); err != nil {
			return asr.Result{}, fmt.Errorf("whisper: write form field: %w", err)
		}
	}
	if err := mw.Close(); err != nil {
		return asr.Result{}, fmt.Errorf("whisper: close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.serverURL+inferenceEndpoint, &body)
	if err != nil {
		return asr.Result{}, fmt.Errorf("whisper: create inference request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Accept", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return asr.Result{}, fmt.Errorf("whisper: POST %s: %w", inferenceEndpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return asr.Result{}, fmt.Errorf("whisper: POST %s returned status %d: %s",
			inferenceEndpoint, resp.StatusCode, strings.TrimSpace(string(detail)))
	}

	var raw inferenceResponse
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return asr.Result{}, fmt.Errorf("whisper: decode inference response: %w", err)
	}
	if raw.Error != "" {
		return asr.Result{}, fmt.Errorf("whisper: server error: %s", raw.Error)
	}

	result := asr.Result{Text: strings.TrimSpace(raw.Text)}
	for _, seg := range raw.Segments {
		result.Segments = append(result.Segments, asr.Segment{
			Text:  strings.TrimSpace(seg.Text),
			Start: seg.Start,
			End:   seg.End,
		})
	}
	return result, nil
}

// Ping probes the whisper-server via its GET /health endpoint. It is used by
// readiness checks.
func (p *Provider) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.serverURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("whisper: create health request: %w", err)
	}
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("whisper: GET /health: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("whisper: GET /health returned status %d", resp.StatusCode)
	}
	return nil
}
