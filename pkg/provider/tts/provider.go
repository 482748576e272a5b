// Package tts defines the Provider interface for Text-to-Speech backends.
//
// A TTS provider wraps a speech synthesis engine (e.g., a local Kokoro
// server) and presents a uniform batch interface: text in, decoded waveform
// out. Synthesis of reference audio is an expensive operation; callers are
// expected to front a Provider with the reference-audio cache rather than
// invoking it per request.
//
// Implementations must be safe for concurrent use.
package tts

import (
	"context"

	"github.com/sayright/sayright/pkg/audio"
)

// Request describes a single synthesis call.
type Request struct {
	// Text is the utterance to synthesise.
	Text string

	// LanguageCode is the engine-specific language code (already mapped from
	// a BCP-47 tag by the caller; see the lang package).
	LanguageCode string

	// Voice is the engine-specific voice identifier (e.g., "af_heart").
	Voice string

	// Speed adjusts the speaking rate (1.0 = default).
	Speed float64

	// SampleRate is the desired output sample rate in Hz. Zero lets the
	// engine use its native rate.
	SampleRate int
}

// Voice describes one synthesis voice offered by a provider.
type Voice struct {
	// ID is the engine-specific voice identifier.
	ID string

	// Name is a human-readable label.
	Name string

	// LanguageCode is the engine language code the voice belongs to.
	LanguageCode string
}

// Provider is the abstraction over any TTS backend.
//
// Implementations must be safe for concurrent use; multiple synthesis
// requests may run in parallel.
type Provider interface {
	// Synthesize renders req.Text as speech and returns the decoded waveform.
	// Returns an error if the engine cannot be reached, rejects the request,
	// or ctx is cancelled.
	Synthesize(ctx context.Context, req Request) (audio.Clip, error)

	// Voices returns the catalogue of voices currently offered by the engine.
	Voices(ctx context.Context) ([]Voice, error)
}
