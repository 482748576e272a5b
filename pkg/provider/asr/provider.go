// Package asr defines the Provider interface for Automatic Speech Recognition
// backends.
//
// An ASR provider wraps a batch transcription engine (e.g., a local
// whisper-server instance) behind a uniform interface: waveform in,
// transcription with timed segments out. Transcription is expensive; callers
// are expected to front a Provider with the transcription cache.
//
// Implementations must be safe for concurrent use.
package asr

import (
	"context"

	"github.com/sayright/sayright/pkg/audio"
)

// Segment is one recognised span of speech.
type Segment struct {
	// Text is the recognised text for this span.
	Text string `json:"text"`

	// Start is the span start time in seconds from the beginning of the clip.
	Start float64 `json:"start"`

	// End is the span end time in seconds. Start <= End.
	End float64 `json:"end"`
}

// Result is a complete transcription. Segments are ordered by start time and
// non-overlapping by convention of the upstream engine. Results are immutable
// once returned.
type Result struct {
	// Text is the full transcription.
	Text string `json:"text"`

	// Segments holds the timed spans that make up Text.
	Segments []Segment `json:"segments"`
}

// Provider is the abstraction over any ASR backend.
type Provider interface {
	// Transcribe recognises speech in clip and returns the transcription.
	// The clip should be mono; providers may reject other formats. language
	// is the engine-specific language code ("" lets the engine auto-detect).
	Transcribe(ctx context.Context, clip audio.Clip, language string) (Result, error)
}
