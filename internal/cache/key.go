// Package cache provides the content-addressed disk cache that backs the
// expensive stages of the evaluation pipeline: synthesised reference audio
// and transcriptions.
//
// Cache identity is deterministic: a key's named parameters are normalised,
// serialised to canonical JSON (sorted field names, compact separators)
// together with a version tag, and hashed with BLAKE2b truncated to 16 bytes.
// Identical normalised parameters always produce the identical identifier
// regardless of field insertion order; any field difference changes it with
// overwhelming probability. The truncated digest is a deliberate
// compactness/collision-probability trade-off.
package cache

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"golang.org/x/crypto/blake2b"
)

// digestSize is the truncated BLAKE2b output length in bytes (32 hex chars).
const digestSize = 16

// Key identifies a cacheable computation. ID must be stable across processes
// and independent of how the key was constructed.
type Key interface {
	// ID returns the full cache identifier: a short purpose prefix, an
	// underscore, and the hex digest of the normalised parameters.
	ID() string
}

// Digest hashes the named parameter set together with a version tag and
// returns the lowercase hex digest. The serialised form is
// {"params":{...},"version":tag} with lexicographically sorted keys and no
// incidental whitespace; encoding/json sorts map keys, which gives the
// canonical ordering for free.
//
// Digest is pure and stateless. It panics on unserialisable parameter values,
// which is a programming error rather than a runtime fault.
func Digest(version string, params map[string]any) string {
	payload, err := json.Marshal(map[string]any{
		"version": version,
		"params":  params,
	})
	if err != nil {
		panic(fmt.Sprintf("cache: unserialisable key params: %v", err))
	}
	sum := blake2b.Sum256(payload)
	return hex.EncodeToString(sum[:digestSize])
}

// AudioKey is the immutable parameter set identifying one synthesised
// reference-audio artefact.
type AudioKey struct {
	Text       string
	Speed      float64
	Lang       string
	Voice      string
	SampleRate int
	Provider   string
}

// audioKeyVersion tags the audio key format; bump when the hashed field set
// or normalisation changes so old entries become unreachable rather than
// wrongly matched.
const audioKeyVersion = "tts-v1"

// Normalized returns the canonical form of the key: text, language, and
// voice trimmed and lowercased, provider trimmed, numeric fields unchanged.
// Normalizing an already-normalised key returns an equal key.
func (k AudioKey) Normalized() AudioKey {
	return AudioKey{
		Text:       strings.ToLower(strings.TrimSpace(k.Text)),
		Speed:      k.Speed,
		Lang:       strings.ToLower(strings.TrimSpace(k.Lang)),
		Voice:      strings.ToLower(strings.TrimSpace(k.Voice)),
		SampleRate: k.SampleRate,
		Provider:   strings.TrimSpace(k.Provider),
	}
}

// ID implements Key.
func (k AudioKey) ID() string {
	n := k.Normalized()
	return "tts_" + Digest(audioKeyVersion, map[string]any{
		"text":        n.Text,
		"speed":       n.Speed,
		"lang":        n.Lang,
		"speaker":     n.Voice,
		"sample_rate": n.SampleRate,
		"provider":    n.Provider,
	})
}

// TranscriptionKey identifies one transcription artefact. AudioDigest is a
// content digest of the recognised waveform (see ContentDigest) so that the
// same audio transcribed twice hits the cache regardless of origin.
type TranscriptionKey struct {
	AudioDigest string
	Lang        string
	Provider    string
}

const transcriptionKeyVersion = "asr-v1"

// Normalized returns the canonical form of the key.
func (k TranscriptionKey) Normalized() TranscriptionKey {
	return TranscriptionKey{
		AudioDigest: strings.ToLower(strings.TrimSpace(k.AudioDigest)),
		Lang:        strings.ToLower(strings.TrimSpace(k.Lang)),
		Provider:    strings.TrimSpace(k.Provider),
	}
}

// ID implements Key.
func (k TranscriptionKey) ID() string {
	n := k.Normalized()
	return "asr_" + Digest(transcriptionKeyVersion, map[string]any{
		"key":      n.AudioDigest,
		"lang":     n.Lang,
		"provider": n.Provider,
	})
}

// ContentDigest returns the hex BLAKE2b digest of raw float32 samples,
// used to key transcriptions by audio content.
func ContentDigest(samples []float32) string {
	h, err := blake2b.New(digestSize, nil)
	if err != nil {
		panic(err) // only fails for invalid digest sizes
	}
	var buf [4]byte
	for _, s := range samples {
		bits := math.Float32bits(s)
		buf[0] = byte(bits)
		buf[1] = byte(bits >> 8)
		buf[2] = byte(bits >> 16)
		buf[3] = byte(bits >> 24)
		h.Write(buf[:])
	}
	return hex.EncodeToString(h.Sum(nil))
}
