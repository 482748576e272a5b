// Package lang maps BCP-47 language tags onto the engine-specific codes used
// by the synthesis and recognition backends.
package lang

import (
	"fmt"
	"strings"
)

// Tag is a BCP-47 language tag.
type Tag string

const (
	EnUS Tag = "en-US"
	EnGB Tag = "en-GB"
	EnAU Tag = "en-AU"
	EnIN Tag = "en-IN"
	PtPT Tag = "pt-PT"
	PtBR Tag = "pt-BR"
	FrFR Tag = "fr-FR"
	EsES Tag = "es-ES"
	EsMX Tag = "es-MX"
	HiIN Tag = "hi-IN"
)

// ErrUnsupported reports a language tag with no synthesis engine mapping.
// It is returned before any external engine is invoked.
type ErrUnsupported struct {
	Tag Tag
}

func (e *ErrUnsupported) Error() string {
	return fmt.Sprintf("lang: no synthesis engine mapping for language %q", e.Tag)
}

// synthesisCodes maps BCP-47 tags to the Kokoro single-letter language codes.
// Tags absent from this map cannot be synthesised.
var synthesisCodes = map[Tag]string{
	EnUS: "a", // American English
	EnGB: "b", // British English
	PtPT: "p",
	PtBR: "p",
	FrFR: "f",
	EsES: "e",
	EsMX: "e",
	HiIN: "h",
}

// Parse normalises a raw tag string ("en-us", "EN_US") into canonical
// BCP-47 form. Parse does not check engine support; use SynthesisCode.
func Parse(raw string) Tag {
	raw = strings.TrimSpace(strings.ReplaceAll(raw, "_", "-"))
	parts := strings.SplitN(raw, "-", 2)
	if len(parts) != 2 {
		return Tag(raw)
	}
	return Tag(strings.ToLower(parts[0]) + "-" + strings.ToUpper(parts[1]))
}

// SynthesisCode returns the engine language code for t, or an
// *ErrUnsupported when t has no mapping.
func (t Tag) SynthesisCode() (string, error) {
	code, ok := synthesisCodes[t]
	if !ok {
		return "", &ErrUnsupported{Tag: t}
	}
	return code, nil
}

// RecognitionCode returns the two-letter code for the recognition engine
// ("en-US" → "en"). Recognition supports every tag; whisper auto-detects
// unknown languages when given "".
func (t Tag) RecognitionCode() string {
	parts := strings.SplitN(string(t), "-", 2)
	return strings.ToLower(parts[0])
}

// Voice describes a named synthesis voice and the tag family it serves.
type Voice struct {
	ID   string
	Name string
	Tag  Tag
}

// Voices is the built-in voice catalogue of the Kokoro engine as shipped.
// The engine's own /voices endpoint is authoritative at runtime; this list
// backs validation and defaults.
var Voices = []Voice{
	{ID: "af_heart", Name: "Heart", Tag: EnUS},
	{ID: "af_bella", Name: "Bella", Tag: EnUS},
	{ID: "af_nicole", Name: "Nicole", Tag: EnUS},
	{ID: "am_michael", Name: "Michael", Tag: EnUS},
	{ID: "bf_emma", Name: "Emma", Tag: EnGB},
	{ID: "bm_george", Name: "George", Tag: EnGB},
	{ID: "pf_dora", Name: "Dora", Tag: PtPT},
	{ID: "pm_alex", Name: "Alex", Tag: PtBR},
	{ID: "pm_santa", Name: "Santa", Tag: PtBR},
}

// DefaultVoice is the reference voice used when a request does not name one.
const DefaultVoice = "af_heart"

// VoiceByID looks up a catalogue voice by its engine identifier.
func VoiceByID(id string) (Voice, bool) {
	for _, v := range Voices {
		if v.ID == id {
			return v, true
		}
	}
	return Voice{}, false
}
