package cache

import (
	"regexp"
	"testing"
)

var hexID = regexp.MustCompile(`^[a-z]+_[0-9a-f]{32}$`)

func TestDigest_Deterministic(t *testing.T) {
	params := map[string]any{"text": "hello", "speed": 1.0, "rate": 24000}
	a := Digest("v1", params)
	b := Digest("v1", map[string]any{"rate": 24000, "speed": 1.0, "text": "hello"})
	if a != b {
		t.Errorf("digest differs for identical params: %s vs %s", a, b)
	}
	if len(a) != 32 {
		t.Errorf("digest length = %d, want 32 hex chars", len(a))
	}
}

func TestDigest_SensitiveToFieldsAndVersion(t *testing.T) {
	base := Digest("v1", map[string]any{"text": "hello"})
	if got := Digest("v1", map[string]any{"text": "hello!"}); got == base {
		t.Error("field change did not change digest")
	}
	if got := Digest("v2", map[string]any{"text": "hello"}); got == base {
		t.Error("version change did not change digest")
	}
	if got := Digest("v1", map[string]any{"text": "hello", "speed": 1.0}); got == base {
		t.Error("added field did not change digest")
	}
}

func TestAudioKey_NormalizationIdempotent(t *testing.T) {
	k := AudioKey{
		Text:       "  Hello World  ",
		Speed:      1.0,
		Lang:       "en-US",
		Voice:      "AF_Heart",
		SampleRate: 24000,
		Provider:   " kokoro ",
	}
	once := k.Normalized()
	twice := once.Normalized()
	if once != twice {
		t.Errorf("normalization not idempotent: %+v vs %+v", once, twice)
	}
	if once.Text != "hello world" {
		t.Errorf("text = %q, want trimmed lowercase", once.Text)
	}
	if once.Provider != "kokoro" {
		t.Errorf("provider = %q, want trimmed", once.Provider)
	}
}

func TestAudioKey_EquivalentKeysHashIdentically(t *testing.T) {
	a := AudioKey{Text: "Hello", Speed: 1.0, Lang: "en-US", Voice: "af_heart", SampleRate: 24000, Provider: "kokoro"}
	b := AudioKey{Text: "  hello ", Speed: 1.0, Lang: "EN-us", Voice: "AF_HEART", SampleRate: 24000, Provider: "kokoro"}
	if a.ID() != b.ID() {
		t.Errorf("semantically equal keys hash differently: %s vs %s", a.ID(), b.ID())
	}
	if !hexID.MatchString(a.ID()) {
		t.Errorf("ID %q does not match prefix_hex format", a.ID())
	}
}

func TestAudioKey_DifferentTextsDiffer(t *testing.T) {
	a := AudioKey{Text: "hello", Speed: 1.0, Lang: "en-US", Voice: "af_heart", SampleRate: 24000, Provider: "kokoro"}
	b := a
	b.Text = "goodbye"
	if a.ID() == b.ID() {
		t.Error("different texts produced identical IDs")
	}
	c := a
	c.Speed = 1.5
	if a.ID() == c.ID() {
		t.Error("different speeds produced identical IDs")
	}
}

func TestKeyPrefixes_NamespaceCaches(t *testing.T) {
	ak := AudioKey{Text: "x", Provider: "kokoro"}
	tk := TranscriptionKey{AudioDigest: "abc", Lang: "en", Provider: "whisper"}
	if ak.ID()[:4] != "tts_" {
		t.Errorf("audio key prefix = %q, want tts_", ak.ID()[:4])
	}
	if tk.ID()[:4] != "asr_" {
		t.Errorf("transcription key prefix = %q, want asr_", tk.ID()[:4])
	}
}

func TestContentDigest_Deterministic(t *testing.T) {
	samples := []float32{0.1, -0.2, 0.3}
	a := ContentDigest(samples)
	b := ContentDigest([]float32{0.1, -0.2, 0.3})
	if a != b {
		t.Error("content digest not deterministic")
	}
	if c := ContentDigest([]float32{0.1, -0.2, 0.30001}); c == a {
		t.Error("different samples produced identical digest")
	}
}
