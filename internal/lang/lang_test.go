package lang

import (
	"errors"
	"testing"
)

func TestParse(t *testing.T) {
	tests := []struct {
		raw  string
		want Tag
	}{
		{"en-US", EnUS},
		{"en-us", EnUS},
		{"EN_US", EnUS},
		{" pt-br ", PtBR},
		{"en", Tag("en")},
	}
	for _, tc := range tests {
		t.Run(tc.raw, func(t *testing.T) {
			if got := Parse(tc.raw); got != tc.want {
				t.Errorf("Parse(%q) = %q, want %q", tc.raw, got, tc.want)
			}
		})
	}
}

func TestSynthesisCode(t *testing.T) {
	tests := []struct {
		tag  Tag
		want string
	}{
		{EnUS, "a"},
		{EnGB, "b"},
		{PtBR, "p"},
		{PtPT, "p"},
	}
	for _, tc := range tests {
		code, err := tc.tag.SynthesisCode()
		if err != nil {
			t.Errorf("SynthesisCode(%q): %v", tc.tag, err)
			continue
		}
		if code != tc.want {
			t.Errorf("SynthesisCode(%q) = %q, want %q", tc.tag, code, tc.want)
		}
	}
}

func TestSynthesisCode_Unsupported(t *testing.T) {
	// en-AU is a valid tag but has no synthesis engine mapping.
	_, err := EnAU.SynthesisCode()
	if err == nil {
		t.Fatal("expected error for unmapped language")
	}
	var unsupported *ErrUnsupported
	if !errors.As(err, &unsupported) {
		t.Fatalf("error type = %T, want *ErrUnsupported", err)
	}
	if unsupported.Tag != EnAU {
		t.Errorf("error tag = %q, want en-AU", unsupported.Tag)
	}
}

func TestRecognitionCode(t *testing.T) {
	if got := EnUS.RecognitionCode(); got != "en" {
		t.Errorf("RecognitionCode(en-US) = %q, want en", got)
	}
	if got := PtBR.RecognitionCode(); got != "pt" {
		t.Errorf("RecognitionCode(pt-BR) = %q, want pt", got)
	}
}

func TestVoiceByID(t *testing.T) {
	v, ok := VoiceByID("bf_emma")
	if !ok {
		t.Fatal("expected bf_emma in the catalogue")
	}
	if v.Tag != EnGB {
		t.Errorf("tag = %q, want en-GB", v.Tag)
	}

	if _, ok := VoiceByID("zz_nobody"); ok {
		t.Error("expected lookup miss for unknown voice")
	}
}
