package kokoro_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sayright/sayright/pkg/audio"
	"github.com/sayright/sayright/pkg/provider/tts"
	"github.com/sayright/sayright/pkg/provider/tts/kokoro"
)

func TestNew_RequiresServerURL(t *testing.T) {
	if _, err := kokoro.New(""); err == nil {
		t.Error("expected error for empty server URL")
	}
}

func TestSynthesize(t *testing.T) {
	want := audio.Clip{Samples: []float32{0, 0.5, -0.5, 0.25}, SampleRate: 24000, Channels: 1}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/synthesize" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		var body struct {
			Text     string  `json:"text"`
			Voice    string  `json:"voice"`
			LangCode string  `json:"lang_code"`
			Speed    float64 `json:"speed"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if body.Text != "hello world" {
			t.Errorf("text = %q, want %q", body.Text, "hello world")
		}
		if body.Voice != "af_heart" {
			t.Errorf("voice = %q, want af_heart", body.Voice)
		}
		if body.Speed != 1.0 {
			t.Errorf("speed = %f, want 1.0 (default)", body.Speed)
		}
		w.Header().Set("Content-Type", "audio/wav")
		w.Write(audio.EncodeWAV(want))
	}))
	defer srv.Close()

	p, err := kokoro.New(srv.URL)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	got, err := p.Synthesize(context.Background(), tts.Request{
		Text:         "hello world",
		LanguageCode: "a",
		Voice:        "af_heart",
	})
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if got.SampleRate != want.SampleRate {
		t.Errorf("sample rate = %d, want %d", got.SampleRate, want.SampleRate)
	}
	if len(got.Samples) != len(want.Samples) {
		t.Errorf("sample count = %d, want %d", len(got.Samples), len(want.Samples))
	}
}

func TestSynthesize_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	p, _ := kokoro.New(srv.URL)
	if _, err := p.Synthesize(context.Background(), tts.Request{Text: "hi"}); err == nil {
		t.Error("expected error for non-200 response")
	}
}

func TestSynthesize_EmptyText(t *testing.T) {
	p, _ := kokoro.New("http://localhost:1")
	if _, err := p.Synthesize(context.Background(), tts.Request{}); err == nil {
		t.Error("expected error for empty text")
	}
}

func TestVoices_Sorted(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/voices" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"voices":[
			{"id":"pf_dora","lang_code":"p"},
			{"id":"af_heart","name":"Heart","lang_code":"a"}
		]}`))
	}))
	defer srv.Close()

	p, _ := kokoro.New(srv.URL)
	voices, err := p.Voices(context.Background())
	if err != nil {
		t.Fatalf("Voices: %v", err)
	}
	if len(voices) != 2 {
		t.Fatalf("voice count = %d, want 2", len(voices))
	}
	if voices[0].ID != "af_heart" || voices[1].ID != "pf_dora" {
		t.Errorf("voices not sorted by ID: %v", voices)
	}
	if voices[0].Name != "Heart" {
		t.Errorf("name = %q, want Heart", voices[0].Name)
	}
	if voices[1].Name != "pf_dora" {
		t.Errorf("missing name should fall back to ID, got %q", voices[1].Name)
	}
}
