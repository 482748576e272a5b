package whisper_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sayright/sayright/pkg/audio"
	"github.com/sayright/sayright/pkg/provider/asr/whisper"
)

func testClip() audio.Clip {
	return audio.Clip{Samples: make([]float32, 16000), SampleRate: 16000, Channels: 1}
}

func TestNew_RequiresServerURL(t *testing.T) {
	if _, err := whisper.New(""); err == nil {
		t.Error("expected error for empty server URL")
	}
}

func TestTranscribe(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/inference" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			t.Fatalf("parse multipart: %v", err)
		}
		if got := r.FormValue("response_format"); got != "verbose_json" {
			t.Errorf("response_format = %q, want verbose_json", got)
		}
		if got := r.FormValue("language"); got != "en" {
			t.Errorf("language = %q, want en", got)
		}
		if _, _, err := r.FormFile("file"); err != nil {
			t.Errorf("missing audio file upload: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"text": " the quick brown fox ",
			"segments": [
				{"text": " the quick", "start": 0.0, "end": 1.2},
				{"text": " brown fox", "start": 1.2, "end": 2.4}
			]
		}`))
	}))
	defer srv.Close()

	p, err := whisper.New(srv.URL)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	got, err := p.Transcribe(context.Background(), testClip(), "en")
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if got.Text != "the quick brown fox" {
		t.Errorf("text = %q, want trimmed transcription", got.Text)
	}
	if len(got.Segments) != 2 {
		t.Fatalf("segment count = %d, want 2", len(got.Segments))
	}
	if got.Segments[0].Text != "the quick" || got.Segments[0].End != 1.2 {
		t.Errorf("segment 0 = %+v", got.Segments[0])
	}
	if got.Segments[1].Start != 1.2 {
		t.Errorf("segment 1 start = %f, want 1.2", got.Segments[1].Start)
	}
}

func TestTranscribe_ServerReportsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"error": "failed to load model"}`))
	}))
	defer srv.Close()

	p, _ := whisper.New(srv.URL)
	if _, err := p.Transcribe(context.Background(), testClip(), ""); err == nil {
		t.Error("expected error when server reports failure")
	}
}

func TestTranscribe_EmptyClip(t *testing.T) {
	p, _ := whisper.New("http://localhost:1")
	if _, err := p.Transcribe(context.Background(), audio.Clip{}, ""); err == nil {
		t.Error("expected error for empty clip")
	}
}
