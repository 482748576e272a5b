package server

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/sayright/sayright/internal/gop"
	"github.com/sayright/sayright/internal/lang"
	"github.com/sayright/sayright/internal/transcript"
	"github.com/sayright/sayright/pkg/audio"
	"github.com/sayright/sayright/pkg/provider/asr"
)

// evaluateResponse is the success body of the evaluation endpoint.
type evaluateResponse struct {
	Results []gop.WordScore `json:"results"`
}

// handleEvaluate accepts a multipart form with an "audio" WAV file and a
// "target_text" phrase ("text" is accepted as an alias), runs the pipeline,
// and returns one result per word.
func (s *Server) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	clip, ok := s.decodeAudioForm(w, r)
	if !ok {
		return
	}
	text := formValue(r, "target_text", "text")
	if text == "" {
		s.writeError(w, http.StatusBadRequest, "target_text field is required")
		return
	}

	scores, err := s.evaluator.Evaluate(r.Context(), text, clip)
	if err != nil {
		s.writePipelineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, evaluateResponse{Results: scores})
}

// handleSynthesize accepts form fields "text", "lang", and "voice" and
// returns the synthesised audio as a WAV body, from cache when available.
// Omitted lang/voice fall back to the configured reference parameters.
func (s *Server) handleSynthesize(w http.ResponseWriter, r *http.Request) {
	text := formValue(r, "text")
	if text == "" {
		s.writeError(w, http.StatusBadRequest, "text field is required")
		return
	}

	var language lang.Tag
	if raw := formValue(r, "lang"); raw != "" {
		language = lang.Parse(raw)
		if _, err := language.SynthesisCode(); err != nil {
			s.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	voice := formValue(r, "voice")
	if voice != "" {
		if _, ok := lang.VoiceByID(voice); !ok {
			s.writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown voice %q", voice))
			return
		}
	}

	clip, err := s.evaluator.Synthesize(r.Context(), text, language, voice)
	if err != nil {
		s.writePipelineError(w, err)
		return
	}

	w.Header().Set("Content-Type", "audio/wav")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(audio.EncodeWAV(clip))
}

// transcribeResponse is the success body of the transcription endpoint. The
// target and similarity fields appear only when the request carried a
// target_text to compare against.
type transcribeResponse struct {
	Text       string                 `json:"text"`
	Segments   []asr.Segment          `json:"segments"`
	Target     string                 `json:"target,omitempty"`
	Similarity *transcript.Similarity `json:"similarity,omitempty"`
}

// handleTranscribe accepts a multipart form with an "audio" WAV file, an
// optional "language" tag, and an optional "target_text" phrase. It returns
// the transcription with segments, plus a similarity block when a target was
// supplied.
func (s *Server) handleTranscribe(w http.ResponseWriter, r *http.Request) {
	clip, ok := s.decodeAudioForm(w, r)
	if !ok {
		return
	}
	tag := s.language
	if raw := formValue(r, "language"); raw != "" {
		tag = lang.Parse(raw)
	}

	res, err := s.transcriber.Transcribe(r.Context(), clip, tag)
	if err != nil {
		s.writePipelineError(w, err)
		return
	}

	out := transcribeResponse{Text: res.Text, Segments: res.Segments}
	if target := formValue(r, "target_text"); target != "" {
		sim := transcript.Compare(res.Text, target)
		out.Target = target
		out.Similarity = &sim
	}
	writeJSON(w, http.StatusOK, out)
}

// readAloudResponse is the success body of the read-aloud endpoint.
type readAloudResponse struct {
	Transcript string                `json:"transcript"`
	Target     string                `json:"target"`
	Similarity transcript.Similarity `json:"similarity"`
}

// handleReadAloud accepts a multipart form with an "audio" WAV file and a
// "target_text" phrase ("text" is accepted as an alias), transcribes the
// audio, and reports how closely the recognised words match the target.
// Unlike the evaluation endpoint this does not need the GOP toolkit; it is a
// cheap first-pass check.
func (s *Server) handleReadAloud(w http.ResponseWriter, r *http.Request) {
	clip, ok := s.decodeAudioForm(w, r)
	if !ok {
		return
	}
	text := formValue(r, "target_text", "text")
	if text == "" {
		s.writeError(w, http.StatusBadRequest, "target_text field is required")
		return
	}

	res, err := s.transcriber.Transcribe(r.Context(), clip, s.language)
	if err != nil {
		s.writePipelineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, readAloudResponse{
		Transcript: res.Text,
		Target:     text,
		Similarity: transcript.Compare(res.Text, text),
	})
}

// handleVoices returns the synthesis engine's voice catalogue.
func (s *Server) handleVoices(w http.ResponseWriter, r *http.Request) {
	if s.tts == nil {
		s.writeError(w, http.StatusNotFound, "no synthesis engine configured")
		return
	}
	voices, err := s.tts.Voices(r.Context())
	if err != nil {
		s.writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"voices": voices})
}

// decodeAudioForm parses the multipart form shared by the evaluate and
// transcribe endpoints and decodes its "audio" WAV file. Text fields remain
// readable through r.FormValue afterwards. On failure it writes the error
// response and returns ok=false.
func (s *Server) decodeAudioForm(w http.ResponseWriter, r *http.Request) (audio.Clip, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid multipart form: "+err.Error())
		return audio.Clip{}, false
	}

	f, _, err := r.FormFile("audio")
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "audio file is required")
		return audio.Clip{}, false
	}
	defer f.Close()

	wav, err := io.ReadAll(f)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "read audio file: "+err.Error())
		return audio.Clip{}, false
	}
	clip, err := audio.DecodeWAV(wav)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "decode audio: "+err.Error())
		return audio.Clip{}, false
	}

	return clip, true
}

// formValue returns the first non-empty trimmed form field among names.
func formValue(r *http.Request, names ...string) string {
	for _, name := range names {
		if v := strings.TrimSpace(r.FormValue(name)); v != "" {
			return v
		}
	}
	return ""
}

// writePipelineError maps a pipeline failure onto an HTTP status: caller
// mistakes (unsupported language, empty input) map to 400, evaluator process
// failures to 502, and everything else to 500. The failure message always
// travels in the "detail" field.
func (s *Server) writePipelineError(w http.ResponseWriter, err error) {
	var (
		unsupported *lang.ErrUnsupported
		procErr     *gop.ProcessError
		alignErr    *gop.AlignmentError
	)
	switch {
	case errors.As(err, &unsupported):
		s.writeError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &procErr):
		s.log.Error("toolkit invocation failed", "err", err)
		s.writeError(w, http.StatusBadGateway, err.Error())
	case errors.As(err, &alignErr):
		s.log.Error("alignment failed", "err", err)
		s.writeError(w, http.StatusInternalServerError, err.Error())
	default:
		s.log.Error("evaluation failed", "err", err)
		s.writeError(w, http.StatusInternalServerError, err.Error())
	}
}
