// Package eval implements the pronunciation evaluation pipeline: resolving
// reference audio through the content cache, normalising waveforms, invoking
// the external GOP toolkit, and reducing its report into per-word scores.
//
// An Evaluator is constructed once per process and owns references to its
// cache and engine clients; nothing is looked up globally. Each call to
// Evaluate is one independent unit of work whose stages run strictly
// sequentially; multiple calls may run concurrently.
package eval

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"golang.org/x/sync/singleflight"

	"github.com/sayright/sayright/internal/cache"
	"github.com/sayright/sayright/internal/gop"
	"github.com/sayright/sayright/internal/lang"
	"github.com/sayright/sayright/internal/observe"
	"github.com/sayright/sayright/pkg/audio"
	"github.com/sayright/sayright/pkg/provider/tts"
)

// scoringRate is the sample rate the GOP toolkit expects. Both waveforms are
// downmixed, peak-normalised, and resampled to this rate before they touch
// the filesystem.
const scoringRate = 16000

// refPhoneFileName is the segmentation file the text-to-phone script writes
// into its output directory.
const refPhoneFileName = "text-phone"

// Reference holds the synthesis parameters for reference audio. They are part
// of the cache identity, so changing any of them makes previously cached
// reference audio unreachable.
type Reference struct {
	// Language is the BCP-47 tag of the target phrase.
	Language lang.Tag

	// Voice is the engine voice identifier.
	Voice string

	// Speed is the speaking rate multiplier.
	Speed float64

	// SampleRate is the synthesis output rate in Hz.
	SampleRate int

	// ProviderTag names the synthesis engine in cache keys (e.g. "kokoro").
	ProviderTag string
}

// DefaultReference returns the stock reference parameters: American English
// at normal speed with the default voice.
func DefaultReference() Reference {
	return Reference{
		Language:    lang.EnUS,
		Voice:       lang.DefaultVoice,
		Speed:       1.0,
		SampleRate:  24000,
		ProviderTag: "kokoro",
	}
}

// Deps are the collaborators an Evaluator needs. TTS, AudioCache, Toolkit,
// PhoneTable and DataDir are required; Metrics and Logger default to no-op
// and slog.Default respectively.
type Deps struct {
	TTS        tts.Provider
	AudioCache *cache.Cache[cache.AudioKey, audio.Clip]
	Toolkit    *gop.Toolkit
	PhoneTable gop.PhoneTable
	DataDir    string
	Reference  Reference
	Metrics    *observe.Metrics
	Logger     *slog.Logger
}

// Evaluator sequences one pronunciation evaluation per call. Safe for
// concurrent use.
type Evaluator struct {
	tts        tts.Provider
	audioCache *cache.Cache[cache.AudioKey, audio.Clip]
	toolkit    *gop.Toolkit
	table      gop.PhoneTable
	dataDir    string
	ref        Reference
	metrics    *observe.Metrics
	log        *slog.Logger

	// flight collapses concurrent cache misses for the same reference audio
	// into a single synthesis call.
	flight singleflight.Group
}

// New validates deps and returns a ready Evaluator.
func New(d Deps) (*Evaluator, error) {
	switch {
	case d.TTS == nil:
		return nil, errors.New("eval: TTS provider is required")
	case d.AudioCache == nil:
		return nil, errors.New("eval: audio cache is required")
	case d.Toolkit == nil:
		return nil, errors.New("eval: toolkit is required")
	case len(d.PhoneTable) == 0:
		return nil, errors.New("eval: phone table is required")
	case d.DataDir == "":
		return nil, errors.New("eval: data directory is required")
	}
	if d.Metrics == nil {
		m, err := observe.NewMetrics(noop.NewMeterProvider())
		if err != nil {
			return nil, err
		}
		d.Metrics = m
	}
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.Reference == (Reference{}) {
		d.Reference = DefaultReference()
	}
	return &Evaluator{
		tts:        d.TTS,
		audioCache: d.AudioCache,
		toolkit:    d.Toolkit,
		table:      d.PhoneTable,
		dataDir:    d.DataDir,
		ref:        d.Reference,
		metrics:    d.Metrics,
		log:        d.Logger,
	}, nil
}

// Evaluate scores how well the user's utterance matches text. It returns one
// WordScore per word of the reference segmentation, in word order. The first
// unrecoverable failure aborts the pipeline; a request either returns a
// complete word-score list or fails entirely.
func (e *Evaluator) Evaluate(ctx context.Context, text string, user audio.Clip) (scores []gop.WordScore, err error) {
	start := time.Now()
	defer func() {
		status := "ok"
		if err != nil {
			status = "error"
		}
		e.metrics.EvaluationDuration.Record(ctx, time.Since(start).Seconds())
		e.metrics.Evaluations.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status)))
	}()

	if text == "" {
		return nil, errors.New("eval: text must not be empty")
	}
	if len(user.Samples) == 0 {
		return nil, errors.New("eval: user audio has no samples")
	}

	// Unsupported languages fail before any external invocation.
	if _, err := e.ref.Language.SynthesisCode(); err != nil {
		return nil, err
	}

	ref, err := e.ReferenceAudio(ctx, text)
	if err != nil {
		return nil, err
	}

	refNorm := normalize(ref)
	userNorm := normalize(user)

	// Scratch directory unique per request, removed on every exit path.
	scratch, err := os.MkdirTemp(e.dataDir, "eval-")
	if err != nil {
		return nil, fmt.Errorf("eval: create scratch dir: %w", err)
	}
	defer func() {
		if rmErr := os.RemoveAll(scratch); rmErr != nil {
			e.log.Warn("scratch dir cleanup failed", "dir", scratch, "err", rmErr)
		}
	}()

	textFile := filepath.Join(scratch, "text.txt")
	refWav := filepath.Join(scratch, "ref.wav")
	userWav := filepath.Join(scratch, "usr.wav")
	if err := os.WriteFile(textFile, []byte(text), 0o644); err != nil {
		return nil, fmt.Errorf("eval: write text file: %w", err)
	}
	if err := os.WriteFile(refWav, audio.EncodeWAV(refNorm), 0o644); err != nil {
		return nil, fmt.Errorf("eval: write reference audio: %w", err)
	}
	if err := os.WriteFile(userWav, audio.EncodeWAV(userNorm), 0o644); err != nil {
		return nil, fmt.Errorf("eval: write user audio: %w", err)
	}

	refDir := filepath.Join(scratch, "ref")
	if err := os.Mkdir(refDir, 0o755); err != nil {
		return nil, fmt.Errorf("eval: create reference dir: %w", err)
	}
	phoneStart := time.Now()
	if err := e.toolkit.GenerateReferencePhones(ctx, textFile, refWav, refDir); err != nil {
		return nil, err
	}
	e.metrics.PhoneGenDuration.Record(ctx, time.Since(phoneStart).Seconds())

	outDir := filepath.Join(scratch, "out")
	if err := os.Mkdir(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("eval: create output dir: %w", err)
	}
	refPhoneFile := filepath.Join(refDir, refPhoneFileName)
	gopStart := time.Now()
	report, err := e.toolkit.RunEvaluator(ctx, textFile, userWav, refPhoneFile, outDir)
	if err != nil {
		return nil, err
	}
	e.metrics.GOPDuration.Record(ctx, time.Since(gopStart).Seconds())

	scored, err := gop.ParseReport(report, e.table)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(refPhoneFile)
	if err != nil {
		return nil, fmt.Errorf("eval: open reference phones: %w", err)
	}
	words, err := gop.ParseReferencePhones(f)
	f.Close()
	if err != nil {
		return nil, err
	}

	aligned, err := gop.Align(scored, words)
	if err != nil {
		return nil, err
	}
	return gop.ScoreWords(aligned), nil
}

// ReferenceAudio resolves the reference waveform for text: from the audio
// cache when present, otherwise synthesised and cached. Concurrent misses for
// the same text collapse into one synthesis call.
func (e *Evaluator) ReferenceAudio(ctx context.Context, text string) (audio.Clip, error) {
	return e.cachedAudio(ctx, text, e.ref)
}

// Synthesize resolves audio for text like ReferenceAudio but with optional
// language and voice overrides; empty values fall back to the configured
// reference parameters. Overridden parameters are part of the cache key, so
// each combination is cached independently.
func (e *Evaluator) Synthesize(ctx context.Context, text string, language lang.Tag, voice string) (audio.Clip, error) {
	ref := e.ref
	if language != "" {
		ref.Language = language
	}
	if voice != "" {
		ref.Voice = voice
	}
	return e.cachedAudio(ctx, text, ref)
}

func (e *Evaluator) cachedAudio(ctx context.Context, text string, ref Reference) (audio.Clip, error) {
	code, err := ref.Language.SynthesisCode()
	if err != nil {
		return audio.Clip{}, err
	}

	key := cache.AudioKey{
		Text:       text,
		Speed:      ref.Speed,
		Lang:       string(ref.Language),
		Voice:      ref.Voice,
		SampleRate: ref.SampleRate,
		Provider:   ref.ProviderTag,
	}
	if clip, ok := e.audioCache.Get(ctx, key); ok {
		e.metrics.CacheLookups.Add(ctx, 1, metric.WithAttributes(
			attribute.String("cache", "tts"), attribute.String("outcome", "hit")))
		return clip, nil
	}
	e.metrics.CacheLookups.Add(ctx, 1, metric.WithAttributes(
		attribute.String("cache", "tts"), attribute.String("outcome", "miss")))

	v, err, _ := e.flight.Do(key.ID(), func() (any, error) {
		ttsStart := time.Now()
		clip, err := e.tts.Synthesize(ctx, tts.Request{
			Text:         text,
			LanguageCode: code,
			Voice:        ref.Voice,
			Speed:        ref.Speed,
			SampleRate:   ref.SampleRate,
		})
		if err != nil {
			return nil, err
		}
		e.metrics.TTSDuration.Record(ctx, time.Since(ttsStart).Seconds())

		// Cache population is best effort. A failed write costs a resynthesis
		// later, not the request.
		if err := e.audioCache.Set(ctx, key, clip); err != nil {
			e.log.Warn("audio cache write failed", "key", key.ID(), "err", err)
		}
		return clip, nil
	})
	if err != nil {
		return audio.Clip{}, fmt.Errorf("eval: synthesize reference audio: %w", err)
	}
	return v.(audio.Clip), nil
}

// normalize prepares a clip for the scoring engine: mono, peak amplitude in
// [-1, 1], resampled to scoringRate.
func normalize(c audio.Clip) audio.Clip {
	return audio.Resample(audio.PeakNormalize(audio.DownmixMono(c)), scoringRate)
}
