package eval

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"golang.org/x/sync/singleflight"

	"github.com/sayright/sayright/internal/cache"
	"github.com/sayright/sayright/internal/lang"
	"github.com/sayright/sayright/internal/observe"
	"github.com/sayright/sayright/pkg/audio"
	"github.com/sayright/sayright/pkg/provider/asr"
)

// TranscriberDeps are the collaborators a Transcriber needs. ASR and Cache
// are required.
type TranscriberDeps struct {
	ASR asr.Provider

	Cache *cache.Cache[cache.TranscriptionKey, asr.Result]

	// ProviderTag names the recognition engine in cache keys (e.g. "whisper").
	ProviderTag string

	Metrics *observe.Metrics
	Logger  *slog.Logger
}

// Transcriber fronts the recognition engine with the transcription cache,
// keyed by the content digest of the normalised waveform so identical audio
// hits the cache regardless of origin. Safe for concurrent use.
type Transcriber struct {
	asr         asr.Provider
	cache       *cache.Cache[cache.TranscriptionKey, asr.Result]
	providerTag string
	metrics     *observe.Metrics
	log         *slog.Logger

	flight singleflight.Group
}

// NewTranscriber validates deps and returns a ready Transcriber.
func NewTranscriber(d TranscriberDeps) (*Transcriber, error) {
	if d.ASR == nil {
		return nil, errors.New("eval: ASR provider is required")
	}
	if d.Cache == nil {
		return nil, errors.New("eval: transcription cache is required")
	}
	if d.ProviderTag == "" {
		d.ProviderTag = "whisper"
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
	return &Transcriber{
		asr:         d.ASR,
		cache:       d.Cache,
		providerTag: d.ProviderTag,
		metrics:     d.Metrics,
		log:         d.Logger,
	}, nil
}

// Transcribe returns the transcription of clip in the given language, from
// cache when the same audio was recognised before. Concurrent misses for the
// same content collapse into one recognition call.
func (t *Transcriber) Transcribe(ctx context.Context, clip audio.Clip, language lang.Tag) (asr.Result, error) {
	if len(clip.Samples) == 0 {
		return asr.Result{}, errors.New("eval: clip has no samples")
	}

	norm := normalize(clip)
	key := cache.TranscriptionKey{
		AudioDigest: cache.ContentDigest(norm.Samples),
		Lang:        language.RecognitionCode(),
		Provider:    t.providerTag,
	}
	if res, ok := t.cache.Get(ctx, key); ok {
		t.metrics.CacheLookups.Add(ctx, 1, metric.WithAttributes(
			attribute.String("cache", "asr"), attribute.String("outcome", "hit")))
		return res, nil
	}
	t.metrics.CacheLookups.Add(ctx, 1, metric.WithAttributes(
		attribute.String("cache", "asr"), attribute.String("outcome", "miss")))

	v, err, _ := t.flight.Do(key.ID(), func() (any, error) {
		asrStart := time.Now()
		res, err := t.asr.Transcribe(ctx, norm, language.RecognitionCode())
		if err != nil {
			return nil, err
		}
		t.metrics.ASRDuration.Record(ctx, time.Since(asrStart).Seconds())

		if err := t.cache.Set(ctx, key, res); err != nil {
			t.log.Warn("transcription cache write failed", "key", key.ID(), "err", err)
		}
		return res, nil
	})
	if err != nil {
		return asr.Result{}, fmt.Errorf("eval: transcribe: %w", err)
	}
	return v.(asr.Result), nil
}
