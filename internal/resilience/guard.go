package resilience

import (
	"context"

	"github.com/sayright/sayright/pkg/audio"
	"github.com/sayright/sayright/pkg/provider/asr"
	"github.com/sayright/sayright/pkg/provider/tts"
)

// Compile-time assertions that the guards satisfy the provider interfaces.
var (
	_ tts.Provider = (*GuardedTTS)(nil)
	_ asr.Provider = (*GuardedASR)(nil)
)

// GuardedTTS wraps a synthesis provider with a circuit breaker. Ping is
// forwarded unguarded so readiness checks keep probing the real engine while
// the breaker is open.
type GuardedTTS struct {
	inner   tts.Provider
	breaker *CircuitBreaker
}

// NewGuardedTTS wraps p in a breaker configured by cfg.
func NewGuardedTTS(p tts.Provider, cfg Config) *GuardedTTS {
	if cfg.Name == "" {
		cfg.Name = "tts"
	}
	return &GuardedTTS{inner: p, breaker: NewCircuitBreaker(cfg)}
}

// Synthesize implements tts.Provider.
func (g *GuardedTTS) Synthesize(ctx context.Context, req tts.Request) (audio.Clip, error) {
	var clip audio.Clip
	err := g.breaker.Execute(func() error {
		var err error
		clip, err = g.inner.Synthesize(ctx, req)
		return err
	})
	return clip, err
}

// Voices implements tts.Provider.
func (g *GuardedTTS) Voices(ctx context.Context) ([]tts.Voice, error) {
	var voices []tts.Voice
	err := g.breaker.Execute(func() error {
		var err error
		voices, err = g.inner.Voices(ctx)
		return err
	})
	return voices, err
}

// Ping forwards to the wrapped provider when it supports probing.
func (g *GuardedTTS) Ping(ctx context.Context) error {
	if p, ok := g.inner.(interface{ Ping(context.Context) error }); ok {
		return p.Ping(ctx)
	}
	return nil
}

// State exposes the breaker state for diagnostics.
func (g *GuardedTTS) State() State {
	return g.breaker.State()
}

// GuardedASR wraps a recognition provider with a circuit breaker.
type GuardedASR struct {
	inner   asr.Provider
	breaker *CircuitBreaker
}

// NewGuardedASR wraps p in a breaker configured by cfg.
func NewGuardedASR(p asr.Provider, cfg Config) *GuardedASR {
	if cfg.Name == "" {
		cfg.Name = "asr"
	}
	return &GuardedASR{inner: p, breaker: NewCircuitBreaker(cfg)}
}

// Transcribe implements asr.Provider.
func (g *GuardedASR) Transcribe(ctx context.Context, clip audio.Clip, language string) (asr.Result, error) {
	var res asr.Result
	err := g.breaker.Execute(func() error {
		var err error
		res, err = g.inner.Transcribe(ctx, clip, language)
		return err
	})
	return res, err
}

// Ping forwards to the wrapped provider when it supports probing.
func (g *GuardedASR) Ping(ctx context.Context) error {
	if p, ok := g.inner.(interface{ Ping(context.Context) error }); ok {
		return p.Ping(ctx)
	}
	return nil
}

// State exposes the breaker state for diagnostics.
func (g *GuardedASR) State() State {
	return g.breaker.State()
}
