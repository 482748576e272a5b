package config

import (
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/sayright/sayright/internal/lang"
)

// Load reads the YAML configuration file at path and returns a validated
// [Config]. It is a convenience wrapper around [LoadFromReader].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r, applies defaults, expands
// environment variables in path fields, and validates the result. Useful in
// tests where configs are constructed from string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	applyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyDefaults fills unset fields with their stock values and expands
// environment variables in path fields (so "$KALDI_HOME/egs/..." works).
func applyDefaults(cfg *Config) {
	if cfg.Server.ListenAddr == "" {
		cfg.Server.ListenAddr = ":8000"
	}
	if cfg.Server.LogLevel == "" {
		cfg.Server.LogLevel = LogInfo
	}
	if cfg.Reference.Language == "" {
		cfg.Reference.Language = string(lang.EnUS)
	}
	if cfg.Reference.Voice == "" {
		cfg.Reference.Voice = lang.DefaultVoice
	}
	if cfg.Reference.Speed == 0 {
		cfg.Reference.Speed = 1.0
	}
	if cfg.Reference.SampleRate == 0 {
		cfg.Reference.SampleRate = 24000
	}
	if cfg.DataDir == "" {
		cfg.DataDir = os.TempDir()
	}

	cfg.Cache.Dir = os.ExpandEnv(cfg.Cache.Dir)
	cfg.Toolkit.RecipeDir = os.ExpandEnv(cfg.Toolkit.RecipeDir)
	cfg.Toolkit.PhoneTable = os.ExpandEnv(cfg.Toolkit.PhoneTable)
	cfg.DataDir = os.ExpandEnv(cfg.DataDir)
}

// Validate checks that cfg contains a coherent set of values. It returns a
// joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	if !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}

	if err := validateEngineURL("engines.tts.url", cfg.Engines.TTS.URL); err != nil {
		errs = append(errs, err)
	}
	if err := validateEngineURL("engines.asr.url", cfg.Engines.ASR.URL); err != nil {
		errs = append(errs, err)
	}
	if cfg.Engines.TTS.Timeout < 0 {
		errs = append(errs, errors.New("engines.tts.timeout must not be negative"))
	}
	if cfg.Engines.ASR.Timeout < 0 {
		errs = append(errs, errors.New("engines.asr.timeout must not be negative"))
	}

	if cfg.Cache.Dir == "" {
		errs = append(errs, errors.New("cache.dir is required"))
	}
	if cfg.Cache.AudioSizeLimit < 0 {
		errs = append(errs, errors.New("cache.audio_size_limit must not be negative"))
	}
	if cfg.Cache.TranscriptionSizeLimit < 0 {
		errs = append(errs, errors.New("cache.transcription_size_limit must not be negative"))
	}

	if cfg.Toolkit.RecipeDir == "" {
		errs = append(errs, errors.New("toolkit.recipe_dir is required"))
	}
	if cfg.Toolkit.PhoneTable == "" {
		errs = append(errs, errors.New("toolkit.phone_table is required"))
	}
	if cfg.Toolkit.RunTimeout < 0 {
		errs = append(errs, errors.New("toolkit.run_timeout must not be negative"))
	}

	tag := lang.Parse(cfg.Reference.Language)
	if _, err := tag.SynthesisCode(); err != nil {
		errs = append(errs, fmt.Errorf("reference.language: %w", err))
	}
	if cfg.Reference.Speed < 0.5 || cfg.Reference.Speed > 2.0 {
		errs = append(errs, fmt.Errorf("reference.speed %.2f is out of range [0.5, 2.0]", cfg.Reference.Speed))
	}
	if cfg.Reference.SampleRate < 8000 {
		errs = append(errs, fmt.Errorf("reference.sample_rate %d is below the 8000 Hz minimum", cfg.Reference.SampleRate))
	}

	return errors.Join(errs...)
}

// validateEngineURL checks that raw is a parseable http(s) URL.
func validateEngineURL(field, raw string) error {
	if raw == "" {
		return fmt.Errorf("%s is required", field)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%s %q is not a valid URL: %w", field, raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%s %q must use http or https", field, raw)
	}
	return nil
}
