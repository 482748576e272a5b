// Package config provides the configuration schema and loader for the
// sayright pronunciation evaluation server.
package config

import "time"

// LogLevel controls log verbosity for the server.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// Config is the root configuration structure. It is typically loaded from a
// YAML file using [Load] or [LoadFromReader].
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Engines   EnginesConfig   `yaml:"engines"`
	Cache     CacheConfig     `yaml:"cache"`
	Toolkit   ToolkitConfig   `yaml:"toolkit"`
	Reference ReferenceConfig `yaml:"reference"`

	// DataDir hosts per-request scratch directories. Defaults to the
	// system temporary directory.
	DataDir string `yaml:"data_dir"`
}

// ServerConfig holds network and logging settings.
type ServerConfig struct {
	// ListenAddr is the TCP address the server listens on (e.g., ":8000").
	ListenAddr string `yaml:"listen_addr"`

	// LogLevel controls verbosity.
	LogLevel LogLevel `yaml:"log_level"`

	// AllowedOrigins lists origins permitted by the CORS middleware. An
	// empty list allows any origin.
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// EnginesConfig declares the external speech engine endpoints.
type EnginesConfig struct {
	TTS EngineEntry `yaml:"tts"`
	ASR EngineEntry `yaml:"asr"`
}

// EngineEntry is the common configuration block shared by both engine kinds.
type EngineEntry struct {
	// URL is the engine's HTTP base URL (e.g., "http://localhost:8880").
	URL string `yaml:"url"`

	// Model selects a specific model where the engine supports several
	// (e.g., "base.en" for the recognition engine). Optional.
	Model string `yaml:"model"`

	// Timeout bounds a single engine call. Zero uses the client default.
	Timeout time.Duration `yaml:"timeout"`
}

// CacheConfig holds the content cache location and byte budgets.
type CacheConfig struct {
	// Dir is the base directory; each cache kind gets its own namespace
	// subdirectory. Environment variables are expanded.
	Dir string `yaml:"dir"`

	// AudioSizeLimit caps the reference-audio cache in bytes. Zero uses the
	// 10 GiB default.
	AudioSizeLimit int64 `yaml:"audio_size_limit"`

	// TranscriptionSizeLimit caps the transcription cache in bytes. Zero
	// uses the 10 GiB default.
	TranscriptionSizeLimit int64 `yaml:"transcription_size_limit"`
}

// ToolkitConfig locates the external GOP toolkit.
type ToolkitConfig struct {
	// RecipeDir is the GOP recipe directory, typically
	// "$KALDI_HOME/egs/gop_speechocean762". Environment variables are
	// expanded.
	RecipeDir string `yaml:"recipe_dir"`

	// PhoneTable is the path to the phoneme table file mapping integer
	// indices to phoneme symbols. Environment variables are expanded.
	PhoneTable string `yaml:"phone_table"`

	// RunTimeout bounds a single toolkit script invocation. Zero uses the
	// 3 minute default.
	RunTimeout time.Duration `yaml:"run_timeout"`
}

// ReferenceConfig holds the synthesis parameters for reference audio. All
// fields participate in cache identity.
type ReferenceConfig struct {
	// Language is the BCP-47 tag of target phrases (e.g., "en-US").
	Language string `yaml:"language"`

	// Voice is the engine voice identifier (e.g., "af_heart").
	Voice string `yaml:"voice"`

	// Speed is the speaking rate multiplier in the range [0.5, 2.0].
	// Zero means 1.0.
	Speed float64 `yaml:"speed"`

	// SampleRate is the synthesis output rate in Hz. Zero means 24000.
	SampleRate int `yaml:"sample_rate"`
}
