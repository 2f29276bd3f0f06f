// Package config provides the configuration schema, loader, provider
// registry and file watcher for the translator.
package config

import "time"

// LogLevel controls log verbosity.
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

// Profile selects a tuning preset for the pipeline.
type Profile string

const (
	// ProfileLive favours latency: small queues, tight staleness, short
	// subtitle lines. Meant for following a meeting as it happens.
	ProfileLive Profile = "live"

	// ProfileLiteral favours completeness: deep queues, relaxed staleness,
	// long merged lines. Meant for producing a readable transcript.
	ProfileLiteral Profile = "literal"
)

// IsValid reports whether p is a recognised profile.
func (p Profile) IsValid() bool {
	return p == ProfileLive || p == ProfileLiteral
}

// Config is the root configuration structure for the translator.
// It is typically loaded from a YAML file using [Load] or [LoadFromReader].
type Config struct {
	// LogLevel controls verbosity. Default: info.
	LogLevel LogLevel `yaml:"log_level"`

	// Profile picks the tuning preset that fills unset pipeline and audio
	// fields. Default: live.
	Profile Profile `yaml:"profile"`

	Audio     AudioConfig     `yaml:"audio"`
	STT       STTConfig       `yaml:"stt"`
	Translate TranslateConfig `yaml:"translate"`
	Pipeline  PipelineConfig  `yaml:"pipeline"`
	Retry     RetryConfig     `yaml:"retry"`
	Report    ReportConfig    `yaml:"report"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

// AudioConfig holds loopback capture settings.
type AudioConfig struct {
	// Provider selects the registered capture implementation.
	// Default: "portaudio".
	Provider string `yaml:"provider"`

	// DeviceKeywords overrides the per-OS loopback device name keywords.
	// Leave empty to use the built-in list.
	DeviceKeywords []string `yaml:"device_keywords"`

	// ChunkSeconds is the capture window length. 0 means the profile default.
	ChunkSeconds float64 `yaml:"chunk_seconds"`

	// HopFactor is the window advance as a fraction of ChunkSeconds, so
	// consecutive windows overlap. 0 means the default 0.85.
	HopFactor float64 `yaml:"hop_factor"`

	// MinRMS is the silence gate; windows quieter than this are discarded
	// before transcription. 0 means the default 120.
	MinRMS float64 `yaml:"min_rms"`
}

// STTConfig configures the speech-to-text stage.
type STTConfig struct {
	// Provider selects the registered STT implementation:
	// "openai" (batch) or "realtime" (websocket with batch fallback).
	Provider string `yaml:"provider"`

	// APIKey authenticates against the provider. Empty means the
	// OPENAI_API_KEY environment variable.
	APIKey string `yaml:"api_key"`

	// BaseURL overrides the provider's default API endpoint.
	BaseURL string `yaml:"base_url"`

	// Model is the primary transcription model.
	Model string `yaml:"model"`

	// FallbackModel is tried when the endpoint rejects Model. Empty
	// disables fallback.
	FallbackModel string `yaml:"fallback_model"`

	// Language is the expected speech language (BCP-47 primary subtag).
	Language string `yaml:"language"`
}

// TranslateConfig configures the translation stage.
type TranslateConfig struct {
	// Backend selects the client library: "openai" or "anyllm".
	Backend string `yaml:"backend"`

	// Provider is the any-llm provider name when Backend is "anyllm"
	// (e.g. "anthropic", "ollama"). Ignored for the openai backend.
	Provider string `yaml:"provider"`

	// APIKey authenticates against the backend. Empty means the backend's
	// conventional environment variable.
	APIKey string `yaml:"api_key"`

	// BaseURL overrides the backend's default API endpoint.
	BaseURL string `yaml:"base_url"`

	// Model is the primary translation model.
	Model string `yaml:"model"`

	// FallbackModel is tried when the endpoint rejects Model.
	FallbackModel string `yaml:"fallback_model"`

	// SourceLang and TargetLang are the translation pair.
	// Defaults: en → es.
	SourceLang string `yaml:"source_lang"`
	TargetLang string `yaml:"target_lang"`

	// ContextWindow is how many previous exchanges are replayed to the
	// model for terminology consistency. 0 means the default 6.
	ContextWindow int `yaml:"context_window"`
}

// PipelineConfig tunes queueing, staleness and subtitle emission. Zero
// fields take the active profile's preset.
type PipelineConfig struct {
	// AudioQueue and TextQueue bound the inter-stage queues; when full the
	// oldest entry is evicted.
	AudioQueue int `yaml:"audio_queue"`
	TextQueue  int `yaml:"text_queue"`

	// StalenessSeconds is the per-stage freshness threshold.
	StalenessSeconds float64 `yaml:"staleness_seconds"`

	// EmitRelaxFactor multiplies the staleness threshold at the emit
	// stage. 0 means the default 2.0.
	EmitRelaxFactor float64 `yaml:"emit_relax_factor"`

	// MinWords is the word floor for sentence-complete emission.
	MinWords int `yaml:"min_words"`

	// MergeMaxWords is the hard emission ceiling in words.
	MergeMaxWords int `yaml:"merge_max_words"`

	// MergeFlushSeconds is the wait ceiling before a pending line is
	// flushed regardless of sentence state.
	MergeFlushSeconds float64 `yaml:"merge_flush_seconds"`

	// MinWordsOnAgeFlush is the reduced word floor applied at the wait
	// ceiling. 0 means the default 2.
	MinWordsOnAgeFlush int `yaml:"min_words_on_age_flush"`

	// DedupWindow is how many recent lines are checked for repeats.
	// 0 means the default 5.
	DedupWindow int `yaml:"dedup_window"`

	// DedupThreshold is the similarity ratio above which a line counts as
	// a repeat. 0 means the default 0.9.
	DedupThreshold float64 `yaml:"dedup_threshold"`
}

// RetryConfig tunes remote-call retries.
type RetryConfig struct {
	// MaxAttempts bounds attempts per model for transient failures.
	// 0 means the default 3.
	MaxAttempts int `yaml:"max_attempts"`

	// BackoffMillis is the base retry delay, scaled linearly per attempt.
	// 0 means the default 400.
	BackoffMillis int `yaml:"backoff_millis"`
}

// ReportConfig configures the per-session quality report.
type ReportConfig struct {
	Enabled bool `yaml:"enabled"`

	// EventsPath is the JSONL event log location.
	// Default: "reports/session_events.jsonl".
	EventsPath string `yaml:"events_path"`

	// SummaryPath is the end-of-session summary location.
	// Default: "reports/session_summary.json".
	SummaryPath string `yaml:"summary_path"`

	// Append keeps events from previous sessions in the log.
	Append bool `yaml:"append"`
}

// MetricsConfig configures the Prometheus scrape endpoint.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`

	// ListenAddr is the TCP address /metrics is served on.
	// Default: ":9090".
	ListenAddr string `yaml:"listen_addr"`
}

// profilePreset holds the tunables a profile decides.
type profilePreset struct {
	chunkSeconds      float64
	audioQueue        int
	textQueue         int
	stalenessSeconds  float64
	minWords          int
	mergeMaxWords     int
	mergeFlushSeconds float64
}

var presets = map[Profile]profilePreset{
	ProfileLive: {
		chunkSeconds:      1.6,
		audioQueue:        8,
		textQueue:         10,
		stalenessSeconds:  6,
		minWords:          3,
		mergeMaxWords:     24,
		mergeFlushSeconds: 1.2,
	},
	ProfileLiteral: {
		chunkSeconds:      1.8,
		audioQueue:        24,
		textQueue:         32,
		stalenessSeconds:  8,
		minWords:          4,
		mergeMaxWords:     52,
		mergeFlushSeconds: 2.8,
	},
}

// ApplyDefaults fills unset fields from the active profile's preset and the
// built-in defaults. Explicit values always win over the preset.
func (c *Config) ApplyDefaults() {
	if c.LogLevel == "" {
		c.LogLevel = LogInfo
	}
	if c.Profile == "" {
		c.Profile = ProfileLive
	}
	p, ok := presets[c.Profile]
	if !ok {
		p = presets[ProfileLive]
	}

	if c.Audio.Provider == "" {
		c.Audio.Provider = "portaudio"
	}
	if c.Audio.ChunkSeconds <= 0 {
		c.Audio.ChunkSeconds = p.chunkSeconds
	}
	if c.Audio.HopFactor <= 0 {
		c.Audio.HopFactor = 0.85
	}
	if c.Audio.MinRMS <= 0 {
		c.Audio.MinRMS = 120
	}

	if c.STT.Provider == "" {
		c.STT.Provider = "openai"
	}
	if c.STT.Model == "" {
		c.STT.Model = "gpt-4o-mini-transcribe"
	}
	if c.STT.Language == "" {
		c.STT.Language = "en"
	}

	if c.Translate.Backend == "" {
		c.Translate.Backend = "openai"
	}
	if c.Translate.Model == "" {
		c.Translate.Model = "gpt-4o-mini"
	}
	if c.Translate.SourceLang == "" {
		c.Translate.SourceLang = "en"
	}
	if c.Translate.TargetLang == "" {
		c.Translate.TargetLang = "es"
	}
	if c.Translate.ContextWindow <= 0 {
		c.Translate.ContextWindow = 6
	}

	if c.Pipeline.AudioQueue <= 0 {
		c.Pipeline.AudioQueue = p.audioQueue
	}
	if c.Pipeline.TextQueue <= 0 {
		c.Pipeline.TextQueue = p.textQueue
	}
	if c.Pipeline.StalenessSeconds <= 0 {
		c.Pipeline.StalenessSeconds = p.stalenessSeconds
	}
	if c.Pipeline.EmitRelaxFactor <= 0 {
		c.Pipeline.EmitRelaxFactor = 2
	}
	if c.Pipeline.MinWords <= 0 {
		c.Pipeline.MinWords = p.minWords
	}
	if c.Pipeline.MergeMaxWords <= 0 {
		c.Pipeline.MergeMaxWords = p.mergeMaxWords
	}
	if c.Pipeline.MergeFlushSeconds <= 0 {
		c.Pipeline.MergeFlushSeconds = p.mergeFlushSeconds
	}
	if c.Pipeline.MinWordsOnAgeFlush <= 0 {
		c.Pipeline.MinWordsOnAgeFlush = 2
	}
	if c.Pipeline.DedupWindow <= 0 {
		c.Pipeline.DedupWindow = 5
	}
	if c.Pipeline.DedupThreshold <= 0 {
		c.Pipeline.DedupThreshold = 0.9
	}

	if c.Retry.MaxAttempts <= 0 {
		c.Retry.MaxAttempts = 3
	}
	if c.Retry.BackoffMillis <= 0 {
		c.Retry.BackoffMillis = 400
	}

	if c.Report.EventsPath == "" {
		c.Report.EventsPath = "reports/session_events.jsonl"
	}
	if c.Report.SummaryPath == "" {
		c.Report.SummaryPath = "reports/session_summary.json"
	}

	if c.Metrics.ListenAddr == "" {
		c.Metrics.ListenAddr = ":9090"
	}
}

// Staleness returns the freshness threshold as a duration.
func (p PipelineConfig) Staleness() time.Duration {
	return time.Duration(p.StalenessSeconds * float64(time.Second))
}

// MergeFlush returns the emission wait ceiling as a duration.
func (p PipelineConfig) MergeFlush() time.Duration {
	return time.Duration(p.MergeFlushSeconds * float64(time.Second))
}

// Backoff returns the base retry delay as a duration.
func (r RetryConfig) Backoff() time.Duration {
	return time.Duration(r.BackoffMillis) * time.Millisecond
}

// ChunkDuration returns the capture window length as a duration.
func (a AudioConfig) ChunkDuration() time.Duration {
	return time.Duration(a.ChunkSeconds * float64(time.Second))
}
