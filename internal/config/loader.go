package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// ValidProviderNames lists known provider names per pipeline stage.
// Used by [Validate] to warn about unrecognised names.
var ValidProviderNames = map[string][]string{
	"audio":     {"portaudio"},
	"stt":       {"openai", "realtime"},
	"translate": {"openai", "anyllm"},
}

// ValidAnyLLMProviders lists the any-llm provider names the anyllm backend
// can construct.
var ValidAnyLLMProviders = []string{
	"openai", "anthropic", "gemini", "ollama", "deepseek", "mistral", "groq", "llamacpp",
}

// Load reads the YAML configuration file at path and returns a validated
// [Config] with profile defaults applied. It is a convenience wrapper
// around [LoadFromReader].
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

// LoadFromReader decodes a YAML config from r, applies profile defaults and
// validates the result. Useful in tests where configs are built from string
// literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	cfg.ApplyDefaults()
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.LogLevel != "" && !cfg.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("log_level %q is invalid; valid values: debug, info, warn, error", cfg.LogLevel))
	}
	if cfg.Profile != "" && !cfg.Profile.IsValid() {
		errs = append(errs, fmt.Errorf("profile %q is invalid; valid values: live, literal", cfg.Profile))
	}

	validateProviderName("audio", cfg.Audio.Provider)
	validateProviderName("stt", cfg.STT.Provider)
	validateProviderName("translate", cfg.Translate.Backend)

	if cfg.Audio.HopFactor != 0 && (cfg.Audio.HopFactor <= 0 || cfg.Audio.HopFactor > 1) {
		errs = append(errs, fmt.Errorf("audio.hop_factor %.2f is out of range (0, 1]", cfg.Audio.HopFactor))
	}

	if cfg.Translate.Backend == "anyllm" {
		if cfg.Translate.Provider == "" {
			errs = append(errs, errors.New("translate.provider is required when translate.backend is anyllm"))
		} else if !slices.Contains(ValidAnyLLMProviders, cfg.Translate.Provider) {
			errs = append(errs, fmt.Errorf("translate.provider %q is not a known any-llm provider; valid values: %v",
				cfg.Translate.Provider, ValidAnyLLMProviders))
		}
	}
	if cfg.Translate.SourceLang != "" && cfg.Translate.SourceLang == cfg.Translate.TargetLang {
		errs = append(errs, fmt.Errorf("translate.source_lang and translate.target_lang are both %q", cfg.Translate.SourceLang))
	}

	if cfg.Pipeline.DedupThreshold > 1 {
		errs = append(errs, fmt.Errorf("pipeline.dedup_threshold %.2f is out of range (0, 1]", cfg.Pipeline.DedupThreshold))
	}
	if cfg.Pipeline.EmitRelaxFactor != 0 && cfg.Pipeline.EmitRelaxFactor < 1 {
		errs = append(errs, fmt.Errorf("pipeline.emit_relax_factor %.2f must be at least 1", cfg.Pipeline.EmitRelaxFactor))
	}
	if cfg.Pipeline.MergeMaxWords != 0 && cfg.Pipeline.MinWords > cfg.Pipeline.MergeMaxWords {
		errs = append(errs, fmt.Errorf("pipeline.min_words %d exceeds pipeline.merge_max_words %d",
			cfg.Pipeline.MinWords, cfg.Pipeline.MergeMaxWords))
	}

	if cfg.STT.FallbackModel == "" {
		slog.Warn("stt.fallback_model is empty; a rejected transcription model will not fail over")
	}
	if cfg.Translate.FallbackModel == "" {
		slog.Warn("translate.fallback_model is empty; a rejected translation model will not fail over")
	}

	return errors.Join(errs...)
}

// validateProviderName logs a warning if name is non-empty and not found in
// the [ValidProviderNames] list for the given kind.
func validateProviderName(kind, name string) {
	if name == "" {
		return
	}
	known, ok := ValidProviderNames[kind]
	if !ok {
		return
	}
	if slices.Contains(known, name) {
		return
	}
	slog.Warn("unknown provider name — may be a typo or third-party provider",
		"kind", kind,
		"name", name,
		"known", known,
	)
}
