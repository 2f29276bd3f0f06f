package config_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/alonsorgl28/teams-translator/internal/config"
)

func TestValidate_InvalidLogLevel(t *testing.T) {
	t.Parallel()
	yaml := `
log_level: verbose
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for invalid log level, got nil")
	}
	if !strings.Contains(err.Error(), "log_level") {
		t.Errorf("error should mention log_level, got: %v", err)
	}
}

func TestValidate_InvalidProfile(t *testing.T) {
	t.Parallel()
	yaml := `
profile: turbo
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for invalid profile, got nil")
	}
	if !strings.Contains(err.Error(), "profile") {
		t.Errorf("error should mention profile, got: %v", err)
	}
}

func TestValidate_AnyLLMRequiresProvider(t *testing.T) {
	t.Parallel()
	yaml := `
translate:
  backend: anyllm
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for anyllm backend without provider, got nil")
	}
	if !strings.Contains(err.Error(), "translate.provider") {
		t.Errorf("error should mention translate.provider, got: %v", err)
	}
}

func TestValidate_AnyLLMUnknownProvider(t *testing.T) {
	t.Parallel()
	yaml := `
translate:
  backend: anyllm
  provider: watson
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for unknown any-llm provider, got nil")
	}
}

func TestValidate_SameLanguagePair(t *testing.T) {
	t.Parallel()
	yaml := `
translate:
  source_lang: es
  target_lang: es
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for identical language pair, got nil")
	}
}

func TestValidate_MultipleErrorsJoined(t *testing.T) {
	t.Parallel()
	yaml := `
log_level: verbose
profile: turbo
translate:
  backend: anyllm
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected errors, got nil")
	}
	errStr := err.Error()
	for _, want := range []string{"log_level", "profile", "translate.provider"} {
		if !strings.Contains(errStr, want) {
			t.Errorf("joined error should mention %s, got: %v", want, err)
		}
	}
}

func TestValidate_WordFloorAboveCeiling(t *testing.T) {
	t.Parallel()
	yaml := `
pipeline:
  min_words: 30
  merge_max_words: 20
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for min_words above merge_max_words, got nil")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	t.Parallel()
	_, err := config.Load("does/not/exist.yaml")
	if err == nil {
		t.Fatal("expected error for missing file, got nil")
	}
}

func TestLoadFromReader_EmptyDocumentUsesDefaults(t *testing.T) {
	t.Parallel()
	cfg, err := config.LoadFromReader(strings.NewReader(""))
	if err != nil {
		t.Fatalf("unexpected error for empty config: %v", err)
	}
	if cfg.Profile != config.ProfileLive {
		t.Errorf("profile = %q, want live default", cfg.Profile)
	}
}

func TestRegistry_CreateUnregistered(t *testing.T) {
	t.Parallel()
	r := config.NewRegistry()
	_, err := r.CreateSTT(config.STTConfig{Provider: "openai"})
	if !errors.Is(err, config.ErrProviderNotRegistered) {
		t.Fatalf("err = %v, want ErrProviderNotRegistered", err)
	}
}

func TestValidProviderNames(t *testing.T) {
	t.Parallel()
	if len(config.ValidProviderNames) == 0 {
		t.Fatal("ValidProviderNames should not be empty")
	}
	sttNames := config.ValidProviderNames["stt"]
	found := false
	for _, n := range sttNames {
		if n == "openai" {
			found = true
			break
		}
	}
	if !found {
		t.Error("ValidProviderNames[\"stt\"] should contain \"openai\"")
	}
}
