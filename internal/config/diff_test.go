package config_test

import (
	"testing"

	"github.com/alonsorgl28/teams-translator/internal/config"
)

func baseConfig() *config.Config {
	cfg := &config.Config{}
	cfg.ApplyDefaults()
	return cfg
}

func TestDiff_NoChanges(t *testing.T) {
	t.Parallel()
	old, new := baseConfig(), baseConfig()
	d := config.Diff(old, new)
	if d.Changed() {
		t.Fatalf("identical configs reported a change: %+v", d)
	}
}

func TestDiff_LogLevel(t *testing.T) {
	t.Parallel()
	old, new := baseConfig(), baseConfig()
	new.LogLevel = config.LogDebug

	d := config.Diff(old, new)
	if !d.LogLevelChanged || d.NewLogLevel != config.LogDebug {
		t.Fatalf("diff = %+v, want log level change to debug", d)
	}
	if d.RestartRequired {
		t.Error("log level change must not require a restart")
	}
}

func TestDiff_TranslateModels(t *testing.T) {
	t.Parallel()
	old, new := baseConfig(), baseConfig()
	new.Translate.Model = "gpt-4o"
	new.Translate.FallbackModel = "gpt-4o-mini"

	d := config.Diff(old, new)
	if !d.TranslateModelsChanged {
		t.Fatalf("diff = %+v, want translate model change", d)
	}
	if d.NewTranslateModel != "gpt-4o" || d.NewTranslateFallback != "gpt-4o-mini" {
		t.Errorf("new models = %q/%q", d.NewTranslateModel, d.NewTranslateFallback)
	}
	if d.RestartRequired {
		t.Error("translate model change must not require a restart")
	}
}

func TestDiff_ProfileRequiresRestart(t *testing.T) {
	t.Parallel()
	old := baseConfig()
	new := &config.Config{Profile: config.ProfileLiteral}
	new.ApplyDefaults()

	d := config.Diff(old, new)
	if !d.RestartRequired {
		t.Fatalf("diff = %+v, want restart required for profile change", d)
	}
}

func TestDiff_DeviceKeywordsRequireRestart(t *testing.T) {
	t.Parallel()
	old, new := baseConfig(), baseConfig()
	new.Audio.DeviceKeywords = []string{"blackhole"}

	d := config.Diff(old, new)
	if !d.RestartRequired {
		t.Fatalf("diff = %+v, want restart required for device change", d)
	}
}
