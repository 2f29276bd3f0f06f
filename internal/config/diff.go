package config

// ConfigDiff describes what changed between two configs. Only log level and
// translation model changes can be applied to a live process; everything
// else needs a restart.
type ConfigDiff struct {
	LogLevelChanged bool
	NewLogLevel     LogLevel

	// TranslateModelsChanged means the primary or fallback translation
	// model changed; the new pair takes effect on the next session start.
	TranslateModelsChanged bool
	NewTranslateModel      string
	NewTranslateFallback   string

	// RestartRequired marks changes outside the hot-reloadable set, such
	// as the capture device, profile or provider selection.
	RestartRequired bool
}

// Changed reports whether the diff contains any change at all.
func (d ConfigDiff) Changed() bool {
	return d.LogLevelChanged || d.TranslateModelsChanged || d.RestartRequired
}

// Diff compares old and new configs and returns what changed.
func Diff(old, new *Config) ConfigDiff {
	d := ConfigDiff{}

	if old.LogLevel != new.LogLevel {
		d.LogLevelChanged = true
		d.NewLogLevel = new.LogLevel
	}

	if old.Translate.Model != new.Translate.Model ||
		old.Translate.FallbackModel != new.Translate.FallbackModel {
		d.TranslateModelsChanged = true
		d.NewTranslateModel = new.Translate.Model
		d.NewTranslateFallback = new.Translate.FallbackModel
	}

	// Normalise the hot-reloadable fields away, then compare the rest.
	oldRest, newRest := *old, *new
	oldRest.LogLevel, newRest.LogLevel = "", ""
	oldRest.Translate.Model, newRest.Translate.Model = "", ""
	oldRest.Translate.FallbackModel, newRest.Translate.FallbackModel = "", ""
	if !equalRest(&oldRest, &newRest) {
		d.RestartRequired = true
	}

	return d
}

// equalRest compares two configs field by field. Config contains a slice
// (audio.device_keywords), so == on the struct is not available.
func equalRest(a, b *Config) bool {
	if a.Profile != b.Profile ||
		a.STT != b.STT ||
		a.Translate != b.Translate ||
		a.Pipeline != b.Pipeline ||
		a.Retry != b.Retry ||
		a.Report != b.Report ||
		a.Metrics != b.Metrics {
		return false
	}
	if a.Audio.Provider != b.Audio.Provider ||
		a.Audio.ChunkSeconds != b.Audio.ChunkSeconds ||
		a.Audio.HopFactor != b.Audio.HopFactor ||
		a.Audio.MinRMS != b.Audio.MinRMS {
		return false
	}
	if len(a.Audio.DeviceKeywords) != len(b.Audio.DeviceKeywords) {
		return false
	}
	for i := range a.Audio.DeviceKeywords {
		if a.Audio.DeviceKeywords[i] != b.Audio.DeviceKeywords[i] {
			return false
		}
	}
	return true
}
