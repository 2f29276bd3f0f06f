// Package translate defines the Translator interface for machine
// translation backends, plus the shared helpers every backend needs:
// numeric fidelity checks, refusal detection, source-language heuristics and
// rolling context memory.
package translate

import "context"

// Exchange is one prior source/target pair given to the model as context.
type Exchange struct {
	Source string
	Target string
}

// Request is one translation call.
type Request struct {
	Text       string
	SourceLang string
	TargetLang string

	// Model names the translation model. The resilience executor rewrites
	// this per attempt when falling back.
	Model string

	// Context carries recent exchanges so the model keeps terminology and
	// pronouns consistent across fragments.
	Context []Exchange

	// Glossary maps technical terms to their established translations for
	// this session.
	Glossary map[string]string
}

// Result is the outcome of one translation call.
type Result struct {
	Text string

	// Repaired reports that a second pass was needed to restore dropped
	// numeric values.
	Repaired bool
}

// Translator is the abstraction over any translation backend.
//
// Errors must be classified with the resilience helpers so retry and model
// fallback behave correctly.
type Translator interface {
	Translate(ctx context.Context, req Request) (Result, error)
}
