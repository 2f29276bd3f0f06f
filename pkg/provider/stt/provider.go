// Package stt defines the Provider interface for speech-to-text backends.
//
// The pipeline works in discrete capture windows rather than a continuous
// stream: each window is uploaded as a small WAV payload and transcribed as
// a unit. That keeps providers interchangeable — a batch HTTP endpoint and a
// streaming websocket session implement the same contract.
//
// Implementations must be safe for concurrent use.
package stt

import "context"

// Request is one transcription call.
type Request struct {
	// WAV is the complete audio payload, 16 kHz mono PCM16 in a RIFF
	// container.
	WAV []byte

	// Model names the transcription model. The resilience executor rewrites
	// this per attempt when falling back.
	Model string

	// Language is an ISO 639-1 hint (e.g. "en"). Empty lets the provider
	// auto-detect.
	Language string

	// Prompt biases recognition with recent transcript context and domain
	// vocabulary.
	Prompt string
}

// Transcript is the result of one transcription call.
type Transcript struct {
	Text     string
	Language string
}

// Provider is the abstraction over any speech-to-text backend.
//
// Errors must be classified with the resilience helpers so retry and model
// fallback behave correctly.
type Provider interface {
	Transcribe(ctx context.Context, req Request) (Transcript, error)
}
