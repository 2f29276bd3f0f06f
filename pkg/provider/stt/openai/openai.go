// Package openai implements stt.Provider over the OpenAI audio
// transcription endpoint.
package openai

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/alonsorgl28/teams-translator/internal/resilience"
	"github.com/alonsorgl28/teams-translator/pkg/provider/stt"
)

var _ stt.Provider = (*Provider)(nil)

// Option is a functional option for configuring a Provider.
type Option func(*Provider)

// WithBaseURL overrides the API base URL, e.g. for a local
// OpenAI-compatible transcription server.
func WithBaseURL(url string) Option {
	return func(p *Provider) { p.baseURL = url }
}

// WithTimeout bounds each transcription request. Default 30s.
func WithTimeout(d time.Duration) Option {
	return func(p *Provider) { p.timeout = d }
}

// Provider calls the OpenAI transcription API.
type Provider struct {
	client  oai.Client
	baseURL string
	timeout time.Duration
}

// New creates a Provider authenticating with apiKey.
func New(apiKey string, opts ...Option) *Provider {
	p := &Provider{timeout: 30 * time.Second}
	for _, o := range opts {
		o(p)
	}

	reqOpts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if p.baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(p.baseURL))
	}
	p.client = oai.NewClient(reqOpts...)
	return p
}

// Transcribe uploads the WAV payload and returns the recognized text.
// Errors are classified for the resilience executor: the HTTP status decides
// between retry, model fallback and fail-fast.
func (p *Provider) Transcribe(ctx context.Context, req stt.Request) (stt.Transcript, error) {
	if len(req.WAV) == 0 {
		return stt.Transcript{}, fmt.Errorf("openai stt: empty audio payload")
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	params := oai.AudioTranscriptionNewParams{
		File:  oai.File(bytes.NewReader(req.WAV), "chunk.wav", "audio/wav"),
		Model: oai.AudioModel(req.Model),
	}
	if req.Language != "" {
		params.Language = oai.String(req.Language)
	}
	if req.Prompt != "" {
		params.Prompt = oai.String(req.Prompt)
	}

	resp, err := p.client.Audio.Transcriptions.New(ctx, params)
	if err != nil {
		return stt.Transcript{}, classify(err)
	}

	return stt.Transcript{
		Text:     strings.TrimSpace(resp.Text),
		Language: req.Language,
	}, nil
}

// classify maps an API error onto the resilience failure taxonomy.
func classify(err error) error {
	var apiErr *oai.Error
	if errors.As(err, &apiErr) {
		return resilience.ClassifyHTTPStatus(apiErr.StatusCode, fmt.Errorf("openai stt: %w", err))
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	return resilience.ClassifyErr(fmt.Errorf("openai stt: %w", err))
}
