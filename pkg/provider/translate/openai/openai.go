// Package openai implements translate.Translator over the OpenAI chat
// completions API.
package openai

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"
	"github.com/openai/openai-go/shared"

	"github.com/alonsorgl28/teams-translator/internal/resilience"
	"github.com/alonsorgl28/teams-translator/pkg/provider/translate"
)

var _ translate.Translator = (*Provider)(nil)

// Option is a functional option for configuring a Provider.
type Option func(*Provider)

// WithBaseURL overrides the API base URL.
func WithBaseURL(url string) Option {
	return func(p *Provider) { p.baseURL = url }
}

// WithTimeout bounds each translation request. Default 20s.
func WithTimeout(d time.Duration) Option {
	return func(p *Provider) { p.timeout = d }
}

// Provider calls the OpenAI chat completions API with a strict
// subtitle-translation prompt and verifies numeric fidelity of the result.
type Provider struct {
	client  oai.Client
	baseURL string
	timeout time.Duration
}

// New creates a Provider authenticating with apiKey.
func New(apiKey string, opts ...Option) *Provider {
	p := &Provider{timeout: 20 * time.Second}
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

// Translate renders req.Text into the target language. Sources that already
// read as the target language pass through untouched. A translation that
// drops numeric values gets one repair pass before the partial result is
// accepted.
func (p *Provider) Translate(ctx context.Context, req translate.Request) (translate.Result, error) {
	text := strings.TrimSpace(req.Text)
	if text == "" {
		return translate.Result{}, nil
	}
	if strings.EqualFold(req.TargetLang, "es") && translate.LooksSpanish(text) {
		return translate.Result{Text: text}, nil
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	out, err := p.complete(ctx, req, buildMessages(req))
	if err != nil {
		return translate.Result{}, err
	}

	missing := translate.MissingNumbers(text, out)
	if len(missing) == 0 {
		return translate.Result{Text: out}, nil
	}

	repaired, err := p.complete(ctx, req, repairMessages(req, out, missing))
	if err != nil || len(translate.MissingNumbers(text, repaired)) > 0 {
		// Keep the first pass rather than fail the fragment outright; the
		// words still carry most of the meaning.
		return translate.Result{Text: out, Repaired: true}, nil
	}
	return translate.Result{Text: repaired, Repaired: true}, nil
}

// complete runs one chat completion and screens the output for refusals.
func (p *Provider) complete(ctx context.Context, req translate.Request, messages []oai.ChatCompletionMessageParamUnion) (string, error) {
	resp, err := p.client.Chat.Completions.New(ctx, oai.ChatCompletionNewParams{
		Model:       shared.ChatModel(req.Model),
		Messages:    messages,
		Temperature: param.NewOpt(0.2),
	})
	if err != nil {
		return "", classify(err)
	}
	if len(resp.Choices) == 0 {
		return "", resilience.Transient(fmt.Errorf("openai translate: empty choices"))
	}

	out := strings.TrimSpace(resp.Choices[0].Message.Content)
	if out == "" || translate.IsRefusal(out) {
		return "", resilience.Transient(fmt.Errorf("openai translate: model refused: %.60s", out))
	}
	return out, nil
}

// buildMessages assembles the system prompt, the recent-exchange context and
// the text to translate.
func buildMessages(req translate.Request) []oai.ChatCompletionMessageParamUnion {
	msgs := []oai.ChatCompletionMessageParamUnion{
		oai.SystemMessage(systemPrompt(req)),
	}
	for _, ex := range req.Context {
		msgs = append(msgs, oai.UserMessage(ex.Source), oai.AssistantMessage(ex.Target))
	}
	return append(msgs, oai.UserMessage(req.Text))
}

// repairMessages asks for the same translation with the dropped numbers
// restored.
func repairMessages(req translate.Request, previous string, missing []string) []oai.ChatCompletionMessageParamUnion {
	return []oai.ChatCompletionMessageParamUnion{
		oai.SystemMessage(systemPrompt(req)),
		oai.UserMessage(req.Text),
		oai.AssistantMessage(previous),
		oai.UserMessage(fmt.Sprintf(
			"Your translation dropped these values: %s. Reply with the corrected translation only, keeping every number and unit exactly as in the source.",
			strings.Join(missing, ", "))),
	}
}

func systemPrompt(req translate.Request) string {
	src := req.SourceLang
	if src == "" {
		src = "the source language"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "You are a live subtitle translator. Translate from %s to %s.\n", src, req.TargetLang)
	b.WriteString("Rules:\n")
	b.WriteString("- Reply with the translation only, no quotes, no commentary.\n")
	b.WriteString("- Keep every number and its unit exactly as written in the source.\n")
	b.WriteString("- The input is a fragment of live speech; translate it as a fragment, do not complete it.\n")
	b.WriteString("- Keep product names, acronyms and code identifiers untranslated.\n")

	if len(req.Glossary) > 0 {
		terms := make([]string, 0, len(req.Glossary))
		for t := range req.Glossary {
			terms = append(terms, t)
		}
		sort.Strings(terms)
		b.WriteString("Established terms for this meeting:\n")
		for _, t := range terms {
			fmt.Fprintf(&b, "- %s → %s\n", t, req.Glossary[t])
		}
	}
	return b.String()
}

// classify maps an API error onto the resilience failure taxonomy.
func classify(err error) error {
	var apiErr *oai.Error
	if errors.As(err, &apiErr) {
		return resilience.ClassifyHTTPStatus(apiErr.StatusCode, fmt.Errorf("openai translate: %w", err))
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	return resilience.ClassifyErr(fmt.Errorf("openai translate: %w", err))
}
