// Package anyllm provides a translate.Translator backed by
// github.com/mozilla-ai/any-llm-go, a unified multi-provider interface that
// supports OpenAI, Anthropic, Gemini, Ollama, DeepSeek, Mistral, Groq, and
// more. It is the way to run the translation stage against a local model
// (Ollama, llama.cpp) or a non-OpenAI API.
package anyllm

import (
	"context"
	"fmt"
	"sort"
	"strings"

	anyllmlib "github.com/mozilla-ai/any-llm-go"
	"github.com/mozilla-ai/any-llm-go/providers/anthropic"
	"github.com/mozilla-ai/any-llm-go/providers/deepseek"
	"github.com/mozilla-ai/any-llm-go/providers/gemini"
	"github.com/mozilla-ai/any-llm-go/providers/groq"
	"github.com/mozilla-ai/any-llm-go/providers/llamacpp"
	"github.com/mozilla-ai/any-llm-go/providers/mistral"
	"github.com/mozilla-ai/any-llm-go/providers/ollama"
	anyllmoai "github.com/mozilla-ai/any-llm-go/providers/openai"

	"github.com/alonsorgl28/teams-translator/internal/resilience"
	"github.com/alonsorgl28/teams-translator/pkg/provider/translate"
)

var _ translate.Translator = (*Provider)(nil)

// Provider implements translate.Translator by wrapping any-llm-go.
type Provider struct {
	backend anyllmlib.Provider
}

// New creates a Provider backed by the given LLM provider name.
//
// providerName is one of: "openai", "anthropic", "gemini", "ollama",
// "deepseek", "mistral", "groq", "llamacpp".
//
// opts are any-llm-go configuration options (e.g. anyllmlib.WithAPIKey,
// anyllmlib.WithBaseURL). Without an API key option, the provider falls back
// to the relevant environment variable (OPENAI_API_KEY, ANTHROPIC_API_KEY,
// and so on).
func New(providerName string, opts ...anyllmlib.Option) (*Provider, error) {
	if providerName == "" {
		return nil, fmt.Errorf("anyllm: providerName must not be empty")
	}
	backend, err := createBackend(providerName, opts...)
	if err != nil {
		return nil, fmt.Errorf("anyllm: create %q backend: %w", providerName, err)
	}
	return &Provider{backend: backend}, nil
}

func createBackend(providerName string, opts ...anyllmlib.Option) (anyllmlib.Provider, error) {
	switch strings.ToLower(providerName) {
	case "openai":
		return anyllmoai.New(opts...)
	case "anthropic":
		return anthropic.New(opts...)
	case "gemini":
		return gemini.New(opts...)
	case "ollama":
		return ollama.New(opts...)
	case "deepseek":
		return deepseek.New(opts...)
	case "mistral":
		return mistral.New(opts...)
	case "groq":
		return groq.New(opts...)
	case "llamacpp":
		return llamacpp.New(opts...)
	default:
		return nil, fmt.Errorf("unsupported provider %q; supported: openai, anthropic, gemini, ollama, deepseek, mistral, groq, llamacpp", providerName)
	}
}

// Translate implements translate.Translator. The same numeric-fidelity rules
// as the OpenAI backend apply: one repair pass, then accept the best result.
func (p *Provider) Translate(ctx context.Context, req translate.Request) (translate.Result, error) {
	text := strings.TrimSpace(req.Text)
	if text == "" {
		return translate.Result{}, nil
	}
	if strings.EqualFold(req.TargetLang, "es") && translate.LooksSpanish(text) {
		return translate.Result{Text: text}, nil
	}

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
		return translate.Result{Text: out, Repaired: true}, nil
	}
	return translate.Result{Text: repaired, Repaired: true}, nil
}

func (p *Provider) complete(ctx context.Context, req translate.Request, messages []anyllmlib.Message) (string, error) {
	temp := 0.2
	resp, err := p.backend.Completion(ctx, anyllmlib.CompletionParams{
		Model:       req.Model,
		Messages:    messages,
		Temperature: &temp,
	})
	if err != nil {
		return "", resilience.ClassifyErr(fmt.Errorf("anyllm translate: %w", err))
	}
	if len(resp.Choices) == 0 {
		return "", resilience.Transient(fmt.Errorf("anyllm translate: empty choices"))
	}

	out := strings.TrimSpace(resp.Choices[0].Message.ContentString())
	if out == "" || translate.IsRefusal(out) {
		return "", resilience.Transient(fmt.Errorf("anyllm translate: model refused: %.60s", out))
	}
	return out, nil
}

func buildMessages(req translate.Request) []anyllmlib.Message {
	msgs := []anyllmlib.Message{
		{Role: anyllmlib.RoleSystem, Content: systemPrompt(req)},
	}
	for _, ex := range req.Context {
		msgs = append(msgs,
			anyllmlib.Message{Role: anyllmlib.RoleUser, Content: ex.Source},
			anyllmlib.Message{Role: anyllmlib.RoleAssistant, Content: ex.Target})
	}
	return append(msgs, anyllmlib.Message{Role: anyllmlib.RoleUser, Content: req.Text})
}

func repairMessages(req translate.Request, previous string, missing []string) []anyllmlib.Message {
	return []anyllmlib.Message{
		{Role: anyllmlib.RoleSystem, Content: systemPrompt(req)},
		{Role: anyllmlib.RoleUser, Content: req.Text},
		{Role: anyllmlib.RoleAssistant, Content: previous},
		{Role: anyllmlib.RoleUser, Content: fmt.Sprintf(
			"Your translation dropped these values: %s. Reply with the corrected translation only, keeping every number and unit exactly as in the source.",
			strings.Join(missing, ", "))},
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
