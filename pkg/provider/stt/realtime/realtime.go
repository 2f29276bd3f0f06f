// Package realtime implements stt.Provider over the OpenAI Realtime
// transcription API.
//
// It keeps one WebSocket session open and pushes each capture window
// through it as base64-encoded PCM16, which avoids the per-request HTTP
// overhead of the batch endpoint. When the socket cannot be established or
// dies mid-call, the provider transparently falls back to a batch provider
// if one was supplied.
package realtime

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/alonsorgl28/teams-translator/internal/resilience"
	"github.com/alonsorgl28/teams-translator/pkg/provider/stt"
)

var _ stt.Provider = (*Provider)(nil)

const (
	defaultBaseURL = "wss://api.openai.com/v1/realtime"
	wavHeaderSize  = 44
)

// Option is a functional option for configuring a Provider.
type Option func(*Provider)

// WithBaseURL overrides the WebSocket base URL. Primarily used in tests to
// point at a local mock server.
func WithBaseURL(url string) Option {
	return func(p *Provider) { p.baseURL = url }
}

// WithFallback sets a batch provider used when the realtime session cannot
// be established.
func WithFallback(fb stt.Provider) Option {
	return func(p *Provider) { p.fallback = fb }
}

// WithResultTimeout bounds the wait for a transcription result per chunk.
// Default 10s.
func WithResultTimeout(d time.Duration) Option {
	return func(p *Provider) { p.resultTimeout = d }
}

// Provider implements stt.Provider over a realtime transcription session.
type Provider struct {
	apiKey        string
	baseURL       string
	fallback      stt.Provider
	resultTimeout time.Duration
	log           *slog.Logger

	// mu serialises calls: the realtime protocol has no request IDs, so one
	// commit must complete before the next append starts.
	mu   sync.Mutex
	sess *session
}

// New creates a realtime Provider with the given API key and options.
func New(apiKey string, opts ...Option) *Provider {
	p := &Provider{
		apiKey:        apiKey,
		baseURL:       defaultBaseURL,
		resultTimeout: 10 * time.Second,
		log:           slog.Default(),
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Transcribe pushes one capture window through the realtime session.
func (p *Provider) Transcribe(ctx context.Context, req stt.Request) (stt.Transcript, error) {
	if len(req.WAV) <= wavHeaderSize {
		return stt.Transcript{}, fmt.Errorf("realtime stt: empty audio payload")
	}
	pcm := req.WAV[wavHeaderSize:]

	p.mu.Lock()
	defer p.mu.Unlock()

	sess, err := p.ensureSession(ctx, req)
	if err != nil {
		if p.fallback != nil {
			p.log.Warn("realtime session unavailable, using batch transcription", "err", err)
			return p.fallback.Transcribe(ctx, req)
		}
		return stt.Transcript{}, resilience.Transient(err)
	}

	text, err := sess.transcribeChunk(ctx, pcm, p.resultTimeout)
	if err != nil {
		// A dead socket is rebuilt on the next call.
		sess.close()
		p.sess = nil
		if p.fallback != nil {
			p.log.Warn("realtime transcription failed, using batch transcription", "err", err)
			return p.fallback.Transcribe(ctx, req)
		}
		return stt.Transcript{}, resilience.Transient(err)
	}
	return stt.Transcript{Text: text, Language: req.Language}, nil
}

// ensureSession dials and configures a session on first use.
func (p *Provider) ensureSession(ctx context.Context, req stt.Request) (*session, error) {
	if p.sess != nil {
		return p.sess, nil
	}

	conn, _, err := websocket.Dial(ctx, p.baseURL+"?intent=transcription", &websocket.DialOptions{
		HTTPHeader: http.Header{
			"Authorization": []string{"Bearer " + p.apiKey},
			"OpenAI-Beta":   []string{"realtime=v1"},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("realtime stt: dial: %w", err)
	}

	sess := &session{conn: conn}
	if err := sess.configure(ctx, req.Model, req.Language, req.Prompt); err != nil {
		sess.close()
		return nil, fmt.Errorf("realtime stt: session update: %w", err)
	}
	p.sess = sess
	return sess, nil
}

// Close tears down the realtime session.
func (p *Provider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.sess != nil {
		p.sess.close()
		p.sess = nil
	}
	return nil
}

// ── Protocol messages ─────────────────────────────────────────────────────────

type sessionUpdateMessage struct {
	Type    string        `json:"type"`
	Session sessionParams `json:"session"`
}

type sessionParams struct {
	InputAudioFormat        string              `json:"input_audio_format"`
	InputAudioTranscription transcriptionParams `json:"input_audio_transcription"`
	TurnDetection           any                 `json:"turn_detection"`
}

type transcriptionParams struct {
	Model    string `json:"model"`
	Language string `json:"language,omitempty"`
	Prompt   string `json:"prompt,omitempty"`
}

type appendAudioMessage struct {
	Type  string `json:"type"`
	Audio string `json:"audio"` // base64-encoded PCM16
}

type commitMessage struct {
	Type string `json:"type"`
}

type serverEvent struct {
	Type       string `json:"type"`
	Transcript string `json:"transcript,omitempty"`
	Error      *struct {
		Code    string `json:"code,omitempty"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// ── session ───────────────────────────────────────────────────────────────────

type session struct {
	conn *websocket.Conn
}

func (s *session) configure(ctx context.Context, model, language, prompt string) error {
	// Turn detection is disabled: window boundaries come from the capture
	// layer, and each window is committed explicitly.
	return s.writeJSON(ctx, sessionUpdateMessage{
		Type: "transcription_session.update",
		Session: sessionParams{
			InputAudioFormat: "pcm16",
			InputAudioTranscription: transcriptionParams{
				Model:    model,
				Language: language,
				Prompt:   prompt,
			},
		},
	})
}

// transcribeChunk appends and commits one PCM window, then waits for its
// completed-transcription event.
func (s *session) transcribeChunk(ctx context.Context, pcm []byte, timeout time.Duration) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := s.writeJSON(ctx, appendAudioMessage{
		Type:  "input_audio_buffer.append",
		Audio: base64.StdEncoding.EncodeToString(pcm),
	}); err != nil {
		return "", err
	}
	if err := s.writeJSON(ctx, commitMessage{Type: "input_audio_buffer.commit"}); err != nil {
		return "", err
	}

	for {
		_, data, err := s.conn.Read(ctx)
		if err != nil {
			return "", fmt.Errorf("read: %w", err)
		}
		var ev serverEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			continue
		}
		switch ev.Type {
		case "conversation.item.input_audio_transcription.completed":
			return ev.Transcript, nil
		case "conversation.item.input_audio_transcription.failed", "error":
			msg := "transcription failed"
			if ev.Error != nil {
				msg = ev.Error.Message
			}
			return "", fmt.Errorf("server error: %s", msg)
		}
	}
}

func (s *session) writeJSON(ctx context.Context, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.conn.Write(ctx, websocket.MessageText, data)
}

func (s *session) close() {
	_ = s.conn.Close(websocket.StatusNormalClosure, "session closed")
}
