// Package render displays emitted subtitles and keeps a short history of
// recent lines.
package render

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"

	"github.com/alonsorgl28/teams-translator/internal/pipeline"
	"github.com/alonsorgl28/teams-translator/internal/transcript"
)

// ConsoleConfig tunes the console renderer.
type ConsoleConfig struct {
	// Out is where subtitle lines are written. Default os.Stdout.
	Out io.Writer

	// Timestamps prefixes each line with the emission wall clock.
	Timestamps bool

	// ShowLatency appends the capture-to-display latency to each line.
	ShowLatency bool

	// HistorySize bounds the retained line history. Default 50.
	HistorySize int

	Logger *slog.Logger
}

// Console renders subtitles as plain lines on a terminal. Safe for
// concurrent use, although the pipeline emits from a single goroutine.
type Console struct {
	cfg     ConsoleConfig
	log     *slog.Logger
	mu      sync.Mutex
	history *transcript.RollingBuffer
}

var _ pipeline.Renderer = (*Console)(nil)

// NewConsole creates a console renderer.
func NewConsole(cfg ConsoleConfig) *Console {
	if cfg.Out == nil {
		cfg.Out = os.Stdout
	}
	if cfg.HistorySize <= 0 {
		cfg.HistorySize = 50
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Console{
		cfg:     cfg,
		log:     cfg.Logger,
		history: transcript.NewRollingBuffer(cfg.HistorySize, 0),
	}
}

// Render implements pipeline.Renderer. A write failure is logged and the
// fragment is still recorded in the history.
func (c *Console) Render(f pipeline.EmittedFragment) {
	c.mu.Lock()
	defer c.mu.Unlock()

	line := f.Text
	if c.cfg.Timestamps {
		line = fmt.Sprintf("[%s] %s", f.EmittedAt.Format("15:04:05"), line)
	}
	if c.cfg.ShowLatency {
		line = fmt.Sprintf("%s  (%.1fs)", line, f.Latency.Seconds())
	}

	if _, err := fmt.Fprintln(c.cfg.Out, line); err != nil {
		c.log.Warn("subtitle write failed", "seq", f.Seq, "err", err)
	}
	c.history.Add(f.Text)
}

// History returns the retained subtitle lines, oldest first.
func (c *Console) History() []transcript.Line {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.history.Snapshot()
}
