// Package report writes per-session quality reports: a JSONL event log and
// a summary JSON with latency percentiles. It implements the pipeline's
// MetricsSink, so recording is strictly best-effort — a full disk degrades
// reporting, never subtitles.
package report

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/alonsorgl28/teams-translator/internal/pipeline"
)

// Config tunes the reporter.
type Config struct {
	Enabled bool
	// EventsPath is the JSONL event log location.
	EventsPath string
	// SummaryPath is where the end-of-session summary JSON is written.
	SummaryPath string
	// Append keeps events from previous sessions in the log.
	Append bool
}

// Reporter accumulates session statistics and appends events to the log.
// Safe for concurrent use.
type Reporter struct {
	cfg Config
	log *slog.Logger

	mu        sync.Mutex
	startedAt time.Time
	latencies []float64
	segments  int
	fallbacks int
	errors    int
	warned    bool
}

var _ pipeline.MetricsSink = (*Reporter)(nil)

// New creates a Reporter. A disabled reporter accepts all calls and does
// nothing.
func New(cfg Config, log *slog.Logger) *Reporter {
	if log == nil {
		log = slog.Default()
	}
	return &Reporter{cfg: cfg, log: log}
}

// Enabled reports whether the reporter writes anything.
func (r *Reporter) Enabled() bool { return r.cfg.Enabled }

// StartSession resets counters and truncates the event log unless append
// mode is on.
func (r *Reporter) StartSession() {
	if !r.cfg.Enabled {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.startedAt = time.Now()
	r.latencies = nil
	r.segments = 0
	r.fallbacks = 0
	r.errors = 0

	if !r.cfg.Append {
		if err := r.ensureDirsLocked(); err == nil {
			if err := os.WriteFile(r.cfg.EventsPath, nil, 0o644); err != nil {
				r.warnLocked("truncate event log", err)
			}
		}
	}
}

// Record implements pipeline.MetricsSink. Emitted fragments feed the
// latency statistics; failures and drops become error events in the log.
func (r *Reporter) Record(ev pipeline.MetricEvent) {
	if !r.cfg.Enabled {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	switch {
	case ev.Stage == pipeline.StageEmit && ev.Outcome == pipeline.OutcomeSuccess:
		r.segments++
		r.latencies = append(r.latencies, ev.Latency.Seconds())
		r.appendLocked(map[string]any{
			"event_type":      "segment",
			"recorded_at":     ev.RecordedAt.Format(time.RFC3339Nano),
			"latency_total_s": ev.Latency.Seconds(),
			"text":            ev.Detail,
		})
	case ev.Outcome == pipeline.OutcomeFallbackUsed:
		r.fallbacks++
	case ev.Outcome == pipeline.OutcomeFailed:
		r.errors++
		r.appendLocked(map[string]any{
			"event_type":  "error",
			"recorded_at": ev.RecordedAt.Format(time.RFC3339Nano),
			"stage":       string(ev.Stage),
			"error":       ev.Detail,
		})
	case ev.Outcome == pipeline.OutcomeDropped:
		r.appendLocked(map[string]any{
			"event_type":  "drop",
			"recorded_at": ev.RecordedAt.Format(time.RFC3339Nano),
			"stage":       string(ev.Stage),
			"reason":      ev.Detail,
		})
	}
}

// Snapshot returns the live statistics for the status display.
func (r *Reporter) Snapshot() (avgLatency, p95Latency float64, issueRatePct float64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.latencies) > 0 {
		var sum float64
		for _, l := range r.latencies {
			sum += l
		}
		avgLatency = sum / float64(len(r.latencies))
		p95Latency = percentile(r.latencies, 0.95)
	}
	if base := r.segments + r.errors; base > 0 {
		issueRatePct = float64(r.fallbacks+r.errors) / float64(base) * 100
	}
	return avgLatency, p95Latency, issueRatePct
}

// Summary is the end-of-session report.
type Summary struct {
	SessionStartedAt string  `json:"session_started_at"`
	SessionEndedAt   string  `json:"session_ended_at"`
	SessionDuration  float64 `json:"session_duration_s"`
	SegmentsLogged   int     `json:"segments_logged"`
	FallbackSegments int     `json:"fallback_segments"`
	ErrorEvents      int     `json:"error_events"`
	IssueRatePct     float64 `json:"issue_rate_pct"`
	LatencyAvg       float64 `json:"latency_avg_s"`
	LatencyP50       float64 `json:"latency_p50_s"`
	LatencyP95       float64 `json:"latency_p95_s"`
	LatencyMax       float64 `json:"latency_max_s"`
}

// Finalize writes the summary JSON and returns it.
func (r *Reporter) Finalize() Summary {
	if !r.cfg.Enabled {
		return Summary{}
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	started := r.startedAt
	if started.IsZero() {
		started = now
	}

	var avg, maxLat float64
	if len(r.latencies) > 0 {
		var sum float64
		for _, l := range r.latencies {
			sum += l
			if l > maxLat {
				maxLat = l
			}
		}
		avg = sum / float64(len(r.latencies))
	}

	s := Summary{
		SessionStartedAt: started.Format(time.RFC3339Nano),
		SessionEndedAt:   now.Format(time.RFC3339Nano),
		SessionDuration:  now.Sub(started).Seconds(),
		SegmentsLogged:   r.segments,
		FallbackSegments: r.fallbacks,
		ErrorEvents:      r.errors,
		LatencyAvg:       avg,
		LatencyP50:       percentile(r.latencies, 0.50),
		LatencyP95:       percentile(r.latencies, 0.95),
		LatencyMax:       maxLat,
	}
	if base := r.segments + r.errors; base > 0 {
		s.IssueRatePct = float64(r.fallbacks+r.errors) / float64(base) * 100
	}

	if err := r.ensureDirsLocked(); err == nil {
		data, _ := json.MarshalIndent(s, "", "  ")
		if err := os.WriteFile(r.cfg.SummaryPath, data, 0o644); err != nil {
			r.warnLocked("write summary", err)
		}
	}
	return s
}

// appendLocked writes one JSONL event. Failures are logged once and the
// event is discarded.
func (r *Reporter) appendLocked(payload map[string]any) {
	if err := r.ensureDirsLocked(); err != nil {
		return
	}
	line, err := json.Marshal(payload)
	if err != nil {
		r.warnLocked("marshal event", err)
		return
	}
	f, err := os.OpenFile(r.cfg.EventsPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		r.warnLocked("open event log", err)
		return
	}
	defer f.Close()
	if _, err := fmt.Fprintf(f, "%s\n", line); err != nil {
		r.warnLocked("append event", err)
	}
}

func (r *Reporter) ensureDirsLocked() error {
	for _, p := range []string{r.cfg.EventsPath, r.cfg.SummaryPath} {
		if p == "" {
			continue
		}
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			r.warnLocked("create report directory", err)
			return err
		}
	}
	return nil
}

// warnLocked logs a reporting failure once per session to avoid flooding
// the log while a disk stays full.
func (r *Reporter) warnLocked(op string, err error) {
	if r.warned {
		return
	}
	r.warned = true
	r.log.Warn("session reporting degraded", "op", op, "err", err)
}

// percentile computes the ratio-th percentile with linear interpolation
// between the two nearest ranks.
func percentile(values []float64, ratio float64) float64 {
	if len(values) == 0 {
		return 0
	}
	ordered := append([]float64(nil), values...)
	sort.Float64s(ordered)
	if len(ordered) == 1 {
		return ordered[0]
	}
	index := float64(len(ordered)-1) * ratio
	lower := int(index)
	upper := lower + 1
	if upper > len(ordered)-1 {
		return ordered[lower]
	}
	weight := index - float64(lower)
	return ordered[lower]*(1-weight) + ordered[upper]*weight
}
