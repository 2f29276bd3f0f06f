package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alonsorgl28/teams-translator/internal/observe"
	"github.com/alonsorgl28/teams-translator/internal/resilience"
	"github.com/alonsorgl28/teams-translator/internal/transcript"
	"github.com/alonsorgl28/teams-translator/pkg/audio"
	"github.com/alonsorgl28/teams-translator/pkg/provider/stt"
	"github.com/alonsorgl28/teams-translator/pkg/provider/translate"
)

// State is the orchestrator lifecycle state.
type State int

const (
	StateIdle State = iota
	StateListening
	StateStopping
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateListening:
		return "listening"
	case StateStopping:
		return "stopping"
	default:
		return "unknown"
	}
}

// ErrAlreadyRunning is returned by Start while a session is live.
var ErrAlreadyRunning = errors.New("session already running")

// ErrNotRunning is returned by Stop without a live session.
var ErrNotRunning = errors.New("no session running")

// Config wires an Orchestrator.
type Config struct {
	Source     audio.Source
	STT        stt.Provider
	Translator translate.Translator
	Renderer   Renderer
	// Sink receives metric events. Implementations must not block; the
	// orchestrator calls it inline on the hot path.
	Sink    MetricsSink
	Metrics *observe.Metrics

	SourceLang string
	TargetLang string

	STTModel               string
	STTFallbackModel       string
	TranslateModel         string
	TranslateFallbackModel string
	Retry                  resilience.ExecutorConfig

	AudioQueueCap int
	TextQueueCap  int

	// Staleness is the per-stage freshness threshold. The emit stage runs
	// relaxed by EmitRelaxFactor so near-finished work survives the door.
	Staleness       time.Duration
	EmitRelaxFactor float64

	Scheduler      SchedulerConfig
	DedupWindow    int
	DedupThreshold float64

	// StopTimeout bounds Stop regardless of in-flight backoff sleeps.
	// Default 2s.
	StopTimeout time.Duration
	// Tick is the emission scheduler poll interval. Default 200ms.
	Tick time.Duration

	Logger *slog.Logger
}

// session holds everything belonging to one capture-translate-emit run.
// Workers receive the session they were started with, so a worker abandoned
// at the stop deadline can only ever touch the queues of its own, already
// discarded session and never the ones a later Start created.
type session struct {
	cancel context.CancelFunc
	done   chan struct{}

	audioQ *Queue[AudioChunk]
	textQ  *Queue[TranscriptSegment]
	emitQ  *Queue[TranslatedSegment]
	sched  *Scheduler
	dedup  *DedupWindow

	seq            uint64
	lastTranscript string

	// stopped flips once Stop has accounted for the session. Results and
	// events arriving from abandoned workers after that are discarded.
	stopped atomic.Bool

	runErr error // guarded by Orchestrator.mu
}

// Orchestrator owns one capture-translate-emit session at a time and moves
// it through Idle → Listening → Stopping → Idle.
type Orchestrator struct {
	cfg     Config
	log     *slog.Logger
	metrics *observe.Metrics

	sttExec *resilience.Executor[stt.Transcript]
	trExec  *resilience.Executor[translate.Result]

	stale StalenessFilter

	mu    sync.Mutex
	state State
	sess  *session
}

// NewOrchestrator validates cfg and builds an idle orchestrator.
func NewOrchestrator(cfg Config) (*Orchestrator, error) {
	switch {
	case cfg.Source == nil:
		return nil, fmt.Errorf("pipeline: Source is required")
	case cfg.STT == nil:
		return nil, fmt.Errorf("pipeline: STT provider is required")
	case cfg.Translator == nil:
		return nil, fmt.Errorf("pipeline: Translator is required")
	case cfg.Renderer == nil:
		return nil, fmt.Errorf("pipeline: Renderer is required")
	}
	if cfg.AudioQueueCap <= 0 {
		cfg.AudioQueueCap = 8
	}
	if cfg.TextQueueCap <= 0 {
		cfg.TextQueueCap = 10
	}
	if cfg.Staleness <= 0 {
		cfg.Staleness = 6 * time.Second
	}
	if cfg.EmitRelaxFactor <= 0 {
		cfg.EmitRelaxFactor = 2
	}
	if cfg.DedupWindow <= 0 {
		cfg.DedupWindow = 5
	}
	if cfg.DedupThreshold <= 0 {
		cfg.DedupThreshold = 0.9
	}
	if cfg.StopTimeout <= 0 {
		cfg.StopTimeout = 2 * time.Second
	}
	if cfg.Tick <= 0 {
		cfg.Tick = 200 * time.Millisecond
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = observe.DefaultMetrics()
	}

	cfg.Retry.Logger = cfg.Logger
	return &Orchestrator{
		cfg:     cfg,
		log:     cfg.Logger,
		metrics: cfg.Metrics,
		sttExec: resilience.NewExecutor[stt.Transcript](cfg.STTModel, cfg.STTFallbackModel, cfg.Retry),
		trExec:  resilience.NewExecutor[translate.Result](cfg.TranslateModel, cfg.TranslateFallbackModel, cfg.Retry),
		stale:   StalenessFilter{Threshold: cfg.Staleness},
	}, nil
}

// State returns the current lifecycle state.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Start begins a session: fresh queues, sequence counter reset to zero,
// capture running and all stage workers live.
func (o *Orchestrator) Start(ctx context.Context) error {
	o.mu.Lock()
	if o.state != StateIdle {
		o.mu.Unlock()
		return ErrAlreadyRunning
	}

	s := &session{
		done:   make(chan struct{}),
		audioQ: NewQueue[AudioChunk](o.cfg.AudioQueueCap),
		textQ:  NewQueue[TranscriptSegment](o.cfg.TextQueueCap),
		emitQ:  NewQueue[TranslatedSegment](o.cfg.TextQueueCap),
		sched:  NewScheduler(o.cfg.Scheduler),
		dedup:  NewDedupWindow(o.cfg.DedupWindow, o.cfg.DedupThreshold),
	}
	sessCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	o.sess = s
	o.state = StateListening
	o.mu.Unlock()

	chunks, err := o.cfg.Source.Start(sessCtx)
	if err != nil {
		o.mu.Lock()
		o.state = StateIdle
		o.sess = nil
		o.mu.Unlock()
		cancel()
		return fmt.Errorf("pipeline: start capture: %w", err)
	}

	o.metrics.ActiveSessions.Add(sessCtx, 1)
	o.log.Info("session started",
		"audio_queue", o.cfg.AudioQueueCap, "text_queue", o.cfg.TextQueueCap,
		"staleness", o.cfg.Staleness, "stt_model", o.cfg.STTModel,
		"translate_model", o.cfg.TranslateModel)

	g, gctx := errgroup.WithContext(sessCtx)
	g.Go(func() error { return o.admitLoop(gctx, s, chunks) })
	g.Go(func() error { return o.transcribeLoop(gctx, s) })
	g.Go(func() error { return o.translateLoop(gctx, s) })
	g.Go(func() error { return o.emitLoop(gctx, s) })

	go func() {
		err := g.Wait()
		if err != nil && !errors.Is(err, context.Canceled) {
			o.log.Error("session workers exited", "err", err)
			o.mu.Lock()
			s.runErr = err
			o.mu.Unlock()
		}
		close(s.done)
	}()
	return nil
}

// Stop winds the session down. Workers get until StopTimeout (or the ctx
// deadline, whichever is sooner) to finish their current item; whatever is
// still queued afterwards is dropped and accounted for. A segment sitting
// in a retry backoff does not extend the deadline.
func (o *Orchestrator) Stop(ctx context.Context) error {
	o.mu.Lock()
	if o.state != StateListening {
		o.mu.Unlock()
		return ErrNotRunning
	}
	o.state = StateStopping
	s := o.sess
	o.mu.Unlock()

	s.cancel()

	deadline := time.NewTimer(o.cfg.StopTimeout)
	defer deadline.Stop()
	select {
	case <-s.done:
	case <-deadline.C:
		o.log.Warn("stop deadline reached, abandoning in-flight work")
	case <-ctx.Done():
		o.log.Warn("stop cancelled by caller, abandoning in-flight work")
	}
	s.stopped.Store(true)

	o.dropRemaining(s)
	if err := o.cfg.Source.Close(); err != nil {
		o.log.Warn("closing audio source", "err", err)
	}

	o.mu.Lock()
	o.state = StateIdle
	o.sess = nil
	runErr := s.runErr
	o.mu.Unlock()

	o.metrics.ActiveSessions.Add(context.Background(), -1)
	o.log.Info("session stopped")
	return runErr
}

// dropRemaining accounts for items abandoned at shutdown and zeroes the
// depth gauges for whatever was still queued.
func (o *Orchestrator) dropRemaining(s *session) {
	for _, q := range []struct {
		stage Stage
		name  string
		count int
	}{
		{StageTranscribe, "audio", len(s.audioQ.Flush())},
		{StageTranslate, "text", len(s.textQ.Flush())},
		{StageEmit, "emit", len(s.emitQ.Flush())},
	} {
		if q.count == 0 {
			continue
		}
		o.metrics.RecordQueueDelta(context.Background(), q.name, -int64(q.count))
		for i := 0; i < q.count; i++ {
			o.record(MetricEvent{Stage: q.stage, Outcome: OutcomeDropped, Detail: "shutdown"})
		}
	}
}

// admitLoop assigns sequence IDs to capture chunks and feeds the audio
// queue, accounting for evictions.
func (o *Orchestrator) admitLoop(ctx context.Context, s *session, chunks <-chan audio.Chunk) error {
	var id uint64
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case c, ok := <-chunks:
			if !ok {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				return fmt.Errorf("pipeline: capture stream ended unexpectedly")
			}
			id++
			evicted := s.audioQ.Push(AudioChunk{
				ID:         id,
				WAV:        c.WAV(),
				Duration:   c.Duration,
				CapturedAt: c.CapturedAt,
			})
			o.metrics.RecordQueueDelta(ctx, "audio", int64(1-len(evicted)))
			for range evicted {
				o.event(s, MetricEvent{Stage: StageCapture, Outcome: OutcomeDropped, Detail: "audio queue overflow"})
			}
		}
	}
}

// transcribeLoop drains the audio queue, discards stale chunks and runs the
// rest through the STT executor.
func (o *Orchestrator) transcribeLoop(ctx context.Context, s *session) error {
	for {
		chunks, ok, err := s.audioQ.DrainReady(ctx)
		if err != nil || !ok {
			return err
		}
		o.metrics.RecordQueueDelta(ctx, "audio", -int64(len(chunks)))

		for _, chunk := range chunks {
			if !o.stale.Fresh(chunk.CapturedAt) {
				o.event(s, MetricEvent{Stage: StageTranscribe, Outcome: OutcomeDropped, Detail: "stale audio"})
				continue
			}
			o.transcribeOne(ctx, s, chunk)
			if ctx.Err() != nil {
				return ctx.Err()
			}
		}
	}
}

func (o *Orchestrator) transcribeOne(ctx context.Context, s *session, chunk AudioChunk) {
	start := time.Now()
	result, outcome, err := o.sttExec.Do(ctx, func(ctx context.Context, model string) (stt.Transcript, error) {
		return o.cfg.STT.Transcribe(ctx, stt.Request{
			WAV:      chunk.WAV,
			Model:    model,
			Language: o.cfg.SourceLang,
			Prompt:   s.lastTranscript,
		})
	})
	if s.stopped.Load() {
		return
	}
	o.metrics.RecordStageDuration(ctx, string(StageTranscribe), time.Since(start))
	o.event(s, MetricEvent{Stage: StageTranscribe, Outcome: mapOutcome(outcome), Latency: time.Since(start), Detail: errDetail(err)})
	if err != nil {
		if ctx.Err() == nil {
			o.log.Warn("transcription failed", "chunk", chunk.ID, "err", err)
		}
		return
	}

	text := transcript.CleanNoise(result.Text)
	if text == "" {
		return
	}
	if transcript.LooksGibberish(text) {
		o.event(s, MetricEvent{Stage: StageTranscribe, Outcome: OutcomeDropped, Detail: "gibberish"})
		return
	}
	trimmed := transcript.TrimOverlap(s.lastTranscript, text)
	s.lastTranscript = text
	if trimmed == "" {
		o.event(s, MetricEvent{Stage: StageTranscribe, Outcome: OutcomeDropped, Detail: "window overlap"})
		return
	}

	evicted := s.textQ.Push(TranscriptSegment{
		ChunkID:       chunk.ID,
		Text:          trimmed,
		Language:      o.cfg.SourceLang,
		CapturedAt:    chunk.CapturedAt,
		TranscribedAt: time.Now(),
		Retried:       outcome == resilience.OutcomeRetried,
		FallbackUsed:  outcome == resilience.OutcomeFallbackUsed,
	})
	o.metrics.RecordQueueDelta(ctx, "text", int64(1-len(evicted)))
	for range evicted {
		o.event(s, MetricEvent{Stage: StageTranscribe, Outcome: OutcomeDropped, Detail: "text queue overflow"})
	}
}

// translateLoop drains the text queue, discards stale segments and runs the
// rest through the translation executor.
func (o *Orchestrator) translateLoop(ctx context.Context, s *session) error {
	for {
		segs, ok, err := s.textQ.DrainReady(ctx)
		if err != nil || !ok {
			return err
		}
		o.metrics.RecordQueueDelta(ctx, "text", -int64(len(segs)))

		for _, seg := range segs {
			if !o.stale.Fresh(seg.CapturedAt) {
				o.event(s, MetricEvent{Stage: StageTranslate, Outcome: OutcomeDropped, Detail: "stale transcript"})
				continue
			}
			o.translateOne(ctx, s, seg)
			if ctx.Err() != nil {
				return ctx.Err()
			}
		}
	}
}

func (o *Orchestrator) translateOne(ctx context.Context, s *session, seg TranscriptSegment) {
	start := time.Now()
	result, outcome, err := o.trExec.Do(ctx, func(ctx context.Context, model string) (translate.Result, error) {
		return o.cfg.Translator.Translate(ctx, translate.Request{
			Text:       seg.Text,
			SourceLang: o.cfg.SourceLang,
			TargetLang: o.cfg.TargetLang,
			Model:      model,
		})
	})
	if s.stopped.Load() {
		return
	}
	o.metrics.RecordStageDuration(ctx, string(StageTranslate), time.Since(start))
	o.event(s, MetricEvent{Stage: StageTranslate, Outcome: mapOutcome(outcome), Latency: time.Since(start), Detail: errDetail(err)})
	if err != nil {
		if ctx.Err() == nil {
			o.log.Warn("translation failed", "chunk", seg.ChunkID, "err", err)
		}
		return
	}
	if result.Text == "" {
		return
	}

	evicted := s.emitQ.Push(TranslatedSegment{
		TranscriptSegment: seg,
		TranslatedText:    result.Text,
		TranslatedAt:      time.Now(),
	})
	o.metrics.RecordQueueDelta(ctx, "emit", int64(1-len(evicted)))
	for range evicted {
		o.event(s, MetricEvent{Stage: StageTranslate, Outcome: OutcomeDropped, Detail: "emit queue overflow"})
	}
}

// emitLoop merges translated segments and emits fragments on the scheduler
// policy, polling once per tick. On shutdown the pending fragment is given
// one final chance.
func (o *Orchestrator) emitLoop(ctx context.Context, s *session) error {
	relaxed := o.stale.Relaxed(o.cfg.EmitRelaxFactor)
	ticker := time.NewTicker(o.cfg.Tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if frag, ok := s.sched.FlushRemaining(); ok {
				o.emitFragment(s, frag)
			}
			return ctx.Err()
		case <-ticker.C:
			flushed := s.emitQ.Flush()
			if len(flushed) > 0 {
				o.metrics.RecordQueueDelta(ctx, "emit", -int64(len(flushed)))
			}
			for _, seg := range flushed {
				if !relaxed.Fresh(seg.CapturedAt) {
					o.event(s, MetricEvent{Stage: StageEmit, Outcome: OutcomeDropped, Detail: "stale translation"})
					continue
				}
				s.sched.Add(seg)
			}
			for {
				frag, ok := s.sched.Poll()
				if !ok {
					break
				}
				o.emitFragment(s, frag)
			}
		}
	}
}

// emitFragment runs the dedup gate and hands the fragment to the renderer.
// Suppressed duplicates do not consume sequence numbers.
func (o *Orchestrator) emitFragment(s *session, frag Fragment) {
	if s.dedup.IsDuplicate(frag.Text) {
		o.event(s, MetricEvent{Stage: StageEmit, Outcome: OutcomeDropped, Detail: "duplicate"})
		return
	}

	now := time.Now()
	s.seq++
	emitted := EmittedFragment{
		Seq:             s.seq,
		Text:            frag.Text,
		FirstCapturedAt: frag.FirstCapturedAt,
		EmittedAt:       now,
		Latency:         now.Sub(frag.FirstCapturedAt),
	}

	o.cfg.Renderer.Render(emitted)
	s.dedup.Remember(frag.Text)
	o.metrics.EndToEndLatency.Record(context.Background(), emitted.Latency.Seconds())
	o.event(s, MetricEvent{Stage: StageEmit, Outcome: OutcomeSuccess, Latency: emitted.Latency, Detail: frag.Text})
}

// event records ev for a live session. Once Stop has accounted for the
// session, stragglers abandoned at the deadline are silenced so their
// events cannot bleed into a later session's report.
func (o *Orchestrator) event(s *session, ev MetricEvent) {
	if s.stopped.Load() {
		return
	}
	o.record(ev)
}

// record forwards to the sink and the OTel counter. Sinks are contractually
// non-blocking, so this stays on the hot path.
func (o *Orchestrator) record(ev MetricEvent) {
	ev.RecordedAt = time.Now()
	o.metrics.RecordSegment(context.Background(), string(ev.Stage), string(ev.Outcome))
	if o.cfg.Sink != nil {
		o.cfg.Sink.Record(ev)
	}
}

func mapOutcome(oc resilience.Outcome) Outcome {
	switch oc {
	case resilience.OutcomeSuccess:
		return OutcomeSuccess
	case resilience.OutcomeRetried:
		return OutcomeRetried
	case resilience.OutcomeFallbackUsed:
		return OutcomeFallbackUsed
	default:
		return OutcomeFailed
	}
}

func errDetail(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
