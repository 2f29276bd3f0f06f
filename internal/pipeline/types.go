// Package pipeline implements the live translation pipeline: bounded stage
// queues, staleness filtering, duplicate suppression, emission scheduling and
// the orchestrator that wires capture, transcription and translation workers
// into a session.
package pipeline

import "time"

// Stage identifies a pipeline stage for metric and log attribution.
type Stage string

const (
	StageCapture    Stage = "capture"
	StageTranscribe Stage = "transcribe"
	StageTranslate  Stage = "translate"
	StageEmit       Stage = "emit"
)

// Outcome classifies how a unit of work left a stage.
type Outcome string

const (
	OutcomeSuccess      Outcome = "success"
	OutcomeRetried      Outcome = "retried"
	OutcomeFallbackUsed Outcome = "fallback_used"
	OutcomeDropped      Outcome = "dropped"
	OutcomeFailed       Outcome = "failed"
)

// AudioChunk is one captured window of loopback audio, already encoded as a
// 16 kHz mono PCM16 WAV payload ready for a transcription request.
type AudioChunk struct {
	// ID is monotonically increasing within a session, assigned on admission.
	ID         uint64
	WAV        []byte
	Duration   time.Duration
	CapturedAt time.Time
}

// TranscriptSegment is the speech-to-text result for one audio chunk.
type TranscriptSegment struct {
	ChunkID       uint64
	Text          string
	Language      string
	CapturedAt    time.Time
	TranscribedAt time.Time

	// Retried and FallbackUsed carry the resilience outcome forward so the
	// emitted fragment can be attributed in session reports.
	Retried      bool
	FallbackUsed bool
}

// TranslatedSegment is a transcript segment with its target-language text.
type TranslatedSegment struct {
	TranscriptSegment
	TranslatedText string
	TranslatedAt   time.Time
}

// EmittedFragment is one subtitle line handed to the renderer.
type EmittedFragment struct {
	// Seq is strictly increasing per session and only advances on actual
	// emission; suppressed duplicates do not consume sequence numbers.
	Seq             uint64
	Text            string
	FirstCapturedAt time.Time
	EmittedAt       time.Time
	Latency         time.Duration
}

// MetricEvent describes one observable pipeline occurrence. Sinks must treat
// delivery as best-effort; the pipeline never waits on them.
type MetricEvent struct {
	Stage      Stage
	Outcome    Outcome
	Latency    time.Duration
	RecordedAt time.Time
	Detail     string
}

// Renderer receives emitted subtitle fragments.
type Renderer interface {
	Render(f EmittedFragment)
}

// MetricsSink receives metric events. Implementations must not block.
type MetricsSink interface {
	Record(ev MetricEvent)
}
