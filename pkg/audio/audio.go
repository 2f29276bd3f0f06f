// Package audio defines the capture types shared by the pipeline: PCM
// chunks, the capture source contract, and the format helpers needed to
// turn device-native audio into 16 kHz mono WAV payloads for transcription.
package audio

import (
	"context"
	"time"
)

// TargetSampleRate is the sample rate transcription models expect.
const TargetSampleRate = 16000

// Chunk is one capture window of PCM16 mono audio at TargetSampleRate.
type Chunk struct {
	// PCM is little-endian int16 mono samples.
	PCM        []byte
	Duration   time.Duration
	CapturedAt time.Time
}

// WAV returns the chunk as a RIFF WAV payload ready for upload.
func (c Chunk) WAV() []byte {
	return EncodeWAV(c.PCM, TargetSampleRate, 1)
}

// Source produces capture chunks. Start begins capture and returns the chunk
// stream; the stream closes when the context is cancelled or the device
// fails. Close releases the device.
type Source interface {
	Start(ctx context.Context) (<-chan Chunk, error)
	Close() error
}
