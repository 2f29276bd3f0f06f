package audio

import (
	"encoding/binary"
	"math"
	"testing"
)

func TestEncodeWAV_Header(t *testing.T) {
	pcm := make([]byte, 3200) // 100ms of 16kHz mono
	wav := EncodeWAV(pcm, 16000, 1)

	if len(wav) != 44+len(pcm) {
		t.Fatalf("len = %d, want %d", len(wav), 44+len(pcm))
	}
	if string(wav[0:4]) != "RIFF" || string(wav[8:12]) != "WAVE" {
		t.Fatal("missing RIFF/WAVE markers")
	}
	if got := binary.LittleEndian.Uint32(wav[4:8]); got != uint32(36+len(pcm)) {
		t.Fatalf("riff size = %d, want %d", got, 36+len(pcm))
	}
	if got := binary.LittleEndian.Uint32(wav[24:28]); got != 16000 {
		t.Fatalf("sample rate = %d, want 16000", got)
	}
	if got := binary.LittleEndian.Uint16(wav[22:24]); got != 1 {
		t.Fatalf("channels = %d, want 1", got)
	}
	if got := binary.LittleEndian.Uint32(wav[40:44]); got != uint32(len(pcm)) {
		t.Fatalf("data size = %d, want %d", got, len(pcm))
	}
}

func TestFloat32ToPCM16_Clamps(t *testing.T) {
	out := Float32ToPCM16([]float32{0, 1, -1, 2, -2})
	samples := make([]int16, 5)
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(out[i*2:]))
	}
	if samples[0] != 0 {
		t.Fatalf("samples[0] = %d, want 0", samples[0])
	}
	if samples[1] != 32767 || samples[3] != 32767 {
		t.Fatalf("positive full scale = %d/%d, want 32767", samples[1], samples[3])
	}
	if samples[2] != -32767 || samples[4] != -32768 {
		t.Fatalf("negative full scale = %d/%d", samples[2], samples[4])
	}
}

func TestRMS(t *testing.T) {
	if got := RMS(nil); got != 0 {
		t.Fatalf("RMS(nil) = %v, want 0", got)
	}

	// Constant amplitude signal has RMS equal to that amplitude.
	pcm := make([]byte, 200)
	for i := 0; i < 100; i++ {
		binary.LittleEndian.PutUint16(pcm[i*2:], uint16(int16(1000)))
	}
	if got := RMS(pcm); math.Abs(got-1000) > 0.01 {
		t.Fatalf("RMS = %v, want 1000", got)
	}
}

func TestStereoToMono_Averages(t *testing.T) {
	stereo := make([]byte, 8)
	binary.LittleEndian.PutUint16(stereo[0:], uint16(int16(100)))  // L
	binary.LittleEndian.PutUint16(stereo[2:], uint16(int16(300)))  // R
	negL, negR := int16(-200), int16(-400)
	binary.LittleEndian.PutUint16(stereo[4:], uint16(negL)) // L
	binary.LittleEndian.PutUint16(stereo[6:], uint16(negR)) // R

	mono := StereoToMono(stereo)
	if len(mono) != 4 {
		t.Fatalf("len = %d, want 4", len(mono))
	}
	if got := int16(binary.LittleEndian.Uint16(mono[0:])); got != 200 {
		t.Fatalf("frame 0 = %d, want 200", got)
	}
	if got := int16(binary.LittleEndian.Uint16(mono[2:])); got != -300 {
		t.Fatalf("frame 1 = %d, want -300", got)
	}
}

func TestResampleMono16_HalvesSampleCount(t *testing.T) {
	src := make([]byte, 2000) // 1000 samples
	out := ResampleMono16(src, 32000, 16000)
	if len(out) != 1000 {
		t.Fatalf("len = %d, want 1000", len(out))
	}
}

func TestResampleMono16_SameRateUnchanged(t *testing.T) {
	src := []byte{1, 2, 3, 4}
	out := ResampleMono16(src, 16000, 16000)
	if &out[0] != &src[0] {
		t.Fatal("same-rate input should be returned unchanged")
	}
}

func TestToMono16k_StereoHighRate(t *testing.T) {
	// 48kHz stereo, 480 frames (10ms) → 160 mono samples at 16kHz.
	src := make([]byte, 480*4)
	out := ToMono16k(src, 48000, 2)
	if len(out) != 160*2 {
		t.Fatalf("len = %d, want %d", len(out), 160*2)
	}
}

func TestChunkWAV(t *testing.T) {
	c := Chunk{PCM: make([]byte, 320)}
	wav := c.WAV()
	if got := binary.LittleEndian.Uint32(wav[24:28]); got != TargetSampleRate {
		t.Fatalf("sample rate = %d, want %d", got, TargetSampleRate)
	}
}
