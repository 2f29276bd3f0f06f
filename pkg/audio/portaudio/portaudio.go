// Package portaudio captures system playback audio through a loopback
// device (VB-Cable, BlackHole, a PulseAudio monitor) and slices it into
// overlapping windows for transcription.
//
// The capturer deliberately refuses to fall back to a microphone: feeding
// room audio into a meeting translator produces garbage subtitles, so a
// missing loopback device is a setup error surfaced to the user.
package portaudio

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/gordonklaus/portaudio"

	"github.com/alonsorgl28/teams-translator/pkg/audio"
)

// ErrNoLoopbackDevice is returned when no input device matches the loopback
// keyword list.
var ErrNoLoopbackDevice = fmt.Errorf("no loopback capture device found")

// loopbackKeywords name the virtual devices that expose system playback as
// an input, per platform.
func loopbackKeywords() []string {
	switch runtime.GOOS {
	case "windows":
		return []string{"cable output", "vb-audio", "stereo mix", "what u hear", "loopback"}
	case "darwin":
		return []string{"blackhole", "loopback", "soundflower"}
	default:
		return []string{"monitor of", "monitor", "loopback"}
	}
}

// Config tunes the capturer.
type Config struct {
	// DeviceKeywords overrides the per-OS loopback keyword list.
	DeviceKeywords []string
	// ChunkSeconds is the capture window length. Default 1.6.
	ChunkSeconds float64
	// HopSeconds is the stride between window starts; a hop shorter than the
	// chunk makes consecutive windows overlap so words straddling a boundary
	// appear whole in at least one of them. Default 0.85 × ChunkSeconds.
	HopSeconds float64
	// MinRMS is the silence gate; windows quieter than this are skipped.
	// Default 120 (int16 scale).
	MinRMS float64

	Logger *slog.Logger
}

// Capturer implements [audio.Source] over a portaudio loopback device.
type Capturer struct {
	cfg Config
	log *slog.Logger

	mu      sync.Mutex
	stream  *portaudio.Stream
	started bool
}

var _ audio.Source = (*Capturer)(nil)

// New initialises portaudio and prepares a capturer. Close must be called to
// release the library.
func New(cfg Config) (*Capturer, error) {
	if cfg.ChunkSeconds <= 0 {
		cfg.ChunkSeconds = 1.6
	}
	if cfg.HopSeconds <= 0 || cfg.HopSeconds > cfg.ChunkSeconds {
		cfg.HopSeconds = 0.85 * cfg.ChunkSeconds
	}
	if cfg.MinRMS <= 0 {
		cfg.MinRMS = 120
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("portaudio: initialize: %w", err)
	}
	return &Capturer{cfg: cfg, log: cfg.Logger}, nil
}

// ListInputDevices returns the names of all input-capable devices, for the
// -list-devices flag.
func ListInputDevices() ([]string, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("portaudio: initialize: %w", err)
	}
	defer portaudio.Terminate()

	devices, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("portaudio: list devices: %w", err)
	}
	var names []string
	for _, dev := range devices {
		if dev.MaxInputChannels > 0 {
			names = append(names, dev.Name)
		}
	}
	return names, nil
}

// findLoopbackDevice picks the first input device whose name matches a
// loopback keyword.
func (c *Capturer) findLoopbackDevice() (*portaudio.DeviceInfo, error) {
	devices, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("portaudio: list devices: %w", err)
	}

	keywords := c.cfg.DeviceKeywords
	if len(keywords) == 0 {
		keywords = loopbackKeywords()
	}

	for _, dev := range devices {
		if dev.MaxInputChannels < 1 {
			continue
		}
		name := strings.ToLower(dev.Name)
		for _, kw := range keywords {
			if strings.Contains(name, kw) {
				return dev, nil
			}
		}
	}
	return nil, fmt.Errorf("%w (looked for %s); route meeting audio through a virtual device such as VB-Cable or BlackHole",
		ErrNoLoopbackDevice, strings.Join(keywords, ", "))
}

// Start opens the loopback device and begins producing overlapping capture
// windows. The returned channel closes when ctx is cancelled or the device
// read loop fails.
func (c *Capturer) Start(ctx context.Context) (<-chan audio.Chunk, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.started {
		return nil, fmt.Errorf("portaudio: capturer already started")
	}

	dev, err := c.findLoopbackDevice()
	if err != nil {
		return nil, err
	}

	channels := 1
	if dev.MaxInputChannels >= 2 {
		channels = 2
	}
	sampleRate := int(dev.DefaultSampleRate)
	if sampleRate <= 0 {
		sampleRate = 44100
	}

	framesPerBuf := 1024
	buf := make([]int16, framesPerBuf*channels)
	stream, err := portaudio.OpenStream(portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Device:   dev,
			Channels: channels,
			Latency:  dev.DefaultLowInputLatency,
		},
		SampleRate:      float64(sampleRate),
		FramesPerBuffer: framesPerBuf,
	}, buf)
	if err != nil {
		return nil, fmt.Errorf("portaudio: open stream on %q: %w", dev.Name, err)
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		return nil, fmt.Errorf("portaudio: start stream on %q: %w", dev.Name, err)
	}
	c.stream = stream
	c.started = true

	c.log.Info("loopback capture started",
		"device", dev.Name, "sample_rate", sampleRate, "channels", channels,
		"chunk_s", c.cfg.ChunkSeconds, "hop_s", c.cfg.HopSeconds)

	out := make(chan audio.Chunk, 4)
	go c.captureLoop(ctx, stream, buf, sampleRate, channels, out)
	return out, nil
}

// captureLoop reads device buffers and assembles them into overlapping
// windows on the target format.
func (c *Capturer) captureLoop(ctx context.Context, stream *portaudio.Stream, buf []int16, sampleRate, channels int, out chan<- audio.Chunk) {
	defer close(out)

	chunkBytes := int(c.cfg.ChunkSeconds*float64(audio.TargetSampleRate)) * 2
	hopBytes := int(c.cfg.HopSeconds*float64(audio.TargetSampleRate)) * 2
	if hopBytes < 2 {
		hopBytes = 2
	}

	var window []byte
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if err := stream.Read(); err != nil {
			c.log.Error("loopback read failed, capture stopping", "err", err)
			return
		}

		raw := make([]byte, len(buf)*2)
		for i, s := range buf {
			raw[i*2] = byte(s)
			raw[i*2+1] = byte(s >> 8)
		}
		window = append(window, audio.ToMono16k(raw, sampleRate, channels)...)

		for len(window) >= chunkBytes {
			pcm := append([]byte(nil), window[:chunkBytes]...)
			window = window[hopBytes:]

			if audio.RMS(pcm) < c.cfg.MinRMS {
				continue
			}
			chunk := audio.Chunk{
				PCM:        pcm,
				Duration:   time.Duration(c.cfg.ChunkSeconds * float64(time.Second)),
				CapturedAt: time.Now(),
			}
			select {
			case out <- chunk:
			case <-ctx.Done():
				return
			}
		}
	}
}

// Close stops the stream and releases portaudio.
func (c *Capturer) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stream != nil {
		_ = c.stream.Stop()
		_ = c.stream.Close()
		c.stream = nil
	}
	c.started = false
	return portaudio.Terminate()
}
