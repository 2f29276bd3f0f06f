// Package mock provides a scripted audio source for tests.
package mock

import (
	"context"
	"sync"
	"time"

	"github.com/alonsorgl28/teams-translator/pkg/audio"
)

// Source replays a fixed set of chunks, optionally spaced by Interval.
type Source struct {
	Chunks   []audio.Chunk
	Interval time.Duration

	mu     sync.Mutex
	closed bool
}

var _ audio.Source = (*Source)(nil)

// Start emits the scripted chunks and closes the stream.
func (s *Source) Start(ctx context.Context) (<-chan audio.Chunk, error) {
	out := make(chan audio.Chunk)
	go func() {
		defer close(out)
		for _, c := range s.Chunks {
			if s.Interval > 0 {
				select {
				case <-time.After(s.Interval):
				case <-ctx.Done():
					return
				}
			}
			select {
			case out <- c:
			case <-ctx.Done():
				return
			}
		}
		<-ctx.Done()
	}()
	return out, nil
}

// Close marks the source closed.
func (s *Source) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Closed reports whether Close was called.
func (s *Source) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
