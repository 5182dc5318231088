// Package playback renders chunks arriving in logical order with no audible
// gap and no overlap, by scheduling each chunk against a monotonic timeline
// anchor.
package playback

import (
	"sync"
	"time"

	"github.com/mfreitas/voxprep/internal/pcm"
	"go.uber.org/zap"
)

// Renderer turns decoded samples into audible output. Start schedules the
// samples to begin at the given time and returns a completion channel,
// closed when rendering finishes, plus a cancel function. Start must not
// block for the duration of the render.
type Renderer interface {
	Start(samples []float32, rate int, at time.Time) (done <-chan struct{}, cancel func(), err error)
}

// Scheduler owns one playback timeline. Chunks are decoded at the fixed
// 24 kHz playback rate and scheduled back to back: each chunk starts at
// max(now, anchor) and advances the anchor by its own duration. A late
// chunk starts immediately (audible gap tolerated); overlap never happens.
type Scheduler struct {
	renderer Renderer
	rate     int
	now      func() time.Time
	logger   *zap.Logger

	mu     sync.Mutex
	anchor time.Time // zero = fresh timeline
	active map[uint64]func()
	seq    uint64
}

// NewScheduler creates a scheduler over renderer. A nil clock uses time.Now.
func NewScheduler(renderer Renderer, clock func() time.Time, logger *zap.Logger) *Scheduler {
	if clock == nil {
		clock = time.Now
	}
	return &Scheduler{
		renderer: renderer,
		rate:     pcm.PlaybackRate,
		now:      clock,
		logger:   logger,
		active:   make(map[uint64]func()),
	}
}

// PlayChunk decodes data and schedules it on the timeline. Returns
// immediately after scheduling; rendering progresses asynchronously. An
// undecodable chunk is skipped and the anchor is not advanced, so no false
// gap is reserved for it.
func (s *Scheduler) PlayChunk(data []byte) error {
	samples, err := pcm.Decode(data)
	if err != nil {
		s.logger.Warn("skipping undecodable chunk", zap.Error(err))
		return err
	}
	if len(samples) == 0 {
		return nil
	}
	duration := time.Duration(len(samples)) * time.Second / time.Duration(s.rate)

	s.mu.Lock()
	defer s.mu.Unlock()

	start := s.now()
	if s.anchor.After(start) {
		start = s.anchor
	}

	done, cancel, err := s.renderer.Start(samples, s.rate, start)
	if err != nil {
		s.logger.Error("renderer rejected chunk", zap.Error(err))
		return err
	}

	id := s.seq
	s.seq++
	s.active[id] = cancel
	go s.reap(id, done)

	s.anchor = start.Add(duration)
	return nil
}

// reap removes a handle from the active set once its render completes.
func (s *Scheduler) reap(id uint64, done <-chan struct{}) {
	<-done
	s.mu.Lock()
	delete(s.active, id)
	s.mu.Unlock()
}

// Stop cancels every in-flight render and resets the timeline anchor, so
// the next chunk schedules relative to the current time. Idempotent and
// callable with nothing active.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancels := make([]func(), 0, len(s.active))
	for _, cancel := range s.active {
		cancels = append(cancels, cancel)
	}
	s.active = make(map[uint64]func())
	s.anchor = time.Time{}
	s.mu.Unlock()

	for _, cancel := range cancels {
		cancel()
	}
}

// ActiveCount returns the number of chunks currently scheduled or playing.
func (s *Scheduler) ActiveCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.active)
}
