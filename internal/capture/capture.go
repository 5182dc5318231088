// Package capture pulls fixed-size frames from an input device, encodes
// them as 16 kHz PCM16, and emits one chunk per frame.
package capture

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/mfreitas/voxprep/internal/pcm"
	"go.uber.org/zap"
)

// ErrDeviceUnavailable is returned by Start when the device cannot be
// acquired (missing hardware, denied permission). Reported synchronously,
// never retried.
var ErrDeviceUnavailable = errors.New("capture: device unavailable")

// Device is an audio input source. ReadFrame blocks until the device
// delivers the next frame; that wait is the stream's only suspension point.
type Device interface {
	Open() error
	SampleRate() int
	ReadFrame(dst []float32) (int, error)
	Close() error
}

// Stream reads frames from a device and emits encoded chunks on a
// single-consumer channel. At most one frame is buffered between the device
// and the consumer.
type Stream struct {
	dev          Device
	frameSamples int
	targetRate   int
	logger       *zap.Logger

	chunks chan []byte

	mu      sync.Mutex
	started bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewStream creates a capture stream over dev. Chunks are encoded at
// targetRate from the device's native rate.
func NewStream(dev Device, frameSamples, targetRate int, logger *zap.Logger) *Stream {
	return &Stream{
		dev:          dev,
		frameSamples: frameSamples,
		targetRate:   targetRate,
		logger:       logger,
		chunks:       make(chan []byte),
	}
}

// Chunks returns the stream's output channel. Closed after Stop or when the
// device ends. Intended for a single consumer.
func (s *Stream) Chunks() <-chan []byte {
	return s.chunks
}

// Start acquires the device and launches the capture loop. Device
// acquisition failure is reported synchronously as ErrDeviceUnavailable.
// A stream runs at most once.
func (s *Stream) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return fmt.Errorf("capture: already started")
	}
	if err := s.dev.Open(); err != nil {
		return fmt.Errorf("%w: %v", ErrDeviceUnavailable, err)
	}

	ctx, cancel := context.WithCancel(ctx)
	s.started = true
	s.cancel = cancel
	s.done = make(chan struct{})
	go s.loop(ctx, s.done)
	return nil
}

// Stop disconnects the loop and releases the device. Idempotent; safe after
// a failed or missing Start. Any in-flight partial frame is dropped.
func (s *Stream) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	done := s.done
	s.cancel = nil
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	// Closing the device unblocks a loop waiting on ReadFrame.
	if err := s.dev.Close(); err != nil {
		s.logger.Warn("device close failed", zap.Error(err))
	}
	<-done
}

func (s *Stream) loop(ctx context.Context, done chan struct{}) {
	defer close(done)
	defer close(s.chunks)

	frame := make([]float32, s.frameSamples)
	for {
		n, err := s.dev.ReadFrame(frame)
		if err != nil {
			if ctx.Err() == nil {
				s.logger.Info("device ended", zap.Error(err))
			}
			return
		}
		if ctx.Err() != nil {
			// Stopped mid-frame: drop without flushing.
			return
		}

		data, err := pcm.Encode(frame[:n], s.dev.SampleRate(), s.targetRate)
		if err != nil {
			s.logger.Error("frame encode failed", zap.Error(err))
			return
		}

		select {
		case s.chunks <- data:
		case <-ctx.Done():
			return
		}
	}
}
