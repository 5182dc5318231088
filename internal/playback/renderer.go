package playback

import (
	"io"
	"sync"
	"time"

	"github.com/mfreitas/voxprep/internal/pcm"
)

// WriterRenderer renders chunks as raw PCM16 written to an io.Writer at
// their scheduled wall-clock time. It stands in for a hardware output
// device; writes are serialized so chunks land in timeline order.
type WriterRenderer struct {
	mu sync.Mutex
	w  io.Writer
}

// NewWriterRenderer creates a renderer writing raw PCM16 LE to w.
func NewWriterRenderer(w io.Writer) *WriterRenderer {
	return &WriterRenderer{w: w}
}

// Start schedules samples to be written at their start time and "renders"
// for the chunk's real duration before signaling completion.
func (r *WriterRenderer) Start(samples []float32, rate int, at time.Time) (<-chan struct{}, func(), error) {
	data, err := pcm.Encode(samples, rate, rate)
	if err != nil {
		return nil, nil, err
	}

	done := make(chan struct{})
	stop := make(chan struct{})
	var once sync.Once
	cancel := func() { once.Do(func() { close(stop) }) }

	go func() {
		defer close(done)

		if delay := time.Until(at); delay > 0 {
			select {
			case <-time.After(delay):
			case <-stop:
				return
			}
		}

		r.mu.Lock()
		_, werr := r.w.Write(data)
		r.mu.Unlock()
		if werr != nil {
			return
		}

		select {
		case <-time.After(pcm.Duration(len(data), rate)):
		case <-stop:
		}
	}()

	return done, cancel, nil
}
