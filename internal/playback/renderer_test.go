package playback

import (
	"bytes"
	"sync"
	"testing"
	"time"

	"github.com/mfreitas/voxprep/internal/pcm"
)

type safeBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *safeBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *safeBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Len()
}

func TestWriterRendererWritesSamples(t *testing.T) {
	out := &safeBuffer{}
	r := NewWriterRenderer(out)

	samples := make([]float32, 240) // 10ms at 24 kHz
	done, cancel, err := r.Start(samples, pcm.PlaybackRate, time.Now())
	if err != nil {
		t.Fatal(err)
	}
	defer cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("render did not complete")
	}
	if got := out.Len(); got != len(samples)*2 {
		t.Errorf("wrote %d bytes, want %d", got, len(samples)*2)
	}
}

func TestWriterRendererCancelBeforeStart(t *testing.T) {
	out := &safeBuffer{}
	r := NewWriterRenderer(out)

	// Scheduled far in the future, then cancelled: nothing is written.
	done, cancel, err := r.Start(make([]float32, 240), pcm.PlaybackRate, time.Now().Add(time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("cancel did not complete the render")
	}
	if out.Len() != 0 {
		t.Errorf("cancelled render wrote %d bytes, want 0", out.Len())
	}
}
