package playback

import (
	"sync"
	"testing"
	"time"

	"github.com/mfreitas/voxprep/internal/pcm"
	"go.uber.org/zap"
)

// fakeRenderer records scheduled starts and lets tests complete or observe
// cancellation of each render.
type fakeRenderer struct {
	mu      sync.Mutex
	starts  []time.Time
	lengths []int
	dones   []chan struct{}
	culled  []bool
}

func (r *fakeRenderer) Start(samples []float32, rate int, at time.Time) (<-chan struct{}, func(), error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	done := make(chan struct{})
	idx := len(r.dones)
	r.starts = append(r.starts, at)
	r.lengths = append(r.lengths, len(samples))
	r.dones = append(r.dones, done)
	r.culled = append(r.culled, false)
	cancel := func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		if !r.culled[idx] {
			r.culled[idx] = true
			close(done)
		}
	}
	return done, cancel, nil
}

func (r *fakeRenderer) startAt(i int) time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.starts[i]
}

func (r *fakeRenderer) cancelled(i int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.culled[i]
}

// chunk builds an encoded chunk of n samples at the playback rate.
func chunk(t *testing.T, n int) []byte {
	t.Helper()
	data, err := pcm.Encode(make([]float32, n), pcm.PlaybackRate, pcm.PlaybackRate)
	if err != nil {
		t.Fatal(err)
	}
	return data
}

func newTestScheduler(t *testing.T) (*Scheduler, *fakeRenderer, *time.Time) {
	t.Helper()
	now := time.Unix(1_700_000_000, 0)
	r := &fakeRenderer{}
	s := NewScheduler(r, func() time.Time { return now }, zap.NewNop())
	return s, r, &now
}

func TestChunksScheduleBackToBack(t *testing.T) {
	s, r, now := newTestScheduler(t)

	// Durations: 24000 samples = 1s, 12000 = 500ms, 6000 = 250ms.
	sizes := []int{24000, 12000, 6000}
	for _, n := range sizes {
		if err := s.PlayChunk(chunk(t, n)); err != nil {
			t.Fatal(err)
		}
	}

	want := []time.Time{
		*now,
		now.Add(time.Second),
		now.Add(1500 * time.Millisecond),
	}
	for i, w := range want {
		if got := r.startAt(i); !got.Equal(w) {
			t.Errorf("chunk %d start = %v, want %v", i, got, w)
		}
	}
}

func TestNoOverlapBetweenChunks(t *testing.T) {
	s, r, _ := newTestScheduler(t)

	for i := 0; i < 5; i++ {
		if err := s.PlayChunk(chunk(t, 2400)); err != nil { // 100ms each
			t.Fatal(err)
		}
	}

	for i := 1; i < 5; i++ {
		prevEnd := r.startAt(i - 1).Add(100 * time.Millisecond)
		if r.startAt(i).Before(prevEnd) {
			t.Errorf("chunk %d starts at %v before chunk %d ends at %v",
				i, r.startAt(i), i-1, prevEnd)
		}
	}
}

func TestLateChunkStartsNowNotInThePast(t *testing.T) {
	s, r, now := newTestScheduler(t)

	if err := s.PlayChunk(chunk(t, 2400)); err != nil { // anchor -> now+100ms
		t.Fatal(err)
	}

	// Arrival well past the computed anchor: gap tolerated, no negative
	// overlap against the stale anchor.
	*now = now.Add(5 * time.Second)
	if err := s.PlayChunk(chunk(t, 2400)); err != nil {
		t.Fatal(err)
	}

	if got := r.startAt(1); !got.Equal(*now) {
		t.Errorf("late chunk start = %v, want arrival time %v", got, *now)
	}
}

func TestCorruptChunkSkippedWithoutAdvancingAnchor(t *testing.T) {
	s, r, now := newTestScheduler(t)

	if err := s.PlayChunk(chunk(t, 24000)); err != nil { // anchor -> now+1s
		t.Fatal(err)
	}
	if err := s.PlayChunk([]byte{1, 2, 3}); err == nil {
		t.Fatal("corrupt chunk accepted")
	}
	if err := s.PlayChunk(chunk(t, 2400)); err != nil {
		t.Fatal(err)
	}

	// The good chunk schedules against the unchanged anchor.
	if got, want := r.startAt(1), now.Add(time.Second); !got.Equal(want) {
		t.Errorf("chunk after corrupt one starts at %v, want %v", got, want)
	}
}

func TestStopCancelsActiveAndResetsTimeline(t *testing.T) {
	s, r, now := newTestScheduler(t)

	for i := 0; i < 3; i++ {
		if err := s.PlayChunk(chunk(t, 24000)); err != nil {
			t.Fatal(err)
		}
	}
	if got := s.ActiveCount(); got != 3 {
		t.Fatalf("ActiveCount = %d, want 3", got)
	}

	s.Stop()

	for i := 0; i < 3; i++ {
		if !r.cancelled(i) {
			t.Errorf("chunk %d not cancelled by Stop", i)
		}
	}

	// Next chunk schedules relative to current time, not the stale anchor
	// (which pointed 3 seconds into the future).
	if err := s.PlayChunk(chunk(t, 2400)); err != nil {
		t.Fatal(err)
	}
	if got := r.startAt(3); !got.Equal(*now) {
		t.Errorf("post-stop chunk start = %v, want %v", got, *now)
	}
}

func TestStopIdempotentOnEmptySet(t *testing.T) {
	s, _, _ := newTestScheduler(t)
	s.Stop()
	s.Stop() // must not panic with nothing active
}

func TestCompletionRemovesHandle(t *testing.T) {
	s, r, _ := newTestScheduler(t)

	if err := s.PlayChunk(chunk(t, 2400)); err != nil {
		t.Fatal(err)
	}

	r.mu.Lock()
	close(r.dones[0])
	r.culled[0] = true
	r.mu.Unlock()

	deadline := time.Now().Add(time.Second)
	for s.ActiveCount() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("handle not reaped after completion")
		}
		time.Sleep(time.Millisecond)
	}
}

func TestEmptyChunkIsNoOp(t *testing.T) {
	s, r, _ := newTestScheduler(t)

	if err := s.PlayChunk(nil); err != nil {
		t.Fatal(err)
	}
	r.mu.Lock()
	n := len(r.starts)
	r.mu.Unlock()
	if n != 0 {
		t.Errorf("empty chunk scheduled %d renders, want 0", n)
	}
}
