package pcm

import (
	"math"
	"testing"
	"time"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	in := []float32{0, 0.25, -0.25, 0.5, -0.5, 0.99, -0.99}
	data, err := Encode(in, 16000, 16000)
	if err != nil {
		t.Fatal(err)
	}
	out, err := Decode(data)
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != len(in) {
		t.Fatalf("got %d samples, want %d", len(out), len(in))
	}
	for i := range in {
		if diff := math.Abs(float64(out[i] - in[i])); diff > 1.0/32768 {
			t.Errorf("sample %d: got %v, want %v (diff %v)", i, out[i], in[i], diff)
		}
	}
}

func TestEncodeDecimation(t *testing.T) {
	// 48 kHz -> 16 kHz is a ratio of 3: every third sample survives.
	in := make([]float32, 9000)
	for i := range in {
		in[i] = float32(i%100) / 100
	}
	data, err := Encode(in, 48000, 16000)
	if err != nil {
		t.Fatal(err)
	}
	if got := len(data) / 2; got != 3000 {
		t.Fatalf("got %d output samples, want 3000", got)
	}

	out, err := Decode(data)
	if err != nil {
		t.Fatal(err)
	}
	// Output sample i comes from input sample 3i.
	for _, i := range []int{0, 1, 100, 2999} {
		want := in[i*3]
		if diff := math.Abs(float64(out[i] - want)); diff > 1.0/32768 {
			t.Errorf("sample %d: got %v, want %v", i, out[i], want)
		}
	}
}

func TestEncodeClampsOutOfRange(t *testing.T) {
	data, err := Encode([]float32{2.0, -2.0}, 16000, 16000)
	if err != nil {
		t.Fatal(err)
	}
	out, err := Decode(data)
	if err != nil {
		t.Fatal(err)
	}
	if out[0] < 0.999 {
		t.Errorf("positive overdrive: got %v, want ~1", out[0])
	}
	if out[1] > -0.999 {
		t.Errorf("negative overdrive: got %v, want ~-1", out[1])
	}
}

func TestEncodeEmptyInput(t *testing.T) {
	data, err := Encode(nil, 16000, 16000)
	if err != nil {
		t.Fatal(err)
	}
	if len(data) != 0 {
		t.Errorf("got %d bytes, want 0", len(data))
	}
}

func TestEncodeRejectsUpsampling(t *testing.T) {
	_, err := Encode([]float32{0}, 16000, 24000)
	if err != ErrUpsample {
		t.Errorf("got %v, want ErrUpsample", err)
	}
}

func TestDecodeRejectsOddLength(t *testing.T) {
	_, err := Decode([]byte{1, 2, 3})
	if err != ErrCorruptChunk {
		t.Errorf("got %v, want ErrCorruptChunk", err)
	}
}

func TestDuration(t *testing.T) {
	tests := []struct {
		bytes, rate int
		want        time.Duration
	}{
		{48000, 24000, time.Second},
		{32000, 16000, time.Second},
		{2400, 24000, 50 * time.Millisecond},
		{0, 24000, 0},
	}
	for _, tt := range tests {
		if got := Duration(tt.bytes, tt.rate); got != tt.want {
			t.Errorf("Duration(%d, %d) = %v, want %v", tt.bytes, tt.rate, tt.want, got)
		}
	}
}
