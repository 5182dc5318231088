package pcm

import (
	"errors"
	"time"
)

// Fixed rates for the voxprep audio contract. Capture runs at 16 kHz mono,
// playback (synthesized speech) at 24 kHz mono. Neither is negotiated.
const (
	CaptureRate  = 16000
	PlaybackRate = 24000
	FrameSamples = 4096
)

// ErrUpsample is returned when the target rate exceeds the source rate.
// The decimating converter only drops samples; it never interpolates.
var ErrUpsample = errors.New("pcm: upsampling not supported")

// ErrCorruptChunk is returned when encoded data is not whole 16-bit samples.
var ErrCorruptChunk = errors.New("pcm: corrupt chunk")

// Encode converts float samples in [-1, 1] to little-endian PCM16 bytes,
// decimating from sourceRate to targetRate by index selection (no
// band-limiting filter; voice quality only). Empty input yields empty output.
func Encode(samples []float32, sourceRate, targetRate int) ([]byte, error) {
	if targetRate > sourceRate {
		return nil, ErrUpsample
	}
	if len(samples) == 0 {
		return []byte{}, nil
	}

	ratio := float64(sourceRate) / float64(targetRate)
	outLen := int(float64(len(samples)) / ratio)
	out := make([]byte, outLen*2)

	for i := 0; i < outLen; i++ {
		s := samples[int(float64(i)*ratio)]
		if s > 1 {
			s = 1
		} else if s < -1 {
			s = -1
		}
		var v int16
		if s < 0 {
			v = int16(s * 32768)
		} else {
			v = int16(s * 32767)
		}
		out[i*2] = byte(v)
		out[i*2+1] = byte(v >> 8)
	}
	return out, nil
}

// Decode converts little-endian PCM16 bytes back to float samples in [-1, 1].
func Decode(data []byte) ([]float32, error) {
	if len(data)%2 != 0 {
		return nil, ErrCorruptChunk
	}
	samples := make([]float32, len(data)/2)
	for i := range samples {
		v := int16(data[i*2]) | int16(data[i*2+1])<<8
		samples[i] = float32(v) / 32768
	}
	return samples, nil
}

// Duration returns the render time of byteLen bytes of PCM16 at rate.
func Duration(byteLen, rate int) time.Duration {
	samples := byteLen / 2
	return time.Duration(samples) * time.Second / time.Duration(rate)
}
