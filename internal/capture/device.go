package capture

import (
	"errors"
	"io"
	"time"
)

// ReaderDevice adapts an io.Reader of raw PCM16 LE mono audio into a
// Device. When paced, it delivers frames at the natural rate of the stream,
// mimicking hardware frame cadence.
type ReaderDevice struct {
	r     io.Reader
	rate  int
	paced bool
}

// NewReaderDevice creates a device over r at the given sample rate.
func NewReaderDevice(r io.Reader, rate int, paced bool) *ReaderDevice {
	return &ReaderDevice{r: r, rate: rate, paced: paced}
}

// Open validates the source. A nil reader behaves like missing hardware.
func (d *ReaderDevice) Open() error {
	if d.r == nil {
		return errors.New("no input source")
	}
	return nil
}

// SampleRate returns the device's native rate.
func (d *ReaderDevice) SampleRate() int {
	return d.rate
}

// ReadFrame fills dst with the next frame of samples. Returns io.EOF when
// the source is exhausted; a short final frame is delivered before EOF.
func (d *ReaderDevice) ReadFrame(dst []float32) (int, error) {
	buf := make([]byte, len(dst)*2)
	n, err := io.ReadFull(d.r, buf)
	if err != nil && err != io.ErrUnexpectedEOF {
		return 0, err
	}
	samples := n / 2
	for i := 0; i < samples; i++ {
		v := int16(buf[i*2]) | int16(buf[i*2+1])<<8
		dst[i] = float32(v) / 32768
	}
	if d.paced && samples > 0 {
		time.Sleep(time.Duration(samples) * time.Second / time.Duration(d.rate))
	}
	return samples, nil
}

// Close releases the underlying reader if it is closable.
func (d *ReaderDevice) Close() error {
	if c, ok := d.r.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
