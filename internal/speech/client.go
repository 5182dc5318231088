// Package speech is the client for the speech-synthesis collaborator. Given
// text it returns a stream of 24 kHz mono PCM16 chunks, or signals
// no-result on failure. Content generation itself lives behind the service.
package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/mfreitas/voxprep/internal/pcm"
	"go.uber.org/zap"
)

// ErrNoResult is returned when the collaborator cannot produce audio.
var ErrNoResult = errors.New("speech: no result")

// chunkBytes is the size of each PCM chunk read off the response stream:
// 4096 samples at 24 kHz.
const chunkBytes = pcm.FrameSamples * 2

// Config contains speech client configuration.
type Config struct {
	Endpoint   string
	Timeout    time.Duration
	MaxRetries int
}

// Client requests synthesized speech over HTTP. The response body is a raw
// PCM16 LE stream at the fixed 24 kHz playback rate.
type Client struct {
	config     Config
	httpClient *http.Client
	logger     *zap.Logger
}

type synthesizeRequest struct {
	Text       string `json:"text"`
	SampleRate int    `json:"sampleRate"`
}

// NewClient creates a speech client for the given collaborator endpoint.
func NewClient(config Config, logger *zap.Logger) (*Client, error) {
	if config.Endpoint == "" {
		return nil, fmt.Errorf("speech: endpoint cannot be empty")
	}
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}
	if config.MaxRetries < 0 {
		config.MaxRetries = 0
	}
	return &Client{
		config:     config,
		httpClient: &http.Client{Timeout: config.Timeout},
		logger:     logger,
	}, nil
}

// Synthesize posts text to the collaborator and returns a channel of encoded
// PCM16 chunks in stream order. The channel is closed when the stream ends.
// Connection failures are retried up to MaxRetries with backoff; a final
// failure or a non-200 status yields ErrNoResult.
func (c *Client) Synthesize(ctx context.Context, text string) (<-chan []byte, error) {
	body, err := json.Marshal(synthesizeRequest{Text: text, SampleRate: pcm.PlaybackRate})
	if err != nil {
		return nil, fmt.Errorf("speech: encode request: %w", err)
	}

	var resp *http.Response
	for attempt := 0; ; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.Endpoint, bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("speech: build request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err = c.httpClient.Do(req)
		if err == nil {
			break
		}
		if attempt >= c.config.MaxRetries || ctx.Err() != nil {
			c.logger.Warn("speech request failed", zap.Int("attempts", attempt+1), zap.Error(err))
			return nil, ErrNoResult
		}
		select {
		case <-time.After(time.Duration(attempt+1) * 250 * time.Millisecond):
		case <-ctx.Done():
			return nil, ErrNoResult
		}
	}

	if resp.StatusCode != http.StatusOK {
		_ = resp.Body.Close()
		c.logger.Warn("speech request rejected", zap.Int("status", resp.StatusCode))
		return nil, ErrNoResult
	}

	chunks := make(chan []byte)
	go c.stream(ctx, resp.Body, chunks)
	return chunks, nil
}

// stream slices the response body into fixed-size chunks. A trailing odd
// byte is dropped so every chunk holds whole samples. Cancelling ctx
// releases the goroutine and the response body even when the consumer has
// stopped receiving; ctx also aborts an in-flight body read, since the
// request carries it.
func (c *Client) stream(ctx context.Context, body io.ReadCloser, chunks chan<- []byte) {
	defer close(chunks)
	defer func() { _ = body.Close() }()

	for {
		buf := make([]byte, chunkBytes)
		n, err := io.ReadFull(body, buf)
		if n >= 2 {
			select {
			case chunks <- buf[:n-n%2]:
			case <-ctx.Done():
				return
			}
		}
		if err != nil {
			if err != io.EOF && err != io.ErrUnexpectedEOF && ctx.Err() == nil {
				c.logger.Warn("speech stream interrupted", zap.Error(err))
			}
			return
		}
	}
}
