package lintas

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"iter"

	"github.com/ambiyansyah-risyal/lintas/internal/textdecode"
)

// ContentTypeNDJSON is the media type negotiated for streaming endpoints.
const ContentTypeNDJSON = "application/x-ndjson"

const (
	defaultChunkSize  = 32 * 1024
	maxLoggedLineSize = 256
)

var errStopIteration = errors.New("lintas: iteration stopped")

// LineHandler receives one NDJSON value. Returning a non-nil error stops the
// stream and the error is handed back to the caller unchanged.
type LineHandler func(value json.RawMessage) error

// MalformedLineFunc observes a line that was skipped because it is not JSON.
type MalformedLineFunc func(line []byte, err error)

// StreamStats summarises one read loop.
type StreamStats struct {
	Bytes      int64
	Lines      int
	Dispatched int
	Malformed  int
}

// StreamOption configures ReadNDJSON and Lines.
type StreamOption func(*streamConfig)

type streamConfig struct {
	logger      Logger
	contentType string
	chunkSize   int
	onMalformed MalformedLineFunc
}

// WithStreamLogger sets the logger that reports skipped lines.
func WithStreamLogger(logger Logger) StreamOption {
	return func(c *streamConfig) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithStreamContentType declares the Content-Type of the source so its
// charset parameter drives decoding. UTF-8 is assumed otherwise.
func WithStreamContentType(contentType string) StreamOption {
	return func(c *streamConfig) {
		c.contentType = contentType
	}
}

// WithChunkSize sets the read size of the loop.
func WithChunkSize(n int) StreamOption {
	return func(c *streamConfig) {
		if n > 0 {
			c.chunkSize = n
		}
	}
}

// WithMalformedLineFunc installs an observer for skipped lines.
func WithMalformedLineFunc(fn MalformedLineFunc) StreamOption {
	return func(c *streamConfig) {
		c.onMalformed = fn
	}
}

// ReadNDJSON consumes r until end of stream, invoking fn once per non-blank
// line, in source order. Chunk boundaries are irrelevant: text is decoded
// incrementally and only complete lines are parsed. A line that is not valid
// JSON is skipped; it never ends the stream. A final line without a trailing
// newline is dispatched once at end of stream.
//
// Every skipped line is counted in StreamStats.Malformed and passed, with an
// error wrapping ErrMalformedLine, to the WithMalformedLineFunc observer.
// Those two reports do not depend on logging; the Warn entry only appears
// when a Logger is set with WithStreamLogger (the default discards it).
//
// The loop checks ctx between reads and before every dispatch. A read that is
// already blocked is only interrupted if r itself observes ctx, as an HTTP
// response body does.
func ReadNDJSON(ctx context.Context, r io.Reader, fn LineHandler, opts ...StreamOption) (StreamStats, error) {
	cfg := streamConfig{
		logger:    NopLogger(),
		chunkSize: defaultChunkSize,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	lr := &lineReader{
		src:   textdecode.NewReader(r, cfg.contentType),
		chunk: make([]byte, cfg.chunkSize),
		cfg:   cfg,
	}
	err := lr.run(ctx, fn)
	return lr.stats, err
}

// Lines is the pull form of ReadNDJSON. The sequence is single use and ends
// at end of stream; a terminal error is yielded once as the last element.
// Breaking out of the loop stops reading.
func Lines(ctx context.Context, r io.Reader, opts ...StreamOption) iter.Seq2[json.RawMessage, error] {
	return func(yield func(json.RawMessage, error) bool) {
		_, err := ReadNDJSON(ctx, r, func(v json.RawMessage) error {
			if !yield(v, nil) {
				return errStopIteration
			}
			return nil
		}, opts...)
		if err != nil && !errors.Is(err, errStopIteration) {
			yield(nil, err)
		}
	}
}

// lineReader owns the buffer of one read loop. buf holds at most one
// incomplete line between reads.
type lineReader struct {
	src   io.Reader
	buf   []byte
	chunk []byte
	cfg   streamConfig
	stats StreamStats
}

func (lr *lineReader) run(ctx context.Context, fn LineHandler) error {
	for {
		if ctx.Err() != nil {
			return contextError(ctx)
		}

		n, err := lr.src.Read(lr.chunk)
		if n > 0 {
			lr.stats.Bytes += int64(n)
			lr.buf = append(lr.buf, lr.chunk[:n]...)
			if derr := lr.drain(ctx, fn); derr != nil {
				return derr
			}
		}

		if errors.Is(err, io.EOF) {
			return lr.flush(ctx, fn)
		}
		if err != nil {
			if ctx.Err() != nil {
				return contextError(ctx)
			}
			return &ClientError{Type: ErrorTypeNetwork, Message: "stream interrupted", Cause: err}
		}
	}
}

// drain dispatches every complete line in buf and keeps the remainder.
func (lr *lineReader) drain(ctx context.Context, fn LineHandler) error {
	consumed := 0
	for {
		idx := bytes.IndexByte(lr.buf[consumed:], '\n')
		if idx < 0 {
			break
		}
		line := lr.buf[consumed : consumed+idx]
		consumed += idx + 1
		if err := lr.dispatch(ctx, line, fn); err != nil {
			return err
		}
	}
	if consumed > 0 {
		lr.buf = append(lr.buf[:0], lr.buf[consumed:]...)
	}
	return nil
}

func (lr *lineReader) flush(ctx context.Context, fn LineHandler) error {
	rest := lr.buf
	lr.buf = nil
	return lr.dispatch(ctx, rest, fn)
}

func (lr *lineReader) dispatch(ctx context.Context, raw []byte, fn LineHandler) error {
	line := bytes.TrimSpace(raw)
	if len(line) == 0 {
		return nil
	}
	lr.stats.Lines++

	if !json.Valid(line) {
		lr.stats.Malformed++
		err := fmt.Errorf("%w: invalid JSON at line %d", ErrMalformedLine, lr.stats.Lines)
		lr.cfg.logger.Warn("Skipping malformed NDJSON line", "line", truncate(line, maxLoggedLineSize), "error", err)
		if lr.cfg.onMalformed != nil {
			lr.cfg.onMalformed(line, err)
		}
		return nil
	}

	if ctx.Err() != nil {
		return contextError(ctx)
	}

	value := make(json.RawMessage, len(line))
	copy(value, line)
	lr.stats.Dispatched++
	return fn(value)
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}

// contextError classifies the reason ctx is done.
func contextError(ctx context.Context) *ClientError {
	cause := context.Cause(ctx)
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return &ClientError{Type: ErrorTypeNetwork, Message: "request timed out", Cause: cause}
	}
	return &ClientError{Type: ErrorTypeCanceled, Message: "request canceled", Cause: cause}
}
