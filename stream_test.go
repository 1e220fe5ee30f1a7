package lintas

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/transform"
)

// chunkReader returns its input in the given chunk sizes, then the rest.
type chunkReader struct {
	data   []byte
	chunks []int
}

func (r *chunkReader) Read(p []byte) (int, error) {
	if len(r.data) == 0 {
		return 0, io.EOF
	}
	n := len(r.data)
	if len(r.chunks) > 0 {
		n = min(r.chunks[0], n)
		r.chunks = r.chunks[1:]
	}
	n = copy(p, r.data[:n])
	r.data = r.data[n:]
	return n, nil
}

func collect(t *testing.T, r io.Reader, opts ...StreamOption) ([]string, StreamStats, error) {
	t.Helper()
	var got []string
	stats, err := ReadNDJSON(context.Background(), r, func(v json.RawMessage) error {
		got = append(got, string(v))
		return nil
	}, opts...)
	return got, stats, err
}

func TestReadNDJSONBasic(t *testing.T) {
	input := "{\"a\":1}\n{\"b\":2}\n\n  {\"c\":3}  \n"
	got, stats, err := collect(t, strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, []string{`{"a":1}`, `{"b":2}`, `{"c":3}`}, got)
	assert.Equal(t, 3, stats.Dispatched)
	assert.Equal(t, 0, stats.Malformed)
	assert.Equal(t, int64(len(input)), stats.Bytes)
}

func TestReadNDJSONEveryChunkSplit(t *testing.T) {
	input := "{\"text\":\"héllo\"}\n{\"n\":[1,2,3]}\n{\"done\":true}"
	want := []string{`{"text":"héllo"}`, `{"n":[1,2,3]}`, `{"done":true}`}

	for split := 1; split < len(input); split++ {
		r := &chunkReader{data: []byte(input), chunks: []int{split}}
		got, _, err := collect(t, r)
		require.NoError(t, err, "split at %d", split)
		assert.Equal(t, want, got, "split at %d", split)
	}
}

func TestReadNDJSONOneByteReads(t *testing.T) {
	input := "{\"text\":\"数据\"}\n{\"emoji\":\"🚀\"}\n"
	got, _, err := collect(t, iotest.OneByteReader(strings.NewReader(input)), WithChunkSize(1))
	require.NoError(t, err)
	assert.Equal(t, []string{`{"text":"数据"}`, `{"emoji":"🚀"}`}, got)
}

func TestReadNDJSONSkipsMalformedLines(t *testing.T) {
	var skipped []string
	input := "{\"a\":1}\n{broken\n{\"b\":2}\n"
	got, stats, err := collect(t, strings.NewReader(input), WithMalformedLineFunc(func(line []byte, err error) {
		skipped = append(skipped, string(line))
		assert.ErrorIs(t, err, ErrMalformedLine)
	}))
	require.NoError(t, err)
	assert.Equal(t, []string{`{"a":1}`, `{"b":2}`}, got)
	assert.Equal(t, []string{"{broken"}, skipped)
	assert.Equal(t, 1, stats.Malformed)
	assert.Equal(t, 3, stats.Lines)
}

func TestReadNDJSONFinalLineWithoutNewline(t *testing.T) {
	got, _, err := collect(t, strings.NewReader("{\"a\":1}\n{\"last\":true}"))
	require.NoError(t, err)
	assert.Equal(t, []string{`{"a":1}`, `{"last":true}`}, got)

	got, _, err = collect(t, strings.NewReader("{\"last\":"))
	require.NoError(t, err)
	assert.Empty(t, got, "an incomplete final line is malformed and skipped")
}

func TestReadNDJSONEmptyStream(t *testing.T) {
	got, stats, err := collect(t, strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Equal(t, StreamStats{}, stats)
}

func TestReadNDJSONHandlerErrorStops(t *testing.T) {
	stop := errors.New("enough")
	calls := 0
	_, err := ReadNDJSON(context.Background(), strings.NewReader("1\n2\n3\n"), func(json.RawMessage) error {
		calls++
		if calls == 2 {
			return stop
		}
		return nil
	})
	assert.Same(t, stop, err)
	assert.Equal(t, 2, calls)
}

func TestReadNDJSONContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var got []string
	_, err := ReadNDJSON(ctx, strings.NewReader("{\"a\":1}\n{\"b\":2}\n{\"c\":3}\n"), func(v json.RawMessage) error {
		got = append(got, string(v))
		cancel()
		return nil
	})

	var ce *ClientError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, ErrorTypeCanceled, ce.Type)
	assert.True(t, IsCanceled(err))
	assert.Equal(t, []string{`{"a":1}`}, got, "no line is dispatched after cancellation")
}

func TestReadNDJSONCanceledBeforeStart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	got, _, err := func() ([]string, StreamStats, error) {
		var got []string
		stats, err := ReadNDJSON(ctx, strings.NewReader("{}\n"), func(v json.RawMessage) error {
			got = append(got, string(v))
			return nil
		})
		return got, stats, err
	}()
	assert.True(t, IsCanceled(err))
	assert.Empty(t, got)
}

func TestReadNDJSONReadError(t *testing.T) {
	boom := errors.New("connection reset")
	r := io.MultiReader(strings.NewReader("{\"a\":1}\n{\"par"), iotest.ErrReader(boom))
	got, _, err := collect(t, r)

	var ce *ClientError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, ErrorTypeNetwork, ce.Type)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []string{`{"a":1}`}, got)
}

func TestReadNDJSONDecodesCharset(t *testing.T) {
	var buf bytes.Buffer
	w := transform.NewWriter(&buf, simplifiedchinese.GBK.NewEncoder())
	_, err := w.Write([]byte("{\"msg\":\"你好\"}\n"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	got, _, err := collect(t, iotest.HalfReader(&buf), WithStreamContentType("application/x-ndjson; charset=gbk"))
	require.NoError(t, err)
	assert.Equal(t, []string{`{"msg":"你好"}`}, got)
}

func TestReadNDJSONStripsByteOrderMark(t *testing.T) {
	got, stats, err := collect(t, iotest.OneByteReader(strings.NewReader("\ufeff{\"a\":1}\n{\"b\":2}\n")))
	require.NoError(t, err)
	assert.Equal(t, []string{`{"a":1}`, `{"b":2}`}, got)
	assert.Zero(t, stats.Malformed)
}

func TestReadNDJSONReportsMalformedWithoutLogger(t *testing.T) {
	var seen []string
	var seenErr error
	stats, err := ReadNDJSON(context.Background(), strings.NewReader("{\"a\":1}\n{oops\n"),
		func(json.RawMessage) error { return nil },
		WithMalformedLineFunc(func(line []byte, err error) {
			seen = append(seen, string(line))
			seenErr = err
		}))
	require.NoError(t, err)
	assert.Equal(t, []string{"{oops"}, seen)
	assert.ErrorIs(t, seenErr, ErrMalformedLine)
	assert.Equal(t, 1, stats.Malformed)
	assert.Equal(t, 1, stats.Dispatched)
}

func TestLines(t *testing.T) {
	var got []string
	for v, err := range Lines(context.Background(), strings.NewReader("1\n2\n3\n")) {
		require.NoError(t, err)
		got = append(got, string(v))
		if len(got) == 2 {
			break
		}
	}
	assert.Equal(t, []string{"1", "2"}, got)
}

func TestLinesYieldsTerminalError(t *testing.T) {
	boom := errors.New("boom")
	var values int
	var last error
	for v, err := range Lines(context.Background(), io.MultiReader(strings.NewReader("1\n"), iotest.ErrReader(boom))) {
		if err != nil {
			last = err
			continue
		}
		assert.Equal(t, "1", string(v))
		values++
	}
	assert.Equal(t, 1, values)
	assert.ErrorIs(t, last, boom)
}
