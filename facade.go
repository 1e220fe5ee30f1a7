package lintas

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/url"
	"time"
)

// Get issues a GET with params encoded into the query string.
func (c *Client) Get(ctx context.Context, path string, params url.Values, opts ...RequestOption) (*Result, error) {
	return c.request(ctx, http.MethodGet, path, nil, withParams(params, opts))
}

// Post issues a POST with body encoded as JSON.
func (c *Client) Post(ctx context.Context, path string, body any, opts ...RequestOption) (*Result, error) {
	return c.request(ctx, http.MethodPost, path, body, opts)
}

// Put issues a PUT with body encoded as JSON.
func (c *Client) Put(ctx context.Context, path string, body any, opts ...RequestOption) (*Result, error) {
	return c.request(ctx, http.MethodPut, path, body, opts)
}

// Delete issues a DELETE with params encoded into the query string.
func (c *Client) Delete(ctx context.Context, path string, params url.Values, opts ...RequestOption) (*Result, error) {
	return c.request(ctx, http.MethodDelete, path, nil, withParams(params, opts))
}

// Upload posts form as multipart/form-data.
func (c *Client) Upload(ctx context.Context, path string, form Form, opts ...RequestOption) (*Result, error) {
	cfg := newRequestConfig(opts)
	payload, contentType, err := encodeForm(form)
	if err != nil {
		return nil, &ClientError{Type: ErrorTypeValidation, Message: "failed to encode form", Cause: err, URL: path}
	}
	raw, err := c.do(ctx, requestSpec{
		method:      http.MethodPost,
		path:        path,
		body:        payload,
		contentType: contentType,
		cfg:         cfg,
	})
	if err != nil {
		return nil, err
	}
	return c.normalize(ctx, raw, cfg)
}

// Download fetches a binary resource with GET. The body is never normalized.
// The filename comes from Content-Disposition, falling back to WithFilename.
func (c *Client) Download(ctx context.Context, path string, params url.Values, opts ...RequestOption) (*Download, error) {
	cfg := newRequestConfig(withParams(params, opts))
	raw, err := c.do(ctx, requestSpec{
		method: http.MethodGet,
		path:   path,
		accept: "*/*",
		cfg:    cfg,
	})
	if err != nil {
		return nil, err
	}

	filename := cfg.Filename
	if _, disp, err := mime.ParseMediaType(raw.header.Get("Content-Disposition")); err == nil && disp["filename"] != "" {
		filename = disp["filename"]
	}
	return &Download{
		Data:        raw.body,
		ContentType: raw.header.Get("Content-Type"),
		Filename:    filename,
	}, nil
}

// Stream posts body to an NDJSON endpoint and calls fn once per line as the
// response arrives. path may be absolute; it then bypasses the base URL.
// The call is registered under its request id like any other, so it can be
// pre-empted or canceled by prefix. Only ctx bounds its duration.
//
// A non-nil error from fn stops the stream and is returned unchanged.
// Skipped malformed lines are counted in the returned StreamStats and in
// lintas_stream_lines_total{outcome="malformed"}, and logged at Warn through
// the client's Logger.
func (c *Client) Stream(ctx context.Context, path string, body any, fn LineHandler, opts ...RequestOption) (StreamStats, error) {
	cfg := newRequestConfig(opts)
	payload, err := encodeJSON(body)
	if err != nil {
		return StreamStats{}, &ClientError{Type: ErrorTypeValidation, Message: "failed to encode request body", Cause: err, URL: path}
	}

	h, req, info, err := c.prepare(ctx, requestSpec{
		method:      http.MethodPost,
		path:        path,
		body:        payload,
		contentType: contentTypeJSON,
		accept:      ContentTypeNDJSON,
		cfg:         cfg,
	})
	if err != nil {
		return StreamStats{}, err
	}
	defer c.settle(h)

	if cfg.ShowLoading && c.busy != nil {
		c.busy.Begin(info.id)
		defer c.busy.End(info.id)
	}

	c.metrics.RecordRequestStart(info.method, info.endpoint)
	defer c.metrics.RecordRequestEnd(info.method, info.endpoint)

	if c.debugEnabled(c.debug.LogStreams) {
		c.logger.Debug("Opening stream", "requestID", info.id, "url", info.url)
	}

	if err := c.wait(h); err != nil {
		return StreamStats{}, c.fail(ctx, cfg, info, err)
	}

	resp, err := c.executeMiddleware(c.streamClient, req)
	if err != nil {
		return StreamStats{}, c.fail(ctx, cfg, info, c.transportError(h, err))
	}
	defer resp.Body.Close()

	c.metrics.RecordRequest(info.method, info.endpoint, resp.StatusCode, time.Since(info.start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return StreamStats{}, c.fail(ctx, cfg, info, statusError(resp.StatusCode, errBody))
	}

	stats, err := ReadNDJSON(h.Context(), resp.Body, fn,
		WithStreamLogger(c.logger),
		WithStreamContentType(resp.Header.Get("Content-Type")),
	)
	c.metrics.RecordStream(info.endpoint, stats)

	if c.debugEnabled(c.debug.LogStreams) {
		c.logger.Debug("Stream finished", "requestID", info.id,
			"lines", stats.Dispatched, "malformed", stats.Malformed, "bytes", stats.Bytes, "duration", time.Since(info.start))
	}

	if ce, ok := err.(*ClientError); ok {
		return stats, c.fail(ctx, cfg, info, ce)
	}
	return stats, err
}

func (c *Client) request(ctx context.Context, method, path string, body any, opts []RequestOption) (*Result, error) {
	cfg := newRequestConfig(opts)
	payload, err := encodeJSON(body)
	if err != nil {
		return nil, &ClientError{Type: ErrorTypeValidation, Message: "failed to encode request body", Cause: err, URL: path}
	}
	raw, err := c.do(ctx, requestSpec{
		method:      method,
		path:        path,
		body:        payload,
		contentType: contentTypeJSON,
		cfg:         cfg,
	})
	if err != nil {
		return nil, err
	}
	return c.normalize(ctx, raw, cfg)
}

func (c *Client) normalize(ctx context.Context, raw *rawResponse, cfg *RequestConfig) (*Result, error) {
	mode := ModeEnveloped
	if cfg.ReturnRaw {
		mode = ModeRaw
	}
	data, ce := Normalize(raw.body, mode)
	if ce != nil {
		ce.StatusCode = raw.status
		return nil, c.fail(ctx, cfg, raw.info, ce)
	}
	return &Result{StatusCode: raw.status, Header: raw.header, Data: data}, nil
}

func withParams(params url.Values, opts []RequestOption) []RequestOption {
	if len(params) == 0 {
		return opts
	}
	return append([]RequestOption{WithQuery(params)}, opts...)
}

func encodeJSON(body any) ([]byte, error) {
	switch b := body.(type) {
	case nil:
		return nil, nil
	case []byte:
		return b, nil
	case json.RawMessage:
		return b, nil
	default:
		return json.Marshal(body)
	}
}

func encodeForm(form Form) ([]byte, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range form.Fields {
		if err := w.WriteField(k, v); err != nil {
			return nil, "", err
		}
	}
	for _, f := range form.Files {
		if f.Content == nil {
			return nil, "", fmt.Errorf("file part %q has no content", f.Field)
		}
		part, err := w.CreateFormFile(f.Field, f.Filename)
		if err != nil {
			return nil, "", err
		}
		if _, err := io.Copy(part, f.Content); err != nil {
			return nil, "", err
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}
