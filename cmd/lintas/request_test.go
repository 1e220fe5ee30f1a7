package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/ambiyansyah-risyal/lintas"
)

func TestParseHeaders(t *testing.T) {
	headers, err := parseHeaders([]string{"X-Tenant: north", "Accept-Language:id"})
	require.NoError(t, err)
	assert.Equal(t, "north", headers["X-Tenant"])
	assert.Equal(t, "id", headers["Accept-Language"])
	assert.Equal(t, lintas.UserAgent(), headers["User-Agent"])

	_, err = parseHeaders([]string{"no-colon"})
	assert.Error(t, err)
	_, err = parseHeaders([]string{": value"})
	assert.Error(t, err)
}

func TestParseQuery(t *testing.T) {
	params, err := parseQuery([]string{"region=north", "tag=a", "tag=b", "empty="})
	require.NoError(t, err)
	assert.Equal(t, "north", params.Get("region"))
	assert.Equal(t, []string{"a", "b"}, params["tag"])
	assert.True(t, params.Has("empty"))

	_, err = parseQuery([]string{"=x"})
	assert.Error(t, err)
}

func TestReadBody(t *testing.T) {
	body, err := readBody("")
	require.NoError(t, err)
	assert.JSONEq(t, `{}`, string(body))

	body, err = readBody(`{"scenario":"leak"}`)
	require.NoError(t, err)
	assert.JSONEq(t, `{"scenario":"leak"}`, string(body))

	path := filepath.Join(t.TempDir(), "body.json")
	require.NoError(t, os.WriteFile(path, []byte(`[1,2]`), 0o600))
	body, err = readBody("@" + path)
	require.NoError(t, err)
	assert.JSONEq(t, `[1,2]`, string(body))

	_, err = readBody("{broken")
	assert.Error(t, err)
	_, err = readBody("@" + filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeJSON(&buf, json.RawMessage(`{"a":1}`)))
	assert.Equal(t, "{\n  \"a\": 1\n}\n", buf.String())

	buf.Reset()
	require.NoError(t, writeJSON(&buf, json.RawMessage(`plain text`)))
	assert.Equal(t, "plain text\n", buf.String())

	buf.Reset()
	require.NoError(t, writeJSON(&buf, nil))
	assert.Empty(t, buf.String())
}

func TestReleaseCredentialsLogsCloseError(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	logger := lintas.NewZapLogger(zap.New(core))

	releaseCredentials(logger, func() error { return errors.New("redis: client is closed") })
	entries := logs.FilterMessage("Failed to release credentials").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "redis: client is closed", entries[0].ContextMap()["error"])

	releaseCredentials(logger, func() error { return nil })
	assert.Equal(t, 1, logs.Len())
}
