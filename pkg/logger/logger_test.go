package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromContext_AddsContextFields(t *testing.T) {
	var buf bytes.Buffer
	InitWithWriter(&buf, "debug", "json")

	ctx := WithContext(context.Background(), TenantIDKey, "tenant-1")
	ctx = WithContext(ctx, RequestIDKey, "req-1")
	Error(ctx, "search source failed", errors.New("db down"), "source", "scene")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "search source failed", entry["msg"])
	assert.Equal(t, "tenant-1", entry["tenant_id"])
	assert.Equal(t, "req-1", entry["request_id"])
	assert.Equal(t, "db down", entry["error"])
	assert.Equal(t, "scene", entry["source"])
}

func TestParseLevel(t *testing.T) {
	var buf bytes.Buffer
	InitWithWriter(&buf, "warn", "text")

	Info(context.Background(), "hidden")
	assert.Empty(t, buf.String())

	Warn(context.Background(), "shown")
	assert.Contains(t, buf.String(), "shown")
}
