package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestZapLogger_Levels(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	log := NewZapLogger(zap.New(core))
	ctx := context.Background()

	log.Debug(ctx, "dbg", "a", 1)
	log.Info(ctx, "inf", "b", 2)
	log.Warn(ctx, "wrn", "c", 3)
	log.Error(ctx, "err", "d", 4)

	entries := logs.AllUntimed()
	require.Len(t, entries, 4)

	want := []struct {
		msg string
		key string
		val int64
	}{
		{"dbg", "a", 1}, {"inf", "b", 2}, {"wrn", "c", 3}, {"err", "d", 4},
	}
	for i, w := range want {
		assert.Equal(t, w.msg, entries[i].Message)
		assert.Equal(t, w.val, entries[i].ContextMap()[w.key])
	}
}

func TestZapLogger_With(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	log := NewZapLogger(zap.New(core)).With("req_id", "abc")

	log.Info(context.Background(), "hello", "k", "v")

	entries := logs.FilterMessage("hello").AllUntimed()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "abc", fields["req_id"])
	assert.Equal(t, "v", fields["k"])
}

func TestNewZapLoggerTo_JSONAndLevel(t *testing.T) {
	var buf bytes.Buffer
	log, err := NewZapLoggerTo(&buf, "warn")
	require.NoError(t, err)

	log.Info(context.Background(), "dropped")
	log.Error(context.Background(), "kept", "user_id", 7)
	require.NoError(t, log.Sync())

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)

	var rec map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &rec))
	assert.Equal(t, "kept", rec["msg"])
	assert.Equal(t, "error", rec["level"])
	assert.EqualValues(t, 7, rec["user_id"])
}

func TestNewZapLoggerTo_BadLevel(t *testing.T) {
	_, err := NewZapLoggerTo(&bytes.Buffer{}, "loud")
	assert.Error(t, err)
}
