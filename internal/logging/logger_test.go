package logging

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"defaults", Config{}, false},
		{"json debug", Config{Level: "debug", Format: "json"}, false},
		{"bad level", Config{Level: "loud"}, true},
		{"bad format", Config{Format: "xml"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, err := New(tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
				assert.Nil(t, l)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, l)
		})
	}
}

func TestZapLogger_Fields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := NewFromCore(core).Named("pipeline").With(String("run_id", "r1"))

	l.Info("stage finished",
		String("stage", "text_extraction"),
		Int("count", 3),
		Bool("ok", true),
		Duration("duration", time.Second),
		Err(errors.New("boom")),
	)

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "pipeline", entry.LoggerName)
	fields := entry.ContextMap()
	assert.Equal(t, "r1", fields["run_id"])
	assert.Equal(t, "text_extraction", fields["stage"])
	assert.Equal(t, int64(3), fields["count"])
	assert.Equal(t, true, fields["ok"])
	assert.Equal(t, "boom", fields["error"])
}

func TestNop(t *testing.T) {
	l := Nop()
	l.Info("ignored", String("k", "v"))
	assert.NoError(t, l.With(Int("n", 1)).Named("x").Sync())
}

func TestParseLevel(t *testing.T) {
	lvl, err := ParseLevel("WARN")
	require.NoError(t, err)
	assert.Equal(t, zapcore.WarnLevel, lvl)
}
