package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  slog.Level
	}{
		{name: "debug", input: "debug", want: slog.LevelDebug},
		{name: "大文字", input: "WARN", want: slog.LevelWarn},
		{name: "warning", input: "warning", want: slog.LevelWarn},
		{name: "error", input: " error ", want: slog.LevelError},
		{name: "空文字列", input: "", want: slog.LevelInfo},
		{name: "不明な値", input: "verbose", want: slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLevel(tt.input))
		})
	}
}

func TestNew(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	t.Run("JSON形式", func(t *testing.T) {
		var buf bytes.Buffer
		logger := New(Config{Level: slog.LevelInfo, Format: "json", Output: &buf})

		logger.Debug("hidden")
		logger.Info("clone completed", "url", "https://example.com/a.git")

		var record map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
		assert.Equal(t, "clone completed", record["msg"])
		assert.Equal(t, "https://example.com/a.git", record["url"])
		assert.Same(t, logger, slog.Default())
	})

	t.Run("テキスト形式", func(t *testing.T) {
		var buf bytes.Buffer
		logger := New(Config{Level: slog.LevelDebug, Format: "text", Output: &buf})

		logger.Debug("catalog built", "entries", 3)
		assert.Contains(t, buf.String(), "msg=\"catalog built\"")
		assert.Contains(t, buf.String(), "entries=3")
	})
}
