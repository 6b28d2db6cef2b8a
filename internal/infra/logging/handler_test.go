package logging_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	context_ "github.com/mkrupp/homecase-accounts/internal/infra/context"

	. "github.com/mkrupp/homecase-accounts/internal/infra/logging"
)

var ansiEscape = regexp.MustCompile("\x1b\\[[0-9;]*m")

// plain drops the color codes the console handler writes.
func plain(s string) string {
	return ansiEscape.ReplaceAllString(s, "")
}

func TestTracingHandler(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	log := slog.New(NewTracingHandler(slog.NewJSONHandler(&buf, nil)))

	ctx := context_.WithTraceID(context.Background(), "trace-1")
	ctx = context_.WithUsername(ctx, "alice")

	log.InfoContext(ctx, "hello")

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))

	assert.Equal(t, map[string]any{"id": "trace-1"}, record["trace"])
	assert.Equal(t, map[string]any{"username": "alice"}, record["session"])
}

func TestTracingHandler_NoContextValues(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	log := slog.New(NewTracingHandler(slog.NewJSONHandler(&buf, nil)))
	log.InfoContext(context.Background(), "hello")

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))

	assert.NotContains(t, record, "trace")
	assert.NotContains(t, record, "session")
}

func TestConsoleHandler_PkgLevels(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		logger    string
		pkgLevels map[string]slog.Level
		wantLine  bool
	}{
		{
			name:     "no filter",
			logger:   "svc.accountsvc.account_service",
			wantLine: true,
		},
		{
			name:      "exact package raised above debug",
			logger:    "svc.accountsvc.account_service",
			pkgLevels: map[string]slog.Level{"svc.accountsvc.account_service": slog.LevelWarn},
			wantLine:  false,
		},
		{
			name:      "parent package raised above debug",
			logger:    "svc.accountsvc.account_service",
			pkgLevels: map[string]slog.Level{"svc": slog.LevelError},
			wantLine:  false,
		},
		{
			name:      "unrelated package",
			logger:    "repo.session",
			pkgLevels: map[string]slog.Level{"svc": slog.LevelError},
			wantLine:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer

			handler := &ConsoleHandler{
				Output:    &buf,
				Level:     slog.LevelDebug,
				PkgLevels: tt.pkgLevels,
			}

			slog.New(handler).With("logger", tt.logger).Debug("account registered", "user", "alice")

			if tt.wantLine {
				assert.Contains(t, buf.String(), "account registered")
				assert.Contains(t, buf.String(), "user=")
			} else {
				assert.Empty(t, buf.String())
			}
		})
	}
}

func TestGetLogger_Filter(t *testing.T) {
	var buf bytes.Buffer

	require.NoError(t, Configure(context.Background(), LoggerConfig{
		Level:        "info",
		Filter:       "svc.accountsvc:debug, repo:error",
		OutputHandle: &buf,
	}, "accounts.test"))

	t.Cleanup(func() {
		_ = Configure(context.Background(), LoggerConfig{Output: "discard"}, "")
	})

	GetLogger("svc.accountsvc.http_transport").Debug("lowered by filter")
	GetLogger("repo.session").Warn("raised by filter")
	GetLogger("infra.http").Debug("below global level")
	GetLogger("infra.http").Info("at global level")

	out := plain(buf.String())

	assert.Contains(t, out, "lowered by filter")
	assert.Contains(t, out, "logger=svc.accountsvc.http_transport")
	assert.Contains(t, out, "app=accounts.test")
	assert.Contains(t, out, "at global level")
	assert.NotContains(t, out, "raised by filter")
	assert.NotContains(t, out, "below global level")
	assert.NotContains(t, out, "logging configured")
}

func TestConsoleHandler_Groups(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	log := slog.New(&ConsoleHandler{Output: &buf, Level: slog.LevelInfo})
	log.With("a", 1).WithGroup("req").With("b", 2).Info("grouped", slog.Group("user", "name", "alice"))

	out := plain(buf.String())

	assert.Contains(t, out, " a=1")
	assert.Contains(t, out, " req.b=2")
	assert.Contains(t, out, " req.user.name=alice")
}
