package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/decred/slog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDebugLevel(t *testing.T) {
	def, levels, err := parseDebugLevel("warn,TBLE=debug,srvr=trace")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelWarn, def)
	assert.Equal(t, slog.LevelDebug, levels["TBLE"])
	assert.Equal(t, slog.LevelTrace, levels["SRVR"])

	_, _, err = parseDebugLevel("loud")
	assert.Error(t, err)
	_, _, err = parseDebugLevel("TBLE=loud")
	assert.Error(t, err)
}

func TestLogBackendWritesStdoutAndFile(t *testing.T) {
	var buf bytes.Buffer
	logFile := filepath.Join(t.TempDir(), "logs", "test.log")

	lb, err := NewLogBackend(LogConfig{LogFile: logFile, DebugLevel: "info,TBLE=debug", Stdout: &buf})
	require.NoError(t, err)

	tbl := lb.Logger("TBLE")
	srv := lb.Logger("SRVR")
	assert.Same(t, tbl, lb.Logger("TBLE"))

	tbl.Debugf("dealt round %d", 1)
	srv.Debugf("hidden")
	srv.Infof("listening")
	require.NoError(t, lb.Close())

	out := buf.String()
	assert.Contains(t, out, "dealt round 1")
	assert.Contains(t, out, "listening")
	assert.NotContains(t, out, "hidden")

	data, err := os.ReadFile(logFile)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), "listening"))
}
