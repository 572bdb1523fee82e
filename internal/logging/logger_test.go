package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedClock() time.Time {
	return time.Date(2024, 3, 1, 9, 30, 15, 250*int(time.Millisecond), time.Local)
}

func TestLogger_Format(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf).WithClock(fixedClock)

	l.Info("Data fetched successfully")
	l.Error("API Error: %s", "boom")
	l.Critical("Job failed: %v", "x")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "2024-03-01 09:30:15,250 - INFO - Data fetched successfully", lines[0])
	assert.Equal(t, "2024-03-01 09:30:15,250 - ERROR - API Error: boom", lines[1])
	assert.Equal(t, "2024-03-01 09:30:15,250 - CRITICAL - Job failed: x", lines[2])
}

func TestLogger_NilIsSafe(t *testing.T) {
	var l *Logger
	assert.NotPanics(t, func() { l.Info("ignored") })
}

func TestOpenFile_Appends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tracker.log")
	require.NoError(t, os.WriteFile(path, []byte("existing\n"), 0644))

	l, f, err := OpenFile(path)
	require.NoError(t, err)
	l.Info("appended")
	require.NoError(t, f.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "existing\n"))
	assert.Contains(t, string(data), " - INFO - appended")
}
