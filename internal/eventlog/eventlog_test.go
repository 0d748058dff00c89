package eventlog_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trafficd/internal/eventlog"
)

func TestLogAndTail(t *testing.T) {
	logger := eventlog.New(filepath.Join(t.TempDir(), "events.log"))

	logger.Log("first %s", "event")
	logger.Log("second event")
	logger.Log("third event")

	lines, err := logger.Tail(2)
	require.NoError(t, err)
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "second event")
	assert.Contains(t, lines[1], "third event")
}

func TestTailMissingFileReadsEmpty(t *testing.T) {
	logger := eventlog.New(filepath.Join(t.TempDir(), "never-written.log"))

	lines, err := logger.Tail(10)
	require.NoError(t, err)
	assert.Empty(t, lines)
}
