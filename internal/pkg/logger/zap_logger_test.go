package logger

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsolatedLoggerReadBack(t *testing.T) {
	path := filepath.Join(t.TempDir(), "realtime.log")
	log := NewIsolatedLogger(path)

	log.Debug("Hub", "below file level", nil)
	log.Info("Hub", "Subscriber attached", map[string]interface{}{"session_id": "s1"})
	log.Warn("Hub", "Subscriber buffer full", map[string]interface{}{"dropped": 1})
	log.Error("Hub", "Relay failed", map[string]interface{}{"error": errors.New("redis down")})
	require.NoError(t, log.Sync())

	all, err := log.GetLogs("", 0, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "Relay failed", all[0].Message)
	assert.Equal(t, "Subscriber attached", all[2].Message)
	assert.Equal(t, "Hub", all[2].Module)
	assert.Equal(t, "s1", all[2].Details["session_id"])

	tests := []struct {
		name   string
		level  string
		limit  int
		offset int
		want   []string
	}{
		{name: "level filter ignores case", level: "warn", want: []string{"Subscriber buffer full"}},
		{name: "upper case level", level: "ERROR", want: []string{"Relay failed"}},
		{name: "limit", limit: 2, want: []string{"Relay failed", "Subscriber buffer full"}},
		{name: "offset", offset: 2, want: []string{"Subscriber attached"}},
		{name: "offset past end", offset: 9, want: []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entries, err := log.GetLogs(tt.level, tt.limit, tt.offset)
			require.NoError(t, err)
			got := make([]string, len(entries))
			for i, e := range entries {
				got[i] = e.Message
			}
			assert.Equal(t, tt.want, got)
		})
	}

	t.Run("lookup by id", func(t *testing.T) {
		entry, err := log.GetLogById(all[1].Id)
		require.NoError(t, err)
		assert.Equal(t, "Subscriber buffer full", entry.Message)

		_, err = log.GetLogById("missing")
		assert.ErrorIs(t, err, ErrLogNotFound)
	})
}

func TestGetLogsWithoutFile(t *testing.T) {
	log := NewIsolatedLogger(filepath.Join(t.TempDir(), "never-written.log"))
	entries, err := log.GetLogs("", 10, 0)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
