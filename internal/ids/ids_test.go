package ids

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFormat(t *testing.T) {
	ts := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	id := New("folder", ts)
	parts := strings.Split(id, "_")
	require.Len(t, parts, 3)
	assert.Equal(t, "folder", parts[0])
	assert.Equal(t, "1704067200000", parts[1])
	assert.Len(t, parts[2], suffixLen)
}

func TestNewDistinctWithinSameMillisecond(t *testing.T) {
	ts := time.Now()
	seen := map[string]bool{}
	for i := 0; i < 5000; i++ {
		id := New("issue", ts)
		require.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
	}
}

