package feed

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCursorRoundTrip(t *testing.T) {
	orig := time.Date(2025, 6, 1, 12, 30, 45, 123456000, time.UTC)

	parsed, err := ParseCursor(FormatCursor(orig))
	require.NoError(t, err)
	assert.True(t, parsed.Equal(orig))
}

func TestParseCursorRejectsGarbage(t *testing.T) {
	for _, raw := range []string{"not-a-time", "12345", "2025-13-45"} {
		_, err := ParseCursor(raw)
		assert.Error(t, err, raw)
	}
}

func TestBeforeBoundary(t *testing.T) {
	boundary := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	// Strictly older than boundary minus the epsilon.
	assert.True(t, beforeBoundary(boundary.Add(-time.Second), boundary))
	assert.True(t, beforeBoundary(boundary.Add(-2*time.Microsecond), boundary))

	// The boundary itself and anything within the epsilon is excluded,
	// so a tie at the page edge is never re-emitted.
	assert.False(t, beforeBoundary(boundary, boundary))
	assert.False(t, beforeBoundary(boundary.Add(-time.Microsecond), boundary))
	assert.False(t, beforeBoundary(boundary.Add(time.Second), boundary))
}
