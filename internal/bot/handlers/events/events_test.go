package events

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	t.Parallel()

	date, ok := parseDate("2026/12/24")
	require.True(t, ok)
	assert.Equal(t, time.Date(2026, time.December, 24, 0, 0, 0, 0, time.UTC), date)

	_, ok = parseDate("2026/02/31")
	assert.False(t, ok)

	_, ok = parseDate("12/24")
	assert.False(t, ok)

	_, ok = parseDate("tomorrow")
	assert.False(t, ok)
}

func TestParseClock(t *testing.T) {
	t.Parallel()

	hour, minute, ok := parseClock("19:30")
	require.True(t, ok)
	assert.Equal(t, 19, hour)
	assert.Equal(t, 30, minute)

	_, _, ok = parseClock("24:00")
	assert.False(t, ok)

	_, _, ok = parseClock("19.30")
	assert.False(t, ok)

	_, _, ok = parseClock("19:61")
	assert.False(t, ok)
}
