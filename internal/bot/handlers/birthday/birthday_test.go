package birthday

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseBirthdayInput(t *testing.T) {
	t.Parallel()

	date, ok := parseBirthdayInput("1990/06/15")
	require.True(t, ok)
	assert.Equal(t, time.Date(1990, time.June, 15, 0, 0, 0, 0, time.UTC), date)

	date, ok = parseBirthdayInput("6/15")
	require.True(t, ok)
	assert.Equal(t, time.Date(1970, time.June, 15, 0, 0, 0, 0, time.UTC), date)

	_, ok = parseBirthdayInput("1990/02/31")
	assert.False(t, ok, "overflowing day must not normalize into March")

	_, ok = parseBirthdayInput("1990/13/01")
	assert.False(t, ok)

	_, ok = parseBirthdayInput("soon")
	assert.False(t, ok)

	_, ok = parseBirthdayInput("1990")
	assert.False(t, ok)
}
