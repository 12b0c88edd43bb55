package utils_test

import (
	"testing"
	"time"

	"github.com/attendantbot/attendant/internal/bot/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestZonesInCategory(t *testing.T) {
	t.Parallel()

	europe := utils.ZonesInCategory("Europe")
	require.NotEmpty(t, europe)
	assert.Contains(t, europe, "Europe/Amsterdam")
	assert.IsIncreasing(t, europe)

	for _, zone := range europe {
		_, err := time.LoadLocation(zone)
		assert.NoError(t, err, zone)
	}

	assert.Empty(t, utils.ZonesInCategory("Atlantis"))
}
