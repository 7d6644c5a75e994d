package clock

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trebuchet-org/govlock/internal/domain"
	"github.com/trebuchet-org/govlock/internal/domain/config"
)

func TestManual(t *testing.T) {
	c := NewManual("", 10)
	assert.Equal(t, config.ClockModeBlockNumber, c.Mode())
	assert.Equal(t, uint64(10), c.CurrentPoint())

	point, err := c.Mine(5)
	require.NoError(t, err)
	assert.Equal(t, uint64(15), point)
	assert.Equal(t, uint64(15), c.CurrentPoint())

	require.NoError(t, c.AdvanceTo(20))
	assert.Equal(t, uint64(20), c.CurrentPoint())
	require.NoError(t, c.AdvanceTo(20))

	err = c.AdvanceTo(19)
	assert.Error(t, err)
	assert.Equal(t, uint64(20), c.CurrentPoint())

	t.Run("mining past the last point leaves the clock alone", func(t *testing.T) {
		_, err := c.Mine(math.MaxUint64)
		assert.ErrorIs(t, err, domain.ErrPointOverflow)
		assert.Equal(t, uint64(20), c.CurrentPoint())

		require.NoError(t, c.AdvanceTo(math.MaxUint64))
		_, err = c.Mine(1)
		assert.ErrorIs(t, err, domain.ErrPointOverflow)
		assert.Equal(t, uint64(math.MaxUint64), c.CurrentPoint())
	})
}

func TestWall(t *testing.T) {
	w := NewWall(1_000)
	w.now = func() time.Time { return time.Unix(1_250, 0) }
	assert.Equal(t, uint64(250), w.CurrentPoint())
	assert.Equal(t, config.ClockModeTimestamp, w.Mode())

	w.now = func() time.Time { return time.Unix(500, 0) }
	assert.Equal(t, uint64(0), w.CurrentPoint())
}
