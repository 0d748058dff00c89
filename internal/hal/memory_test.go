package hal_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trafficd/internal/hal"
)

func TestMemoryClaimAndWrite(t *testing.T) {
	mem := hal.NewMemory()

	require.NoError(t, mem.ClaimOutput(17))
	level, claimed := mem.Level(17)
	assert.True(t, claimed)
	assert.False(t, level, "claimed pins start low")

	require.NoError(t, mem.Write(17, true))
	level, _ = mem.Level(17)
	assert.True(t, level)
}

func TestMemoryWriteUnclaimedPin(t *testing.T) {
	mem := hal.NewMemory()

	err := mem.Write(4, true)
	assert.Error(t, err)

	_, claimed := mem.Level(4)
	assert.False(t, claimed)
}

func TestMemoryClosedChipRejectsOperations(t *testing.T) {
	mem := hal.NewMemory()
	require.NoError(t, mem.ClaimOutput(17))
	require.NoError(t, mem.Close())

	assert.True(t, mem.Closed())
	assert.Error(t, mem.Write(17, true))
	assert.Error(t, mem.ClaimOutput(18))
}
