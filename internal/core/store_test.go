package core_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trafficd/internal/core"
	"trafficd/internal/hal"
)

func newTestStore(t *testing.T) (*core.Store, *hal.Memory) {
	t.Helper()
	mem := hal.NewMemory()
	store, err := core.NewStore(core.NewDriver(mem), testSignals())
	require.NoError(t, err)
	return store, mem
}

// assertConsistent checks the core invariant: for every signal, the recorded
// status and the driven output pair agree (green means green-on/red-off,
// anything else means red-on/green-off).
func assertConsistent(t *testing.T, store *core.Store, mem *hal.Memory) {
	t.Helper()
	snaps, _ := store.Snapshot()
	for _, sn := range snaps {
		red, green := pinLevels(t, mem, sn.Cfg)
		if sn.State.Status == core.Green {
			assert.True(t, green, "%s: status green but green output low", sn.ID)
			assert.False(t, red, "%s: status green but red output high", sn.ID)
		} else {
			assert.True(t, red, "%s: status %s but red output low", sn.ID, sn.State.Status)
			assert.False(t, green, "%s: status %s but green output high", sn.ID, sn.State.Status)
		}
	}
}

func TestStoreStartsAllRed(t *testing.T) {
	store, mem := newTestStore(t)

	snaps, emergency := store.Snapshot()
	require.Len(t, snaps, 3)
	assert.False(t, emergency)
	for _, sn := range snaps {
		assert.Equal(t, core.Red, sn.State.Status)
		assert.False(t, sn.State.Override)
	}
	assertConsistent(t, store, mem)
}

func TestStoreSetRaisesOverride(t *testing.T) {
	store, mem := newTestStore(t)

	require.NoError(t, store.Set("NORTH", core.Green))

	state, err := store.Get("NORTH")
	require.NoError(t, err)
	assert.Equal(t, core.Green, state.Status)
	assert.True(t, state.Override)
	assertConsistent(t, store, mem)
}

func TestStoreSetUnknownSignal(t *testing.T) {
	store, _ := newTestStore(t)

	err := store.Set("WEST", core.Green)
	assert.ErrorIs(t, err, core.ErrUnknownSignal)
}

func TestStoreSetDirectionMismatchIsNoOp(t *testing.T) {
	store, mem := newTestStore(t)

	// EAST belongs to east_west, so a north_south command must be skipped.
	applied, err := store.SetDirection("EAST", core.NorthSouth, core.Green)
	require.NoError(t, err)
	assert.False(t, applied)

	state, err := store.Get("EAST")
	require.NoError(t, err)
	assert.Equal(t, core.Red, state.Status)
	assert.False(t, state.Override)
	assertConsistent(t, store, mem)
}

func TestStoreSetDirectionMatchApplies(t *testing.T) {
	store, _ := newTestStore(t)

	applied, err := store.SetDirection("EAST", core.EastWest, core.Green)
	require.NoError(t, err)
	assert.True(t, applied)

	state, _ := store.Get("EAST")
	assert.Equal(t, core.Green, state.Status)
	assert.True(t, state.Override)
}

func TestStoreSetDirectionWildcardApplies(t *testing.T) {
	store, _ := newTestStore(t)

	applied, err := store.SetDirection("EAST", core.AllDirections, core.Green)
	require.NoError(t, err)
	assert.True(t, applied)
}

func TestStoreSetDirectionUnknownSignal(t *testing.T) {
	store, _ := newTestStore(t)

	_, err := store.SetDirection("WEST", core.AllDirections, core.Green)
	assert.ErrorIs(t, err, core.ErrUnknownSignal)
}

func TestStoreSyncDoesNotRaiseOverride(t *testing.T) {
	store, mem := newTestStore(t)

	attempted, applied, err := store.Sync([]core.SyncEntry{
		{ID: "NORTH", Status: core.Green},
		{ID: "GHOST", Status: core.Red},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, attempted, "attempted counts every submitted entry")
	assert.Equal(t, 1, applied, "unknown ids are skipped")

	state, err := store.Get("NORTH")
	require.NoError(t, err)
	assert.Equal(t, core.Green, state.Status)
	assert.False(t, state.Override, "a routine sync must not mark the signal as overridden")
	assertConsistent(t, store, mem)
}

func TestStoreActivateEmergency(t *testing.T) {
	store, mem := newTestStore(t)

	// A prior direct command on NORTH leaves its override flag raised.
	require.NoError(t, store.Set("NORTH", core.Green))

	require.NoError(t, store.ActivateEmergency("SOUTH"))

	snaps, emergency := store.Snapshot()
	assert.True(t, emergency)
	for _, sn := range snaps {
		switch sn.ID {
		case "SOUTH":
			assert.Equal(t, core.Green, sn.State.Status)
			assert.True(t, sn.State.Override)
		case "NORTH":
			assert.Equal(t, core.Red, sn.State.Status)
			assert.True(t, sn.State.Override, "activation leaves other signals' override flags unchanged")
		default:
			assert.Equal(t, core.Red, sn.State.Status)
			assert.False(t, sn.State.Override)
		}
	}
	assertConsistent(t, store, mem)
}

func TestStoreActivateEmergencyUnknownSignal(t *testing.T) {
	store, _ := newTestStore(t)

	err := store.ActivateEmergency("WEST")
	assert.ErrorIs(t, err, core.ErrUnknownSignal)
	assert.False(t, store.EmergencyActive())
}

func TestStoreDeactivateEmergencyIsFullReset(t *testing.T) {
	store, mem := newTestStore(t)
	require.NoError(t, store.Set("NORTH", core.Green))
	require.NoError(t, store.ActivateEmergency("SOUTH"))

	require.NoError(t, store.DeactivateEmergency())

	snaps, emergency := store.Snapshot()
	assert.False(t, emergency)
	for _, sn := range snaps {
		assert.Equal(t, core.Red, sn.State.Status)
		assert.False(t, sn.State.Override)
	}
	assertConsistent(t, store, mem)
}

func TestStoreDriveAllLeavesRecordedStateAlone(t *testing.T) {
	store, mem := newTestStore(t)

	require.NoError(t, store.DriveAll(core.Green))

	snaps, _ := store.Snapshot()
	for _, sn := range snaps {
		assert.Equal(t, core.Red, sn.State.Status, "demonstration drives must not alter recorded state")
		_, green := pinLevels(t, mem, sn.Cfg)
		assert.True(t, green)
	}
}

func TestStoreRunCycleEndsAllRed(t *testing.T) {
	store, mem := newTestStore(t)

	require.NoError(t, store.RunCycle(context.Background(), time.Millisecond))

	snaps, _ := store.Snapshot()
	for _, sn := range snaps {
		assert.Equal(t, core.Red, sn.State.Status)
		red, green := pinLevels(t, mem, sn.Cfg)
		assert.True(t, red)
		assert.False(t, green)
	}
}

func TestStoreRunCycleHonoursCancellation(t *testing.T) {
	store, mem := newTestStore(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, store.RunCycle(ctx, time.Hour))

	// Even a cancelled run finishes with every output red.
	for _, sig := range testSignals() {
		red, green := pinLevels(t, mem, sig)
		assert.True(t, red)
		assert.False(t, green)
	}
}

// TestStoreConcurrentMutations hammers the store with conflicting commands
// and checks that the recorded state never ends up disagreeing with the
// driven outputs: every mutation pairs the memory update and the hardware
// write under one lock acquisition.
func TestStoreConcurrentMutations(t *testing.T) {
	store, mem := newTestStore(t)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				switch (n + j) % 4 {
				case 0:
					_ = store.ActivateEmergency("SOUTH")
				case 1:
					_ = store.DeactivateEmergency()
				case 2:
					_ = store.Set("NORTH", core.Green)
				default:
					_, _, _ = store.Sync([]core.SyncEntry{{ID: "EAST", Status: core.Red}})
				}
			}
		}(i)
	}
	wg.Wait()

	assertConsistent(t, store, mem)
}
