package keeper_test

import (
	"testing"

	"cosmossdk.io/math"
	"github.com/stretchr/testify/require"

	keepertest "github.com/paw-chain/pawamm/testutil/keeper"
	"github.com/paw-chain/pawamm/x/dex/types"
)

func TestEndBlockerDropsStaleActionRecords(t *testing.T) {
	f := keepertest.NewDexFixture(t, func(p *types.Params) {
		p.MinBlockDelay = 3
	})
	poolID, _ := f.SeedPool(t, denomA, denomB, 30, 10000, 10000)

	trader := keepertest.TestAddr("trader")
	f.Fund(t, poolID, trader, denomA, 100)
	_, err := f.Keeper.Swap(f.Ctx, trader, poolID, math.NewInt(100), true, math.ZeroInt(), trader)
	require.NoError(t, err)
	acted := f.Ctx.BlockHeight()

	// Still able to throttle the next two blocks.
	f.NextBlock(1)
	last, found := f.Keeper.GetLastActionBlock(f.Ctx, poolID, trader)
	require.True(t, found)
	require.Equal(t, acted, last)

	f.NextBlock(1)
	_, found = f.Keeper.GetLastActionBlock(f.Ctx, poolID, trader)
	require.True(t, found)

	cleaned, err := f.Keeper.CleanupStaleActionRecords(f.Ctx)
	require.NoError(t, err)
	require.Equal(t, 1, cleaned)
	_, found = f.Keeper.GetLastActionBlock(f.Ctx, poolID, trader)
	require.False(t, found)
}

func TestEndBlockerEmitsCleanupEvent(t *testing.T) {
	f := keepertest.NewDexFixture(t, func(p *types.Params) {
		p.MinBlockDelay = 0
	})
	poolID, _ := f.SeedPool(t, denomA, denomB, 30, 10000, 10000)

	trader := keepertest.TestAddr("trader")
	f.Fund(t, poolID, trader, denomA, 100)
	_, err := f.Keeper.Swap(f.Ctx, trader, poolID, math.NewInt(100), true, math.ZeroInt(), trader)
	require.NoError(t, err)

	f.ResetEvents()
	require.NoError(t, f.Keeper.EndBlocker(f.Ctx))
	ev, found := findEvent(f.Events(), types.EventTypeActionRecordsCleaned)
	require.True(t, found)
	require.Equal(t, "1", eventAttr(ev, types.AttributeKeyCount))

	// Nothing left for a second pass.
	f.ResetEvents()
	require.NoError(t, f.Keeper.EndBlocker(f.Ctx))
	_, found = findEvent(f.Events(), types.EventTypeActionRecordsCleaned)
	require.False(t, found)
}
