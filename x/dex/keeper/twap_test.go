package keeper_test

import (
	"testing"

	"cosmossdk.io/math"
	"github.com/stretchr/testify/require"

	keepertest "github.com/paw-chain/pawamm/testutil/keeper"
	"github.com/paw-chain/pawamm/x/dex/types"
)

func TestTwap(t *testing.T) {
	f := keepertest.NewDexFixture(t)
	t0 := f.Ctx.BlockTime().Unix()
	poolID, _ := f.SeedPool(t, denomA, denomB, 30, 10000, 10000)
	t1 := f.Ctx.BlockTime().Unix()
	require.Equal(t, t0+5, t1)

	trader := keepertest.TestAddr("trader")
	f.Fund(t, poolID, trader, denomA, 100)
	_, err := f.Keeper.Swap(f.Ctx, trader, poolID, math.NewInt(100), true, math.ZeroInt(), trader)
	require.NoError(t, err)

	// The swap settles 5 seconds at the opening price of 1.
	pool := mustPool(t, f, poolID)
	require.True(t, math.LegacyNewDec(5).Equal(pool.PriceCumulativeA), pool.PriceCumulativeA.String())
	require.True(t, math.LegacyNewDec(5).Equal(pool.PriceCumulativeB), pool.PriceCumulativeB.String())
	require.Equal(t, t1, pool.LastUpdate)
	spotA, spotB, ok := types.SpotPrices(math.NewInt(10100), math.NewInt(9902))
	require.True(t, ok)

	f.NextBlock(2)
	t2 := f.Ctx.BlockTime().Unix()
	require.Equal(t, t1+10, t2)

	twapA, twapB, err := f.Keeper.GetTwap(f.Ctx, poolID, t0, t1)
	require.NoError(t, err)
	require.True(t, math.LegacyOneDec().Equal(twapA), twapA.String())
	require.True(t, math.LegacyOneDec().Equal(twapB), twapB.String())

	twapA, twapB, err = f.Keeper.GetTwap(f.Ctx, poolID, t1, t2)
	require.NoError(t, err)
	require.Equal(t, spotA.MulInt64(10).QuoInt64(10).String(), twapA.String())
	require.Equal(t, spotB.MulInt64(10).QuoInt64(10).String(), twapB.String())

	// Across the swap the average weights both prices by their duration.
	twapA, _, err = f.Keeper.GetTwap(f.Ctx, poolID, t0, t2)
	require.NoError(t, err)
	expected := math.LegacyNewDec(5).Add(spotA.MulInt64(10)).Sub(math.LegacyZeroDec()).QuoInt64(15)
	require.Equal(t, expected.String(), twapA.String())
	require.True(t, twapA.LT(math.LegacyOneDec()))
	require.True(t, twapA.GT(spotA))

	// Accumulators read at the current time include the open interval.
	cumA, _, err := f.Keeper.GetCumulativePrices(f.Ctx, poolID)
	require.NoError(t, err)
	require.Equal(t, math.LegacyNewDec(5).Add(spotA.MulInt64(10)).String(), cumA.String())
	require.Equal(t, t1, mustPool(t, f, poolID).LastUpdate)
}

func TestTwapWindowValidation(t *testing.T) {
	f := keepertest.NewDexFixture(t)
	t0 := f.Ctx.BlockTime().Unix()
	poolID, _ := f.SeedPool(t, denomA, denomB, 30, 10000, 10000)
	now := f.Ctx.BlockTime().Unix()

	tests := []struct {
		name       string
		poolID     string
		start, end int64
	}{
		{"empty window", poolID, t0, t0},
		{"inverted window", poolID, now, t0},
		{"ends in the future", poolID, t0, now + 1},
		{"starts before any observation", poolID, t0 - 10, now},
		{"unknown pool", types.PoolID("ujuno", "uusdc"), t0, now},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := f.Keeper.GetTwap(f.Ctx, tc.poolID, tc.start, tc.end)
			requireKind(t, err, "ValidationError")
		})
	}

	twapA, _, err := f.Keeper.GetTwap(f.Ctx, poolID, t0, now)
	require.NoError(t, err)
	require.True(t, math.LegacyOneDec().Equal(twapA))
}

func TestCumulativePricesAreMonotonic(t *testing.T) {
	f := keepertest.NewDexFixture(t)
	poolID, _ := f.SeedPool(t, denomA, denomB, 30, 10000, 40000)

	prevA, prevB, err := f.Keeper.GetCumulativePrices(f.Ctx, poolID)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		trader := keepertest.TestAddr("trader")
		f.Fund(t, poolID, trader, denomA, 100)
		_, err := f.Keeper.Swap(f.Ctx, trader, poolID, math.NewInt(100), true, math.ZeroInt(), trader)
		require.NoError(t, err)
		f.NextBlock(1)

		cumA, cumB, err := f.Keeper.GetCumulativePrices(f.Ctx, poolID)
		require.NoError(t, err)
		require.True(t, cumA.GT(prevA))
		require.True(t, cumB.GT(prevB))
		prevA, prevB = cumA, cumB
	}
}

func TestObservationPruning(t *testing.T) {
	f := keepertest.NewDexFixture(t, func(p *types.Params) {
		p.OracleRetentionSeconds = 10
	})
	t0 := f.Ctx.BlockTime().Unix()
	poolID, _ := f.SeedPool(t, denomA, denomB, 30, 100000, 100000)

	trader := keepertest.TestAddr("trader")
	f.Fund(t, poolID, trader, denomA, 3000)
	swap := func() {
		t.Helper()
		_, err := f.Keeper.Swap(f.Ctx, trader, poolID, math.NewInt(1000), true, math.ZeroInt(), trader)
		require.NoError(t, err)
	}

	swap() // t0+5
	f.NextBlock(2)
	swap() // t0+15
	f.NextBlock(2)
	swap() // t0+25, prunes everything older than t0+15 but the anchor at t0+5

	observations, err := f.Keeper.GetPriceObservations(f.Ctx, poolID)
	require.NoError(t, err)
	timestamps := make([]int64, 0, len(observations))
	for _, obs := range observations {
		timestamps = append(timestamps, obs.Timestamp)
	}
	require.Equal(t, []int64{t0 + 5, t0 + 15, t0 + 25}, timestamps)

	_, _, err = f.Keeper.GetTwap(f.Ctx, poolID, t0, t0+25)
	requireKind(t, err, "ValidationError")
	_, _, err = f.Keeper.GetTwap(f.Ctx, poolID, t0+15, t0+25)
	require.NoError(t, err)

	require.Equal(t, 2, f.Keeper.PruneObservations(f.Ctx, poolID, t0+26))
	require.Equal(t, 0, f.Keeper.PruneObservations(f.Ctx, poolID, t0+26))
	observations, err = f.Keeper.GetPriceObservations(f.Ctx, poolID)
	require.NoError(t, err)
	require.Len(t, observations, 1)
	require.Equal(t, t0+25, observations[0].Timestamp)
}
