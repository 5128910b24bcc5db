package keeper_test

import (
	"testing"

	"cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"
	"github.com/stretchr/testify/require"

	keepertest "github.com/paw-chain/pawamm/testutil/keeper"
	"github.com/paw-chain/pawamm/x/dex/keeper"
	"github.com/paw-chain/pawamm/x/dex/types"
)

const (
	denomA = "uatom"
	denomB = "uosmo"
)

// requireKind asserts that err carries the given dex error kind.
func requireKind(t *testing.T, err error, kind string) {
	t.Helper()
	require.Error(t, err)
	require.Equal(t, kind, types.ErrorKind(err), "unexpected error: %v", err)
}

func findEvent(events sdk.Events, eventType string) (sdk.Event, bool) {
	for _, ev := range events {
		if ev.Type == eventType {
			return ev, true
		}
	}
	return sdk.Event{}, false
}

func eventAttr(ev sdk.Event, key string) string {
	for _, attr := range ev.Attributes {
		if attr.Key == key {
			return attr.Value
		}
	}
	return ""
}

func mustPool(t *testing.T, f *keepertest.DexFixture, poolID string) types.Pool {
	t.Helper()
	pool, err := f.Keeper.GetPool(f.Ctx, poolID)
	require.NoError(t, err)
	return *pool
}

func TestPipelineOrder(t *testing.T) {
	k, _ := keepertest.DexKeeper(t)
	require.Equal(t, []string{
		keeper.StageReentrancyLock,
		keeper.StagePausedCheck,
		keeper.StageMEVThrottle,
		keeper.StageSlippageValidator,
		keeper.StageCircuitBreaker,
	}, k.Pipeline())
}

func TestParams(t *testing.T) {
	k, ctx := keepertest.DexKeeper(t)

	params, err := k.GetParams(ctx)
	require.NoError(t, err)
	defaults := types.DefaultParams()
	require.Equal(t, defaults.MaxFeeBps, params.MaxFeeBps)
	require.Equal(t, defaults.CircuitBreakerThresholdBps, params.CircuitBreakerThresholdBps)
	require.True(t, defaults.MinimumLiquidity.Equal(params.MinimumLiquidity))

	params.DefaultFeeBps = 25
	params.CooldownBlocks = 10
	require.NoError(t, k.SetParams(ctx, params))

	got, err := k.GetParams(ctx)
	require.NoError(t, err)
	require.Equal(t, uint32(25), got.DefaultFeeBps)
	require.Equal(t, int64(10), got.CooldownBlocks)

	params.MinFeeBps = 2000
	requireKind(t, k.SetParams(ctx, params), "ValidationError")
}

func TestFixtureGenesisState(t *testing.T) {
	f := keepertest.NewDexFixture(t, func(p *types.Params) {
		p.MinBlockDelay = 3
	})

	params, err := f.Keeper.GetParams(f.Ctx)
	require.NoError(t, err)
	require.Equal(t, int64(3), params.MinBlockDelay)

	require.True(t, f.Keeper.IsGovernanceMember(f.Ctx, keepertest.Governor))
	require.Equal(t, uint64(1), f.Keeper.GovMemberCount(f.Ctx))
	require.True(t, f.Ledger.BalanceOf(f.Ctx, denomA, keepertest.Governor).Equal(math.ZeroInt()))
}
