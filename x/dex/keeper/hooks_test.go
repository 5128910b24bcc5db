package keeper_test

import (
	"context"
	"errors"
	"testing"

	"cosmossdk.io/math"
	"github.com/stretchr/testify/require"

	keepertest "github.com/paw-chain/pawamm/testutil/keeper"
	"github.com/paw-chain/pawamm/x/dex/types"
)

type recordingHooks struct {
	calls   []string
	failOn  string
	impacts []uint64
}

var _ types.DexHooks = (*recordingHooks)(nil)

func (h *recordingHooks) record(name string) error {
	h.calls = append(h.calls, name)
	if h.failOn == name {
		return errors.New(name + " rejected")
	}
	return nil
}

func (h *recordingHooks) AfterPoolCreated(context.Context, string, string, string, string) error {
	return h.record("pool_created")
}

func (h *recordingHooks) AfterSwap(context.Context, string, string, string, string, math.Int, math.Int) error {
	return h.record("swap")
}

func (h *recordingHooks) AfterLiquidityChanged(_ context.Context, _, _ string, _, _ math.Int, isAdd bool) error {
	if isAdd {
		return h.record("liquidity_added")
	}
	return h.record("liquidity_removed")
}

func (h *recordingHooks) OnCircuitBreakerTriggered(_ context.Context, _ string, impact uint64) error {
	h.impacts = append(h.impacts, impact)
	return h.record("circuit_breaker")
}

func TestHooksObserveOperations(t *testing.T) {
	f := keepertest.NewDexFixture(t)
	hooks := &recordingHooks{}
	f.Keeper.SetHooks(types.NewMultiDexHooks(hooks, nil))

	poolID, provider := f.SeedPool(t, denomA, denomB, 30, 10000, 10000)
	trader := keepertest.TestAddr("trader")
	f.Fund(t, poolID, trader, denomA, 100)
	_, err := f.Keeper.Swap(f.Ctx, trader, poolID, math.NewInt(100), true, math.ZeroInt(), trader)
	require.NoError(t, err)
	_, _, err = f.Keeper.RemoveLiquidity(f.Ctx, provider, poolID, math.NewInt(100), math.ZeroInt(), math.ZeroInt())
	require.NoError(t, err)

	require.Equal(t, []string{"pool_created", "liquidity_added", "swap", "liquidity_removed"}, hooks.calls)
	require.Panics(t, func() { f.Keeper.SetHooks(hooks) })
}

func TestHookErrorAbortsOperation(t *testing.T) {
	f := keepertest.NewDexFixture(t)
	hooks := &recordingHooks{failOn: "swap"}
	f.Keeper.SetHooks(hooks)

	poolID, _ := f.SeedPool(t, denomA, denomB, 30, 10000, 10000)
	trader := keepertest.TestAddr("trader")
	f.Fund(t, poolID, trader, denomA, 100)

	_, err := f.Keeper.Swap(f.Ctx, trader, poolID, math.NewInt(100), true, math.ZeroInt(), trader)
	require.ErrorContains(t, err, "swap rejected")
	require.Equal(t, int64(10000), mustPool(t, f, poolID).ReserveA.Int64())
	require.Equal(t, int64(100), f.Ledger.BalanceOf(f.Ctx, denomA, trader).Int64())
}

func TestCircuitBreakerHookErrorDoesNotBlockTrip(t *testing.T) {
	f := keepertest.NewDexFixture(t)
	hooks := &recordingHooks{failOn: "circuit_breaker"}
	f.Keeper.SetHooks(hooks)

	poolID, _ := f.SeedPool(t, denomA, denomB, 30, 10000, 10000)
	trader := keepertest.TestAddr("whale")
	f.Fund(t, poolID, trader, denomA, 2000)

	_, err := f.Keeper.Swap(f.Ctx, trader, poolID, math.NewInt(2000), true, math.ZeroInt(), trader)
	requireKind(t, err, "CircuitBreakerError")
	require.Equal(t, []uint64{1690}, hooks.impacts)
	require.Equal(t, types.CircuitBreakerTripped, mustPool(t, f, poolID).CircuitBreakerState)
}
