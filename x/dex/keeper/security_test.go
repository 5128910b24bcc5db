package keeper_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"cosmossdk.io/math"
	"github.com/stretchr/testify/require"

	keepertest "github.com/paw-chain/pawamm/testutil/keeper"
	"github.com/paw-chain/pawamm/x/dex/keeper"
	"github.com/paw-chain/pawamm/x/dex/types"
)

func TestMEVThrottle(t *testing.T) {
	f := keepertest.NewDexFixture(t, func(p *types.Params) {
		p.MinBlockDelay = 2
	})
	poolID, _ := f.SeedPool(t, denomA, denomB, 30, 10000, 10000)

	trader := keepertest.TestAddr("trader")
	f.Fund(t, poolID, trader, denomA, 1000)

	_, err := f.Keeper.Swap(f.Ctx, trader, poolID, math.NewInt(100), true, math.ZeroInt(), trader)
	require.NoError(t, err)
	first := f.Ctx.BlockHeight()

	last, found := f.Keeper.GetLastActionBlock(f.Ctx, poolID, trader)
	require.True(t, found)
	require.Equal(t, first, last)

	f.NextBlock(1)
	_, err = f.Keeper.Swap(f.Ctx, trader, poolID, math.NewInt(100), true, math.ZeroInt(), trader)
	requireKind(t, err, "MEVThrottleError")

	// Other users are not affected.
	other := keepertest.TestAddr("other")
	f.Fund(t, poolID, other, denomA, 100)
	_, err = f.Keeper.Swap(f.Ctx, other, poolID, math.NewInt(100), true, math.ZeroInt(), other)
	require.NoError(t, err)

	f.NextBlock(1)
	_, err = f.Keeper.Swap(f.Ctx, trader, poolID, math.NewInt(100), true, math.ZeroInt(), trader)
	require.NoError(t, err)
}

func TestMEVThrottleDisabled(t *testing.T) {
	f := keepertest.NewDexFixture(t, func(p *types.Params) {
		p.MinBlockDelay = 0
	})
	poolID, _ := f.SeedPool(t, denomA, denomB, 30, 10000, 10000)

	trader := keepertest.TestAddr("trader")
	f.Fund(t, poolID, trader, denomA, 300)
	for i := 0; i < 3; i++ {
		_, err := f.Keeper.Swap(f.Ctx, trader, poolID, math.NewInt(100), true, math.ZeroInt(), trader)
		require.NoError(t, err)
	}
}

func TestMEVThrottleIsPerPool(t *testing.T) {
	f := keepertest.NewDexFixture(t)
	poolAB, _ := f.SeedPool(t, denomA, denomB, 30, 10000, 10000)
	poolAC, _ := f.SeedPool(t, denomA, "uusdc", 30, 10000, 10000)

	trader := keepertest.TestAddr("trader")
	f.Fund(t, poolAB, trader, denomA, 100)
	f.Fund(t, poolAC, trader, denomA, 100)

	_, err := f.Keeper.Swap(f.Ctx, trader, poolAB, math.NewInt(100), true, math.ZeroInt(), trader)
	require.NoError(t, err)
	_, err = f.Keeper.Swap(f.Ctx, trader, poolAC, math.NewInt(100), true, math.ZeroInt(), trader)
	require.NoError(t, err)
}

func TestReentrancyGuard(t *testing.T) {
	guard := keeper.NewReentrancyGuard()

	require.NoError(t, guard.Lock("pool-1"))
	require.True(t, guard.Held("pool-1"))
	requireKind(t, guard.Lock("pool-1"), "ReentrancyError")

	// Locks are per pool.
	require.NoError(t, guard.Lock("pool-2"))

	guard.Unlock("pool-1")
	require.False(t, guard.Held("pool-1"))
	require.NoError(t, guard.Lock("pool-1"))
}

func TestReentrancyGuardConcurrent(t *testing.T) {
	guard := keeper.NewReentrancyGuard()

	var (
		wg       sync.WaitGroup
		acquired atomic.Int32
		rejected atomic.Int32
	)
	start := make(chan struct{})
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			if err := guard.Lock("pool"); err != nil {
				rejected.Add(1)
				return
			}
			acquired.Add(1)
		}()
	}
	close(start)
	wg.Wait()

	require.Equal(t, int32(1), acquired.Load())
	require.Equal(t, int32(31), rejected.Load())
}

func TestWithReentrancyGuardReleasesOnError(t *testing.T) {
	f := keepertest.NewDexFixture(t)
	poolID := f.CreatePool(t, denomA, denomB, 30)

	err := f.Keeper.WithReentrancyGuard(f.Ctx, poolID, func() error {
		require.True(t, f.Keeper.IsPoolLocked(f.Ctx, poolID))

		nested := f.Keeper.WithReentrancyGuard(f.Ctx, poolID, func() error { return nil })
		requireKind(t, nested, "ReentrancyError")
		return types.ErrSlippage.Wrap("boom")
	})
	requireKind(t, err, "SlippageError")
	require.False(t, f.Keeper.IsPoolLocked(f.Ctx, poolID))

	require.Panics(t, func() {
		_ = f.Keeper.WithReentrancyGuard(f.Ctx, poolID, func() error { panic("callback exploded") })
	})
	require.False(t, f.Keeper.IsPoolLocked(f.Ctx, poolID))
}

func TestNestedCallOnSamePoolIsRejected(t *testing.T) {
	f := keepertest.NewDexFixture(t)
	poolID, _ := f.SeedPool(t, denomA, denomB, 30, 10000, 10000)

	borrower := keepertest.TestAddr("borrower")
	f.Fund(t, poolID, borrower, denomA, 100)

	var nestedErr error
	_, err := f.Keeper.FlashLoan(f.Ctx, borrower, poolID, denomA, math.NewInt(1000),
		func(ctx context.Context, token string, amount, fee math.Int) error {
			require.True(t, f.Keeper.IsPoolLocked(ctx, poolID))
			_, nestedErr = f.Keeper.Swap(ctx, borrower, poolID, math.NewInt(100), true, math.ZeroInt(), borrower)
			return nestedErr
		})
	requireKind(t, nestedErr, "ReentrancyError")
	requireKind(t, err, "ReentrancyError")

	require.False(t, f.Keeper.IsPoolLocked(f.Ctx, poolID))
	pool := mustPool(t, f, poolID)
	require.Equal(t, int64(10000), pool.ReserveA.Int64())
	require.Equal(t, int64(100), f.Ledger.BalanceOf(f.Ctx, denomA, borrower).Int64())

	// The lock is gone once the outer call returns.
	f.NextBlock(1)
	_, err = f.Keeper.Swap(f.Ctx, borrower, poolID, math.NewInt(100), true, math.ZeroInt(), borrower)
	require.NoError(t, err)
}

func TestNestedCallOnOtherPoolIsAllowed(t *testing.T) {
	f := keepertest.NewDexFixture(t)
	poolAB, _ := f.SeedPool(t, denomA, denomB, 30, 10000, 10000)
	poolAC, _ := f.SeedPool(t, denomA, "uusdc", 30, 10000, 10000)

	borrower := keepertest.TestAddr("borrower")
	f.Fund(t, poolAC, borrower, denomA, 100)
	require.NoError(t, f.Ledger.Mint(f.Ctx, denomA, borrower, math.NewInt(100)))

	_, err := f.Keeper.FlashLoan(f.Ctx, borrower, poolAB, denomA, math.NewInt(1000),
		func(ctx context.Context, token string, amount, fee math.Int) error {
			if _, err := f.Keeper.Swap(ctx, borrower, poolAC, math.NewInt(100), true, math.ZeroInt(), borrower); err != nil {
				return err
			}
			escrow := mustPool(t, f, poolAB).GetAddress()
			return f.Ledger.Transfer(ctx, token, borrower, escrow, amount.Add(fee))
		})
	require.NoError(t, err)
	require.Equal(t, int64(98), f.Ledger.BalanceOf(f.Ctx, "uusdc", borrower).Int64())
}
