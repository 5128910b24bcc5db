package keeper

import (
	"testing"
	"time"

	"cosmossdk.io/log"
	"cosmossdk.io/math"
	"github.com/cometbft/cometbft/crypto/tmhash"
	sdk "github.com/cosmos/cosmos-sdk/types"
	"github.com/stretchr/testify/require"

	"github.com/paw-chain/pawamm/app"
	"github.com/paw-chain/pawamm/x/dex/keeper"
	"github.com/paw-chain/pawamm/x/dex/types"
	tokenkeeper "github.com/paw-chain/pawamm/x/token/keeper"
)

// GenesisTime is the block time of height 1 in test fixtures.
var GenesisTime = time.Unix(1_700_000_000, 0).UTC()

// TestAddr derives a deterministic 20-byte account address from a name.
func TestAddr(name string) sdk.AccAddress {
	return sdk.AccAddress(tmhash.SumTruncated([]byte(name)))
}

// Governor is the sole governance member of a fresh fixture.
var Governor = TestAddr("governor")

// DexFixture bundles a dex keeper with its token ledger and a context that
// tests advance block by block.
type DexFixture struct {
	App    *app.App
	Keeper *keeper.Keeper
	Ledger tokenkeeper.Keeper
	Ctx    sdk.Context
}

// NewDexFixture creates an in-memory engine whose only governance member is
// Governor. mutate may adjust the dex params before genesis.
func NewDexFixture(t testing.TB, mutate ...func(*types.Params)) *DexFixture {
	t.Helper()

	a, err := app.NewInMemory(log.NewNopLogger(), GenesisTime)
	require.NoError(t, err)

	genesis := app.NewDefaultGenesisState(Governor.String())
	if len(mutate) > 0 {
		dexGenesis, err := genesis.DexGenesis()
		require.NoError(t, err)
		for _, fn := range mutate {
			fn(&dexGenesis.Params)
		}
		genesis[types.ModuleName] = mustJSON(t, dexGenesis)
	}
	require.NoError(t, a.InitChain(genesis))

	return &DexFixture{
		App:    a,
		Keeper: a.DexKeeper,
		Ledger: a.TokenKeeper,
		Ctx:    a.NewContext(),
	}
}

// DexKeeper creates a test keeper for the DEX module backed by the token ledger
func DexKeeper(t testing.TB) (*keeper.Keeper, sdk.Context) {
	f := NewDexFixture(t)
	return f.Keeper, f.Ctx
}

// NextBlock advances the fixture context by n blocks.
func (f *DexFixture) NextBlock(n int64) {
	f.App.NextBlock(n)
	f.Ctx = f.App.NewContext()
}

// CreatePool creates a pool as Governor and returns its id.
func (f *DexFixture) CreatePool(t testing.TB, tokenA, tokenB string, feeBps uint32) string {
	t.Helper()
	poolID, err := f.Keeper.CreatePool(f.Ctx, Governor, tokenA, tokenB, feeBps)
	require.NoError(t, err)
	return poolID
}

// Fund mints amount of denom to addr and approves the pool escrow to pull it.
func (f *DexFixture) Fund(t testing.TB, poolID string, addr sdk.AccAddress, denom string, amount int64) {
	t.Helper()
	amt := math.NewInt(amount)
	require.NoError(t, f.Ledger.Mint(f.Ctx, denom, addr, amt))

	pool, err := f.Keeper.GetPool(f.Ctx, poolID)
	require.NoError(t, err)
	allowance := f.Ledger.Allowance(f.Ctx, denom, addr, pool.GetAddress())
	require.NoError(t, f.Ledger.Approve(f.Ctx, denom, addr, pool.GetAddress(), allowance.Add(amt)))
}

// SeedPool creates a pool for tokenA/tokenB and deposits the given reserves
// from a dedicated provider, then moves to the next block. It returns the
// pool id and the provider.
func (f *DexFixture) SeedPool(t testing.TB, tokenA, tokenB string, feeBps uint32, reserveA, reserveB int64) (string, sdk.AccAddress) {
	t.Helper()
	poolID := f.CreatePool(t, tokenA, tokenB, feeBps)
	provider := TestAddr("seed-" + tokenA + "-" + tokenB)

	pool, err := f.Keeper.GetPool(f.Ctx, poolID)
	require.NoError(t, err)
	amountA, amountB := reserveA, reserveB
	if pool.TokenA != tokenA {
		amountA, amountB = reserveB, reserveA
	}
	f.Fund(t, poolID, provider, pool.TokenA, amountA)
	f.Fund(t, poolID, provider, pool.TokenB, amountB)

	_, _, _, err = f.Keeper.AddLiquidity(f.Ctx, provider, poolID,
		math.NewInt(amountA), math.NewInt(amountB), math.ZeroInt(), math.ZeroInt(), provider)
	require.NoError(t, err)

	f.NextBlock(1)
	return poolID, provider
}

// Events returns the events emitted on the fixture context so far.
func (f *DexFixture) Events() sdk.Events {
	return f.Ctx.EventManager().Events()
}

// ResetEvents clears recorded events.
func (f *DexFixture) ResetEvents() {
	f.Ctx = f.Ctx.WithEventManager(sdk.NewEventManager())
}
