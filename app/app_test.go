package app_test

import (
	"encoding/json"
	"testing"

	"cosmossdk.io/log"
	"cosmossdk.io/math"
	"github.com/stretchr/testify/require"

	"github.com/paw-chain/pawamm/app"
	keepertest "github.com/paw-chain/pawamm/testutil/keeper"
	dextypes "github.com/paw-chain/pawamm/x/dex/types"
	tokentypes "github.com/paw-chain/pawamm/x/token/types"
)

func TestNextBlockAdvancesHeader(t *testing.T) {
	a, ctx := keepertest.SetupTestApp(t)
	require.Equal(t, int64(1), ctx.BlockHeight())
	require.Equal(t, keepertest.GenesisTime, ctx.BlockTime())

	a.NextBlock(3)
	require.Equal(t, int64(4), a.Height())
	require.Equal(t, keepertest.GenesisTime.Add(3*app.DefaultBlockInterval), a.BlockTime())

	ctx = a.NewContext()
	require.Equal(t, int64(4), ctx.BlockHeight())
	require.Equal(t, a.BlockTime(), ctx.BlockTime())
}

func TestInitChainRequiresGovernance(t *testing.T) {
	a, err := app.NewInMemory(log.NewNopLogger(), keepertest.GenesisTime)
	require.NoError(t, err)
	require.Error(t, a.InitChain(app.NewDefaultGenesisState()))
}

func TestGenesisSectionsDefaultWhenMissing(t *testing.T) {
	genesis := app.GenesisState{}

	dexGenesis, err := genesis.DexGenesis()
	require.NoError(t, err)
	require.Empty(t, dexGenesis.Pools)
	require.NoError(t, dexGenesis.Params.Validate())

	tokenGenesis, err := genesis.TokenGenesis()
	require.NoError(t, err)
	require.Empty(t, tokenGenesis.Balances)

	genesis[dextypes.ModuleName] = json.RawMessage(`{"params":`)
	_, err = genesis.DexGenesis()
	require.Error(t, err)
}

func TestExportImportPreservesState(t *testing.T) {
	f := keepertest.NewDexFixture(t)
	poolID, provider := f.SeedPool(t, "uatom", "uosmo", 30, 10000, 10000)
	trader := keepertest.TestAddr("trader")
	f.Fund(t, poolID, trader, "uatom", 100)
	_, err := f.Keeper.Swap(f.Ctx, trader, poolID, math.NewInt(100), true, math.ZeroInt(), trader)
	require.NoError(t, err)
	require.NoError(t, f.App.CheckInvariants())

	exported, err := f.App.ExportGenesis()
	require.NoError(t, err)
	require.Contains(t, exported, dextypes.ModuleName)
	require.Contains(t, exported, tokentypes.ModuleName)

	bz, err := app.MarshalGenesis(exported)
	require.NoError(t, err)
	var decoded app.GenesisState
	require.NoError(t, json.Unmarshal(bz, &decoded))

	restored, err := app.NewInMemory(log.NewNopLogger(), keepertest.GenesisTime)
	require.NoError(t, err)
	require.NoError(t, restored.InitChain(decoded))
	require.NoError(t, restored.CheckInvariants())

	ctx := restored.NewContext()
	pool, err := restored.DexKeeper.GetPool(ctx, poolID)
	require.NoError(t, err)
	require.Equal(t, int64(10100), pool.ReserveA.Int64())
	require.Equal(t, int64(9902), pool.ReserveB.Int64())
	require.Equal(t, int64(98), restored.TokenKeeper.BalanceOf(ctx, "uosmo", trader).Int64())
	require.True(t, restored.DexKeeper.IsGovernanceMember(ctx, keepertest.Governor))

	shares, err := restored.DexKeeper.GetLiquidityPosition(ctx, poolID, provider)
	require.NoError(t, err)
	require.Equal(t, int64(9900), shares.Int64())

	reexported, err := restored.ExportGenesis()
	require.NoError(t, err)
	require.JSONEq(t, string(exported[dextypes.ModuleName]), string(reexported[dextypes.ModuleName]))
	require.JSONEq(t, string(exported[tokentypes.ModuleName]), string(reexported[tokentypes.ModuleName]))
}

func TestCheckInvariantsDetectsDrift(t *testing.T) {
	f := keepertest.NewDexFixture(t)
	poolID, _ := f.SeedPool(t, "uatom", "uosmo", 30, 1000, 1000)
	require.NoError(t, f.App.CheckInvariants())

	pool, err := f.Keeper.GetPool(f.Ctx, poolID)
	require.NoError(t, err)
	pool.ReserveA = pool.ReserveA.AddRaw(1)
	require.NoError(t, f.Keeper.SetPool(f.Ctx, pool))

	require.ErrorContains(t, f.App.CheckInvariants(), "invariant broken")
}
