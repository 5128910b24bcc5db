package keeper_test

import (
	"testing"

	"cosmossdk.io/log"
	"cosmossdk.io/math"
	"github.com/stretchr/testify/require"

	"github.com/paw-chain/pawamm/app"
	keepertest "github.com/paw-chain/pawamm/testutil/keeper"
	"github.com/paw-chain/pawamm/x/dex/types"
)

func TestGenesisExportImport(t *testing.T) {
	f := keepertest.NewDexFixture(t)
	poolID, _ := f.SeedPool(t, denomA, denomB, 30, 10000, 10000)
	f.SeedPool(t, denomA, "uusdc", 5, 3000, 12000)

	operator := keepertest.TestAddr("operator")
	require.NoError(t, f.Keeper.SetEmergencyOperator(f.Ctx, keepertest.Governor, operator, true))
	require.NoError(t, f.Keeper.AddGovMember(f.Ctx, keepertest.Governor, keepertest.TestAddr("alice")))

	trader := keepertest.TestAddr("trader")
	f.Fund(t, poolID, trader, denomA, 500)
	_, err := f.Keeper.Swap(f.Ctx, trader, poolID, math.NewInt(500), true, math.ZeroInt(), trader)
	require.NoError(t, err)
	require.NoError(t, f.Keeper.EmergencyPause(f.Ctx, operator, poolID, "maintenance"))

	exported, err := f.Keeper.ExportGenesis(f.Ctx)
	require.NoError(t, err)
	require.NoError(t, exported.Validate())
	require.Len(t, exported.Pools, 2)
	require.Len(t, exported.Positions, 2)
	require.Len(t, exported.GovMembers, 2)
	require.Equal(t, []string{operator.String()}, exported.EmergencyOperators)

	appGenesis, err := f.App.ExportGenesis()
	require.NoError(t, err)

	restored, err := app.NewInMemory(log.NewNopLogger(), f.App.BlockTime())
	require.NoError(t, err)
	require.NoError(t, restored.InitChain(appGenesis))
	require.NoError(t, restored.CheckInvariants())

	reexported, err := restored.ExportGenesis()
	require.NoError(t, err)
	require.JSONEq(t, string(appGenesis[types.ModuleName]), string(reexported[types.ModuleName]))

	ctx := restored.NewContext()
	pool, err := restored.DexKeeper.GetPool(ctx, poolID)
	require.NoError(t, err)
	require.Equal(t, types.CircuitBreakerPaused, pool.CircuitBreakerState)
	require.True(t, restored.DexKeeper.IsEmergencyOperator(ctx, operator))
	require.Equal(t, uint64(2), restored.DexKeeper.GovMemberCount(ctx))

	byTokens, err := restored.DexKeeper.GetPoolByTokens(ctx, denomB, denomA)
	require.NoError(t, err)
	require.Equal(t, poolID, byTokens.Id)
}

func TestInitGenesisRejectsInvalidState(t *testing.T) {
	k, ctx := keepertest.DexKeeper(t)

	require.Error(t, k.InitGenesis(ctx, *types.DefaultGenesis()))

	genesis := types.DefaultGenesis()
	genesis.GovMembers = []string{keepertest.Governor.String()}
	pool := types.NewPool(denomA, denomB, 30, 0)
	pool.TotalLiquidity = math.NewInt(10)
	genesis.Pools = []types.Pool{pool}
	require.Error(t, k.InitGenesis(ctx, *genesis))
}
