package types

import (
	"testing"

	sdkmath "cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"
	"github.com/stretchr/testify/require"
)

func testAddress(name string) string {
	bz := make([]byte, 20)
	copy(bz, name)
	return sdk.AccAddress(bz).String()
}

func seededGenesis() *GenesisState {
	pool := NewPool("uatom", "uosmo", 30, 1_700_000_000)
	pool.ReserveA = sdkmath.NewInt(1000)
	pool.ReserveB = sdkmath.NewInt(1000)
	pool.TotalLiquidity = sdkmath.NewInt(900)

	genesis := DefaultGenesis()
	genesis.GovMembers = []string{testAddress("governor")}
	genesis.EmergencyOperators = []string{testAddress("operator")}
	genesis.Pools = []Pool{pool}
	genesis.Positions = []LiquidityPosition{
		{PoolId: pool.Id, Provider: testAddress("alice"), Shares: sdkmath.NewInt(600)},
		{PoolId: pool.Id, Provider: testAddress("bob"), Shares: sdkmath.NewInt(300)},
	}
	return genesis
}

func TestDefaultGenesisNeedsGovernance(t *testing.T) {
	genesis := DefaultGenesis()
	require.NoError(t, genesis.Params.Validate())
	require.Empty(t, genesis.Pools)
	require.Error(t, genesis.Validate())

	genesis.GovMembers = []string{testAddress("governor")}
	require.NoError(t, genesis.Validate())
}

func TestGenesisValidate(t *testing.T) {
	require.NoError(t, seededGenesis().Validate())

	tests := []struct {
		name   string
		mutate func(*GenesisState)
	}{
		{"invalid params", func(gs *GenesisState) { gs.Params.MaxSwapFractionBps = 0 }},
		{"malformed member", func(gs *GenesisState) { gs.GovMembers = []string{"nobody"} }},
		{"duplicate member", func(gs *GenesisState) { gs.GovMembers = append(gs.GovMembers, gs.GovMembers[0]) }},
		{"duplicate operator", func(gs *GenesisState) {
			gs.EmergencyOperators = append(gs.EmergencyOperators, gs.EmergencyOperators[0])
		}},
		{"invalid pool", func(gs *GenesisState) { gs.Pools[0].ReserveB = sdkmath.ZeroInt() }},
		{"duplicate pool", func(gs *GenesisState) { gs.Pools = append(gs.Pools, gs.Pools[0]) }},
		{"position in unknown pool", func(gs *GenesisState) { gs.Positions[0].PoolId = PoolID("ujuno", "uusdc") }},
		{"position with zero shares", func(gs *GenesisState) { gs.Positions[1].Shares = sdkmath.ZeroInt() }},
		{"duplicate position", func(gs *GenesisState) { gs.Positions[1].Provider = gs.Positions[0].Provider }},
		{"shares do not sum", func(gs *GenesisState) { gs.Positions[1].Shares = sdkmath.NewInt(299) }},
		{"bad provider", func(gs *GenesisState) { gs.Positions[0].Provider = "cosmos1bad" }},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			gs := seededGenesis()
			tc.mutate(gs)
			require.Error(t, gs.Validate())
		})
	}
}
