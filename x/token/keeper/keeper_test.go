package keeper_test

import (
	"testing"

	sdkmath "cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"
	"github.com/stretchr/testify/require"

	keepertest "github.com/paw-chain/pawamm/testutil/keeper"
	"github.com/paw-chain/pawamm/x/token/keeper"
	"github.com/paw-chain/pawamm/x/token/types"
)

const denom = "upaw"

func setup(t *testing.T) (keeper.Keeper, sdk.Context) {
	t.Helper()
	a, ctx := keepertest.SetupTestApp(t)
	return a.TokenKeeper, ctx
}

func TestMintAndTransfer(t *testing.T) {
	k, ctx := setup(t)
	alice := keepertest.TestAddr("alice")
	bob := keepertest.TestAddr("bob")

	require.True(t, k.BalanceOf(ctx, denom, alice).IsZero())
	require.NoError(t, k.Mint(ctx, denom, alice, sdkmath.NewInt(1000)))
	require.Equal(t, int64(1000), k.BalanceOf(ctx, denom, alice).Int64())

	require.NoError(t, k.Transfer(ctx, denom, alice, bob, sdkmath.NewInt(400)))
	require.Equal(t, int64(600), k.BalanceOf(ctx, denom, alice).Int64())
	require.Equal(t, int64(400), k.BalanceOf(ctx, denom, bob).Int64())

	// Balances are per denom.
	require.True(t, k.BalanceOf(ctx, "uother", bob).IsZero())

	err := k.Transfer(ctx, denom, bob, alice, sdkmath.NewInt(401))
	require.ErrorIs(t, err, types.ErrInsufficientBalance)
	require.Equal(t, int64(400), k.BalanceOf(ctx, denom, bob).Int64())

	// A full transfer clears the balance.
	require.NoError(t, k.Transfer(ctx, denom, bob, alice, sdkmath.NewInt(400)))
	require.True(t, k.BalanceOf(ctx, denom, bob).IsZero())
}

func TestSelfTransferIsNoop(t *testing.T) {
	k, ctx := setup(t)
	alice := keepertest.TestAddr("alice")
	require.NoError(t, k.Mint(ctx, denom, alice, sdkmath.NewInt(50)))

	require.NoError(t, k.Transfer(ctx, denom, alice, alice, sdkmath.NewInt(50)))
	require.Equal(t, int64(50), k.BalanceOf(ctx, denom, alice).Int64())
}

func TestTransferValidation(t *testing.T) {
	k, ctx := setup(t)
	alice := keepertest.TestAddr("alice")
	require.NoError(t, k.Mint(ctx, denom, alice, sdkmath.NewInt(50)))

	require.ErrorIs(t, k.Transfer(ctx, denom, alice, keepertest.TestAddr("bob"), sdkmath.ZeroInt()), types.ErrInvalidAmount)
	require.ErrorIs(t, k.Transfer(ctx, "!", alice, keepertest.TestAddr("bob"), sdkmath.NewInt(1)), types.ErrInvalidDenom)
	require.ErrorIs(t, k.Transfer(ctx, denom, alice, sdk.AccAddress{}, sdkmath.NewInt(1)), types.ErrInvalidAddress)
	require.ErrorIs(t, k.Mint(ctx, denom, alice, sdkmath.NewInt(-1)), types.ErrInvalidAmount)
}

func TestTransferFromConsumesAllowance(t *testing.T) {
	k, ctx := setup(t)
	owner := keepertest.TestAddr("owner")
	spender := keepertest.TestAddr("spender")
	sink := keepertest.TestAddr("sink")
	require.NoError(t, k.Mint(ctx, denom, owner, sdkmath.NewInt(1000)))

	err := k.TransferFrom(ctx, denom, spender, owner, sink, sdkmath.NewInt(1))
	require.ErrorIs(t, err, types.ErrInsufficientAllowance)

	require.NoError(t, k.Approve(ctx, denom, owner, spender, sdkmath.NewInt(300)))
	require.Equal(t, int64(300), k.Allowance(ctx, denom, owner, spender).Int64())

	require.NoError(t, k.TransferFrom(ctx, denom, spender, owner, sink, sdkmath.NewInt(200)))
	require.Equal(t, int64(100), k.Allowance(ctx, denom, owner, spender).Int64())
	require.Equal(t, int64(800), k.BalanceOf(ctx, denom, owner).Int64())
	require.Equal(t, int64(200), k.BalanceOf(ctx, denom, sink).Int64())

	err = k.TransferFrom(ctx, denom, spender, owner, sink, sdkmath.NewInt(101))
	require.ErrorIs(t, err, types.ErrInsufficientAllowance)

	// Approve replaces rather than adds.
	require.NoError(t, k.Approve(ctx, denom, owner, spender, sdkmath.NewInt(5000)))
	err = k.TransferFrom(ctx, denom, spender, owner, sink, sdkmath.NewInt(900))
	require.ErrorIs(t, err, types.ErrInsufficientBalance)
	require.Equal(t, int64(5000), k.Allowance(ctx, denom, owner, spender).Int64())

	require.NoError(t, k.Approve(ctx, denom, owner, spender, sdkmath.ZeroInt()))
	require.True(t, k.Allowance(ctx, denom, owner, spender).IsZero())
	require.ErrorIs(t, k.Approve(ctx, denom, owner, spender, sdkmath.NewInt(-1)), types.ErrInvalidAmount)
}

func TestLedgerEvents(t *testing.T) {
	k, ctx := setup(t)
	alice := keepertest.TestAddr("alice")
	bob := keepertest.TestAddr("bob")

	require.NoError(t, k.Mint(ctx, denom, alice, sdkmath.NewInt(10)))
	require.NoError(t, k.Approve(ctx, denom, alice, bob, sdkmath.NewInt(10)))
	require.NoError(t, k.TransferFrom(ctx, denom, bob, alice, bob, sdkmath.NewInt(10)))

	var kinds []string
	for _, ev := range ctx.EventManager().Events() {
		kinds = append(kinds, ev.Type)
	}
	require.Equal(t, []string{types.EventTypeMint, types.EventTypeApproval, types.EventTypeTransfer}, kinds)
}

func TestGenesisRoundTrip(t *testing.T) {
	k, ctx := setup(t)
	alice := keepertest.TestAddr("alice")
	bob := keepertest.TestAddr("bob")
	// 32-byte module-style accounts must survive the length-prefixed keys.
	escrow := sdk.AccAddress(make([]byte, 32))
	escrow[0] = 0xEE

	require.NoError(t, k.Mint(ctx, denom, alice, sdkmath.NewInt(10)))
	require.NoError(t, k.Mint(ctx, "uatom", bob, sdkmath.NewInt(20)))
	require.NoError(t, k.Mint(ctx, denom, escrow, sdkmath.NewInt(30)))
	require.NoError(t, k.Approve(ctx, denom, alice, escrow, sdkmath.NewInt(7)))

	exported, err := k.ExportGenesis(ctx)
	require.NoError(t, err)
	require.NoError(t, exported.Validate())
	require.Len(t, exported.Balances, 3)
	require.Len(t, exported.Allowances, 1)
	require.Equal(t, escrow.String(), exported.Allowances[0].Spender)

	k2, ctx2 := setup(t)
	require.NoError(t, k2.InitGenesis(ctx2, *exported))
	require.Equal(t, int64(30), k2.BalanceOf(ctx2, denom, escrow).Int64())
	require.Equal(t, int64(20), k2.BalanceOf(ctx2, "uatom", bob).Int64())
	require.Equal(t, int64(7), k2.Allowance(ctx2, denom, alice, escrow).Int64())

	reexported, err := k2.ExportGenesis(ctx2)
	require.NoError(t, err)
	require.Equal(t, exported.Balances[0].Address, reexported.Balances[0].Address)
	require.Len(t, reexported.Balances, 3)
}

func TestGenesisValidate(t *testing.T) {
	alice := keepertest.TestAddr("alice").String()

	require.NoError(t, types.DefaultGenesis().Validate())

	gs := types.GenesisState{Balances: []types.Balance{
		{Address: alice, Denom: denom, Amount: sdkmath.NewInt(1)},
		{Address: alice, Denom: denom, Amount: sdkmath.NewInt(2)},
	}}
	require.Error(t, gs.Validate())

	gs = types.GenesisState{Balances: []types.Balance{{Address: "bad", Denom: denom, Amount: sdkmath.NewInt(1)}}}
	require.Error(t, gs.Validate())

	gs = types.GenesisState{Allowances: []types.Allowance{{Owner: alice, Spender: alice, Denom: denom, Amount: sdkmath.NewInt(-1)}}}
	require.Error(t, gs.Validate())
}
