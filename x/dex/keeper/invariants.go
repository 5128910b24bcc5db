package keeper

import (
	"fmt"

	"cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/paw-chain/pawamm/x/dex/types"
)

// RegisterInvariants registers all DEX invariants
func RegisterInvariants(ir sdk.InvariantRegistry, k Keeper) {
	ir.RegisterRoute(types.ModuleName, "pool-shares", PoolSharesInvariant(k))
	ir.RegisterRoute(types.ModuleName, "positive-reserves", PositiveReservesInvariant(k))
	ir.RegisterRoute(types.ModuleName, "escrow-balance", EscrowBalanceInvariant(k))
	ir.RegisterRoute(types.ModuleName, "governance-cardinality", GovernanceCardinalityInvariant(k))
}

// AllInvariants runs all invariants of the DEX module
func AllInvariants(k Keeper) sdk.Invariant {
	return func(ctx sdk.Context) (string, bool) {
		for _, inv := range []sdk.Invariant{
			PoolSharesInvariant(k),
			PositiveReservesInvariant(k),
			EscrowBalanceInvariant(k),
			GovernanceCardinalityInvariant(k),
		} {
			if res, stop := inv(ctx); stop {
				return res, stop
			}
		}
		return "", false
	}
}

// PoolSharesInvariant checks that positions sum to each pool's total liquidity
func PoolSharesInvariant(k Keeper) sdk.Invariant {
	return func(ctx sdk.Context) (string, bool) {
		var (
			msg   string
			count int
		)

		pools, err := k.GetAllPools(ctx)
		if err != nil {
			return sdk.FormatInvariant(types.ModuleName, "pool-shares", err.Error()), true
		}
		for _, pool := range pools {
			total := math.ZeroInt()
			err := k.iteratePositions(ctx, LiquidityPoolPrefix(pool.Id), func(pos types.LiquidityPosition) bool {
				total = total.Add(pos.Shares)
				return false
			})
			if err != nil {
				count++
				msg += fmt.Sprintf("pool %s: %s\n", pool.Id, err)
				continue
			}
			if !total.Equal(pool.TotalLiquidity) {
				count++
				msg += fmt.Sprintf("pool %s: positions sum to %s, total liquidity is %s\n", pool.Id, total, pool.TotalLiquidity)
			}
		}

		return sdk.FormatInvariant(
			types.ModuleName, "pool-shares",
			fmt.Sprintf("found %d pools with mismatched shares\n%s", count, msg),
		), count != 0
	}
}

// PositiveReservesInvariant checks that pools with shares hold both tokens
func PositiveReservesInvariant(k Keeper) sdk.Invariant {
	return func(ctx sdk.Context) (string, bool) {
		var (
			msg   string
			count int
		)

		pools, err := k.GetAllPools(ctx)
		if err != nil {
			return sdk.FormatInvariant(types.ModuleName, "positive-reserves", err.Error()), true
		}
		for _, pool := range pools {
			if err := pool.Validate(); err != nil {
				count++
				msg += fmt.Sprintf("%s\n", err)
			}
		}

		return sdk.FormatInvariant(
			types.ModuleName, "positive-reserves",
			fmt.Sprintf("found %d malformed pools\n%s", count, msg),
		), count != 0
	}
}

// EscrowBalanceInvariant checks that every pool escrow holds at least its reserves
func EscrowBalanceInvariant(k Keeper) sdk.Invariant {
	return func(ctx sdk.Context) (string, bool) {
		var (
			msg   string
			count int
		)

		pools, err := k.GetAllPools(ctx)
		if err != nil {
			return sdk.FormatInvariant(types.ModuleName, "escrow-balance", err.Error()), true
		}
		for _, pool := range pools {
			escrow := pool.GetAddress()
			for _, side := range []struct {
				denom   string
				reserve math.Int
			}{
				{pool.TokenA, pool.ReserveA},
				{pool.TokenB, pool.ReserveB},
			} {
				balance := k.ledger.BalanceOf(ctx, side.denom, escrow)
				if balance.LT(side.reserve) {
					count++
					msg += fmt.Sprintf("pool %s: escrow balance for %s (%s) < reserve (%s)\n",
						pool.Id, side.denom, balance, side.reserve)
				}
			}
		}

		return sdk.FormatInvariant(
			types.ModuleName, "escrow-balance",
			fmt.Sprintf("found %d reserves not backed by escrow\n%s", count, msg),
		), count != 0
	}
}

// GovernanceCardinalityInvariant checks the maintained member counter
// against the stored set and that the set is never empty.
func GovernanceCardinalityInvariant(k Keeper) sdk.Invariant {
	return func(ctx sdk.Context) (string, bool) {
		members := uint64(len(k.GetGovMembers(ctx)))
		count := k.GovMemberCount(ctx)
		broken := members != count || count == 0

		return sdk.FormatInvariant(
			types.ModuleName, "governance-cardinality",
			fmt.Sprintf("counter %d, stored members %d\n", count, members),
		), broken
	}
}
