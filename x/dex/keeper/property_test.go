package keeper_test

import (
	"math/big"
	"testing"

	"cosmossdk.io/math"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	keepertest "github.com/paw-chain/pawamm/testutil/keeper"
	"github.com/paw-chain/pawamm/x/dex/keeper"
	"github.com/paw-chain/pawamm/x/dex/types"
)

// TestConstantProductNeverDecreases checks k' >= k for every priced trade.
func TestConstantProductNeverDecreases(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		reserveIn := rapid.Int64Range(1_000, 1_000_000_000_000).Draw(rt, "reserveIn")
		reserveOut := rapid.Int64Range(1_000, 1_000_000_000_000).Draw(rt, "reserveOut")
		amountIn := rapid.Int64Range(1, reserveIn/2).Draw(rt, "amountIn")
		fee := rapid.Uint32Range(1, 1000).Draw(rt, "fee")

		rIn, rOut, in := math.NewInt(reserveIn), math.NewInt(reserveOut), math.NewInt(amountIn)
		out, err := keeper.CalculateSwapOutput(in, rIn, rOut, fee)
		if err != nil {
			rt.Fatalf("unexpected error: %v", err)
		}
		if out.IsNegative() || out.GTE(rOut) {
			rt.Fatalf("output %s outside [0, %s)", out, rOut)
		}

		before := rIn.Mul(rOut)
		after := rIn.Add(in).Mul(rOut.Sub(out))
		if after.LT(before) {
			rt.Fatalf("k decreased: %s -> %s", before, after)
		}
	})
}

// TestPriceImpactBounded checks that impact stays within 100% and never
// below the 30 bps the fee alone costs.
func TestPriceImpactBounded(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		reserveIn := rapid.Int64Range(10_000, 1_000_000_000).Draw(rt, "reserveIn")
		reserveOut := rapid.Int64Range(10_000, 1_000_000_000).Draw(rt, "reserveOut")
		amountIn := rapid.Int64Range(1, reserveIn/2).Draw(rt, "amountIn")

		rIn, rOut, in := math.NewInt(reserveIn), math.NewInt(reserveOut), math.NewInt(amountIn)
		out, err := keeper.CalculateSwapOutput(in, rIn, rOut, 30)
		if err != nil {
			rt.Fatalf("unexpected error: %v", err)
		}
		impact, err := keeper.CalculatePriceImpact(in, out, rIn, rOut)
		if err != nil {
			rt.Fatalf("unexpected error: %v", err)
		}
		if impact > types.BasisPoints {
			rt.Fatalf("impact %d bps above 100%%", impact)
		}
		if impact < 30 {
			rt.Fatalf("impact %d bps below the fee", impact)
		}
	})
}

// TestFirstDepositAndRoundTrip checks the first-deposit share formula and
// that withdrawing every minted share returns the deposit exactly.
func TestFirstDepositAndRoundTrip(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		amountA := rapid.Int64Range(200, 1_000_000_000_000).Draw(rt, "amountA")
		amountB := rapid.Int64Range(200, 1_000_000_000_000).Draw(rt, "amountB")

		f := keepertest.NewDexFixture(t)
		poolID := f.CreatePool(t, denomA, denomB, 30)
		provider := keepertest.TestAddr("provider")
		f.Fund(t, poolID, provider, denomA, amountA)
		f.Fund(t, poolID, provider, denomB, amountB)

		_, _, liquidity, err := f.Keeper.AddLiquidity(f.Ctx, provider, poolID,
			math.NewInt(amountA), math.NewInt(amountB), math.ZeroInt(), math.ZeroInt(), provider)
		require.NoError(t, err)

		expected := isqrt(math.NewInt(amountA).Mul(math.NewInt(amountB))).SubRaw(100)
		if !liquidity.Equal(expected) {
			rt.Fatalf("minted %s shares, want %s", liquidity, expected)
		}

		f.NextBlock(1)
		a, b, err := f.Keeper.RemoveLiquidity(f.Ctx, provider, poolID, liquidity, math.ZeroInt(), math.ZeroInt())
		require.NoError(t, err)
		if a.Int64() != amountA || b.Int64() != amountB {
			rt.Fatalf("round trip returned %s/%s, deposited %d/%d", a, b, amountA, amountB)
		}
	})
}

func isqrt(x math.Int) math.Int {
	return math.NewIntFromBigInt(new(big.Int).Sqrt(x.BigInt()))
}
