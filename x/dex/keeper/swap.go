package keeper

import (
	"context"
	"strconv"

	"cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/paw-chain/pawamm/x/dex/types"
)

// SwapQuote is the priced outcome of a trade against current reserves.
type SwapQuote struct {
	TokenIn        string
	TokenOut       string
	AmountIn       math.Int
	AmountOut      math.Int
	ReserveIn      math.Int
	ReserveOut     math.Int
	PriceImpactBps uint64
}

// CalculateSwapOutput prices a trade with the constant-product formula:
//
//	amountOut = floor(amountIn*(10000-fee)*reserveOut / (reserveIn*10000 + amountIn*(10000-fee)))
func CalculateSwapOutput(amountIn, reserveIn, reserveOut math.Int, feeBps uint32) (math.Int, error) {
	if !amountIn.IsPositive() {
		return math.Int{}, types.ErrValidation.Wrap("swap amount must be positive")
	}
	if !reserveIn.IsPositive() || !reserveOut.IsPositive() {
		return math.Int{}, types.ErrValidation.Wrap("pool has no liquidity")
	}
	if feeBps >= types.BasisPoints {
		return math.Int{}, types.ErrValidation.Wrapf("fee %d bps must be below %d", feeBps, types.BasisPoints)
	}

	amountInWithFee, err := safeMul(amountIn, math.NewInt(int64(types.BasisPoints-feeBps)))
	if err != nil {
		return math.Int{}, err
	}
	numerator, err := safeMul(amountInWithFee, reserveOut)
	if err != nil {
		return math.Int{}, err
	}
	scaledReserve, err := safeMul(reserveIn, math.NewInt(types.BasisPoints))
	if err != nil {
		return math.Int{}, err
	}
	denominator, err := safeAdd(scaledReserve, amountInWithFee)
	if err != nil {
		return math.Int{}, err
	}
	return safeQuo(numerator, denominator)
}

// CalculatePriceImpact returns |ideal - actual| / ideal in basis points,
// floored, where ideal = amountIn*reserveOut/reserveIn is the output at the
// spot price. Cross-multiplied to stay in integers.
func CalculatePriceImpact(amountIn, amountOut, reserveIn, reserveOut math.Int) (uint64, error) {
	ideal, err := safeMul(amountIn, reserveOut)
	if err != nil {
		return 0, err
	}
	if !ideal.IsPositive() {
		return 0, types.ErrValidation.Wrap("ideal output must be positive")
	}
	actual, err := safeMul(amountOut, reserveIn)
	if err != nil {
		return 0, err
	}

	diff := ideal.Sub(actual).Abs()
	impact, err := mulDiv(diff, math.NewInt(types.BasisPoints), ideal)
	if err != nil {
		return 0, err
	}
	if !impact.IsUint64() {
		return 0, types.ErrArithmetic.Wrapf("price impact %s out of range", impact)
	}
	return impact.Uint64(), nil
}

// quoteSwap prices a trade against pool without touching state.
func (k Keeper) quoteSwap(pool types.Pool, amountIn math.Int, inputIsTokenA bool) (SwapQuote, error) {
	reserveIn, reserveOut := pool.Reserves(inputIsTokenA)
	tokenIn, tokenOut := pool.Tokens(inputIsTokenA)

	amountOut, err := CalculateSwapOutput(amountIn, reserveIn, reserveOut, pool.FeeBps)
	if err != nil {
		return SwapQuote{}, err
	}
	if !amountOut.IsPositive() {
		return SwapQuote{}, types.ErrValidation.Wrapf("swap of %s%s yields no output", amountIn, tokenIn)
	}
	if amountOut.GTE(reserveOut) {
		return SwapQuote{}, types.ErrArithmetic.Wrapf("output %s would drain reserve %s", amountOut, reserveOut)
	}
	impact, err := CalculatePriceImpact(amountIn, amountOut, reserveIn, reserveOut)
	if err != nil {
		return SwapQuote{}, err
	}

	return SwapQuote{
		TokenIn:        tokenIn,
		TokenOut:       tokenOut,
		AmountIn:       amountIn,
		AmountOut:      amountOut,
		ReserveIn:      reserveIn,
		ReserveOut:     reserveOut,
		PriceImpactBps: impact,
	}, nil
}

// Swap trades amountIn of one pool token for the other and sends the output
// to recipient. Reserves are written before the outbound transfer.
func (k Keeper) Swap(
	ctx context.Context,
	caller sdk.AccAddress,
	poolID string,
	amountIn math.Int,
	inputIsTokenA bool,
	amountOutMin math.Int,
	recipient sdk.AccAddress,
) (math.Int, error) {
	if err := validatePositive("amount in", amountIn); err != nil {
		return math.Int{}, err
	}
	if err := validateNonNegative("amount out min", amountOutMin); err != nil {
		return math.Int{}, err
	}
	if err := sdk.VerifyAddressFormat(recipient); err != nil {
		return math.Int{}, types.ErrValidation.Wrapf("invalid recipient: %s", err)
	}

	var quote SwapQuote
	var reserveA, reserveB float64
	var tokenA, tokenB string
	err := k.executePoolOperation(ctx, poolOperation{
		name:   "swap",
		poolID: poolID,
		actor:  caller,
		swap:   &SwapRequest{AmountIn: amountIn, InputIsTokenA: inputIsTokenA},
		run: func(cacheCtx sdk.Context, pool *types.Pool, req *GuardRequest) error {
			quote = *req.Quote
			if quote.AmountOut.LT(amountOutMin) {
				return types.ErrSlippage.Wrapf("output %s below minimum %s", quote.AmountOut, amountOutMin)
			}

			// Effects
			k.updateCumulativePrices(cacheCtx, pool)
			oldK, err := safeMul(pool.ReserveA, pool.ReserveB)
			if err != nil {
				return err
			}
			newReserveIn, err := safeAdd(quote.ReserveIn, amountIn)
			if err != nil {
				return err
			}
			newReserveOut, err := safeSub(quote.ReserveOut, quote.AmountOut)
			if err != nil {
				return err
			}
			pool.SetReserves(inputIsTokenA, newReserveIn, newReserveOut)
			if err := k.ValidatePoolInvariant(pool, oldK); err != nil {
				return err
			}
			if err := k.SetPool(cacheCtx, pool); err != nil {
				return err
			}
			k.recordObservation(cacheCtx, pool)

			// Interactions
			if err := k.pullTokens(cacheCtx, pool, quote.TokenIn, caller, amountIn); err != nil {
				return err
			}
			if err := k.pushTokens(cacheCtx, pool, quote.TokenOut, recipient, quote.AmountOut); err != nil {
				return err
			}

			if k.hooks != nil {
				if err := k.hooks.AfterSwap(cacheCtx, pool.Id, caller.String(), quote.TokenIn, quote.TokenOut, amountIn, quote.AmountOut); err != nil {
					return err
				}
			}

			cacheCtx.EventManager().EmitEvent(
				sdk.NewEvent(
					types.EventTypeSwap,
					sdk.NewAttribute(types.AttributeKeyPoolID, pool.Id),
					sdk.NewAttribute(types.AttributeKeyTrader, caller.String()),
					sdk.NewAttribute(types.AttributeKeyRecipient, recipient.String()),
					sdk.NewAttribute(types.AttributeKeyTokenIn, quote.TokenIn),
					sdk.NewAttribute(types.AttributeKeyTokenOut, quote.TokenOut),
					sdk.NewAttribute(types.AttributeKeyAmountIn, amountIn.String()),
					sdk.NewAttribute(types.AttributeKeyAmountOut, quote.AmountOut.String()),
					sdk.NewAttribute(types.AttributeKeyPriceImpactBps, strconv.FormatUint(quote.PriceImpactBps, 10)),
				),
			)

			tokenA, tokenB = pool.TokenA, pool.TokenB
			reserveA, reserveB = intToFloat(pool.ReserveA), intToFloat(pool.ReserveB)
			return nil
		},
	})
	if err != nil {
		return math.Int{}, err
	}

	k.metrics.SwapsTotal.WithLabelValues(poolID, quote.TokenIn, quote.TokenOut).Inc()
	k.metrics.SwapVolume.WithLabelValues(poolID, quote.TokenIn).Add(intToFloat(amountIn))
	k.metrics.PriceImpact.Observe(float64(quote.PriceImpactBps))
	k.metrics.recordReserves(poolID, tokenA, tokenB, reserveA, reserveB)
	return quote.AmountOut, nil
}

// ValidatePoolInvariant checks that reserveA*reserveB did not decrease.
func (k Keeper) ValidatePoolInvariant(pool *types.Pool, oldK math.Int) error {
	newK, err := safeMul(pool.ReserveA, pool.ReserveB)
	if err != nil {
		return err
	}
	if newK.LT(oldK) {
		return types.ErrArithmetic.Wrapf("constant product decreased on pool %s: %s < %s", pool.Id, newK, oldK)
	}
	return nil
}

// SimulateSwap quotes a trade without executing it. It runs the same
// max-fraction check as Swap but none of the caller-specific guards.
func (k Keeper) SimulateSwap(ctx context.Context, poolID string, amountIn math.Int, inputIsTokenA bool) (SwapQuote, error) {
	if err := validatePositive("amount in", amountIn); err != nil {
		return SwapQuote{}, err
	}
	pool, err := k.GetPool(ctx, poolID)
	if err != nil {
		return SwapQuote{}, err
	}
	params, err := k.GetParams(ctx)
	if err != nil {
		return SwapQuote{}, err
	}

	req := &GuardRequest{
		Operation: "simulate_swap",
		Pool:      *pool,
		Params:    params,
		Height:    sdk.UnwrapSDKContext(ctx).BlockHeight(),
		Swap:      &SwapRequest{AmountIn: amountIn, InputIsTokenA: inputIsTokenA},
	}
	if err := checkSlippage(sdk.UnwrapSDKContext(ctx), k, req); err != nil {
		return SwapQuote{}, err
	}
	return *req.Quote, nil
}

// GetSpotPrice returns the marginal price of tokenIn in units of the other
// pool token, reserveOut/reserveIn.
func (k Keeper) GetSpotPrice(ctx context.Context, poolID, tokenIn string) (math.LegacyDec, error) {
	pool, err := k.GetPool(ctx, poolID)
	if err != nil {
		return math.LegacyDec{}, err
	}
	if !pool.HasToken(tokenIn) {
		return math.LegacyDec{}, types.ErrValidation.Wrapf("token %s is not in pool %s", tokenIn, poolID)
	}

	priceA, priceB, ok := pool.SpotPrices()
	if !ok {
		return math.LegacyDec{}, types.ErrValidation.Wrapf("pool %s has no liquidity", poolID)
	}
	if tokenIn == pool.TokenA {
		return priceA, nil
	}
	return priceB, nil
}
