package types

import (
	"context"

	sdkmath "cosmossdk.io/math"
)

// DexHooks lets other modules observe pool activity. Hooks run inside the
// caller's branched store, so an error aborts the whole operation.
type DexHooks interface {
	// AfterPoolCreated is called after a new liquidity pool is created.
	AfterPoolCreated(ctx context.Context, poolID, tokenA, tokenB, creator string) error

	// AfterSwap is called after a successful swap operation.
	AfterSwap(ctx context.Context, poolID, trader, tokenIn, tokenOut string, amountIn, amountOut sdkmath.Int) error

	// AfterLiquidityChanged is called when liquidity is added or removed.
	AfterLiquidityChanged(ctx context.Context, poolID, provider string, deltaA, deltaB sdkmath.Int, isAdd bool) error

	// OnCircuitBreakerTriggered is called when a pool trips on price impact.
	OnCircuitBreakerTriggered(ctx context.Context, poolID string, priceImpactBps uint64) error
}

// MultiDexHooks combines multiple DEX hooks into a single hook that calls all of them.
type MultiDexHooks []DexHooks

// NewMultiDexHooks creates a new MultiDexHooks from a list of hooks.
func NewMultiDexHooks(hooks ...DexHooks) MultiDexHooks {
	return hooks
}

// AfterPoolCreated calls AfterPoolCreated on all registered hooks.
func (h MultiDexHooks) AfterPoolCreated(ctx context.Context, poolID, tokenA, tokenB, creator string) error {
	for _, hook := range h {
		if hook == nil {
			continue
		}
		if err := hook.AfterPoolCreated(ctx, poolID, tokenA, tokenB, creator); err != nil {
			return err
		}
	}
	return nil
}

// AfterSwap calls AfterSwap on all registered hooks.
func (h MultiDexHooks) AfterSwap(ctx context.Context, poolID, trader, tokenIn, tokenOut string, amountIn, amountOut sdkmath.Int) error {
	for _, hook := range h {
		if hook == nil {
			continue
		}
		if err := hook.AfterSwap(ctx, poolID, trader, tokenIn, tokenOut, amountIn, amountOut); err != nil {
			return err
		}
	}
	return nil
}

// AfterLiquidityChanged calls AfterLiquidityChanged on all registered hooks.
func (h MultiDexHooks) AfterLiquidityChanged(ctx context.Context, poolID, provider string, deltaA, deltaB sdkmath.Int, isAdd bool) error {
	for _, hook := range h {
		if hook == nil {
			continue
		}
		if err := hook.AfterLiquidityChanged(ctx, poolID, provider, deltaA, deltaB, isAdd); err != nil {
			return err
		}
	}
	return nil
}

// OnCircuitBreakerTriggered calls OnCircuitBreakerTriggered on all registered hooks.
func (h MultiDexHooks) OnCircuitBreakerTriggered(ctx context.Context, poolID string, priceImpactBps uint64) error {
	for _, hook := range h {
		if hook == nil {
			continue
		}
		if err := hook.OnCircuitBreakerTriggered(ctx, poolID, priceImpactBps); err != nil {
			return err
		}
	}
	return nil
}
