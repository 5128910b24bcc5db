package keeper

import (
	sdkmath "cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/paw-chain/pawamm/x/dex/types"
)

// Guard stage names, in pipeline order.
const (
	StageReentrancyLock    = "reentrancy_lock"
	StagePausedCheck       = "paused_check"
	StageMEVThrottle       = "mev_throttle"
	StageSlippageValidator = "slippage_validator"
	StageCircuitBreaker    = "circuit_breaker"
)

// SwapRequest carries the trade a swap guard evaluation is about.
type SwapRequest struct {
	AmountIn      sdkmath.Int
	InputIsTokenA bool
}

// CircuitBreakerTrip records a trip raised by the pipeline.
type CircuitBreakerTrip struct {
	PriceImpactBps uint64
	TrippedUntil   int64
}

// GuardRequest is the input shared by every stage of the pipeline. Stages
// may enrich it: the slippage stage fills Quote, the circuit breaker
// stage fills Trip.
type GuardRequest struct {
	Operation string
	Actor     sdk.AccAddress
	Pool      types.Pool
	Params    types.Params
	Height    int64
	Swap      *SwapRequest

	Quote *SwapQuote
	Trip  *CircuitBreakerTrip
}

// GuardResult tags the outcome of the pipeline with the stage that produced it.
type GuardResult struct {
	Stage string
	Err   error
}

// Passed reports whether every stage accepted the request.
func (r GuardResult) Passed() bool { return r.Err == nil }

// Guard is one validator of the pipeline.
type Guard struct {
	Name  string
	Check func(ctx sdk.Context, k Keeper, req *GuardRequest) error
}

// DefaultGuardPipeline returns the ordered stages run inside the pool lock.
// The reentrancy lock itself is the scoped wrapper around the pipeline.
func DefaultGuardPipeline() []Guard {
	return []Guard{
		{Name: StagePausedCheck, Check: checkPaused},
		{Name: StageMEVThrottle, Check: checkMEVThrottle},
		{Name: StageSlippageValidator, Check: checkSlippage},
		{Name: StageCircuitBreaker, Check: checkCircuitBreaker},
	}
}

// RunGuards evaluates the pipeline in order and stops at the first failure.
func (k Keeper) RunGuards(ctx sdk.Context, req *GuardRequest) GuardResult {
	for _, g := range k.pipeline {
		if err := g.Check(ctx, k, req); err != nil {
			return GuardResult{Stage: g.Name, Err: err}
		}
	}
	return GuardResult{}
}

func checkPaused(_ sdk.Context, _ Keeper, req *GuardRequest) error {
	if req.Pool.CircuitBreakerState == types.CircuitBreakerPaused {
		return types.ErrPaused.Wrapf("pool %s is paused", req.Pool.Id)
	}
	return nil
}

func checkMEVThrottle(ctx sdk.Context, k Keeper, req *GuardRequest) error {
	if req.Params.MinBlockDelay <= 0 {
		return nil
	}
	last, found := k.GetLastActionBlock(ctx, req.Pool.Id, req.Actor)
	if !found {
		return nil
	}
	if req.Height-last < req.Params.MinBlockDelay {
		k.metrics.MEVThrottled.WithLabelValues(req.Operation).Inc()
		return types.ErrMEVThrottle.Wrapf(
			"%s acted on pool %s at height %d; next action allowed at height %d",
			req.Actor, req.Pool.Id, last, last+req.Params.MinBlockDelay,
		)
	}
	return nil
}

func checkSlippage(_ sdk.Context, k Keeper, req *GuardRequest) error {
	if req.Swap == nil {
		return nil
	}
	reserveIn, _ := req.Pool.Reserves(req.Swap.InputIsTokenA)
	maxIn, err := mulDiv(reserveIn, sdkmath.NewIntFromUint64(uint64(req.Params.MaxSwapFractionBps)), sdkmath.NewInt(types.BasisPoints))
	if err != nil {
		return err
	}
	if req.Swap.AmountIn.GT(maxIn) {
		return types.ErrSlippage.Wrapf(
			"swap of %s exceeds %d bps of reserve %s (max %s)",
			req.Swap.AmountIn, req.Params.MaxSwapFractionBps, reserveIn, maxIn,
		)
	}

	quote, err := k.quoteSwap(req.Pool, req.Swap.AmountIn, req.Swap.InputIsTokenA)
	if err != nil {
		return err
	}
	req.Quote = &quote
	return nil
}

func checkCircuitBreaker(_ sdk.Context, _ Keeper, req *GuardRequest) error {
	if req.Pool.CircuitBreakerState == types.CircuitBreakerTripped {
		return types.ErrCircuitBreaker.Wrapf("pool %s is tripped until height %d", req.Pool.Id, req.Pool.TrippedUntil)
	}
	if req.Quote == nil {
		return nil
	}
	if req.Quote.PriceImpactBps > uint64(req.Params.CircuitBreakerThresholdBps) {
		req.Trip = &CircuitBreakerTrip{
			PriceImpactBps: req.Quote.PriceImpactBps,
			TrippedUntil:   req.Height + req.Params.CooldownBlocks,
		}
		return types.ErrCircuitBreaker.Wrapf(
			"price impact %d bps exceeds threshold %d bps; pool %s tripped until height %d",
			req.Quote.PriceImpactBps, req.Params.CircuitBreakerThresholdBps, req.Pool.Id, req.Trip.TrippedUntil,
		)
	}
	return nil
}

// GetLastActionBlock returns the height of user's last successful mutating
// action on a pool.
func (k Keeper) GetLastActionBlock(ctx sdk.Context, poolID string, user sdk.AccAddress) (int64, bool) {
	bz := k.getStore(ctx).Get(LastActionKey(poolID, user))
	if len(bz) != 8 {
		return 0, false
	}
	return int64(sdk.BigEndianToUint64(bz)), true
}

func (k Keeper) setLastActionBlock(ctx sdk.Context, poolID string, user sdk.AccAddress, height int64) {
	k.getStore(ctx).Set(LastActionKey(poolID, user), sdk.Uint64ToBigEndian(uint64(height)))
}
