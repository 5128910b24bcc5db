package keeper

import (
	"context"
	"strconv"

	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/paw-chain/pawamm/x/dex/types"
)

// tripCircuitBreaker moves a pool to Tripped. It writes straight to ctx: the
// call that raised the trip is rolled back, the trip is not.
func (k Keeper) tripCircuitBreaker(ctx sdk.Context, poolID string, trip CircuitBreakerTrip) error {
	pool, err := k.GetPool(ctx, poolID)
	if err != nil {
		return err
	}

	pool.CircuitBreakerState = types.CircuitBreakerTripped
	pool.TrippedUntil = trip.TrippedUntil
	if err := k.SetPool(ctx, pool); err != nil {
		return err
	}

	ctx.EventManager().EmitEvent(
		sdk.NewEvent(
			types.EventTypeCircuitBreakerTripped,
			sdk.NewAttribute(types.AttributeKeyPoolID, poolID),
			sdk.NewAttribute(types.AttributeKeyPriceImpactBps, strconv.FormatUint(trip.PriceImpactBps, 10)),
			sdk.NewAttribute(types.AttributeKeyTrippedUntil, strconv.FormatInt(trip.TrippedUntil, 10)),
		),
	)
	k.metrics.CircuitBreakerTriggers.WithLabelValues(poolID).Inc()
	k.Logger(ctx).Info("circuit breaker tripped",
		"pool_id", poolID,
		"price_impact_bps", trip.PriceImpactBps,
		"tripped_until", trip.TrippedUntil,
	)

	if k.hooks != nil {
		if err := k.hooks.OnCircuitBreakerTriggered(ctx, poolID, trip.PriceImpactBps); err != nil {
			k.Logger(ctx).Error("circuit breaker hook failed", "pool_id", poolID, "error", err)
		}
	}
	return nil
}

// ResetCircuitBreaker returns a tripped pool to Active. The caller must be
// authorized and the cooldown must have elapsed.
func (k Keeper) ResetCircuitBreaker(ctx context.Context, caller sdk.AccAddress, poolID string) error {
	err := k.runAdminOperation(ctx, poolID, func(cacheCtx sdk.Context, pool *types.Pool) error {
		if err := k.requireAuthorized(cacheCtx, caller, "reset circuit breaker"); err != nil {
			return err
		}
		if pool.CircuitBreakerState != types.CircuitBreakerTripped {
			return types.ErrValidation.Wrapf("pool %s is %s, not tripped", pool.Id, pool.CircuitBreakerState)
		}
		if height := cacheCtx.BlockHeight(); height < pool.TrippedUntil {
			return types.ErrCircuitBreaker.Wrapf("cooldown for pool %s ends at height %d, current height %d",
				pool.Id, pool.TrippedUntil, height)
		}

		pool.CircuitBreakerState = types.CircuitBreakerActive
		pool.TrippedUntil = 0
		if err := k.SetPool(cacheCtx, pool); err != nil {
			return err
		}

		cacheCtx.EventManager().EmitEvent(
			sdk.NewEvent(
				types.EventTypeCircuitBreakerReset,
				sdk.NewAttribute(types.AttributeKeyPoolID, pool.Id),
				sdk.NewAttribute(types.AttributeKeyActor, caller.String()),
			),
		)
		k.Logger(cacheCtx).Info("circuit breaker reset", "pool_id", pool.Id, "by", caller.String())
		return nil
	})
	if err != nil {
		return err
	}

	k.metrics.CircuitBreakerRecoveries.WithLabelValues(poolID).Inc()
	return nil
}

// EmergencyPause halts every operation on a pool, whatever its breaker state.
func (k Keeper) EmergencyPause(ctx context.Context, caller sdk.AccAddress, poolID, reason string) error {
	err := k.runAdminOperation(ctx, poolID, func(cacheCtx sdk.Context, pool *types.Pool) error {
		if err := k.requireAuthorized(cacheCtx, caller, "emergency pause"); err != nil {
			return err
		}
		if pool.CircuitBreakerState == types.CircuitBreakerPaused {
			return types.ErrValidation.Wrapf("pool %s is already paused", pool.Id)
		}

		pool.CircuitBreakerState = types.CircuitBreakerPaused
		if err := k.SetPool(cacheCtx, pool); err != nil {
			return err
		}

		cacheCtx.EventManager().EmitEvent(
			sdk.NewEvent(
				types.EventTypePaused,
				sdk.NewAttribute(types.AttributeKeyPoolID, pool.Id),
				sdk.NewAttribute(types.AttributeKeyActor, caller.String()),
				sdk.NewAttribute(types.AttributeKeyReason, reason),
			),
		)
		k.Logger(cacheCtx).Info("pool paused", "pool_id", pool.Id, "by", caller.String(), "reason", reason)
		return nil
	})
	if err != nil {
		return err
	}

	k.metrics.EmergencyPauses.WithLabelValues(poolID).Inc()
	return nil
}

// Unpause returns a paused pool to Active. A trip that was pending when the
// pool was paused is cleared.
func (k Keeper) Unpause(ctx context.Context, caller sdk.AccAddress, poolID string) error {
	return k.runAdminOperation(ctx, poolID, func(cacheCtx sdk.Context, pool *types.Pool) error {
		if err := k.requireAuthorized(cacheCtx, caller, "unpause"); err != nil {
			return err
		}
		if pool.CircuitBreakerState != types.CircuitBreakerPaused {
			return types.ErrValidation.Wrapf("pool %s is not paused", pool.Id)
		}

		pool.CircuitBreakerState = types.CircuitBreakerActive
		pool.TrippedUntil = 0
		if err := k.SetPool(cacheCtx, pool); err != nil {
			return err
		}

		cacheCtx.EventManager().EmitEvent(
			sdk.NewEvent(
				types.EventTypeUnpaused,
				sdk.NewAttribute(types.AttributeKeyPoolID, pool.Id),
				sdk.NewAttribute(types.AttributeKeyActor, caller.String()),
			),
		)
		k.Logger(cacheCtx).Info("pool unpaused", "pool_id", pool.Id, "by", caller.String())
		return nil
	})
}
