package keeper

import (
	"context"
	"sync"

	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/paw-chain/pawamm/x/dex/types"
)

// ReentrancyGuard holds in-memory per-pool locks. It is shared by every copy
// of a Keeper, so goroutines racing on the same pool see each other.
type ReentrancyGuard struct {
	mu    sync.Mutex
	locks map[string]struct{}
}

// NewReentrancyGuard creates a new guard instance.
func NewReentrancyGuard() *ReentrancyGuard {
	return &ReentrancyGuard{locks: make(map[string]struct{})}
}

// Lock acquires a named lock or returns an error if already held.
func (g *ReentrancyGuard) Lock(key string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, exists := g.locks[key]; exists {
		return types.ErrReentrancy.Wrapf("reentrancy detected for pool %s", key)
	}

	g.locks[key] = struct{}{}
	return nil
}

// Unlock releases a named lock.
func (g *ReentrancyGuard) Unlock(key string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.locks, key)
}

// Held reports whether the named lock is currently held.
func (g *ReentrancyGuard) Held(key string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, exists := g.locks[key]
	return exists
}

// WithReentrancyGuard executes fn while holding the pool's exclusive lock.
// The lock lives both in memory and as a marker in the KVStore, so nested
// calls on a branched context are rejected too. Release is deferred and
// survives panics.
func (k Keeper) WithReentrancyGuard(ctx context.Context, poolID string, fn func() error) error {
	if err := k.locks.Lock(poolID); err != nil {
		k.metrics.GuardRejections.WithLabelValues(StageReentrancyLock).Inc()
		return err
	}
	defer k.locks.Unlock(poolID)

	if err := k.acquireReentrancyLock(ctx, poolID); err != nil {
		k.metrics.GuardRejections.WithLabelValues(StageReentrancyLock).Inc()
		return err
	}
	defer k.releaseReentrancyLock(ctx, poolID)

	return fn()
}

// acquireReentrancyLock attempts to acquire a reentrancy lock from the KVStore
func (k Keeper) acquireReentrancyLock(ctx context.Context, lockKey string) error {
	store := k.getStore(ctx)
	key := ReentrancyLockKey(lockKey)

	if store.Has(key) {
		return types.ErrReentrancy.Wrapf("pool %s is already locked", lockKey)
	}

	store.Set(key, []byte{0x01})
	return nil
}

// releaseReentrancyLock releases a reentrancy lock from the KVStore
func (k Keeper) releaseReentrancyLock(ctx context.Context, lockKey string) {
	k.getStore(ctx).Delete(ReentrancyLockKey(lockKey))
}

// runAtomic runs fn on a branch of the multistore. The branch, including
// the events fn emitted, is committed to ctx only when fn succeeds.
func (k Keeper) runAtomic(ctx context.Context, fn func(cacheCtx sdk.Context) error) error {
	sdkCtx := sdk.UnwrapSDKContext(ctx)
	cms := sdkCtx.MultiStore().CacheMultiStore()
	cacheCtx := sdkCtx.WithMultiStore(cms).WithEventManager(sdk.NewEventManager())

	if err := fn(cacheCtx); err != nil {
		return err
	}

	cms.Write()
	sdkCtx.EventManager().EmitEvents(cacheCtx.EventManager().Events())
	return nil
}

// poolOperation describes one state-mutating call on a pool.
type poolOperation struct {
	name   string
	poolID string
	actor  sdk.AccAddress
	// swap is set for swaps only; it enables the slippage stage.
	swap *SwapRequest
	// allowInactive lets providers withdraw from a deactivated pool.
	allowInactive bool
	run           func(ctx sdk.Context, pool *types.Pool, req *GuardRequest) error
}

// executePoolOperation is the single entry path for state-mutating pool
// calls: lock, branch, load, guard pipeline, mutate, record the action for
// the MEV throttle and commit. A circuit breaker trip raised by the pipeline
// is written to ctx after the branch has been discarded.
func (k Keeper) executePoolOperation(ctx context.Context, op poolOperation) error {
	sdkCtx := sdk.UnwrapSDKContext(ctx)
	if err := types.ValidatePoolID(op.poolID); err != nil {
		return err
	}
	if err := sdk.VerifyAddressFormat(op.actor); err != nil {
		return types.ErrValidation.Wrapf("invalid caller: %s", err)
	}

	return k.WithReentrancyGuard(sdkCtx, op.poolID, func() error {
		var req *GuardRequest
		err := k.runAtomic(sdkCtx, func(cacheCtx sdk.Context) error {
			pool, err := k.GetPool(cacheCtx, op.poolID)
			if err != nil {
				return err
			}
			if !pool.Active && !op.allowInactive {
				return types.ErrValidation.Wrapf("pool %s is inactive", pool.Id)
			}
			params, err := k.GetParams(cacheCtx)
			if err != nil {
				return err
			}

			req = &GuardRequest{
				Operation: op.name,
				Actor:     op.actor,
				Pool:      *pool,
				Params:    params,
				Height:    cacheCtx.BlockHeight(),
				Swap:      op.swap,
			}
			if res := k.RunGuards(cacheCtx, req); !res.Passed() {
				k.metrics.GuardRejections.WithLabelValues(res.Stage).Inc()
				return res.Err
			}

			if err := op.run(cacheCtx, pool, req); err != nil {
				return err
			}
			k.setLastActionBlock(cacheCtx, op.poolID, op.actor, cacheCtx.BlockHeight())
			return nil
		})

		if req != nil && req.Trip != nil {
			if tripErr := k.tripCircuitBreaker(sdkCtx, op.poolID, *req.Trip); tripErr != nil {
				k.Logger(sdkCtx).Error("failed to persist circuit breaker trip", "pool_id", op.poolID, "error", tripErr)
			}
		}
		return err
	})
}

// runAdminOperation runs a privileged pool action under the pool lock on a
// branched store. It bypasses the guard pipeline.
func (k Keeper) runAdminOperation(ctx context.Context, poolID string, fn func(cacheCtx sdk.Context, pool *types.Pool) error) error {
	if err := types.ValidatePoolID(poolID); err != nil {
		return err
	}
	return k.WithReentrancyGuard(ctx, poolID, func() error {
		return k.runAtomic(ctx, func(cacheCtx sdk.Context) error {
			pool, err := k.GetPool(cacheCtx, poolID)
			if err != nil {
				return err
			}
			return fn(cacheCtx, pool)
		})
	})
}

// IsPoolLocked reports whether a call on poolID is currently in flight.
func (k Keeper) IsPoolLocked(ctx context.Context, poolID string) bool {
	return k.locks.Held(poolID) || k.getStore(ctx).Has(ReentrancyLockKey(poolID))
}
