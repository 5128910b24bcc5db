package keeper

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	storetypes "cosmossdk.io/store/types"
	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/paw-chain/pawamm/x/dex/types"
)

// CreatePool registers a new pool for a token pair. Only governance members
// may create pools; the pair is stored in sorted order and a pair can exist
// only once, in either order.
func (k Keeper) CreatePool(ctx context.Context, caller sdk.AccAddress, tokenA, tokenB string, feeBps uint32) (string, error) {
	var poolID string
	err := k.runAtomic(ctx, func(cacheCtx sdk.Context) error {
		// 1. Authorization
		if err := k.requireGovernance(cacheCtx, caller, "create pool"); err != nil {
			return err
		}

		// 2. Input validation
		if err := sdk.ValidateDenom(tokenA); err != nil {
			return types.ErrValidation.Wrapf("invalid token %q: %s", tokenA, err)
		}
		if err := sdk.ValidateDenom(tokenB); err != nil {
			return types.ErrValidation.Wrapf("invalid token %q: %s", tokenB, err)
		}
		if tokenA == tokenB {
			return types.ErrValidation.Wrap("cannot create pool with identical tokens")
		}

		params, err := k.GetParams(cacheCtx)
		if err != nil {
			return fmt.Errorf("CreatePool: get params: %w", err)
		}
		if feeBps < params.MinFeeBps || feeBps > params.MaxFeeBps {
			return types.ErrValidation.Wrapf("fee %d bps outside [%d, %d]", feeBps, params.MinFeeBps, params.MaxFeeBps)
		}

		// 3. Check if pool already exists
		tokenA, tokenB = types.SortTokens(tokenA, tokenB)
		if k.getStore(cacheCtx).Has(PoolByTokensKey(tokenA, tokenB)) {
			return types.ErrValidation.Wrapf("pool already exists for token pair %s/%s", tokenA, tokenB)
		}

		// 4. Create and index
		pool := types.NewPool(tokenA, tokenB, feeBps, cacheCtx.BlockTime().Unix())
		if err := k.SetPool(cacheCtx, &pool); err != nil {
			return fmt.Errorf("CreatePool: save pool: %w", err)
		}
		k.getStore(cacheCtx).Set(PoolByTokensKey(tokenA, tokenB), []byte(pool.Id))
		k.recordObservation(cacheCtx, &pool)

		if k.hooks != nil {
			if err := k.hooks.AfterPoolCreated(cacheCtx, pool.Id, tokenA, tokenB, caller.String()); err != nil {
				return err
			}
		}

		cacheCtx.EventManager().EmitEvent(
			sdk.NewEvent(
				types.EventTypePoolCreated,
				sdk.NewAttribute(types.AttributeKeyPoolID, pool.Id),
				sdk.NewAttribute(types.AttributeKeyTokenA, tokenA),
				sdk.NewAttribute(types.AttributeKeyTokenB, tokenB),
				sdk.NewAttribute(types.AttributeKeyFeeBps, strconv.FormatUint(uint64(feeBps), 10)),
				sdk.NewAttribute(types.AttributeKeyCreator, caller.String()),
			),
		)
		k.Logger(cacheCtx).Info("pool created", "pool_id", pool.Id, "token_a", tokenA, "token_b", tokenB, "fee_bps", feeBps)

		poolID = pool.Id
		return nil
	})
	if err != nil {
		return "", err
	}

	k.metrics.PoolsTotal.Inc()
	return poolID, nil
}

// TogglePoolStatus flips a pool between active and inactive. Toggling twice
// restores the original status.
func (k Keeper) TogglePoolStatus(ctx context.Context, caller sdk.AccAddress, poolID string) error {
	return k.runAdminOperation(ctx, poolID, func(cacheCtx sdk.Context, pool *types.Pool) error {
		if err := k.requireGovernance(cacheCtx, caller, "toggle pool status"); err != nil {
			return err
		}

		pool.Active = !pool.Active
		if err := k.SetPool(cacheCtx, pool); err != nil {
			return err
		}

		cacheCtx.EventManager().EmitEvent(
			sdk.NewEvent(
				types.EventTypePoolStatusToggled,
				sdk.NewAttribute(types.AttributeKeyPoolID, pool.Id),
				sdk.NewAttribute(types.AttributeKeyActive, strconv.FormatBool(pool.Active)),
				sdk.NewAttribute(types.AttributeKeyActor, caller.String()),
			),
		)
		k.Logger(cacheCtx).Info("pool status toggled", "pool_id", pool.Id, "active", pool.Active, "by", caller.String())
		return nil
	})
}

// GetPool retrieves a pool by its identifier.
func (k Keeper) GetPool(ctx context.Context, poolID string) (*types.Pool, error) {
	store := k.getStore(ctx)
	bz := store.Get(PoolKey(poolID))
	if bz == nil {
		return nil, types.ErrValidation.Wrapf("pool %s not found", poolID)
	}

	var pool types.Pool
	if err := json.Unmarshal(bz, &pool); err != nil {
		return nil, fmt.Errorf("GetPool: unmarshal pool %s: %w", poolID, err)
	}
	return &pool, nil
}

// SetPool saves a pool to the store
func (k Keeper) SetPool(ctx context.Context, pool *types.Pool) error {
	bz, err := json.Marshal(pool)
	if err != nil {
		return fmt.Errorf("SetPool: marshal pool %s: %w", pool.Id, err)
	}
	k.getStore(ctx).Set(PoolKey(pool.Id), bz)
	return nil
}

// GetPoolByTokens retrieves a pool by its token pair (order-independent).
func (k Keeper) GetPoolByTokens(ctx context.Context, tokenA, tokenB string) (*types.Pool, error) {
	tokenA, tokenB = types.SortTokens(tokenA, tokenB)

	bz := k.getStore(ctx).Get(PoolByTokensKey(tokenA, tokenB))
	if bz == nil {
		return nil, types.ErrValidation.Wrapf("pool not found for token pair %s/%s", tokenA, tokenB)
	}
	return k.GetPool(ctx, string(bz))
}

// IteratePools iterates over all pools
func (k Keeper) IteratePools(ctx context.Context, cb func(pool types.Pool) (stop bool)) error {
	store := k.getStore(ctx)
	iterator := storetypes.KVStorePrefixIterator(store, PoolKeyPrefix)
	defer iterator.Close()

	for ; iterator.Valid(); iterator.Next() {
		var pool types.Pool
		if err := json.Unmarshal(iterator.Value(), &pool); err != nil {
			return fmt.Errorf("IteratePools: unmarshal pool: %w", err)
		}
		if cb(pool) {
			break
		}
	}
	return nil
}

// GetAllPools returns every pool ordered by pool id.
func (k Keeper) GetAllPools(ctx context.Context) ([]types.Pool, error) {
	var pools []types.Pool
	err := k.IteratePools(ctx, func(pool types.Pool) bool {
		pools = append(pools, pool)
		return false
	})
	return pools, err
}
