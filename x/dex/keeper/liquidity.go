package keeper

import (
	"context"
	"encoding/hex"
	"fmt"

	"cosmossdk.io/math"
	storetypes "cosmossdk.io/store/types"
	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/paw-chain/pawamm/x/dex/types"
)

// GetLiquidityPosition returns the shares a provider holds in a pool.
func (k Keeper) GetLiquidityPosition(ctx context.Context, poolID string, provider sdk.AccAddress) (math.Int, error) {
	bz := k.getStore(ctx).Get(LiquidityKey(poolID, provider))
	if bz == nil {
		return math.ZeroInt(), nil
	}

	var shares math.Int
	if err := shares.Unmarshal(bz); err != nil {
		return math.Int{}, fmt.Errorf("GetLiquidityPosition: unmarshal: %w", err)
	}
	return shares, nil
}

// setLiquidityPosition stores a position; a zero balance removes it.
func (k Keeper) setLiquidityPosition(ctx context.Context, poolID string, provider sdk.AccAddress, shares math.Int) error {
	store := k.getStore(ctx)
	key := LiquidityKey(poolID, provider)
	if shares.IsZero() {
		store.Delete(key)
		return nil
	}

	bz, err := shares.Marshal()
	if err != nil {
		return fmt.Errorf("setLiquidityPosition: marshal: %w", err)
	}
	store.Set(key, bz)
	return nil
}

// GetPoolPositions returns every position of a pool.
func (k Keeper) GetPoolPositions(ctx context.Context, poolID string) ([]types.LiquidityPosition, error) {
	var positions []types.LiquidityPosition
	err := k.iteratePositions(ctx, LiquidityPoolPrefix(poolID), func(pos types.LiquidityPosition) bool {
		positions = append(positions, pos)
		return false
	})
	return positions, err
}

func (k Keeper) iteratePositions(ctx context.Context, keyPrefix []byte, cb func(types.LiquidityPosition) (stop bool)) error {
	iter := storetypes.KVStorePrefixIterator(k.getStore(ctx), keyPrefix)
	defer iter.Close()

	for ; iter.Valid(); iter.Next() {
		key := iter.Key()[len(LiquidityKeyPrefix):]
		if len(key) < poolIDLen {
			return fmt.Errorf("malformed liquidity key %X", iter.Key())
		}
		var shares math.Int
		if err := shares.Unmarshal(iter.Value()); err != nil {
			return fmt.Errorf("iteratePositions: unmarshal: %w", err)
		}
		pos := types.LiquidityPosition{
			PoolId:   hex.EncodeToString(key[:poolIDLen]),
			Provider: sdk.AccAddress(key[poolIDLen:]).String(),
			Shares:   shares,
		}
		if cb(pos) {
			break
		}
	}
	return nil
}

// AddLiquidity deposits a token pair into a pool and mints shares to
// recipient. The first deposit mints floor(sqrt(a*b)) minus the permanently
// locked minimum liquidity; later deposits are clamped to the reserve ratio
// and mint proportionally to the outstanding shares.
func (k Keeper) AddLiquidity(
	ctx context.Context,
	caller sdk.AccAddress,
	poolID string,
	amountADesired, amountBDesired, amountAMin, amountBMin math.Int,
	recipient sdk.AccAddress,
) (amountA, amountB, liquidity math.Int, err error) {
	if err := validatePositive("amount A desired", amountADesired); err != nil {
		return math.Int{}, math.Int{}, math.Int{}, err
	}
	if err := validatePositive("amount B desired", amountBDesired); err != nil {
		return math.Int{}, math.Int{}, math.Int{}, err
	}
	if err := validateNonNegative("amount A min", amountAMin); err != nil {
		return math.Int{}, math.Int{}, math.Int{}, err
	}
	if err := validateNonNegative("amount B min", amountBMin); err != nil {
		return math.Int{}, math.Int{}, math.Int{}, err
	}
	if err := sdk.VerifyAddressFormat(recipient); err != nil {
		return math.Int{}, math.Int{}, math.Int{}, types.ErrValidation.Wrapf("invalid recipient: %s", err)
	}

	var tokenA, tokenB string
	var reserveA, reserveB float64
	err = k.executePoolOperation(ctx, poolOperation{
		name:   "add_liquidity",
		poolID: poolID,
		actor:  caller,
		run: func(cacheCtx sdk.Context, pool *types.Pool, req *GuardRequest) error {
			amountA, amountB, liquidity, err = calculateDeposit(*pool, req.Params.MinimumLiquidity,
				amountADesired, amountBDesired, amountAMin, amountBMin)
			if err != nil {
				return err
			}

			// Effects
			k.updateCumulativePrices(cacheCtx, pool)
			if pool.ReserveA, err = safeAdd(pool.ReserveA, amountA); err != nil {
				return err
			}
			if pool.ReserveB, err = safeAdd(pool.ReserveB, amountB); err != nil {
				return err
			}
			if pool.TotalLiquidity, err = safeAdd(pool.TotalLiquidity, liquidity); err != nil {
				return err
			}
			if err := k.SetPool(cacheCtx, pool); err != nil {
				return err
			}
			k.recordObservation(cacheCtx, pool)

			shares, err := k.GetLiquidityPosition(cacheCtx, pool.Id, recipient)
			if err != nil {
				return err
			}
			if shares, err = safeAdd(shares, liquidity); err != nil {
				return err
			}
			if err := k.setLiquidityPosition(cacheCtx, pool.Id, recipient, shares); err != nil {
				return err
			}

			// Interactions
			if err := k.pullTokens(cacheCtx, pool, pool.TokenA, caller, amountA); err != nil {
				return err
			}
			if err := k.pullTokens(cacheCtx, pool, pool.TokenB, caller, amountB); err != nil {
				return err
			}

			if k.hooks != nil {
				if err := k.hooks.AfterLiquidityChanged(cacheCtx, pool.Id, recipient.String(), amountA, amountB, true); err != nil {
					return err
				}
			}

			cacheCtx.EventManager().EmitEvent(
				sdk.NewEvent(
					types.EventTypeLiquidityAdded,
					sdk.NewAttribute(types.AttributeKeyPoolID, pool.Id),
					sdk.NewAttribute(types.AttributeKeyProvider, caller.String()),
					sdk.NewAttribute(types.AttributeKeyRecipient, recipient.String()),
					sdk.NewAttribute(types.AttributeKeyAmountA, amountA.String()),
					sdk.NewAttribute(types.AttributeKeyAmountB, amountB.String()),
					sdk.NewAttribute(types.AttributeKeyLiquidity, liquidity.String()),
				),
			)

			tokenA, tokenB = pool.TokenA, pool.TokenB
			reserveA, reserveB = intToFloat(pool.ReserveA), intToFloat(pool.ReserveB)
			return nil
		},
	})
	if err != nil {
		return math.Int{}, math.Int{}, math.Int{}, err
	}

	k.metrics.LiquidityAdded.WithLabelValues(poolID).Inc()
	k.metrics.recordReserves(poolID, tokenA, tokenB, reserveA, reserveB)
	return amountA, amountB, liquidity, nil
}

// calculateDeposit resolves the amounts taken and the shares minted for a
// deposit into pool.
func calculateDeposit(
	pool types.Pool,
	minimumLiquidity math.Int,
	amountADesired, amountBDesired, amountAMin, amountBMin math.Int,
) (amountA, amountB, liquidity math.Int, err error) {
	if pool.TotalLiquidity.IsZero() {
		product, err := safeMul(amountADesired, amountBDesired)
		if err != nil {
			return math.Int{}, math.Int{}, math.Int{}, err
		}
		root, err := sqrtFloor(product)
		if err != nil {
			return math.Int{}, math.Int{}, math.Int{}, err
		}
		if root.LTE(minimumLiquidity) {
			return math.Int{}, math.Int{}, math.Int{}, types.ErrValidation.Wrapf(
				"initial liquidity %s must exceed the locked minimum %s", root, minimumLiquidity)
		}
		amountA, amountB = amountADesired, amountBDesired
		liquidity = root.Sub(minimumLiquidity)
	} else {
		amountBOptimal, err := mulDiv(amountADesired, pool.ReserveB, pool.ReserveA)
		if err != nil {
			return math.Int{}, math.Int{}, math.Int{}, err
		}
		if amountBOptimal.LTE(amountBDesired) {
			amountA, amountB = amountADesired, amountBOptimal
		} else {
			amountAOptimal, err := mulDiv(amountBDesired, pool.ReserveA, pool.ReserveB)
			if err != nil {
				return math.Int{}, math.Int{}, math.Int{}, err
			}
			amountA, amountB = amountAOptimal, amountBDesired
		}

		sharesA, err := mulDiv(amountA, pool.TotalLiquidity, pool.ReserveA)
		if err != nil {
			return math.Int{}, math.Int{}, math.Int{}, err
		}
		sharesB, err := mulDiv(amountB, pool.TotalLiquidity, pool.ReserveB)
		if err != nil {
			return math.Int{}, math.Int{}, math.Int{}, err
		}
		liquidity = math.MinInt(sharesA, sharesB)
	}

	if amountA.LT(amountAMin) || amountB.LT(amountBMin) {
		return math.Int{}, math.Int{}, math.Int{}, types.ErrSlippage.Wrapf(
			"deposit %s/%s below minimums %s/%s", amountA, amountB, amountAMin, amountBMin)
	}
	if !amountA.IsPositive() || !amountB.IsPositive() || !liquidity.IsPositive() {
		return math.Int{}, math.Int{}, math.Int{}, types.ErrValidation.Wrapf(
			"deposit %s/%s too small to mint shares", amountA, amountB)
	}
	return amountA, amountB, liquidity, nil
}

// RemoveLiquidity burns caller shares and returns the proportional reserves
// to the caller. Providers may withdraw from an inactive pool.
func (k Keeper) RemoveLiquidity(
	ctx context.Context,
	caller sdk.AccAddress,
	poolID string,
	liquidity, amountAMin, amountBMin math.Int,
) (amountA, amountB math.Int, err error) {
	if err := validatePositive("liquidity", liquidity); err != nil {
		return math.Int{}, math.Int{}, err
	}
	if err := validateNonNegative("amount A min", amountAMin); err != nil {
		return math.Int{}, math.Int{}, err
	}
	if err := validateNonNegative("amount B min", amountBMin); err != nil {
		return math.Int{}, math.Int{}, err
	}

	var tokenA, tokenB string
	var reserveA, reserveB float64
	err = k.executePoolOperation(ctx, poolOperation{
		name:          "remove_liquidity",
		poolID:        poolID,
		actor:         caller,
		allowInactive: true,
		run: func(cacheCtx sdk.Context, pool *types.Pool, _ *GuardRequest) error {
			shares, err := k.GetLiquidityPosition(cacheCtx, pool.Id, caller)
			if err != nil {
				return err
			}
			if shares.LT(liquidity) {
				return types.ErrValidation.Wrapf("insufficient shares: have %s, burning %s", shares, liquidity)
			}

			if amountA, err = mulDiv(liquidity, pool.ReserveA, pool.TotalLiquidity); err != nil {
				return err
			}
			if amountB, err = mulDiv(liquidity, pool.ReserveB, pool.TotalLiquidity); err != nil {
				return err
			}
			if amountA.LT(amountAMin) || amountB.LT(amountBMin) {
				return types.ErrSlippage.Wrapf("withdrawal %s/%s below minimums %s/%s", amountA, amountB, amountAMin, amountBMin)
			}
			if !amountA.IsPositive() || !amountB.IsPositive() {
				return types.ErrValidation.Wrapf("burning %s shares returns nothing", liquidity)
			}

			// Effects
			k.updateCumulativePrices(cacheCtx, pool)
			if pool.ReserveA, err = safeSub(pool.ReserveA, amountA); err != nil {
				return err
			}
			if pool.ReserveB, err = safeSub(pool.ReserveB, amountB); err != nil {
				return err
			}
			if pool.TotalLiquidity, err = safeSub(pool.TotalLiquidity, liquidity); err != nil {
				return err
			}
			if err := k.SetPool(cacheCtx, pool); err != nil {
				return err
			}
			k.recordObservation(cacheCtx, pool)

			if err := k.setLiquidityPosition(cacheCtx, pool.Id, caller, shares.Sub(liquidity)); err != nil {
				return err
			}

			// Interactions
			if err := k.pushTokens(cacheCtx, pool, pool.TokenA, caller, amountA); err != nil {
				return err
			}
			if err := k.pushTokens(cacheCtx, pool, pool.TokenB, caller, amountB); err != nil {
				return err
			}

			if k.hooks != nil {
				if err := k.hooks.AfterLiquidityChanged(cacheCtx, pool.Id, caller.String(), amountA, amountB, false); err != nil {
					return err
				}
			}

			cacheCtx.EventManager().EmitEvent(
				sdk.NewEvent(
					types.EventTypeLiquidityRemoved,
					sdk.NewAttribute(types.AttributeKeyPoolID, pool.Id),
					sdk.NewAttribute(types.AttributeKeyProvider, caller.String()),
					sdk.NewAttribute(types.AttributeKeyAmountA, amountA.String()),
					sdk.NewAttribute(types.AttributeKeyAmountB, amountB.String()),
					sdk.NewAttribute(types.AttributeKeyLiquidity, liquidity.String()),
				),
			)

			tokenA, tokenB = pool.TokenA, pool.TokenB
			reserveA, reserveB = intToFloat(pool.ReserveA), intToFloat(pool.ReserveB)
			return nil
		},
	})
	if err != nil {
		return math.Int{}, math.Int{}, err
	}

	k.metrics.LiquidityRemoved.WithLabelValues(poolID).Inc()
	k.metrics.recordReserves(poolID, tokenA, tokenB, reserveA, reserveB)
	return amountA, amountB, nil
}

// pullTokens moves amount of denom from owner into the pool escrow. The
// escrow is the spender, so owner must have approved it.
func (k Keeper) pullTokens(ctx sdk.Context, pool *types.Pool, denom string, owner sdk.AccAddress, amount math.Int) error {
	if amount.IsZero() {
		return nil
	}
	escrow := pool.GetAddress()
	if err := k.ledger.TransferFrom(ctx, denom, escrow, owner, escrow, amount); err != nil {
		return types.ErrValidation.Wrapf("transfer %s%s from %s to pool %s: %s", amount, denom, owner, pool.Id, err)
	}
	return nil
}

// pushTokens moves amount of denom out of the pool escrow to recipient.
func (k Keeper) pushTokens(ctx sdk.Context, pool *types.Pool, denom string, recipient sdk.AccAddress, amount math.Int) error {
	if amount.IsZero() {
		return nil
	}
	if err := k.ledger.Transfer(ctx, denom, pool.GetAddress(), recipient, amount); err != nil {
		return types.ErrValidation.Wrapf("transfer %s%s from pool %s to %s: %s", amount, denom, pool.Id, recipient, err)
	}
	return nil
}

func validatePositive(name string, amount math.Int) error {
	if amount.IsNil() || !amount.IsPositive() {
		return types.ErrValidation.Wrapf("%s must be positive", name)
	}
	return nil
}

func validateNonNegative(name string, amount math.Int) error {
	if amount.IsNil() || amount.IsNegative() {
		return types.ErrValidation.Wrapf("%s must be non-negative", name)
	}
	return nil
}

func intToFloat(i math.Int) float64 {
	f, _ := i.ToLegacyDec().Float64()
	return f
}
