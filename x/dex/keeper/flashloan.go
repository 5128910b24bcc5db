package keeper

import (
	"context"
	"encoding/json"
	"fmt"

	"cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/paw-chain/pawamm/x/dex/types"
)

// FlashLoanCallback runs while the borrower holds the loan. ctx is the
// loan's branched context; repayment must go through the token ledger on it.
type FlashLoanCallback func(ctx context.Context, token string, amount, fee math.Int) error

// FlashLoan lends amount of token from a pool's reserves for the duration of
// callback. When callback returns, the pool escrow must hold at least its
// prior balance plus the fee; otherwise every effect of the call, including
// the outbound transfer, is discarded. The fee and any surplus join the
// reserves.
func (k Keeper) FlashLoan(
	ctx context.Context,
	borrower sdk.AccAddress,
	poolID, token string,
	amount math.Int,
	callback FlashLoanCallback,
) (math.Int, error) {
	if err := validatePositive("flash loan amount", amount); err != nil {
		return math.Int{}, err
	}
	if callback == nil {
		return math.Int{}, types.ErrValidation.Wrap("flash loan requires a callback")
	}

	var fee math.Int
	err := k.executePoolOperation(ctx, poolOperation{
		name:   "flash_loan",
		poolID: poolID,
		actor:  borrower,
		run: func(cacheCtx sdk.Context, pool *types.Pool, req *GuardRequest) error {
			if !pool.HasToken(token) {
				return types.ErrValidation.Wrapf("token %s is not in pool %s", token, pool.Id)
			}
			inputIsTokenA := token == pool.TokenA
			reserve, _ := pool.Reserves(inputIsTokenA)
			if amount.GT(reserve) {
				return types.ErrValidation.Wrapf("flash loan of %s%s exceeds reserve %s", amount, token, reserve)
			}

			var err error
			fee, err = mulDiv(amount, math.NewIntFromUint64(uint64(req.Params.FlashLoanFeeBps)), math.NewInt(types.BasisPoints))
			if err != nil {
				return err
			}
			owed, err := safeAdd(amount, fee)
			if err != nil {
				return err
			}

			escrow := pool.GetAddress()
			balanceBefore := k.ledger.BalanceOf(cacheCtx, token, escrow)
			required, err := safeAdd(balanceBefore, fee)
			if err != nil {
				return err
			}

			if err := k.setFlashLoanDebt(cacheCtx, pool.Id, types.FlashLoanDebt{
				Borrower: borrower.String(),
				Token:    token,
				Amount:   owed,
			}); err != nil {
				return err
			}
			if err := k.pushTokens(cacheCtx, pool, token, borrower, amount); err != nil {
				return err
			}

			if err := callback(cacheCtx, token, amount, fee); err != nil {
				if types.ErrorKind(err) != "" {
					return err
				}
				return types.ErrFlashLoanRepayment.Wrapf("borrower callback failed: %s", err)
			}

			balanceAfter := k.ledger.BalanceOf(cacheCtx, token, escrow)
			if balanceAfter.LT(required) {
				return types.ErrFlashLoanRepayment.Wrapf(
					"pool %s holds %s%s after the loan, needs %s (short by %s)",
					pool.Id, balanceAfter, token, required, required.Sub(balanceAfter),
				)
			}

			// The loan is settled; fee and surplus become reserves.
			surplus, err := safeSub(balanceAfter, balanceBefore)
			if err != nil {
				return err
			}
			k.updateCumulativePrices(cacheCtx, pool)
			reserveIn, reserveOut := pool.Reserves(inputIsTokenA)
			newReserve, err := safeAdd(reserveIn, surplus)
			if err != nil {
				return err
			}
			pool.SetReserves(inputIsTokenA, newReserve, reserveOut)
			if err := k.SetPool(cacheCtx, pool); err != nil {
				return err
			}
			k.recordObservation(cacheCtx, pool)
			k.clearFlashLoanDebt(cacheCtx, pool.Id)

			cacheCtx.EventManager().EmitEvent(
				sdk.NewEvent(
					types.EventTypeFlashLoan,
					sdk.NewAttribute(types.AttributeKeyPoolID, pool.Id),
					sdk.NewAttribute(types.AttributeKeyBorrower, borrower.String()),
					sdk.NewAttribute(types.AttributeKeyToken, token),
					sdk.NewAttribute(types.AttributeKeyAmount, amount.String()),
					sdk.NewAttribute(types.AttributeKeyFee, fee.String()),
				),
			)
			return nil
		},
	})
	if err != nil {
		return math.Int{}, err
	}

	k.metrics.FlashLoansTotal.WithLabelValues(poolID, token).Inc()
	k.metrics.FlashLoanFees.WithLabelValues(poolID, token).Add(intToFloat(fee))
	return fee, nil
}

// GetFlashLoanDebt returns the debt of the flash loan in flight on a pool.
// Outside a loan callback it always reports false.
func (k Keeper) GetFlashLoanDebt(ctx context.Context, poolID string) (types.FlashLoanDebt, bool, error) {
	bz := k.getStore(ctx).Get(FlashLoanDebtKey(poolID))
	if bz == nil {
		return types.FlashLoanDebt{}, false, nil
	}
	var debt types.FlashLoanDebt
	if err := json.Unmarshal(bz, &debt); err != nil {
		return types.FlashLoanDebt{}, false, fmt.Errorf("GetFlashLoanDebt: unmarshal: %w", err)
	}
	return debt, true, nil
}

func (k Keeper) setFlashLoanDebt(ctx context.Context, poolID string, debt types.FlashLoanDebt) error {
	bz, err := json.Marshal(debt)
	if err != nil {
		return fmt.Errorf("setFlashLoanDebt: marshal: %w", err)
	}
	k.getStore(ctx).Set(FlashLoanDebtKey(poolID), bz)
	return nil
}

func (k Keeper) clearFlashLoanDebt(ctx context.Context, poolID string) {
	k.getStore(ctx).Delete(FlashLoanDebtKey(poolID))
}
