package keeper

import (
	"context"
	"fmt"

	"cosmossdk.io/log"
	sdkmath "cosmossdk.io/math"
	storetypes "cosmossdk.io/store/types"
	sdk "github.com/cosmos/cosmos-sdk/types"
	"github.com/cosmos/cosmos-sdk/types/address"

	dextypes "github.com/paw-chain/pawamm/x/dex/types"
	"github.com/paw-chain/pawamm/x/token/types"
)

var (
	// BalanceKeyPrefix is the prefix for balance store keys
	BalanceKeyPrefix = []byte{0x01}

	// AllowanceKeyPrefix is the prefix for allowance store keys
	AllowanceKeyPrefix = []byte{0x02}
)

// BalanceKey returns the store key for an account balance of denom
func BalanceKey(owner sdk.AccAddress, denom string) []byte {
	key := append([]byte{}, BalanceKeyPrefix...)
	key = append(key, address.MustLengthPrefix(owner)...)
	return append(key, []byte(denom)...)
}

// AllowanceKey returns the store key for an allowance of denom
func AllowanceKey(owner, spender sdk.AccAddress, denom string) []byte {
	key := append([]byte{}, AllowanceKeyPrefix...)
	key = append(key, address.MustLengthPrefix(owner)...)
	key = append(key, address.MustLengthPrefix(spender)...)
	return append(key, []byte(denom)...)
}

// Keeper is a minimal fungible-token ledger keyed by denom. Its state lives
// in the same multistore as its callers, so a discarded branch also discards
// every transfer made on it.
type Keeper struct {
	storeKey storetypes.StoreKey
}

var _ dextypes.TokenLedger = Keeper{}

// NewKeeper creates a new token Keeper instance
func NewKeeper(key storetypes.StoreKey) Keeper {
	return Keeper{storeKey: key}
}

// Logger returns a module-specific logger.
func (k Keeper) Logger(ctx context.Context) log.Logger {
	return sdk.UnwrapSDKContext(ctx).Logger().With("module", fmt.Sprintf("x/%s", types.ModuleName))
}

func (k Keeper) getStore(ctx context.Context) storetypes.KVStore {
	return sdk.UnwrapSDKContext(ctx).KVStore(k.storeKey)
}

func (k Keeper) getAmount(ctx context.Context, key []byte) sdkmath.Int {
	bz := k.getStore(ctx).Get(key)
	if bz == nil {
		return sdkmath.ZeroInt()
	}
	var amount sdkmath.Int
	if err := amount.Unmarshal(bz); err != nil {
		panic(fmt.Errorf("corrupt token amount at %X: %w", key, err))
	}
	return amount
}

func (k Keeper) setAmount(ctx context.Context, key []byte, amount sdkmath.Int) {
	store := k.getStore(ctx)
	if amount.IsZero() {
		store.Delete(key)
		return
	}
	bz, err := amount.Marshal()
	if err != nil {
		panic(fmt.Errorf("marshal token amount: %w", err))
	}
	store.Set(key, bz)
}

// BalanceOf returns owner's balance of denom.
func (k Keeper) BalanceOf(ctx context.Context, denom string, owner sdk.AccAddress) sdkmath.Int {
	return k.getAmount(ctx, BalanceKey(owner, denom))
}

// Allowance returns how much of owner's denom spender may move.
func (k Keeper) Allowance(ctx context.Context, denom string, owner, spender sdk.AccAddress) sdkmath.Int {
	return k.getAmount(ctx, AllowanceKey(owner, spender, denom))
}

// Mint credits amount of denom to `to`.
func (k Keeper) Mint(ctx context.Context, denom string, to sdk.AccAddress, amount sdkmath.Int) error {
	if err := validateTransfer(denom, amount, to); err != nil {
		return err
	}
	balance, err := k.BalanceOf(ctx, denom, to).SafeAdd(amount)
	if err != nil {
		return types.ErrInvalidAmount.Wrapf("mint overflows balance: %s", err)
	}
	k.setAmount(ctx, BalanceKey(to, denom), balance)

	sdk.UnwrapSDKContext(ctx).EventManager().EmitEvent(
		sdk.NewEvent(
			types.EventTypeMint,
			sdk.NewAttribute(types.AttributeKeyDenom, denom),
			sdk.NewAttribute(types.AttributeKeyTo, to.String()),
			sdk.NewAttribute(types.AttributeKeyAmount, amount.String()),
		),
	)
	return nil
}

// Transfer moves amount of denom from `from` to `to`.
func (k Keeper) Transfer(ctx context.Context, denom string, from, to sdk.AccAddress, amount sdkmath.Int) error {
	if err := validateTransfer(denom, amount, from, to); err != nil {
		return err
	}

	fromBalance := k.BalanceOf(ctx, denom, from)
	if fromBalance.LT(amount) {
		return types.ErrInsufficientBalance.Wrapf("%s holds %s%s, needs %s", from, fromBalance, denom, amount)
	}
	toBalance, err := k.BalanceOf(ctx, denom, to).SafeAdd(amount)
	if err != nil {
		return types.ErrInvalidAmount.Wrapf("transfer overflows balance: %s", err)
	}

	// Read both balances before writing so self-transfers are a no-op.
	k.setAmount(ctx, BalanceKey(from, denom), fromBalance.Sub(amount))
	if from.Equals(to) {
		k.setAmount(ctx, BalanceKey(to, denom), fromBalance)
	} else {
		k.setAmount(ctx, BalanceKey(to, denom), toBalance)
	}

	sdk.UnwrapSDKContext(ctx).EventManager().EmitEvent(
		sdk.NewEvent(
			types.EventTypeTransfer,
			sdk.NewAttribute(types.AttributeKeyDenom, denom),
			sdk.NewAttribute(types.AttributeKeyFrom, from.String()),
			sdk.NewAttribute(types.AttributeKeyTo, to.String()),
			sdk.NewAttribute(types.AttributeKeyAmount, amount.String()),
		),
	)
	return nil
}

// TransferFrom moves amount of denom from `from` to `to` on behalf of
// spender, consuming spender's allowance.
func (k Keeper) TransferFrom(ctx context.Context, denom string, spender, from, to sdk.AccAddress, amount sdkmath.Int) error {
	if err := validateTransfer(denom, amount, spender); err != nil {
		return err
	}

	allowance := k.Allowance(ctx, denom, from, spender)
	if allowance.LT(amount) {
		return types.ErrInsufficientAllowance.Wrapf("%s may spend %s%s of %s, needs %s", spender, allowance, denom, from, amount)
	}
	if err := k.Transfer(ctx, denom, from, to, amount); err != nil {
		return err
	}
	k.setAmount(ctx, AllowanceKey(from, spender, denom), allowance.Sub(amount))
	return nil
}

// Approve sets the amount of owner's denom spender may move. It replaces any
// previous allowance.
func (k Keeper) Approve(ctx context.Context, denom string, owner, spender sdk.AccAddress, amount sdkmath.Int) error {
	if amount.IsNil() || amount.IsNegative() {
		return types.ErrInvalidAmount.Wrap("allowance must be non-negative")
	}
	if err := sdk.ValidateDenom(denom); err != nil {
		return types.ErrInvalidDenom.Wrap(err.Error())
	}
	for _, addr := range []sdk.AccAddress{owner, spender} {
		if err := sdk.VerifyAddressFormat(addr); err != nil {
			return types.ErrInvalidAddress.Wrap(err.Error())
		}
	}

	k.setAmount(ctx, AllowanceKey(owner, spender, denom), amount)

	sdk.UnwrapSDKContext(ctx).EventManager().EmitEvent(
		sdk.NewEvent(
			types.EventTypeApproval,
			sdk.NewAttribute(types.AttributeKeyDenom, denom),
			sdk.NewAttribute(types.AttributeKeyOwner, owner.String()),
			sdk.NewAttribute(types.AttributeKeySpender, spender.String()),
			sdk.NewAttribute(types.AttributeKeyAmount, amount.String()),
		),
	)
	return nil
}

func validateTransfer(denom string, amount sdkmath.Int, addrs ...sdk.AccAddress) error {
	if err := sdk.ValidateDenom(denom); err != nil {
		return types.ErrInvalidDenom.Wrap(err.Error())
	}
	if amount.IsNil() || !amount.IsPositive() {
		return types.ErrInvalidAmount.Wrapf("amount must be positive, got %s", amount)
	}
	for _, addr := range addrs {
		if err := sdk.VerifyAddressFormat(addr); err != nil {
			return types.ErrInvalidAddress.Wrap(err.Error())
		}
	}
	return nil
}
