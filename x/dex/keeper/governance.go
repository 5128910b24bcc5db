package keeper

import (
	"context"
	"encoding/binary"
	"strconv"

	storetypes "cosmossdk.io/store/types"
	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/paw-chain/pawamm/x/dex/types"
)

// IsGovernanceMember reports whether addr belongs to the governance set.
func (k Keeper) IsGovernanceMember(ctx context.Context, addr sdk.AccAddress) bool {
	if addr.Empty() {
		return false
	}
	return k.getStore(ctx).Has(GovMemberKey(addr))
}

// IsEmergencyOperator reports whether addr holds the emergency operator role.
func (k Keeper) IsEmergencyOperator(ctx context.Context, addr sdk.AccAddress) bool {
	if addr.Empty() {
		return false
	}
	return k.getStore(ctx).Has(EmergencyOperatorKey(addr))
}

// IsAuthorized reports whether addr may perform emergency actions: pausing,
// unpausing and resetting circuit breakers.
func (k Keeper) IsAuthorized(ctx context.Context, addr sdk.AccAddress) bool {
	return k.IsGovernanceMember(ctx, addr) || k.IsEmergencyOperator(ctx, addr)
}

// GovMemberCount returns the maintained governance set cardinality.
func (k Keeper) GovMemberCount(ctx context.Context) uint64 {
	bz := k.getStore(ctx).Get(GovMemberCountKey)
	if len(bz) != 8 {
		return 0
	}
	return binary.BigEndian.Uint64(bz)
}

func (k Keeper) setGovMemberCount(ctx context.Context, n uint64) {
	k.getStore(ctx).Set(GovMemberCountKey, sdk.Uint64ToBigEndian(n))
}

// GetGovMembers returns every governance member in address order.
func (k Keeper) GetGovMembers(ctx context.Context) []sdk.AccAddress {
	return k.collectAddresses(ctx, GovMemberKeyPrefix)
}

// GetEmergencyOperators returns every emergency operator in address order.
func (k Keeper) GetEmergencyOperators(ctx context.Context) []sdk.AccAddress {
	return k.collectAddresses(ctx, EmergencyOperatorKeyPrefix)
}

func (k Keeper) collectAddresses(ctx context.Context, prefix []byte) []sdk.AccAddress {
	iter := storetypes.KVStorePrefixIterator(k.getStore(ctx), prefix)
	defer iter.Close()

	var addrs []sdk.AccAddress
	for ; iter.Valid(); iter.Next() {
		addrs = append(addrs, sdk.AccAddress(append([]byte{}, iter.Key()[len(prefix):]...)))
	}
	return addrs
}

// setGovMember adds addr to the governance set and bumps the cardinality.
// It reports false when addr was already a member.
func (k Keeper) setGovMember(ctx context.Context, addr sdk.AccAddress) bool {
	if k.IsGovernanceMember(ctx, addr) {
		return false
	}
	k.getStore(ctx).Set(GovMemberKey(addr), []byte{0x01})
	k.setGovMemberCount(ctx, k.GovMemberCount(ctx)+1)
	return true
}

func (k Keeper) requireGovernance(ctx context.Context, caller sdk.AccAddress, action string) error {
	if !k.IsGovernanceMember(ctx, caller) {
		return types.ErrAuthorization.Wrapf("%s: %s is not a governance member", action, caller)
	}
	return nil
}

func (k Keeper) requireAuthorized(ctx context.Context, caller sdk.AccAddress, action string) error {
	if !k.IsAuthorized(ctx, caller) {
		return types.ErrAuthorization.Wrapf("%s: %s is not authorized", action, caller)
	}
	return nil
}

// AddGovMember adds addr to the governance set. Only governance members may call it.
func (k Keeper) AddGovMember(ctx context.Context, caller, addr sdk.AccAddress) error {
	return k.runAtomic(ctx, func(cacheCtx sdk.Context) error {
		if err := k.requireGovernance(cacheCtx, caller, "add governance member"); err != nil {
			return err
		}
		if err := sdk.VerifyAddressFormat(addr); err != nil {
			return types.ErrValidation.Wrapf("invalid member address: %s", err)
		}
		if !k.setGovMember(cacheCtx, addr) {
			return types.ErrValidation.Wrapf("%s is already a governance member", addr)
		}

		count := k.GovMemberCount(cacheCtx)
		cacheCtx.EventManager().EmitEvent(
			sdk.NewEvent(
				types.EventTypeGovMemberAdded,
				sdk.NewAttribute(types.AttributeKeyActor, caller.String()),
				sdk.NewAttribute(types.AttributeKeyMember, addr.String()),
				sdk.NewAttribute(types.AttributeKeyMemberCount, strconv.FormatUint(count, 10)),
			),
		)
		k.Logger(cacheCtx).Info("governance member added", "member", addr.String(), "by", caller.String(), "count", count)
		return nil
	})
}

// RemoveGovMember removes addr from the governance set. The set never drops
// below one member.
func (k Keeper) RemoveGovMember(ctx context.Context, caller, addr sdk.AccAddress) error {
	return k.runAtomic(ctx, func(cacheCtx sdk.Context) error {
		if err := k.requireGovernance(cacheCtx, caller, "remove governance member"); err != nil {
			return err
		}
		if !k.IsGovernanceMember(cacheCtx, addr) {
			return types.ErrValidation.Wrapf("%s is not a governance member", addr)
		}
		count := k.GovMemberCount(cacheCtx)
		if count <= 1 {
			return types.ErrGovernance.Wrap("cannot remove the last governance member")
		}

		k.getStore(cacheCtx).Delete(GovMemberKey(addr))
		k.setGovMemberCount(cacheCtx, count-1)

		cacheCtx.EventManager().EmitEvent(
			sdk.NewEvent(
				types.EventTypeGovMemberRemoved,
				sdk.NewAttribute(types.AttributeKeyActor, caller.String()),
				sdk.NewAttribute(types.AttributeKeyMember, addr.String()),
				sdk.NewAttribute(types.AttributeKeyMemberCount, strconv.FormatUint(count-1, 10)),
			),
		)
		k.Logger(cacheCtx).Info("governance member removed", "member", addr.String(), "by", caller.String(), "count", count-1)
		return nil
	})
}

// SetEmergencyOperator grants or revokes the emergency operator role.
// Only governance members manage the role.
func (k Keeper) SetEmergencyOperator(ctx context.Context, caller, addr sdk.AccAddress, enabled bool) error {
	return k.runAtomic(ctx, func(cacheCtx sdk.Context) error {
		if err := k.requireGovernance(cacheCtx, caller, "set emergency operator"); err != nil {
			return err
		}
		if err := sdk.VerifyAddressFormat(addr); err != nil {
			return types.ErrValidation.Wrapf("invalid operator address: %s", err)
		}
		if k.IsEmergencyOperator(cacheCtx, addr) == enabled {
			return types.ErrValidation.Wrapf("emergency operator %s already has enabled=%t", addr, enabled)
		}

		store := k.getStore(cacheCtx)
		if enabled {
			store.Set(EmergencyOperatorKey(addr), []byte{0x01})
		} else {
			store.Delete(EmergencyOperatorKey(addr))
		}

		cacheCtx.EventManager().EmitEvent(
			sdk.NewEvent(
				types.EventTypeEmergencyOperatorUpdated,
				sdk.NewAttribute(types.AttributeKeyActor, caller.String()),
				sdk.NewAttribute(types.AttributeKeyOperator, addr.String()),
				sdk.NewAttribute(types.AttributeKeyEnabled, strconv.FormatBool(enabled)),
			),
		)
		k.Logger(cacheCtx).Info("emergency operator updated", "operator", addr.String(), "enabled", enabled, "by", caller.String())
		return nil
	})
}
