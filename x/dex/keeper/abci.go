package keeper

import (
	"context"
	"fmt"

	storetypes "cosmossdk.io/store/types"
	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/paw-chain/pawamm/x/dex/types"
)

// EndBlocker is called at the end of every block.
// It drops throttle records that can no longer affect the next block.
func (k Keeper) EndBlocker(ctx context.Context) error {
	sdkCtx := sdk.UnwrapSDKContext(ctx)

	cleaned, err := k.CleanupStaleActionRecords(ctx)
	if err != nil {
		// Don't return error - log and continue to keep blocks flowing
		sdkCtx.Logger().Error("failed to cleanup throttle records", "module", "x/"+types.ModuleName, "error", err)
		return nil
	}

	if cleaned > 0 {
		sdkCtx.EventManager().EmitEvent(
			sdk.NewEvent(
				types.EventTypeActionRecordsCleaned,
				sdk.NewAttribute(types.AttributeKeyHeight, fmt.Sprintf("%d", sdkCtx.BlockHeight())),
				sdk.NewAttribute(types.AttributeKeyCount, fmt.Sprintf("%d", cleaned)),
			),
		)
	}
	return nil
}

// CleanupStaleActionRecords removes last-action entries old enough that the
// MEV throttle would let their owner act again in the next block. A zero
// MinBlockDelay disables the throttle, so every record is stale.
func (k Keeper) CleanupStaleActionRecords(ctx context.Context) (int, error) {
	sdkCtx := sdk.UnwrapSDKContext(ctx)
	params, err := k.GetParams(ctx)
	if err != nil {
		return 0, err
	}
	nextHeight := sdkCtx.BlockHeight() + 1

	store := k.getStore(ctx)
	iter := storetypes.KVStorePrefixIterator(store, LastActionKeyPrefix)

	var stale [][]byte
	for ; iter.Valid(); iter.Next() {
		bz := iter.Value()
		if len(bz) != 8 {
			stale = append(stale, append([]byte{}, iter.Key()...))
			continue
		}
		last := int64(sdk.BigEndianToUint64(bz))
		if nextHeight-last >= params.MinBlockDelay {
			stale = append(stale, append([]byte{}, iter.Key()...))
		}
	}
	iter.Close()

	for _, key := range stale {
		store.Delete(key)
	}
	return len(stale), nil
}
