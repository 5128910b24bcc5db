package keeper

import (
	"context"
	"fmt"

	"cosmossdk.io/log"
	storetypes "cosmossdk.io/store/types"
	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/paw-chain/pawamm/x/dex/types"
)

// Keeper of the dex store
type Keeper struct {
	storeKey storetypes.StoreKey
	ledger   types.TokenLedger
	hooks    types.DexHooks
	locks    *ReentrancyGuard
	pipeline []Guard
	metrics  *DEXMetrics
}

var _ types.GovernanceProvider = Keeper{}

// NewKeeper creates a new dex Keeper instance
func NewKeeper(key storetypes.StoreKey, ledger types.TokenLedger) *Keeper {
	return &Keeper{
		storeKey: key,
		ledger:   ledger,
		locks:    NewReentrancyGuard(),
		pipeline: DefaultGuardPipeline(),
		metrics:  NewDEXMetrics(),
	}
}

// SetHooks sets the dex hooks. It panics if hooks were already set.
func (k *Keeper) SetHooks(hooks types.DexHooks) *Keeper {
	if k.hooks != nil {
		panic("cannot set dex hooks twice")
	}
	k.hooks = hooks
	return k
}

// Logger returns a module-specific logger.
func (k Keeper) Logger(ctx context.Context) log.Logger {
	sdkCtx := sdk.UnwrapSDKContext(ctx)
	return sdkCtx.Logger().With("module", fmt.Sprintf("x/%s", types.ModuleName))
}

// getStore returns the KVStore for the dex module
func (k Keeper) getStore(ctx context.Context) storetypes.KVStore {
	sdkCtx := sdk.UnwrapSDKContext(ctx)
	return sdkCtx.KVStore(k.storeKey)
}

// Pipeline returns the ordered names of the guard stages every pool
// operation passes through.
func (k Keeper) Pipeline() []string {
	names := make([]string, 0, len(k.pipeline)+1)
	names = append(names, StageReentrancyLock)
	for _, g := range k.pipeline {
		names = append(names, g.Name)
	}
	return names
}
