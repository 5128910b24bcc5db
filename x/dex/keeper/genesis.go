package keeper

import (
	"context"
	"fmt"

	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/paw-chain/pawamm/x/dex/types"
)

// InitGenesis initializes the dex module's state from a genesis state
func (k Keeper) InitGenesis(ctx context.Context, genState types.GenesisState) error {
	if err := genState.Validate(); err != nil {
		return fmt.Errorf("invalid genesis state: %w", err)
	}

	// Set parameters
	if err := k.SetParams(ctx, genState.Params); err != nil {
		return fmt.Errorf("failed to set params: %w", err)
	}

	// Governance set and emergency operators
	for _, member := range genState.GovMembers {
		addr, err := sdk.AccAddressFromBech32(member)
		if err != nil {
			return fmt.Errorf("invalid governance member %s: %w", member, err)
		}
		k.setGovMember(ctx, addr)
	}
	for _, operator := range genState.EmergencyOperators {
		addr, err := sdk.AccAddressFromBech32(operator)
		if err != nil {
			return fmt.Errorf("invalid emergency operator %s: %w", operator, err)
		}
		k.getStore(ctx).Set(EmergencyOperatorKey(addr), []byte{0x01})
	}

	// Initialize pools
	sdkCtx := sdk.UnwrapSDKContext(ctx)
	for i := range genState.Pools {
		pool := genState.Pools[i]
		if err := k.SetPool(ctx, &pool); err != nil {
			return fmt.Errorf("failed to set pool %s: %w", pool.Id, err)
		}
		k.getStore(ctx).Set(PoolByTokensKey(pool.TokenA, pool.TokenB), []byte(pool.Id))
		k.recordObservation(sdkCtx, &pool)
	}

	// Initialize liquidity positions
	for _, pos := range genState.Positions {
		provider, err := sdk.AccAddressFromBech32(pos.Provider)
		if err != nil {
			return fmt.Errorf("invalid liquidity provider address %s: %w", pos.Provider, err)
		}
		if err := k.setLiquidityPosition(ctx, pos.PoolId, provider, pos.Shares); err != nil {
			return fmt.Errorf("failed to set liquidity position for pool %s, provider %s: %w",
				pos.PoolId, pos.Provider, err)
		}
	}

	return nil
}

// ExportGenesis exports the dex module's state to a genesis state
func (k Keeper) ExportGenesis(ctx context.Context) (*types.GenesisState, error) {
	params, err := k.GetParams(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get params: %w", err)
	}

	pools, err := k.GetAllPools(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get pools: %w", err)
	}

	var positions []types.LiquidityPosition
	if err := k.iteratePositions(ctx, LiquidityKeyPrefix, func(pos types.LiquidityPosition) bool {
		positions = append(positions, pos)
		return false
	}); err != nil {
		return nil, fmt.Errorf("failed to get liquidity positions: %w", err)
	}

	genesis := types.DefaultGenesis()
	genesis.Params = params
	for _, addr := range k.GetGovMembers(ctx) {
		genesis.GovMembers = append(genesis.GovMembers, addr.String())
	}
	for _, addr := range k.GetEmergencyOperators(ctx) {
		genesis.EmergencyOperators = append(genesis.EmergencyOperators, addr.String())
	}
	if pools != nil {
		genesis.Pools = pools
	}
	if positions != nil {
		genesis.Positions = positions
	}
	return genesis, nil
}
