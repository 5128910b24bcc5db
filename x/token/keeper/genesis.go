package keeper

import (
	"context"
	"fmt"

	sdkmath "cosmossdk.io/math"
	storetypes "cosmossdk.io/store/types"
	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/paw-chain/pawamm/x/token/types"
)

// InitGenesis initializes the ledger from a genesis state
func (k Keeper) InitGenesis(ctx context.Context, genState types.GenesisState) error {
	if err := genState.Validate(); err != nil {
		return fmt.Errorf("invalid token genesis: %w", err)
	}

	for _, b := range genState.Balances {
		addr, err := sdk.AccAddressFromBech32(b.Address)
		if err != nil {
			return err
		}
		k.setAmount(ctx, BalanceKey(addr, b.Denom), b.Amount)
	}
	for _, a := range genState.Allowances {
		owner, err := sdk.AccAddressFromBech32(a.Owner)
		if err != nil {
			return err
		}
		spender, err := sdk.AccAddressFromBech32(a.Spender)
		if err != nil {
			return err
		}
		k.setAmount(ctx, AllowanceKey(owner, spender, a.Denom), a.Amount)
	}
	return nil
}

// ExportGenesis exports the ledger to a genesis state
func (k Keeper) ExportGenesis(ctx context.Context) (*types.GenesisState, error) {
	genesis := types.DefaultGenesis()

	err := k.iterate(ctx, BalanceKeyPrefix, func(key []byte, amount sdkmath.Int) error {
		owner, rest, err := splitLengthPrefixed(key)
		if err != nil {
			return err
		}
		genesis.Balances = append(genesis.Balances, types.Balance{
			Address: owner.String(),
			Denom:   string(rest),
			Amount:  amount,
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("export balances: %w", err)
	}

	err = k.iterate(ctx, AllowanceKeyPrefix, func(key []byte, amount sdkmath.Int) error {
		owner, rest, err := splitLengthPrefixed(key)
		if err != nil {
			return err
		}
		spender, denom, err := splitLengthPrefixed(rest)
		if err != nil {
			return err
		}
		genesis.Allowances = append(genesis.Allowances, types.Allowance{
			Owner:   owner.String(),
			Spender: spender.String(),
			Denom:   string(denom),
			Amount:  amount,
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("export allowances: %w", err)
	}
	return genesis, nil
}

func (k Keeper) iterate(ctx context.Context, prefix []byte, cb func(key []byte, amount sdkmath.Int) error) error {
	iter := storetypes.KVStorePrefixIterator(k.getStore(ctx), prefix)
	defer iter.Close()

	for ; iter.Valid(); iter.Next() {
		var amount sdkmath.Int
		if err := amount.Unmarshal(iter.Value()); err != nil {
			return err
		}
		if err := cb(iter.Key()[len(prefix):], amount); err != nil {
			return err
		}
	}
	return nil
}

func splitLengthPrefixed(bz []byte) (sdk.AccAddress, []byte, error) {
	if len(bz) == 0 {
		return nil, nil, fmt.Errorf("empty key")
	}
	n := int(bz[0])
	if len(bz) < 1+n {
		return nil, nil, fmt.Errorf("key %X shorter than its address prefix", bz)
	}
	return sdk.AccAddress(bz[1 : 1+n]), bz[1+n:], nil
}
