package types

import (
	"fmt"

	sdkmath "cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"
)

// GenesisState is the initial and exported state of the dex module.
type GenesisState struct {
	Params             Params              `json:"params"`
	GovMembers         []string            `json:"gov_members"`
	EmergencyOperators []string            `json:"emergency_operators"`
	Pools              []Pool              `json:"pools"`
	Positions          []LiquidityPosition `json:"positions"`
}

// DefaultGenesis returns the default genesis state for the DEX module. It has
// no governance members; a chain must supply at least one before Validate passes.
func DefaultGenesis() *GenesisState {
	return &GenesisState{
		Params:             DefaultParams(),
		GovMembers:         []string{},
		EmergencyOperators: []string{},
		Pools:              []Pool{},
		Positions:          []LiquidityPosition{},
	}
}

// Validate ensures the genesis state is well-formed.
func (gs GenesisState) Validate() error {
	if err := gs.Params.Validate(); err != nil {
		return fmt.Errorf("invalid params: %w", err)
	}

	if len(gs.GovMembers) == 0 {
		return fmt.Errorf("genesis requires at least one governance member")
	}
	if err := validateAddressSet("governance member", gs.GovMembers); err != nil {
		return err
	}
	if err := validateAddressSet("emergency operator", gs.EmergencyOperators); err != nil {
		return err
	}

	pools := make(map[string]Pool, len(gs.Pools))
	for _, pool := range gs.Pools {
		if err := pool.Validate(); err != nil {
			return fmt.Errorf("invalid pool %s: %w", pool.Id, err)
		}
		if _, dup := pools[pool.Id]; dup {
			return fmt.Errorf("duplicate pool %s", pool.Id)
		}
		pools[pool.Id] = pool
	}

	shares := make(map[string]sdkmath.Int, len(pools))
	seen := make(map[string]struct{}, len(gs.Positions))
	for _, pos := range gs.Positions {
		pool, ok := pools[pos.PoolId]
		if !ok {
			return fmt.Errorf("position references unknown pool %s", pos.PoolId)
		}
		if _, err := sdk.AccAddressFromBech32(pos.Provider); err != nil {
			return fmt.Errorf("invalid position provider %q: %w", pos.Provider, err)
		}
		if pos.Shares.IsNil() || !pos.Shares.IsPositive() {
			return fmt.Errorf("position %s/%s must hold positive shares", pos.PoolId, pos.Provider)
		}
		key := pos.PoolId + "/" + pos.Provider
		if _, dup := seen[key]; dup {
			return fmt.Errorf("duplicate position %s", key)
		}
		seen[key] = struct{}{}
		if cur, ok := shares[pool.Id]; ok {
			shares[pool.Id] = cur.Add(pos.Shares)
		} else {
			shares[pool.Id] = pos.Shares
		}
	}

	for id, pool := range pools {
		total, ok := shares[id]
		if !ok {
			total = sdkmath.ZeroInt()
		}
		if !total.Equal(pool.TotalLiquidity) {
			return fmt.Errorf("pool %s positions sum to %s, total liquidity is %s", id, total, pool.TotalLiquidity)
		}
	}
	return nil
}

func validateAddressSet(label string, addrs []string) error {
	seen := make(map[string]struct{}, len(addrs))
	for _, a := range addrs {
		if _, err := sdk.AccAddressFromBech32(a); err != nil {
			return fmt.Errorf("invalid %s address %q: %w", label, a, err)
		}
		if _, dup := seen[a]; dup {
			return fmt.Errorf("duplicate %s %s", label, a)
		}
		seen[a] = struct{}{}
	}
	return nil
}
