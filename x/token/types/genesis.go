package types

import (
	"fmt"

	sdkmath "cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"
)

// Balance is an account's holding of one denom.
type Balance struct {
	Address string      `json:"address" mapstructure:"address"`
	Denom   string      `json:"denom" mapstructure:"denom"`
	Amount  sdkmath.Int `json:"amount" mapstructure:"amount"`
}

// Allowance is the amount spender may move out of owner's balance.
type Allowance struct {
	Owner   string      `json:"owner"`
	Spender string      `json:"spender"`
	Denom   string      `json:"denom"`
	Amount  sdkmath.Int `json:"amount"`
}

// GenesisState is the initial and exported state of the token ledger.
type GenesisState struct {
	Balances   []Balance   `json:"balances"`
	Allowances []Allowance `json:"allowances"`
}

// DefaultGenesis returns an empty ledger.
func DefaultGenesis() *GenesisState {
	return &GenesisState{
		Balances:   []Balance{},
		Allowances: []Allowance{},
	}
}

// Validate ensures the genesis state is well-formed.
func (gs GenesisState) Validate() error {
	seen := make(map[string]struct{}, len(gs.Balances))
	for _, b := range gs.Balances {
		if _, err := sdk.AccAddressFromBech32(b.Address); err != nil {
			return fmt.Errorf("invalid balance address %q: %w", b.Address, err)
		}
		if err := sdk.ValidateDenom(b.Denom); err != nil {
			return fmt.Errorf("invalid balance denom %q: %w", b.Denom, err)
		}
		if b.Amount.IsNil() || b.Amount.IsNegative() {
			return fmt.Errorf("balance of %s %s must be non-negative", b.Address, b.Denom)
		}
		key := b.Address + "/" + b.Denom
		if _, dup := seen[key]; dup {
			return fmt.Errorf("duplicate balance %s", key)
		}
		seen[key] = struct{}{}
	}

	for _, a := range gs.Allowances {
		if _, err := sdk.AccAddressFromBech32(a.Owner); err != nil {
			return fmt.Errorf("invalid allowance owner %q: %w", a.Owner, err)
		}
		if _, err := sdk.AccAddressFromBech32(a.Spender); err != nil {
			return fmt.Errorf("invalid allowance spender %q: %w", a.Spender, err)
		}
		if err := sdk.ValidateDenom(a.Denom); err != nil {
			return fmt.Errorf("invalid allowance denom %q: %w", a.Denom, err)
		}
		if a.Amount.IsNil() || a.Amount.IsNegative() {
			return fmt.Errorf("allowance %s->%s must be non-negative", a.Owner, a.Spender)
		}
	}
	return nil
}
