package types

import (
	"context"

	sdkmath "cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"
)

// TokenLedger is the fungible-token ledger pools settle against. Tokens are
// identified by denom; every pool holds its reserves in its own escrow account.
type TokenLedger interface {
	// Transfer moves amount of denom from `from` (the caller's own account) to `to`.
	Transfer(ctx context.Context, denom string, from, to sdk.AccAddress, amount sdkmath.Int) error
	// TransferFrom moves amount from `from` to `to` on behalf of spender, consuming allowance.
	TransferFrom(ctx context.Context, denom string, spender, from, to sdk.AccAddress, amount sdkmath.Int) error
	BalanceOf(ctx context.Context, denom string, owner sdk.AccAddress) sdkmath.Int
	Approve(ctx context.Context, denom string, owner, spender sdk.AccAddress, amount sdkmath.Int) error
}

// GovernanceProvider answers membership questions for governance-gated actions.
type GovernanceProvider interface {
	IsGovernanceMember(ctx context.Context, addr sdk.AccAddress) bool
	// IsAuthorized reports whether addr may perform emergency operations.
	IsAuthorized(ctx context.Context, addr sdk.AccAddress) bool
}
