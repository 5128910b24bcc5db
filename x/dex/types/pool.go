package types

import (
	"encoding/hex"
	"fmt"

	sdkmath "cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"
	"github.com/cosmos/cosmos-sdk/types/address"
)

// CircuitBreakerStatus is the safety state of a pool.
type CircuitBreakerStatus string

const (
	CircuitBreakerActive  CircuitBreakerStatus = "active"
	CircuitBreakerTripped CircuitBreakerStatus = "tripped"
	CircuitBreakerPaused  CircuitBreakerStatus = "paused"
)

// IsValid reports whether s is a known status.
func (s CircuitBreakerStatus) IsValid() bool {
	switch s {
	case CircuitBreakerActive, CircuitBreakerTripped, CircuitBreakerPaused:
		return true
	default:
		return false
	}
}

// Pool is the persisted record of a constant-product pool. TokenA < TokenB
// lexicographically; TrippedUntil is a block height and LastUpdate a unix
// timestamp in seconds.
type Pool struct {
	Id                  string               `json:"id"`
	TokenA              string               `json:"token_a"`
	TokenB              string               `json:"token_b"`
	ReserveA            sdkmath.Int          `json:"reserve_a"`
	ReserveB            sdkmath.Int          `json:"reserve_b"`
	TotalLiquidity      sdkmath.Int          `json:"total_liquidity"`
	FeeBps              uint32               `json:"fee_bps"`
	Active              bool                 `json:"active"`
	CircuitBreakerState CircuitBreakerStatus `json:"circuit_breaker_state"`
	TrippedUntil        int64                `json:"tripped_until"`
	PriceCumulativeA    sdkmath.LegacyDec    `json:"price_cumulative_a"`
	PriceCumulativeB    sdkmath.LegacyDec    `json:"price_cumulative_b"`
	LastUpdate          int64                `json:"last_update"`
}

// NewPool returns an empty, active pool for the given pair. Token order is
// normalized, so NewPool(a, b) and NewPool(b, a) produce the same record.
func NewPool(tokenA, tokenB string, feeBps uint32, timestamp int64) Pool {
	tokenA, tokenB = SortTokens(tokenA, tokenB)
	return Pool{
		Id:                  PoolID(tokenA, tokenB),
		TokenA:              tokenA,
		TokenB:              tokenB,
		ReserveA:            sdkmath.ZeroInt(),
		ReserveB:            sdkmath.ZeroInt(),
		TotalLiquidity:      sdkmath.ZeroInt(),
		FeeBps:              feeBps,
		Active:              true,
		CircuitBreakerState: CircuitBreakerActive,
		PriceCumulativeA:    sdkmath.LegacyZeroDec(),
		PriceCumulativeB:    sdkmath.LegacyZeroDec(),
		LastUpdate:          timestamp,
	}
}

// SortTokens orders a token pair lexicographically.
func SortTokens(tokenA, tokenB string) (string, string) {
	if tokenA > tokenB {
		return tokenB, tokenA
	}
	return tokenA, tokenB
}

// PoolAddressBytes derives the escrow account of a pair. The derivation runs
// over the sorted pair, so both orderings yield the same 32 bytes.
func PoolAddressBytes(tokenA, tokenB string) []byte {
	tokenA, tokenB = SortTokens(tokenA, tokenB)
	return address.Module(ModuleName, []byte(tokenA), []byte(tokenB))
}

// PoolID returns the deterministic identifier of a pair: the hex encoding of
// its escrow address.
func PoolID(tokenA, tokenB string) string {
	return hex.EncodeToString(PoolAddressBytes(tokenA, tokenB))
}

// ValidatePoolID checks the shape of a pool identifier.
func ValidatePoolID(poolID string) error {
	bz, err := hex.DecodeString(poolID)
	if err != nil {
		return ErrValidation.Wrapf("pool id %q is not hex: %v", poolID, err)
	}
	if len(bz) != 32 {
		return ErrValidation.Wrapf("pool id %q must encode 32 bytes, got %d", poolID, len(bz))
	}
	return nil
}

// GetAddress returns the escrow account holding the pool reserves.
func (p Pool) GetAddress() sdk.AccAddress {
	bz, err := hex.DecodeString(p.Id)
	if err != nil {
		return nil
	}
	return sdk.AccAddress(bz)
}

// Reserves returns (reserveIn, reserveOut) for a trade direction.
func (p Pool) Reserves(inputIsTokenA bool) (sdkmath.Int, sdkmath.Int) {
	if inputIsTokenA {
		return p.ReserveA, p.ReserveB
	}
	return p.ReserveB, p.ReserveA
}

// Tokens returns (tokenIn, tokenOut) for a trade direction.
func (p Pool) Tokens(inputIsTokenA bool) (string, string) {
	if inputIsTokenA {
		return p.TokenA, p.TokenB
	}
	return p.TokenB, p.TokenA
}

// SetReserves stores reserves given in trade-direction order.
func (p *Pool) SetReserves(inputIsTokenA bool, reserveIn, reserveOut sdkmath.Int) {
	if inputIsTokenA {
		p.ReserveA, p.ReserveB = reserveIn, reserveOut
		return
	}
	p.ReserveB, p.ReserveA = reserveIn, reserveOut
}

// HasToken reports whether denom is one side of the pool.
func (p Pool) HasToken(denom string) bool {
	return denom == p.TokenA || denom == p.TokenB
}

// SpotPrices returns the price of A in B and of B in A. ok is false for an
// empty pool.
func (p Pool) SpotPrices() (priceA, priceB sdkmath.LegacyDec, ok bool) {
	return SpotPrices(p.ReserveA, p.ReserveB)
}

// SpotPrices computes reserveB/reserveA and reserveA/reserveB.
func SpotPrices(reserveA, reserveB sdkmath.Int) (priceA, priceB sdkmath.LegacyDec, ok bool) {
	if reserveA.IsNil() || reserveB.IsNil() || !reserveA.IsPositive() || !reserveB.IsPositive() {
		return sdkmath.LegacyZeroDec(), sdkmath.LegacyZeroDec(), false
	}
	decA := sdkmath.LegacyNewDecFromInt(reserveA)
	decB := sdkmath.LegacyNewDecFromInt(reserveB)
	return decB.Quo(decA), decA.Quo(decB), true
}

// Validate performs stateless pool record validation.
func (p Pool) Validate() error {
	if p.TokenA == "" || p.TokenB == "" {
		return ErrValidation.Wrap("pool tokens cannot be empty")
	}
	if p.TokenA >= p.TokenB {
		return ErrValidation.Wrapf("pool tokens must be distinct and sorted: %s/%s", p.TokenA, p.TokenB)
	}
	if p.Id != PoolID(p.TokenA, p.TokenB) {
		return ErrValidation.Wrapf("pool id %s does not match pair %s/%s", p.Id, p.TokenA, p.TokenB)
	}
	if p.FeeBps >= BasisPoints {
		return ErrValidation.Wrapf("fee %d bps must be below %d", p.FeeBps, BasisPoints)
	}
	if !p.CircuitBreakerState.IsValid() {
		return ErrValidation.Wrapf("unknown circuit breaker state %q", p.CircuitBreakerState)
	}
	if p.ReserveA.IsNil() || p.ReserveB.IsNil() || p.TotalLiquidity.IsNil() {
		return ErrValidation.Wrapf("pool %s has unset amounts", p.Id)
	}
	if p.ReserveA.IsNegative() || p.ReserveB.IsNegative() || p.TotalLiquidity.IsNegative() {
		return ErrValidation.Wrapf("pool %s has negative amounts", p.Id)
	}

	// Shares and reserves live and die together.
	if p.TotalLiquidity.IsPositive() && (!p.ReserveA.IsPositive() || !p.ReserveB.IsPositive()) {
		return ErrValidation.Wrapf("pool %s has shares but missing reserves", p.Id)
	}
	if p.TotalLiquidity.IsZero() && (!p.ReserveA.IsZero() || !p.ReserveB.IsZero()) {
		return ErrValidation.Wrapf("pool %s has reserves but no shares", p.Id)
	}
	if p.PriceCumulativeA.IsNil() || p.PriceCumulativeB.IsNil() {
		return ErrValidation.Wrapf("pool %s has unset price accumulators", p.Id)
	}
	return nil
}

// String implements fmt.Stringer.
func (p Pool) String() string {
	return fmt.Sprintf("pool %s (%s/%s) reserves=%s/%s shares=%s fee=%dbps state=%s active=%t",
		p.Id, p.TokenA, p.TokenB, p.ReserveA, p.ReserveB, p.TotalLiquidity, p.FeeBps, p.CircuitBreakerState, p.Active)
}

// LiquidityPosition is a provider's share balance in one pool.
type LiquidityPosition struct {
	PoolId   string      `json:"pool_id"`
	Provider string      `json:"provider"`
	Shares   sdkmath.Int `json:"shares"`
}

// PriceObservation is an accumulator snapshot taken after a reserve change.
// SpotPriceA/B are the prices prevailing from Timestamp until the next
// observation.
type PriceObservation struct {
	Timestamp        int64             `json:"timestamp"`
	PriceCumulativeA sdkmath.LegacyDec `json:"price_cumulative_a"`
	PriceCumulativeB sdkmath.LegacyDec `json:"price_cumulative_b"`
	SpotPriceA       sdkmath.LegacyDec `json:"spot_price_a"`
	SpotPriceB       sdkmath.LegacyDec `json:"spot_price_b"`
}

// CumulativeAt extrapolates the accumulators to timestamp t >= o.Timestamp.
func (o PriceObservation) CumulativeAt(t int64) (sdkmath.LegacyDec, sdkmath.LegacyDec) {
	elapsed := t - o.Timestamp
	if elapsed <= 0 {
		return o.PriceCumulativeA, o.PriceCumulativeB
	}
	return o.PriceCumulativeA.Add(o.SpotPriceA.MulInt64(elapsed)),
		o.PriceCumulativeB.Add(o.SpotPriceB.MulInt64(elapsed))
}

// FlashLoanDebt is the amount a borrower owes a pool while a flash loan is
// in flight. It exists only inside the loan's branched store.
type FlashLoanDebt struct {
	Borrower string      `json:"borrower"`
	Token    string      `json:"token"`
	Amount   sdkmath.Int `json:"amount"`
}
