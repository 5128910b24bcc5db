package types

import (
	"fmt"

	sdkmath "cosmossdk.io/math"
)

// Params are the tunable policy constants of the dex module.
type Params struct {
	MinFeeBps                  uint32      `json:"min_fee_bps"`
	MaxFeeBps                  uint32      `json:"max_fee_bps"`
	DefaultFeeBps              uint32      `json:"default_fee_bps"`
	MinimumLiquidity           sdkmath.Int `json:"minimum_liquidity"`
	MinBlockDelay              int64       `json:"min_block_delay"`
	MaxSwapFractionBps         uint32      `json:"max_swap_fraction_bps"`
	CircuitBreakerThresholdBps uint32      `json:"circuit_breaker_threshold_bps"`
	CooldownBlocks             int64       `json:"cooldown_blocks"`
	FlashLoanFeeBps            uint32      `json:"flash_loan_fee_bps"`
	OracleRetentionSeconds     int64       `json:"oracle_retention_seconds"`
}

// DefaultParams returns a default set of parameters
func DefaultParams() Params {
	return Params{
		MinFeeBps:                  1,
		MaxFeeBps:                  1_000, // 10%
		DefaultFeeBps:              30,    // 0.30%
		MinimumLiquidity:           sdkmath.NewInt(100),
		MinBlockDelay:              1,
		MaxSwapFractionBps:         5_000, // half of the input reserve
		CircuitBreakerThresholdBps: 1_000, // 10% price impact
		CooldownBlocks:             100,
		FlashLoanFeeBps:            9, // 0.09%
		OracleRetentionSeconds:     7 * 24 * 60 * 60,
	}
}

// Validate validates the set of params
func (p Params) Validate() error {
	if p.MinFeeBps > p.MaxFeeBps {
		return fmt.Errorf("min fee %d bps exceeds max fee %d bps", p.MinFeeBps, p.MaxFeeBps)
	}
	if p.MaxFeeBps >= BasisPoints {
		return fmt.Errorf("max fee must be below %d bps, got %d", BasisPoints, p.MaxFeeBps)
	}
	if p.DefaultFeeBps < p.MinFeeBps || p.DefaultFeeBps > p.MaxFeeBps {
		return fmt.Errorf("default fee %d bps outside [%d, %d]", p.DefaultFeeBps, p.MinFeeBps, p.MaxFeeBps)
	}
	if p.MinimumLiquidity.IsNil() || p.MinimumLiquidity.IsNegative() {
		return fmt.Errorf("minimum liquidity must be non-negative")
	}
	if p.MinBlockDelay < 0 {
		return fmt.Errorf("min block delay must be non-negative, got %d", p.MinBlockDelay)
	}
	if p.MaxSwapFractionBps == 0 || p.MaxSwapFractionBps > BasisPoints {
		return fmt.Errorf("max swap fraction must be in (0, %d] bps, got %d", BasisPoints, p.MaxSwapFractionBps)
	}
	if p.CircuitBreakerThresholdBps == 0 || p.CircuitBreakerThresholdBps > BasisPoints {
		return fmt.Errorf("circuit breaker threshold must be in (0, %d] bps, got %d", BasisPoints, p.CircuitBreakerThresholdBps)
	}
	if p.CooldownBlocks < 0 {
		return fmt.Errorf("cooldown blocks must be non-negative, got %d", p.CooldownBlocks)
	}
	if p.FlashLoanFeeBps >= BasisPoints {
		return fmt.Errorf("flash loan fee must be below %d bps, got %d", BasisPoints, p.FlashLoanFeeBps)
	}
	if p.OracleRetentionSeconds <= 0 {
		return fmt.Errorf("oracle retention must be positive, got %d", p.OracleRetentionSeconds)
	}
	return nil
}
