package types

import (
	"testing"

	sdkmath "cosmossdk.io/math"
	"github.com/stretchr/testify/require"
)

func TestParamsValidate(t *testing.T) {
	require.NoError(t, DefaultParams().Validate())

	tests := []struct {
		name   string
		mutate func(*Params)
	}{
		{"min fee above max", func(p *Params) { p.MinFeeBps = 2000 }},
		{"max fee at 100%", func(p *Params) { p.MaxFeeBps = BasisPoints }},
		{"default fee out of range", func(p *Params) { p.DefaultFeeBps = 0 }},
		{"negative minimum liquidity", func(p *Params) { p.MinimumLiquidity = sdkmath.NewInt(-1) }},
		{"unset minimum liquidity", func(p *Params) { p.MinimumLiquidity = sdkmath.Int{} }},
		{"negative block delay", func(p *Params) { p.MinBlockDelay = -1 }},
		{"zero swap fraction", func(p *Params) { p.MaxSwapFractionBps = 0 }},
		{"swap fraction above 100%", func(p *Params) { p.MaxSwapFractionBps = BasisPoints + 1 }},
		{"zero breaker threshold", func(p *Params) { p.CircuitBreakerThresholdBps = 0 }},
		{"negative cooldown", func(p *Params) { p.CooldownBlocks = -5 }},
		{"flash loan fee at 100%", func(p *Params) { p.FlashLoanFeeBps = BasisPoints }},
		{"no oracle retention", func(p *Params) { p.OracleRetentionSeconds = 0 }},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			p := DefaultParams()
			tc.mutate(&p)
			require.Error(t, p.Validate())
		})
	}
}

func TestParamsEdgeValues(t *testing.T) {
	p := DefaultParams()
	p.MinBlockDelay = 0
	p.CooldownBlocks = 0
	p.FlashLoanFeeBps = 0
	p.MinimumLiquidity = sdkmath.ZeroInt()
	p.MaxSwapFractionBps = BasisPoints
	require.NoError(t, p.Validate())
}
