package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	dextypes "github.com/paw-chain/pawamm/x/dex/types"
)

// NewParamsCmd prints the effective dex params, optionally with a
// scenario's overrides applied.
func NewParamsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "params [scenario-file]",
		Short: "Print the effective dex params",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := configFromCmd(cmd)
			if err != nil {
				return err
			}

			params := dextypes.DefaultParams()
			if len(args) == 1 {
				scenario, err := LoadScenario(args[0])
				if err != nil {
					return err
				}
				params = scenario.Params
			}

			out := cmd.OutOrStdout()
			if cfg.Output == outputJSON {
				return writeJSON(out, params)
			}
			rows := []struct {
				name  string
				value interface{}
			}{
				{"min_fee_bps", params.MinFeeBps},
				{"max_fee_bps", params.MaxFeeBps},
				{"default_fee_bps", params.DefaultFeeBps},
				{"minimum_liquidity", params.MinimumLiquidity},
				{"min_block_delay", params.MinBlockDelay},
				{"max_swap_fraction_bps", params.MaxSwapFractionBps},
				{"circuit_breaker_threshold_bps", params.CircuitBreakerThresholdBps},
				{"cooldown_blocks", params.CooldownBlocks},
				{"flash_loan_fee_bps", params.FlashLoanFeeBps},
				{"oracle_retention_seconds", params.OracleRetentionSeconds},
			}
			for _, row := range rows {
				if _, err := fmt.Fprintf(out, "%-30s %v\n", row.name, row.value); err != nil {
					return err
				}
			}
			return nil
		},
	}
	return cmd
}
