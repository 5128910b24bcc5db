package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/spf13/cobra"

	"github.com/paw-chain/pawamm/app"
)

const telemetryShutdownTimeout = 5 * time.Second

// NewSimulateCmd replays a scenario file against a fresh in-memory engine.
func NewSimulateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "simulate [scenario-file]",
		Short: "Replay a scripted scenario against an in-memory engine",
		Long: `Replay a scripted scenario (yaml, toml or json) against a fresh in-memory
engine and print every step's outcome and events, the final pools and the
invariant check. Exits non-zero when a step's outcome differs from its
expect_error or an invariant is broken.`,
		Example: `pawamm simulate scenarios/circuit_breaker.yaml
pawamm simulate scenarios/flash_loan.yaml -o json --metrics`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := configFromCmd(cmd)
			if err != nil {
				return err
			}
			logger, err := cfg.NewLogger()
			if err != nil {
				return err
			}

			scenario, err := LoadScenario(args[0])
			if err != nil {
				return err
			}
			telemetry, err := app.InitTelemetry(app.TelemetryConfig{
				OTLPEndpoint:      cfg.OTLPEndpoint,
				SampleRate:        cfg.TraceSampleRate,
				PrometheusEnabled: cfg.Metrics,
			})
			if err != nil {
				return fmt.Errorf("init telemetry: %w", err)
			}
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), telemetryShutdownTimeout)
				defer cancel()
				if err := telemetry.Shutdown(ctx); err != nil {
					logger.Error("telemetry shutdown failed", "error", err)
				}
			}()

			runner, err := NewRunner(logger, scenario)
			if err != nil {
				return err
			}
			runner.SetCallMetrics(telemetry.Calls())
			report, err := runner.Run(scenario)
			if err != nil {
				return err
			}
			logger.Info("scenario replayed", "scenario", scenario.Name, "steps", len(report.Steps), "failures", len(report.Failures))

			out := cmd.OutOrStdout()
			if cfg.Output == outputJSON {
				err = writeJSON(out, report)
			} else {
				err = writeText(out, report)
			}
			if err != nil {
				return err
			}
			if cfg.Metrics {
				if err := writeMetrics(out, telemetry.Gatherer()); err != nil {
					return err
				}
			}

			if len(report.Failures) > 0 {
				return fmt.Errorf("scenario %s: %d failure(s)", scenario.Name, len(report.Failures))
			}
			return nil
		},
	}

	cmd.Flags().Bool(flagMetrics, false, "print the engine's prometheus metrics after the run")
	return cmd
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeText(w io.Writer, report *Report) error {
	var b strings.Builder
	fmt.Fprintf(&b, "scenario: %s\n", report.Scenario)

	for _, step := range report.Steps {
		status := "ok"
		if !step.OK {
			status = "error"
			if step.Kind != "" {
				status += " " + step.Kind
			}
		}
		fmt.Fprintf(&b, "#%d h=%d %s: %s%s\n", step.Index, step.Height, step.Action, status, formatAttrs(step.Outputs))
		if step.Error != "" {
			fmt.Fprintf(&b, "    %s\n", step.Error)
		}
		for _, ev := range step.Events {
			fmt.Fprintf(&b, "    event %s%s\n", ev.Type, formatAttrs(ev.Attributes))
		}
	}

	fmt.Fprintf(&b, "pools at height %d:\n", report.Final.Height)
	for _, pool := range report.Pools {
		fmt.Fprintf(&b, "  %s %s/%s reserves=%s/%s liquidity=%s fee=%dbps active=%t state=%s\n",
			pool.Id, pool.TokenA, pool.TokenB, pool.ReserveA, pool.ReserveB,
			pool.TotalLiquidity, pool.FeeBps, pool.Active, pool.CircuitBreakerState)
	}

	if report.Final.InvariantsError == "" {
		b.WriteString("invariants: ok\n")
	} else {
		fmt.Fprintf(&b, "invariants: %s\n", report.Final.InvariantsError)
	}
	for _, failure := range report.Failures {
		fmt.Fprintf(&b, "FAIL %s\n", failure)
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// formatAttrs renders attrs as sorted " key=value" pairs.
func formatAttrs(attrs map[string]string) string {
	if len(attrs) == 0 {
		return ""
	}
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%s", k, attrs[k])
	}
	return b.String()
}

// writeMetrics prints the pawamm metric families in text exposition format.
func writeMetrics(w io.Writer, gatherer prometheus.Gatherer) error {
	families, err := gatherer.Gather()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}
	for _, mf := range families {
		if !strings.HasPrefix(mf.GetName(), "pawamm_") {
			continue
		}
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return err
		}
	}
	return nil
}
