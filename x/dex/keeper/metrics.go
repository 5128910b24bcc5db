package keeper

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// DEXMetrics holds all Prometheus metrics for the DEX module
type DEXMetrics struct {
	// Swap metrics
	SwapsTotal  *prometheus.CounterVec
	SwapVolume  *prometheus.CounterVec
	PriceImpact prometheus.Histogram

	// Liquidity metrics
	LiquidityAdded   *prometheus.CounterVec
	LiquidityRemoved *prometheus.CounterVec
	PoolReserves     *prometheus.GaugeVec

	// Pool metrics
	PoolsTotal prometheus.Counter

	// Security metrics
	GuardRejections          *prometheus.CounterVec
	MEVThrottled             *prometheus.CounterVec
	CircuitBreakerTriggers   *prometheus.CounterVec
	CircuitBreakerRecoveries *prometheus.CounterVec
	EmergencyPauses          *prometheus.CounterVec

	// Flash loan metrics
	FlashLoansTotal *prometheus.CounterVec
	FlashLoanFees   *prometheus.CounterVec

	// Oracle metrics
	TWAPUpdates        prometheus.Counter
	ObservationsPruned prometheus.Counter
}

var (
	dexMetricsOnce sync.Once
	dexMetrics     *DEXMetrics
)

// NewDEXMetrics creates and registers DEX metrics (singleton pattern)
func NewDEXMetrics() *DEXMetrics {
	dexMetricsOnce.Do(func() {
		dexMetrics = &DEXMetrics{
			SwapsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: "pawamm",
					Subsystem: "dex",
					Name:      "swaps_total",
					Help:      "Total number of swaps executed",
				},
				[]string{"pool_id", "token_in", "token_out"},
			),
			SwapVolume: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: "pawamm",
					Subsystem: "dex",
					Name:      "swap_volume_total",
					Help:      "Total swap input volume in base units",
				},
				[]string{"pool_id", "token_in"},
			),
			PriceImpact: promauto.NewHistogram(
				prometheus.HistogramOpts{
					Namespace: "pawamm",
					Subsystem: "dex",
					Name:      "swap_price_impact_bps",
					Help:      "Price impact of executed swaps in basis points",
					Buckets:   []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500},
				},
			),
			LiquidityAdded: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: "pawamm",
					Subsystem: "dex",
					Name:      "liquidity_added_total",
					Help:      "Number of liquidity deposits",
				},
				[]string{"pool_id"},
			),
			LiquidityRemoved: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: "pawamm",
					Subsystem: "dex",
					Name:      "liquidity_removed_total",
					Help:      "Number of liquidity withdrawals",
				},
				[]string{"pool_id"},
			),
			PoolReserves: promauto.NewGaugeVec(
				prometheus.GaugeOpts{
					Namespace: "pawamm",
					Subsystem: "dex",
					Name:      "pool_reserves",
					Help:      "Current pool reserves by token",
				},
				[]string{"pool_id", "token"},
			),
			PoolsTotal: promauto.NewCounter(
				prometheus.CounterOpts{
					Namespace: "pawamm",
					Subsystem: "dex",
					Name:      "pools_created_total",
					Help:      "Number of pools created",
				},
			),
			GuardRejections: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: "pawamm",
					Subsystem: "dex",
					Name:      "guard_rejections_total",
					Help:      "Calls rejected by the security pipeline, by stage",
				},
				[]string{"stage"},
			),
			MEVThrottled: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: "pawamm",
					Subsystem: "dex",
					Name:      "mev_throttled_total",
					Help:      "Calls rejected by the per-user block delay",
				},
				[]string{"operation"},
			),
			CircuitBreakerTriggers: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: "pawamm",
					Subsystem: "dex",
					Name:      "circuit_breaker_triggers_total",
					Help:      "Circuit breaker trips by pool",
				},
				[]string{"pool_id"},
			),
			CircuitBreakerRecoveries: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: "pawamm",
					Subsystem: "dex",
					Name:      "circuit_breaker_recoveries_total",
					Help:      "Circuit breaker resets by pool",
				},
				[]string{"pool_id"},
			),
			EmergencyPauses: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: "pawamm",
					Subsystem: "dex",
					Name:      "emergency_pauses_total",
					Help:      "Emergency pauses by pool",
				},
				[]string{"pool_id"},
			),
			FlashLoansTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: "pawamm",
					Subsystem: "dex",
					Name:      "flash_loans_total",
					Help:      "Repaid flash loans by pool and token",
				},
				[]string{"pool_id", "token"},
			),
			FlashLoanFees: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: "pawamm",
					Subsystem: "dex",
					Name:      "flash_loan_fees_total",
					Help:      "Flash loan fees collected in base units",
				},
				[]string{"pool_id", "token"},
			),
			TWAPUpdates: promauto.NewCounter(
				prometheus.CounterOpts{
					Namespace: "pawamm",
					Subsystem: "dex",
					Name:      "twap_updates_total",
					Help:      "Price accumulator updates",
				},
			),
			ObservationsPruned: promauto.NewCounter(
				prometheus.CounterOpts{
					Namespace: "pawamm",
					Subsystem: "dex",
					Name:      "oracle_observations_pruned_total",
					Help:      "Oracle observations removed after the retention window",
				},
			),
		}
	})
	return dexMetrics
}

// recordReserves publishes a pool's reserves. Gauges take float64, so very
// large reserves lose precision here only.
func (m *DEXMetrics) recordReserves(poolID, tokenA, tokenB string, reserveA, reserveB float64) {
	m.PoolReserves.WithLabelValues(poolID, tokenA).Set(reserveA)
	m.PoolReserves.WithLabelValues(poolID, tokenB).Set(reserveB)
}
