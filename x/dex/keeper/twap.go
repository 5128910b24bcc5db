package keeper

import (
	"context"
	"encoding/json"

	"cosmossdk.io/math"
	"cosmossdk.io/store/prefix"
	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/paw-chain/pawamm/x/dex/types"
)

// updateCumulativePrices advances the pool's price accumulators to the
// current block time using the spot price that held since the last update.
// It must run before reserves change:
// - priceCumulativeA += (reserveB / reserveA) * elapsed
// - priceCumulativeB += (reserveA / reserveB) * elapsed
// An empty pool accumulates nothing.
func (k Keeper) updateCumulativePrices(ctx sdk.Context, pool *types.Pool) {
	elapsed := ctx.BlockTime().Unix() - pool.LastUpdate
	if !accrue(pool, ctx.BlockTime().Unix()) {
		return
	}
	k.metrics.TWAPUpdates.Inc()
	k.Logger(ctx).Debug("price accumulators updated",
		"pool_id", pool.Id,
		"elapsed", elapsed,
		"cumulative_a", pool.PriceCumulativeA.String(),
		"cumulative_b", pool.PriceCumulativeB.String(),
	)
}

// accrue moves the accumulators of pool forward to now. It reports whether
// any price was accumulated.
func accrue(pool *types.Pool, now int64) bool {
	elapsed := now - pool.LastUpdate
	if elapsed <= 0 {
		return false
	}
	pool.LastUpdate = now

	priceA, priceB, ok := pool.SpotPrices()
	if !ok {
		return false
	}
	pool.PriceCumulativeA = pool.PriceCumulativeA.Add(priceA.MulInt64(elapsed))
	pool.PriceCumulativeB = pool.PriceCumulativeB.Add(priceB.MulInt64(elapsed))
	return true
}

// recordObservation snapshots the accumulators and the spot prices that hold
// from now on, then prunes observations past the retention window. It must
// run after reserves change.
func (k Keeper) recordObservation(ctx sdk.Context, pool *types.Pool) {
	priceA, priceB, _ := pool.SpotPrices()
	obs := types.PriceObservation{
		Timestamp:        pool.LastUpdate,
		PriceCumulativeA: pool.PriceCumulativeA,
		PriceCumulativeB: pool.PriceCumulativeB,
		SpotPriceA:       priceA,
		SpotPriceB:       priceB,
	}
	if err := k.setObservation(ctx, pool.Id, obs); err != nil {
		k.Logger(ctx).Error("failed to record price observation", "pool_id", pool.Id, "error", err)
		return
	}

	params, err := k.GetParams(ctx)
	if err != nil {
		k.Logger(ctx).Error("failed to load params for oracle pruning", "pool_id", pool.Id, "error", err)
		return
	}
	k.PruneObservations(ctx, pool.Id, ctx.BlockTime().Unix()-params.OracleRetentionSeconds)
}

func (k Keeper) observationStore(ctx context.Context, poolID string) prefix.Store {
	return prefix.NewStore(k.getStore(ctx), PriceObservationPoolPrefix(poolID))
}

func observationKey(timestamp int64) []byte {
	if timestamp < 0 {
		timestamp = 0
	}
	return sdk.Uint64ToBigEndian(uint64(timestamp))
}

func (k Keeper) setObservation(ctx context.Context, poolID string, obs types.PriceObservation) error {
	bz, err := json.Marshal(obs)
	if err != nil {
		return err
	}
	k.observationStore(ctx, poolID).Set(observationKey(obs.Timestamp), bz)
	return nil
}

// GetPriceObservations returns a pool's stored observations, oldest first.
func (k Keeper) GetPriceObservations(ctx context.Context, poolID string) ([]types.PriceObservation, error) {
	iter := k.observationStore(ctx, poolID).Iterator(nil, nil)
	defer iter.Close()

	var observations []types.PriceObservation
	for ; iter.Valid(); iter.Next() {
		var obs types.PriceObservation
		if err := json.Unmarshal(iter.Value(), &obs); err != nil {
			return nil, err
		}
		observations = append(observations, obs)
	}
	return observations, nil
}

// observationAt returns the latest observation taken at or before t.
func (k Keeper) observationAt(ctx context.Context, poolID string, t int64) (types.PriceObservation, bool, error) {
	if t < 0 {
		return types.PriceObservation{}, false, nil
	}
	iter := k.observationStore(ctx, poolID).ReverseIterator(nil, observationKey(t+1))
	defer iter.Close()

	if !iter.Valid() {
		return types.PriceObservation{}, false, nil
	}
	var obs types.PriceObservation
	if err := json.Unmarshal(iter.Value(), &obs); err != nil {
		return types.PriceObservation{}, false, err
	}
	return obs, true, nil
}

// GetCumulativePrices returns the pool accumulators extrapolated to the
// current block time, without writing state.
func (k Keeper) GetCumulativePrices(ctx context.Context, poolID string) (math.LegacyDec, math.LegacyDec, error) {
	pool, err := k.GetPool(ctx, poolID)
	if err != nil {
		return math.LegacyDec{}, math.LegacyDec{}, err
	}
	snapshot := *pool
	accrue(&snapshot, sdk.UnwrapSDKContext(ctx).BlockTime().Unix())
	return snapshot.PriceCumulativeA, snapshot.PriceCumulativeB, nil
}

// GetTwap returns the time-weighted average prices of A in B and of B in A
// over [windowStart, windowEnd], both unix seconds. The window must lie
// between the oldest retained observation and the current block time.
func (k Keeper) GetTwap(ctx context.Context, poolID string, windowStart, windowEnd int64) (math.LegacyDec, math.LegacyDec, error) {
	if windowStart >= windowEnd {
		return math.LegacyDec{}, math.LegacyDec{}, types.ErrValidation.Wrapf("window start %d must precede end %d", windowStart, windowEnd)
	}
	if now := sdk.UnwrapSDKContext(ctx).BlockTime().Unix(); windowEnd > now {
		return math.LegacyDec{}, math.LegacyDec{}, types.ErrValidation.Wrapf("window end %d is after block time %d", windowEnd, now)
	}
	if _, err := k.GetPool(ctx, poolID); err != nil {
		return math.LegacyDec{}, math.LegacyDec{}, err
	}

	startObs, found, err := k.observationAt(ctx, poolID, windowStart)
	if err != nil {
		return math.LegacyDec{}, math.LegacyDec{}, err
	}
	if !found {
		return math.LegacyDec{}, math.LegacyDec{}, types.ErrValidation.Wrapf("no price observation at or before %d for pool %s", windowStart, poolID)
	}
	endObs, _, err := k.observationAt(ctx, poolID, windowEnd)
	if err != nil {
		return math.LegacyDec{}, math.LegacyDec{}, err
	}

	startA, startB := startObs.CumulativeAt(windowStart)
	endA, endB := endObs.CumulativeAt(windowEnd)
	span := windowEnd - windowStart
	return endA.Sub(startA).QuoInt64(span), endB.Sub(startB).QuoInt64(span), nil
}

// PruneObservations deletes a pool's observations older than cutoff, keeping
// the newest of them so windows starting at the cutoff stay answerable. It
// returns the number of observations removed.
func (k Keeper) PruneObservations(ctx context.Context, poolID string, cutoff int64) int {
	if cutoff <= 0 {
		return 0
	}
	store := k.observationStore(ctx, poolID)
	iter := store.Iterator(nil, observationKey(cutoff))

	var stale [][]byte
	for ; iter.Valid(); iter.Next() {
		stale = append(stale, append([]byte{}, iter.Key()...))
	}
	iter.Close()

	if len(stale) <= 1 {
		return 0
	}
	// The newest stale observation anchors the cutoff.
	for _, key := range stale[:len(stale)-1] {
		store.Delete(key)
	}

	pruned := len(stale) - 1
	k.metrics.ObservationsPruned.Add(float64(pruned))
	return pruned
}
