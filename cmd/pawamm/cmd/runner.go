package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"cosmossdk.io/log"
	sdkmath "cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/paw-chain/pawamm/app"
	dextypes "github.com/paw-chain/pawamm/x/dex/types"
)

// StepResult is the outcome of one scripted call.
type StepResult struct {
	Index   int               `json:"index"`
	Height  int64             `json:"height"`
	Action  string            `json:"action"`
	OK      bool              `json:"ok"`
	Error   string            `json:"error,omitempty"`
	Kind    string            `json:"error_kind,omitempty"`
	Outputs map[string]string `json:"outputs,omitempty"`
	Events  []EventRecord     `json:"events,omitempty"`
}

// EventRecord is a flattened sdk.Event.
type EventRecord struct {
	Type       string            `json:"type"`
	Attributes map[string]string `json:"attributes"`
}

// Report summarizes a replayed scenario.
type Report struct {
	Scenario string          `json:"scenario"`
	Steps    []StepResult    `json:"steps"`
	Pools    []dextypes.Pool `json:"pools"`
	Params   dextypes.Params `json:"params"`
	Failures []string        `json:"failures,omitempty"`
	Final    FinalState      `json:"final"`
}

// FinalState is the engine state after the last step.
type FinalState struct {
	Height          int64  `json:"height"`
	InvariantsError string `json:"invariants_error,omitempty"`
}

// Runner replays scenarios against a fresh in-memory engine.
type Runner struct {
	logger log.Logger
	app    *app.App
	calls  *app.CallMetrics
}

// NewRunner creates an engine whose genesis reflects the scenario's
// governance, operators and params.
func NewRunner(logger log.Logger, s *Scenario) (*Runner, error) {
	a, err := app.NewInMemory(logger, s.GenesisTime)
	if err != nil {
		return nil, err
	}

	genesis := app.NewDefaultGenesisState()
	dexGenesis, err := genesis.DexGenesis()
	if err != nil {
		return nil, err
	}
	dexGenesis.Params = s.Params
	for _, name := range s.Governance {
		addr, err := AccountAddress(name)
		if err != nil {
			return nil, fmt.Errorf("governance member: %w", err)
		}
		dexGenesis.GovMembers = append(dexGenesis.GovMembers, addr.String())
	}
	for _, name := range s.Operators {
		addr, err := AccountAddress(name)
		if err != nil {
			return nil, fmt.Errorf("emergency operator: %w", err)
		}
		dexGenesis.EmergencyOperators = append(dexGenesis.EmergencyOperators, addr.String())
	}
	if err := dexGenesis.Validate(); err != nil {
		return nil, fmt.Errorf("dex genesis: %w", err)
	}
	bz, err := json.Marshal(dexGenesis)
	if err != nil {
		return nil, err
	}
	genesis[dextypes.ModuleName] = bz

	if err := a.InitChain(genesis); err != nil {
		return nil, fmt.Errorf("init chain: %w", err)
	}
	return &Runner{logger: logger, app: a}, nil
}

// App exposes the engine the runner drives.
func (r *Runner) App() *app.App { return r.app }

// SetCallMetrics makes the runner record every step on calls.
func (r *Runner) SetCallMetrics(calls *app.CallMetrics) { r.calls = calls }

// Run replays every step. A step whose outcome differs from its expectation
// is recorded as a failure; replay continues either way.
func (r *Runner) Run(s *Scenario) (*Report, error) {
	report := &Report{Scenario: s.Name}

	for i, step := range s.Steps {
		ctx := r.app.NewContext()
		res := StepResult{Index: i + 1, Height: ctx.BlockHeight(), Action: step.Action}

		traceCtx, endSpan := app.TraceCall(ctx.Context(), step.Action, res.Height)
		start := time.Now()
		outputs, err := r.exec(ctx.WithContext(traceCtx), step)
		endSpan(err)
		r.calls.RecordCall(traceCtx, step.Action, time.Since(start), dextypes.ErrorKind(err), err == nil)
		r.calls.RecordBlockHeight(traceCtx, r.app.Height())

		res.Outputs = outputs
		res.Events = flattenEvents(ctx.EventManager().Events())
		if err != nil {
			res.Error = err.Error()
			res.Kind = dextypes.ErrorKind(err)
			r.logger.Debug("step failed", "step", res.Index, "action", step.Action, "error", err)
		} else {
			res.OK = true
		}

		if msg := checkExpectation(step, err); msg != "" {
			report.Failures = append(report.Failures, fmt.Sprintf("step %d (%s): %s", res.Index, step.Action, msg))
		}
		report.Steps = append(report.Steps, res)
	}

	ctx := r.app.NewContext()
	pools, err := r.app.DexKeeper.GetAllPools(ctx)
	if err != nil {
		return nil, err
	}
	params, err := r.app.DexKeeper.GetParams(ctx)
	if err != nil {
		return nil, err
	}
	report.Pools = pools
	report.Params = params
	report.Final.Height = r.app.Height()
	if err := r.app.CheckInvariants(); err != nil {
		report.Final.InvariantsError = err.Error()
		report.Failures = append(report.Failures, err.Error())
	}
	return report, nil
}

func checkExpectation(step Step, err error) string {
	switch {
	case step.ExpectError == "" && err != nil:
		return fmt.Sprintf("unexpected error: %v", err)
	case step.ExpectError == "":
		return ""
	case err == nil:
		return fmt.Sprintf("expected %s, got success", step.ExpectError)
	}
	kind := dextypes.ErrorKind(err)
	if kind == step.ExpectError || strings.Contains(err.Error(), step.ExpectError) {
		return ""
	}
	return fmt.Sprintf("expected %s, got %v", step.ExpectError, err)
}

func (r *Runner) exec(ctx sdk.Context, step Step) (map[string]string, error) {
	dex := r.app.DexKeeper
	ledger := r.app.TokenKeeper
	f := step.Fields

	switch step.Action {
	case "mint":
		to, err := f.Account("account")
		if err != nil {
			return nil, err
		}
		denom, err := f.String("denom")
		if err != nil {
			return nil, err
		}
		amount, err := f.Int("amount")
		if err != nil {
			return nil, err
		}
		return nil, ledger.Mint(ctx, denom, to, amount)

	case "create_pool":
		caller, err := f.Account("caller")
		if err != nil {
			return nil, err
		}
		tokenA, err := f.String("token_a")
		if err != nil {
			return nil, err
		}
		tokenB, err := f.String("token_b")
		if err != nil {
			return nil, err
		}
		params, err := dex.GetParams(ctx)
		if err != nil {
			return nil, err
		}
		fee, err := f.Uint32Or("fee_bps", params.DefaultFeeBps)
		if err != nil {
			return nil, err
		}
		poolID, err := dex.CreatePool(ctx, caller, tokenA, tokenB, fee)
		if err != nil {
			return nil, err
		}
		return map[string]string{"pool_id": poolID}, nil

	case "toggle_pool":
		caller, pool, err := r.callerAndPool(ctx, f)
		if err != nil {
			return nil, err
		}
		return nil, dex.TogglePoolStatus(ctx, caller, pool.Id)

	case "add_liquidity":
		provider, err := f.Account("account")
		if err != nil {
			return nil, err
		}
		pool, err := r.pool(ctx, f)
		if err != nil {
			return nil, err
		}
		amountA, err := f.Int("amount_a")
		if err != nil {
			return nil, err
		}
		amountB, err := f.Int("amount_b")
		if err != nil {
			return nil, err
		}
		minA, err := f.IntOr("min_a")
		if err != nil {
			return nil, err
		}
		minB, err := f.IntOr("min_b")
		if err != nil {
			return nil, err
		}
		recipient, err := f.AccountOr("recipient", provider)
		if err != nil {
			return nil, err
		}
		if err := r.approveEscrow(ctx, f, provider, pool, pool.TokenA, amountA); err != nil {
			return nil, err
		}
		if err := r.approveEscrow(ctx, f, provider, pool, pool.TokenB, amountB); err != nil {
			return nil, err
		}
		a, b, shares, err := dex.AddLiquidity(ctx, provider, pool.Id, amountA, amountB, minA, minB, recipient)
		if err != nil {
			return nil, err
		}
		return map[string]string{"amount_a": a.String(), "amount_b": b.String(), "shares": shares.String()}, nil

	case "remove_liquidity":
		provider, err := f.Account("account")
		if err != nil {
			return nil, err
		}
		pool, err := r.pool(ctx, f)
		if err != nil {
			return nil, err
		}
		shares, err := f.Int("shares")
		if err != nil {
			return nil, err
		}
		minA, err := f.IntOr("min_a")
		if err != nil {
			return nil, err
		}
		minB, err := f.IntOr("min_b")
		if err != nil {
			return nil, err
		}
		a, b, err := dex.RemoveLiquidity(ctx, provider, pool.Id, shares, minA, minB)
		if err != nil {
			return nil, err
		}
		return map[string]string{"amount_a": a.String(), "amount_b": b.String()}, nil

	case "swap":
		trader, err := f.Account("account")
		if err != nil {
			return nil, err
		}
		pool, isA, amount, err := r.trade(ctx, f)
		if err != nil {
			return nil, err
		}
		minOut, err := f.IntOr("min_out")
		if err != nil {
			return nil, err
		}
		recipient, err := f.AccountOr("recipient", trader)
		if err != nil {
			return nil, err
		}
		tokenIn, _ := pool.Tokens(isA)
		if err := r.approveEscrow(ctx, f, trader, pool, tokenIn, amount); err != nil {
			return nil, err
		}
		out, err := dex.Swap(ctx, trader, pool.Id, amount, isA, minOut, recipient)
		if err != nil {
			return nil, err
		}
		return map[string]string{"amount_out": out.String()}, nil

	case "quote":
		pool, isA, amount, err := r.trade(ctx, f)
		if err != nil {
			return nil, err
		}
		quote, err := dex.SimulateSwap(ctx, pool.Id, amount, isA)
		if err != nil {
			return nil, err
		}
		return map[string]string{
			"amount_out":       quote.AmountOut.String(),
			"token_out":        quote.TokenOut,
			"price_impact_bps": fmt.Sprintf("%d", quote.PriceImpactBps),
		}, nil

	case "spot_price":
		pool, err := r.pool(ctx, f)
		if err != nil {
			return nil, err
		}
		tokenIn, err := f.String("token_in")
		if err != nil {
			return nil, err
		}
		price, err := dex.GetSpotPrice(ctx, pool.Id, tokenIn)
		if err != nil {
			return nil, err
		}
		return map[string]string{"price": price.String()}, nil

	case "flash_loan":
		borrower, err := f.Account("account")
		if err != nil {
			return nil, err
		}
		pool, err := r.pool(ctx, f)
		if err != nil {
			return nil, err
		}
		token, err := f.String("token")
		if err != nil {
			return nil, err
		}
		amount, err := f.Int("amount")
		if err != nil {
			return nil, err
		}
		shortfall, err := f.IntOr("shortfall")
		if err != nil {
			return nil, err
		}
		escrow := pool.GetAddress()
		fee, err := dex.FlashLoan(ctx, borrower, pool.Id, token, amount,
			func(ctx context.Context, denom string, principal, fee sdkmath.Int) error {
				repay := principal.Add(fee).Sub(shortfall)
				if !repay.IsPositive() {
					return nil
				}
				return ledger.Transfer(ctx, denom, borrower, escrow, repay)
			})
		if err != nil {
			return nil, err
		}
		return map[string]string{"fee": fee.String()}, nil

	case "pause":
		caller, pool, err := r.callerAndPool(ctx, f)
		if err != nil {
			return nil, err
		}
		return nil, dex.EmergencyPause(ctx, caller, pool.Id, f.StringOr("reason", "scenario"))

	case "unpause":
		caller, pool, err := r.callerAndPool(ctx, f)
		if err != nil {
			return nil, err
		}
		return nil, dex.Unpause(ctx, caller, pool.Id)

	case "reset_breaker":
		caller, pool, err := r.callerAndPool(ctx, f)
		if err != nil {
			return nil, err
		}
		return nil, dex.ResetCircuitBreaker(ctx, caller, pool.Id)

	case "add_gov_member", "remove_gov_member":
		caller, err := f.Account("caller")
		if err != nil {
			return nil, err
		}
		member, err := f.Account("member")
		if err != nil {
			return nil, err
		}
		if step.Action == "add_gov_member" {
			err = dex.AddGovMember(ctx, caller, member)
		} else {
			err = dex.RemoveGovMember(ctx, caller, member)
		}
		if err != nil {
			return nil, err
		}
		return map[string]string{"member_count": fmt.Sprintf("%d", dex.GovMemberCount(ctx))}, nil

	case "set_operator":
		caller, err := f.Account("caller")
		if err != nil {
			return nil, err
		}
		operator, err := f.Account("operator")
		if err != nil {
			return nil, err
		}
		enabled, err := f.BoolOr("enabled", true)
		if err != nil {
			return nil, err
		}
		return nil, dex.SetEmergencyOperator(ctx, caller, operator, enabled)

	case "twap":
		pool, err := r.pool(ctx, f)
		if err != nil {
			return nil, err
		}
		window, err := f.Int64Or("window_seconds", 0)
		if err != nil {
			return nil, err
		}
		if window <= 0 {
			return nil, fmt.Errorf("window_seconds must be positive")
		}
		end := ctx.BlockTime().Unix()
		twapA, twapB, err := dex.GetTwap(ctx, pool.Id, end-window, end)
		if err != nil {
			return nil, err
		}
		return map[string]string{"twap_a": twapA.String(), "twap_b": twapB.String()}, nil

	case "balance":
		owner, err := f.Account("account")
		if err != nil {
			return nil, err
		}
		denom, err := f.String("denom")
		if err != nil {
			return nil, err
		}
		return map[string]string{"balance": ledger.BalanceOf(ctx, denom, owner).String()}, nil

	case "next_block":
		blocks, err := f.Int64Or("blocks", 1)
		if err != nil {
			return nil, err
		}
		if blocks <= 0 {
			return nil, fmt.Errorf("blocks must be positive")
		}
		r.app.NextBlock(blocks)
		return map[string]string{"height": fmt.Sprintf("%d", r.app.Height())}, nil

	case "check_invariants":
		return nil, r.app.CheckInvariants()
	}

	return nil, fmt.Errorf("unknown action %q", step.Action)
}

// pool resolves the "pool" field, given either as a pool id or as a
// "tokenA/tokenB" pair.
func (r *Runner) pool(ctx sdk.Context, f Fields) (*dextypes.Pool, error) {
	ref, err := f.String("pool")
	if err != nil {
		return nil, err
	}
	if tokenA, tokenB, ok := strings.Cut(ref, "/"); ok {
		return r.app.DexKeeper.GetPoolByTokens(ctx, tokenA, tokenB)
	}
	return r.app.DexKeeper.GetPool(ctx, ref)
}

func (r *Runner) callerAndPool(ctx sdk.Context, f Fields) (sdk.AccAddress, *dextypes.Pool, error) {
	caller, err := f.Account("caller")
	if err != nil {
		return nil, nil, err
	}
	pool, err := r.pool(ctx, f)
	if err != nil {
		return nil, nil, err
	}
	return caller, pool, nil
}

// trade resolves the pool, direction and input amount of a swap or quote.
func (r *Runner) trade(ctx sdk.Context, f Fields) (*dextypes.Pool, bool, sdkmath.Int, error) {
	pool, err := r.pool(ctx, f)
	if err != nil {
		return nil, false, sdkmath.Int{}, err
	}
	tokenIn, err := f.String("token_in")
	if err != nil {
		return nil, false, sdkmath.Int{}, err
	}
	if !pool.HasToken(tokenIn) {
		return nil, false, sdkmath.Int{}, fmt.Errorf("pool %s does not trade %s", pool.Id, tokenIn)
	}
	amount, err := f.Int("amount")
	if err != nil {
		return nil, false, sdkmath.Int{}, err
	}
	return pool, tokenIn == pool.TokenA, amount, nil
}

// approveEscrow lets the pool pull amount of denom from owner unless the
// step sets approve: false.
func (r *Runner) approveEscrow(ctx sdk.Context, f Fields, owner sdk.AccAddress, pool *dextypes.Pool, denom string, amount sdkmath.Int) error {
	approve, err := f.BoolOr("approve", true)
	if err != nil || !approve {
		return err
	}
	if !amount.IsPositive() {
		return nil
	}
	return r.app.TokenKeeper.Approve(ctx, denom, owner, pool.GetAddress(), amount)
}

func flattenEvents(events sdk.Events) []EventRecord {
	records := make([]EventRecord, 0, len(events))
	for _, ev := range events {
		attrs := make(map[string]string, len(ev.Attributes))
		for _, attr := range ev.Attributes {
			attrs[attr.Key] = attr.Value
		}
		records = append(records, EventRecord{Type: ev.Type, Attributes: attrs})
	}
	return records
}

