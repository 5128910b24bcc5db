package cmd

import (
	"fmt"
	"strings"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/cometbft/cometbft/crypto/tmhash"
	sdk "github.com/cosmos/cosmos-sdk/types"
	"github.com/spf13/cast"
	"github.com/spf13/viper"

	dextypes "github.com/paw-chain/pawamm/x/dex/types"
)

// DefaultGenesisTime is the block time of height 1 when a scenario does not
// set genesis_time.
var DefaultGenesisTime = time.Unix(1_700_000_000, 0).UTC()

// Scenario is a scripted sequence of engine calls replayed against a fresh
// in-memory engine.
type Scenario struct {
	Name        string
	GenesisTime time.Time
	Governance  []string
	Operators   []string
	Params      dextypes.Params
	Steps       []Step
}

// Step is a single scripted call. ExpectError names the error kind the call
// must fail with; an empty value means it must succeed.
type Step struct {
	Action      string
	ExpectError string
	Fields      Fields
}

// Fields are the loosely typed arguments of a step.
type Fields map[string]interface{}

// LoadScenario reads a scenario file in any format viper understands.
func LoadScenario(path string) (*Scenario, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}

	s := &Scenario{
		Name:        v.GetString("name"),
		GenesisTime: DefaultGenesisTime,
		Governance:  v.GetStringSlice("governance"),
		Operators:   v.GetStringSlice("operators"),
		Params:      dextypes.DefaultParams(),
	}
	if s.Name == "" {
		s.Name = path
	}
	if v.IsSet("genesis_time") {
		ts, err := cast.ToInt64E(v.Get("genesis_time"))
		if err != nil {
			return nil, fmt.Errorf("genesis_time: %w", err)
		}
		s.GenesisTime = time.Unix(ts, 0).UTC()
	}
	if len(s.Governance) == 0 {
		return nil, fmt.Errorf("scenario %s: at least one governance member is required", s.Name)
	}

	if err := applyParamOverrides(&s.Params, v.GetStringMap("params")); err != nil {
		return nil, fmt.Errorf("scenario %s: %w", s.Name, err)
	}
	if err := s.Params.Validate(); err != nil {
		return nil, fmt.Errorf("scenario %s: invalid params: %w", s.Name, err)
	}

	if !v.IsSet("steps") {
		return s, nil
	}
	rawSteps, err := cast.ToSliceE(v.Get("steps"))
	if err != nil {
		return nil, fmt.Errorf("scenario %s: steps: %w", s.Name, err)
	}
	for i, raw := range rawSteps {
		step, err := decodeStep(raw)
		if err != nil {
			return nil, fmt.Errorf("scenario %s: step %d: %w", s.Name, i+1, err)
		}
		s.Steps = append(s.Steps, step)
	}
	return s, nil
}

func decodeStep(raw interface{}) (Step, error) {
	m, err := cast.ToStringMapE(raw)
	if err != nil {
		return Step{}, err
	}
	fields := make(Fields, len(m))
	for k, v := range m {
		fields[strings.ToLower(k)] = v
	}

	action, err := cast.ToStringE(fields["action"])
	if err != nil || action == "" {
		return Step{}, fmt.Errorf("missing action")
	}
	expect, err := cast.ToStringE(fields["expect_error"])
	if err != nil {
		return Step{}, fmt.Errorf("expect_error: %w", err)
	}
	delete(fields, "action")
	delete(fields, "expect_error")

	return Step{Action: action, ExpectError: expect, Fields: fields}, nil
}

// applyParamOverrides sets the params named in overrides, keyed by their
// JSON names.
func applyParamOverrides(p *dextypes.Params, overrides map[string]interface{}) error {
	for key, raw := range overrides {
		var err error
		switch strings.ToLower(key) {
		case "min_fee_bps":
			p.MinFeeBps, err = cast.ToUint32E(raw)
		case "max_fee_bps":
			p.MaxFeeBps, err = cast.ToUint32E(raw)
		case "default_fee_bps":
			p.DefaultFeeBps, err = cast.ToUint32E(raw)
		case "minimum_liquidity":
			p.MinimumLiquidity, err = toInt(raw)
		case "min_block_delay":
			p.MinBlockDelay, err = cast.ToInt64E(raw)
		case "max_swap_fraction_bps":
			p.MaxSwapFractionBps, err = cast.ToUint32E(raw)
		case "circuit_breaker_threshold_bps":
			p.CircuitBreakerThresholdBps, err = cast.ToUint32E(raw)
		case "cooldown_blocks":
			p.CooldownBlocks, err = cast.ToInt64E(raw)
		case "flash_loan_fee_bps":
			p.FlashLoanFeeBps, err = cast.ToUint32E(raw)
		case "oracle_retention_seconds":
			p.OracleRetentionSeconds, err = cast.ToInt64E(raw)
		default:
			return fmt.Errorf("unknown param %q", key)
		}
		if err != nil {
			return fmt.Errorf("param %s: %w", key, err)
		}
	}
	return nil
}

// toInt accepts integers and decimal strings; strings carry amounts beyond
// int64.
func toInt(raw interface{}) (sdkmath.Int, error) {
	s, err := cast.ToStringE(raw)
	if err != nil {
		return sdkmath.Int{}, err
	}
	s = strings.TrimSpace(s)
	v, ok := sdkmath.NewIntFromString(s)
	if !ok {
		return sdkmath.Int{}, fmt.Errorf("invalid integer %q", s)
	}
	return v, nil
}

// AccountAddress resolves a scenario account. Bech32 addresses are used as
// is; any other name maps to a deterministic 20-byte address.
func AccountAddress(name string) (sdk.AccAddress, error) {
	if name == "" {
		return nil, fmt.Errorf("empty account name")
	}
	if addr, err := sdk.AccAddressFromBech32(name); err == nil {
		return addr, nil
	}
	return sdk.AccAddress(tmhash.SumTruncated([]byte(name))), nil
}

func (f Fields) has(key string) bool {
	_, ok := f[key]
	return ok
}

func (f Fields) String(key string) (string, error) {
	raw, ok := f[key]
	if !ok {
		return "", fmt.Errorf("missing %s", key)
	}
	s, err := cast.ToStringE(raw)
	if err != nil {
		return "", fmt.Errorf("%s: %w", key, err)
	}
	if s == "" {
		return "", fmt.Errorf("empty %s", key)
	}
	return s, nil
}

func (f Fields) StringOr(key, def string) string {
	if !f.has(key) {
		return def
	}
	return cast.ToString(f[key])
}

func (f Fields) Int(key string) (sdkmath.Int, error) {
	raw, ok := f[key]
	if !ok {
		return sdkmath.Int{}, fmt.Errorf("missing %s", key)
	}
	v, err := toInt(raw)
	if err != nil {
		return sdkmath.Int{}, fmt.Errorf("%s: %w", key, err)
	}
	return v, nil
}

// IntOr returns the integer at key, or zero when absent.
func (f Fields) IntOr(key string) (sdkmath.Int, error) {
	if !f.has(key) {
		return sdkmath.ZeroInt(), nil
	}
	return f.Int(key)
}

func (f Fields) Int64Or(key string, def int64) (int64, error) {
	if !f.has(key) {
		return def, nil
	}
	v, err := cast.ToInt64E(f[key])
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return v, nil
}

func (f Fields) Uint32Or(key string, def uint32) (uint32, error) {
	if !f.has(key) {
		return def, nil
	}
	v, err := cast.ToUint32E(f[key])
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return v, nil
}

func (f Fields) BoolOr(key string, def bool) (bool, error) {
	if !f.has(key) {
		return def, nil
	}
	v, err := cast.ToBoolE(f[key])
	if err != nil {
		return false, fmt.Errorf("%s: %w", key, err)
	}
	return v, nil
}

func (f Fields) Account(key string) (sdk.AccAddress, error) {
	name, err := f.String(key)
	if err != nil {
		return nil, err
	}
	return AccountAddress(name)
}

// AccountOr resolves the account at key, falling back to def when absent.
func (f Fields) AccountOr(key string, def sdk.AccAddress) (sdk.AccAddress, error) {
	if !f.has(key) {
		return def, nil
	}
	return f.Account(key)
}
