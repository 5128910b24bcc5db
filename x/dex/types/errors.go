package types

import (
	"cosmossdk.io/errors"
)

// DEX module sentinel errors. Each sentinel is one error kind; call sites attach
// the human-readable reason with Wrap/Wrapf.
var (
	ErrValidation         = errors.Register(ModuleName, 2, "validation error")
	ErrAuthorization      = errors.Register(ModuleName, 3, "authorization error")
	ErrReentrancy         = errors.Register(ModuleName, 4, "reentrancy detected")
	ErrMEVThrottle        = errors.Register(ModuleName, 5, "mev throttle")
	ErrSlippage           = errors.Register(ModuleName, 6, "slippage exceeded")
	ErrCircuitBreaker     = errors.Register(ModuleName, 7, "circuit breaker")
	ErrPaused             = errors.Register(ModuleName, 8, "pool paused")
	ErrFlashLoanRepayment = errors.Register(ModuleName, 9, "flash loan not repaid")
	ErrArithmetic         = errors.Register(ModuleName, 10, "arithmetic overflow or underflow")
	ErrGovernance         = errors.Register(ModuleName, 11, "governance invariant violated")
)

var errorKinds = []struct {
	err  *errors.Error
	kind string
}{
	{ErrValidation, "ValidationError"},
	{ErrAuthorization, "AuthorizationError"},
	{ErrReentrancy, "ReentrancyError"},
	{ErrMEVThrottle, "MEVThrottleError"},
	{ErrSlippage, "SlippageError"},
	{ErrCircuitBreaker, "CircuitBreakerError"},
	{ErrPaused, "PausedError"},
	{ErrFlashLoanRepayment, "FlashLoanRepaymentError"},
	{ErrArithmetic, "ArithmeticError"},
	{ErrGovernance, "GovernanceError"},
}

// ErrorKind returns the label of the dex error kind wrapped by err, or an empty
// string when err does not originate from this module.
func ErrorKind(err error) string {
	if err == nil {
		return ""
	}
	for _, k := range errorKinds {
		if errors.IsOf(err, k.err) {
			return k.kind
		}
	}
	return ""
}
