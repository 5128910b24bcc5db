package types

import (
	"cosmossdk.io/errors"
)

// Token module sentinel errors
var (
	ErrInvalidAmount         = errors.Register(ModuleName, 2, "invalid amount")
	ErrInvalidAddress        = errors.Register(ModuleName, 3, "invalid address")
	ErrInvalidDenom          = errors.Register(ModuleName, 4, "invalid denom")
	ErrInsufficientBalance   = errors.Register(ModuleName, 5, "insufficient balance")
	ErrInsufficientAllowance = errors.Register(ModuleName, 6, "insufficient allowance")
)
