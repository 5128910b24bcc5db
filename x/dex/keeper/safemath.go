package keeper

import (
	"math/big"

	"cosmossdk.io/math"

	"github.com/paw-chain/pawamm/x/dex/types"
)

// The wrappers below turn math.Int overflow and division errors into the
// module's ArithmeticError so callers can surface a single kind.

func safeAdd(a, b math.Int) (math.Int, error) {
	res, err := a.SafeAdd(b)
	if err != nil {
		return math.Int{}, types.ErrArithmetic.Wrapf("%s + %s: %s", a, b, err)
	}
	return res, nil
}

func safeSub(a, b math.Int) (math.Int, error) {
	if a.LT(b) {
		return math.Int{}, types.ErrArithmetic.Wrapf("underflow: %s - %s", a, b)
	}
	res, err := a.SafeSub(b)
	if err != nil {
		return math.Int{}, types.ErrArithmetic.Wrapf("%s - %s: %s", a, b, err)
	}
	return res, nil
}

func safeMul(a, b math.Int) (math.Int, error) {
	res, err := a.SafeMul(b)
	if err != nil {
		return math.Int{}, types.ErrArithmetic.Wrapf("%s * %s: %s", a, b, err)
	}
	return res, nil
}

func safeQuo(a, b math.Int) (math.Int, error) {
	res, err := a.SafeQuo(b)
	if err != nil {
		return math.Int{}, types.ErrArithmetic.Wrapf("%s / %s: %s", a, b, err)
	}
	return res, nil
}

// mulDiv computes floor(a*b/c) with overflow checking on the product.
func mulDiv(a, b, c math.Int) (math.Int, error) {
	prod, err := safeMul(a, b)
	if err != nil {
		return math.Int{}, err
	}
	return safeQuo(prod, c)
}

// sqrtFloor returns floor(sqrt(x)) for non-negative x.
func sqrtFloor(x math.Int) (math.Int, error) {
	if x.IsNegative() {
		return math.Int{}, types.ErrArithmetic.Wrapf("square root of negative value %s", x)
	}
	return math.NewIntFromBigInt(new(big.Int).Sqrt(x.BigInt())), nil
}
