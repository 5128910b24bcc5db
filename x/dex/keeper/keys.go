package keeper

import (
	"encoding/hex"

	sdk "github.com/cosmos/cosmos-sdk/types"
)

var (
	// PoolKeyPrefix is the prefix for pool store keys
	PoolKeyPrefix = []byte{0x01}

	// PoolByTokensKeyPrefix is the prefix for indexing pools by token pair
	PoolByTokensKeyPrefix = []byte{0x03}

	// LiquidityKeyPrefix is the prefix for liquidity position store keys
	LiquidityKeyPrefix = []byte{0x04}

	// ParamsKey is the key for module parameters
	ParamsKey = []byte{0x05}

	// LastActionKeyPrefix is the prefix for the MEV throttle's last action block per (pool, user)
	LastActionKeyPrefix = []byte{0x07}

	// ReentrancyLockKeyPrefix is the prefix for reentrancy protection locks
	ReentrancyLockKeyPrefix = []byte{0x08}

	// PriceObservationKeyPrefix stores oracle accumulator snapshots per (pool, timestamp)
	PriceObservationKeyPrefix = []byte{0x0E}

	// GovMemberKeyPrefix is the prefix for governance membership flags
	GovMemberKeyPrefix = []byte{0x10}

	// GovMemberCountKey holds the governance set cardinality
	GovMemberCountKey = []byte{0x11}

	// EmergencyOperatorKeyPrefix is the prefix for emergency operator flags
	EmergencyOperatorKeyPrefix = []byte{0x12}

	// FlashLoanDebtKeyPrefix holds outstanding flash loan debt while a loan is in flight
	FlashLoanDebtKeyPrefix = []byte{0x13}
)

// poolIDLen is the byte length of a decoded pool id.
const poolIDLen = 32

// poolIDBytes decodes a validated pool id. Invalid ids map to their raw
// bytes, which never collide with a 32-byte decoded id of a stored pool.
func poolIDBytes(poolID string) []byte {
	bz, err := hex.DecodeString(poolID)
	if err != nil {
		return []byte(poolID)
	}
	return bz
}

// PoolKey returns the store key for a pool by ID
func PoolKey(poolID string) []byte {
	return append(append([]byte{}, PoolKeyPrefix...), poolIDBytes(poolID)...)
}

// PoolByTokensKey returns the store key for indexing a pool by its token pair
func PoolByTokensKey(tokenA, tokenB string) []byte {
	// Ensure consistent ordering: tokenA < tokenB lexicographically
	if tokenA > tokenB {
		tokenA, tokenB = tokenB, tokenA
	}
	key := append([]byte{}, PoolByTokensKeyPrefix...)
	key = append(key, []byte(tokenA)...)
	key = append(key, []byte("/")...)
	key = append(key, []byte(tokenB)...)
	return key
}

// LiquidityPoolPrefix returns the prefix of every position in a pool
func LiquidityPoolPrefix(poolID string) []byte {
	return append(append([]byte{}, LiquidityKeyPrefix...), poolIDBytes(poolID)...)
}

// LiquidityKey returns the store key for a liquidity position
func LiquidityKey(poolID string, provider sdk.AccAddress) []byte {
	return append(LiquidityPoolPrefix(poolID), provider.Bytes()...)
}

// LastActionKey returns the store key for a user's last mutating action block on a pool
func LastActionKey(poolID string, user sdk.AccAddress) []byte {
	key := append(append([]byte{}, LastActionKeyPrefix...), poolIDBytes(poolID)...)
	return append(key, user.Bytes()...)
}

// ReentrancyLockKey returns the store key for a reentrancy lock
func ReentrancyLockKey(lockID string) []byte {
	return append(append([]byte{}, ReentrancyLockKeyPrefix...), []byte(lockID)...)
}

// PriceObservationPoolPrefix returns the prefix of every observation of a pool
func PriceObservationPoolPrefix(poolID string) []byte {
	return append(append([]byte{}, PriceObservationKeyPrefix...), poolIDBytes(poolID)...)
}

// GovMemberKey returns the store key for a governance membership flag
func GovMemberKey(addr sdk.AccAddress) []byte {
	return append(append([]byte{}, GovMemberKeyPrefix...), addr.Bytes()...)
}

// EmergencyOperatorKey returns the store key for an emergency operator flag
func EmergencyOperatorKey(addr sdk.AccAddress) []byte {
	return append(append([]byte{}, EmergencyOperatorKeyPrefix...), addr.Bytes()...)
}

// FlashLoanDebtKey returns the store key for a pool's in-flight flash loan debt
func FlashLoanDebtKey(poolID string) []byte {
	return append(append([]byte{}, FlashLoanDebtKeyPrefix...), poolIDBytes(poolID)...)
}
