package types

const (
	// ModuleName defines the module name
	ModuleName = "dex"

	// StoreKey defines the primary module store key
	StoreKey = ModuleName

	// BasisPoints is the denominator for every fee and fraction expressed in bps.
	BasisPoints = 10_000
)
