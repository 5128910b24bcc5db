package types

// Event types for the DEX module
const (
	EventTypePoolCreated              = "pool_created"
	EventTypePoolStatusToggled        = "pool_status_toggled"
	EventTypeLiquidityAdded           = "liquidity_added"
	EventTypeLiquidityRemoved         = "liquidity_removed"
	EventTypeSwap                     = "swap"
	EventTypeFlashLoan                = "flash_loan"
	EventTypeCircuitBreakerTripped    = "circuit_breaker_tripped"
	EventTypeCircuitBreakerReset      = "circuit_breaker_reset"
	EventTypePaused                   = "paused"
	EventTypeUnpaused                 = "unpaused"
	EventTypeGovMemberAdded           = "gov_member_added"
	EventTypeGovMemberRemoved         = "gov_member_removed"
	EventTypeEmergencyOperatorUpdated = "emergency_operator_updated"
	EventTypeActionRecordsCleaned     = "action_records_cleaned"
)

// Event attribute keys
const (
	AttributeKeyPoolID         = "pool_id"
	AttributeKeyTokenA         = "token_a"
	AttributeKeyTokenB         = "token_b"
	AttributeKeyFeeBps         = "fee_bps"
	AttributeKeyCreator        = "creator"
	AttributeKeyActive         = "active"
	AttributeKeyProvider       = "provider"
	AttributeKeyRecipient      = "recipient"
	AttributeKeyAmountA        = "amount_a"
	AttributeKeyAmountB        = "amount_b"
	AttributeKeyLiquidity      = "liquidity"
	AttributeKeyTrader         = "trader"
	AttributeKeyTokenIn        = "token_in"
	AttributeKeyTokenOut       = "token_out"
	AttributeKeyAmountIn       = "amount_in"
	AttributeKeyAmountOut      = "amount_out"
	AttributeKeyPriceImpactBps = "price_impact_bps"
	AttributeKeyBorrower       = "borrower"
	AttributeKeyToken          = "token"
	AttributeKeyAmount         = "amount"
	AttributeKeyFee            = "fee"
	AttributeKeyTrippedUntil   = "tripped_until"
	AttributeKeyActor          = "actor"
	AttributeKeyReason         = "reason"
	AttributeKeyMember         = "member"
	AttributeKeyOperator       = "operator"
	AttributeKeyEnabled        = "enabled"
	AttributeKeyMemberCount    = "member_count"
	AttributeKeyHeight         = "height"
	AttributeKeyCount          = "count"
)
