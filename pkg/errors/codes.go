package errors

// ErrorCode is a numeric identifier for a category of error.
type ErrorCode int

// General errors (1-99).
const (
	ErrCodeUnknown ErrorCode = iota + 1
	ErrCodeInternal
)

// Validation errors (100-199).
const (
	ErrCodeInvalidParameter ErrorCode = iota + 100
	ErrCodeInvalidSettings
	ErrCodeInvalidOrder
	ErrCodeInvalidOpportunity
	ErrCodeInvalidType
	ErrCodeMissingParameter
)

// Market data errors (200-299).
const (
	ErrCodeStaleQuote ErrorCode = iota + 200
	ErrCodeUnknownVenue
	ErrCodeUnknownSymbol
	ErrCodeProviderClosed
)

// Scanner errors (300-399).
const (
	ErrCodeInsufficientQuotes ErrorCode = iota + 300
	ErrCodeOpportunityExpired
)

// Rule errors (400-499).
const (
	ErrCodeRulePanic ErrorCode = iota + 400
	ErrCodeRuleContextMissing
)

// Execution errors (500-599).
const (
	ErrCodeOrderRejected ErrorCode = iota + 500
	ErrCodeBuyLegFailed
	ErrCodeSellLegFailed
	ErrCodeExecutionCancelled
	ErrCodeInsufficientBalance
)

// Session errors (600-699).
const (
	ErrCodeSessionAlreadyRunning ErrorCode = iota + 600
	ErrCodeSessionStopped
	ErrCodeDailyLimitReached
	ErrCodeDrawdownBreached
)

// Configuration errors (700-799).
const (
	ErrCodeConfigRead ErrorCode = iota + 700
	ErrCodeConfigParse
	ErrCodeConfigInvalid
)
