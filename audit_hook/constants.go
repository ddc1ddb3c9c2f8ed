package audithook

// Action constants for audit events.
const (
	// Contribution actions
	ActionPurchaseCompleted = "purchase.completed"
	ActionPurchaseRefunded  = "purchase.refunded"
	ActionGrantIssued       = "grant.issued"
	ActionGoalReached       = "goal.reached"

	// Claim actions
	ActionClaimReleased = "claim.released"

	// Reserve actions
	ActionReserveDeposited = "reserve.deposited"
	ActionReserveWithdrawn = "reserve.withdrawn"
	ActionReserveExtracted = "reserve.extracted"

	// Configuration actions
	ActionConfigChanged = "config.changed"
)

// Resource constants for audit events.
const (
	ResourceContribution = "contribution"
	ResourceGrant        = "grant"
	ResourceClaim        = "claim"
	ResourceReserve      = "reserve"
	ResourceCampaign     = "campaign"
)

// Category constants for audit events.
const (
	CategorySale    = "sale"
	CategoryVesting = "vesting"
	CategoryCustody = "custody"
	CategoryConfig  = "config"
)

// Severity levels for audit events.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityError    = "error"
	SeverityCritical = "critical"
)

// Outcome values for audit events.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomePartial = "partial"
)
