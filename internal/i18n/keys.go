// internal/i18n/keys.go
package i18n

// Translation keys constants
const (
	// Common
	KeySuccess = "success"
	KeyError   = "error"

	// Authentication
	KeyAuthRequired           = "auth.required"
	KeyAuthInvalidToken       = "auth.invalid_token"
	KeyAuthTokenExpired       = "auth.token_expired"
	KeyAuthInvalidCredentials = "auth.invalid_credentials"
	KeyAuthUserExists         = "auth.user_exists"
	KeyAuthRegisterSuccess    = "auth.register_success"
	KeyAuthLoginSuccess       = "auth.login_success"

	// Users and guardianship
	KeyUserNotFound       = "user.not_found"
	KeyGuardianLinked     = "guardian.linked"
	KeyGuardianCodeUsed   = "guardian.code_used"
	KeyGuardianNotLinked  = "guardian.not_linked"
	KeyApprovalNotPending = "approval.not_pending"

	// Inventory
	KeyInventoryNotFound = "inventory.not_found"
	KeyInventoryLocked   = "inventory.locked"
	KeyInventoryCreated  = "inventory.created"
	KeyInventoryArchived = "inventory.archived"

	// Trades
	KeyTradeNotFound     = "trade.not_found"
	KeyTradeProposed     = "trade.proposed"
	KeyTradeAccepted     = "trade.accepted"
	KeyTradeCompleted    = "trade.completed"
	KeyTradeCancelled    = "trade.cancelled"
	KeyTradeRejected     = "trade.rejected"
	KeyTradeValueTooFar  = "trade.value_too_far"
	KeyTradeItemsLocked  = "trade.items_locked"
	KeyTradeNeedApproval = "trade.needs_parental_approval"

	// Events
	KeyEventNotFound     = "event.not_found"
	KeyEventNotValidated = "event.not_validated"
	KeyEventConfirmed    = "event.confirmed"

	// Vendor
	KeySaleRecorded = "sale.recorded"
	KeySaleNotFound = "sale.not_found"

	// Validation
	KeyValidationInvalid = "validation.invalid"
)
