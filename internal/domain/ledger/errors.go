package ledger

import "github.com/cashledger/backend/internal/domain/shared"

// Validation
var (
	ErrInvalidAmount        = shared.NewValidationError("INVALID_AMOUNT", "amount", "Amount must be positive with at most two decimal places")
	ErrInvalidTimeRange     = shared.NewValidationError("INVALID_TIME_RANGE", "ended_at", "End time must be after start time")
	ErrFutureTimestamp      = shared.NewValidationError("FUTURE_TIMESTAMP", "ended_at", "End time cannot be in the future")
	ErrInvalidPaymentMethod = shared.NewValidationError("INVALID_PAYMENT_METHOD", "payment_method", "Payment method is not recognized")
	ErrOriginTooLong        = shared.NewValidationError("INVALID_ORIGIN", "origin", "Origin cannot exceed 120 characters")
	ErrInvalidFloat         = shared.NewValidationError("INVALID_OPENING_FLOAT", "opening_float", "Opening float cannot be negative")
	ErrInvalidCountedTotal  = shared.NewValidationError("INVALID_COUNTED_TOTAL", "counted_total", "Counted total cannot be negative")
	ErrInvalidSupervisorSum = shared.NewValidationError("INVALID_SUPERVISOR_TOTAL", "atm_total", "Supervisor totals cannot be negative")
	ErrInvalidDecision      = shared.NewValidationError("INVALID_DECISION", "decision", "Decision must be APPROVE or REJECT")
	ErrInvalidBusinessDate  = shared.NewValidationError("INVALID_BUSINESS_DATE", "business_date", "Business date is required")
	ErrInvalidUnit          = shared.NewValidationError("INVALID_UNIT", "unit_id", "Unit is required")
	ErrJustificationMissing = shared.NewValidationError("JUSTIFICATION_REQUIRED", "justification", "Justification is required")
	ErrJustificationTooLong = shared.NewValidationError("JUSTIFICATION_TOO_LONG", "justification", "Justification cannot exceed 1000 characters")
	ErrInvalidAdjustment    = shared.NewValidationError("INVALID_ADJUSTMENT_KIND", "kind", "Adjustment kind must be modify or remove")
	ErrEmptyProposal        = shared.NewValidationError("EMPTY_PROPOSAL", "proposed", "A modify request must change at least one field")
	ErrInvalidAction        = shared.NewValidationError("INVALID_ACTION", "action", "Action must be APPROVE or REJECT")
)

// Conflict
var (
	ErrLedgerExists         = shared.NewDomainError(shared.KindConflict, "LEDGER_ALREADY_EXISTS", "A ledger already exists for this unit and date")
	ErrEntryOverlap         = shared.NewDomainError(shared.KindConflict, "ENTRY_OVERLAP", "Entry time range overlaps an existing entry")
	ErrRequiresAdjustment   = shared.NewDomainError(shared.KindConflict, "REQUIRES_ADJUSTMENT_REQUEST", "Ledger is no longer editable; submit an adjustment request")
	ErrPendingRequestExists = shared.NewDomainError(shared.KindConflict, "PENDING_REQUEST_EXISTS", "A pending adjustment request already exists for this entry")
	ErrStaleRequest         = shared.NewDomainError(shared.KindConflict, "STALE_REQUEST", "Entry changed since the request was made; resubmit the request")
	ErrNotPending           = shared.NewDomainError(shared.KindConflict, "NOT_PENDING", "Request has already been decided")
	ErrEntryInactive        = shared.NewDomainError(shared.KindConflict, "ENTRY_INACTIVE", "Entry has been removed")
	ErrLedgerFinalized      = shared.NewDomainError(shared.KindConflict, "LEDGER_FINALIZED", "Ledger is reconciled; its entries can no longer change")
	ErrDirectEditAllowed    = shared.NewDomainError(shared.KindConflict, "DIRECT_EDIT_ALLOWED", "Ledger is still pending; edit the entry directly")
)

// Authorization
var (
	ErrUnitAccessDenied = shared.NewDomainError(shared.KindAuthorization, "UNIT_ACCESS_DENIED", "Caller is not assigned to this unit")
	ErrSelfApproval     = shared.NewDomainError(shared.KindAuthorization, "SELF_APPROVAL", "A request cannot be decided by its requester")
)

// Integrity
var ErrIntegrityViolation = shared.NewDomainError(shared.KindIntegrity, "INTEGRITY_VIOLATION", "Ledger integrity check failed")
