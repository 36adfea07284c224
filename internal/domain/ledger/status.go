package ledger

// LedgerStatus is the workflow status of a daily ledger
type LedgerStatus string

const (
	LedgerStatusPending    LedgerStatus = "PENDING"    // Submitted by the operator, awaiting supervisor review
	LedgerStatusApproved   LedgerStatus = "APPROVED"   // Approved by a supervisor, awaiting end-of-day count
	LedgerStatusRejected   LedgerStatus = "REJECTED"   // Sent back to the operator for resubmission
	LedgerStatusClosed     LedgerStatus = "CLOSED"     // Counted and sealed
	LedgerStatusReconciled LedgerStatus = "RECONCILED" // Variance reviewed, seal verified
)

// IsValid checks if the status is a valid LedgerStatus
func (s LedgerStatus) IsValid() bool {
	switch s {
	case LedgerStatusPending, LedgerStatusApproved, LedgerStatusRejected,
		LedgerStatusClosed, LedgerStatusReconciled:
		return true
	}
	return false
}

// String returns the string representation of LedgerStatus
func (s LedgerStatus) String() string {
	return string(s)
}

// CanReview returns true if a supervisor may approve or reject the ledger
func (s LedgerStatus) CanReview() bool {
	return s == LedgerStatusPending
}

// CanResubmit returns true if the operator may submit the ledger again
func (s LedgerStatus) CanResubmit() bool {
	return s == LedgerStatusRejected
}

// CanClose returns true if the end-of-day count may be recorded
func (s LedgerStatus) CanClose() bool {
	return s == LedgerStatusApproved
}

// CanReconcile returns true if the ledger is sealed and awaiting reconciliation
func (s LedgerStatus) CanReconcile() bool {
	return s == LedgerStatusClosed
}

// AllowsDirectEdit returns true if entries may be changed without an adjustment request
func (s LedgerStatus) AllowsDirectEdit() bool {
	return s == LedgerStatusPending
}

// IsFinal returns true once no entry of the ledger may change any more
func (s LedgerStatus) IsFinal() bool {
	return s == LedgerStatusReconciled
}

// CashBoxStatus tracks custody of the physical cash, independently of approval
type CashBoxStatus string

const (
	CashBoxOpen       CashBoxStatus = "OPEN"
	CashBoxClosed     CashBoxStatus = "CLOSED"
	CashBoxReconciled CashBoxStatus = "RECONCILED"
	CashBoxSent       CashBoxStatus = "SENT"
)

// IsValid checks if the status is a valid CashBoxStatus
func (s CashBoxStatus) IsValid() bool {
	switch s {
	case CashBoxOpen, CashBoxClosed, CashBoxReconciled, CashBoxSent:
		return true
	}
	return false
}

// String returns the string representation of CashBoxStatus
func (s CashBoxStatus) String() string {
	return string(s)
}

// CanDispatch returns true if the cash may be sent to the treasury
func (s CashBoxStatus) CanDispatch() bool {
	return s == CashBoxReconciled
}

// ReviewDecision is the supervisor's verdict on a submitted ledger
type ReviewDecision string

const (
	ReviewApprove ReviewDecision = "APPROVE"
	ReviewReject  ReviewDecision = "REJECT"
)

// IsValid checks if the decision is a valid ReviewDecision
func (d ReviewDecision) IsValid() bool {
	return d == ReviewApprove || d == ReviewReject
}

// PaymentMethod identifies how a revenue entry was received
type PaymentMethod string

const (
	PaymentMethodCash   PaymentMethod = "cash"
	PaymentMethodPix    PaymentMethod = "pix"
	PaymentMethodCredit PaymentMethod = "credit"
	PaymentMethodDebit  PaymentMethod = "debit"
	PaymentMethodOther  PaymentMethod = "other"
)

// IsValid checks if the method is a recognized PaymentMethod
func (m PaymentMethod) IsValid() bool {
	switch m {
	case PaymentMethodCash, PaymentMethodPix, PaymentMethodCredit,
		PaymentMethodDebit, PaymentMethodOther:
		return true
	}
	return false
}

// String returns the string representation of PaymentMethod
func (m PaymentMethod) String() string {
	return string(m)
}

// AllPaymentMethods returns the recognized payment methods
func AllPaymentMethods() []PaymentMethod {
	return []PaymentMethod{
		PaymentMethodCash,
		PaymentMethodPix,
		PaymentMethodCredit,
		PaymentMethodDebit,
		PaymentMethodOther,
	}
}
