package ledger

import (
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/cashledger/backend/internal/domain/shared"
	"github.com/google/uuid"
)

const maxJustificationLength = 1000

// AdjustmentKind is what a request proposes to do with the entry
type AdjustmentKind string

const (
	AdjustmentModify AdjustmentKind = "modify"
	AdjustmentRemove AdjustmentKind = "remove"
)

// IsValid checks if the kind is a valid AdjustmentKind
func (k AdjustmentKind) IsValid() bool {
	return k == AdjustmentModify || k == AdjustmentRemove
}

// AdjustmentStatus is the lifecycle state of an adjustment request
type AdjustmentStatus string

const (
	AdjustmentPending  AdjustmentStatus = "pending"
	AdjustmentApproved AdjustmentStatus = "approved"
	AdjustmentRejected AdjustmentStatus = "rejected"
)

// IsValid checks if the status is a valid AdjustmentStatus
func (s AdjustmentStatus) IsValid() bool {
	switch s {
	case AdjustmentPending, AdjustmentApproved, AdjustmentRejected:
		return true
	}
	return false
}

// IsTerminal returns true once the request has been decided
func (s AdjustmentStatus) IsTerminal() bool {
	return s == AdjustmentApproved || s == AdjustmentRejected
}

// String returns the string representation of AdjustmentStatus
func (s AdjustmentStatus) String() string {
	return string(s)
}

// AdjustmentAction is the approver's verdict
type AdjustmentAction string

const (
	ActionApprove AdjustmentAction = "APPROVE"
	ActionReject  AdjustmentAction = "REJECT"
)

// IsValid checks if the action is a valid AdjustmentAction
func (a AdjustmentAction) IsValid() bool {
	return a == ActionApprove || a == ActionReject
}

// AdjustmentRequest is a governed proposal to change an entry that is no longer
// directly editable. Before is the entry state captured at request time and
// After is the state applied if, and only if, the request is approved.
type AdjustmentRequest struct {
	shared.TenantAggregateRoot
	EntryID       uuid.UUID        `json:"entry_id"`
	RequesterID   uuid.UUID        `json:"requester_id"`
	Kind          AdjustmentKind   `json:"kind"`
	Justification string           `json:"justification"`
	Before        EntrySnapshot    `json:"before"`
	After         EntrySnapshot    `json:"after"`
	Status        AdjustmentStatus `json:"status"`
	ApproverID    *uuid.UUID       `json:"approver_id"`
	DecisionNotes string           `json:"decision_notes"`
	RequestedAt   time.Time        `json:"requested_at"`
	DecidedAt     *time.Time       `json:"decided_at"`
}

// NewAdjustmentRequest captures the entry's current state and the proposed change
func NewAdjustmentRequest(
	entry *RevenueEntry,
	kind AdjustmentKind,
	justification string,
	proposed EntryPatch,
	requester uuid.UUID,
	now time.Time,
) (*AdjustmentRequest, error) {
	if entry == nil {
		return nil, shared.ErrNotFound.With("resource", "revenue_entry")
	}
	if !entry.Active {
		return nil, ErrEntryInactive.With("entry_id", entry.ID.String())
	}
	if !kind.IsValid() {
		return nil, ErrInvalidAdjustment
	}
	justification = NormalizeText(justification)
	if justification == "" {
		return nil, ErrJustificationMissing
	}
	if utf8.RuneCountInString(justification) > maxJustificationLength {
		return nil, ErrJustificationTooLong
	}

	before := entry.Snapshot()
	var after EntrySnapshot
	switch kind {
	case AdjustmentModify:
		if proposed.IsEmpty() {
			return nil, ErrEmptyProposal
		}
		after = proposed.ApplyTo(before)
	case AdjustmentRemove:
		after = before
		after.Active = false
	}

	r := &AdjustmentRequest{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(entry.TenantID, requester, now),
		EntryID:             entry.ID,
		RequesterID:         requester,
		Kind:                kind,
		Justification:       justification,
		Before:              before,
		After:               after,
		Status:              AdjustmentPending,
		RequestedAt:         stamp(now),
	}
	r.AddDomainEvent(NewAdjustmentRequestedEvent(r))
	return r, nil
}

// CheckFresh fails with ErrStaleRequest when the live entry no longer matches Before
func (r *AdjustmentRequest) CheckFresh(live *RevenueEntry) error {
	if !live.Snapshot().Equal(r.Before) {
		return ErrStaleRequest.With("request_id", r.ID.String()).With("entry_id", r.EntryID.String())
	}
	return nil
}

// ApplyTo performs the approved change on the live entry through the regular
// entry validation.
func (r *AdjustmentRequest) ApplyTo(entry *RevenueEntry, now time.Time) error {
	switch r.Kind {
	case AdjustmentRemove:
		return entry.Deactivate(now)
	default:
		return entry.Update(r.After.Fields(), now)
	}
}

// Approve marks the request approved. The caller applies After in the same transaction.
func (r *AdjustmentRequest) Approve(approver uuid.UUID, notes string, now time.Time) error {
	return r.decide(AdjustmentApproved, approver, notes, now)
}

// Reject marks the request rejected without touching the entry
func (r *AdjustmentRequest) Reject(approver uuid.UUID, notes string, now time.Time) error {
	return r.decide(AdjustmentRejected, approver, notes, now)
}

// Withdraw lets the requester abandon a pending request, for example after it
// went stale, so a fresh one can be filed. It is recorded as rejected.
func (r *AdjustmentRequest) Withdraw(by uuid.UUID, now time.Time) error {
	if r.Status != AdjustmentPending {
		return ErrNotPending.With("status", r.Status.String())
	}
	if by != r.RequesterID {
		return shared.ErrForbidden.WithMessage("Only the requester can withdraw a request")
	}
	at := stamp(now)
	r.Status = AdjustmentRejected
	r.ApproverID = &by
	r.DecisionNotes = WithdrawnNote
	r.DecidedAt = &at
	r.Touch(now)
	r.AddDomainEvent(NewAdjustmentDecidedEvent(r))
	return nil
}

// WithdrawnNote marks requests closed by their own requester
const WithdrawnNote = "withdrawn by requester"

// CheckDecider rejects deciding one's own request
func (r *AdjustmentRequest) CheckDecider(approver uuid.UUID) error {
	if approver == r.RequesterID {
		return ErrSelfApproval
	}
	return nil
}

func (r *AdjustmentRequest) decide(status AdjustmentStatus, approver uuid.UUID, notes string, now time.Time) error {
	if r.Status != AdjustmentPending {
		return ErrNotPending.WithMessage(fmt.Sprintf("Request is already %s", r.Status)).With("status", r.Status.String())
	}
	if err := r.CheckDecider(approver); err != nil {
		return err
	}
	at := stamp(now)
	r.Status = status
	r.ApproverID = &approver
	r.DecisionNotes = NormalizeText(notes)
	r.DecidedAt = &at
	r.Touch(now)
	r.AddDomainEvent(NewAdjustmentDecidedEvent(r))
	return nil
}
