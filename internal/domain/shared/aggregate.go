package shared

import (
	"time"

	"github.com/google/uuid"
)

// AggregateRoot buffers the events raised by a mutation until the enclosing
// transaction commits
type AggregateRoot interface {
	AddDomainEvent(event DomainEvent)
	GetDomainEvents() []DomainEvent
	ClearDomainEvents()
}

// BaseEntity holds identity and timestamps
type BaseEntity struct {
	ID        uuid.UUID
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Touch stamps the update time
func (e *BaseEntity) Touch(now time.Time) {
	e.UpdatedAt = now
}

// BaseAggregateRoot adds the optimistic lock version and pending events.
// Version starts at 1 and is bumped by the repository after a successful save.
type BaseAggregateRoot struct {
	BaseEntity
	Version      int
	domainEvents []DomainEvent
}

func (a *BaseAggregateRoot) IncrementVersion() {
	a.Version++
}

func (a *BaseAggregateRoot) AddDomainEvent(event DomainEvent) {
	a.domainEvents = append(a.domainEvents, event)
}

func (a *BaseAggregateRoot) GetDomainEvents() []DomainEvent {
	return a.domainEvents
}

func (a *BaseAggregateRoot) ClearDomainEvents() {
	a.domainEvents = nil
}

// TenantAggregateRoot is an aggregate owned by one tenant.
// TenantID is copied at creation and never changed afterwards.
type TenantAggregateRoot struct {
	BaseAggregateRoot
	TenantID  uuid.UUID
	CreatedBy uuid.UUID
}

// NewTenantAggregateRoot creates version 1 of a tenant-owned aggregate with a
// fresh id. Timestamps are truncated to the microsecond precision of the database.
func NewTenantAggregateRoot(tenantID, createdBy uuid.UUID, now time.Time) TenantAggregateRoot {
	now = now.UTC().Truncate(time.Microsecond)
	return TenantAggregateRoot{
		BaseAggregateRoot: BaseAggregateRoot{
			BaseEntity: BaseEntity{ID: uuid.New(), CreatedAt: now, UpdatedAt: now},
			Version:    1,
		},
		TenantID:  tenantID,
		CreatedBy: createdBy,
	}
}
