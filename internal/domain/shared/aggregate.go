package shared

import (
	"time"

	"github.com/google/uuid"
)

// BaseEntity carries identity and audit timestamps.
type BaseEntity struct {
	ID        uuid.UUID
	CreatedAt time.Time
	UpdatedAt time.Time
}

func NewBaseEntityAt(now time.Time) BaseEntity {
	return BaseEntity{ID: uuid.New(), CreatedAt: now, UpdatedAt: now}
}

func (e *BaseEntity) Touch(now time.Time) {
	e.UpdatedAt = now
}

// BaseAggregateRoot adds an optimistic-lock version and the events raised
// since the aggregate was loaded. Repositories persist Version; events are
// drained by the owning service after commit.
type BaseAggregateRoot struct {
	BaseEntity
	Version int
	pending []DomainEvent
}

// NewBaseAggregateRootAt starts a new aggregate at version 1.
func NewBaseAggregateRootAt(now time.Time) BaseAggregateRoot {
	return BaseAggregateRoot{BaseEntity: NewBaseEntityAt(now), Version: 1}
}

// Modified stamps a state change and bumps the version.
func (a *BaseAggregateRoot) Modified(now time.Time) {
	a.Touch(now)
	a.Version++
}

func (a *BaseAggregateRoot) Raise(e DomainEvent) {
	a.pending = append(a.pending, e)
}

// PendingEvents returns raised events without draining them.
func (a *BaseAggregateRoot) PendingEvents() []DomainEvent {
	return a.pending
}

// PullEvents drains the raised events.
func (a *BaseAggregateRoot) PullEvents() []DomainEvent {
	out := a.pending
	a.pending = nil
	return out
}
