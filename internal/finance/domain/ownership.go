package domain

import "github.com/google/uuid"

// Ownership says who a record belongs to: a single user, or the system for
// predefined records that every user can see and nobody can change.
type Ownership struct {
	owner  uuid.UUID
	system bool
}

func OwnedBy(userID uuid.UUID) Ownership {
	return Ownership{owner: userID}
}

func System() Ownership {
	return Ownership{system: true}
}

func (o Ownership) IsSystem() bool {
	return o.system
}

// Owner returns the owning user. ok is false for system records.
func (o Ownership) Owner() (userID uuid.UUID, ok bool) {
	if o.system {
		return uuid.Nil, false
	}
	return o.owner, true
}

func (o Ownership) VisibleTo(userID uuid.UUID) bool {
	return o.system || o.owner == userID
}

func (o Ownership) MutableBy(userID uuid.UUID) bool {
	return !o.system && o.owner == userID
}
