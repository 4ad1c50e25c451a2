package models

import (
	"time"

	"github.com/google/uuid"
)

// Moderation actions recorded in the action log.
const (
	ActionKick = "kick"
	ActionBan  = "ban"
)

// ActionLogEntry records one completed enforcement action. Entries are
// append-only and keep referencing the member id even after the member
// record is gone.
type ActionLogEntry struct {
	ID        uuid.UUID `json:"id" db:"id"`
	MemberID  string    `json:"member_id" db:"member_id"`
	Actor     string    `json:"actor" db:"actor"`
	Action    string    `json:"action" db:"action"`
	Reason    *string   `json:"reason,omitempty" db:"reason"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// BlockedTerm is one entry of the message filter's term set. Terms are
// stored case-folded and must be unique.
type BlockedTerm struct {
	ID        uuid.UUID `json:"id" db:"id"`
	Term      string    `json:"term" db:"term"`
	CreatedBy string    `json:"created_by" db:"created_by"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
