package models

import (
	"fmt"
	"time"
)

// PresenceStatus is the canonical presence state of a member.
type PresenceStatus string

const (
	StatusOnline  PresenceStatus = "online"
	StatusIdle    PresenceStatus = "idle"
	StatusDND     PresenceStatus = "dnd"
	StatusOffline PresenceStatus = "offline"
)

// Role labels derived from vendor permission data.
const (
	RoleMember    = "Member"
	RoleModerator = "Moderator"
	RoleAdmin     = "Admin"
)

// Member mirrors one community member as last seen through the gateway.
// The ID is the vendor-assigned identifier and is stable for the lifetime
// of the member.
type Member struct {
	ID             string         `json:"id" db:"id"`
	DisplayName    string         `json:"display_name" db:"display_name"`
	Handle         string         `json:"handle" db:"handle"`
	Status         PresenceStatus `json:"status" db:"status"`
	Role           string         `json:"role" db:"role"`
	RoleTags       []string       `json:"role_tags" db:"role_tags"`
	Cash           int64          `json:"cash" db:"cash"`
	GuildJoinedAt  time.Time      `json:"guild_joined_at" db:"guild_joined_at"`
	JoinedPlatform time.Time      `json:"joined_platform" db:"joined_platform"`
	LastSeen       time.Time      `json:"last_seen" db:"last_seen"`
}

// Validate checks basic member fields
func (m *Member) Validate() error {
	if m.ID == "" {
		return fmt.Errorf("member id is required")
	}
	switch m.Status {
	case StatusOnline, StatusIdle, StatusDND, StatusOffline:
	default:
		return fmt.Errorf("invalid presence status %q", m.Status)
	}
	switch m.Role {
	case RoleMember, RoleModerator, RoleAdmin:
	default:
		return fmt.Errorf("invalid role %q", m.Role)
	}
	return nil
}

// HasTag reports whether the member carries the given role tag.
func (m *Member) HasTag(tag string) bool {
	for _, t := range m.RoleTags {
		if t == tag {
			return true
		}
	}
	return false
}

// Clone returns a deep copy so callers never alias the stored record.
func (m *Member) Clone() *Member {
	cp := *m
	cp.RoleTags = append([]string(nil), m.RoleTags...)
	return &cp
}

// MemberUpdate carries a partial mutation; nil fields are left untouched.
type MemberUpdate struct {
	DisplayName *string         `json:"display_name,omitempty"`
	Handle      *string         `json:"handle,omitempty"`
	Status      *PresenceStatus `json:"status,omitempty"`
	Role        *string         `json:"role,omitempty"`
}
