package gateway

import (
	"time"

	"github.com/guildsync/backend/internal/models"
)

// Vendor permission bits inspected during role derivation.
const (
	PermKickMembers   = 1 << 1
	PermAdministrator = 1 << 3
)

// VendorMember is a member as reported by the vendor API.
type VendorMember struct {
	ID          string    `json:"id"`
	DisplayName string    `json:"display_name"`
	Handle      string    `json:"handle"`
	Bot         bool      `json:"bot"`
	Permissions uint64    `json:"permissions"`
	Status      string    `json:"status,omitempty"`
	JoinedAt    time.Time `json:"joined_at"`
	CreatedAt   time.Time `json:"created_at"`
}

// Event is one canonical gateway event. The set of variants is closed:
// every inbound vendor frame is normalized into exactly one of the types
// below before it reaches the adapter.
type Event interface {
	isEvent()
}

// ReadyEvent signals that the gateway connection is established and a
// snapshot sync should run.
type ReadyEvent struct{}

// MemberJoinEvent signals a member joining the community.
type MemberJoinEvent struct {
	Member VendorMember
}

// MemberLeaveEvent signals a member leaving the community.
type MemberLeaveEvent struct {
	MemberID string
}

// PresenceEvent signals a change of a member's vendor presence.
type PresenceEvent struct {
	MemberID string
	Status   string
}

// MessageEvent signals a message posted in a community channel.
type MessageEvent struct {
	MessageID    string
	ChannelID    string
	AuthorID     string
	AuthorHandle string
	AuthorBot    bool
	Content      string
	Timestamp    time.Time
}

func (ReadyEvent) isEvent()       {}
func (MemberJoinEvent) isEvent()  {}
func (MemberLeaveEvent) isEvent() {}
func (PresenceEvent) isEvent()    {}
func (MessageEvent) isEvent()     {}

// MapPresence maps a vendor presence string onto the canonical status set.
// Unknown values collapse to offline.
func MapPresence(vendor string) models.PresenceStatus {
	switch vendor {
	case "online":
		return models.StatusOnline
	case "idle":
		return models.StatusIdle
	case "dnd":
		return models.StatusDND
	case "offline", "invisible":
		return models.StatusOffline
	default:
		return models.StatusOffline
	}
}

// DeriveRole maps a vendor permission bitfield onto a role label. The
// highest privilege wins.
func DeriveRole(permissions uint64) string {
	switch {
	case permissions&PermAdministrator != 0:
		return models.RoleAdmin
	case permissions&PermKickMembers != 0:
		return models.RoleModerator
	default:
		return models.RoleMember
	}
}
