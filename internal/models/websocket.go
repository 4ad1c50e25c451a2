package models

import "time"

// Broadcast event types
const (
	EventConnected         = "connected"
	EventMemberJoined      = "memberJoined"
	EventMemberLeft        = "memberLeft"
	EventMemberStatus      = "memberStatusUpdate"
	EventMemberKicked      = "memberKicked"
	EventMemberBanned      = "memberBanned"
	EventMemberRoleAdded   = "memberRoleAdded"
	EventMemberRoleRemoved = "memberRoleRemoved"
	EventMessageFiltered   = "messageFiltered"
)

// Envelope wraps every message delivered to observers.
type Envelope struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// MemberRefPayload carries only the member id (leave events).
type MemberRefPayload struct {
	ID string `json:"id"`
}

// RemovalPayload is the data of memberKicked / memberBanned envelopes.
type RemovalPayload struct {
	ID     string  `json:"id"`
	Reason *string `json:"reason,omitempty"`
}

// RoleTagPayload is the data of memberRoleAdded / memberRoleRemoved envelopes.
type RoleTagPayload struct {
	ID    string `json:"id"`
	TagID string `json:"tag_id"`
}

// FilteredMessagePayload is the data of messageFiltered envelopes.
type FilteredMessagePayload struct {
	AuthorID     string    `json:"author_id"`
	AuthorHandle string    `json:"author_handle"`
	Content      string    `json:"content"`
	Timestamp    time.Time `json:"timestamp"`
}
