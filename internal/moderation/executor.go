package moderation

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/guildsync/backend/internal/gateway"
	"github.com/guildsync/backend/internal/models"
	"github.com/guildsync/backend/internal/state"
)

// noticeTimeout bounds the best-effort direct notice and invite minting so
// a stalled vendor call cannot delay enforcement.
const noticeTimeout = 5 * time.Second

// Broadcaster fans change envelopes out to live observers.
type Broadcaster interface {
	Publish(eventType string, data interface{})
}

// Result separates the primary enforcement outcome from auxiliary
// side-effect outcomes, so callers can assert success of the action even
// when a notice failed.
type Result struct {
	// Enforced reports whether the primary enforcement call succeeded.
	// When false, the store and log are untouched and nothing was
	// broadcast.
	Enforced bool

	// Err is the primary failure, set only when Enforced is false.
	Err error

	// NoticeErr records a failed best-effort notice or invite mint. It
	// never affects the primary outcome.
	NoticeErr error

	// CleanupErr records a failure of the log/delete step after
	// enforcement already succeeded. The external system and the local
	// mirror are then out of sync until the next snapshot sync; this is
	// an accepted residual risk, surfaced here rather than hidden.
	CleanupErr error
}

// OK reports the primary outcome.
func (r Result) OK() bool {
	return r.Enforced && r.CleanupErr == nil
}

// Executor orchestrates multi-step moderation actions against the vendor
// API, the member store, and the broadcast hub. Enforcement is the
// atomicity boundary: nothing local changes unless the vendor call
// succeeded.
type Executor struct {
	store            *state.Store
	client           gateway.Client
	hub              Broadcaster
	defaultChannelID string
	logger           zerolog.Logger
}

func NewExecutor(store *state.Store, client gateway.Client, hub Broadcaster, defaultChannelID string, logger zerolog.Logger) *Executor {
	return &Executor{
		store:            store,
		client:           client,
		hub:              hub,
		defaultChannelID: defaultChannelID,
		logger:           logger,
	}
}

// Evict removes the member from the community (kick). A reason, when
// given, is sent as a best-effort direct notice first.
func (e *Executor) Evict(ctx context.Context, memberID, actor string, reason *string) Result {
	return e.remove(ctx, models.ActionKick, memberID, actor, reason, false)
}

// Exile permanently removes the member (ban). With sendInvite set, a
// single-use invite to the default channel is minted and included in the
// direct notice so the member can appeal later.
func (e *Executor) Exile(ctx context.Context, memberID, actor string, reason *string, sendInvite bool) Result {
	return e.remove(ctx, models.ActionBan, memberID, actor, reason, sendInvite)
}

func (e *Executor) remove(ctx context.Context, action, memberID, actor string, reason *string, sendInvite bool) Result {
	var res Result

	res.NoticeErr = e.sendNotice(ctx, memberID, reason, sendInvite)
	if res.NoticeErr != nil {
		e.logger.Warn().Err(res.NoticeErr).Str("member_id", memberID).Msg("removal notice failed")
	}

	var err error
	if action == models.ActionKick {
		err = e.client.RemoveMember(ctx, memberID, reason)
	} else {
		err = e.client.BanMember(ctx, memberID, reason)
	}
	if err != nil {
		res.Err = fmt.Errorf("enforcement failed: %w", err)
		return res
	}
	res.Enforced = true

	entry := &models.ActionLogEntry{
		ID:       uuid.New(),
		MemberID: memberID,
		Actor:    actor,
		Action:   action,
		Reason:   reason,
	}
	if err := e.store.AppendAction(entry); err != nil {
		res.CleanupErr = fmt.Errorf("member removed upstream but log write failed: %w", err)
		e.logger.Error().Err(err).Str("member_id", memberID).Msg("action log write failed after enforcement")
		return res
	}
	if _, err := e.store.Delete(memberID); err != nil {
		res.CleanupErr = fmt.Errorf("member removed upstream but store delete failed: %w", err)
		e.logger.Error().Err(err).Str("member_id", memberID).Msg("store delete failed after enforcement")
		return res
	}

	event := models.EventMemberKicked
	if action == models.ActionBan {
		event = models.EventMemberBanned
	}
	e.hub.Publish(event, models.RemovalPayload{ID: memberID, Reason: reason})
	return res
}

// sendNotice delivers the pre-removal direct notice. With sendInvite set,
// a single-use 7-day invite for the default channel is minted and
// included; otherwise a reason-only notice is sent when a reason exists.
func (e *Executor) sendNotice(ctx context.Context, memberID string, reason *string, sendInvite bool) error {
	if !sendInvite && reason == nil {
		return nil
	}

	callCtx, cancel := context.WithTimeout(ctx, noticeTimeout)
	defer cancel()

	var content string
	if sendInvite {
		invite, err := e.client.CreateInvite(callCtx, e.defaultChannelID)
		if err != nil {
			return fmt.Errorf("failed to mint invite: %w", err)
		}
		content = "You have been removed from the community."
		if reason != nil {
			content += " Reason: " + *reason + "."
		}
		content += " You may rejoin later with this invite: " + invite
	} else {
		content = "You have been removed from the community. Reason: " + *reason
	}

	if err := e.client.SendDirect(callCtx, memberID, content); err != nil {
		return fmt.Errorf("failed to send direct notice: %w", err)
	}
	return nil
}

// AddTag grants a role tag: the vendor role assignment is enforced first,
// then reflected in the store, then broadcast. A vendor failure leaves the
// store untouched.
func (e *Executor) AddTag(ctx context.Context, memberID, tagID string) error {
	if err := e.client.AddMemberRole(ctx, memberID, tagID); err != nil {
		return fmt.Errorf("failed to add role upstream: %w", err)
	}
	ok, err := e.store.AddTag(memberID, tagID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("member %s not found", memberID)
	}
	e.hub.Publish(models.EventMemberRoleAdded, models.RoleTagPayload{ID: memberID, TagID: tagID})
	return nil
}

// RemoveTag revokes a role tag with the same enforce-then-reflect shape as
// AddTag.
func (e *Executor) RemoveTag(ctx context.Context, memberID, tagID string) error {
	if err := e.client.RemoveMemberRole(ctx, memberID, tagID); err != nil {
		return fmt.Errorf("failed to remove role upstream: %w", err)
	}
	ok, err := e.store.RemoveTag(memberID, tagID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("member %s not found", memberID)
	}
	e.hub.Publish(models.EventMemberRoleRemoved, models.RoleTagPayload{ID: memberID, TagID: tagID})
	return nil
}

// ListRoles returns the community roles sorted by descending position.
func (e *Executor) ListRoles(ctx context.Context) ([]models.Role, error) {
	roles, err := e.client.ListRoles(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list roles: %w", err)
	}
	sort.Slice(roles, func(i, j int) bool { return roles[i].Position > roles[j].Position })
	return roles, nil
}

// CreateRole creates a community role upstream.
func (e *Executor) CreateRole(ctx context.Context, name string, color int, permissions uint64) (*models.Role, error) {
	role, err := e.client.CreateRole(ctx, name, color, permissions)
	if err != nil {
		return nil, fmt.Errorf("failed to create role: %w", err)
	}
	return role, nil
}
