package gateway

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/guildsync/backend/internal/models"
	"github.com/guildsync/backend/internal/state"
)

// Broadcaster fans change envelopes out to live observers.
type Broadcaster interface {
	Publish(eventType string, data interface{})
}

// MessageFilter screens posted messages. Evaluate reports whether the
// message matched a blocked term.
type MessageFilter interface {
	Evaluate(ctx context.Context, msg MessageEvent) bool
}

// PresenceCache remembers the last vendor presence per member so snapshot
// sync can derive a status for members it has not seen a presence event
// for since.
type PresenceCache interface {
	SetPresence(memberID, status string)
	GetPresence(memberID string) (string, bool)
}

// Adapter is the single sequential consumer of gateway events. It
// normalizes every event into store mutations and broadcast envelopes. No
// two events are ever processed concurrently, which is what gives the
// store its single-writer ordering guarantee.
type Adapter struct {
	store    *state.Store
	hub      Broadcaster
	client   Client
	filter   MessageFilter
	presence PresenceCache
	logger   zerolog.Logger
}

// NewAdapter creates an Adapter. filter and presence may be nil.
func NewAdapter(store *state.Store, hub Broadcaster, client Client, filter MessageFilter, presence PresenceCache, logger zerolog.Logger) *Adapter {
	return &Adapter{
		store:    store,
		hub:      hub,
		client:   client,
		filter:   filter,
		presence: presence,
		logger:   logger,
	}
}

// Run consumes events until the channel closes or the context is
// cancelled.
func (a *Adapter) Run(ctx context.Context, events <-chan Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			a.Handle(ctx, ev)
		}
	}
}

// Handle processes one gateway event.
func (a *Adapter) Handle(ctx context.Context, ev Event) {
	switch e := ev.(type) {
	case ReadyEvent:
		a.handleReady(ctx)
	case MemberJoinEvent:
		a.handleJoin(e)
	case MemberLeaveEvent:
		a.handleLeave(e)
	case PresenceEvent:
		a.handlePresence(e)
	case MessageEvent:
		a.handleMessage(ctx, e)
	}
}

// handleReady runs the snapshot sync: every current non-bot member is
// reconciled into the store. Running it twice with unchanged upstream data
// leaves the store identical.
func (a *Adapter) handleReady(ctx context.Context) {
	members, err := a.client.ListMembers(ctx)
	if err != nil {
		a.logger.Error().Err(err).Msg("snapshot sync failed to list members")
		return
	}

	synced := 0
	for _, vm := range members {
		if vm.Bot {
			continue
		}
		rec := &models.Member{
			ID:             vm.ID,
			DisplayName:    vm.DisplayName,
			Handle:         vm.Handle,
			Status:         a.knownStatus(vm),
			Role:           DeriveRole(vm.Permissions),
			GuildJoinedAt:  vm.JoinedAt,
			JoinedPlatform: vm.CreatedAt,
		}
		if err := a.store.Upsert(rec); err != nil {
			a.logger.Error().Err(err).Str("member_id", vm.ID).Msg("snapshot upsert failed")
			continue
		}
		synced++
	}
	a.logger.Info().Int("members", synced).Msg("snapshot sync complete")
}

func (a *Adapter) handleJoin(e MemberJoinEvent) {
	rec := &models.Member{
		ID:             e.Member.ID,
		DisplayName:    e.Member.DisplayName,
		Handle:         e.Member.Handle,
		Status:         models.StatusOffline,
		Role:           DeriveRole(e.Member.Permissions),
		RoleTags:       []string{},
		GuildJoinedAt:  e.Member.JoinedAt,
		JoinedPlatform: e.Member.CreatedAt,
	}
	created, err := a.store.Create(rec)
	if err != nil {
		a.logger.Error().Err(err).Str("member_id", e.Member.ID).Msg("failed to create joining member")
		return
	}
	a.hub.Publish(models.EventMemberJoined, created)
}

func (a *Adapter) handleLeave(e MemberLeaveEvent) {
	if _, err := a.store.Delete(e.MemberID); err != nil {
		a.logger.Error().Err(err).Str("member_id", e.MemberID).Msg("failed to delete leaving member")
		return
	}
	a.hub.Publish(models.EventMemberLeft, models.MemberRefPayload{ID: e.MemberID})
}

// handlePresence updates the member's status and last activity. A presence
// event for an unknown member is ignored: presence alone never creates a
// record.
func (a *Adapter) handlePresence(e PresenceEvent) {
	if a.presence != nil {
		a.presence.SetPresence(e.MemberID, e.Status)
	}

	status := MapPresence(e.Status)
	updated, ok, err := a.store.Update(e.MemberID, models.MemberUpdate{Status: &status})
	if err != nil {
		a.logger.Error().Err(err).Str("member_id", e.MemberID).Msg("failed to update presence")
		return
	}
	if !ok {
		return
	}
	a.hub.Publish(models.EventMemberStatus, updated)
}

func (a *Adapter) handleMessage(ctx context.Context, e MessageEvent) {
	if e.AuthorBot || a.filter == nil {
		return
	}
	a.filter.Evaluate(ctx, e)
}

// knownStatus derives a snapshot status from the member's reported
// presence, falling back to the presence cache, then to offline.
func (a *Adapter) knownStatus(vm VendorMember) models.PresenceStatus {
	if vm.Status != "" {
		return MapPresence(vm.Status)
	}
	if a.presence != nil {
		if status, ok := a.presence.GetPresence(vm.ID); ok {
			return MapPresence(status)
		}
	}
	return models.StatusOffline
}
