package gateway

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/guildsync/backend/internal/models"
	"github.com/guildsync/backend/internal/repository"
	"github.com/guildsync/backend/internal/state"
)

type publishRecord struct {
	event string
	data  interface{}
}

type fakeHub struct {
	published []publishRecord
}

func (f *fakeHub) Publish(eventType string, data interface{}) {
	f.published = append(f.published, publishRecord{event: eventType, data: data})
}

type fakeClient struct {
	Client
	members    []VendorMember
	listErr    error
	listCalled int
}

func (f *fakeClient) ListMembers(ctx context.Context) ([]VendorMember, error) {
	f.listCalled++
	return f.members, f.listErr
}

type fakeFilter struct {
	seen []MessageEvent
}

func (f *fakeFilter) Evaluate(ctx context.Context, msg MessageEvent) bool {
	f.seen = append(f.seen, msg)
	return false
}

func newTestAdapter(t *testing.T, client Client) (*Adapter, *state.Store, *fakeHub, *fakeFilter) {
	t.Helper()
	mem := repository.NewMemory()
	store := state.NewStore(mem.Members(), mem.ActionLog(), mem.Stats())
	hub := &fakeHub{}
	flt := &fakeFilter{}
	return NewAdapter(store, hub, client, flt, nil, zerolog.Nop()), store, hub, flt
}

func TestMapPresenceIsTotal(t *testing.T) {
	cases := map[string]models.PresenceStatus{
		"online":    models.StatusOnline,
		"idle":      models.StatusIdle,
		"dnd":       models.StatusDND,
		"offline":   models.StatusOffline,
		"invisible": models.StatusOffline,
		"streaming": models.StatusOffline,
		"":          models.StatusOffline,
		"garbage":   models.StatusOffline,
	}
	for vendor, want := range cases {
		if got := MapPresence(vendor); got != want {
			t.Errorf("MapPresence(%q) = %s, want %s", vendor, got, want)
		}
	}
}

func TestDeriveRoleHighestPrivilegeWins(t *testing.T) {
	cases := []struct {
		permissions uint64
		want        string
	}{
		{0, models.RoleMember},
		{PermKickMembers, models.RoleModerator},
		{PermAdministrator, models.RoleAdmin},
		{PermAdministrator | PermKickMembers, models.RoleAdmin},
	}
	for _, tc := range cases {
		if got := DeriveRole(tc.permissions); got != tc.want {
			t.Errorf("DeriveRole(%#x) = %s, want %s", tc.permissions, got, tc.want)
		}
	}
}

func TestSnapshotSyncSkipsBotsAndIsIdempotent(t *testing.T) {
	joined := time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC)
	client := &fakeClient{members: []VendorMember{
		{ID: "m1", DisplayName: "Alice", Handle: "alice", Permissions: PermAdministrator, JoinedAt: joined},
		{ID: "m2", DisplayName: "Bob", Handle: "bob", JoinedAt: joined},
		{ID: "b1", DisplayName: "Helper", Bot: true, JoinedAt: joined},
	}}
	adapter, store, _, _ := newTestAdapter(t, client)

	adapter.Handle(context.Background(), ReadyEvent{})

	members, err := store.GetAll()
	if err != nil {
		t.Fatalf("GetAll error: %v", err)
	}
	if len(members) != 2 {
		t.Fatalf("expected 2 members after sync (bot skipped), got %d", len(members))
	}
	if members[0].Role != models.RoleAdmin {
		t.Errorf("expected admin role for m1, got %s", members[0].Role)
	}

	adapter.Handle(context.Background(), ReadyEvent{})

	again, err := store.GetAll()
	if err != nil {
		t.Fatalf("GetAll error: %v", err)
	}
	if !reflect.DeepEqual(members, again) {
		t.Errorf("second snapshot sync changed the store")
	}
}

func TestSnapshotSyncListFailureLeavesStoreAlone(t *testing.T) {
	client := &fakeClient{listErr: errors.New("api down")}
	adapter, store, _, _ := newTestAdapter(t, client)

	adapter.Handle(context.Background(), ReadyEvent{})

	members, _ := store.GetAll()
	if len(members) != 0 {
		t.Errorf("expected empty store after failed sync, got %d members", len(members))
	}
}

func TestJoinCreatesWithDefaultsAndPublishes(t *testing.T) {
	adapter, store, hub, _ := newTestAdapter(t, &fakeClient{})

	adapter.Handle(context.Background(), MemberJoinEvent{Member: VendorMember{
		ID: "m1", DisplayName: "Alice", Handle: "alice",
	}})

	m, ok, _ := store.GetByID("m1")
	if !ok {
		t.Fatal("member not created on join")
	}
	if m.Status != models.StatusOffline || m.Role != models.RoleMember || m.Cash != 0 {
		t.Errorf("unexpected defaults: %+v", m)
	}

	if len(hub.published) != 1 || hub.published[0].event != models.EventMemberJoined {
		t.Fatalf("expected one memberJoined publish, got %+v", hub.published)
	}
}

func TestLeaveDeletesAndPublishesIDOnly(t *testing.T) {
	adapter, store, hub, _ := newTestAdapter(t, &fakeClient{})
	if _, err := store.Create(&models.Member{ID: "m1"}); err != nil {
		t.Fatalf("Create error: %v", err)
	}

	adapter.Handle(context.Background(), MemberLeaveEvent{MemberID: "m1"})

	if _, ok, _ := store.GetByID("m1"); ok {
		t.Error("member still present after leave")
	}
	if len(hub.published) != 1 || hub.published[0].event != models.EventMemberLeft {
		t.Fatalf("expected one memberLeft publish, got %+v", hub.published)
	}
	if payload, ok := hub.published[0].data.(models.MemberRefPayload); !ok || payload.ID != "m1" {
		t.Errorf("unexpected memberLeft payload: %+v", hub.published[0].data)
	}
}

func TestPresenceUpdatesKnownMember(t *testing.T) {
	adapter, store, hub, _ := newTestAdapter(t, &fakeClient{})
	if _, err := store.Create(&models.Member{ID: "m1"}); err != nil {
		t.Fatalf("Create error: %v", err)
	}

	adapter.Handle(context.Background(), PresenceEvent{MemberID: "m1", Status: "online"})

	m, _, _ := store.GetByID("m1")
	if m.Status != models.StatusOnline {
		t.Errorf("expected status online, got %s", m.Status)
	}

	stats, _ := store.Stats()
	if stats.OnlineMembers != 1 {
		t.Errorf("expected onlineMembers=1, got %d", stats.OnlineMembers)
	}

	if len(hub.published) != 1 || hub.published[0].event != models.EventMemberStatus {
		t.Fatalf("expected one memberStatusUpdate publish, got %+v", hub.published)
	}
	if m, ok := hub.published[0].data.(*models.Member); !ok || m.ID != "m1" {
		t.Errorf("memberStatusUpdate should carry the full record, got %+v", hub.published[0].data)
	}
}

func TestPresenceForUnknownMemberIsIgnored(t *testing.T) {
	adapter, store, hub, _ := newTestAdapter(t, &fakeClient{})

	adapter.Handle(context.Background(), PresenceEvent{MemberID: "ghost", Status: "online"})

	if members, _ := store.GetAll(); len(members) != 0 {
		t.Error("presence event alone must not create a record")
	}
	if len(hub.published) != 0 {
		t.Errorf("expected no publish for unknown member, got %+v", hub.published)
	}
}

func TestMessagesFromBotsAreNotFiltered(t *testing.T) {
	adapter, _, _, flt := newTestAdapter(t, &fakeClient{})

	adapter.Handle(context.Background(), MessageEvent{AuthorID: "b1", AuthorBot: true, Content: "hi"})
	if len(flt.seen) != 0 {
		t.Errorf("bot message reached the filter: %+v", flt.seen)
	}

	adapter.Handle(context.Background(), MessageEvent{AuthorID: "m1", Content: "hi"})
	if len(flt.seen) != 1 {
		t.Errorf("expected one filtered message, got %d", len(flt.seen))
	}
}

func TestDecodeFrameVariants(t *testing.T) {
	cases := []struct {
		name string
		data string
		want Event
	}{
		{"ready", `{"t":"READY","d":{}}`, ReadyEvent{}},
		{"leave", `{"t":"MEMBER_REMOVE","d":{"id":"m1"}}`, MemberLeaveEvent{MemberID: "m1"}},
		{"presence", `{"t":"PRESENCE_UPDATE","d":{"id":"m1","status":"idle"}}`, PresenceEvent{MemberID: "m1", Status: "idle"}},
	}
	for _, tc := range cases {
		got, err := decodeFrame([]byte(tc.data))
		if err != nil {
			t.Errorf("%s: decode error: %v", tc.name, err)
			continue
		}
		if !reflect.DeepEqual(got, tc.want) {
			t.Errorf("%s: got %+v, want %+v", tc.name, got, tc.want)
		}
	}

	if ev, err := decodeFrame([]byte(`{"t":"UNKNOWN_EVENT","d":{}}`)); err != nil || ev != nil {
		t.Errorf("unknown frame should decode to nil, got %v err %v", ev, err)
	}
	if _, err := decodeFrame([]byte(`not json`)); err == nil {
		t.Error("expected error for malformed frame")
	}
}
