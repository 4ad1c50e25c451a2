package filter

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/guildsync/backend/internal/gateway"
	"github.com/guildsync/backend/internal/models"
)

type staticTerms []string

func (s staticTerms) List() ([]models.BlockedTerm, error) {
	terms := make([]models.BlockedTerm, len(s))
	for i, t := range s {
		terms[i] = models.BlockedTerm{Term: t}
	}
	return terms, nil
}

type failingTerms struct{}

func (failingTerms) List() ([]models.BlockedTerm, error) {
	return nil, errors.New("source down")
}

type fakeActions struct {
	deleted   []string
	notices   []string
	deleteErr error
	noticeErr error
}

func (f *fakeActions) DeleteMessage(ctx context.Context, channelID, messageID string) error {
	f.deleted = append(f.deleted, messageID)
	return f.deleteErr
}

func (f *fakeActions) PostChannel(ctx context.Context, channelID, content string) error {
	f.notices = append(f.notices, content)
	return f.noticeErr
}

type fakeHub struct {
	published []models.Envelope
}

func (f *fakeHub) Publish(eventType string, data interface{}) {
	f.published = append(f.published, models.Envelope{Type: eventType, Data: data})
}

func msg(content string) gateway.MessageEvent {
	return gateway.MessageEvent{
		MessageID:    "msg-1",
		ChannelID:    "chan-1",
		AuthorID:     "m1",
		AuthorHandle: "alice",
		Content:      content,
		Timestamp:    time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestMatchIsCaseInsensitiveSubstring(t *testing.T) {
	cases := []struct {
		content string
		matched bool
	}{
		{"mass production", true}, // "ass" inside "mass"
		{"ASSIGN the task", true},
		{"hello world", false},
		{"", false},
	}

	for _, tc := range cases {
		actions := &fakeActions{}
		hub := &fakeHub{}
		f := NewFilter(staticTerms{"ass"}, actions, hub, zerolog.Nop())

		got := f.Evaluate(context.Background(), msg(tc.content))
		if got != tc.matched {
			t.Errorf("Evaluate(%q) = %v, want %v", tc.content, got, tc.matched)
		}
	}
}

func TestMatchRemovesNotifiesAndBroadcasts(t *testing.T) {
	actions := &fakeActions{}
	hub := &fakeHub{}
	f := NewFilter(staticTerms{"spoiler"}, actions, hub, zerolog.Nop())

	if !f.Evaluate(context.Background(), msg("huge SPOILER ahead")) {
		t.Fatal("expected match")
	}

	if len(actions.deleted) != 1 || actions.deleted[0] != "msg-1" {
		t.Errorf("expected message removal, got %v", actions.deleted)
	}
	if len(actions.notices) != 1 {
		t.Errorf("expected channel notice, got %v", actions.notices)
	}
	if len(hub.published) != 1 || hub.published[0].Type != models.EventMessageFiltered {
		t.Fatalf("expected messageFiltered broadcast, got %+v", hub.published)
	}

	payload, ok := hub.published[0].Data.(models.FilteredMessagePayload)
	if !ok {
		t.Fatalf("unexpected payload type %T", hub.published[0].Data)
	}
	if payload.AuthorID != "m1" || payload.AuthorHandle != "alice" || payload.Content != "huge SPOILER ahead" {
		t.Errorf("unexpected payload: %+v", payload)
	}
}

func TestBroadcastHappensDespiteSideEffectFailures(t *testing.T) {
	actions := &fakeActions{
		deleteErr: errors.New("no permission"),
		noticeErr: errors.New("channel gone"),
	}
	hub := &fakeHub{}
	f := NewFilter(staticTerms{"ass"}, actions, hub, zerolog.Nop())

	if !f.Evaluate(context.Background(), msg("mass panic")) {
		t.Fatal("expected match")
	}
	if len(hub.published) != 1 {
		t.Fatalf("messageFiltered must broadcast even when removal and notice fail, got %+v", hub.published)
	}
}

func TestNoMatchTouchesNothing(t *testing.T) {
	actions := &fakeActions{}
	hub := &fakeHub{}
	f := NewFilter(staticTerms{"ass"}, actions, hub, zerolog.Nop())

	if f.Evaluate(context.Background(), msg("perfectly fine")) {
		t.Fatal("unexpected match")
	}
	if len(actions.deleted) != 0 || len(actions.notices) != 0 || len(hub.published) != 0 {
		t.Error("clean message triggered side effects")
	}
}

func TestTermSourceFailureMeansNoMatch(t *testing.T) {
	actions := &fakeActions{}
	hub := &fakeHub{}
	f := NewFilter(failingTerms{}, actions, hub, zerolog.Nop())

	if f.Evaluate(context.Background(), msg("mass")) {
		t.Error("match reported while term source is down")
	}
}
