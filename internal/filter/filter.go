package filter

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/guildsync/backend/internal/gateway"
	"github.com/guildsync/backend/internal/models"
)

// sideEffectTimeout bounds the best-effort vendor calls so a stalled
// dependency cannot hold up the ingestion path.
const sideEffectTimeout = 5 * time.Second

// TermSource provides the current blocked-term set.
type TermSource interface {
	List() ([]models.BlockedTerm, error)
}

// ChannelActions is the slice of the vendor API the filter needs.
type ChannelActions interface {
	DeleteMessage(ctx context.Context, channelID, messageID string) error
	PostChannel(ctx context.Context, channelID, content string) error
}

// Broadcaster fans change envelopes out to live observers.
type Broadcaster interface {
	Publish(eventType string, data interface{})
}

// Filter screens posted messages against the blocked-term set. Matching is
// case-insensitive substring containment: the term "ass" matches the
// message "mass production".
type Filter struct {
	terms   TermSource
	actions ChannelActions
	hub     Broadcaster
	logger  zerolog.Logger
}

func NewFilter(terms TermSource, actions ChannelActions, hub Broadcaster, logger zerolog.Logger) *Filter {
	return &Filter{
		terms:   terms,
		actions: actions,
		hub:     hub,
		logger:  logger,
	}
}

// Evaluate checks one message and reports whether it matched. On a match
// the source message is removed and a notice is posted in the originating
// channel; both are best-effort and a messageFiltered envelope is
// broadcast regardless of their outcome.
func (f *Filter) Evaluate(ctx context.Context, msg gateway.MessageEvent) bool {
	term, matched := f.match(msg.Content)
	if !matched {
		return false
	}

	f.logger.Info().
		Str("author_id", msg.AuthorID).
		Str("term", term).
		Msg("message matched blocked term")

	callCtx, cancel := context.WithTimeout(ctx, sideEffectTimeout)
	defer cancel()

	if err := f.actions.DeleteMessage(callCtx, msg.ChannelID, msg.MessageID); err != nil {
		f.logger.Warn().Err(err).Str("message_id", msg.MessageID).Msg("failed to remove filtered message")
	}

	notice := fmt.Sprintf("A message from @%s was removed for containing a blocked term.", msg.AuthorHandle)
	if err := f.actions.PostChannel(callCtx, msg.ChannelID, notice); err != nil {
		f.logger.Warn().Err(err).Str("channel_id", msg.ChannelID).Msg("failed to post filter notice")
	}

	f.hub.Publish(models.EventMessageFiltered, models.FilteredMessagePayload{
		AuthorID:     msg.AuthorID,
		AuthorHandle: msg.AuthorHandle,
		Content:      msg.Content,
		Timestamp:    msg.Timestamp,
	})
	return true
}

func (f *Filter) match(content string) (string, bool) {
	terms, err := f.terms.List()
	if err != nil {
		f.logger.Error().Err(err).Msg("failed to load blocked terms")
		return "", false
	}

	folded := strings.ToLower(content)
	for _, t := range terms {
		if strings.Contains(folded, strings.ToLower(t.Term)) {
			return t.Term, true
		}
	}
	return "", false
}
