package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	// Capacity of the event channel feeding the adapter. The vendor read
	// loop blocks when the adapter falls this far behind, which keeps
	// event ordering intact without unbounded buffering.
	eventBuffer = 256

	handshakeTimeout = 10 * time.Second
	readWait         = 90 * time.Second
)

// frame is the raw wire shape of one gateway message.
type frame struct {
	Type string          `json:"t"`
	Data json.RawMessage `json:"d"`
}

type identifyFrame struct {
	Type string `json:"t"`
	Data struct {
		Token       string `json:"token"`
		CommunityID string `json:"community_id"`
	} `json:"d"`
}

// Conn is a live gateway connection. It decodes vendor frames into
// canonical events and delivers them, in arrival order, on a single
// bounded channel.
type Conn struct {
	ws     *websocket.Conn
	events chan Event
	logger zerolog.Logger
}

// Dial connects to the gateway, identifies with the given token, and
// starts the read loop.
func Dial(ctx context.Context, url, token, communityID string, logger zerolog.Logger) (*Conn, error) {
	dialer := websocket.Dialer{HandshakeTimeout: handshakeTimeout}
	ws, _, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to dial gateway: %w", err)
	}

	ident := identifyFrame{Type: "IDENTIFY"}
	ident.Data.Token = token
	ident.Data.CommunityID = communityID
	if err := ws.WriteJSON(ident); err != nil {
		ws.Close()
		return nil, fmt.Errorf("failed to identify: %w", err)
	}

	c := &Conn{
		ws:     ws,
		events: make(chan Event, eventBuffer),
		logger: logger,
	}
	go c.readLoop()
	return c, nil
}

// Events returns the channel of decoded gateway events. It is closed when
// the connection ends.
func (c *Conn) Events() <-chan Event {
	return c.events
}

// Close tears down the underlying connection.
func (c *Conn) Close() error {
	return c.ws.Close()
}

func (c *Conn) readLoop() {
	defer close(c.events)

	for {
		c.ws.SetReadDeadline(time.Now().Add(readWait))
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Error().Err(err).Msg("gateway connection lost")
			}
			return
		}

		ev, err := decodeFrame(data)
		if err != nil {
			c.logger.Warn().Err(err).Msg("dropping malformed gateway frame")
			continue
		}
		if ev == nil {
			continue
		}
		c.events <- ev
	}
}

// decodeFrame normalizes one wire frame into a canonical event. Frames of
// unknown type decode to nil and are skipped.
func decodeFrame(data []byte) (Event, error) {
	var f frame
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to decode frame: %w", err)
	}

	switch f.Type {
	case "READY":
		return ReadyEvent{}, nil

	case "MEMBER_ADD":
		var m VendorMember
		if err := json.Unmarshal(f.Data, &m); err != nil {
			return nil, fmt.Errorf("failed to decode member add: %w", err)
		}
		return MemberJoinEvent{Member: m}, nil

	case "MEMBER_REMOVE":
		var d struct {
			ID string `json:"id"`
		}
		if err := json.Unmarshal(f.Data, &d); err != nil {
			return nil, fmt.Errorf("failed to decode member remove: %w", err)
		}
		return MemberLeaveEvent{MemberID: d.ID}, nil

	case "PRESENCE_UPDATE":
		var d struct {
			ID     string `json:"id"`
			Status string `json:"status"`
		}
		if err := json.Unmarshal(f.Data, &d); err != nil {
			return nil, fmt.Errorf("failed to decode presence update: %w", err)
		}
		return PresenceEvent{MemberID: d.ID, Status: d.Status}, nil

	case "MESSAGE_CREATE":
		var d struct {
			ID        string    `json:"id"`
			ChannelID string    `json:"channel_id"`
			Content   string    `json:"content"`
			Timestamp time.Time `json:"timestamp"`
			Author    struct {
				ID     string `json:"id"`
				Handle string `json:"handle"`
				Bot    bool   `json:"bot"`
			} `json:"author"`
		}
		if err := json.Unmarshal(f.Data, &d); err != nil {
			return nil, fmt.Errorf("failed to decode message create: %w", err)
		}
		return MessageEvent{
			MessageID:    d.ID,
			ChannelID:    d.ChannelID,
			AuthorID:     d.Author.ID,
			AuthorHandle: d.Author.Handle,
			AuthorBot:    d.Author.Bot,
			Content:      d.Content,
			Timestamp:    d.Timestamp,
		}, nil
	}

	return nil, nil
}
