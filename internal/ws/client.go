package ws

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer; observers only listen
	maxMessageSize = 512

	// Per-observer send buffer. An observer this far behind gets
	// disconnected by the hub.
	sendBuffer = 64
)

// Observer is one live broadcast recipient. Its lifecycle is bound to the
// underlying transport connection.
type Observer struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
	once sync.Once
}

// NewObserver creates an Observer over an upgraded connection.
func NewObserver(hub *Hub, conn *websocket.Conn) *Observer {
	return &Observer{
		hub:  hub,
		conn: conn,
		send: make(chan []byte, sendBuffer),
	}
}

// trySend queues an envelope without blocking. It reports false when the
// buffer is full or the observer is closed.
func (o *Observer) trySend(data []byte) bool {
	select {
	case o.send <- data:
		return true
	default:
		return false
	}
}

// close releases the send channel; safe to call more than once.
func (o *Observer) close() {
	o.once.Do(func() { close(o.send) })
}

// ReadPump consumes the connection until the peer goes away. Observers are
// listen-only; inbound frames beyond pings are discarded.
func (o *Observer) ReadPump() {
	defer func() {
		o.hub.Unregister(o)
		o.conn.Close()
	}()

	o.conn.SetReadLimit(maxMessageSize)
	o.conn.SetReadDeadline(time.Now().Add(pongWait))
	o.conn.SetPongHandler(func(string) error {
		o.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := o.conn.ReadMessage(); err != nil {
			return
		}
	}
}

// WritePump pumps envelopes from the hub to the connection.
func (o *Observer) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		o.conn.Close()
	}()

	for {
		select {
		case data, ok := <-o.send:
			o.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed this observer
				o.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := o.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}

		case <-ticker.C:
			o.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := o.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
