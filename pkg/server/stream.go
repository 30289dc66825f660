package server

import (
	"net/http"
	"sync"
	"time"

	"github.com/decred/slog"
	"github.com/gorilla/websocket"
	"github.com/vctt94/blackjacktables/pkg/api"
	"github.com/vctt94/blackjacktables/pkg/blackjack"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 512

	// Messages buffered per subscriber before it is considered too slow
	sendBuffer = 32
)

// subscriber is one websocket watching a table.
type subscriber struct {
	tableID string
	conn    *websocket.Conn
	send    chan *api.StreamMessage
	once    sync.Once
}

func (sub *subscriber) close() {
	sub.once.Do(func() { close(sub.send) })
}

// StreamHub pushes table snapshots to websocket subscribers.
type StreamHub struct {
	log      slog.Logger
	upgrader websocket.Upgrader

	mu     sync.Mutex
	subs   map[string]map[*subscriber]struct{} // tableID -> subscribers
	closed map[string]struct{}                 // deleted tables; ids are never reused
}

// NewStreamHub creates an empty hub.
func NewStreamHub(log slog.Logger) *StreamHub {
	return &StreamHub{
		log: log,
		upgrader: websocket.Upgrader{
			CheckOrigin:     func(r *http.Request) bool { return true },
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
		},
		subs:   make(map[string]map[*subscriber]struct{}),
		closed: make(map[string]struct{}),
	}
}

// HandleEvent implements EventHandler.
func (h *StreamHub) HandleEvent(event blackjack.TableEvent) {
	msg := &api.StreamMessage{
		Type:     string(event.Type),
		PlayerID: event.PlayerID,
		Action:   event.Action,
		Table:    event.Snapshot,
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for sub := range h.subs[event.TableID] {
		select {
		case sub.send <- msg:
		default:
			h.log.Warnf("Dropping slow stream subscriber on table %s", event.TableID)
			h.removeLocked(sub)
		}
	}
}

// Subscribers returns the number of subscribers watching a table.
func (h *StreamHub) Subscribers(tableID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[tableID])
}

func (h *StreamHub) remove(sub *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(sub)
}

func (h *StreamHub) removeLocked(sub *subscriber) {
	subs := h.subs[sub.tableID]
	if _, ok := subs[sub]; !ok {
		return
	}
	delete(subs, sub)
	if len(subs) == 0 {
		delete(h.subs, sub.tableID)
	}
	sub.close()
}

// CloseTable disconnects every subscriber of a table. Subscribers that
// arrive later are turned away.
func (h *StreamHub) CloseTable(tableID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed[tableID] = struct{}{}
	for sub := range h.subs[tableID] {
		h.removeLocked(sub)
	}
}

// Closed reports whether CloseTable was called for a table.
func (h *StreamHub) Closed(tableID string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	_, ok := h.closed[tableID]
	return ok
}

// CloseAll disconnects every subscriber.
func (h *StreamHub) CloseAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, subs := range h.subs {
		for sub := range subs {
			h.removeLocked(sub)
		}
	}
}

// serve upgrades the request and streams the table until the peer goes away
// or the table is deleted. The first message is the snapshot returned by
// current, taken under the hub lock so no event can slip in between. A table
// closed while the upgrade was in flight gets a close frame instead.
func (h *StreamHub) serve(w http.ResponseWriter, r *http.Request, tableID string, current func() *blackjack.TableSnapshot) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Errorf("Failed to upgrade stream connection: %v", err)
		return
	}

	sub := &subscriber{
		tableID: tableID,
		conn:    conn,
		send:    make(chan *api.StreamMessage, sendBuffer),
	}

	h.mu.Lock()
	if _, ok := h.closed[tableID]; ok {
		h.mu.Unlock()
		h.log.Debugf("Stream subscriber turned away from closed table %s", tableID)
		sub.close()
		h.writePump(sub)
		return
	}
	sub.send <- &api.StreamMessage{Type: api.StreamSnapshot, Table: current()}
	if h.subs[tableID] == nil {
		h.subs[tableID] = make(map[*subscriber]struct{})
	}
	h.subs[tableID][sub] = struct{}{}
	h.mu.Unlock()
	h.log.Debugf("Stream subscriber joined table %s", tableID)

	go h.readPump(sub)
	h.writePump(sub)
}

// readPump discards client messages and notices when the peer goes away.
func (h *StreamHub) readPump(sub *subscriber) {
	defer h.remove(sub)

	sub.conn.SetReadLimit(maxMessageSize)
	_ = sub.conn.SetReadDeadline(time.Now().Add(pongWait))
	sub.conn.SetPongHandler(func(string) error {
		_ = sub.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := sub.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.Debugf("Stream read error on table %s: %v", sub.tableID, err)
			}
			return
		}
	}
}

// writePump handles outgoing messages to the client
func (h *StreamHub) writePump(sub *subscriber) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = sub.conn.Close()
		h.log.Debugf("Stream subscriber left table %s", sub.tableID)
	}()

	for {
		select {
		case msg, ok := <-sub.send:
			_ = sub.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = sub.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := sub.conn.WriteJSON(msg); err != nil {
				h.log.Debugf("Failed to write stream message: %v", err)
				h.remove(sub)
				return
			}

		case <-ticker.C:
			_ = sub.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := sub.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				h.remove(sub)
				return
			}
		}
	}
}
