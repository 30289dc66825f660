package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/vctt94/blackjacktables/pkg/api"
)

// TableStream delivers the table snapshots the server pushes after every
// committed event. The first message is always an api.StreamSnapshot.
type TableStream struct {
	conn    *websocket.Conn
	updates chan *api.StreamMessage
	done    chan struct{}

	closeOnce sync.Once
	mu        sync.Mutex
	closed    bool
	err       error
}

// Subscribe opens a live stream of a table's state. The stream ends when ctx
// is cancelled, Close is called, or the table is deleted.
func (bc *BlackjackClient) Subscribe(ctx context.Context, tableID string) (*TableStream, error) {
	u := *bc.baseURL
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path += "/api/tables/" + tableID + "/stream"

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusNotFound {
			return nil, &APIError{Status: resp.StatusCode, Code: "table_not_found", Message: "table not found"}
		}
		return nil, fmt.Errorf("failed to open table stream: %w", err)
	}
	bc.log.Debugf("Subscribed to table %s", tableID)

	ts := &TableStream{
		conn:    conn,
		updates: make(chan *api.StreamMessage, 16),
		done:    make(chan struct{}),
	}
	go ts.readMessages(ctx)
	go func() {
		select {
		case <-ctx.Done():
			ts.Close()
		case <-ts.done:
		}
	}()
	return ts, nil
}

// Updates returns the channel of pushed messages. It is closed when the
// stream ends; Err then tells why.
func (ts *TableStream) Updates() <-chan *api.StreamMessage {
	return ts.updates
}

// Err returns the error that ended the stream, or nil if it was closed
// normally.
func (ts *TableStream) Err() error {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	return ts.err
}

// Close ends the stream.
func (ts *TableStream) Close() error {
	var err error
	ts.closeOnce.Do(func() {
		ts.mu.Lock()
		ts.closed = true
		ts.mu.Unlock()
		_ = ts.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		err = ts.conn.Close()
	})
	return err
}

func (ts *TableStream) readMessages(ctx context.Context) {
	defer close(ts.done)
	defer close(ts.updates)
	for {
		var msg api.StreamMessage
		if err := ts.conn.ReadJSON(&msg); err != nil {
			var closeErr *websocket.CloseError
			ts.mu.Lock()
			if !ts.closed && !errors.As(err, &closeErr) {
				ts.err = err
			}
			ts.mu.Unlock()
			return
		}
		select {
		case ts.updates <- &msg:
		case <-ctx.Done():
			return
		}
	}
}
