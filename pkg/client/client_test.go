package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vctt94/blackjacktables/pkg/api"
	"github.com/vctt94/blackjacktables/pkg/blackjack"
)

func newTestClient(t *testing.T, h http.Handler) *BlackjackClient {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	bc, err := NewBlackjackClient(Config{ServerURL: srv.URL + "/"})
	require.NoError(t, err)
	return bc
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestConfigValidation(t *testing.T) {
	_, err := NewBlackjackClient(Config{})
	assert.Error(t, err)
	_, err = NewBlackjackClient(Config{ServerURL: "ftp://example.com"})
	assert.Error(t, err)

	bc, err := NewBlackjackClient(Config{ServerURL: "http://127.0.0.1:7780/"})
	require.NoError(t, err)
	assert.Equal(t, "http://127.0.0.1:7780", bc.ServerURL())
}

func TestErrorCodesMapToSentinels(t *testing.T) {
	tests := []struct {
		status int
		code   string
		want   error
	}{
		{http.StatusNotFound, "table_not_found", blackjack.ErrTableNotFound},
		{http.StatusConflict, "not_your_turn", blackjack.ErrNotYourTurn},
		{http.StatusConflict, "seat_occupied", blackjack.ErrSeatOccupied},
		{http.StatusUnprocessableEntity, "cannot_split", blackjack.ErrCannotSplit},
		{http.StatusUnprocessableEntity, "insufficient_funds", blackjack.ErrInsufficientFunds},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.code, func(t *testing.T) {
			bc := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, tc.status, api.ErrorResponse{Error: "nope", Code: tc.code})
			}))
			_, err := bc.Act(context.Background(), "p1", blackjack.Hit)
			require.Error(t, err)
			assert.ErrorIs(t, err, tc.want)

			var apiErr *APIError
			require.True(t, errors.As(err, &apiErr))
			assert.Equal(t, tc.status, apiErr.Status)
			assert.Equal(t, "nope", apiErr.Message)
		})
	}
}

func TestNonJSONErrorBody(t *testing.T) {
	bc := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gateway melted", http.StatusBadGateway)
	}))
	err := bc.Healthy(context.Background())
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadGateway, apiErr.Status)
	assert.Equal(t, api.CodeInternal, apiErr.Code)
	assert.Nil(t, errors.Unwrap(err))
}

func TestRequestsHitTheRightRoutes(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/tables/{id}/join", func(w http.ResponseWriter, r *http.Request) {
		var req api.JoinTableRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "t 1", r.PathValue("id"))
		writeJSON(w, http.StatusCreated, blackjack.PlayerSnapshot{ID: "p1", TableID: r.PathValue("id"), Seat: req.Seat, Name: req.Name})
	})
	mux.HandleFunc("POST /api/players/{id}/bet", func(w http.ResponseWriter, r *http.Request) {
		var req api.SetBetRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		writeJSON(w, http.StatusOK, blackjack.PlayerSnapshot{ID: r.PathValue("id"), CurrentBet: req.Amount})
	})
	mux.HandleFunc("POST /api/players/{id}/action", func(w http.ResponseWriter, r *http.Request) {
		var req api.ActionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "double", req.Action)
		writeJSON(w, http.StatusOK, blackjack.ActionResult{TurnOver: true})
	})
	mux.HandleFunc("POST /api/tables/{id}/bot-move", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, api.BotMoveResponse{})
	})
	mux.HandleFunc("GET /api/tables", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, api.ListTablesResponse{Tables: []api.TableSummary{{ID: "a", Number: 1}, {ID: "b", Number: 2}}})
	})
	mux.HandleFunc("DELETE /api/tables/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	bc := newTestClient(t, mux)
	ctx := context.Background()

	p, err := bc.JoinTable(ctx, "t 1", api.JoinTableRequest{Seat: 3, Name: "zoe"})
	require.NoError(t, err)
	assert.Equal(t, 3, p.Seat)
	assert.Equal(t, "t 1", p.TableID)

	p, err = bc.SetBet(ctx, "p1", 40)
	require.NoError(t, err)
	assert.Equal(t, int64(40), p.CurrentBet)

	res, err := bc.Act(ctx, "p1", blackjack.Double)
	require.NoError(t, err)
	assert.True(t, res.TurnOver)

	move, err := bc.BotMove(ctx, "a")
	require.NoError(t, err)
	assert.Nil(t, move)

	ids, err := bc.TableIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, ids)

	require.NoError(t, bc.DeleteTable(ctx, "a"))
}

func TestSubscribe(t *testing.T) {
	upgrader := websocket.Upgrader{}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/tables/{id}/stream", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("id") != "t1" {
			writeJSON(w, http.StatusNotFound, api.ErrorResponse{Error: "table not found", Code: "table_not_found"})
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		_ = conn.WriteJSON(api.StreamMessage{Type: api.StreamSnapshot, Table: &blackjack.TableSnapshot{ID: "t1"}})
		_ = conn.WriteJSON(api.StreamMessage{Type: string(blackjack.EventRoundDealt), Table: &blackjack.TableSnapshot{ID: "t1", Round: 1}})
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	})
	bc := newTestClient(t, mux)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := bc.Subscribe(ctx, "missing")
	assert.ErrorIs(t, err, blackjack.ErrTableNotFound)

	stream, err := bc.Subscribe(ctx, "t1")
	require.NoError(t, err)
	defer stream.Close()

	var types []string
	for msg := range stream.Updates() {
		types = append(types, msg.Type)
	}
	assert.Equal(t, []string{api.StreamSnapshot, string(blackjack.EventRoundDealt)}, types)
	assert.NoError(t, stream.Err())
}
