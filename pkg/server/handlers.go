package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/vctt94/blackjacktables/pkg/api"
	"github.com/vctt94/blackjacktables/pkg/blackjack"
)

// Handler returns the HTTP API.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	mux.HandleFunc("POST /api/tables", s.handleCreateTable)
	mux.HandleFunc("GET /api/tables", s.handleListTables)
	mux.HandleFunc("GET /api/tables/{id}", s.handleGetTable)
	mux.HandleFunc("DELETE /api/tables/{id}", s.handleDeleteTable)
	mux.HandleFunc("POST /api/tables/{id}/join", s.handleJoinTable)
	mux.HandleFunc("POST /api/tables/{id}/deal", s.handleDeal)
	mux.HandleFunc("POST /api/tables/{id}/bot-move", s.handleBotMove)
	mux.HandleFunc("GET /api/tables/{id}/settlements", s.handleSettlements)
	mux.HandleFunc("GET /api/tables/{id}/stream", s.handleStream)

	mux.HandleFunc("GET /api/players/{id}", s.handleGetPlayer)
	mux.HandleFunc("POST /api/players/{id}/bet", s.handleSetBet)
	mux.HandleFunc("POST /api/players/{id}/action", s.handleAction)

	return s.logRequests(mux)
}

// logRequests logs each request at debug level.
func (s *Server) logRequests(next http.Handler) http.Handler {
	log := s.logBackend.Logger("HTTP")
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Debugf("%s %s (%v)", r.Method, r.URL.Path, time.Since(start))
	})
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := statusForError(err)
	if status == http.StatusInternalServerError {
		s.log.Errorf("%s %s: %v", r.Method, r.URL.Path, err)
	}
	writeJSON(w, status, api.ErrorResponse{Error: err.Error(), Code: code})
}

func (s *Server) handleCreateTable(w http.ResponseWriter, r *http.Request) {
	resp, err := s.CreateTable(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleListTables(w http.ResponseWriter, r *http.Request) {
	tables, err := s.ListTables(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, api.ListTablesResponse{Tables: tables})
}

func (s *Server) handleGetTable(w http.ResponseWriter, r *http.Request) {
	snap, err := s.GetTable(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleDeleteTable(w http.ResponseWriter, r *http.Request) {
	if err := s.DeleteTable(r.Context(), r.PathValue("id")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleJoinTable(w http.ResponseWriter, r *http.Request) {
	var req api.JoinTableRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	player, err := s.JoinTable(r.Context(), r.PathValue("id"), JoinParams{
		Seat:   req.Seat,
		Name:   req.Name,
		Avatar: req.Avatar,
		IsBot:  req.IsBot,
		UserID: req.UserID,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, player)
}

func (s *Server) handleDeal(w http.ResponseWriter, r *http.Request) {
	snap, err := s.Deal(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleBotMove(w http.ResponseWriter, r *http.Request) {
	move, err := s.BotMove(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, api.BotMoveResponse{Move: move})
}

func (s *Server) handleSettlements(w http.ResponseWriter, r *http.Request) {
	records, err := s.Settlements(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	resp := api.SettlementsResponse{Settlements: make([]api.Settlement, len(records))}
	for i, rec := range records {
		resp.Settlements[i] = api.Settlement{
			Round:       rec.Round,
			PlayerID:    rec.PlayerID,
			HandIndex:   rec.HandIndex,
			Bet:         rec.Bet,
			Score:       rec.Score,
			DealerScore: rec.DealerScore,
			Result:      blackjack.HandResult(rec.Result),
			Payout:      rec.Payout,
			CreatedAt:   rec.CreatedAt,
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	table, err := s.getTable(r.PathValue("id"))
	if err == nil && s.hub.Closed(table.ID()) {
		err = fmt.Errorf("%w: %s", blackjack.ErrTableNotFound, table.ID())
	}
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.hub.serve(w, r, table.ID(), table.Snapshot)
}

func (s *Server) handleGetPlayer(w http.ResponseWriter, r *http.Request) {
	player, err := s.GetPlayer(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, player)
}

func (s *Server) handleSetBet(w http.ResponseWriter, r *http.Request) {
	var req api.SetBetRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	player, err := s.SetBet(r.Context(), r.PathValue("id"), req.Amount)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, player)
}

func (s *Server) handleAction(w http.ResponseWriter, r *http.Request) {
	var req api.ActionRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	action, err := blackjack.ParseAction(req.Action)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	res, err := s.Act(r.Context(), r.PathValue("id"), action)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
