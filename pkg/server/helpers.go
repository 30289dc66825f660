package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/vctt94/blackjacktables/pkg/api"
	"github.com/vctt94/blackjacktables/pkg/blackjack"
)

// errBadRequest marks malformed request bodies and parameters.
var errBadRequest = errors.New("bad request")

// statusForError maps an engine error to its HTTP status and wire code.
func statusForError(err error) (int, string) {
	if errors.Is(err, errBadRequest) {
		return http.StatusBadRequest, api.CodeBadRequest
	}

	code := blackjack.ErrorCode(err)
	switch code {
	case "table_not_found", "player_not_found":
		return http.StatusNotFound, code
	case "seat_occupied", "not_your_turn", "round_in_progress":
		return http.StatusConflict, code
	case "cannot_split", "insufficient_funds", "invalid_bet", "no_players", "no_active_hand":
		return http.StatusUnprocessableEntity, code
	case "invalid_action", "invalid_seat":
		return http.StatusBadRequest, code
	}
	return http.StatusInternalServerError, api.CodeInternal
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return nil
}

// WaitForHealthy polls the /healthz endpoint until it returns 200 OK or the
// context is cancelled.
func WaitForHealthy(ctx context.Context, baseURL string) error {
	healthURL := baseURL + "/healthz"
	client := &http.Client{Timeout: 1 * time.Second}

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			resp, err := client.Get(healthURL)
			if err == nil && resp.StatusCode == http.StatusOK {
				resp.Body.Close()
				return nil
			}
			if resp != nil {
				resp.Body.Close()
			}
		}
	}
}
