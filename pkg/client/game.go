package client

import (
	"context"
	"net/http"

	"github.com/vctt94/blackjacktables/pkg/api"
	"github.com/vctt94/blackjacktables/pkg/blackjack"
)

// Deal starts a new round on a table.
func (bc *BlackjackClient) Deal(ctx context.Context, tableID string) (*blackjack.TableSnapshot, error) {
	var snap blackjack.TableSnapshot
	if err := bc.do(ctx, http.MethodPost, tablePath(tableID)+"/deal", nil, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

// BotMove asks the server to play the bot holding the turn. It returns nil
// when it is not a bot's turn.
func (bc *BlackjackClient) BotMove(ctx context.Context, tableID string) (*blackjack.BotMove, error) {
	var resp api.BotMoveResponse
	if err := bc.do(ctx, http.MethodPost, tablePath(tableID)+"/bot-move", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Move, nil
}

// GetPlayer returns a snapshot of one seat.
func (bc *BlackjackClient) GetPlayer(ctx context.Context, playerID string) (*blackjack.PlayerSnapshot, error) {
	var p blackjack.PlayerSnapshot
	if err := bc.do(ctx, http.MethodGet, playerPath(playerID), nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// SetBet sets the bet staked on the next deal.
func (bc *BlackjackClient) SetBet(ctx context.Context, playerID string, amount int64) (*blackjack.PlayerSnapshot, error) {
	var p blackjack.PlayerSnapshot
	if err := bc.do(ctx, http.MethodPost, playerPath(playerID)+"/bet", api.SetBetRequest{Amount: amount}, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// Act submits an action on the player's active hand.
func (bc *BlackjackClient) Act(ctx context.Context, playerID string, action blackjack.Action) (*blackjack.ActionResult, error) {
	var res blackjack.ActionResult
	if err := bc.do(ctx, http.MethodPost, playerPath(playerID)+"/action", api.ActionRequest{Action: string(action)}, &res); err != nil {
		return nil, err
	}
	return &res, nil
}
