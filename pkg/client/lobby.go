package client

import (
	"context"
	"net/http"
	"net/url"

	"github.com/vctt94/blackjacktables/pkg/api"
	"github.com/vctt94/blackjacktables/pkg/blackjack"
)

func tablePath(tableID string) string {
	return "/api/tables/" + url.PathEscape(tableID)
}

func playerPath(playerID string) string {
	return "/api/players/" + url.PathEscape(playerID)
}

// CreateTable creates a new WAITING table.
func (bc *BlackjackClient) CreateTable(ctx context.Context) (*api.CreateTableResponse, error) {
	var resp api.CreateTableResponse
	if err := bc.do(ctx, http.MethodPost, "/api/tables", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ListTables returns all tables ordered by number.
func (bc *BlackjackClient) ListTables(ctx context.Context) ([]api.TableSummary, error) {
	var resp api.ListTablesResponse
	if err := bc.do(ctx, http.MethodGet, "/api/tables", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Tables, nil
}

// TableIDs returns the IDs of all tables.
func (bc *BlackjackClient) TableIDs(ctx context.Context) ([]string, error) {
	tables, err := bc.ListTables(ctx)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(tables))
	for i, t := range tables {
		ids[i] = t.ID
	}
	return ids, nil
}

// GetTable returns a full snapshot of a table.
func (bc *BlackjackClient) GetTable(ctx context.Context, tableID string) (*blackjack.TableSnapshot, error) {
	var snap blackjack.TableSnapshot
	if err := bc.do(ctx, http.MethodGet, tablePath(tableID), nil, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

// DeleteTable finishes a table and removes it from the server.
func (bc *BlackjackClient) DeleteTable(ctx context.Context, tableID string) error {
	return bc.do(ctx, http.MethodDelete, tablePath(tableID), nil, nil)
}

// JoinTable takes a seat.
func (bc *BlackjackClient) JoinTable(ctx context.Context, tableID string, req api.JoinTableRequest) (*blackjack.PlayerSnapshot, error) {
	var p blackjack.PlayerSnapshot
	if err := bc.do(ctx, http.MethodPost, tablePath(tableID)+"/join", req, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// Settlements returns the settlement journal of a table.
func (bc *BlackjackClient) Settlements(ctx context.Context, tableID string) ([]api.Settlement, error) {
	var resp api.SettlementsResponse
	if err := bc.do(ctx, http.MethodGet, tablePath(tableID)+"/settlements", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Settlements, nil
}
