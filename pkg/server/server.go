package server

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"sync"

	"github.com/decred/slog"
	"github.com/google/uuid"
	"github.com/vctt94/blackjacktables/pkg/api"
	"github.com/vctt94/blackjacktables/pkg/blackjack"
	"github.com/vctt94/blackjacktables/pkg/logging"
	"github.com/vctt94/blackjacktables/pkg/server/internal/db"
)

// Config holds the server options.
type Config struct {
	Rules blackjack.Rules
	// Seed makes every table's shuffles reproducible when non-zero.
	Seed int64

	EventQueueSize int
	EventWorkers   int
}

// JoinParams describes a seat request.
type JoinParams struct {
	Seat   int
	Name   string
	Avatar string
	IsBot  bool
	// UserID is set when the caller is an authenticated user.
	UserID string
}

// Server owns the table registry. Each table serializes its own events; the
// registry lock only guards the maps.
type Server struct {
	log        slog.Logger
	logBackend *logging.LogBackend
	db         Database
	cfg        Config

	mu      sync.RWMutex
	tables  map[string]*blackjack.Table
	players map[string]string // playerID -> tableID

	// createMu serializes table creation so numbers stay unique.
	createMu sync.Mutex

	eventProcessor *EventProcessor
	hub            *StreamHub
}

// NewServer creates a new blackjack server and restores persisted tables.
func NewServer(db Database, logBackend *logging.LogBackend, cfg Config) *Server {
	if cfg.Rules == (blackjack.Rules{}) {
		cfg.Rules = blackjack.DefaultRules()
	}
	if cfg.EventQueueSize <= 0 {
		cfg.EventQueueSize = 256
	}
	if cfg.EventWorkers <= 0 {
		cfg.EventWorkers = 3
	}

	server := &Server{
		log:        logBackend.Logger("SRVR"),
		logBackend: logBackend,
		db:         db,
		cfg:        cfg,
		tables:     make(map[string]*blackjack.Table),
		players:    make(map[string]string),
	}
	server.hub = NewStreamHub(logBackend.Logger("HTTP"))

	server.eventProcessor = NewEventProcessor(server.log, cfg.EventQueueSize, cfg.EventWorkers, server.hub)
	server.eventProcessor.Start()

	if err := server.loadAllTables(context.Background()); err != nil {
		server.log.Errorf("Failed to load persisted tables: %v", err)
	}

	return server
}

// Stop gracefully stops the server
func (s *Server) Stop() {
	if s.eventProcessor != nil {
		s.eventProcessor.Stop()
	}
	s.hub.CloseAll()
}

// Rules returns the rules new tables are created with.
func (s *Server) Rules() blackjack.Rules {
	return s.cfg.Rules
}

func (s *Server) tableConfig(tableID string) blackjack.TableConfig {
	cfg := blackjack.TableConfig{
		Rules: s.cfg.Rules,
		Log:   s.logBackend.Logger("TBLE"),
		Saver: tableSaver{db: s.db},
	}
	if s.cfg.Seed != 0 {
		cfg.Rng = rand.New(rand.NewSource(s.cfg.Seed ^ int64(hashString(tableID))))
	}
	return cfg
}

// registerTable adds a table to the registry and wires its events.
func (s *Server) registerTable(table *blackjack.Table) {
	id := table.ID()
	table.SetEventChannel(s.eventProcessor.QueueFor(id))

	s.mu.Lock()
	defer s.mu.Unlock()
	s.tables[id] = table
	for _, playerID := range table.PlayerIDs() {
		s.players[playerID] = id
	}
}

func (s *Server) getTable(tableID string) (*blackjack.Table, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	table, ok := s.tables[tableID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", blackjack.ErrTableNotFound, tableID)
	}
	return table, nil
}

func (s *Server) tableForPlayer(playerID string) (*blackjack.Table, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tableID, ok := s.players[playerID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", blackjack.ErrPlayerNotFound, playerID)
	}
	table, ok := s.tables[tableID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", blackjack.ErrTableNotFound, tableID)
	}
	return table, nil
}

// CreateTable creates a WAITING table with a fresh deck and persists it.
func (s *Server) CreateTable(ctx context.Context) (*api.CreateTableResponse, error) {
	s.createMu.Lock()
	defer s.createMu.Unlock()

	number, err := s.db.NextTableNumber(ctx)
	if err != nil {
		return nil, err
	}

	id := uuid.NewString()
	table := blackjack.NewTable(id, number, s.tableConfig(id))
	if err := table.Persist(ctx); err != nil {
		return nil, err
	}
	s.registerTable(table)

	s.log.Infof("Created table %s (#%d)", id, number)
	return &api.CreateTableResponse{ID: id, Number: number}, nil
}

// JoinTable seats a player, bot or guest at a table.
func (s *Server) JoinTable(ctx context.Context, tableID string, params JoinParams) (*blackjack.PlayerSnapshot, error) {
	table, err := s.getTable(tableID)
	if err != nil {
		return nil, err
	}

	identity := blackjack.Identity{Kind: blackjack.IdentityGuest}
	switch {
	case params.IsBot:
		identity.Kind = blackjack.IdentityBot
	case params.UserID != "":
		identity = blackjack.Identity{Kind: blackjack.IdentityUser, UserID: params.UserID}
	}

	name := params.Name
	if name == "" {
		name = fmt.Sprintf("Seat %d", params.Seat+1)
	}

	player, err := table.Join(ctx, blackjack.JoinRequest{
		PlayerID: uuid.NewString(),
		Seat:     params.Seat,
		Name:     name,
		Avatar:   params.Avatar,
		Identity: identity,
	})
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.players[player.ID] = tableID
	s.mu.Unlock()

	s.log.Infof("Player %s (%s) joined table %s at seat %d", player.ID, player.Kind, tableID, player.Seat)
	return player, nil
}

// SetBet sets the bet a player stakes on the next round.
func (s *Server) SetBet(ctx context.Context, playerID string, amount int64) (*blackjack.PlayerSnapshot, error) {
	table, err := s.tableForPlayer(playerID)
	if err != nil {
		return nil, err
	}
	return table.SetBet(ctx, playerID, amount)
}

// Deal starts a new round and returns the resulting table state.
func (s *Server) Deal(ctx context.Context, tableID string) (*blackjack.TableSnapshot, error) {
	table, err := s.getTable(tableID)
	if err != nil {
		return nil, err
	}
	if err := table.Deal(ctx); err != nil {
		return nil, err
	}
	return table.Snapshot(), nil
}

// Act applies a human player's action.
func (s *Server) Act(ctx context.Context, playerID string, action blackjack.Action) (*blackjack.ActionResult, error) {
	table, err := s.tableForPlayer(playerID)
	if err != nil {
		return nil, err
	}
	return table.Act(ctx, playerID, action)
}

// BotMove plays one bot move on a table. It returns nil when it is not a
// bot's turn.
func (s *Server) BotMove(ctx context.Context, tableID string) (*blackjack.BotMove, error) {
	table, err := s.getTable(tableID)
	if err != nil {
		return nil, err
	}
	return table.BotMove(ctx)
}

// GetTable returns a snapshot of a table.
func (s *Server) GetTable(ctx context.Context, tableID string) (*blackjack.TableSnapshot, error) {
	table, err := s.getTable(tableID)
	if err != nil {
		return nil, err
	}
	return table.Snapshot(), nil
}

// GetPlayer returns a snapshot of one seat.
func (s *Server) GetPlayer(ctx context.Context, playerID string) (*blackjack.PlayerSnapshot, error) {
	table, err := s.tableForPlayer(playerID)
	if err != nil {
		return nil, err
	}
	return table.PlayerSnapshot(playerID)
}

// ListTables returns all tables ordered by number.
func (s *Server) ListTables(ctx context.Context) ([]api.TableSummary, error) {
	s.mu.RLock()
	tables := make([]*blackjack.Table, 0, len(s.tables))
	for _, t := range s.tables {
		tables = append(tables, t)
	}
	s.mu.RUnlock()

	out := make([]api.TableSummary, 0, len(tables))
	for _, t := range tables {
		snap := t.Snapshot()
		out = append(out, api.TableSummary{
			ID:      snap.ID,
			Number:  snap.Number,
			Status:  snap.Status,
			Round:   snap.Round,
			Players: len(snap.Players),
			Seats:   t.Rules().MaxSeats,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out, nil
}

// TableIDs returns the IDs of all registered tables.
func (s *Server) TableIDs(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.tables))
	for id := range s.tables {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// Settlements returns the settlement journal of a table.
func (s *Server) Settlements(ctx context.Context, tableID string) ([]db.SettlementRecord, error) {
	if _, err := s.getTable(tableID); err != nil {
		return nil, err
	}
	return s.db.Settlements(ctx, tableID)
}

// DeleteTable finishes a table for good: it is removed from the registry and
// from the database.
func (s *Server) DeleteTable(ctx context.Context, tableID string) error {
	table, err := s.getTable(tableID)
	if err != nil {
		return err
	}

	// Closed first, so an event already waiting on the table lock cannot
	// save the table back after the row is gone.
	table.Close()
	if err := s.db.DeleteTableState(ctx, tableID); err != nil && !errors.Is(err, db.ErrNotFound) {
		return err
	}

	s.mu.Lock()
	delete(s.tables, tableID)
	for _, playerID := range table.PlayerIDs() {
		delete(s.players, playerID)
	}
	s.mu.Unlock()

	s.hub.CloseTable(tableID)
	s.log.Infof("Deleted table %s", tableID)
	return nil
}
