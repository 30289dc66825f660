package ui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/vctt94/blackjacktables/pkg/api"
	"github.com/vctt94/blackjacktables/pkg/blackjack"
)

// pollInterval is used to refresh the table when no stream is open.
const pollInterval = 2 * time.Second

type errorMsg error
type tickMsg struct{}

type tablesMsg []api.TableSummary
type tableCreatedMsg *api.CreateTableResponse
type joinedMsg *blackjack.PlayerSnapshot
type tableMsg *blackjack.TableSnapshot

type streamOpenedMsg struct {
	tableID string
	stream  Stream
}

type streamFailedMsg struct {
	err error
}

type streamMsg struct {
	stream Stream
	msg    *api.StreamMessage
}

type streamClosedMsg struct {
	stream Stream
}

// CommandDispatcher dispatches commands from the UI to the backend.
type CommandDispatcher struct {
	ctx     context.Context
	backend Backend
}

// NewCommandDispatcher creates a new command dispatcher for the UI
func NewCommandDispatcher(ctx context.Context, backend Backend) *CommandDispatcher {
	return &CommandDispatcher{ctx: ctx, backend: backend}
}

func (d *CommandDispatcher) getTablesCmd() tea.Cmd {
	return func() tea.Msg {
		tables, err := d.backend.ListTables(d.ctx)
		if err != nil {
			return errorMsg(err)
		}
		return tablesMsg(tables)
	}
}

func (d *CommandDispatcher) createTableCmd() tea.Cmd {
	return func() tea.Msg {
		resp, err := d.backend.CreateTable(d.ctx)
		if err != nil {
			return errorMsg(err)
		}
		return tableCreatedMsg(resp)
	}
}

func (d *CommandDispatcher) joinTableCmd(tableID string, req api.JoinTableRequest) tea.Cmd {
	return func() tea.Msg {
		p, err := d.backend.JoinTable(d.ctx, tableID, req)
		if err != nil {
			return errorMsg(err)
		}
		return joinedMsg(p)
	}
}

func (d *CommandDispatcher) getTableCmd(tableID string) tea.Cmd {
	return func() tea.Msg {
		snap, err := d.backend.GetTable(d.ctx, tableID)
		if err != nil {
			return errorMsg(err)
		}
		return tableMsg(snap)
	}
}

func (d *CommandDispatcher) setBetCmd(tableID, playerID string, amount int64) tea.Cmd {
	return func() tea.Msg {
		if _, err := d.backend.SetBet(d.ctx, playerID, amount); err != nil {
			return errorMsg(err)
		}
		return d.getTableCmd(tableID)()
	}
}

func (d *CommandDispatcher) dealCmd(tableID string) tea.Cmd {
	return func() tea.Msg {
		snap, err := d.backend.Deal(d.ctx, tableID)
		if err != nil {
			return errorMsg(err)
		}
		return tableMsg(snap)
	}
}

func (d *CommandDispatcher) actCmd(tableID, playerID string, action blackjack.Action) tea.Cmd {
	return func() tea.Msg {
		if _, err := d.backend.Act(d.ctx, playerID, action); err != nil {
			return errorMsg(err)
		}
		return d.getTableCmd(tableID)()
	}
}

func (d *CommandDispatcher) subscribeCmd(tableID string) tea.Cmd {
	return func() tea.Msg {
		s, err := d.backend.Subscribe(d.ctx, tableID)
		if err != nil {
			return streamFailedMsg{err: err}
		}
		return streamOpenedMsg{tableID: tableID, stream: s}
	}
}

// waitForStream blocks until the next pushed message.
func waitForStream(s Stream) tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-s.Updates()
		if !ok {
			return streamClosedMsg{stream: s}
		}
		return streamMsg{stream: s, msg: msg}
	}
}

func pollTicker() tea.Cmd {
	return tea.Tick(pollInterval, func(time.Time) tea.Msg {
		return tickMsg{}
	})
}
