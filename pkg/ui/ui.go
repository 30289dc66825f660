// Package ui is the terminal client: a lobby to list, create and join tables
// and a live table view driven by the server's stream.
package ui

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/vctt94/blackjacktables/pkg/api"
	"github.com/vctt94/blackjacktables/pkg/blackjack"
	"github.com/vctt94/blackjacktables/pkg/client"
)

// Stream is a live feed of table updates.
type Stream interface {
	Updates() <-chan *api.StreamMessage
	Close() error
}

// Backend is the server surface used by the UI.
type Backend interface {
	CreateTable(ctx context.Context) (*api.CreateTableResponse, error)
	ListTables(ctx context.Context) ([]api.TableSummary, error)
	JoinTable(ctx context.Context, tableID string, req api.JoinTableRequest) (*blackjack.PlayerSnapshot, error)
	GetTable(ctx context.Context, tableID string) (*blackjack.TableSnapshot, error)
	SetBet(ctx context.Context, playerID string, amount int64) (*blackjack.PlayerSnapshot, error)
	Deal(ctx context.Context, tableID string) (*blackjack.TableSnapshot, error)
	Act(ctx context.Context, playerID string, action blackjack.Action) (*blackjack.ActionResult, error)
	Subscribe(ctx context.Context, tableID string) (Stream, error)
}

type clientBackend struct {
	*client.BlackjackClient
}

func (b clientBackend) Subscribe(ctx context.Context, tableID string) (Stream, error) {
	s, err := b.BlackjackClient.Subscribe(ctx, tableID)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// NewClientBackend serves the UI from an HTTP client.
func NewClientBackend(c *client.BlackjackClient) Backend {
	return clientBackend{c}
}

type menuOption string

const (
	optionListTables  menuOption = "List Tables"
	optionCreateTable menuOption = "Create Table"
	optionJoinTable   menuOption = "Join Table by ID"
	optionQuit        menuOption = "Quit"
)

// screenState represents the current screen in the UI
type screenState int

const (
	stateMainMenu screenState = iota
	stateTableList
	stateJoinTable
	stateSeatInput
	stateTable
	stateBetInput
)

// maxEventLog is how many recent table events the table view shows.
const maxEventLog = 6

// Options configures the seat the UI takes when joining.
type Options struct {
	Name   string
	UserID string
}

// Model contains all the state for the UI
type Model struct {
	ctx        context.Context
	opts       Options
	dispatcher *CommandDispatcher
	input      *InputHandler
	renderer   *Renderer

	state        screenState
	err          error
	message      string
	menuOptions  []menuOption
	selectedItem int

	tables        []api.TableSummary
	selectedTable int

	tableIDInput string
	seatInput    string
	betInput     string

	tableID  string
	playerID string
	table    *blackjack.TableSnapshot
	stream   Stream
	polling  bool
	events   []string
}

// NewModel creates a new UI model
func NewModel(ctx context.Context, backend Backend, opts Options) *Model {
	m := &Model{
		ctx:        ctx,
		opts:       opts,
		dispatcher: NewCommandDispatcher(ctx, backend),
		state:      stateMainMenu,
		menuOptions: []menuOption{
			optionListTables,
			optionCreateTable,
			optionJoinTable,
			optionQuit,
		},
	}
	m.input = &InputHandler{ui: m}
	m.renderer = &Renderer{ui: m}
	return m
}

func (m *Model) Init() tea.Cmd {
	return nil
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			m.closeStream()
			return m, tea.Quit
		}
		return m, m.input.HandleKeyMsg(msg)

	case errorMsg:
		m.err = error(msg)

	case tablesMsg:
		m.tables = []api.TableSummary(msg)
		m.selectedTable = 0
		m.state = stateTableList
		m.err = nil

	case tableCreatedMsg:
		m.message = fmt.Sprintf("Created table #%d", msg.Number)
		m.startSeatInput(msg.ID)

	case joinedMsg:
		m.playerID = msg.ID
		m.state = stateTable
		m.err = nil
		m.events = nil
		m.message = fmt.Sprintf("Seated at seat %d", msg.Seat)
		return m, tea.Batch(
			m.dispatcher.getTableCmd(m.tableID),
			m.dispatcher.subscribeCmd(m.tableID),
		)

	case tableMsg:
		m.setTable((*blackjack.TableSnapshot)(msg))
		m.err = nil

	case streamOpenedMsg:
		if !m.atTable() || msg.tableID != m.tableID {
			msg.stream.Close()
			return m, nil
		}
		m.closeStream()
		m.stream = msg.stream
		return m, waitForStream(msg.stream)

	case streamFailedMsg:
		m.message = fmt.Sprintf("Live updates unavailable (%v), polling", msg.err)
		return m, m.startPolling()

	case streamMsg:
		if msg.stream != m.stream {
			return m, nil
		}
		m.recordEvent(msg.msg)
		m.setTable(msg.msg.Table)
		return m, waitForStream(msg.stream)

	case streamClosedMsg:
		if msg.stream != m.stream {
			return m, nil
		}
		m.stream = nil
		if m.atTable() {
			m.message = "Stream closed, polling"
			return m, tea.Batch(m.dispatcher.getTableCmd(m.tableID), m.startPolling())
		}

	case tickMsg:
		m.polling = false
		if m.atTable() && m.stream == nil {
			m.polling = true
			return m, tea.Batch(m.dispatcher.getTableCmd(m.tableID), pollTicker())
		}
	}
	return m, nil
}

func (m *Model) atTable() bool {
	return m.state == stateTable || m.state == stateBetInput
}

func (m *Model) startPolling() tea.Cmd {
	if m.polling {
		return nil
	}
	m.polling = true
	return pollTicker()
}

func (m *Model) startSeatInput(tableID string) {
	m.tableID = tableID
	m.seatInput = ""
	m.err = nil
	m.state = stateSeatInput
}

func (m *Model) setTable(snap *blackjack.TableSnapshot) {
	if snap == nil || snap.ID != m.tableID {
		return
	}
	m.table = snap
}

func (m *Model) recordEvent(msg *api.StreamMessage) {
	if msg.Type == api.StreamSnapshot || msg.Table == nil {
		return
	}
	line := msg.Type
	if msg.PlayerID != "" {
		who := msg.PlayerID
		if p := msg.Table.Player(msg.PlayerID); p != nil {
			who = p.Name
		}
		line = fmt.Sprintf("%s: %s", msg.Type, who)
		if msg.Action != "" {
			line += " " + string(msg.Action)
		}
	}
	m.events = append(m.events, line)
	if len(m.events) > maxEventLog {
		m.events = m.events[len(m.events)-maxEventLog:]
	}
}

// leaveTable returns to the main menu. The seat stays taken.
func (m *Model) leaveTable() {
	m.closeStream()
	m.state = stateMainMenu
	m.selectedItem = 0
	m.tableID = ""
	m.playerID = ""
	m.table = nil
	m.events = nil
	m.message = ""
	m.err = nil
}

func (m *Model) closeStream() {
	if m.stream != nil {
		m.stream.Close()
		m.stream = nil
	}
}

// View renders the current state of the UI
func (m *Model) View() string {
	var s string
	if m.message != "" {
		s += InfoStyle.Render(m.message) + "\n\n"
	}
	if m.err != nil {
		s += ErrorStyle.Render(fmt.Sprintf("Error: %v", m.err)) + "\n\n"
	}

	switch m.state {
	case stateMainMenu:
		s += m.renderer.RenderMainMenu()
	case stateTableList:
		s += m.renderer.RenderTableList()
	case stateJoinTable:
		s += m.renderer.RenderJoinTable()
	case stateSeatInput:
		s += m.renderer.RenderSeatInput()
	case stateTable:
		s += m.renderer.RenderTable()
	case stateBetInput:
		s += m.renderer.RenderTable()
		s += m.renderer.RenderBetInput()
	}
	return s
}

// Run starts the UI and blocks until the user quits.
func Run(ctx context.Context, backend Backend, opts Options) error {
	model := NewModel(ctx, backend, opts)
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	model.closeStream()
	if err != nil {
		return fmt.Errorf("error running UI: %w", err)
	}
	return nil
}
