package ui

import (
	"fmt"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/vctt94/blackjacktables/pkg/api"
	"github.com/vctt94/blackjacktables/pkg/blackjack"
)

// InputHandler handles input processing for different UI states
type InputHandler struct {
	ui *Model
}

// HandleKeyMsg processes keyboard input based on current state
func (ih *InputHandler) HandleKeyMsg(msg tea.KeyMsg) tea.Cmd {
	switch ih.ui.state {
	case stateMainMenu:
		return ih.handleMainMenuInput(msg)
	case stateTableList:
		return ih.handleTableListInput(msg)
	case stateJoinTable:
		return ih.handleJoinTableInput(msg)
	case stateSeatInput:
		return ih.handleSeatInput(msg)
	case stateTable:
		return ih.handleTableInput(msg)
	case stateBetInput:
		return ih.handleBetInput(msg)
	}
	return nil
}

func (ih *InputHandler) handleMainMenuInput(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "q":
		return tea.Quit
	case "up", "k":
		if ih.ui.selectedItem > 0 {
			ih.ui.selectedItem--
		}
	case "down", "j":
		if ih.ui.selectedItem < len(ih.ui.menuOptions)-1 {
			ih.ui.selectedItem++
		}
	case "enter", " ":
		switch ih.ui.menuOptions[ih.ui.selectedItem] {
		case optionListTables:
			return ih.ui.dispatcher.getTablesCmd()
		case optionCreateTable:
			return ih.ui.dispatcher.createTableCmd()
		case optionJoinTable:
			ih.ui.tableIDInput = ""
			ih.ui.state = stateJoinTable
		case optionQuit:
			return tea.Quit
		}
	}
	return nil
}

func (ih *InputHandler) handleTableListInput(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "q", "esc":
		ih.ui.state = stateMainMenu
	case "up", "k":
		if ih.ui.selectedTable > 0 {
			ih.ui.selectedTable--
		}
	case "down", "j":
		if ih.ui.selectedTable < len(ih.ui.tables)-1 {
			ih.ui.selectedTable++
		}
	case "r":
		return ih.ui.dispatcher.getTablesCmd()
	case "enter", " ":
		if len(ih.ui.tables) > 0 {
			ih.ui.startSeatInput(ih.ui.tables[ih.ui.selectedTable].ID)
		}
	}
	return nil
}

func (ih *InputHandler) handleJoinTableInput(msg tea.KeyMsg) tea.Cmd {
	switch msg.Type {
	case tea.KeyEsc:
		ih.ui.state = stateMainMenu
	case tea.KeyEnter:
		if id := strings.TrimSpace(ih.ui.tableIDInput); id != "" {
			ih.ui.startSeatInput(id)
		}
	case tea.KeyBackspace:
		ih.ui.tableIDInput = trimLast(ih.ui.tableIDInput)
	case tea.KeyRunes:
		ih.ui.tableIDInput += string(msg.Runes)
	}
	return nil
}

func (ih *InputHandler) handleSeatInput(msg tea.KeyMsg) tea.Cmd {
	switch msg.Type {
	case tea.KeyEsc:
		ih.ui.state = stateMainMenu
	case tea.KeyEnter:
		seat, err := strconv.Atoi(ih.ui.seatInput)
		if err != nil {
			ih.ui.err = fmt.Errorf("seat must be a number")
			return nil
		}
		name := ih.ui.opts.Name
		if name == "" {
			name = fmt.Sprintf("Seat %d", seat)
		}
		return ih.ui.dispatcher.joinTableCmd(ih.ui.tableID, api.JoinTableRequest{
			Seat:   seat,
			Name:   name,
			UserID: ih.ui.opts.UserID,
		})
	case tea.KeyBackspace:
		ih.ui.seatInput = trimLast(ih.ui.seatInput)
	case tea.KeyRunes:
		ih.ui.seatInput += digits(msg.Runes)
	}
	return nil
}

func (ih *InputHandler) handleTableInput(msg tea.KeyMsg) tea.Cmd {
	ui := ih.ui
	switch msg.String() {
	case "q", "esc":
		ui.leaveTable()
	case "h":
		return ui.dispatcher.actCmd(ui.tableID, ui.playerID, blackjack.Hit)
	case "s":
		return ui.dispatcher.actCmd(ui.tableID, ui.playerID, blackjack.Stand)
	case "d":
		return ui.dispatcher.actCmd(ui.tableID, ui.playerID, blackjack.Double)
	case "p":
		return ui.dispatcher.actCmd(ui.tableID, ui.playerID, blackjack.Split)
	case "n":
		return ui.dispatcher.dealCmd(ui.tableID)
	case "b":
		ui.betInput = ""
		ui.state = stateBetInput
	case "r":
		return ui.dispatcher.getTableCmd(ui.tableID)
	}
	return nil
}

func (ih *InputHandler) handleBetInput(msg tea.KeyMsg) tea.Cmd {
	ui := ih.ui
	switch msg.Type {
	case tea.KeyEsc:
		ui.state = stateTable
	case tea.KeyEnter:
		amount, err := strconv.ParseInt(ui.betInput, 10, 64)
		if err != nil {
			ui.err = fmt.Errorf("bet must be a number")
			return nil
		}
		ui.state = stateTable
		return ui.dispatcher.setBetCmd(ui.tableID, ui.playerID, amount)
	case tea.KeyBackspace:
		ui.betInput = trimLast(ui.betInput)
	case tea.KeyRunes:
		ui.betInput += digits(msg.Runes)
	}
	return nil
}

func trimLast(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	return string(r[:len(r)-1])
}

func digits(rs []rune) string {
	var sb strings.Builder
	for _, r := range rs {
		if r >= '0' && r <= '9' {
			sb.WriteRune(r)
		}
	}
	return sb.String()
}
