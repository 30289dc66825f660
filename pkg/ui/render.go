package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/vctt94/blackjacktables/pkg/blackjack"
)

// Renderer handles all rendering of UI screens and game elements
type Renderer struct {
	ui *Model
}

// RenderMainMenu renders the main menu screen
func (r *Renderer) RenderMainMenu() string {
	var s string
	s += TitleStyle.Render("Blackjack Tables") + "\n\n"
	for i, option := range r.ui.menuOptions {
		if i == r.ui.selectedItem {
			s += FocusedStyle.Render(fmt.Sprintf("▶ %s", option)) + "\n"
		} else {
			s += BlurredStyle.Render(fmt.Sprintf("  %s", option)) + "\n"
		}
	}
	s += HelpStyle.Render("↑/↓ to move, Enter to select, q to quit")
	return s
}

// RenderTableList renders the table list screen
func (r *Renderer) RenderTableList() string {
	var s string
	s += TitleStyle.Render("Tables") + "\n\n"

	if len(r.ui.tables) == 0 {
		s += BlurredStyle.Render("No tables available.") + "\n"
	}
	for i, table := range r.ui.tables {
		info := fmt.Sprintf("#%-3d %-8s round %-3d seats %d/%d  %s",
			table.Number, table.Status, table.Round, table.Players, table.Seats, table.ID)
		if i == r.ui.selectedTable {
			s += FocusedStyle.Render("▶ "+info) + "\n"
		} else {
			s += BlurredStyle.Render("  "+info) + "\n"
		}
	}

	s += HelpStyle.Render("Enter to pick a seat, r to refresh, q to go back")
	return s
}

// RenderJoinTable renders the table ID prompt
func (r *Renderer) RenderJoinTable() string {
	var s string
	s += TitleStyle.Render("Join Table") + "\n\n"
	s += FocusedStyle.Render(fmt.Sprintf("Table ID: %s_", r.ui.tableIDInput)) + "\n"
	s += HelpStyle.Render("Enter to continue, Esc to go back")
	return s
}

// RenderSeatInput renders the seat prompt
func (r *Renderer) RenderSeatInput() string {
	var s string
	s += TitleStyle.Render("Pick a Seat") + "\n\n"
	s += fmt.Sprintf("Table: %s\n", r.ui.tableID)
	s += FocusedStyle.Render(fmt.Sprintf("Seat: %s_", r.ui.seatInput)) + "\n"
	s += HelpStyle.Render("Enter to join, Esc to go back")
	return s
}

// RenderBetInput renders the bet prompt shown under the table
func (r *Renderer) RenderBetInput() string {
	return "\n" + FocusedStyle.Render(fmt.Sprintf("Bet for next round: %s_", r.ui.betInput)) +
		HelpStyle.Render("Enter to place, Esc to cancel")
}

// RenderTable renders the table view
func (r *Renderer) RenderTable() string {
	snap := r.ui.table
	if snap == nil {
		return TitleStyle.Render("Loading table...") + "\n"
	}

	var s string
	s += TitleStyle.Render(fmt.Sprintf("Table #%d  %s  round %d  deck %d",
		snap.Number, snap.Status, snap.Round, snap.DeckSize)) + "\n"

	s += r.renderDealer(snap) + "\n"

	seats := make([]string, 0, len(snap.Players))
	for _, p := range snap.Players {
		seats = append(seats, r.renderSeat(snap, p))
	}
	if len(seats) > 0 {
		s += lipgloss.JoinHorizontal(lipgloss.Top, seats...) + "\n"
	} else {
		s += BlurredStyle.Render("No one is seated.") + "\n"
	}

	if len(r.ui.events) > 0 {
		s += "\n" + InfoStyle.Render(strings.Join(r.ui.events, "\n")) + "\n"
	}

	s += r.renderActions(snap)
	return s
}

func (r *Renderer) renderDealer(snap *blackjack.TableSnapshot) string {
	title := "Dealer"
	if len(snap.DealerHand) > 0 {
		title = fmt.Sprintf("Dealer (%d)", snap.DealerScore)
	}
	return DealerStyle.Render(title + "\n" + renderCards(snap.DealerHand))
}

func (r *Renderer) renderSeat(snap *blackjack.TableSnapshot, p blackjack.PlayerSnapshot) string {
	name := p.Name
	if p.ID == r.ui.playerID {
		name += " (you)"
	}
	if p.Kind == blackjack.IdentityBot {
		name += " [bot]"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%s\nseat %d  $%d  bet %d\n", name, p.Seat, p.Money, p.CurrentBet)
	for i, h := range p.Hands {
		if len(h.Cards) == 0 {
			continue
		}
		if len(p.Hands) > 1 {
			fmt.Fprintf(&sb, "hand %d ", i+1)
		}
		fmt.Fprintf(&sb, "%s\n", handLine(h))
		sb.WriteString(renderCards(h.Cards) + "\n")
	}

	style := PlayerBoxStyle
	switch {
	case p.ID == snap.CurrentPlayerID:
		style = CurrentPlayerStyle
	case allBust(p.Hands):
		style = BustPlayerStyle
	case p.ID == r.ui.playerID:
		style = YourPlayerStyle
	}
	return style.Render(strings.TrimRight(sb.String(), "\n"))
}

func (r *Renderer) renderActions(snap *blackjack.TableSnapshot) string {
	if snap.Status == blackjack.TablePlaying {
		if snap.CurrentPlayerID != r.ui.playerID {
			return HelpStyle.Render("Waiting for other players... q to leave")
		}
		buttons := []string{
			ActionButtonStyle.Render("[h]it"),
			ActionButtonStyle.Render("[s]tand"),
			ActionButtonStyle.Render("[d]ouble"),
		}
		if me := snap.Player(r.ui.playerID); me != nil && canSplit(me.Hands) {
			buttons = append(buttons, ActionButtonStyle.Render("s[p]lit"))
		}
		return "\n" + lipgloss.JoinHorizontal(lipgloss.Top, buttons...) + "\n"
	}
	return HelpStyle.Render("b to set your bet, n to deal, r to refresh, q to leave")
}

func handLine(h blackjack.HandSnapshot) string {
	score := fmt.Sprintf("%d", h.Score)
	if h.Soft {
		score = "soft " + score
	}
	line := fmt.Sprintf("%s %s", score, h.Status)
	if h.Result != "" {
		line += fmt.Sprintf(" %s", strings.ToUpper(string(h.Result)))
		if h.Payout > 0 {
			line += fmt.Sprintf(" +%d", h.Payout)
		}
	}
	return line
}

func renderCards(cards []blackjack.Card) string {
	if len(cards) == 0 {
		return BlurredStyle.Render("--")
	}
	rendered := make([]string, len(cards))
	for i, c := range cards {
		style := CardStyle
		if c.Suit() == blackjack.Hearts || c.Suit() == blackjack.Diamonds {
			style = RedCardStyle
		}
		rendered[i] = style.Render(c.String())
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, rendered...)
}

func allBust(hands []blackjack.HandSnapshot) bool {
	if len(hands) == 0 {
		return false
	}
	for _, h := range hands {
		if h.Status != blackjack.HandBust {
			return false
		}
	}
	return true
}

func canSplit(hands []blackjack.HandSnapshot) bool {
	for _, h := range hands {
		if h.Status == blackjack.HandPlaying && h.CanSplit {
			return true
		}
	}
	return false
}
