package blackjack

import (
	"fmt"
	"math/rand"
)

// Settlement records how one hand was paid out at the end of a round.
type Settlement struct {
	TableID     string
	Round       int
	PlayerID    string
	HandIndex   int
	Bet         int64
	Score       int
	DealerScore int
	Result      HandResult
	Payout      int64
}

// join seats p. Seat order must not change while a round is being played.
func (st *TableState) join(rules Rules, p *Player) error {
	if st.Status == TablePlaying {
		return ErrRoundInProgress
	}
	maxSeats := rules.MaxSeats
	if maxSeats <= 0 || maxSeats > MaxTableSeats {
		maxSeats = MaxTableSeats
	}
	if p.Seat < 0 || p.Seat >= maxSeats {
		return fmt.Errorf("%w: %d", ErrInvalidSeat, p.Seat)
	}
	for _, other := range st.Players {
		if other.Seat == p.Seat {
			return fmt.Errorf("%w: seat %d", ErrSeatOccupied, p.Seat)
		}
	}
	st.Players = append(st.Players, p)
	st.sortPlayers()
	return nil
}

// setBet stores the bet the player will stake on the next deal.
func (st *TableState) setBet(playerID string, amount int64) error {
	p := st.Player(playerID)
	if p == nil {
		return ErrPlayerNotFound
	}
	if st.Status == TablePlaying {
		return ErrRoundInProgress
	}
	if amount <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidBet, amount)
	}
	if amount > p.Money {
		return fmt.Errorf("%w: bet %d, money %d", ErrInsufficientFunds, amount, p.Money)
	}
	p.CurrentBet = amount
	return nil
}

// draw takes the top card.
func (st *TableState) draw() (Card, error) {
	drawn, err := st.drawCards(1)
	if err != nil {
		return Card{}, err
	}
	return drawn[0], nil
}

// drawCards takes n cards from the top. An empty deck is rebuilt from every
// card that is neither on the table nor already drawn, so a round in
// progress can always finish.
func (st *TableState) drawCards(n int) ([]Card, error) {
	drawn := make([]Card, 0, n)
	for len(drawn) < n {
		if st.Deck.Size() == 0 {
			st.Deck = newDeckWithout(append(st.cardsInPlay(), drawn...), st.Deck.rng)
		}
		c, err := st.Deck.Draw()
		if err != nil {
			return nil, err
		}
		drawn = append(drawn, c)
	}
	return drawn, nil
}

// cardsInPlay returns the dealer's cards and every card in a seat's hands.
func (st *TableState) cardsInPlay() []Card {
	held := make([]Card, 0, len(st.DealerHand)+2*len(st.Players))
	held = append(held, st.DealerHand...)
	for _, p := range st.Players {
		for _, h := range p.Hands {
			held = append(held, h.Cards...)
		}
	}
	return held
}

// deal starts a new round: stakes are debited, every seat that can cover its
// bet gets two cards, the dealer gets two cards and the turn goes to the
// first seat with a live hand.
func (st *TableState) deal(rules Rules, rng *rand.Rand) ([]Settlement, error) {
	if st.Status == TablePlaying {
		return nil, ErrRoundInProgress
	}
	if len(st.Players) == 0 {
		return nil, ErrNoPlayers
	}

	if st.Deck.Size() < rules.LowWaterMark {
		st.Deck = NewShuffledDeck(rng)
	}

	// Last round's cards leave the table before anything is drawn.
	st.DealerHand = []Card{}
	for _, p := range st.Players {
		p.Hands = []*Hand{newWaitingHand()}
	}

	for _, p := range st.Players {
		bet := p.CurrentBet
		if bet <= 0 {
			bet = rules.DefaultBet
		}
		if p.Money < bet {
			// Sits this round out.
			p.Hands = []*Hand{newWaitingHand()}
			continue
		}
		dealt, err := st.drawCards(2)
		if err != nil {
			return nil, err
		}
		p.Money -= bet
		p.Hands = []*Hand{newDealtHand(dealt[0], dealt[1], bet)}
	}

	st.DealerHand = make([]Card, 0, 2)
	for i := 0; i < 2; i++ {
		c, err := st.draw()
		if err != nil {
			return nil, err
		}
		st.DealerHand = append(st.DealerHand, c)
	}

	if err := tableTransitions.Transition(&st.Status, TablePlaying); err != nil {
		return nil, err
	}
	st.TurnIndex = 0
	st.Round++

	return st.seekTurn(rules)
}

// applyAction applies action to the acting player's active hand. When the
// player has no PLAYING hand left the turn advances as part of the same
// event. It returns whether the player's turn is over.
func (st *TableState) applyAction(rules Rules, playerID string, action Action) (bool, []Settlement, error) {
	idx := st.playerIndex(playerID)
	if idx < 0 {
		return false, nil, ErrPlayerNotFound
	}
	if st.Status != TablePlaying || st.TurnIndex != idx {
		return false, nil, ErrNotYourTurn
	}

	p := st.Players[idx]
	hi, h := p.ActiveHand()
	if h == nil {
		return true, nil, ErrNoActiveHand
	}

	switch action {
	case Hit:
		c, err := st.draw()
		if err != nil {
			return false, nil, err
		}
		if err := h.addCard(c); err != nil {
			return false, nil, err
		}

	case Stand:
		if err := h.setStatus(HandStand); err != nil {
			return false, nil, err
		}

	case Double:
		if p.Money < h.Bet {
			return false, nil, fmt.Errorf("%w: double needs %d, money %d", ErrInsufficientFunds, h.Bet, p.Money)
		}
		c, err := st.draw()
		if err != nil {
			return false, nil, err
		}
		p.Money -= h.Bet
		h.Bet *= 2
		if err := h.addCard(c); err != nil {
			return false, nil, err
		}
		// A doubled hand always ends after one card.
		if h.Status == HandPlaying {
			if err := h.setStatus(HandStand); err != nil {
				return false, nil, err
			}
		}

	case Split:
		if len(h.Cards) != 2 || !h.CanSplit || h.Cards[0].Points() != h.Cards[1].Points() {
			return false, nil, ErrCannotSplit
		}
		if p.Money < h.Bet {
			return false, nil, fmt.Errorf("%w: split needs %d, money %d", ErrInsufficientFunds, h.Bet, p.Money)
		}
		dealt, err := st.drawCards(2)
		if err != nil {
			return false, nil, err
		}
		p.Money -= h.Bet
		left := &Hand{Cards: []Card{h.Cards[0], dealt[0]}, Bet: h.Bet, Status: HandPlaying}
		right := &Hand{Cards: []Card{h.Cards[1], dealt[1]}, Bet: h.Bet, Status: HandPlaying}
		hands := make([]*Hand, 0, len(p.Hands)+1)
		hands = append(hands, p.Hands[:hi]...)
		hands = append(hands, left, right)
		hands = append(hands, p.Hands[hi+1:]...)
		p.Hands = hands

	default:
		return false, nil, fmt.Errorf("%w: %q", ErrInvalidAction, action)
	}

	if !p.TurnOver() {
		return false, nil, nil
	}
	settlements, err := st.advanceTurn(rules)
	return true, settlements, err
}

// advanceTurn passes the turn to the next seat.
func (st *TableState) advanceTurn(rules Rules) ([]Settlement, error) {
	st.TurnIndex++
	return st.seekTurn(rules)
}

// seekTurn moves TurnIndex forward past seats with no live hand. Once every
// seat is done the dealer plays and the round is settled.
func (st *TableState) seekTurn(rules Rules) ([]Settlement, error) {
	for st.TurnIndex < len(st.Players) && st.Players[st.TurnIndex].TurnOver() {
		st.TurnIndex++
	}
	if st.TurnIndex < len(st.Players) {
		return nil, nil
	}
	if err := st.playDealer(); err != nil {
		return nil, err
	}
	return st.settle()
}

// playDealer draws for the dealer until the hand reaches DealerStandsOn.
func (st *TableState) playDealer() error {
	for Score(st.DealerHand) < DealerStandsOn {
		c, err := st.draw()
		if err != nil {
			return err
		}
		st.DealerHand = append(st.DealerHand, c)
	}
	return nil
}

// settle pays every non-bust hand against the dealer and finishes the round.
// A win returns twice the bet, a push returns the bet, a loss returns nothing.
func (st *TableState) settle() ([]Settlement, error) {
	dealerScore := Score(st.DealerHand)
	dealerBust := dealerScore > BlackjackScore

	var settlements []Settlement
	for _, p := range st.Players {
		for i, h := range p.Hands {
			if h.Status == HandWaiting {
				continue
			}
			score := h.Score()
			switch {
			case h.Status == HandBust:
				h.Result, h.Payout = ResultLoss, 0
			case dealerBust || score > dealerScore:
				h.Result, h.Payout = ResultWin, 2*h.Bet
			case score == dealerScore:
				h.Result, h.Payout = ResultPush, h.Bet
			default:
				h.Result, h.Payout = ResultLoss, 0
			}
			p.Money += h.Payout
			settlements = append(settlements, Settlement{
				TableID:     st.ID,
				Round:       st.Round,
				PlayerID:    p.ID,
				HandIndex:   i,
				Bet:         h.Bet,
				Score:       score,
				DealerScore: dealerScore,
				Result:      h.Result,
				Payout:      h.Payout,
			})
		}
	}

	if err := tableTransitions.Transition(&st.Status, TableFinished); err != nil {
		return nil, err
	}
	return settlements, nil
}

// botAction returns the move the bot policy makes for the current seat, or
// errNothingToDo when it is not a bot's turn.
func (st *TableState) botAction() (*Player, Action, error) {
	p := st.CurrentPlayer()
	if p == nil || !p.IsBot() {
		return nil, "", errNothingToDo
	}
	_, h := p.ActiveHand()
	if h == nil {
		return nil, "", errNothingToDo
	}
	return p, BotPolicy(h), nil
}
