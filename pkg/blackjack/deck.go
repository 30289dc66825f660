package blackjack

import (
	"math/rand"
	"time"
)

const (
	// DeckSize is the number of cards in a standard deck.
	DeckSize = 52

	// LowWaterMark is the remaining card count below which a deal reshuffles.
	LowWaterMark = 20

	// MaxTableSeats is the most seats a table may have so that every seat
	// and the dealer can be dealt two cards from one deck.
	MaxTableSeats = (DeckSize - 2) / 2
)

// Deck is an ordered pile of cards consumed from the top. A deck is owned by
// exactly one table and is only touched under that table's lock.
type Deck struct {
	cards []Card
	rng   *rand.Rand
}

// NewShuffledDeck builds the full 52-card set and shuffles it with rng.
func NewShuffledDeck(rng *rand.Rand) *Deck {
	deck := &Deck{
		cards: make([]Card, 0, DeckSize),
		rng:   rng,
	}

	for _, suit := range suits {
		for _, rank := range ranks {
			deck.cards = append(deck.cards, Card{suit: suit, rank: rank})
		}
	}

	deck.Shuffle()

	return deck
}

// newDeckWithout builds a shuffled deck of every card not in inPlay.
func newDeckWithout(inPlay []Card, rng *rand.Rand) *Deck {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	held := make(map[Card]bool, len(inPlay))
	for _, card := range inPlay {
		held[card] = true
	}

	deck := &Deck{
		cards: make([]Card, 0, DeckSize-len(held)),
		rng:   rng,
	}
	for _, suit := range suits {
		for _, rank := range ranks {
			card := Card{suit: suit, rank: rank}
			if !held[card] {
				deck.cards = append(deck.cards, card)
			}
		}
	}
	deck.Shuffle()
	return deck
}

// NewDeckFromCards creates a deck from a specific set of cards (for restoration)
func NewDeckFromCards(cards []Card, rng *rand.Rand) *Deck {
	deck := &Deck{
		cards: make([]Card, len(cards)),
		rng:   rng,
	}
	copy(deck.cards, cards)
	return deck
}

// Shuffle randomizes the order of cards in the deck
func (d *Deck) Shuffle() {
	d.rng.Shuffle(len(d.cards), func(i, j int) {
		d.cards[i], d.cards[j] = d.cards[j], d.cards[i]
	})
}

// Draw removes and returns the top card from the deck
func (d *Deck) Draw() (Card, error) {
	if len(d.cards) == 0 {
		return Card{}, ErrDeckExhausted
	}
	card := d.cards[0]
	d.cards = d.cards[1:]
	return card, nil
}

// Size returns the number of cards remaining in the deck
func (d *Deck) Size() int {
	return len(d.cards)
}

// Cards returns a copy of the remaining cards, top first (for persistence)
func (d *Deck) Cards() []Card {
	cards := make([]Card, len(d.cards))
	copy(cards, d.cards)
	return cards
}

func (d *Deck) clone() *Deck {
	return NewDeckFromCards(d.cards, d.rng)
}
