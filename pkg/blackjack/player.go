package blackjack

// IdentityKind says who controls a seat.
type IdentityKind string

const (
	IdentityUser  IdentityKind = "user"
	IdentityBot   IdentityKind = "bot"
	IdentityGuest IdentityKind = "guest"
)

// Identity is the optional caller identity attached to a seat. UserID is only
// set for authenticated users.
type Identity struct {
	Kind   IdentityKind
	UserID string
}

// Player represents a seat at a table: money, the bet for the next round and
// one hand, or two after a split.
type Player struct {
	ID       string
	TableID  string
	Seat     int
	Name     string
	Avatar   string
	Identity Identity

	Money      int64
	CurrentBet int64
	Hands      []*Hand
}

// NewPlayer creates a new player with one empty WAITING hand.
func NewPlayer(id, tableID string, seat int, name, avatar string, identity Identity, money int64) *Player {
	return &Player{
		ID:       id,
		TableID:  tableID,
		Seat:     seat,
		Name:     name,
		Avatar:   avatar,
		Identity: identity,
		Money:    money,
		Hands:    []*Hand{newWaitingHand()},
	}
}

// IsBot returns true if the seat is played by the bot policy.
func (p *Player) IsBot() bool {
	return p.Identity.Kind == IdentityBot
}

// ActiveHand returns the first PLAYING hand in seat order, or (-1, nil).
func (p *Player) ActiveHand() (int, *Hand) {
	for i, h := range p.Hands {
		if h.Status == HandPlaying {
			return i, h
		}
	}
	return -1, nil
}

// TurnOver reports whether the player has no PLAYING hand left.
func (p *Player) TurnOver() bool {
	_, h := p.ActiveHand()
	return h == nil
}

func (p *Player) clone() *Player {
	c := *p
	c.Hands = make([]*Hand, len(p.Hands))
	for i, h := range p.Hands {
		c.Hands[i] = h.clone()
	}
	return &c
}
