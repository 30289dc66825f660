package blackjack

// HandSnapshot is a read-only view of a hand for rendering.
type HandSnapshot struct {
	Cards    []Card     `json:"cards"`
	Bet      int64      `json:"bet"`
	Status   HandStatus `json:"status"`
	CanSplit bool       `json:"can_split"`
	Score    int        `json:"score"`
	Soft     bool       `json:"soft"`
	Result   HandResult `json:"result,omitempty"`
	Payout   int64      `json:"payout,omitempty"`
}

// PlayerSnapshot is a read-only view of a seat.
type PlayerSnapshot struct {
	ID         string         `json:"id"`
	TableID    string         `json:"table_id"`
	Seat       int            `json:"seat"`
	Name       string         `json:"name"`
	Avatar     string         `json:"avatar,omitempty"`
	Kind       IdentityKind   `json:"kind"`
	UserID     string         `json:"user_id,omitempty"`
	Money      int64          `json:"money"`
	CurrentBet int64          `json:"current_bet"`
	Hands      []HandSnapshot `json:"hands"`
	IsTurn     bool           `json:"is_turn"`
}

// TableSnapshot is a full read-only view of a table and its seats.
type TableSnapshot struct {
	ID              string           `json:"id"`
	Number          int              `json:"number"`
	Status          TableStatus      `json:"status"`
	TurnIndex       int              `json:"turn_index"`
	CurrentPlayerID string           `json:"current_player_id,omitempty"`
	Round           int              `json:"round"`
	DeckSize        int              `json:"deck_size"`
	DealerHand      []Card           `json:"dealer_hand"`
	DealerScore     int              `json:"dealer_score"`
	Players         []PlayerSnapshot `json:"players"`
}

// ActionResult is returned to the acting player.
type ActionResult struct {
	Hands    []HandSnapshot `json:"hands"`
	TurnOver bool           `json:"turn_over"`
}

func snapshotHand(h *Hand) HandSnapshot {
	cards := make([]Card, len(h.Cards))
	copy(cards, h.Cards)
	return HandSnapshot{
		Cards:    cards,
		Bet:      h.Bet,
		Status:   h.Status,
		CanSplit: h.CanSplit,
		Score:    Score(h.Cards),
		Soft:     IsSoft(h.Cards),
		Result:   h.Result,
		Payout:   h.Payout,
	}
}

func snapshotHands(hands []*Hand) []HandSnapshot {
	out := make([]HandSnapshot, len(hands))
	for i, h := range hands {
		out[i] = snapshotHand(h)
	}
	return out
}

func (st *TableState) snapshotPlayer(p *Player) PlayerSnapshot {
	cur := st.CurrentPlayer()
	return PlayerSnapshot{
		ID:         p.ID,
		TableID:    p.TableID,
		Seat:       p.Seat,
		Name:       p.Name,
		Avatar:     p.Avatar,
		Kind:       p.Identity.Kind,
		UserID:     p.Identity.UserID,
		Money:      p.Money,
		CurrentBet: p.CurrentBet,
		Hands:      snapshotHands(p.Hands),
		IsTurn:     cur != nil && cur.ID == p.ID,
	}
}

// Snapshot returns a deep, read-only view of the state.
func (st *TableState) Snapshot() *TableSnapshot {
	dealer := make([]Card, len(st.DealerHand))
	copy(dealer, st.DealerHand)

	snap := &TableSnapshot{
		ID:          st.ID,
		Number:      st.Number,
		Status:      st.Status,
		TurnIndex:   st.TurnIndex,
		Round:       st.Round,
		DeckSize:    st.Deck.Size(),
		DealerHand:  dealer,
		DealerScore: Score(dealer),
		Players:     make([]PlayerSnapshot, 0, len(st.Players)),
	}
	if cur := st.CurrentPlayer(); cur != nil {
		snap.CurrentPlayerID = cur.ID
	}
	for _, p := range st.Players {
		snap.Players = append(snap.Players, st.snapshotPlayer(p))
	}
	return snap
}

// Player returns the snapshot of the given seat, or nil.
func (s *TableSnapshot) Player(playerID string) *PlayerSnapshot {
	for i := range s.Players {
		if s.Players[i].ID == playerID {
			return &s.Players[i]
		}
	}
	return nil
}
