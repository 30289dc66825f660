package bot

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/coder/quartz"
	"github.com/vctt94/blackjacktables/pkg/blackjack"
)

// turnSeen is what the watchdog remembers about a table's current turn.
type turnSeen struct {
	playerID string
	round    int
	progress string
	since    time.Time
}

// Watchdog notices human seats that hold the turn without acting.
type Watchdog struct {
	clock   quartz.Clock
	timeout time.Duration

	mu   sync.Mutex
	seen map[string]turnSeen // tableID -> current turn
}

// NewWatchdog creates a watchdog that expires a turn after timeout.
func NewWatchdog(clock quartz.Clock, timeout time.Duration) *Watchdog {
	return &Watchdog{
		clock:   clock,
		timeout: timeout,
		seen:    make(map[string]turnSeen),
	}
}

// progress fingerprints a seat's hands so any action restarts the timer.
func progress(p *blackjack.PlayerSnapshot) string {
	var sb strings.Builder
	for _, h := range p.Hands {
		fmt.Fprintf(&sb, "%d:%s;", len(h.Cards), h.Status)
	}
	return sb.String()
}

// Check records the table's current turn and returns the ID of a human
// player whose turn has expired, or "".
func (w *Watchdog) Check(snap *blackjack.TableSnapshot) string {
	w.mu.Lock()
	defer w.mu.Unlock()

	cur := snap.Player(snap.CurrentPlayerID)
	if snap.Status != blackjack.TablePlaying || cur == nil || cur.Kind == blackjack.IdentityBot {
		delete(w.seen, snap.ID)
		return ""
	}

	now := w.clock.Now()
	turn := turnSeen{playerID: cur.ID, round: snap.Round, progress: progress(cur)}
	prev, ok := w.seen[snap.ID]
	if !ok || prev.playerID != turn.playerID || prev.round != turn.round || prev.progress != turn.progress {
		turn.since = now
		w.seen[snap.ID] = turn
		return ""
	}

	if now.Sub(prev.since) < w.timeout {
		return ""
	}
	delete(w.seen, snap.ID)
	return cur.ID
}

// Forget drops everything known about tables not in live.
func (w *Watchdog) Forget(live []string) {
	keep := make(map[string]bool, len(live))
	for _, id := range live {
		keep[id] = true
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	for id := range w.seen {
		if !keep[id] {
			delete(w.seen, id)
		}
	}
}
