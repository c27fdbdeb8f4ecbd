package draw

import (
	"fmt"
	"sync"
	"time"

	"github.com/gravadigital/drawnames-api/internal/domain/common"
)

// DrawState is the per-participant reveal state.
type DrawState byte

const (
	NotRevealed DrawState = iota
	Revealed
)

func (s DrawState) String() string {
	switch s {
	case NotRevealed:
		return "not_revealed"
	case Revealed:
		return "revealed"
	default:
		return "unknown"
	}
}

// MarshalJSON implements the json.Marshaler interface
func (s DrawState) MarshalJSON() ([]byte, error) {
	return []byte(`"` + s.String() + `"`), nil
}

// Ticket is one participant's view of the assignment.
type Ticket struct {
	Giver      string     `json:"giver"`
	Recipient  string     `json:"recipient"`
	State      DrawState  `json:"state"`
	RevealedAt *time.Time `json:"revealed_at,omitempty"`
}

// Reveal moves the ticket to Revealed. It reports whether this call made the
// transition; later calls leave the ticket untouched.
func (t *Ticket) Reveal(at time.Time) bool {
	if t.State == Revealed {
		return false
	}
	t.State = Revealed
	t.RevealedAt = &at
	return true
}

// TicketsFor returns one NotRevealed ticket per giver of a.
func TicketsFor(a *Assignment) []Ticket {
	tickets := make([]Ticket, 0, a.Len())
	for _, e := range a.Edges() {
		tickets = append(tickets, Ticket{Giver: e.Giver, Recipient: e.Recipient, State: NotRevealed})
	}
	return tickets
}

// AssignmentOf rebuilds the assignment carried by tickets.
func AssignmentOf(tickets []Ticket) (*Assignment, error) {
	edges := make([]Edge, len(tickets))
	for i, t := range tickets {
		edges[i] = Edge{Giver: t.Giver, Recipient: t.Recipient}
	}
	return NewAssignment(edges)
}

// Gate serves reveals for one committed assignment. Its key set is fixed at
// construction and each ticket has its own lock, so reveals by different
// participants never contend.
type Gate struct {
	order   []string
	entries map[string]*gateEntry
}

type gateEntry struct {
	mu     sync.Mutex
	ticket Ticket
}

// NewGate validates tickets as an assignment and wraps them.
func NewGate(tickets []Ticket) (*Gate, error) {
	if _, err := AssignmentOf(tickets); err != nil {
		return nil, err
	}
	g := &Gate{
		order:   make([]string, 0, len(tickets)),
		entries: make(map[string]*gateEntry, len(tickets)),
	}
	for _, t := range tickets {
		g.order = append(g.order, t.Giver)
		g.entries[t.Giver] = &gateEntry{ticket: t}
	}
	return g, nil
}

// Reveal returns giver's ticket, marking it revealed on the first call. A nil
// gate or an unknown giver yields ErrNotReady.
func (g *Gate) Reveal(giver string, at time.Time) (Ticket, bool, error) {
	e, err := g.entry(giver)
	if err != nil {
		return Ticket{}, false, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	first := e.ticket.Reveal(at)
	return e.ticket, first, nil
}

// Ticket returns giver's ticket without changing it.
func (g *Gate) Ticket(giver string) (Ticket, error) {
	e, err := g.entry(giver)
	if err != nil {
		return Ticket{}, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ticket, nil
}

// Tickets returns a snapshot of every ticket in roster order.
func (g *Gate) Tickets() []Ticket {
	if g == nil {
		return nil
	}
	out := make([]Ticket, 0, len(g.order))
	for _, giver := range g.order {
		t, _ := g.Ticket(giver)
		out = append(out, t)
	}
	return out
}

// Progress returns how many participants have revealed so far.
func (g *Gate) Progress() (revealed, total int) {
	tickets := g.Tickets()
	for _, t := range tickets {
		if t.State == Revealed {
			revealed++
		}
	}
	return revealed, len(tickets)
}

func (g *Gate) entry(giver string) (*gateEntry, error) {
	if g == nil {
		return nil, fmt.Errorf("%w: no assignment yet", common.ErrNotReady)
	}
	e, ok := g.entries[giver]
	if !ok {
		return nil, fmt.Errorf("%w: %q has no ticket", common.ErrNotReady, giver)
	}
	return e, nil
}
