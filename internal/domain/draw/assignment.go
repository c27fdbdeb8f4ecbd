package draw

import (
	"fmt"

	"github.com/gravadigital/drawnames-api/internal/domain/common"
	"github.com/gravadigital/drawnames-api/internal/domain/exclusion"
)

// Edge is one giver -> recipient link of an assignment.
type Edge struct {
	Giver     string `json:"giver"`
	Recipient string `json:"recipient"`
}

// Assignment is an immutable bijection giver -> recipient without fixed points.
type Assignment struct {
	edges       []Edge
	recipientOf map[string]string
}

// NewAssignment validates that edges form a total bijection over their givers
// with no one drawing themselves.
func NewAssignment(edges []Edge) (*Assignment, error) {
	a := &Assignment{
		edges:       make([]Edge, 0, len(edges)),
		recipientOf: make(map[string]string, len(edges)),
	}
	received := make(map[string]struct{}, len(edges))
	for _, e := range edges {
		if e.Giver == e.Recipient {
			return nil, fmt.Errorf("%w: %q draws themselves", common.ErrInvalidParticipant, e.Giver)
		}
		if _, dup := a.recipientOf[e.Giver]; dup {
			return nil, fmt.Errorf("%w: %q gives twice", common.ErrInvalidParticipant, e.Giver)
		}
		if _, dup := received[e.Recipient]; dup {
			return nil, fmt.Errorf("%w: %q receives twice", common.ErrInvalidParticipant, e.Recipient)
		}
		a.recipientOf[e.Giver] = e.Recipient
		received[e.Recipient] = struct{}{}
		a.edges = append(a.edges, e)
	}
	for r := range received {
		if _, ok := a.recipientOf[r]; !ok {
			return nil, fmt.Errorf("%w: %q receives but does not give", common.ErrInvalidParticipant, r)
		}
	}
	return a, nil
}

// Recipient returns who giver draws.
func (a *Assignment) Recipient(giver string) (string, bool) {
	r, ok := a.recipientOf[giver]
	return r, ok
}

// Edges returns a copy of the edges in giver roster order.
func (a *Assignment) Edges() []Edge {
	return append([]Edge(nil), a.edges...)
}

func (a *Assignment) Len() int {
	return len(a.edges)
}

// Equal reports whether both assignments map every giver the same way.
func (a *Assignment) Equal(b *Assignment) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.Len() != b.Len() {
		return false
	}
	for giver, r := range a.recipientOf {
		if other, ok := b.recipientOf[giver]; !ok || other != r {
			return false
		}
	}
	return true
}

// Validate checks that a covers exactly the roster of set and honours every
// exclusion.
func (a *Assignment) Validate(set *exclusion.Set) error {
	if a.Len() != set.Len() {
		return fmt.Errorf("%w: assignment covers %d of %d participants",
			common.ErrInvalidParticipant, a.Len(), set.Len())
	}
	for _, e := range a.edges {
		if !set.Eligible(e.Giver, e.Recipient) {
			return fmt.Errorf("%w: %q may not draw %q", common.ErrInvalidParticipant, e.Giver, e.Recipient)
		}
	}
	return nil
}
