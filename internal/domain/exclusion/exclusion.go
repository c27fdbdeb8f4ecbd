package exclusion

import (
	"fmt"
	"slices"

	"github.com/gravadigital/drawnames-api/internal/domain/common"
)

// Pair is one undirected exclusion. Persisted pairs are canonical: A < B.
type Pair struct {
	A string `json:"a" yaml:"a"`
	B string `json:"b" yaml:"b"`
}

// NewPair returns the canonical form of the pair {a, b}.
func NewPair(a, b string) Pair {
	if b < a {
		a, b = b, a
	}
	return Pair{A: a, B: b}
}

// Set holds the roster of a draw and the "must not draw" relation between its
// members. The relation is always stored with its symmetric closure, so
// Excludes(a, b) == Excludes(b, a).
type Set struct {
	participants []string
	index        map[string]int
	excluded     map[string]map[string]struct{}
}

// NewSet builds an empty exclusion set over the given roster. Roster order is
// kept and used wherever the engine needs a deterministic order.
func NewSet(participants []string) (*Set, error) {
	s := &Set{
		participants: make([]string, 0, len(participants)),
		index:        make(map[string]int, len(participants)),
		excluded:     make(map[string]map[string]struct{}, len(participants)),
	}
	for _, id := range participants {
		if id == "" {
			return nil, fmt.Errorf("%w: empty participant id", common.ErrInvalidParticipant)
		}
		if _, dup := s.index[id]; dup {
			return nil, fmt.Errorf("%w: duplicate participant %q", common.ErrInvalidParticipant, id)
		}
		s.index[id] = len(s.participants)
		s.participants = append(s.participants, id)
	}
	return s, nil
}

// NewSetWithPairs builds a set and applies every pair with Add.
func NewSetWithPairs(participants []string, pairs []Pair) (*Set, error) {
	s, err := NewSet(participants)
	if err != nil {
		return nil, err
	}
	for _, p := range pairs {
		if err := s.Add(p.A, p.B); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Add records that a and b must not draw each other. Adding an existing pair
// or a self pair is a no-op.
func (s *Set) Add(a, b string) error {
	if err := s.check(a, b); err != nil {
		return err
	}
	if a == b {
		return nil
	}
	s.link(a, b)
	s.link(b, a)
	return nil
}

// Remove deletes the exclusion between a and b in both directions.
func (s *Set) Remove(a, b string) error {
	if err := s.check(a, b); err != nil {
		return err
	}
	delete(s.excluded[a], b)
	delete(s.excluded[b], a)
	return nil
}

func (s *Set) check(a, b string) error {
	for _, id := range []string{a, b} {
		if !s.Has(id) {
			return fmt.Errorf("%w: %q is not in the roster", common.ErrInvalidParticipant, id)
		}
	}
	return nil
}

func (s *Set) link(from, to string) {
	m, ok := s.excluded[from]
	if !ok {
		m = make(map[string]struct{})
		s.excluded[from] = m
	}
	m[to] = struct{}{}
}

// Has reports whether id is in the roster.
func (s *Set) Has(id string) bool {
	_, ok := s.index[id]
	return ok
}

// Len returns the roster size.
func (s *Set) Len() int {
	return len(s.participants)
}

// Participants returns a copy of the roster in insertion order.
func (s *Set) Participants() []string {
	return slices.Clone(s.participants)
}

// Index returns the roster position of id, or -1.
func (s *Set) Index(id string) int {
	if i, ok := s.index[id]; ok {
		return i
	}
	return -1
}

// Excludes reports whether a and b are listed as an exclusion.
func (s *Set) Excludes(a, b string) bool {
	_, ok := s.excluded[a][b]
	return ok
}

// Eligible reports whether giver may draw recipient: both are on the roster,
// they are different people and no exclusion links them.
func (s *Set) Eligible(giver, recipient string) bool {
	return giver != recipient && s.Has(giver) && s.Has(recipient) && !s.Excludes(giver, recipient)
}

// Exclusions returns the IDs excluded for id, in roster order.
func (s *Set) Exclusions(id string) []string {
	out := make([]string, 0, len(s.excluded[id]))
	for _, other := range s.participants {
		if s.Excludes(id, other) {
			out = append(out, other)
		}
	}
	return out
}

// Candidates returns the recipients id may draw, in roster order.
func (s *Set) Candidates(id string) []string {
	out := make([]string, 0, len(s.participants))
	for _, other := range s.participants {
		if s.Eligible(id, other) {
			out = append(out, other)
		}
	}
	return out
}

// RemainingCandidates returns |participants| - 1 - |exclusions(id)|. It is an
// early warning for organizers, not a feasibility verdict.
func (s *Set) RemainingCandidates(id string) (int, error) {
	if !s.Has(id) {
		return 0, fmt.Errorf("%w: %q is not in the roster", common.ErrInvalidParticipant, id)
	}
	return len(s.participants) - 1 - len(s.excluded[id]), nil
}

// Pairs returns every exclusion once, canonical and ordered by roster position.
func (s *Set) Pairs() []Pair {
	var out []Pair
	for i, a := range s.participants {
		for _, b := range s.participants[i+1:] {
			if s.Excludes(a, b) {
				out = append(out, NewPair(a, b))
			}
		}
	}
	return out
}

// Clone returns an independent copy.
func (s *Set) Clone() *Set {
	c, _ := NewSetWithPairs(s.participants, s.Pairs())
	return c
}
