package draw

import (
	"fmt"
	"slices"

	"github.com/gravadigital/drawnames-api/internal/domain/common"
	"github.com/gravadigital/drawnames-api/internal/domain/exclusion"
)

// Report is the outcome of a feasibility check.
type Report struct {
	Feasible bool     `json:"feasible"`
	Blocking []string `json:"blocking_participants,omitempty"`
}

// Err returns nil for a feasible report and an *InfeasibleError otherwise.
func (r Report) Err() error {
	if r.Feasible {
		return nil
	}
	return &InfeasibleError{Blocking: slices.Clone(r.Blocking)}
}

// Check decides whether a valid assignment exists for set, i.e. whether the
// eligibility graph has a perfect matching. It has no side effects.
//
// When it does not, Blocking names the givers to fix: every giver left with no
// candidate at all if there is one, otherwise a small group of givers that
// together have fewer candidates than members.
func Check(set *exclusion.Set) (Report, error) {
	if set.Len() < common.MinParticipants {
		return Report{}, fmt.Errorf("%w: need at least %d, have %d",
			common.ErrTooFewParticipants, common.MinParticipants, set.Len())
	}

	ids := set.Participants()
	g := newGraph(set)

	var stranded []string
	for i, edges := range g.adj {
		if len(edges) == 0 {
			stranded = append(stranded, ids[i])
		}
	}
	if len(stranded) > 0 {
		return Report{Feasible: false, Blocking: stranded}, nil
	}

	m := g.maxMatching(identity(g.n))
	if m.size == g.n {
		return Report{Feasible: true}, nil
	}

	unmatched := slices.Index(m.toRecipient, -1)
	violator := g.shrink(g.hallViolator(unmatched, m))
	slices.Sort(violator)

	blocking := make([]string, len(violator))
	for i, idx := range violator {
		blocking[i] = ids[idx]
	}
	return Report{Feasible: false, Blocking: blocking}, nil
}
