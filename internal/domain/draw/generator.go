package draw

import (
	crand "crypto/rand"
	"fmt"
	"math/rand/v2"

	"github.com/charmbracelet/log"

	"github.com/gravadigital/drawnames-api/internal/domain/common"
	"github.com/gravadigital/drawnames-api/internal/domain/exclusion"
	"github.com/gravadigital/drawnames-api/internal/logger"
)

// Method names how an assignment was produced.
type Method string

const (
	// MethodShuffle is rejection sampling over uniform permutations.
	MethodShuffle Method = "shuffle"
	// MethodMatching is a randomized perfect matching decorrelated by swaps.
	MethodMatching Method = "matching"
)

// Options tune the generator.
type Options struct {
	// AttemptsPerParticipant caps shuffle attempts at n*AttemptsPerParticipant.
	// Zero goes straight to the matching fallback.
	AttemptsPerParticipant int
	// SwapsPerParticipant is the number of swap proposals per participant
	// applied to the fallback matching.
	SwapsPerParticipant int
	// Rand returns the random source for one generation. Nil uses a ChaCha8
	// source seeded from crypto/rand.
	Rand func() *rand.Rand
}

// DefaultOptions returns the production tuning.
func DefaultOptions() Options {
	return Options{
		AttemptsPerParticipant: 64,
		SwapsPerParticipant:    50,
	}
}

// Result is one generated assignment.
type Result struct {
	Assignment *Assignment
	Method     Method
	Attempts   int
}

// Generator produces uniformly random valid assignments.
type Generator struct {
	opts Options
	log  *log.Logger
}

func NewGenerator(opts Options) *Generator {
	if opts.Rand == nil {
		opts.Rand = secureRand
	}
	return &Generator{
		opts: opts,
		log:  logger.Draw(),
	}
}

func secureRand() *rand.Rand {
	var seed [32]byte
	if _, err := crand.Read(seed[:]); err != nil {
		panic(fmt.Sprintf("draw: reading random seed: %v", err))
	}
	return rand.New(rand.NewChaCha8(seed))
}

// Generate checks feasibility and returns one valid assignment for set.
//
// Uniform permutations are drawn until one respects every exclusion, which
// samples exactly uniformly among valid assignments. Past the attempt cap a
// perfect matching is built on a shuffled graph and then walked by random
// valid swaps of two givers' recipients.
func (g *Generator) Generate(set *exclusion.Set) (*Result, error) {
	report, err := Check(set)
	if err != nil {
		return nil, err
	}
	if err := report.Err(); err != nil {
		return nil, err
	}

	rng := g.opts.Rand()
	ids := set.Participants()
	n := len(ids)

	maxAttempts := n * g.opts.AttemptsPerParticipant
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		perm := rng.Perm(n)
		if validPermutation(set, ids, perm) {
			a, err := fromPermutation(ids, perm)
			if err != nil {
				return nil, err
			}
			g.log.Debug("assignment generated", "method", MethodShuffle, "participants", n, "attempts", attempt)
			return &Result{Assignment: a, Method: MethodShuffle, Attempts: attempt}, nil
		}
	}

	g.log.Info("shuffle attempts exhausted, using matching", "participants", n, "attempts", maxAttempts)

	perm, err := g.construct(set, rng)
	if err != nil {
		return nil, err
	}
	a, err := fromPermutation(ids, perm)
	if err != nil {
		return nil, err
	}
	if err := a.Validate(set); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrGenerationExhausted, err)
	}
	return &Result{Assignment: a, Method: MethodMatching, Attempts: maxAttempts}, nil
}

// construct returns perm with perm[i] = recipient index of giver i.
func (g *Generator) construct(set *exclusion.Set, rng *rand.Rand) ([]int, error) {
	ids := set.Participants()
	n := len(ids)

	gr := newGraph(set).shuffled(rng)
	m := gr.maxMatching(rng.Perm(n))
	if m.size != n {
		return nil, fmt.Errorf("%w: matching covered %d of %d givers", common.ErrGenerationExhausted, m.size, n)
	}
	perm := m.toRecipient

	swaps := n * g.opts.SwapsPerParticipant
	accepted := 0
	for range swaps {
		i, j := rng.IntN(n), rng.IntN(n)
		if i == j {
			continue
		}
		// giver i takes j's recipient and vice versa; discard if either breaks
		if !set.Eligible(ids[i], ids[perm[j]]) || !set.Eligible(ids[j], ids[perm[i]]) {
			continue
		}
		perm[i], perm[j] = perm[j], perm[i]
		accepted++
	}
	g.log.Debug("matching decorrelated", "participants", n, "proposed", swaps, "accepted", accepted)
	return perm, nil
}

func validPermutation(set *exclusion.Set, ids []string, perm []int) bool {
	for i, j := range perm {
		if !set.Eligible(ids[i], ids[j]) {
			return false
		}
	}
	return true
}

func fromPermutation(ids []string, perm []int) (*Assignment, error) {
	edges := make([]Edge, len(ids))
	for i, j := range perm {
		edges[i] = Edge{Giver: ids[i], Recipient: ids[j]}
	}
	return NewAssignment(edges)
}
