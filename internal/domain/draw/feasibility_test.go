package draw

import (
	"fmt"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gravadigital/drawnames-api/internal/domain/common"
	"github.com/gravadigital/drawnames-api/internal/domain/exclusion"
)

func mustSet(t *testing.T, ids []string, pairs ...exclusion.Pair) *exclusion.Set {
	t.Helper()
	s, err := exclusion.NewSetWithPairs(ids, pairs)
	require.NoError(t, err)
	return s
}

func TestCheck_PartnersExcluded(t *testing.T) {
	s := mustSet(t, []string{"A", "B", "C", "D"}, exclusion.NewPair("A", "B"))

	report, err := Check(s)
	require.NoError(t, err)
	assert.True(t, report.Feasible)
	assert.Empty(t, report.Blocking)
	assert.NoError(t, report.Err())
}

func TestCheck_StrandedParticipant(t *testing.T) {
	s := mustSet(t, []string{"A", "B", "C"},
		exclusion.NewPair("A", "B"),
		exclusion.NewPair("A", "C"),
	)

	report, err := Check(s)
	require.NoError(t, err)
	assert.False(t, report.Feasible)
	assert.Equal(t, []string{"A"}, report.Blocking)

	err = report.Err()
	assert.ErrorIs(t, err, common.ErrInfeasible)
	var infeasible *InfeasibleError
	require.ErrorAs(t, err, &infeasible)
	assert.Equal(t, []string{"A"}, infeasible.Blocking)
}

func TestCheck_HallViolation(t *testing.T) {
	// A and B can only draw C.
	s := mustSet(t, []string{"A", "B", "C"}, exclusion.NewPair("A", "B"))

	report, err := Check(s)
	require.NoError(t, err)
	assert.False(t, report.Feasible)
	assert.Equal(t, []string{"A", "B"}, report.Blocking)
}

func TestCheck_HallViolationInsideLargerGroup(t *testing.T) {
	// A, B, C and D exclude each other, leaving four givers two recipients;
	// any three of them already form a deficient group.
	ids := []string{"A", "B", "C", "D", "E", "F"}
	s := mustSet(t, ids,
		exclusion.NewPair("A", "B"),
		exclusion.NewPair("A", "C"),
		exclusion.NewPair("B", "C"),
		exclusion.NewPair("A", "D"),
		exclusion.NewPair("B", "D"),
		exclusion.NewPair("C", "D"),
	)

	report, err := Check(s)
	require.NoError(t, err)
	assert.False(t, report.Feasible)
	assert.Equal(t, []string{"A", "B", "C"}, report.Blocking)
}

func TestCheck_TooFewParticipants(t *testing.T) {
	s := mustSet(t, []string{"A", "B"})

	_, err := Check(s)
	assert.ErrorIs(t, err, common.ErrTooFewParticipants)
}

func TestCheck_MatchesExhaustiveSearch(t *testing.T) {
	rng := rand.New(rand.NewPCG(42, 99))

	for trial := range 400 {
		n := 3 + rng.IntN(6)
		s := randomSet(t, rng, n, 0.1+rng.Float64()*0.5)

		t.Run(fmt.Sprintf("trial_%d_n%d", trial, n), func(t *testing.T) {
			report, err := Check(s)
			require.NoError(t, err)

			assert.Equal(t, existsAssignment(s), report.Feasible)
			if report.Feasible {
				assert.Empty(t, report.Blocking)
				return
			}

			// blocking givers really are over-constrained as a group
			require.NotEmpty(t, report.Blocking)
			reachable := make(map[string]struct{})
			for _, giver := range report.Blocking {
				for _, r := range s.Candidates(giver) {
					reachable[r] = struct{}{}
				}
			}
			assert.Less(t, len(reachable), len(report.Blocking))
		})
	}
}

func randomSet(t *testing.T, rng *rand.Rand, n int, density float64) *exclusion.Set {
	t.Helper()
	ids := make([]string, n)
	for i := range ids {
		ids[i] = fmt.Sprintf("p%d", i)
	}
	s, err := exclusion.NewSet(ids)
	require.NoError(t, err)
	for i := range ids {
		for j := i + 1; j < n; j++ {
			if rng.Float64() < density {
				require.NoError(t, s.Add(ids[i], ids[j]))
			}
		}
	}
	return s
}

// existsAssignment searches every permutation of the roster.
func existsAssignment(s *exclusion.Set) bool {
	ids := s.Participants()
	used := make([]bool, len(ids))
	var search func(i int) bool
	search = func(i int) bool {
		if i == len(ids) {
			return true
		}
		for j := range ids {
			if used[j] || !s.Eligible(ids[i], ids[j]) {
				continue
			}
			used[j] = true
			if search(i + 1) {
				return true
			}
			used[j] = false
		}
		return false
	}
	return search(0)
}
