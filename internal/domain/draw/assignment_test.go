package draw

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gravadigital/drawnames-api/internal/domain/common"
	"github.com/gravadigital/drawnames-api/internal/domain/exclusion"
)

func TestNewAssignment_Invariants(t *testing.T) {
	tests := []struct {
		name  string
		edges []Edge
	}{
		{"self", []Edge{{"A", "A"}}},
		{"gives twice", []Edge{{"A", "B"}, {"A", "C"}, {"B", "A"}}},
		{"receives twice", []Edge{{"A", "C"}, {"B", "C"}, {"C", "A"}}},
		{"not closed", []Edge{{"A", "B"}, {"B", "C"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewAssignment(tt.edges)
			assert.ErrorIs(t, err, common.ErrInvalidParticipant)
		})
	}
}

func TestAssignment_Accessors(t *testing.T) {
	a, err := NewAssignment([]Edge{{"A", "B"}, {"B", "C"}, {"C", "A"}})
	require.NoError(t, err)

	r, ok := a.Recipient("B")
	assert.True(t, ok)
	assert.Equal(t, "C", r)
	_, ok = a.Recipient("Z")
	assert.False(t, ok)

	edges := a.Edges()
	edges[0].Recipient = "Z"
	r, _ = a.Recipient("A")
	assert.Equal(t, "B", r, "Edges must return a copy")

	b, err := NewAssignment([]Edge{{"C", "A"}, {"A", "B"}, {"B", "C"}})
	require.NoError(t, err)
	assert.True(t, a.Equal(b))

	c, err := NewAssignment([]Edge{{"A", "C"}, {"C", "B"}, {"B", "A"}})
	require.NoError(t, err)
	assert.False(t, a.Equal(c))
}

func TestAssignment_ValidateAgainstExclusions(t *testing.T) {
	s := mustSet(t, []string{"A", "B", "C"}, exclusion.NewPair("A", "B"))

	a, err := NewAssignment([]Edge{{"A", "B"}, {"B", "C"}, {"C", "A"}})
	require.NoError(t, err)
	assert.ErrorIs(t, a.Validate(s), common.ErrInvalidParticipant)

	short, err := NewAssignment([]Edge{{"A", "C"}, {"C", "A"}})
	require.NoError(t, err)
	assert.ErrorIs(t, short.Validate(s), common.ErrInvalidParticipant)

	tickets := TicketsFor(a)
	require.Len(t, tickets, 3)
	rebuilt, err := AssignmentOf(tickets)
	require.NoError(t, err)
	assert.True(t, a.Equal(rebuilt))
}
