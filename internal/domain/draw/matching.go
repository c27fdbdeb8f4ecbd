package draw

import (
	"math/rand/v2"

	"github.com/gravadigital/drawnames-api/internal/domain/exclusion"
)

// graph is the bipartite giver -> recipient graph over roster indices. Both
// sides are the same roster; an edge exists iff the pair is eligible.
type graph struct {
	n   int
	adj [][]int
}

func newGraph(set *exclusion.Set) *graph {
	ids := set.Participants()
	g := &graph{n: len(ids), adj: make([][]int, len(ids))}
	for i, giver := range ids {
		for j, recipient := range ids {
			if set.Eligible(giver, recipient) {
				g.adj[i] = append(g.adj[i], j)
			}
		}
	}
	return g
}

// shuffled returns a copy with every adjacency list randomly permuted, so the
// augmenting path search does not favour roster order.
func (g *graph) shuffled(rng *rand.Rand) *graph {
	c := &graph{n: g.n, adj: make([][]int, g.n)}
	for i, edges := range g.adj {
		c.adj[i] = append([]int(nil), edges...)
		rng.Shuffle(len(c.adj[i]), func(a, b int) {
			c.adj[i][a], c.adj[i][b] = c.adj[i][b], c.adj[i][a]
		})
	}
	return c
}

// matching is a partial giver <-> recipient matching; -1 marks unmatched.
type matching struct {
	toRecipient []int
	toGiver     []int
	size        int
}

// maxMatching runs Kuhn's augmenting path algorithm, visiting givers in order.
func (g *graph) maxMatching(order []int) *matching {
	m := &matching{
		toRecipient: filled(g.n, -1),
		toGiver:     filled(g.n, -1),
	}
	seen := make([]bool, g.n)
	for _, u := range order {
		clear(seen)
		if g.augment(u, seen, m) {
			m.size++
		}
	}
	return m
}

func (g *graph) augment(u int, seen []bool, m *matching) bool {
	for _, v := range g.adj[u] {
		if seen[v] {
			continue
		}
		seen[v] = true
		if m.toGiver[v] == -1 || g.augment(m.toGiver[v], seen, m) {
			m.toRecipient[u] = v
			m.toGiver[v] = u
			return true
		}
	}
	return false
}

// hallViolator grows the set of givers reachable from the unmatched giver u by
// alternating paths. With a maximum matching, that set S has |N(S)| = |S|-1.
func (g *graph) hallViolator(u int, m *matching) []int {
	inSet := make([]bool, g.n)
	seenRecipient := make([]bool, g.n)
	inSet[u] = true
	queue := []int{u}
	for len(queue) > 0 {
		x := queue[0]
		queue = queue[1:]
		for _, v := range g.adj[x] {
			if seenRecipient[v] {
				continue
			}
			seenRecipient[v] = true
			if w := m.toGiver[v]; w != -1 && !inSet[w] {
				inSet[w] = true
				queue = append(queue, w)
			}
		}
	}
	var out []int
	for i, ok := range inSet {
		if ok {
			out = append(out, i)
		}
	}
	return out
}

// deficient reports whether the givers in set have fewer distinct eligible
// recipients than members.
func (g *graph) deficient(set []int) bool {
	neighbours := make(map[int]struct{})
	for _, u := range set {
		for _, v := range g.adj[u] {
			neighbours[v] = struct{}{}
		}
	}
	return len(neighbours) < len(set)
}

// shrink removes members from a deficient set while it stays deficient, until
// no single member can be dropped.
func (g *graph) shrink(set []int) []int {
	for changed := true; changed; {
		changed = false
		for i := 0; i < len(set) && len(set) > 1; i++ {
			candidate := make([]int, 0, len(set)-1)
			candidate = append(candidate, set[:i]...)
			candidate = append(candidate, set[i+1:]...)
			if g.deficient(candidate) {
				set = candidate
				changed = true
				i--
			}
		}
	}
	return set
}

func filled(n, v int) []int {
	s := make([]int, n)
	for i := range s {
		s[i] = v
	}
	return s
}

func identity(n int) []int {
	s := make([]int, n)
	for i := range s {
		s[i] = i
	}
	return s
}
