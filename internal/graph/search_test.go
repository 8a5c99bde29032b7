package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cxd309/race-engine/internal/geom"
)

func assertForward(t *testing.T, route []Node) {
	t.Helper()
	covered := 0.0
	for i := 1; i < len(route); i++ {
		step := geom.ForwardDelta(route[i-1].Progress, route[i].Progress)
		assert.Greater(t, step, 0.0, "step %d must move forward", i)
		assert.LessOrEqual(t, abs(route[i].Lane-route[i-1].Lane), 1, "step %d changes at most one lane", i)
		covered += step
	}
	assert.Less(t, covered, 1.0)
}

func TestSearchReturnsTruncatedPath(t *testing.T) {
	g := newTestGrid(t)
	start := g.LaneNodes(3)[5]

	route := g.Search(start, SearchOptions{Speed: 2})
	require.Len(t, route, DefaultPathLength)
	assert.Equal(t, start.ID, route[0].ID)
	assertForward(t, route)
	// Without obstacles, staying in lane is cheapest.
	for _, n := range route {
		assert.Equal(t, 3, n.Lane)
	}
}

func TestSearchAvoidsObstacles(t *testing.T) {
	g := newTestGrid(t)
	lane := g.LaneNodes(4)
	start := lane[20]
	obstacle := lane[23].Loc
	opts := SearchOptions{Speed: 2.5, Obstacles: []geom.Vector2D{obstacle}}

	route := g.Search(start, opts)
	require.NotEmpty(t, route)
	assertForward(t, route)
	for _, n := range route[1:] {
		assert.GreaterOrEqual(t, n.Loc.Distance(obstacle), opts.Speed, "node %d too close to obstacle", n.ID)
	}
}

func TestSearchBudgetExhaustedReturnsPartialPath(t *testing.T) {
	g := newTestGrid(t)
	start := g.LaneNodes(0)[0]

	// A budget below the early-return threshold still yields a best-effort path.
	route := g.Search(start, SearchOptions{Speed: 1, MaxExpansions: 3})
	require.NotEmpty(t, route)
	assert.Equal(t, start.ID, route[0].ID)
	assert.Less(t, len(route), DefaultPathLength)
	assertForward(t, route)
}

func TestSearchNoReachablePath(t *testing.T) {
	g := newTestGrid(t)
	start := g.LaneNodes(5)[40]
	var walls []geom.Vector2D
	for _, nb := range g.Neighbors(start) {
		walls = append(walls, nb.Loc)
	}
	route := g.Search(start, SearchOptions{Speed: 1, Obstacles: walls})
	assert.Nil(t, route)
}

func TestExtendLaneChain(t *testing.T) {
	g := newTestGrid(t)
	start := g.LaneNodes(2)[0]

	route := g.ExtendLaneChain(start, 0, func(_ Node, step int) int {
		if step < 3 {
			return 2 + step + 1
		}
		return 5
	})
	require.Len(t, route, DefaultChainHorizon+1)
	assertForward(t, route)
	assert.Equal(t, []int{2, 3, 4, 5, 5}, []int{route[0].Lane, route[1].Lane, route[2].Lane, route[3].Lane, route[4].Lane})

	// Requests outside the grid are clamped.
	route = g.ExtendLaneChain(start, 4, func(Node, int) int { return 99 })
	require.Len(t, route, 5)
	assert.Equal(t, g.LaneCount()-1, route[4].Lane)
}
