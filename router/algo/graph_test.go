package algo_test

import (
	"math"
	"testing"

	"git.fiblab.net/general/common/v2/mathutil"
	"git.fiblab.net/sim/accessibility/router/algo"
	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 标签：经过的边数
func hops(prev int, attr int, length float64) (int, float64, bool) {
	return prev + 1, length, true
}

func square() (*algo.SearchGraph[int, int], []int) {
	g := algo.NewSearchGraph[int, int]()
	// 初始化点
	n1 := g.InitNode(orb.Point{0, 0}, 1)
	n2 := g.InitNode(orb.Point{0, 1}, 2)
	n3 := g.InitNode(orb.Point{1, 0}, 3)
	n4 := g.InitNode(orb.Point{1, 1}, 4)

	// 初始化边
	g.InitEdge(n1, n2, 1, 12)
	g.InitEdge(n2, n3, 1, 23)
	g.InitEdge(n3, n4, 1, 34)
	return g, []int{n1, n2, n3, n4}
}

func TestSearchGraph(t *testing.T) {
	g, n := square()

	length, attr, ok := g.GetEdgeLengthAndAttr(n[0], n[1])
	require.True(t, ok)
	assert.Equal(t, 1.0, length)
	assert.Equal(t, 12, attr)
	require.NoError(t, g.SetEdgeLength(n[0], n[1], 2.0))
	length, _, _ = g.GetEdgeLengthAndAttr(n[0], n[1])
	assert.Equal(t, 2.0, length)
	require.NoError(t, g.SetEdgeLength(n[0], n[1], 1.0))
	assert.ErrorIs(t, g.SetEdgeLength(n[0], n[3], 1.0), algo.ErrNoEdge)
	assert.ErrorIs(t, g.SetEdgeLength(-1, n[3], 1.0), algo.ErrNoEdge)
	_, _, ok = g.GetEdgeLengthAndAttr(n[0], n[3])
	assert.False(t, ok)

	// 计算最短路树
	tree := algo.ShortestPathTree(g, []algo.Source[int]{{Node: n[0]}}, algo.TreeOptions{}, hops)
	path := tree.PathTo(n[3])
	assert.Len(t, path, 4)
	assert.Equal(t, 1, path[0].NodeAttr)
	assert.Equal(t, 12, path[0].EdgeAttr)
	assert.Equal(t, 2, path[1].NodeAttr)
	assert.Equal(t, 23, path[1].EdgeAttr)
	assert.Equal(t, 3, path[2].NodeAttr)
	assert.Equal(t, 34, path[2].EdgeAttr)
	assert.Equal(t, 4, path[3].NodeAttr)
	assert.Equal(t, 0, path[3].EdgeAttr)
	cost, ok := tree.Cost(n[3])
	assert.True(t, ok)
	assert.Equal(t, 3.0, cost)
	label, _ := tree.Label(n[3])
	assert.Equal(t, 3, label)

	// 起点本身
	path = tree.PathTo(n[0])
	assert.Len(t, path, 1)
	assert.Equal(t, 1, path[0].NodeAttr)

	// 加入不可达的点
	n5 := g.InitNode(orb.Point{2, 2}, 5)
	tree = algo.ShortestPathTree(g, []algo.Source[int]{{Node: n[0]}}, algo.TreeOptions{}, hops)
	assert.Nil(t, tree.PathTo(n5))
	cost, ok = tree.Cost(n5)
	assert.False(t, ok)
	assert.Equal(t, mathutil.INF, cost)
}

func TestShortestPathTreePicksShorter(t *testing.T) {
	g := algo.NewSearchGraph[int, int]()
	n1 := g.InitNode(orb.Point{0, 0}, 1)
	n2 := g.InitNode(orb.Point{0, 1}, 2)
	n3 := g.InitNode(orb.Point{1, 0}, 3)
	g.InitEdge(n1, n2, 10, 12)
	g.InitEdge(n1, n3, 2, 13)
	g.InitEdge(n3, n2, 1, 32)

	tree := algo.ShortestPathTree(g, []algo.Source[int]{{Node: n1}}, algo.TreeOptions{}, hops)
	path := tree.PathTo(n2)
	assert.Len(t, path, 3)
	assert.Equal(t, 13, path[0].EdgeAttr)
	assert.Equal(t, 2.0, path[0].Length)
	assert.Equal(t, 32, path[1].EdgeAttr)
	cost, _ := tree.Cost(n2)
	assert.Equal(t, 3.0, cost)
}

func TestShortestPathTreeDecreaseKey(t *testing.T) {
	g := algo.NewSearchGraph[int, int]()
	n1 := g.InitNode(orb.Point{0, 0}, 1)
	n2 := g.InitNode(orb.Point{0, 1}, 2)
	n3 := g.InitNode(orb.Point{1, 1}, 3)
	n4 := g.InitNode(orb.Point{1, 0}, 4)
	// n4先以10入堆，出堆前依次降为8、3
	g.InitEdge(n1, n4, 10, 14)
	g.InitEdge(n1, n2, 1, 12)
	g.InitEdge(n2, n4, 7, 24)
	g.InitEdge(n2, n3, 1, 23)
	g.InitEdge(n3, n4, 1, 34)

	tree := algo.ShortestPathTree(g, []algo.Source[int]{{Node: n1}}, algo.TreeOptions{}, hops)
	cost, ok := tree.Cost(n4)
	require.True(t, ok)
	assert.Equal(t, 3.0, cost)
	label, _ := tree.Label(n4)
	assert.Equal(t, 3, label)
	path := tree.PathTo(n4)
	require.Len(t, path, 4)
	assert.Equal(t, []int{12, 23, 34}, []int{path[0].EdgeAttr, path[1].EdgeAttr, path[2].EdgeAttr})

	// 限制为3时只有最短路能到达n4
	tree = algo.ShortestPathTree(g, []algo.Source[int]{{Node: n1}}, algo.TreeOptions{Limit: 3}, hops)
	assert.True(t, tree.Reached(n4))
}

func TestShortestPathTreeReverse(t *testing.T) {
	g, n := square()
	// 反向树：各点到n4
	tree := algo.ShortestPathTree(g, []algo.Source[int]{{Node: n[3]}}, algo.TreeOptions{Reverse: true}, hops)
	cost, ok := tree.Cost(n[0])
	require.True(t, ok)
	assert.Equal(t, 3.0, cost)
	path := tree.PathTo(n[1])
	require.Len(t, path, 3)
	// 按行进方向
	assert.Equal(t, []int{2, 3, 4}, []int{path[0].NodeAttr, path[1].NodeAttr, path[2].NodeAttr})
	assert.Equal(t, 23, path[0].EdgeAttr)

	// 正向树从n4出发到不了任何点
	tree = algo.ShortestPathTree(g, []algo.Source[int]{{Node: n[3]}}, algo.TreeOptions{}, hops)
	assert.False(t, tree.Reached(n[0]))
}

func TestShortestPathTreeSourcesAndLimit(t *testing.T) {
	g, n := square()
	sources := []algo.Source[int]{
		{Node: n[0], Cost: 5, Label: 100},
		{Node: n[2], Cost: 0.5, Label: 200},
	}
	tree := algo.ShortestPathTree(g, sources, algo.TreeOptions{}, hops)
	cost, _ := tree.Cost(n[3])
	assert.Equal(t, 1.5, cost)
	label, _ := tree.Label(n[3])
	assert.Equal(t, 201, label)
	cost, _ = tree.Cost(n[1])
	assert.Equal(t, 6.0, cost)

	tree = algo.ShortestPathTree(g, sources, algo.TreeOptions{Limit: 5.5}, hops)
	assert.True(t, tree.Reached(n[3]))
	assert.True(t, tree.Reached(n[0]))
	assert.False(t, tree.Reached(n[1]))
}

func TestShortestPathTreeBlockedEdge(t *testing.T) {
	g, n := square()
	blocked := func(prev int, attr int, length float64) (int, float64, bool) {
		if attr == 23 {
			return 0, 0, false
		}
		return prev + 1, length, true
	}
	tree := algo.ShortestPathTree(g, []algo.Source[int]{{Node: n[0]}}, algo.TreeOptions{}, blocked)
	assert.True(t, tree.Reached(n[1]))
	assert.False(t, tree.Reached(n[2]))
	cost, _ := tree.Cost(n[2])
	assert.True(t, math.IsInf(cost, 1))
}
