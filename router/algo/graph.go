package algo

import (
	"github.com/paulmach/orb"
	"github.com/puzpuzpuz/xsync/v3"
)

type node[T any] struct {
	p    orb.Point
	attr T
}

type edge[T any] struct {
	length float64
	attr   T
}

type SearchGraph[NT any, ET any] struct {
	// 邻接表，from node -> to node -> edge
	// 加载完成后出边入边不变，因此不需要考虑并发问题
	// 但edge length会被改变，因此需要考虑并发问题
	edges []map[int]edge[ET]
	// 反向邻接表，to node -> from nodes，用于到达模式的反向搜索
	inEdges [][]int
	// 点的位置
	nodes []node[NT]

	mu *xsync.RBMutex
}

func NewSearchGraph[NT any, ET any]() *SearchGraph[NT, ET] {
	return &SearchGraph[NT, ET]{
		edges:   make([]map[int]edge[ET], 0),
		inEdges: make([][]int, 0),
		nodes:   make([]node[NT], 0),
		mu:      xsync.NewRBMutex(),
	}
}

func (g *SearchGraph[NT, ET]) InitNode(p orb.Point, attr NT) int {
	g.nodes = append(g.nodes, node[NT]{p: p, attr: attr})
	g.edges = append(g.edges, make(map[int]edge[ET]))
	g.inEdges = append(g.inEdges, nil)
	return len(g.nodes) - 1
}

func (g *SearchGraph[NT, ET]) InitEdge(from, to int, length float64, attr ET) {
	if from >= len(g.edges) || to >= len(g.edges) {
		log.Panicf("edge %d->%d out of range, node count %d", from, to, len(g.edges))
	}
	if _, ok := g.edges[from][to]; !ok {
		g.inEdges[to] = append(g.inEdges[to], from)
	}
	g.edges[from][to] = edge[ET]{length: length, attr: attr}
}

func (g *SearchGraph[NT, ET]) NodeCount() int {
	return len(g.nodes)
}

func (g *SearchGraph[NT, ET]) Node(i int) (orb.Point, NT) {
	n := g.nodes[i]
	return n.p, n.attr
}

// GetEdgeLengthAndAttr 边不存在时返回false
func (g *SearchGraph[NT, ET]) GetEdgeLengthAndAttr(from, to int) (float64, ET, bool) {
	if from < 0 || from >= len(g.edges) {
		var zero ET
		return 0, zero, false
	}
	token := g.mu.RLock()
	defer g.mu.RUnlock(token)
	edge, ok := g.edges[from][to]
	return edge.length, edge.attr, ok
}

// SetEdgeLength 修改边权，与搜索互斥
func (g *SearchGraph[NT, ET]) SetEdgeLength(from, to int, length float64) error {
	if from < 0 || from >= len(g.edges) {
		return ErrNoEdge
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	e, ok := g.edges[from][to]
	if !ok {
		return ErrNoEdge
	}
	e.length = length
	g.edges[from][to] = e
	return nil
}

type PathItem[NT any, ET any] struct {
	Node     int
	NodeAttr NT
	// 离开该点的边，最后一个点为零值
	EdgeAttr ET
	// 离开该点的边长
	Length float64
}
