package algo

import (
	"container/heap"
	"math"

	"github.com/samber/lo"
)

// Source 搜索起点，附带初始代价和标签
type Source[LT any] struct {
	Node  int
	Cost  float64
	Label LT
}

type TreeOptions struct {
	// 沿入边反向搜索（到达模式）
	Reverse bool
	// 代价上限，<=0表示不限
	Limit float64
}

// StepFunc 沿一条边扩展标签，返回新标签、边的代价以及该边是否可通行
type StepFunc[ET any, LT any] func(prev LT, attr ET, length float64) (LT, float64, bool)

// Tree 一对多最短路树
type Tree[NT any, ET any, LT any] struct {
	g       *SearchGraph[NT, ET]
	reverse bool
	cost    []float64
	label   []LT
	// 树上的父节点，起点为-1
	pred []int
}

// ShortestPathTree 多起点Dijkstra，标签沿最短路树传播
func ShortestPathTree[NT any, ET any, LT any](
	g *SearchGraph[NT, ET], sources []Source[LT], opts TreeOptions, step StepFunc[ET, LT],
) *Tree[NT, ET, LT] {
	token := g.mu.RLock()
	defer g.mu.RUnlock(token)

	n := len(g.nodes)
	t := &Tree[NT, ET, LT]{
		g:       g,
		reverse: opts.Reverse,
		cost:    make([]float64, n),
		label:   make([]LT, n),
		pred:    make([]int, n),
	}
	for i := range t.cost {
		t.cost[i] = math.Inf(0)
		t.pred[i] = -1
	}
	limit := opts.Limit
	if limit <= 0 {
		limit = math.Inf(0)
	}

	openSet := make(PriorityQueue, 0, len(sources))
	openSetMap := make(map[int]*Item, len(sources)) // openSet value -> openSet item
	for _, s := range sources {
		if s.Cost > limit || s.Cost >= t.cost[s.Node] {
			continue
		}
		t.cost[s.Node] = s.Cost
		t.label[s.Node] = s.Label
		if item, ok := openSetMap[s.Node]; ok {
			item.Priority = s.Cost
			continue
		}
		item := &Item{Value: s.Node, Priority: s.Cost}
		openSet = append(openSet, item)
		openSetMap[s.Node] = item
	}
	heap.Init(&openSet)
	closed := make([]bool, n)

	relax := func(cur, next int, e edge[ET]) {
		if closed[next] {
			return
		}
		l, c, ok := step(t.label[cur], e.attr, e.length)
		if !ok {
			return
		}
		tentative := t.cost[cur] + c
		if tentative > limit || tentative >= t.cost[next] {
			return
		}
		t.cost[next] = tentative
		t.label[next] = l
		t.pred[next] = cur
		if item, ok := openSetMap[next]; ok {
			// 已经访问过的节点，修改其在heap中的优先级
			item.Priority = tentative
			heap.Fix(&openSet, item.Index)
		} else {
			// 新访问的节点
			item := &Item{Value: next, Priority: tentative}
			heap.Push(&openSet, item)
			openSetMap[next] = item
		}
	}

	for openSet.Len() > 0 {
		cur := heap.Pop(&openSet).(*Item).Value
		delete(openSetMap, cur)
		closed[cur] = true
		if opts.Reverse {
			for _, from := range g.inEdges[cur] {
				relax(cur, from, g.edges[from][cur])
			}
		} else {
			for to, e := range g.edges[cur] {
				relax(cur, to, e)
			}
		}
	}
	return t
}

func (t *Tree[NT, ET, LT]) Reached(v int) bool {
	return v >= 0 && v < len(t.cost) && !math.IsInf(t.cost[v], 0)
}

func (t *Tree[NT, ET, LT]) Cost(v int) (float64, bool) {
	if !t.Reached(v) {
		return math.Inf(0), false
	}
	return t.cost[v], true
}

func (t *Tree[NT, ET, LT]) Label(v int) (LT, bool) {
	if !t.Reached(v) {
		var zero LT
		return zero, false
	}
	return t.label[v], true
}

// PathTo 按行进方向返回路径
// 正向树为起点到v，反向树为v到起点，未到达时返回nil
func (t *Tree[NT, ET, LT]) PathTo(v int) []PathItem[NT, ET] {
	if !t.Reached(v) {
		return nil
	}
	token := t.g.mu.RLock()
	defer t.g.mu.RUnlock(token)
	// 从v沿树回溯到起点
	chain := []int{v}
	for cur := v; t.pred[cur] >= 0; cur = t.pred[cur] {
		chain = append(chain, t.pred[cur])
	}
	if !t.reverse {
		chain = lo.Reverse(chain)
	}
	path := make([]PathItem[NT, ET], len(chain))
	for i, id := range chain {
		path[i] = PathItem[NT, ET]{Node: id, NodeAttr: t.g.nodes[id].attr}
		if i+1 < len(chain) {
			e := t.g.edges[id][chain[i+1]]
			path[i].EdgeAttr = e.attr
			path[i].Length = e.length
		}
	}
	return path
}
