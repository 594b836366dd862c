package router

import (
	"cmp"
	"fmt"
	"slices"
	"sync/atomic"

	"git.fiblab.net/sim/accessibility/analyst"
	"git.fiblab.net/sim/accessibility/router/algo"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
	"github.com/paulmach/orb/quadtree"
	"github.com/samber/lo"
)

const (
	// 默认步行速度（m/s）
	PERSON_SPEED = 1.33
	// 吸附到路网的最大距离（m）
	DEFAULT_MAX_SNAP_DISTANCE = 500
)

// 每个加载的路网分配一个新的版本号
var versionCounter atomic.Uint64

type vertex struct {
	p  orb.Point
	id int
}

func (v vertex) Point() orb.Point {
	return v.p
}

// Network 街道+公交路网，加载后只读，可被多个搜索并发使用
type Network struct {
	graph   *algo.SearchGraph[NodeAttr, *EdgeAttr]
	index   *quadtree.Quadtree
	ids     map[int64]int
	bound   orb.Bound
	version uint64

	maxSnapDistance float64
}

type Option func(*Network)

// WithMaxSnapDistance 设置吸附距离上限（m）
func WithMaxSnapDistance(d float64) Option {
	return func(n *Network) {
		n.maxSnapDistance = d
	}
}

// New 由路网数据建图
func New(data *NetworkData, opts ...Option) (*Network, error) {
	if len(data.Nodes) == 0 {
		return nil, fmt.Errorf("empty network")
	}
	n := &Network{
		graph:           algo.NewSearchGraph[NodeAttr, *EdgeAttr](),
		ids:             make(map[int64]int, len(data.Nodes)),
		version:         versionCounter.Add(1),
		maxSnapDistance: DEFAULT_MAX_SNAP_DISTANCE,
	}
	for _, opt := range opts {
		opt(n)
	}

	points := lo.Map(data.Nodes, func(d NodeData, _ int) orb.Point {
		return orb.Point{d.Lon, d.Lat}
	})
	n.bound = orb.MultiPoint(points).Bound()
	n.index = quadtree.New(n.bound.Pad(1e-6))
	for i, d := range data.Nodes {
		if _, ok := n.ids[d.ID]; ok {
			return nil, fmt.Errorf("duplicate node id %d", d.ID)
		}
		id := n.graph.InitNode(points[i], NodeAttr{ID: d.ID, Elevation: d.Elevation})
		n.ids[d.ID] = id
		if err := n.index.Add(vertex{p: points[i], id: id}); err != nil {
			return nil, fmt.Errorf("index node %d: %w", d.ID, err)
		}
	}

	for _, d := range data.Edges {
		from, ok := n.ids[d.From]
		if !ok {
			return nil, fmt.Errorf("edge %d->%d: unknown from node", d.From, d.To)
		}
		to, ok := n.ids[d.To]
		if !ok {
			return nil, fmt.Errorf("edge %d->%d: unknown to node", d.From, d.To)
		}
		mode := analyst.ModeWalk
		if d.Mode != "" {
			m, err := analyst.ParseMode(d.Mode)
			if err != nil {
				return nil, fmt.Errorf("edge %d->%d: %w", d.From, d.To, err)
			}
			mode = m
		}
		length := d.Length
		if length <= 0 {
			// 未给出长度时使用直线距离
			length = geo.Distance(points[from], points[to])
		}
		attr := &EdgeAttr{Mode: mode, Line: d.Line, Length: length, Duration: d.Duration, Headway: d.Headway}
		if mode.IsTransit() && d.Duration <= 0 {
			return nil, fmt.Errorf("edge %d->%d: transit edge without duration", d.From, d.To)
		}
		n.graph.InitEdge(from, to, attr.weight(), attr)
		if d.Bidirectional {
			n.graph.InitEdge(to, from, attr.weight(), attr)
		}
	}
	log.Infof("network %d: %d nodes, %d edges", n.version, len(data.Nodes), len(data.Edges))
	return n, nil
}

// 图中的边权，步行边为长度，公交边为运行时间
func (a *EdgeAttr) weight() float64 {
	if a.Mode.IsTransit() {
		return a.Duration
	}
	return a.Length
}

func (n *Network) Version() uint64 {
	return n.version
}

func (n *Network) NodeCount() int {
	return n.graph.NodeCount()
}

// Bound 路网点的外包矩形
func (n *Network) Bound() orb.Bound {
	return n.bound
}

// NodeIndex 节点id对应的图中下标
func (n *Network) NodeIndex(id int64) (int, bool) {
	v, ok := n.ids[id]
	return v, ok
}

// Snap 吸附到最近的两个路网点，超过最大吸附距离的点被忽略
// 候选点取吸附距离内的外包矩形，按球面距离排序，距离相同时按点下标
func (n *Network) Snap(p orb.Point) (*analyst.Sample, bool) {
	nearby := n.index.InBound(nil, geo.NewBoundAroundPoint(p, n.maxSnapDistance))
	type candidate struct {
		id   int
		dist float64
	}
	candidates := make([]candidate, 0, len(nearby))
	for _, ptr := range nearby {
		v := ptr.(vertex)
		if d := geo.Distance(p, v.p); d <= n.maxSnapDistance {
			candidates = append(candidates, candidate{id: v.id, dist: d})
		}
	}
	if len(candidates) == 0 {
		return nil, false
	}
	slices.SortFunc(candidates, func(a, b candidate) int {
		if c := cmp.Compare(a.dist, b.dist); c != 0 {
			return c
		}
		return cmp.Compare(a.id, b.id)
	})
	if len(candidates) == 1 {
		return analyst.NewSample(candidates[0].id, candidates[0].dist), true
	}
	return &analyst.Sample{
		V0: candidates[0].id, D0: candidates[0].dist,
		V1: candidates[1].id, D1: candidates[1].dist,
	}, true
}

// UpdateEdges 修改边权，与正在进行的搜索互斥
// 步行边使用Length，公交边使用Duration，对应的值必须为正
func (n *Network) UpdateEdges(statuses []EdgeStatus) error {
	for _, s := range statuses {
		from, ok := n.ids[s.From]
		if !ok {
			return fmt.Errorf("edge status %d->%d: unknown from node", s.From, s.To)
		}
		to, ok := n.ids[s.To]
		if !ok {
			return fmt.Errorf("edge status %d->%d: unknown to node", s.From, s.To)
		}
		pairs := [][2]int{{from, to}}
		if s.Bidirectional {
			pairs = append(pairs, [2]int{to, from})
		}
		for _, pair := range pairs {
			_, attr, ok := n.graph.GetEdgeLengthAndAttr(pair[0], pair[1])
			if !ok {
				return fmt.Errorf("edge status %d->%d: %w", s.From, s.To, algo.ErrNoEdge)
			}
			weight := s.Length
			if attr.Mode.IsTransit() {
				weight = s.Duration
			}
			if weight <= 0 {
				return fmt.Errorf("%w: edge status %d->%d (%s) without positive weight", analyst.ErrInvalidParameter, s.From, s.To, attr.Mode)
			}
			if err := n.graph.SetEdgeLength(pair[0], pair[1], weight); err != nil {
				return err
			}
		}
	}
	log.Infof("network %d: %d edge statuses applied", n.version, len(statuses))
	return nil
}
