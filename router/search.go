package router

import (
	"context"
	"fmt"
	"math"
	"time"

	"git.fiblab.net/sim/accessibility/analyst"
	"git.fiblab.net/sim/accessibility/router/algo"
)

// Search 以请求中的起点（到达模式为终点）为根构建最短路树
// 根附近没有路网点时返回analyst.ErrNoNearbyNetwork
func (n *Network) Search(ctx context.Context, req analyst.SearchRequest) (reach analyst.Reachability, err error) {
	// panic recover
	defer func() {
		if e := recover(); e != nil {
			reach = nil
			err = fmt.Errorf("panic: Search %v with input %+v", e, req)
			log.Errorln(err)
		}
	}()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if req.WalkSpeed <= 0 {
		return nil, fmt.Errorf("%w: walk speed %v", analyst.ErrInvalidParameter, req.WalkSpeed)
	}
	root := req.From
	if req.ArriveBy {
		root = req.To
	}
	// 转换为搜索图中结点
	s, ok := n.Snap(root)
	if !ok {
		return nil, fmt.Errorf("%w: %v", analyst.ErrNoNearbyNetwork, root)
	}
	sources := []algo.Source[label]{{
		Node:  s.V0,
		Cost:  s.D0 / req.WalkSpeed,
		Label: label{walkDistance: s.D0},
	}}
	if s.V1 != s.V0 {
		sources = append(sources, algo.Source[label]{
			Node:  s.V1,
			Cost:  s.D1 / req.WalkSpeed,
			Label: label{walkDistance: s.D1},
		})
	}
	tree := algo.ShortestPathTree(n.graph, sources, algo.TreeOptions{
		Reverse: req.ArriveBy,
		Limit:   req.MaxTime.Seconds(),
	}, stepFunc(req))
	return &reachability{
		network: n,
		tree:    tree,
		req:     req,
	}, nil
}

// 边的代价取图中的边权：步行边为长度/步速，公交边为运行时间
// 上车或换线时加半个发车间隔的等待，第一次上车的等待不超过ClampInitialWait
// 上车次数超过MaxTransfers+1的边不可通行
func stepFunc(req analyst.SearchRequest) algo.StepFunc[*EdgeAttr, label] {
	clamp := req.ClampInitialWait.Seconds()
	return func(prev label, attr *EdgeAttr, length float64) (label, float64, bool) {
		if !attr.Mode.IsTransit() {
			return label{
				walkDistance: prev.walkDistance + length,
				boardings:    prev.boardings,
				mode:         attr.Mode,
			}, length / req.WalkSpeed, true
		}
		next := label{
			walkDistance: prev.walkDistance,
			boardings:    prev.boardings,
			mode:         attr.Mode,
			line:         attr.Line,
		}
		cost := length
		if boards(prev, attr) {
			next.boardings++
			if req.MaxTransfers != nil && next.boardings > *req.MaxTransfers+1 {
				return next, 0, false
			}
			wait := attr.Headway / 2
			if prev.boardings == 0 && clamp > 0 {
				wait = math.Min(wait, clamp)
			}
			cost += wait
		}
		return next, cost, true
	}
}

func boards(prev label, attr *EdgeAttr) bool {
	return prev.mode != attr.Mode || prev.line != attr.Line
}

type reachability struct {
	network *Network
	tree    *algo.Tree[NodeAttr, *EdgeAttr, label]
	req     analyst.SearchRequest
}

// 点的时刻：出发模式为到达该点的时刻，到达模式为离开该点的时刻
func (r *reachability) timeAt(cost float64) time.Time {
	d := time.Duration(cost * float64(time.Second))
	if r.req.ArriveBy {
		return r.req.DateTime.Add(-d)
	}
	return r.req.DateTime.Add(d)
}

func (r *reachability) State(v int) (analyst.VertexState, bool) {
	cost, ok := r.tree.Cost(v)
	if !ok {
		return analyst.VertexState{}, false
	}
	l, _ := r.tree.Label(v)
	return analyst.VertexState{
		ActiveTime:   cost,
		WalkDistance: l.walkDistance,
		Boardings:    l.boardings,
		Time:         r.timeAt(cost),
	}, true
}

func (r *reachability) ArriveBy() bool {
	return r.req.ArriveBy
}

func (r *reachability) WalkSpeed() float64 {
	return r.req.WalkSpeed
}

func (r *reachability) NetworkVersion() uint64 {
	return r.network.version
}

type segment struct {
	leg  analyst.Leg
	line string
}

// Itinerary 沿最短路树重建行程，相同方式和线路的连续边合并为一段
func (r *reachability) Itinerary(v int) (*analyst.Itinerary, error) {
	path := r.tree.PathTo(v)
	if path == nil {
		return nil, fmt.Errorf("vertex %d not reached", v)
	}
	if len(path) == 1 {
		return nil, analyst.ErrTrivialPath
	}
	costAt := func(node int) float64 {
		c, _ := r.tree.Cost(node)
		return c
	}
	it := &analyst.Itinerary{}
	segments := make([]segment, 0, len(path)+1)

	// 根的接入段：出发模式在最前，到达模式在最后
	rootNode := path[0].Node
	if r.req.ArriveBy {
		rootNode = path[len(path)-1].Node
	}
	rootLabel, _ := r.tree.Label(rootNode)
	access := segment{leg: analyst.Leg{Mode: analyst.ModeWalk, Distance: rootLabel.walkDistance}}
	if r.req.ArriveBy {
		access.leg.StartTime, access.leg.EndTime = r.timeAt(costAt(rootNode)), r.req.DateTime
	} else {
		access.leg.StartTime, access.leg.EndTime = r.req.DateTime, r.timeAt(costAt(rootNode))
		segments = append(segments, access)
	}

	for i := 0; i < len(path)-1; i++ {
		cur, next := path[i], path[i+1]
		attr := cur.EdgeAttr
		start, end := r.timeAt(costAt(cur.Node)), r.timeAt(costAt(next.Node))
		if attr.Mode.IsTransit() {
			// 上车等待
			if wait := math.Abs(costAt(next.Node)-costAt(cur.Node)) - attr.Duration; wait > 1e-9 {
				w := time.Duration(wait * float64(time.Second))
				it.WaitingTime += w
				start = start.Add(w)
			}
		} else {
			_, a := r.network.graph.Node(cur.Node)
			_, b := r.network.graph.Node(next.Node)
			if dh := b.Elevation - a.Elevation; dh > 0 {
				it.ElevationGained += dh
			} else {
				it.ElevationLost -= dh
			}
		}
		distance := attr.Length
		if !attr.Mode.IsTransit() {
			distance = cur.Length
		}
		segments = append(segments, segment{
			leg:  analyst.Leg{Mode: attr.Mode, Distance: distance, StartTime: start, EndTime: end},
			line: attr.Line,
		})
	}
	if r.req.ArriveBy {
		segments = append(segments, access)
	}

	lastLine := ""
	for _, seg := range segments {
		if seg.leg.Distance == 0 && !seg.leg.EndTime.After(seg.leg.StartTime) {
			continue
		}
		if k := len(it.Legs); k > 0 && it.Legs[k-1].Mode == seg.leg.Mode && (!seg.leg.Mode.IsTransit() || seg.line == lastLine) {
			it.Legs[k-1].Distance += seg.leg.Distance
			it.Legs[k-1].EndTime = seg.leg.EndTime
			continue
		}
		it.Legs = append(it.Legs, seg.leg)
		lastLine = seg.line
	}
	it.StartTime = segments[0].leg.StartTime
	it.EndTime = segments[len(segments)-1].leg.EndTime
	return it, nil
}
