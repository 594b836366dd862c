package analyst_test

import (
	"context"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"git.fiblab.net/sim/accessibility/analyst"
	"github.com/paulmach/orb"
)

var t0 = time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)

type fakeReach struct {
	states   map[int]analyst.VertexState
	itins    map[int]*analyst.Itinerary
	arriveBy bool
	ws       float64
	version  uint64
}

func newFakeReach(ws float64) *fakeReach {
	return &fakeReach{
		states: make(map[int]analyst.VertexState),
		itins:  make(map[int]*analyst.Itinerary),
		ws:     ws,
	}
}

// 设置点的到达用时，行程为一段步行
func (r *fakeReach) reach(v int, activeTime float64) *fakeReach {
	at := t0.Add(time.Duration(activeTime * float64(time.Second)))
	r.states[v] = analyst.VertexState{ActiveTime: activeTime, WalkDistance: activeTime * r.ws, Time: at}
	r.itins[v] = &analyst.Itinerary{
		StartTime: t0,
		EndTime:   at,
		Legs:      []analyst.Leg{{Mode: analyst.ModeWalk, Distance: activeTime * r.ws, StartTime: t0, EndTime: at}},
	}
	return r
}

func (r *fakeReach) State(v int) (analyst.VertexState, bool) {
	s, ok := r.states[v]
	return s, ok
}

func (r *fakeReach) Itinerary(v int) (*analyst.Itinerary, error) {
	if s, ok := r.states[v]; ok && s.ActiveTime == 0 {
		return nil, analyst.ErrTrivialPath
	}
	it, ok := r.itins[v]
	if !ok {
		return nil, fmt.Errorf("vertex %d not reached", v)
	}
	return it, nil
}

func (r *fakeReach) ArriveBy() bool         { return r.arriveBy }
func (r *fakeReach) WalkSpeed() float64     { return r.ws }
func (r *fakeReach) NetworkVersion() uint64 { return r.version }

// fakeNetwork 一维路网：点v位于x=v，个体吸附到round(x)
// 从root出发到点v的用时为 |root.x - v| * 100s
type fakeNetwork struct {
	version  atomic.Uint64
	fail     map[float64]error // root.x -> 搜索错误
	snaps    atomic.Int32
	searches atomic.Int32
	mu       sync.Mutex
	searched []float64
	requests []analyst.SearchRequest
	// 每次搜索的额外耗时
	delay func(x float64) time.Duration
}

func newFakeNetwork() *fakeNetwork {
	n := &fakeNetwork{fail: make(map[float64]error)}
	n.version.Store(1)
	return n
}

func (n *fakeNetwork) Version() uint64 { return n.version.Load() }

func (n *fakeNetwork) Snap(p orb.Point) (*analyst.Sample, bool) {
	n.snaps.Add(1)
	if p.Y() != 0 {
		return nil, false
	}
	v := math.Floor(p.X())
	return &analyst.Sample{V0: int(v), D0: (p.X() - v) * 1000, V1: int(v) + 1, D1: (v + 1 - p.X()) * 1000}, true
}

func (n *fakeNetwork) Search(ctx context.Context, req analyst.SearchRequest) (analyst.Reachability, error) {
	n.searches.Add(1)
	p := req.From
	if req.ArriveBy {
		p = req.To
	}
	n.mu.Lock()
	n.searched = append(n.searched, p.X())
	n.requests = append(n.requests, req)
	n.mu.Unlock()
	if n.delay != nil {
		time.Sleep(n.delay(p.X()))
	}
	if err, ok := n.fail[p.X()]; ok {
		return nil, err
	}
	r := newFakeReach(req.WalkSpeed)
	r.arriveBy = req.ArriveBy
	r.version = n.Version()
	for v := 0; v <= 10; v++ {
		r.reach(v, math.Abs(p.X()-float64(v))*100)
	}
	return r, nil
}

func line(xs ...float64) *analyst.Population {
	inds := make([]*analyst.Individual, len(xs))
	for i, x := range xs {
		inds[i] = &analyst.Individual{
			ID:       fmt.Sprintf("p%d", i),
			Position: orb.Point{x, 0},
			Input:    1,
		}
	}
	return analyst.NewPopulation(inds)
}
