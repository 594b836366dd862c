package router_test

import (
	"context"
	"testing"
	"time"

	"git.fiblab.net/sim/accessibility/analyst"
	"git.fiblab.net/sim/accessibility/router"
	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearchDepartAt(t *testing.T) {
	n := testNetwork(t)
	reach, err := n.Search(context.Background(), analyst.SearchRequest{
		From:      orb.Point{0, 0},
		DateTime:  t0,
		WalkSpeed: 1,
	})
	require.NoError(t, err)
	assert.False(t, reach.ArriveBy())
	assert.Equal(t, n.Version(), reach.NetworkVersion())

	s, ok := reach.State(node(t, n, 2))
	require.True(t, ok)
	assert.InDelta(t, 100, s.ActiveTime, 1e-9)
	assert.Equal(t, 0, s.Boardings)

	// 公交更快：100 + 60（等待） + 60
	s, ok = reach.State(node(t, n, 4))
	require.True(t, ok)
	assert.InDelta(t, 220, s.ActiveTime, 1e-9)
	assert.Equal(t, 1, s.Boardings)
	assert.InDelta(t, 100, s.WalkDistance, 1e-9)
	assert.Equal(t, t0.Add(220*time.Second), s.Time)

	it, err := reach.Itinerary(node(t, n, 4))
	require.NoError(t, err)
	require.Len(t, it.Legs, 2)
	assert.Equal(t, analyst.ModeWalk, it.Legs[0].Mode)
	assert.Equal(t, analyst.ModeBus, it.Legs[1].Mode)
	assert.Equal(t, t0, it.StartTime)
	assert.Equal(t, t0.Add(220*time.Second), it.EndTime)
	assert.Equal(t, 60*time.Second, it.WaitingTime)
	assert.Equal(t, t0.Add(160*time.Second), it.Legs[1].StartTime)
	assert.Equal(t, 5.0, it.ElevationGained)
	assert.Equal(t, 0.0, it.ElevationLost)

	_, err = reach.Itinerary(node(t, n, 1))
	assert.ErrorIs(t, err, analyst.ErrTrivialPath)

	// 步行到3
	it, err = reach.Itinerary(node(t, n, 3))
	require.NoError(t, err)
	require.Len(t, it.Legs, 1)
	assert.Equal(t, 200.0, it.Legs[0].Distance)
	assert.Equal(t, 5.0, it.ElevationGained)
	assert.Equal(t, 2.0, it.ElevationLost)
}

func TestSearchArriveBy(t *testing.T) {
	n := testNetwork(t)
	reach, err := n.Search(context.Background(), analyst.SearchRequest{
		To:        orb.Point{0.003, 0},
		DateTime:  t0,
		ArriveBy:  true,
		WalkSpeed: 1,
	})
	require.NoError(t, err)
	assert.True(t, reach.ArriveBy())

	s, ok := reach.State(node(t, n, 1))
	require.True(t, ok)
	assert.InDelta(t, 220, s.ActiveTime, 1e-9)
	assert.Equal(t, 1, s.Boardings)
	assert.Equal(t, t0.Add(-220*time.Second), s.Time)

	it, err := reach.Itinerary(node(t, n, 1))
	require.NoError(t, err)
	assert.Equal(t, t0.Add(-220*time.Second), it.StartTime)
	assert.Equal(t, t0, it.EndTime)
	require.Len(t, it.Legs, 2)
	assert.Equal(t, analyst.ModeWalk, it.Legs[0].Mode)
	assert.Equal(t, analyst.ModeBus, it.Legs[1].Mode)
	assert.Equal(t, 60*time.Second, it.WaitingTime)
}

func TestSearchLimitsAndErrors(t *testing.T) {
	n := testNetwork(t)
	reach, err := n.Search(context.Background(), analyst.SearchRequest{
		From:      orb.Point{0, 0},
		DateTime:  t0,
		WalkSpeed: 1,
		MaxTime:   150 * time.Second,
	})
	require.NoError(t, err)
	_, ok := reach.State(node(t, n, 2))
	assert.True(t, ok)
	_, ok = reach.State(node(t, n, 4))
	assert.False(t, ok)

	_, err = n.Search(context.Background(), analyst.SearchRequest{From: orb.Point{1, 1}, WalkSpeed: 1})
	assert.ErrorIs(t, err, analyst.ErrNoNearbyNetwork)

	_, err = n.Search(context.Background(), analyst.SearchRequest{From: orb.Point{0, 0}})
	assert.ErrorIs(t, err, analyst.ErrInvalidParameter)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = n.Search(ctx, analyst.SearchRequest{From: orb.Point{0, 0}, WalkSpeed: 1})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSearchWithBatch(t *testing.T) {
	n := testNetwork(t)
	origins := analyst.NewPopulation([]*analyst.Individual{
		{ID: "o1", Position: orb.Point{0, 0.0001}},
		{ID: "o2", Position: orb.Point{5, 5}},
	})
	destinations := analyst.NewPopulation([]*analyst.Individual{
		{ID: "d1", Position: orb.Point{0.003, 0}, Input: 10},
		{ID: "d2", Position: orb.Point{0.002, 0.0001}, Input: 4},
	})
	b := analyst.NewBatchEvaluator(n, nil)
	results, err := b.EvaluateManyToMany(context.Background(), &analyst.Request{
		Origins:         origins,
		Destinations:    destinations,
		DateTime:        t0,
		WalkSpeed:       1,
		EvalItineraries: true,
		Threads:         2,
	}, nil)
	require.NoError(t, err)
	require.Len(t, results, 2)
	require.NotNil(t, results[0])
	assert.Nil(t, results[1])

	rec := results[0].Record(0)
	require.NotNil(t, rec)
	assert.Equal(t, 1, rec.Boardings)
	assert.Equal(t, []analyst.Mode{analyst.ModeWalk, analyst.ModeBus}, rec.Itinerary.Modes)
	require.NotNil(t, results[0].Record(1))
	assert.Equal(t, 0, results[0].Record(1).Boardings)
}

// 在4之后加一条B2线路到5，步行到5较远
func transferNetwork(t *testing.T) *router.Network {
	data := testNetworkData()
	data.Nodes = append(data.Nodes, router.NodeData{ID: 5, Lon: 0.004, Lat: 0})
	data.Edges = append(data.Edges,
		router.EdgeData{From: 4, To: 5, Length: 500, Bidirectional: true},
		router.EdgeData{From: 4, To: 5, Mode: "bus", Line: "B2", Duration: 60, Headway: 120},
	)
	n, err := router.New(data)
	require.NoError(t, err)
	return n
}

func TestSearchMaxTransfers(t *testing.T) {
	n := transferNetwork(t)
	req := analyst.SearchRequest{From: orb.Point{0, 0}, DateTime: t0, WalkSpeed: 1}

	reach, err := n.Search(context.Background(), req)
	require.NoError(t, err)
	s, ok := reach.State(node(t, n, 5))
	require.True(t, ok)
	assert.InDelta(t, 340, s.ActiveTime, 1e-9)
	assert.Equal(t, 2, s.Boardings)

	// 不允许换乘时只能乘一次公交再步行
	noTransfer := 0
	req.MaxTransfers = &noTransfer
	reach, err = n.Search(context.Background(), req)
	require.NoError(t, err)
	s, ok = reach.State(node(t, n, 5))
	require.True(t, ok)
	assert.InDelta(t, 720, s.ActiveTime, 1e-9)
	assert.Equal(t, 1, s.Boardings)
	s, ok = reach.State(node(t, n, 4))
	require.True(t, ok)
	assert.InDelta(t, 220, s.ActiveTime, 1e-9)

	oneTransfer := 1
	req.MaxTransfers = &oneTransfer
	reach, err = n.Search(context.Background(), req)
	require.NoError(t, err)
	s, _ = reach.State(node(t, n, 5))
	assert.Equal(t, 2, s.Boardings)
}

func TestSearchClampInitialWait(t *testing.T) {
	n := transferNetwork(t)
	reach, err := n.Search(context.Background(), analyst.SearchRequest{
		From:             orb.Point{0, 0},
		DateTime:         t0,
		WalkSpeed:        1,
		ClampInitialWait: 10 * time.Second,
	})
	require.NoError(t, err)
	// 第一次上车只等10s，换乘仍等半个发车间隔
	s, ok := reach.State(node(t, n, 4))
	require.True(t, ok)
	assert.InDelta(t, 170, s.ActiveTime, 1e-9)
	s, ok = reach.State(node(t, n, 5))
	require.True(t, ok)
	assert.InDelta(t, 290, s.ActiveTime, 1e-9)

	it, err := reach.Itinerary(node(t, n, 4))
	require.NoError(t, err)
	assert.Equal(t, 10*time.Second, it.WaitingTime)
}
