package analyst

import (
	"errors"
	"time"
)

// Sample 目标点吸附到路网上最近的两个点
// 只找到一个点时V1 == V0，D1 == D0
type Sample struct {
	V0 int
	D0 float64 // 到V0的步行距离（m）
	V1 int
	D1 float64
}

// 单点样本
func NewSample(v int, d float64) *Sample {
	return &Sample{V0: v, D0: d, V1: v, D1: d}
}

// sample选中的一侧
type sampleSide struct {
	state  VertexState
	vertex int
	dist   float64
	cost   float64
}

// 在r上选择两侧中代价更小的一侧，代价相同时取V0
// 两侧都未到达时返回false
func (s *Sample) best(r Reachability) (sampleSide, bool) {
	ws := r.WalkSpeed()
	s0, ok0 := r.State(s.V0)
	s1, ok1 := r.State(s.V1)
	side0 := sampleSide{state: s0, vertex: s.V0, dist: s.D0, cost: s0.ActiveTime + s.D0/ws}
	side1 := sampleSide{state: s1, vertex: s.V1, dist: s.D1, cost: s1.ActiveTime + s.D1/ws}
	switch {
	case ok0 && ok1:
		if side1.cost < side0.cost {
			return side1, true
		}
		return side0, true
	case ok0:
		return side0, true
	case ok1:
		return side1, true
	default:
		return sampleSide{}, false
	}
}

func (sd sampleSide) record(ws float64) *Record {
	// 按浮点代价选侧，保存时截断到秒，相差不到1s的两侧可能得到相同的Time
	return &Record{
		Time:            int64(sd.cost),
		Boardings:       sd.state.Boardings,
		WalkDistance:    sd.state.WalkDistance + sd.dist,
		AccessDistance:  sd.dist,
		TimeToItinerary: int64(sd.dist / ws),
	}
}

// Eval 基于可达性结构计算该样本的结果
// 未到达时返回nil
func (s *Sample) Eval(r Reachability) *Record {
	side, ok := s.best(r)
	if !ok {
		return nil
	}
	return side.record(r.WalkSpeed())
}

// EvalItinerary 在Eval的基础上重建行程，起止时间按步行接入时间修正
// 出发模式：到达时间 = 行程结束 + d/v
// 到达模式：出发时间 = 行程开始 - d/v
func (s *Sample) EvalItinerary(r Reachability) (*Record, error) {
	side, ok := s.best(r)
	if !ok {
		return nil, nil
	}
	rec := side.record(r.WalkSpeed())
	it, err := r.Itinerary(side.vertex)
	if err != nil {
		if !errors.Is(err, ErrTrivialPath) {
			return nil, err
		}
		// 起终点重合，使用零时长行程
		it = &Itinerary{StartTime: side.state.Time, EndTime: side.state.Time}
	}
	access := time.Duration(side.dist / r.WalkSpeed() * float64(time.Second))
	summary := summarize(it)
	if r.ArriveBy() {
		summary.StartTime = summary.StartTime.Add(-access)
	} else {
		summary.ArrivalTime = summary.ArrivalTime.Add(access)
	}
	rec.Itinerary = summary
	return rec, nil
}
