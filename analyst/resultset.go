package analyst

import (
	"fmt"
	"slices"
	"time"

	"github.com/samber/lo"
)

// ResultSet 一个root到population中所有个体的评估结果，按下标与population对齐
// population按引用共享，records长度始终等于population大小
type ResultSet struct {
	population *Population
	root       *Individual
	records    []*Record
}

func NewResultSet(pop *Population, root *Individual) *ResultSet {
	return &ResultSet{
		population: pop,
		root:       root,
		records:    make([]*Record, pop.Len()),
	}
}

// Result 个体及其结果
type Result struct {
	Individual *Individual
	Record     *Record
}

// NewResultSetFromRecords 由一组已评估的个体构造结果集，个体按给定顺序组成新的population
func NewResultSetFromRecords(root *Individual, results []Result) *ResultSet {
	pop := NewPopulation(lo.Map(results, func(r Result, _ int) *Individual {
		return r.Individual
	}))
	rs := NewResultSet(pop, root)
	for i, r := range results {
		rs.records[i] = r.Record
	}
	return rs
}

func (rs *ResultSet) Population() *Population {
	return rs.population
}

func (rs *ResultSet) Root() *Individual {
	return rs.root
}

func (rs *ResultSet) Len() int {
	return len(rs.records)
}

// Record 第i个个体的结果，不可达时为nil
func (rs *ResultSet) Record(i int) *Record {
	return rs.records[i]
}

// EvaluateOptions 单个结果集的评估选项
type EvaluateOptions struct {
	// 是否重建行程
	EvalItineraries bool
	// 出发模式下最晚出发时刻，到达模式下最晚到达时刻，零值表示不限制
	// 仅在EvalItineraries时生效
	Cutoff time.Time
	// 为true的个体不评估，nil表示全部评估
	Skip []bool
}

// EvaluateAgainst 基于可达性结构评估population中所有个体，结果写入rs
// 样本从cache中获取，路网版本以snapper为准
func (rs *ResultSet) EvaluateAgainst(r Reachability, snapper Snapper, cache *SampleCache, opts EvaluateOptions) error {
	if r.NetworkVersion() != snapper.Version() {
		return fmt.Errorf("%w: reachability %d, network %d", ErrNetworkMismatch, r.NetworkVersion(), snapper.Version())
	}
	if opts.Skip != nil && len(opts.Skip) != rs.population.Len() {
		return fmt.Errorf("%w: %d skip flags for %d individuals", ErrInvalidParameter, len(opts.Skip), rs.population.Len())
	}
	if cache == nil {
		cache = NewSampleCache()
	}
	for i, ind := range rs.population.individuals {
		if opts.Skip != nil && opts.Skip[i] {
			continue
		}
		s := cache.Get(ind, snapper)
		if s == nil {
			continue
		}
		if !opts.EvalItineraries {
			rs.records[i] = s.Eval(r)
			continue
		}
		rec, err := s.EvalItinerary(r)
		if err != nil {
			return fmt.Errorf("evaluate %s: %w", ind.ID, err)
		}
		if rec != nil && !opts.Cutoff.IsZero() && violatesCutoff(rec, r.ArriveBy(), opts.Cutoff) {
			continue
		}
		rs.records[i] = rec
	}
	return nil
}

func violatesCutoff(rec *Record, arriveBy bool, cutoff time.Time) bool {
	if arriveBy {
		return rec.Itinerary.ArrivalTime.After(cutoff)
	}
	return rec.Itinerary.StartTime.After(cutoff)
}

// Merge 逐个体取用时更短的结果，生成新的结果集，不修改输入
// 用时相同时保留rs的结果
func (rs *ResultSet) Merge(other *ResultSet) (*ResultSet, error) {
	if rs.population != other.population {
		return nil, ErrPopulationMismatch
	}
	merged := NewResultSet(rs.population, rs.root)
	for i, a := range rs.records {
		b := other.records[i]
		switch {
		case a == nil:
			merged.records[i] = b
		case b == nil || a.Time <= b.Time:
			merged.records[i] = a
		default:
			merged.records[i] = b
		}
	}
	return merged, nil
}

// Update 用other中存在的结果覆盖rs，other中缺失的保留原值
func (rs *ResultSet) Update(other *ResultSet) error {
	if rs.population != other.population {
		return ErrPopulationMismatch
	}
	for i, rec := range other.records {
		if rec != nil {
			rs.records[i] = rec
		}
	}
	return nil
}

// BestResults 用时最短的n个结果，不可达的排在最后，用时相同时按原顺序
func (rs *ResultSet) BestResults(n int) []Result {
	results := lo.Map(rs.records, func(rec *Record, i int) Result {
		return Result{Individual: rs.population.individuals[i], Record: rec}
	})
	slices.SortStableFunc(results, func(a, b Result) int {
		switch {
		case a.Record == nil && b.Record == nil:
			return 0
		case a.Record == nil:
			return 1
		case b.Record == nil:
			return -1
		case a.Record.Time < b.Record.Time:
			return -1
		case a.Record.Time > b.Record.Time:
			return 1
		}
		return 0
	})
	return results[:lo.Clamp(n, 0, len(results))]
}

func project[T any](rs *ResultSet, f func(*Record) (T, bool)) []*T {
	out := make([]*T, len(rs.records))
	for i, rec := range rs.records {
		if rec == nil {
			continue
		}
		if v, ok := f(rec); ok {
			out[i] = &v
		}
	}
	return out
}

// Times 各个体的用时（s），不可达为nil
func (rs *ResultSet) Times() []*int64 {
	return project(rs, func(r *Record) (int64, bool) { return r.Time, true })
}

func (rs *ResultSet) Boardings() []*int {
	return project(rs, func(r *Record) (int, bool) { return r.Boardings, true })
}

func (rs *ResultSet) WalkDistances() []*float64 {
	return project(rs, func(r *Record) (float64, bool) { return r.WalkDistance, true })
}

// StartTimes 需要评估行程
func (rs *ResultSet) StartTimes() []*time.Time {
	return project(rs, func(r *Record) (time.Time, bool) {
		if r.Itinerary == nil {
			return time.Time{}, false
		}
		return r.Itinerary.StartTime, true
	})
}

func (rs *ResultSet) ArrivalTimes() []*time.Time {
	return project(rs, func(r *Record) (time.Time, bool) {
		if r.Itinerary == nil {
			return time.Time{}, false
		}
		return r.Itinerary.ArrivalTime, true
	})
}

func (rs *ResultSet) Modes() [][]Mode {
	out := make([][]Mode, len(rs.records))
	for i, rec := range rs.records {
		if rec != nil && rec.Itinerary != nil {
			out[i] = slices.Clone(rec.Itinerary.Modes)
		}
	}
	return out
}

// Values 按字段投影
func (rs *ResultSet) Values(f Field) []*float64 {
	return project(rs, func(r *Record) (float64, bool) { return r.Value(f) })
}

// LegacyValues 按字段投影为扁平数组，缺失值用旧接口的占位值填充
func (rs *ResultSet) LegacyValues(f Field) []float64 {
	missing := f.LegacyMissing()
	return lo.Map(rs.Values(f), func(v *float64, _ int) float64 {
		if v == nil {
			return missing
		}
		return *v
	})
}
