package analyst

import (
	"fmt"
	"math"
	"strings"
)

// Surface 由多个root累加得到的可达性面，按下标与population对齐
type Surface struct {
	population *Population
	values     []float64
}

func NewSurface(pop *Population) *Surface {
	return &Surface{population: pop, values: make([]float64, pop.Len())}
}

func (s *Surface) Population() *Population {
	return s.population
}

func (s *Surface) Value(i int) float64 {
	return s.values[i]
}

// Values 返回内部数组的拷贝
func (s *Surface) Values() []float64 {
	return append([]float64(nil), s.values...)
}

// Accumulator 将root的amount按source中的可达结果分配到累加面上
// 累加器本身不加锁，并发调用需要由调用方串行化
type Accumulator interface {
	Accumulate(amount float64, source *ResultSet, accumulated *Surface) error
}

// AccumulatorKind 累加算法
type AccumulatorKind uint8

const (
	AccThreshold AccumulatorKind = iota
	AccDecay
)

func ParseAccumulatorKind(s string) (AccumulatorKind, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "THRESHOLD":
		return AccThreshold, nil
	case "DECAY":
		return AccDecay, nil
	}
	return 0, fmt.Errorf("%w: unknown accumulator %q", ErrInvalidParameter, s)
}

func (k AccumulatorKind) String() string {
	switch k {
	case AccThreshold:
		return "THRESHOLD"
	case AccDecay:
		return "DECAY"
	}
	return fmt.Sprintf("ACCUMULATOR(%d)", k)
}

func NewAccumulator(kind AccumulatorKind, p Params) (Accumulator, error) {
	switch kind {
	case AccThreshold:
		return NewThresholdAccumulator(p.threshold())
	case AccDecay:
		return NewDecayAccumulator(p.halfLife())
	}
	return nil, fmt.Errorf("%w: unknown accumulator %d", ErrInvalidParameter, kind)
}

func checkSurface(source *ResultSet, accumulated *Surface) error {
	if source.population != accumulated.population {
		return ErrPopulationMismatch
	}
	return nil
}

// ThresholdAccumulator 阈值内可达的个体加上amount
type ThresholdAccumulator struct {
	threshold int64
}

func NewThresholdAccumulator(p ThresholdParams) (*ThresholdAccumulator, error) {
	if err := checkParams(p); err != nil {
		return nil, err
	}
	return &ThresholdAccumulator{threshold: int64(p.ThresholdSeconds)}, nil
}

func (a *ThresholdAccumulator) Accumulate(amount float64, source *ResultSet, accumulated *Surface) error {
	if source.Len() == 0 {
		return nil
	}
	if err := checkSurface(source, accumulated); err != nil {
		return err
	}
	for i, rec := range source.records {
		if rec != nil && rec.Time < a.threshold {
			accumulated.values[i] += amount
		}
	}
	return nil
}

// DecayAccumulator 按半衰期衰减：amount * exp(-ln2 * t / halfLife)
type DecayAccumulator struct {
	halfLifeSeconds float64
}

func NewDecayAccumulator(p HalfLifeParams) (*DecayAccumulator, error) {
	if err := checkParams(p); err != nil {
		return nil, err
	}
	return &DecayAccumulator{halfLifeSeconds: p.HalfLifeMinutes * 60}, nil
}

func (a *DecayAccumulator) Accumulate(amount float64, source *ResultSet, accumulated *Surface) error {
	if source.Len() == 0 {
		return nil
	}
	if err := checkSurface(source, accumulated); err != nil {
		return err
	}
	for i, rec := range source.records {
		if rec == nil || rec.Time < 0 {
			continue
		}
		accumulated.values[i] += amount * math.Exp(-math.Ln2*float64(rec.Time)/a.halfLifeSeconds)
	}
	return nil
}
