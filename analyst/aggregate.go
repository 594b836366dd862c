package analyst

import (
	"fmt"
	"math"
	"strings"
)

// Aggregator 将一个结果集归约为一个指标
// weights按下标与结果集的population对齐，不可达的个体贡献为0
type Aggregator interface {
	Aggregate(rs *ResultSet, weights []float64) (float64, error)
}

// AggregatorKind 聚合算法
type AggregatorKind uint8

const (
	AggThresholdSum AggregatorKind = iota
	AggWeightedAverage
	AggThresholdCumulative
	AggDecay
)

var aggregatorNames = map[string]AggregatorKind{
	"THRESHOLD_SUM":        AggThresholdSum,
	"WEIGHTED_AVERAGE":     AggWeightedAverage,
	"THRESHOLD_CUMULATIVE": AggThresholdCumulative,
	"DECAY":                AggDecay,
}

func ParseAggregatorKind(s string) (AggregatorKind, error) {
	if k, ok := aggregatorNames[strings.ToUpper(strings.TrimSpace(s))]; ok {
		return k, nil
	}
	return 0, fmt.Errorf("%w: unknown aggregator %q", ErrInvalidParameter, s)
}

func (k AggregatorKind) String() string {
	for name, v := range aggregatorNames {
		if v == k {
			return name
		}
	}
	return fmt.Sprintf("AGGREGATOR(%d)", k)
}

// NewAggregator 按算法构造聚合器，参数缺失时返回ErrMissingParameter
func NewAggregator(kind AggregatorKind, p Params) (Aggregator, error) {
	switch kind {
	case AggThresholdSum:
		return NewThresholdSumAggregator(p.threshold())
	case AggWeightedAverage:
		return WeightedAverageAggregator{}, nil
	case AggThresholdCumulative:
		return NewThresholdCumulativeAggregator(p.threshold())
	case AggDecay:
		return NewDecayAggregator(p.decay())
	}
	return nil, fmt.Errorf("%w: unknown aggregator %d", ErrInvalidParameter, kind)
}

func checkWeights(rs *ResultSet, weights []float64) error {
	if len(weights) != rs.Len() {
		return fmt.Errorf("%w: %d weights for %d individuals", ErrMissingWeights, len(weights), rs.Len())
	}
	return nil
}

// ThresholdSumAggregator 阈值内（严格小于）的权重之和
type ThresholdSumAggregator struct {
	threshold int64
}

func NewThresholdSumAggregator(p ThresholdParams) (*ThresholdSumAggregator, error) {
	if err := checkParams(p); err != nil {
		return nil, err
	}
	return &ThresholdSumAggregator{threshold: int64(p.ThresholdSeconds)}, nil
}

func (a *ThresholdSumAggregator) Aggregate(rs *ResultSet, weights []float64) (float64, error) {
	if err := checkWeights(rs, weights); err != nil {
		return 0, err
	}
	sum := 0.0
	for i, rec := range rs.records {
		if rec != nil && rec.Time < a.threshold {
			sum += weights[i]
		}
	}
	return sum, nil
}

// WeightedAverageAggregator 可达个体用时的加权平均，分母为0时返回0
type WeightedAverageAggregator struct{}

func (WeightedAverageAggregator) Aggregate(rs *ResultSet, weights []float64) (float64, error) {
	if err := checkWeights(rs, weights); err != nil {
		return 0, err
	}
	num, den := 0.0, 0.0
	for i, rec := range rs.records {
		if rec == nil {
			continue
		}
		num += weights[i] * float64(rec.Time)
		den += weights[i]
	}
	if den == 0 {
		return 0, nil
	}
	return num / den, nil
}

// ThresholdCumulativeAggregator 权重随用时线性衰减，到阈值时为0
type ThresholdCumulativeAggregator struct {
	threshold int64
}

func NewThresholdCumulativeAggregator(p ThresholdParams) (*ThresholdCumulativeAggregator, error) {
	if err := checkParams(p); err != nil {
		return nil, err
	}
	return &ThresholdCumulativeAggregator{threshold: int64(p.ThresholdSeconds)}, nil
}

func (a *ThresholdCumulativeAggregator) Aggregate(rs *ResultSet, weights []float64) (float64, error) {
	if err := checkWeights(rs, weights); err != nil {
		return 0, err
	}
	sum := 0.0
	thr := float64(a.threshold)
	for i, rec := range rs.records {
		if rec == nil || rec.Time >= a.threshold {
			continue
		}
		sum += weights[i] * (1 - float64(rec.Time)/thr)
	}
	return sum, nil
}

// DecayAggregator 重力模型：0 < t < threshold 时贡献 w * exp(lambda * t/60)
type DecayAggregator struct {
	threshold int64
	lambda    float64
}

func NewDecayAggregator(p DecayParams) (*DecayAggregator, error) {
	if err := checkParams(p); err != nil {
		return nil, err
	}
	return &DecayAggregator{threshold: int64(p.ThresholdSeconds), lambda: *p.Lambda}, nil
}

func (a *DecayAggregator) Aggregate(rs *ResultSet, weights []float64) (float64, error) {
	if err := checkWeights(rs, weights); err != nil {
		return 0, err
	}
	sum := 0.0
	for i, rec := range rs.records {
		if rec == nil || rec.Time <= 0 || rec.Time >= a.threshold {
			continue
		}
		sum += weights[i] * math.Exp(a.lambda*float64(rec.Time)/60)
	}
	return sum, nil
}

// AggregateField 使用population中的字段作为权重进行聚合，field为空时使用Input
func AggregateField(agg Aggregator, rs *ResultSet, field string) (float64, error) {
	weights, err := rs.population.Weights(field)
	if err != nil {
		return 0, err
	}
	return agg.Aggregate(rs, weights)
}
