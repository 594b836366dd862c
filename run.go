package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"git.fiblab.net/sim/accessibility/analyst"
	"github.com/google/uuid"
	"github.com/samber/lo"
)

// Summary 一次批量运行的汇总
type Summary struct {
	RunID    string
	Start    time.Time
	Duration time.Duration
	ArriveBy bool
	// root与目标的id，到达模式下root为终点
	Roots   []string
	Targets []string
	// 聚合指标名 -> 每个root的值，root无结果时为nil
	Aggregates map[string][]*float64
	// 累加指标名 -> 每个目标的值
	Surfaces map[string][]float64
	// 结果为nil的root数
	Missing int
}

type aggregatorTask struct {
	name  string
	field string
	agg   analyst.Aggregator
}

type accumulatorTask struct {
	name    string
	acc     analyst.Accumulator
	amounts []float64
	surface *analyst.Surface
}

// buildRequest 由配置构造批量请求
func buildRequest(cfg *Config, origins, destinations *analyst.Population) *analyst.Request {
	return &analyst.Request{
		Origins:          origins,
		Destinations:     destinations,
		DateTime:         cfg.Request.DateTime,
		ArriveBy:         cfg.Request.ArriveBy,
		WalkSpeed:        cfg.Request.WalkSpeed,
		MaxTime:          cfg.Request.MaxTime,
		MaxTransfers:     cfg.Request.MaxTransfers,
		ClampInitialWait: cfg.Request.ClampInitialWait,
		Cutoff:           cfg.Request.Cutoff,
		EvalItineraries:  cfg.Request.EvalItineraries,
		Threads:          cfg.Threads,
		LogProgress:      cfg.LogProgress,
	}
}

func buildAggregators(cfg *Config) ([]aggregatorTask, error) {
	tasks := make([]aggregatorTask, 0, len(cfg.Aggregators))
	for _, ind := range cfg.Aggregators {
		kind, err := analyst.ParseAggregatorKind(ind.Kind)
		if err != nil {
			return nil, fmt.Errorf("aggregator %s: %w", ind.Name, err)
		}
		agg, err := analyst.NewAggregator(kind, ind.Params)
		if err != nil {
			return nil, fmt.Errorf("aggregator %s: %w", ind.Name, err)
		}
		tasks = append(tasks, aggregatorTask{name: ind.Name, field: ind.Field, agg: agg})
	}
	return tasks, nil
}

// buildAccumulators 每个root的累加量取自root自身的字段
func buildAccumulators(cfg *Config, roots, targets *analyst.Population) ([]accumulatorTask, error) {
	tasks := make([]accumulatorTask, 0, len(cfg.Accumulators))
	for _, ind := range cfg.Accumulators {
		kind, err := analyst.ParseAccumulatorKind(ind.Kind)
		if err != nil {
			return nil, fmt.Errorf("accumulator %s: %w", ind.Name, err)
		}
		acc, err := analyst.NewAccumulator(kind, ind.Params)
		if err != nil {
			return nil, fmt.Errorf("accumulator %s: %w", ind.Name, err)
		}
		amounts, err := roots.Weights(ind.Field)
		if err != nil {
			return nil, fmt.Errorf("accumulator %s: %w", ind.Name, err)
		}
		tasks = append(tasks, accumulatorTask{
			name:    ind.Name,
			acc:     acc,
			amounts: amounts,
			surface: analyst.NewSurface(targets),
		})
	}
	return tasks, nil
}

// runBatch 执行一次批量评估，累加指标随结果到达即时计算，聚合指标在全部完成后计算
// 批处理被取消时返回已完成部分的汇总和*analyst.PartialResultsError
func runBatch(
	ctx context.Context, cfg *Config, evaluator *analyst.BatchEvaluator,
	origins, destinations *analyst.Population,
) ([]*analyst.ResultSet, *Summary, error) {
	req := buildRequest(cfg, origins, destinations)
	roots, targets := origins, destinations
	if req.ArriveBy {
		roots, targets = destinations, origins
	}
	aggregators, err := buildAggregators(cfg)
	if err != nil {
		return nil, nil, err
	}
	accumulators, err := buildAccumulators(cfg, roots, targets)
	if err != nil {
		return nil, nil, err
	}

	summary := &Summary{
		RunID:      uuid.NewString(),
		Start:      time.Now(),
		ArriveBy:   req.ArriveBy,
		Roots:      ids(roots),
		Targets:    ids(targets),
		Aggregates: make(map[string][]*float64, len(aggregators)),
		Surfaces:   make(map[string][]float64, len(accumulators)),
	}
	log.Infof("run %s: %d origins, %d destinations", summary.RunID, origins.Len(), destinations.Len())

	accErrs := make([]error, 0)
	results, batchErr := evaluator.EvaluateManyToMany(ctx, req, func(i int, rs *analyst.ResultSet) {
		for _, t := range accumulators {
			if err := t.acc.Accumulate(t.amounts[i], rs, t.surface); err != nil {
				accErrs = append(accErrs, fmt.Errorf("accumulator %s at root %d: %w", t.name, i, err))
			}
		}
	})
	if results == nil {
		return nil, nil, batchErr
	}
	summary.Duration = time.Since(summary.Start)
	summary.Missing = lo.CountBy(results, func(rs *analyst.ResultSet) bool { return rs == nil })

	for _, t := range aggregators {
		values := make([]*float64, len(results))
		for i, rs := range results {
			if rs == nil {
				continue
			}
			v, err := analyst.AggregateField(t.agg, rs, t.field)
			if err != nil {
				return results, summary, fmt.Errorf("aggregator %s: %w", t.name, err)
			}
			values[i] = &v
		}
		summary.Aggregates[t.name] = values
	}
	for _, t := range accumulators {
		summary.Surfaces[t.name] = t.surface.Values()
	}
	log.Infof("run %s finished in %v, %d/%d roots without result", summary.RunID, summary.Duration, summary.Missing, len(results))
	return results, summary, errors.Join(batchErr, errors.Join(accErrs...))
}

func ids(pop *analyst.Population) []string {
	return lo.Map(pop.Individuals(), func(ind *analyst.Individual, _ int) string {
		return ind.ID
	})
}
