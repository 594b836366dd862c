package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"runtime"
	"slices"
	"time"

	"git.fiblab.net/sim/accessibility/analyst"
	"git.fiblab.net/sim/accessibility/router"
	"github.com/paulmach/orb"
	"github.com/sirupsen/logrus"
)

var (
	benchmarkOrigins      = flag.Int("benchmark.origins", 200, "the random origin count for benchmark")
	benchmarkDestinations = flag.Int("benchmark.destinations", 1000, "the random destination count for benchmark")
	benchmarkSeed         = flag.Int64("benchmark.seed", 0, "the seed for benchmark")
	benchmarkCPU          = flag.Int("benchmark.cpu", 1, "the max cpu count for benchmark")
)

// randomPopulation 在外包矩形内均匀随机生成个体
func randomPopulation(e *rand.Rand, prefix string, n int, bound orb.Bound) *analyst.Population {
	individuals := make([]*analyst.Individual, n)
	for i := range individuals {
		individuals[i] = &analyst.Individual{
			ID: fmt.Sprintf("%s%d", prefix, i),
			Position: orb.Point{
				bound.Min.Lon() + e.Float64()*(bound.Max.Lon()-bound.Min.Lon()),
				bound.Min.Lat() + e.Float64()*(bound.Max.Lat()-bound.Min.Lat()),
			},
			Input: 1,
		}
	}
	return analyst.NewPopulation(individuals)
}

// diffResults 两次运行中结果不同的root数
func diffResults(a, b []*analyst.ResultSet) int {
	if len(a) != len(b) {
		return max(len(a), len(b))
	}
	diff := 0
	for i := range a {
		if (a[i] == nil) != (b[i] == nil) {
			diff++
			continue
		}
		if a[i] == nil {
			continue
		}
		if !slices.Equal(a[i].LegacyValues(analyst.FieldTravelTime), b[i].LegacyValues(analyst.FieldTravelTime)) ||
			!slices.Equal(a[i].LegacyValues(analyst.FieldBoardings), b[i].LegacyValues(analyst.FieldBoardings)) {
			diff++
		}
	}
	return diff
}

// runBenchmark 以1..benchmark.cpu个线程分别运行同一批随机请求，比较耗时并检查结果一致
func runBenchmark(ctx context.Context, cfg *Config, network *router.Network) {
	log.Logger.SetLevel(logrus.WarnLevel)
	// 设置随机种子
	e := rand.New(rand.NewSource(*benchmarkSeed))
	origins := randomPopulation(e, "o", *benchmarkOrigins, network.Bound())
	destinations := randomPopulation(e, "d", *benchmarkDestinations, network.Bound())
	// 设置cpu数量
	runtime.GOMAXPROCS(*benchmarkCPU)

	bench := *cfg
	bench.Aggregators = nil
	bench.Accumulators = nil
	bench.LogProgress = 0
	var baseline []*analyst.ResultSet
	for cpu := 1; cpu <= *benchmarkCPU; cpu++ {
		bench.Threads = cpu
		evaluator := analyst.NewBatchEvaluator(network, nil)
		start := time.Now()
		results, summary, err := runBatch(ctx, &bench, evaluator, origins, destinations)
		timeCost := time.Since(start)
		if err != nil {
			log.Error("benchmark failed, err:", err)
			return
		}
		diff := 0
		if baseline == nil {
			baseline = results
		} else {
			diff = diffResults(baseline, results)
		}
		log.Warn(
			"benchmark finished", "\n",
			"cpu:", cpu, "\n",
			"roots:", len(results), "\n",
			"time:", timeCost, "\n",
			"avg:", timeCost/time.Duration(max(len(results), 1)), "\n",
			"missing:", summary.Missing, "\n",
			"different from 1 cpu:", diff, "\n",
		)
		if diff > 0 {
			log.Errorf("results with %d cpus differ from 1 cpu at %d roots", cpu, diff)
		}
	}
}
