package analyst

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"
)

// Request 多对多批量评估请求
type Request struct {
	Origins      *Population `validate:"required"`
	Destinations *Population `validate:"required"`
	// 跳过的起点/终点，nil表示不跳过
	SkipOrigins      []bool
	SkipDestinations []bool

	DateTime  time.Time
	ArriveBy  bool
	WalkSpeed float64 `validate:"required,gt=0"` // m/s
	// 最长搜索用时，0表示不限
	MaxTime time.Duration `validate:"gte=0"`
	// 最多换乘次数，nil表示不限
	MaxTransfers *int `validate:"omitempty,gte=0"`
	// 第一次上车等待时间的上限，0表示不限
	ClampInitialWait time.Duration `validate:"gte=0"`
	// 出发模式下最晚出发时刻，到达模式下最晚到达时刻，需要EvalItineraries
	Cutoff          time.Time
	EvalItineraries bool

	// 线程数，0表示使用全部CPU
	Threads int `validate:"gte=0"`
	// 每完成N个root打印一次进度，0表示不打印
	LogProgress int `validate:"gte=0"`
}

// Validate 检查请求，walk speed未设置时返回ErrMissingParameter
func (r *Request) Validate() error {
	if err := checkParams(r); err != nil {
		return err
	}
	if !r.Cutoff.IsZero() && !r.EvalItineraries {
		return fmt.Errorf("%w: cutoff time requires itinerary evaluation", ErrInvalidParameter)
	}
	if r.SkipOrigins != nil && len(r.SkipOrigins) != r.Origins.Len() {
		return fmt.Errorf("%w: %d origin skip flags for %d origins", ErrInvalidParameter, len(r.SkipOrigins), r.Origins.Len())
	}
	if r.SkipDestinations != nil && len(r.SkipDestinations) != r.Destinations.Len() {
		return fmt.Errorf("%w: %d destination skip flags for %d destinations", ErrInvalidParameter, len(r.SkipDestinations), r.Destinations.Len())
	}
	return nil
}

// roots 到达模式下以终点为root
func (r *Request) roots() (roots, targets *Population, rootSkip, targetSkip []bool) {
	if r.ArriveBy {
		return r.Destinations, r.Origins, r.SkipDestinations, r.SkipOrigins
	}
	return r.Origins, r.Destinations, r.SkipOrigins, r.SkipDestinations
}

func (r *Request) template() SearchRequest {
	return SearchRequest{
		DateTime:  r.DateTime,
		ArriveBy:  r.ArriveBy,
		WalkSpeed: r.WalkSpeed,
		MaxTime:   r.MaxTime,

		MaxTransfers:     r.MaxTransfers,
		ClampInitialWait: r.ClampInitialWait,
	}
}

// RunState 批处理运行状态
type RunState int32

const (
	StateIdle RunState = iota
	StateDispatching
	StateCollecting
	StateDone
	StateCancelled
)

func (s RunState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateDispatching:
		return "dispatching"
	case StateCollecting:
		return "collecting"
	case StateDone:
		return "done"
	case StateCancelled:
		return "cancelled"
	}
	return fmt.Sprintf("state(%d)", s)
}

// ErrBatchRunning 同一个BatchEvaluator上已有批处理在运行
var ErrBatchRunning = errors.New("batch evaluation already running")

// BatchEvaluator 对每个root执行一次搜索并评估全部目标
// 路网在运行期间只读，由所有worker共享
type BatchEvaluator struct {
	network Network
	samples *SampleCache
	state   atomic.Int32
}

func NewBatchEvaluator(network Network, samples *SampleCache) *BatchEvaluator {
	if samples == nil {
		samples = NewSampleCache()
	}
	return &BatchEvaluator{network: network, samples: samples}
}

func (b *BatchEvaluator) State() RunState {
	return RunState(b.state.Load())
}

func (b *BatchEvaluator) begin() bool {
	for {
		cur := b.state.Load()
		if s := RunState(cur); s == StateDispatching || s == StateCollecting {
			return false
		}
		if b.state.CompareAndSwap(cur, int32(StateDispatching)) {
			return true
		}
	}
}

// 线程池大小不超过可用CPU数
func poolSize(threads int) int {
	procs := runtime.GOMAXPROCS(0)
	if threads <= 0 {
		return procs
	}
	if threads > procs {
		log.Warnf("%d threads requested but only %d available, using %d", threads, procs, procs)
		return procs
	}
	return threads
}

type taskResult struct {
	index int
	rs    *ResultSet
	err   error
	state string
}

// EvaluateManyToMany 对每个root执行搜索，返回与root population对齐的结果数组
// root附近没有路网时对应位置为nil；其他失败在全部完成后合并返回
// ctx取消后不再派发新的root，已在运行的root完成后返回*PartialResultsError
// onResult在收集goroutine上串行调用，可用于累加到共享的Surface
func (b *BatchEvaluator) EvaluateManyToMany(
	ctx context.Context, req *Request, onResult func(i int, rs *ResultSet),
) ([]*ResultSet, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if !b.begin() {
		return nil, ErrBatchRunning
	}
	batchRunning.Inc()
	defer batchRunning.Dec()

	roots, targets, rootSkip, targetSkip := req.roots()
	results := make([]*ResultSet, roots.Len())

	// 预先吸附所有目标，避免worker中重复计算
	version := b.network.Version()
	b.samples.Evict(version)
	if missing := b.samples.Resolve(targets, b.network); missing > 0 {
		log.Warnf("%d/%d targets cannot be snapped to network %d", missing, targets.Len(), version)
	}

	threads := poolSize(req.Threads)
	log.Infof("evaluating %d roots against %d targets with %d threads", roots.Len(), targets.Len(), threads)
	tmpl := req.template()
	opts := EvaluateOptions{
		EvalItineraries: req.EvalItineraries,
		Cutoff:          req.Cutoff,
		Skip:            targetSkip,
	}

	tasks := make(chan int)
	done := make(chan taskResult, threads)
	go func() {
		defer close(tasks)
		for i := range roots.individuals {
			select {
			case tasks <- i:
			case <-ctx.Done():
				return
			}
		}
	}()
	var wg sync.WaitGroup
	wg.Add(threads)
	for w := 0; w < threads; w++ {
		go func() {
			defer wg.Done()
			for i := range tasks {
				if ctx.Err() != nil {
					continue
				}
				if rootSkip != nil && rootSkip[i] {
					done <- taskResult{index: i, state: resultSkipped}
					continue
				}
				// 搜索本身不可中断，这里用不带取消的ctx保证已开始的root完成
				rs, err := b.runTask(context.WithoutCancel(ctx), tmpl, roots.individuals[i], targets, opts)
				done <- classify(i, rs, err)
			}
		}()
	}
	go func() {
		wg.Wait()
		close(done)
	}()

	b.state.Store(int32(StateCollecting))
	completed := 0
	errs := make([]error, 0)
	for res := range done {
		completed++
		rootTotal.WithLabelValues(res.state).Inc()
		switch res.state {
		case resultOK:
			results[res.index] = res.rs
			if onResult != nil {
				onResult(res.index, res.rs)
			}
		case resultNotFound:
			log.Debugf("root %d (%s): no nearby network", res.index, roots.individuals[res.index].ID)
		case resultError:
			taskErr := &TaskError{Root: res.index, ID: roots.individuals[res.index].ID, Err: res.err}
			log.Errorln(taskErr)
			errs = append(errs, taskErr)
		}
		if req.LogProgress > 0 && completed%req.LogProgress == 0 {
			log.Infof("%d/%d roots finished", completed, roots.Len())
		}
	}

	if completed < roots.Len() {
		b.state.Store(int32(StateCancelled))
		log.Warnf("batch cancelled after %d/%d roots", completed, roots.Len())
		cause := errors.Join(append([]error{ctx.Err()}, errs...)...)
		return results, &PartialResultsError{Completed: completed, Total: roots.Len(), Cause: cause}
	}
	b.state.Store(int32(StateDone))
	log.Infof("batch finished: %d roots, %d failed", roots.Len(), len(errs))
	return results, errors.Join(errs...)
}

func classify(i int, rs *ResultSet, err error) taskResult {
	switch {
	case err == nil:
		return taskResult{index: i, rs: rs, state: resultOK}
	case errors.Is(err, ErrNoNearbyNetwork):
		return taskResult{index: i, state: resultNotFound}
	default:
		return taskResult{index: i, err: err, state: resultError}
	}
}

// runTask 以root为端点搜索并评估全部目标
func (b *BatchEvaluator) runTask(
	ctx context.Context, tmpl SearchRequest, root *Individual, targets *Population, opts EvaluateOptions,
) (rs *ResultSet, err error) {
	// panic recover
	defer func() {
		if e := recover(); e != nil {
			rs = nil
			err = fmt.Errorf("panic: evaluate root %s: %v", root.ID, e)
		}
	}()
	start := time.Now()
	defer func() {
		searchDuration.Observe(time.Since(start).Seconds())
	}()

	req := tmpl
	if req.ArriveBy {
		req.To = root.Position
	} else {
		req.From = root.Position
	}
	reach, err := b.network.Search(ctx, req)
	if err != nil {
		return nil, err
	}
	rs = NewResultSet(targets, root)
	if err := rs.EvaluateAgainst(reach, b.network, b.samples, opts); err != nil {
		return nil, err
	}
	return rs, nil
}
