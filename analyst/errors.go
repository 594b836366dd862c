package analyst

import (
	"errors"
	"fmt"
)

var (
	// 两个结果集不属于同一个population（按身份比较）
	ErrPopulationMismatch = errors.New("invalid argument: result sets range over different populations")
	// 聚合/累加参数缺失
	ErrMissingParameter = errors.New("missing required parameter")
	// 参数取值非法
	ErrInvalidParameter = errors.New("invalid parameter")
	// 权重数组与population不对齐
	ErrMissingWeights = errors.New("weights do not align with population")
	// root附近没有可接入的路网
	ErrNoNearbyNetwork = errors.New("no nearby network vertex")
	// 起终点相同，没有可重建的路径
	ErrTrivialPath = errors.New("trivial path")
	// 可达性结构与sample所属的路网版本不一致
	ErrNetworkMismatch = errors.New("reachability was computed on a different network version")
	// 批处理被中断
	ErrCancelled = errors.New("batch cancelled")
)

// 单个root的搜索或评估失败
type TaskError struct {
	Root int
	ID   string
	Err  error
}

func (e *TaskError) Error() string {
	return fmt.Sprintf("root %d (%s): %v", e.Root, e.ID, e.Err)
}

func (e *TaskError) Unwrap() error {
	return e.Err
}

// 批处理在所有root完成前停止
// 同时返回的结果数组仍然有效，未评估的root对应nil
type PartialResultsError struct {
	Completed int
	Total     int
	Cause     error
}

func (e *PartialResultsError) Error() string {
	return fmt.Sprintf("batch cancelled after %d/%d roots: %v", e.Completed, e.Total, e.Cause)
}

func (e *PartialResultsError) Unwrap() []error {
	return []error{ErrCancelled, e.Cause}
}
