package algo

import "errors"

var (
	// 错误：修改不存在的边
	ErrNoEdge = errors.New("edge not exists")
)
