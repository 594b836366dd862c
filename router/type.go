package router

import (
	"git.fiblab.net/sim/accessibility/analyst"
)

// NodeData 路网点
type NodeData struct {
	ID        int64   `yaml:"id" bson:"id"`
	Lon       float64 `yaml:"lon" bson:"lon"`
	Lat       float64 `yaml:"lat" bson:"lat"`
	Elevation float64 `yaml:"elevation" bson:"elevation"`
}

// EdgeData 路网边
// 步行边按长度与步速计算用时，公交边使用Duration，上车时额外等待半个发车间隔
type EdgeData struct {
	From          int64   `yaml:"from" bson:"from"`
	To            int64   `yaml:"to" bson:"to"`
	Mode          string  `yaml:"mode" bson:"mode"` // 为空时为WALK
	Line          string  `yaml:"line" bson:"line"`
	Length        float64 `yaml:"length" bson:"length"`     // m
	Duration      float64 `yaml:"duration" bson:"duration"` // s
	Headway       float64 `yaml:"headway" bson:"headway"`   // s
	Bidirectional bool    `yaml:"bidirectional" bson:"bidirectional"`
}

type NetworkData struct {
	Nodes []NodeData `yaml:"nodes" bson:"nodes"`
	Edges []EdgeData `yaml:"edges" bson:"edges"`
}

type NodeAttr struct {
	ID        int64
	Elevation float64
}

type EdgeAttr struct {
	Mode     analyst.Mode
	Line     string
	Length   float64
	Duration float64
	Headway  float64
}

// 搜索时沿最短路树传播的状态
type label struct {
	walkDistance float64
	boardings    int
	mode         analyst.Mode
	line         string
}

// EdgeStatus 运行期修改的边权，步行边修改长度，公交边修改运行时间
type EdgeStatus struct {
	From          int64   `yaml:"from" bson:"from"`
	To            int64   `yaml:"to" bson:"to"`
	Length        float64 `yaml:"length" bson:"length"`     // m
	Duration      float64 `yaml:"duration" bson:"duration"` // s
	Bidirectional bool    `yaml:"bidirectional" bson:"bidirectional"`
}
