package analyst

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/paulmach/orb"
)

// Mode 出行方式
type Mode uint8

const (
	ModeWalk Mode = iota
	ModeBicycle
	ModeCar
	ModeBus
	ModeTram
	ModeSubway
	ModeRail
	ModeFerry
)

var modeNames = [...]string{
	ModeWalk:    "WALK",
	ModeBicycle: "BICYCLE",
	ModeCar:     "CAR",
	ModeBus:     "BUS",
	ModeTram:    "TRAM",
	ModeSubway:  "SUBWAY",
	ModeRail:    "RAIL",
	ModeFerry:   "FERRY",
}

func (m Mode) String() string {
	if int(m) < len(modeNames) {
		return modeNames[m]
	}
	return fmt.Sprintf("MODE(%d)", m)
}

// 是否是公共交通方式
func (m Mode) IsTransit() bool {
	return m >= ModeBus
}

func ParseMode(s string) (Mode, error) {
	name := strings.ToUpper(strings.TrimSpace(s))
	for i, n := range modeNames {
		if n == name {
			return Mode(i), nil
		}
	}
	return 0, fmt.Errorf("%w: unknown mode %q", ErrInvalidParameter, s)
}

// VertexState 最短路树中某个点的状态
type VertexState struct {
	ActiveTime   float64   // 从root出发累计的用时（s）
	WalkDistance float64   // 累计步行距离（m）
	Boardings    int       // 上车次数，0表示纯步行
	Time         time.Time // 到达（depart-at）或出发（arrive-by）该点的时刻
}

// Leg 行程中的一段
type Leg struct {
	Mode      Mode
	Distance  float64
	StartTime time.Time
	EndTime   time.Time
}

// Itinerary 重建出的完整行程
type Itinerary struct {
	StartTime       time.Time
	EndTime         time.Time
	WaitingTime     time.Duration
	ElevationGained float64
	ElevationLost   float64
	Legs            []Leg
}

// Reachability 一次搜索的结果（以root为根的最短路树），只读
type Reachability interface {
	// 点未被搜索到时返回false
	State(vertex int) (VertexState, bool)
	// 重建到vertex的行程，起终点相同时返回ErrTrivialPath
	Itinerary(vertex int) (*Itinerary, error)
	ArriveBy() bool
	WalkSpeed() float64
	NetworkVersion() uint64
}

// SearchRequest 单次搜索的请求模板，按值拷贝后绑定root
type SearchRequest struct {
	From      orb.Point
	To        orb.Point
	DateTime  time.Time
	ArriveBy  bool
	WalkSpeed float64
	// 最长搜索用时，0表示不限
	MaxTime time.Duration
	// 最多换乘次数，nil表示不限
	MaxTransfers *int
	// 第一次上车等待时间的上限，0表示不限
	ClampInitialWait time.Duration
}

// Snapper 将坐标吸附到路网上
type Snapper interface {
	// 找不到附近的路网点时返回false
	Snap(p orb.Point) (*Sample, bool)
	// 路网版本，路网重新加载后改变
	Version() uint64
}

// Searcher 外部最短路搜索
type Searcher interface {
	// root附近没有路网时返回的错误包含ErrNoNearbyNetwork
	Search(ctx context.Context, req SearchRequest) (Reachability, error)
}

type Network interface {
	Snapper
	Searcher
}
