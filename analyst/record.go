package analyst

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/samber/lo"
)

// Record 一个样本在一个root下的评估结果，创建后不再修改
// 不可达用nil表示，而不是填充特殊值
type Record struct {
	Time            int64   // 用时（s）
	Boardings       int     // 上车次数，0表示纯步行
	WalkDistance    float64 // 步行距离，含接入段（m）
	AccessDistance  float64 // 样本点到路网点的距离（m）
	TimeToItinerary int64   // 接入段步行用时（s）
	// 仅在评估行程时存在
	Itinerary *ItinerarySummary
}

// ItinerarySummary 行程的汇总信息
type ItinerarySummary struct {
	StartTime       time.Time
	ArrivalTime     time.Time
	WaitingTime     time.Duration
	ElevationGained float64
	ElevationLost   float64
	Modes           []Mode  // 去重排序后的出行方式
	Distance        float64 // 各段距离之和（m）
	// 第一段/最后一段公共交通的起止时刻，纯步行时为nil
	StartTransit   *time.Time
	ArrivalTransit *time.Time
}

// TransitTime 公共交通段总跨度，纯步行时返回false
func (s *ItinerarySummary) TransitTime() (time.Duration, bool) {
	if s.StartTransit == nil || s.ArrivalTransit == nil {
		return 0, false
	}
	return s.ArrivalTransit.Sub(*s.StartTransit), true
}

func summarize(it *Itinerary) *ItinerarySummary {
	s := &ItinerarySummary{
		StartTime:       it.StartTime,
		ArrivalTime:     it.EndTime,
		WaitingTime:     it.WaitingTime,
		ElevationGained: it.ElevationGained,
		ElevationLost:   it.ElevationLost,
	}
	for _, leg := range it.Legs {
		s.Distance += leg.Distance
		if !leg.Mode.IsTransit() {
			continue
		}
		if s.StartTransit == nil {
			start := leg.StartTime
			s.StartTransit = &start
		}
		end := leg.EndTime
		s.ArrivalTransit = &end
	}
	s.Modes = lo.Uniq(lo.Map(it.Legs, func(l Leg, _ int) Mode { return l.Mode }))
	slices.Sort(s.Modes)
	return s
}

// Field 结果集可以投影出的数值字段
type Field uint8

const (
	FieldTravelTime Field = iota
	FieldBoardings
	FieldWalkDistance
	FieldStartTime
	FieldArrivalTime
	FieldWaitingTime
	FieldTransitTime
)

var fieldNames = [...]string{
	FieldTravelTime:   "TRAVELTIME",
	FieldBoardings:    "BOARDINGS",
	FieldWalkDistance: "WALKDISTANCE",
	FieldStartTime:    "STARTTIME",
	FieldArrivalTime:  "ARRIVALTIME",
	FieldWaitingTime:  "WAITINGTIME",
	FieldTransitTime:  "TRANSITTIME",
}

func (f Field) String() string {
	if int(f) < len(fieldNames) {
		return fieldNames[f]
	}
	return fmt.Sprintf("FIELD(%d)", f)
}

func ParseField(s string) (Field, error) {
	name := strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(s), "_", ""))
	for i, n := range fieldNames {
		if n == name {
			return Field(i), nil
		}
	}
	return 0, fmt.Errorf("%w: unknown result field %q", ErrInvalidParameter, s)
}

// 需要行程信息的字段
func (f Field) needsItinerary() bool {
	switch f {
	case FieldStartTime, FieldArrivalTime, FieldWaitingTime, FieldTransitTime:
		return true
	}
	return false
}

// Value 取出字段值，记录中没有该字段时返回false
// 时刻以unix秒表示，时长以秒表示
func (r *Record) Value(f Field) (float64, bool) {
	if r == nil {
		return 0, false
	}
	if f.needsItinerary() && r.Itinerary == nil {
		return 0, false
	}
	switch f {
	case FieldTravelTime:
		return float64(r.Time), true
	case FieldBoardings:
		return float64(r.Boardings), true
	case FieldWalkDistance:
		return r.WalkDistance, true
	case FieldStartTime:
		return float64(r.Itinerary.StartTime.Unix()), true
	case FieldArrivalTime:
		return float64(r.Itinerary.ArrivalTime.Unix()), true
	case FieldWaitingTime:
		return r.Itinerary.WaitingTime.Seconds(), true
	case FieldTransitTime:
		d, ok := r.Itinerary.TransitTime()
		return d.Seconds(), ok
	}
	return 0, false
}

// 旧接口中不可达的占位值
const (
	legacyMissing          = -1
	legacyMissingBoardings = 255
)

// LegacyMissing 旧的扁平数组接口中不可达对应的值
func (f Field) LegacyMissing() float64 {
	if f == FieldBoardings {
		return legacyMissingBoardings
	}
	return legacyMissing
}

// FormatValue 按旧格式输出字段值，v为nil时输出空串
func FormatValue(f Field, v *float64) string {
	if v == nil {
		return ""
	}
	switch f {
	case FieldTravelTime, FieldWaitingTime, FieldTransitTime:
		secs := int64(*v)
		return fmt.Sprintf("%02d:%02d:%02d", secs/3600, secs%3600/60, secs%60)
	case FieldStartTime, FieldArrivalTime:
		return time.Unix(int64(*v), 0).UTC().Format(time.RFC3339)
	case FieldBoardings:
		return fmt.Sprintf("%d", int64(*v))
	default:
		return fmt.Sprintf("%.1f", *v)
	}
}
