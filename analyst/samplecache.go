package analyst

import (
	"github.com/puzpuzpuz/xsync/v3"
)

type sampleKey struct {
	ind     *Individual
	version uint64
}

// SampleCache 按（个体，路网版本）缓存吸附结果
// 路网版本变化后自动重新吸附，无法吸附的个体缓存为nil
type SampleCache struct {
	m *xsync.MapOf[sampleKey, *Sample]
}

func NewSampleCache() *SampleCache {
	return &SampleCache{m: xsync.NewMapOf[sampleKey, *Sample]()}
}

// Get 返回个体在当前路网版本下的样本，缺失时计算并缓存
// 同一个key的并发首次计算只会执行一次
func (c *SampleCache) Get(ind *Individual, snapper Snapper) *Sample {
	key := sampleKey{ind: ind, version: snapper.Version()}
	s, _ := c.m.LoadOrCompute(key, func() *Sample {
		s, ok := snapper.Snap(ind.Position)
		if !ok {
			return nil
		}
		return s
	})
	return s
}

// Resolve 预先吸附population中所有个体，返回无法吸附的个体数
func (c *SampleCache) Resolve(pop *Population, snapper Snapper) int {
	missing := 0
	for _, ind := range pop.individuals {
		if c.Get(ind, snapper) == nil {
			missing++
		}
	}
	return missing
}

// Evict 删除其他路网版本的缓存
func (c *SampleCache) Evict(keepVersion uint64) {
	c.m.Range(func(k sampleKey, _ *Sample) bool {
		if k.version != keepVersion {
			c.m.Delete(k)
		}
		return true
	})
}

func (c *SampleCache) Len() int {
	return c.m.Size()
}
