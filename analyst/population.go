package analyst

import (
	"fmt"
	"io"
	"slices"

	"github.com/paulmach/orb"
	"github.com/samber/lo"
	"gopkg.in/yaml.v3"
)

// Individual 人口中的一个个体（起点/终点），创建后不可修改
type Individual struct {
	ID       string
	Position orb.Point // lon, lat
	// 默认权重（如人口数）
	Input float64
	// 其他可选的权重字段
	Data map[string]float64
}

// Population 有序的个体集合，下标即身份，创建后不再变化
type Population struct {
	individuals []*Individual
}

func NewPopulation(individuals []*Individual) *Population {
	return &Population{individuals: append([]*Individual(nil), individuals...)}
}

func (p *Population) Len() int {
	return len(p.individuals)
}

func (p *Population) Get(i int) *Individual {
	return p.individuals[i]
}

// Individuals 返回副本，调整顺序不影响下标
func (p *Population) Individuals() []*Individual {
	return slices.Clone(p.individuals)
}

// Weights 按字段取出与下标对齐的权重，field为空时使用Input
func (p *Population) Weights(field string) ([]float64, error) {
	if field == "" {
		return lo.Map(p.individuals, func(ind *Individual, _ int) float64 {
			return ind.Input
		}), nil
	}
	weights := make([]float64, len(p.individuals))
	for i, ind := range p.individuals {
		v, ok := ind.Data[field]
		if !ok {
			return nil, fmt.Errorf("%w: individual %s has no field %q", ErrMissingWeights, ind.ID, field)
		}
		weights[i] = v
	}
	return weights, nil
}

// IndividualDoc 个体的序列化形式（YAML文件或MongoDB文档）
type IndividualDoc struct {
	ID    string             `yaml:"id" bson:"id"`
	Lon   float64            `yaml:"lon" bson:"lon"`
	Lat   float64            `yaml:"lat" bson:"lat"`
	Input float64            `yaml:"input" bson:"input"`
	Data  map[string]float64 `yaml:"data,omitempty" bson:"data,omitempty"`
}

func (d IndividualDoc) Individual() *Individual {
	return &Individual{
		ID:       d.ID,
		Position: orb.Point{d.Lon, d.Lat},
		Input:    d.Input,
		Data:     d.Data,
	}
}

// ReadPopulation 从YAML列表中读取人口，保持文件中的顺序
func ReadPopulation(r io.Reader) (*Population, error) {
	var docs []IndividualDoc
	if err := yaml.NewDecoder(r).Decode(&docs); err != nil {
		return nil, fmt.Errorf("decode population: %w", err)
	}
	return NewPopulation(lo.Map(docs, func(d IndividualDoc, _ int) *Individual {
		return d.Individual()
	})), nil
}
