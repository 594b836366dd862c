package main

import (
	"fmt"
	"os"
	"time"

	"git.fiblab.net/sim/accessibility/analyst"
	"git.fiblab.net/sim/accessibility/router"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

type RequestConfig struct {
	DateTime  time.Time     `yaml:"dateTime"`
	ArriveBy  bool          `yaml:"arriveBy"`
	WalkSpeed float64       `yaml:"walkSpeed" validate:"gte=0"` // 0表示默认步速
	MaxTime   time.Duration `yaml:"maxTime" validate:"gte=0"`

	// 为空时不限制换乘
	MaxTransfers     *int          `yaml:"maxTransfers" validate:"omitempty,gte=0"`
	ClampInitialWait time.Duration `yaml:"clampInitialWait" validate:"gte=0"`

	// 需要evalItineraries
	Cutoff          time.Time `yaml:"cutoff"`
	EvalItineraries bool      `yaml:"evalItineraries"`
}

// IndicatorConfig 一个聚合或累加指标
type IndicatorConfig struct {
	Name string `yaml:"name" validate:"required"`
	Kind string `yaml:"kind" validate:"required"`
	// 聚合器：目标的权重字段；累加器：root的amount字段。为空时使用input
	Field          string `yaml:"field"`
	analyst.Params `yaml:",inline"`
}

type Config struct {
	// 路网、人口和输出位置 [format: {fspath} or {db}.{col}]
	Network      string `yaml:"network" validate:"required"`
	Origins      string `yaml:"origins" validate:"required"`
	Destinations string `yaml:"destinations"` // 为空时与origins相同
	Output       string `yaml:"output"`       // 为空时不保存
	// 运行前应用的边权修改，为空时不修改
	EdgeStatuses string `yaml:"edgeStatuses"`
	// 指标未指定field时使用的人口字段，为空时使用input
	Input string `yaml:"input"`

	MaxSnapDistance float64       `yaml:"maxSnapDistance" validate:"gte=0"`
	Request         RequestConfig `yaml:"request"`
	Threads         int           `yaml:"threads" validate:"gte=0"`
	LogProgress     int           `yaml:"logProgress" validate:"gte=0"`

	Aggregators  []IndicatorConfig `yaml:"aggregators" validate:"dive"`
	Accumulators []IndicatorConfig `yaml:"accumulators" validate:"dive"`
}

// LoadConfig 读取并校验运行配置
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("decode config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) Validate() error {
	v := validator.New()
	if err := v.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	for _, ind := range c.Aggregators {
		if _, err := analyst.ParseAggregatorKind(ind.Kind); err != nil {
			return fmt.Errorf("aggregator %s: %w", ind.Name, err)
		}
	}
	for _, ind := range c.Accumulators {
		if _, err := analyst.ParseAccumulatorKind(ind.Kind); err != nil {
			return fmt.Errorf("accumulator %s: %w", ind.Name, err)
		}
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.Destinations == "" {
		c.Destinations = c.Origins
	}
	for i := range c.Aggregators {
		if c.Aggregators[i].Field == "" {
			c.Aggregators[i].Field = c.Input
		}
	}
	for i := range c.Accumulators {
		if c.Accumulators[i].Field == "" {
			c.Accumulators[i].Field = c.Input
		}
	}
	if c.Request.WalkSpeed == 0 {
		c.Request.WalkSpeed = router.PERSON_SPEED
	}
	if c.MaxSnapDistance == 0 {
		c.MaxSnapDistance = router.DEFAULT_MAX_SNAP_DISTANCE
	}
	if c.Request.DateTime.IsZero() {
		c.Request.DateTime = time.Now()
	}
}
