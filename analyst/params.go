package analyst

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Params 聚合/累加算法参数，按算法取用其中的字段
type Params struct {
	ThresholdSeconds int      `yaml:"threshold" bson:"threshold"`
	Lambda           *float64 `yaml:"lambda" bson:"lambda"`
	HalfLifeMinutes  float64  `yaml:"halfLife" bson:"half_life"`
}

// ThresholdParams 阈值类算法参数
type ThresholdParams struct {
	ThresholdSeconds int `validate:"required,gt=0"`
}

// DecayParams 重力模型参数，Lambda通常为负数，不做符号检查
type DecayParams struct {
	ThresholdSeconds int      `validate:"required,gt=0"`
	Lambda           *float64 `validate:"required"`
}

// HalfLifeParams 半衰期衰减参数
type HalfLifeParams struct {
	HalfLifeMinutes float64 `validate:"required,gt=0"`
}

func (p Params) threshold() ThresholdParams {
	return ThresholdParams{ThresholdSeconds: p.ThresholdSeconds}
}

func (p Params) decay() DecayParams {
	return DecayParams{ThresholdSeconds: p.ThresholdSeconds, Lambda: p.Lambda}
}

func (p Params) halfLife() HalfLifeParams {
	return HalfLifeParams{HalfLifeMinutes: p.HalfLifeMinutes}
}

// checkParams 校验参数结构体
// 缺少必需字段返回ErrMissingParameter，取值非法返回ErrInvalidParameter
func checkParams(p any) error {
	err := validate.Struct(p)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", ErrInvalidParameter, err)
	}
	missing := make([]string, 0)
	invalid := make([]string, 0)
	for _, fe := range verrs {
		if fe.Tag() == "required" {
			missing = append(missing, fe.Field())
		} else {
			invalid = append(invalid, fmt.Sprintf("%s (%s=%s)", fe.Field(), fe.Tag(), fe.Param()))
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingParameter, strings.Join(missing, ", "))
	}
	return fmt.Errorf("%w: %s", ErrInvalidParameter, strings.Join(invalid, ", "))
}
