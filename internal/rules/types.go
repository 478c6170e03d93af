// Package rules 定义风控规则评估引擎
package rules

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/saturn-mousehunter/saturn-risk/internal/model"
)

var (
	// ErrUnknownRuleType 没有评估器能处理的规则类型
	ErrUnknownRuleType = errors.New("unknown rule type")
	// ErrFieldMissing 指标数据缺少规则配置要求的字段
	ErrFieldMissing = errors.New("metric field missing")
)

// EvalResult 单条规则的评估结果
type EvalResult struct {
	Violated    bool            // 是否违规
	ActualValue decimal.Decimal // 触发字段的实际值
	Detail      string          // 评估说明
}

// NewViolation 创建违规结果
func NewViolation(actual decimal.Decimal, detail string) *EvalResult {
	return &EvalResult{
		Violated:    true,
		ActualValue: actual,
		Detail:      detail,
	}
}

// NewPass 创建通过结果
func NewPass(actual decimal.Decimal) *EvalResult {
	return &EvalResult{ActualValue: actual}
}

// NewSkip 创建跳过结果 (数据不含规则关注的字段)
func NewSkip() *EvalResult {
	return &EvalResult{Detail: "field not present"}
}

// Evaluator 规则评估器接口, 每种规则类型一个实现
type Evaluator interface {
	// Type 返回处理的规则类型
	Type() model.RuleType
	// Evaluate 用指标数据评估规则
	Evaluate(rule *model.RiskRule, data model.JSONMap) (*EvalResult, error)
}

// toDecimal 将指标值转换为 decimal (兼容 JSON 数字、整数和数字字符串)
func toDecimal(v interface{}) (decimal.Decimal, error) {
	switch val := v.(type) {
	case float64:
		return decimal.NewFromFloat(val), nil
	case float32:
		return decimal.NewFromFloat32(val), nil
	case int:
		return decimal.NewFromInt(int64(val)), nil
	case int64:
		return decimal.NewFromInt(val), nil
	case string:
		return decimal.NewFromString(val)
	case decimal.Decimal:
		return val, nil
	case json.Number:
		return decimal.NewFromString(val.String())
	default:
		return decimal.Zero, fmt.Errorf("value %v (%T) is not numeric", v, v)
	}
}

// fieldValue 从数据中取出字段并转换为 decimal
// 字段缺失返回 (zero, false, nil), 类型不可转换返回错误
func fieldValue(data model.JSONMap, field string) (decimal.Decimal, bool, error) {
	if field == "" {
		return decimal.Zero, false, nil
	}
	raw, ok := data[field]
	if !ok || raw == nil {
		return decimal.Zero, false, nil
	}
	d, err := toDecimal(raw)
	if err != nil {
		return decimal.Zero, false, err
	}
	return d, true, nil
}
