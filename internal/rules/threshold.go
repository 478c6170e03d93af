package rules

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/saturn-mousehunter/saturn-risk/internal/model"
)

// 阈值规则配置键
const (
	configFieldName = "field_name"
	configOperator  = "operator"
)

// ThresholdEvaluator 阈值规则评估器
// 比较指标字段与规则阈值, 比较运算符由配置给出, 默认 gt
type ThresholdEvaluator struct{}

// NewThresholdEvaluator 创建阈值规则评估器
func NewThresholdEvaluator() *ThresholdEvaluator {
	return &ThresholdEvaluator{}
}

// Type 返回处理的规则类型
func (e *ThresholdEvaluator) Type() model.RuleType {
	return model.RuleTypeThreshold
}

// Evaluate 评估阈值规则
func (e *ThresholdEvaluator) Evaluate(rule *model.RiskRule, data model.JSONMap) (*EvalResult, error) {
	value, ok, err := fieldValue(data, rule.Config.GetString(configFieldName))
	if err != nil {
		return nil, err
	}
	if !ok {
		return NewSkip(), nil
	}

	operator := rule.Config.GetString(configOperator)
	if operator == "" {
		operator = "gt"
	}

	violated, err := compare(value, rule.Threshold, operator)
	if err != nil {
		return nil, err
	}
	if !violated {
		return NewPass(value), nil
	}
	return NewViolation(value, fmt.Sprintf("%s %s %s", value, operator, rule.Threshold)), nil
}

// compare 按运算符比较实际值与阈值
func compare(value, threshold decimal.Decimal, operator string) (bool, error) {
	switch operator {
	case "gt":
		return value.GreaterThan(threshold), nil
	case "gte":
		return value.GreaterThanOrEqual(threshold), nil
	case "lt":
		return value.LessThan(threshold), nil
	case "lte":
		return value.LessThanOrEqual(threshold), nil
	case "eq":
		return value.Equal(threshold), nil
	default:
		return false, fmt.Errorf("unsupported operator: %s", operator)
	}
}
