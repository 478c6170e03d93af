package rules

import (
	"fmt"

	"github.com/saturn-mousehunter/saturn-risk/internal/model"
)

const configTrendDirection = "trend_direction"

// TrendEvaluator 趋势规则评估器
// 单样本实现: 指标沿配置方向越过阈值即违规
// TODO: 接入历史序列后改为真正的趋势斜率判断
type TrendEvaluator struct{}

// NewTrendEvaluator 创建趋势规则评估器
func NewTrendEvaluator() *TrendEvaluator {
	return &TrendEvaluator{}
}

// Type 返回处理的规则类型
func (e *TrendEvaluator) Type() model.RuleType {
	return model.RuleTypeTrend
}

// Evaluate 评估趋势规则
func (e *TrendEvaluator) Evaluate(rule *model.RiskRule, data model.JSONMap) (*EvalResult, error) {
	value, ok, err := fieldValue(data, rule.Config.GetString(configFieldName))
	if err != nil {
		return nil, err
	}
	if !ok {
		return NewSkip(), nil
	}

	direction := rule.Config.GetString(configTrendDirection)
	if direction == "" {
		direction = "up"
	}

	var violated bool
	if direction == "up" {
		violated = value.GreaterThan(rule.Threshold)
	} else {
		violated = value.LessThan(rule.Threshold)
	}

	if !violated {
		return NewPass(value), nil
	}
	return NewViolation(value, fmt.Sprintf("trend %s crossed %s at %s", direction, rule.Threshold, value)), nil
}
