package rules

import (
	"fmt"

	"github.com/saturn-mousehunter/saturn-risk/internal/model"
)

// AnomalyEvaluator 异常检测规则评估器
// 简化实现: 指标绝对值超过阈值即异常
type AnomalyEvaluator struct{}

// NewAnomalyEvaluator 创建异常检测规则评估器
func NewAnomalyEvaluator() *AnomalyEvaluator {
	return &AnomalyEvaluator{}
}

// Type 返回处理的规则类型
func (e *AnomalyEvaluator) Type() model.RuleType {
	return model.RuleTypeAnomaly
}

// Evaluate 评估异常检测规则
func (e *AnomalyEvaluator) Evaluate(rule *model.RiskRule, data model.JSONMap) (*EvalResult, error) {
	value, ok, err := fieldValue(data, rule.Config.GetString(configFieldName))
	if err != nil {
		return nil, err
	}
	if !ok {
		return NewSkip(), nil
	}

	if !value.Abs().GreaterThan(rule.Threshold) {
		return NewPass(value), nil
	}
	return NewViolation(value, fmt.Sprintf("|%s| exceeds %s", value, rule.Threshold)), nil
}
