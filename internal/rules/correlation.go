package rules

import (
	"fmt"

	"github.com/saturn-mousehunter/saturn-risk/internal/model"
)

// 相关性规则配置键
const (
	configField1 = "field1"
	configField2 = "field2"
)

// CorrelationEvaluator 相关性规则评估器
// 简化实现: 两个指标字段的差值绝对值超过阈值即违规
type CorrelationEvaluator struct{}

// NewCorrelationEvaluator 创建相关性规则评估器
func NewCorrelationEvaluator() *CorrelationEvaluator {
	return &CorrelationEvaluator{}
}

// Type 返回处理的规则类型
func (e *CorrelationEvaluator) Type() model.RuleType {
	return model.RuleTypeCorrelation
}

// Evaluate 评估相关性规则
func (e *CorrelationEvaluator) Evaluate(rule *model.RiskRule, data model.JSONMap) (*EvalResult, error) {
	v1, ok1, err := fieldValue(data, rule.Config.GetString(configField1))
	if err != nil {
		return nil, err
	}
	v2, ok2, err := fieldValue(data, rule.Config.GetString(configField2))
	if err != nil {
		return nil, err
	}
	if !ok1 || !ok2 {
		return NewSkip(), nil
	}

	divergence := v1.Sub(v2).Abs()
	if !divergence.GreaterThan(rule.Threshold) {
		return NewPass(divergence), nil
	}
	return NewViolation(divergence, fmt.Sprintf("divergence %s exceeds %s", divergence, rule.Threshold)), nil
}
