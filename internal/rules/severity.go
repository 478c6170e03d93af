package rules

import (
	"github.com/shopspring/decimal"

	"github.com/saturn-mousehunter/saturn-risk/internal/model"
)

// DetermineSeverity 确定告警严重程度
//
// 配置了警告阈值时按超出幅度分级: 实际值与阈值的距离超过警告带宽两倍为
// CRITICAL, 超过一倍为 HIGH, 否则 MEDIUM。未配置时退化为按规则优先级分级。
func DetermineSeverity(rule *model.RiskRule, actual decimal.Decimal) model.AlertSeverity {
	if rule.WarningThreshold.Valid {
		distance := actual.Sub(rule.Threshold).Abs()
		band := rule.WarningThreshold.Decimal.Sub(rule.Threshold).Abs()

		if distance.GreaterThan(band.Mul(decimal.NewFromInt(2))) {
			return model.AlertSeverityCritical
		}
		if distance.GreaterThan(band) {
			return model.AlertSeverityHigh
		}
		return model.AlertSeverityMedium
	}

	switch {
	case rule.Priority <= 2:
		return model.AlertSeverityCritical
	case rule.Priority <= 5:
		return model.AlertSeverityHigh
	case rule.Priority <= 8:
		return model.AlertSeverityMedium
	default:
		return model.AlertSeverityLow
	}
}

// ActualValue 从指标数据中取出告警记录的实际值 (字段缺失或不可解析时为 0)
func ActualValue(rule *model.RiskRule, data model.JSONMap) decimal.Decimal {
	v, ok, err := fieldValue(data, rule.Config.GetString(configFieldName))
	if err != nil || !ok {
		return decimal.Zero
	}
	return v
}
