package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRiskRuleInForce(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	rule := &RiskRule{IsActive: true, IsEnabled: true}
	assert.True(t, rule.InForce(now), "无时间窗口的启用规则应生效")

	rule.EffectiveFrom = &future
	assert.False(t, rule.InForce(now), "生效时间未到不应生效")

	rule.EffectiveFrom = &past
	rule.EffectiveTo = &future
	assert.True(t, rule.InForce(now))

	// 右开区间: 到达 EffectiveTo 即过期
	rule.EffectiveTo = &now
	assert.False(t, rule.InForce(now))
	assert.True(t, rule.IsExpired(now))

	rule.EffectiveTo = nil
	rule.IsActive = false
	assert.False(t, rule.InForce(now), "停用规则不应生效")

	rule.IsActive = true
	rule.IsEnabled = false
	assert.False(t, rule.InForce(now), "禁用规则不应生效")
}

func TestRiskRuleAppliesTo(t *testing.T) {
	rule := &RiskRule{}
	assert.True(t, rule.AppliesTo("any"), "空目标列表视为全局规则")

	rule.TargetIDs = StringArray{"strategy-1", "strategy-2"}
	assert.True(t, rule.AppliesTo("strategy-1"))
	assert.False(t, rule.AppliesTo("strategy-9"))
}

func TestAlertStatusTransitions(t *testing.T) {
	cases := []struct {
		from    AlertStatus
		to      AlertStatus
		allowed bool
	}{
		{AlertStatusActive, AlertStatusAcknowledged, true},
		{AlertStatusActive, AlertStatusResolved, true},
		{AlertStatusActive, AlertStatusDismissed, true},
		{AlertStatusAcknowledged, AlertStatusResolved, true},
		{AlertStatusAcknowledged, AlertStatusDismissed, true},
		{AlertStatusAcknowledged, AlertStatusActive, false},
		{AlertStatusResolved, AlertStatusAcknowledged, false},
		{AlertStatusResolved, AlertStatusResolved, false},
		{AlertStatusDismissed, AlertStatusAcknowledged, false},
	}
	for _, c := range cases {
		assert.Equal(t, c.allowed, c.from.CanTransitionTo(c.to),
			"%s -> %s", c.from, c.to)
	}
}

func TestAlertResolutionDuration(t *testing.T) {
	created := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	resolved := created.Add(3 * time.Hour)

	alert := &RiskAlert{Status: AlertStatusActive, CreatedAt: created}
	assert.Equal(t, time.Duration(0), alert.ResolutionDuration())

	// 状态为 RESOLVED 但缺少解决时间同样视为未解决
	alert.Status = AlertStatusResolved
	assert.Equal(t, time.Duration(0), alert.ResolutionDuration())

	alert.ResolvedAt = &resolved
	assert.Equal(t, 3*time.Hour, alert.ResolutionDuration())
}

func TestEventStatusTerminal(t *testing.T) {
	assert.False(t, EventStatusOpen.Terminal())
	assert.False(t, EventStatusAcknowledged.Terminal())
	assert.True(t, EventStatusResolved.Terminal())
	assert.True(t, EventStatusIgnored.Terminal())
}

func TestJSONMapGetString(t *testing.T) {
	m := JSONMap{"field": "drawdown", "n": 3.0}
	assert.Equal(t, "drawdown", m.GetString("field"))
	assert.Equal(t, "", m.GetString("n"))
	assert.Equal(t, "", m.GetString("missing"))
}
