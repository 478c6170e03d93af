package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saturn-mousehunter/saturn-risk/internal/model"
	"github.com/saturn-mousehunter/saturn-risk/internal/rules"
)

func thresholdRule(ruleID, name, field string, threshold int64) *model.RiskRule {
	return &model.RiskRule{
		RuleID:     ruleID,
		Name:       name,
		RuleType:   model.RuleTypeThreshold,
		Category:   model.RuleCategoryGeneral,
		Config:     model.JSONMap{"field_name": field, "operator": "gt"},
		Threshold:  decimal.NewFromInt(threshold),
		TargetType: model.TargetTypeStrategy,
		Priority:   100,
		IsActive:   true,
		IsEnabled:  true,
	}
}

func newEvalFixture(ruleStore *fakeRuleStore, ruleCache RuleCacheStore) (*EvaluationService, *fakeAlertStore, *fakeEventStore) {
	alertStore := &fakeAlertStore{}
	eventStore := &fakeEventStore{}
	svc := NewEvaluationService(rules.NewDefaultEngine(), ruleStore, alertStore, eventStore, ruleCache)
	return svc, alertStore, eventStore
}

func TestEvaluateViolationCreatesAlertAndEvent(t *testing.T) {
	rule := thresholdRule("r1", "Max drawdown", "drawdown", 100)
	rule.Priority = 3
	ruleStore := &fakeRuleStore{rules: []*model.RiskRule{rule}}
	svc, alertStore, eventStore := newEvalFixture(ruleStore, nil)

	var notified []*RiskAlertMessage
	svc.SetOnRiskAlert(func(ctx context.Context, msg *RiskAlertMessage) error {
		notified = append(notified, msg)
		return nil
	})

	triggered, err := svc.Evaluate(context.Background(), model.TargetTypeStrategy, "strat-1", model.JSONMap{"drawdown": 150.0})
	require.NoError(t, err)
	require.Len(t, triggered, 1)

	alert := triggered[0]
	assert.Equal(t, "Max drawdown - strat-1", alert.Name)
	assert.Equal(t, model.RuleTypeThreshold, alert.AlertType)
	assert.Equal(t, model.AlertStatusActive, alert.Status)
	assert.Equal(t, model.AlertSeverityHigh, alert.Severity) // priority 3, no warning threshold
	assert.Equal(t, "r1", alert.RuleID)
	assert.Equal(t, "strat-1", alert.TargetID)
	assert.True(t, alert.ActualValue.Equal(decimal.NewFromInt(150)))
	assert.Equal(t, "system", alert.CreatedBy)

	require.Len(t, alertStore.alerts, 1)
	require.Len(t, eventStore.events, 1)
	event := eventStore.events[0]
	assert.Equal(t, model.EventTypeRuleViolation, event.Type)
	assert.Equal(t, model.SourceTypeRule, event.SourceType)
	assert.Equal(t, "r1", event.SourceID)
	assert.Equal(t, model.EventActionAlert, event.ActionTaken)
	assert.Equal(t, model.EventStatusOpen, event.Status)
	assert.Equal(t, alert.AlertID, event.EventData.GetString("alert_id"))

	assert.Equal(t, []string{"r1"}, ruleStore.incremented)
	require.Len(t, notified, 1)
	assert.Equal(t, alert.AlertID, notified[0].AlertID)
}

func TestEvaluatePassCreatesNothing(t *testing.T) {
	ruleStore := &fakeRuleStore{rules: []*model.RiskRule{thresholdRule("r1", "Max drawdown", "drawdown", 100)}}
	svc, alertStore, eventStore := newEvalFixture(ruleStore, nil)

	triggered, err := svc.Evaluate(context.Background(), model.TargetTypeStrategy, "strat-1", model.JSONMap{"drawdown": 50.0})
	require.NoError(t, err)
	assert.Empty(t, triggered)
	assert.Empty(t, alertStore.alerts)
	assert.Empty(t, eventStore.events)
	assert.Empty(t, ruleStore.incremented)
}

func TestEvaluateContinuesAfterRuleError(t *testing.T) {
	bad := thresholdRule("r1", "Bad rule", "drawdown", 100)
	good := thresholdRule("r2", "Good rule", "exposure", 10)
	ruleStore := &fakeRuleStore{rules: []*model.RiskRule{bad, good}}
	svc, _, _ := newEvalFixture(ruleStore, nil)

	// drawdown 是非数值, bad 规则评估报错, good 规则仍然触发
	data := model.JSONMap{"drawdown": map[string]interface{}{"x": 1}, "exposure": 25.0}
	triggered, err := svc.Evaluate(context.Background(), model.TargetTypeStrategy, "strat-1", data)
	require.NoError(t, err)
	require.Len(t, triggered, 1)
	assert.Equal(t, "r2", triggered[0].RuleID)
}

func TestEvaluateSkipsExpiredAndNonApplicable(t *testing.T) {
	past := time.Now().Add(-time.Hour)
	expired := thresholdRule("r1", "Expired", "drawdown", 100)
	expired.EffectiveTo = &past
	scoped := thresholdRule("r2", "Other target", "drawdown", 100)
	scoped.TargetIDs = model.StringArray{"strat-2"}
	disabled := thresholdRule("r3", "Disabled", "drawdown", 100)
	disabled.IsEnabled = false

	// 全部从缓存返回, 生效期和目标过滤必须在评估侧兜底
	cache := newFakeRuleCache()
	cache.entries[model.TargetTypeStrategy] = []*model.RiskRule{expired, scoped, disabled}

	svc, alertStore, _ := newEvalFixture(&fakeRuleStore{}, cache)

	triggered, err := svc.Evaluate(context.Background(), model.TargetTypeStrategy, "strat-1", model.JSONMap{"drawdown": 150.0})
	require.NoError(t, err)
	assert.Empty(t, triggered)
	assert.Empty(t, alertStore.alerts)
}

func TestEvaluateMissingFieldIsNotViolation(t *testing.T) {
	ruleStore := &fakeRuleStore{rules: []*model.RiskRule{thresholdRule("r1", "Max drawdown", "drawdown", 100)}}
	svc, alertStore, _ := newEvalFixture(ruleStore, nil)

	triggered, err := svc.Evaluate(context.Background(), model.TargetTypeStrategy, "strat-1", model.JSONMap{"exposure": 500.0})
	require.NoError(t, err)
	assert.Empty(t, triggered)
	assert.Empty(t, alertStore.alerts)
}

func TestEvaluateUsesCacheWhenWarm(t *testing.T) {
	rule := thresholdRule("r1", "Max drawdown", "drawdown", 100)
	cache := newFakeRuleCache()
	cache.entries[model.TargetTypeStrategy] = []*model.RiskRule{rule}
	ruleStore := &fakeRuleStore{}
	svc, _, _ := newEvalFixture(ruleStore, cache)

	triggered, err := svc.Evaluate(context.Background(), model.TargetTypeStrategy, "strat-1", model.JSONMap{"drawdown": 150.0})
	require.NoError(t, err)
	require.Len(t, triggered, 1)
	assert.Zero(t, ruleStore.listForTypeCalls)
}

func TestEvaluatePopulatesCacheOnMiss(t *testing.T) {
	rule := thresholdRule("r1", "Max drawdown", "drawdown", 100)
	cache := newFakeRuleCache()
	ruleStore := &fakeRuleStore{rules: []*model.RiskRule{rule}}
	svc, _, _ := newEvalFixture(ruleStore, cache)

	_, err := svc.Evaluate(context.Background(), model.TargetTypeStrategy, "strat-1", model.JSONMap{"drawdown": 50.0})
	require.NoError(t, err)
	assert.Equal(t, 1, ruleStore.listForTypeCalls)
	assert.Equal(t, []model.TargetType{model.TargetTypeStrategy}, cache.sets)

	// 第二次命中缓存
	_, err = svc.Evaluate(context.Background(), model.TargetTypeStrategy, "strat-1", model.JSONMap{"drawdown": 50.0})
	require.NoError(t, err)
	assert.Equal(t, 1, ruleStore.listForTypeCalls)
}

func TestEvaluatePinnedRuleVisibleAfterCacheWarmedByOtherTarget(t *testing.T) {
	pinned := thresholdRule("r1", "Pinned drawdown", "drawdown", 10)
	pinned.TargetIDs = model.StringArray{"strat-2"}
	cache := newFakeRuleCache()
	ruleStore := &fakeRuleStore{rules: []*model.RiskRule{pinned}}
	svc, alertStore, _ := newEvalFixture(ruleStore, cache)

	// strat-1 先预热类型级缓存, 圈定到 strat-2 的规则对它不触发
	triggered, err := svc.Evaluate(context.Background(), model.TargetTypeStrategy, "strat-1", model.JSONMap{"drawdown": 50.0})
	require.NoError(t, err)
	assert.Empty(t, triggered)
	assert.Equal(t, 1, ruleStore.listForTypeCalls)

	// strat-2 走同一份缓存, 圈定规则必须仍可命中
	triggered, err = svc.Evaluate(context.Background(), model.TargetTypeStrategy, "strat-2", model.JSONMap{"drawdown": 50.0})
	require.NoError(t, err)
	require.Len(t, triggered, 1)
	assert.Equal(t, "r1", triggered[0].RuleID)
	assert.Equal(t, "strat-2", triggered[0].TargetID)
	assert.Equal(t, 1, ruleStore.listForTypeCalls)
	assert.Len(t, alertStore.alerts, 1)
}

func TestEvaluateDedupesCandidates(t *testing.T) {
	rule := thresholdRule("r1", "Max drawdown", "drawdown", 100)
	cache := newFakeRuleCache()
	cache.entries[model.TargetTypeStrategy] = []*model.RiskRule{rule, rule}
	svc, alertStore, _ := newEvalFixture(&fakeRuleStore{rules: []*model.RiskRule{rule}}, cache)

	triggered, err := svc.Evaluate(context.Background(), model.TargetTypeStrategy, "strat-1", model.JSONMap{"drawdown": 150.0})
	require.NoError(t, err)
	assert.Len(t, triggered, 1)
	assert.Len(t, alertStore.alerts, 1)
}

func TestEvaluateSeverityWithWarningBand(t *testing.T) {
	rule := thresholdRule("r1", "Max drawdown", "drawdown", 100)
	rule.WarningThreshold = decimal.NewNullDecimal(decimal.NewFromInt(120))
	ruleStore := &fakeRuleStore{rules: []*model.RiskRule{rule}}
	svc, _, _ := newEvalFixture(ruleStore, nil)

	// 超出阈值 45, 警戒带宽 20, 距离 > 2 倍带宽
	triggered, err := svc.Evaluate(context.Background(), model.TargetTypeStrategy, "strat-1", model.JSONMap{"drawdown": 145.0})
	require.NoError(t, err)
	require.Len(t, triggered, 1)
	assert.Equal(t, model.AlertSeverityCritical, triggered[0].Severity)
}

func TestEvaluateNotifyFailureDoesNotBlock(t *testing.T) {
	ruleStore := &fakeRuleStore{rules: []*model.RiskRule{thresholdRule("r1", "Max drawdown", "drawdown", 100)}}
	svc, alertStore, _ := newEvalFixture(ruleStore, nil)
	svc.SetOnRiskAlert(func(ctx context.Context, msg *RiskAlertMessage) error {
		return errors.New("broker down")
	})

	triggered, err := svc.Evaluate(context.Background(), model.TargetTypeStrategy, "strat-1", model.JSONMap{"drawdown": 150.0})
	require.NoError(t, err)
	assert.Len(t, triggered, 1)
	assert.Len(t, alertStore.alerts, 1)
}
