package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/saturn-mousehunter/saturn-risk/internal/metrics"
	"github.com/saturn-mousehunter/saturn-risk/internal/model"
	"github.com/saturn-mousehunter/saturn-risk/internal/rules"
	"github.com/saturn-mousehunter/saturn-risk/pkg/logger"
)

// EvaluationService 规则评估服务
// 接收指标载荷, 评估作用于目标的全部规则, 为违规规则生成告警与事件
type EvaluationService struct {
	engine     *rules.Engine
	ruleStore  RuleStore
	alertStore AlertStore
	eventStore EventStore
	ruleCache  RuleCacheStore

	// 风控告警回调, 由上层接入 kafka 通知
	onRiskAlert func(ctx context.Context, alert *RiskAlertMessage) error
}

// NewEvaluationService 创建规则评估服务
func NewEvaluationService(engine *rules.Engine, ruleStore RuleStore, alertStore AlertStore, eventStore EventStore, ruleCache RuleCacheStore) *EvaluationService {
	return &EvaluationService{
		engine:     engine,
		ruleStore:  ruleStore,
		alertStore: alertStore,
		eventStore: eventStore,
		ruleCache:  ruleCache,
	}
}

// SetOnRiskAlert 设置风控告警回调
func (s *EvaluationService) SetOnRiskAlert(fn func(ctx context.Context, alert *RiskAlertMessage) error) {
	s.onRiskAlert = fn
}

// Evaluate 用指标数据评估目标的全部规则, 返回本次触发的告警
//
// 单条规则的评估失败只记录日志, 不影响其余规则。
func (s *EvaluationService) Evaluate(ctx context.Context, targetType model.TargetType, targetID string, data model.JSONMap) ([]*model.RiskAlert, error) {
	start := time.Now()

	candidates, err := s.candidateRules(ctx, targetType)
	if err != nil {
		return nil, fmt.Errorf("load rules for %s %s: %w", targetType, targetID, err)
	}

	now := time.Now()
	var triggered []*model.RiskAlert

	for _, rule := range candidates {
		if !rule.InForce(now) || !rule.AppliesTo(targetID) {
			continue
		}

		result, err := s.engine.Evaluate(rule, data)
		if err != nil {
			logger.Error("rule evaluation failed",
				"rule_id", rule.RuleID,
				"rule_type", string(rule.RuleType),
				"error", err)
			metrics.EvaluationErrors.Inc()
			continue
		}
		if !result.Violated {
			continue
		}

		alert, err := s.createAlertFromRule(ctx, rule, targetType, targetID, data)
		if err != nil {
			logger.Error("failed to create alert from rule",
				"rule_id", rule.RuleID,
				"target_id", targetID,
				"error", err)
			continue
		}
		triggered = append(triggered, alert)

		if err := s.ruleStore.IncrementViolation(ctx, rule.RuleID, now); err != nil {
			logger.Error("failed to increment violation count",
				"rule_id", rule.RuleID,
				"error", err)
		}

		metrics.RuleViolations.WithLabelValues(string(rule.RuleType)).Inc()
	}

	metrics.EvaluationDuration.Observe(time.Since(start).Seconds())
	metrics.EvaluationsTotal.Inc()

	logger.Debug("risk evaluation completed",
		"target_type", string(targetType),
		"target_id", targetID,
		"rules", len(candidates),
		"triggered", len(triggered))

	return triggered, nil
}

// candidateRules 获取作用于目标类型的候选规则, 优先走缓存, 按规则ID去重
// 候选集只按目标类型收敛, 目标级圈定 (target_ids) 由评估循环的 AppliesTo 判断,
// 保证不同目标可以安全共享同一份类型级缓存
func (s *EvaluationService) candidateRules(ctx context.Context, targetType model.TargetType) ([]*model.RiskRule, error) {
	if s.ruleCache != nil {
		cached, ok, err := s.ruleCache.GetByTargetType(ctx, targetType)
		if err != nil {
			logger.Warn("rule cache read failed", "target_type", string(targetType), "error", err)
		} else if ok {
			return dedupeRules(cached), nil
		}
	}

	loaded, err := s.ruleStore.ListForTargetType(ctx, targetType)
	if err != nil {
		return nil, err
	}
	loaded = dedupeRules(loaded)

	if s.ruleCache != nil {
		if err := s.ruleCache.SetByTargetType(ctx, targetType, loaded); err != nil {
			logger.Warn("rule cache write failed", "target_type", string(targetType), "error", err)
		}
	}
	return loaded, nil
}

// createAlertFromRule 从违规规则创建告警并发起通知
func (s *EvaluationService) createAlertFromRule(ctx context.Context, rule *model.RiskRule, targetType model.TargetType, targetID string, data model.JSONMap) (*model.RiskAlert, error) {
	actual := rules.ActualValue(rule, data)
	severity := rules.DetermineSeverity(rule, actual)
	now := time.Now()

	alert := &model.RiskAlert{
		AlertID:     uuid.New().String(),
		Name:        fmt.Sprintf("%s - %s", rule.Name, targetID),
		AlertType:   rule.RuleType,
		Severity:    severity,
		Status:      model.AlertStatusActive,
		RuleID:      rule.RuleID,
		RuleName:    rule.Name,
		TargetType:  targetType,
		TargetID:    targetID,
		Threshold:   rule.Threshold,
		ActualValue: actual,
		Description: fmt.Sprintf("Risk rule '%s' triggered for %s %s", rule.Name, targetType, targetID),
		AlertData:   data,
		IsActive:    true,
		CreatedBy:   "system",
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.alertStore.Create(ctx, alert); err != nil {
		return nil, err
	}

	s.recordViolationEvent(ctx, rule, alert, data)
	s.notify(ctx, alert)

	metrics.AlertsCreated.WithLabelValues(string(severity)).Inc()

	logger.Info("risk alert created",
		"alert_id", alert.AlertID,
		"alert_name", alert.Name,
		"severity", string(severity),
		"rule_id", rule.RuleID)

	return alert, nil
}

// recordViolationEvent 为触发的规则记录一条风险事件, 失败只记日志
func (s *EvaluationService) recordViolationEvent(ctx context.Context, rule *model.RiskRule, alert *model.RiskAlert, data model.JSONMap) {
	if s.eventStore == nil {
		return
	}

	now := time.Now()
	event := &model.RiskEvent{
		EventID:     uuid.New().String(),
		Type:        model.EventTypeRuleViolation,
		Severity:    alert.Severity,
		SourceType:  model.SourceTypeRule,
		SourceID:    rule.RuleID,
		TargetType:  alert.TargetType,
		TargetID:    alert.TargetID,
		Title:       alert.Name,
		Description: alert.Description,
		EventData:   model.JSONMap{"alert_id": alert.AlertID},
		RiskMetrics: data,
		ActionTaken: model.EventActionAlert,
		Status:      model.EventStatusOpen,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.eventStore.Create(ctx, event); err != nil {
		logger.Error("failed to record violation event",
			"alert_id", alert.AlertID,
			"error", err)
	}
}

// notify 发送告警通知, 失败只记日志不阻断评估
func (s *EvaluationService) notify(ctx context.Context, alert *model.RiskAlert) {
	if s.onRiskAlert == nil {
		return
	}
	if err := s.onRiskAlert(ctx, newAlertMessage(alert)); err != nil {
		logger.Error("failed to send alert notification",
			"alert_id", alert.AlertID,
			"error", err)
	}
}

// dedupeRules 按规则ID去重, 保留先出现的
func dedupeRules(in []*model.RiskRule) []*model.RiskRule {
	seen := make(map[string]struct{}, len(in))
	out := make([]*model.RiskRule, 0, len(in))
	for _, r := range in {
		if _, ok := seen[r.RuleID]; ok {
			continue
		}
		seen[r.RuleID] = struct{}{}
		out = append(out, r)
	}
	return out
}
