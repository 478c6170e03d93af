// Package service implements risk rule management, evaluation and alerting
package service

import (
	"context"
	"time"

	"github.com/saturn-mousehunter/saturn-risk/internal/model"
	"github.com/saturn-mousehunter/saturn-risk/internal/repository"
)

// RuleStore 规则存储接口
type RuleStore interface {
	Create(ctx context.Context, rule *model.RiskRule) error
	Update(ctx context.Context, rule *model.RiskRule) error
	GetByRuleID(ctx context.Context, ruleID string) (*model.RiskRule, error)
	GetByName(ctx context.Context, name string) (*model.RiskRule, error)
	ListForTargetType(ctx context.Context, targetType model.TargetType) ([]*model.RiskRule, error)
	List(ctx context.Context, filter repository.RuleListFilter, pagination *repository.Pagination) ([]*model.RiskRule, int64, error)
	IncrementViolation(ctx context.Context, ruleID string, triggeredAt time.Time) error
	Approve(ctx context.Context, ruleID, approvedBy string) error
	SetActive(ctx context.Context, ruleID string, active bool, updatedBy string) error
	SetEnabled(ctx context.Context, ruleID string, enabled bool, updatedBy string) error
	Delete(ctx context.Context, ruleID string) error
}

// AlertStore 告警存储接口
type AlertStore interface {
	Create(ctx context.Context, alert *model.RiskAlert) error
	GetByAlertID(ctx context.Context, alertID string) (*model.RiskAlert, error)
	List(ctx context.Context, filter repository.AlertListFilter, pagination *repository.Pagination) ([]*model.RiskAlert, int64, error)
	ListActive(ctx context.Context) ([]*model.RiskAlert, error)
	ListCreatedSince(ctx context.Context, since time.Time) ([]*model.RiskAlert, error)
	Transition(ctx context.Context, alertID string, from, to model.AlertStatus, updates map[string]interface{}) error
}

// EventStore 事件存储接口
type EventStore interface {
	Create(ctx context.Context, event *model.RiskEvent) error
	GetByEventID(ctx context.Context, eventID string) (*model.RiskEvent, error)
	List(ctx context.Context, filter repository.EventListFilter, pagination *repository.Pagination) ([]*model.RiskEvent, int64, error)
	ListByTarget(ctx context.Context, targetType model.TargetType, targetID string, pagination *repository.Pagination) ([]*model.RiskEvent, int64, error)
	ListRecent(ctx context.Context, since time.Time, limit int) ([]*model.RiskEvent, error)
	ListOpenCritical(ctx context.Context, limit int) ([]*model.RiskEvent, error)
	UpdateStatus(ctx context.Context, eventID string, toStatus model.EventStatus, fromStatuses []model.EventStatus, updates map[string]interface{}) error
	CountOpen(ctx context.Context) (int64, error)
	CountBySeverity(ctx context.Context, since time.Time) (map[model.AlertSeverity]int64, error)
	CountByType(ctx context.Context, since time.Time) (map[model.EventType]int64, error)
	DeleteTerminalBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// RuleCacheStore 规则缓存接口
type RuleCacheStore interface {
	GetByTargetType(ctx context.Context, targetType model.TargetType) ([]*model.RiskRule, bool, error)
	SetByTargetType(ctx context.Context, targetType model.TargetType, rules []*model.RiskRule) error
	Invalidate(ctx context.Context, targetType model.TargetType) error
	InvalidateAll(ctx context.Context) error
}

// RiskAlertMessage 风控告警通知消息
type RiskAlertMessage struct {
	AlertID     string            `json:"alert_id"`
	AlertName   string            `json:"alert_name"`
	AlertType   string            `json:"alert_type"`
	Severity    string            `json:"severity"`
	RuleID      string            `json:"rule_id"`
	TargetType  string            `json:"target_type"`
	TargetID    string            `json:"target_id"`
	Threshold   string            `json:"threshold"`
	ActualValue string            `json:"actual_value"`
	Description string            `json:"description"`
	Context     map[string]string `json:"context,omitempty"`
	CreatedAt   int64             `json:"created_at"`
}

// newAlertMessage 从告警实体构造通知消息
func newAlertMessage(alert *model.RiskAlert) *RiskAlertMessage {
	return &RiskAlertMessage{
		AlertID:     alert.AlertID,
		AlertName:   alert.Name,
		AlertType:   string(alert.AlertType),
		Severity:    string(alert.Severity),
		RuleID:      alert.RuleID,
		TargetType:  string(alert.TargetType),
		TargetID:    alert.TargetID,
		Threshold:   alert.Threshold.String(),
		ActualValue: alert.ActualValue.String(),
		Description: alert.Description,
		CreatedAt:   alert.CreatedAt.UnixMilli(),
	}
}
