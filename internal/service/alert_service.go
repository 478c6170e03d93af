package service

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/saturn-mousehunter/saturn-risk/internal/metrics"
	"github.com/saturn-mousehunter/saturn-risk/internal/model"
	"github.com/saturn-mousehunter/saturn-risk/internal/repository"
	"github.com/saturn-mousehunter/saturn-risk/pkg/logger"
)

// ErrInvalidTransition 告警当前状态不允许请求的变更
var ErrInvalidTransition = errors.New("invalid alert status transition")

// AlertStatistics 告警统计
type AlertStatistics struct {
	TotalAlerts        int64                          `json:"total_alerts"`
	ActiveAlerts       int64                          `json:"active_alerts"`
	CriticalAlerts     int64                          `json:"critical_alerts"`
	HighAlerts         int64                          `json:"high_alerts"`
	MediumAlerts       int64                          `json:"medium_alerts"`
	LowAlerts          int64                          `json:"low_alerts"`
	AcknowledgedAlerts int64                          `json:"acknowledged_alerts"`
	ResolvedAlerts     int64                          `json:"resolved_alerts"`
	DismissedAlerts    int64                          `json:"dismissed_alerts"`
	AlertsByType       map[model.RuleType]int64       `json:"alerts_by_type"`
	AlertsBySeverity   map[model.AlertSeverity]int64  `json:"alerts_by_severity"`
	AvgResolutionTime  *float64                       `json:"avg_resolution_time"` // 平均解决时长 (小时)
}

// AlertService 告警生命周期管理服务
type AlertService struct {
	store AlertStore

	onRiskAlert func(ctx context.Context, alert *RiskAlertMessage) error
}

// NewAlertService 创建告警服务
func NewAlertService(store AlertStore) *AlertService {
	return &AlertService{store: store}
}

// SetOnRiskAlert 设置风控告警回调
func (s *AlertService) SetOnRiskAlert(fn func(ctx context.Context, alert *RiskAlertMessage) error) {
	s.onRiskAlert = fn
}

// CreateAlert 手工创建告警
func (s *AlertService) CreateAlert(ctx context.Context, alert *model.RiskAlert) (*model.RiskAlert, error) {
	if alert.AlertID == "" {
		alert.AlertID = uuid.New().String()
	}
	if alert.Status == "" {
		alert.Status = model.AlertStatusActive
	}
	if alert.Severity == "" {
		alert.Severity = model.AlertSeverityMedium
	}
	now := time.Now()
	if alert.CreatedAt.IsZero() {
		alert.CreatedAt = now
	}
	alert.UpdatedAt = now
	alert.IsActive = !alert.Status.Terminal()

	if err := s.store.Create(ctx, alert); err != nil {
		return nil, err
	}

	if s.onRiskAlert != nil {
		if err := s.onRiskAlert(ctx, newAlertMessage(alert)); err != nil {
			logger.Error("failed to send alert notification",
				"alert_id", alert.AlertID,
				"error", err)
		}
	}

	metrics.AlertsCreated.WithLabelValues(string(alert.Severity)).Inc()

	logger.Info("risk alert created",
		"alert_id", alert.AlertID,
		"alert_name", alert.Name,
		"severity", string(alert.Severity))

	return alert, nil
}

// GetAlert 获取单个告警
func (s *AlertService) GetAlert(ctx context.Context, alertID string) (*model.RiskAlert, error) {
	return s.store.GetByAlertID(ctx, alertID)
}

// ListAlerts 按过滤条件分页查询告警
func (s *AlertService) ListAlerts(ctx context.Context, filter repository.AlertListFilter, pagination *repository.Pagination) ([]*model.RiskAlert, int64, error) {
	return s.store.List(ctx, filter, pagination)
}

// GetActiveAlerts 获取活跃告警, severity/targetType 为空时不过滤
func (s *AlertService) GetActiveAlerts(ctx context.Context, severity model.AlertSeverity, targetType model.TargetType) ([]*model.RiskAlert, error) {
	filter := repository.AlertListFilter{
		Status:     model.AlertStatusActive,
		Severity:   severity,
		TargetType: targetType,
		ActiveOnly: true,
	}
	alerts, _, err := s.store.List(ctx, filter, repository.NewPagination(1, 1000))
	return alerts, err
}

// Acknowledge 确认告警
func (s *AlertService) Acknowledge(ctx context.Context, alertID, acknowledgedBy string) (*model.RiskAlert, error) {
	now := time.Now()
	err := s.transition(ctx, alertID, model.AlertStatusAcknowledged, map[string]interface{}{
		"acknowledged_by": acknowledgedBy,
		"acknowledged_at": now,
	})
	if err != nil {
		return nil, err
	}

	logger.Info("risk alert acknowledged", "alert_id", alertID, "by", acknowledgedBy)
	return s.store.GetByAlertID(ctx, alertID)
}

// Resolve 解决告警
func (s *AlertService) Resolve(ctx context.Context, alertID, resolvedBy, notes string) (*model.RiskAlert, error) {
	now := time.Now()
	err := s.transition(ctx, alertID, model.AlertStatusResolved, map[string]interface{}{
		"resolved_by":      resolvedBy,
		"resolved_at":      now,
		"resolution_notes": notes,
	})
	if err != nil {
		return nil, err
	}

	logger.Info("risk alert resolved", "alert_id", alertID, "by", resolvedBy)
	return s.store.GetByAlertID(ctx, alertID)
}

// Dismiss 驳回告警
func (s *AlertService) Dismiss(ctx context.Context, alertID, dismissedBy, notes string) (*model.RiskAlert, error) {
	now := time.Now()
	err := s.transition(ctx, alertID, model.AlertStatusDismissed, map[string]interface{}{
		"resolved_by":      dismissedBy,
		"resolved_at":      now,
		"resolution_notes": notes,
	})
	if err != nil {
		return nil, err
	}

	logger.Info("risk alert dismissed", "alert_id", alertID, "by", dismissedBy)
	return s.store.GetByAlertID(ctx, alertID)
}

// transition 校验状态机后提交状态变更
func (s *AlertService) transition(ctx context.Context, alertID string, to model.AlertStatus, updates map[string]interface{}) error {
	alert, err := s.store.GetByAlertID(ctx, alertID)
	if err != nil {
		return err
	}

	if !alert.Status.CanTransitionTo(to) {
		return ErrInvalidTransition
	}

	err = s.store.Transition(ctx, alertID, alert.Status, to, updates)
	if errors.Is(err, repository.ErrAlertStateConflict) {
		// 并发修改抢先一步, 对调用方等同于非法转换
		return ErrInvalidTransition
	}
	if err == nil {
		metrics.AlertTransitions.WithLabelValues(string(to)).Inc()
	}
	return err
}

// Statistics 统计最近 days 天的告警
func (s *AlertService) Statistics(ctx context.Context, days int) (*AlertStatistics, error) {
	if days <= 0 {
		days = 30
	}
	since := time.Now().AddDate(0, 0, -days)

	alerts, err := s.store.ListCreatedSince(ctx, since)
	if err != nil {
		return nil, err
	}

	stats := &AlertStatistics{
		AlertsByType:     make(map[model.RuleType]int64),
		AlertsBySeverity: make(map[model.AlertSeverity]int64),
	}

	var resolvedCount int64
	var totalResolutionHours float64

	for _, a := range alerts {
		stats.TotalAlerts++
		stats.AlertsByType[a.AlertType]++
		stats.AlertsBySeverity[a.Severity]++

		switch a.Severity {
		case model.AlertSeverityCritical:
			stats.CriticalAlerts++
		case model.AlertSeverityHigh:
			stats.HighAlerts++
		case model.AlertSeverityMedium:
			stats.MediumAlerts++
		case model.AlertSeverityLow:
			stats.LowAlerts++
		}

		switch a.Status {
		case model.AlertStatusActive:
			stats.ActiveAlerts++
		case model.AlertStatusAcknowledged:
			stats.AcknowledgedAlerts++
		case model.AlertStatusResolved:
			stats.ResolvedAlerts++
		case model.AlertStatusDismissed:
			stats.DismissedAlerts++
		}

		if a.Status == model.AlertStatusResolved && a.ResolvedAt != nil {
			totalResolutionHours += a.ResolvedAt.Sub(a.CreatedAt).Hours()
			resolvedCount++
		}
	}

	if resolvedCount > 0 {
		avg := math.Round(totalResolutionHours/float64(resolvedCount)*100) / 100
		stats.AvgResolutionTime = &avg
	}

	return stats, nil
}
