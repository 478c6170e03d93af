package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/saturn-mousehunter/saturn-risk/internal/metrics"
	"github.com/saturn-mousehunter/saturn-risk/internal/model"
	"github.com/saturn-mousehunter/saturn-risk/internal/repository"
	"github.com/saturn-mousehunter/saturn-risk/pkg/logger"
)

// EventStatistics 事件统计
type EventStatistics struct {
	TotalEvents      int64                         `json:"total_events"`
	OpenEvents       int64                         `json:"open_events"`
	EventsBySeverity map[model.AlertSeverity]int64 `json:"events_by_severity"`
	EventsByType     map[model.EventType]int64     `json:"events_by_type"`
}

// CreateEventRequest 创建事件请求
type CreateEventRequest struct {
	Type        model.EventType
	Severity    model.AlertSeverity
	SourceType  model.SourceType
	SourceID    string
	TargetType  model.TargetType
	TargetID    string
	Title       string
	Description string
	EventData   model.JSONMap
	RiskMetrics model.JSONMap
	ActionTaken model.EventAction
}

// EventService 风险事件服务
type EventService struct {
	store EventStore
}

// NewEventService 创建事件服务
func NewEventService(store EventStore) *EventService {
	return &EventService{store: store}
}

// CreateEvent 创建风险事件
func (s *EventService) CreateEvent(ctx context.Context, req *CreateEventRequest) (*model.RiskEvent, error) {
	action := req.ActionTaken
	if action == "" {
		action = model.EventActionNone
	}
	sourceType := req.SourceType
	if sourceType == "" {
		sourceType = model.SourceTypeSystem
	}

	now := time.Now()
	event := &model.RiskEvent{
		EventID:     uuid.New().String(),
		Type:        req.Type,
		Severity:    req.Severity,
		SourceType:  sourceType,
		SourceID:    req.SourceID,
		TargetType:  req.TargetType,
		TargetID:    req.TargetID,
		Title:       req.Title,
		Description: req.Description,
		EventData:   req.EventData,
		RiskMetrics: req.RiskMetrics,
		ActionTaken: action,
		Status:      model.EventStatusOpen,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.store.Create(ctx, event); err != nil {
		return nil, err
	}

	metrics.EventsCreated.WithLabelValues(string(event.Type)).Inc()

	logger.Info("risk event created",
		"event_id", event.EventID,
		"type", string(event.Type),
		"severity", string(event.Severity),
		"target_id", event.TargetID)

	return event, nil
}

// GetEvent 获取单个事件
func (s *EventService) GetEvent(ctx context.Context, eventID string) (*model.RiskEvent, error) {
	return s.store.GetByEventID(ctx, eventID)
}

// ListEvents 按过滤条件分页查询事件
func (s *EventService) ListEvents(ctx context.Context, filter repository.EventListFilter, pagination *repository.Pagination) ([]*model.RiskEvent, int64, error) {
	return s.store.List(ctx, filter, pagination)
}

// ListEventsByTarget 查询目标的事件历史
func (s *EventService) ListEventsByTarget(ctx context.Context, targetType model.TargetType, targetID string, pagination *repository.Pagination) ([]*model.RiskEvent, int64, error) {
	return s.store.ListByTarget(ctx, targetType, targetID, pagination)
}

// ListRecentEvents 查询最近 hours 小时内的事件
func (s *EventService) ListRecentEvents(ctx context.Context, hours, limit int) ([]*model.RiskEvent, error) {
	if hours <= 0 {
		hours = 24
	}
	if limit <= 0 {
		limit = 100
	}
	since := time.Now().Add(-time.Duration(hours) * time.Hour)
	return s.store.ListRecent(ctx, since, limit)
}

// ListOpenCriticalEvents 查询未处理的 CRITICAL 事件
func (s *EventService) ListOpenCriticalEvents(ctx context.Context, limit int) ([]*model.RiskEvent, error) {
	if limit <= 0 {
		limit = 100
	}
	return s.store.ListOpenCritical(ctx, limit)
}

// AcknowledgeEvent 确认事件
func (s *EventService) AcknowledgeEvent(ctx context.Context, eventID, acknowledgedBy string) error {
	err := s.store.UpdateStatus(ctx, eventID, model.EventStatusAcknowledged,
		[]model.EventStatus{model.EventStatusOpen}, nil)
	if err != nil {
		return err
	}

	logger.Info("risk event acknowledged", "event_id", eventID, "by", acknowledgedBy)
	return nil
}

// ResolveEvent 解决事件
func (s *EventService) ResolveEvent(ctx context.Context, eventID, resolvedBy, note string) error {
	now := time.Now()
	err := s.store.UpdateStatus(ctx, eventID, model.EventStatusResolved,
		[]model.EventStatus{model.EventStatusOpen, model.EventStatusAcknowledged},
		map[string]interface{}{
			"resolved_by":     resolvedBy,
			"resolved_at":     now,
			"resolution_note": note,
		})
	if err != nil {
		return err
	}

	logger.Info("risk event resolved", "event_id", eventID, "by", resolvedBy)
	return nil
}

// IgnoreEvent 忽略事件
func (s *EventService) IgnoreEvent(ctx context.Context, eventID, ignoredBy, note string) error {
	now := time.Now()
	err := s.store.UpdateStatus(ctx, eventID, model.EventStatusIgnored,
		[]model.EventStatus{model.EventStatusOpen, model.EventStatusAcknowledged},
		map[string]interface{}{
			"resolved_by":     ignoredBy,
			"resolved_at":     now,
			"resolution_note": note,
		})
	if err != nil {
		return err
	}

	logger.Info("risk event ignored", "event_id", eventID, "by", ignoredBy)
	return nil
}

// Statistics 统计最近 days 天的事件
func (s *EventService) Statistics(ctx context.Context, days int) (*EventStatistics, error) {
	if days <= 0 {
		days = 30
	}
	since := time.Now().AddDate(0, 0, -days)

	bySeverity, err := s.store.CountBySeverity(ctx, since)
	if err != nil {
		return nil, err
	}
	byType, err := s.store.CountByType(ctx, since)
	if err != nil {
		return nil, err
	}
	openCount, err := s.store.CountOpen(ctx)
	if err != nil {
		return nil, err
	}

	stats := &EventStatistics{
		OpenEvents:       openCount,
		EventsBySeverity: bySeverity,
		EventsByType:     byType,
	}
	for _, c := range byType {
		stats.TotalEvents += c
	}
	return stats, nil
}

// CleanupExpired 清理保留期之前的终态事件, 返回删除数量
// 未处理和已确认的事件不受保留期限制
func (s *EventService) CleanupExpired(ctx context.Context, retentionDays int) (int64, error) {
	if retentionDays <= 0 {
		retentionDays = 90
	}
	cutoff := time.Now().AddDate(0, 0, -retentionDays)

	deleted, err := s.store.DeleteTerminalBefore(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	if deleted > 0 {
		metrics.EventsCleanedUp.Add(float64(deleted))
		logger.Info("expired risk events cleaned up",
			"deleted", deleted,
			"retention_days", retentionDays)
	}
	return deleted, nil
}
