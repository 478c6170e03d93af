package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/saturn-mousehunter/saturn-risk/internal/model"
)

var (
	ErrEventNotFound = errors.New("risk event not found")
	// ErrEventStateConflict 事件状态已变化, 更新的前置状态不再满足
	ErrEventStateConflict = errors.New("risk event state conflict")
)

// EventListFilter 事件列表过滤条件
type EventListFilter struct {
	Type       model.EventType
	Severity   model.AlertSeverity
	Status     model.EventStatus
	TargetType model.TargetType
	TargetID   string
	SourceType model.SourceType
	Created    TimeRange
}

// RiskEventRepository 风险事件仓储
type RiskEventRepository struct {
	db *gorm.DB
}

// NewRiskEventRepository 创建风险事件仓储
func NewRiskEventRepository(db *gorm.DB) *RiskEventRepository {
	return &RiskEventRepository{db: db}
}

// Create 创建风险事件
func (r *RiskEventRepository) Create(ctx context.Context, event *model.RiskEvent) error {
	result := r.db.WithContext(ctx).Create(event)
	if result.Error != nil {
		return result.Error
	}
	return nil
}

// GetByEventID 根据事件ID获取
func (r *RiskEventRepository) GetByEventID(ctx context.Context, eventID string) (*model.RiskEvent, error) {
	var event model.RiskEvent
	err := r.db.WithContext(ctx).
		Where("event_id = ?", eventID).
		First(&event).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEventNotFound
		}
		return nil, err
	}
	return &event, nil
}

// List 按过滤条件分页查询事件
func (r *RiskEventRepository) List(ctx context.Context, filter EventListFilter, pagination *Pagination) ([]*model.RiskEvent, int64, error) {
	var events []*model.RiskEvent
	var total int64

	query := r.applyFilter(r.db.WithContext(ctx).Model(&model.RiskEvent{}), filter)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.
		Offset(pagination.Offset()).
		Limit(pagination.Limit()).
		Order("created_at DESC").
		Find(&events).Error

	if err != nil {
		return nil, 0, err
	}
	return events, total, nil
}

// ListByTarget 查询指定目标的事件历史
func (r *RiskEventRepository) ListByTarget(ctx context.Context, targetType model.TargetType, targetID string, pagination *Pagination) ([]*model.RiskEvent, int64, error) {
	return r.List(ctx, EventListFilter{TargetType: targetType, TargetID: targetID}, pagination)
}

// ListRecent 查询指定时间之后的事件 (按时间倒序)
func (r *RiskEventRepository) ListRecent(ctx context.Context, since time.Time, limit int) ([]*model.RiskEvent, error) {
	var events []*model.RiskEvent
	err := r.db.WithContext(ctx).
		Where("created_at >= ?", since).
		Order("created_at DESC").
		Limit(limit).
		Find(&events).Error

	if err != nil {
		return nil, err
	}
	return events, nil
}

// ListOpenCritical 查询未处理的 CRITICAL 事件 (先创建的优先处理)
func (r *RiskEventRepository) ListOpenCritical(ctx context.Context, limit int) ([]*model.RiskEvent, error) {
	var events []*model.RiskEvent
	err := r.db.WithContext(ctx).
		Where("severity = ?", model.AlertSeverityCritical).
		Where("status = ?", model.EventStatusOpen).
		Order("created_at ASC").
		Limit(limit).
		Find(&events).Error

	if err != nil {
		return nil, err
	}
	return events, nil
}

// UpdateStatus 更新事件状态, fromStatuses 限制允许的前置状态
// 事件存在但前置状态不满足时区分返回 ErrEventStateConflict
func (r *RiskEventRepository) UpdateStatus(ctx context.Context, eventID string, toStatus model.EventStatus, fromStatuses []model.EventStatus, updates map[string]interface{}) error {
	if updates == nil {
		updates = make(map[string]interface{})
	}
	updates["status"] = toStatus
	updates["updated_at"] = time.Now()

	query := r.db.WithContext(ctx).
		Model(&model.RiskEvent{}).
		Where("event_id = ?", eventID)
	if len(fromStatuses) > 0 {
		query = query.Where("status IN ?", fromStatuses)
	}

	result := query.Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		var count int64
		if err := r.db.WithContext(ctx).
			Model(&model.RiskEvent{}).
			Where("event_id = ?", eventID).
			Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return ErrEventNotFound
		}
		return ErrEventStateConflict
	}
	return nil
}

// CountOpen 统计未处理事件数量
func (r *RiskEventRepository) CountOpen(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.RiskEvent{}).
		Where("status = ?", model.EventStatusOpen).
		Count(&count).Error

	if err != nil {
		return 0, err
	}
	return count, nil
}

// CountBySeverity 按严重程度统计指定时间之后的事件数量
func (r *RiskEventRepository) CountBySeverity(ctx context.Context, since time.Time) (map[model.AlertSeverity]int64, error) {
	type row struct {
		Severity model.AlertSeverity
		Count    int64
	}
	var rows []row

	err := r.db.WithContext(ctx).
		Model(&model.RiskEvent{}).
		Select("severity, COUNT(*) as count").
		Where("created_at >= ?", since).
		Group("severity").
		Scan(&rows).Error

	if err != nil {
		return nil, err
	}

	counts := make(map[model.AlertSeverity]int64)
	for _, r := range rows {
		counts[r.Severity] = r.Count
	}
	return counts, nil
}

// CountByType 按事件类型统计指定时间之后的事件数量
func (r *RiskEventRepository) CountByType(ctx context.Context, since time.Time) (map[model.EventType]int64, error) {
	type row struct {
		Type  model.EventType
		Count int64
	}
	var rows []row

	err := r.db.WithContext(ctx).
		Model(&model.RiskEvent{}).
		Select("type, COUNT(*) as count").
		Where("created_at >= ?", since).
		Group("type").
		Scan(&rows).Error

	if err != nil {
		return nil, err
	}

	counts := make(map[model.EventType]int64)
	for _, r := range rows {
		counts[r.Type] = r.Count
	}
	return counts, nil
}

// DeleteTerminalBefore 删除指定时间之前的终态事件 (RESOLVED/IGNORED)，返回删除行数
func (r *RiskEventRepository) DeleteTerminalBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("status IN ?", []model.EventStatus{model.EventStatusResolved, model.EventStatusIgnored}).
		Where("created_at < ?", cutoff).
		Delete(&model.RiskEvent{})

	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// applyFilter 将过滤条件应用到查询
func (r *RiskEventRepository) applyFilter(query *gorm.DB, filter EventListFilter) *gorm.DB {
	if filter.Type != "" {
		query = query.Where("type = ?", filter.Type)
	}
	if filter.Severity != "" {
		query = query.Where("severity = ?", filter.Severity)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.TargetType != "" {
		query = query.Where("target_type = ?", filter.TargetType)
	}
	if filter.TargetID != "" {
		query = query.Where("target_id = ?", filter.TargetID)
	}
	if filter.SourceType != "" {
		query = query.Where("source_type = ?", filter.SourceType)
	}
	return filter.Created.apply(query, "created_at")
}
