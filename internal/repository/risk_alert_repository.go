package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/saturn-mousehunter/saturn-risk/internal/model"
)

var (
	ErrAlertNotFound = errors.New("risk alert not found")
	// ErrAlertStateConflict 告警状态已变化, 更新的前置状态不再满足
	ErrAlertStateConflict = errors.New("risk alert state conflict")
)

// AlertListFilter 告警列表过滤条件
type AlertListFilter struct {
	Status     model.AlertStatus
	Severity   model.AlertSeverity
	AlertType  model.RuleType
	RuleID     string
	TargetType model.TargetType
	TargetID   string
	ActiveOnly bool
	Created    TimeRange
}

// RiskAlertRepository 风控告警仓储
type RiskAlertRepository struct {
	db *gorm.DB
}

// NewRiskAlertRepository 创建风控告警仓储
func NewRiskAlertRepository(db *gorm.DB) *RiskAlertRepository {
	return &RiskAlertRepository{db: db}
}

// Create 创建告警
func (r *RiskAlertRepository) Create(ctx context.Context, alert *model.RiskAlert) error {
	result := r.db.WithContext(ctx).Create(alert)
	if result.Error != nil {
		return result.Error
	}
	return nil
}

// GetByAlertID 根据告警ID获取
func (r *RiskAlertRepository) GetByAlertID(ctx context.Context, alertID string) (*model.RiskAlert, error) {
	var alert model.RiskAlert
	err := r.db.WithContext(ctx).
		Where("alert_id = ?", alertID).
		First(&alert).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAlertNotFound
		}
		return nil, err
	}
	return &alert, nil
}

// List 按过滤条件分页查询告警
func (r *RiskAlertRepository) List(ctx context.Context, filter AlertListFilter, pagination *Pagination) ([]*model.RiskAlert, int64, error) {
	var alerts []*model.RiskAlert
	var total int64

	query := r.applyFilter(r.db.WithContext(ctx).Model(&model.RiskAlert{}), filter)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.
		Offset(pagination.Offset()).
		Limit(pagination.Limit()).
		Order("created_at DESC").
		Find(&alerts).Error

	if err != nil {
		return nil, 0, err
	}
	return alerts, total, nil
}

// ListActive 查询所有未终结告警
func (r *RiskAlertRepository) ListActive(ctx context.Context) ([]*model.RiskAlert, error) {
	var alerts []*model.RiskAlert
	err := r.db.WithContext(ctx).
		Where("status IN ?", []model.AlertStatus{model.AlertStatusActive, model.AlertStatusAcknowledged}).
		Order("created_at DESC").
		Find(&alerts).Error

	if err != nil {
		return nil, err
	}
	return alerts, nil
}

// ListCreatedSince 查询指定时间之后创建的告警
func (r *RiskAlertRepository) ListCreatedSince(ctx context.Context, since time.Time) ([]*model.RiskAlert, error) {
	var alerts []*model.RiskAlert
	err := r.db.WithContext(ctx).
		Where("created_at >= ?", since).
		Order("created_at DESC").
		Find(&alerts).Error

	if err != nil {
		return nil, err
	}
	return alerts, nil
}

// Transition 在前置状态约束下变更告警状态
// 状态已被并发修改时 WHERE 条件不再命中, 区分返回 ErrAlertStateConflict
func (r *RiskAlertRepository) Transition(ctx context.Context, alertID string, from, to model.AlertStatus, updates map[string]interface{}) error {
	if updates == nil {
		updates = make(map[string]interface{})
	}
	updates["status"] = to
	updates["is_active"] = !to.Terminal()
	updates["updated_at"] = time.Now()

	result := r.db.WithContext(ctx).
		Model(&model.RiskAlert{}).
		Where("alert_id = ?", alertID).
		Where("status = ?", from).
		Updates(updates)

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		var count int64
		if err := r.db.WithContext(ctx).
			Model(&model.RiskAlert{}).
			Where("alert_id = ?", alertID).
			Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return ErrAlertNotFound
		}
		return ErrAlertStateConflict
	}
	return nil
}

// CountByStatus 按状态统计指定时间之后的告警数量
func (r *RiskAlertRepository) CountByStatus(ctx context.Context, since time.Time) (map[model.AlertStatus]int64, error) {
	type row struct {
		Status model.AlertStatus
		Count  int64
	}
	var rows []row

	err := r.db.WithContext(ctx).
		Model(&model.RiskAlert{}).
		Select("status, COUNT(*) as count").
		Where("created_at >= ?", since).
		Group("status").
		Scan(&rows).Error

	if err != nil {
		return nil, err
	}

	counts := make(map[model.AlertStatus]int64)
	for _, r := range rows {
		counts[r.Status] = r.Count
	}
	return counts, nil
}

// CountBySeverity 按严重程度统计指定时间之后的告警数量
func (r *RiskAlertRepository) CountBySeverity(ctx context.Context, since time.Time) (map[model.AlertSeverity]int64, error) {
	type row struct {
		Severity model.AlertSeverity
		Count    int64
	}
	var rows []row

	err := r.db.WithContext(ctx).
		Model(&model.RiskAlert{}).
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

// applyFilter 将过滤条件应用到查询
func (r *RiskAlertRepository) applyFilter(query *gorm.DB, filter AlertListFilter) *gorm.DB {
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.Severity != "" {
		query = query.Where("severity = ?", filter.Severity)
	}
	if filter.AlertType != "" {
		query = query.Where("alert_type = ?", filter.AlertType)
	}
	if filter.RuleID != "" {
		query = query.Where("rule_id = ?", filter.RuleID)
	}
	if filter.TargetType != "" {
		query = query.Where("target_type = ?", filter.TargetType)
	}
	if filter.TargetID != "" {
		query = query.Where("target_id = ?", filter.TargetID)
	}
	if filter.ActiveOnly {
		query = query.Where("is_active = ?", true)
	}
	return filter.Created.apply(query, "created_at")
}
