package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/saturn-mousehunter/saturn-risk/internal/model"
)

var (
	ErrRuleNotFound  = errors.New("risk rule not found")
	ErrRuleDuplicate = errors.New("risk rule already exists")
)

// RuleListFilter 规则列表过滤条件
type RuleListFilter struct {
	RuleType   model.RuleType
	Category   model.RuleCategory
	TargetType model.TargetType
	ActiveOnly bool
}

// RiskRuleRepository 风控规则仓储
type RiskRuleRepository struct {
	db *gorm.DB
}

// NewRiskRuleRepository 创建风控规则仓储
func NewRiskRuleRepository(db *gorm.DB) *RiskRuleRepository {
	return &RiskRuleRepository{db: db}
}

// Create 创建规则
func (r *RiskRuleRepository) Create(ctx context.Context, rule *model.RiskRule) error {
	result := r.db.WithContext(ctx).Create(rule)
	if result.Error != nil {
		if isDuplicateKeyError(result.Error) {
			return ErrRuleDuplicate
		}
		return result.Error
	}
	return nil
}

// Update 更新规则可变字段
func (r *RiskRuleRepository) Update(ctx context.Context, rule *model.RiskRule) error {
	result := r.db.WithContext(ctx).
		Model(&model.RiskRule{}).
		Where("rule_id = ?", rule.RuleID).
		Updates(map[string]interface{}{
			"name":              rule.Name,
			"description":       rule.Description,
			"config":            rule.Config,
			"threshold":         rule.Threshold,
			"warning_threshold": rule.WarningThreshold,
			"target_type":       rule.TargetType,
			"target_ids":        rule.TargetIDs,
			"priority":          rule.Priority,
			"effective_from":    rule.EffectiveFrom,
			"effective_to":      rule.EffectiveTo,
			"updated_by":        rule.UpdatedBy,
			"updated_at":        time.Now(),
		})

	if result.Error != nil {
		if isDuplicateKeyError(result.Error) {
			return ErrRuleDuplicate
		}
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrRuleNotFound
	}
	return nil
}

// GetByRuleID 根据规则ID获取
func (r *RiskRuleRepository) GetByRuleID(ctx context.Context, ruleID string) (*model.RiskRule, error) {
	var rule model.RiskRule
	err := r.db.WithContext(ctx).
		Where("rule_id = ?", ruleID).
		First(&rule).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRuleNotFound
		}
		return nil, err
	}
	return &rule, nil
}

// GetByName 根据规则名称获取
func (r *RiskRuleRepository) GetByName(ctx context.Context, name string) (*model.RiskRule, error) {
	var rule model.RiskRule
	err := r.db.WithContext(ctx).
		Where("name = ?", name).
		First(&rule).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRuleNotFound
		}
		return nil, err
	}
	return &rule, nil
}

// ListForTargetType 查询作用于指定目标类型的全部启用规则
// 不按 target_ids 过滤: 结果按目标类型缓存共用, 目标级圈定在评估侧判断
func (r *RiskRuleRepository) ListForTargetType(ctx context.Context, targetType model.TargetType) ([]*model.RiskRule, error) {
	var rules []*model.RiskRule
	err := r.db.WithContext(ctx).
		Where("target_type = ?", targetType).
		Where("is_active = ? AND is_enabled = ?", true, true).
		Order("priority ASC, id ASC").
		Find(&rules).Error

	if err != nil {
		return nil, err
	}
	return rules, nil
}

// ListActiveByType 查询指定类型的启用规则
func (r *RiskRuleRepository) ListActiveByType(ctx context.Context, ruleType model.RuleType) ([]*model.RiskRule, error) {
	var rules []*model.RiskRule
	err := r.db.WithContext(ctx).
		Where("rule_type = ?", ruleType).
		Where("is_active = ? AND is_enabled = ?", true, true).
		Order("priority ASC, id ASC").
		Find(&rules).Error

	if err != nil {
		return nil, err
	}
	return rules, nil
}

// List 分页查询规则列表
func (r *RiskRuleRepository) List(ctx context.Context, filter RuleListFilter, pagination *Pagination) ([]*model.RiskRule, int64, error) {
	var rules []*model.RiskRule
	var total int64

	query := r.db.WithContext(ctx).Model(&model.RiskRule{})
	if filter.RuleType != "" {
		query = query.Where("rule_type = ?", filter.RuleType)
	}
	if filter.Category != "" {
		query = query.Where("category = ?", filter.Category)
	}
	if filter.TargetType != "" {
		query = query.Where("target_type = ?", filter.TargetType)
	}
	if filter.ActiveOnly {
		query = query.Where("is_active = ?", true)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.
		Offset(pagination.Offset()).
		Limit(pagination.Limit()).
		Order("priority ASC, id ASC").
		Find(&rules).Error

	if err != nil {
		return nil, 0, err
	}
	return rules, total, nil
}

// IncrementViolation 原子累加违规次数并记录触发时间
func (r *RiskRuleRepository) IncrementViolation(ctx context.Context, ruleID string, triggeredAt time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&model.RiskRule{}).
		Where("rule_id = ?", ruleID).
		Updates(map[string]interface{}{
			"violation_count":   gorm.Expr("violation_count + 1"),
			"last_triggered_at": triggeredAt,
			"updated_at":        time.Now(),
		})

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrRuleNotFound
	}
	return nil
}

// Approve 审批规则
func (r *RiskRuleRepository) Approve(ctx context.Context, ruleID, approvedBy string) error {
	now := time.Now()
	result := r.db.WithContext(ctx).
		Model(&model.RiskRule{}).
		Where("rule_id = ?", ruleID).
		Updates(map[string]interface{}{
			"approved_by": approvedBy,
			"approved_at": now,
			"updated_at":  now,
		})

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrRuleNotFound
	}
	return nil
}

// SetActive 设置规则激活状态
func (r *RiskRuleRepository) SetActive(ctx context.Context, ruleID string, active bool, updatedBy string) error {
	result := r.db.WithContext(ctx).
		Model(&model.RiskRule{}).
		Where("rule_id = ?", ruleID).
		Updates(map[string]interface{}{
			"is_active":  active,
			"updated_by": updatedBy,
			"updated_at": time.Now(),
		})

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrRuleNotFound
	}
	return nil
}

// SetEnabled 设置规则启用状态
func (r *RiskRuleRepository) SetEnabled(ctx context.Context, ruleID string, enabled bool, updatedBy string) error {
	result := r.db.WithContext(ctx).
		Model(&model.RiskRule{}).
		Where("rule_id = ?", ruleID).
		Updates(map[string]interface{}{
			"is_enabled": enabled,
			"updated_by": updatedBy,
			"updated_at": time.Now(),
		})

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrRuleNotFound
	}
	return nil
}

// Delete 删除规则
func (r *RiskRuleRepository) Delete(ctx context.Context, ruleID string) error {
	result := r.db.WithContext(ctx).
		Where("rule_id = ?", ruleID).
		Delete(&model.RiskRule{})

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrRuleNotFound
	}
	return nil
}
