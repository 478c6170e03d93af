package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/saturn-mousehunter/saturn-risk/internal/model"
	"github.com/saturn-mousehunter/saturn-risk/internal/repository"
	"github.com/saturn-mousehunter/saturn-risk/pkg/logger"
)

var (
	// ErrRuleNameTaken 规则名称已被占用
	ErrRuleNameTaken = errors.New("rule name already taken")
	// ErrInvalidRule 规则字段校验失败
	ErrInvalidRule = errors.New("invalid rule")
)

// CreateRuleRequest 创建规则请求
type CreateRuleRequest struct {
	Name             string
	Description      string
	RuleType         model.RuleType
	Category         model.RuleCategory
	Config           model.JSONMap
	Threshold        decimal.Decimal
	WarningThreshold *decimal.Decimal
	TargetType       model.TargetType
	TargetIDs        []string
	Priority         int
	EffectiveFrom    *time.Time
	EffectiveTo      *time.Time
	CreatedBy        string
}

// UpdateRuleRequest 更新规则请求, nil 字段保持不变
type UpdateRuleRequest struct {
	RuleID           string
	Name             *string
	Description      *string
	Config           model.JSONMap
	Threshold        *decimal.Decimal
	WarningThreshold *decimal.Decimal
	TargetIDs        []string
	Priority         *int
	EffectiveFrom    *time.Time
	EffectiveTo      *time.Time
	UpdatedBy        string
}

// RuleService 规则管理服务
type RuleService struct {
	store RuleStore
	cache RuleCacheStore
}

// NewRuleService 创建规则服务
func NewRuleService(store RuleStore, cache RuleCacheStore) *RuleService {
	return &RuleService{store: store, cache: cache}
}

// CreateRule 创建规则
func (s *RuleService) CreateRule(ctx context.Context, req *CreateRuleRequest) (*model.RiskRule, error) {
	if err := s.validateCreate(req); err != nil {
		return nil, err
	}

	// 名称唯一, 数据库唯一索引兜底并发创建
	if _, err := s.store.GetByName(ctx, req.Name); err == nil {
		return nil, ErrRuleNameTaken
	} else if !errors.Is(err, repository.ErrRuleNotFound) {
		return nil, err
	}

	priority := req.Priority
	if priority <= 0 {
		priority = 100
	}

	now := time.Now()
	rule := &model.RiskRule{
		RuleID:        uuid.New().String(),
		Name:          req.Name,
		Description:   req.Description,
		RuleType:      req.RuleType,
		Category:      req.Category,
		Config:        req.Config,
		Threshold:     req.Threshold,
		TargetType:    req.TargetType,
		TargetIDs:     req.TargetIDs,
		Priority:      priority,
		IsActive:      true,
		IsEnabled:     true,
		EffectiveFrom: req.EffectiveFrom,
		EffectiveTo:   req.EffectiveTo,
		CreatedBy:     req.CreatedBy,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if req.WarningThreshold != nil {
		rule.WarningThreshold = decimal.NewNullDecimal(*req.WarningThreshold)
	}

	if err := s.store.Create(ctx, rule); err != nil {
		if errors.Is(err, repository.ErrRuleDuplicate) {
			return nil, ErrRuleNameTaken
		}
		return nil, err
	}

	s.invalidateCache(ctx, rule.TargetType)

	logger.Info("risk rule created",
		"rule_id", rule.RuleID,
		"name", rule.Name,
		"rule_type", string(rule.RuleType),
		"created_by", req.CreatedBy)

	return rule, nil
}

// GetRule 获取单个规则
func (s *RuleService) GetRule(ctx context.Context, ruleID string) (*model.RiskRule, error) {
	return s.store.GetByRuleID(ctx, ruleID)
}

// ListRules 按过滤条件分页查询规则
func (s *RuleService) ListRules(ctx context.Context, filter repository.RuleListFilter, pagination *repository.Pagination) ([]*model.RiskRule, int64, error) {
	return s.store.List(ctx, filter, pagination)
}

// UpdateRule 更新规则
func (s *RuleService) UpdateRule(ctx context.Context, req *UpdateRuleRequest) (*model.RiskRule, error) {
	rule, err := s.store.GetByRuleID(ctx, req.RuleID)
	if err != nil {
		return nil, err
	}

	if req.Name != nil && *req.Name != rule.Name {
		if *req.Name == "" {
			return nil, fmt.Errorf("%w: name is required", ErrInvalidRule)
		}
		if _, err := s.store.GetByName(ctx, *req.Name); err == nil {
			return nil, ErrRuleNameTaken
		} else if !errors.Is(err, repository.ErrRuleNotFound) {
			return nil, err
		}
		rule.Name = *req.Name
	}
	if req.Description != nil {
		rule.Description = *req.Description
	}
	if req.Config != nil {
		rule.Config = req.Config
	}
	if req.Threshold != nil {
		rule.Threshold = *req.Threshold
	}
	if req.WarningThreshold != nil {
		rule.WarningThreshold = decimal.NewNullDecimal(*req.WarningThreshold)
	}
	if req.TargetIDs != nil {
		rule.TargetIDs = req.TargetIDs
	}
	if req.Priority != nil {
		if *req.Priority <= 0 {
			return nil, fmt.Errorf("%w: priority must be positive", ErrInvalidRule)
		}
		rule.Priority = *req.Priority
	}
	if req.EffectiveFrom != nil {
		rule.EffectiveFrom = req.EffectiveFrom
	}
	if req.EffectiveTo != nil {
		rule.EffectiveTo = req.EffectiveTo
	}
	if rule.EffectiveFrom != nil && rule.EffectiveTo != nil && !rule.EffectiveTo.After(*rule.EffectiveFrom) {
		return nil, fmt.Errorf("%w: effective window is empty", ErrInvalidRule)
	}
	rule.UpdatedBy = req.UpdatedBy

	if err := s.store.Update(ctx, rule); err != nil {
		if errors.Is(err, repository.ErrRuleDuplicate) {
			return nil, ErrRuleNameTaken
		}
		return nil, err
	}

	s.invalidateCache(ctx, rule.TargetType)

	logger.Info("risk rule updated",
		"rule_id", rule.RuleID,
		"updated_by", req.UpdatedBy)

	return s.store.GetByRuleID(ctx, rule.RuleID)
}

// ApproveRule 审批规则
func (s *RuleService) ApproveRule(ctx context.Context, ruleID, approvedBy string) error {
	if err := s.store.Approve(ctx, ruleID, approvedBy); err != nil {
		return err
	}

	logger.Info("risk rule approved", "rule_id", ruleID, "approved_by", approvedBy)
	return nil
}

// ActivateRule 激活规则
func (s *RuleService) ActivateRule(ctx context.Context, ruleID, operator string) error {
	return s.setActive(ctx, ruleID, true, operator)
}

// DeactivateRule 停用规则
func (s *RuleService) DeactivateRule(ctx context.Context, ruleID, operator string) error {
	return s.setActive(ctx, ruleID, false, operator)
}

// SetRuleEnabled 启用/禁用规则
func (s *RuleService) SetRuleEnabled(ctx context.Context, ruleID string, enabled bool, operator string) error {
	rule, err := s.store.GetByRuleID(ctx, ruleID)
	if err != nil {
		return err
	}
	if err := s.store.SetEnabled(ctx, ruleID, enabled, operator); err != nil {
		return err
	}

	s.invalidateCache(ctx, rule.TargetType)

	logger.Info("risk rule enabled flag changed",
		"rule_id", ruleID,
		"enabled", enabled,
		"operator", operator)
	return nil
}

// DeleteRule 删除规则
func (s *RuleService) DeleteRule(ctx context.Context, ruleID string) error {
	rule, err := s.store.GetByRuleID(ctx, ruleID)
	if err != nil {
		return err
	}
	if err := s.store.Delete(ctx, ruleID); err != nil {
		return err
	}

	s.invalidateCache(ctx, rule.TargetType)

	logger.Info("risk rule deleted", "rule_id", ruleID)
	return nil
}

func (s *RuleService) setActive(ctx context.Context, ruleID string, active bool, operator string) error {
	rule, err := s.store.GetByRuleID(ctx, ruleID)
	if err != nil {
		return err
	}
	if err := s.store.SetActive(ctx, ruleID, active, operator); err != nil {
		return err
	}

	s.invalidateCache(ctx, rule.TargetType)

	logger.Info("risk rule active flag changed",
		"rule_id", ruleID,
		"active", active,
		"operator", operator)
	return nil
}

// validateCreate 校验创建请求
func (s *RuleService) validateCreate(req *CreateRuleRequest) error {
	if req.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidRule)
	}
	if !req.RuleType.Valid() {
		return fmt.Errorf("%w: unknown rule type %q", ErrInvalidRule, req.RuleType)
	}
	if !req.Category.Valid() {
		return fmt.Errorf("%w: unknown category %q", ErrInvalidRule, req.Category)
	}
	if !req.TargetType.Valid() {
		return fmt.Errorf("%w: unknown target type %q", ErrInvalidRule, req.TargetType)
	}
	if req.EffectiveFrom != nil && req.EffectiveTo != nil && !req.EffectiveTo.After(*req.EffectiveFrom) {
		return fmt.Errorf("%w: effective window is empty", ErrInvalidRule)
	}
	return nil
}

// invalidateCache 规则变更后失效缓存, 失败只记日志 (TTL 兜底)
func (s *RuleService) invalidateCache(ctx context.Context, targetType model.TargetType) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, targetType); err != nil {
		logger.Warn("rule cache invalidation failed",
			"target_type", string(targetType),
			"error", err)
	}
}
