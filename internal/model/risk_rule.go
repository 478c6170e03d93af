// Package model 定义风控服务的数据模型
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// RuleType 风险规则类型 (决定评估逻辑)
type RuleType string

const (
	RuleTypeThreshold   RuleType = "THRESHOLD"   // 阈值规则
	RuleTypeTrend       RuleType = "TREND"       // 趋势规则
	RuleTypeCorrelation RuleType = "CORRELATION" // 相关性规则
	RuleTypeAnomaly     RuleType = "ANOMALY"     // 异常检测规则
)

// Valid 检查规则类型是否合法
func (t RuleType) Valid() bool {
	switch t {
	case RuleTypeThreshold, RuleTypeTrend, RuleTypeCorrelation, RuleTypeAnomaly:
		return true
	}
	return false
}

// RuleCategory 规则业务分类 (仅用于筛选，不参与评估)
type RuleCategory string

const (
	RuleCategoryGeneral          RuleCategory = "GENERAL"
	RuleCategoryPositionLimit    RuleCategory = "POSITION_LIMIT"
	RuleCategoryLossLimit        RuleCategory = "LOSS_LIMIT"
	RuleCategoryVolumeLimit      RuleCategory = "VOLUME_LIMIT"
	RuleCategorySectorLimit      RuleCategory = "SECTOR_LIMIT"
	RuleCategoryCorrelationLimit RuleCategory = "CORRELATION_LIMIT"
)

// Valid 检查规则分类是否合法
func (c RuleCategory) Valid() bool {
	switch c {
	case RuleCategoryGeneral, RuleCategoryPositionLimit, RuleCategoryLossLimit,
		RuleCategoryVolumeLimit, RuleCategorySectorLimit, RuleCategoryCorrelationLimit:
		return true
	}
	return false
}

// TargetType 规则/告警作用目标类型
type TargetType string

const (
	TargetTypeStrategy   TargetType = "STRATEGY"
	TargetTypePortfolio  TargetType = "PORTFOLIO"
	TargetTypeAccount    TargetType = "ACCOUNT"
	TargetTypeInstrument TargetType = "INSTRUMENT"
	TargetTypeSystem     TargetType = "SYSTEM"
)

// AllTargetTypes 所有目标类型
var AllTargetTypes = []TargetType{
	TargetTypeStrategy,
	TargetTypePortfolio,
	TargetTypeAccount,
	TargetTypeInstrument,
	TargetTypeSystem,
}

// Valid 检查目标类型是否合法
func (t TargetType) Valid() bool {
	switch t {
	case TargetTypeStrategy, TargetTypePortfolio, TargetTypeAccount,
		TargetTypeInstrument, TargetTypeSystem:
		return true
	}
	return false
}

// RiskRule 风险规则
type RiskRule struct {
	ID               int64               `gorm:"primaryKey;autoIncrement" json:"id"`
	RuleID           string              `gorm:"type:varchar(64);uniqueIndex;not null" json:"rule_id"`   // 规则ID
	Name             string              `gorm:"type:varchar(128);uniqueIndex;not null" json:"name"`     // 规则名称 (唯一)
	Description      string              `gorm:"type:varchar(512)" json:"description"`                   // 规则描述
	RuleType         RuleType            `gorm:"type:varchar(32);not null;index" json:"rule_type"`       // 规则类型
	Category         RuleCategory        `gorm:"type:varchar(32);not null;default:GENERAL;index" json:"category"` // 业务分类
	Config           JSONMap             `gorm:"type:jsonb" json:"config"`                               // 评估配置 (field_name/operator/...)
	Threshold        decimal.Decimal     `gorm:"type:decimal(36,18);not null" json:"threshold"`          // 阈值
	WarningThreshold decimal.NullDecimal `gorm:"type:decimal(36,18)" json:"warning_threshold"`           // 警告阈值 (可选)
	TargetType       TargetType          `gorm:"type:varchar(32);index" json:"target_type"`              // 目标类型
	TargetIDs        StringArray         `gorm:"type:jsonb" json:"target_ids"`                           // 目标ID列表 (空 = 全局适用)
	Priority         int                 `gorm:"type:integer;not null;default:100" json:"priority"`      // 优先级 (数字越小越紧急)
	IsActive         bool                `gorm:"not null;default:true;index" json:"is_active"`           // 是否激活 (软删除标记)
	IsEnabled        bool                `gorm:"not null;default:true;index" json:"is_enabled"`          // 是否启用
	EffectiveFrom    *time.Time          `json:"effective_from"`                                         // 生效时间 (nil 表示立即生效)
	EffectiveTo      *time.Time          `json:"effective_to"`                                           // 失效时间 (nil 表示永不失效)
	ViolationCount   int64               `gorm:"not null;default:0" json:"violation_count"`              // 违规次数
	LastTriggeredAt  *time.Time          `json:"last_triggered_at"`                                      // 最近触发时间
	CreatedBy        string              `gorm:"type:varchar(64)" json:"created_by"`
	CreatedAt        time.Time           `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedBy        string              `gorm:"type:varchar(64)" json:"updated_by"`
	UpdatedAt        time.Time           `gorm:"not null;autoUpdateTime" json:"updated_at"`
	ApprovedBy       string              `gorm:"type:varchar(64)" json:"approved_by"`
	ApprovedAt       *time.Time          `json:"approved_at"`
}

// TableName 返回表名
func (RiskRule) TableName() string {
	return "risk_rules"
}

// IsEffective 检查规则是否已到生效时间
func (r *RiskRule) IsEffective(now time.Time) bool {
	if r.EffectiveFrom == nil {
		return true
	}
	return !now.Before(*r.EffectiveFrom)
}

// IsExpired 检查规则是否已过失效时间 (区间右开)
func (r *RiskRule) IsExpired(now time.Time) bool {
	if r.EffectiveTo == nil {
		return false
	}
	return !now.Before(*r.EffectiveTo)
}

// InForce 检查规则是否在生效中 (激活且启用且在有效期内)
func (r *RiskRule) InForce(now time.Time) bool {
	return r.IsActive && r.IsEnabled && r.IsEffective(now) && !r.IsExpired(now)
}

// AppliesTo 检查规则是否适用于指定目标 (目标列表为空视为全局适用)
func (r *RiskRule) AppliesTo(targetID string) bool {
	if len(r.TargetIDs) == 0 {
		return true
	}
	return r.TargetIDs.Contains(targetID)
}
