package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// AlertSeverity 告警严重程度
type AlertSeverity string

const (
	AlertSeverityLow      AlertSeverity = "LOW"
	AlertSeverityMedium   AlertSeverity = "MEDIUM"
	AlertSeverityHigh     AlertSeverity = "HIGH"
	AlertSeverityCritical AlertSeverity = "CRITICAL"
)

// Valid 检查严重程度是否合法
func (s AlertSeverity) Valid() bool {
	switch s {
	case AlertSeverityLow, AlertSeverityMedium, AlertSeverityHigh, AlertSeverityCritical:
		return true
	}
	return false
}

// AlertStatus 告警状态
type AlertStatus string

const (
	AlertStatusActive       AlertStatus = "ACTIVE"
	AlertStatusAcknowledged AlertStatus = "ACKNOWLEDGED"
	AlertStatusResolved     AlertStatus = "RESOLVED"
	AlertStatusDismissed    AlertStatus = "DISMISSED"
)

// Valid 检查告警状态是否合法
func (s AlertStatus) Valid() bool {
	switch s {
	case AlertStatusActive, AlertStatusAcknowledged, AlertStatusResolved, AlertStatusDismissed:
		return true
	}
	return false
}

// Terminal 检查是否为终态
func (s AlertStatus) Terminal() bool {
	return s == AlertStatusResolved || s == AlertStatusDismissed
}

// CanTransitionTo 检查状态迁移是否合法 (生命周期只前进，不回退)
func (s AlertStatus) CanTransitionTo(next AlertStatus) bool {
	switch s {
	case AlertStatusActive:
		return next == AlertStatusAcknowledged || next == AlertStatusResolved || next == AlertStatusDismissed
	case AlertStatusAcknowledged:
		return next == AlertStatusResolved || next == AlertStatusDismissed
	default:
		return false
	}
}

// RiskAlert 风险告警 (由规则触发创建，经确认/解决生命周期流转)
type RiskAlert struct {
	ID              int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	AlertID         string          `gorm:"type:varchar(64);uniqueIndex;not null" json:"alert_id"`     // 告警ID
	Name            string          `gorm:"type:varchar(255);not null" json:"name"`                    // 告警名称
	AlertType       RuleType        `gorm:"type:varchar(32);not null;index" json:"alert_type"`         // 告警类型 (同触发规则类型)
	Severity        AlertSeverity   `gorm:"type:varchar(16);not null;index" json:"severity"`           // 严重程度
	Status          AlertStatus     `gorm:"type:varchar(16);not null;default:ACTIVE;index" json:"status"` // 状态
	RuleID          string          `gorm:"type:varchar(64);not null;index" json:"rule_id"`            // 触发规则ID
	RuleName        string          `gorm:"type:varchar(128)" json:"rule_name"`                        // 触发规则名称
	TargetType      TargetType      `gorm:"type:varchar(32);index" json:"target_type"`                 // 目标类型
	TargetID        string          `gorm:"type:varchar(64);index" json:"target_id"`                   // 目标ID
	Threshold       decimal.Decimal `gorm:"type:decimal(36,18)" json:"threshold"`                      // 触发时的阈值
	ActualValue     decimal.Decimal `gorm:"type:decimal(36,18)" json:"actual_value"`                   // 实际值
	Description     string          `gorm:"type:varchar(512)" json:"description"`                      // 描述
	AlertData       JSONMap         `gorm:"type:jsonb" json:"alert_data"`                              // 触发时的数据快照
	IsActive        bool            `gorm:"not null;default:true;index" json:"is_active"`              // 软删除标记 (告警永不物理删除)
	AcknowledgedBy  string          `gorm:"type:varchar(64)" json:"acknowledged_by"`
	AcknowledgedAt  *time.Time      `json:"acknowledged_at"`
	ResolvedBy      string          `gorm:"type:varchar(64)" json:"resolved_by"`
	ResolvedAt      *time.Time      `json:"resolved_at"`
	ResolutionNotes string          `gorm:"type:varchar(512)" json:"resolution_notes"`
	CreatedBy       string          `gorm:"type:varchar(64)" json:"created_by"`
	CreatedAt       time.Time       `gorm:"not null;autoCreateTime;index" json:"created_at"`
	UpdatedAt       time.Time       `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

// TableName 返回表名
func (RiskAlert) TableName() string {
	return "risk_alerts"
}

// IsResolved 检查告警是否已解决
func (a *RiskAlert) IsResolved() bool {
	return a.Status == AlertStatusResolved
}

// ResolutionDuration 返回从创建到解决的耗时，未解决返回 0
func (a *RiskAlert) ResolutionDuration() time.Duration {
	if a.Status != AlertStatusResolved || a.ResolvedAt == nil {
		return 0
	}
	return a.ResolvedAt.Sub(a.CreatedAt)
}
