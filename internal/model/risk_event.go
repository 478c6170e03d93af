package model

import (
	"time"
)

// EventType 风控事件类型
type EventType string

const (
	EventTypeRuleViolation      EventType = "RULE_VIOLATION"      // 规则违反
	EventTypeThresholdBreach    EventType = "THRESHOLD_BREACH"    // 阈值突破
	EventTypeAnomalyDetected    EventType = "ANOMALY_DETECTED"    // 异常检测
	EventTypeManualIntervention EventType = "MANUAL_INTERVENTION" // 人工干预
)

// Valid 检查事件类型是否合法
func (t EventType) Valid() bool {
	switch t {
	case EventTypeRuleViolation, EventTypeThresholdBreach,
		EventTypeAnomalyDetected, EventTypeManualIntervention:
		return true
	}
	return false
}

// SourceType 事件来源类型
type SourceType string

const (
	SourceTypeRule    SourceType = "RULE"
	SourceTypeMonitor SourceType = "MONITOR"
	SourceTypeManual  SourceType = "MANUAL"
	SourceTypeSystem  SourceType = "SYSTEM"
)

// Valid 检查来源类型是否合法
func (t SourceType) Valid() bool {
	switch t {
	case SourceTypeRule, SourceTypeMonitor, SourceTypeManual, SourceTypeSystem:
		return true
	}
	return false
}

// EventAction 事件已采取的动作
type EventAction string

const (
	EventActionNone      EventAction = "NONE"
	EventActionAlert     EventAction = "ALERT"
	EventActionBlock     EventAction = "BLOCK"
	EventActionReduce    EventAction = "REDUCE"
	EventActionLiquidate EventAction = "LIQUIDATE"
)

// Valid 检查动作是否合法
func (a EventAction) Valid() bool {
	switch a {
	case EventActionNone, EventActionAlert, EventActionBlock,
		EventActionReduce, EventActionLiquidate:
		return true
	}
	return false
}

// EventStatus 风控事件状态
type EventStatus string

const (
	EventStatusOpen         EventStatus = "OPEN"
	EventStatusAcknowledged EventStatus = "ACKNOWLEDGED"
	EventStatusResolved     EventStatus = "RESOLVED"
	EventStatusIgnored      EventStatus = "IGNORED"
)

// Valid 检查事件状态是否合法
func (s EventStatus) Valid() bool {
	switch s {
	case EventStatusOpen, EventStatusAcknowledged, EventStatusResolved, EventStatusIgnored:
		return true
	}
	return false
}

// Terminal 检查是否为终态 (终态事件才可被保留期清理)
func (s EventStatus) Terminal() bool {
	return s == EventStatusResolved || s == EventStatusIgnored
}

// RiskEvent 风控事件记录 (独立于告警的风险发生记录，不一定由规则触发)
type RiskEvent struct {
	ID             int64         `gorm:"primaryKey;autoIncrement" json:"id"`
	EventID        string        `gorm:"type:varchar(64);uniqueIndex;not null" json:"event_id"` // 事件ID
	Type           EventType     `gorm:"type:varchar(32);not null;index" json:"type"`           // 事件类型
	Severity       AlertSeverity `gorm:"type:varchar(16);not null;index" json:"severity"`       // 严重程度
	SourceType     SourceType    `gorm:"type:varchar(32);not null" json:"source_type"`          // 来源类型
	SourceID       string        `gorm:"type:varchar(64)" json:"source_id"`                     // 来源ID (如规则ID)
	TargetType     TargetType    `gorm:"type:varchar(32);index" json:"target_type"`             // 目标类型
	TargetID       string        `gorm:"type:varchar(64);index" json:"target_id"`               // 目标ID
	Title          string        `gorm:"type:varchar(255);not null" json:"title"`               // 标题
	Description    string        `gorm:"type:varchar(512)" json:"description"`                  // 描述
	EventData      JSONMap       `gorm:"type:jsonb" json:"event_data"`                          // 事件数据
	RiskMetrics    JSONMap       `gorm:"type:jsonb" json:"risk_metrics"`                        // 风险指标快照
	ActionTaken    EventAction   `gorm:"type:varchar(16);not null;default:NONE" json:"action_taken"` // 已采取动作
	Status         EventStatus   `gorm:"type:varchar(16);not null;default:OPEN;index" json:"status"` // 状态
	ResolvedBy     string        `gorm:"type:varchar(64)" json:"resolved_by"`
	ResolvedAt     *time.Time    `json:"resolved_at"`
	ResolutionNote string        `gorm:"type:varchar(512)" json:"resolution_note"`
	CreatedAt      time.Time     `gorm:"not null;autoCreateTime;index" json:"created_at"`
	UpdatedAt      time.Time     `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

// TableName 返回表名
func (RiskEvent) TableName() string {
	return "risk_events"
}

// IsOpen 检查事件是否未处理
func (e *RiskEvent) IsOpen() bool {
	return e.Status == EventStatusOpen
}
