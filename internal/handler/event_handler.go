package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/saturn-mousehunter/saturn-risk/internal/model"
	"github.com/saturn-mousehunter/saturn-risk/internal/repository"
	"github.com/saturn-mousehunter/saturn-risk/internal/service"
)

// EventHandler 风险事件接口
type EventHandler struct {
	eventSvc *service.EventService
}

// NewEventHandler 创建事件接口处理器
func NewEventHandler(eventSvc *service.EventService) *EventHandler {
	return &EventHandler{eventSvc: eventSvc}
}

// createEventRequest 创建事件请求体
type createEventRequest struct {
	Type        string        `json:"type" binding:"required"`
	Severity    string        `json:"severity" binding:"required"`
	SourceType  string        `json:"source_type"`
	SourceID    string        `json:"source_id"`
	TargetType  string        `json:"target_type" binding:"required"`
	TargetID    string        `json:"target_id" binding:"required"`
	Title       string        `json:"title" binding:"required"`
	Description string        `json:"description"`
	EventData   model.JSONMap `json:"event_data"`
	RiskMetrics model.JSONMap `json:"risk_metrics"`
	ActionTaken string        `json:"action_taken"`
}

// CreateEvent 创建风险事件
func (h *EventHandler) CreateEvent(c *gin.Context) {
	var req createEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	eventType := model.EventType(req.Type)
	severity := model.AlertSeverity(req.Severity)
	targetType := model.TargetType(req.TargetType)
	if !eventType.Valid() || !severity.Valid() || !targetType.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown type, severity or target type"})
		return
	}

	event, err := h.eventSvc.CreateEvent(c.Request.Context(), &service.CreateEventRequest{
		Type:        eventType,
		Severity:    severity,
		SourceType:  model.SourceType(req.SourceType),
		SourceID:    req.SourceID,
		TargetType:  targetType,
		TargetID:    req.TargetID,
		Title:       req.Title,
		Description: req.Description,
		EventData:   req.EventData,
		RiskMetrics: req.RiskMetrics,
		ActionTaken: model.EventAction(req.ActionTaken),
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, event)
}

// GetEvent 获取单个事件
func (h *EventHandler) GetEvent(c *gin.Context) {
	event, err := h.eventSvc.GetEvent(c.Request.Context(), c.Param("event_id"))
	if err != nil {
		writeEventError(c, err)
		return
	}
	c.JSON(http.StatusOK, event)
}

// ListEvents 查询事件列表
func (h *EventHandler) ListEvents(c *gin.Context) {
	filter := repository.EventListFilter{
		Type:       model.EventType(c.Query("type")),
		Severity:   model.AlertSeverity(c.Query("severity")),
		Status:     model.EventStatus(c.Query("status")),
		TargetType: model.TargetType(c.Query("target_type")),
		TargetID:   c.Query("target_id"),
		SourceType: model.SourceType(c.Query("source_type")),
	}

	events, total, err := h.eventSvc.ListEvents(c.Request.Context(), filter, paginationFromQuery(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": events, "total": total})
}

// ListEventsByTarget 查询目标的事件历史
func (h *EventHandler) ListEventsByTarget(c *gin.Context) {
	targetType := model.TargetType(c.Param("target_type"))
	if !targetType.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown target type"})
		return
	}

	events, total, err := h.eventSvc.ListEventsByTarget(
		c.Request.Context(), targetType, c.Param("target_id"), paginationFromQuery(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": events, "total": total})
}

// ListRecentEvents 查询最近事件
func (h *EventHandler) ListRecentEvents(c *gin.Context) {
	hours, _ := strconv.Atoi(c.DefaultQuery("hours", "24"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))

	events, err := h.eventSvc.ListRecentEvents(c.Request.Context(), hours, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": events, "count": len(events)})
}

// ListCriticalEvents 查询未处理的 CRITICAL 事件
func (h *EventHandler) ListCriticalEvents(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))

	events, err := h.eventSvc.ListOpenCriticalEvents(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": events, "count": len(events)})
}

// resolutionNoteRequest 事件处理请求体
type resolutionNoteRequest struct {
	Note string `json:"note"`
}

// AcknowledgeEvent 确认事件
func (h *EventHandler) AcknowledgeEvent(c *gin.Context) {
	if err := h.eventSvc.AcknowledgeEvent(c.Request.Context(), c.Param("event_id"), operatorID(c)); err != nil {
		writeEventError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "acknowledged"})
}

// ResolveEvent 解决事件
func (h *EventHandler) ResolveEvent(c *gin.Context) {
	var req resolutionNoteRequest
	c.ShouldBindJSON(&req)

	if err := h.eventSvc.ResolveEvent(c.Request.Context(), c.Param("event_id"), operatorID(c), req.Note); err != nil {
		writeEventError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "resolved"})
}

// IgnoreEvent 忽略事件
func (h *EventHandler) IgnoreEvent(c *gin.Context) {
	var req resolutionNoteRequest
	c.ShouldBindJSON(&req)

	if err := h.eventSvc.IgnoreEvent(c.Request.Context(), c.Param("event_id"), operatorID(c), req.Note); err != nil {
		writeEventError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ignored"})
}

// CleanupEvents 手动触发终态事件保留期清理
func (h *EventHandler) CleanupEvents(c *gin.Context) {
	days, _ := strconv.Atoi(c.DefaultQuery("days", "90"))

	deleted, err := h.eventSvc.CleanupExpired(c.Request.Context(), days)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": deleted})
}

// EventStatistics 事件统计
func (h *EventHandler) EventStatistics(c *gin.Context) {
	days, _ := strconv.Atoi(c.DefaultQuery("days", "30"))

	stats, err := h.eventSvc.Statistics(c.Request.Context(), days)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, stats)
}

// writeEventError 事件错误转 HTTP 状态码
func writeEventError(c *gin.Context, err error) {
	if errors.Is(err, repository.ErrEventNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "event not found"})
		return
	}
	if errors.Is(err, repository.ErrEventStateConflict) {
		c.JSON(http.StatusConflict, gin.H{"error": "event status does not allow this transition"})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}
