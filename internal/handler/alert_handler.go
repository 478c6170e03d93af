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

// AlertHandler 告警与评估接口
type AlertHandler struct {
	alertSvc *service.AlertService
	evalSvc  *service.EvaluationService
}

// NewAlertHandler 创建告警接口处理器
func NewAlertHandler(alertSvc *service.AlertService, evalSvc *service.EvaluationService) *AlertHandler {
	return &AlertHandler{alertSvc: alertSvc, evalSvc: evalSvc}
}

// evaluateRequest 规则评估请求体
type evaluateRequest struct {
	TargetType string        `json:"target_type" binding:"required"`
	TargetID   string        `json:"target_id" binding:"required"`
	Data       model.JSONMap `json:"data" binding:"required"`
}

// Evaluate 用指标数据评估目标的风险规则
func (h *AlertHandler) Evaluate(c *gin.Context) {
	var req evaluateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	targetType := model.TargetType(req.TargetType)
	if !targetType.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown target type"})
		return
	}

	alerts, err := h.evalSvc.Evaluate(c.Request.Context(), targetType, req.TargetID, req.Data)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"triggered_alerts": alerts,
		"count":            len(alerts),
	})
}

// GetAlert 获取单个告警
func (h *AlertHandler) GetAlert(c *gin.Context) {
	alert, err := h.alertSvc.GetAlert(c.Request.Context(), c.Param("alert_id"))
	if err != nil {
		writeAlertError(c, err)
		return
	}
	c.JSON(http.StatusOK, alert)
}

// ListAlerts 查询告警列表
func (h *AlertHandler) ListAlerts(c *gin.Context) {
	filter := repository.AlertListFilter{
		Status:     model.AlertStatus(c.Query("status")),
		Severity:   model.AlertSeverity(c.Query("severity")),
		AlertType:  model.RuleType(c.Query("alert_type")),
		RuleID:     c.Query("rule_id"),
		TargetType: model.TargetType(c.Query("target_type")),
		TargetID:   c.Query("target_id"),
	}

	alerts, total, err := h.alertSvc.ListAlerts(c.Request.Context(), filter, paginationFromQuery(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": alerts, "total": total})
}

// ListActiveAlerts 查询活跃告警
func (h *AlertHandler) ListActiveAlerts(c *gin.Context) {
	alerts, err := h.alertSvc.GetActiveAlerts(
		c.Request.Context(),
		model.AlertSeverity(c.Query("severity")),
		model.TargetType(c.Query("target_type")),
	)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": alerts, "count": len(alerts)})
}

// resolutionRequest 告警处理请求体
type resolutionRequest struct {
	Notes string `json:"notes"`
}

// AcknowledgeAlert 确认告警
func (h *AlertHandler) AcknowledgeAlert(c *gin.Context) {
	alert, err := h.alertSvc.Acknowledge(c.Request.Context(), c.Param("alert_id"), operatorID(c))
	if err != nil {
		writeAlertError(c, err)
		return
	}
	c.JSON(http.StatusOK, alert)
}

// ResolveAlert 解决告警
func (h *AlertHandler) ResolveAlert(c *gin.Context) {
	var req resolutionRequest
	c.ShouldBindJSON(&req)

	alert, err := h.alertSvc.Resolve(c.Request.Context(), c.Param("alert_id"), operatorID(c), req.Notes)
	if err != nil {
		writeAlertError(c, err)
		return
	}
	c.JSON(http.StatusOK, alert)
}

// DismissAlert 驳回告警
func (h *AlertHandler) DismissAlert(c *gin.Context) {
	var req resolutionRequest
	c.ShouldBindJSON(&req)

	alert, err := h.alertSvc.Dismiss(c.Request.Context(), c.Param("alert_id"), operatorID(c), req.Notes)
	if err != nil {
		writeAlertError(c, err)
		return
	}
	c.JSON(http.StatusOK, alert)
}

// AlertStatistics 告警统计
func (h *AlertHandler) AlertStatistics(c *gin.Context) {
	days, _ := strconv.Atoi(c.DefaultQuery("days", "30"))

	stats, err := h.alertSvc.Statistics(c.Request.Context(), days)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, stats)
}

// writeAlertError 告警错误转 HTTP 状态码
func writeAlertError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, repository.ErrAlertNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "alert not found"})
	case errors.Is(err, service.ErrInvalidTransition):
		c.JSON(http.StatusConflict, gin.H{"error": "invalid alert status transition"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
