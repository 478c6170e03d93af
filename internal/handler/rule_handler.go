package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/saturn-mousehunter/saturn-risk/internal/model"
	"github.com/saturn-mousehunter/saturn-risk/internal/repository"
	"github.com/saturn-mousehunter/saturn-risk/internal/service"
)

// RuleHandler 规则管理接口
type RuleHandler struct {
	ruleSvc *service.RuleService
}

// NewRuleHandler 创建规则接口处理器
func NewRuleHandler(ruleSvc *service.RuleService) *RuleHandler {
	return &RuleHandler{ruleSvc: ruleSvc}
}

// createRuleRequest 创建规则请求体
type createRuleRequest struct {
	Name             string           `json:"name" binding:"required"`
	Description      string           `json:"description"`
	RuleType         string           `json:"rule_type" binding:"required"`
	Category         string           `json:"category" binding:"required"`
	Config           model.JSONMap    `json:"config"`
	Threshold        decimal.Decimal  `json:"threshold"`
	WarningThreshold *decimal.Decimal `json:"warning_threshold"`
	TargetType       string           `json:"target_type" binding:"required"`
	TargetIDs        []string         `json:"target_ids"`
	Priority         int              `json:"priority"`
	EffectiveFrom    *time.Time       `json:"effective_from"`
	EffectiveTo      *time.Time       `json:"effective_to"`
}

// CreateRule 创建规则
func (h *RuleHandler) CreateRule(c *gin.Context) {
	var req createRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	rule, err := h.ruleSvc.CreateRule(c.Request.Context(), &service.CreateRuleRequest{
		Name:             req.Name,
		Description:      req.Description,
		RuleType:         model.RuleType(req.RuleType),
		Category:         model.RuleCategory(req.Category),
		Config:           req.Config,
		Threshold:        req.Threshold,
		WarningThreshold: req.WarningThreshold,
		TargetType:       model.TargetType(req.TargetType),
		TargetIDs:        req.TargetIDs,
		Priority:         req.Priority,
		EffectiveFrom:    req.EffectiveFrom,
		EffectiveTo:      req.EffectiveTo,
		CreatedBy:        operatorID(c),
	})
	if err != nil {
		writeRuleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, rule)
}

// GetRule 获取单个规则
func (h *RuleHandler) GetRule(c *gin.Context) {
	rule, err := h.ruleSvc.GetRule(c.Request.Context(), c.Param("rule_id"))
	if err != nil {
		writeRuleError(c, err)
		return
	}
	c.JSON(http.StatusOK, rule)
}

// ListRules 查询规则列表
func (h *RuleHandler) ListRules(c *gin.Context) {
	filter := repository.RuleListFilter{
		RuleType:   model.RuleType(c.Query("rule_type")),
		Category:   model.RuleCategory(c.Query("category")),
		TargetType: model.TargetType(c.Query("target_type")),
		ActiveOnly: c.Query("active_only") == "true",
	}

	rules, total, err := h.ruleSvc.ListRules(c.Request.Context(), filter, paginationFromQuery(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": rules, "total": total})
}

// updateRuleRequest 更新规则请求体, 缺省字段不修改
type updateRuleRequest struct {
	Name             *string          `json:"name"`
	Description      *string          `json:"description"`
	Config           model.JSONMap    `json:"config"`
	Threshold        *decimal.Decimal `json:"threshold"`
	WarningThreshold *decimal.Decimal `json:"warning_threshold"`
	TargetIDs        []string         `json:"target_ids"`
	Priority         *int             `json:"priority"`
	EffectiveFrom    *time.Time       `json:"effective_from"`
	EffectiveTo      *time.Time       `json:"effective_to"`
}

// UpdateRule 更新规则
func (h *RuleHandler) UpdateRule(c *gin.Context) {
	var req updateRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	rule, err := h.ruleSvc.UpdateRule(c.Request.Context(), &service.UpdateRuleRequest{
		RuleID:           c.Param("rule_id"),
		Name:             req.Name,
		Description:      req.Description,
		Config:           req.Config,
		Threshold:        req.Threshold,
		WarningThreshold: req.WarningThreshold,
		TargetIDs:        req.TargetIDs,
		Priority:         req.Priority,
		EffectiveFrom:    req.EffectiveFrom,
		EffectiveTo:      req.EffectiveTo,
		UpdatedBy:        operatorID(c),
	})
	if err != nil {
		writeRuleError(c, err)
		return
	}

	c.JSON(http.StatusOK, rule)
}

// DeleteRule 删除规则
func (h *RuleHandler) DeleteRule(c *gin.Context) {
	if err := h.ruleSvc.DeleteRule(c.Request.Context(), c.Param("rule_id")); err != nil {
		writeRuleError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ApproveRule 审批规则
func (h *RuleHandler) ApproveRule(c *gin.Context) {
	if err := h.ruleSvc.ApproveRule(c.Request.Context(), c.Param("rule_id"), operatorID(c)); err != nil {
		writeRuleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "approved"})
}

// ActivateRule 激活规则
func (h *RuleHandler) ActivateRule(c *gin.Context) {
	if err := h.ruleSvc.ActivateRule(c.Request.Context(), c.Param("rule_id"), operatorID(c)); err != nil {
		writeRuleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "activated"})
}

// DeactivateRule 停用规则
func (h *RuleHandler) DeactivateRule(c *gin.Context) {
	if err := h.ruleSvc.DeactivateRule(c.Request.Context(), c.Param("rule_id"), operatorID(c)); err != nil {
		writeRuleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deactivated"})
}

// SetRuleEnabled 启用/禁用规则
func (h *RuleHandler) SetRuleEnabled(c *gin.Context) {
	var req struct {
		Enabled *bool `json:"enabled" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	err := h.ruleSvc.SetRuleEnabled(c.Request.Context(), c.Param("rule_id"), *req.Enabled, operatorID(c))
	if err != nil {
		writeRuleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"enabled": *req.Enabled})
}

// writeRuleError 规则错误转 HTTP 状态码
func writeRuleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, repository.ErrRuleNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "rule not found"})
	case errors.Is(err, service.ErrRuleNameTaken):
		c.JSON(http.StatusConflict, gin.H{"error": "rule name already taken"})
	case errors.Is(err, service.ErrInvalidRule):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

// operatorID 取当前操作人标识, 未启用认证时记 system
func operatorID(c *gin.Context) string {
	if user := CurrentUser(c); user != nil {
		return user.UserID
	}
	return "system"
}

// paginationFromQuery 从查询参数构造分页
func paginationFromQuery(c *gin.Context) *repository.Pagination {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	return repository.NewPagination(page, pageSize)
}
