package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter 构建服务路由
// verifier 为 nil 时管理接口不做认证
func NewRouter(env string, verifier TokenVerifier, ruleH *RuleHandler, alertH *AlertHandler, eventH *EventHandler) *gin.Engine {
	if env == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(Metrics())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1/risk")
	v1.Use(RequireRiskManager(verifier))
	{
		rules := v1.Group("/rules")
		{
			rules.POST("", ruleH.CreateRule)
			rules.GET("", ruleH.ListRules)
			rules.GET("/:rule_id", ruleH.GetRule)
			rules.PUT("/:rule_id", ruleH.UpdateRule)
			rules.DELETE("/:rule_id", ruleH.DeleteRule)
			rules.POST("/:rule_id/approve", ruleH.ApproveRule)
			rules.POST("/:rule_id/activate", ruleH.ActivateRule)
			rules.POST("/:rule_id/deactivate", ruleH.DeactivateRule)
			rules.POST("/:rule_id/enabled", ruleH.SetRuleEnabled)
		}

		v1.POST("/evaluate", alertH.Evaluate)

		alerts := v1.Group("/alerts")
		{
			alerts.GET("", alertH.ListAlerts)
			alerts.GET("/active", alertH.ListActiveAlerts)
			alerts.GET("/statistics", alertH.AlertStatistics)
			alerts.GET("/:alert_id", alertH.GetAlert)
			alerts.POST("/:alert_id/acknowledge", alertH.AcknowledgeAlert)
			alerts.POST("/:alert_id/resolve", alertH.ResolveAlert)
			alerts.POST("/:alert_id/dismiss", alertH.DismissAlert)
		}

		events := v1.Group("/events")
		{
			events.POST("", eventH.CreateEvent)
			events.GET("", eventH.ListEvents)
			events.GET("/recent", eventH.ListRecentEvents)
			events.GET("/critical", eventH.ListCriticalEvents)
			events.GET("/statistics", eventH.EventStatistics)
			events.POST("/cleanup", eventH.CleanupEvents)
			events.GET("/target/:target_type/:target_id", eventH.ListEventsByTarget)
			events.GET("/:event_id", eventH.GetEvent)
			events.POST("/:event_id/acknowledge", eventH.AcknowledgeEvent)
			events.POST("/:event_id/resolve", eventH.ResolveEvent)
			events.POST("/:event_id/ignore", eventH.IgnoreEvent)
		}
	}

	return router
}
