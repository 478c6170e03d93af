// Package app 提供风控服务的应用入口
//
// ========================================
// saturn-risk 服务对接总览
// ========================================
//
// ## 服务信息
// - 服务名: saturn-risk
// - HTTP 端口: 8080
// - 数据库: saturn_risk (PostgreSQL)
//
// ## 依赖服务
// - PostgreSQL: 规则/告警/事件持久化
// - Redis: 规则缓存 (可选)
// - Kafka: 告警通知 (可选)
// - 认证服务: 管理接口的 token 校验 (可选)
//
// ## Kafka 主题
// - 生产: risk-alerts, risk-events
//
// ## 上游对接
// 1. 指标上报方调用 POST /api/v1/evaluate
//   - 时机: 策略/组合/账户指标刷新后
//   - 处理: 返回本次触发的告警列表
//
// 2. 管理端调用 /api/v1/rules, /api/v1/alerts, /api/v1/events
//   - 需要 risk_manager 或 admin 角色
//
// ## 下游对接 (监控告警)
// 1. 消费 risk-alerts 主题
//   - 接入告警系统 (钉钉/Slack/PagerDuty)
//   - severity: LOW/MEDIUM/HIGH/CRITICAL
//
// ========================================
package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/saturn-mousehunter/saturn-risk/internal/auth"
	"github.com/saturn-mousehunter/saturn-risk/internal/cache"
	"github.com/saturn-mousehunter/saturn-risk/internal/config"
	"github.com/saturn-mousehunter/saturn-risk/internal/handler"
	"github.com/saturn-mousehunter/saturn-risk/internal/kafka"
	"github.com/saturn-mousehunter/saturn-risk/internal/metrics"
	"github.com/saturn-mousehunter/saturn-risk/internal/repository"
	"github.com/saturn-mousehunter/saturn-risk/internal/rules"
	"github.com/saturn-mousehunter/saturn-risk/internal/service"
	"github.com/saturn-mousehunter/saturn-risk/pkg/logger"
)

// App 风控服务应用
type App struct {
	cfg *config.Config

	// 基础设施
	db          *gorm.DB
	redisClient redis.UniversalClient
	httpServer  *http.Server

	// Kafka
	kafkaProducer *kafka.AlertProducer

	// 定时任务 (事件保留期清理)
	cron *cron.Cron

	// 仓储层
	ruleRepo *repository.RiskRuleRepository

	// 服务层
	ruleSvc  *service.RuleService
	alertSvc *service.AlertService
	eventSvc *service.EventService
	evalSvc  *service.EvaluationService

	// 上下文
	ctx    context.Context
	cancel context.CancelFunc
}

// New 创建应用实例
func New(cfg *config.Config) *App {
	ctx, cancel := context.WithCancel(context.Background())
	return &App{
		cfg:    cfg,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Run 启动应用
func (a *App) Run() error {
	// 1. 初始化数据库
	if err := a.initDB(); err != nil {
		return fmt.Errorf("failed to init database: %w", err)
	}

	// 2. 初始化 Redis
	if err := a.initRedis(); err != nil {
		return fmt.Errorf("failed to init redis: %w", err)
	}

	// 3. 初始化 Kafka
	if err := a.initKafka(); err != nil {
		logger.Warn("failed to init kafka, running without kafka", "error", err)
		a.kafkaProducer = nil
	}

	// 4. 初始化服务层
	a.initServices()

	// 5. 预热指标 (活跃规则数)
	a.warmupMetrics()

	// 6. 启动事件保留期清理任务
	if err := a.startCleanupJob(); err != nil {
		return fmt.Errorf("failed to start cleanup job: %w", err)
	}

	// 7. 启动 HTTP 服务
	if err := a.startHTTP(); err != nil {
		return fmt.Errorf("failed to start http server: %w", err)
	}

	return nil
}

// Shutdown 优雅关闭
func (a *App) Shutdown(ctx context.Context) error {
	logger.Info("shutting down risk service...")

	// 关闭顺序：HTTP 服务 -> 定时任务 -> Kafka -> 数据库 -> 缓存
	// 1. 停止 HTTP 服务器（等待现有请求完成）
	if a.httpServer != nil {
		shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("http server shutdown error", "error", err)
		}
	}

	// 2. 停止清理任务（等待执行中的任务结束）
	if a.cron != nil {
		<-a.cron.Stop().Done()
	}

	// 3. 关闭 Kafka 生产者
	if a.kafkaProducer != nil {
		if err := a.kafkaProducer.Close(); err != nil {
			logger.Warn("close kafka producer failed", "error", err)
		}
	}

	// 4. 关闭数据库
	if a.db != nil {
		sqlDB, _ := a.db.DB()
		if sqlDB != nil {
			sqlDB.Close()
		}
	}

	// 5. 关闭 Redis（最后关闭缓存层）
	if a.redisClient != nil {
		a.redisClient.Close()
	}

	a.cancel()
	logger.Info("risk service stopped")
	return nil
}

// initDB 初始化数据库
func (a *App) initDB() error {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		a.cfg.Postgres.Host,
		a.cfg.Postgres.Port,
		a.cfg.Postgres.User,
		a.cfg.Postgres.Password,
		a.cfg.Postgres.Database,
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	sqlDB.SetMaxOpenConns(a.cfg.Postgres.MaxConnections)
	sqlDB.SetMaxIdleConns(a.cfg.Postgres.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Duration(a.cfg.Postgres.ConnMaxLifetimeMinutes) * time.Minute)

	a.db = db

	// 自动迁移
	if err := AutoMigrate(a.db); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	logger.Info("database migrated")

	return nil
}

// initRedis 初始化 Redis
func (a *App) initRedis() error {
	if !a.cfg.Redis.Enabled {
		logger.Info("redis disabled, rule cache off")
		return nil
	}

	a.redisClient = redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs:    []string{fmt.Sprintf("%s:%d", a.cfg.Redis.Host, a.cfg.Redis.Port)},
		Password: a.cfg.Redis.Password,
		DB:       a.cfg.Redis.DB,
		PoolSize: a.cfg.Redis.PoolSize,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := a.redisClient.Ping(ctx).Err(); err != nil {
		return err
	}

	return nil
}

// initKafka 初始化 Kafka
func (a *App) initKafka() error {
	if !a.cfg.Kafka.Enabled || len(a.cfg.Kafka.Brokers) == 0 {
		logger.Info("kafka disabled")
		return nil
	}

	producer, err := kafka.NewAlertProducer(a.cfg.Kafka.Brokers)
	if err != nil {
		return err
	}
	a.kafkaProducer = producer

	logger.Info("kafka producer initialized",
		"brokers", a.cfg.Kafka.Brokers)

	return nil
}

// initServices 初始化服务层
func (a *App) initServices() {
	// 创建仓储层
	a.ruleRepo = repository.NewRiskRuleRepository(a.db)
	alertRepo := repository.NewRiskAlertRepository(a.db)
	eventRepo := repository.NewRiskEventRepository(a.db)

	// 创建缓存层 (Redis 关闭时降级为直连数据库)
	var ruleCache service.RuleCacheStore
	if a.redisClient != nil {
		ruleCache = cache.NewRuleCache(a.redisClient)
	}

	// 创建规则引擎
	engine := rules.NewDefaultEngine()

	// 创建服务层
	a.ruleSvc = service.NewRuleService(a.ruleRepo, ruleCache)
	a.alertSvc = service.NewAlertService(alertRepo)
	a.eventSvc = service.NewEventService(eventRepo)
	a.evalSvc = service.NewEvaluationService(engine, a.ruleRepo, alertRepo, eventRepo, ruleCache)

	// 设置 Kafka 回调
	if a.kafkaProducer != nil {
		a.evalSvc.SetOnRiskAlert(a.kafkaProducer.SendRiskAlert)
		a.alertSvc.SetOnRiskAlert(a.kafkaProducer.SendRiskAlert)
	}

	logger.Info("services initialized")
}

// warmupMetrics 启动时回填活跃规则数指标
func (a *App) warmupMetrics() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, total, err := a.ruleRepo.List(ctx, repository.RuleListFilter{ActiveOnly: true}, repository.NewPagination(1, 1))
	if err != nil {
		logger.Warn("failed to count active rules", "error", err)
		return
	}
	metrics.ActiveRulesGauge.Set(float64(total))
}

// startCleanupJob 启动事件保留期清理任务
func (a *App) startCleanupJob() error {
	a.cron = cron.New()

	_, err := a.cron.AddFunc(a.cfg.Risk.CleanupCron, func() {
		ctx, cancel := context.WithTimeout(a.ctx, 5*time.Minute)
		defer cancel()

		if _, err := a.eventSvc.CleanupExpired(ctx, a.cfg.Risk.EventRetentionDays); err != nil {
			logger.Error("event retention cleanup failed", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("invalid cleanup cron %q: %w", a.cfg.Risk.CleanupCron, err)
	}

	a.cron.Start()
	logger.Info("event cleanup job scheduled",
		"cron", a.cfg.Risk.CleanupCron,
		"retention_days", a.cfg.Risk.EventRetentionDays)
	return nil
}

// startHTTP 启动 HTTP 服务
func (a *App) startHTTP() error {
	// 认证服务关闭时跳过 token 校验 (本地开发)
	var verifier handler.TokenVerifier
	if a.cfg.Auth.Enabled {
		verifier = auth.NewClient(a.cfg.Auth.BaseURL, time.Duration(a.cfg.Auth.TimeoutSec)*time.Second)
	} else {
		logger.Warn("auth disabled, management endpoints are unprotected")
	}

	ruleHandler := handler.NewRuleHandler(a.ruleSvc)
	alertHandler := handler.NewAlertHandler(a.alertSvc, a.evalSvc)
	eventHandler := handler.NewEventHandler(a.eventSvc)

	router := handler.NewRouter(a.cfg.Service.Env, verifier, ruleHandler, alertHandler, eventHandler)

	addr := fmt.Sprintf(":%d", a.cfg.Service.HTTPPort)
	a.httpServer = &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	logger.Info("starting http server",
		"addr", addr,
		"service", a.cfg.Service.Name)

	go func() {
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server error", "error", err)
		}
	}()

	return nil
}

// GetConfig 获取配置
func (a *App) GetConfig() *config.Config {
	return a.cfg
}
