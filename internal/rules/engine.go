package rules

import (
	"fmt"
	"sync"

	"github.com/saturn-mousehunter/saturn-risk/internal/model"
	"github.com/saturn-mousehunter/saturn-risk/pkg/logger"
)

// Engine 规则评估引擎, 按规则类型分发到注册的评估器
type Engine struct {
	mu         sync.RWMutex
	evaluators map[model.RuleType]Evaluator
}

// NewEngine 创建规则评估引擎
func NewEngine() *Engine {
	return &Engine{
		evaluators: make(map[model.RuleType]Evaluator),
	}
}

// NewDefaultEngine 创建注册了全部内置评估器的引擎
func NewDefaultEngine() *Engine {
	e := NewEngine()
	e.Register(NewThresholdEvaluator())
	e.Register(NewTrendEvaluator())
	e.Register(NewCorrelationEvaluator())
	e.Register(NewAnomalyEvaluator())
	return e
}

// Register 注册评估器, 同类型后注册的覆盖先注册的
func (e *Engine) Register(ev Evaluator) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.evaluators[ev.Type()] = ev

	logger.Info("rule evaluator registered", "rule_type", string(ev.Type()))
}

// Evaluate 用指标数据评估单条规则
func (e *Engine) Evaluate(rule *model.RiskRule, data model.JSONMap) (*EvalResult, error) {
	e.mu.RLock()
	ev, ok := e.evaluators[rule.RuleType]
	e.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownRuleType, rule.RuleType)
	}
	return ev.Evaluate(rule, data)
}

// RegisteredTypes 返回已注册评估器的规则类型
func (e *Engine) RegisteredTypes() []model.RuleType {
	e.mu.RLock()
	defer e.mu.RUnlock()

	types := make([]model.RuleType, 0, len(e.evaluators))
	for t := range e.evaluators {
		types = append(types, t)
	}
	return types
}
