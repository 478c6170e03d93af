package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/saturn-mousehunter/saturn-risk/internal/model"
)

const (
	ruleKeyPrefix = "risk:rules:"

	// 规则变更通过显式失效传播, TTL 只兜底漏失效的情况
	defaultRuleTTL = 5 * time.Minute
)

// RuleCache 规则缓存, 按目标类型缓存启用规则列表
type RuleCache struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// NewRuleCache 创建规则缓存
func NewRuleCache(client redis.UniversalClient) *RuleCache {
	return &RuleCache{client: client, ttl: defaultRuleTTL}
}

// GetByTargetType 获取目标类型的规则列表, 未命中返回 (nil, false, nil)
func (c *RuleCache) GetByTargetType(ctx context.Context, targetType model.TargetType) ([]*model.RiskRule, bool, error) {
	data, err := c.client.Get(ctx, ruleKey(targetType)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, false, nil
		}
		return nil, false, err
	}

	var rules []*model.RiskRule
	if err := json.Unmarshal(data, &rules); err != nil {
		// 缓存内容损坏, 删除后按未命中处理
		c.client.Del(ctx, ruleKey(targetType))
		return nil, false, nil
	}
	return rules, true, nil
}

// SetByTargetType 缓存目标类型的规则列表
func (c *RuleCache) SetByTargetType(ctx context.Context, targetType model.TargetType, rules []*model.RiskRule) error {
	data, err := json.Marshal(rules)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, ruleKey(targetType), data, c.ttl).Err()
}

// Invalidate 失效指定目标类型的规则缓存
func (c *RuleCache) Invalidate(ctx context.Context, targetType model.TargetType) error {
	return c.client.Del(ctx, ruleKey(targetType)).Err()
}

// InvalidateAll 失效所有目标类型的规则缓存
func (c *RuleCache) InvalidateAll(ctx context.Context) error {
	keys := make([]string, 0, len(model.AllTargetTypes))
	for _, tt := range model.AllTargetTypes {
		keys = append(keys, ruleKey(tt))
	}
	return c.client.Del(ctx, keys...).Err()
}

// ruleKey 生成规则缓存键
func ruleKey(targetType model.TargetType) string {
	return fmt.Sprintf("%s%s", ruleKeyPrefix, targetType)
}
