package service

import (
	"context"
	"sync"
	"time"

	"github.com/saturn-mousehunter/saturn-risk/internal/model"
	"github.com/saturn-mousehunter/saturn-risk/internal/repository"
)

// fakeRuleStore 内存规则存储
type fakeRuleStore struct {
	mu                 sync.Mutex
	rules              []*model.RiskRule
	listForTypeCalls int
	incremented        []string
}

func (f *fakeRuleStore) Create(ctx context.Context, rule *model.RiskRule) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.rules {
		if r.Name == rule.Name || r.RuleID == rule.RuleID {
			return repository.ErrRuleDuplicate
		}
	}
	f.rules = append(f.rules, rule)
	return nil
}

func (f *fakeRuleStore) Update(ctx context.Context, rule *model.RiskRule) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, r := range f.rules {
		if r.RuleID == rule.RuleID {
			f.rules[i] = rule
			return nil
		}
	}
	return repository.ErrRuleNotFound
}

func (f *fakeRuleStore) GetByRuleID(ctx context.Context, ruleID string) (*model.RiskRule, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.rules {
		if r.RuleID == ruleID {
			return r, nil
		}
	}
	return nil, repository.ErrRuleNotFound
}

func (f *fakeRuleStore) GetByName(ctx context.Context, name string) (*model.RiskRule, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.rules {
		if r.Name == name {
			return r, nil
		}
	}
	return nil, repository.ErrRuleNotFound
}

func (f *fakeRuleStore) ListForTargetType(ctx context.Context, targetType model.TargetType) ([]*model.RiskRule, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listForTypeCalls++
	var out []*model.RiskRule
	for _, r := range f.rules {
		if r.TargetType == targetType && r.IsActive && r.IsEnabled {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeRuleStore) List(ctx context.Context, filter repository.RuleListFilter, pagination *repository.Pagination) ([]*model.RiskRule, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*model.RiskRule
	for _, r := range f.rules {
		if filter.ActiveOnly && !r.IsActive {
			continue
		}
		if filter.RuleType != "" && r.RuleType != filter.RuleType {
			continue
		}
		if filter.TargetType != "" && r.TargetType != filter.TargetType {
			continue
		}
		out = append(out, r)
	}
	return out, int64(len(out)), nil
}

func (f *fakeRuleStore) IncrementViolation(ctx context.Context, ruleID string, triggeredAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.incremented = append(f.incremented, ruleID)
	for _, r := range f.rules {
		if r.RuleID == ruleID {
			r.ViolationCount++
			r.LastTriggeredAt = &triggeredAt
			return nil
		}
	}
	return repository.ErrRuleNotFound
}

func (f *fakeRuleStore) Approve(ctx context.Context, ruleID, approvedBy string) error {
	r, err := f.GetByRuleID(ctx, ruleID)
	if err != nil {
		return err
	}
	now := time.Now()
	r.ApprovedBy = approvedBy
	r.ApprovedAt = &now
	return nil
}

func (f *fakeRuleStore) SetActive(ctx context.Context, ruleID string, active bool, updatedBy string) error {
	r, err := f.GetByRuleID(ctx, ruleID)
	if err != nil {
		return err
	}
	r.IsActive = active
	r.UpdatedBy = updatedBy
	return nil
}

func (f *fakeRuleStore) SetEnabled(ctx context.Context, ruleID string, enabled bool, updatedBy string) error {
	r, err := f.GetByRuleID(ctx, ruleID)
	if err != nil {
		return err
	}
	r.IsEnabled = enabled
	r.UpdatedBy = updatedBy
	return nil
}

func (f *fakeRuleStore) Delete(ctx context.Context, ruleID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, r := range f.rules {
		if r.RuleID == ruleID {
			f.rules = append(f.rules[:i], f.rules[i+1:]...)
			return nil
		}
	}
	return repository.ErrRuleNotFound
}

// fakeAlertStore 内存告警存储
type fakeAlertStore struct {
	mu                   sync.Mutex
	alerts               []*model.RiskAlert
	lastFilter           repository.AlertListFilter
	conflictOnTransition bool
}

func (f *fakeAlertStore) Create(ctx context.Context, alert *model.RiskAlert) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.alerts = append(f.alerts, alert)
	return nil
}

func (f *fakeAlertStore) GetByAlertID(ctx context.Context, alertID string) (*model.RiskAlert, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.alerts {
		if a.AlertID == alertID {
			return a, nil
		}
	}
	return nil, repository.ErrAlertNotFound
}

func (f *fakeAlertStore) List(ctx context.Context, filter repository.AlertListFilter, pagination *repository.Pagination) ([]*model.RiskAlert, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastFilter = filter
	var out []*model.RiskAlert
	for _, a := range f.alerts {
		if filter.Status != "" && a.Status != filter.Status {
			continue
		}
		if filter.Severity != "" && a.Severity != filter.Severity {
			continue
		}
		if filter.TargetType != "" && a.TargetType != filter.TargetType {
			continue
		}
		if filter.ActiveOnly && !a.IsActive {
			continue
		}
		out = append(out, a)
	}
	return out, int64(len(out)), nil
}

func (f *fakeAlertStore) ListActive(ctx context.Context) ([]*model.RiskAlert, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*model.RiskAlert
	for _, a := range f.alerts {
		if a.Status == model.AlertStatusActive || a.Status == model.AlertStatusAcknowledged {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *fakeAlertStore) ListCreatedSince(ctx context.Context, since time.Time) ([]*model.RiskAlert, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*model.RiskAlert
	for _, a := range f.alerts {
		if !a.CreatedAt.Before(since) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *fakeAlertStore) Transition(ctx context.Context, alertID string, from, to model.AlertStatus, updates map[string]interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	var alert *model.RiskAlert
	for _, a := range f.alerts {
		if a.AlertID == alertID {
			alert = a
			break
		}
	}
	if alert == nil {
		return repository.ErrAlertNotFound
	}
	if f.conflictOnTransition || alert.Status != from {
		return repository.ErrAlertStateConflict
	}

	alert.Status = to
	alert.IsActive = !to.Terminal()
	alert.UpdatedAt = time.Now()
	if v, ok := updates["acknowledged_by"].(string); ok {
		alert.AcknowledgedBy = v
	}
	if v, ok := updates["acknowledged_at"].(time.Time); ok {
		alert.AcknowledgedAt = &v
	}
	if v, ok := updates["resolved_by"].(string); ok {
		alert.ResolvedBy = v
	}
	if v, ok := updates["resolved_at"].(time.Time); ok {
		alert.ResolvedAt = &v
	}
	if v, ok := updates["resolution_notes"].(string); ok {
		alert.ResolutionNotes = v
	}
	return nil
}

// fakeEventStore 内存事件存储
type fakeEventStore struct {
	mu            sync.Mutex
	events        []*model.RiskEvent
	deleteCutoffs []time.Time
}

func (f *fakeEventStore) Create(ctx context.Context, event *model.RiskEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
	return nil
}

func (f *fakeEventStore) GetByEventID(ctx context.Context, eventID string) (*model.RiskEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, e := range f.events {
		if e.EventID == eventID {
			return e, nil
		}
	}
	return nil, repository.ErrEventNotFound
}

func (f *fakeEventStore) List(ctx context.Context, filter repository.EventListFilter, pagination *repository.Pagination) ([]*model.RiskEvent, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*model.RiskEvent
	for _, e := range f.events {
		if filter.Type != "" && e.Type != filter.Type {
			continue
		}
		if filter.Status != "" && e.Status != filter.Status {
			continue
		}
		if filter.TargetType != "" && e.TargetType != filter.TargetType {
			continue
		}
		if filter.TargetID != "" && e.TargetID != filter.TargetID {
			continue
		}
		out = append(out, e)
	}
	return out, int64(len(out)), nil
}

func (f *fakeEventStore) ListByTarget(ctx context.Context, targetType model.TargetType, targetID string, pagination *repository.Pagination) ([]*model.RiskEvent, int64, error) {
	return f.List(ctx, repository.EventListFilter{TargetType: targetType, TargetID: targetID}, pagination)
}

func (f *fakeEventStore) ListRecent(ctx context.Context, since time.Time, limit int) ([]*model.RiskEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*model.RiskEvent
	for _, e := range f.events {
		if !e.CreatedAt.Before(since) {
			out = append(out, e)
		}
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (f *fakeEventStore) ListOpenCritical(ctx context.Context, limit int) ([]*model.RiskEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*model.RiskEvent
	for _, e := range f.events {
		if e.Severity == model.AlertSeverityCritical && e.Status == model.EventStatusOpen {
			out = append(out, e)
		}
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (f *fakeEventStore) UpdateStatus(ctx context.Context, eventID string, toStatus model.EventStatus, fromStatuses []model.EventStatus, updates map[string]interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, e := range f.events {
		if e.EventID != eventID {
			continue
		}
		if len(fromStatuses) > 0 {
			allowed := false
			for _, s := range fromStatuses {
				if e.Status == s {
					allowed = true
					break
				}
			}
			if !allowed {
				return repository.ErrEventStateConflict
			}
		}
		e.Status = toStatus
		e.UpdatedAt = time.Now()
		if v, ok := updates["resolved_by"].(string); ok {
			e.ResolvedBy = v
		}
		if v, ok := updates["resolved_at"].(time.Time); ok {
			e.ResolvedAt = &v
		}
		if v, ok := updates["resolution_note"].(string); ok {
			e.ResolutionNote = v
		}
		return nil
	}
	return repository.ErrEventNotFound
}

func (f *fakeEventStore) CountOpen(ctx context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var count int64
	for _, e := range f.events {
		if e.Status == model.EventStatusOpen {
			count++
		}
	}
	return count, nil
}

func (f *fakeEventStore) CountBySeverity(ctx context.Context, since time.Time) (map[model.AlertSeverity]int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	counts := make(map[model.AlertSeverity]int64)
	for _, e := range f.events {
		if !e.CreatedAt.Before(since) {
			counts[e.Severity]++
		}
	}
	return counts, nil
}

func (f *fakeEventStore) CountByType(ctx context.Context, since time.Time) (map[model.EventType]int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	counts := make(map[model.EventType]int64)
	for _, e := range f.events {
		if !e.CreatedAt.Before(since) {
			counts[e.Type]++
		}
	}
	return counts, nil
}

func (f *fakeEventStore) DeleteTerminalBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleteCutoffs = append(f.deleteCutoffs, cutoff)
	var kept []*model.RiskEvent
	var deleted int64
	for _, e := range f.events {
		if e.Status.Terminal() && e.CreatedAt.Before(cutoff) {
			deleted++
			continue
		}
		kept = append(kept, e)
	}
	f.events = kept
	return deleted, nil
}

// fakeRuleCache 内存规则缓存
type fakeRuleCache struct {
	mu            sync.Mutex
	entries       map[model.TargetType][]*model.RiskRule
	sets          []model.TargetType
	invalidations []model.TargetType
}

func newFakeRuleCache() *fakeRuleCache {
	return &fakeRuleCache{entries: make(map[model.TargetType][]*model.RiskRule)}
}

func (f *fakeRuleCache) GetByTargetType(ctx context.Context, targetType model.TargetType) ([]*model.RiskRule, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rules, ok := f.entries[targetType]
	return rules, ok, nil
}

func (f *fakeRuleCache) SetByTargetType(ctx context.Context, targetType model.TargetType, rules []*model.RiskRule) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries[targetType] = rules
	f.sets = append(f.sets, targetType)
	return nil
}

func (f *fakeRuleCache) Invalidate(ctx context.Context, targetType model.TargetType) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.entries, targetType)
	f.invalidations = append(f.invalidations, targetType)
	return nil
}

func (f *fakeRuleCache) InvalidateAll(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range model.AllTargetTypes {
		delete(f.entries, t)
		f.invalidations = append(f.invalidations, t)
	}
	return nil
}
