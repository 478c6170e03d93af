package service

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saturn-mousehunter/saturn-risk/internal/model"
	"github.com/saturn-mousehunter/saturn-risk/internal/repository"
)

func TestCreateAlertDefaults(t *testing.T) {
	store := &fakeAlertStore{}
	svc := NewAlertService(store)

	alert, err := svc.CreateAlert(context.Background(), &model.RiskAlert{
		Name:       "manual check",
		AlertType:  model.RuleTypeThreshold,
		TargetType: model.TargetTypeAccount,
		TargetID:   "acct-1",
		Threshold:  decimal.NewFromInt(10),
	})
	require.NoError(t, err)

	assert.NotEmpty(t, alert.AlertID)
	assert.Equal(t, model.AlertStatusActive, alert.Status)
	assert.Equal(t, model.AlertSeverityMedium, alert.Severity)
	assert.True(t, alert.IsActive)
	assert.False(t, alert.CreatedAt.IsZero())
}

func TestAlertLifecycle(t *testing.T) {
	store := &fakeAlertStore{}
	svc := NewAlertService(store)
	ctx := context.Background()

	created, err := svc.CreateAlert(ctx, &model.RiskAlert{Name: "loss limit"})
	require.NoError(t, err)

	acked, err := svc.Acknowledge(ctx, created.AlertID, "ops")
	require.NoError(t, err)
	assert.Equal(t, model.AlertStatusAcknowledged, acked.Status)
	assert.Equal(t, "ops", acked.AcknowledgedBy)
	require.NotNil(t, acked.AcknowledgedAt)
	assert.True(t, acked.IsActive)

	resolved, err := svc.Resolve(ctx, created.AlertID, "ops", "position trimmed")
	require.NoError(t, err)
	assert.Equal(t, model.AlertStatusResolved, resolved.Status)
	assert.Equal(t, "ops", resolved.ResolvedBy)
	assert.Equal(t, "position trimmed", resolved.ResolutionNotes)
	require.NotNil(t, resolved.ResolvedAt)
	assert.False(t, resolved.IsActive)
}

func TestAlertTerminalStateRejectsFurtherTransitions(t *testing.T) {
	store := &fakeAlertStore{}
	svc := NewAlertService(store)
	ctx := context.Background()

	created, err := svc.CreateAlert(ctx, &model.RiskAlert{Name: "loss limit"})
	require.NoError(t, err)
	_, err = svc.Resolve(ctx, created.AlertID, "ops", "")
	require.NoError(t, err)

	_, err = svc.Acknowledge(ctx, created.AlertID, "ops")
	assert.ErrorIs(t, err, ErrInvalidTransition)
	_, err = svc.Dismiss(ctx, created.AlertID, "ops", "")
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestAlertDismissFromActive(t *testing.T) {
	store := &fakeAlertStore{}
	svc := NewAlertService(store)
	ctx := context.Background()

	created, err := svc.CreateAlert(ctx, &model.RiskAlert{Name: "false positive"})
	require.NoError(t, err)

	dismissed, err := svc.Dismiss(ctx, created.AlertID, "ops", "noise")
	require.NoError(t, err)
	assert.Equal(t, model.AlertStatusDismissed, dismissed.Status)
	assert.Equal(t, "noise", dismissed.ResolutionNotes)
	assert.False(t, dismissed.IsActive)
}

func TestAlertTransitionConflictMapsToInvalidTransition(t *testing.T) {
	store := &fakeAlertStore{conflictOnTransition: true}
	svc := NewAlertService(store)
	ctx := context.Background()

	created, err := svc.CreateAlert(ctx, &model.RiskAlert{Name: "raced"})
	require.NoError(t, err)

	_, err = svc.Acknowledge(ctx, created.AlertID, "ops")
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestAcknowledgeUnknownAlert(t *testing.T) {
	svc := NewAlertService(&fakeAlertStore{})

	_, err := svc.Acknowledge(context.Background(), "missing", "ops")
	assert.ErrorIs(t, err, repository.ErrAlertNotFound)
}

func TestGetActiveAlertsFilter(t *testing.T) {
	store := &fakeAlertStore{}
	svc := NewAlertService(store)

	_, err := svc.GetActiveAlerts(context.Background(), model.AlertSeverityHigh, model.TargetTypePortfolio)
	require.NoError(t, err)

	assert.Equal(t, model.AlertStatusActive, store.lastFilter.Status)
	assert.Equal(t, model.AlertSeverityHigh, store.lastFilter.Severity)
	assert.Equal(t, model.TargetTypePortfolio, store.lastFilter.TargetType)
	assert.True(t, store.lastFilter.ActiveOnly)
}

func TestAlertStatistics(t *testing.T) {
	now := time.Now()
	twoHoursLater := now.Add(2 * time.Hour)
	fourHoursLater := now.Add(4 * time.Hour)

	store := &fakeAlertStore{alerts: []*model.RiskAlert{
		{
			AlertID: "a1", AlertType: model.RuleTypeThreshold, Severity: model.AlertSeverityCritical,
			Status: model.AlertStatusResolved, CreatedAt: now, ResolvedAt: &twoHoursLater,
		},
		{
			AlertID: "a2", AlertType: model.RuleTypeThreshold, Severity: model.AlertSeverityHigh,
			Status: model.AlertStatusResolved, CreatedAt: now, ResolvedAt: &fourHoursLater,
		},
		{
			AlertID: "a3", AlertType: model.RuleTypeAnomaly, Severity: model.AlertSeverityMedium,
			Status: model.AlertStatusActive, CreatedAt: now,
		},
		{
			AlertID: "a4", AlertType: model.RuleTypeTrend, Severity: model.AlertSeverityLow,
			Status: model.AlertStatusDismissed, CreatedAt: now,
		},
	}}
	svc := NewAlertService(store)

	stats, err := svc.Statistics(context.Background(), 30)
	require.NoError(t, err)

	assert.Equal(t, int64(4), stats.TotalAlerts)
	assert.Equal(t, int64(1), stats.ActiveAlerts)
	assert.Equal(t, int64(2), stats.ResolvedAlerts)
	assert.Equal(t, int64(1), stats.DismissedAlerts)
	assert.Equal(t, int64(1), stats.CriticalAlerts)
	assert.Equal(t, int64(1), stats.HighAlerts)
	assert.Equal(t, int64(1), stats.MediumAlerts)
	assert.Equal(t, int64(1), stats.LowAlerts)
	assert.Equal(t, int64(2), stats.AlertsByType[model.RuleTypeThreshold])
	assert.Equal(t, int64(1), stats.AlertsBySeverity[model.AlertSeverityCritical])

	// 两条已解决告警耗时 2h 和 4h, 平均 3h
	require.NotNil(t, stats.AvgResolutionTime)
	assert.InDelta(t, 3.0, *stats.AvgResolutionTime, 0.001)
}

func TestAlertStatisticsNoResolved(t *testing.T) {
	store := &fakeAlertStore{alerts: []*model.RiskAlert{
		{AlertID: "a1", Severity: model.AlertSeverityLow, Status: model.AlertStatusActive, CreatedAt: time.Now()},
	}}
	svc := NewAlertService(store)

	stats, err := svc.Statistics(context.Background(), 0) // 默认 30 天
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.TotalAlerts)
	assert.Nil(t, stats.AvgResolutionTime)
}
