package activities

import (
	"context"
	"fmt"
	"time"

	"github.com/navid-fn/pulse/internal/model"
	"github.com/navid-fn/pulse/internal/notifier"
)

// NotifySignal broadcasts an actionable signal. Market signals have no single
// owner, so the empty user id addresses all subscribers of the topic.
func (a *Activities) NotifySignal(ctx context.Context, signal *model.Signal) {
	a.notifier.Notify(ctx, "", notifier.Notification{
		Kind:    "signal",
		Title:   signal.Title,
		Body:    signal.Description,
		Payload: signal,
	})
}

// NotifyBehavior alerts one trader that their recent activity was flagged.
func (a *Activities) NotifyBehavior(ctx context.Context, userID string, summary string) {
	a.notifier.Notify(ctx, userID, notifier.Notification{
		Kind:  "behavior_alert",
		Title: "Unusual trading activity detected",
		Body:  summary,
	})
}

// NotifyBadges tells one trader about newly-earned badges.
func (a *Activities) NotifyBadges(ctx context.Context, userID string, badges []model.Badge) {
	for _, badge := range badges {
		a.notifier.Notify(ctx, userID, notifier.Notification{
			Kind:    "badge_awarded",
			Title:   fmt.Sprintf("Badge earned: %s", badge.Name),
			Payload: badge,
		})
	}
}

// NotifyInsight delivers a generated daily insight to its user.
func (a *Activities) NotifyInsight(ctx context.Context, insight model.Insight) {
	a.notifier.Notify(ctx, insight.UserID, notifier.Notification{
		Kind:    "daily_insight",
		Title:   insight.Title,
		Body:    insight.Narrative,
		Payload: insight,
	})
}

// RecordAudit persists one lifecycle record and mirrors it onto the audit
// stream. The store write is the durable record; the stream is best effort.
func (a *Activities) RecordAudit(ctx context.Context, record model.AuditRecord) error {
	if record.RecordedAt.IsZero() {
		record.RecordedAt = time.Now()
	}
	if err := a.audits.RecordAudit(ctx, record); err != nil {
		return err
	}
	a.auditStream.Publish(ctx, record)
	return nil
}
