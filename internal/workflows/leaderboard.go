package workflows

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/navid-fn/pulse/internal/engine"
	"github.com/navid-fn/pulse/internal/model"
	"github.com/navid-fn/pulse/internal/workflow"
)

// topRankBadgeCutoff is the highest rank that still earns the top-rank badge.
const topRankBadgeCutoff = 10

// Leaderboard computes one snapshot for a metric/period/asset-class key:
// fetch participants, rank them against the previous snapshot, store the
// snapshot plus its history rows, and award top-rank badges. With zero
// participants the run completes early without storing anything.
func (w *Worker) Leaderboard(ctx *workflow.Context) error {
	in, ok := ctx.Input().(LeaderboardInput)
	if !ok {
		return fmt.Errorf("leaderboard needs a LeaderboardInput, got %T", ctx.Input())
	}

	tracker := newStatusTracker(0)
	registerStatusQuery(ctx, tracker)
	w.audit(ctx, WorkflowLeaderboard, model.AuditStarted, tracker, leaderboardKey(in))

	if err := w.computeLeaderboard(ctx, tracker, in); err != nil {
		tracker.setPhase(model.PhaseFailed)
		w.audit(ctx, WorkflowLeaderboard, model.AuditFailed, tracker, err.Error())
		return err
	}

	tracker.setPhase(model.PhaseCompleted)
	w.audit(ctx, WorkflowLeaderboard, model.AuditCompleted, tracker, leaderboardKey(in))
	return nil
}

// LeaderboardFull computes every supported metric for one period and asset
// class. Metrics are isolated; one failing metric does not stop the rest.
func (w *Worker) LeaderboardFull(ctx *workflow.Context) error {
	in, ok := ctx.Input().(LeaderboardInput)
	if !ok {
		return fmt.Errorf("leaderboard needs a LeaderboardInput, got %T", ctx.Input())
	}
	if in.Period == "" {
		in.Period = model.PeriodAllTime
	}

	tracker := newStatusTracker(0)
	registerStatusQuery(ctx, tracker)
	w.audit(ctx, WorkflowLeaderboardFull, model.AuditStarted, tracker, string(in.Period))

	for _, metric := range model.AllLeaderboardMetrics {
		if ctx.CancelRequested() {
			break
		}
		key := in
		key.Metric = metric
		if err := w.computeLeaderboard(ctx, tracker, key); err != nil {
			ctx.Logger().Error("Leaderboard computation failed", "metric", metric, "period", in.Period, "error", err)
			tracker.addError(string(metric), err)
		}
	}

	tracker.setPhase(model.PhaseCompleted)
	w.audit(ctx, WorkflowLeaderboardFull, model.AuditCompleted, tracker, string(in.Period))
	return nil
}

// LeaderboardScheduled is the periodic sweep: every metric across the daily,
// weekly, monthly, and all-time windows.
func (w *Worker) LeaderboardScheduled(ctx *workflow.Context) error {
	in, _ := ctx.Input().(LeaderboardInput)

	tracker := newStatusTracker(0)
	registerStatusQuery(ctx, tracker)
	w.audit(ctx, WorkflowLeaderboardScheduled, model.AuditStarted, tracker, "")

	for _, period := range model.LeaderboardPeriods {
		for _, metric := range model.AllLeaderboardMetrics {
			if ctx.CancelRequested() {
				tracker.setPhase(model.PhaseCompleted)
				w.audit(ctx, WorkflowLeaderboardScheduled, model.AuditCompleted, tracker, "cancelled")
				return nil
			}

			key := LeaderboardInput{
				Metric:     metric,
				Period:     period,
				AssetClass: in.AssetClass,
				MaxEntries: in.MaxEntries,
			}
			if err := w.computeLeaderboard(ctx, tracker, key); err != nil {
				ctx.Logger().Error("Leaderboard computation failed", "metric", metric, "period", period, "error", err)
				tracker.addError(leaderboardKey(key), err)
			}
		}
	}

	tracker.setPhase(model.PhaseCompleted)
	w.audit(ctx, WorkflowLeaderboardScheduled, model.AuditCompleted, tracker, "")
	return nil
}

func (w *Worker) computeLeaderboard(ctx *workflow.Context, tracker *statusTracker, in LeaderboardInput) error {
	maxEntries := in.MaxEntries
	if maxEntries <= 0 {
		maxEntries = w.cfg.MaxEntries
	}

	tracker.setPhase(model.PhaseFetching)
	var participants []model.Participant
	err := ctx.Execute("load_participants", workflow.DefaultActivityOptions(), func(c context.Context, _ func()) error {
		var err error
		participants, err = w.deps.Participants(c, in.Period, in.AssetClass, w.cfg.MinTrades)
		return err
	})
	if err != nil {
		return fmt.Errorf("load participants: %w", err)
	}
	if len(participants) == 0 {
		ctx.Logger().Info("No participants, skipping snapshot", "metric", in.Metric, "period", in.Period)
		return nil
	}

	tracker.setPhase(model.PhaseSorting)
	entries := engine.Rank(participants, in.Metric, maxEntries, nil)

	tracker.setPhase(model.PhaseComparing)
	var prior *model.LeaderboardSnapshot
	err = ctx.Execute("load_prior_snapshot", workflow.DefaultActivityOptions(), func(c context.Context, _ func()) error {
		var err error
		prior, err = w.deps.LatestSnapshot(c, in.Metric, in.Period, in.AssetClass)
		return err
	})
	if err != nil {
		return fmt.Errorf("load prior snapshot: %w", err)
	}
	engine.ApplyPrior(entries, prior)

	tracker.setPhase(model.PhaseStoring)
	now := time.Now()
	snapshot := &model.LeaderboardSnapshot{
		ID:                uuid.NewString(),
		LeaderboardType:   in.Metric,
		Period:            in.Period,
		AssetClass:        in.AssetClass,
		Entries:           entries,
		TotalParticipants: len(participants),
		CalculatedAt:      now,
	}
	err = ctx.Execute("save_snapshot", workflow.DefaultActivityOptions(), func(c context.Context, _ func()) error {
		return w.deps.SaveSnapshot(c, snapshot)
	})
	if err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}

	rows := make([]model.LeaderboardHistoryRow, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, model.LeaderboardHistoryRow{
			SnapshotID:      snapshot.ID,
			LeaderboardType: in.Metric,
			Period:          in.Period,
			AssetClass:      in.AssetClass,
			Rank:            e.Rank,
			UserID:          e.UserID,
			Value:           e.Value,
			CalculatedAt:    now,
		})
	}
	err = ctx.Execute("append_history", workflow.DefaultActivityOptions(), func(c context.Context, _ func()) error {
		return w.deps.AppendLeaderboardHistory(c, rows)
	})
	if err != nil {
		return fmt.Errorf("append history: %w", err)
	}

	tracker.setPhase(model.PhaseAwarding)
	if err := w.awardTopRankBadges(ctx, entries, now); err != nil {
		return err
	}

	tracker.addProcessed(len(entries))
	ctx.Logger().Info("Leaderboard snapshot stored",
		"metric", in.Metric,
		"period", in.Period,
		"entries", len(entries),
		"participants", len(participants),
	)
	return nil
}

// awardTopRankBadges grants the top-rank badge to entries at or above the
// cutoff that do not hold it yet.
func (w *Worker) awardTopRankBadges(ctx *workflow.Context, entries []model.LeaderboardEntry, now time.Time) error {
	for _, e := range entries {
		if e.Rank > topRankBadgeCutoff {
			break
		}

		var existing []model.Badge
		err := ctx.Execute("load_badges", workflow.DefaultActivityOptions(), func(c context.Context, _ func()) error {
			var err error
			existing, err = w.deps.Badges(c, e.UserID)
			return err
		})
		if err != nil {
			return fmt.Errorf("load badges for %s: %w", e.UserID, err)
		}

		held := false
		for _, b := range existing {
			if b.Type == model.BadgeTopRank {
				held = true
				break
			}
		}
		if held {
			continue
		}

		badge := model.Badge{
			UserID:    e.UserID,
			Type:      model.BadgeTopRank,
			Name:      "Top 10 Trader",
			AwardedAt: now,
		}
		err = ctx.Execute("award_badges", workflow.DefaultActivityOptions(), func(c context.Context, _ func()) error {
			return w.deps.AwardBadges(c, []model.Badge{badge})
		})
		if err != nil {
			return fmt.Errorf("award top rank badge for %s: %w", e.UserID, err)
		}
		w.deps.NotifyBadges(context.Background(), e.UserID, []model.Badge{badge})
	}
	return nil
}

func leaderboardKey(in LeaderboardInput) string {
	key := fmt.Sprintf("%s/%s", in.Metric, in.Period)
	if in.AssetClass != "" {
		key += "/" + in.AssetClass
	}
	return key
}
