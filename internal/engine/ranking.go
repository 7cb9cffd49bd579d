package engine

import (
	"sort"

	"github.com/navid-fn/pulse/internal/model"
)

// Rank sorts participants descending by the selected metric and truncates to
// maxEntries. Equal metric values break ties by ascending user id so that two
// runs over the same participant set always produce identical ordering.
// When a prior snapshot is supplied, each surviving entry is annotated with
// its previous rank and value change; entries without a prior counterpart keep
// nil change fields.
func Rank(participants []model.Participant, metric model.LeaderboardMetric, maxEntries int, prior *model.LeaderboardSnapshot) []model.LeaderboardEntry {
	ranked := make([]model.Participant, len(participants))
	copy(ranked, participants)

	sort.SliceStable(ranked, func(i, j int) bool {
		vi := ranked[i].MetricValue(metric)
		vj := ranked[j].MetricValue(metric)
		if vi != vj {
			return vi > vj
		}
		return ranked[i].UserID < ranked[j].UserID
	})

	if maxEntries > 0 && len(ranked) > maxEntries {
		ranked = ranked[:maxEntries]
	}

	entries := make([]model.LeaderboardEntry, 0, len(ranked))
	for i, p := range ranked {
		entries = append(entries, model.LeaderboardEntry{
			Rank:   i + 1,
			UserID: p.UserID,
			Value:  p.MetricValue(metric),
		})
	}
	ApplyPrior(entries, prior)
	return entries
}

// ApplyPrior annotates ranked entries with their previous rank and value
// change from the prior snapshot. A nil prior leaves every entry untouched,
// and so does an entry with no prior counterpart.
func ApplyPrior(entries []model.LeaderboardEntry, prior *model.LeaderboardSnapshot) {
	if prior == nil {
		return
	}

	previous := make(map[string]model.LeaderboardEntry, len(prior.Entries))
	for _, e := range prior.Entries {
		previous[e.UserID] = e
	}

	for i := range entries {
		prev, ok := previous[entries[i].UserID]
		if !ok {
			continue
		}

		prevRank := prev.Rank
		entries[i].PreviousRank = &prevRank

		change := entries[i].Value - prev.Value
		entries[i].Change = &change

		if prev.Value != 0 {
			pct := change / prev.Value * 100
			entries[i].ChangePercent = &pct
		}
	}
}
