package analysis

import (
	"time"

	"seedwatch/internal/domain"
)

const (
	globalKeywordLimit = 10
	recentLimit        = 5
)

// ComputeGlobalStats aggregates results. results must be ordered most recent
// first, as returned by Store.All.
func ComputeGlobalStats(results []domain.AnalysisResult, now time.Time) domain.GlobalStats {
	stats := domain.GlobalStats{
		TotalAnalyses:      len(results),
		TopSeedingKeywords: map[string]int{},
		RecentActivity:     make([]domain.RecentAnalysis, 0, min(len(results), recentLimit)),
		LastUpdated:        now.UTC(),
	}

	merged := make(map[string]int)
	for _, r := range results {
		stats.TotalCommentsProcessed += len(r.Comments)
		for i := range r.Comments {
			if r.Comments[i].IsSeeding() {
				stats.TotalSeedingDetected++
			}
		}
		for keyword, count := range r.Keywords {
			merged[keyword] += count
		}
	}
	stats.AverageSeedingRate = percentage(stats.TotalSeedingDetected, stats.TotalCommentsProcessed)

	for _, kc := range RankKeywords(merged, globalKeywordLimit) {
		stats.TopSeedingKeywords[kc.Keyword] = kc.Count
	}

	for _, r := range results[:min(len(results), recentLimit)] {
		stats.RecentActivity = append(stats.RecentActivity, domain.RecentAnalysis{
			ID:                r.ID,
			Source:            r.Source,
			CommentCount:      len(r.Comments),
			SeedingPercentage: r.Stats.SeedingPercentage,
			ProcessedAt:       r.ProcessedAt,
		})
	}

	return stats
}
