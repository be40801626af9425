// Package recommend turns aggregates into prioritized, rule-derived
// recommendations.
package recommend

import (
	"fmt"
	"sort"

	"github.com/BarkinBalci/synthesis-engine/internal/aggregate"
	"github.com/BarkinBalci/synthesis-engine/internal/domain"
	"github.com/BarkinBalci/synthesis-engine/internal/growth"
)

// Thresholds parameterizes the rule set
type Thresholds struct {
	MinAgentUsage      int
	ErrorRateThreshold float64
	HighGrowthPercent  float64
}

// DefaultThresholds returns the standard rule thresholds
func DefaultThresholds() Thresholds {
	return Thresholds{
		MinAgentUsage:      10,
		ErrorRateThreshold: 0.10,
		HighGrowthPercent:  50,
	}
}

// Input is what the rules look at. Nil or empty fields disable the rules
// that depend on them.
type Input struct {
	Agents     map[string]aggregate.AgentStats
	Growth     *growth.Growth
	TopSubject string
}

// Generate evaluates every rule independently and returns the results
// ordered by priority, high first. Rules that fire on the same priority
// keep evaluation order.
func Generate(in Input, th Thresholds) []domain.Recommendation {
	recs := make([]domain.Recommendation, 0)

	for _, agent := range aggregate.AgentNames(in.Agents) {
		stats := in.Agents[agent]

		if stats.Count < th.MinAgentUsage {
			recs = append(recs, domain.Recommendation{
				Type:     domain.RecommendationFeaturePromotion,
				Priority: domain.PriorityMedium,
				Message:  fmt.Sprintf("Agent %q handled only %d requests; consider promoting it to users.", agent, stats.Count),
			})
		}

		if stats.Count > 0 && stats.FailureRate() > th.ErrorRateThreshold {
			recs = append(recs, domain.Recommendation{
				Type:     domain.RecommendationErrorInvestigation,
				Priority: domain.PriorityHigh,
				Message: fmt.Sprintf("Agent %q failed %.1f%% of %d requests; investigate the errors.",
					agent, stats.FailureRate()*100, stats.Count),
			})
		}
	}

	if in.Growth != nil {
		if in.Growth.GrowthPercent < 0 {
			recs = append(recs, domain.Recommendation{
				Type:     domain.RecommendationGrowth,
				Priority: domain.PriorityHigh,
				Message:  fmt.Sprintf("Activity fell %.1f%% versus the previous period; review engagement campaigns.", -in.Growth.GrowthPercent),
			})
		}
		if in.Growth.GrowthPercent > th.HighGrowthPercent {
			recs = append(recs, domain.Recommendation{
				Type:     domain.RecommendationPerformance,
				Priority: domain.PriorityMedium,
				Message:  fmt.Sprintf("Activity grew %.1f%% versus the previous period; check capacity and response times.", in.Growth.GrowthPercent),
			})
		}
	}

	if in.TopSubject != "" {
		recs = append(recs, domain.Recommendation{
			Type:     domain.RecommendationFeatureEnhancement,
			Priority: domain.PriorityMedium,
			Message:  fmt.Sprintf("%q is the most requested subject; consider dedicated templates or presets for it.", in.TopSubject),
		})
	}

	SortByPriority(recs)
	return recs
}

// SortByPriority stable-sorts recs so that high comes before medium before low
func SortByPriority(recs []domain.Recommendation) {
	sort.SliceStable(recs, func(i, j int) bool {
		return recs[i].Priority.Rank() < recs[j].Priority.Rank()
	})
}
