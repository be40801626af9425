package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/BarkinBalci/synthesis-engine/internal/aggregate"
	"github.com/BarkinBalci/synthesis-engine/internal/classifier"
	"github.com/BarkinBalci/synthesis-engine/internal/domain"
	"github.com/BarkinBalci/synthesis-engine/internal/frequency"
	"github.com/BarkinBalci/synthesis-engine/internal/growth"
)

// NoData is returned in place of a category payload when the window holds
// no relevant events.
type NoData struct {
	Status   string `json:"status"`
	Period   string `json:"period"`
	Category string `json:"category"`
}

func (d NoData) Facts() []string {
	return []string{fmt.Sprintf("No %s events were recorded in the last %s.", strings.ReplaceAll(d.Category, "_", " "), humanPeriod(d.Period))}
}

type PlatformStats struct {
	Period            string                  `json:"period"`
	TotalEvents       int                     `json:"total_events"`
	UniqueIdentities  int                     `json:"unique_identities"`
	Sessions          int                     `json:"sessions"`
	AvgSessionSeconds float64                 `json:"avg_session_seconds"`
	EventTypes        map[string]int          `json:"event_types"`
	UsageByHour       [24]int                 `json:"usage_by_hour"`
	UsageByWeekday    [7]int                  `json:"usage_by_weekday"`
	PeakHour          int                     `json:"peak_hour"`
	PeakWeekday       string                  `json:"peak_weekday"`
	EventGrowth       growth.Growth           `json:"event_growth"`
	Features          aggregate.FeatureCounts `json:"feature_usage"`
}

func (d PlatformStats) Facts() []string {
	return []string{
		fmt.Sprintf("%d events from %d users or visitors were recorded in the last %s.", d.TotalEvents, d.UniqueIdentities, humanPeriod(d.Period)),
		fmt.Sprintf("They formed %d sessions averaging %s.", d.Sessions, formatSeconds(d.AvgSessionSeconds)),
		fmt.Sprintf("Activity peaks at %02d:00 and on %ss.", d.PeakHour, d.PeakWeekday),
		growthFact("Event volume", d.EventGrowth),
	}
}

type UserActivity struct {
	Period              string        `json:"period"`
	ActiveIdentities    int           `json:"active_identities"`
	ReturningIdentities int           `json:"returning_identities"`
	Sessions            int           `json:"sessions"`
	AvgSessionSeconds   float64       `json:"avg_session_seconds"`
	LongestSessionSecs  float64       `json:"longest_session_seconds"`
	AvgEventsPerSession float64       `json:"avg_events_per_session"`
	PeakHour            int           `json:"peak_hour"`
	PeakWeekday         string        `json:"peak_weekday"`
	SessionGrowth       growth.Growth `json:"session_growth"`
}

func (d UserActivity) Facts() []string {
	return []string{
		fmt.Sprintf("%d users or visitors were active in the last %s, %d of them in more than one session.", d.ActiveIdentities, humanPeriod(d.Period), d.ReturningIdentities),
		fmt.Sprintf("%d sessions averaged %s and %.1f events each; the longest lasted %s.", d.Sessions, formatSeconds(d.AvgSessionSeconds), d.AvgEventsPerSession, formatSeconds(d.LongestSessionSecs)),
		fmt.Sprintf("Users are most active at %02d:00 and on %ss.", d.PeakHour, d.PeakWeekday),
		growthFact("Session count", d.SessionGrowth),
	}
}

type MarketplaceTrends struct {
	Period      string                       `json:"period"`
	Marketplace aggregate.MarketplaceSummary `json:"marketplace"`
	Growth      growth.Growth                `json:"growth"`
}

func (d MarketplaceTrends) Facts() []string {
	facts := []string{
		fmt.Sprintf("%d marketplace actions were recorded in the last %s with a traded volume of %s.", d.Marketplace.Total, humanPeriod(d.Period), d.Marketplace.Volume.StringFixed(2)),
	}
	if d.Marketplace.AvgPrice.IsPositive() {
		facts = append(facts, fmt.Sprintf("The average priced action was %s.", d.Marketplace.AvgPrice.StringFixed(2)))
	}
	if len(d.Marketplace.TopItems) > 0 {
		top := d.Marketplace.TopItems[0]
		facts = append(facts, fmt.Sprintf("The most active item was %s with %d actions.", top.ItemID, top.Count))
	}
	return append(facts, growthFact("Marketplace activity", d.Growth))
}

type AgentPerformance struct {
	Period             string                          `json:"period"`
	TotalRequests      int                             `json:"total_requests"`
	OverallFailureRate float64                         `json:"overall_failure_rate"`
	Agents             map[string]aggregate.AgentStats `json:"agents"`
	Recommendations    []domain.Recommendation         `json:"recommendations"`
}

func (d AgentPerformance) Facts() []string {
	facts := []string{
		fmt.Sprintf("Agents handled %d requests in the last %s with an overall failure rate of %.1f%%.", d.TotalRequests, humanPeriod(d.Period), d.OverallFailureRate*100),
	}
	for _, name := range aggregate.AgentNames(d.Agents) {
		s := d.Agents[name]
		facts = append(facts, fmt.Sprintf("%s: %d requests, %d failed, %.2fs average response time.", name, s.Count, s.FailureCount, s.AvgResponseTime))
	}
	for _, rec := range d.Recommendations {
		facts = append(facts, fmt.Sprintf("Recommended (%s): %s", rec.Priority, rec.Message))
	}
	return facts
}

type ContentTrends struct {
	Period        string                 `json:"period"`
	TextsAnalyzed int                    `json:"texts_analyzed"`
	TopTerms      []frequency.TermCount  `json:"top_terms"`
	Topics        []frequency.TopicCount `json:"topics"`
	TopSubject    string                 `json:"top_subject"`
}

func (d ContentTrends) Facts() []string {
	facts := []string{fmt.Sprintf("%d prompts and searches were analyzed from the last %s.", d.TextsAnalyzed, humanPeriod(d.Period))}
	if d.TopSubject != "" {
		facts = append(facts, fmt.Sprintf("The most requested subject is %q.", d.TopSubject))
	}
	if len(d.TopTerms) > 0 {
		terms := make([]string, 0, len(d.TopTerms))
		for _, t := range d.TopTerms {
			terms = append(terms, fmt.Sprintf("%s (%d)", t.Term, t.Count))
		}
		facts = append(facts, "Frequent terms: "+strings.Join(terms, ", ")+".")
	}
	return facts
}

type MarketIntelligence struct {
	Period            string                  `json:"period"`
	Features          aggregate.FeatureCounts `json:"feature_usage"`
	AgentGrowth       growth.Growth           `json:"agent_growth"`
	MarketplaceGrowth growth.Growth           `json:"marketplace_growth"`
}

func (d MarketIntelligence) Facts() []string {
	return []string{
		fmt.Sprintf("Feature usage in the last %s: %d chat, %d artwork, %d NFT and %d strategy requests.",
			humanPeriod(d.Period), d.Features.Chat, d.Features.Artwork, d.Features.NFT, d.Features.Strategy),
		growthFact("AI agent demand", d.AgentGrowth),
		growthFact("Marketplace activity", d.MarketplaceGrowth),
	}
}

// WorldKnowledge carries no platform data; the narrative answers from the
// text generator's general knowledge.
type WorldKnowledge struct {
	Question string `json:"question"`
	Note     string `json:"note"`
}

func (d WorldKnowledge) Facts() []string {
	return []string{"This question needs general knowledge; the knowledge service is currently unavailable, so no answer could be produced."}
}

// ComplexAnswer bundles the categories gathered for an unclassified query
type ComplexAnswer struct {
	Categories []classifier.Category       `json:"categories"`
	Routing    string                      `json:"routing"`
	Sections   map[classifier.Category]any `json:"sections"`
}

func (d ComplexAnswer) Facts() []string {
	var facts []string
	for _, c := range d.Categories {
		if f, ok := d.Sections[c].(interface{ Facts() []string }); ok {
			facts = append(facts, f.Facts()...)
		}
	}
	return facts
}

func growthFact(subject string, g growth.Growth) string {
	if g.Previous == 0 {
		return fmt.Sprintf("%s cannot be compared: the previous period had no activity (%d now).", subject, g.Current)
	}
	direction := "grew"
	if g.GrowthPercent < 0 {
		direction = "fell"
	}
	percent := g.GrowthPercent
	if percent < 0 {
		percent = -percent
	}
	return fmt.Sprintf("%s %s %.1f%% versus the previous period (%d vs %d).", subject, direction, percent, g.Current, g.Previous)
}

func formatSeconds(seconds float64) string {
	return (time.Duration(seconds * float64(time.Second))).Round(time.Second).String()
}

func humanPeriod(token string) string {
	token = strings.TrimSuffix(token, "_prior")
	for _, unit := range []string{"days", "day", "hours", "hour"} {
		if strings.HasSuffix(token, unit) {
			n := strings.TrimSuffix(token, unit)
			if n == "1" {
				return strings.TrimSuffix(unit, "s")
			}
			return n + " " + unit
		}
	}
	return token
}
