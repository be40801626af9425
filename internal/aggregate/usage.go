// Package aggregate reduces event and session slices into usage counters.
// Every function is pure and degrades to zero values on empty input.
package aggregate

import (
	"sort"
	"strings"
	"time"

	"github.com/BarkinBalci/synthesis-engine/internal/domain"
)

// UsageByHour buckets events by hour of day in their timestamp's location
func UsageByHour(events []domain.Event) [24]int {
	var buckets [24]int
	for _, e := range events {
		buckets[e.Timestamp.Hour()]++
	}
	return buckets
}

// UsageByWeekday buckets events by weekday, Sunday first
func UsageByWeekday(events []domain.Event) [7]int {
	var buckets [7]int
	for _, e := range events {
		buckets[e.Timestamp.Weekday()]++
	}
	return buckets
}

// PeakHour returns the busiest hour, preferring the earliest on ties
func PeakHour(buckets [24]int) int {
	peak := 0
	for h, count := range buckets {
		if count > buckets[peak] {
			peak = h
		}
	}
	return peak
}

// PeakWeekday returns the busiest weekday, preferring the earliest on ties
func PeakWeekday(buckets [7]int) time.Weekday {
	peak := 0
	for d, count := range buckets {
		if count > buckets[peak] {
			peak = d
		}
	}
	return time.Weekday(peak)
}

// EventTypeCounts tallies events per event type
func EventTypeCounts(events []domain.Event) map[domain.EventType]int {
	counts := make(map[domain.EventType]int)
	for _, e := range events {
		counts[e.Type]++
	}
	return counts
}

// UniqueIdentities counts distinct session identities in events
func UniqueIdentities(events []domain.Event) int {
	seen := make(map[string]struct{}, len(events))
	for _, e := range events {
		seen[e.Identity()] = struct{}{}
	}
	return len(seen)
}

// FeatureCounts tallies agent requests by product feature
type FeatureCounts struct {
	Chat     int `json:"chat"`
	Artwork  int `json:"artwork"`
	NFT      int `json:"nft"`
	Strategy int `json:"strategy"`
}

// Total returns the sum of all feature counters
func (f FeatureCounts) Total() int {
	return f.Chat + f.Artwork + f.NFT + f.Strategy
}

// FeatureUsage maps agent requests onto product features by agent name.
// Art agents count toward nft when the request's action_type is "nft".
func FeatureUsage(events []domain.Event) FeatureCounts {
	var counts FeatureCounts
	for _, e := range events {
		req, ok := e.Data.(domain.AgentRequest)
		if !ok {
			continue
		}

		switch agentFeature(req.Agent) {
		case featureStrategy:
			counts.Strategy++
		case featureChat:
			counts.Chat++
		case featureArt:
			if strings.EqualFold(req.ActionType, "nft") {
				counts.NFT++
			} else {
				counts.Artwork++
			}
		}
	}
	return counts
}

type feature int

const (
	featureNone feature = iota
	featureStrategy
	featureChat
	featureArt
)

var featureTokens = map[string]feature{
	"strategy": featureStrategy,
	"chat":     featureChat,
	"chatbot":  featureChat,
	"art":      featureArt,
	"artwork":  featureArt,
	"artist":   featureArt,
}

// agentFeature matches whole name tokens split on separators, so
// "smart-strategy" is strategy and "chart-analyst" is nothing.
// Strategy outranks chat, which outranks art.
func agentFeature(agent string) feature {
	tokens := strings.FieldsFunc(strings.ToLower(agent), func(r rune) bool {
		return r == '-' || r == '_' || r == ' ' || r == '.' || r == '/'
	})

	best := featureNone
	for _, token := range tokens {
		if f, ok := featureTokens[token]; ok && (best == featureNone || f < best) {
			best = f
		}
	}
	return best
}

// Texts collects the free text carried by events: agent prompts and searches
func Texts(events []domain.Event) []string {
	texts := make([]string, 0, len(events))
	for _, e := range events {
		switch p := e.Data.(type) {
		case domain.AgentRequest:
			if p.Prompt != "" {
				texts = append(texts, p.Prompt)
			}
		case domain.Search:
			texts = append(texts, p.Query)
		}
	}
	return texts
}

// sortedKeys returns map keys in ascending order
func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
