// Package classifier routes free-text admin questions to a data category
// using an ordered keyword table.
package classifier

import (
	"regexp"
	"strings"
)

// Category names the data an admin question is about
type Category string

const (
	PlatformStats      Category = "platform_stats"
	UserActivity       Category = "user_activity"
	MarketplaceTrends  Category = "marketplace_trends"
	AgentPerformance   Category = "agent_performance"
	ContentTrends      Category = "content_trends"
	MarketIntelligence Category = "market_intelligence"
	WorldKnowledge     Category = "world_knowledge"
	ComplexQuery       Category = "complex_query"
)

type rule struct {
	category Category
	keywords []string
}

// rules is evaluated in order; the first category with a matching keyword wins
var rules = []rule{
	{PlatformStats, []string{"platform", "overview", "statistics", "stats", "total users", "how many users", "dashboard"}},
	{UserActivity, []string{"user activity", "active users", "engagement", "session", "retention", "login", "peak hour", "busiest"}},
	{MarketplaceTrends, []string{"marketplace", "sales", "listing", "sold", "price", "volume", "nft"}},
	{AgentPerformance, []string{"agent", "response time", "error rate", "failure", "latency", "assistant"}},
	{ContentTrends, []string{"content", "prompt", "topic", "trending", "popular", "artwork", "style"}},
	{MarketIntelligence, []string{"market", "competitor", "industry", "crypto", "forecast", "opportunit"}},
	{WorldKnowledge, []string{"news", "world", "global", "weather", "history", "who is", "what is"}},
}

// Classify returns the first category whose keyword list matches the
// lower-cased text, or ComplexQuery when none does.
func Classify(text string) Category {
	lowered := strings.ToLower(text)
	for _, r := range rules {
		for _, keyword := range r.keywords {
			if strings.Contains(lowered, keyword) {
				return r.category
			}
		}
	}
	return ComplexQuery
}

// Categories returns the data categories in priority order, excluding
// ComplexQuery.
func Categories() []Category {
	out := make([]Category, len(rules))
	for i, r := range rules {
		out[i] = r.category
	}
	return out
}

// Valid reports whether c is a known data category
func Valid(c Category) bool {
	for _, r := range rules {
		if r.category == c {
			return true
		}
	}
	return false
}

var tagSeparator = regexp.MustCompile(`[\s,;|\n]+`)

// ParseCategories maps a text-generation reply onto known categories. The
// reply is expected to list category tags; exact tags are honoured first,
// then category keywords found in free prose. Results are deduplicated and
// returned in priority order. An unusable reply yields nil.
func ParseCategories(reply string) []Category {
	lowered := strings.ToLower(reply)

	found := make(map[Category]bool)
	for _, token := range tagSeparator.Split(lowered, -1) {
		token = strings.Trim(token, "`\"'.:-*[]()")
		if Valid(Category(token)) {
			found[Category(token)] = true
		}
	}

	if len(found) == 0 {
		for _, r := range rules {
			if strings.Contains(lowered, strings.ReplaceAll(string(r.category), "_", " ")) {
				found[r.category] = true
				continue
			}
			for _, keyword := range r.keywords {
				if strings.Contains(lowered, keyword) {
					found[r.category] = true
					break
				}
			}
		}
	}

	if len(found) == 0 {
		return nil
	}

	result := make([]Category, 0, len(found))
	for _, c := range Categories() {
		if found[c] {
			result = append(result, c)
		}
	}
	return result
}
