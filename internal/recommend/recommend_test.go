package recommend

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BarkinBalci/synthesis-engine/internal/aggregate"
	"github.com/BarkinBalci/synthesis-engine/internal/domain"
	"github.com/BarkinBalci/synthesis-engine/internal/growth"
)

func types(recs []domain.Recommendation) []domain.RecommendationType {
	out := make([]domain.RecommendationType, len(recs))
	for i, r := range recs {
		out[i] = r.Type
	}
	return out
}

func assertOrdered(t *testing.T, recs []domain.Recommendation) {
	t.Helper()
	for i := 1; i < len(recs); i++ {
		assert.LessOrEqual(t, recs[i-1].Priority.Rank(), recs[i].Priority.Rank())
	}
}

func TestGenerate_ErrorInvestigation(t *testing.T) {
	in := Input{Agents: map[string]aggregate.AgentStats{
		"chat": {Count: 3, SuccessCount: 2, FailureCount: 1},
	}}

	recs := Generate(in, DefaultThresholds())

	require.Len(t, recs, 2)
	assert.Equal(t, domain.RecommendationErrorInvestigation, recs[0].Type)
	assert.Equal(t, domain.PriorityHigh, recs[0].Priority)
	assert.Equal(t, domain.RecommendationFeaturePromotion, recs[1].Type)
	assert.Equal(t, domain.PriorityMedium, recs[1].Priority)
}

func TestGenerate_HealthyAgentProducesNothing(t *testing.T) {
	in := Input{Agents: map[string]aggregate.AgentStats{
		"chat": {Count: 100, SuccessCount: 95, FailureCount: 5},
	}}

	assert.Empty(t, Generate(in, DefaultThresholds()))
}

func TestGenerate_ErrorRateBoundaryIsExclusive(t *testing.T) {
	in := Input{Agents: map[string]aggregate.AgentStats{
		"chat": {Count: 10, SuccessCount: 9, FailureCount: 1},
	}}

	assert.Empty(t, Generate(in, DefaultThresholds()))
}

func TestGenerate_GrowthRules(t *testing.T) {
	declining := growth.Compare(50, 100)
	booming := growth.Compare(200, 100)
	moderate := growth.Compare(120, 100)

	assert.Equal(t, []domain.RecommendationType{domain.RecommendationGrowth},
		types(Generate(Input{Growth: &declining}, DefaultThresholds())))
	assert.Equal(t, []domain.RecommendationType{domain.RecommendationPerformance},
		types(Generate(Input{Growth: &booming}, DefaultThresholds())))
	assert.Empty(t, Generate(Input{Growth: &moderate}, DefaultThresholds()))
}

func TestGenerate_AllRulesSortedByPriority(t *testing.T) {
	declining := growth.Compare(10, 100)
	in := Input{
		Agents: map[string]aggregate.AgentStats{
			"art-generation": {Count: 2, FailureCount: 2},
			"chat-assistant": {Count: 50, FailureCount: 1, SuccessCount: 49},
			"strategy":       {Count: 1, SuccessCount: 1},
		},
		Growth:     &declining,
		TopSubject: "fantasy",
	}

	recs := Generate(in, DefaultThresholds())

	assertOrdered(t, recs)
	assert.Equal(t, []domain.RecommendationType{
		domain.RecommendationErrorInvestigation,
		domain.RecommendationGrowth,
		domain.RecommendationFeaturePromotion,
		domain.RecommendationFeaturePromotion,
		domain.RecommendationFeatureEnhancement,
	}, types(recs))
	assert.Contains(t, recs[0].Message, "art-generation")
}

func TestGenerate_EmptyInput(t *testing.T) {
	recs := Generate(Input{}, DefaultThresholds())

	assert.NotNil(t, recs)
	assert.Empty(t, recs)
}

func TestSortByPriority_Stable(t *testing.T) {
	recs := []domain.Recommendation{
		{Type: "a", Priority: domain.PriorityLow},
		{Type: "b", Priority: domain.PriorityMedium},
		{Type: "c", Priority: domain.PriorityHigh},
		{Type: "d", Priority: domain.PriorityMedium},
	}

	SortByPriority(recs)

	assert.Equal(t, []domain.RecommendationType{"c", "b", "d", "a"}, types(recs))
}
