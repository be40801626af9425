package aggregate

import (
	"github.com/BarkinBalci/synthesis-engine/internal/domain"
)

// AgentStats summarizes the requests handled by one agent
type AgentStats struct {
	Count           int     `json:"count"`
	SuccessCount    int     `json:"success_count"`
	FailureCount    int     `json:"failure_count"`
	AvgResponseTime float64 `json:"avg_response_time"`
}

// FailureRate returns failures over total requests, zero when idle
func (s AgentStats) FailureRate() float64 {
	if s.Count == 0 {
		return 0
	}
	return float64(s.FailureCount) / float64(s.Count)
}

// AgentUsage counts agent_request events per agent
func AgentUsage(events []domain.Event) map[string]AgentStats {
	type accumulator struct {
		stats         AgentStats
		totalResponse float64
	}

	acc := make(map[string]*accumulator)
	for _, e := range events {
		req, ok := e.Data.(domain.AgentRequest)
		if !ok {
			continue
		}

		a, exists := acc[req.Agent]
		if !exists {
			a = &accumulator{}
			acc[req.Agent] = a
		}

		a.stats.Count++
		if req.Succeeded() {
			a.stats.SuccessCount++
		} else {
			a.stats.FailureCount++
		}
		a.totalResponse += req.ResponseTime
	}

	result := make(map[string]AgentStats, len(acc))
	for agent, a := range acc {
		if a.stats.Count > 0 {
			a.stats.AvgResponseTime = a.totalResponse / float64(a.stats.Count)
		}
		result[agent] = a.stats
	}
	return result
}

// AgentNames returns the agents of usage in name order
func AgentNames(usage map[string]AgentStats) []string {
	return sortedKeys(usage)
}
