package aggregate

import (
	"time"

	"github.com/BarkinBalci/synthesis-engine/internal/domain"
)

// SessionSummary describes a set of reconstructed sessions
type SessionSummary struct {
	Count               int           `json:"count"`
	UniqueIdentities    int           `json:"unique_identities"`
	AvgDuration         time.Duration `json:"avg_duration"`
	AvgEventsPerSession float64       `json:"avg_events_per_session"`
	LongestDuration     time.Duration `json:"longest_duration"`
	ReturningIdentities int           `json:"returning_identities"`
}

// SessionStats summarizes sessions; identities with more than one session
// count as returning.
func SessionStats(sessions []domain.Session) SessionSummary {
	summary := SessionSummary{Count: len(sessions)}
	if len(sessions) == 0 {
		return summary
	}

	perIdentity := make(map[string]int)
	var totalDuration time.Duration
	totalEvents := 0

	for _, s := range sessions {
		perIdentity[s.Identity]++
		totalDuration += s.Duration
		totalEvents += s.EventCount
		if s.Duration > summary.LongestDuration {
			summary.LongestDuration = s.Duration
		}
	}

	for _, n := range perIdentity {
		if n > 1 {
			summary.ReturningIdentities++
		}
	}

	summary.UniqueIdentities = len(perIdentity)
	summary.AvgDuration = totalDuration / time.Duration(len(sessions))
	summary.AvgEventsPerSession = float64(totalEvents) / float64(len(sessions))
	return summary
}
