// Package sessions rebuilds user sessions from a flat event log by
// splitting each identity's events on inactivity gaps.
package sessions

import (
	"sort"
	"time"

	"github.com/BarkinBalci/synthesis-engine/internal/domain"
)

// DefaultTimeout is the inactivity gap that ends a session
const DefaultTimeout = 30 * time.Minute

// Reconstruct groups events by identity and splits each group into
// sessions. A gap strictly greater than timeout starts a new session.
// The input slice is not modified; output order is not significant.
func Reconstruct(events []domain.Event, timeout time.Duration) []domain.Session {
	if len(events) == 0 {
		return []domain.Session{}
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	ordered := make([]domain.Event, len(events))
	copy(ordered, events)
	sort.SliceStable(ordered, func(i, j int) bool {
		a, b := ordered[i].Identity(), ordered[j].Identity()
		if a != b {
			return a < b
		}
		return ordered[i].Timestamp.Before(ordered[j].Timestamp)
	})

	result := make([]domain.Session, 0, len(ordered)/4+1)
	open := make(map[string]*domain.Session)

	for _, event := range ordered {
		identity := event.Identity()
		current, ok := open[identity]

		switch {
		case !ok:
			open[identity] = newSession(identity, event.Timestamp)
		case event.Timestamp.Sub(current.LastActivity) > timeout:
			result = append(result, closeSession(current))
			open[identity] = newSession(identity, event.Timestamp)
		default:
			current.LastActivity = event.Timestamp
			current.EventCount++
		}
	}

	identities := make([]string, 0, len(open))
	for identity := range open {
		identities = append(identities, identity)
	}
	sort.Strings(identities)
	for _, identity := range identities {
		result = append(result, closeSession(open[identity]))
	}

	return result
}

func newSession(identity string, at time.Time) *domain.Session {
	return &domain.Session{
		Identity:     identity,
		StartTime:    at,
		LastActivity: at,
		EventCount:   1,
	}
}

func closeSession(s *domain.Session) domain.Session {
	closed := *s
	closed.EndTime = closed.LastActivity
	closed.Duration = closed.LastActivity.Sub(closed.StartTime)
	return closed
}
