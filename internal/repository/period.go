package repository

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ErrInvalidPeriod is returned for tokens that are not of the form
// "<n>days", "<n>hours" or either with a "_prior" suffix.
var ErrInvalidPeriod = errors.New("invalid period")

const maxPeriodDays = 366

var periodPattern = regexp.MustCompile(`^(\d+)(days|day|hours|hour)(_prior)?$`)

// Period is a half-open time window [From, To)
type Period struct {
	Token string
	From  time.Time
	To    time.Time
}

// Length returns the window size
func (p Period) Length() time.Duration {
	return p.To.Sub(p.From)
}

// Contains reports whether t falls inside the window
func (p Period) Contains(t time.Time) bool {
	return !t.Before(p.From) && t.Before(p.To)
}

// ParsePeriod resolves a period token against now. "7days" is the week
// ending at now; "7days_prior" is the equally long window immediately
// before it.
func ParsePeriod(token string, now time.Time) (Period, error) {
	normalized := strings.ToLower(strings.TrimSpace(token))
	match := periodPattern.FindStringSubmatch(normalized)
	if match == nil {
		return Period{}, fmt.Errorf("%w: %q", ErrInvalidPeriod, token)
	}

	n, err := strconv.Atoi(match[1])
	if err != nil || n <= 0 {
		return Period{}, fmt.Errorf("%w: %q", ErrInvalidPeriod, token)
	}

	var length time.Duration
	switch match[2] {
	case "day", "days":
		if n > maxPeriodDays {
			return Period{}, fmt.Errorf("%w: %q exceeds %d days", ErrInvalidPeriod, token, maxPeriodDays)
		}
		length = time.Duration(n) * 24 * time.Hour
	default:
		if n > maxPeriodDays*24 {
			return Period{}, fmt.Errorf("%w: %q exceeds %d days", ErrInvalidPeriod, token, maxPeriodDays)
		}
		length = time.Duration(n) * time.Hour
	}

	to := now
	if match[3] != "" {
		to = now.Add(-length)
	}

	return Period{Token: normalized, From: to.Add(-length), To: to}, nil
}

// Prior returns the equally long window that ends where p starts
func (p Period) Prior() Period {
	length := p.Length()
	return Period{Token: p.Token + "_prior", From: p.From.Add(-length), To: p.From}
}
