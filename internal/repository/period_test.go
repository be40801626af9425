package repository

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func TestParsePeriod(t *testing.T) {
	tests := []struct {
		token    string
		wantFrom time.Time
		wantTo   time.Time
	}{
		{"7days", now.Add(-7 * 24 * time.Hour), now},
		{"1day", now.Add(-24 * time.Hour), now},
		{"24hours", now.Add(-24 * time.Hour), now},
		{" 30DAYS ", now.Add(-30 * 24 * time.Hour), now},
		{"7days_prior", now.Add(-14 * 24 * time.Hour), now.Add(-7 * 24 * time.Hour)},
	}

	for _, tt := range tests {
		t.Run(tt.token, func(t *testing.T) {
			p, err := ParsePeriod(tt.token, now)
			require.NoError(t, err)
			assert.Equal(t, tt.wantFrom, p.From)
			assert.Equal(t, tt.wantTo, p.To)
		})
	}
}

func TestParsePeriod_Invalid(t *testing.T) {
	for _, token := range []string{"", "week", "0days", "-3days", "7 days", "7weeks", "367days", "9000hours"} {
		_, err := ParsePeriod(token, now)
		assert.True(t, errors.Is(err, ErrInvalidPeriod), token)
	}
}

func TestPeriod_Prior(t *testing.T) {
	p, err := ParsePeriod("7days", now)
	require.NoError(t, err)

	prior := p.Prior()
	assert.Equal(t, "7days_prior", prior.Token)
	assert.Equal(t, p.From, prior.To)
	assert.Equal(t, p.Length(), prior.Length())

	parsed, err := ParsePeriod(prior.Token, now)
	require.NoError(t, err)
	assert.Equal(t, prior.From, parsed.From)
	assert.Equal(t, prior.To, parsed.To)
}

func TestPeriod_ContainsIsHalfOpen(t *testing.T) {
	p, err := ParsePeriod("1day", now)
	require.NoError(t, err)

	assert.True(t, p.Contains(p.From))
	assert.True(t, p.Contains(now.Add(-time.Nanosecond)))
	assert.False(t, p.Contains(now))
	assert.False(t, p.Contains(p.From.Add(-time.Nanosecond)))
}
