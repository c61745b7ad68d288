package format

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2025, time.March, 14, 15, 7, 0, 0, time.UTC)

func at(d time.Duration) *time.Time {
	t := now.Add(d)
	return &t
}

func TestSurveyStatus(t *testing.T) {
	tests := []struct {
		name     string
		opensAt  *time.Time
		closesAt *time.Time
		want     Status
	}{
		{"no schedule", nil, nil, StatusOpen},
		{"opens in an hour", at(time.Hour), nil, StatusScheduled},
		{"closed an hour ago", nil, at(-time.Hour), StatusClosed},
		{"inside the window", at(-time.Hour), at(time.Hour), StatusOpen},
		{"future open wins over past close", at(time.Hour), at(-time.Hour), StatusScheduled},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SurveyStatus(tt.opensAt, tt.closesAt, now))
		})
	}
}

func TestRelativeTime(t *testing.T) {
	tests := []struct {
		ago  time.Duration
		want string
	}{
		{10 * time.Second, "Just now"},
		{time.Minute, "1 minute ago"},
		{45 * time.Minute, "45 minutes ago"},
		{time.Hour, "1 hour ago"},
		{23 * time.Hour, "23 hours ago"},
		{24 * time.Hour, "1 day ago"},
		{6 * 24 * time.Hour, "6 days ago"},
		{8 * 24 * time.Hour, "Mar 6, 2025"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, RelativeTime(at(-tt.ago), now))
		})
	}
	assert.Equal(t, "", RelativeTime(nil, now))
}

func TestDates(t *testing.T) {
	assert.Equal(t, "Mar 14, 2025", Date(&now))
	assert.Equal(t, "Mar 14, 2025, 3:07 PM", DateTime(&now))
	assert.Equal(t, "2025-03-14T15:07", DateTimeLocal(&now))
	assert.Equal(t, "", Date(nil))
	assert.Equal(t, "", DateTime(&time.Time{}))

	parsed, err := ParseDateTimeLocal("2025-03-14T15:07", time.UTC)
	require.NoError(t, err)
	assert.True(t, parsed.Equal(now))

	parsed, err = ParseDateTimeLocal("", time.UTC)
	require.NoError(t, err)
	assert.Nil(t, parsed)

	_, err = ParseDateTimeLocal("yesterday", time.UTC)
	assert.Error(t, err)
}

func TestStatusBadgeClass(t *testing.T) {
	assert.Equal(t, "bg-yellow-100 text-yellow-800", StatusBadgeClass(StatusScheduled))
	assert.Equal(t, "bg-green-100 text-green-800", StatusBadgeClass("bogus"))
	assert.Equal(t, "Closed", StatusClosed.Label())
}
