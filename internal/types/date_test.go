package types

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextBillingDate(t *testing.T) {
	tests := []struct {
		name      string
		start     time.Time
		threshold int
		interval  BillingInterval
		want      time.Time
	}{
		{
			name:      "one month",
			start:     time.Date(2026, 3, 15, 10, 30, 0, 0, time.UTC),
			threshold: 1,
			interval:  BillingIntervalMonth,
			want:      time.Date(2026, 4, 15, 10, 30, 0, 0, time.UTC),
		},
		{
			name:      "month end clamps instead of spilling",
			start:     time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC),
			threshold: 1,
			interval:  BillingIntervalMonth,
			want:      time.Date(2026, 2, 28, 0, 0, 0, 0, time.UTC),
		},
		{
			name:      "two months across year boundary",
			start:     time.Date(2026, 12, 10, 0, 0, 0, 0, time.UTC),
			threshold: 2,
			interval:  BillingIntervalMonth,
			want:      time.Date(2027, 2, 10, 0, 0, 0, 0, time.UTC),
		},
		{
			name:      "three weeks",
			start:     time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
			threshold: 3,
			interval:  BillingIntervalWeek,
			want:      time.Date(2026, 3, 22, 0, 0, 0, 0, time.UTC),
		},
		{
			name:      "ten days",
			start:     time.Date(2026, 3, 25, 0, 0, 0, 0, time.UTC),
			threshold: 10,
			interval:  BillingIntervalDay,
			want:      time.Date(2026, 4, 4, 0, 0, 0, 0, time.UTC),
		},
		{
			name:      "one year",
			start:     time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC),
			threshold: 1,
			interval:  BillingIntervalYear,
			want:      time.Date(2027, 6, 1, 0, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NextBillingDate(tt.start, tt.threshold, tt.interval)
			require.NoError(t, err)
			assert.True(t, got.Equal(tt.want), "got %s, want %s", got, tt.want)
		})
	}
}

func TestNextBillingDateRejectsBadInput(t *testing.T) {
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	_, err := NextBillingDate(start, 0, BillingIntervalMonth)
	assert.Error(t, err)

	_, err = NextBillingDate(start, -1, BillingIntervalMonth)
	assert.Error(t, err)

	_, err = NextBillingDate(start, 1, BillingInterval("fortnight"))
	assert.Error(t, err)
}

func TestAddClampedDatePreservesClock(t *testing.T) {
	start := time.Date(2026, 1, 31, 9, 45, 30, 0, time.UTC)

	got := AddClampedDate(start, 0, 1, 0)
	assert.Equal(t, time.Date(2026, 2, 28, 9, 45, 30, 0, time.UTC), got)

	// leap year February keeps the 29th
	got = AddClampedDate(time.Date(2028, 1, 31, 0, 0, 0, 0, time.UTC), 0, 1, 0)
	assert.Equal(t, time.Date(2028, 2, 29, 0, 0, 0, 0, time.UTC), got)
}
