package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func day(s string) time.Time {
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestConsecutiveDays(t *testing.T) {
	today := day("2026-08-24")

	tests := []struct {
		name  string
		dates []time.Time
		want  int
	}{
		{
			name:  "no scans ever",
			dates: nil,
			want:  0,
		},
		{
			name:  "single scan today",
			dates: []time.Time{day("2026-08-24")},
			want:  1,
		},
		{
			name:  "three consecutive days ending today",
			dates: []time.Time{day("2026-08-24"), day("2026-08-23"), day("2026-08-22")},
			want:  3,
		},
		{
			name:  "gap breaks the run",
			dates: []time.Time{day("2026-08-24"), day("2026-08-22")},
			want:  1,
		},
		{
			name:  "yesterday without today keeps the streak alive",
			dates: []time.Time{day("2026-08-23"), day("2026-08-22"), day("2026-08-21")},
			want:  3,
		},
		{
			name:  "latest scan two days ago is a broken streak",
			dates: []time.Time{day("2026-08-22"), day("2026-08-21")},
			want:  0,
		},
		{
			name:  "long run stops at first gap",
			dates: []time.Time{day("2026-08-24"), day("2026-08-23"), day("2026-08-21"), day("2026-08-20")},
			want:  2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, consecutiveDays(today, tt.dates))
		})
	}
}

func TestConsecutiveDaysIgnoresTimeOfDay(t *testing.T) {
	// Scans are stored as timestamps but the streak counts calendar days.
	today := time.Date(2026, 8, 24, 23, 45, 0, 0, time.UTC)
	dates := []time.Time{
		time.Date(2026, 8, 24, 0, 5, 0, 0, time.UTC),
		time.Date(2026, 8, 23, 18, 0, 0, 0, time.UTC),
	}

	assert.Equal(t, 2, consecutiveDays(today, dates))
}
