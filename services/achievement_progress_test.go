package services

import (
	"testing"
	"time"

	"plantPalAPI/internal/achievement"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyProgressOverwritesAbsoluteValue(t *testing.T) {
	now := time.Now().UTC()
	row := &achievement.UserAchievement{CurrentProgress: 3}

	crossed := applyProgress(row, 10, 7, now)

	assert.False(t, crossed)
	assert.Equal(t, 7, row.CurrentProgress)
	assert.False(t, row.IsCompleted)
	assert.Nil(t, row.CompletedAt)
}

func TestApplyProgressCompletesAtThreshold(t *testing.T) {
	now := time.Now().UTC()
	row := &achievement.UserAchievement{CurrentProgress: 9}

	crossed := applyProgress(row, 10, 10, now)

	assert.True(t, crossed)
	assert.True(t, row.IsCompleted)
	require.NotNil(t, row.CompletedAt)
	assert.Equal(t, now, *row.CompletedAt)
}

func TestApplyProgressIsIdempotent(t *testing.T) {
	now := time.Now().UTC()
	row := &achievement.UserAchievement{CurrentProgress: 5}

	first := applyProgress(row, 5, 5, now)
	assert.True(t, first)

	// Reprocessing the same value must not re-fire the unlock.
	second := applyProgress(row, 5, 5, now.Add(time.Minute))
	assert.False(t, second)
	require.NotNil(t, row.CompletedAt)
	assert.Equal(t, now, *row.CompletedAt)
}

func TestApplyProgressNeverRegressesCompletion(t *testing.T) {
	now := time.Now().UTC()
	completedAt := now.Add(-time.Hour)
	row := &achievement.UserAchievement{
		CurrentProgress: 15,
		IsCompleted:     true,
		CompletedAt:     &completedAt,
	}

	// A lower absolute value (plants deleted, streak broken) must not
	// touch a completed row.
	crossed := applyProgress(row, 15, 2, now)

	assert.False(t, crossed)
	assert.True(t, row.IsCompleted)
	assert.Equal(t, 15, row.CurrentProgress)
	assert.Equal(t, completedAt, *row.CompletedAt)
}

func TestApplyProgressLowerValueTracksOnLiveRow(t *testing.T) {
	now := time.Now().UTC()
	row := &achievement.UserAchievement{CurrentProgress: 4}

	crossed := applyProgress(row, 15, 2, now)

	assert.False(t, crossed)
	assert.Equal(t, 2, row.CurrentProgress)
	assert.False(t, row.IsCompleted)
}
