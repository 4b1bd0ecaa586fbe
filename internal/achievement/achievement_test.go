package achievement

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseAchievementType(t *testing.T) {
	for _, valid := range []string{"streak", "plants_count", "scans_count", "healthy_plants_count"} {
		parsed, ok := ParseAchievementType(valid)
		assert.True(t, ok, valid)
		assert.Equal(t, AchievementType(valid), parsed)
	}

	for _, invalid := range []string{"", "STREAK", "friends_count", "plants"} {
		_, ok := ParseAchievementType(invalid)
		assert.False(t, ok, invalid)
	}
}
