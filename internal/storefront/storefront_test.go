package storefront

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidTier(t *testing.T) {
	assert.True(t, ValidTier(5, 50))
	assert.True(t, ValidTier(10, 100))
	assert.True(t, ValidTier(20, 150))

	// Known discount with the wrong price.
	assert.False(t, ValidTier(5, 100))
	assert.False(t, ValidTier(20, 50))

	// Unknown discounts.
	assert.False(t, ValidTier(15, 100))
	assert.False(t, ValidTier(0, 0))
	assert.False(t, ValidTier(-5, 50))
}
