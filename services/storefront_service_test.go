package services

import (
	"strings"
	"testing"

	"plantPalAPI/internal/storefront"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateCouponCode(t *testing.T) {
	seen := make(map[string]bool)

	for i := 0; i < 100; i++ {
		code, err := generateCouponCode(storefront.CodeLength)
		require.NoError(t, err)

		assert.Len(t, code, storefront.CodeLength)
		for _, c := range code {
			assert.True(t, strings.ContainsRune(codeAlphabet, c), "unexpected character %q in code %s", c, code)
		}

		assert.False(t, seen[code], "duplicate code generated: %s", code)
		seen[code] = true
	}
}

func TestGenerateCouponCodeCoversAlphabet(t *testing.T) {
	// 500 codes x 12 chars: every alphabet character should show up,
	// which a skewed sampler could not guarantee.
	counts := make(map[rune]int)
	for i := 0; i < 500; i++ {
		code, err := generateCouponCode(storefront.CodeLength)
		require.NoError(t, err)
		for _, c := range code {
			counts[c]++
		}
	}

	for _, c := range codeAlphabet {
		assert.Greater(t, counts[c], 0, "character %q never generated", c)
	}
}
