package alerts

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestTruncateRunes(t *testing.T) {
	t.Run("short strings pass through", func(t *testing.T) {
		assert.Equal(t, "hello", truncateRunes("hello", 120))
		assert.Equal(t, "", truncateRunes("", 120))
	})

	t.Run("long ascii capped at limit", func(t *testing.T) {
		long := strings.Repeat("a", 300)
		got := truncateRunes(long, 120)
		assert.Len(t, got, 120)
	})

	t.Run("multi-byte runes never split", func(t *testing.T) {
		long := strings.Repeat("héllo wörld ", 30)
		got := truncateRunes(long, 120)
		assert.True(t, utf8.ValidString(got))
		assert.Equal(t, 120, utf8.RuneCountInString(got))
	})

	t.Run("boundary exactly at a multi-byte rune", func(t *testing.T) {
		// 119 ascii bytes then a 3-byte rune; cutting at byte 120 would
		// leave an invalid tail.
		s := strings.Repeat("a", 119) + "音音音"
		got := truncateRunes(s, 120)
		assert.True(t, utf8.ValidString(got))
		assert.Equal(t, strings.Repeat("a", 119)+"音", got)
	})
}
