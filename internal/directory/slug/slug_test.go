package slug

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	t.Run("lowercases and hyphenates the name", func(t *testing.T) {
		s := New("Sunrise Care & Wellness")
		assert.True(t, strings.HasPrefix(s, "sunrise-care-wellness-"), s)
	})

	t.Run("appends a random suffix for uniqueness", func(t *testing.T) {
		a := New("Sunrise Care")
		b := New("Sunrise Care")
		assert.NotEqual(t, a, b)

		suffix := a[strings.LastIndex(a, "-")+1:]
		require.Len(t, suffix, 6)
	})

	t.Run("handles names with no usable characters", func(t *testing.T) {
		s := New("!!!")
		assert.NotEmpty(t, s)
		assert.NotContains(t, s, "!")
	})
}
