package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustParse(t *testing.T, s string) Version {
	t.Helper()
	v, err := Parse(s)
	require.NoError(t, err)
	return v
}

func TestParse(t *testing.T) {
	t.Run("full version", func(t *testing.T) {
		assert.Equal(t, Version{1, 2, 3}, mustParse(t, "1.2.3"))
	})

	t.Run("missing components are zero", func(t *testing.T) {
		assert.Equal(t, Version{2, 0, 0}, mustParse(t, "2"))
		assert.Equal(t, Version{2, 5, 0}, mustParse(t, "2.5"))
	})

	t.Run("surrounding whitespace", func(t *testing.T) {
		assert.Equal(t, Version{1, 0, 4}, mustParse(t, " 1.0.4 "))
	})

	t.Run("malformed", func(t *testing.T) {
		for _, s := range []string{"", "v1.2.3", "1.2.3.4", "1..2", "-1.0.0", "1.2.x", "abc"} {
			_, err := Parse(s)
			assert.ErrorIs(t, err, ErrInvalidVersion, s)
			assert.False(t, Valid(s), s)
		}
	})
}

func TestCompareStrings(t *testing.T) {
	cases := []struct {
		a, b string
		want int
	}{
		{"1.2.3", "1.2.3", 0},
		{"1.2.3", "1.3.0", -1},
		{"1.3.0", "1.2.3", 1},
		{"2.0.0", "1.99.99", 1},
		{"1.2", "1.2.0", 0},
		{"1.10.0", "1.9.0", 1},
	}
	for _, c := range cases {
		got, err := CompareStrings(c.a, c.b)
		assert.NoError(t, err)
		assert.Equal(t, c.want, got, "%s vs %s", c.a, c.b)
	}

	_, err := CompareStrings("1.2.3", "latest")
	assert.ErrorIs(t, err, ErrInvalidVersion)
}

func TestDetermineUpdateType(t *testing.T) {
	cases := []struct {
		current, latest string
		want            UpdateType
	}{
		{"1.2.3", "1.2.3", UpdateNone},
		{"1.3.0", "1.2.3", UpdateNone},
		{"1.2.3", "1.3.0", UpdateRecommended},
		{"1.2.3", "2.0.0", UpdateCritical},
		{"1.2.3", "1.2.4", UpdateOptional},
		{"1.9.9", "2.0.0", UpdateCritical},
	}
	for _, c := range cases {
		got := DetermineUpdateType(mustParse(t, c.current), mustParse(t, c.latest))
		assert.Equal(t, c.want, got, "%s -> %s", c.current, c.latest)
	}
}

func TestVersionString(t *testing.T) {
	assert.Equal(t, "3.0.0", mustParse(t, "3").String())
}
