package timeutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeDate(t *testing.T) {
	cases := map[string]string{
		"2026-08-23": "2026-08-23",
		"23.08.2026": "2026-08-23",
		"3.1.2026":   "2026-01-03",
		"23/08/2026": "2026-08-23",
		"23-08-2026": "2026-08-23",
	}
	for in, want := range cases {
		got, err := NormalizeDate(in)
		assert.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
}

func TestNormalizeDateRejectsGarbage(t *testing.T) {
	for _, in := range []string{"", "yesterday", "2026-13-40", "08.2026"} {
		_, err := NormalizeDate(in)
		assert.Error(t, err, in)
	}
}
