package checkers

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatPDN(t *testing.T) {
	captured := Sq(4, 3)
	records := []Record{
		{Color: Light, Move: Move{Sq(5, 4), Sq(4, 3)}},
		{Color: Dark, Move: Move{Sq(2, 1), Sq(3, 2)}},
		{Color: Light, Move: Move{Sq(5, 2), Sq(4, 1)}},
		{Color: Dark, Move: Move{Sq(3, 2), Sq(5, 4)}, Captured: &captured},
	}
	out := FormatPDN([]Tag{{"Event", "Casual"}, {"", "skip"}}, records, PDNResult(None, Light))

	assert.True(t, strings.HasPrefix(out, "[Event \"Casual\"]\n[Result \"0-1\"]\n\n"))
	assert.True(t, strings.HasSuffix(out, "1. 23-18 9-14 2. 22-17 14x23 0-1"), out)
	assert.NotContains(t, out, "skip")
}

func TestPDNResult(t *testing.T) {
	assert.Equal(t, "1-0", PDNResult(LightWins, NoColor))
	assert.Equal(t, "0-1", PDNResult(DarkWins, NoColor))
	assert.Equal(t, "1-0", PDNResult(None, Dark))
	assert.Equal(t, "*", PDNResult(None, NoColor))
}
