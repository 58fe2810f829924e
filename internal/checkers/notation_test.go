package checkers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSquareNumbering(t *testing.T) {
	seen := map[int]bool{}
	for r := 0; r < Size; r++ {
		for c := 0; c < Size; c++ {
			sq := Sq(r, c)
			n := SquareNumber(sq)
			if !sq.Dark() {
				assert.Zero(t, n)
				continue
			}
			require.False(t, seen[n], "duplicate %d", n)
			seen[n] = true
			back, ok := SquareFromNumber(n)
			require.True(t, ok)
			assert.Equal(t, sq, back)
		}
	}
	assert.Len(t, seen, 32)
	_, ok := SquareFromNumber(33)
	assert.False(t, ok)
}

func TestParseMove(t *testing.T) {
	cases := []struct {
		in   string
		want Move
	}{
		{"c3-d4", Move{Sq(5, 2), Sq(4, 3)}},
		{"C3D4", Move{Sq(5, 2), Sq(4, 3)}},
		{"c3xe5", Move{Sq(5, 2), Sq(3, 4)}},
		{" b6 - a5 ", Move{Sq(2, 1), Sq(3, 0)}},
		{"22-18", Move{Sq(5, 2), Sq(4, 3)}},
		{"22x15", Move{Sq(5, 2), Sq(3, 4)}},
	}
	for _, tc := range cases {
		got, err := ParseMove(tc.in)
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.want, got, tc.in)
	}

	for _, bad := range []string{"", "c3", "z9-a1", "c3-d9", "0-5", "c3--"} {
		_, err := ParseMove(bad)
		assert.ErrorIs(t, err, ErrBadMove, bad)
	}
}

func TestFormatMove(t *testing.T) {
	m := Move{Sq(5, 2), Sq(3, 4)}
	assert.Equal(t, "c3xe5", FormatMove(m, true))
	assert.Equal(t, "c3-e5", FormatMove(m, false))
	assert.Equal(t, "22x15", FormatMoveNumeric(m, true))
	assert.Equal(t, "c3", Sq(5, 2).String())
}
