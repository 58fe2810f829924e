package checkers

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLegalMovesInitialPosition(t *testing.T) {
	b := NewBoard()
	light := LegalMoves(&b, Light)
	assert.ElementsMatch(t, []Move{
		{Sq(5, 0), Sq(4, 1)},
		{Sq(5, 2), Sq(4, 1)}, {Sq(5, 2), Sq(4, 3)},
		{Sq(5, 4), Sq(4, 3)}, {Sq(5, 4), Sq(4, 5)},
		{Sq(5, 6), Sq(4, 5)}, {Sq(5, 6), Sq(4, 7)},
	}, light)
	assert.Len(t, LegalMoves(&b, Dark), 7)
}

func TestLegalMovesMatchValidateMove(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	s := NewSession(TwoPlayer)
	for i := 0; i < 40 && s.Outcome() == None; i++ {
		b := s.Board()
		moves := LegalMoves(&b, s.Turn())
		if len(moves) == 0 {
			break
		}
		set := make(map[Move]bool, len(moves))
		for _, mv := range moves {
			set[mv] = true
		}
		for _, from := range b.Pieces(s.Turn()) {
			for row := 0; row < Size; row++ {
				for col := 0; col < Size; col++ {
					to := Sq(row, col)
					assert.Equal(t, ValidateMove(&b, s.Turn(), from, to), set[Move{from, to}], "%v->%v", from, to)
				}
			}
		}
		mv := moves[r.Intn(len(moves))]
		require.Equal(t, Accepted, s.TryMove(mv.From, mv.To))
	}
}

func TestMovesFrom(t *testing.T) {
	b := NewBoard()
	assert.Len(t, MovesFrom(&b, Light, Sq(5, 2)), 2)
	assert.Empty(t, MovesFrom(&b, Light, Sq(6, 1)), "blocked by own pieces")
	assert.Empty(t, MovesFrom(&b, Dark, Sq(5, 2)), "not dark's piece")
}

func TestRandomMoverUsesSource(t *testing.T) {
	b := NewBoard()
	src := &fixedSource{pick: 100}
	m := NewRandomMover(src)
	mv, ok := m.ChooseMove(&b, Dark)
	require.True(t, ok)
	moves := LegalMoves(&b, Dark)
	assert.Equal(t, moves[len(moves)-1], mv)
	assert.Equal(t, []int{len(moves)}, src.calls)
}

func TestRandomMoverDeterministicWithSeed(t *testing.T) {
	b := NewBoard()
	a := NewRandomMover(rand.New(rand.NewSource(3)))
	c := NewRandomMover(rand.New(rand.NewSource(3)))
	for i := 0; i < 5; i++ {
		m1, ok1 := a.ChooseMove(&b, Light)
		m2, ok2 := c.ChooseMove(&b, Light)
		require.True(t, ok1)
		require.True(t, ok2)
		assert.Equal(t, m1, m2)
	}
}

func TestRandomMoverNoMoves(t *testing.T) {
	b := emptyBoard(map[Square]Piece{Sq(7, 0): {Color: Dark}, Sq(6, 1): {Color: Light}})
	mv, ok := NewRandomMover(&fixedSource{}).ChooseMove(&b, Dark)
	assert.False(t, ok)
	assert.Equal(t, Move{}, mv)
}
