package checkers

// Source 는 균등 선택용 난수원. *math/rand.Rand 가 만족한다.
type Source interface {
	Intn(n int) int
}

var directions = [4][2]int{{-1, -1}, {-1, 1}, {1, -1}, {1, 1}}

// LegalMoves 는 color 진영의 모든 합법 수를 반환한다.
// 모든 말, 네 대각 방향, 1~7 칸 거리를 열거한 뒤 ValidateMove 로 거른다.
func LegalMoves(b *Board, color Color) []Move {
	if b == nil {
		return nil
	}
	var moves []Move
	for _, from := range b.Pieces(color) {
		moves = append(moves, movesFrom(b, color, from)...)
	}
	return moves
}

// MovesFrom 은 특정 칸의 말이 둘 수 있는 합법 수
func MovesFrom(b *Board, color Color, from Square) []Move {
	if b == nil || b.At(from).Color != color {
		return nil
	}
	return movesFrom(b, color, from)
}

func movesFrom(b *Board, color Color, from Square) []Move {
	var moves []Move
	for _, d := range directions {
		for step := 1; step < Size; step++ {
			to := Square{from.Row + d[0]*step, from.Col + d[1]*step}
			if ValidateMove(b, color, from, to) {
				moves = append(moves, Move{From: from, To: to})
			}
		}
	}
	return moves
}

// RandomMover 는 합법 수 중 하나를 균등하게 고르는 자동 상대
type RandomMover struct {
	src Source
}

func NewRandomMover(src Source) *RandomMover {
	return &RandomMover{src: src}
}

// ChooseMove 는 둘 수 있는 수가 없으면 false 를 반환한다.
func (m *RandomMover) ChooseMove(b *Board, color Color) (Move, bool) {
	moves := LegalMoves(b, color)
	if len(moves) == 0 || m == nil || m.src == nil {
		return Move{}, false
	}
	return moves[m.src.Intn(len(moves))], true
}
