package checkers

// Outcome 은 종국 판정 결과
type Outcome uint8

const (
	None Outcome = iota
	LightWins
	DarkWins
)

func (o Outcome) String() string {
	switch o {
	case LightWins:
		return "light_wins"
	case DarkWins:
		return "dark_wins"
	default:
		return "none"
	}
}

// Winner 는 승리 진영. 종국이 아니면 NoColor.
func (o Outcome) Winner() Color {
	switch o {
	case LightWins:
		return Light
	case DarkWins:
		return Dark
	default:
		return NoColor
	}
}

// Move 는 한 번의 이동 요청
type Move struct {
	From Square `json:"from"`
	To   Square `json:"to"`
}

func (m Move) String() string { return FormatMove(m, false) }

// Applied 는 ApplyMove 가 보드에 가한 변화
type Applied struct {
	Move     Move
	Piece    Piece
	Captured *Square
	Promoted bool
}

// movementRule 은 말 종류별 이동 규칙
type movementRule interface {
	allows(b *Board, p Piece, from, to Square) bool
}

type manRule struct{}

type kingRule struct{}

func ruleFor(p Piece) movementRule {
	if p.King {
		return kingRule{}
	}
	return manRule{}
}

func (manRule) allows(b *Board, p Piece, from, to Square) bool {
	dr := to.Row - from.Row
	dc := to.Col - from.Col
	fwd := p.Color.Forward()
	switch {
	case dr == fwd && abs(dc) == 1:
		return true
	case dr == 2*fwd && abs(dc) == 2:
		mid := b.At(Square{from.Row + fwd, from.Col + dc/2})
		return mid.Color == p.Color.Opponent()
	default:
		return false
	}
}

func (kingRule) allows(b *Board, p Piece, from, to Square) bool {
	dr := to.Row - from.Row
	dc := to.Col - from.Col
	if dr == 0 || abs(dr) != abs(dc) {
		return false
	}
	path := between(from, to)
	occupied := 0
	for _, s := range path {
		q := b.At(s)
		if q.Empty() {
			continue
		}
		if q.Color != p.Color.Opponent() {
			return false
		}
		occupied++
		if occupied > 1 {
			return false
		}
	}
	return true
}

// ValidateMove 는 turn 진영이 from 에서 to 로 이동할 수 있는지 판정한다. 보드는 변경하지 않는다.
func ValidateMove(b *Board, turn Color, from, to Square) bool {
	if b == nil || !from.Valid() || !to.Valid() {
		return false
	}
	p := b.At(from)
	if p.Empty() || p.Color != turn {
		return false
	}
	if !to.Dark() || !b.At(to).Empty() {
		return false
	}
	return ruleFor(p).allows(b, p, from, to)
}

// ApplyMove 는 검증된 이동을 적용한다. 포획 제거, 이동, 승격 순서.
func ApplyMove(b *Board, turn Color, from, to Square) Applied {
	p := b.At(from)
	res := Applied{Move: Move{From: from, To: to}, Piece: p}
	if abs(to.Row-from.Row) > 1 {
		for _, s := range between(from, to) {
			if !b.At(s).Empty() {
				captured := s
				res.Captured = &captured
				b.Clear(s)
				break
			}
		}
	}
	b.Clear(from)
	if !p.King && to.Row == turn.PromotionRow() {
		p.King = true
		res.Promoted = true
	}
	b.Set(to, p)
	return res
}

// CheckTerminal 은 말이 하나도 남지 않은 진영을 패배로 판정한다.
// 남은 말이 있지만 둘 곳이 없는 경우는 판정하지 않는다.
func CheckTerminal(b *Board) Outcome {
	light := b.Count(Light)
	dark := b.Count(Dark)
	switch {
	case light == 0 && dark > 0:
		return DarkWins
	case dark == 0 && light > 0:
		return LightWins
	default:
		return None
	}
}

// between 은 같은 대각선 위 두 칸 사이(양 끝 제외)의 칸들
func between(from, to Square) []Square {
	dr := sign(to.Row - from.Row)
	dc := sign(to.Col - from.Col)
	n := abs(to.Row-from.Row) - 1
	if n <= 0 {
		return nil
	}
	out := make([]Square, 0, n)
	for i := 1; i <= n; i++ {
		out = append(out, Square{from.Row + i*dr, from.Col + i*dc})
	}
	return out
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func sign(v int) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}
