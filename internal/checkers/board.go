package checkers

import "fmt"

// Size 는 보드 한 변의 칸 수
const Size = 8

// Color 는 말의 진영
type Color uint8

const (
	NoColor Color = iota
	Light
	Dark
)

func (c Color) String() string {
	switch c {
	case Light:
		return "light"
	case Dark:
		return "dark"
	default:
		return "none"
	}
}

// Opponent 는 상대 진영을 반환한다.
func (c Color) Opponent() Color {
	switch c {
	case Light:
		return Dark
	case Dark:
		return Light
	default:
		return NoColor
	}
}

// Forward 는 일반 말이 전진하는 행 방향(-1: 위, +1: 아래)
func (c Color) Forward() int {
	if c == Light {
		return -1
	}
	return 1
}

// PromotionRow 는 킹으로 승격되는 행
func (c Color) PromotionRow() int {
	if c == Light {
		return 0
	}
	return Size - 1
}

// Square 는 보드 좌표. Row 0 이 Dark 진영 쪽 끝이다.
type Square struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

func Sq(row, col int) Square { return Square{Row: row, Col: col} }

func (s Square) Valid() bool {
	return s.Row >= 0 && s.Row < Size && s.Col >= 0 && s.Col < Size
}

// Dark 는 말이 놓일 수 있는 어두운 칸인지 여부
func (s Square) Dark() bool { return (s.Row+s.Col)%2 == 1 }

func (s Square) String() string {
	if !s.Valid() {
		return fmt.Sprintf("(%d,%d)", s.Row, s.Col)
	}
	return FormatSquare(s)
}

// Piece 의 zero value 는 빈 칸을 의미한다.
type Piece struct {
	Color Color `json:"color"`
	King  bool  `json:"king,omitempty"`
}

func (p Piece) Empty() bool { return p.Color == NoColor }

// Board 는 8x8 격자. 값 타입이므로 복사만으로 스냅샷이 된다.
type Board struct {
	cells [Size][Size]Piece
}

// NewBoard 는 초기 배치를 만든다: Dark 는 0~2행, Light 는 5~7행의 어두운 칸.
func NewBoard() Board {
	var b Board
	for r := 0; r < Size; r++ {
		for c := 0; c < Size; c++ {
			sq := Square{r, c}
			if !sq.Dark() {
				continue
			}
			switch {
			case r < 3:
				b.cells[r][c] = Piece{Color: Dark}
			case r > 4:
				b.cells[r][c] = Piece{Color: Light}
			}
		}
	}
	return b
}

// At 은 보드 밖 좌표에 대해 빈 칸을 반환한다.
func (b *Board) At(s Square) Piece {
	if !s.Valid() {
		return Piece{}
	}
	return b.cells[s.Row][s.Col]
}

func (b *Board) Set(s Square, p Piece) {
	if !s.Valid() {
		return
	}
	b.cells[s.Row][s.Col] = p
}

func (b *Board) Clear(s Square) { b.Set(s, Piece{}) }

// Count 는 해당 진영의 남은 말 수
func (b *Board) Count(c Color) int {
	n := 0
	for r := 0; r < Size; r++ {
		for col := 0; col < Size; col++ {
			if b.cells[r][col].Color == c {
				n++
			}
		}
	}
	return n
}

// Pieces 는 해당 진영 말이 있는 칸을 행 우선 순서로 반환한다.
func (b *Board) Pieces(c Color) []Square {
	out := make([]Square, 0, 12)
	for r := 0; r < Size; r++ {
		for col := 0; col < Size; col++ {
			if b.cells[r][col].Color == c {
				out = append(out, Square{r, col})
			}
		}
	}
	return out
}
