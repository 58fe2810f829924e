package checkers

import (
	"errors"
	"strconv"
	"strings"
)

var (
	ErrBadSquare = errors.New("invalid square notation")
	ErrBadMove   = errors.New("invalid move notation")
)

// FormatSquare 는 a1~h8 표기. Light 진영이 아래(1~3랭크)에 놓인다.
func FormatSquare(s Square) string {
	return string(rune('a'+s.Col)) + strconv.Itoa(Size-s.Row)
}

// SquareNumber 는 어두운 칸에 붙는 1~32 번호. 밝은 칸이면 0.
func SquareNumber(s Square) int {
	if !s.Valid() || !s.Dark() {
		return 0
	}
	return s.Row*(Size/2) + s.Col/2 + 1
}

// SquareFromNumber 는 SquareNumber 의 역변환
func SquareFromNumber(n int) (Square, bool) {
	if n < 1 || n > Size*Size/2 {
		return Square{}, false
	}
	idx := n - 1
	row := idx / (Size / 2)
	col := (idx % (Size / 2)) * 2
	if row%2 == 0 {
		col++
	}
	return Square{Row: row, Col: col}, true
}

// ParseSquare 는 "c3" 또는 "22" 를 해석한다.
func ParseSquare(text string) (Square, error) {
	t := strings.ToLower(strings.TrimSpace(text))
	if t == "" {
		return Square{}, ErrBadSquare
	}
	if n, err := strconv.Atoi(t); err == nil {
		sq, ok := SquareFromNumber(n)
		if !ok {
			return Square{}, ErrBadSquare
		}
		return sq, nil
	}
	if len(t) != 2 {
		return Square{}, ErrBadSquare
	}
	file, rank := t[0], t[1]
	if file < 'a' || file > 'h' || rank < '1' || rank > '8' {
		return Square{}, ErrBadSquare
	}
	return Square{Row: Size - int(rank-'0'), Col: int(file - 'a')}, nil
}

// ParseMove 는 "c3-d4", "c3d4", "c3xe5", "22-18", "22x15" 형태를 해석한다.
func ParseMove(text string) (Move, error) {
	t := strings.ToLower(strings.TrimSpace(text))
	t = strings.ReplaceAll(t, " ", "")
	var parts []string
	switch {
	case strings.ContainsAny(t, "-x:"):
		parts = strings.FieldsFunc(t, func(r rune) bool { return r == '-' || r == 'x' || r == ':' })
	case len(t) == 4 && t[0] >= 'a' && t[0] <= 'h':
		parts = []string{t[:2], t[2:]}
	}
	if len(parts) != 2 {
		return Move{}, ErrBadMove
	}
	from, err := ParseSquare(parts[0])
	if err != nil {
		return Move{}, ErrBadMove
	}
	to, err := ParseSquare(parts[1])
	if err != nil {
		return Move{}, ErrBadMove
	}
	return Move{From: from, To: to}, nil
}

// FormatMove 는 c3-d4 / c3xe5 표기
func FormatMove(m Move, captured bool) string {
	sep := "-"
	if captured {
		sep = "x"
	}
	return FormatSquare(m.From) + sep + FormatSquare(m.To)
}

// FormatMoveNumeric 은 22-18 / 22x15 표기
func FormatMoveNumeric(m Move, captured bool) string {
	sep := "-"
	if captured {
		sep = "x"
	}
	return strconv.Itoa(SquareNumber(m.From)) + sep + strconv.Itoa(SquareNumber(m.To))
}
