package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fatih/color"

	corecheckers "github.com/park285/kakao-checkers-bot/internal/checkers"
)

var (
	lightColor  = color.New(color.FgHiWhite, color.Bold)
	darkColor   = color.New(color.FgHiRed, color.Bold)
	selectColor = color.New(color.BgYellow, color.FgBlack)
	targetColor = color.New(color.BgGreen, color.FgBlack)
	labelColor  = color.New(color.FgHiBlack)
)

// pieceGlyph 는 o/O(백), x/X(흑), 빈 어두운 칸은 '.', 밝은 칸은 공백
func pieceGlyph(sq corecheckers.Square, p corecheckers.Piece) string {
	switch {
	case p.Color == corecheckers.Light && p.King:
		return "O"
	case p.Color == corecheckers.Light:
		return "o"
	case p.Color == corecheckers.Dark && p.King:
		return "X"
	case p.Color == corecheckers.Dark:
		return "x"
	case sq.Dark():
		return "."
	default:
		return " "
	}
}

// renderBoard 는 보드를 터미널에 그린다. 선택된 칸과 갈 수 있는 칸은 배경색으로 표시한다.
func renderBoard(w io.Writer, b corecheckers.Board, selected *corecheckers.Square, targets []corecheckers.Square) {
	marked := make(map[corecheckers.Square]bool, len(targets))
	for _, t := range targets {
		marked[t] = true
	}

	files := labelColor.Sprint("   a b c d e f g h")
	fmt.Fprintln(w, files)
	for row := 0; row < corecheckers.Size; row++ {
		rank := strconv.Itoa(corecheckers.Size - row)
		var sb strings.Builder
		sb.WriteString(labelColor.Sprint(rank + " "))
		for col := 0; col < corecheckers.Size; col++ {
			sq := corecheckers.Sq(row, col)
			p := b.At(sq)
			glyph := pieceGlyph(sq, p)
			switch {
			case selected != nil && *selected == sq:
				glyph = selectColor.Sprint(glyph)
			case marked[sq]:
				glyph = targetColor.Sprint(glyph)
			case p.Color == corecheckers.Light:
				glyph = lightColor.Sprint(glyph)
			case p.Color == corecheckers.Dark:
				glyph = darkColor.Sprint(glyph)
			}
			sb.WriteByte(' ')
			sb.WriteString(glyph)
		}
		sb.WriteString(labelColor.Sprint(" " + rank))
		fmt.Fprintln(w, sb.String())
	}
	fmt.Fprintln(w, files)
}

// targetsOf 는 선택된 말이 갈 수 있는 칸 목록
func targetsOf(s *corecheckers.Session) (*corecheckers.Square, []corecheckers.Square) {
	from, ok := s.Selected()
	if !ok {
		return nil, nil
	}
	board := s.Board()
	moves := corecheckers.MovesFrom(&board, s.Turn(), from)
	out := make([]corecheckers.Square, 0, len(moves))
	for _, mv := range moves {
		out = append(out, mv.To)
	}
	return &from, out
}

func sideName(c corecheckers.Color) string {
	switch c {
	case corecheckers.Light:
		return lightColor.Sprint("백(o)")
	case corecheckers.Dark:
		return darkColor.Sprint("흑(x)")
	default:
		return "-"
	}
}

func outcomeText(o corecheckers.Outcome, mode corecheckers.Mode, computer corecheckers.Color) string {
	winner := o.Winner()
	if winner == corecheckers.NoColor {
		return "게임이 종료되었습니다."
	}
	if mode == corecheckers.VsComputer {
		if winner == computer {
			return color.RedString("컴퓨터가 이겼습니다.")
		}
		return color.GreenString("승리했습니다!")
	}
	return sideName(winner) + " 승리!"
}
