package checkers

import (
	"fmt"
	"strings"
)

// Tag 는 PDN 헤더 한 줄
type Tag struct {
	Name  string
	Value string
}

// PDNResult 는 PDN 결과 토큰. Light 를 White 로 기록한다.
func PDNResult(o Outcome, resignedBy Color) string {
	switch {
	case o == LightWins || resignedBy == Dark:
		return "1-0"
	case o == DarkWins || resignedBy == Light:
		return "0-1"
	default:
		return "*"
	}
}

// FormatPDN 은 헤더와 수순을 숫자 표기 PDN 문자열로 만든다.
func FormatPDN(tags []Tag, records []Record, result string) string {
	var b strings.Builder
	for _, t := range tags {
		if strings.TrimSpace(t.Name) == "" {
			continue
		}
		fmt.Fprintf(&b, "[%s %q]\n", t.Name, t.Value)
	}
	if result == "" {
		result = "*"
	}
	fmt.Fprintf(&b, "[Result %q]\n\n", result)

	moveNo := 0
	for i, r := range records {
		// 같은 진영이 연속으로 두는 경우(자동 상대가 멈춘 뒤 등)에도 번호를 이어 붙인다.
		if r.Color == Light || i == 0 {
			moveNo++
			fmt.Fprintf(&b, "%d. ", moveNo)
			if r.Color == Dark {
				b.WriteString("... ")
			}
		}
		b.WriteString(FormatMoveNumeric(r.Move, r.Captured != nil))
		b.WriteByte(' ')
	}
	b.WriteString(result)
	return b.String()
}
