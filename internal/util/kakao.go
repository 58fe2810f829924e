package util

import "strings"

const (
	KakaoSeeMorePadding = 500
	KakaoZeroWidthSpace = "\u200b"
)

// ApplyKakaoSeeMorePadding 은 카카오톡 '전체보기' 접힘이 생기도록 안내 문구 뒤에
// 제로폭 문자를 채우고 본문을 붙인다.
func ApplyKakaoSeeMorePadding(text, instruction string) string {
	if strings.TrimSpace(text) == "" {
		return text
	}
	message := strings.TrimSpace(instruction)

	var b strings.Builder
	b.Grow(len(text) + len(message) + KakaoSeeMorePadding*len(KakaoZeroWidthSpace) + 1)
	b.WriteString(message)
	b.WriteString(strings.Repeat(KakaoZeroWidthSpace, KakaoSeeMorePadding))
	if !strings.HasPrefix(text, "\n") {
		b.WriteByte('\n')
	}
	b.WriteString(text)
	return b.String()
}

// StripLeadingHeader 는 첫 줄의 header 와 뒤따르는 빈 줄을 떼어낸다.
func StripLeadingHeader(text, header string) string {
	if strings.TrimSpace(text) == "" || strings.TrimSpace(header) == "" || !strings.HasPrefix(text, header) {
		return text
	}
	rest := strings.TrimPrefix(text, header)
	for i := 0; i < 2; i++ {
		switch {
		case strings.HasPrefix(rest, "\r\n"):
			rest = rest[2:]
		case strings.HasPrefix(rest, "\n"):
			rest = rest[1:]
		}
	}
	return rest
}

// ApplySeeMoreWithHeader 는 header(+suffix) 를 안내 문구로 올리고 본문에서는 뺀다.
// header 가 비면 fallback 을 쓴다.
func ApplySeeMoreWithHeader(text, header, fallback, suffix string) string {
	if strings.TrimSpace(text) == "" {
		return text
	}
	body := StripLeadingHeader(text, header)
	instruction := strings.TrimSpace(header)
	if instruction == "" {
		instruction = strings.TrimSpace(fallback)
	} else {
		instruction += suffix
	}
	return ApplyKakaoSeeMorePadding(body, instruction)
}

// StripKakaoPadding 은 패딩을 걷어낸 원문을 돌려준다. 로그용.
func StripKakaoPadding(text string) string {
	return strings.ReplaceAll(text, KakaoZeroWidthSpace, "")
}
