package util

import (
	"strings"
	"testing"
	"time"
)

func TestApplyKakaoSeeMorePadding(t *testing.T) {
	out := ApplyKakaoSeeMorePadding("본문", " 안내 ")
	if !strings.HasPrefix(out, "안내"+KakaoZeroWidthSpace) {
		t.Fatalf("instruction should lead the padded text: %q", out[:20])
	}
	if strings.Count(out, KakaoZeroWidthSpace) != KakaoSeeMorePadding {
		t.Fatalf("expected %d padding runes", KakaoSeeMorePadding)
	}
	if !strings.HasSuffix(out, "\n본문") {
		t.Fatalf("body should follow a newline")
	}
	if ApplyKakaoSeeMorePadding("  ", "x") != "  " {
		t.Fatalf("blank text must be returned unchanged")
	}
}

func TestApplySeeMoreWithHeader(t *testing.T) {
	out := ApplySeeMoreWithHeader("● 기록\n\n• #1", "● 기록", "fallback", " (전체보기)")
	if !strings.HasPrefix(out, "● 기록 (전체보기)") {
		t.Fatalf("unexpected instruction: %q", out[:30])
	}
	if !strings.HasSuffix(out, "\n• #1") || strings.Count(out, "● 기록") != 1 {
		t.Fatalf("header should be stripped from body: %q", out)
	}

	out = ApplySeeMoreWithHeader("본문", "", "대체", "")
	if !strings.HasPrefix(out, "대체") {
		t.Fatalf("fallback instruction expected")
	}
}

func TestFormatKST(t *testing.T) {
	ts := time.Date(2026, 1, 2, 15, 4, 0, 0, time.UTC)
	if got := FormatKST(ts, ""); got != "2026-01-03 00:04" {
		t.Fatalf("FormatKST = %q", got)
	}
	if got := FormatKST(ts, "15:04"); got != "00:04" {
		t.Fatalf("FormatKST layout = %q", got)
	}
	if FormatKST(time.Time{}, "") != "" {
		t.Fatalf("zero time should format empty")
	}
}

func TestStripLeadingHeader(t *testing.T) {
	cases := map[string]string{
		"H\r\n\r\nbody": "body",
		"H\nbody":       "body",
		"Hbody":         "body",
		"X\nbody":       "X\nbody",
	}
	for in, want := range cases {
		if got := StripLeadingHeader(in, "H"); got != want {
			t.Fatalf("StripLeadingHeader(%q) = %q, want %q", in, got, want)
		}
	}
	if StripKakaoPadding(ApplyKakaoSeeMorePadding("b", "i")) != "i\nb" {
		t.Fatalf("padding should be removable")
	}
}
