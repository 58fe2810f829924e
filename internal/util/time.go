package util

import (
	"strings"
	"time"
)

var kst = loadKST()

func loadKST() *time.Location {
	if loc, err := time.LoadLocation("Asia/Seoul"); err == nil {
		return loc
	}
	return time.FixedZone("KST", 9*60*60)
}

// FormatKST 는 한국 시간으로 포맷한다. layout 이 비면 "2006-01-02 15:04".
func FormatKST(t time.Time, layout string) string {
	if t.IsZero() {
		return ""
	}
	if strings.TrimSpace(layout) == "" {
		layout = "2006-01-02 15:04"
	}
	return t.In(kst).Format(layout)
}
