package pvp

import (
	"strings"
	"time"
)

type ColorChoice string

const (
	ColorLight  ColorChoice = "light"
	ColorDark   ColorChoice = "dark"
	ColorRandom ColorChoice = "random"
)

// ParseColorChoice 는 도전자가 원하는 진영. Light 가 먼저 둔다.
func ParseColorChoice(s string) ColorChoice {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "light", "l", "white", "w", "백", "선":
		return ColorLight
	case "dark", "d", "black", "b", "흑", "후":
		return ColorDark
	default:
		return ColorRandom
	}
}

type Status string

const (
	StatusPending  Status = "PENDING"
	StatusAccepted Status = "ACCEPTED"
	StatusDeclined Status = "DECLINED"
	StatusExpired  Status = "EXPIRED"
)

// Challenge 는 한 사람이 다른 사람에게 건 대국 신청.
// OriginRoom 은 신청한 방, ResolveRoom 은 수락/거절한 방이다.
type Challenge struct {
	ID             string
	OriginRoom     string
	ResolveRoom    string
	ChallengerID   string
	ChallengerName string
	TargetID       string
	Color          ColorChoice
	CreatedAt      time.Time
	ResolvedAt     time.Time
	Status         Status
}

func (c *Challenge) expired(now time.Time, ttl time.Duration) bool {
	return ttl > 0 && c.Status == StatusPending && now.Sub(c.CreatedAt) > ttl
}
