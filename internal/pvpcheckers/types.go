package pvpcheckers

import (
	"time"
)

// Color 는 진영. Light 가 먼저 둔다.
type Color string

const (
	Light Color = "light"
	Dark  Color = "dark"
)

// Status 는 대국 상태. 잡기로 끝나면 FINISHED, 기권이면 RESIGNED.
type Status string

const (
	StatusActive   Status = "ACTIVE"
	StatusFinished Status = "FINISHED"
	StatusResigned Status = "RESIGNED"
)

// Game 은 Redis 에 JSON 으로 저장되는 대국 상태.
// Moves 는 재생용 표기(c3-d4), Notation 은 잡기를 x 로 표시한 기보.
type Game struct {
	ID          string    `json:"id"`
	Moves       []string  `json:"moves"`
	Notation    []string  `json:"notation"`
	Turn        Color     `json:"turn"`
	Status      Status    `json:"status"`
	LightID     string    `json:"light_id"`
	LightName   string    `json:"light_name"`
	DarkID      string    `json:"dark_id"`
	DarkName    string    `json:"dark_name"`
	OriginRoom  string    `json:"origin_room"`
	ResolveRoom string    `json:"resolve_room"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	Winner      string    `json:"winner,omitempty"`
	Outcome     string    `json:"outcome,omitempty"`
	Captures    int       `json:"captures"`
}

// Side 는 사용자의 진영. 참가자가 아니면 빈 값.
func (g *Game) Side(userID string) Color {
	switch userID {
	case g.LightID:
		return Light
	case g.DarkID:
		return Dark
	}
	return ""
}

// NameOf 는 진영의 표시 이름
func (g *Game) NameOf(c Color) string {
	if c == Dark {
		return g.DarkName
	}
	return g.LightName
}

// PlayerName 은 사용자 ID 의 표시 이름. 참가자가 아니면 ID 그대로.
func (g *Game) PlayerName(userID string) string {
	if side := g.Side(userID); side != "" {
		return g.NameOf(side)
	}
	return userID
}

// Opponent 는 상대 사용자 ID
func (g *Game) Opponent(userID string) string {
	switch g.Side(userID) {
	case Light:
		return g.DarkID
	case Dark:
		return g.LightID
	}
	return ""
}

// Over 는 더 이상 수를 받지 않는 상태인지
func (g *Game) Over() bool { return g.Status != StatusActive }
