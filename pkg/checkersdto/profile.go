package checkersdto

import "time"

type CheckersProfile struct {
	PlayerHash    string
	RoomHash      string
	PreferredMode string
	Rating        int
	GamesPlayed   int
	Wins          int
	Losses        int
	Draws         int
	Streak        int
	StreakType    string
	LastMode      string
	LastPlayedAt  time.Time
	UpdatedAt     time.Time
	CreatedAt     time.Time
}
