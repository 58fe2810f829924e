package domain

import "time"

type CheckersGame struct {
	ID           int64
	SessionUUID  string
	PlayerHash   string
	RoomHash     string
	Mode         string
	Result       string
	ResultMethod string
	Moves        []string
	PDN          string
	StartedAt    time.Time
	EndedAt      time.Time
	Duration     time.Duration
	Captures     int
	Promotions   int
}

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
