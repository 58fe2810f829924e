package checkersdto

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
