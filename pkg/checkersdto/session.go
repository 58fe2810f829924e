package checkersdto

// MaterialScore 는 진영별 남은 말 수
type MaterialScore struct {
	Light      int
	Dark       int
	LightKings int
	DarkKings  int
}

type SessionState struct {
	SessionUUID  string
	Mode         string
	Moves        []string
	Turn         string
	BoardImage   []byte
	MoveCount    int
	Material     MaterialScore
	Profile      *CheckersProfile
	RatingDelta  int
	Outcome      string
	OutcomeMeta  string
	Stalled      bool
	GameID       int64
	PlayerName   string
	OpponentName string
}
