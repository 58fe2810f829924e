package checkersdto

// MoveSummary 는 사용자 수와 (컴퓨터 대전이면) 컴퓨터 응수를 한 번에 요약한다.
type MoveSummary struct {
	State        *SessionState
	PlayerMove   string
	ComputerMove string
	Captured     int
	Promoted     bool
	Finished     bool
	GameID       int64
	Profile      *CheckersProfile
	RatingDelta  int
	Material     MaterialScore
}
