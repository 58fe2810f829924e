package checkersdto

// 응답 코드. 메시지 카탈로그 키의 끝부분과 같다.
const (
	CodeGeneric         = "generic"
	CodeNoSession       = "no_session"
	CodeInvalidMove     = "invalid_move"
	CodeNotYourPiece    = "not_your_piece"
	CodeNotYourTurn     = "not_your_turn"
	CodeRoomNotAllowed  = "room_not_allowed"
	CodeUnknownMode     = "unknown_mode"
	CodeUndoUnavailable = "undo_unavailable"
	CodeGameNotFound    = "game_not_found"
	CodeProfileNotFound = "profile_not_found"
	CodeBusyInRoom      = "busy_in_room"
	CodeHasLobby        = "has_lobby"
	CodeChannelGone     = "channel_gone"
	CodeChannelActive   = "channel_active"
	CodeChannelFull     = "channel_full"
	CodeNotCreator      = "not_creator"
	CodeSelfChallenge   = "self_challenge"
	CodeAlreadyPending  = "already_pending"
	CodeNoChallenge     = "no_challenge"
)

// DomainError 는 서비스 에러를 채팅 응답용 코드로 옮긴 것.
// Retryable 은 사용자가 같은 명령을 다시 보내면 될 수 있는 경우(저장소 장애 등).
type DomainError struct {
	Code      string
	Message   string
	Retryable bool
}

func (e DomainError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Code != "" {
		return "checkers: " + e.Code
	}
	return "checkers service error"
}
