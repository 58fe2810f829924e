package pvpchan

import "time"

// ChannelState 는 LOBBY -> ACTIVE -> FINISHED 순으로 바뀐다. 시작 전에 닫으면 ABORTED.
type ChannelState string

const (
    StateLobby    ChannelState = "LOBBY"
    StateActive   ChannelState = "ACTIVE"
    StateFinished ChannelState = "FINISHED"
    StateAborted  ChannelState = "ABORTED"
)

// ColorChoice 는 만들기/참가 때 고르는 진영
type ColorChoice string

const (
    ColorLight  ColorChoice = "light"
    ColorDark   ColorChoice = "dark"
    ColorRandom ColorChoice = "random"
)

// ChannelMeta 는 checkers:ch:<code> 에 JSON 으로 저장된다.
type ChannelMeta struct {
    ID        string       `json:"id"`
    State     ChannelState `json:"state"`
    CreatedAt time.Time    `json:"created_at"`

    CreatorID    string      `json:"creator_id"`
    CreatorName  string      `json:"creator_name"`
    CreatorRoom  string      `json:"creator_room"`
    CreatorColor ColorChoice `json:"creator_color,omitempty"`

    LightID   string `json:"light_id,omitempty"`
    LightName string `json:"light_name,omitempty"`
    DarkID    string `json:"dark_id,omitempty"`
    DarkName  string `json:"dark_name,omitempty"`

    GameID string `json:"game_id,omitempty"`
}

type MakeResult struct {
    Code string
    Meta *ChannelMeta
}

type JoinResult struct {
    Started bool
    GameID  string
    Meta    *ChannelMeta
}

var (
    ErrInvalidArgs   = errf("invalid arguments")
    ErrChannelGone   = errf("channel not found or expired")
    ErrChannelActive = errf("channel already active")
    ErrFull          = errf("channel already has two participants")
    ErrNotCreator    = errf("only the creator can close the lobby")
    // 같은 방에서 이미 진행 중인 대국이 있음
    ErrPlayerBusyInRoom = errf("player has active game in this room")
    // 한 사용자는 대기방을 하나만 만들 수 있음
    ErrCreatorHasLobby = errf("user already has a lobby")
)

type staticErr string

func (e staticErr) Error() string { return string(e) }
func errf(s string) error         { return staticErr(s) }
