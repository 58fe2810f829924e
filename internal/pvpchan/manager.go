package pvpchan

import (
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "strings"
    "time"

    "github.com/park285/kakao-checkers-bot/internal/obslog"
    "github.com/park285/kakao-checkers-bot/internal/pvpcheckers"
    "github.com/redis/go-redis/v9"
    "go.uber.org/zap"
)

type Manager struct {
    rdb   *redis.Client
    store *Store
    pvp   *pvpcheckers.Manager
}

func NewManager(rdb *redis.Client, pvp *pvpcheckers.Manager) *Manager {
    return &Manager{rdb: rdb, store: NewStore(rdb), pvp: pvp}
}

func (m *Manager) Make(ctx context.Context, room, userID, userName string, color ColorChoice) (*MakeResult, error) {
    if strings.TrimSpace(room) == "" || strings.TrimSpace(userID) == "" {
        return nil, ErrInvalidArgs
    }
    if g, _ := m.pvp.GetActiveGameByUserInRoom(ctx, userID, room); g != nil {
        return nil, ErrPlayerBusyInRoom
    }
    if code := m.openLobbyOf(ctx, userID); code != "" {
        return nil, ErrCreatorHasLobby
    }

    for i := 0; i < 5; i++ {
        c, err := codeGen()
        if err != nil { return nil, err }
        // 코드 선점: 키가 없을 때만 확보
        ok, err := m.store.Reserve(ctx, c)
        if err != nil { return nil, err }
        if !ok { continue }

        meta := &ChannelMeta{
            ID:           c,
            State:        StateLobby,
            CreatedAt:    time.Now(),
            CreatorID:    userID,
            CreatorName:  userName,
            CreatorRoom:  room,
            CreatorColor: color,
        }
        if err := m.store.SaveMeta(ctx, c, meta); err != nil { return nil, err }
        if err := m.store.AddRoom(ctx, c, room); err != nil { return nil, err }
        // 생성자를 첫 참가자로 기록해 두 번째 참가에서 대국이 시작되게 한다.
        if err := m.store.AddParticipant(ctx, c, userID, userName); err != nil { return nil, err }
        if err := m.store.AddLobby(ctx, c, meta.CreatedAt); err != nil { return nil, err }
        obslog.L().Info("lobby_make", zap.String("code", c), zap.String("room", room), zap.String("creator_id", userID))
        return &MakeResult{Code: c, Meta: meta}, nil
    }
    return nil, fmt.Errorf("failed to allocate channel code")
}

func (m *Manager) Join(ctx context.Context, room, code, userID, userName string, pref ColorChoice) (*JoinResult, error) {
    code = strings.ToUpper(strings.TrimSpace(code))
    if room == "" || code == "" || userID == "" { return nil, ErrInvalidArgs }
    meta, err := m.store.LoadMeta(ctx, code)
    if err != nil { return nil, err }
    if meta == nil { return nil, ErrChannelGone }
    if meta.State != StateLobby { return nil, ErrChannelActive }

    if userID != meta.CreatorID {
        if busy, _ := m.pvp.GetActiveGameByUserInRoom(ctx, userID, room); busy != nil {
            return nil, ErrPlayerBusyInRoom
        }
    }

    // 참가 기록과 로비 상태 확인을 한 트랜잭션에서 본다.
    partKey, metaKey := m.store.keyParticipants(code), m.store.keyMeta(code)
    join := func(tx *redis.Tx) error {
        raw, err := tx.Get(ctx, metaKey).Bytes()
        if errors.Is(err, redis.Nil) { return ErrChannelGone }
        if err != nil { return err }
        var cur ChannelMeta
        if err := json.Unmarshal(raw, &cur); err != nil { return err }
        if cur.State != StateLobby { return ErrChannelActive }

        isMember, err := tx.SIsMember(ctx, partKey, userID).Result()
        if err != nil { return err }
        if isMember { return nil }
        cnt, err := tx.SCard(ctx, partKey).Result()
        if err != nil && !errors.Is(err, redis.Nil) { return err }
        if cnt >= 2 { return ErrFull }
        _, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
            pipe.SAdd(ctx, partKey, userID)
            pipe.Expire(ctx, partKey, ttlChannel)
            pipe.SAdd(ctx, m.store.keyUserIdx(userID), code)
            pipe.Expire(ctx, m.store.keyUserIdx(userID), ttlChannel)
            return nil
        })
        return err
    }
    for attempt := 0; attempt < 3; attempt++ {
        err = m.rdb.Watch(ctx, join, metaKey, partKey)
        if !errors.Is(err, redis.TxFailedErr) { break }
    }
    if err != nil {
        obslog.L().Warn("lobby_join_error", zap.String("code", code), zap.String("room", room), zap.String("user_id", userID), zap.Error(err))
        return nil, err
    }
    if err := m.store.SetName(ctx, code, userID, userName); err != nil { return nil, err }
    if err := m.store.AddRoom(ctx, code, room); err != nil { return nil, err }

    members, err := m.store.Participants(ctx, code)
    if err != nil { return nil, err }
    if len(members) < 2 {
        obslog.L().Info("lobby_join", zap.String("code", code), zap.String("room", room), zap.String("user_id", userID), zap.String("reason", "queued"))
        return &JoinResult{Started: false, Meta: meta}, nil
    }

    challengerID, challengerName := meta.CreatorID, m.store.Name(ctx, code, meta.CreatorID)
    targetID := members[0]
    if targetID == challengerID {
        targetID = members[1]
    }
    targetName := m.store.Name(ctx, code, targetID)

    // 두 번째 참가가 겹쳐도 대국은 한 번만 만든다.
    claimed, err := m.store.ClaimStart(ctx, code)
    if err != nil { return nil, err }
    if !claimed { return nil, ErrChannelActive }

    if busy, _ := m.pvp.GetActiveGameByUserInRoom(ctx, challengerID, meta.CreatorRoom); busy != nil {
        m.store.ReleaseStart(ctx, code)
        return nil, ErrPlayerBusyInRoom
    }

    g, err := m.pvp.CreateGameFromChallenge(ctx, meta.CreatorRoom, room, challengerID, challengerName, targetID, targetName, string(colorFor(meta.CreatorColor, pref)))
    if err != nil {
        m.store.ReleaseStart(ctx, code)
        return nil, err
    }

    meta.LightID, meta.LightName = g.LightID, g.LightName
    meta.DarkID, meta.DarkName = g.DarkID, g.DarkName
    meta.State = StateActive
    meta.GameID = g.ID
    if err := m.store.SaveMeta(ctx, code, meta); err != nil { return nil, err }
    _ = m.store.RemoveLobby(ctx, code)
    obslog.L().Info("lobby_start_game", zap.String("code", code), zap.String("game_id", g.ID), zap.String("light_id", g.LightID), zap.String("dark_id", g.DarkID))
    return &JoinResult{Started: true, GameID: g.ID, Meta: meta}, nil
}

// Close 는 생성자가 대기 중인 채널을 닫는다.
func (m *Manager) Close(ctx context.Context, code, userID string) error {
    code = strings.ToUpper(strings.TrimSpace(code))
    meta, err := m.store.LoadMeta(ctx, code)
    if err != nil { return err }
    if meta == nil { return ErrChannelGone }
    if meta.CreatorID != userID { return ErrNotCreator }
    if meta.State != StateLobby { return ErrChannelActive }
    meta.State = StateAborted
    if err := m.store.SaveMeta(ctx, code, meta); err != nil { return err }
    obslog.L().Info("lobby_close", zap.String("code", code), zap.String("creator_id", userID))
    return m.store.RemoveLobby(ctx, code)
}

// Finish 는 대국이 끝난 채널을 FINISHED 로 표시한다.
func (m *Manager) Finish(ctx context.Context, gameID string) error {
    for _, code := range m.codesForGame(ctx, gameID) {
        meta, err := m.store.LoadMeta(ctx, code)
        if err != nil || meta == nil { continue }
        meta.State = StateFinished
        if err := m.store.SaveMeta(ctx, code, meta); err != nil { return err }
    }
    return nil
}

func (m *Manager) Rooms(ctx context.Context, code string) ([]string, error) {
    return m.store.Rooms(ctx, strings.ToUpper(strings.TrimSpace(code)))
}

// RoomsByUserAndGame finds channel rooms for a user where its channel binds the given game.
func (m *Manager) RoomsByUserAndGame(ctx context.Context, userID, gameID string) ([]string, error) {
    codes, err := m.store.CodesByUser(ctx, userID)
    if err != nil { return nil, err }
    for _, c := range codes {
        meta, _ := m.store.LoadMeta(ctx, c)
        if meta != nil && meta.GameID == gameID {
            return m.store.Rooms(ctx, c)
        }
    }
    return nil, nil
}

// ListLobby returns lobby (waiting) channels' metadata for listing.
func (m *Manager) ListLobby(ctx context.Context) ([]*ChannelMeta, error) { return m.store.ListLobby(ctx) }

func (m *Manager) openLobbyOf(ctx context.Context, userID string) string {
    codes, err := m.store.CodesByUser(ctx, userID)
    if err != nil { return "" }
    for _, c := range codes {
        meta, _ := m.store.LoadMeta(ctx, c)
        if meta != nil && meta.State == StateLobby && meta.CreatorID == userID {
            return c
        }
    }
    return ""
}

func (m *Manager) codesForGame(ctx context.Context, gameID string) []string {
    g, err := m.pvp.LoadGame(ctx, gameID)
    if err != nil || g == nil { return nil }
    var out []string
    for _, user := range []string{g.LightID, g.DarkID} {
        codes, _ := m.store.CodesByUser(ctx, user)
        for _, c := range codes {
            meta, _ := m.store.LoadMeta(ctx, c)
            if meta != nil && meta.GameID == gameID {
                out = append(out, c)
            }
        }
    }
    return out
}

// colorFor 는 생성자 선호를 우선하고, 없으면 참가자 선호의 반대편을 생성자에게 준다.
func colorFor(creator, joiner ColorChoice) ColorChoice {
    switch creator {
    case ColorLight, ColorDark:
        return creator
    }
    switch joiner {
    case ColorLight:
        return ColorDark
    case ColorDark:
        return ColorLight
    }
    return ColorRandom
}
