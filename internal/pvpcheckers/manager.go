package pvpcheckers

import (
    "context"
    "crypto/rand"
    "encoding/hex"
    "encoding/json"
    "errors"
    "fmt"
    "math/big"
    "sort"
    "strings"
    "time"

    corecheckers "github.com/park285/kakao-checkers-bot/internal/checkers"
    "github.com/park285/kakao-checkers-bot/internal/obslog"
    svccheckers "github.com/park285/kakao-checkers-bot/internal/service/checkers"
    "github.com/redis/go-redis/v9"
    "go.uber.org/zap"
)

const gameTTL = 24 * time.Hour

var (
    ErrNotInitialized = errors.New("pvp manager not initialized")
    ErrGameNotActive  = errors.New("game no longer active")

    errNotYourTurn = errors.New("not_your_turn")
    errIllegalMove = errors.New("illegal_move")
)

type Manager struct {
    rdb      *redis.Client
    renderer svccheckers.BoardRenderer
    repo     *Repository
}

func NewManager(redisURL string) (*Manager, error) {
    if strings.TrimSpace(redisURL) == "" {
        return nil, fmt.Errorf("REDIS_URL required for PvP manager")
    }
    opts, err := redis.ParseURL(strings.TrimSpace(redisURL))
    if err != nil { return nil, fmt.Errorf("parse redis url: %w", err) }
    rdb := redis.NewClient(opts)
    if err := rdb.Ping(context.Background()).Err(); err != nil {
        _ = rdb.Close()
        return nil, fmt.Errorf("redis ping: %w", err)
    }
    return NewManagerWithClient(rdb), nil
}

// NewManagerWithClient 는 이미 연결된 클라이언트를 공유한다.
func NewManagerWithClient(rdb *redis.Client) *Manager {
    return &Manager{rdb: rdb, renderer: svccheckers.NewSVGBoardRenderer()}
}

func (m *Manager) Close() error {
    if m == nil || m.rdb == nil { return nil }
    return m.rdb.Close()
}

// AttachRepository wires a database repository for persisting PvP results.
func (m *Manager) AttachRepository(r *Repository) {
    if m != nil {
        m.repo = r
    }
}

// CreateGameFromChallenge 는 도전 결과로 대국을 연다. colorChoice 는 도전자 기준.
func (m *Manager) CreateGameFromChallenge(ctx context.Context, originRoom, resolveRoom, challengerID, challengerName, targetID, targetName, colorChoice string) (*Game, error) {
    if m == nil || m.rdb == nil { return nil, ErrNotInitialized }
    if strings.TrimSpace(challengerID) == "" || strings.TrimSpace(targetID) == "" {
        return nil, fmt.Errorf("invalid participants")
    }

    lightID, lightName := challengerID, challengerName
    darkID, darkName := targetID, targetName
    switch strings.ToLower(strings.TrimSpace(colorChoice)) {
    case "light", "l", "white", "w":
    case "dark", "d", "black", "b":
        lightID, lightName, darkID, darkName = targetID, targetName, challengerID, challengerName
    default:
        if n, _ := rand.Int(rand.Reader, big.NewInt(2)); n != nil && n.Int64() == 0 {
            lightID, lightName, darkID, darkName = targetID, targetName, challengerID, challengerName
        }
    }

    now := time.Now()
    g := &Game{
        ID:          fmt.Sprintf("pvp-%d-%s", now.UnixNano(), secureRandSuffix(3)),
        Moves:       []string{},
        Notation:    []string{},
        Turn:        Light,
        Status:      StatusActive,
        LightID:     strings.TrimSpace(lightID),
        LightName:   strings.TrimSpace(lightName),
        DarkID:      strings.TrimSpace(darkID),
        DarkName:    strings.TrimSpace(darkName),
        OriginRoom:  strings.TrimSpace(originRoom),
        ResolveRoom: strings.TrimSpace(resolveRoom),
        CreatedAt:   now,
        UpdatedAt:   now,
    }

    if err := m.save(ctx, g); err != nil { return nil, err }
    if err := m.indexParticipants(ctx, g.ID, g.LightID, g.DarkID); err != nil { return nil, err }
    obslog.L().Info("checkers_pvp_create",
        zap.String("game_id", g.ID),
        zap.String("origin_room", g.OriginRoom),
        zap.String("resolve_room", g.ResolveRoom),
        zap.String("light_id", g.LightID),
        zap.String("dark_id", g.DarkID),
    )
    return g, nil
}

// GetActiveGameByUser returns the latest active game for a user.
func (m *Manager) GetActiveGameByUser(ctx context.Context, userID string) (*Game, error) {
    return m.latestActive(ctx, userID, "")
}

// GetActiveGameByUserInRoom 은 해당 방에서 진행 중인 가장 최근 대국.
func (m *Manager) GetActiveGameByUserInRoom(ctx context.Context, userID, room string) (*Game, error) {
    if strings.TrimSpace(room) == "" { return nil, nil }
    return m.latestActive(ctx, userID, room)
}

func (m *Manager) latestActive(ctx context.Context, userID, room string) (*Game, error) {
    if m == nil || m.rdb == nil { return nil, ErrNotInitialized }
    userID = strings.TrimSpace(userID)
    room = strings.TrimSpace(room)
    if userID == "" { return nil, nil }
    ids, err := m.rdb.SMembers(ctx, idxUserKey(userID)).Result()
    if err != nil { return nil, err }
    var list []*Game
    for _, id := range ids {
        g, gerr := m.get(ctx, id)
        if gerr != nil || g == nil || g.Status != StatusActive { continue }
        if room != "" && g.OriginRoom != room && g.ResolveRoom != room { continue }
        list = append(list, g)
    }
    if len(list) == 0 { return nil, nil }
    sort.Slice(list, func(i, j int) bool { return list[i].UpdatedAt.After(list[j].UpdatedAt) })
    return list[0], nil
}

// PlayMove 는 사용자의 가장 최근 대국에 수를 둔다. 규칙 위반은 error 가 아니라 안내 문구로 돌려준다.
func (m *Manager) PlayMove(ctx context.Context, userID, moveStr string) (*Game, string, error) {
    if strings.TrimSpace(userID) == "" { return nil, "", fmt.Errorf("invalid user") }
    g, err := m.GetActiveGameByUser(ctx, userID)
    if err != nil || g == nil { return nil, "", err }
    return m.playMove(ctx, g, userID, "", moveStr)
}

// PlayMoveByRoom 은 같은 사용자가 여러 방에서 대국 중일 때 현재 방의 대국에만 수를 둔다.
func (m *Manager) PlayMoveByRoom(ctx context.Context, userID, roomID, moveStr string) (*Game, string, error) {
    if strings.TrimSpace(userID) == "" || strings.TrimSpace(roomID) == "" {
        return nil, "", fmt.Errorf("invalid parameters")
    }
    g, err := m.GetActiveGameByUserInRoom(ctx, userID, roomID)
    if err != nil || g == nil { return nil, "", err }
    return m.playMove(ctx, g, userID, strings.TrimSpace(roomID), moveStr)
}

func (m *Manager) playMove(ctx context.Context, g *Game, userID, roomID, moveStr string) (*Game, string, error) {
    gameK := gameKey(g.ID)
    oldLen := len(g.Moves)
    var resultText string

    err := m.rdb.Watch(ctx, func(tx *redis.Tx) error {
        cur, err := loadTx(ctx, tx, gameK)
        if err != nil { return err }
        if cur.Over() { return redis.TxFailedErr }
        // 그 사이 다른 수가 적용됐으면 포기
        if len(cur.Moves) != oldLen { return redis.TxFailedErr }
        if roomID != "" && cur.OriginRoom != roomID && cur.ResolveRoom != roomID {
            return fmt.Errorf("game not in room")
        }

        side := cur.Side(userID)
        if side == "" { return fmt.Errorf("user not in game") }
        if cur.Turn != side { return errNotYourTurn }

        session, err := reconstruct(cur.Moves)
        if err != nil { return err }

        mv, perr := corecheckers.ParseMove(moveStr)
        if perr != nil {
            resultText = "잘못된 수 입력입니다. 예: c3-d4 또는 22-18"
            return errIllegalMove
        }
        if !session.TrySelect(mv.From) {
            resultText = "선택한 칸에 움직일 수 있는 내 말이 없습니다."
            return errIllegalMove
        }
        if session.TryMove(mv.From, mv.To) != corecheckers.Accepted {
            resultText = "유효하지 않은 수입니다."
            return errIllegalMove
        }
        rec, _ := session.LastRecord()
        cur.Moves = append(cur.Moves, rec.Move.String())
        cur.Notation = append(cur.Notation, rec.Notation())
        if rec.Captured != nil {
            cur.Captures++
        }
        cur.Turn = colorFrom(session.Turn())
        cur.UpdatedAt = time.Now()

        switch session.Outcome() {
        case corecheckers.LightWins:
            cur.Status = StatusFinished
            cur.Winner = cur.LightID
            cur.Outcome = string(Light)
        case corecheckers.DarkWins:
            cur.Status = StatusFinished
            cur.Winner = cur.DarkID
            cur.Outcome = string(Dark)
        }

        newRaw, err := json.Marshal(cur)
        if err != nil { return err }
        pipe := tx.TxPipeline()
        pipe.Set(ctx, gameK, newRaw, gameTTL)
        if _, err := pipe.Exec(ctx); err != nil { return err }

        g = cur
        resultText = fmt.Sprintf("%s: %s", g.NameOf(side), rec.Notation())
        if g.Status == StatusActive && session.Stalled() {
            resultText += "\n상대가 둘 수 있는 수가 없습니다."
        }
        return nil
    }, gameK)

    if err != nil {
        switch {
        case errors.Is(err, redis.TxFailedErr):
            return g, "동시 명령이 감지되어 처리되지 않았습니다. 다시 시도해주세요.", nil
        case errors.Is(err, errIllegalMove):
            return g, resultText, nil
        case errors.Is(err, errNotYourTurn):
            return g, "지금은 상대 차례입니다.", nil
        }
        return nil, "", err
    }

    obslog.L().Info("checkers_pvp_move",
        zap.String("game_id", g.ID),
        zap.String("room_id", roomID),
        zap.String("user_id", strings.TrimSpace(userID)),
        zap.String("turn", string(g.Turn)),
        zap.String("last", g.Notation[len(g.Notation)-1]),
        zap.String("status", string(g.Status)),
        zap.String("outcome", g.Outcome),
    )
    if g.Status == StatusFinished {
        _ = m.persistIfFinal(ctx, g, "capture_all")
    }
    return g, resultText, nil
}

func (m *Manager) Resign(ctx context.Context, userID string) (*Game, string, error) {
    g, err := m.GetActiveGameByUser(ctx, userID)
    if err != nil || g == nil { return nil, "", err }
    return m.resign(ctx, g, userID, "")
}

// ResignByRoom 은 해당 방의 대국만 기권 처리한다.
func (m *Manager) ResignByRoom(ctx context.Context, userID, roomID string) (*Game, string, error) {
    if strings.TrimSpace(userID) == "" || strings.TrimSpace(roomID) == "" {
        return nil, "", fmt.Errorf("invalid parameters")
    }
    g, err := m.GetActiveGameByUserInRoom(ctx, userID, roomID)
    if err != nil || g == nil { return nil, "", err }
    return m.resign(ctx, g, userID, strings.TrimSpace(roomID))
}

func (m *Manager) resign(ctx context.Context, g *Game, userID, roomID string) (*Game, string, error) {
    gameK := gameKey(g.ID)
    err := m.rdb.Watch(ctx, func(tx *redis.Tx) error {
        cur, err := loadTx(ctx, tx, gameK)
        if err != nil { return err }
        if cur.Over() { return redis.TxFailedErr }
        if roomID != "" && cur.OriginRoom != roomID && cur.ResolveRoom != roomID {
            return fmt.Errorf("game not in room")
        }
        cur.Status = StatusResigned
        cur.Winner = cur.Opponent(userID)
        cur.Outcome = "resign"
        cur.UpdatedAt = time.Now()
        newRaw, err := json.Marshal(cur)
        if err != nil { return err }
        pipe := tx.TxPipeline()
        pipe.Set(ctx, gameK, newRaw, gameTTL)
        if _, err := pipe.Exec(ctx); err != nil { return err }
        g = cur
        return nil
    }, gameK)
    if err != nil {
        if errors.Is(err, redis.TxFailedErr) {
            return nil, "", ErrGameNotActive
        }
        return nil, "", err
    }
    obslog.L().Info("checkers_pvp_resign",
        zap.String("game_id", g.ID),
        zap.String("resigner", strings.TrimSpace(userID)),
        zap.String("room_id", roomID),
        zap.String("winner", g.Winner),
    )
    _ = m.persistIfFinal(ctx, g, "resign")
    return g, "기권", nil
}

// LoadGame returns the game by ID.
func (m *Manager) LoadGame(ctx context.Context, id string) (*Game, error) {
    if m == nil || m.rdb == nil { return nil, ErrNotInitialized }
    return m.get(ctx, id)
}


func colorFrom(c corecheckers.Color) Color {
    if c == corecheckers.Dark { return Dark }
    return Light
}

// reconstruct 는 저장된 수순을 처음부터 다시 둔다.
func reconstruct(moves []string) (*corecheckers.Session, error) {
    parsed := make([]corecheckers.Move, 0, len(moves))
    for _, raw := range moves {
        mv, err := corecheckers.ParseMove(raw)
        if err != nil { return nil, fmt.Errorf("decode move %s: %w", raw, err) }
        parsed = append(parsed, mv)
    }
    session, n, ok := corecheckers.Replay(corecheckers.TwoPlayer, parsed)
    if !ok { return nil, fmt.Errorf("replay rejected move %d (%s)", n+1, moves[n]) }
    return session, nil
}

func loadTx(ctx context.Context, tx *redis.Tx, key string) (*Game, error) {
    raw, err := tx.Get(ctx, key).Bytes()
    if errors.Is(err, redis.Nil) { return nil, fmt.Errorf("game not found") }
    if err != nil { return nil, err }
    var cur Game
    if err := json.Unmarshal(raw, &cur); err != nil { return nil, err }
    return &cur, nil
}

// Persistence
func (m *Manager) save(ctx context.Context, g *Game) error {
    raw, err := json.Marshal(g)
    if err != nil { return err }
    return m.rdb.Set(ctx, gameKey(g.ID), raw, gameTTL).Err()
}

func (m *Manager) get(ctx context.Context, id string) (*Game, error) {
    raw, err := m.rdb.Get(ctx, gameKey(id)).Bytes()
    if errors.Is(err, redis.Nil) { return nil, nil }
    if err != nil { return nil, err }
    var g Game
    if err := json.Unmarshal(raw, &g); err != nil { return nil, err }
    return &g, nil
}

func (m *Manager) indexParticipants(ctx context.Context, id string, ids ...string) error {
    for _, userID := range ids {
        if strings.TrimSpace(userID) == "" { continue }
        key := idxUserKey(userID)
        if err := m.rdb.SAdd(ctx, key, id).Err(); err != nil { return err }
        // 인덱스 키 TTL도 게임 TTL에 맞춰 갱신
        _ = m.rdb.Expire(ctx, key, gameTTL).Err()
    }
    return nil
}

func gameKey(id string) string { return "checkers:pvp:game:" + strings.TrimSpace(id) }
func idxUserKey(userID string) string { return "checkers:pvp:index:user:" + strings.TrimSpace(userID) }

// secureRandSuffix returns a hex string of n bytes; falls back to timestamp-based when crypto fails.
func secureRandSuffix(n int) string {
    if n <= 0 { n = 3 }
    b := make([]byte, n)
    if _, err := rand.Read(b); err == nil {
        return hex.EncodeToString(b)
    }
    return fmt.Sprintf("%x", time.Now().UnixNano()%1_000_000)
}

// persistIfFinal saves the final game result to repository if available.
func (m *Manager) persistIfFinal(ctx context.Context, g *Game, method string) error {
    if m == nil || m.repo == nil || g == nil {
        return nil
    }
    if g.Status != StatusFinished && g.Status != StatusResigned {
        return nil
    }
    if err := m.repo.SaveResult(ctx, g, method); err != nil {
        obslog.L().Error("checkers_pvp_persist_error", zap.String("game_id", g.ID), zap.String("outcome", g.Outcome), zap.Error(err))
        return err
    }
    obslog.L().Info("checkers_pvp_persist", zap.String("game_id", g.ID), zap.String("outcome", g.Outcome), zap.String("method", method))
    return nil
}
