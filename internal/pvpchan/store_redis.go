package pvpchan

import (
    "context"
    "crypto/rand"
    "encoding/json"
    "errors"
    "sort"
    "strings"
    "time"

    "github.com/redis/go-redis/v9"
)

// 채널 관련 키는 모두 같은 TTL 로 함께 만료된다.
const ttlChannel = 24 * time.Hour

const (
    keyPrefix = "checkers:ch:"
    lobbyKey  = keyPrefix + "lobby" // ZSET: code -> 생성 시각(unix ms)
)

// Store 는 채널 메타와 부속 집합을 Redis 에 둔다.
//
//  checkers:ch:<code>               JSON ChannelMeta
//  checkers:ch:<code>:rooms         SET  알림을 받을 방
//  checkers:ch:<code>:participants  SET  참가자 ID (최대 2)
//  checkers:ch:<code>:names         HASH 참가자 ID -> 표시 이름
//  checkers:ch:<code>:starting      대국 생성 중 표시 (SETNX)
//  checkers:ch:index:user:<id>      SET  사용자가 속한 채널 코드
type Store struct{ rdb *redis.Client }

func NewStore(rdb *redis.Client) *Store { return &Store{rdb: rdb} }

func (s *Store) keyMeta(code string) string         { return keyPrefix + strings.TrimSpace(code) }
func (s *Store) keyRooms(code string) string        { return s.keyMeta(code) + ":rooms" }
func (s *Store) keyParticipants(code string) string { return s.keyMeta(code) + ":participants" }
func (s *Store) keyNames(code string) string        { return s.keyMeta(code) + ":names" }
func (s *Store) keyStarting(code string) string     { return s.keyMeta(code) + ":starting" }
func (s *Store) keyUserIdx(user string) string      { return keyPrefix + "index:user:" + strings.TrimSpace(user) }

// SaveMeta 는 메타를 쓰고 부속 키의 TTL 을 한 번에 연장한다.
func (s *Store) SaveMeta(ctx context.Context, code string, meta *ChannelMeta) error {
    raw, err := json.Marshal(meta)
    if err != nil { return err }
    _, err = s.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
        p.Set(ctx, s.keyMeta(code), raw, ttlChannel)
        p.Expire(ctx, s.keyRooms(code), ttlChannel)
        p.Expire(ctx, s.keyParticipants(code), ttlChannel)
        p.Expire(ctx, s.keyNames(code), ttlChannel)
        return nil
    })
    return err
}

// LoadMeta 는 없는 코드와 선점만 된 코드("{}")를 모두 nil 로 돌려준다.
func (s *Store) LoadMeta(ctx context.Context, code string) (*ChannelMeta, error) {
    raw, err := s.rdb.Get(ctx, s.keyMeta(code)).Bytes()
    if errors.Is(err, redis.Nil) { return nil, nil }
    if err != nil { return nil, err }
    var m ChannelMeta
    if err := json.Unmarshal(raw, &m); err != nil { return nil, err }
    if m.ID == "" { return nil, nil }
    return &m, nil
}

// Reserve 는 코드가 비어 있을 때만 자리표시 값을 써서 선점한다.
func (s *Store) Reserve(ctx context.Context, code string) (bool, error) {
    return s.rdb.SetNX(ctx, s.keyMeta(code), "{}", ttlChannel).Result()
}

// ClaimStart 는 대국 생성 권한을 한 호출에만 준다.
func (s *Store) ClaimStart(ctx context.Context, code string) (bool, error) {
    return s.rdb.SetNX(ctx, s.keyStarting(code), "1", ttlChannel).Result()
}

func (s *Store) ReleaseStart(ctx context.Context, code string) {
    _ = s.rdb.Del(ctx, s.keyStarting(code)).Err()
}

func (s *Store) AddRoom(ctx context.Context, code, room string) error {
    room = strings.TrimSpace(room)
    if room == "" { return nil }
    _, err := s.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
        p.SAdd(ctx, s.keyRooms(code), room)
        p.Expire(ctx, s.keyRooms(code), ttlChannel)
        return nil
    })
    return err
}

// Rooms 는 정렬된 방 목록
func (s *Store) Rooms(ctx context.Context, code string) ([]string, error) {
    rooms, err := s.rdb.SMembers(ctx, s.keyRooms(code)).Result()
    if err != nil { return nil, err }
    sort.Strings(rooms)
    return rooms, nil
}

func (s *Store) Participants(ctx context.Context, code string) ([]string, error) {
    return s.rdb.SMembers(ctx, s.keyParticipants(code)).Result()
}

// AddParticipant 는 참가자, 표시 이름, 사용자 인덱스를 함께 기록한다.
func (s *Store) AddParticipant(ctx context.Context, code, userID, userName string) error {
    userID = strings.TrimSpace(userID)
    if userID == "" { return nil }
    _, err := s.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
        p.SAdd(ctx, s.keyParticipants(code), userID)
        p.Expire(ctx, s.keyParticipants(code), ttlChannel)
        p.HSet(ctx, s.keyNames(code), userID, displayName(userID, userName))
        p.Expire(ctx, s.keyNames(code), ttlChannel)
        p.SAdd(ctx, s.keyUserIdx(userID), code)
        p.Expire(ctx, s.keyUserIdx(userID), ttlChannel)
        return nil
    })
    return err
}

func (s *Store) SetName(ctx context.Context, code, userID, userName string) error {
    _, err := s.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
        p.HSet(ctx, s.keyNames(code), userID, displayName(userID, userName))
        p.Expire(ctx, s.keyNames(code), ttlChannel)
        return nil
    })
    return err
}

// Name 은 참가자의 표시 이름. 없으면 userID.
func (s *Store) Name(ctx context.Context, code, userID string) string {
    name, err := s.rdb.HGet(ctx, s.keyNames(code), userID).Result()
    if err != nil || strings.TrimSpace(name) == "" { return userID }
    return name
}

func (s *Store) CodesByUser(ctx context.Context, userID string) ([]string, error) {
    return s.rdb.SMembers(ctx, s.keyUserIdx(userID)).Result()
}

func displayName(userID, userName string) string {
    if name := strings.TrimSpace(userName); name != "" { return name }
    return userID
}

const codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// codeGen 은 "CH-" 뒤에 헷갈리는 글자(0,O,1,I)를 뺀 6자
func codeGen() (string, error) {
    b := make([]byte, 6)
    if _, err := rand.Read(b); err != nil { return "", err }
    for i := range b {
        b[i] = codeAlphabet[int(b[i])%len(codeAlphabet)]
    }
    return "CH-" + string(b), nil
}

func (s *Store) AddLobby(ctx context.Context, code string, createdAt time.Time) error {
    if strings.TrimSpace(code) == "" { return nil }
    _, err := s.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
        p.ZAdd(ctx, lobbyKey, redis.Z{Score: float64(createdAt.UnixMilli()), Member: code})
        p.Expire(ctx, lobbyKey, ttlChannel)
        return nil
    })
    return err
}

func (s *Store) RemoveLobby(ctx context.Context, code string) error {
    if strings.TrimSpace(code) == "" { return nil }
    return s.rdb.ZRem(ctx, lobbyKey, code).Err()
}

// ListLobby 는 대기 중인 채널을 생성 시각 순으로 돌려준다. 만료됐거나 시작된 코드는 인덱스에서 지운다.
func (s *Store) ListLobby(ctx context.Context) ([]*ChannelMeta, error) {
    codes, err := s.rdb.ZRange(ctx, lobbyKey, 0, -1).Result()
    if err != nil { return nil, err }
    out := make([]*ChannelMeta, 0, len(codes))
    for _, c := range codes {
        m, _ := s.LoadMeta(ctx, c)
        if m == nil || m.State != StateLobby {
            _ = s.RemoveLobby(ctx, c)
            continue
        }
        out = append(out, m)
    }
    return out, nil
}
