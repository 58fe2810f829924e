package pvp

import (
    "errors"
    "fmt"
    "strings"
    "sync"
    "sync/atomic"
    "time"
)

var (
    ErrInvalidArgs      = errors.New("invalid arguments")
    ErrSelfChallenge    = errors.New("cannot challenge yourself")
    ErrAlreadyPending   = errors.New("challenge to this target already pending")
    ErrNoPendingForUser = errors.New("no pending challenge for target user")
)

// DefaultChallengeTTL 이 지나도록 응답이 없는 신청은 만료된다.
const DefaultChallengeTTL = 5 * time.Minute

// 대상별로 보관하는 신청 수 상한. 오래된 것부터 버린다.
const maxChallengesPerTarget = 16

type Option func(*Manager)

func WithTTL(ttl time.Duration) Option {
    return func(m *Manager) { m.ttl = ttl }
}

// WithClock 은 만료 판정에 쓰는 시계를 바꾼다.
func WithClock(now func() time.Time) Option {
    return func(m *Manager) { if now != nil { m.now = now } }
}

// Manager 는 프로세스 메모리에만 있는 대국 신청 목록. 재시작하면 비워진다.
type Manager struct {
    mu sync.Mutex
    // targetID -> 신청 목록 (뒤가 최신)
    byTarget map[string][]*Challenge
    seq      uint64
    ttl      time.Duration
    now      func() time.Time
}

func NewManager(opts ...Option) *Manager {
    m := &Manager{byTarget: make(map[string][]*Challenge), ttl: DefaultChallengeTTL, now: time.Now}
    for _, opt := range opts { opt(m) }
    return m
}

// CreateChallenge 는 신청을 등록한다. 같은 신청자는 같은 대상에게 미응답 신청을 하나만 둘 수 있다. autoAccept 면 신청한 방에서 바로 수락된 것으로 기록한다.
func (m *Manager) CreateChallenge(originRoom, challengerID, challengerName, targetID string, color ColorChoice, autoAccept bool) (*Challenge, error) {
    originRoom, challengerID, targetID = strings.TrimSpace(originRoom), strings.TrimSpace(challengerID), strings.TrimSpace(targetID)
    if originRoom == "" || challengerID == "" || targetID == "" { return nil, ErrInvalidArgs }
    if challengerID == targetID { return nil, ErrSelfChallenge }

    m.mu.Lock()
    defer m.mu.Unlock()

    now := m.now()
    list := m.sweep(targetID, now)
    for _, prev := range list {
        if prev.Status == StatusPending && prev.ChallengerID == challengerID { return nil, ErrAlreadyPending }
    }

    ch := &Challenge{
        ID:             m.nextID(now),
        OriginRoom:     originRoom,
        ChallengerID:   challengerID,
        ChallengerName: strings.TrimSpace(challengerName),
        TargetID:       targetID,
        Color:          color,
        CreatedAt:      now,
        Status:         StatusPending,
    }
    if ch.ChallengerName == "" { ch.ChallengerName = challengerID }
    if autoAccept {
        ch.Status = StatusAccepted
        ch.ResolveRoom = originRoom
        ch.ResolvedAt = now
    }
    list = append(list, ch)
    if len(list) > maxChallengesPerTarget { list = list[len(list)-maxChallengesPerTarget:] }
    m.byTarget[targetID] = list
    cp := *ch
    return &cp, nil
}

func (m *Manager) Accept(targetID, acceptRoom string) (*Challenge, error) {
    return m.resolve(targetID, acceptRoom, StatusAccepted)
}

func (m *Manager) Decline(targetID, declineRoom string) (*Challenge, error) {
    return m.resolve(targetID, declineRoom, StatusDeclined)
}

// Pending 은 대상에게 걸린 가장 최근의 미응답 신청
func (m *Manager) Pending(targetID string) (*Challenge, bool) {
    m.mu.Lock()
    defer m.mu.Unlock()
    list := m.sweep(strings.TrimSpace(targetID), m.now())
    if idx := latestPendingIndex(list); idx >= 0 {
        cp := *list[idx]
        return &cp, true
    }
    return nil, false
}

func (m *Manager) resolve(targetID, room string, status Status) (*Challenge, error) {
    targetID = strings.TrimSpace(targetID)
    if targetID == "" { return nil, ErrInvalidArgs }
    m.mu.Lock()
    defer m.mu.Unlock()
    now := m.now()
    list := m.sweep(targetID, now)
    idx := latestPendingIndex(list)
    if idx < 0 { return nil, ErrNoPendingForUser }
    ch := list[idx]
    ch.Status = status
    ch.ResolveRoom = strings.TrimSpace(room)
    ch.ResolvedAt = now
    cp := *ch
    return &cp, nil
}

// sweep 은 만료된 신청을 EXPIRED 로 바꾸고 목록을 돌려준다. mu 를 잡은 상태에서 호출한다.
func (m *Manager) sweep(targetID string, now time.Time) []*Challenge {
    list := m.byTarget[targetID]
    for _, ch := range list {
        if ch.expired(now, m.ttl) {
            ch.Status = StatusExpired
            ch.ResolvedAt = now
        }
    }
    return list
}

func latestPendingIndex(list []*Challenge) int {
    for i := len(list) - 1; i >= 0; i-- {
        if list[i].Status == StatusPending { return i }
    }
    return -1
}

func (m *Manager) nextID(now time.Time) string {
    n := atomic.AddUint64(&m.seq, 1)
    return fmt.Sprintf("ch-%d-%d", now.UnixNano(), n)
}
