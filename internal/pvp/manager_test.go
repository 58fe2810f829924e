package pvp

import (
    "errors"
    "testing"
    "time"
)

func TestCreateChallengeAutoAccept(t *testing.T) {
    m := NewManager()
    ch, err := m.CreateChallenge("room", "u1", "", "u2", ColorLight, true)
    if err != nil { t.Fatalf("CreateChallenge: %v", err) }
    if ch.Status != StatusAccepted || ch.ResolveRoom != "room" || ch.ChallengerName != "u1" {
        t.Fatalf("unexpected challenge: %+v", ch)
    }
    // 자동 수락된 신청은 대기열을 막지 않는다.
    if _, err := m.CreateChallenge("room", "u3", "C", "u2", ColorRandom, true); err != nil {
        t.Fatalf("second challenge: %v", err)
    }
    if _, ok := m.Pending("u2"); ok {
        t.Fatalf("auto accepted challenges should not be pending")
    }
}

func TestChallengePendingAcceptDecline(t *testing.T) {
    m := NewManager()
    if _, err := m.CreateChallenge("room", "u1", "A", "u1", ColorRandom, false); !errors.Is(err, ErrSelfChallenge) {
        t.Fatalf("expected ErrSelfChallenge, got %v", err)
    }
    if _, err := m.CreateChallenge(" ", "u1", "A", "u2", ColorRandom, false); !errors.Is(err, ErrInvalidArgs) {
        t.Fatalf("expected ErrInvalidArgs, got %v", err)
    }
    if _, err := m.CreateChallenge("room", "u1", "Alice", "u2", ColorDark, false); err != nil {
        t.Fatalf("CreateChallenge: %v", err)
    }
    if _, err := m.CreateChallenge("room", "u1", "Alice", "u2", ColorLight, false); !errors.Is(err, ErrAlreadyPending) {
        t.Fatalf("expected ErrAlreadyPending, got %v", err)
    }
    if p, ok := m.Pending("u2"); !ok || p.ChallengerID != "u1" || p.ChallengerName != "Alice" {
        t.Fatalf("expected pending challenge from u1, got %+v", p)
    }

    ch, err := m.Accept("u2", "room-b")
    if err != nil { t.Fatalf("Accept: %v", err) }
    if ch.Status != StatusAccepted || ch.OriginRoom != "room" || ch.ResolveRoom != "room-b" || ch.ResolvedAt.IsZero() {
        t.Fatalf("unexpected accepted challenge: %+v", ch)
    }
    if _, err := m.Decline("u2", "room"); !errors.Is(err, ErrNoPendingForUser) {
        t.Fatalf("expected ErrNoPendingForUser, got %v", err)
    }

    if _, err := m.CreateChallenge("room", "u3", "C", "u2", ColorLight, false); err != nil {
        t.Fatalf("new challenge after accept: %v", err)
    }
    ch, err = m.Decline("u2", "room-c")
    if err != nil || ch.Status != StatusDeclined || ch.ChallengerID != "u3" {
        t.Fatalf("Decline: %+v %v", ch, err)
    }
}

func TestChallengesFromDifferentChallengers(t *testing.T) {
    m := NewManager()
    if _, err := m.CreateChallenge("room-a", "alice", "Alice", "carol", ColorRandom, false); err != nil {
        t.Fatalf("alice: %v", err)
    }
    if _, err := m.CreateChallenge("room-b", "bob", "Bob", "carol", ColorDark, false); err != nil {
        t.Fatalf("second challenger should be allowed: %v", err)
    }
    if _, err := m.CreateChallenge("room-a", "alice", "Alice", "carol", ColorLight, false); !errors.Is(err, ErrAlreadyPending) {
        t.Fatalf("expected ErrAlreadyPending for repeated challenger, got %v", err)
    }

    // 수락은 가장 최근 신청부터
    if p, ok := m.Pending("carol"); !ok || p.ChallengerID != "bob" {
        t.Fatalf("expected newest pending from bob, got %+v", p)
    }
    ch, err := m.Accept("carol", "room-c")
    if err != nil || ch.ChallengerID != "bob" || ch.OriginRoom != "room-b" {
        t.Fatalf("Accept: %+v %v", ch, err)
    }
    ch, err = m.Decline("carol", "room-c")
    if err != nil || ch.ChallengerID != "alice" || ch.Status != StatusDeclined {
        t.Fatalf("Decline: %+v %v", ch, err)
    }
    if _, ok := m.Pending("carol"); ok {
        t.Fatalf("no pending challenge should remain")
    }
}

func TestChallengeExpires(t *testing.T) {
    now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
    m := NewManager(WithTTL(time.Minute), WithClock(func() time.Time { return now }))

    if _, err := m.CreateChallenge("room", "u1", "A", "u2", ColorRandom, false); err != nil {
        t.Fatalf("CreateChallenge: %v", err)
    }
    now = now.Add(2 * time.Minute)
    if _, ok := m.Pending("u2"); ok {
        t.Fatalf("challenge should have expired")
    }
    if _, err := m.Accept("u2", "room"); !errors.Is(err, ErrNoPendingForUser) {
        t.Fatalf("expired challenge accepted: %v", err)
    }
    if _, err := m.CreateChallenge("room", "u3", "C", "u2", ColorRandom, false); err != nil {
        t.Fatalf("new challenge after expiry: %v", err)
    }
}

func TestChallengeListIsBounded(t *testing.T) {
    m := NewManager()
    for i := 0; i < maxChallengesPerTarget+5; i++ {
        if _, err := m.CreateChallenge("room", "u1", "A", "u2", ColorRandom, true); err != nil {
            t.Fatalf("CreateChallenge #%d: %v", i, err)
        }
    }
    if n := len(m.byTarget["u2"]); n != maxChallengesPerTarget {
        t.Fatalf("kept %d challenges", n)
    }
}

func TestParseColorChoice(t *testing.T) {
    cases := map[string]ColorChoice{
        "light": ColorLight,
        " W ":   ColorLight,
        "흑":     ColorDark,
        "dark":  ColorDark,
        "":      ColorRandom,
        "blue":  ColorRandom,
    }
    for in, want := range cases {
        if got := ParseColorChoice(in); got != want {
            t.Fatalf("ParseColorChoice(%q) = %s, want %s", in, got, want)
        }
    }
}
