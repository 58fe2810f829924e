package main

import (
    "context"
    "errors"
    "fmt"
    "strings"
    "sync"
    "testing"
    "time"

    miniredis "github.com/alicebob/miniredis/v2"
    "github.com/park285/kakao-checkers-bot/internal/adapter/checkerspresenter"
    "github.com/park285/kakao-checkers-bot/internal/checkersbuilder"
    appcfg "github.com/park285/kakao-checkers-bot/internal/config"
    "github.com/park285/kakao-checkers-bot/internal/irisfast"
    "go.uber.org/zap"
    "go.uber.org/zap/zaptest/observer"
)

type outbound struct {
    kind, room, data string
}

type recordingSender struct {
    mu        sync.Mutex
    out       []outbound
    failImage bool
}

func (r *recordingSender) SendText(_ context.Context, room, message string) error {
    r.mu.Lock()
    defer r.mu.Unlock()
    r.out = append(r.out, outbound{"text", room, message})
    return nil
}

func (r *recordingSender) SendImage(_ context.Context, room, imageBase64 string) error {
    r.mu.Lock()
    defer r.mu.Unlock()
    if r.failImage { return errors.New("image send failed") }
    r.out = append(r.out, outbound{"image", room, imageBase64})
    return nil
}

func (r *recordingSender) take() []outbound {
    r.mu.Lock()
    defer r.mu.Unlock()
    out := r.out
    r.out = nil
    return out
}

func newTestBot(t *testing.T, allowed ...string) (*bot, *recordingSender) {
    t.Helper()
    mr, err := miniredis.Run()
    if err != nil { t.Fatalf("miniredis: %v", err) }
    t.Cleanup(mr.Close)

    cfg := &appcfg.AppConfig{
        BotPrefix:             "!",
        RedisURL:              fmt.Sprintf("redis://%s/0", mr.Addr()),
        AllowedRooms:          allowed,
        CheckersDefaultMode:   "computer",
        CheckersSessionTTLSec: 300,
        CheckersHistoryLimit:  10,
        CheckersRandomSeed:    7,
        MaxConcurrentGames:    4,
    }
    deps, err := checkersbuilder.New(context.Background(), cfg, nil)
    if err != nil { t.Fatalf("builder: %v", err) }
    t.Cleanup(func() { _ = deps.Close() })

    rs := &recordingSender{}
    b := newBot(cfg, deps, checkerspresenter.NewPresenter(rs), checkerspresenter.NewFormatter(prefixProvider{prefix: "!"}, nil), nil)
    return b, rs
}

func chat(room, user, text string) *irisfast.Message {
    name := user
    return &irisfast.Message{Msg: text, Room: room, Sender: &name, JSON: &irisfast.MessageJSON{UserID: user}}
}

func textsFor(out []outbound, room string) []string {
    var texts []string
    for _, o := range out {
        if o.kind == "text" && o.room == room {
            texts = append(texts, o.data)
        }
    }
    return texts
}

func hasImage(out []outbound, room string) bool {
    for _, o := range out {
        if o.kind == "image" && o.room == room && o.data != "" {
            return true
        }
    }
    return false
}

func TestSinglePlayerFlow(t *testing.T) {
    b, rs := newTestBot(t)
    ctx := context.Background()

    b.handle(ctx, chat("r1", "u1", "!체커 시작"))
    out := rs.take()
    if texts := textsFor(out, "r1"); len(texts) != 1 || !strings.Contains(texts[0], "시작했습니다") {
        t.Fatalf("start reply: %+v", texts)
    }
    if !hasImage(out, "r1") { t.Fatalf("start should send a board image") }

    b.handle(ctx, chat("r1", "u1", "!체커 c3-d4"))
    out = rs.take()
    texts := textsFor(out, "r1")
    if len(texts) != 1 || !strings.Contains(texts[0], "내 수: c3-d4") || !strings.Contains(texts[0], "컴퓨터: ") {
        t.Fatalf("move reply: %+v", texts)
    }

    b.handle(ctx, chat("r1", "u1", "!체커 e3-e4"))
    if texts := textsFor(rs.take(), "r1"); len(texts) != 1 || !strings.Contains(texts[0], "유효하지 않은 수") {
        t.Fatalf("illegal move reply: %+v", texts)
    }

    b.handle(ctx, chat("r1", "u1", "!체커 기권"))
    if texts := textsFor(rs.take(), "r1"); len(texts) != 1 || !strings.Contains(texts[0], "기권") {
        t.Fatalf("resign reply: %+v", texts)
    }

    b.handle(ctx, chat("r1", "u1", "!체커 현황"))
    if texts := textsFor(rs.take(), "r1"); len(texts) != 1 || !strings.Contains(texts[0], "진행 중인 체커 게임이 없습니다") {
        t.Fatalf("status after resign: %+v", texts)
    }

    b.handle(ctx, chat("r1", "u1", "!체커 기록"))
    if texts := textsFor(rs.take(), "r1"); len(texts) != 1 || !strings.Contains(texts[0], "#1") {
        t.Fatalf("history: %+v", texts)
    }
}

func TestPvPChallengeAcceptFlow(t *testing.T) {
    b, rs := newTestBot(t)
    ctx := context.Background()

    b.handle(ctx, chat("r1", "u1", "!pvp @u2 백"))
    if texts := textsFor(rs.take(), "r1"); len(texts) != 1 || !strings.Contains(texts[0], "`!pvp 수락`") {
        t.Fatalf("challenge notice: %+v", texts)
    }

    b.handle(ctx, chat("r2", "u2", "!pvp 수락"))
    out := rs.take()
    for _, room := range []string{"r1", "r2"} {
        if texts := textsFor(out, room); len(texts) != 1 || !strings.Contains(texts[0], "u1(백) vs u2(흑)") {
            t.Fatalf("pvp start in %s: %+v", room, texts)
        }
    }

    b.handle(ctx, chat("r2", "u2", "!pvp 22-18"))
    out = rs.take()
    if texts := textsFor(out, "r2"); len(texts) != 1 || !strings.Contains(texts[0], "상대 차례") {
        t.Fatalf("out-of-turn reply: %+v", texts)
    }
    if texts := textsFor(out, "r1"); len(texts) != 0 {
        t.Fatalf("rejected move should not be broadcast: %+v", texts)
    }

    b.handle(ctx, chat("r1", "u1", "!pvp 22-18"))
    out = rs.take()
    for _, room := range []string{"r1", "r2"} {
        if texts := textsFor(out, room); len(texts) != 1 || !strings.Contains(texts[0], "u1: c3-d4") {
            t.Fatalf("pvp move in %s: %+v", room, texts)
        }
        if !hasImage(out, room) { t.Fatalf("pvp move should send board to %s", room) }
    }

    b.handle(ctx, chat("r2", "u2", "!pvp 기권"))
    out = rs.take()
    for _, room := range []string{"r1", "r2"} {
        if texts := textsFor(out, room); len(texts) != 1 || !strings.Contains(texts[0], "승자: u1") {
            t.Fatalf("pvp resign in %s: %+v", room, texts)
        }
    }

    b.handle(ctx, chat("r1", "u1", "!pvp 현황"))
    if texts := textsFor(rs.take(), "r1"); len(texts) != 1 || !strings.Contains(texts[0], "활성 PvP 대국이 없습니다") {
        t.Fatalf("status after resign: %+v", texts)
    }
}

func TestPvPChallengeDecline(t *testing.T) {
    b, rs := newTestBot(t)
    ctx := context.Background()

    b.handle(ctx, chat("r1", "u1", "!pvp @u2"))
    rs.take()
    b.handle(ctx, chat("r2", "u2", "!pvp 거절"))
    out := rs.take()
    for _, room := range []string{"r1", "r2"} {
        if texts := textsFor(out, room); len(texts) != 1 || !strings.Contains(texts[0], "거절") {
            t.Fatalf("decline notice in %s: %+v", room, texts)
        }
    }
    b.handle(ctx, chat("r2", "u2", "!pvp 수락"))
    if texts := textsFor(rs.take(), "r2"); len(texts) != 1 || !strings.Contains(texts[0], "신청이 없거나") {
        t.Fatalf("accept after decline: %+v", texts)
    }
    b.handle(ctx, chat("r1", "u1", "!pvp @u1"))
    if texts := textsFor(rs.take(), "r1"); len(texts) != 1 || !strings.Contains(texts[0], "자기 자신") {
        t.Fatalf("self challenge: %+v", texts)
    }
}

func TestPvPAutoAccept(t *testing.T) {
    b, rs := newTestBot(t)
    b.cfg.PvPAutoAccept = true
    ctx := context.Background()

    b.handle(ctx, chat("r1", "u1", "!pvp @u2 흑"))
    out := rs.take()
    if texts := textsFor(out, "r1"); len(texts) != 1 || !strings.Contains(texts[0], "u2(백) vs u1(흑)") {
        t.Fatalf("auto accepted start: %+v", texts)
    }
    if !hasImage(out, "r1") { t.Fatalf("start should send board") }
}

func TestPvPStatusLogsSendError(t *testing.T) {
    b, rs := newTestBot(t)
    b.cfg.PvPAutoAccept = true
    ctx := context.Background()
    b.handle(ctx, chat("r1", "u1", "!pvp @u2"))
    rs.take()

    core, logs := observer.New(zap.WarnLevel)
    b.logger = zap.New(core)
    rs.mu.Lock()
    rs.failImage = true
    rs.mu.Unlock()

    b.handle(ctx, chat("r1", "u1", "!pvp 현황"))
    entries := logs.FilterMessage("board_send_error").All()
    if len(entries) != 1 {
        t.Fatalf("expected one board_send_error, got %d", len(entries))
    }
    if room, _ := entries[0].ContextMap()["room"].(string); room != "r1" {
        t.Fatalf("logged room = %v", entries[0].ContextMap()["room"])
    }
}

func TestChannelFlow(t *testing.T) {
    b, rs := newTestBot(t)
    ctx := context.Background()

    b.handle(ctx, chat("roomA", "alice", "!채널 만들기 흑"))
    texts := textsFor(rs.take(), "roomA")
    if len(texts) != 1 || !strings.Contains(texts[0], "!채널 참가") {
        t.Fatalf("channel make: %+v", texts)
    }
    lobby, err := b.deps.Channels.ListLobby(ctx)
    if err != nil || len(lobby) != 1 { t.Fatalf("lobby: %v %+v", err, lobby) }
    code := lobby[0].ID

    b.handle(ctx, chat("roomB", "bob", "!채널 참가 "+strings.ToLower(code)))
    out := rs.take()
    for _, room := range []string{"roomA", "roomB"} {
        texts := textsFor(out, room)
        if len(texts) != 1 || !strings.Contains(texts[0], "bob(백) vs alice(흑)") {
            t.Fatalf("start text in %s: %+v", room, texts)
        }
        if !hasImage(out, room) { t.Fatalf("board image missing in %s", room) }
    }

    b.handle(ctx, chat("roomA", "alice", "!채널 목록"))
    if texts := textsFor(rs.take(), "roomA"); len(texts) != 1 || !strings.Contains(texts[0], "대기 중인 채널이 없습니다") {
        t.Fatalf("lobby after start: %+v", texts)
    }
}

func TestRoomFilterAndPrefix(t *testing.T) {
    b, rs := newTestBot(t, "allowed")

    b.onMessage(chat("other", "u1", "!체커 시작"))
    b.onMessage(chat("allowed", "u1", "체커 시작"))
    b.onMessage(nil)
    b.wait()
    if out := rs.take(); len(out) != 0 {
        t.Fatalf("filtered messages should not reply: %+v", out)
    }

    b.onMessage(chat("allowed", "u1", "!help"))
    done := make(chan struct{})
    go func() { b.wait(); close(done) }()
    select {
    case <-done:
    case <-time.After(5 * time.Second):
        t.Fatalf("command did not finish")
    }
    if texts := textsFor(rs.take(), "allowed"); len(texts) != 1 {
        t.Fatalf("help reply: %+v", texts)
    }
}
