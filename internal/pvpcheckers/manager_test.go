package pvpcheckers

import (
    "bytes"
    "context"
    "fmt"
    "strings"
    "testing"

    miniredis "github.com/alicebob/miniredis/v2"
)

func newTestManager(t *testing.T) *Manager {
    t.Helper()
    mr, err := miniredis.Run()
    if err != nil { t.Fatalf("miniredis: %v", err) }
    t.Cleanup(func() { mr.Close() })
    url := fmt.Sprintf("redis://%s/0", mr.Addr())
    m, err := NewManager(url)
    if err != nil { t.Fatalf("pvpcheckers.NewManager: %v", err) }
    t.Cleanup(func() { _ = m.Close() })
    return m
}

func TestPlayMoveTurnsAndIllegal(t *testing.T) {
    m := newTestManager(t)
    ctx := context.Background()
    g, err := m.CreateGameFromChallenge(ctx, "roomA", "roomA", "u1", "U1", "u2", "U2", "light")
    if err != nil { t.Fatalf("CreateGameFromChallenge: %v", err) }
    if g.LightID != "u1" || g.DarkID != "u2" || g.Turn != Light {
        t.Fatalf("unexpected colors: %+v", g)
    }

    _, txt, err := m.PlayMove(ctx, "u2", "b6-a5")
    if err != nil { t.Fatalf("PlayMove dark first: %v", err) }
    if txt != "지금은 상대 차례입니다." { t.Fatalf("unexpected text: %q", txt) }

    g1, txt, err := m.PlayMove(ctx, "u1", "22-18")
    if err != nil || g1 == nil { t.Fatalf("PlayMove: %v", err) }
    if txt != "U1: c3-d4" || g1.Turn != Dark || len(g1.Moves) != 1 {
        t.Fatalf("unexpected result: txt=%q game=%+v", txt, g1)
    }

    _, txt, err = m.PlayMove(ctx, "u2", "c3-b4")
    if err != nil { t.Fatalf("PlayMove illegal: %v", err) }
    if !strings.Contains(txt, "내 말이 없습니다") { t.Fatalf("unexpected illegal text: %q", txt) }

    _, txt, err = m.PlayMove(ctx, "u2", "b6-b5")
    if err != nil { t.Fatalf("PlayMove illegal: %v", err) }
    if txt != "유효하지 않은 수입니다." { t.Fatalf("unexpected illegal text: %q", txt) }

    g2, _, err := m.PlayMove(ctx, "u2", "b6-c5")
    if err != nil || g2 == nil { t.Fatalf("PlayMove dark: %v", err) }
    if g2.Turn != Light || len(g2.Notation) != 2 { t.Fatalf("unexpected game: %+v", g2) }

    // d4xb6 으로 잡기
    g3, txt, err := m.PlayMove(ctx, "u1", "d4-b6")
    if err != nil || g3 == nil { t.Fatalf("PlayMove capture: %v", err) }
    if txt != "U1: d4xb6" || g3.Captures != 1 { t.Fatalf("unexpected capture: txt=%q game=%+v", txt, g3) }
}

func TestPlayMoveByRoomScope(t *testing.T) {
    m := newTestManager(t)
    ctx := context.Background()
    if _, err := m.CreateGameFromChallenge(ctx, "roomA", "roomA", "u1", "U1", "u2", "U2", "light"); err != nil {
        t.Fatalf("CreateGameFromChallenge: %v", err)
    }
    g, txt, err := m.PlayMoveByRoom(ctx, "u1", "roomB", "c3-d4")
    if err != nil || g != nil || txt != "" {
        t.Fatalf("expected no game in other room, got %v %q %v", g, txt, err)
    }
    g, _, err = m.PlayMoveByRoom(ctx, "u1", "roomA", "c3-d4")
    if err != nil || g == nil || len(g.Moves) != 1 {
        t.Fatalf("PlayMoveByRoom: %v %+v", err, g)
    }
}

func TestResignAndLoad(t *testing.T) {
    m := newTestManager(t)
    ctx := context.Background()
    g, err := m.CreateGameFromChallenge(ctx, "roomA", "roomA", "u1", "U1", "u2", "U2", "dark")
    if err != nil { t.Fatalf("CreateGameFromChallenge: %v", err) }
    if g.LightID != "u2" { t.Fatalf("challenger asked for dark: %+v", g) }

    rg, txt, err := m.ResignByRoom(ctx, "u1", "roomA")
    if err != nil || rg == nil { t.Fatalf("ResignByRoom: %v", err) }
    if txt != "기권" || rg.Status != StatusResigned || rg.Winner != "u2" {
        t.Fatalf("unexpected resign: %q %+v", txt, rg)
    }
    if active, err := m.GetActiveGameByUser(ctx, "u1"); err != nil || active != nil {
        t.Fatalf("resigned game should not be active: %v %v", active, err)
    }
    loaded, err := m.LoadGame(ctx, g.ID)
    if err != nil || loaded == nil || loaded.Status != StatusResigned {
        t.Fatalf("LoadGame: %v %+v", err, loaded)
    }
    if pdn := buildPDN(loaded, "resign"); !strings.Contains(pdn, `[Result "1-0"]`) || !strings.Contains(pdn, `[Termination "resign"]`) {
        t.Fatalf("unexpected pdn: %s", pdn)
    }
}

func TestToDTO(t *testing.T) {
    m := newTestManager(t)
    g := &Game{ID: "g1", Moves: []string{"c3-d4"}, Notation: []string{"c3-d4"}, Turn: Dark, Status: StatusActive, LightID: "a", DarkID: "b", LightName: "A", DarkName: "비"}
    dto, err := m.ToDTO(context.Background(), g)
    if err != nil || dto == nil { t.Fatalf("ToDTO: %v", err) }
    if !bytes.HasPrefix(dto.BoardImage, []byte("\x89PNG")) { t.Fatalf("expected png image") }
    if dto.Material.Light != 12 || dto.Material.Dark != 12 || dto.MoveCount != 1 {
        t.Fatalf("unexpected dto: %+v", dto)
    }
}

func TestNewManagerRedisURL(t *testing.T) {
    if _, err := NewManager(""); err == nil { t.Fatalf("expected empty url error") }
    if _, err := NewManager("http://localhost"); err == nil { t.Fatalf("expected scheme error") }
}

func TestGameParticipants(t *testing.T) {
    g := &Game{LightID: "u1", LightName: "Alice", DarkID: "u2", DarkName: "Bob", Status: StatusActive}
    if g.Side("u1") != Light || g.Side("u2") != Dark || g.Side("u3") != "" {
        t.Fatalf("sides: %q %q %q", g.Side("u1"), g.Side("u2"), g.Side("u3"))
    }
    if g.PlayerName("u2") != "Bob" || g.PlayerName("u3") != "u3" {
        t.Fatalf("names: %q %q", g.PlayerName("u2"), g.PlayerName("u3"))
    }
    if g.Opponent("u1") != "u2" || g.Opponent("u3") != "" {
        t.Fatalf("opponent: %q %q", g.Opponent("u1"), g.Opponent("u3"))
    }
    if g.Over() {
        t.Fatalf("active game reported over")
    }
    g.Status = StatusResigned
    if !g.Over() {
        t.Fatalf("resigned game should be over")
    }
}
