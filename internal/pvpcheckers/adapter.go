package pvpcheckers

import (
    "context"
    "fmt"

    corecheckers "github.com/park285/kakao-checkers-bot/internal/checkers"
    svccheckers "github.com/park285/kakao-checkers-bot/internal/service/checkers"
    "github.com/park285/kakao-checkers-bot/pkg/checkersdto"
)

// ToDTO 는 공용 렌더러로 보드를 그려 presenter 용 SessionState 를 만든다.
func (m *Manager) ToDTO(ctx context.Context, g *Game) (*checkersdto.SessionState, error) {
    if m == nil || g == nil { return nil, nil }
    session, err := reconstruct(g.Moves)
    if err != nil { return nil, fmt.Errorf("reconstruct failed: %w", err) }

    board := session.Board()
    material := svccheckers.MaterialOf(board)
    opts := svccheckers.RenderOptions{
        HUDHeader: fmt.Sprintf("%s vs %s", asciiName(g.LightName, "Light"), asciiName(g.DarkName, "Dark")),
        HUDTurn:   hudTurn(g, session),
        Material:  material,
    }
    if last, ok := session.LastRecord(); ok {
        opts.Highlight = &svccheckers.MoveHighlight{From: last.Move.From, To: last.Move.To, Mover: last.Color}
    }
    png, err := m.renderer.RenderPNG(ctx, &board, opts)
    if err != nil { return nil, err }

    return &checkersdto.SessionState{
        SessionUUID: g.ID,
        Mode:        "pvp",
        Moves:       append([]string(nil), g.Notation...),
        Turn:        string(g.Turn),
        BoardImage:  png,
        MoveCount:   len(g.Moves),
        Material: checkersdto.MaterialScore{
            Light:      material.Light,
            Dark:       material.Dark,
            LightKings: material.LightKings,
            DarkKings:  material.DarkKings,
        },
        Outcome:      g.Outcome,
        OutcomeMeta:  string(g.Status),
        Stalled:      session.Stalled(),
        PlayerName:   g.LightName,
        OpponentName: g.DarkName,
    }, nil
}

func hudTurn(g *Game, session *corecheckers.Session) string {
    if g.Status != StatusActive {
        return "Game over"
    }
    turnNumber := len(g.Moves)/2 + 1
    if session.Turn() == corecheckers.Light {
        return fmt.Sprintf("Light to move - %d", turnNumber)
    }
    return fmt.Sprintf("Dark to move - %d", turnNumber)
}

// asciiName 은 비트맵 폰트로 그릴 수 없는 이름을 진영 이름으로 바꾼다.
func asciiName(name, fallback string) string {
    if name == "" {
        return fallback
    }
    for _, r := range name {
        if r < 0x20 || r > 0x7e {
            return fallback
        }
    }
    return name
}
