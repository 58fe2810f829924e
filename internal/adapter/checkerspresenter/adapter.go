package checkerspresenter

import (
    "errors"

    "github.com/park285/kakao-checkers-bot/internal/domain"
    "github.com/park285/kakao-checkers-bot/internal/pvp"
    "github.com/park285/kakao-checkers-bot/internal/pvpchan"
    svc "github.com/park285/kakao-checkers-bot/internal/service/checkers"
    "github.com/park285/kakao-checkers-bot/pkg/checkersdto"
)

func ToDTOState(s *svc.SessionState) *checkersdto.SessionState {
    if s == nil {
        return nil
    }
    return &checkersdto.SessionState{
        SessionUUID: s.SessionUUID,
        Mode:        s.Mode.String(),
        Moves:       append([]string(nil), s.Moves...),
        Turn:        s.Turn.String(),
        BoardImage:  append([]byte(nil), s.BoardImage...),
        MoveCount:   s.MoveCount,
        Material:    toDTOMaterial(s.Material),
        Profile:     ToDTOProfile(s.Profile),
        RatingDelta: s.RatingDelta,
        Outcome:     outcomeToken(s),
        OutcomeMeta: s.ResultMethod,
        Stalled:     s.Stalled,
        PlayerName:  s.PlayerName,
    }
}

// outcomeToken 은 플레이어 관점 결과(win/loss) 또는 진영 결과(light_wins/dark_wins)
func outcomeToken(s *svc.SessionState) string {
    if s.Result != "" {
        return s.Result
    }
    return s.Outcome.String()
}

func ToDTOMoveSummary(m *svc.MoveSummary) *checkersdto.MoveSummary {
    if m == nil {
        return nil
    }
    return &checkersdto.MoveSummary{
        State:        ToDTOState(m.State),
        PlayerMove:   m.PlayerMove,
        ComputerMove: m.ComputerMove,
        Captured:     m.Captured,
        Promoted:     m.Promoted,
        Finished:     m.Finished,
        GameID:       m.GameID,
        Profile:      ToDTOProfile(m.Profile),
        RatingDelta:  m.RatingDelta,
        Material:     toDTOMaterial(m.Material),
    }
}

func toDTOMaterial(m svc.MaterialScore) checkersdto.MaterialScore {
    return checkersdto.MaterialScore{Light: m.Light, Dark: m.Dark, LightKings: m.LightKings, DarkKings: m.DarkKings}
}

func ToDTOProfile(p *domain.CheckersProfile) *checkersdto.CheckersProfile {
    if p == nil {
        return nil
    }
    return &checkersdto.CheckersProfile{
        PlayerHash:    p.PlayerHash,
        RoomHash:      p.RoomHash,
        PreferredMode: p.PreferredMode,
        Rating:        p.Rating,
        GamesPlayed:   p.GamesPlayed,
        Wins:          p.Wins,
        Losses:        p.Losses,
        Draws:         p.Draws,
        Streak:        p.Streak,
        StreakType:    p.StreakType,
        LastMode:      p.LastMode,
        LastPlayedAt:  p.LastPlayedAt,
        UpdatedAt:     p.UpdatedAt,
        CreatedAt:     p.CreatedAt,
    }
}

func ToDTOGames(list []*domain.CheckersGame) []*checkersdto.CheckersGame {
    out := make([]*checkersdto.CheckersGame, 0, len(list))
    for _, g := range list {
        if dto := ToDTOGame(g); dto != nil {
            out = append(out, dto)
        }
    }
    return out
}

func ToDTOGame(g *domain.CheckersGame) *checkersdto.CheckersGame {
    if g == nil {
        return nil
    }
    return &checkersdto.CheckersGame{
        ID:           g.ID,
        SessionUUID:  g.SessionUUID,
        PlayerHash:   g.PlayerHash,
        RoomHash:     g.RoomHash,
        Mode:         g.Mode,
        Result:       g.Result,
        ResultMethod: g.ResultMethod,
        Moves:        append([]string(nil), g.Moves...),
        PDN:          g.PDN,
        StartedAt:    g.StartedAt,
        EndedAt:      g.EndedAt,
        Duration:     g.Duration,
        Captures:     g.Captures,
        Promotions:   g.Promotions,
    }
}

var errorCodes = []struct {
    err  error
    code string
}{
    {svc.ErrSessionNotFound, checkersdto.CodeNoSession},
    {svc.ErrInvalidMove, checkersdto.CodeInvalidMove},
    {svc.ErrNotYourPiece, checkersdto.CodeNotYourPiece},
    {svc.ErrNotYourTurn, checkersdto.CodeNotYourTurn},
    {svc.ErrRoomNotAllowed, checkersdto.CodeRoomNotAllowed},
    {svc.ErrUnknownMode, checkersdto.CodeUnknownMode},
    {svc.ErrUndoNotAvailable, checkersdto.CodeUndoUnavailable},
    {svc.ErrGameNotFound, checkersdto.CodeGameNotFound},
    {svc.ErrProfileNotFound, checkersdto.CodeProfileNotFound},
    {pvpchan.ErrPlayerBusyInRoom, checkersdto.CodeBusyInRoom},
    {pvpchan.ErrCreatorHasLobby, checkersdto.CodeHasLobby},
    {pvpchan.ErrChannelGone, checkersdto.CodeChannelGone},
    {pvpchan.ErrChannelActive, checkersdto.CodeChannelActive},
    {pvpchan.ErrFull, checkersdto.CodeChannelFull},
    {pvpchan.ErrNotCreator, checkersdto.CodeNotCreator},
    {pvp.ErrSelfChallenge, checkersdto.CodeSelfChallenge},
    {pvp.ErrAlreadyPending, checkersdto.CodeAlreadyPending},
    {pvp.ErrNoPendingForUser, checkersdto.CodeNoChallenge},
}

// ToDomainError 는 에러를 응답 코드로 옮긴다. 모르는 에러는 재시도 가능한 generic 으로 본다.
func ToDomainError(err error) checkersdto.DomainError {
    var dto checkersdto.DomainError
    if errors.As(err, &dto) {
        return dto
    }
    for _, m := range errorCodes {
        if errors.Is(err, m.err) {
            return checkersdto.DomainError{Code: m.code}
        }
    }
    return checkersdto.DomainError{Code: checkersdto.CodeGeneric, Retryable: err != nil}
}
