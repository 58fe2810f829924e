package main

import (
    "context"
    "errors"
    "strconv"
    "strings"
    "sync"
    "time"

    "github.com/park285/kakao-checkers-bot/internal/adapter/checkerspresenter"
    "github.com/park285/kakao-checkers-bot/internal/checkersbuilder"
    appcfg "github.com/park285/kakao-checkers-bot/internal/config"
    "github.com/park285/kakao-checkers-bot/internal/irisfast"
    "github.com/park285/kakao-checkers-bot/internal/pvp"
    "github.com/park285/kakao-checkers-bot/internal/pvpchan"
    "github.com/park285/kakao-checkers-bot/internal/pvpcheckers"
    svccheckers "github.com/park285/kakao-checkers-bot/internal/service/checkers"
    "go.uber.org/zap"
)

const commandTimeout = 20 * time.Second

type bot struct {
    cfg       *appcfg.AppConfig
    deps      *checkersbuilder.Deps
    presenter *checkerspresenter.Presenter
    formatter *checkerspresenter.Formatter
    logger    *zap.Logger

    sem chan struct{}
    wg  sync.WaitGroup
}

func newBot(cfg *appcfg.AppConfig, deps *checkersbuilder.Deps, presenter *checkerspresenter.Presenter, formatter *checkerspresenter.Formatter, logger *zap.Logger) *bot {
    if logger == nil { logger = zap.NewNop() }
    limit := cfg.MaxConcurrentGames
    if limit <= 0 { limit = 64 }
    return &bot{cfg: cfg, deps: deps, presenter: presenter, formatter: formatter, logger: logger, sem: make(chan struct{}, limit)}
}

// onMessage 는 WS 루프를 막지 않도록 명령을 고루틴으로 넘긴다. 동시 처리 수는 sem 으로 제한한다.
func (b *bot) onMessage(msg *irisfast.Message) {
    if msg == nil || strings.TrimSpace(msg.Msg) == "" { return }
    if len(b.cfg.AllowedRooms) > 0 && !roomAllowed(b.cfg.AllowedRooms, msg.Room) {
        b.logger.Debug("ignore_room", zap.String("room", msg.Room))
        return
    }
    if !strings.HasPrefix(strings.TrimSpace(msg.Msg), b.cfg.BotPrefix) { return }

    select {
    case b.sem <- struct{}{}:
    default:
        b.logger.Warn("command_dropped_busy", zap.String("room", msg.Room))
        return
    }
    b.wg.Add(1)
    go func() {
        defer func() {
            <-b.sem
            b.wg.Done()
        }()
        ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
        defer cancel()
        b.handle(ctx, msg)
    }()
}

func (b *bot) wait() { b.wg.Wait() }

func (b *bot) handle(ctx context.Context, msg *irisfast.Message) {
    raw := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(msg.Msg), b.cfg.BotPrefix))
    parts := strings.Fields(raw)
    if len(parts) == 0 {
        b.reply(ctx, msg.Room, b.formatter.Help())
        return
    }
    cmd := strings.ToLower(parts[0])
    args := parts[1:]

    switch cmd {
    case "help", "도움말":
        b.reply(ctx, msg.Room, b.formatter.Help())
    case "체커", "checkers":
        b.handleCheckers(ctx, msg, args)
    case "pvp":
        b.handlePvP(ctx, msg, args)
    case "채널", "channel":
        b.handleChannel(ctx, msg, args)
    }
}

func (b *bot) reply(ctx context.Context, room, text string) {
    if err := b.presenter.Text(ctx, room, text); err != nil {
        b.logger.Warn("reply_error", zap.String("room", room), zap.Error(err))
    }
}

func (b *bot) replyErr(ctx context.Context, room, op string, err error) {
    b.logger.Info("command_error", zap.String("op", op), zap.String("room", room), zap.Error(err))
    b.reply(ctx, room, b.formatter.Error(err))
}

func (b *bot) board(ctx context.Context, room, text string, state *svccheckers.SessionState) {
    if err := b.presenter.Board(ctx, room, text, checkerspresenter.ToDTOState(state)); err != nil {
        b.logger.Warn("board_send_error", zap.String("room", room), zap.Error(err))
    }
}

// 싱글 체커
func (b *bot) handleCheckers(ctx context.Context, msg *irisfast.Message, args []string) {
    if len(args) == 0 {
        b.reply(ctx, msg.Room, b.formatter.Help())
        return
    }
    svc := b.deps.Service
    meta := sessionMeta(msg)
    sub := strings.ToLower(strings.TrimSpace(args[0]))

    switch sub {
    case "시작", "start":
        mode := ""
        if len(args) >= 2 { mode = args[1] }
        state, err := svc.StartSession(ctx, meta, mode)
        resumed := errors.Is(err, svccheckers.ErrSessionInProgress)
        if err != nil && !resumed {
            b.replyErr(ctx, msg.Room, "start", err)
            return
        }
        b.board(ctx, msg.Room, b.formatter.Start(checkerspresenter.ToDTOState(state), resumed), state)
    case "현황", "status":
        state, err := svc.Status(ctx, meta)
        if err != nil { b.replyErr(ctx, msg.Room, "status", err); return }
        b.board(ctx, msg.Room, b.formatter.Status(checkerspresenter.ToDTOState(state)), state)
    case "무르기", "undo":
        state, err := svc.Undo(ctx, meta)
        if err != nil { b.replyErr(ctx, msg.Room, "undo", err); return }
        b.board(ctx, msg.Room, b.formatter.Undo(checkerspresenter.ToDTOState(state)), state)
    case "기권", "resign":
        state, err := svc.Resign(ctx, meta)
        if err != nil { b.replyErr(ctx, msg.Room, "resign", err); return }
        b.board(ctx, msg.Room, b.formatter.Resign(checkerspresenter.ToDTOState(state)), state)
    case "수", "moves":
        from := ""
        if len(args) >= 2 { from = args[1] }
        moves, err := svc.Moves(ctx, meta, from)
        if err != nil { b.replyErr(ctx, msg.Room, "moves", err); return }
        b.reply(ctx, msg.Room, b.formatter.Moves(moves))
    case "기록", "history":
        limit := b.cfg.CheckersHistoryLimit
        if len(args) >= 2 {
            if n, err := strconv.Atoi(args[1]); err == nil && n > 0 { limit = n }
        }
        games, err := svc.History(ctx, meta, limit)
        if err != nil { b.replyErr(ctx, msg.Room, "history", err); return }
        b.reply(ctx, msg.Room, b.formatter.History(checkerspresenter.ToDTOGames(games)))
    case "기보", "game":
        if len(args) < 2 { b.reply(ctx, msg.Room, "용법: "+b.cfg.BotPrefix+"체커 기보 <ID>"); return }
        id, err := strconv.ParseInt(strings.TrimPrefix(args[1], "#"), 10, 64)
        if err != nil { b.replyErr(ctx, msg.Room, "game", svccheckers.ErrGameNotFound); return }
        game, err := svc.Game(ctx, meta, id)
        if err != nil { b.replyErr(ctx, msg.Room, "game", err); return }
        b.reply(ctx, msg.Room, b.formatter.Game(checkerspresenter.ToDTOGame(game)))
    case "프로필", "profile":
        profile, err := svc.Profile(ctx, meta)
        if err != nil { b.replyErr(ctx, msg.Room, "profile", err); return }
        b.reply(ctx, msg.Room, b.formatter.Profile(checkerspresenter.ToDTOProfile(profile)))
    case "선호", "prefer":
        if len(args) < 2 { b.reply(ctx, msg.Room, "용법: "+b.cfg.BotPrefix+"체커 선호 <computer|local>"); return }
        profile, err := svc.UpdatePreferredMode(ctx, meta, args[1])
        if err != nil { b.replyErr(ctx, msg.Room, "prefer", err); return }
        b.reply(ctx, msg.Room, b.formatter.PreferredModeUpdated(checkerspresenter.ToDTOProfile(profile)))
    case "도움", "help":
        b.reply(ctx, msg.Room, b.formatter.Help())
    default:
        // 나머지는 수로 해석
        summary, err := svc.Play(ctx, meta, strings.Join(args, ""))
        if err != nil { b.replyErr(ctx, msg.Room, "play", err); return }
        dto := checkerspresenter.ToDTOMoveSummary(summary)
        if err := b.presenter.Board(ctx, msg.Room, b.formatter.Move(dto), dto.State); err != nil {
            b.logger.Warn("board_send_error", zap.String("room", msg.Room), zap.Error(err))
        }
    }
}

// PvP
func (b *bot) handlePvP(ctx context.Context, msg *irisfast.Message, args []string) {
    if len(args) == 0 {
        b.reply(ctx, msg.Room, "용법: "+b.cfg.BotPrefix+"pvp @상대 [백|흑] | pvp 수락 | pvp 거절 | pvp 현황 | pvp 기권 | pvp <수>")
        return
    }
    user := msg.UserID()
    if user == "" { b.replyErr(ctx, msg.Room, "pvp", errors.New("unknown user")); return }

    if strings.HasPrefix(args[0], "@") {
        b.startPvP(ctx, msg, user, args)
        return
    }

    mgr := b.deps.PvP
    switch sub := strings.ToLower(strings.TrimSpace(args[0])); sub {
    case "수락", "accept":
        b.acceptPvP(ctx, msg, user)
    case "거절", "decline":
        b.declinePvP(ctx, msg, user)
    case "현황", "status":
        g := b.activePvP(ctx, user, msg.Room)
        if g == nil { b.reply(ctx, msg.Room, b.formatter.NoPvPGame()); return }
        dto, err := mgr.ToDTO(ctx, g)
        if err != nil { b.replyErr(ctx, msg.Room, "pvp_status", err); return }
        if err := b.presenter.Board(ctx, msg.Room, "", dto); err != nil {
            b.logger.Warn("board_send_error", zap.String("room", msg.Room), zap.Error(err))
        }
    case "기권", "resign":
        g, _, err := mgr.ResignByRoom(ctx, user, msg.Room)
        if err != nil || g == nil {
            if err == nil { b.reply(ctx, msg.Room, b.formatter.NoPvPGame()); return }
            b.replyErr(ctx, msg.Room, "pvp_resign", err)
            return
        }
        b.finishPvP(ctx, g, user, b.formatter.PvPFinish(svccheckers.MethodResign, g.PlayerName(g.Winner)))
    default:
        before := b.activePvP(ctx, user, msg.Room)
        if before == nil { b.reply(ctx, msg.Room, b.formatter.NoPvPGame()); return }
        g, text, err := mgr.PlayMoveByRoom(ctx, user, msg.Room, strings.Join(args, ""))
        if err != nil { b.replyErr(ctx, msg.Room, "pvp_move", err); return }
        if g == nil || len(g.Moves) == len(before.Moves) {
            // 적용되지 않은 수는 요청한 방에만 안내
            b.reply(ctx, msg.Room, text)
            return
        }
        if g.Status == pvpcheckers.StatusFinished {
            text += "\n" + b.formatter.PvPFinish(svccheckers.MethodCaptureAll, g.PlayerName(g.Winner))
            b.finishPvP(ctx, g, user, text)
            return
        }
        b.broadcastPvP(ctx, g, user, text)
    }
}

// startPvP 는 신청을 등록한다. 자동 수락이면 바로 대국을 연다.
func (b *bot) startPvP(ctx context.Context, msg *irisfast.Message, challenger string, args []string) {
    target := strings.TrimSpace(strings.TrimPrefix(args[0], "@"))
    color := pvp.ColorRandom
    if len(args) >= 2 { color = pvp.ParseColorChoice(args[1]) }

    if g, _ := b.deps.PvP.GetActiveGameByUserInRoom(ctx, challenger, msg.Room); g != nil {
        b.replyErr(ctx, msg.Room, "pvp_start", pvpchan.ErrPlayerBusyInRoom)
        return
    }
    name := msg.SenderName(challenger)
    ch, err := b.deps.Challenges.CreateChallenge(msg.Room, challenger, name, target, color, b.cfg.PvPAutoAccept)
    if err != nil { b.replyErr(ctx, msg.Room, "pvp_challenge", err); return }
    if ch.Status != pvp.StatusAccepted {
        b.reply(ctx, msg.Room, b.formatter.PvPChallenge(ch.ChallengerName, ch.TargetID))
        return
    }
    b.openPvP(ctx, ch, target)
}

// acceptPvP 는 받은 신청을 수락한 방을 ResolveRoom 으로 기록하고 대국을 연다.
func (b *bot) acceptPvP(ctx context.Context, msg *irisfast.Message, user string) {
    if g, _ := b.deps.PvP.GetActiveGameByUserInRoom(ctx, user, msg.Room); g != nil {
        b.replyErr(ctx, msg.Room, "pvp_accept", pvpchan.ErrPlayerBusyInRoom)
        return
    }
    ch, err := b.deps.Challenges.Accept(user, msg.Room)
    if err != nil { b.replyErr(ctx, msg.Room, "pvp_accept", err); return }
    b.openPvP(ctx, ch, msg.SenderName(user))
}

func (b *bot) declinePvP(ctx context.Context, msg *irisfast.Message, user string) {
    ch, err := b.deps.Challenges.Decline(user, msg.Room)
    if err != nil { b.replyErr(ctx, msg.Room, "pvp_decline", err); return }
    text := b.formatter.PvPDeclined(ch.ChallengerName, msg.SenderName(user))
    if err := b.presenter.Broadcast(ctx, []string{ch.OriginRoom, ch.ResolveRoom}, text, nil); err != nil {
        b.logger.Warn("pvp_decline_notify_error", zap.Error(err))
    }
}

func (b *bot) openPvP(ctx context.Context, ch *pvp.Challenge, targetName string) {
    g, err := b.deps.PvP.CreateGameFromChallenge(ctx, ch.OriginRoom, ch.ResolveRoom, ch.ChallengerID, ch.ChallengerName, ch.TargetID, targetName, string(ch.Color))
    if err != nil { b.replyErr(ctx, ch.ResolveRoom, "pvp_create", err); return }
    b.broadcastPvP(ctx, g, ch.ChallengerID, b.formatter.PvPStart(g.LightName, g.DarkName))
}

func (b *bot) activePvP(ctx context.Context, user, room string) *pvpcheckers.Game {
    if g, err := b.deps.PvP.GetActiveGameByUserInRoom(ctx, user, room); err == nil && g != nil { return g }
    return nil
}

// pvpRooms 는 대국이 열린 방, 수락된 방, 채널로 묶인 방 전체
func (b *bot) pvpRooms(ctx context.Context, g *pvpcheckers.Game, user string) []string {
    rooms := []string{g.OriginRoom, g.ResolveRoom}
    if extra, err := b.deps.Channels.RoomsByUserAndGame(ctx, user, g.ID); err == nil {
        rooms = append(rooms, extra...)
    }
    return rooms
}

func (b *bot) broadcastPvP(ctx context.Context, g *pvpcheckers.Game, user, text string) {
    dto, err := b.deps.PvP.ToDTO(ctx, g)
    if err != nil {
        b.logger.Warn("pvp_render_error", zap.String("game_id", g.ID), zap.Error(err))
        dto = nil
    }
    if err := b.presenter.Broadcast(ctx, b.pvpRooms(ctx, g, user), text, dto); err != nil {
        b.logger.Warn("pvp_broadcast_error", zap.String("game_id", g.ID), zap.Error(err))
    }
}

func (b *bot) finishPvP(ctx context.Context, g *pvpcheckers.Game, user, text string) {
    b.broadcastPvP(ctx, g, user, text)
    if err := b.deps.Channels.Finish(ctx, g.ID); err != nil {
        b.logger.Warn("channel_finish_error", zap.String("game_id", g.ID), zap.Error(err))
    }
}

// 채널(로비)
func (b *bot) handleChannel(ctx context.Context, msg *irisfast.Message, args []string) {
    usage := "용법: " + b.cfg.BotPrefix + "채널 만들기 [백|흑] | 참가 <코드> | 목록 | 닫기 <코드>"
    if len(args) == 0 { b.reply(ctx, msg.Room, usage); return }
    user := msg.UserID()
    if user == "" { b.replyErr(ctx, msg.Room, "channel", errors.New("unknown user")); return }
    name := msg.SenderName(user)
    ch := b.deps.Channels

    switch strings.ToLower(args[0]) {
    case "만들기", "make":
        color := pvpchan.ColorRandom
        if len(args) >= 2 { color = pvpchan.ColorChoice(pvp.ParseColorChoice(args[1])) }
        res, err := ch.Make(ctx, msg.Room, user, name, color)
        if err != nil { b.replyErr(ctx, msg.Room, "channel_make", err); return }
        b.reply(ctx, msg.Room, b.formatter.ChannelMade(res.Code))
    case "참가", "join":
        if len(args) < 2 { b.reply(ctx, msg.Room, usage); return }
        pref := pvpchan.ColorRandom
        if len(args) >= 3 { pref = pvpchan.ColorChoice(pvp.ParseColorChoice(args[2])) }
        res, err := ch.Join(ctx, msg.Room, args[1], user, name, pref)
        if err != nil { b.replyErr(ctx, msg.Room, "channel_join", err); return }
        if !res.Started {
            b.reply(ctx, msg.Room, b.formatter.ChannelWaiting(res.Meta.ID))
            return
        }
        g, err := b.deps.PvP.LoadGame(ctx, res.GameID)
        if err != nil || g == nil { b.replyErr(ctx, msg.Room, "channel_game", err); return }
        b.broadcastPvP(ctx, g, user, b.formatter.PvPStart(g.LightName, g.DarkName))
    case "목록", "list":
        list, err := ch.ListLobby(ctx)
        if err != nil { b.replyErr(ctx, msg.Room, "channel_list", err); return }
        b.reply(ctx, msg.Room, b.formatter.Lobby(list))
    case "닫기", "close":
        if len(args) < 2 { b.reply(ctx, msg.Room, usage); return }
        code := strings.ToUpper(args[1])
        if err := ch.Close(ctx, code, user); err != nil { b.replyErr(ctx, msg.Room, "channel_close", err); return }
        b.reply(ctx, msg.Room, b.formatter.ChannelClosed(code))
    default:
        b.reply(ctx, msg.Room, usage)
    }
}

func sessionMeta(msg *irisfast.Message) svccheckers.SessionMeta {
    uid := msg.UserID()
    name := msg.SenderName("player")
    if uid == "" { uid = name }
    return svccheckers.SessionMeta{
        SessionID: strings.TrimSpace(msg.Room) + ":" + uid,
        Room:      msg.Room,
        Sender:    name,
    }
}

func roomAllowed(allowed []string, room string) bool {
    for _, r := range allowed {
        if strings.EqualFold(strings.TrimSpace(r), strings.TrimSpace(room)) { return true }
    }
    return false
}
