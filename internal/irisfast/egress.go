package irisfast

import (
    "context"
    "errors"

    "go.uber.org/zap"
    "golang.org/x/time/rate"
)

// Egress 는 텍스트/이미지 응답 경로(HTTP 또는 WS)
type Egress interface {
    SendText(ctx context.Context, room, message string) error
    SendImage(ctx context.Context, room, imageBase64 string) error
}

type transportMode string

const (
    transportHTTP transportMode = "http"
    transportWS   transportMode = "ws"
    transportAuto transportMode = "auto"
)

// NewEgress 는 mode 에 맞는 Egress 를 만든다. auto 는 WS 연결 시 WS 를 쓰고
// 실패하면 한 번 HTTP 로 보낸다. dryrun 이면 WS 쓰기 대신 로그만 남긴다.
func NewEgress(mode string, dryrun bool, c *Client, ws *WebSocket, logger *zap.Logger) Egress {
    if logger == nil { logger = zap.NewNop() }
    h := &httpEgress{c: c}
    w := &wsEgress{ws: ws, dryrun: dryrun, logger: logger}
    switch transportMode(mode) {
    case transportWS:
        return w
    case transportAuto:
        return &autoEgress{ws: w, http: h, logger: logger}
    default:
        return h
    }
}

type httpEgress struct{ c *Client }

func (h *httpEgress) SendText(ctx context.Context, room, message string) error {
    if h == nil || h.c == nil { return errors.New("http egress not available") }
    return h.c.SendMessage(ctx, room, message)
}

func (h *httpEgress) SendImage(ctx context.Context, room, imageBase64 string) error {
    if h == nil || h.c == nil { return errors.New("http egress not available") }
    return h.c.SendImage(ctx, room, imageBase64)
}

type wsEgress struct {
    ws     *WebSocket
    dryrun bool
    logger *zap.Logger
}

func (w *wsEgress) SendText(ctx context.Context, room, message string) error {
    return w.send(ctx, replyText, room, message)
}

func (w *wsEgress) SendImage(ctx context.Context, room, imageBase64 string) error {
    return w.send(ctx, replyImage, room, imageBase64)
}

func (w *wsEgress) send(ctx context.Context, kind, room, data string) error {
    if w == nil || w.ws == nil { return errors.New("ws egress not available") }
    if w.dryrun {
        w.logger.Info("ws_egress_dryrun", zap.String("type", kind), zap.String("room", room), zap.Int("bytes", len(data)))
        return nil
    }
    return w.ws.WriteJSON(ctx, &ReplyRequest{Type: kind, Room: room, Data: data})
}

type autoEgress struct {
    ws     *wsEgress
    http   *httpEgress
    logger *zap.Logger
}

func (a *autoEgress) SendText(ctx context.Context, room, message string) error {
    if a.ws.ws.Connected() {
        err := a.ws.SendText(ctx, room, message)
        if err == nil { return nil }
        a.logger.Warn("egress_fallback", zap.String("type", replyText), zap.String("room", room), zap.Error(err))
    }
    return a.http.SendText(ctx, room, message)
}

func (a *autoEgress) SendImage(ctx context.Context, room, imageBase64 string) error {
    if a.ws.ws.Connected() {
        err := a.ws.SendImage(ctx, room, imageBase64)
        if err == nil { return nil }
        a.logger.Warn("egress_fallback", zap.String("type", replyImage), zap.String("room", room), zap.Error(err))
    }
    return a.http.SendImage(ctx, room, imageBase64)
}

// Throttle 은 송신 전에 limiter 토큰을 기다린다. limiter 가 nil 이면 e 를 그대로 돌려준다.
func Throttle(e Egress, limiter *rate.Limiter) Egress {
    if e == nil || limiter == nil { return e }
    return &throttledEgress{next: e, limiter: limiter}
}

type throttledEgress struct {
    next    Egress
    limiter *rate.Limiter
}

func (t *throttledEgress) SendText(ctx context.Context, room, message string) error {
    if err := t.limiter.Wait(ctx); err != nil { return err }
    return t.next.SendText(ctx, room, message)
}

func (t *throttledEgress) SendImage(ctx context.Context, room, imageBase64 string) error {
    if err := t.limiter.Wait(ctx); err != nil { return err }
    return t.next.SendImage(ctx, room, imageBase64)
}
