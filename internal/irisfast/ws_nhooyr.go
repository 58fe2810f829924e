package irisfast

import (
    "context"
    "errors"
    "net/http"
    "strings"
    "sync"
    "time"

    "nhooyr.io/websocket"
    "nhooyr.io/websocket/wsjson"
)

type callbackEntry struct {
    id       int
    callback MessageCallback
}

type stateCallbackEntry struct {
    id       int
    callback StateCallback
}

var errWSNotConnected = errors.New("ws not connected")

// WebSocket 은 Iris 이벤트 스트림. 끊기면 backoff 로 재접속한다.
type WebSocket struct {
    wsURL string

    conn   *websocket.Conn
    connM  sync.Mutex
    writeM sync.Mutex

    state  WebSocketState
    stateM sync.RWMutex

    msgCbs   []callbackEntry
    stateCbs []stateCallbackEntry
    nextCbID int
    cbM      sync.RWMutex

    maxReconnectAttempts int
    reconnectDelay       time.Duration
    pingInterval         time.Duration

    stopCh   chan struct{}
    stopOnce sync.Once
    wg       sync.WaitGroup

    rootCtx    context.Context
    rootCancel context.CancelFunc

    headerProvider HeaderProvider
}

func NewWebSocket(wsURL string, maxReconnectAttempts int, reconnectDelay time.Duration) *WebSocket {
    rootCtx, rootCancel := context.WithCancel(context.Background())
    return &WebSocket{
        wsURL:                wsURL,
        state:                WSStateDisconnected,
        maxReconnectAttempts: maxReconnectAttempts,
        reconnectDelay:       reconnectDelay,
        pingInterval:         30 * time.Second,
        stopCh:               make(chan struct{}),
        rootCtx:              rootCtx,
        rootCancel:           rootCancel,
    }
}

// SetHeaderProvider 는 핸드셰이크 헤더(X-User-* 등)를 주입한다.
func (ws *WebSocket) SetHeaderProvider(h HeaderProvider) { ws.headerProvider = h }

func (ws *WebSocket) State() WebSocketState {
    ws.stateM.RLock()
    defer ws.stateM.RUnlock()
    return ws.state
}

func (ws *WebSocket) Connected() bool {
    if ws == nil { return false }
    return ws.State() == WSStateConnected && ws.currentConn() != nil
}

func (ws *WebSocket) Connect(ctx context.Context) error {
    switch ws.State() {
    case WSStateConnected, WSStateConnecting:
        return nil
    }
    ws.setState(WSStateConnecting)

    dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
    defer cancel()
    if err := ws.dial(dialCtx); err != nil {
        ws.setState(WSStateFailed)
        ws.scheduleReconnect()
        return err
    }
    return nil
}

func (ws *WebSocket) dial(ctx context.Context) error {
    conn, _, err := websocket.Dial(ctx, ws.wsURL, &websocket.DialOptions{
        CompressionMode: websocket.CompressionNoContextTakeover,
        HTTPHeader:      ws.buildHeaders(),
    })
    if err != nil { return err }

    ws.connM.Lock()
    ws.conn = conn
    ws.connM.Unlock()
    ws.setState(WSStateConnected)

    ws.wg.Add(2)
    go ws.listen(conn)
    go ws.pingLoop(conn)
    return nil
}

// WriteJSON 은 프레임 하나를 보낸다. 동시 쓰기는 직렬화된다.
func (ws *WebSocket) WriteJSON(ctx context.Context, v any) error {
    conn := ws.currentConn()
    if conn == nil || ws.State() != WSStateConnected { return errWSNotConnected }
    if _, ok := ctx.Deadline(); !ok {
        var cancel context.CancelFunc
        ctx, cancel = context.WithTimeout(ctx, 5*time.Second)
        defer cancel()
    }
    ws.writeM.Lock()
    defer ws.writeM.Unlock()
    return wsjson.Write(ctx, conn, v)
}

func (ws *WebSocket) listen(conn *websocket.Conn) {
    defer ws.wg.Done()
    for {
        var msg Message
        if err := wsjson.Read(ws.rootCtx, conn, &msg); err != nil {
            if ws.isStopping() { return }
            ws.dropConn(conn, websocket.StatusGoingAway, "reconnect")
            return
        }
        ws.cbM.RLock()
        callbacks := append([]callbackEntry(nil), ws.msgCbs...)
        ws.cbM.RUnlock()
        for _, entry := range callbacks {
            if entry.callback != nil {
                entry.callback(&msg)
            }
        }
    }
}

func (ws *WebSocket) pingLoop(conn *websocket.Conn) {
    defer ws.wg.Done()
    t := time.NewTicker(ws.pingInterval)
    defer t.Stop()
    failures := 0
    for {
        select {
        case <-ws.stopCh:
            return
        case <-t.C:
            if ws.currentConn() != conn { return }
            ctx, cancel := context.WithTimeout(ws.rootCtx, 3*time.Second)
            err := conn.Ping(ctx)
            cancel()
            if err == nil {
                failures = 0
                continue
            }
            failures++
            if failures >= 2 {
                if ws.isStopping() { return }
                ws.dropConn(conn, websocket.StatusGoingAway, "ping failure")
                return
            }
        }
    }
}

// dropConn 은 현재 연결이 conn 일 때만 끊고 재접속을 건다.
func (ws *WebSocket) dropConn(conn *websocket.Conn, code websocket.StatusCode, reason string) {
    ws.connM.Lock()
    if ws.conn != conn {
        ws.connM.Unlock()
        return
    }
    ws.conn = nil
    ws.connM.Unlock()
    _ = conn.Close(code, reason)
    ws.setState(WSStateDisconnected)
    ws.scheduleReconnect()
}

func (ws *WebSocket) scheduleReconnect() {
    if ws.maxReconnectAttempts <= 0 || ws.isStopping() { return }
    ws.setState(WSStateReconnecting)

    go func() {
        for attempt := 1; attempt <= ws.maxReconnectAttempts; attempt++ {
            select {
            case <-ws.stopCh:
                return
            case <-time.After(ws.reconnectDelay + backoffDuration(attempt)):
            }
            dialCtx, cancel := context.WithTimeout(ws.rootCtx, 10*time.Second)
            err := ws.dial(dialCtx)
            cancel()
            if err == nil { return }
        }
        ws.setState(WSStateFailed)
    }()
}

func (ws *WebSocket) OnMessage(cb MessageCallback) int {
    ws.cbM.Lock()
    defer ws.cbM.Unlock()
    ws.nextCbID++
    ws.msgCbs = append(ws.msgCbs, callbackEntry{id: ws.nextCbID, callback: cb})
    return ws.nextCbID
}

func (ws *WebSocket) RemoveMessageCallback(id int) {
    ws.cbM.Lock()
    defer ws.cbM.Unlock()
    for i, cb := range ws.msgCbs {
        if cb.id == id {
            ws.msgCbs = append(ws.msgCbs[:i], ws.msgCbs[i+1:]...)
            return
        }
    }
}

func (ws *WebSocket) OnStateChange(cb StateCallback) int {
    ws.cbM.Lock()
    defer ws.cbM.Unlock()
    ws.nextCbID++
    ws.stateCbs = append(ws.stateCbs, stateCallbackEntry{id: ws.nextCbID, callback: cb})
    return ws.nextCbID
}

func (ws *WebSocket) RemoveStateCallback(id int) {
    ws.cbM.Lock()
    defer ws.cbM.Unlock()
    for i, cb := range ws.stateCbs {
        if cb.id == id {
            ws.stateCbs = append(ws.stateCbs[:i], ws.stateCbs[i+1:]...)
            return
        }
    }
}

func (ws *WebSocket) setState(state WebSocketState) {
    ws.stateM.Lock()
    changed := ws.state != state
    ws.state = state
    ws.stateM.Unlock()
    if !changed { return }

    ws.cbM.RLock()
    callbacks := append([]stateCallbackEntry(nil), ws.stateCbs...)
    ws.cbM.RUnlock()
    for _, entry := range callbacks {
        if entry.callback != nil {
            entry.callback(state)
        }
    }
}

func (ws *WebSocket) Close(ctx context.Context) error {
    ws.stopOnce.Do(func() { close(ws.stopCh) })

    ws.connM.Lock()
    conn := ws.conn
    ws.conn = nil
    ws.connM.Unlock()
    if conn != nil {
        _ = conn.Close(websocket.StatusNormalClosure, "close")
    }
    ws.rootCancel()

    done := make(chan struct{})
    go func() {
        ws.wg.Wait()
        close(done)
    }()
    select {
    case <-ctx.Done():
        return ctx.Err()
    case <-done:
        ws.setState(WSStateDisconnected)
        return nil
    }
}

func (ws *WebSocket) currentConn() *websocket.Conn {
    ws.connM.Lock()
    defer ws.connM.Unlock()
    return ws.conn
}

func (ws *WebSocket) isStopping() bool {
    select {
    case <-ws.stopCh:
        return true
    default:
        return false
    }
}

func (ws *WebSocket) buildHeaders() http.Header {
    hdr := http.Header{}
    if ws.headerProvider == nil { return hdr }
    for k, v := range ws.headerProvider() {
        if strings.TrimSpace(k) == "" || strings.TrimSpace(v) == "" { continue }
        hdr.Set(k, v)
    }
    return hdr
}
