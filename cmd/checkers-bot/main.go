package main

import (
    "context"
    "log"
    "os"
    "os/signal"
    "syscall"
    "time"

    "github.com/park285/kakao-checkers-bot/internal/adapter/checkerspresenter"
    "github.com/park285/kakao-checkers-bot/internal/checkersbuilder"
    appcfg "github.com/park285/kakao-checkers-bot/internal/config"
    "github.com/park285/kakao-checkers-bot/internal/irisfast"
    "github.com/park285/kakao-checkers-bot/internal/msgcat"
    "github.com/park285/kakao-checkers-bot/internal/obslog"
    "go.uber.org/zap"
    "golang.org/x/time/rate"
)

func main() {
    if err := obslog.InitFromEnv(); err != nil {
        log.Printf("logger init error: %v (falling back to default)", err)
    }
    defer obslog.Sync()
    logger := obslog.L()

    cfg, err := appcfg.Load()
    if err != nil {
        logger.Fatal("config error", zap.Error(err))
    }

    cat, err := msgcat.New(cfg.MessagesDir)
    if err != nil {
        logger.Fatal("message catalog error", zap.Error(err))
    }

    client := irisfast.NewClient(cfg.IrisBaseURL, irisfast.WithHeaderProvider(cfg.IrisHeaders), irisfast.WithLogger(obslog.Named("iris")))
    ws := irisfast.NewWebSocket(cfg.IrisWSURL, 5, time.Second)
    ws.SetHeaderProvider(cfg.IrisHeaders)
    ws.OnStateChange(func(state irisfast.WebSocketState) {
        logger.Info("ws_state", zap.String("state", string(state)))
    })
    egress := irisfast.NewEgress(cfg.EgressMode, false, client, ws, obslog.Named("egress"))
    if cfg.EgressRate > 0 {
        egress = irisfast.Throttle(egress, rate.NewLimiter(rate.Limit(cfg.EgressRate), cfg.EgressBurst))
    }

    initCtx, initCancel := context.WithTimeout(context.Background(), 15*time.Second)
    deps, err := checkersbuilder.New(initCtx, cfg, obslog.Named("checkers"))
    initCancel()
    if err != nil {
        logger.Fatal("checkers init error", zap.Error(err))
    }

    b := newBot(cfg, deps,
        checkerspresenter.NewPresenter(egress),
        checkerspresenter.NewFormatter(prefixProvider{prefix: cfg.BotPrefix}, cat),
        logger,
    )
    ws.OnMessage(b.onMessage)

    cctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
    if err := ws.Connect(cctx); err != nil {
        cancel()
        logger.Fatal("ws connect error", zap.Error(err))
    }
    cancel()
    logger.Info("checkers_bot_started", zap.String("prefix", cfg.BotPrefix), zap.String("egress", cfg.EgressMode))

    sigCh := make(chan os.Signal, 1)
    signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
    <-sigCh

    shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
    defer shutdownCancel()
    _ = ws.Close(shutdownCtx)
    b.wait()
    if err := deps.Close(); err != nil {
        logger.Warn("shutdown error", zap.Error(err))
    }
}

type prefixProvider struct{ prefix string }

func (p prefixProvider) Prefix() string { return p.prefix }
