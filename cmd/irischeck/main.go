package main

import (
	"context"
	"flag"
	"log"
	"strings"
	"time"

	"go.uber.org/zap"

	appcfg "github.com/park285/kakao-checkers-bot/internal/config"
	"github.com/park285/kakao-checkers-bot/internal/irisfast"
	"github.com/park285/kakao-checkers-bot/internal/obslog"
)

// irischeck 는 Iris /config, WS 수신, 응답 경로를 짧게 점검한다.
func main() {
	listen := flag.Duration("listen", 10*time.Second, "WS 메시지를 관찰할 시간")
	room := flag.String("room", "", "지정하면 해당 방으로 점검 메시지를 보낸다")
	dryrun := flag.Bool("dryrun", true, "WS 송신 시 실제로 보내지 않고 로그만 남긴다")
	flag.Parse()

	if err := obslog.InitFromEnv(); err != nil {
		log.Printf("logger init error: %v", err)
	}
	defer obslog.Sync()
	logger := obslog.Named("irischeck")

	cfg := appcfg.FromEnv()
	if strings.TrimSpace(cfg.IrisBaseURL) == "" {
		logger.Fatal("IRIS_BASE_URL is required")
	}

	client := irisfast.NewClient(cfg.IrisBaseURL,
		irisfast.WithHeaderProvider(cfg.IrisHeaders),
		irisfast.WithTimeout(8*time.Second),
		irisfast.WithLogger(logger),
	)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	icfg, err := client.GetConfig(ctx)
	if err != nil {
		logger.Warn("config_error", zap.Error(err))
	} else {
		logger.Info("config_ok",
			zap.Int("port", icfg.Port),
			zap.Int("polling", icfg.PollingSpeed),
			zap.Int("rate", icfg.MessageRate),
			zap.String("endpoint", icfg.WebserverEndpoint),
		)
	}

	if cfg.IrisWSURL == "" {
		logger.Info("IRIS_WS_URL not set; skipping WS check")
		return
	}

	ws := irisfast.NewWebSocket(cfg.IrisWSURL, 5, time.Second)
	ws.SetHeaderProvider(cfg.IrisHeaders)
	ws.OnStateChange(func(state irisfast.WebSocketState) {
		logger.Info("ws_state", zap.String("state", string(state)))
	})
	ws.OnMessage(func(msg *irisfast.Message) {
		logger.Info("ws_message",
			zap.String("room", msg.Room),
			zap.String("from", msg.SenderName("?")),
			zap.String("user_id", msg.UserID()),
			zap.String("text", msg.Msg),
		)
	})

	cctx, ccancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer ccancel()
	if err := ws.Connect(cctx); err != nil {
		logger.Warn("ws_connect_error", zap.Error(err))
		return
	}

	if *room != "" {
		egress := irisfast.NewEgress(cfg.EgressMode, *dryrun, client, ws, logger.Named("egress"))
		sctx, scancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := egress.SendText(sctx, *room, "irischeck ping"); err != nil {
			logger.Warn("send_error", zap.String("room", *room), zap.Error(err))
		}
		scancel()
	}

	t := time.NewTimer(*listen)
	<-t.C

	_ = ws.Close(context.Background())
}
