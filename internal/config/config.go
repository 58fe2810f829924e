package config

import (
	"errors"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type AppConfig struct {
	IrisBaseURL string
	IrisWSURL   string
	EgressMode  string

	// 초당 송신 수와 버스트. 0 이면 제한 없음.
	EgressRate  float64
	EgressBurst int

	BotPrefix string

	XUserID    string
	XUserEmail string
	XSessionID string

	RedisURL    string
	DatabaseURL string

	MaxConcurrentGames int

	AllowedRooms []string
	MessagesDir  string

	CheckersDefaultMode   string
	CheckersSessionTTLSec int
	CheckersHistoryLimit  int
	CheckersRandomSeed    int64

	// PvP 신청을 상대 응답 없이 바로 시작할지, 응답 대기 시간(초)
	PvPAutoAccept      bool
	PvPChallengeTTLSec int
}

// Load 는 .env(있으면)와 환경변수를 읽고 봇 실행에 필요한 값을 검증한다.
func Load() (*AppConfig, error) {
	_ = godotenv.Load()
	cfg := FromEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FromEnv 는 검증 없이 환경변수만 해석한다. 로컬 CLI 가 사용한다.
func FromEnv() *AppConfig {
	cfg := &AppConfig{
		EgressMode:            "auto",
		EgressRate:            5,
		EgressBurst:           10,
		MaxConcurrentGames:    200,
		CheckersDefaultMode:   "computer",
		CheckersSessionTTLSec: 3600,
		CheckersHistoryLimit:  10,
		PvPChallengeTTLSec:    300,
	}

	cfg.IrisBaseURL = strings.TrimSpace(os.Getenv("IRIS_BASE_URL"))
	cfg.IrisWSURL = strings.TrimSpace(os.Getenv("IRIS_WS_URL"))
	cfg.BotPrefix = strings.TrimSpace(os.Getenv("BOT_PREFIX"))

	cfg.XUserID = strings.TrimSpace(os.Getenv("X_USER_ID"))
	cfg.XUserEmail = strings.TrimSpace(os.Getenv("X_USER_EMAIL"))
	cfg.XSessionID = strings.TrimSpace(os.Getenv("X_SESSION_ID"))

	cfg.RedisURL = strings.TrimSpace(os.Getenv("REDIS_URL"))
	cfg.DatabaseURL = strings.TrimSpace(os.Getenv("DATABASE_URL"))
	cfg.MessagesDir = strings.TrimSpace(os.Getenv("MESSAGES_DIR"))

	cfg.AllowedRooms = splitList(os.Getenv("ALLOWED_ROOMS"))
	if len(cfg.AllowedRooms) == 0 {
		cfg.AllowedRooms = splitList(os.Getenv("CHECKERS_ALLOWED_ROOMS"))
	}

	if v := strings.ToLower(strings.TrimSpace(os.Getenv("EGRESS_MODE"))); v == "http" || v == "ws" || v == "auto" {
		cfg.EgressMode = v
	}
	if v := strings.TrimSpace(os.Getenv("EGRESS_RATE")); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f >= 0 {
			cfg.EgressRate = f
		}
	}
	if v := strings.TrimSpace(os.Getenv("EGRESS_BURST")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.EgressBurst = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("MAX_CONCURRENT_GAMES")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.MaxConcurrentGames = n
		}
	}

	if v := strings.ToLower(strings.TrimSpace(os.Getenv("CHECKERS_DEFAULT_MODE"))); v == "computer" || v == "local" {
		cfg.CheckersDefaultMode = v
	}
	if v := strings.TrimSpace(os.Getenv("CHECKERS_SESSION_TTL")); v != "" { // seconds
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.CheckersSessionTTLSec = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("CHECKERS_HISTORY_LIMIT")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.CheckersHistoryLimit = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("CHECKERS_RANDOM_SEED")); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.CheckersRandomSeed = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("PVP_AUTO_ACCEPT")); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.PvPAutoAccept = b
		}
	}
	if v := strings.TrimSpace(os.Getenv("PVP_CHALLENGE_TTL")); v != "" { // seconds
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.PvPChallengeTTLSec = n
		}
	}
	return cfg
}

func (c *AppConfig) Validate() error {
	if c.IrisBaseURL == "" {
		return errors.New("IRIS_BASE_URL is required")
	}
	if c.IrisWSURL == "" {
		return errors.New("IRIS_WS_URL is required")
	}
	if c.BotPrefix == "" {
		return errors.New("BOT_PREFIX is required")
	}
	return nil
}

func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// IrisHeaders 는 Iris REST/WS 요청에 붙일 X-User-* 헤더
func (c *AppConfig) IrisHeaders() map[string]string {
	h := map[string]string{}
	if c.XUserID != "" {
		h["X-User-Id"] = c.XUserID
	}
	if c.XUserEmail != "" {
		h["X-User-Email"] = c.XUserEmail
	}
	if c.XSessionID != "" {
		h["X-Session-Id"] = c.XSessionID
	}
	return h
}
