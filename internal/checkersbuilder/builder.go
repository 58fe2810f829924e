package checkersbuilder

import (
    "context"
    "database/sql"
    "errors"
    "fmt"
    "strings"
    "time"

    corecheckers "github.com/park285/kakao-checkers-bot/internal/checkers"
    "github.com/park285/kakao-checkers-bot/internal/config"
    "github.com/park285/kakao-checkers-bot/internal/pvp"
    "github.com/park285/kakao-checkers-bot/internal/pvpchan"
    "github.com/park285/kakao-checkers-bot/internal/pvpcheckers"
    "github.com/park285/kakao-checkers-bot/internal/service/cache"
    svccheckers "github.com/park285/kakao-checkers-bot/internal/service/checkers"
    "go.uber.org/zap"
)

// Deps 는 봇이 쓰는 체커 구성요소 묶음. Redis 연결 하나를 모두가 공유한다.
type Deps struct {
    Service    *svccheckers.Service
    Cache      *cache.CacheService
    Repo       svccheckers.Repository
    DB         *sql.DB
    Challenges *pvp.Manager
    PvP        *pvpcheckers.Manager
    PvPRepo    *pvpcheckers.Repository
    Channels   *pvpchan.Manager
}

func New(ctx context.Context, cfg *config.AppConfig, logger *zap.Logger) (*Deps, error) {
    if cfg == nil {
        return nil, fmt.Errorf("nil config")
    }
    if logger == nil {
        logger = zap.NewNop()
    }

    // 세션과 PvP 상태가 Redis 에 있으므로 필수
    if strings.TrimSpace(cfg.RedisURL) == "" {
        return nil, fmt.Errorf("REDIS_URL is required for checkers sessions")
    }
    cacheSvc, err := cache.NewCacheService(cfg.RedisURL, logger)
    if err != nil {
        return nil, fmt.Errorf("init cache: %w", err)
    }

    // DATABASE_URL 이 비면 메모리 저장소
    repo, db, err := svccheckers.OpenRepository(ctx, cfg.DatabaseURL)
    if err != nil {
        _ = cacheSvc.Close()
        return nil, fmt.Errorf("open repository: %w", err)
    }
    if db == nil {
        logger.Warn("DATABASE_URL not set; using in-memory checkers repository")
    }

    mode := corecheckers.VsComputer
    if parsed, ok := corecheckers.ParseMode(cfg.CheckersDefaultMode); ok {
        mode = parsed
    }
    service, err := svccheckers.NewService(cacheSvc, repo, svccheckers.NewSVGBoardRenderer(), svccheckers.Config{
        DefaultMode:  mode,
        SessionTTL:   time.Duration(cfg.CheckersSessionTTLSec) * time.Second,
        HistoryLimit: cfg.CheckersHistoryLimit,
        AllowedRooms: append([]string(nil), cfg.AllowedRooms...),
        RandomSeed:   cfg.CheckersRandomSeed,
    }, logger)
    if err != nil {
        closeAll(cacheSvc, db)
        return nil, err
    }

    deps := &Deps{
        Service:    service,
        Cache:      cacheSvc,
        Repo:       repo,
        DB:         db,
        Challenges: pvp.NewManager(pvp.WithTTL(time.Duration(cfg.PvPChallengeTTLSec) * time.Second)),
        PvP:        pvpcheckers.NewManagerWithClient(cacheSvc.Client()),
    }
    deps.Channels = pvpchan.NewManager(cacheSvc.Client(), deps.PvP)

    // PvP 결과 저장은 PostgreSQL 일 때만
    if isPostgresURL(cfg.DatabaseURL) {
        pvpRepo, err := pvpcheckers.NewRepository(cfg.DatabaseURL)
        if err != nil {
            logger.Warn("pvp repository disabled", zap.Error(err))
        } else {
            deps.PvPRepo = pvpRepo
            deps.PvP.AttachRepository(pvpRepo)
        }
    }
    return deps, nil
}

// Close 는 DB 와 Redis 연결을 닫는다. PvP 매니저는 같은 Redis 클라이언트를 쓰므로 따로 닫지 않는다.
func (d *Deps) Close() error {
    if d == nil {
        return nil
    }
    var errs []error
    if d.PvPRepo != nil {
        errs = append(errs, d.PvPRepo.Close())
    }
    if d.DB != nil {
        errs = append(errs, d.DB.Close())
    }
    if d.Cache != nil {
        errs = append(errs, d.Cache.Close())
    }
    return errors.Join(errs...)
}

func closeAll(c *cache.CacheService, db *sql.DB) {
    if db != nil {
        _ = db.Close()
    }
    if c != nil {
        _ = c.Close()
    }
}

func isPostgresURL(raw string) bool {
    v := strings.TrimSpace(raw)
    return strings.HasPrefix(v, "postgres://") || strings.HasPrefix(v, "postgresql://")
}
