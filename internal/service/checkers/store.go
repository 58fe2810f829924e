package checkers

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS checkers_games (
	id BIGSERIAL PRIMARY KEY,
	session_uuid TEXT NOT NULL UNIQUE,
	player_hash TEXT NOT NULL,
	room_hash TEXT NOT NULL,
	mode TEXT NOT NULL,
	result TEXT NOT NULL,
	result_method TEXT NOT NULL,
	moves JSONB NOT NULL DEFAULT '[]'::jsonb,
	pdn TEXT NOT NULL DEFAULT '',
	started_at TIMESTAMPTZ NOT NULL,
	ended_at TIMESTAMPTZ NOT NULL,
	duration_ms BIGINT,
	captures INTEGER NOT NULL DEFAULT 0,
	promotions INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS checkers_games_player_idx ON checkers_games (player_hash, ended_at DESC);
CREATE TABLE IF NOT EXISTS checkers_profiles (
	player_hash TEXT NOT NULL,
	room_hash TEXT NOT NULL,
	preferred_mode TEXT NOT NULL DEFAULT '',
	rating INTEGER NOT NULL DEFAULT 1200,
	games_played INTEGER NOT NULL DEFAULT 0,
	wins INTEGER NOT NULL DEFAULT 0,
	losses INTEGER NOT NULL DEFAULT 0,
	draws INTEGER NOT NULL DEFAULT 0,
	streak INTEGER NOT NULL DEFAULT 0,
	streak_type TEXT NOT NULL DEFAULT '',
	last_mode TEXT NOT NULL DEFAULT '',
	last_played_at TIMESTAMPTZ,
	updated_at TIMESTAMPTZ NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (player_hash, room_hash)
);`

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS checkers_games (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_uuid TEXT NOT NULL UNIQUE,
		player_hash TEXT NOT NULL,
		room_hash TEXT NOT NULL,
		mode TEXT NOT NULL,
		result TEXT NOT NULL,
		result_method TEXT NOT NULL,
		moves TEXT NOT NULL DEFAULT '[]',
		pdn TEXT NOT NULL DEFAULT '',
		started_at DATETIME NOT NULL,
		ended_at DATETIME NOT NULL,
		duration_ms INTEGER,
		captures INTEGER NOT NULL DEFAULT 0,
		promotions INTEGER NOT NULL DEFAULT 0
	)`,
	`CREATE INDEX IF NOT EXISTS checkers_games_player_idx ON checkers_games (player_hash, ended_at)`,
	`CREATE TABLE IF NOT EXISTS checkers_profiles (
		player_hash TEXT NOT NULL,
		room_hash TEXT NOT NULL,
		preferred_mode TEXT NOT NULL DEFAULT '',
		rating INTEGER NOT NULL DEFAULT 1200,
		games_played INTEGER NOT NULL DEFAULT 0,
		wins INTEGER NOT NULL DEFAULT 0,
		losses INTEGER NOT NULL DEFAULT 0,
		draws INTEGER NOT NULL DEFAULT 0,
		streak INTEGER NOT NULL DEFAULT 0,
		streak_type TEXT NOT NULL DEFAULT '',
		last_mode TEXT NOT NULL DEFAULT '',
		last_played_at DATETIME,
		updated_at DATETIME NOT NULL,
		created_at DATETIME NOT NULL,
		PRIMARY KEY (player_hash, room_hash)
	)`,
}

// OpenRepository 는 DATABASE_URL 형식에 따라 저장소를 고른다.
//   - postgres:// 또는 postgresql:// : PostgreSQL
//   - sqlite:// 접두사 또는 .db/.sqlite 파일 경로 : SQLite (스키마 자동 생성)
//   - 빈 값 : 메모리 저장소(개발용)
func OpenRepository(ctx context.Context, databaseURL string) (Repository, *sql.DB, error) {
	dsn := strings.TrimSpace(databaseURL)
	switch {
	case dsn == "":
		return NewMemoryRepository(), nil, nil
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		db, err := openPostgres(ctx, dsn)
		if err != nil {
			return nil, nil, err
		}
		return NewRepository(db), db, nil
	default:
		db, err := OpenSQLite(ctx, strings.TrimPrefix(dsn, "sqlite://"))
		if err != nil {
			return nil, nil, err
		}
		return NewSQLiteRepository(db), db, nil
	}
}

func openPostgres(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(16)
	db.SetMaxIdleConns(8)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := db.ExecContext(ctx, postgresSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure postgres schema: %w", err)
	}
	return db, nil
}

// OpenSQLite 는 파일(또는 :memory:) 데이터베이스를 열고 스키마를 만든다.
func OpenSQLite(ctx context.Context, path string) (*sql.DB, error) {
	dsn := path
	if !strings.Contains(dsn, "?") {
		dsn += "?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on"
	}
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// WAL 은 다중 reader + 단일 writer
	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(5)
	if strings.HasPrefix(path, ":memory:") {
		db.SetMaxOpenConns(1)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("begin schema tx: %w", err)
	}
	for _, stmt := range sqliteSchema {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			_ = tx.Rollback()
			_ = db.Close()
			return nil, fmt.Errorf("ensure sqlite schema: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("commit schema tx: %w", err)
	}
	return db, nil
}

// NewSQLiteRepository 는 OpenSQLite 로 연 DB 위의 저장소
func NewSQLiteRepository(db *sql.DB) Repository {
	return &repository{db: db, dialect: sqliteDialect}
}
