package pvpcheckers

import (
    "context"
    "database/sql"
    "encoding/json"
    "fmt"
    "strings"
    "time"

    corecheckers "github.com/park285/kakao-checkers-bot/internal/checkers"
    _ "github.com/lib/pq"
)

const pvpSchema = `
CREATE TABLE IF NOT EXISTS checkers_pvp_games (
    game_id TEXT PRIMARY KEY,
    light_id TEXT NOT NULL,
    light_name TEXT NOT NULL DEFAULT '',
    dark_id TEXT NOT NULL,
    dark_name TEXT NOT NULL DEFAULT '',
    origin_room TEXT NOT NULL DEFAULT '',
    resolve_room TEXT NOT NULL DEFAULT '',
    result TEXT NOT NULL,
    result_method TEXT NOT NULL,
    moves JSONB NOT NULL DEFAULT '[]'::jsonb,
    pdn TEXT NOT NULL DEFAULT '',
    captures INTEGER NOT NULL DEFAULT 0,
    started_at TIMESTAMPTZ NOT NULL,
    ended_at TIMESTAMPTZ NOT NULL,
    duration_ms BIGINT
);`

type Repository struct {
    db *sql.DB
}

func NewRepository(databaseURL string) (*Repository, error) {
    if strings.TrimSpace(databaseURL) == "" {
        return nil, fmt.Errorf("DATABASE_URL is required")
    }
    db, err := sql.Open("postgres", databaseURL)
    if err != nil {
        return nil, err
    }
    db.SetMaxOpenConns(16)
    db.SetMaxIdleConns(8)
    db.SetConnMaxLifetime(30 * time.Minute)
    ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
    defer cancel()
    if err := db.PingContext(ctx); err != nil {
        _ = db.Close()
        return nil, err
    }
    if _, err := db.ExecContext(ctx, pvpSchema); err != nil {
        _ = db.Close()
        return nil, fmt.Errorf("ensure pvp schema: %w", err)
    }
    return &Repository{db: db}, nil
}

func (r *Repository) Close() error {
    if r == nil || r.db == nil { return nil }
    return r.db.Close()
}

// SaveResult upserts a final PvP game result into the database.
func (r *Repository) SaveResult(ctx context.Context, g *Game, method string) error {
    if r == nil || r.db == nil || g == nil {
        return nil
    }
    result := resultToken(g)
    pdn := buildPDN(g, method)

    movesRaw, _ := json.Marshal(g.Notation)
    duration := g.UpdatedAt.Sub(g.CreatedAt).Milliseconds()
    if duration < 0 { duration = 0 }

    q := `INSERT INTO checkers_pvp_games (
        game_id, light_id, light_name, dark_id, dark_name,
        origin_room, resolve_room, result, result_method,
        moves, pdn, captures, started_at, ended_at, duration_ms
      ) VALUES (
        $1,$2,$3,$4,$5,$6,$7,$8,$9,$10::jsonb,$11,$12,$13,$14,$15
      ) ON CONFLICT (game_id) DO UPDATE SET
        result=EXCLUDED.result,
        result_method=EXCLUDED.result_method,
        moves=EXCLUDED.moves,
        pdn=EXCLUDED.pdn,
        captures=EXCLUDED.captures,
        ended_at=EXCLUDED.ended_at,
        duration_ms=EXCLUDED.duration_ms`

    _, err := r.db.ExecContext(ctx, q,
        g.ID,
        g.LightID, g.LightName,
        g.DarkID, g.DarkName,
        g.OriginRoom, g.ResolveRoom,
        result, strings.TrimSpace(method),
        string(movesRaw), pdn, g.Captures,
        g.CreatedAt, g.UpdatedAt, duration,
    )
    return err
}

// resultToken 은 기권이면 승자 진영으로 바꿔 light/dark 로 기록한다.
func resultToken(g *Game) string {
    switch {
    case g.Outcome == string(Light) || g.Outcome == string(Dark):
        return g.Outcome
    case g.Winner != "" && g.Winner == g.LightID:
        return string(Light)
    case g.Winner != "" && g.Winner == g.DarkID:
        return string(Dark)
    default:
        return ""
    }
}

func buildPDN(g *Game, method string) string {
    if g == nil {
        return ""
    }
    date := g.UpdatedAt
    if date.IsZero() {
        date = time.Now()
    }
    tags := []corecheckers.Tag{
        {Name: "Event", Value: "KakaoPvP"},
        {Name: "Site", Value: "Iris"},
        {Name: "Date", Value: date.Format("2006.01.02")},
        {Name: "White", Value: sanitizePDN(g.LightName)},
        {Name: "Black", Value: sanitizePDN(g.DarkName)},
    }
    if m := strings.TrimSpace(method); m != "" {
        tags = append(tags, corecheckers.Tag{Name: "Termination", Value: sanitizePDN(strings.ToLower(m))})
    }

    result := "*"
    switch resultToken(g) {
    case string(Light):
        result = "1-0"
    case string(Dark):
        result = "0-1"
    }

    var records []corecheckers.Record
    if session, err := reconstruct(g.Moves); err == nil {
        records = session.History()
    }
    return corecheckers.FormatPDN(tags, records, result)
}

func sanitizePDN(s string) string {
    s = strings.ReplaceAll(s, "\\", " ")
    s = strings.ReplaceAll(s, "\"", "'")
    return strings.TrimSpace(s)
}
