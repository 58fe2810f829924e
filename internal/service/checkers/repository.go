package checkers

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/park285/kakao-checkers-bot/internal/domain"
)

var ErrDuplicateGame = errors.New("checkers game already exists")

type Repository interface {
	InsertGame(ctx context.Context, game *domain.CheckersGame) (int64, error)
	GetRecentGames(ctx context.Context, playerHash string, limit int) ([]*domain.CheckersGame, error)
	GetGame(ctx context.Context, id int64, playerHash string) (*domain.CheckersGame, error)
	GetGameBySession(ctx context.Context, sessionUUID string, playerHash string) (*domain.CheckersGame, error)
	GetProfile(ctx context.Context, playerHash string, roomHash string) (*domain.CheckersProfile, error)
	UpsertProfile(ctx context.Context, profile *domain.CheckersProfile) error
}

// dialect 는 드라이버별 SQL 차이. 쿼리는 ? 자리표시자로 작성한다.
type dialect struct {
	name     string
	dollar   bool
	jsonCast string
}

var (
	postgresDialect = dialect{name: "postgres", dollar: true, jsonCast: "::jsonb"}
	sqliteDialect   = dialect{name: "sqlite3"}
)

// rebind 는 ? 를 $1, $2 ... 로 바꾼다.
func (d dialect) rebind(query string) string {
	if !d.dollar {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 16)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

type repository struct {
	db      *sql.DB
	dialect dialect
}

// NewRepository 는 PostgreSQL 용 저장소
func NewRepository(db *sql.DB) Repository {
	return &repository{db: db, dialect: postgresDialect}
}

const gameColumns = `
			id,
			session_uuid,
			player_hash,
			room_hash,
			mode,
			result,
			result_method,
			moves,
			pdn,
			started_at,
			ended_at,
			duration_ms,
			captures,
			promotions`

func (r *repository) InsertGame(ctx context.Context, game *domain.CheckersGame) (int64, error) {
	if game == nil {
		return 0, fmt.Errorf("nil checkers game payload")
	}
	moves, err := json.Marshal(game.Moves)
	if err != nil {
		return 0, fmt.Errorf("marshal moves: %w", err)
	}

	query := `
		INSERT INTO checkers_games (
			session_uuid,
			player_hash,
			room_hash,
			mode,
			result,
			result_method,
			moves,
			pdn,
			started_at,
			ended_at,
			duration_ms,
			captures,
			promotions
		)
		VALUES (?, ?, ?, ?, ?, ?, ?` + r.dialect.jsonCast + `, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (session_uuid) DO NOTHING
		RETURNING id`

	var id sql.NullInt64
	err = r.db.QueryRowContext(
		ctx,
		r.dialect.rebind(query),
		game.SessionUUID,
		game.PlayerHash,
		game.RoomHash,
		game.Mode,
		game.Result,
		game.ResultMethod,
		string(moves),
		game.PDN,
		game.StartedAt.UTC(),
		game.EndedAt.UTC(),
		game.Duration.Milliseconds(),
		game.Captures,
		game.Promotions,
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) || (err == nil && !id.Valid) {
		return 0, ErrDuplicateGame
	}
	if err != nil {
		return 0, fmt.Errorf("insert checkers game: %w", err)
	}
	return id.Int64, nil
}

func (r *repository) GetRecentGames(ctx context.Context, playerHash string, limit int) ([]*domain.CheckersGame, error) {
	if limit <= 0 {
		limit = 10
	}
	query := `SELECT` + gameColumns + `
		FROM checkers_games
		WHERE player_hash = ?
		ORDER BY ended_at DESC, id DESC
		LIMIT ?`

	rows, err := r.db.QueryContext(ctx, r.dialect.rebind(query), playerHash, limit)
	if err != nil {
		return nil, fmt.Errorf("select checkers games: %w", err)
	}
	defer rows.Close()

	games := make([]*domain.CheckersGame, 0, limit)
	for rows.Next() {
		game, err := scanGame(rows)
		if err != nil {
			return nil, err
		}
		games = append(games, game)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate checkers games: %w", err)
	}
	return games, nil
}

func (r *repository) GetGame(ctx context.Context, id int64, playerHash string) (*domain.CheckersGame, error) {
	query := `SELECT` + gameColumns + `
		FROM checkers_games
		WHERE id = ? AND player_hash = ?`

	game, err := scanGame(r.db.QueryRowContext(ctx, r.dialect.rebind(query), id, playerHash))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return game, err
}

func (r *repository) GetGameBySession(ctx context.Context, sessionUUID string, playerHash string) (*domain.CheckersGame, error) {
	query := `SELECT` + gameColumns + `
		FROM checkers_games
		WHERE session_uuid = ? AND player_hash = ?
		ORDER BY ended_at DESC
		LIMIT 1`

	game, err := scanGame(r.db.QueryRowContext(ctx, r.dialect.rebind(query), sessionUUID, playerHash))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return game, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanGame(row rowScanner) (*domain.CheckersGame, error) {
	var (
		game       domain.CheckersGame
		movesJSON  []byte
		durationMS sql.NullInt64
	)
	err := row.Scan(
		&game.ID,
		&game.SessionUUID,
		&game.PlayerHash,
		&game.RoomHash,
		&game.Mode,
		&game.Result,
		&game.ResultMethod,
		&movesJSON,
		&game.PDN,
		&game.StartedAt,
		&game.EndedAt,
		&durationMS,
		&game.Captures,
		&game.Promotions,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("scan checkers game: %w", err)
	}
	if durationMS.Valid {
		game.Duration = time.Duration(durationMS.Int64) * time.Millisecond
	}
	if len(movesJSON) > 0 {
		if err := json.Unmarshal(movesJSON, &game.Moves); err != nil {
			return nil, fmt.Errorf("unmarshal moves: %w", err)
		}
	}
	return &game, nil
}

func (r *repository) GetProfile(ctx context.Context, playerHash string, roomHash string) (*domain.CheckersProfile, error) {
	query := `
		SELECT
			player_hash,
			room_hash,
			preferred_mode,
			rating,
			games_played,
			wins,
			losses,
			draws,
			streak,
			streak_type,
			last_mode,
			last_played_at,
			updated_at,
			created_at
		FROM checkers_profiles
		WHERE player_hash = ? AND room_hash = ?
		LIMIT 1`

	var (
		profile    domain.CheckersProfile
		lastPlayed sql.NullTime
	)
	err := r.db.QueryRowContext(ctx, r.dialect.rebind(query), playerHash, roomHash).Scan(
		&profile.PlayerHash,
		&profile.RoomHash,
		&profile.PreferredMode,
		&profile.Rating,
		&profile.GamesPlayed,
		&profile.Wins,
		&profile.Losses,
		&profile.Draws,
		&profile.Streak,
		&profile.StreakType,
		&profile.LastMode,
		&lastPlayed,
		&profile.UpdatedAt,
		&profile.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select checkers profile: %w", err)
	}
	if lastPlayed.Valid {
		profile.LastPlayedAt = lastPlayed.Time
	}
	return &profile, nil
}

func (r *repository) UpsertProfile(ctx context.Context, profile *domain.CheckersProfile) error {
	if profile == nil {
		return fmt.Errorf("nil checkers profile payload")
	}
	now := time.Now().UTC()
	created := profile.CreatedAt
	if created.IsZero() {
		created = now
	}
	var lastPlayed sql.NullTime
	if !profile.LastPlayedAt.IsZero() {
		lastPlayed = sql.NullTime{Time: profile.LastPlayedAt.UTC(), Valid: true}
	}

	query := `
		INSERT INTO checkers_profiles (
			player_hash,
			room_hash,
			preferred_mode,
			rating,
			games_played,
			wins,
			losses,
			draws,
			streak,
			streak_type,
			last_mode,
			last_played_at,
			updated_at,
			created_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (player_hash, room_hash)
		DO UPDATE SET
			preferred_mode = EXCLUDED.preferred_mode,
			rating = EXCLUDED.rating,
			games_played = EXCLUDED.games_played,
			wins = EXCLUDED.wins,
			losses = EXCLUDED.losses,
			draws = EXCLUDED.draws,
			streak = EXCLUDED.streak,
			streak_type = EXCLUDED.streak_type,
			last_mode = EXCLUDED.last_mode,
			last_played_at = EXCLUDED.last_played_at,
			updated_at = EXCLUDED.updated_at`

	_, err := r.db.ExecContext(
		ctx,
		r.dialect.rebind(query),
		profile.PlayerHash,
		profile.RoomHash,
		profile.PreferredMode,
		profile.Rating,
		profile.GamesPlayed,
		profile.Wins,
		profile.Losses,
		profile.Draws,
		profile.Streak,
		profile.StreakType,
		profile.LastMode,
		lastPlayed,
		now,
		created.UTC(),
	)
	if err != nil {
		return fmt.Errorf("upsert checkers profile: %w", err)
	}
	return nil
}
