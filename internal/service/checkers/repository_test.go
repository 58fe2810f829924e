package checkers

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/park285/kakao-checkers-bot/internal/domain"
)

func repositoryBackends(t *testing.T) map[string]Repository {
	t.Helper()
	db, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "checkers.db"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return map[string]Repository{
		"memory": NewMemoryRepository(),
		"sqlite": NewSQLiteRepository(db),
	}
}

func sampleGame(session string, endedAt time.Time) *domain.CheckersGame {
	return &domain.CheckersGame{
		SessionUUID:  session,
		PlayerHash:   "player",
		RoomHash:     "room",
		Mode:         "computer",
		Result:       ResultWin,
		ResultMethod: MethodCaptureAll,
		Moves:        []string{"c3-d4", "b6-c5", "d4xb6"},
		PDN:          "[Result \"1-0\"]\n\n1. 22-18 9-13 2. 18x9 1-0",
		StartedAt:    endedAt.Add(-5 * time.Minute),
		EndedAt:      endedAt,
		Duration:     5 * time.Minute,
		Captures:     1,
	}
}

func TestRepositoryGames(t *testing.T) {
	for name, repo := range repositoryBackends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

			firstID, err := repo.InsertGame(ctx, sampleGame("s-1", base))
			if err != nil {
				t.Fatalf("InsertGame: %v", err)
			}
			secondID, err := repo.InsertGame(ctx, sampleGame("s-2", base.Add(time.Hour)))
			if err != nil {
				t.Fatalf("InsertGame second: %v", err)
			}
			if _, err := repo.InsertGame(ctx, sampleGame("s-1", base)); !errors.Is(err, ErrDuplicateGame) {
				t.Fatalf("expected ErrDuplicateGame, got %v", err)
			}

			games, err := repo.GetRecentGames(ctx, "player", 10)
			if err != nil {
				t.Fatalf("GetRecentGames: %v", err)
			}
			if len(games) != 2 || games[0].ID != secondID || games[1].ID != firstID {
				t.Fatalf("unexpected order: %+v", games)
			}

			game, err := repo.GetGame(ctx, firstID, "player")
			if err != nil || game == nil {
				t.Fatalf("GetGame: %v %v", game, err)
			}
			if len(game.Moves) != 3 || game.Moves[2] != "d4xb6" || game.Duration != 5*time.Minute {
				t.Fatalf("unexpected game: %+v", game)
			}
			if !game.EndedAt.Equal(base) {
				t.Fatalf("ended_at mismatch: %v", game.EndedAt)
			}

			if other, err := repo.GetGame(ctx, firstID, "someone-else"); err != nil || other != nil {
				t.Fatalf("expected no game for other player, got %v %v", other, err)
			}
			bySession, err := repo.GetGameBySession(ctx, "s-2", "player")
			if err != nil || bySession == nil || bySession.ID != secondID {
				t.Fatalf("GetGameBySession: %v %v", bySession, err)
			}
		})
	}
}

func TestRepositoryProfiles(t *testing.T) {
	for name, repo := range repositoryBackends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			if p, err := repo.GetProfile(ctx, "player", "room"); err != nil || p != nil {
				t.Fatalf("expected empty profile, got %v %v", p, err)
			}

			profile := &domain.CheckersProfile{
				PlayerHash:  "player",
				RoomHash:    "room",
				Rating:      1200,
				GamesPlayed: 1,
				Wins:        1,
				Streak:      1,
				StreakType:  ResultWin,
				LastMode:    "computer",
			}
			if err := repo.UpsertProfile(ctx, profile); err != nil {
				t.Fatalf("UpsertProfile: %v", err)
			}
			profile.Rating = 1202
			profile.PreferredMode = "local"
			if err := repo.UpsertProfile(ctx, profile); err != nil {
				t.Fatalf("UpsertProfile update: %v", err)
			}

			got, err := repo.GetProfile(ctx, "player", "room")
			if err != nil || got == nil {
				t.Fatalf("GetProfile: %v %v", got, err)
			}
			if got.Rating != 1202 || got.PreferredMode != "local" || got.Wins != 1 {
				t.Fatalf("unexpected profile: %+v", got)
			}
			if !got.LastPlayedAt.IsZero() {
				t.Fatalf("last_played_at should stay empty: %v", got.LastPlayedAt)
			}
		})
	}
}

func TestOpenRepositoryMemoryFallback(t *testing.T) {
	repo, db, err := OpenRepository(context.Background(), "")
	if err != nil {
		t.Fatalf("OpenRepository: %v", err)
	}
	if db != nil {
		t.Fatalf("memory repository should not open a db")
	}
	if _, ok := repo.(*memrepo); !ok {
		t.Fatalf("expected memory repository, got %T", repo)
	}
}

func TestOpenRepositorySQLiteURL(t *testing.T) {
	path := filepath.Join(t.TempDir(), "games.db")
	repo, db, err := OpenRepository(context.Background(), "sqlite://"+path)
	if err != nil {
		t.Fatalf("OpenRepository: %v", err)
	}
	defer db.Close()
	if _, err := repo.InsertGame(context.Background(), sampleGame("s-x", time.Now())); err != nil {
		t.Fatalf("InsertGame: %v", err)
	}
}

func TestDialectRebind(t *testing.T) {
	got := postgresDialect.rebind("SELECT * FROM t WHERE a = ? AND b = ?")
	if got != "SELECT * FROM t WHERE a = $1 AND b = $2" {
		t.Fatalf("unexpected rebind: %s", got)
	}
	if sqliteDialect.rebind("a = ?") != "a = ?" {
		t.Fatalf("sqlite dialect must keep ? placeholders")
	}
}
