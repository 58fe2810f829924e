package checkers

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	corecheckers "github.com/park285/kakao-checkers-bot/internal/checkers"
	"github.com/park285/kakao-checkers-bot/internal/domain"
	"github.com/park285/kakao-checkers-bot/internal/service/cache"
	"github.com/redis/go-redis/v9"
)

var pngMagic = []byte{0x89, 'P', 'N', 'G'}

func newTestService(t *testing.T, cfg Config) (*Service, Repository) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	if cfg.SessionTTL == 0 {
		cfg.SessionTTL = time.Hour
	}
	if cfg.RandomSeed == 0 {
		cfg.RandomSeed = 7
	}
	repo := NewMemoryRepository()
	svc, err := NewService(cache.NewCacheServiceFromClient(rdb, nil), repo, NewSVGBoardRenderer(), cfg, nil)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc, repo
}

var testMeta = SessionMeta{Room: "room-1", Sender: "alice"}

func TestStartSessionAndStatus(t *testing.T) {
	svc, _ := newTestService(t, Config{DefaultMode: corecheckers.TwoPlayer})
	ctx := context.Background()

	state, err := svc.StartSession(ctx, testMeta, "")
	if err != nil {
		t.Fatalf("StartSession: %v", err)
	}
	if state.Mode != corecheckers.TwoPlayer || state.Turn != corecheckers.Light {
		t.Fatalf("unexpected state: mode=%v turn=%v", state.Mode, state.Turn)
	}
	if state.Material.Light != 12 || state.Material.Dark != 12 {
		t.Fatalf("unexpected material: %+v", state.Material)
	}
	if !bytes.HasPrefix(state.BoardImage, pngMagic) {
		t.Fatalf("expected png board image")
	}

	again, err := svc.StartSession(ctx, testMeta, "computer")
	if !errors.Is(err, ErrSessionInProgress) {
		t.Fatalf("expected ErrSessionInProgress, got %v", err)
	}
	if again.SessionUUID != state.SessionUUID {
		t.Fatalf("in-progress session should be returned")
	}

	status, err := svc.Status(ctx, testMeta)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if status.SessionUUID != state.SessionUUID || status.MoveCount != 0 {
		t.Fatalf("unexpected status: %+v", status)
	}
}

func TestStartSessionUnknownMode(t *testing.T) {
	svc, _ := newTestService(t, Config{})
	if _, err := svc.StartSession(context.Background(), testMeta, "blitz"); !errors.Is(err, ErrUnknownMode) {
		t.Fatalf("expected ErrUnknownMode, got %v", err)
	}
}

func TestPlayTwoPlayerAlternatesTurns(t *testing.T) {
	svc, _ := newTestService(t, Config{})
	ctx := context.Background()
	if _, err := svc.StartSession(ctx, testMeta, "local"); err != nil {
		t.Fatalf("StartSession: %v", err)
	}

	summary, err := svc.Play(ctx, testMeta, "c3-d4")
	if err != nil {
		t.Fatalf("Play: %v", err)
	}
	if summary.PlayerMove != "c3-d4" || summary.ComputerMove != "" {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if summary.State.Turn != corecheckers.Dark {
		t.Fatalf("expected Dark to move, got %v", summary.State.Turn)
	}

	// Dark 의 수도 같은 사용자가 둔다.
	summary, err = svc.Play(ctx, testMeta, "10-14")
	if err != nil {
		t.Fatalf("Play dark: %v", err)
	}
	if summary.State.Turn != corecheckers.Light || len(summary.State.Moves) != 2 {
		t.Fatalf("unexpected state after dark move: %+v", summary.State)
	}
}

func TestPlayRejections(t *testing.T) {
	svc, _ := newTestService(t, Config{})
	ctx := context.Background()

	if _, err := svc.Play(ctx, testMeta, "c3-d4"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
	if _, err := svc.StartSession(ctx, testMeta, "local"); err != nil {
		t.Fatalf("StartSession: %v", err)
	}

	cases := []struct {
		move string
		want error
	}{
		{"", ErrInvalidMove},
		{"hello", ErrInvalidMove},
		{"d4-e5", ErrNotYourPiece},
		{"b6-a5", ErrNotYourPiece},
		{"c3-c4", ErrInvalidMove},
		{"c3-e5", ErrInvalidMove},
		{"b2-c3", ErrInvalidMove},
	}
	for _, tc := range cases {
		if _, err := svc.Play(ctx, testMeta, tc.move); !errors.Is(err, tc.want) {
			t.Fatalf("move %q: expected %v, got %v", tc.move, tc.want, err)
		}
	}

	status, err := svc.Status(ctx, testMeta)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if status.MoveCount != 0 || status.Turn != corecheckers.Light {
		t.Fatalf("rejected moves must not change the session: %+v", status)
	}
}

func TestPlayVsComputerRepliesAndUndo(t *testing.T) {
	svc, _ := newTestService(t, Config{DefaultMode: corecheckers.VsComputer})
	ctx := context.Background()
	if _, err := svc.StartSession(ctx, testMeta, ""); err != nil {
		t.Fatalf("StartSession: %v", err)
	}

	summary, err := svc.Play(ctx, testMeta, "c3-d4")
	if err != nil {
		t.Fatalf("Play: %v", err)
	}
	if summary.ComputerMove == "" {
		t.Fatalf("expected computer reply")
	}
	if summary.State.Turn != corecheckers.Light || summary.State.MoveCount != 2 {
		t.Fatalf("unexpected state after reply: turn=%v count=%d", summary.State.Turn, summary.State.MoveCount)
	}

	state, err := svc.Undo(ctx, testMeta)
	if err != nil {
		t.Fatalf("Undo: %v", err)
	}
	if state.MoveCount != 0 || state.Turn != corecheckers.Light {
		t.Fatalf("undo should remove player move and reply: %+v", state)
	}
	if _, err := svc.Undo(ctx, testMeta); !errors.Is(err, ErrUndoNotAvailable) {
		t.Fatalf("expected ErrUndoNotAvailable, got %v", err)
	}
}

func TestMovesListsLegalMoves(t *testing.T) {
	svc, _ := newTestService(t, Config{})
	ctx := context.Background()
	if _, err := svc.StartSession(ctx, testMeta, "local"); err != nil {
		t.Fatalf("StartSession: %v", err)
	}

	all, err := svc.Moves(ctx, testMeta, "")
	if err != nil {
		t.Fatalf("Moves: %v", err)
	}
	if len(all) != 7 {
		t.Fatalf("expected 7 opening moves, got %d (%v)", len(all), all)
	}

	from, err := svc.Moves(ctx, testMeta, "c3")
	if err != nil {
		t.Fatalf("Moves from c3: %v", err)
	}
	if len(from) != 2 || from[0] != "c3-b4" || from[1] != "c3-d4" {
		t.Fatalf("unexpected moves from c3: %v", from)
	}

	if _, err := svc.Moves(ctx, testMeta, "b6"); !errors.Is(err, ErrNotYourPiece) {
		t.Fatalf("expected ErrNotYourPiece, got %v", err)
	}
}

func TestResignRecordsLossAndRating(t *testing.T) {
	svc, _ := newTestService(t, Config{DefaultMode: corecheckers.VsComputer})
	ctx := context.Background()
	if _, err := svc.StartSession(ctx, testMeta, ""); err != nil {
		t.Fatalf("StartSession: %v", err)
	}
	if _, err := svc.Play(ctx, testMeta, "c3-d4"); err != nil {
		t.Fatalf("Play: %v", err)
	}

	state, err := svc.Resign(ctx, testMeta)
	if err != nil {
		t.Fatalf("Resign: %v", err)
	}
	if state.Result != ResultLoss || state.ResultMethod != MethodResign {
		t.Fatalf("unexpected result: %s/%s", state.Result, state.ResultMethod)
	}
	if state.Profile == nil || state.Profile.Rating != 1178 || state.RatingDelta != -22 {
		t.Fatalf("unexpected rating update: profile=%+v delta=%d", state.Profile, state.RatingDelta)
	}

	if _, err := svc.Status(ctx, testMeta); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("session should be cleared after resign, got %v", err)
	}

	games, err := svc.History(ctx, testMeta, 0)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(games) != 1 {
		t.Fatalf("expected 1 game, got %d", len(games))
	}
	game, err := svc.Game(ctx, testMeta, games[0].ID)
	if err != nil {
		t.Fatalf("Game: %v", err)
	}
	if game.Result != ResultLoss || len(game.Moves) != 2 {
		t.Fatalf("unexpected stored game: %+v", game)
	}
	if !bytes.Contains([]byte(game.PDN), []byte(`[Result "0-1"]`)) {
		t.Fatalf("pdn should record the resignation: %s", game.PDN)
	}

	if _, err := svc.Game(ctx, SessionMeta{Room: "room-1", Sender: "bob"}, games[0].ID); !errors.Is(err, ErrGameNotFound) {
		t.Fatalf("other players must not see the game, got %v", err)
	}
}

func TestResignLocalModeKeepsRating(t *testing.T) {
	svc, _ := newTestService(t, Config{})
	ctx := context.Background()
	if _, err := svc.StartSession(ctx, testMeta, "local"); err != nil {
		t.Fatalf("StartSession: %v", err)
	}
	if _, err := svc.Play(ctx, testMeta, "c3-d4"); err != nil {
		t.Fatalf("Play: %v", err)
	}
	state, err := svc.Resign(ctx, testMeta)
	if err != nil {
		t.Fatalf("Resign: %v", err)
	}
	// Dark 차례에 기권했으므로 Light 승
	if state.Result != ResultLightWins {
		t.Fatalf("unexpected result: %s", state.Result)
	}
	if state.Profile == nil || state.Profile.Rating != defaultPlayerRating || state.RatingDelta != 0 {
		t.Fatalf("local games must not change rating: %+v", state.Profile)
	}
}

func TestPreferredModeUsedOnStart(t *testing.T) {
	svc, _ := newTestService(t, Config{DefaultMode: corecheckers.TwoPlayer})
	ctx := context.Background()

	profile, err := svc.UpdatePreferredMode(ctx, testMeta, "ai")
	if err != nil {
		t.Fatalf("UpdatePreferredMode: %v", err)
	}
	if profile.PreferredMode != "computer" {
		t.Fatalf("unexpected preferred mode: %q", profile.PreferredMode)
	}
	state, err := svc.StartSession(ctx, testMeta, "")
	if err != nil {
		t.Fatalf("StartSession: %v", err)
	}
	if state.Mode != corecheckers.VsComputer {
		t.Fatalf("expected preferred mode to apply, got %v", state.Mode)
	}
}

func TestRoomAllowList(t *testing.T) {
	svc, _ := newTestService(t, Config{AllowedRooms: []string{"Room-1"}})
	ctx := context.Background()

	if _, err := svc.StartSession(ctx, SessionMeta{Room: "room-2", Sender: "alice"}, ""); !errors.Is(err, ErrRoomNotAllowed) {
		t.Fatalf("expected ErrRoomNotAllowed, got %v", err)
	}
	if _, err := svc.StartSession(ctx, testMeta, ""); err != nil {
		t.Fatalf("allowed room rejected: %v", err)
	}
}

func TestProfileNotFound(t *testing.T) {
	svc, _ := newTestService(t, Config{})
	if _, err := svc.Profile(context.Background(), testMeta); !errors.Is(err, ErrProfileNotFound) {
		t.Fatalf("expected ErrProfileNotFound, got %v", err)
	}
}

func TestApplyGameResult(t *testing.T) {
	identity := sessionIdentity{PlayerHash: "p", RoomHash: "r"}
	now := time.Now()

	profile, delta := applyGameResult(nil, identity, corecheckers.VsComputer, ResultWin, now)
	if profile.Rating != 1202 || delta != 2 || profile.Wins != 1 || profile.Streak != 1 {
		t.Fatalf("unexpected win update: %+v delta=%d", profile, delta)
	}
	profile, _ = applyGameResult(profile, identity, corecheckers.VsComputer, ResultWin, now)
	if profile.Streak != 2 || profile.StreakType != ResultWin || profile.GamesPlayed != 2 {
		t.Fatalf("unexpected streak: %+v", profile)
	}
	profile, _ = applyGameResult(profile, identity, corecheckers.VsComputer, ResultLoss, now)
	if profile.Streak != 1 || profile.StreakType != ResultLoss || profile.Losses != 1 {
		t.Fatalf("streak should reset on loss: %+v", profile)
	}

	local, delta := applyGameResult(&domain.CheckersProfile{Rating: 1500}, identity, corecheckers.TwoPlayer, ResultLightWins, now)
	if local.Rating != 1500 || delta != 0 || local.GamesPlayed != 1 || local.LastMode != "local" {
		t.Fatalf("unexpected local update: %+v", local)
	}
}

func TestResultFor(t *testing.T) {
	cases := []struct {
		mode     corecheckers.Mode
		outcome  corecheckers.Outcome
		resigned corecheckers.Color
		want     string
	}{
		{corecheckers.VsComputer, corecheckers.LightWins, corecheckers.NoColor, ResultWin},
		{corecheckers.VsComputer, corecheckers.DarkWins, corecheckers.NoColor, ResultLoss},
		{corecheckers.VsComputer, corecheckers.None, corecheckers.Light, ResultLoss},
		{corecheckers.TwoPlayer, corecheckers.None, corecheckers.Light, ResultDarkWins},
		{corecheckers.TwoPlayer, corecheckers.LightWins, corecheckers.NoColor, ResultLightWins},
		{corecheckers.TwoPlayer, corecheckers.None, corecheckers.NoColor, ResultDraw},
	}
	for _, tc := range cases {
		if got := resultFor(tc.mode, tc.outcome, tc.resigned); got != tc.want {
			t.Fatalf("resultFor(%v,%v,%v) = %s, want %s", tc.mode, tc.outcome, tc.resigned, got, tc.want)
		}
	}
}

func TestHUDLabels(t *testing.T) {
	if got := hudLabel("홍길동"); got != defaultHUDPlayerLabel {
		t.Fatalf("non-ascii names should fall back, got %q", got)
	}
	if got := hudLabel("alice"); got != "alice" {
		t.Fatalf("unexpected label: %q", got)
	}
	if got := normalizeHUDPlayerLabel("  a\nb  "); got != "a b" {
		t.Fatalf("unexpected normalized label: %q", got)
	}
}
