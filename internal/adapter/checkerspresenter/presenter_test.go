package checkerspresenter

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	corecheckers "github.com/park285/kakao-checkers-bot/internal/checkers"
	"github.com/park285/kakao-checkers-bot/internal/domain"
	"github.com/park285/kakao-checkers-bot/internal/pvpchan"
	svc "github.com/park285/kakao-checkers-bot/internal/service/checkers"
	"github.com/park285/kakao-checkers-bot/internal/util"
	"github.com/park285/kakao-checkers-bot/pkg/checkersdto"
)

type sent struct {
	kind, room, data string
}

type fakeSender struct {
	out     []sent
	failImg bool
}

func (f *fakeSender) SendText(_ context.Context, room, message string) error {
	f.out = append(f.out, sent{"text", room, message})
	return nil
}

func (f *fakeSender) SendImage(_ context.Context, room, imageBase64 string) error {
	if f.failImg {
		return errors.New("image failed")
	}
	f.out = append(f.out, sent{"image", room, imageBase64})
	return nil
}

type staticPrefix string

func (p staticPrefix) Prefix() string { return string(p) }

func TestPresenterBoardSendsTextThenImage(t *testing.T) {
	fs := &fakeSender{}
	p := NewPresenter(fs)
	state := &checkersdto.SessionState{BoardImage: []byte{1, 2, 3}}

	if err := p.Board(context.Background(), "r1", "hello", state); err != nil {
		t.Fatalf("Board: %v", err)
	}
	if len(fs.out) != 2 || fs.out[0].kind != "text" || fs.out[1].kind != "image" {
		t.Fatalf("unexpected sends: %+v", fs.out)
	}
	if fs.out[1].data != base64.StdEncoding.EncodeToString([]byte{1, 2, 3}) {
		t.Fatalf("image must be base64 encoded")
	}

	fs.out = nil
	if err := p.Board(context.Background(), "r1", "  ", nil); err != nil || len(fs.out) != 0 {
		t.Fatalf("blank text and nil state should send nothing: %v %+v", err, fs.out)
	}
}

func TestPresenterBroadcastDedupesRooms(t *testing.T) {
	fs := &fakeSender{failImg: true}
	p := NewPresenter(fs)
	state := &checkersdto.SessionState{BoardImage: []byte{9}}

	err := p.Broadcast(context.Background(), []string{"a", "a", "", "b"}, "move", state)
	if err == nil {
		t.Fatalf("expected first image error")
	}
	if len(fs.out) != 2 || fs.out[0].room != "a" || fs.out[1].room != "b" {
		t.Fatalf("expected one text per distinct room: %+v", fs.out)
	}
}

func TestToDTOState(t *testing.T) {
	s := &svc.SessionState{
		SessionUUID:  "u",
		Mode:         corecheckers.VsComputer,
		Moves:        []string{"c3-d4"},
		Turn:         corecheckers.Dark,
		MoveCount:    1,
		Outcome:      corecheckers.None,
		Material:     svc.MaterialScore{Light: 12, Dark: 11},
		Profile:      &domain.CheckersProfile{Rating: 1210},
		Result:       svc.ResultWin,
		ResultMethod: svc.MethodCaptureAll,
	}
	dto := ToDTOState(s)
	if dto.Mode != "computer" || dto.Turn != "dark" || dto.Outcome != svc.ResultWin || dto.OutcomeMeta != svc.MethodCaptureAll {
		t.Fatalf("unexpected dto: %+v", dto)
	}
	if dto.Profile == nil || dto.Profile.Rating != 1210 || dto.Material.Dark != 11 {
		t.Fatalf("profile/material not copied: %+v", dto)
	}
	s.Moves[0] = "changed"
	if dto.Moves[0] != "c3-d4" {
		t.Fatalf("moves must be copied")
	}

	s.Result = ""
	if ToDTOState(s).Outcome != "none" {
		t.Fatalf("in-progress outcome should fall back to core outcome")
	}
	if ToDTOState(nil) != nil || ToDTOMoveSummary(nil) != nil || ToDTOProfile(nil) != nil || ToDTOGame(nil) != nil {
		t.Fatalf("nil inputs map to nil")
	}
	if got := ToDTOGames([]*domain.CheckersGame{nil, {ID: 3}}); len(got) != 1 || got[0].ID != 3 {
		t.Fatalf("ToDTOGames should skip nil: %+v", got)
	}
}

func TestFormatterMoveAndOutcome(t *testing.T) {
	f := NewFormatter(staticPrefix("!"), nil)

	inProgress := &checkersdto.MoveSummary{
		State:        &checkersdto.SessionState{Mode: "computer", Turn: "light"},
		PlayerMove:   "c3-d4",
		ComputerMove: "b6-c5",
		Material:     checkersdto.MaterialScore{Light: 12, Dark: 12},
	}
	out := f.Move(inProgress)
	if !strings.Contains(out, "c3-d4") || !strings.Contains(out, "b6-c5") || !strings.Contains(out, "백 12 : 흑 12") {
		t.Fatalf("unexpected move text: %q", out)
	}

	finished := &checkersdto.MoveSummary{
		State:       &checkersdto.SessionState{Mode: "computer", Outcome: svc.ResultWin, OutcomeMeta: svc.MethodCaptureAll},
		PlayerMove:  "d4xf6",
		Finished:    true,
		GameID:      7,
		Profile:     &checkersdto.CheckersProfile{Rating: 1202, Wins: 1, GamesPlayed: 1},
		RatingDelta: 2,
		Material:    checkersdto.MaterialScore{Light: 3, LightKings: 1},
	}
	out = f.Move(finished)
	for _, want := range []string{"승리", "▲2", "#7", "백 3(킹 1) : 흑 0 (+3 백)"} {
		if !strings.Contains(out, want) {
			t.Fatalf("finished text missing %q: %q", want, out)
		}
	}

	if !strings.Contains(f.Outcome(svc.ResultLoss, svc.MethodResign), "기권") {
		t.Fatalf("resign loss should mention 기권")
	}
	if !strings.Contains(f.Outcome(svc.ResultDarkWins, ""), "흑") {
		t.Fatalf("dark win should mention 흑")
	}
}

func TestFormatterErrorMapping(t *testing.T) {
	f := NewFormatter(staticPrefix("!"), nil)
	if got := f.Error(fmt.Errorf("wrap: %w", svc.ErrNotYourTurn)); !strings.Contains(got, "상대 차례") {
		t.Fatalf("wrapped not-your-turn: %q", got)
	}
	if got := f.Error(svc.ErrInvalidMove); !strings.Contains(got, "`!체커 c3-d4`") {
		t.Fatalf("invalid move should show example: %q", got)
	}
	if got := f.Error(pvpchan.ErrCreatorHasLobby); !strings.Contains(got, "채널") {
		t.Fatalf("channel error: %q", got)
	}
	if got := f.Error(checkersdto.DomainError{Code: "x", Message: "직접 메시지"}); got != "직접 메시지" {
		t.Fatalf("domain error message: %q", got)
	}
	if got := f.Error(errors.New("boom")); !strings.Contains(got, "처리하지 못했습니다") {
		t.Fatalf("generic error: %q", got)
	}
	if got := f.Error(svc.ErrSessionNotFound); !strings.Contains(got, "`!체커 시작`") {
		t.Fatalf("no session: %q", got)
	}
}

func TestToDomainError(t *testing.T) {
	if d := ToDomainError(fmt.Errorf("x: %w", pvpchan.ErrFull)); d.Code != checkersdto.CodeChannelFull || d.Retryable {
		t.Fatalf("channel full: %+v", d)
	}
	if d := ToDomainError(errors.New("redis down")); d.Code != checkersdto.CodeGeneric || !d.Retryable {
		t.Fatalf("unknown error: %+v", d)
	}
	if d := ToDomainError(nil); d.Retryable {
		t.Fatalf("nil error should not be retryable")
	}
	if msg := (checkersdto.DomainError{Code: checkersdto.CodeGameNotFound}).Error(); msg != "checkers: game_not_found" {
		t.Fatalf("error text: %q", msg)
	}
}

func TestFormatterSeeMoreBlocks(t *testing.T) {
	f := NewFormatter(staticPrefix("!"), nil)
	help := f.Help()
	if !strings.Contains(help, util.KakaoZeroWidthSpace) || !strings.Contains(help, "!체커 시작") {
		t.Fatalf("help should be padded and prefixed")
	}
	hist := f.History([]*checkersdto.CheckersGame{{ID: 4, Result: svc.ResultLoss, Mode: "computer", Moves: []string{"a", "b"}, EndedAt: time.Now()}})
	if !strings.Contains(hist, "#4 ❌ 패") || !strings.Contains(hist, "2수") {
		t.Fatalf("history text: %q", util.StripKakaoPadding(hist))
	}
	if f.History(nil) == "" {
		t.Fatalf("empty history needs a message")
	}
}

func TestFormatterChannelAndPvP(t *testing.T) {
	f := NewFormatter(staticPrefix("!"), nil)
	if got := f.ChannelMade("AB12"); !strings.Contains(got, "`!채널 참가 AB12`") {
		t.Fatalf("channel made: %q", got)
	}
	if got := f.PvPStart("Alice", "Bob"); !strings.Contains(got, "Alice(백)") || !strings.Contains(got, "Bob(흑)") {
		t.Fatalf("pvp start: %q", got)
	}
	if got := f.PvPFinish(svc.MethodResign, "Bob"); !strings.Contains(got, "기권") || !strings.Contains(got, "Bob") {
		t.Fatalf("pvp finish: %q", got)
	}
	lobby := f.Lobby([]*pvpchan.ChannelMeta{{ID: "ZX9", CreatorName: "Carol"}})
	if !strings.Contains(lobby, "ZX9 Carol") {
		t.Fatalf("lobby: %q", lobby)
	}
	if f.Moves(nil) == "" || !strings.Contains(f.Moves([]string{"c3-b4", "c3-d4"}), "c3-b4, c3-d4") {
		t.Fatalf("moves listing")
	}
}
