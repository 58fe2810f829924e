package checkerspresenter

import (
	"context"
	"encoding/base64"
	"strings"

	"github.com/park285/kakao-checkers-bot/pkg/checkersdto"
)

// Sender 는 방에 텍스트/이미지를 보내는 출구. irisfast.Egress 가 만족한다.
type Sender interface {
	SendText(ctx context.Context, room, message string) error
	SendImage(ctx context.Context, room, imageBase64 string) error
}

// Presenter 는 명령 계층과 무관하게 문구와 보드 이미지를 전달한다.
type Presenter struct {
	out Sender
}

func NewPresenter(out Sender) *Presenter {
	return &Presenter{out: out}
}

// Text 는 빈 문구는 보내지 않는다.
func (p *Presenter) Text(ctx context.Context, room, message string) error {
	if p == nil || p.out == nil || strings.TrimSpace(message) == "" {
		return nil
	}
	return p.out.SendText(ctx, room, message)
}

// Board 는 문구를 먼저, 보드 PNG 를 base64 로 이어서 보낸다.
func (p *Presenter) Board(ctx context.Context, room, message string, state *checkersdto.SessionState) error {
	if p == nil || p.out == nil {
		return nil
	}
	if err := p.Text(ctx, room, message); err != nil {
		return err
	}
	if state == nil || len(state.BoardImage) == 0 {
		return nil
	}
	return p.out.SendImage(ctx, room, base64.StdEncoding.EncodeToString(state.BoardImage))
}

// Broadcast 는 같은 내용을 여러 방(중복 제외)에 보낸다. 첫 에러를 돌려준다.
func (p *Presenter) Broadcast(ctx context.Context, rooms []string, message string, state *checkersdto.SessionState) error {
	seen := make(map[string]struct{}, len(rooms))
	var first error
	for _, room := range rooms {
		room = strings.TrimSpace(room)
		if room == "" {
			continue
		}
		if _, dup := seen[room]; dup {
			continue
		}
		seen[room] = struct{}{}
		if err := p.Board(ctx, room, message, state); err != nil && first == nil {
			first = err
		}
	}
	return first
}
