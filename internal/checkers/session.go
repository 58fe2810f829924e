package checkers

import (
	"math/rand"
	"time"
)

// Mode 는 대국 방식
type Mode uint8

const (
	TwoPlayer Mode = iota
	VsComputer
)

func (m Mode) String() string {
	if m == VsComputer {
		return "computer"
	}
	return "local"
}

// ParseMode 는 "computer"/"local" 문자열을 해석한다. 알 수 없는 값은 false.
func ParseMode(s string) (Mode, bool) {
	switch s {
	case "computer", "ai", "vs_computer", "컴퓨터":
		return VsComputer, true
	case "local", "two_player", "2p", "둘이서":
		return TwoPlayer, true
	default:
		return TwoPlayer, false
	}
}

// MoveResult 는 TryMove 의 결과
type MoveResult uint8

const (
	Rejected MoveResult = iota
	Accepted
)

func (r MoveResult) String() string {
	if r == Accepted {
		return "accepted"
	}
	return "rejected"
}

// Record 는 적용된 한 수의 기록
type Record struct {
	Color    Color   `json:"color"`
	Move     Move    `json:"move"`
	Captured *Square `json:"captured,omitempty"`
	Promoted bool    `json:"promoted,omitempty"`
	Auto     bool    `json:"auto,omitempty"`
}

// Notation 은 기보 표기(c3-d4, c3xe5)
func (r Record) Notation() string { return FormatMove(r.Move, r.Captured != nil) }

// Session 은 한 판의 상태와 차례 전환을 관리한다. 동시 접근은 호출자가 직렬화한다.
type Session struct {
	board    Board
	turn     Color
	mode     Mode
	selected *Square
	outcome  Outcome
	history  []Record

	computer   Color
	mover      *RandomMover
	onRender   func(Board)
	onTerminal func(Outcome)
}

// Option 은 Session 생성 옵션
type Option func(*Session)

// WithSource 는 자동 상대의 난수원을 주입한다. nil 이면 무시한다.
func WithSource(src Source) Option {
	return func(s *Session) {
		if src != nil {
			s.mover = NewRandomMover(src)
		}
	}
}

// WithRender 는 보드 변경 직후 호출될 콜백을 등록한다.
func WithRender(fn func(Board)) Option {
	return func(s *Session) { s.onRender = fn }
}

// WithTerminal 은 승패가 결정될 때 호출될 콜백을 등록한다.
func WithTerminal(fn func(Outcome)) Option {
	return func(s *Session) { s.onTerminal = fn }
}

// WithComputerColor 는 VsComputer 모드에서 자동으로 두는 진영을 지정한다(기본 Dark).
func WithComputerColor(c Color) Option {
	return func(s *Session) {
		if c == Light || c == Dark {
			s.computer = c
		}
	}
}

func NewSession(mode Mode, opts ...Option) *Session {
	s := newSession(opts)
	s.Reset(mode)
	return s
}

func newSession(opts []Option) *Session {
	s := &Session{computer: Dark}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	if s.mover == nil {
		s.mover = NewRandomMover(rand.New(rand.NewSource(time.Now().UnixNano())))
	}
	return s
}

// Replay 는 기록된 수순으로 세션을 복원한다. 복원 중에는 자동 상대가 두지 않는다.
// 수순 중 불법 수가 있으면 그 직전까지 복원하고 (세션, 적용된 수, false)를 반환한다.
func Replay(mode Mode, moves []Move, opts ...Option) (*Session, int, bool) {
	s := newSession(opts)
	render, terminal := s.onRender, s.onTerminal
	s.onRender, s.onTerminal = nil, nil
	defer func() { s.onRender, s.onTerminal = render, terminal }()
	s.reset(mode)
	for i, mv := range moves {
		if s.outcome != None || !ValidateMove(&s.board, s.turn, mv.From, mv.To) {
			return s, i, false
		}
		auto := mode == VsComputer && s.turn == s.computer
		s.apply(mv, auto)
	}
	return s, len(moves), true
}

// Reset 은 초기 배치로 되돌리고 Light 차례로 시작한다.
func (s *Session) Reset(mode Mode) {
	s.reset(mode)
	s.render()
	if s.mode == VsComputer && s.turn == s.computer {
		s.computerMove()
	}
}

func (s *Session) reset(mode Mode) {
	s.board = NewBoard()
	s.turn = Light
	s.mode = mode
	s.selected = nil
	s.outcome = None
	s.history = nil
}

func (s *Session) Board() Board { return s.board }

func (s *Session) Turn() Color { return s.turn }

func (s *Session) Mode() Mode { return s.mode }

func (s *Session) Outcome() Outcome { return s.outcome }

func (s *Session) ComputerColor() Color { return s.computer }

func (s *Session) Selected() (Square, bool) {
	if s.selected == nil {
		return Square{}, false
	}
	return *s.selected, true
}

func (s *Session) History() []Record {
	out := make([]Record, len(s.history))
	copy(out, s.history)
	return out
}

// Moves 는 지금까지 적용된 수순
func (s *Session) Moves() []Move {
	out := make([]Move, 0, len(s.history))
	for _, r := range s.history {
		out = append(out, r.Move)
	}
	return out
}

// LastRecord 는 마지막으로 적용된 수
func (s *Session) LastRecord() (Record, bool) {
	if len(s.history) == 0 {
		return Record{}, false
	}
	return s.history[len(s.history)-1], true
}

// Stalled 는 차례인 진영에 둘 수 있는 수가 없는지 여부. 종국 판정에는 쓰이지 않는다.
func (s *Session) Stalled() bool {
	return s.outcome == None && len(LegalMoves(&s.board, s.turn)) == 0
}

// TrySelect 는 현재 차례 진영의 말이 있는 칸이면 선택하고 true 를 반환한다.
func (s *Session) TrySelect(sq Square) bool {
	if s.outcome != None {
		return false
	}
	if p := s.board.At(sq); p.Empty() || p.Color != s.turn {
		return false
	}
	sel := sq
	s.selected = &sel
	return true
}

// TryMove 는 수를 검증해 적용한다. 거부되면 세션은 바뀌지 않고 선택만 해제된다.
func (s *Session) TryMove(from, to Square) MoveResult {
	s.selected = nil
	if s.outcome != None || !ValidateMove(&s.board, s.turn, from, to) {
		return Rejected
	}
	s.apply(Move{From: from, To: to}, false)
	if s.outcome == None && s.mode == VsComputer && s.turn == s.computer {
		s.computerMove()
	}
	return Accepted
}

// Click 은 칸 클릭 한 번을 처리한다. 선택된 말이 있으면 이동을, 없으면 선택을 시도한다.
func (s *Session) Click(sq Square) MoveResult {
	if from, ok := s.Selected(); ok {
		return s.TryMove(from, sq)
	}
	s.TrySelect(sq)
	return Rejected
}

func (s *Session) computerMove() {
	mv, ok := s.mover.ChooseMove(&s.board, s.turn)
	if !ok {
		return
	}
	s.apply(mv, true)
}

func (s *Session) apply(mv Move, auto bool) {
	mover := s.turn
	res := ApplyMove(&s.board, mover, mv.From, mv.To)
	s.history = append(s.history, Record{
		Color:    mover,
		Move:     mv,
		Captured: res.Captured,
		Promoted: res.Promoted,
		Auto:     auto,
	})
	s.render()
	if out := CheckTerminal(&s.board); out != None {
		s.outcome = out
		if s.onTerminal != nil {
			s.onTerminal(out)
		}
		return
	}
	s.turn = mover.Opponent()
}

func (s *Session) render() {
	if s.onRender != nil {
		s.onRender(s.board)
	}
}
