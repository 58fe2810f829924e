package main

import (
	"bufio"
	"fmt"
	"io"
	"math/rand"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"go.uber.org/zap"

	corecheckers "github.com/park285/kakao-checkers-bot/internal/checkers"
	appcfg "github.com/park285/kakao-checkers-bot/internal/config"
	"github.com/park285/kakao-checkers-bot/internal/obslog"
)

func main() {
	if err := obslog.InitFromEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "logger init error: %v\n", err)
	}
	defer obslog.Sync()

	seed := appcfg.FromEnv().CheckersRandomSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	app := newApp(os.Stdout, rand.New(rand.NewSource(seed)))
	app.run(os.Stdin)
}

// app 은 메뉴와 한 판의 진행을 관리한다.
type app struct {
	out     io.Writer
	src     corecheckers.Source
	session *corecheckers.Session
	mode    corecheckers.Mode
	logger  *zap.Logger
}

func newApp(out io.Writer, src corecheckers.Source) *app {
	return &app{out: out, src: src, logger: obslog.Named("checkers-cli")}
}

func (a *app) run(in io.Reader) {
	sc := bufio.NewScanner(in)
	a.menu()
	for {
		fmt.Fprint(a.out, a.promptText())
		if !sc.Scan() {
			return
		}
		if quit := a.handle(sc.Text()); quit {
			return
		}
	}
}

func (a *app) menu() {
	fmt.Fprintln(a.out, color.New(color.Bold).Sprint("체커"))
	fmt.Fprintln(a.out, "  1) 둘이서 두기")
	fmt.Fprintln(a.out, "  2) 컴퓨터 대전 (백, 선공)")
	fmt.Fprintln(a.out, "  q) 종료")
}

func (a *app) promptText() string {
	if a.session == nil {
		return "> "
	}
	return fmt.Sprintf("[%s] > ", sideName(a.session.Turn()))
}

// handle 은 입력 한 줄을 처리하고 종료 여부를 반환한다.
func (a *app) handle(line string) bool {
	text := strings.ToLower(strings.TrimSpace(line))
	if text == "" {
		return false
	}
	if a.session == nil {
		switch text {
		case "1":
			a.start(corecheckers.TwoPlayer)
		case "2":
			a.start(corecheckers.VsComputer)
		case "q", "quit", "exit":
			return true
		default:
			a.menu()
		}
		return false
	}

	switch text {
	case "q", "quit", "exit":
		return true
	case "menu", "메뉴":
		a.session = nil
		a.menu()
	case "reset", "새판":
		a.session.Reset(a.mode)
	case "moves", "수":
		a.listMoves()
	case "help", "?":
		fmt.Fprintln(a.out, "칸(c3)을 두 번 나눠 입력하거나 수(c3-d4, 22-18)를 입력하세요. reset, moves, menu, q")
	default:
		a.input(text)
	}
	return false
}

func (a *app) start(mode corecheckers.Mode) {
	a.mode = mode
	a.session = corecheckers.NewSession(mode,
		corecheckers.WithSource(a.src),
		corecheckers.WithRender(func(corecheckers.Board) { a.draw() }),
		corecheckers.WithTerminal(a.finish),
	)
	a.logger.Debug("cli_game_start", zap.String("mode", mode.String()))
	a.draw()
}

// finish 는 결과를 알리고 곧바로 새 판을 차린다.
func (a *app) finish(o corecheckers.Outcome) {
	fmt.Fprintln(a.out, outcomeText(o, a.mode, a.session.ComputerColor()))
	a.logger.Debug("cli_game_over", zap.String("outcome", o.String()))
	fmt.Fprintln(a.out, "새 판을 시작합니다.")
	a.session.Reset(a.mode)
}

func (a *app) draw() {
	if a.session == nil {
		return
	}
	sel, targets := targetsOf(a.session)
	renderBoard(a.out, a.session.Board(), sel, targets)
}

// input 은 칸 하나(클릭) 또는 완전한 수를 받는다.
func (a *app) input(text string) {
	if sq, err := corecheckers.ParseSquare(text); err == nil {
		_, hadSelection := a.session.Selected()
		if a.session.Click(sq) == corecheckers.Rejected {
			if _, ok := a.session.Selected(); ok {
				a.draw()
				return
			}
			if hadSelection {
				fmt.Fprintln(a.out, color.YellowString("둘 수 없는 칸입니다. 선택을 해제했습니다."))
				return
			}
			fmt.Fprintln(a.out, color.YellowString("선택할 수 있는 말이 없습니다."))
		}
		return
	}

	mv, err := corecheckers.ParseMove(text)
	if err != nil {
		fmt.Fprintln(a.out, color.YellowString("알 수 없는 입력입니다. help 를 입력해보세요."))
		return
	}
	if !a.session.TrySelect(mv.From) || a.session.TryMove(mv.From, mv.To) != corecheckers.Accepted {
		a.logger.Debug("cli_move_rejected", zap.String("move", text))
		fmt.Fprintln(a.out, color.YellowString("유효하지 않은 수입니다."))
		return
	}
	if a.session.Stalled() {
		fmt.Fprintln(a.out, color.YellowString("차례인 진영이 둘 수 있는 수가 없습니다. reset 으로 새 판을 시작하세요."))
	}
}

func (a *app) listMoves() {
	board := a.session.Board()
	moves := corecheckers.LegalMoves(&board, a.session.Turn())
	if len(moves) == 0 {
		fmt.Fprintln(a.out, "둘 수 있는 수가 없습니다.")
		return
	}
	names := make([]string, 0, len(moves))
	for _, mv := range moves {
		names = append(names, mv.String())
	}
	fmt.Fprintln(a.out, strings.Join(names, ", "))
}
