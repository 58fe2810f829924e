package checkerspresenter

import (
	"fmt"
	"strings"
	"time"

	"github.com/park285/kakao-checkers-bot/internal/msgcat"
	"github.com/park285/kakao-checkers-bot/internal/pvpchan"
	svc "github.com/park285/kakao-checkers-bot/internal/service/checkers"
	"github.com/park285/kakao-checkers-bot/internal/util"
	"github.com/park285/kakao-checkers-bot/pkg/checkersdto"
)

const (
	recentMovesLimit = 6
	piecesPerSide    = 12
)

// PrefixProvider 는 명령 접두사(예: "!")를 알려준다.
type PrefixProvider interface {
	Prefix() string
}

// Formatter 는 체커 DTO 를 카카오톡용 문구로 만든다.
type Formatter struct {
	prefixProvider PrefixProvider
	cat            *msgcat.Catalog
}

func NewFormatter(provider PrefixProvider, cat *msgcat.Catalog) *Formatter {
	if cat == nil {
		cat = msgcat.MustDefault()
	}
	return &Formatter{prefixProvider: provider, cat: cat}
}

func (f *Formatter) Prefix() string {
	if f == nil || f.prefixProvider == nil {
		return ""
	}
	return strings.TrimSpace(f.prefixProvider.Prefix())
}

func (f *Formatter) msg(key string, fallback string) string {
	return f.cat.Text(key, map[string]any{"prefix": f.Prefix()}, fallback)
}

func (f *Formatter) msgWith(key string, data map[string]any, fallback string) string {
	if data == nil {
		data = map[string]any{}
	}
	data["prefix"] = f.Prefix()
	return f.cat.Text(key, data, fallback)
}

func (f *Formatter) Help() string {
	header := f.msg("checkers.help_header", "체커 명령어 안내")
	p := f.Prefix()
	content := strings.Join([]string{
		header,
		"• " + p + "체커 시작 [computer|local]",
		"  새 게임 (computer: 컴퓨터 대전, local: 둘이서)",
		"• " + p + "체커 <수> (예: c3-d4, 22-18, c3xe5)",
		"  대각선 한 칸 이동 또는 상대 말을 뛰어넘어 잡기",
		"• " + p + "체커 수 [칸]",
		"  지금 둘 수 있는 수 보기",
		"• " + p + "체커 무르기 / 기권 / 현황",
		"• " + p + "체커 기록 [n] / 기보 <ID> / 프로필",
		"• " + p + "체커 선호 <computer|local>",
		"• " + p + "pvp @상대 [백|흑]  /  " + p + "채널 만들기|참가|목록|닫기",
	}, "\n")
	return util.ApplySeeMoreWithHeader(content, header, "", "")
}

func (f *Formatter) Start(state *checkersdto.SessionState, resumed bool) string {
	if state == nil {
		return f.msg("checkers.start.failed", "체커 게임을 시작할 수 없습니다.")
	}
	var sb strings.Builder
	if resumed {
		sb.WriteString(f.msg("checkers.start.resumed", "진행 중인 체커 게임을 불러왔습니다."))
	} else {
		sb.WriteString(f.msg("checkers.start.new", "체커 게임을 시작했습니다."))
	}
	sb.WriteByte('\n')
	fmt.Fprintf(&sb, "• 모드: %s\n", f.modeLabel(state.Mode))
	if resumed && state.MoveCount > 0 {
		fmt.Fprintf(&sb, "• 진행 %d수, 차례: %s\n", state.MoveCount, sideLabel(state.Turn))
	}
	sb.WriteString(formatProfileSummary(state.Profile, state.RatingDelta))
	fmt.Fprintf(&sb, "\n이동: `%s체커 c3-d4` 또는 `%s체커 22-18`", f.Prefix(), f.Prefix())
	return sb.String()
}

func (f *Formatter) Status(state *checkersdto.SessionState) string {
	if state == nil {
		return f.NoSession()
	}
	var sb strings.Builder
	sb.WriteString("⛀ 체커 현황\n")
	fmt.Fprintf(&sb, "• 모드 %s\n", f.modeLabel(state.Mode))
	fmt.Fprintf(&sb, "• 진행 %d수, 차례 %s\n", state.MoveCount, sideLabel(state.Turn))
	if len(state.Moves) > 0 {
		fmt.Fprintf(&sb, "• 최근 %s\n", formatRecentMoves(state.Moves))
	}
	sb.WriteString(formatMaterialLine(state.Material))
	sb.WriteString(formatProfileSummary(state.Profile, state.RatingDelta))
	if state.Stalled {
		sb.WriteByte('\n')
		sb.WriteString(f.msg("checkers.stalled", "둘 수 있는 수가 없습니다."))
	}
	return strings.TrimRight(sb.String(), "\n")
}

// Move 는 수 적용 결과. 진행 중이면 수순만, 종국이면 결과와 전적을 붙인다.
func (f *Formatter) Move(summary *checkersdto.MoveSummary) string {
	if summary == nil || summary.State == nil {
		return ""
	}
	var sb strings.Builder
	sb.WriteString("• 내 수: ")
	sb.WriteString(summary.PlayerMove)
	if summary.Promoted {
		sb.WriteString(" (킹 승격)")
	}
	if summary.ComputerMove != "" {
		sb.WriteString("\n• 컴퓨터: ")
		sb.WriteString(summary.ComputerMove)
	}
	sb.WriteByte('\n')
	sb.WriteString(formatMaterialLine(summary.Material))

	state := summary.State
	if !summary.Finished {
		if state.Stalled {
			sb.WriteString(f.msg("checkers.stalled", "둘 수 있는 수가 없습니다."))
		} else if state.Mode == "local" {
			fmt.Fprintf(&sb, "차례: %s", sideLabel(state.Turn))
		}
		return strings.TrimRight(sb.String(), "\n")
	}

	sb.WriteByte('\n')
	sb.WriteString(f.Outcome(state.Outcome, state.OutcomeMeta))
	sb.WriteByte('\n')
	sb.WriteString(formatProfileSummary(summary.Profile, summary.RatingDelta))
	if summary.GameID > 0 {
		fmt.Fprintf(&sb, "기보 ID: #%d", summary.GameID)
	}
	return strings.TrimRight(sb.String(), "\n")
}

func (f *Formatter) Moves(moves []string) string {
	if len(moves) == 0 {
		return f.msg("checkers.no_moves", "지금 둘 수 있는 수가 없습니다.")
	}
	return "가능한 수: " + strings.Join(moves, ", ")
}

func (f *Formatter) Undo(state *checkersdto.SessionState) string {
	if state == nil {
		return f.NoSession()
	}
	var sb strings.Builder
	sb.WriteString(f.msg("checkers.undo", "마지막 수를 되돌렸습니다."))
	fmt.Fprintf(&sb, "\n• 현재 진행 수: %d, 차례: %s\n", state.MoveCount, sideLabel(state.Turn))
	sb.WriteString(formatMaterialLine(state.Material))
	return strings.TrimRight(sb.String(), "\n")
}

func (f *Formatter) Resign(state *checkersdto.SessionState) string {
	if state == nil {
		return f.msg("checkers.outcome.resign", "기권하여 패배로 기록되었습니다.")
	}
	var sb strings.Builder
	sb.WriteString("🏳️ 기권 처리되었습니다.\n")
	sb.WriteString(f.Outcome(state.Outcome, state.OutcomeMeta))
	sb.WriteByte('\n')
	sb.WriteString(formatProfileSummary(state.Profile, state.RatingDelta))
	return strings.TrimRight(sb.String(), "\n")
}

// Outcome 은 결과 토큰(win/loss/light_wins/dark_wins)과 방식(capture_all/resign)을 문구로 바꾼다.
func (f *Formatter) Outcome(outcome, method string) string {
	o := strings.ToLower(strings.TrimSpace(outcome))
	m := strings.ToLower(strings.TrimSpace(method))
	switch {
	case o == svc.ResultWin:
		return f.msg("checkers.outcome.win", "승리했습니다!")
	case o == svc.ResultLoss && m == svc.MethodResign:
		return f.msg("checkers.outcome.resign", "기권하여 패배로 기록되었습니다.")
	case o == svc.ResultLoss:
		return f.msg("checkers.outcome.loss", "패배했습니다.")
	case o == svc.ResultLightWins:
		return f.msg("checkers.outcome.light_wins", "백 진영 승리")
	case o == svc.ResultDarkWins:
		return f.msg("checkers.outcome.dark_wins", "흑 진영 승리")
	default:
		return f.msg("checkers.outcome.ended", "게임이 종료되었습니다.")
	}
}

func (f *Formatter) History(games []*checkersdto.CheckersGame) string {
	header := f.msg("checkers.history_header", "최근 기보")
	if len(games) == 0 {
		return "저장된 체커 기보가 없습니다."
	}
	var sb strings.Builder
	sb.WriteString(header)
	sb.WriteByte('\n')
	for _, g := range games {
		fmt.Fprintf(&sb, "• #%d %s %s (%s, %d수)\n", g.ID, formatResultBadge(g.Result), formatShortTime(g.EndedAt), f.modeLabelShort(g.Mode), len(g.Moves))
		if d := formatGameDuration(g.Duration); d != "" {
			fmt.Fprintf(&sb, "  소요 시간: %s\n", d)
		}
	}
	fmt.Fprintf(&sb, "\n자세히 보려면 `%s체커 기보 <ID>`", f.Prefix())
	return util.ApplySeeMoreWithHeader(sb.String(), header, "", "")
}

func (f *Formatter) Game(game *checkersdto.CheckersGame) string {
	if game == nil {
		return f.msg("errors.game_not_found", "기보 정보를 불러오지 못했습니다.")
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "⛁ 기보 상세 #%d\n", game.ID)
	fmt.Fprintf(&sb, "• 결과: %s (%s)\n", formatResultBadge(game.Result), game.ResultMethod)
	fmt.Fprintf(&sb, "• 모드: %s\n", f.modeLabelShort(game.Mode))
	if !game.StartedAt.IsZero() {
		fmt.Fprintf(&sb, "• 시작: %s\n", formatShortTime(game.StartedAt))
	}
	if !game.EndedAt.IsZero() {
		fmt.Fprintf(&sb, "• 종료: %s\n", formatShortTime(game.EndedAt))
	}
	if d := formatGameDuration(game.Duration); d != "" {
		fmt.Fprintf(&sb, "• 소요 시간: %s\n", d)
	}
	fmt.Fprintf(&sb, "• 잡기 %d회, 승격 %d회\n", game.Captures, game.Promotions)
	if pdn := strings.TrimSpace(game.PDN); pdn != "" {
		sb.WriteString("\n```pdn\n")
		sb.WriteString(pdn)
		sb.WriteString("\n```")
	}
	return strings.TrimRight(sb.String(), "\n")
}

func (f *Formatter) Profile(profile *checkersdto.CheckersProfile) string {
	if profile == nil {
		return f.msg("errors.profile_not_found", "저장된 체커 프로필이 없습니다.")
	}
	header := f.msg("checkers.profile_header", "체커 프로필")
	var sb strings.Builder
	sb.WriteString(header)
	sb.WriteByte('\n')
	sb.WriteString(formatProfileSummary(profile, 0))
	if profile.PreferredMode != "" {
		fmt.Fprintf(&sb, "• 선호 모드: %s\n", f.modeLabelShort(profile.PreferredMode))
	}
	if profile.Streak > 1 {
		fmt.Fprintf(&sb, "• 연속 기록: %d%s 진행 중\n", profile.Streak, formatStreakSuffix(profile.StreakType))
	}
	if !profile.LastPlayedAt.IsZero() {
		fmt.Fprintf(&sb, "• 마지막 경기: %s\n", formatShortTime(profile.LastPlayedAt))
	}
	p := f.Prefix()
	fmt.Fprintf(&sb, "\n새 게임: `%s체커 시작`, 기록: `%s체커 기록`", p, p)
	return util.ApplySeeMoreWithHeader(sb.String(), header, "", "")
}

func (f *Formatter) PreferredModeUpdated(profile *checkersdto.CheckersProfile) string {
	if profile == nil {
		return f.msg("errors.generic", "선호 모드를 저장하지 못했습니다.")
	}
	return fmt.Sprintf("✅ 선호 모드를 %s(으)로 설정했습니다.\n새 게임 시작: `%s체커 시작`", f.modeLabelShort(profile.PreferredMode), f.Prefix())
}

func (f *Formatter) NoSession() string {
	return f.msg("checkers.no_session", "진행 중인 체커 게임이 없습니다.")
}

// PvPStart 는 대국 시작 안내
func (f *Formatter) PvPStart(lightName, darkName string) string {
	return f.msgWith("pvp.start", map[string]any{"light": lightName, "dark": darkName}, lightName+" vs "+darkName)
}

// PvPFinish 는 method(capture_all|resign) 별 종료 문구
func (f *Formatter) PvPFinish(method, winner string) string {
	key := "pvp.finish.capture_all"
	if method == svc.MethodResign {
		key = "pvp.finish.resign"
	}
	return f.msgWith(key, map[string]any{"winner": winner}, "대국 종료 (승자: "+winner+")")
}

// PvPChallenge 는 대상에게 수락/거절 방법을 알린다.
func (f *Formatter) PvPChallenge(challenger, target string) string {
	return f.msgWith("pvp.challenge", map[string]any{"challenger": challenger, "target": target}, challenger+" → "+target)
}

func (f *Formatter) PvPDeclined(challenger, target string) string {
	return f.msgWith("pvp.declined", map[string]any{"challenger": challenger, "target": target}, target+" 님이 거절했습니다.")
}

func (f *Formatter) NoPvPGame() string { return f.msg("pvp.none", "활성 PvP 대국이 없습니다.") }

func (f *Formatter) ChannelMade(code string) string {
	return f.msgWith("channel.made", map[string]any{"code": code}, "채널 "+code)
}

func (f *Formatter) ChannelWaiting(code string) string {
	return f.msgWith("channel.waiting", map[string]any{"code": code}, "채널 "+code)
}

func (f *Formatter) ChannelClosed(code string) string {
	return f.msgWith("channel.closed", map[string]any{"code": code}, "채널 "+code)
}

func (f *Formatter) Lobby(list []*pvpchan.ChannelMeta) string {
	if len(list) == 0 {
		return f.msg("channel.lobby_empty", "대기 중인 채널이 없습니다.")
	}
	var sb strings.Builder
	sb.WriteString(f.msg("channel.lobby_header", "대기 중인 채널"))
	for _, m := range list {
		fmt.Fprintf(&sb, "\n• %s %s (%s)", m.ID, m.CreatorName, formatShortTime(m.CreatedAt))
	}
	fmt.Fprintf(&sb, "\n\n참가: `%s채널 참가 <코드>`", f.Prefix())
	return sb.String()
}

// Error 는 서비스/채널 에러를 사용자 문구로 바꾼다. 모르는 에러는 일반 문구.
func (f *Formatter) Error(err error) string {
	d := ToDomainError(err)
	if d.Message != "" {
		return d.Message
	}
	generic := f.msg("errors.generic", "요청을 처리하지 못했습니다.")
	if d.Code == checkersdto.CodeNoSession {
		return f.msg("checkers.no_session", generic)
	}
	return f.msg("errors."+d.Code, generic)
}

func (f *Formatter) modeLabel(mode string) string {
	switch mode {
	case "computer":
		return f.msg("checkers.mode.computer", "컴퓨터 대전")
	case "local":
		return f.msg("checkers.mode.local", "둘이서 두기")
	default:
		return mode
	}
}

func (f *Formatter) modeLabelShort(mode string) string {
	switch mode {
	case "computer":
		return "컴퓨터 대전"
	case "local":
		return "둘이서"
	case "":
		return "-"
	default:
		return mode
	}
}

func sideLabel(turn string) string {
	switch turn {
	case "light":
		return "백"
	case "dark":
		return "흑"
	default:
		return "-"
	}
}

func formatProfileSummary(profile *checkersdto.CheckersProfile, ratingDelta int) string {
	if profile == nil {
		return ""
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "• 현재 레이팅: %d", profile.Rating)
	switch {
	case ratingDelta > 0:
		fmt.Fprintf(&sb, " (▲%d)", ratingDelta)
	case ratingDelta < 0:
		fmt.Fprintf(&sb, " (▼%d)", -ratingDelta)
	}
	sb.WriteByte('\n')
	fmt.Fprintf(&sb, "• 누적 전적: %d승 %d패 %d무 (%d판)\n", profile.Wins, profile.Losses, profile.Draws, profile.GamesPlayed)
	return sb.String()
}

// formatMaterialLine: "• 남은 말 백 10(킹 1) : 흑 12 (+2 흑)"
func formatMaterialLine(m checkersdto.MaterialScore) string {
	if m.Light == 0 && m.Dark == 0 {
		return ""
	}
	side := func(n, kings int) string {
		if kings > 0 {
			return fmt.Sprintf("%d(킹 %d)", n, kings)
		}
		return fmt.Sprintf("%d", n)
	}
	line := fmt.Sprintf("• 남은 말 백 %s : 흑 %s", side(m.Light, m.LightKings), side(m.Dark, m.DarkKings))
	switch diff := m.Light - m.Dark; {
	case diff > 0:
		line += fmt.Sprintf(" (+%d 백)", diff)
	case diff < 0:
		line += fmt.Sprintf(" (+%d 흑)", -diff)
	}
	if lost := 2*piecesPerSide - m.Light - m.Dark; lost > 0 {
		line += fmt.Sprintf(", 잡힌 말 %d", lost)
	}
	return line + "\n"
}

func formatStreakSuffix(streakType string) string {
	switch strings.ToLower(strings.TrimSpace(streakType)) {
	case "win":
		return "연승"
	case "loss":
		return "연패"
	case "draw":
		return "연속 무승부"
	default:
		return "연속 기록"
	}
}

func formatRecentMoves(moves []string) string {
	if len(moves) <= recentMovesLimit {
		return strings.Join(moves, " ")
	}
	return "… " + strings.Join(moves[len(moves)-recentMovesLimit:], " ")
}

func formatResultBadge(result string) string {
	switch strings.ToLower(strings.TrimSpace(result)) {
	case svc.ResultWin:
		return "✅ 승"
	case svc.ResultLoss:
		return "❌ 패"
	case svc.ResultDraw:
		return "🤝 무"
	case svc.ResultLightWins:
		return "⛀ 백 승"
	case svc.ResultDarkWins:
		return "⛂ 흑 승"
	default:
		return "▫️ 진행"
	}
}

func formatShortTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return util.FormatKST(t, "2006-01-02 15:04")
}

func formatGameDuration(d time.Duration) string {
	if d <= 0 {
		return ""
	}
	if d < time.Second {
		return d.Round(time.Millisecond).String()
	}
	return d.Round(time.Second).String()
}
