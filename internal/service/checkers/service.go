package checkers

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	corecheckers "github.com/park285/kakao-checkers-bot/internal/checkers"
	"github.com/park285/kakao-checkers-bot/internal/domain"
	"github.com/park285/kakao-checkers-bot/internal/service/cache"
	"go.uber.org/zap"
)

var (
	ErrSessionNotFound   = errors.New("checkers session not found")
	ErrSessionInProgress = errors.New("checkers session already in progress")
	ErrInvalidMove       = errors.New("invalid checkers move")
	ErrNotYourPiece      = errors.New("no movable piece on source square")
	ErrNotYourTurn       = errors.New("not the player's turn")
	ErrGameNotFound      = errors.New("checkers game not found")
	ErrProfileNotFound   = errors.New("checkers profile not found")
	ErrUndoNotAvailable  = errors.New("no moves available to undo")
	ErrRoomNotAllowed    = errors.New("checkers room not allowed")
	ErrUnknownMode       = errors.New("unknown checkers mode")
)

const (
	defaultPlayerRating   = 1200
	computerRating        = 800
	kFactor               = 24
	profileCacheTTL       = 6 * time.Hour
	maxHistoryLimit       = 50
	playerLabelRuneLimit  = 24
	defaultHUDPlayerLabel = "Player"

	ResultWin       = "win"
	ResultLoss      = "loss"
	ResultDraw      = "draw"
	ResultLightWins = "light_wins"
	ResultDarkWins  = "dark_wins"

	MethodCaptureAll = "capture_all"
	MethodResign     = "resign"
)

type SessionMeta struct {
	SessionID string
	Room      string
	Sender    string
}

type sessionIdentity struct {
	SessionID  string
	RoomHash   string
	PlayerHash string
}

type Config struct {
	DefaultMode  corecheckers.Mode
	SessionTTL   time.Duration
	HistoryLimit int
	AllowedRooms []string
	RandomSeed   int64
}

type Service struct {
	cache        *cache.CacheService
	renderer     BoardRenderer
	repo         Repository
	cfg          Config
	allowedRooms map[string]struct{}
	logger       *zap.Logger

	randMu sync.Mutex
	rng    *rand.Rand
}

type sessionPayload struct {
	SessionUUID string    `json:"session_uuid"`
	PlayerHash  string    `json:"player_hash"`
	RoomHash    string    `json:"room_hash"`
	PlayerName  string    `json:"player_name,omitempty"`
	Mode        string    `json:"mode"`
	Moves       []string  `json:"moves"`
	StartedAt   time.Time `json:"started_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type SessionState struct {
	SessionUUID  string
	PlayerHash   string
	RoomHash     string
	PlayerName   string
	Mode         corecheckers.Mode
	Moves        []string
	Board        corecheckers.Board
	BoardImage   []byte
	Turn         corecheckers.Color
	MoveCount    int
	Outcome      corecheckers.Outcome
	Result       string
	ResultMethod string
	StartedAt    time.Time
	UpdatedAt    time.Time
	RatingDelta  int
	Profile      *domain.CheckersProfile
	Material     MaterialScore
	Stalled      bool
}

type MoveSummary struct {
	State        *SessionState
	PlayerMove   string
	ComputerMove string
	Captured     int
	Promoted     bool
	Finished     bool
	GameID       int64
	Profile      *domain.CheckersProfile
	RatingDelta  int
	Material     MaterialScore
}

// MaterialScore 는 진영별 남은 말 수(킹 포함)
type MaterialScore struct {
	Light      int
	Dark       int
	LightKings int
	DarkKings  int
}

func (m MaterialScore) Diff() int { return m.Light - m.Dark }

// MaterialOf 는 보드의 남은 말을 진영별로 센다.
func MaterialOf(b corecheckers.Board) MaterialScore {
	var score MaterialScore
	for _, sq := range b.Pieces(corecheckers.Light) {
		score.Light++
		if b.At(sq).King {
			score.LightKings++
		}
	}
	for _, sq := range b.Pieces(corecheckers.Dark) {
		score.Dark++
		if b.At(sq).King {
			score.DarkKings++
		}
	}
	return score
}

// lockedSource 는 여러 요청이 같은 *rand.Rand 를 공유할 수 있게 한다.
type lockedSource struct{ s *Service }

func (l lockedSource) Intn(n int) int {
	l.s.randMu.Lock()
	defer l.s.randMu.Unlock()
	return l.s.rng.Intn(n)
}

func NewService(cacheSvc *cache.CacheService, repo Repository, renderer BoardRenderer, cfg Config, logger *zap.Logger) (*Service, error) {
	if cacheSvc == nil {
		return nil, fmt.Errorf("cache service is required")
	}
	if repo == nil {
		return nil, fmt.Errorf("checkers repository is required")
	}
	if renderer == nil {
		return nil, fmt.Errorf("board renderer is required")
	}
	if cfg.SessionTTL <= 0 {
		return nil, fmt.Errorf("session TTL must be greater than 0")
	}
	if cfg.HistoryLimit <= 0 || cfg.HistoryLimit > maxHistoryLimit {
		cfg.HistoryLimit = 10
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	seed := cfg.RandomSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	allowedRooms := make(map[string]struct{})
	for _, room := range cfg.AllowedRooms {
		normalized := strings.ToLower(strings.TrimSpace(room))
		if normalized == "" {
			continue
		}
		allowedRooms[normalized] = struct{}{}
	}

	return &Service{
		cache:    cacheSvc,
		renderer: renderer,
		repo:     repo,
		cfg: Config{
			DefaultMode:  cfg.DefaultMode,
			SessionTTL:   cfg.SessionTTL,
			HistoryLimit: cfg.HistoryLimit,
			AllowedRooms: append([]string(nil), cfg.AllowedRooms...),
			RandomSeed:   cfg.RandomSeed,
		},
		allowedRooms: allowedRooms,
		logger:       logger,
		rng:          rand.New(rand.NewSource(seed)),
	}, nil
}

// StartSession 은 새 판을 연다. 진행 중인 판이 있으면 그 상태와 ErrSessionInProgress 를 함께 반환한다.
func (s *Service) StartSession(ctx context.Context, meta SessionMeta, modeText string) (*SessionState, error) {
	if err := s.ensureReady(); err != nil {
		return nil, err
	}
	if err := s.ensureRoomAllowed(meta); err != nil {
		return nil, err
	}

	identity := deriveIdentity(meta)
	existing, err := s.loadSession(ctx, identity.SessionID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		session, err := s.replaySession(existing)
		if err != nil {
			return nil, err
		}
		state := s.stateFromSession(existing, session)
		if profile, profErr := s.fetchProfile(ctx, identity, true); profErr == nil {
			state.Profile = profile
		}
		s.applyPlayerName(state, existing, meta)
		s.attachBoardImage(ctx, state, session)
		return state, ErrSessionInProgress
	}

	profile, err := s.fetchProfile(ctx, identity, false)
	if err != nil && !errors.Is(err, ErrProfileNotFound) {
		return nil, err
	}

	mode := s.cfg.DefaultMode
	if token := strings.ToLower(strings.TrimSpace(modeText)); token != "" {
		parsed, ok := corecheckers.ParseMode(token)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownMode, token)
		}
		mode = parsed
	} else if profile != nil && profile.PreferredMode != "" {
		if parsed, ok := corecheckers.ParseMode(profile.PreferredMode); ok {
			mode = parsed
		}
	}

	now := time.Now()
	payload := &sessionPayload{
		SessionUUID: uuid.NewString(),
		PlayerHash:  identity.PlayerHash,
		RoomHash:    identity.RoomHash,
		PlayerName:  normalizeHUDPlayerLabel(meta.Sender),
		Mode:        mode.String(),
		Moves:       []string{},
		StartedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.saveSession(ctx, identity.SessionID, payload); err != nil {
		return nil, err
	}

	session := corecheckers.NewSession(mode, corecheckers.WithSource(lockedSource{s}))
	state := s.stateFromSession(payload, session)
	s.applyPlayerName(state, payload, meta)
	s.attachBoardImage(ctx, state, session)
	state.Profile = profile
	s.logger.Info("checkers_session_started",
		zap.String("session_uuid", payload.SessionUUID),
		zap.String("mode", payload.Mode),
	)
	return state, nil
}

func (s *Service) Status(ctx context.Context, meta SessionMeta) (*SessionState, error) {
	payload, session, identity, err := s.loadActive(ctx, meta)
	if err != nil {
		return nil, err
	}
	state := s.stateFromSession(payload, session)
	if profile, err := s.fetchProfile(ctx, identity, true); err == nil {
		state.Profile = profile
	}
	s.applyPlayerName(state, payload, meta)
	s.attachBoardImage(ctx, state, session)
	return state, nil
}

// Play 는 사용자의 수를 적용하고, 컴퓨터 대전이면 컴퓨터의 응수까지 같은 호출 안에서 적용한다.
func (s *Service) Play(ctx context.Context, meta SessionMeta, moveInput string) (*MoveSummary, error) {
	moveText := strings.TrimSpace(moveInput)
	if moveText == "" {
		return nil, ErrInvalidMove
	}
	mv, err := corecheckers.ParseMove(moveText)
	if err != nil {
		return nil, ErrInvalidMove
	}

	payload, session, identity, err := s.loadActive(ctx, meta)
	if err != nil {
		return nil, err
	}
	if session.Mode() == corecheckers.VsComputer && session.Turn() == session.ComputerColor() {
		return nil, ErrNotYourTurn
	}
	if !session.TrySelect(mv.From) {
		return nil, ErrNotYourPiece
	}

	before := len(session.History())
	if session.TryMove(mv.From, mv.To) != corecheckers.Accepted {
		return nil, ErrInvalidMove
	}
	applied := session.History()[before:]

	payload.Moves = movesToText(session.Moves())
	payload.UpdatedAt = time.Now()

	summary := &MoveSummary{Finished: session.Outcome() != corecheckers.None}
	for _, rec := range applied {
		if rec.Captured != nil {
			summary.Captured++
		}
		if rec.Auto {
			summary.ComputerMove = rec.Notation()
			continue
		}
		summary.PlayerMove = rec.Notation()
		summary.Promoted = rec.Promoted
	}

	state := s.stateFromSession(payload, session)
	s.applyPlayerName(state, payload, meta)
	s.attachBoardImage(ctx, state, session)
	summary.State = state
	summary.Material = state.Material

	s.logger.Debug("checkers_move",
		zap.String("session_uuid", payload.SessionUUID),
		zap.String("player", summary.PlayerMove),
		zap.String("computer", summary.ComputerMove),
		zap.Int("applied", len(applied)),
	)

	if summary.Finished {
		gameID, profile, delta, err := s.persistFinishedGame(ctx, identity, payload, session, MethodCaptureAll, corecheckers.NoColor)
		if err != nil {
			return nil, err
		}
		summary.GameID = gameID
		summary.Profile = profile
		summary.RatingDelta = delta
		state.Profile = profile
		state.RatingDelta = delta
		if err := s.deleteSession(ctx, identity.SessionID); err != nil {
			s.logger.Warn("failed to delete finished checkers session", zap.Error(err))
		}
		return summary, nil
	}

	if err := s.saveSession(ctx, identity.SessionID, payload); err != nil {
		return nil, err
	}
	return summary, nil
}

// Moves 는 현재 차례 진영이 둘 수 있는 수를 반환한다. from 이 주어지면 그 칸의 말로 한정한다.
func (s *Service) Moves(ctx context.Context, meta SessionMeta, from string) ([]string, error) {
	_, session, _, err := s.loadActive(ctx, meta)
	if err != nil {
		return nil, err
	}
	board := session.Board()
	var moves []corecheckers.Move
	if strings.TrimSpace(from) == "" {
		moves = corecheckers.LegalMoves(&board, session.Turn())
	} else {
		sq, err := corecheckers.ParseSquare(from)
		if err != nil {
			return nil, ErrInvalidMove
		}
		if !session.TrySelect(sq) {
			return nil, ErrNotYourPiece
		}
		moves = corecheckers.MovesFrom(&board, session.Turn(), sq)
	}
	out := make([]string, 0, len(moves))
	for _, mv := range moves {
		out = append(out, corecheckers.FormatMove(mv, isCapture(board, session.Turn(), mv)))
	}
	return out, nil
}

func (s *Service) Resign(ctx context.Context, meta SessionMeta) (*SessionState, error) {
	payload, session, identity, err := s.loadActive(ctx, meta)
	if err != nil {
		return nil, err
	}
	resigning := corecheckers.Light
	if session.Mode() == corecheckers.TwoPlayer {
		resigning = session.Turn()
	}
	payload.UpdatedAt = time.Now()

	state := s.stateFromSession(payload, session)
	state.ResultMethod = MethodResign
	state.Result = resultFor(session.Mode(), corecheckers.None, resigning)
	s.applyPlayerName(state, payload, meta)
	s.attachBoardImage(ctx, state, session)

	gameID, profile, delta, err := s.persistFinishedGame(ctx, identity, payload, session, MethodResign, resigning)
	if err != nil {
		return nil, err
	}
	state.Profile = profile
	state.RatingDelta = delta

	if err := s.deleteSession(ctx, identity.SessionID); err != nil {
		s.logger.Warn("failed to delete checkers session after resignation", zap.Error(err))
	}
	if gameID == 0 {
		s.logger.Warn("resigned checkers game did not persist with id")
	}
	return state, nil
}

// Undo 는 컴퓨터 대전이면 사용자의 마지막 수와 그 응수를, 둘이서 모드면 마지막 한 수를 되돌린다.
func (s *Service) Undo(ctx context.Context, meta SessionMeta) (*SessionState, error) {
	payload, session, identity, err := s.loadActive(ctx, meta)
	if err != nil {
		return nil, err
	}
	history := session.History()
	cut := len(history)
	if session.Mode() == corecheckers.VsComputer {
		for cut > 0 && history[cut-1].Auto {
			cut--
		}
	}
	if cut == 0 {
		return nil, ErrUndoNotAvailable
	}
	cut--

	payload.Moves = append([]string(nil), payload.Moves[:cut]...)
	payload.UpdatedAt = time.Now()

	session, err = s.replaySession(payload)
	if err != nil {
		return nil, err
	}
	state := s.stateFromSession(payload, session)
	if profile, profErr := s.fetchProfile(ctx, identity, true); profErr == nil {
		state.Profile = profile
	}
	s.applyPlayerName(state, payload, meta)
	s.attachBoardImage(ctx, state, session)

	if err := s.saveSession(ctx, identity.SessionID, payload); err != nil {
		return nil, err
	}
	return state, nil
}

func (s *Service) History(ctx context.Context, meta SessionMeta, limit int) ([]*domain.CheckersGame, error) {
	if err := s.ensureReady(); err != nil {
		return nil, err
	}
	if err := s.ensureRoomAllowed(meta); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > s.cfg.HistoryLimit {
		limit = s.cfg.HistoryLimit
	}
	identity := deriveIdentity(meta)
	return s.repo.GetRecentGames(ctx, identity.PlayerHash, limit)
}

func (s *Service) Game(ctx context.Context, meta SessionMeta, id int64) (*domain.CheckersGame, error) {
	if err := s.ensureReady(); err != nil {
		return nil, err
	}
	if err := s.ensureRoomAllowed(meta); err != nil {
		return nil, err
	}
	identity := deriveIdentity(meta)
	game, err := s.repo.GetGame(ctx, id, identity.PlayerHash)
	if err != nil {
		return nil, err
	}
	if game == nil {
		return nil, ErrGameNotFound
	}
	return game, nil
}

func (s *Service) Profile(ctx context.Context, meta SessionMeta) (*domain.CheckersProfile, error) {
	if err := s.ensureReady(); err != nil {
		return nil, err
	}
	if err := s.ensureRoomAllowed(meta); err != nil {
		return nil, err
	}
	identity := deriveIdentity(meta)
	profile, err := s.fetchProfile(ctx, identity, true)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return nil, ErrProfileNotFound
	}
	return profile, nil
}

// UpdatePreferredMode 는 모드를 지정하지 않고 시작할 때 쓸 기본 모드를 저장한다.
func (s *Service) UpdatePreferredMode(ctx context.Context, meta SessionMeta, modeText string) (*domain.CheckersProfile, error) {
	if err := s.ensureReady(); err != nil {
		return nil, err
	}
	if err := s.ensureRoomAllowed(meta); err != nil {
		return nil, err
	}
	mode, ok := corecheckers.ParseMode(strings.ToLower(strings.TrimSpace(modeText)))
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownMode, modeText)
	}
	identity := deriveIdentity(meta)
	profile, err := s.fetchProfile(ctx, identity, false)
	if err != nil && !errors.Is(err, ErrProfileNotFound) {
		return nil, err
	}
	now := time.Now()
	if profile == nil {
		profile = &domain.CheckersProfile{
			PlayerHash: identity.PlayerHash,
			RoomHash:   identity.RoomHash,
			Rating:     defaultPlayerRating,
			CreatedAt:  now,
		}
	}
	profile.PreferredMode = mode.String()
	profile.UpdatedAt = now
	if err := s.repo.UpsertProfile(ctx, profile); err != nil {
		return nil, err
	}
	s.cacheProfile(ctx, identity, profile)
	return profile, nil
}

func (s *Service) loadActive(ctx context.Context, meta SessionMeta) (*sessionPayload, *corecheckers.Session, sessionIdentity, error) {
	if err := s.ensureReady(); err != nil {
		return nil, nil, sessionIdentity{}, err
	}
	if err := s.ensureRoomAllowed(meta); err != nil {
		return nil, nil, sessionIdentity{}, err
	}
	identity := deriveIdentity(meta)
	payload, err := s.loadSession(ctx, identity.SessionID)
	if err != nil {
		return nil, nil, identity, err
	}
	if payload == nil {
		return nil, nil, identity, ErrSessionNotFound
	}
	session, err := s.replaySession(payload)
	if err != nil {
		return nil, nil, identity, err
	}
	return payload, session, identity, nil
}

func (s *Service) ensureReady() error {
	switch {
	case s == nil:
		return fmt.Errorf("checkers service not configured")
	case s.cache == nil:
		return fmt.Errorf("cache service not configured")
	case s.renderer == nil:
		return fmt.Errorf("board renderer not configured")
	case s.repo == nil:
		return fmt.Errorf("checkers repository not configured")
	default:
		return nil
	}
}

func (s *Service) ensureRoomAllowed(meta SessionMeta) error {
	if len(s.allowedRooms) == 0 {
		return nil
	}
	room := strings.ToLower(strings.TrimSpace(meta.Room))
	if room == "" {
		room = "unknown-room"
	}
	if _, ok := s.allowedRooms[room]; ok {
		return nil
	}
	s.logger.Info("checkers room access denied",
		zap.String("room", room),
		zap.String("sender", strings.TrimSpace(meta.Sender)),
	)
	return ErrRoomNotAllowed
}

func (s *Service) sessionKey(sessionID string) string {
	hash := sha256.Sum256([]byte(strings.TrimSpace(sessionID)))
	return "checkers:sessions:" + hex.EncodeToString(hash[:])
}

func (s *Service) profileCacheKey(identity sessionIdentity) string {
	return "checkers:profile:" + identity.PlayerHash + ":" + identity.RoomHash
}

func (s *Service) loadSession(ctx context.Context, sessionID string) (*sessionPayload, error) {
	payload := &sessionPayload{}
	if err := s.cache.Get(ctx, s.sessionKey(sessionID), payload); err != nil {
		return nil, err
	}
	if payload.SessionUUID == "" {
		return nil, nil
	}
	return payload, nil
}

func (s *Service) saveSession(ctx context.Context, sessionID string, payload *sessionPayload) error {
	if payload == nil {
		return fmt.Errorf("cannot save nil checkers session payload")
	}
	payload.UpdatedAt = time.Now()
	return s.cache.Set(ctx, s.sessionKey(sessionID), payload, s.cfg.SessionTTL)
}

func (s *Service) deleteSession(ctx context.Context, sessionID string) error {
	return s.cache.Del(ctx, s.sessionKey(sessionID))
}

func (s *Service) replaySession(payload *sessionPayload) (*corecheckers.Session, error) {
	mode, ok := corecheckers.ParseMode(payload.Mode)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownMode, payload.Mode)
	}
	moves, err := textToMoves(payload.Moves)
	if err != nil {
		return nil, err
	}
	session, n, ok := corecheckers.Replay(mode, moves, corecheckers.WithSource(lockedSource{s}))
	if !ok {
		return nil, fmt.Errorf("replay checkers session: move %d (%s) rejected", n+1, payload.Moves[n])
	}
	return session, nil
}

func (s *Service) stateFromSession(payload *sessionPayload, session *corecheckers.Session) *SessionState {
	board := session.Board()
	state := &SessionState{
		SessionUUID: payload.SessionUUID,
		PlayerHash:  payload.PlayerHash,
		RoomHash:    payload.RoomHash,
		PlayerName:  payload.PlayerName,
		Mode:        session.Mode(),
		Moves:       recordsToText(session.History()),
		Board:       board,
		Turn:        session.Turn(),
		MoveCount:   len(session.History()),
		Outcome:     session.Outcome(),
		StartedAt:   payload.StartedAt,
		UpdatedAt:   payload.UpdatedAt,
		Material:    MaterialOf(board),
		Stalled:     session.Stalled(),
	}
	if state.Outcome != corecheckers.None {
		state.Result = resultFor(state.Mode, state.Outcome, corecheckers.NoColor)
		state.ResultMethod = MethodCaptureAll
	}
	return state
}

func (s *Service) applyPlayerName(state *SessionState, payload *sessionPayload, meta SessionMeta) {
	if state == nil {
		return
	}
	label := ""
	if payload != nil {
		label = normalizeHUDPlayerLabel(payload.PlayerName)
	}
	if label == "" {
		label = normalizeHUDPlayerLabel(meta.Sender)
	}
	if label == "" {
		label = defaultHUDPlayerLabel
	}
	state.PlayerName = label
	if payload != nil {
		payload.PlayerName = label
	}
}

func (s *Service) attachBoardImage(ctx context.Context, state *SessionState, session *corecheckers.Session) {
	if state == nil || session == nil || s.renderer == nil {
		return
	}
	opponent := "Computer"
	if state.Mode == corecheckers.TwoPlayer {
		opponent = "Local"
	}
	turnNumber := state.MoveCount/2 + 1
	hudTurn := fmt.Sprintf("Light to move - %d", turnNumber)
	switch {
	case state.Outcome != corecheckers.None:
		hudTurn = "Game over"
	case state.Turn == corecheckers.Dark:
		hudTurn = fmt.Sprintf("Dark to move - %d", turnNumber)
	}

	opts := RenderOptions{
		Material:  state.Material,
		HUDHeader: fmt.Sprintf("%s vs %s", hudLabel(state.PlayerName), opponent),
		HUDTurn:   hudTurn,
	}
	if last, ok := session.LastRecord(); ok {
		opts.Highlight = &MoveHighlight{From: last.Move.From, To: last.Move.To, Mover: last.Color}
	}
	board := session.Board()
	data, err := s.renderer.RenderPNG(ctx, &board, opts)
	if err != nil {
		s.logger.Warn("failed to render checkers board image", zap.Error(err))
		return
	}
	state.BoardImage = data
}

func (s *Service) persistFinishedGame(ctx context.Context, identity sessionIdentity, payload *sessionPayload, session *corecheckers.Session, method string, resignedBy corecheckers.Color) (int64, *domain.CheckersProfile, int, error) {
	now := time.Now()
	history := session.History()
	result := resultFor(session.Mode(), session.Outcome(), resignedBy)

	record := &domain.CheckersGame{
		SessionUUID:  payload.SessionUUID,
		PlayerHash:   identity.PlayerHash,
		RoomHash:     identity.RoomHash,
		Mode:         session.Mode().String(),
		Result:       result,
		ResultMethod: method,
		Moves:        recordsToText(history),
		PDN:          buildPDN(payload, session, resignedBy, now),
		StartedAt:    payload.StartedAt,
		EndedAt:      now,
		Duration:     now.Sub(payload.StartedAt),
	}
	for _, rec := range history {
		if rec.Captured != nil {
			record.Captures++
		}
		if rec.Promoted {
			record.Promotions++
		}
	}

	gameID, err := s.repo.InsertGame(ctx, record)
	if err != nil {
		if errors.Is(err, ErrDuplicateGame) {
			existing, fetchErr := s.repo.GetGameBySession(ctx, payload.SessionUUID, identity.PlayerHash)
			if fetchErr != nil || existing == nil {
				return 0, nil, 0, err
			}
			profile, profErr := s.fetchProfile(ctx, identity, true)
			if profErr != nil && !errors.Is(profErr, ErrProfileNotFound) {
				return existing.ID, nil, 0, profErr
			}
			return existing.ID, profile, 0, nil
		}
		return 0, nil, 0, err
	}

	profile, err := s.fetchProfile(ctx, identity, false)
	if err != nil && !errors.Is(err, ErrProfileNotFound) {
		return gameID, nil, 0, err
	}
	profile, delta := applyGameResult(profile, identity, session.Mode(), result, now)
	if err := s.repo.UpsertProfile(ctx, profile); err != nil {
		return gameID, nil, 0, err
	}
	s.cacheProfile(ctx, identity, profile)

	s.logger.Info("checkers_game_finished",
		zap.Int64("game_id", gameID),
		zap.String("result", result),
		zap.String("method", method),
		zap.Int("moves", len(history)),
	)
	return gameID, profile, delta, nil
}

func (s *Service) fetchProfile(ctx context.Context, identity sessionIdentity, allowCache bool) (*domain.CheckersProfile, error) {
	if allowCache {
		cached := &domain.CheckersProfile{}
		if err := s.cache.Get(ctx, s.profileCacheKey(identity), cached); err != nil {
			return nil, err
		}
		if cached.PlayerHash != "" {
			return cached, nil
		}
	}
	profile, err := s.repo.GetProfile(ctx, identity.PlayerHash, identity.RoomHash)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return nil, ErrProfileNotFound
	}
	s.cacheProfile(ctx, identity, profile)
	return profile, nil
}

func (s *Service) cacheProfile(ctx context.Context, identity sessionIdentity, profile *domain.CheckersProfile) {
	if profile == nil {
		return
	}
	if err := s.cache.Set(ctx, s.profileCacheKey(identity), profile, profileCacheTTL); err != nil {
		s.logger.Warn("failed to cache checkers profile", zap.Error(err))
	}
}

func deriveIdentity(meta SessionMeta) sessionIdentity {
	sessionID := strings.ToLower(strings.TrimSpace(meta.SessionID))
	room := strings.ToLower(strings.TrimSpace(meta.Room))
	sender := strings.ToLower(strings.TrimSpace(meta.Sender))
	if sessionID == "" {
		sessionID = room + ":" + sender
	}
	return sessionIdentity{
		SessionID:  sessionID,
		RoomHash:   hashString(room),
		PlayerHash: hashString(room + ":" + sender),
	}
}

func hashString(value string) string {
	sum := sha256.Sum256([]byte(value))
	return hex.EncodeToString(sum[:])
}

// resultFor 는 컴퓨터 대전이면 사용자(Light) 관점의 win/loss, 둘이서 모드면 승리 진영을 기록한다.
func resultFor(mode corecheckers.Mode, outcome corecheckers.Outcome, resignedBy corecheckers.Color) string {
	winner := outcome.Winner()
	if winner == corecheckers.NoColor && resignedBy != corecheckers.NoColor {
		winner = resignedBy.Opponent()
	}
	if mode == corecheckers.TwoPlayer {
		switch winner {
		case corecheckers.Light:
			return ResultLightWins
		case corecheckers.Dark:
			return ResultDarkWins
		default:
			return ResultDraw
		}
	}
	switch winner {
	case corecheckers.Light:
		return ResultWin
	case corecheckers.Dark:
		return ResultLoss
	default:
		return ResultDraw
	}
}

// applyGameResult 는 전적을 갱신한다. 레이팅은 컴퓨터 대전에서만 움직인다.
func applyGameResult(profile *domain.CheckersProfile, identity sessionIdentity, mode corecheckers.Mode, result string, endedAt time.Time) (*domain.CheckersProfile, int) {
	if profile == nil {
		profile = &domain.CheckersProfile{
			PlayerHash: identity.PlayerHash,
			RoomHash:   identity.RoomHash,
			Rating:     defaultPlayerRating,
			CreatedAt:  endedAt,
		}
	}
	profile.GamesPlayed++
	profile.LastMode = mode.String()
	profile.LastPlayedAt = endedAt
	profile.UpdatedAt = endedAt
	if mode != corecheckers.VsComputer {
		return profile, 0
	}

	prevRating := profile.Rating
	var score float64
	switch result {
	case ResultWin:
		profile.Wins++
		score = 1.0
	case ResultLoss:
		profile.Losses++
		score = 0.0
	default:
		profile.Draws++
		score = 0.5
	}
	if profile.StreakType == result {
		profile.Streak++
	} else {
		profile.Streak = 1
		profile.StreakType = result
	}

	expected := 1 / (1 + math.Pow(10, float64(computerRating-profile.Rating)/400))
	profile.Rating = int(math.Round(float64(profile.Rating) + kFactor*(score-expected)))
	return profile, profile.Rating - prevRating
}

func buildPDN(payload *sessionPayload, session *corecheckers.Session, resignedBy corecheckers.Color, endedAt time.Time) string {
	white := payload.PlayerName
	if white == "" {
		white = defaultHUDPlayerLabel
	}
	black := "Computer"
	if session.Mode() == corecheckers.TwoPlayer {
		black = white
	}
	tags := []corecheckers.Tag{
		{Name: "Event", Value: "Kakao Checkers"},
		{Name: "Date", Value: endedAt.Format("2006.01.02")},
		{Name: "White", Value: white},
		{Name: "Black", Value: black},
	}
	return corecheckers.FormatPDN(tags, session.History(), corecheckers.PDNResult(session.Outcome(), resignedBy))
}

// isCapture 는 보드 사본에 적용해 잡는 수인지 확인한다.
func isCapture(b corecheckers.Board, turn corecheckers.Color, mv corecheckers.Move) bool {
	return corecheckers.ApplyMove(&b, turn, mv.From, mv.To).Captured != nil
}

func movesToText(moves []corecheckers.Move) []string {
	out := make([]string, 0, len(moves))
	for _, mv := range moves {
		out = append(out, mv.String())
	}
	return out
}

func textToMoves(texts []string) ([]corecheckers.Move, error) {
	out := make([]corecheckers.Move, 0, len(texts))
	for _, t := range texts {
		mv, err := corecheckers.ParseMove(t)
		if err != nil {
			return nil, fmt.Errorf("decode move %s: %w", t, err)
		}
		out = append(out, mv)
	}
	return out, nil
}

func recordsToText(records []corecheckers.Record) []string {
	out := make([]string, 0, len(records))
	for _, r := range records {
		out = append(out, r.Notation())
	}
	return out
}

func normalizeHUDPlayerLabel(raw string) string {
	cleaned := strings.TrimSpace(raw)
	if cleaned == "" {
		return ""
	}
	cleaned = strings.NewReplacer("\r", " ", "\n", " ").Replace(cleaned)
	cleaned = strings.Join(strings.Fields(cleaned), " ")
	if cleaned == "" {
		return ""
	}
	runes := []rune(cleaned)
	if len(runes) > playerLabelRuneLimit {
		truncated := strings.TrimSpace(string(runes[:playerLabelRuneLimit]))
		if truncated == "" {
			return ""
		}
		return truncated + "..."
	}
	return cleaned
}

// hudLabel 은 비트맵 폰트가 그릴 수 없는 이름을 기본 라벨로 바꾼다.
func hudLabel(name string) string {
	for _, r := range name {
		if r > 0x7e || r < 0x20 {
			return defaultHUDPlayerLabel
		}
	}
	if name == "" {
		return defaultHUDPlayerLabel
	}
	return name
}
