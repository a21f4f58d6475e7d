package services

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"strings"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"triviaroom/models"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const maxLabelLength = 32

// RoomService drives the room lifecycle: create, join, start, advance and leave.
// It keeps no room state of its own; every check is a read against the store
// followed by a write.
type RoomService struct {
	deps
	store Store
	rules Rules

	// every CleanupPeriod-th creation purges expired rooms
	creations atomic.Int64
}

func NewRoomService(store Store, rules Rules, opts ...Option) *RoomService {
	s := &RoomService{
		deps:  defaultDeps(),
		store: store,
		rules: rules,
	}
	for _, opt := range opts {
		opt(&s.deps)
	}
	if s.rules.CodeAttempts <= 0 {
		s.rules.CodeAttempts = 10
	}
	return s
}

type CreateRoomRequest struct {
	PlayerName    string `json:"playerName"`
	Avatar        string `json:"avatar"`
	GameMode      string `json:"gameMode"`
	Category      string `json:"category"`
	MaxPlayers    *int   `json:"maxPlayers"`
	TimeLimit     *int   `json:"timeLimit"`
	QuestionCount *int   `json:"questionCount"`
}

type JoinRoomRequest struct {
	RoomCode   string `json:"roomCode"`
	PlayerName string `json:"playerName"`
	Avatar     string `json:"avatar"`
}

func (s *RoomService) CreateRoom(ctx context.Context, req CreateRoomRequest) (*CreateRoomResult, error) {
	name, err := s.validateName(req.PlayerName)
	if err != nil {
		return nil, err
	}
	avatar, err := validateLabel("avatar", req.Avatar, 64)
	if err != nil {
		return nil, err
	}

	room, err := s.roomFromRequest(req)
	if err != nil {
		return nil, err
	}

	s.purgeExpired(ctx)

	code, err := s.allocateCode(ctx)
	if err != nil {
		return nil, err
	}

	now := s.now()
	room.Code = code
	room.Status = models.RoomStatusWaiting
	room.CreatedAt = now

	if err := s.store.CreateRoom(ctx, room); err != nil {
		s.logger.Error("failed to create room",
			slog.String("room", code),
			slog.String("error", err.Error()),
		)
		return nil, databaseError("failed to create room", err)
	}

	host := newPlayer(code, name, avatar, true, now)
	if err := s.store.CreatePlayer(ctx, host); err != nil {
		s.logger.Error("failed to create host player, removing room",
			slog.String("room", code),
			slog.String("error", err.Error()),
		)
		// a room without a host could never be started or closed
		if delErr := s.store.DeleteRoom(ctx, code); delErr != nil {
			s.logger.Error("failed to remove room after host insert failure",
				slog.String("room", code),
				slog.String("error", delErr.Error()),
			)
		}
		return nil, databaseError("failed to create host player", err)
	}

	s.logger.Info("room created",
		slog.String("room", code),
		slog.String("host", host.ID),
		slog.Int("max_players", room.MaxPlayers),
		slog.Int("questions", room.TotalQuestions),
	)

	return &CreateRoomResult{
		RoomCode:      code,
		PlayerID:      host.ID,
		Status:        room.Status,
		MaxPlayers:    room.MaxPlayers,
		TimeLimit:     room.TimeLimitSeconds,
		QuestionCount: room.TotalQuestions,
		GameMode:      room.GameMode,
		Category:      room.Category,
	}, nil
}

func (s *RoomService) roomFromRequest(req CreateRoomRequest) (*models.Room, error) {
	maxPlayers := s.rules.DefaultMaxPlayers
	if req.MaxPlayers != nil {
		maxPlayers = *req.MaxPlayers
	}
	if maxPlayers < s.rules.MinPlayers || maxPlayers > s.rules.MaxPlayersLimit {
		return nil, validationError("maxPlayers must be between %d and %d", s.rules.MinPlayers, s.rules.MaxPlayersLimit)
	}

	timeLimit := s.rules.DefaultTimeLimit
	if req.TimeLimit != nil {
		timeLimit = *req.TimeLimit
	}
	if timeLimit < s.rules.MinTimeLimit || timeLimit > s.rules.MaxTimeLimit {
		return nil, validationError("timeLimit must be between %d and %d seconds", s.rules.MinTimeLimit, s.rules.MaxTimeLimit)
	}

	questionCount := s.rules.DefaultQuestionCount
	if req.QuestionCount != nil {
		questionCount = *req.QuestionCount
	}
	if questionCount < 1 || questionCount > s.rules.MaxQuestionCount {
		return nil, validationError("questionCount must be between 1 and %d", s.rules.MaxQuestionCount)
	}

	category, err := validateLabel("category", req.Category, maxLabelLength)
	if err != nil {
		return nil, err
	}
	gameMode, err := validateLabel("gameMode", req.GameMode, maxLabelLength)
	if err != nil {
		return nil, err
	}
	if gameMode == "" {
		gameMode = s.rules.DefaultGameMode
	}

	return &models.Room{
		MaxPlayers:       maxPlayers,
		TotalQuestions:   questionCount,
		TimeLimitSeconds: timeLimit,
		Category:         category,
		GameMode:         gameMode,
	}, nil
}

// allocateCode draws codes until one is free. Another request can still claim the same code
// between the check and the insert; the insert then fails and surfaces as a database error.
func (s *RoomService) allocateCode(ctx context.Context) (string, error) {
	for attempt := 1; attempt <= s.rules.CodeAttempts; attempt++ {
		code := s.newCode()
		exists, err := s.store.RoomExists(ctx, code)
		if err != nil {
			return "", databaseError("failed to check room code", err)
		}
		if !exists {
			return code, nil
		}
		s.logger.Debug("room code collision", slog.String("room", code), slog.Int("attempt", attempt))
	}

	s.logger.Error("room code attempts exhausted", slog.Int("attempts", s.rules.CodeAttempts))
	return "", newError(ErrCodesExhausted, "could not allocate a unique room code")
}

func (s *RoomService) purgeExpired(ctx context.Context) {
	if s.rules.CleanupPeriod <= 0 || s.rules.RoomTTL <= 0 {
		return
	}
	if s.creations.Add(1)%int64(s.rules.CleanupPeriod) != 0 {
		return
	}

	cutoff := s.now().Add(-s.rules.RoomTTL)
	purged, err := s.store.PurgeRoomsCreatedBefore(ctx, cutoff)
	if err != nil {
		s.logger.Warn("failed to purge expired rooms", slog.String("error", err.Error()))
		return
	}
	if purged > 0 {
		s.logger.Info("purged expired rooms", slog.Int64("rooms", purged))
	}
}

func (s *RoomService) JoinRoom(ctx context.Context, req JoinRoomRequest) (*JoinRoomResult, error) {
	code, err := parseCode(req.RoomCode)
	if err != nil {
		return nil, err
	}
	name, err := s.validateName(req.PlayerName)
	if err != nil {
		return nil, err
	}
	avatar, err := validateLabel("avatar", req.Avatar, 64)
	if err != nil {
		return nil, err
	}

	room, err := s.getRoom(ctx, code)
	if err != nil {
		return nil, err
	}

	// The room may start between this read and the insert below. The late player
	// then lands in a running game, which is accepted.
	if room.Status != models.RoomStatusWaiting {
		return nil, newError(ErrInvalidState, "room %s is %s and cannot be joined", code, room.Status)
	}

	count, err := s.store.CountPlayers(ctx, code)
	if err != nil {
		return nil, databaseError("failed to count players", err)
	}
	if count >= room.MaxPlayers {
		return nil, newError(ErrCapacity, "room %s is full (%d players)", code, room.MaxPlayers)
	}

	taken, err := s.store.PlayerNameTaken(ctx, code, name)
	if err != nil {
		return nil, databaseError("failed to check player name", err)
	}
	if taken {
		return nil, newError(ErrConflict, "playerName %q is already taken in this room", name)
	}

	player := newPlayer(code, name, avatar, false, s.now())
	if err := s.store.CreatePlayer(ctx, player); err != nil {
		s.logger.Error("failed to add player",
			slog.String("room", code),
			slog.String("error", err.Error()),
		)
		return nil, databaseError("failed to add player", err)
	}
	s.invalidate(ctx, code)

	players, err := s.store.ListPlayers(ctx, code)
	if err != nil {
		return nil, databaseError("failed to list players", err)
	}

	s.logger.Info("player joined",
		slog.String("room", code),
		slog.String("player", player.ID),
		slog.Int("players", len(players)),
	)

	return &JoinRoomResult{
		PlayerID: player.ID,
		Room:     roomSnapshot(room, players),
	}, nil
}

// GetRoomState returns the room, its players and, while a game runs, the current question.
func (s *RoomService) GetRoomState(ctx context.Context, rawCode string) (*RoomSnapshot, error) {
	code, err := parseCode(rawCode)
	if err != nil {
		return nil, err
	}

	snapshot, ok, err := s.cache.Get(ctx, code)
	if err != nil {
		s.logger.Warn("failed to read room snapshot",
			slog.String("room", code),
			slog.String("error", err.Error()),
		)
	}
	if ok {
		return snapshot, nil
	}

	version := s.cache.version(code)
	room, err := s.getRoom(ctx, code)
	if err != nil {
		return nil, err
	}
	players, err := s.store.ListPlayers(ctx, code)
	if err != nil {
		return nil, databaseError("failed to list players", err)
	}

	snapshot = roomSnapshot(room, players)
	if room.Status == models.RoomStatusActive {
		q, err := s.getGameQuestion(ctx, code, room.CurrentQuestionIndex)
		if err != nil {
			return nil, err
		}
		view := questionView(q)
		snapshot.CurrentQuestion = &view
	}

	if err := s.cache.setIfCurrent(ctx, snapshot, version); err != nil {
		s.logger.Warn("failed to store room snapshot",
			slog.String("room", code),
			slog.String("error", err.Error()),
		)
	}

	return snapshot, nil
}

func (s *RoomService) StartGame(ctx context.Context, rawCode, playerID string) (*StartGameResult, error) {
	code, err := parseCode(rawCode)
	if err != nil {
		return nil, err
	}
	if _, err := s.authorizeHost(ctx, code, playerID, "start the game"); err != nil {
		return nil, err
	}

	room, err := s.getRoom(ctx, code)
	if err != nil {
		return nil, err
	}
	if room.Status != models.RoomStatusWaiting {
		return nil, newError(ErrInvalidState, "room %s is %s and cannot be started", code, room.Status)
	}

	count, err := s.store.CountPlayers(ctx, code)
	if err != nil {
		return nil, databaseError("failed to count players", err)
	}
	if count < s.rules.MinPlayers {
		return nil, newError(ErrInsufficientPlayers, "at least %d players are needed to start, room has %d", s.rules.MinPlayers, count)
	}

	bank, err := s.store.SelectQuestions(ctx, room.Category, room.TotalQuestions)
	if err != nil {
		return nil, databaseError("failed to select questions", err)
	}
	if len(bank) == 0 {
		if room.Category != "" {
			return nil, newError(ErrNoContent, "no questions available for category %q", room.Category)
		}
		return nil, newError(ErrNoContent, "no questions available")
	}

	now := s.now()
	questions := make([]models.GameQuestion, len(bank))
	for i, q := range bank {
		questions[i] = models.GameQuestion{
			RoomCode:           code,
			QuestionIndex:      i,
			QuestionText:       q.Text,
			Options:            q.Options,
			CorrectAnswerIndex: q.CorrectAnswerIndex,
			Category:           q.Category,
			Difficulty:         q.Difficulty,
			CreatedAt:          now,
		}
	}
	if err := s.store.InsertGameQuestions(ctx, questions); err != nil {
		return nil, databaseError("failed to store game questions", err)
	}

	status := models.RoomStatusActive
	first := 0
	total := len(questions)
	if err := s.store.UpdateRoom(ctx, code, RoomUpdate{
		Status:               &status,
		CurrentQuestionIndex: &first,
		TotalQuestions:       &total,
		QuestionStartTime:    &now,
	}); err != nil {
		return nil, s.storeError("failed to start game", err)
	}
	// the room is already active, so invalidate even if the reset fails
	err = s.store.ResetPlayers(ctx, code)
	s.invalidate(ctx, code)
	if err != nil {
		return nil, databaseError("failed to reset players", err)
	}

	s.logger.Info("game started",
		slog.String("room", code),
		slog.Int("players", count),
		slog.Int("questions", total),
	)

	return &StartGameResult{
		Started:           true,
		TotalQuestions:    total,
		CurrentQuestion:   questionView(&questions[0]),
		QuestionStartTime: now,
	}, nil
}

// AdvanceQuestion closes the current question, reports how everyone did and either moves
// the room to the next question or finishes the game. Only the host's client calls it;
// two concurrent calls for the same room are not guarded against.
func (s *RoomService) AdvanceQuestion(ctx context.Context, rawCode, playerID string) (*AdvanceResult, error) {
	code, err := parseCode(rawCode)
	if err != nil {
		return nil, err
	}
	if _, err := s.authorizeHost(ctx, code, playerID, "advance the game"); err != nil {
		return nil, err
	}

	room, err := s.getRoom(ctx, code)
	if err != nil {
		return nil, err
	}
	if room.Status != models.RoomStatusActive {
		return nil, newError(ErrInvalidState, "room %s is %s, no question to advance", code, room.Status)
	}

	current, err := s.getGameQuestion(ctx, code, room.CurrentQuestionIndex)
	if err != nil {
		return nil, err
	}

	players, err := s.store.ListPlayers(ctx, code)
	if err != nil {
		return nil, databaseError("failed to list players", err)
	}

	result := &AdvanceResult{
		CorrectAnswer:   current.CorrectAnswerIndex,
		QuestionResults: questionResults(players, room.CurrentQuestionIndex),
	}

	if room.CurrentQuestionIndex+1 >= room.TotalQuestions {
		status := models.RoomStatusFinished
		if err := s.store.UpdateRoom(ctx, code, RoomUpdate{
			Status:             &status,
			ClearQuestionStart: true,
		}); err != nil {
			return nil, s.storeError("failed to finish game", err)
		}
		s.invalidate(ctx, code)

		result.GameOver = true
		result.FinalScores = finalScores(players)

		s.logger.Info("game finished",
			slog.String("room", code),
			slog.Int("questions", room.TotalQuestions),
		)
		return result, nil
	}

	nextIndex := room.CurrentQuestionIndex + 1
	next, err := s.getGameQuestion(ctx, code, nextIndex)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if err := s.store.UpdateRoom(ctx, code, RoomUpdate{
		CurrentQuestionIndex: &nextIndex,
		QuestionStartTime:    &now,
	}); err != nil {
		return nil, s.storeError("failed to advance question", err)
	}
	err = s.store.ClearCurrentAnswers(ctx, code)
	s.invalidate(ctx, code)
	if err != nil {
		return nil, databaseError("failed to reset answers", err)
	}

	view := questionView(next)
	result.NextQuestion = &view
	result.QuestionStartTime = &now

	s.logger.Debug("question advanced",
		slog.String("room", code),
		slog.Int("question", nextIndex),
	)
	return result, nil
}

// LeaveRoom removes a player. When the host leaves the room is closed for everyone.
func (s *RoomService) LeaveRoom(ctx context.Context, rawCode, playerID string) (*LeaveResult, error) {
	code, err := parseCode(rawCode)
	if err != nil {
		return nil, err
	}
	player, err := s.getPlayer(ctx, code, playerID)
	if err != nil {
		return nil, err
	}

	if player.IsHost {
		status := models.RoomStatusFinished
		if err := s.store.UpdateRoom(ctx, code, RoomUpdate{
			Status:             &status,
			ClearQuestionStart: true,
		}); err != nil {
			return nil, s.storeError("failed to close room", err)
		}
		s.invalidate(ctx, code)
		s.logger.Info("host left, room closed", slog.String("room", code))
		return &LeaveResult{Action: LeaveActionRoomClosed}, nil
	}

	if err := s.store.DeletePlayer(ctx, code, player.ID); err != nil {
		return nil, s.storeError("failed to remove player", err)
	}
	s.invalidate(ctx, code)
	s.logger.Info("player left", slog.String("room", code), slog.String("player", player.ID))
	return &LeaveResult{Action: LeaveActionPlayerLeft}, nil
}

func (s *RoomService) authorizeHost(ctx context.Context, code, playerID, action string) (*models.Player, error) {
	player, err := s.getPlayer(ctx, code, playerID)
	if err != nil {
		return nil, err
	}
	if !player.IsHost {
		return nil, newError(ErrUnauthorized, "only the host can %s", action)
	}
	return player, nil
}

func (s *RoomService) getRoom(ctx context.Context, code string) (*models.Room, error) {
	room, err := s.store.GetRoom(ctx, code)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, newError(ErrNotFound, "room %s not found", code)
		}
		return nil, databaseError("failed to load room", err)
	}
	return room, nil
}

func (s *RoomService) getPlayer(ctx context.Context, code, playerID string) (*models.Player, error) {
	return loadPlayer(ctx, s.store, code, playerID)
}

func (s *RoomService) getGameQuestion(ctx context.Context, code string, index int) (*models.GameQuestion, error) {
	return loadGameQuestion(ctx, s.store, s.logger, code, index)
}

func (s *RoomService) storeError(op string, err error) error {
	if errors.Is(err, models.ErrNotFound) {
		return newError(ErrNotFound, "%s: not found", op)
	}
	s.logger.Error(op, slog.String("error", err.Error()))
	return databaseError(op, err)
}

func (s *RoomService) validateName(raw string) (string, error) {
	name := strings.TrimSpace(raw)
	n := utf8.RuneCountInString(name)
	if n < s.rules.NameMinLength || n > s.rules.NameMaxLength {
		return "", validationError("playerName must be between %d and %d characters", s.rules.NameMinLength, s.rules.NameMaxLength)
	}
	return name, nil
}

func newPlayer(code, name, avatar string, isHost bool, joinedAt time.Time) *models.Player {
	return &models.Player{
		ID:       uuid.NewString(),
		RoomCode: code,
		Name:     name,
		Avatar:   avatar,
		IsHost:   isHost,
		Answers:  datatypes.NewJSONType([]models.AnswerRecord{}),
		JoinedAt: joinedAt,
	}
}

func questionResults(players []models.Player, questionIndex int) []QuestionResult {
	results := make([]QuestionResult, 0, len(players))
	for i := range players {
		p := &players[i]
		r := QuestionResult{
			PlayerID:   p.ID,
			PlayerName: p.Name,
			TotalScore: p.Score,
		}
		if rec, ok := p.AnswerFor(questionIndex); ok {
			answer := rec.Answer
			r.Answer = &answer
			r.Answered = true
			r.Correct = rec.Correct
			r.ScoreGained = rec.Score
		}
		results = append(results, r)
	}
	return results
}

func finalScores(players []models.Player) []ScoreEntry {
	scores := make([]ScoreEntry, 0, len(players))
	for _, p := range players {
		scores = append(scores, ScoreEntry{
			PlayerID: p.ID,
			Name:     p.Name,
			Avatar:   p.Avatar,
			Score:    p.Score,
		})
	}
	sort.SliceStable(scores, func(i, j int) bool {
		if scores[i].Score != scores[j].Score {
			return scores[i].Score > scores[j].Score
		}
		return scores[i].Name < scores[j].Name
	})
	return scores
}
