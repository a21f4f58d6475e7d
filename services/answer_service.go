package services

import (
	"context"
	"errors"
	"log/slog"

	"triviaroom/models"
	"triviaroom/scoring"
)

// AnswerService accepts and scores answers to a room's current question.
type AnswerService struct {
	deps
	store Store
	calc  scoring.Calculator
}

func NewAnswerService(store Store, calc scoring.Calculator, opts ...Option) *AnswerService {
	s := &AnswerService{
		deps:  defaultDeps(),
		store: store,
		calc:  calc,
	}
	for _, opt := range opts {
		opt(&s.deps)
	}
	return s
}

type SubmitAnswerRequest struct {
	PlayerID string `json:"playerId"`
	Answer   *int   `json:"answer"`
	TimeMs   *int64 `json:"timeMs"`
}

// SubmitAnswer records one answer per player per question. Answers arriving after the
// time limit are still accepted and earn the base score if correct.
func (s *AnswerService) SubmitAnswer(ctx context.Context, rawCode string, req SubmitAnswerRequest) (*AnswerResult, error) {
	code, err := parseCode(rawCode)
	if err != nil {
		return nil, err
	}
	if req.Answer == nil || *req.Answer < 0 {
		return nil, validationError("answer must be a non-negative option index")
	}
	if req.TimeMs == nil || *req.TimeMs < 0 {
		return nil, validationError("timeMs must be a non-negative number of milliseconds")
	}
	answer, elapsedMs := *req.Answer, *req.TimeMs

	room, err := s.store.GetRoom(ctx, code)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, newError(ErrNotFound, "room %s not found", code)
		}
		return nil, databaseError("failed to load room", err)
	}
	if room.Status != models.RoomStatusActive {
		return nil, newError(ErrInvalidState, "room %s is %s and is not accepting answers", code, room.Status)
	}

	player, err := loadPlayer(ctx, s.store, code, req.PlayerID)
	if err != nil {
		return nil, err
	}
	if player.CurrentAnswer != nil {
		return nil, newError(ErrConflict, "an answer was already submitted for this question")
	}

	question, err := loadGameQuestion(ctx, s.store, s.logger, code, room.CurrentQuestionIndex)
	if err != nil {
		return nil, err
	}

	correct := answer == question.CorrectAnswerIndex
	points := s.calc.Score(correct, elapsedMs, room.TimeLimitMs())

	rec := models.AnswerRecord{
		QuestionIndex: room.CurrentQuestionIndex,
		Answer:        answer,
		TimeMs:        elapsedMs,
		Correct:       correct,
		Score:         points,
	}

	updated, err := s.store.RecordAnswer(ctx, code, player.ID, player.Answers.Data(), rec)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrStaleWrite):
			// a parallel request for the same player won the write
			return nil, newError(ErrConflict, "an answer was already submitted for this question")
		case errors.Is(err, models.ErrNotFound):
			return nil, newError(ErrNotFound, "player %s not found in room %s", player.ID, code)
		}
		s.logger.Error("failed to record answer",
			slog.String("room", code),
			slog.String("player", player.ID),
			slog.String("error", err.Error()),
		)
		return nil, databaseError("failed to record answer", err)
	}
	s.invalidate(ctx, code)

	s.logger.Debug("answer recorded",
		slog.String("room", code),
		slog.String("player", player.ID),
		slog.Int("question", rec.QuestionIndex),
		slog.Bool("correct", correct),
		slog.Int("points", points),
	)

	return &AnswerResult{
		Accepted:    true,
		Correct:     correct,
		ScoreGained: points,
		TotalScore:  updated.Score,
	}, nil
}
