package services

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"triviaroom/models"

	"gorm.io/datatypes"
)

const (
	OptionsPerQuestion = 4
	maxQuestionText    = 500
	maxOptionText      = 200
	maxAddBatch        = 200
)

var difficulties = map[string]bool{"easy": true, "medium": true, "hard": true}

//go:embed seed_questions.json
var seedQuestions []byte

// BankService manages the question bank games draw from.
type BankService struct {
	deps
	store Store
}

func NewBankService(store Store, opts ...Option) *BankService {
	s := &BankService{
		deps:  defaultDeps(),
		store: store,
	}
	for _, opt := range opts {
		opt(&s.deps)
	}
	return s
}

type NewQuestion struct {
	Text          string   `json:"text"`
	Options       []string `json:"options"`
	CorrectAnswer *int     `json:"correctAnswer"`
	Category      string   `json:"category"`
	Difficulty    string   `json:"difficulty"`
}

type AddQuestionsRequest struct {
	Questions []NewQuestion `json:"questions"`
}

// AddQuestions validates every question first and then inserts the batch in one transaction.
func (s *BankService) AddQuestions(ctx context.Context, req AddQuestionsRequest) (int, error) {
	if len(req.Questions) == 0 {
		return 0, validationError("questions must contain at least one question")
	}
	if len(req.Questions) > maxAddBatch {
		return 0, validationError("questions must contain at most %d questions", maxAddBatch)
	}

	questions := make([]models.Question, 0, len(req.Questions))
	for i, nq := range req.Questions {
		q, err := buildQuestion(nq)
		if err != nil {
			// prefix the position of the faulty entry
			var svcErr *Error
			if errors.As(err, &svcErr) {
				svcErr.Message = fmt.Sprintf("questions[%d]: %s", i, svcErr.Message)
			}
			return 0, err
		}
		questions = append(questions, q)
	}

	if err := s.store.AddQuestions(ctx, questions); err != nil {
		s.logger.Error("failed to add questions", slog.String("error", err.Error()))
		return 0, databaseError("failed to add questions", err)
	}

	s.logger.Info("questions added", slog.Int("count", len(questions)))
	return len(questions), nil
}

func (s *BankService) Categories(ctx context.Context) ([]CategoryCount, error) {
	categories, err := s.store.Categories(ctx)
	if err != nil {
		return nil, databaseError("failed to list categories", err)
	}
	return categories, nil
}

// SeedIfEmpty loads the embedded starter questions into an empty bank.
func (s *BankService) SeedIfEmpty(ctx context.Context) (int, error) {
	count, err := s.store.CountQuestions(ctx)
	if err != nil {
		return 0, databaseError("failed to count questions", err)
	}
	if count > 0 {
		return 0, nil
	}

	var seed []NewQuestion
	if err := json.Unmarshal(seedQuestions, &seed); err != nil {
		return 0, serverError("failed to parse seed questions", err)
	}
	return s.AddQuestions(ctx, AddQuestionsRequest{Questions: seed})
}

func buildQuestion(nq NewQuestion) (models.Question, error) {
	text := strings.TrimSpace(nq.Text)
	if text == "" || utf8.RuneCountInString(text) > maxQuestionText {
		return models.Question{}, validationError("text must be between 1 and %d characters", maxQuestionText)
	}

	if len(nq.Options) != OptionsPerQuestion {
		return models.Question{}, validationError("options must contain exactly %d entries", OptionsPerQuestion)
	}
	options := make([]string, OptionsPerQuestion)
	for i, o := range nq.Options {
		o = strings.TrimSpace(o)
		if o == "" || utf8.RuneCountInString(o) > maxOptionText {
			return models.Question{}, validationError("options[%d] must be between 1 and %d characters", i, maxOptionText)
		}
		options[i] = o
	}

	if nq.CorrectAnswer == nil || *nq.CorrectAnswer < 0 || *nq.CorrectAnswer >= OptionsPerQuestion {
		return models.Question{}, validationError("correctAnswer must be between 0 and %d", OptionsPerQuestion-1)
	}

	category, err := validateLabel("category", nq.Category, maxLabelLength)
	if err != nil {
		return models.Question{}, err
	}

	difficulty := strings.ToLower(strings.TrimSpace(nq.Difficulty))
	if difficulty == "" {
		difficulty = "medium"
	}
	if !difficulties[difficulty] {
		return models.Question{}, validationError("difficulty must be one of easy, medium, hard")
	}

	return models.Question{
		Text:               text,
		Options:            datatypes.NewJSONType(options),
		CorrectAnswerIndex: *nq.CorrectAnswer,
		Category:           category,
		Difficulty:         difficulty,
	}, nil
}
