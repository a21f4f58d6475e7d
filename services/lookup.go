package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"unicode/utf8"

	"triviaroom/models"
	"triviaroom/roomcode"
)

func parseCode(raw string) (string, error) {
	code := roomcode.Normalize(raw)
	if !roomcode.IsValid(code) {
		return "", validationError("roomCode must be %d letters or digits", roomcode.Length)
	}
	return code, nil
}

func validateLabel(field, raw string, max int) (string, error) {
	v := strings.TrimSpace(raw)
	if utf8.RuneCountInString(v) > max {
		return "", validationError("%s must be at most %d characters", field, max)
	}
	return v, nil
}

func loadPlayer(ctx context.Context, store Store, code, playerID string) (*models.Player, error) {
	playerID = strings.TrimSpace(playerID)
	if playerID == "" {
		return nil, validationError("playerId is required")
	}

	player, err := store.GetPlayer(ctx, code, playerID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, newError(ErrNotFound, "player %s not found in room %s", playerID, code)
		}
		return nil, databaseError("failed to load player", err)
	}
	return player, nil
}

// loadGameQuestion fetches a question the start step must already have written.
// A missing row is an internal fault, not a client error.
func loadGameQuestion(ctx context.Context, store Store, logger *slog.Logger, code string, index int) (*models.GameQuestion, error) {
	q, err := store.GetGameQuestion(ctx, code, index)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			logger.Error("game question missing",
				slog.String("room", code),
				slog.Int("question", index),
			)
			return nil, serverError("game question missing", err)
		}
		return nil, databaseError("failed to load game question", err)
	}
	return q, nil
}
