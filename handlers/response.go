package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"triviaroom/services"

	"github.com/gin-gonic/gin"
)

const internalErrorMessage = "internal server error"

type envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
}

func respond(c *gin.Context, status int, data any) {
	c.JSON(status, envelope{Success: true, Data: data})
}

func respondMessage(c *gin.Context, status int, data any, message string) {
	c.JSON(status, envelope{Success: true, Data: data, Message: message})
}

func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, envelope{Success: false, Error: message})
}

// StatusFor maps a service error kind to its HTTP status. Unknown errors are 500.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, services.ErrValidation),
		errors.Is(err, services.ErrUnauthorized),
		errors.Is(err, services.ErrInvalidState),
		errors.Is(err, services.ErrCapacity),
		errors.Is(err, services.ErrConflict),
		errors.Is(err, services.ErrInsufficientPlayers),
		errors.Is(err, services.ErrNoContent):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, logger *slog.Logger, err error) {
	status := StatusFor(err)
	if status == http.StatusInternalServerError {
		logger.Error("request failed",
			slog.String("method", c.Request.Method),
			slog.String("path", c.FullPath()),
			slog.String("room", c.Param("code")),
			slog.String("error", err.Error()),
		)
		c.JSON(status, envelope{Success: false, Error: internalErrorMessage})
		return
	}

	message := err.Error()
	var svcErr *services.Error
	if errors.As(err, &svcErr) {
		message = svcErr.Message
	}
	c.JSON(status, envelope{Success: false, Error: message})
}
