package handlers

import (
	"log/slog"
	"net/http"

	"triviaroom/services"

	"github.com/gin-gonic/gin"
)

type QuestionHandler struct {
	bank   *services.BankService
	logger *slog.Logger
}

func NewQuestionHandler(bank *services.BankService, logger *slog.Logger) *QuestionHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &QuestionHandler{
		bank:   bank,
		logger: logger,
	}
}

func (h *QuestionHandler) AddQuestions(c *gin.Context) {
	var req services.AddQuestionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	added, err := h.bank.AddQuestions(c.Request.Context(), req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	respond(c, http.StatusCreated, gin.H{"added": added})
}

func (h *QuestionHandler) Categories(c *gin.Context) {
	categories, err := h.bank.Categories(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	respond(c, http.StatusOK, gin.H{"categories": categories})
}
