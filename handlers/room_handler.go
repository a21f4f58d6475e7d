package handlers

import (
	"log/slog"
	"net/http"

	"triviaroom/services"

	"github.com/gin-gonic/gin"
)

type RoomHandler struct {
	rooms   *services.RoomService
	answers *services.AnswerService
	logger  *slog.Logger
}

func NewRoomHandler(rooms *services.RoomService, answers *services.AnswerService, logger *slog.Logger) *RoomHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &RoomHandler{
		rooms:   rooms,
		answers: answers,
		logger:  logger,
	}
}

type playerRequest struct {
	PlayerID string `json:"playerId" form:"playerId"`
}

func (h *RoomHandler) CreateRoom(c *gin.Context) {
	var req services.CreateRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	result, err := h.rooms.CreateRoom(c.Request.Context(), req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	respond(c, http.StatusCreated, result)
}

func (h *RoomHandler) JoinRoom(c *gin.Context) {
	var req services.JoinRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	result, err := h.rooms.JoinRoom(c.Request.Context(), req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	respond(c, http.StatusOK, result)
}

func (h *RoomHandler) GetRoomState(c *gin.Context) {
	snapshot, err := h.rooms.GetRoomState(c.Request.Context(), c.Param("code"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	respond(c, http.StatusOK, snapshot)
}

func (h *RoomHandler) StartGame(c *gin.Context) {
	var req playerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	result, err := h.rooms.StartGame(c.Request.Context(), c.Param("code"), req.PlayerID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	respondMessage(c, http.StatusOK, result, "game started")
}

func (h *RoomHandler) SubmitAnswer(c *gin.Context) {
	var req services.SubmitAnswerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	result, err := h.answers.SubmitAnswer(c.Request.Context(), c.Param("code"), req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	respond(c, http.StatusOK, result)
}

func (h *RoomHandler) AdvanceQuestion(c *gin.Context) {
	var req playerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	result, err := h.rooms.AdvanceQuestion(c.Request.Context(), c.Param("code"), req.PlayerID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	respond(c, http.StatusOK, result)
}

// LeaveRoom takes playerId from the JSON body or, for clients that cannot send a body
// with DELETE, from the query string.
func (h *RoomHandler) LeaveRoom(c *gin.Context) {
	var req playerRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "invalid request body")
			return
		}
	}
	if req.PlayerID == "" {
		req.PlayerID = c.Query("playerId")
	}

	result, err := h.rooms.LeaveRoom(c.Request.Context(), c.Param("code"), req.PlayerID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	respond(c, http.StatusOK, result)
}
