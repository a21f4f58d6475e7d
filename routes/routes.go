package routes

import (
	"net/http"

	"triviaroom/handlers"

	"github.com/gin-gonic/gin"
)

func SetupRoutes(
	router *gin.Engine,
	roomHandler *handlers.RoomHandler,
	questionHandler *handlers.QuestionHandler,
) {
	room := router.Group("/room")
	{
		room.POST("/create", roomHandler.CreateRoom)
		room.POST("/join", roomHandler.JoinRoom)
		room.GET("/:code", roomHandler.GetRoomState)
		room.POST("/:code/start", roomHandler.StartGame)
		room.POST("/:code/answer", roomHandler.SubmitAnswer)
		room.POST("/:code/next", roomHandler.AdvanceQuestion)
		room.DELETE("/:code", roomHandler.LeaveRoom)
	}

	questions := router.Group("/questions")
	{
		questions.POST("", questionHandler.AddQuestions)
		questions.GET("/categories", questionHandler.Categories)
	}

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
}
