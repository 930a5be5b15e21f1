package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RoomCounter reports the number of live rooms.
type RoomCounter interface {
	Count() int
}

// NewRouter mounts the realtime gateway, the saved leaderboards and the diagnostics endpoints.
func NewRouter(ws *WSHandler, rooms RoomCounter, results *ResultsHandler) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/healthz", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
	router.GET("/api/rooms", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"rooms": rooms.Count()})
	})
	router.GET("/api/results/quiz/:quizId", results.QuizLeaderboard)
	router.GET("/ws", func(c *gin.Context) {
		ws.ServeWS(c.Writer, c.Request)
	})
	return router
}
