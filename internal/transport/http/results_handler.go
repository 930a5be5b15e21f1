package http

import (
	"context"
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"live-quiz-service/internal/domain"
)

// ResultReader lists the saved results of a quiz.
type ResultReader interface {
	Results(ctx context.Context, quizID string) ([]domain.Result, error)
}

// QuizReader looks up quiz metadata. A cached copy is good enough here.
type QuizReader interface {
	GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
}

type ResultsHandler struct {
	results ResultReader
	quizzes QuizReader
}

func NewResultsHandler(results ResultReader, quizzes QuizReader) *ResultsHandler {
	return &ResultsHandler{results: results, quizzes: quizzes}
}

type leaderboardResponse struct {
	QuizID    string          `json:"quizId"`
	QuizTitle string          `json:"quizTitle"`
	Entries   []domain.Result `json:"entries"`
}

// QuizLeaderboard serves the saved leaderboard of one quiz.
func (h *ResultsHandler) QuizLeaderboard(c *gin.Context) {
	quizID := c.Param("quizId")
	ctx := c.Request.Context()

	quiz, err := h.quizzes.GetQuiz(ctx, quizID)
	if err != nil {
		if errors.Is(err, domain.ErrQuizNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "quiz not found"})
			return
		}
		log.Printf("leaderboard of quiz %s: %v", quizID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get results"})
		return
	}

	entries, err := h.results.Results(ctx, quizID)
	if err != nil {
		log.Printf("leaderboard of quiz %s: %v", quizID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get results"})
		return
	}
	if entries == nil {
		entries = []domain.Result{}
	}
	c.JSON(http.StatusOK, leaderboardResponse{QuizID: quizID, QuizTitle: quiz.Title, Entries: entries})
}
