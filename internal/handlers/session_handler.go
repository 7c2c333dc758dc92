package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/itqan-learning/progress-service/internal/models"
	"github.com/itqan-learning/progress-service/internal/services"
	"github.com/itqan-learning/progress-service/internal/utils"
)

type SessionHandler struct {
	BaseHandler
	session services.SessionService
}

type RegisterUserRequest struct {
	Name      string `json:"name" validate:"required,min=2"`
	StudentID string `json:"student_id" validate:"required,min=3"`
}

func NewSessionHandler(session services.SessionService, logger utils.Logger) *SessionHandler {
	return &SessionHandler{
		BaseHandler: NewBaseHandler(logger),
		session:     session,
	}
}

// GetSession returns the current session state: identity, stats, current
// chapter and where progress was restored from.
func (h *SessionHandler) GetSession(c *gin.Context) {
	c.JSON(http.StatusOK, h.session.State())
}

// RegisterUser stores the learner's identity after validation.
func (h *SessionHandler) RegisterUser(c *gin.Context) {
	var req RegisterUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	info := &models.UserInfo{Name: req.Name, StudentID: req.StudentID}
	if err := h.session.RegisterUser(c.Request.Context(), info); err != nil {
		h.RespondWithServiceError(c, err)
		return
	}
	h.RespondWithSuccess(c, http.StatusOK, "User registered", info)
}

// Activity marks the session as active, re-arming the idle warning.
func (h *SessionHandler) Activity(c *gin.Context) {
	h.session.Touch()
	c.Status(http.StatusNoContent)
}

// GetStats returns the derived statistics.
func (h *SessionHandler) GetStats(c *gin.Context) {
	stats := h.session.Stats()
	c.JSON(http.StatusOK, gin.H{
		"total_questions":       stats.TotalQuestions,
		"correct_answers":       stats.CorrectAnswers,
		"chapters_completed":    stats.ChaptersCompleted,
		"completion_percentage": stats.CompletionPercentage(),
	})
}

// SaveProgress persists on demand.
func (h *SessionHandler) SaveProgress(c *gin.Context) {
	if err := h.session.SaveNow(c.Request.Context()); err != nil {
		h.RespondWithServiceError(c, err)
		return
	}
	h.RespondWithSuccess(c, http.StatusOK, "Progress saved", nil)
}

// ResetProgress wipes all progress, identity and backups.
func (h *SessionHandler) ResetProgress(c *gin.Context) {
	if err := h.session.ResetProgress(c.Request.Context()); err != nil {
		h.RespondWithServiceError(c, err)
		return
	}
	h.RespondWithSuccess(c, http.StatusOK, "Progress reset", h.session.State())
}
