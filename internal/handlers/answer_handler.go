package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/itqan-learning/progress-service/internal/models"
	"github.com/itqan-learning/progress-service/internal/services"
	"github.com/itqan-learning/progress-service/internal/utils"
)

type AnswerHandler struct {
	BaseHandler
	session services.SessionService
	content services.ContentService
}

type SubmitSelectionRequest struct {
	OptionIndex *int `json:"option_index" binding:"required"`
}

// CheckChapterRequest carries the raw text and drag-drop inputs for one
// chapter check. Choice selections are already in the ledger and are
// not resubmitted.
type CheckChapterRequest struct {
	Texts map[string]string   `json:"texts"`
	Drops map[string][]string `json:"drops"`
}

func NewAnswerHandler(session services.SessionService, content services.ContentService, logger utils.Logger) *AnswerHandler {
	return &AnswerHandler{
		BaseHandler: NewBaseHandler(logger),
		session:     session,
		content:     content,
	}
}

// SubmitSelection records an ungraded option selection for a choice
// question.
func (h *AnswerHandler) SubmitSelection(c *gin.Context) {
	id, ok := parseQuestionIDParam(c, "id")
	if !ok {
		return
	}

	var req SubmitSelectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	if err := h.session.SubmitSelection(c.Request.Context(), id, *req.OptionIndex); err != nil {
		h.RespondWithServiceError(c, err)
		return
	}
	h.RespondWithSuccess(c, http.StatusOK, "Selection recorded", gin.H{
		"question_id":  id,
		"option_index": *req.OptionIndex,
	})
}

// CheckChapter grades a whole chapter all-or-nothing. When any question
// is unanswered the response is 409 with the blocking ids and nothing is
// graded.
func (h *AnswerHandler) CheckChapter(c *gin.Context) {
	index, ok := parseIndexParam(c, "index")
	if !ok {
		return
	}

	var req CheckChapterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	inputs, err := h.collectInputs(&req)
	if err != nil {
		h.RespondWithServiceError(c, err)
		return
	}

	result, err := h.session.CheckChapter(c.Request.Context(), index, inputs)
	if err != nil {
		h.RespondWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// collectInputs converts the request's raw answers into typed values,
// verifying each id names a question of the matching type.
func (h *AnswerHandler) collectInputs(req *CheckChapterRequest) (map[models.QuestionID]models.AnswerValue, error) {
	inputs := make(map[models.QuestionID]models.AnswerValue, len(req.Texts)+len(req.Drops))

	for rawID, text := range req.Texts {
		id := models.QuestionID(rawID)
		if _, err := h.content.Question(id); err != nil {
			return nil, err
		}
		inputs[id] = models.TextAnswer(text)
	}
	for rawID, contents := range req.Drops {
		id := models.QuestionID(rawID)
		if _, err := h.content.Question(id); err != nil {
			return nil, err
		}
		inputs[id] = models.DropAnswer(contents)
	}
	return inputs, nil
}
