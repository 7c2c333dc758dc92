package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/itqan-learning/progress-service/internal/models"
)

// parseIndexParam reads a non-negative integer path parameter. On a bad
// value it writes the error response and returns ok=false.
func parseIndexParam(c *gin.Context, param string) (int, bool) {
	raw := strings.TrimSpace(c.Param(param))
	index, err := strconv.Atoi(raw)
	if err != nil || index < 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid " + param,
			Details: "must be a non-negative integer",
		})
		return 0, false
	}
	return index, true
}

// parseQuestionIDParam reads and validates a q_<chapter>_<question> id.
func parseQuestionIDParam(c *gin.Context, param string) (models.QuestionID, bool) {
	id := models.QuestionID(strings.TrimSpace(c.Param(param)))
	if _, _, err := id.Position(); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid " + param,
			Details: "must be a question id of the form q_<chapter>_<question>",
		})
		return "", false
	}
	return id, true
}
