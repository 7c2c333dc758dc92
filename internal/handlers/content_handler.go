package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/itqan-learning/progress-service/internal/services"
	"github.com/itqan-learning/progress-service/internal/utils"
)

type ContentHandler struct {
	BaseHandler
	content services.ContentService
	session services.SessionService
}

func NewContentHandler(content services.ContentService, session services.SessionService, logger utils.Logger) *ContentHandler {
	return &ContentHandler{
		BaseHandler: NewBaseHandler(logger),
		content:     content,
		session:     session,
	}
}

// ListChapters returns chapter titles and question counts, not the full
// content, so the renderer can build its navigation cheaply.
func (h *ContentHandler) ListChapters(c *gin.Context) {
	book := h.content.Book()
	chapters := make([]gin.H, len(book.Chapters))
	for i, ch := range book.Chapters {
		chapters[i] = gin.H{
			"index":     i,
			"title":     ch.Title,
			"questions": len(ch.Questions),
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"chapters":        chapters,
		"total_questions": h.content.TotalQuestions(),
	})
}

// GetChapter returns one chapter's full content, questions included.
func (h *ContentHandler) GetChapter(c *gin.Context) {
	index, ok := parseIndexParam(c, "index")
	if !ok {
		return
	}

	ch, err := h.content.Chapter(index)
	if err != nil {
		h.RespondWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, ch)
}

// SetCurrentChapter records which chapter the learner is on.
func (h *ContentHandler) SetCurrentChapter(c *gin.Context) {
	index, ok := parseIndexParam(c, "index")
	if !ok {
		return
	}

	if err := h.session.SetCurrentChapter(c.Request.Context(), index); err != nil {
		h.RespondWithServiceError(c, err)
		return
	}
	h.RespondWithSuccess(c, http.StatusOK, "Current chapter updated", gin.H{"current_chapter": index})
}
