package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/itqan-learning/progress-service/internal/services"
	"github.com/itqan-learning/progress-service/internal/utils"
)

type HandlerManager struct {
	sessionHandler      *SessionHandler
	contentHandler      *ContentHandler
	answerHandler       *AnswerHandler
	certificateHandler  *CertificateHandler
	notificationHandler *NotificationHandler
}

func NewHandlerManager(
	session services.SessionService,
	content services.ContentService,
	certs services.CertificateService,
	buffer *NotificationBuffer,
	logger utils.Logger,
) *HandlerManager {
	return &HandlerManager{
		sessionHandler:      NewSessionHandler(session, logger),
		contentHandler:      NewContentHandler(content, session, logger),
		answerHandler:       NewAnswerHandler(session, content, logger),
		certificateHandler:  NewCertificateHandler(session, certs, logger),
		notificationHandler: NewNotificationHandler(buffer, logger),
	}
}

// SetupRoutes sets up all API routes
func (hm *HandlerManager) SetupRoutes(router *gin.Engine) {
	v1 := router.Group("/api/v1")
	{
		session := v1.Group("/session")
		{
			session.GET("", hm.sessionHandler.GetSession)
			session.PUT("/user", hm.sessionHandler.RegisterUser)
			session.POST("/activity", hm.sessionHandler.Activity)
		}

		chapters := v1.Group("/chapters")
		{
			chapters.GET("", hm.contentHandler.ListChapters)
			chapters.GET("/:index", hm.contentHandler.GetChapter)
			chapters.PUT("/:index/current", hm.contentHandler.SetCurrentChapter)
			chapters.POST("/:index/check", hm.answerHandler.CheckChapter)
		}

		v1.POST("/questions/:id/selection", hm.answerHandler.SubmitSelection)
		v1.GET("/stats", hm.sessionHandler.GetStats)

		progress := v1.Group("/progress")
		{
			progress.POST("/save", hm.sessionHandler.SaveProgress)
			progress.POST("/reset", hm.sessionHandler.ResetProgress)
		}

		v1.GET("/certificate", hm.certificateHandler.Download)
		v1.GET("/notifications", hm.notificationHandler.List)
	}

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "healthy",
			"service": "progress-service",
		})
	})
}
