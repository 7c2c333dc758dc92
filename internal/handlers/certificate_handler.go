package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/itqan-learning/progress-service/internal/services"
	"github.com/itqan-learning/progress-service/internal/utils"
)

type CertificateHandler struct {
	BaseHandler
	session services.SessionService
	certs   services.CertificateService
}

func NewCertificateHandler(session services.SessionService, certs services.CertificateService, logger utils.Logger) *CertificateHandler {
	return &CertificateHandler{
		BaseHandler: NewBaseHandler(logger),
		session:     session,
		certs:       certs,
	}
}

// Download builds the certificate and serves it as an attachment in the
// requested format (json by default, or xlsx).
func (h *CertificateHandler) Download(c *gin.Context) {
	format := c.DefaultQuery("format", "json")
	if format != "json" && format != "xlsx" {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid format",
			Details: "format must be json or xlsx",
		})
		return
	}

	cert, err := h.session.Certificate(c.Request.Context())
	if err != nil {
		h.RespondWithServiceError(c, err)
		return
	}

	filename := h.certs.Filename(cert, format)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))

	switch format {
	case "xlsx":
		data, err := h.certs.ExportXLSX(cert)
		if err != nil {
			h.RespondWithServiceError(c, err)
			return
		}
		c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
	default:
		data, err := h.certs.ExportJSON(cert)
		if err != nil {
			h.RespondWithServiceError(c, err)
			return
		}
		c.Data(http.StatusOK, "application/json", data)
	}
}
