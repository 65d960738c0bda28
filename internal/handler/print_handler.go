package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/secure-print-api/internal/models"
	"github.com/noah-isme/secure-print-api/internal/service"
	appErrors "github.com/noah-isme/secure-print-api/pkg/errors"
	"github.com/noah-isme/secure-print-api/pkg/response"
)

// PrintHandler serves the protected file descriptor and print logging
// endpoints. These routes keep the flat {success, ...} shape the print
// client consumes, unlike the enveloped management API.
type PrintHandler struct {
	files *service.FileService
	logs  *service.PrintLogService
}

// NewPrintHandler creates a new handler.
func NewPrintHandler(files *service.FileService, logs *service.PrintLogService) *PrintHandler {
	return &PrintHandler{files: files, logs: logs}
}

// GetFile godoc
// @Summary Get file descriptor for printing
// @Description Returns the URL, filename and mimetype of a protected file
// @Tags Print
// @Produce json
// @Param fileId path string true "File ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Router /print/{fileId} [get]
func (h *PrintHandler) GetFile(c *gin.Context) {
	descriptor, err := h.files.Descriptor(c.Request.Context(), c.Param("fileId"))
	if err != nil {
		appErr := appErrors.FromError(err)
		c.JSON(appErr.Status, gin.H{"success": false, "message": appErr.Message})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "file": descriptor})
}

// LogPrint godoc
// @Summary Record a print event
// @Description Appends one entry to the print audit trail
// @Tags Print
// @Produce json
// @Param fileId path string true "File ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Failure 500 {object} map[string]interface{}
// @Router /print/log/{fileId} [post]
func (h *PrintHandler) LogPrint(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	fileID := c.Param("fileId")
	file, err := h.files.Lookup(c.Request.Context(), fileID)
	if err != nil {
		appErr := appErrors.FromError(err)
		c.JSON(appErr.Status, gin.H{"success": false, "message": appErr.Message})
		return
	}

	entry := &models.PrintLogEntry{
		FileID:    fileID,
		UserID:    claims.UserID,
		Filename:  file.Filename,
		IPAddress: c.ClientIP(),
		UserAgent: c.GetHeader("User-Agent"),
	}
	if err := h.logs.Record(c.Request.Context(), entry); err != nil {
		var appErr *appErrors.Error
		status := http.StatusInternalServerError
		if errors.As(err, &appErr) {
			status = appErr.Status
		}
		c.JSON(status, gin.H{"success": false, "message": "Failed to log print event"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Print event logged"})
}
