package handler

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/secure-print-api/internal/printcore/deterrence"
	"github.com/noah-isme/secure-print-api/internal/printcore/session"
	appErrors "github.com/noah-isme/secure-print-api/pkg/errors"
	"github.com/noah-isme/secure-print-api/pkg/response"
)

const maxEnvelopeBytes = 64 << 10

// SessionHandler drives the in-process print session controller.
type SessionHandler struct {
	controller *session.Controller
}

// NewSessionHandler creates a new handler.
func NewSessionHandler(controller *session.Controller) *SessionHandler {
	return &SessionHandler{controller: controller}
}

// Start godoc
// @Summary Start a print session
// @Description Opens a session for the file, tearing down any previous one
// @Tags Sessions
// @Accept json
// @Produce json
// @Param fileId path string true "File ID"
// @Success 201 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Failure 502 {object} response.Envelope
// @Router /print/sessions/{fileId} [post]
func (h *SessionHandler) Start(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var body struct {
		WatermarkText string `json:"watermark_text"`
	}
	// The body is optional; ignore absent or empty payloads.
	_ = c.ShouldBindJSON(&body)

	req := session.Request{
		FileID:        c.Param("fileId"),
		UserID:        claims.UserID,
		OwnerName:     claims.FullName,
		WatermarkText: body.WatermarkText,
		IPAddress:     c.ClientIP(),
		UserAgent:     c.GetHeader("User-Agent"),
	}

	snap, err := h.controller.Open(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusCreated, snap, nil)
}

// Current godoc
// @Summary Get the active print session
// @Tags Sessions
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /print/sessions/current [get]
func (h *SessionHandler) Current(c *gin.Context) {
	snap, err := h.controller.Current()
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, snap, nil)
}

// Cancel godoc
// @Summary Cancel the active print session
// @Tags Sessions
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /print/sessions/current [delete]
func (h *SessionHandler) Cancel(c *gin.Context) {
	snap, err := h.controller.Cancel(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, snap, nil)
}

// Deliver godoc
// @Summary Deliver a message envelope from the rendering context
// @Description Accepts the raw {kind, generation, payload} wire format
// @Tags Sessions
// @Accept json
// @Success 202 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /print/sessions/current/events [post]
func (h *SessionHandler) Deliver(c *gin.Context) {
	raw, err := io.ReadAll(io.LimitReader(c.Request.Body, maxEnvelopeBytes))
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "unreadable body"))
		return
	}
	if err := h.controller.Deliver(raw); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid message envelope"))
		return
	}
	response.JSON(c, http.StatusAccepted, gin.H{"accepted": true}, nil)
}

// Signal godoc
// @Summary Report a deterrence signal from the client context
// @Description Visibility changes, window blur and key chords arrive here
// @Tags Sessions
// @Accept json
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /print/sessions/current/signals [post]
func (h *SessionHandler) Signal(c *gin.Context) {
	var body struct {
		Kind string               `json:"kind" binding:"required"`
		Key  *deterrence.KeyChord `json:"key"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid signal payload"))
		return
	}

	switch deterrence.EventKind(body.Kind) {
	case deterrence.KindVisibilityChange, deterrence.KindWindowBlur:
		h.controller.NotifyDeterrence(deterrence.EventKind(body.Kind))
		response.JSON(c, http.StatusOK, gin.H{"blocked": false}, nil)
	case deterrence.KindKeyCombo:
		if body.Key == nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "key chord required"))
			return
		}
		blocked := h.controller.InterceptKey(*body.Key)
		response.JSON(c, http.StatusOK, gin.H{"blocked": blocked}, nil)
	default:
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "unknown signal kind"))
	}
}

// Document godoc
// @Summary Download the rendered output of a completed session
// @Tags Sessions
// @Produce application/pdf
// @Success 200 {file} binary
// @Failure 404 {object} response.Envelope
// @Router /print/sessions/current/document [get]
func (h *SessionHandler) Document(c *gin.Context) {
	out, err := h.controller.Output()
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", `inline; filename="print-output.pdf"`)
	c.Data(http.StatusOK, "application/pdf", out)
}
