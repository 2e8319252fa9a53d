package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"bookbot/internal/chat"
)

// ChatHandler expone la sesión de chat.
type ChatHandler struct {
	logger  *zap.Logger
	session *chat.Session
}

func NewChatHandler(logger *zap.Logger, session *chat.Session) *ChatHandler {
	return &ChatHandler{logger: logger, session: session}
}

// GetView maneja GET /chat.
func (h *ChatHandler) GetView(c *gin.Context) {
	c.JSON(http.StatusOK, h.session.View())
}

// SetInput maneja PUT /chat/input.
func (h *ChatHandler) SetInput(c *gin.Context) {
	var req struct {
		Text *string `json:"text" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid set input request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	h.session.SetInput(*req.Text)
	c.JSON(http.StatusOK, h.session.View())
}

// Submit maneja POST /chat/submit. Un envío ignorado no es un error.
func (h *ChatHandler) Submit(c *gin.Context) {
	var req struct {
		Text *string `json:"text"`
	}
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		h.logger.Warn("invalid submit request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	// El ciclo de respuesta sobrevive al request.
	ctx := context.WithoutCancel(c.Request.Context())
	var accepted bool
	if req.Text != nil {
		_, accepted = h.session.SubmitText(ctx, *req.Text)
	} else {
		_, accepted = h.session.Submit(ctx)
	}
	if !accepted {
		c.JSON(http.StatusOK, gin.H{"accepted": false})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"accepted": true})
}

// Events maneja GET /chat/events como Server-Sent Events con una vista por cambio.
func (h *ChatHandler) Events(c *gin.Context) {
	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "streaming unsupported"})
		return
	}
	w := c.Writer
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ctx := c.Request.Context()
	for view := range h.session.Watch(ctx) {
		if err := writeSSE(w, "view", view); err != nil {
			h.logger.Debug("sse client gone", zap.Error(err))
			return
		}
		flusher.Flush()
	}
}

func writeSSE(w io.Writer, event string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	if _, err := io.WriteString(w, "event: "+event+"\ndata: "); err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return err
	}
	_, err = io.WriteString(w, "\n\n")
	return err
}
