package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"bookbot/internal/theme"
)

type ThemeHandler struct {
	logger *zap.Logger
	theme  *theme.State
}

func NewThemeHandler(logger *zap.Logger, state *theme.State) *ThemeHandler {
	return &ThemeHandler{logger: logger, theme: state}
}

// Get maneja GET /theme.
func (h *ThemeHandler) Get(c *gin.Context) {
	c.JSON(http.StatusOK, h.body())
}

// Toggle maneja POST /theme/toggle.
func (h *ThemeHandler) Toggle(c *gin.Context) {
	next := h.theme.Toggle(c.Request.Context())
	h.logger.Info("theme toggled", zap.String("theme", next))
	c.JSON(http.StatusOK, h.body())
}

func (h *ThemeHandler) body() gin.H {
	return gin.H{"theme": h.theme.Current(), "dark": h.theme.IsDark()}
}
