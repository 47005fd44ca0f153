// Package v1 provides the HTTP handlers of the insights API.
package v1

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"github.com/xiaot623/gogo/insights/internal/domain"
	"github.com/xiaot623/gogo/insights/internal/service"
)

// Version is reported by the health endpoint.
var Version = "0.1.0"

// Handler handles HTTP requests.
type Handler struct {
	service *service.Service
}

// NewHandler creates a new handler.
func NewHandler(service *service.Service) *Handler {
	return &Handler{
		service: service,
	}
}

// RegisterRoutes registers routes with the echo server.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	// Insights API
	e.POST("/analyze-ppc", h.AnalyzePPC)
	e.POST("/chat", h.Chat)
	e.POST("/create-thread", h.StartThread)
	e.POST("/start-thread", h.StartThread)

	// Inspection API
	e.GET("/v1/sessions/:user_id", h.GetSession)
	e.GET("/v1/cycles/:cycle_id", h.GetCycle)
	e.GET("/v1/cycles/:cycle_id/events", h.GetCycleEvents)

	e.GET("/health", h.Health)
}

// Health returns health status.
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "healthy",
		"version": Version,
	})
}

// writeError maps a service error to a JSON error response.
func writeError(c echo.Context, err error) error {
	code := service.ErrorCode(err)
	switch {
	case errors.Is(err, domain.ErrValidation):
		return c.JSON(http.StatusBadRequest, domain.ErrorResponse{Error: err.Error(), Code: code})
	case errors.Is(err, domain.ErrNoSession):
		return c.JSON(http.StatusBadRequest, domain.ErrorResponse{
			Error: "no prior analysis for this user, call /analyze-ppc first",
			Code:  code,
		})
	}

	log.Error().Err(err).Str("path", c.Path()).Str("code", code).Msg("request failed")
	return c.JSON(http.StatusInternalServerError, domain.ErrorResponse{
		Error:   errorMessage(err),
		Code:    code,
		Details: service.ErrorDetails(err),
	})
}

func errorMessage(err error) string {
	switch {
	case errors.Is(err, domain.ErrRunTimeout):
		return "assistant run timed out"
	case errors.Is(err, domain.ErrRunFailed):
		return "assistant run failed"
	}
	return "error communicating with assistants API"
}
