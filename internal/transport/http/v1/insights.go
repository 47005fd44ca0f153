package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/xiaot623/gogo/insights/internal/domain"
)

// AnalyzePPC runs one analysis of campaign data on the user's thread.
// POST /analyze-ppc
func (h *Handler) AnalyzePPC(c echo.Context) error {
	var req domain.AnalyzeRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, domain.ErrorResponse{Error: "invalid request body", Code: "validation_error"})
	}
	if err := req.Validate(); err != nil {
		return writeError(c, err)
	}

	res, err := h.service.SubmitAnalysis(c.Request().Context(), &req)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

// Chat sends a follow-up message on the user's thread.
// POST /chat
func (h *Handler) Chat(c echo.Context) error {
	var req domain.ChatRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, domain.ErrorResponse{Error: "invalid request body", Code: "validation_error"})
	}
	if err := req.Validate(); err != nil {
		return writeError(c, err)
	}

	res, err := h.service.SubmitFollowUp(c.Request().Context(), &req)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

// StartThread creates a fresh thread, optionally bound to a user.
// POST /create-thread, POST /start-thread
func (h *Handler) StartThread(c echo.Context) error {
	var req domain.StartThreadRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, domain.ErrorResponse{Error: "invalid request body", Code: "validation_error"})
	}

	res, err := h.service.StartThread(c.Request().Context(), &req)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, res)
}
