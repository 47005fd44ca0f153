package v1

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
)

// GetSession returns the thread bound to a user.
// GET /v1/sessions/:user_id
func (h *Handler) GetSession(c echo.Context) error {
	userID := c.Param("user_id")

	session, err := h.service.GetSession(c.Request().Context(), userID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	if session == nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "session not found"})
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"user_id":    session.UserID,
		"thread_id":  session.ThreadID,
		"created_at": session.CreatedAt.UnixMilli(),
	})
}

// GetCycle retrieves a journaled cycle.
// GET /v1/cycles/:cycle_id
func (h *Handler) GetCycle(c echo.Context) error {
	cycleID := c.Param("cycle_id")

	cycle, err := h.service.GetCycle(c.Request().Context(), cycleID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	if cycle == nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "cycle not found"})
	}

	return c.JSON(http.StatusOK, cycle)
}

// GetCycleEvents retrieves events for a cycle.
// GET /v1/cycles/:cycle_id/events
func (h *Handler) GetCycleEvents(c echo.Context) error {
	cycleID := c.Param("cycle_id")
	limit := 100
	if l := c.QueryParam("limit"); l != "" {
		if val, err := strconv.Atoi(l); err == nil {
			limit = val
		}
	}
	afterTs := int64(0)
	if t := c.QueryParam("after_ts"); t != "" {
		if val, err := strconv.ParseInt(t, 10, 64); err == nil {
			afterTs = val
		}
	}
	var types []string
	if t := c.QueryParam("types"); t != "" {
		for _, typ := range strings.Split(t, ",") {
			if typ = strings.TrimSpace(typ); typ != "" {
				types = append(types, typ)
			}
		}
	}

	events, err := h.service.GetCycleEvents(c.Request().Context(), cycleID, afterTs, types, limit)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"events":   events,
		"has_more": len(events) == limit,
	})
}
