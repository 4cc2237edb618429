package http

import (
	"net/http"
	"strconv"

	"github.com/jmehdipour/shift-scheduler/internal/model"
	"github.com/jmehdipour/shift-scheduler/internal/outbox"
	"github.com/labstack/echo/v4"
)

func deadLettersHandler(admin outbox.Admin) echo.HandlerFunc {
	return func(c echo.Context) error {
		limit := 100
		if v := c.QueryParam("limit"); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 1000 {
				limit = n
			}
		}

		evs, err := admin.ListDeadLettered(c.Request().Context(), limit)
		if err != nil {
			return writeError(c, err)
		}
		if evs == nil {
			evs = []model.OutboxEvent{}
		}
		return c.JSON(http.StatusOK, map[string]any{
			"limit":   limit,
			"count":   len(evs),
			"results": evs,
		})
	}
}

// requeueHandler puts a dead-lettered event back in the queue with a fresh
// retry budget.
func requeueHandler(admin outbox.Admin) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, err := pathID(c)
		if err != nil {
			return writeError(c, err)
		}
		if err := admin.Requeue(c.Request().Context(), id); err != nil {
			return writeError(c, err)
		}
		return c.JSON(http.StatusAccepted, map[string]any{
			"requeued": true,
			"id":       id,
		})
	}
}
