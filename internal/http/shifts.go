package http

import (
	"net/http"

	"github.com/jmehdipour/shift-scheduler/internal/repository"
	"github.com/labstack/echo/v4"
)

type hoursReq struct {
	Hours float64 `json:"hours"`
}

type substituteReq struct {
	EmployeeID int64 `json:"employee_id"`
}

// recordHoursHandler stores the hours worked on a shift and completes it.
func recordHoursHandler(shifts repository.ShiftsRepository) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, err := pathID(c)
		if err != nil {
			return writeError(c, err)
		}
		var req hoursReq
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "bad request"})
		}
		if err := checkHours(req.Hours); err != nil {
			return writeError(c, err)
		}

		s, err := shifts.RecordWorkHours(c.Request().Context(), id, req.Hours)
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(http.StatusOK, s)
	}
}

func substituteHandler(shifts repository.ShiftsRepository) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, err := pathID(c)
		if err != nil {
			return writeError(c, err)
		}
		var req substituteReq
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "bad request"})
		}
		if req.EmployeeID <= 0 {
			return writeError(c, invalid("employee_id is required"))
		}

		ctx := c.Request().Context()
		cur, err := shifts.Get(ctx, id)
		if err != nil {
			return writeError(c, err)
		}
		if cur == nil {
			return writeError(c, repository.ErrNotFound)
		}
		if cur.EmployeeID == req.EmployeeID {
			return writeError(c, invalid("substitute is the assigned employee"))
		}

		s, err := shifts.Substitute(ctx, id, req.EmployeeID)
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(http.StatusOK, s)
	}
}
