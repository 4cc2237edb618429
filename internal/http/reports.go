package http

import (
	"net/http"
	"strconv"

	"github.com/jmehdipour/shift-scheduler/internal/repository"
	echo "github.com/labstack/echo/v4"
)

func monthlyHoursHandler(chRepo repository.CHHoursRepository) echo.HandlerFunc {
	return func(c echo.Context) error {
		if chRepo == nil {
			return c.JSON(http.StatusServiceUnavailable, map[string]string{"error": "reports disabled"})
		}

		year, err := strconv.Atoi(c.QueryParam("year"))
		if err != nil || year < 2000 || year > 9999 {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid year"})
		}
		month, err := strconv.Atoi(c.QueryParam("month"))
		if err != nil || month < 1 || month > 12 {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid month"})
		}
		var employeeID int64
		if v := c.QueryParam("employee_id"); v != "" {
			if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
				employeeID = n
			} else {
				return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid employee_id"})
			}
		}

		rows, err := chRepo.MonthlyHours(c.Request().Context(), year, month, employeeID)
		if err != nil {
			c.Logger().Errorf("clickhouse monthly hours failed: %v", err)

			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "query failed"})
		}

		return c.JSON(http.StatusOK, map[string]any{
			"year":    year,
			"month":   month,
			"count":   len(rows),
			"results": rows,
		})
	}
}
