package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/jmehdipour/shift-scheduler/internal/model"
	"github.com/jmehdipour/shift-scheduler/internal/repository"
	"github.com/labstack/echo/v4"
)

// errInvalid marks request validation failures (400).
var errInvalid = errors.New("invalid request")

type aggregate[T any] interface {
	*T
	model.Aggregate
}

// registerCRUD mounts list/get/create/update/delete for one aggregate on g.
// check normalizes the bound body in place and rejects invalid input.
func registerCRUD[T any, PT aggregate[T]](g *echo.Group, path string, repo repository.CRUD[T], check func(PT) error) {
	g.GET(path, listHandler(repo))
	g.GET(path+"/:id", getHandler(repo))
	g.POST(path, createHandler(repo, check))
	g.PUT(path+"/:id", updateHandler(repo, check))
	g.DELETE(path+"/:id", deleteHandler(repo))
}

func listHandler[T any](repo repository.CRUD[T]) echo.HandlerFunc {
	return func(c echo.Context) error {
		items, err := repo.List(c.Request().Context())
		if err != nil {
			return writeError(c, err)
		}
		if items == nil {
			items = []T{}
		}
		return c.JSON(http.StatusOK, map[string]any{
			"count":   len(items),
			"results": items,
		})
	}
}

func getHandler[T any](repo repository.CRUD[T]) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, err := pathID(c)
		if err != nil {
			return writeError(c, err)
		}
		e, err := repo.Get(c.Request().Context(), id)
		if err != nil {
			return writeError(c, err)
		}
		if e == nil {
			return writeError(c, repository.ErrNotFound)
		}
		return c.JSON(http.StatusOK, e)
	}
}

func createHandler[T any, PT aggregate[T]](repo repository.CRUD[T], check func(PT) error) echo.HandlerFunc {
	return func(c echo.Context) error {
		var e T
		if err := c.Bind(&e); err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "bad request"})
		}
		p := PT(&e)
		p.SetAggregateID(0)
		if err := check(p); err != nil {
			return writeError(c, err)
		}

		out, err := repo.Add(c.Request().Context(), &e)
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(http.StatusCreated, out)
	}
}

func updateHandler[T any, PT aggregate[T]](repo repository.CRUD[T], check func(PT) error) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, err := pathID(c)
		if err != nil {
			return writeError(c, err)
		}
		var e T
		if err := c.Bind(&e); err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "bad request"})
		}
		p := PT(&e)
		p.SetAggregateID(id)
		if err := check(p); err != nil {
			return writeError(c, err)
		}

		out, err := repo.Update(c.Request().Context(), &e)
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(http.StatusOK, out)
	}
}

func deleteHandler[T any](repo repository.CRUD[T]) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, err := pathID(c)
		if err != nil {
			return writeError(c, err)
		}
		if err := repo.Delete(c.Request().Context(), id); err != nil {
			return writeError(c, err)
		}
		return c.NoContent(http.StatusNoContent)
	}
}

func pathID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, invalid("id must be a positive integer")
	}
	return id, nil
}

func invalid(msg string) error {
	return &validationError{msg: msg}
}

type validationError struct{ msg string }

func (e *validationError) Error() string { return e.msg }
func (e *validationError) Unwrap() error { return errInvalid }

// writeError maps repository and validation errors onto status codes.
func writeError(c echo.Context, err error) error {
	var ve *validationError
	switch {
	case errors.As(err, &ve):
		return c.JSON(http.StatusBadRequest, map[string]string{"error": ve.msg})
	case errors.Is(err, repository.ErrNotFound):
		return c.JSON(http.StatusNotFound, map[string]string{"error": "not found"})
	case errors.Is(err, repository.ErrInvalidReference):
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "referenced entity does not exist"})
	case errors.Is(err, repository.ErrConflict):
		return c.JSON(http.StatusConflict, map[string]string{"error": "conflict"})
	default:
		c.Logger().Errorf("%s %s: %v", c.Request().Method, c.Path(), err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "store error"})
	}
}
