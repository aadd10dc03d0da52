package routes

import (
	"context"
	"errors"
	"net/http"

	"github.com/OFFIS-RIT/findet/pkg/extractor"
	"github.com/OFFIS-RIT/findet/pkg/graph"
	"github.com/OFFIS-RIT/findet/pkg/logger"

	"github.com/labstack/echo/v4"
)

type errorResponse struct {
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}

// statusForError maps core errors onto HTTP status codes.
func statusForError(err error) int {
	switch {
	case errors.Is(err, graph.ErrInvalidArgument),
		errors.Is(err, graph.ErrEmptyGraph),
		errors.Is(err, extractor.ErrEmptyText):
		return http.StatusBadRequest
	case errors.Is(err, graph.ErrDuplicateNodeID),
		errors.Is(err, graph.ErrDanglingReference):
		return http.StatusUnprocessableEntity
	case errors.Is(err, graph.ErrAllChunksFailed):
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

func respondError(c echo.Context, message string, err error) error {
	status := statusForError(err)
	if status == http.StatusInternalServerError {
		logger.Error("[Server] Request failed", "path", c.Path(), "err", err)
		return c.JSON(status, errorResponse{Message: "Internal server error"})
	}
	return c.JSON(status, errorResponse{Message: message, Error: err.Error()})
}

func bindAndValidate(c echo.Context, data any) error {
	if err := c.Bind(data); err != nil {
		return err
	}
	return c.Validate(data)
}

func invalidBody(c echo.Context, err error) error {
	return c.JSON(http.StatusBadRequest, errorResponse{Message: "Invalid request body", Error: err.Error()})
}
