package middleware

import (
	"context"
	"errors"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/labstack/echo/v4"

	"github.com/OFFIS-RIT/findet/internal/pipeline"
)

var ErrJobNotFound = errors.New("job not found")

// JobService submits extraction jobs to the worker and locates their output.
type JobService interface {
	Submit(ctx context.Context, jobID, text string, clean bool) error
	GraphLink(ctx context.Context, jobID string) (string, error)
}

type AppUser struct {
	UserID      string
	Role        string
	Permissions []string
}

type App struct {
	Pipeline     *pipeline.Pipeline
	Jobs         JobService
	Key          keyfunc.Keyfunc
	MasterAPIKey string
}

type AppContext struct {
	echo.Context
	App  *App
	User *AppUser
}

func AppContextMiddleware(app *App) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			cc := &AppContext{c, app, nil}
			return next(cc)
		}
	}
}
