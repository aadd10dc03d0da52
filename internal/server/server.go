package server

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/OFFIS-RIT/findet/internal/config"
	"github.com/OFFIS-RIT/findet/internal/pipeline"
	"github.com/OFFIS-RIT/findet/internal/queue"
	mid "github.com/OFFIS-RIT/findet/internal/server/middleware"
	"github.com/OFFIS-RIT/findet/internal/storage"
	"github.com/OFFIS-RIT/findet/pkg/logger"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/go-playground/validator"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

type CustomValidator struct {
	validator *validator.Validate
}

func (cv *CustomValidator) Validate(i any) error {
	if err := cv.validator.Struct(i); err != nil {
		return err
	}
	return nil
}

// New builds the echo instance serving app.
func New(app *mid.App) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Validator = &CustomValidator{validator: validator.New()}

	e.Use(mid.AppContextMiddleware(app))
	e.Use(middleware.CORS())
	e.Use(middleware.RequestLogger())
	e.Use(middleware.Recover())
	e.Use(middleware.BodyLimit("64M"))

	RegisterRoutes(e)
	return e
}

// Init wires the application from cfg and serves until SIGINT or SIGTERM.
func Init(cfg *config.Config) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := &mid.App{MasterAPIKey: cfg.Server.MasterAPIKey}

	if cfg.Server.JWKSURL != "" {
		k, err := keyfunc.NewDefault([]string{cfg.Server.JWKSURL})
		if err != nil {
			logger.Fatal("Failed to load jwks keys", "err", err)
		}
		app.Key = k
	}

	p, err := pipeline.New(ctx, cfg)
	if err != nil {
		logger.Warn("Synchronous extraction disabled", "err", err)
	} else {
		app.Pipeline = p
		defer func() {
			if err := p.Close(); err != nil {
				logger.Warn("Failed to close model client", "err", err)
			}
		}()
	}

	if cfg.S3.Bucket != "" {
		s3Client, err := storage.NewS3Client(ctx, cfg.S3)
		if err != nil {
			logger.Fatal("Could not create S3 client", "err", err)
		}

		que, err := queue.Init(ctx, cfg.RabbitMQ.URL(), 10)
		if err != nil {
			logger.Fatal("Failed to connect to RabbitMQ", "err", err)
		}
		defer que.Close()

		ch, err := que.Channel()
		if err != nil {
			logger.Fatal("Failed to open channel", "err", err)
		}
		defer ch.Close()

		if err := queue.SetupQueues(ch, []string{queue.ExtractQueue}); err != nil {
			logger.Fatal("Failed to set up queues", "err", err)
		}

		app.Jobs = &S3Jobs{
			Client:         s3Client,
			Bucket:         cfg.S3.Bucket,
			PublicEndpoint: cfg.S3.PublicEndpoint,
			Queue:          ch,
		}
	} else {
		logger.Warn("AWS_BUCKET not set, job routes disabled")
	}

	e := New(app)

	go func() {
		logger.Info("Starting server", "port", cfg.Server.Port)
		if err := e.Start(":" + cfg.Server.Port); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed shutting down server", "err", err)
		}
	}()

	<-ctx.Done()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		logger.Error("Failed to shutdown server", "err", err)
	}
}
