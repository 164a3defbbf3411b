// Package server exposes the feedback agent over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mohammad-safakhou/concordance/config"
	"github.com/mohammad-safakhou/concordance/internal/chat"
	"github.com/mohammad-safakhou/concordance/internal/evaluation"
)

// Evaluator runs the evaluation of every training module.
type Evaluator interface {
	Run(ctx context.Context) (evaluation.Evaluations, error)
}

// Sessions is the session registry as seen by the handlers.
type Sessions interface {
	Create(ctx context.Context, ev evaluation.Evaluations) (string, error)
	Evaluation(ctx context.Context, id string) (evaluation.Evaluations, error)
	Chat(ctx context.Context, id, message string, webSearchEnabled bool) (chat.Reply, error)
	Reset(ctx context.Context, id string)
}

// KnowledgeBase reports the size of the document index.
type KnowledgeBase interface {
	Count(ctx context.Context) (int, error)
}

// Deps are the collaborators wired by the serve command.
type Deps struct {
	Evaluator Evaluator
	Sessions  Sessions
	Knowledge KnowledgeBase
	Logger    *log.Logger
}

// New builds the echo instance with middleware and routes.
func New(cfg config.ServerConfig, deps Deps) *echo.Echo {
	cfg = cfg.Normalize()
	logger := deps.Logger
	if logger == nil {
		logger = log.New(log.Writer(), "[HTTP] ", log.LstdFlags)
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: uuid.NewString,
	}))
	// Unified HTTP error handler with structured JSON and logging
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		code := http.StatusInternalServerError
		msg := err.Error()
		var he *echo.HTTPError
		if errors.As(err, &he) {
			code = he.Code
			if he.Message != nil {
				msg = fmt.Sprint(he.Message)
			}
		}
		req := c.Request()
		logger.Printf("%d %s %s from %s (%s): %v", code, req.Method, req.URL.Path, c.RealIP(),
			c.Response().Header().Get(echo.HeaderXRequestID), err)
		if !c.Response().Committed {
			_ = c.JSON(code, map[string]any{"error": msg})
		}
	}
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     cfg.AllowedOrigins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders:     []string{echo.HeaderContentType, echo.HeaderAuthorization},
		AllowCredentials: true,
	}))
	if cfg.RequestTimeout > 0 {
		e.Use(middleware.ContextTimeoutWithConfig(middleware.ContextTimeoutConfig{Timeout: cfg.RequestTimeout}))
	}

	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	registerDocs(e)

	h := &Handler{Evaluator: deps.Evaluator, Sessions: deps.Sessions, Knowledge: deps.Knowledge, Logger: logger}
	h.Register(e)
	return e
}

// Run serves e on addr until ctx is cancelled, then drains in-flight
// requests for up to ten seconds.
func Run(ctx context.Context, e *echo.Echo, addr string) error {
	errCh := make(chan error, 1)
	go func() {
		log.Printf("listening on %s", addr)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}
