package server

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/mohammad-safakhou/concordance/internal/helpers"
	"github.com/mohammad-safakhou/concordance/internal/training"
	"github.com/mohammad-safakhou/concordance/session"
)

const (
	msgSessionNotFound = "Session not found"
	msgRunEvaluation   = "Session not found. Please run evaluation first."
)

type Handler struct {
	Evaluator Evaluator
	Sessions  Sessions
	Knowledge KnowledgeBase
	Logger    *log.Logger
}

func (h *Handler) Register(e *echo.Echo) {
	e.GET("/", h.root)
	e.GET("/health", h.health)
	e.GET("/healthz", h.health)
	e.GET("/trainings", h.trainings)
	e.POST("/evaluate", h.evaluate)
	e.GET("/evaluation/:session_id", h.evaluation)
	e.POST("/chat", h.chat)
	e.POST("/chat/reset/:session_id", h.reset)
}

func (h *Handler) root(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"message": "Learner Feedback Chat System API"})
}

// health reports liveness and the number of indexed chunks.
//
//	@Summary	Health check
//	@Tags		ops
//	@Produce	json
//	@Success	200	{object}	map[string]interface{}
//	@Router		/health [get]
func (h *Handler) health(c echo.Context) error {
	resp := map[string]any{"status": "ok"}
	if h.Knowledge != nil {
		n, err := h.Knowledge.Count(c.Request().Context())
		if err != nil {
			h.Logger.Printf("health: count chunks: %v", err)
			resp["indexed_chunks"] = nil
		} else {
			resp["indexed_chunks"] = n
		}
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *Handler) trainings(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{"trainings": training.Modules()})
}

// evaluate runs the evaluation of all modules and opens a session for it.
//
//	@Summary	Evaluate the learner on every training module
//	@Tags		evaluation
//	@Produce	json
//	@Success	200	{object}	EvaluateResponse
//	@Failure	500	{object}	HTTPError
//	@Router		/evaluate [post]
func (h *Handler) evaluate(c echo.Context) error {
	ctx := c.Request().Context()
	ev, err := h.Evaluator.Run(ctx)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	id, err := h.Sessions.Create(ctx, ev)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, EvaluateResponse{SessionID: id, Status: "completed", Evaluations: ev})
}

func (h *Handler) evaluation(c echo.Context) error {
	ev, err := h.Sessions.Evaluation(c.Request().Context(), c.Param("session_id"))
	if errors.Is(err, session.ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, msgSessionNotFound)
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, ev)
}

// chat answers one learner message within a session.
//
//	@Summary	Chat with the feedback agent
//	@Tags		chat
//	@Accept		json
//	@Produce	json
//	@Param		payload	body		ChatRequest	true	"Chat payload"
//	@Success	200		{object}	chat.Reply
//	@Failure	400		{object}	HTTPError
//	@Failure	404		{object}	HTTPError
//	@Failure	500		{object}	HTTPError
//	@Router		/chat [post]
func (h *Handler) chat(c echo.Context) error {
	var req ChatRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if strings.TrimSpace(req.SessionID) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "session_id required")
	}
	h.Logger.Printf("chat session=%s web_search=%t message=%q", req.SessionID, req.WebSearchEnabled, preview(req.Message, 100))

	reply, err := h.Sessions.Chat(c.Request().Context(), req.SessionID, req.Message, req.WebSearchEnabled)
	if errors.Is(err, session.ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, msgRunEvaluation)
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if reply.Citations == nil {
		reply.Citations = []helpers.Citation{}
	}
	h.Logger.Printf("reply session=%s has_code=%t citations=%d", req.SessionID, reply.HasCode, len(reply.Citations))
	return c.JSON(http.StatusOK, reply)
}

func (h *Handler) reset(c echo.Context) error {
	h.Sessions.Reset(c.Request().Context(), c.Param("session_id"))
	return c.JSON(http.StatusOK, map[string]string{"status": "reset"})
}

func preview(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
