package server

import "github.com/mohammad-safakhou/concordance/internal/evaluation"

// ChatRequest is the body of POST /chat.
type ChatRequest struct {
	SessionID        string `json:"session_id"`
	Message          string `json:"message"`
	WebSearchEnabled bool   `json:"web_search_enabled"`
}

type EvaluateResponse struct {
	SessionID   string                 `json:"session_id"`
	Status      string                 `json:"status"`
	Evaluations evaluation.Evaluations `json:"evaluations"`
}

// HTTPError is the body of every error response.
type HTTPError struct {
	Error string `json:"error"`
}
