package session_models

import (
	"strconv"
	"time"

	"github.com/mohammad-safakhou/concordance/internal/evaluation"
)

// Record is a stored evaluation run. Its ID addresses the chat session.
type Record struct {
	ID          string                 `json:"id"`
	Evaluations evaluation.Evaluations `json:"evaluations"`
	CreatedAt   time.Time              `json:"created_at"`
}

// SessionID formats the n-th session identifier. Ids are sequential and
// not meant to be unguessable.
func SessionID(n int64) string {
	return "session_" + strconv.FormatInt(n, 10)
}
