package query

import (
	"context"
	"fmt"

	"github.com/studypet/studypet-hub/internal/domain/progression"
)

// ListSessionsQuery - последние сессии пользователя.
type ListSessionsQuery struct {
	UserID string

	// Limit - максимум сессий (по умолчанию shared.DefaultBatchSize).
	Limit int
}

// ListSessionsHandler обрабатывает ListSessionsQuery.
type ListSessionsHandler struct {
	sessions progression.SessionStore
}

// NewListSessionsHandler создаёт обработчик.
func NewListSessionsHandler(sessions progression.SessionStore) *ListSessionsHandler {
	return &ListSessionsHandler{sessions: sessions}
}

// Handle выполняет запрос. Новые сессии идут первыми.
func (h *ListSessionsHandler) Handle(ctx context.Context, q ListSessionsQuery) ([]*progression.StudySession, error) {
	sessions, err := h.sessions.ListSessions(ctx, q.UserID, q.Limit)
	if err != nil {
		return nil, fmt.Errorf("list_sessions: %w", err)
	}
	if sessions == nil {
		sessions = []*progression.StudySession{}
	}
	return sessions, nil
}
