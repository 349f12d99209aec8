package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/studypet/studypet-hub/internal/domain/progression"
	"github.com/studypet/studypet-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// SESSION REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// SessionRepository implements progression.SessionStore for PostgreSQL.
type SessionRepository struct {
	conn *Connection
}

// NewSessionRepository creates a new SessionRepository.
func NewSessionRepository(conn *Connection) *SessionRepository {
	return &SessionRepository{conn: conn}
}

var _ progression.SessionStore = (*SessionRepository)(nil)

const sessionColumns = `
	id, user_id, title, duration, actual_duration, completed, focus_rating,
	start_time, end_time, xp_earned, rewarded_at, created_at`

// CreateSession inserts a new study session.
func (r *SessionRepository) CreateSession(ctx context.Context, s *progression.StudySession) error {
	query := `
		INSERT INTO study_sessions (` + sessionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err := r.conn.Exec(ctx, query,
		s.ID,
		s.UserID,
		s.Title,
		s.TargetDuration,
		s.ActualDuration,
		s.Completed,
		s.FocusRating,
		s.StartTime,
		s.EndTime,
		s.XPEarned,
		s.RewardedAt,
		s.CreatedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return shared.ErrSessionExists
		}
		if IsForeignKeyViolation(err) {
			return shared.ErrProgressionNotFound
		}
		return fmt.Errorf("failed to create session: %w", err)
	}

	return nil
}

// GetSession returns a session owned by the user.
func (r *SessionRepository) GetSession(ctx context.Context, userID, sessionID string) (*progression.StudySession, error) {
	query := `SELECT ` + sessionColumns + ` FROM study_sessions WHERE id = $1 AND user_id = $2`

	s, err := scanSession(r.conn.QueryRow(ctx, query, sessionID, userID))
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return s, nil
}

// FinishSession stores the end of a session. Only unfinished sessions are updated.
func (r *SessionRepository) FinishSession(ctx context.Context, s *progression.StudySession) error {
	query := `
		UPDATE study_sessions SET
			actual_duration = $1,
			completed = TRUE,
			focus_rating = $2,
			end_time = $3
		WHERE id = $4 AND user_id = $5 AND completed = FALSE
	`

	result, err := r.conn.Exec(ctx, query, s.ActualDuration, s.FocusRating, s.EndTime, s.ID, s.UserID)
	if err != nil {
		return fmt.Errorf("failed to finish session: %w", err)
	}

	if result.RowsAffected() == 0 {
		if _, err := r.GetSession(ctx, s.UserID, s.ID); err != nil {
			return err
		}
		return shared.ErrSessionAlreadyFinished
	}

	return nil
}

// ListSessions returns the most recent sessions of a user.
func (r *SessionRepository) ListSessions(ctx context.Context, userID string, limit int) ([]*progression.StudySession, error) {
	query := `
		SELECT ` + sessionColumns + ` FROM study_sessions
		WHERE user_id = $1
		ORDER BY start_time DESC
		LIMIT $2
	`

	rows, err := r.conn.Query(ctx, query, userID, shared.BatchLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*progression.StudySession
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		sessions = append(sessions, s)
	}

	return sessions, rows.Err()
}

func scanSession(row pgx.Row) (*progression.StudySession, error) {
	var s progression.StudySession
	err := row.Scan(
		&s.ID,
		&s.UserID,
		&s.Title,
		&s.TargetDuration,
		&s.ActualDuration,
		&s.Completed,
		&s.FocusRating,
		&s.StartTime,
		&s.EndTime,
		&s.XPEarned,
		&s.RewardedAt,
		&s.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}
