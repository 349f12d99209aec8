package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/studypet/studypet-hub/internal/domain/progression"
	"github.com/studypet/studypet-hub/internal/domain/shared"
)

// SessionRepository implements progression.SessionStore using SQLite.
type SessionRepository struct {
	db *DB
}

// NewSessionRepository creates a new SQLite-backed SessionRepository.
func NewSessionRepository(db *DB) *SessionRepository {
	return &SessionRepository{db: db}
}

var _ progression.SessionStore = (*SessionRepository)(nil)

const sessionColumns = `
	id, user_id, title, duration, actual_duration, completed, focus_rating,
	start_time, end_time, xp_earned, rewarded_at, created_at`

func (r *SessionRepository) CreateSession(ctx context.Context, s *progression.StudySession) error {
	_, err := r.db.SqlDB.ExecContext(ctx,
		`INSERT INTO study_sessions (`+sessionColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.ID,
		s.UserID,
		s.Title,
		s.TargetDuration,
		optInt(s.ActualDuration),
		boolToInt(s.Completed),
		optInt(s.FocusRating),
		toNanos(s.StartTime),
		optNanos(s.EndTime),
		optInt(s.XPEarned),
		optNanos(s.RewardedAt),
		toNanos(s.CreatedAt),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return shared.ErrSessionExists
		}
		if isForeignKeyError(err) {
			return shared.ErrProgressionNotFound
		}
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

func (r *SessionRepository) GetSession(ctx context.Context, userID, sessionID string) (*progression.StudySession, error) {
	row := r.db.SqlDB.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM study_sessions WHERE id = ? AND user_id = ?`, sessionID, userID)

	s, err := scanSession(row)
	if err != nil {
		if isNoRows(err) {
			return nil, shared.ErrSessionNotFound
		}
		return nil, fmt.Errorf("query session: %w", err)
	}
	return s, nil
}

// FinishSession stores the end of a session. Finished sessions are left untouched.
func (r *SessionRepository) FinishSession(ctx context.Context, s *progression.StudySession) error {
	res, err := r.db.SqlDB.ExecContext(ctx,
		`UPDATE study_sessions SET
			actual_duration = ?,
			completed = 1,
			focus_rating = ?,
			end_time = ?
		 WHERE id = ? AND user_id = ? AND completed = 0`,
		optInt(s.ActualDuration),
		optInt(s.FocusRating),
		optNanos(s.EndTime),
		s.ID,
		s.UserID,
	)
	if err != nil {
		return fmt.Errorf("finish session: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		if _, err := r.GetSession(ctx, s.UserID, s.ID); err != nil {
			return err
		}
		return shared.ErrSessionAlreadyFinished
	}
	return nil
}

func (r *SessionRepository) ListSessions(ctx context.Context, userID string, limit int) ([]*progression.StudySession, error) {
	rows, err := r.db.SqlDB.QueryContext(ctx,
		`SELECT `+sessionColumns+` FROM study_sessions
		 WHERE user_id = ?
		 ORDER BY start_time DESC
		 LIMIT ?`,
		userID, shared.BatchLimit(limit),
	)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*progression.StudySession
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}

func scanSession(row rowScanner) (*progression.StudySession, error) {
	var (
		s                               progression.StudySession
		actual, focus, xp               sql.NullInt64
		endTime, rewardedAt             sql.NullInt64
		completed, startTime, createdAt int64
	)

	err := row.Scan(
		&s.ID,
		&s.UserID,
		&s.Title,
		&s.TargetDuration,
		&actual,
		&completed,
		&focus,
		&startTime,
		&endTime,
		&xp,
		&rewardedAt,
		&createdAt,
	)
	if err != nil {
		return nil, err
	}

	s.ActualDuration = intPtr(actual)
	s.Completed = completed != 0
	s.FocusRating = intPtr(focus)
	s.StartTime = fromNanos(startTime)
	s.EndTime = optTime(endTime)
	s.XPEarned = intPtr(xp)
	s.RewardedAt = optTime(rewardedAt)
	s.CreatedAt = fromNanos(createdAt)

	return &s, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
