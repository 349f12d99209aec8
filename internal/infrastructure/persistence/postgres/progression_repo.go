package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/studypet/studypet-hub/internal/domain/progression"
	"github.com/studypet/studypet-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// PROGRESSION REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// ProgressionRepository implements progression.Store for PostgreSQL.
type ProgressionRepository struct {
	conn *Connection
}

// NewProgressionRepository creates a new ProgressionRepository.
func NewProgressionRepository(conn *Connection) *ProgressionRepository {
	return &ProgressionRepository{conn: conn}
}

var _ progression.Store = (*ProgressionRepository)(nil)

const progressionColumns = `
	user_id, experience_points, level, total_study_time, pet_name, pet_type,
	pet_energy, pet_mood, streak_days, last_study_date, last_checked_at,
	version, created_at, updated_at`

// ─────────────────────────────────────────────────────────────────────────────
// CRUD Operations
// ─────────────────────────────────────────────────────────────────────────────

// Create inserts a new progression with version 1.
func (r *ProgressionRepository) Create(ctx context.Context, p *progression.UserProgression) error {
	query := `
		INSERT INTO user_progressions (` + progressionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, 1, $12, $13)
	`

	_, err := r.conn.Exec(ctx, query,
		p.UserID,
		p.ExperiencePoints,
		p.Level,
		p.TotalStudyTime,
		p.PetName,
		string(p.PetType),
		p.PetEnergy,
		string(p.PetMood),
		p.StreakDays,
		dateArg(p.LastStudyDate),
		p.LastCheckedAt,
		p.CreatedAt,
		p.UpdatedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return shared.ErrProgressionExists
		}
		return fmt.Errorf("failed to create progression: %w", err)
	}

	p.Version = 1
	return nil
}

// Load returns the progression of a user.
func (r *ProgressionRepository) Load(ctx context.Context, userID string) (*progression.UserProgression, error) {
	query := `SELECT ` + progressionColumns + ` FROM user_progressions WHERE user_id = $1`

	p, err := scanProgression(r.conn.QueryRow(ctx, query, userID))
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrProgressionNotFound
		}
		return nil, fmt.Errorf("failed to load progression: %w", err)
	}
	return p, nil
}

// Save updates the progression if the stored version matches p.Version.
func (r *ProgressionRepository) Save(ctx context.Context, p *progression.UserProgression) error {
	if err := updateProgression(ctx, r.conn, p); err != nil {
		return err
	}
	p.Version++
	return nil
}

// SaveRewarded marks the session rewarded and saves the progression in one transaction.
func (r *ProgressionRepository) SaveRewarded(ctx context.Context, p *progression.UserProgression, sessionID string, xp int, at time.Time) error {
	err := r.conn.WithTx(ctx, DefaultTxOptions(), func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			UPDATE study_sessions
			SET xp_earned = $1, rewarded_at = $2
			WHERE id = $3 AND user_id = $4 AND rewarded_at IS NULL
		`, xp, at, sessionID, p.UserID)
		if err != nil {
			return fmt.Errorf("failed to mark session rewarded: %w", err)
		}
		if tag.RowsAffected() == 0 {
			var rewarded bool
			err := tx.QueryRow(ctx,
				`SELECT rewarded_at IS NOT NULL FROM study_sessions WHERE id = $1 AND user_id = $2`,
				sessionID, p.UserID,
			).Scan(&rewarded)
			if IsNoRows(err) {
				return shared.ErrSessionNotFound
			}
			if err != nil {
				return fmt.Errorf("failed to check session: %w", err)
			}
			return shared.ErrSessionAlreadyRewarded
		}

		return updateProgression(ctx, tx, p)
	})
	if err != nil {
		return err
	}

	p.Version++
	return nil
}

// Delete removes the progression; sessions are removed by ON DELETE CASCADE.
func (r *ProgressionRepository) Delete(ctx context.Context, userID string) error {
	result, err := r.conn.Exec(ctx, `DELETE FROM user_progressions WHERE user_id = $1`, userID)
	if err != nil {
		return fmt.Errorf("failed to delete progression: %w", err)
	}

	if result.RowsAffected() == 0 {
		return shared.ErrProgressionNotFound
	}

	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Bulk Operations
// ─────────────────────────────────────────────────────────────────────────────

// ListStale returns users whose last decay check is older than before.
func (r *ProgressionRepository) ListStale(ctx context.Context, before time.Time, limit int) ([]string, error) {
	query := `
		SELECT user_id FROM user_progressions
		WHERE last_checked_at < $1
		ORDER BY last_checked_at ASC
		LIMIT $2
	`

	rows, err := r.conn.Query(ctx, query, before, shared.BatchLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to list stale progressions: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan user id: %w", err)
		}
		ids = append(ids, id)
	}

	return ids, rows.Err()
}

// ─────────────────────────────────────────────────────────────────────────────
// Helpers
// ─────────────────────────────────────────────────────────────────────────────

func updateProgression(ctx context.Context, q Querier, p *progression.UserProgression) error {
	query := `
		UPDATE user_progressions SET
			experience_points = $1,
			level = $2,
			total_study_time = $3,
			pet_name = $4,
			pet_type = $5,
			pet_energy = $6,
			pet_mood = $7,
			streak_days = $8,
			last_study_date = $9,
			last_checked_at = $10,
			updated_at = $11,
			version = version + 1
		WHERE user_id = $12 AND version = $13
	`

	result, err := q.Exec(ctx, query,
		p.ExperiencePoints,
		p.Level,
		p.TotalStudyTime,
		p.PetName,
		string(p.PetType),
		p.PetEnergy,
		string(p.PetMood),
		p.StreakDays,
		dateArg(p.LastStudyDate),
		p.LastCheckedAt,
		p.UpdatedAt,
		p.UserID,
		p.Version,
	)
	if err != nil {
		return fmt.Errorf("failed to update progression: %w", err)
	}

	if result.RowsAffected() > 0 {
		return nil
	}

	var exists bool
	err = q.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM user_progressions WHERE user_id = $1)`, p.UserID).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to check progression: %w", err)
	}
	if !exists {
		return shared.ErrProgressionNotFound
	}
	return shared.ErrVersionConflict
}

func scanProgression(row pgx.Row) (*progression.UserProgression, error) {
	var (
		p         progression.UserProgression
		petType   string
		mood      string
		lastStudy *time.Time
	)

	err := row.Scan(
		&p.UserID,
		&p.ExperiencePoints,
		&p.Level,
		&p.TotalStudyTime,
		&p.PetName,
		&petType,
		&p.PetEnergy,
		&mood,
		&p.StreakDays,
		&lastStudy,
		&p.LastCheckedAt,
		&p.Version,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	p.PetType = progression.PetType(petType)
	p.PetMood = progression.Mood(mood)
	if lastStudy != nil {
		d := progression.DateOf(*lastStudy, time.UTC)
		p.LastStudyDate = &d
	}

	return &p, nil
}

// dateArg converts an optional calendar date into a DATE parameter.
func dateArg(d *progression.Date) interface{} {
	if d == nil {
		return nil
	}
	return d.Midnight()
}
