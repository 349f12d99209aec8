package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/studypet/studypet-hub/internal/domain/progression"
	"github.com/studypet/studypet-hub/internal/domain/shared"
)

// ProgressionRepository implements progression.Store using SQLite.
type ProgressionRepository struct {
	db *DB
}

// NewProgressionRepository creates a new SQLite-backed ProgressionRepository.
func NewProgressionRepository(db *DB) *ProgressionRepository {
	return &ProgressionRepository{db: db}
}

var _ progression.Store = (*ProgressionRepository)(nil)

const progressionColumns = `
	user_id, experience_points, level, total_study_time, pet_name, pet_type,
	pet_energy, pet_mood, streak_days, last_study_date, last_checked_at,
	version, created_at, updated_at`

func (r *ProgressionRepository) Create(ctx context.Context, p *progression.UserProgression) error {
	_, err := r.db.SqlDB.ExecContext(ctx,
		`INSERT INTO user_progressions (`+progressionColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1, ?, ?)`,
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
		toNanos(p.LastCheckedAt),
		toNanos(p.CreatedAt),
		toNanos(p.UpdatedAt),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return shared.ErrProgressionExists
		}
		return fmt.Errorf("insert progression: %w", err)
	}

	p.Version = 1
	return nil
}

func (r *ProgressionRepository) Load(ctx context.Context, userID string) (*progression.UserProgression, error) {
	row := r.db.SqlDB.QueryRowContext(ctx,
		`SELECT `+progressionColumns+` FROM user_progressions WHERE user_id = ?`, userID)

	p, err := scanProgression(row)
	if err != nil {
		if isNoRows(err) {
			return nil, shared.ErrProgressionNotFound
		}
		return nil, fmt.Errorf("query progression: %w", err)
	}
	return p, nil
}

func (r *ProgressionRepository) Save(ctx context.Context, p *progression.UserProgression) error {
	if err := updateProgression(ctx, r.db.SqlDB, p); err != nil {
		return err
	}
	p.Version++
	return nil
}

func (r *ProgressionRepository) SaveRewarded(ctx context.Context, p *progression.UserProgression, sessionID string, xp int, at time.Time) error {
	err := r.db.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE study_sessions SET xp_earned = ?, rewarded_at = ?
			 WHERE id = ? AND user_id = ? AND rewarded_at IS NULL`,
			xp, toNanos(at), sessionID, p.UserID,
		)
		if err != nil {
			return fmt.Errorf("mark session rewarded: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			var one int
			err := tx.QueryRowContext(ctx,
				`SELECT 1 FROM study_sessions WHERE id = ? AND user_id = ?`, sessionID, p.UserID,
			).Scan(&one)
			if isNoRows(err) {
				return shared.ErrSessionNotFound
			}
			if err != nil {
				return fmt.Errorf("check session: %w", err)
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

func (r *ProgressionRepository) Delete(ctx context.Context, userID string) error {
	res, err := r.db.SqlDB.ExecContext(ctx, `DELETE FROM user_progressions WHERE user_id = ?`, userID)
	if err != nil {
		return fmt.Errorf("delete progression: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return shared.ErrProgressionNotFound
	}
	return nil
}

func (r *ProgressionRepository) ListStale(ctx context.Context, before time.Time, limit int) ([]string, error) {
	rows, err := r.db.SqlDB.QueryContext(ctx,
		`SELECT user_id FROM user_progressions
		 WHERE last_checked_at < ?
		 ORDER BY last_checked_at ASC
		 LIMIT ?`,
		toNanos(before), shared.BatchLimit(limit),
	)
	if err != nil {
		return nil, fmt.Errorf("query stale progressions: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan user id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func updateProgression(ctx context.Context, q execer, p *progression.UserProgression) error {
	res, err := q.ExecContext(ctx,
		`UPDATE user_progressions SET
			experience_points = ?,
			level = ?,
			total_study_time = ?,
			pet_name = ?,
			pet_type = ?,
			pet_energy = ?,
			pet_mood = ?,
			streak_days = ?,
			last_study_date = ?,
			last_checked_at = ?,
			updated_at = ?,
			version = version + 1
		 WHERE user_id = ? AND version = ?`,
		p.ExperiencePoints,
		p.Level,
		p.TotalStudyTime,
		p.PetName,
		string(p.PetType),
		p.PetEnergy,
		string(p.PetMood),
		p.StreakDays,
		dateArg(p.LastStudyDate),
		toNanos(p.LastCheckedAt),
		toNanos(p.UpdatedAt),
		p.UserID,
		p.Version,
	)
	if err != nil {
		return fmt.Errorf("update progression: %w", err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}

	var one int
	err = q.QueryRowContext(ctx, `SELECT 1 FROM user_progressions WHERE user_id = ?`, p.UserID).Scan(&one)
	if isNoRows(err) {
		return shared.ErrProgressionNotFound
	}
	if err != nil {
		return fmt.Errorf("check progression: %w", err)
	}
	return shared.ErrVersionConflict
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProgression(row rowScanner) (*progression.UserProgression, error) {
	var (
		p                             progression.UserProgression
		petType, mood                 string
		lastStudy                     sql.NullString
		lastChecked, created, updated int64
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
		&lastChecked,
		&p.Version,
		&created,
		&updated,
	)
	if err != nil {
		return nil, err
	}

	p.PetType = progression.PetType(petType)
	p.PetMood = progression.Mood(mood)
	p.LastCheckedAt = fromNanos(lastChecked)
	p.CreatedAt = fromNanos(created)
	p.UpdatedAt = fromNanos(updated)

	if lastStudy.Valid {
		d, err := progression.ParseDate(lastStudy.String)
		if err != nil {
			return nil, err
		}
		p.LastStudyDate = &d
	}

	return &p, nil
}

func dateArg(d *progression.Date) sql.NullString {
	if d == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: d.String(), Valid: true}
}
