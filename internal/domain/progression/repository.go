package progression

import (
	"context"
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// REPOSITORY INTERFACES
// Контракты хранилищ. Реализации находятся в infrastructure/persistence.
// ══════════════════════════════════════════════════════════════════════════════

// Store хранит записи прогресса пользователей.
type Store interface {
	// Create сохраняет новую запись с Version = 1.
	// Возвращает ErrProgressionExists, если запись уже есть.
	Create(ctx context.Context, p *UserProgression) error

	// Load возвращает запись пользователя.
	// Возвращает ErrProgressionNotFound, если записи нет.
	Load(ctx context.Context, userID string) (*UserProgression, error)

	// Save сохраняет запись, только если версия в хранилище равна p.Version.
	// При успехе p.Version увеличивается на 1.
	// Возвращает ErrVersionConflict при несовпадении версии и
	// ErrProgressionNotFound, если записи нет.
	Save(ctx context.Context, p *UserProgression) error

	// SaveRewarded в одной транзакции сохраняет запись (с той же проверкой
	// версии, что и Save) и фиксирует XP за сессию. Возвращает
	// ErrSessionAlreadyRewarded, если награда за сессию уже выдана;
	// в этом случае запись не сохраняется.
	SaveRewarded(ctx context.Context, p *UserProgression, sessionID string, xp int, at time.Time) error

	// Delete удаляет запись и сессии пользователя.
	// Возвращает ErrProgressionNotFound, если записи нет.
	Delete(ctx context.Context, userID string) error

	// ListStale возвращает ID пользователей, у которых LastCheckedAt раньше before,
	// в порядке возрастания LastCheckedAt, не более limit штук.
	ListStale(ctx context.Context, before time.Time, limit int) ([]string, error)
}

// SessionReader даёт движку доступ к данным сессии.
type SessionReader interface {
	// GetSession возвращает сессию пользователя.
	// Возвращает ErrSessionNotFound, если сессии нет или она чужая.
	GetSession(ctx context.Context, userID, sessionID string) (*StudySession, error)
}

// SessionStore - полный набор операций с сессиями.
type SessionStore interface {
	SessionReader

	// CreateSession сохраняет новую сессию.
	CreateSession(ctx context.Context, s *StudySession) error

	// FinishSession сохраняет фактическую длительность и признак завершения.
	FinishSession(ctx context.Context, s *StudySession) error

	// ListSessions возвращает последние сессии пользователя, новые первыми.
	ListSessions(ctx context.Context, userID string, limit int) ([]*StudySession, error)
}

// Cache хранит снимки записей прогресса для быстрого чтения.
// Промах не является ошибкой: Get возвращает (nil, nil).
type Cache interface {
	Get(ctx context.Context, userID string) (*UserProgression, error)
	Set(ctx context.Context, p *UserProgression) error
	Invalidate(ctx context.Context, userID string) error
}
