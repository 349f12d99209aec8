// Package query contains read operations (CQRS - Queries).
package query

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/studypet/studypet-hub/internal/application/command"
	"github.com/studypet/studypet-hub/internal/domain/progression"
	"github.com/studypet/studypet-hub/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET PROGRESSION QUERY
// Возвращает текущее состояние пользователя и питомца.
// Перед чтением применяется ленивое затухание, поэтому запрос может
// изменить запись: питомец "догоняет" прошедшие дни.
// ══════════════════════════════════════════════════════════════════════════════

// GetProgressionQuery содержит параметры запроса.
type GetProgressionQuery struct {
	// UserID - идентификатор пользователя.
	UserID string
}

// Validate проверяет параметры запроса.
func (q GetProgressionQuery) Validate() error {
	if q.UserID == "" {
		return errors.New("user_id is required")
	}
	return nil
}

// ProgressionView - DTO состояния пользователя.
type ProgressionView struct {
	*progression.UserProgression

	// XPToNextLevel - сколько XP осталось до следующего уровня.
	XPToNextLevel int `json:"xp_to_next_level"`

	// Decay - затухание, применённое этим запросом.
	Decay progression.DecayResult `json:"decay"`

	// FromCache - ответ взят из кэша без обращения к хранилищу.
	FromCache bool `json:"-"`
}

// GetProgressionHandler обрабатывает GetProgressionQuery.
type GetProgressionHandler struct {
	engine *progression.Engine
	decay  *command.ApplyDecayHandler
	cache  progression.Cache
	clock  timeutil.Clock
	logger *slog.Logger
}

// NewGetProgressionHandler создаёт обработчик. cache может быть nil.
func NewGetProgressionHandler(
	engine *progression.Engine,
	decay *command.ApplyDecayHandler,
	cache progression.Cache,
	clock timeutil.Clock,
	logger *slog.Logger,
) *GetProgressionHandler {
	if clock == nil {
		clock = timeutil.SystemClock{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &GetProgressionHandler{
		engine: engine,
		decay:  decay,
		cache:  cache,
		clock:  clock,
		logger: logger,
	}
}

// Handle выполняет запрос.
func (h *GetProgressionHandler) Handle(ctx context.Context, q GetProgressionQuery) (*ProgressionView, error) {
	if err := q.Validate(); err != nil {
		return nil, fmt.Errorf("get_progression: %w", err)
	}

	// Снимок из кэша годится, только если за сегодня затухание уже применено.
	if cached := h.fromCache(ctx, q.UserID); cached != nil {
		return &ProgressionView{
			UserProgression: cached,
			XPToNextLevel:   h.engine.XPToNextLevel(cached),
			FromCache:       true,
		}, nil
	}

	// Снимок кладётся в кэш под блокировкой пользователя, иначе запись,
	// прошедшая между затуханием и Set, была бы перезаписана старым снимком.
	res, err := h.decay.Handle(ctx, command.ApplyDecayCommand{UserID: q.UserID, FillCache: h.cache != nil})
	if err != nil {
		return nil, fmt.Errorf("get_progression: %w", err)
	}

	return &ProgressionView{
		UserProgression: res.Progression,
		XPToNextLevel:   h.engine.XPToNextLevel(res.Progression),
		Decay:           res.Decay,
	}, nil
}

func (h *GetProgressionHandler) fromCache(ctx context.Context, userID string) *progression.UserProgression {
	if h.cache == nil {
		return nil
	}

	cached, err := h.cache.Get(ctx, userID)
	if err != nil {
		h.logger.Warn("progression cache read failed", "user_id", userID, "error", err)
		return nil
	}
	if cached == nil || h.engine.PendingDays(cached, h.clock.Now()) > 0 {
		return nil
	}
	return cached
}
