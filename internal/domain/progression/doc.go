// Package progression содержит доменную модель прогресса пользователя Study Pet.
//
// Это ядро бизнес-логики: опыт (XP), уровни, ежедневная серия занятий
// и виртуальный питомец, чья энергия падает со временем и растёт от учёбы.
//
//   - Сущности: UserProgression, StudySession
//   - Value Objects: Date, Mood, PetType, Economy
//   - Калькуляторы: награда за сессию, уровень, серия, энергия питомца
//   - Координатор: Engine (OnSessionCompleted, ApplyPendingDecay)
//   - Интерфейсы хранилищ: Store, SessionStore
//
// # Архитектурные принципы
//
//  1. Нулевые внешние зависимости - только стандартная библиотека Go
//  2. Engine не хранит состояния: все правила экономики передаются через Economy
//  3. Engine изменяет переданную запись и возвращает результат; сохранение,
//     блокировки и повторы делает вызывающий слой (application)
//
// # Пример
//
//	engine, err := progression.NewEngine(progression.ProportionalEconomy(), loc)
//
//	p, err := progression.NewUserProgression(progression.NewProgressionParams{
//	    UserID:  uuid.NewString(),
//	    PetName: "Mochi",
//	    PetType: "cat",
//	    Now:     now,
//	})
//	decay := engine.ApplyPendingDecay(p, now)
//	result := engine.OnSessionCompleted(p, session.Outcome(), now)
//
// # Ленивое затухание
//
// Энергия питомца падает на Economy.DailyEnergyLoss за каждый календарный день
// между LastCheckedAt и текущим моментом. Затухание применяется при следующем
// обращении пользователя (или фоновой задачей), поэтому пропущенные дни
// списываются одним шагом. Повторный вызов в тот же день ничего не меняет.
package progression
