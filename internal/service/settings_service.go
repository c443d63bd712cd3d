package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/gamemarket-backend/internal/models"
	"github.com/ignatzorin/gamemarket-backend/internal/pkg/apperror"
	"github.com/ignatzorin/gamemarket-backend/internal/risk"
)

// Ключи таблицы настроек.
const (
	SettingQuotaFree           = "quota_free"
	SettingQuotaPro            = "quota_pro"
	SettingQuotaElite          = "quota_elite"
	SettingHighValue           = "flag_high_value"
	SettingSuspiciousRateFloor = "flag_suspicious_rate_floor"
	SettingDefaultRate         = "flag_default_rate"
)

// Дефолты применяются, когда ключ отсутствует в таблице.
var settingDefaults = map[string]float64{
	SettingQuotaFree:           10,
	SettingQuotaPro:            50,
	SettingQuotaElite:          100,
	SettingHighValue:           15000,
	SettingSuspiciousRateFloor: 0.25,
	SettingDefaultRate:         0.35,
}

// SettingsRepository описывает взаимодействие сервиса с таблицей настроек.
type SettingsRepository interface {
	GetAll(ctx context.Context) (map[string]float64, error)
	Set(ctx context.Context, key string, value float64) error
}

// SettingsAuditRepository пишет записи аудита об изменении настроек.
type SettingsAuditRepository interface {
	Create(ctx context.Context, e *models.AuditEntry) error
}

// SettingsService отдаёт квоты тарифов и пороги риска. Значения
// кэшируются в памяти с TTL: правка строки в базе подхватывается
// без редеплоя в пределах интервала.
type SettingsService struct {
	repo  SettingsRepository
	audit SettingsAuditRepository
	ttl   time.Duration

	mu       sync.RWMutex
	cached   map[string]float64
	loadedAt time.Time
}

// NewSettingsService создаёт сервис настроек.
func NewSettingsService(repo SettingsRepository, audit SettingsAuditRepository, ttl time.Duration) *SettingsService {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &SettingsService{repo: repo, audit: audit, ttl: ttl}
}

// get возвращает значение ключа, перечитывая таблицу по истечении TTL.
func (s *SettingsService) get(ctx context.Context, key string) (float64, error) {
	s.mu.RLock()
	fresh := s.cached != nil && time.Since(s.loadedAt) < s.ttl
	value, ok := s.cached[key]
	s.mu.RUnlock()

	if fresh {
		if ok {
			return value, nil
		}
		return defaultFor(key)
	}

	all, err := s.repo.GetAll(ctx)
	if err != nil {
		// База недоступна: отдаём устаревший кэш, если он есть.
		s.mu.RLock()
		defer s.mu.RUnlock()
		if s.cached != nil {
			if v, ok := s.cached[key]; ok {
				return v, nil
			}
			return defaultFor(key)
		}
		return 0, err
	}

	s.mu.Lock()
	s.cached = all
	s.loadedAt = time.Now()
	value, ok = all[key]
	s.mu.Unlock()

	if ok {
		return value, nil
	}
	return defaultFor(key)
}

func defaultFor(key string) (float64, error) {
	if v, ok := settingDefaults[key]; ok {
		return v, nil
	}
	return 0, fmt.Errorf("settings service: неизвестный ключ %q", key)
}

// TierQuota возвращает максимум одновременно активных объявлений тарифа.
func (s *SettingsService) TierQuota(ctx context.Context, tier string) (int, error) {
	var key string
	switch tier {
	case models.TierFree:
		key = SettingQuotaFree
	case models.TierPro:
		key = SettingQuotaPro
	case models.TierElite:
		key = SettingQuotaElite
	default:
		return 0, fmt.Errorf("settings service: неизвестный тариф %q", tier)
	}

	v, err := s.get(ctx, key)
	return int(v), err
}

// Thresholds возвращает текущие пороги пометки сделок.
func (s *SettingsService) Thresholds(ctx context.Context) (risk.Thresholds, error) {
	highValue, err := s.get(ctx, SettingHighValue)
	if err != nil {
		return risk.Thresholds{}, err
	}
	floor, err := s.get(ctx, SettingSuspiciousRateFloor)
	if err != nil {
		return risk.Thresholds{}, err
	}
	defaultRate, err := s.get(ctx, SettingDefaultRate)
	if err != nil {
		return risk.Thresholds{}, err
	}

	return risk.Thresholds{
		HighValue:      highValue,
		SuspiciousRate: floor,
		DefaultRate:    defaultRate,
	}, nil
}

// All возвращает действующие значения всех известных ключей.
func (s *SettingsService) All(ctx context.Context) (map[string]float64, error) {
	out := make(map[string]float64, len(settingDefaults))
	for key := range settingDefaults {
		v, err := s.get(ctx, key)
		if err != nil {
			return nil, err
		}
		out[key] = v
	}
	return out, nil
}

// Update меняет значение настройки. Только модератор; правка попадает
// в журнал аудита.
func (s *SettingsService) Update(ctx context.Context, actor models.Actor, key string, value float64) error {
	if !actor.IsModerator() {
		return apperror.ErrForbidden
	}
	if _, ok := settingDefaults[key]; !ok {
		return apperror.New(apperror.ErrCodeValidation, fmt.Sprintf("неизвестный ключ настройки %q", key))
	}
	if value < 0 {
		return apperror.New(apperror.ErrCodeValidation, "значение настройки не может быть отрицательным")
	}

	if err := s.repo.Set(ctx, key, value); err != nil {
		return err
	}

	// Сбрасываем кэш: правка видна немедленно в этом процессе.
	s.mu.Lock()
	s.cached = nil
	s.mu.Unlock()

	return s.audit.Create(ctx, &models.AuditEntry{
		ActorID:    actor.ID,
		Action:     models.AuditActionSettingChanged,
		TargetType: "setting",
		TargetID:   uuid.Nil,
		Detail:     fmt.Sprintf("%s = %v", key, value),
	})
}
