package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// SettingsRepository читает и пишет таблицу настроек: квоты тарифов
// и пороги эвристики риска. Значения правятся без редеплоя, сервис
// настроек перечитывает их по TTL.
type SettingsRepository struct {
	db *sqlx.DB
}

func NewSettingsRepository(db *sqlx.DB) *SettingsRepository {
	return &SettingsRepository{db: db}
}

type settingRow struct {
	Key   string  `db:"key"`
	Value float64 `db:"value"`
}

// GetAll возвращает все настройки одной выборкой.
func (r *SettingsRepository) GetAll(ctx context.Context) (map[string]float64, error) {
	var rows []settingRow
	if err := r.db.SelectContext(ctx, &rows, `SELECT key, value FROM settings`); err != nil {
		return nil, fmt.Errorf("settings: %w", err)
	}

	out := make(map[string]float64, len(rows))
	for _, row := range rows {
		out[row.Key] = row.Value
	}
	return out, nil
}

// Get возвращает одно значение настройки.
func (r *SettingsRepository) Get(ctx context.Context, key string) (float64, error) {
	var value float64
	err := r.db.GetContext(ctx, &value, `SELECT value FROM settings WHERE key = $1`, key)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("settings: ключ %q не найден", key)
	}
	return value, err
}

// Set обновляет значение настройки, создавая ключ при необходимости.
func (r *SettingsRepository) Set(ctx context.Context, key string, value float64) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO settings (key, value) VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()
	`, key, value)
	return err
}
