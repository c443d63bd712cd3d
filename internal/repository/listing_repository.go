package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/gamemarket-backend/internal/models"
	"github.com/ignatzorin/gamemarket-backend/internal/pkg/apperror"
)

// listingTable возвращает таблицу для вида объявления. Резолвер
// полиморфной ссылки: сделки и диалоги хранят (listing_type, listing_id),
// а строки живут в одной из двух таблиц.
func listingTable(kind models.ListingKind) (string, error) {
	switch kind {
	case models.ListingKindItem:
		return "item_listings", nil
	case models.ListingKindCurrency:
		return "currency_listings", nil
	default:
		return "", fmt.Errorf("repository: неизвестный вид объявления %q", kind)
	}
}

type ListingRepository struct {
	db *sqlx.DB
}

func NewListingRepository(db *sqlx.DB) *ListingRepository {
	return &ListingRepository{db: db}
}

// GetByRef возвращает объявление по типизированной ссылке.
// Создание объявления идёт через Store.CreateListing: проверка квоты
// и вставка должны происходить в одной транзакции.
func (r *ListingRepository) GetByRef(ctx context.Context, ref models.ListingRef) (*models.Listing, error) {
	table, err := listingTable(ref.Kind)
	if err != nil {
		return nil, err
	}

	var l models.Listing
	query := fmt.Sprintf(`SELECT * FROM %s WHERE id = $1`, table)
	if err := r.db.GetContext(ctx, &l, query, ref.ID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.ErrListingNotFound
		}
		return nil, fmt.Errorf("get listing from %s: %w", table, err)
	}

	l.Kind = ref.Kind
	return &l, nil
}

// ListFilterParams параметры выборки объявлений.
type ListFilterParams struct {
	Kind     models.ListingKind
	Status   string
	SellerID *uuid.UUID
	Limit    int
	Offset   int
}

// List возвращает объявления одного вида с фильтрами.
func (r *ListingRepository) List(ctx context.Context, params ListFilterParams) ([]models.Listing, error) {
	table, err := listingTable(params.Kind)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`SELECT * FROM %s WHERE 1=1`, table)
	args := []interface{}{}
	argN := 1

	if params.Status != "" {
		query += fmt.Sprintf(" AND status = $%d", argN)
		args = append(args, params.Status)
		argN++
	}
	if params.SellerID != nil {
		query += fmt.Sprintf(" AND seller_id = $%d", argN)
		args = append(args, *params.SellerID)
		argN++
	}

	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", argN, argN+1)
	args = append(args, params.Limit, params.Offset)

	var listings []models.Listing
	if err := r.db.SelectContext(ctx, &listings, query, args...); err != nil {
		return nil, fmt.Errorf("list listings from %s: %w", table, err)
	}

	for i := range listings {
		listings[i].Kind = params.Kind
	}
	return listings, nil
}

// CountAvailableBySeller считает объявления продавца в статусе available
// по обеим таблицам. Для проверки квоты использовать только вариант
// внутри транзакции (Store.CountAvailableBySeller); этот метод для
// отображения профиля.
func (r *ListingRepository) CountAvailableBySeller(ctx context.Context, sellerID uuid.UUID) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `
		SELECT
			(SELECT COUNT(*) FROM item_listings WHERE seller_id = $1 AND status = $2) +
			(SELECT COUNT(*) FROM currency_listings WHERE seller_id = $1 AND status = $2)
	`, sellerID, models.ListingStatusAvailable)
	return count, err
}

// IncrementViewCount атомарно увеличивает счётчик просмотров.
func (r *ListingRepository) IncrementViewCount(ctx context.Context, ref models.ListingRef) error {
	table, err := listingTable(ref.Kind)
	if err != nil {
		return err
	}
	query := fmt.Sprintf(`UPDATE %s SET view_count = view_count + 1 WHERE id = $1`, table)
	_, err = r.db.ExecContext(ctx, query, ref.ID)
	return err
}
