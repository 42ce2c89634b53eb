package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/walletapp/wallet-core/internal/domain"
	domainerrors "github.com/walletapp/wallet-core/internal/errors"
)

// cardColumns is the ordered list of columns selected in card queries.
// Must match the scan order in scanCard and the order of cardArgs.
const cardColumns = `id, name, barcode, barcode_format, brand_id, color, is_favorite, last_used_at, usage_count, created_at, updated_at`

// scanCard scans a sql.Row (or sql.Rows via its Scan method) into a domain.LoyaltyCard.
// Enum columns are checked so a bad row surfaces as data corruption
// instead of an invalid card.
func scanCard(scanner interface{ Scan(dest ...any) error }) (*domain.LoyaltyCard, error) {
	var c domain.LoyaltyCard

	var (
		barcodeFormat string
		color         string
		brandID       sql.NullString
		lastUsedAt    sql.NullString
		isFavorite    int64
	)

	err := scanner.Scan(
		&c.ID,
		&c.Name,
		&c.Barcode,
		&barcodeFormat,
		&brandID,
		&color,
		&isFavorite,
		&lastUsedAt,
		&c.UsageCount,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	c.BarcodeFormat = domain.BarcodeFormat(barcodeFormat)
	if !c.BarcodeFormat.IsValid() {
		return nil, domainerrors.DataCorruptionf("card %s: unknown barcode_format %q", c.ID, barcodeFormat)
	}
	c.Color = domain.CardColor(color)
	if !c.Color.IsValid() {
		return nil, domainerrors.DataCorruptionf("card %s: unknown color %q", c.ID, color)
	}

	c.IsFavorite = isFavorite != 0
	c.BrandID = stringPtr(brandID)
	c.LastUsedAt = stringPtr(lastUsedAt)

	return &c, nil
}

// cardArgs returns the bind values for cardColumns.
func cardArgs(c *domain.LoyaltyCard) []any {
	return []any{
		c.ID,
		c.Name,
		c.Barcode,
		string(c.BarcodeFormat),
		nullableString(c.BrandID),
		string(c.Color),
		boolToInt(c.IsFavorite),
		nullableString(c.LastUsedAt),
		c.UsageCount,
		c.CreatedAt,
		c.UpdatedAt,
	}
}

var errNilCard = domainerrors.Validation("card is nil")

// CardRepository persists loyalty cards. Every write runs in its own
// transaction; engine errors are returned as-is.
type CardRepository struct {
	provider DBProvider
}

// NewCardRepository creates a repository that resolves its connection
// through provider on every call.
func NewCardRepository(provider DBProvider) *CardRepository {
	return &CardRepository{provider: provider}
}

// withTx runs fn in a transaction and commits if it returns nil.
func (r *CardRepository) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	db, err := r.provider.Get()
	if err != nil {
		return err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

// execTx runs a single statement in a transaction and reports rows affected.
func (r *CardRepository) execTx(ctx context.Context, query string, args ...any) (int64, error) {
	var affected int64
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			return err
		}
		affected, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return 0, err
	}
	return affected, nil
}

func (r *CardRepository) list(ctx context.Context, query string, args ...any) ([]*domain.LoyaltyCard, error) {
	db, err := r.provider.Get()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cards := []*domain.LoyaltyCard{}
	for rows.Next() {
		c, err := scanCard(rows)
		if err != nil {
			return nil, err
		}
		cards = append(cards, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return cards, nil
}

// GetAll returns every card, newest first. An empty store yields an empty slice.
func (r *CardRepository) GetAll(ctx context.Context) ([]*domain.LoyaltyCard, error) {
	return r.list(ctx, `SELECT `+cardColumns+` FROM loyalty_cards ORDER BY created_at DESC`)
}

// GetFavorites returns favorite cards, newest first.
func (r *CardRepository) GetFavorites(ctx context.Context) ([]*domain.LoyaltyCard, error) {
	return r.list(ctx, `SELECT `+cardColumns+` FROM loyalty_cards
		WHERE is_favorite = 1
		ORDER BY created_at DESC`)
}

// GetMostUsed returns up to limit cards ordered by usage, then recency of use.
// Cards that were never displayed sort last.
func (r *CardRepository) GetMostUsed(ctx context.Context, limit int) ([]*domain.LoyaltyCard, error) {
	return r.list(ctx, `SELECT `+cardColumns+` FROM loyalty_cards
		ORDER BY usage_count DESC, last_used_at DESC NULLS LAST
		LIMIT ?`, limit)
}

// GetByID returns the card with id, or nil if there is none.
func (r *CardRepository) GetByID(ctx context.Context, id string) (*domain.LoyaltyCard, error) {
	db, err := r.provider.Get()
	if err != nil {
		return nil, err
	}

	row := db.QueryRowContext(ctx,
		`SELECT `+cardColumns+` FROM loyalty_cards WHERE id = ?`, id)

	c, err := scanCard(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

// Insert adds a new card. A duplicate id fails with the engine's
// constraint error; Insert never replaces.
func (r *CardRepository) Insert(ctx context.Context, c *domain.LoyaltyCard) error {
	if c == nil {
		return errNilCard
	}
	_, err := r.execTx(ctx, `
		INSERT INTO loyalty_cards (`+cardColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		cardArgs(c)...,
	)
	return err
}

// Update overwrites every mutable column of the card with c.ID and
// returns the number of rows changed. A missing id is not an error;
// callers that care must check the count. created_at is never rewritten.
func (r *CardRepository) Update(ctx context.Context, c *domain.LoyaltyCard) (int64, error) {
	if c == nil {
		return 0, errNilCard
	}
	return r.execTx(ctx, `
		UPDATE loyalty_cards SET
			name = ?,
			barcode = ?,
			barcode_format = ?,
			brand_id = ?,
			color = ?,
			is_favorite = ?,
			last_used_at = ?,
			usage_count = ?,
			updated_at = ?
		WHERE id = ?`,
		c.Name,
		c.Barcode,
		string(c.BarcodeFormat),
		nullableString(c.BrandID),
		string(c.Color),
		boolToInt(c.IsFavorite),
		nullableString(c.LastUsedAt),
		c.UsageCount,
		c.UpdatedAt,
		c.ID,
	)
}

// Upsert inserts c or replaces the existing row with the same id.
func (r *CardRepository) Upsert(ctx context.Context, c *domain.LoyaltyCard) error {
	if c == nil {
		return errNilCard
	}
	_, err := r.execTx(ctx, `
		INSERT OR REPLACE INTO loyalty_cards (`+cardColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		cardArgs(c)...,
	)
	return err
}

// Delete removes the card with id and returns the number of rows removed.
func (r *CardRepository) Delete(ctx context.Context, id string) (int64, error) {
	return r.execTx(ctx, `DELETE FROM loyalty_cards WHERE id = ?`, id)
}

// DeleteAll removes every card.
func (r *CardRepository) DeleteAll(ctx context.Context) (int64, error) {
	return r.execTx(ctx, `DELETE FROM loyalty_cards`)
}

// Count returns the number of stored cards.
func (r *CardRepository) Count(ctx context.Context) (int, error) {
	db, err := r.provider.Get()
	if err != nil {
		return 0, err
	}

	var n int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM loyalty_cards`).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}
