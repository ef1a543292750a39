package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/phrazzld/kioku-api/internal/domain"
	"github.com/phrazzld/kioku-api/internal/platform/logger"
	"github.com/phrazzld/kioku-api/internal/store"
)

const itemColumns = `id, subject, mode, text, reading, meaning, created_at, updated_at`

// PostgresItemStore implements the store.ItemStore interface
// using a PostgreSQL database as the storage backend.
type PostgresItemStore struct {
	db     store.DBTX
	logger *slog.Logger
	now    func() time.Time
}

// NewPostgresItemStore creates a new PostgreSQL implementation of the ItemStore interface.
// If logger is nil, a default logger will be used.
func NewPostgresItemStore(db store.DBTX, logger *slog.Logger) *PostgresItemStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresItemStore{
		db:     db,
		logger: logger.With(slog.String("component", "item_store")),
		now:    time.Now,
	}
}

// Ensure PostgresItemStore implements store.ItemStore interface
var _ store.ItemStore = (*PostgresItemStore)(nil)

func scanItem(row rowScanner) (*domain.Item, error) {
	var (
		item domain.Item
		mode string
	)
	if err := row.Scan(
		&item.ID,
		&item.Subject,
		&mode,
		&item.Text,
		&item.Reading,
		&item.Meaning,
		&item.CreatedAt,
		&item.UpdatedAt,
	); err != nil {
		return nil, err
	}
	item.Mode = domain.Mode(mode)
	item.CreatedAt = item.CreatedAt.UTC()
	item.UpdatedAt = item.UpdatedAt.UTC()
	return &item, nil
}

// Create implements store.ItemStore.Create
func (s *PostgresItemStore) Create(ctx context.Context, item *domain.Item) error {
	if err := item.Validate(); err != nil {
		return fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
	}

	_, err := s.db.ExecContext(ctx, `INSERT INTO items (`+itemColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		item.ID,
		item.Subject,
		string(item.Mode),
		item.Text,
		item.Reading,
		item.Meaning,
		item.CreatedAt,
		item.UpdatedAt,
	)
	if err != nil {
		return MapError(err)
	}

	logger.FromContextOrDefault(ctx, s.logger).Info("item created",
		slog.String("item_id", item.ID),
		slog.String("subject", item.Subject),
		slog.String("mode", string(item.Mode)))
	return nil
}

// GetByID implements store.ItemStore.GetByID
func (s *PostgresItemStore) GetByID(ctx context.Context, id string) (*domain.Item, error) {
	item, err := scanItem(s.db.QueryRowContext(ctx,
		`SELECT `+itemColumns+` FROM items WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrItemNotFound
		}
		return nil, MapError(err)
	}
	return item, nil
}

// GetMany implements store.ItemStore.GetMany
func (s *PostgresItemStore) GetMany(ctx context.Context, ids []string) (map[string]*domain.Item, error) {
	items := make(map[string]*domain.Item, len(ids))
	if len(ids) == 0 {
		return items, nil
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+itemColumns+` FROM items WHERE id = ANY($1::text[])`, ids)
	if err != nil {
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan item: %w", err)
		}
		items[item.ID] = item
	}
	if err := rows.Err(); err != nil {
		return nil, MapError(err)
	}
	return items, nil
}

// UpdateFields implements store.ItemStore.UpdateFields
func (s *PostgresItemStore) UpdateFields(ctx context.Context, id string, reading, meaning string) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE items SET reading = $2, meaning = $3, updated_at = $4
		WHERE id = $1`,
		id, reading, meaning, s.now().UTC())
	if err != nil {
		return MapError(err)
	}
	if err := CheckRowsAffected(result, store.ErrItemNotFound); err != nil {
		return err
	}

	logger.FromContextOrDefault(ctx, s.logger).Debug("item fields updated",
		slog.String("item_id", id))
	return nil
}

// Delete implements store.ItemStore.Delete
func (s *PostgresItemStore) Delete(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM items WHERE id = $1`, id)
	if err != nil {
		return MapError(err)
	}
	return CheckRowsAffected(result, store.ErrItemNotFound)
}
