package repository

import (
	"context"
	"errors"

	"github.com/vibast-solutions/ms-go-escrow/app/entity"
)

var ErrCallbackAlreadyExists = errors.New("provider callback already exists")

type ProviderCallbackRepository struct {
	db DBTX
}

func NewProviderCallbackRepository(db DBTX) *ProviderCallbackRepository {
	return &ProviderCallbackRepository{db: db}
}

func (r *ProviderCallbackRepository) Create(ctx context.Context, callback *entity.ProviderCallback) error {
	query := `
		INSERT INTO provider_callbacks (
			provider, provider_event_id, event_type, signature, payload_json, status, error, created_at, updated_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := r.db.ExecContext(ctx, query,
		callback.Provider,
		nullableStringValue(callback.ProviderEventID),
		callback.EventType,
		callback.Signature,
		callback.PayloadJSON,
		callback.Status,
		nullableStringValue(callback.Error),
		callback.CreatedAt,
		callback.UpdatedAt,
	)
	if err != nil {
		if isDuplicateEntryError(err) {
			return ErrCallbackAlreadyExists
		}
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	callback.ID = uint64(id)

	return nil
}

// ExistsProcessed reports whether an event id was already processed for the
// provider. Rejected deliveries do not count.
func (r *ProviderCallbackRepository) ExistsProcessed(ctx context.Context, provider, providerEventID string) (bool, error) {
	query := `
		SELECT COUNT(1)
		FROM provider_callbacks
		WHERE provider = ? AND provider_event_id = ? AND status = ?
	`

	var count int64
	if err := r.db.QueryRowContext(ctx, query, provider, providerEventID, entity.ProviderCallbackStatusProcessed).Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}
