package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/vibast-solutions/ms-go-escrow/app/entity"
)

// EscrowEventRepository stores the append-only escrow operation journal.
type EscrowEventRepository struct {
	db DBTX
}

func NewEscrowEventRepository(db DBTX) *EscrowEventRepository {
	return &EscrowEventRepository{db: db}
}

func (r *EscrowEventRepository) Create(ctx context.Context, event *entity.EscrowEvent) error {
	query := `
		INSERT INTO escrow_events (
			order_id, payment_reference_id, event_type, status, failure_kind, amount, provider_event_id, message, created_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := r.db.ExecContext(ctx, query,
		event.OrderID,
		event.PaymentReferenceID,
		event.EventType,
		nullableStringValue(event.Status),
		nullableStringValue(event.FailureKind),
		event.Amount,
		nullableStringValue(event.ProviderEventID),
		nullableStringValue(event.Message),
		event.CreatedAt,
	)
	if err != nil {
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	event.ID = uint64(id)

	return nil
}

// ListLatestNonTerminal returns, per payment reference, the newest journal row
// carrying a status, when that status can still change and the row is older
// than before.
func (r *EscrowEventRepository) ListLatestNonTerminal(ctx context.Context, before time.Time, limit int32) ([]*entity.EscrowEvent, error) {
	query := `
		SELECT e.id, e.order_id, e.payment_reference_id, e.event_type, e.status, e.failure_kind,
			e.amount, e.provider_event_id, e.message, e.created_at
		FROM escrow_events e
		JOIN (
			SELECT payment_reference_id, MAX(id) AS max_id
			FROM escrow_events
			WHERE payment_reference_id <> '' AND status IS NOT NULL
			GROUP BY payment_reference_id
		) latest ON latest.max_id = e.id
		WHERE e.status IN (?, ?, ?)
		  AND e.created_at <= ?
		ORDER BY e.created_at ASC
		LIMIT ?
	`

	rows, err := r.db.QueryContext(ctx, query,
		string(entity.StatusHeld),
		string(entity.StatusCaptured),
		string(entity.StatusPartiallyRefunded),
		before,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := make([]*entity.EscrowEvent, 0)
	for rows.Next() {
		item := &entity.EscrowEvent{}
		if err := scanEscrowEvent(rows, item); err != nil {
			return nil, err
		}
		events = append(events, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return events, nil
}

func scanEscrowEvent(scan rowScanner, event *entity.EscrowEvent) error {
	var status sql.NullString
	var failureKind sql.NullString
	var providerEventID sql.NullString
	var message sql.NullString

	err := scan.Scan(
		&event.ID,
		&event.OrderID,
		&event.PaymentReferenceID,
		&event.EventType,
		&status,
		&failureKind,
		&event.Amount,
		&providerEventID,
		&message,
		&event.CreatedAt,
	)
	if err != nil {
		return err
	}

	event.Status = stringPtrFromNull(status)
	event.FailureKind = stringPtrFromNull(failureKind)
	event.ProviderEventID = stringPtrFromNull(providerEventID)
	event.Message = stringPtrFromNull(message)

	return nil
}
