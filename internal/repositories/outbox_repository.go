package repositories

import (
	"context"
	"database/sql"
	"time"

	"qyzmetBack/internal/models"
)

type OutboxRepository struct {
	DB *sql.DB
}

// InsertOutboxTx records a pending side effect inside the caller's transaction,
// so the notification is owed if and only if the state change committed.
func InsertOutboxTx(ctx context.Context, tx *sql.Tx, ev models.OutboxEvent) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO outbox_events (job_id, kind, recipient_id, actor_id, payload)
		VALUES (?, ?, ?, ?, ?)`,
		ev.JobID, ev.Kind, ev.RecipientID, ev.ActorID, nullableJSON(ev))
	return err
}

// Insert records a side effect outside a transaction, for operations whose
// primary write is a single statement.
func (r *OutboxRepository) Insert(ctx context.Context, ev models.OutboxEvent) error {
	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO outbox_events (job_id, kind, recipient_id, actor_id, payload)
		VALUES (?, ?, ?, ?, ?)`,
		ev.JobID, ev.Kind, ev.RecipientID, ev.ActorID, nullableJSON(ev))
	return err
}

// ListPending returns undelivered events, oldest first. Events that keep
// failing stay claimable; the dispatcher backs off via the attempts counter.
func (r *OutboxRepository) ListPending(ctx context.Context, limit int) ([]models.OutboxEvent, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT id, job_id, kind, recipient_id, actor_id, payload, attempts, processed_at, created_at
		FROM outbox_events
		WHERE processed_at IS NULL AND attempts < 10
		ORDER BY id LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []models.OutboxEvent
	for rows.Next() {
		var ev models.OutboxEvent
		var payload sql.NullString
		if err := rows.Scan(&ev.ID, &ev.JobID, &ev.Kind, &ev.RecipientID, &ev.ActorID,
			&payload, &ev.Attempts, &ev.ProcessedAt, &ev.CreatedAt); err != nil {
			return nil, err
		}
		if payload.Valid {
			ev.Payload = []byte(payload.String)
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

func (r *OutboxRepository) MarkProcessed(ctx context.Context, id int) error {
	_, err := r.DB.ExecContext(ctx, `
		UPDATE outbox_events SET processed_at = ? WHERE id = ? AND processed_at IS NULL`,
		time.Now(), id)
	return err
}

func (r *OutboxRepository) BumpAttempts(ctx context.Context, id int) error {
	_, err := r.DB.ExecContext(ctx, `
		UPDATE outbox_events SET attempts = attempts + 1 WHERE id = ?`, id)
	return err
}

func nullableJSON(ev models.OutboxEvent) any {
	if len(ev.Payload) == 0 {
		return nil
	}
	return string(ev.Payload)
}
