package repositories

import (
	"context"
	"database/sql"

	"qyzmetBack/internal/models"
)

type MessageRepository struct {
	DB *sql.DB
}

func (r *MessageRepository) Insert(ctx context.Context, msg models.Message) (int, error) {
	res, err := r.DB.ExecContext(ctx, `
		INSERT INTO messages (job_id, sender_id, receiver_id, text, system)
		VALUES (?, ?, ?, ?, ?)`,
		msg.JobID, msg.SenderID, msg.ReceiverID, msg.Text, msg.System)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return int(id), nil
}

func (r *MessageRepository) ListByJob(ctx context.Context, jobID, limit, offset int) ([]models.Message, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT id, job_id, sender_id, receiver_id, text, system, created_at
		FROM messages WHERE job_id = ? ORDER BY id DESC LIMIT ? OFFSET ?`, jobID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var msgs []models.Message
	for rows.Next() {
		var m models.Message
		if err := rows.Scan(&m.ID, &m.JobID, &m.SenderID, &m.ReceiverID, &m.Text, &m.System, &m.CreatedAt); err != nil {
			return nil, err
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}
