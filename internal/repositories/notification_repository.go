package repositories

import (
	"context"
	"database/sql"
	"errors"

	"qyzmetBack/internal/models"
)

type NotificationRepository struct {
	DB *sql.DB
}

func (r *NotificationRepository) Insert(ctx context.Context, n models.Notification) (int, error) {
	res, err := r.DB.ExecContext(ctx, `
		INSERT INTO notifications (user_id, title, body, link) VALUES (?, ?, ?, ?)`,
		n.UserID, n.Title, n.Body, n.Link)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return int(id), nil
}

func (r *NotificationRepository) ListByUser(ctx context.Context, userID, limit, offset int) ([]models.Notification, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT id, user_id, title, body, link, read_at, created_at
		FROM notifications WHERE user_id = ? ORDER BY id DESC LIMIT ? OFFSET ?`, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Notification
	for rows.Next() {
		var n models.Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.Title, &n.Body, &n.Link, &n.ReadAt, &n.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// FCMToken returns the user's registered device token, empty when none.
func (r *NotificationRepository) FCMToken(ctx context.Context, userID int) (string, error) {
	var token sql.NullString
	err := r.DB.QueryRowContext(ctx, `SELECT fcm_token FROM users WHERE id = ?`, userID).Scan(&token)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	if !token.Valid {
		return "", nil
	}
	return token.String, nil
}
