package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"qyzmetBack/internal/lifecycle"
	"qyzmetBack/internal/models"
)

type RescheduleRepository struct {
	DB *sql.DB
}

const rescheduleColumns = `id, booking_id, requested_by, original_date, requested_date, suggested_date,
	status, provider_response, respond_by, created_at, resolved_at`

func scanReschedule(row interface{ Scan(...any) error }) (models.RescheduleRequest, error) {
	var req models.RescheduleRequest
	err := row.Scan(&req.ID, &req.JobID, &req.RequestedBy, &req.OriginalDate, &req.RequestedDate,
		&req.SuggestedDate, &req.Status, &req.ProviderResponse, &req.RespondBy, &req.CreatedAt, &req.ResolvedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.RescheduleRequest{}, models.ErrRescheduleNotFound
	}
	if err != nil {
		return models.RescheduleRequest{}, err
	}
	return req, nil
}

func (r *RescheduleRepository) Create(ctx context.Context, req models.RescheduleRequest) (models.RescheduleRequest, error) {
	res, err := r.DB.ExecContext(ctx, `
		INSERT INTO reschedule_requests (booking_id, requested_by, original_date, requested_date, status, respond_by)
		VALUES (?, ?, ?, ?, ?, ?)`,
		req.JobID, req.RequestedBy, req.OriginalDate, req.RequestedDate, lifecycle.RescheduleStatusPending, req.RespondBy)
	if err != nil {
		return models.RescheduleRequest{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return models.RescheduleRequest{}, err
	}
	return r.GetByID(ctx, int(id))
}

func (r *RescheduleRepository) GetByID(ctx context.Context, id int) (models.RescheduleRequest, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+rescheduleColumns+` FROM reschedule_requests WHERE id = ?`, id)
	return scanReschedule(row)
}

// Resolve closes a pending request. The pending guard rejects a second
// resolution and a resolution racing the expirer.
func (r *RescheduleRepository) Resolve(ctx context.Context, id int, status string, providerResponse *string, suggestedDate *time.Time) (bool, error) {
	res, err := r.DB.ExecContext(ctx, `
		UPDATE reschedule_requests
		SET status = ?, provider_response = ?, suggested_date = ?, resolved_at = ?
		WHERE id = ? AND status = ?`,
		status, providerResponse, suggestedDate, time.Now(), id, lifecycle.RescheduleStatusPending)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// ExpireOverdue marks pending requests past their response deadline.
func (r *RescheduleRepository) ExpireOverdue(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.DB.ExecContext(ctx, `
		UPDATE reschedule_requests SET status = ?, resolved_at = ?
		WHERE status = ? AND respond_by < ?`,
		lifecycle.RescheduleStatusExpired, now, lifecycle.RescheduleStatusPending, now)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
