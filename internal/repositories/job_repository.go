package repositories

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"qyzmetBack/internal/lifecycle"
	"qyzmetBack/internal/models"
)

type JobRepository struct {
	DB *sql.DB
}

const jobColumns = `id, client_id, provider_id, status, completion_status, description, address,
	visit_fee_amount, visit_fee_paid, payment_hold_reference, provider_visited,
	scheduled_at, reschedule_date, reschedule_requested_by, marked_done_at, created_at, updated_at`

func scanJob(row interface{ Scan(...any) error }) (models.Job, error) {
	var j models.Job
	err := row.Scan(
		&j.ID, &j.ClientID, &j.ProviderID, &j.Status, &j.CompletionStatus, &j.Description, &j.Address,
		&j.VisitFeeAmount, &j.VisitFeePaid, &j.PaymentHoldRef, &j.ProviderVisited,
		&j.ScheduledAt, &j.RescheduleDate, &j.RescheduleBy, &j.MarkedDoneAt, &j.CreatedAt, &j.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Job{}, models.ErrJobNotFound
	}
	if err != nil {
		return models.Job{}, err
	}
	return j, nil
}

func (r *JobRepository) Create(ctx context.Context, clientID int, req models.CreateJobRequest) (models.Job, error) {
	res, err := r.DB.ExecContext(ctx, `
		INSERT INTO jobs (client_id, status, completion_status, description, address, visit_fee_amount, scheduled_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		clientID, lifecycle.StatusActive, lifecycle.CompletionInProgress,
		req.Description, req.Address, req.VisitFeeAmount, req.ScheduledAt)
	if err != nil {
		return models.Job{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return models.Job{}, err
	}
	return r.GetByID(ctx, int(id))
}

func (r *JobRepository) GetByID(ctx context.Context, id int) (models.Job, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = ?`, id)
	return scanJob(row)
}

// StatusUpdate describes one gated transition write.
type StatusUpdate struct {
	JobID         int
	From          string
	To            string
	ActorID       int
	BindProvider  *int  // set on transition into accepted
	ClearProvider bool  // cancellation via reschedule re-offers the job
	Event         *models.OutboxEvent
}

// ApplyTransition writes the new status conditionally on the expected current
// status, appends status history and the outbox event in the same transaction.
// A zero-row update is classified by re-reading the row, so a concurrent
// winner surfaces as ErrJobConflict rather than a silent no-op.
func (r *JobRepository) ApplyTransition(ctx context.Context, u StatusUpdate) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	set := []string{"status = ?", "updated_at = CURRENT_TIMESTAMP"}
	args := []any{u.To}
	if u.BindProvider != nil {
		set = append(set, "provider_id = ?")
		args = append(args, *u.BindProvider)
	}
	if u.ClearProvider {
		set = append(set, "provider_id = NULL")
	}
	args = append(args, u.JobID, u.From)

	res, execErr := tx.ExecContext(ctx,
		`UPDATE jobs SET `+strings.Join(set, ", ")+` WHERE id = ? AND status = ?`, args...)
	if execErr != nil {
		err = execErr
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		var current string
		scanErr := tx.QueryRowContext(ctx, `SELECT status FROM jobs WHERE id = ?`, u.JobID).Scan(&current)
		if errors.Is(scanErr, sql.ErrNoRows) {
			err = models.ErrJobNotFound
			return err
		}
		if scanErr != nil {
			err = scanErr
			return err
		}
		err = models.ErrJobConflict
		return err
	}

	if err = insertStatusHistory(ctx, tx, models.StatusHistoryEntry{JobID: u.JobID, Status: u.To, ActorID: u.ActorID}); err != nil {
		return err
	}
	if u.Event != nil {
		if err = InsertOutboxTx(ctx, tx, *u.Event); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// Accept binds the provider and moves the job to accepted in one guarded
// statement. The derived-table subquery enforces the one-active-job-per-provider
// invariant atomically with the write; a plain read-then-write pair would leave
// a window for the double-accept race.
func (r *JobRepository) Accept(ctx context.Context, jobID, providerID int, event *models.OutboxEvent) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	active := lifecycle.ProviderActiveStatuses()
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(active)), ",")
	args := []any{providerID, jobID, lifecycle.StatusActive, providerID}
	for _, s := range active {
		args = append(args, s)
	}

	res, execErr := tx.ExecContext(ctx, `
		UPDATE jobs SET status = 'accepted', provider_id = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND status = ?
		AND NOT EXISTS (
			SELECT 1 FROM (
				SELECT id FROM jobs WHERE provider_id = ? AND status IN (`+placeholders+`)
			) busy
		)`, args...)
	if execErr != nil {
		err = execErr
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		var current string
		scanErr := tx.QueryRowContext(ctx, `SELECT status FROM jobs WHERE id = ?`, jobID).Scan(&current)
		if errors.Is(scanErr, sql.ErrNoRows) {
			err = models.ErrJobNotFound
			return err
		}
		if scanErr != nil {
			err = scanErr
			return err
		}
		if current != lifecycle.StatusActive {
			err = models.ErrJobConflict
			return err
		}
		err = models.ErrProviderBusy
		return err
	}

	if err = insertStatusHistory(ctx, tx, models.StatusHistoryEntry{JobID: jobID, Status: lifecycle.StatusAccepted, ActorID: providerID}); err != nil {
		return err
	}
	if event != nil {
		if err = InsertOutboxTx(ctx, tx, *event); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// ClaimHoldReference persists the hold reference only when none exists yet.
// The column also carries a unique index as the backstop against the
// duplicate-hold race.
func (r *JobRepository) ClaimHoldReference(ctx context.Context, jobID int, ref string) (bool, error) {
	res, err := r.DB.ExecContext(ctx, `
		UPDATE jobs SET payment_hold_reference = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND payment_hold_reference IS NULL`, ref, jobID)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// ClaimVisited flips provider_visited; the guard makes the flip the atomic
// decision point for settlement, so concurrent settle calls cannot both act.
func (r *JobRepository) ClaimVisited(ctx context.Context, jobID int) (bool, error) {
	res, err := r.DB.ExecContext(ctx, `
		UPDATE jobs SET provider_visited = 1, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND provider_visited = 0`, jobID)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// RevertVisited undoes a settlement claim after a failed rail call so the
// operation stays retryable. It refuses to undo a claim that already captured.
func (r *JobRepository) RevertVisited(ctx context.Context, jobID int) error {
	_, err := r.DB.ExecContext(ctx, `
		UPDATE jobs SET provider_visited = 0, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND provider_visited = 1 AND visit_fee_paid = 0`, jobID)
	return err
}

func (r *JobRepository) SetVisitFeePaid(ctx context.Context, jobID int) error {
	_, err := r.DB.ExecContext(ctx, `
		UPDATE jobs SET visit_fee_paid = 1, updated_at = CURRENT_TIMESTAMP WHERE id = ?`, jobID)
	return err
}

// MarkDone advances the completion handshake to provider_marked_done.
func (r *JobRepository) MarkDone(ctx context.Context, jobID, actorID int, event *models.OutboxEvent) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	res, execErr := tx.ExecContext(ctx, `
		UPDATE jobs SET completion_status = ?, marked_done_at = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND completion_status = ? AND status = ?`,
		lifecycle.CompletionMarkedDone, time.Now(), jobID, lifecycle.CompletionInProgress, lifecycle.StatusInProgress)
	if execErr != nil {
		err = execErr
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		err = models.ErrCompletionState
		return err
	}
	if event != nil {
		if err = InsertOutboxTx(ctx, tx, *event); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// ConfirmDone finishes the two-party commit: completion_status and the coarse
// status move to completed in one statement, so the pair can never diverge.
// The status guard keeps a job that was cancelled after markDone from being
// revived into completed.
func (r *JobRepository) ConfirmDone(ctx context.Context, jobID, actorID int, event *models.OutboxEvent) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	res, execErr := tx.ExecContext(ctx, `
		UPDATE jobs SET completion_status = ?, status = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND completion_status = ? AND status = ?`,
		lifecycle.CompletionCompleted, lifecycle.StatusCompleted, jobID, lifecycle.CompletionMarkedDone, lifecycle.StatusInProgress)
	if execErr != nil {
		err = execErr
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		err = models.ErrCompletionState
		return err
	}
	if err = insertStatusHistory(ctx, tx, models.StatusHistoryEntry{JobID: jobID, Status: lifecycle.StatusCompleted, ActorID: actorID}); err != nil {
		return err
	}
	if event != nil {
		if err = InsertOutboxTx(ctx, tx, *event); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// ClaimPendingReschedule records an open reschedule negotiation on the job.
// The NULL guard makes the marker a claim: of two concurrent requests only one
// can take it, the other sees false.
func (r *JobRepository) ClaimPendingReschedule(ctx context.Context, jobID int, date time.Time, requestedBy int) (bool, error) {
	res, err := r.DB.ExecContext(ctx, `
		UPDATE jobs SET reschedule_date = ?, reschedule_requested_by = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND reschedule_date IS NULL`, date, requestedBy, jobID)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// ApplySchedule moves the job to the agreed date and clears the pending
// reschedule fields.
func (r *JobRepository) ApplySchedule(ctx context.Context, jobID int, date time.Time) error {
	_, err := r.DB.ExecContext(ctx, `
		UPDATE jobs SET scheduled_at = ?, reschedule_date = NULL, reschedule_requested_by = NULL,
		updated_at = CURRENT_TIMESTAMP WHERE id = ?`, date, jobID)
	return err
}

func (r *JobRepository) ClearPendingReschedule(ctx context.Context, jobID int) error {
	_, err := r.DB.ExecContext(ctx, `
		UPDATE jobs SET reschedule_date = NULL, reschedule_requested_by = NULL,
		updated_at = CURRENT_TIMESTAMP WHERE id = ?`, jobID)
	return err
}

func insertStatusHistory(ctx context.Context, tx *sql.Tx, entry models.StatusHistoryEntry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	_, err := tx.ExecContext(ctx, `
		INSERT INTO job_status_history (job_id, status, actor_id, created_at) VALUES (?, ?, ?, ?)`,
		entry.JobID, entry.Status, entry.ActorID, entry.CreatedAt)
	return err
}
