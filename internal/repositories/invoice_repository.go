package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"qyzmetBack/internal/models"
)

type InvoiceRepository struct {
	DB *sql.DB
}

const invoiceColumns = `id, job_id, provider_id, subtotal_provider, total_customer_amount, status, payment_reference, created_at, paid_at`

func scanInvoice(row interface{ Scan(...any) error }) (models.Invoice, error) {
	var inv models.Invoice
	err := row.Scan(&inv.ID, &inv.JobID, &inv.ProviderID, &inv.SubtotalProvider,
		&inv.TotalCustomerAmount, &inv.Status, &inv.PaymentRef, &inv.CreatedAt, &inv.PaidAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Invoice{}, models.ErrInvoiceNotFound
	}
	if err != nil {
		return models.Invoice{}, err
	}
	return inv, nil
}

func (r *InvoiceRepository) Create(ctx context.Context, inv models.Invoice) (models.Invoice, error) {
	res, err := r.DB.ExecContext(ctx, `
		INSERT INTO invoices (job_id, provider_id, subtotal_provider, total_customer_amount, status)
		VALUES (?, ?, ?, ?, ?)`,
		inv.JobID, inv.ProviderID, inv.SubtotalProvider, inv.TotalCustomerAmount, inv.Status)
	if err != nil {
		return models.Invoice{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return models.Invoice{}, err
	}
	return r.GetByID(ctx, int(id))
}

func (r *InvoiceRepository) GetByID(ctx context.Context, id int) (models.Invoice, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE id = ?`, id)
	return scanInvoice(row)
}

// GetByJobAndStatuses returns the newest invoice for the job in one of the
// given statuses.
func (r *InvoiceRepository) GetByJobAndStatuses(ctx context.Context, jobID int, statuses ...string) (models.Invoice, error) {
	if len(statuses) == 0 {
		return models.Invoice{}, models.ErrInvoiceNotFound
	}
	query := `SELECT ` + invoiceColumns + ` FROM invoices WHERE job_id = ? AND status IN (`
	args := []any{jobID}
	for i, s := range statuses {
		if i > 0 {
			query += ","
		}
		query += "?"
		args = append(args, s)
	}
	query += `) ORDER BY id DESC LIMIT 1`
	row := r.DB.QueryRowContext(ctx, query, args...)
	return scanInvoice(row)
}

// MarkPaid settles a pending invoice from a rail webhook. The status guard
// makes redelivered webhooks a no-op instead of a double write.
func (r *InvoiceRepository) MarkPaid(ctx context.Context, invoiceID int, paymentRef string) (bool, error) {
	res, err := r.DB.ExecContext(ctx, `
		UPDATE invoices SET status = ?, payment_reference = ?, paid_at = ?
		WHERE id = ? AND status = ?`,
		models.InvoiceStatusPaid, paymentRef, time.Now(), invoiceID, models.InvoiceStatusPendingPayment)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// TransitionStatus moves an invoice between saga states conditionally on the
// expected prior status. Released invoices never match a guard, so they stay
// immutable.
func (r *InvoiceRepository) TransitionStatus(ctx context.Context, invoiceID int, from, to string) (bool, error) {
	res, err := r.DB.ExecContext(ctx, `
		UPDATE invoices SET status = ? WHERE id = ? AND status = ?`, to, invoiceID, from)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// ListReadyToRelease feeds the payout retrier.
func (r *InvoiceRepository) ListReadyToRelease(ctx context.Context, limit int) ([]models.Invoice, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT `+invoiceColumns+` FROM invoices WHERE status = ? ORDER BY id LIMIT ?`,
		models.InvoiceStatusReadyToRelease, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var invoices []models.Invoice
	for rows.Next() {
		inv, scanErr := scanInvoice(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		invoices = append(invoices, inv)
	}
	return invoices, rows.Err()
}
