package repositories

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"

	"qyzmetBack/internal/models"
)

type PayoutRepository struct {
	DB *sql.DB
}

const payoutColumns = `id, invoice_id, provider_id, amount, status, transfer_reference, last_error, created_at, paid_at`

func scanPayout(row interface{ Scan(...any) error }) (models.Payout, error) {
	var p models.Payout
	err := row.Scan(&p.ID, &p.InvoiceID, &p.ProviderID, &p.Amount, &p.Status,
		&p.TransferRef, &p.LastError, &p.CreatedAt, &p.PaidAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Payout{}, models.ErrPayoutNotFound
	}
	if err != nil {
		return models.Payout{}, err
	}
	return p, nil
}

func (r *PayoutRepository) GetByInvoice(ctx context.Context, invoiceID int) (models.Payout, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+payoutColumns+` FROM payouts WHERE invoice_id = ?`, invoiceID)
	return scanPayout(row)
}

// FindOrCreatePending returns the single payout row for the invoice, creating
// it when absent. invoice_id carries a unique key, so a concurrent creator
// loses the insert and reads the winner's row instead of producing a second
// payout. A previously failed attempt is reset to pending for the retry.
func (r *PayoutRepository) FindOrCreatePending(ctx context.Context, invoiceID, providerID int, amount float64) (models.Payout, error) {
	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO payouts (invoice_id, provider_id, amount, status) VALUES (?, ?, ?, ?)`,
		invoiceID, providerID, amount, models.PayoutStatusPending)
	if err != nil && !isDuplicateKey(err) {
		return models.Payout{}, err
	}

	payout, err := r.GetByInvoice(ctx, invoiceID)
	if err != nil {
		return models.Payout{}, err
	}
	if payout.Status == models.PayoutStatusFailed {
		if _, err = r.DB.ExecContext(ctx, `
			UPDATE payouts SET status = ?, last_error = NULL WHERE id = ? AND status = ?`,
			models.PayoutStatusPending, payout.ID, models.PayoutStatusFailed); err != nil {
			return models.Payout{}, err
		}
		return r.GetByInvoice(ctx, invoiceID)
	}
	return payout, nil
}

// MarkPaid records the transfer exactly once: the guard on status and the
// still-null transfer reference means a second caller cannot overwrite the
// reference of a payout that already went out.
func (r *PayoutRepository) MarkPaid(ctx context.Context, payoutID int, transferRef string) (bool, error) {
	res, err := r.DB.ExecContext(ctx, `
		UPDATE payouts SET status = ?, transfer_reference = ?, paid_at = ?
		WHERE id = ? AND status = ? AND transfer_reference IS NULL`,
		models.PayoutStatusPaid, transferRef, time.Now(), payoutID, models.PayoutStatusPending)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

func (r *PayoutRepository) MarkFailed(ctx context.Context, payoutID int, cause string) error {
	_, err := r.DB.ExecContext(ctx, `
		UPDATE payouts SET status = ?, last_error = ? WHERE id = ? AND status = ?`,
		models.PayoutStatusFailed, cause, payoutID, models.PayoutStatusPending)
	return err
}

// AppendLedger writes the immutable release record.
func (r *PayoutRepository) AppendLedger(ctx context.Context, entry models.LedgerEntry) error {
	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO payout_ledger (payout_id, invoice_id, provider_id, amount, transfer_reference)
		VALUES (?, ?, ?, ?, ?)`,
		entry.PayoutID, entry.InvoiceID, entry.ProviderID, entry.Amount, entry.TransferRef)
	return err
}

func isDuplicateKey(err error) bool {
	if err == nil {
		return false
	}
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		return mysqlErr.Number == 1062
	}
	// pgx/stdlib reports unique violations with SQLSTATE 23505 in the message.
	msg := err.Error()
	return strings.Contains(msg, "23505") || strings.Contains(msg, "duplicate key")
}
