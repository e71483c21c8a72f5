package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"qyzmetBack/internal/models"
)

// BillingRepository stores the mapping between local users and the rail's
// customer objects, and the provider payout-account readiness rows. Customer
// lookups go through Redis first; the DB row stays the source of truth and
// cache failures are only logged.
type BillingRepository struct {
	DB    *sql.DB
	Redis *redis.Client
}

const billingCacheTTL = 12 * time.Hour

func billingCacheKey(userID int) string {
	return fmt.Sprintf("billing:customer:%d", userID)
}

func (r *BillingRepository) GetCustomerRef(ctx context.Context, userID int) (string, error) {
	if r.Redis != nil {
		if ref, err := r.Redis.Get(ctx, billingCacheKey(userID)).Result(); err == nil && ref != "" {
			return ref, nil
		}
	}

	var ref string
	err := r.DB.QueryRowContext(ctx,
		`SELECT customer_reference FROM billing_identities WHERE user_id = ?`, userID).Scan(&ref)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	r.cacheCustomerRef(ctx, userID, ref)
	return ref, nil
}

func (r *BillingRepository) SaveCustomerRef(ctx context.Context, userID int, ref string) error {
	res, err := r.DB.ExecContext(ctx, `
		INSERT INTO billing_identities (user_id, customer_reference) VALUES (?, ?)
		ON DUPLICATE KEY UPDATE customer_reference = customer_reference`, userID, ref)
	if err != nil {
		return err
	}
	// Zero affected rows means a concurrent create won and the existing row
	// was kept. Cache the winner, not the ref we lost with.
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		if err := r.DB.QueryRowContext(ctx,
			`SELECT customer_reference FROM billing_identities WHERE user_id = ?`,
			userID).Scan(&ref); err != nil {
			return err
		}
	}
	r.cacheCustomerRef(ctx, userID, ref)
	return nil
}

func (r *BillingRepository) cacheCustomerRef(ctx context.Context, userID int, ref string) {
	if r.Redis == nil {
		return
	}
	if err := r.Redis.Set(ctx, billingCacheKey(userID), ref, billingCacheTTL).Err(); err != nil {
		log.Printf("billing cache set failed for user %d: %v", userID, err)
	}
}

func (r *BillingRepository) GetPayoutAccount(ctx context.Context, providerID int) (models.PayoutAccount, error) {
	var acc models.PayoutAccount
	err := r.DB.QueryRowContext(ctx, `
		SELECT provider_id, account_reference, payouts_enabled, updated_at
		FROM payout_accounts WHERE provider_id = ?`, providerID).
		Scan(&acc.ProviderID, &acc.AccountRef, &acc.PayoutsEnabled, &acc.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.PayoutAccount{ProviderID: providerID}, nil
	}
	if err != nil {
		return models.PayoutAccount{}, err
	}
	return acc, nil
}

// UpsertPayoutAccount is written by the onboarding flow (admin endpoint here).
func (r *BillingRepository) UpsertPayoutAccount(ctx context.Context, acc models.PayoutAccount) error {
	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO payout_accounts (provider_id, account_reference, payouts_enabled, updated_at)
		VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		ON DUPLICATE KEY UPDATE account_reference = VALUES(account_reference),
			payouts_enabled = VALUES(payouts_enabled), updated_at = CURRENT_TIMESTAMP`,
		acc.ProviderID, acc.AccountRef, acc.PayoutsEnabled)
	return err
}
