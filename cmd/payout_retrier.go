package main

import (
	"context"
	"log"
	"time"

	"qyzmetBack/internal/services"
)

const (
	payoutRetryInterval = time.Hour
	payoutRetryTimeout  = 5 * time.Minute
	payoutRetryBatch    = 100
)

func startPayoutRetrier(ctx context.Context, svc *services.PayoutService, infoLog, errorLog *log.Logger) {
	if svc == nil {
		return
	}

	go func() {
		ticker := time.NewTicker(payoutRetryInterval)
		defer ticker.Stop()

		run := func() {
			runCtx, cancel := context.WithTimeout(ctx, payoutRetryTimeout)
			defer cancel()

			released, err := svc.RetryReady(runCtx, payoutRetryBatch)
			if err != nil {
				if errorLog != nil {
					errorLog.Printf("payout retrier: failed to release parked invoices: %v", err)
				}
				return
			}
			if released > 0 && infoLog != nil {
				infoLog.Printf("payout retrier: released %d parked invoices", released)
			}
		}

		run()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				run()
			}
		}
	}()
}
