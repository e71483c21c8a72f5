package main

import (
	"context"
	"log"
	"time"

	"qyzmetBack/internal/services"
)

const (
	outboxDispatchInterval = 5 * time.Second
	outboxDispatchTimeout  = 30 * time.Second
	outboxDispatchBatch    = 50
)

func startOutboxDispatcher(ctx context.Context, svc *services.OutboxDispatcher, infoLog, errorLog *log.Logger) {
	if svc == nil {
		return
	}

	go func() {
		ticker := time.NewTicker(outboxDispatchInterval)
		defer ticker.Stop()

		run := func() {
			runCtx, cancel := context.WithTimeout(ctx, outboxDispatchTimeout)
			defer cancel()

			delivered, err := svc.DispatchPending(runCtx, outboxDispatchBatch)
			if err != nil {
				if errorLog != nil {
					errorLog.Printf("outbox dispatcher: failed to dispatch events: %v", err)
				}
				return
			}
			if delivered > 0 && infoLog != nil {
				infoLog.Printf("outbox dispatcher: delivered %d events", delivered)
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
