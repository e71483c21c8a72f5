package main

import (
	"context"
	"log"
	"time"

	"qyzmetBack/internal/services"
)

const (
	rescheduleExpireInterval = 5 * time.Minute
	rescheduleExpireTimeout  = 30 * time.Second
)

func startRescheduleExpirer(ctx context.Context, svc *services.RescheduleService, infoLog, errorLog *log.Logger) {
	if svc == nil {
		return
	}

	go func() {
		ticker := time.NewTicker(rescheduleExpireInterval)
		defer ticker.Stop()

		run := func() {
			runCtx, cancel := context.WithTimeout(ctx, rescheduleExpireTimeout)
			defer cancel()

			expired, err := svc.ExpireOverdue(runCtx)
			if err != nil {
				if errorLog != nil {
					errorLog.Printf("reschedule expirer: failed to expire requests: %v", err)
				}
				return
			}
			if expired > 0 && infoLog != nil {
				infoLog.Printf("reschedule expirer: expired %d stale requests", expired)
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
