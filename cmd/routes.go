package main

import (
	"net/http"

	"github.com/bmizerany/pat"
	"github.com/justinas/alice"
)

func (app *application) JWTMiddlewareWithRole(requiredRole string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return app.JWTMiddleware(next, requiredRole)
	}
}

func (app *application) routes() http.Handler {
	standardMiddleware := alice.New(app.recoverPanic, app.logRequest, secureHeaders, makeResponseJSON)
	authMiddleware := standardMiddleware.Append(app.JWTMiddlewareWithRole("user"))
	adminAuthMiddleware := standardMiddleware.Append(app.JWTMiddlewareWithRole("admin"))

	mux := pat.New()

	// Users
	mux.Post("/user/sign_in", standardMiddleware.ThenFunc(app.userHandler.SignIn))
	mux.Post("/user/refresh", standardMiddleware.ThenFunc(app.userHandler.Refresh))

	// Jobs
	mux.Post("/job", authMiddleware.ThenFunc(app.jobHandler.CreateJob))
	mux.Get("/job/:id", authMiddleware.ThenFunc(app.jobHandler.GetJob))
	mux.Post("/job/:id/transition", authMiddleware.ThenFunc(app.jobHandler.Transition))
	mux.Post("/job/:id/done", authMiddleware.ThenFunc(app.jobHandler.MarkDone))
	mux.Post("/job/:id/confirm", authMiddleware.ThenFunc(app.jobHandler.ConfirmDone))

	// First visit fee
	mux.Post("/job/:id/visit/authorize", authMiddleware.ThenFunc(app.visitHandler.Authorize))
	mux.Post("/job/:id/visit/settle", authMiddleware.ThenFunc(app.visitHandler.Settle))

	// Invoices
	mux.Post("/invoice", authMiddleware.ThenFunc(app.invoiceHandler.CreateInvoice))
	mux.Get("/invoice/:id", authMiddleware.ThenFunc(app.invoiceHandler.GetInvoice))
	mux.Post("/invoice/:id/pay", authMiddleware.ThenFunc(app.invoiceHandler.PayInvoice))

	// Payment provider callbacks, authenticated by signature instead of JWT
	mux.Post("/payments/webhook", standardMiddleware.ThenFunc(app.webhookHandler.Handle))

	// Reschedule negotiation
	mux.Post("/reschedule", authMiddleware.ThenFunc(app.rescheduleHandler.Create))
	mux.Post("/reschedule/:id/accept", authMiddleware.ThenFunc(app.rescheduleHandler.Accept))
	mux.Post("/reschedule/:id/suggest", authMiddleware.ThenFunc(app.rescheduleHandler.SuggestAlternative))
	mux.Post("/reschedule/:id/cancel", authMiddleware.ThenFunc(app.rescheduleHandler.CancelJob))

	// Payouts
	mux.Post("/payout/release/:job_id", adminAuthMiddleware.ThenFunc(app.payoutHandler.Release))
	mux.Get("/payout_account/:provider_id", authMiddleware.ThenFunc(app.payoutHandler.GetAccount))
	mux.Put("/payout_account/:provider_id", authMiddleware.ThenFunc(app.payoutHandler.UpsertAccount))

	// Notifications
	mux.Get("/notifications", authMiddleware.ThenFunc(app.notificationHandler.List))
	mux.Get("/job/:id/messages", authMiddleware.ThenFunc(app.notificationHandler.ListJobMessages))

	mux.Get("/ws", authMiddleware.ThenFunc(app.WebSocketHandler))

	return mux
}
