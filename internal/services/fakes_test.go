package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"qyzmetBack/internal/lifecycle"
	"qyzmetBack/internal/models"
	"qyzmetBack/internal/payments"
	"qyzmetBack/internal/repositories"
)

// fakeStore is an in-memory stand-in for the repository layer. Its methods
// reproduce the conditional-update semantics of the SQL implementations so the
// race-sensitive service logic is exercised for real.
type fakeStore struct {
	mu sync.Mutex

	jobs    map[int]models.Job
	nextJob int
	history []models.StatusHistoryEntry

	invoices    map[int]models.Invoice
	nextInvoice int

	payouts            map[int]models.Payout
	nextPayout         int
	ledger             []models.LedgerEntry
	failMarkPayoutPaid bool

	customers map[int]string
	accounts  map[int]models.PayoutAccount

	reschedules    map[int]models.RescheduleRequest
	nextReschedule int

	outbox     []models.OutboxEvent
	nextOutbox int

	users    map[int]models.User
	sessions map[string]models.Session
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		jobs:        make(map[int]models.Job),
		invoices:    make(map[int]models.Invoice),
		payouts:     make(map[int]models.Payout),
		customers:   make(map[int]string),
		accounts:    make(map[int]models.PayoutAccount),
		reschedules: make(map[int]models.RescheduleRequest),
		users:       make(map[int]models.User),
		sessions:    make(map[string]models.Session),
	}
}

// --- JobStore ---

func (f *fakeStore) Create(ctx context.Context, clientID int, req models.CreateJobRequest) (models.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextJob++
	job := models.Job{
		ID:               f.nextJob,
		ClientID:         clientID,
		Status:           lifecycle.StatusActive,
		CompletionStatus: lifecycle.CompletionInProgress,
		Description:      req.Description,
		Address:          req.Address,
		VisitFeeAmount:   req.VisitFeeAmount,
		ScheduledAt:      req.ScheduledAt,
		CreatedAt:        time.Now(),
	}
	f.jobs[job.ID] = job
	return job, nil
}

func (f *fakeStore) GetByID(ctx context.Context, id int) (models.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	job, ok := f.jobs[id]
	if !ok {
		return models.Job{}, models.ErrJobNotFound
	}
	return job, nil
}

func (f *fakeStore) ApplyTransition(ctx context.Context, u repositories.StatusUpdate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	job, ok := f.jobs[u.JobID]
	if !ok {
		return models.ErrJobNotFound
	}
	if job.Status != u.From {
		return models.ErrJobConflict
	}
	job.Status = u.To
	if u.BindProvider != nil {
		job.ProviderID = u.BindProvider
	}
	if u.ClearProvider {
		job.ProviderID = nil
	}
	f.jobs[u.JobID] = job
	f.history = append(f.history, models.StatusHistoryEntry{JobID: u.JobID, Status: u.To, ActorID: u.ActorID})
	if u.Event != nil {
		f.insertOutboxLocked(*u.Event)
	}
	return nil
}

func (f *fakeStore) Accept(ctx context.Context, jobID, providerID int, event *models.OutboxEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	job, ok := f.jobs[jobID]
	if !ok {
		return models.ErrJobNotFound
	}
	if job.Status != lifecycle.StatusActive {
		return models.ErrJobConflict
	}
	for _, other := range f.jobs {
		if other.ProviderID == nil || *other.ProviderID != providerID {
			continue
		}
		for _, s := range lifecycle.ProviderActiveStatuses() {
			if other.Status == s {
				return models.ErrProviderBusy
			}
		}
	}
	job.Status = lifecycle.StatusAccepted
	job.ProviderID = &providerID
	f.jobs[jobID] = job
	f.history = append(f.history, models.StatusHistoryEntry{JobID: jobID, Status: lifecycle.StatusAccepted, ActorID: providerID})
	if event != nil {
		f.insertOutboxLocked(*event)
	}
	return nil
}

func (f *fakeStore) ClaimHoldReference(ctx context.Context, jobID int, ref string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	job, ok := f.jobs[jobID]
	if !ok {
		return false, models.ErrJobNotFound
	}
	if job.PaymentHoldRef != nil {
		return false, nil
	}
	job.PaymentHoldRef = &ref
	f.jobs[jobID] = job
	return true, nil
}

func (f *fakeStore) ClaimVisited(ctx context.Context, jobID int) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	job, ok := f.jobs[jobID]
	if !ok {
		return false, models.ErrJobNotFound
	}
	if job.ProviderVisited {
		return false, nil
	}
	job.ProviderVisited = true
	f.jobs[jobID] = job
	return true, nil
}

func (f *fakeStore) RevertVisited(ctx context.Context, jobID int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	job, ok := f.jobs[jobID]
	if !ok {
		return models.ErrJobNotFound
	}
	if job.ProviderVisited && !job.VisitFeePaid {
		job.ProviderVisited = false
		f.jobs[jobID] = job
	}
	return nil
}

func (f *fakeStore) SetVisitFeePaid(ctx context.Context, jobID int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	job, ok := f.jobs[jobID]
	if !ok {
		return models.ErrJobNotFound
	}
	job.VisitFeePaid = true
	f.jobs[jobID] = job
	return nil
}

func (f *fakeStore) MarkDone(ctx context.Context, jobID, actorID int, event *models.OutboxEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	job, ok := f.jobs[jobID]
	if !ok {
		return models.ErrJobNotFound
	}
	if job.CompletionStatus != lifecycle.CompletionInProgress || job.Status != lifecycle.StatusInProgress {
		return models.ErrCompletionState
	}
	now := time.Now()
	job.CompletionStatus = lifecycle.CompletionMarkedDone
	job.MarkedDoneAt = &now
	f.jobs[jobID] = job
	if event != nil {
		f.insertOutboxLocked(*event)
	}
	return nil
}

func (f *fakeStore) ConfirmDone(ctx context.Context, jobID, actorID int, event *models.OutboxEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	job, ok := f.jobs[jobID]
	if !ok {
		return models.ErrJobNotFound
	}
	if job.CompletionStatus != lifecycle.CompletionMarkedDone || job.Status != lifecycle.StatusInProgress {
		return models.ErrCompletionState
	}
	job.CompletionStatus = lifecycle.CompletionCompleted
	job.Status = lifecycle.StatusCompleted
	f.jobs[jobID] = job
	f.history = append(f.history, models.StatusHistoryEntry{JobID: jobID, Status: lifecycle.StatusCompleted, ActorID: actorID})
	if event != nil {
		f.insertOutboxLocked(*event)
	}
	return nil
}

func (f *fakeStore) ClaimPendingReschedule(ctx context.Context, jobID int, date time.Time, requestedBy int) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	job, ok := f.jobs[jobID]
	if !ok {
		return false, models.ErrJobNotFound
	}
	if job.RescheduleDate != nil {
		return false, nil
	}
	job.RescheduleDate = &date
	job.RescheduleBy = &requestedBy
	f.jobs[jobID] = job
	return true, nil
}

func (f *fakeStore) ApplySchedule(ctx context.Context, jobID int, date time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	job, ok := f.jobs[jobID]
	if !ok {
		return models.ErrJobNotFound
	}
	job.ScheduledAt = &date
	job.RescheduleDate = nil
	job.RescheduleBy = nil
	f.jobs[jobID] = job
	return nil
}

func (f *fakeStore) ClearPendingReschedule(ctx context.Context, jobID int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	job, ok := f.jobs[jobID]
	if !ok {
		return models.ErrJobNotFound
	}
	job.RescheduleDate = nil
	job.RescheduleBy = nil
	f.jobs[jobID] = job
	return nil
}

// --- InvoiceStore ---

func (f *fakeStore) CreateInvoice(ctx context.Context, inv models.Invoice) (models.Invoice, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextInvoice++
	inv.ID = f.nextInvoice
	inv.CreatedAt = time.Now()
	f.invoices[inv.ID] = inv
	return inv, nil
}

func (f *fakeStore) GetInvoiceByID(ctx context.Context, id int) (models.Invoice, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	inv, ok := f.invoices[id]
	if !ok {
		return models.Invoice{}, models.ErrInvoiceNotFound
	}
	return inv, nil
}

func (f *fakeStore) GetByJobAndStatuses(ctx context.Context, jobID int, statuses ...string) (models.Invoice, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var found models.Invoice
	ok := false
	for _, inv := range f.invoices {
		if inv.JobID != jobID {
			continue
		}
		for _, s := range statuses {
			if inv.Status == s && (!ok || inv.ID > found.ID) {
				found = inv
				ok = true
			}
		}
	}
	if !ok {
		return models.Invoice{}, models.ErrInvoiceNotFound
	}
	return found, nil
}

func (f *fakeStore) MarkPaid(ctx context.Context, invoiceID int, paymentRef string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	inv, ok := f.invoices[invoiceID]
	if !ok {
		return false, models.ErrInvoiceNotFound
	}
	if inv.Status != models.InvoiceStatusPendingPayment {
		return false, nil
	}
	now := time.Now()
	inv.Status = models.InvoiceStatusPaid
	inv.PaymentRef = &paymentRef
	inv.PaidAt = &now
	f.invoices[invoiceID] = inv
	return true, nil
}

func (f *fakeStore) TransitionStatus(ctx context.Context, invoiceID int, from, to string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	inv, ok := f.invoices[invoiceID]
	if !ok {
		return false, models.ErrInvoiceNotFound
	}
	if inv.Status != from {
		return false, nil
	}
	inv.Status = to
	f.invoices[invoiceID] = inv
	return true, nil
}

func (f *fakeStore) ListReadyToRelease(ctx context.Context, limit int) ([]models.Invoice, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Invoice
	for _, inv := range f.invoices {
		if inv.Status == models.InvoiceStatusReadyToRelease {
			out = append(out, inv)
		}
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

// --- PayoutStore ---

func (f *fakeStore) GetByInvoice(ctx context.Context, invoiceID int) (models.Payout, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.payouts {
		if p.InvoiceID == invoiceID {
			return p, nil
		}
	}
	return models.Payout{}, models.ErrPayoutNotFound
}

func (f *fakeStore) FindOrCreatePending(ctx context.Context, invoiceID, providerID int, amount float64) (models.Payout, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, p := range f.payouts {
		if p.InvoiceID != invoiceID {
			continue
		}
		if p.Status == models.PayoutStatusFailed {
			p.Status = models.PayoutStatusPending
			f.payouts[id] = p
		}
		return f.payouts[id], nil
	}
	f.nextPayout++
	p := models.Payout{
		ID:         f.nextPayout,
		InvoiceID:  invoiceID,
		ProviderID: providerID,
		Amount:     amount,
		Status:     models.PayoutStatusPending,
		CreatedAt:  time.Now(),
	}
	f.payouts[p.ID] = p
	return p, nil
}

func (f *fakeStore) MarkPayoutPaid(ctx context.Context, payoutID int, transferRef string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failMarkPayoutPaid {
		return false, errors.New("payouts table unavailable")
	}
	p, ok := f.payouts[payoutID]
	if !ok {
		return false, models.ErrPayoutNotFound
	}
	if p.Status != models.PayoutStatusPending || p.TransferRef != nil {
		return false, nil
	}
	now := time.Now()
	p.Status = models.PayoutStatusPaid
	p.TransferRef = &transferRef
	p.PaidAt = &now
	f.payouts[payoutID] = p
	return true, nil
}

func (f *fakeStore) MarkFailed(ctx context.Context, payoutID int, cause string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.payouts[payoutID]
	if !ok {
		return models.ErrPayoutNotFound
	}
	p.Status = models.PayoutStatusFailed
	p.LastError = &cause
	f.payouts[payoutID] = p
	return nil
}

func (f *fakeStore) AppendLedger(ctx context.Context, entry models.LedgerEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	entry.ID = len(f.ledger) + 1
	entry.CreatedAt = time.Now()
	f.ledger = append(f.ledger, entry)
	return nil
}

// --- BillingStore ---

func (f *fakeStore) GetCustomerRef(ctx context.Context, userID int) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.customers[userID], nil
}

func (f *fakeStore) SaveCustomerRef(ctx context.Context, userID int, ref string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.customers[userID]; !ok {
		f.customers[userID] = ref
	}
	return nil
}

func (f *fakeStore) GetPayoutAccount(ctx context.Context, providerID int) (models.PayoutAccount, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	acc, ok := f.accounts[providerID]
	if !ok {
		return models.PayoutAccount{ProviderID: providerID}, nil
	}
	return acc, nil
}

func (f *fakeStore) UpsertPayoutAccount(ctx context.Context, acc models.PayoutAccount) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.accounts[acc.ProviderID] = acc
	return nil
}

// --- RescheduleStore ---

func (f *fakeStore) CreateReschedule(ctx context.Context, req models.RescheduleRequest) (models.RescheduleRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextReschedule++
	req.ID = f.nextReschedule
	req.CreatedAt = time.Now()
	f.reschedules[req.ID] = req
	return req, nil
}

func (f *fakeStore) GetRescheduleByID(ctx context.Context, id int) (models.RescheduleRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	req, ok := f.reschedules[id]
	if !ok {
		return models.RescheduleRequest{}, models.ErrRescheduleNotFound
	}
	return req, nil
}

func (f *fakeStore) Resolve(ctx context.Context, id int, status string, providerResponse *string, suggestedDate *time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	req, ok := f.reschedules[id]
	if !ok {
		return false, models.ErrRescheduleNotFound
	}
	if req.Status != lifecycle.RescheduleStatusPending {
		return false, nil
	}
	now := time.Now()
	req.Status = status
	req.ProviderResponse = providerResponse
	req.SuggestedDate = suggestedDate
	req.ResolvedAt = &now
	f.reschedules[id] = req
	return true, nil
}

func (f *fakeStore) ExpireOverdue(ctx context.Context, now time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for id, req := range f.reschedules {
		if req.Status == lifecycle.RescheduleStatusPending && req.RespondBy.Before(now) {
			req.Status = lifecycle.RescheduleStatusExpired
			f.reschedules[id] = req
			n++
		}
	}
	return n, nil
}

// --- OutboxStore ---

func (f *fakeStore) Insert(ctx context.Context, ev models.OutboxEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.insertOutboxLocked(ev)
	return nil
}

func (f *fakeStore) insertOutboxLocked(ev models.OutboxEvent) {
	f.nextOutbox++
	ev.ID = f.nextOutbox
	ev.CreatedAt = time.Now()
	f.outbox = append(f.outbox, ev)
}

func (f *fakeStore) ListPending(ctx context.Context, limit int) ([]models.OutboxEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.OutboxEvent
	for _, ev := range f.outbox {
		if ev.ProcessedAt == nil && ev.Attempts < 10 {
			out = append(out, ev)
		}
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (f *fakeStore) MarkProcessed(ctx context.Context, id int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.outbox {
		if f.outbox[i].ID == id {
			now := time.Now()
			f.outbox[i].ProcessedAt = &now
		}
	}
	return nil
}

func (f *fakeStore) BumpAttempts(ctx context.Context, id int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.outbox {
		if f.outbox[i].ID == id {
			f.outbox[i].Attempts++
		}
	}
	return nil
}

func (f *fakeStore) eventsOfKind(kind string) []models.OutboxEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.OutboxEvent
	for _, ev := range f.outbox {
		if ev.Kind == kind {
			out = append(out, ev)
		}
	}
	return out
}

// --- UserStore ---

func (f *fakeStore) GetByPhone(ctx context.Context, phone string) (models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Phone == phone {
			return u, nil
		}
	}
	return models.User{}, models.ErrUserNotFound
}

func (f *fakeStore) GetUserByID(ctx context.Context, id int) (models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return models.User{}, models.ErrUserNotFound
	}
	return u, nil
}

func (f *fakeStore) SaveSession(ctx context.Context, s models.Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sessions[s.RefreshToken] = s
	return nil
}

func (f *fakeStore) GetSessionByToken(ctx context.Context, refreshToken string) (models.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sessions[refreshToken], nil
}

// fakeRail keeps holds, payments and transfers in memory. Transfers honour
// the idempotency key the same way the real rail does.
type fakeRail struct {
	mu            sync.Mutex
	holds         map[string]payments.Hold
	nextRef       int
	nextCustomer  int
	transfers     []payments.CreateTransferParams
	transferByKey map[string]string

	failCapture  bool
	failCancel   bool
	failTransfer bool
}

func newFakeRail() *fakeRail {
	return &fakeRail{
		holds:         make(map[string]payments.Hold),
		transferByKey: make(map[string]string),
	}
}

func railFailure(op string) *payments.RailError {
	return &payments.RailError{Op: op, Code: "card_declined", HTTPStatus: 402, Message: "test failure"}
}

func (r *fakeRail) CreateCustomer(ctx context.Context, email, name string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextCustomer++
	return fmt.Sprintf("cus_%d", r.nextCustomer), nil
}

func (r *fakeRail) CreateHold(ctx context.Context, p payments.CreateHoldParams) (payments.Hold, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextRef++
	hold := payments.Hold{
		Ref:          fmt.Sprintf("hold_%d", r.nextRef),
		State:        payments.HoldRequiresCapture,
		ClientSecret: fmt.Sprintf("secret_%d", r.nextRef),
		Amount:       p.Amount,
	}
	r.holds[hold.Ref] = hold
	return hold, nil
}

func (r *fakeRail) RetrieveHold(ctx context.Context, ref string) (payments.Hold, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	hold, ok := r.holds[ref]
	if !ok {
		return payments.Hold{}, railFailure("retrieve_hold")
	}
	return hold, nil
}

func (r *fakeRail) CaptureHold(ctx context.Context, ref string, idempotencyKey string) (payments.Hold, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failCapture {
		return payments.Hold{}, railFailure("capture_hold")
	}
	hold, ok := r.holds[ref]
	if !ok {
		return payments.Hold{}, railFailure("capture_hold")
	}
	hold.State = payments.HoldSucceeded
	r.holds[ref] = hold
	return hold, nil
}

func (r *fakeRail) CancelHold(ctx context.Context, ref string, idempotencyKey string) (payments.Hold, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failCancel {
		return payments.Hold{}, railFailure("cancel_hold")
	}
	hold, ok := r.holds[ref]
	if !ok {
		return payments.Hold{}, railFailure("cancel_hold")
	}
	hold.State = payments.HoldCanceled
	r.holds[ref] = hold
	return hold, nil
}

func (r *fakeRail) CreatePayment(ctx context.Context, p payments.CreatePaymentParams) (payments.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextRef++
	return payments.Payment{
		Ref:          fmt.Sprintf("pay_%d", r.nextRef),
		State:        payments.HoldProcessing,
		ClientSecret: fmt.Sprintf("secret_%d", r.nextRef),
	}, nil
}

func (r *fakeRail) CreateTransfer(ctx context.Context, p payments.CreateTransferParams) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failTransfer {
		return "", railFailure("create_transfer")
	}
	if p.IdempotencyKey != "" {
		if ref, ok := r.transferByKey[p.IdempotencyKey]; ok {
			return ref, nil
		}
	}
	r.nextRef++
	ref := fmt.Sprintf("tr_%d", r.nextRef)
	r.transfers = append(r.transfers, p)
	if p.IdempotencyKey != "" {
		r.transferByKey[p.IdempotencyKey] = ref
	}
	return ref, nil
}

func (r *fakeRail) transferCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.transfers)
}

func (r *fakeRail) holdState(ref string) payments.HoldState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.holds[ref].State
}

// invoiceStoreAdapter maps the fakeStore's disambiguated method names onto the
// InvoiceStore interface.
type invoiceStoreAdapter struct{ *fakeStore }

func (a invoiceStoreAdapter) Create(ctx context.Context, inv models.Invoice) (models.Invoice, error) {
	return a.CreateInvoice(ctx, inv)
}

func (a invoiceStoreAdapter) GetByID(ctx context.Context, id int) (models.Invoice, error) {
	return a.GetInvoiceByID(ctx, id)
}

type payoutStoreAdapter struct{ *fakeStore }

func (a payoutStoreAdapter) MarkPaid(ctx context.Context, payoutID int, transferRef string) (bool, error) {
	return a.MarkPayoutPaid(ctx, payoutID, transferRef)
}

type rescheduleStoreAdapter struct{ *fakeStore }

func (a rescheduleStoreAdapter) Create(ctx context.Context, req models.RescheduleRequest) (models.RescheduleRequest, error) {
	return a.CreateReschedule(ctx, req)
}

func (a rescheduleStoreAdapter) GetByID(ctx context.Context, id int) (models.RescheduleRequest, error) {
	return a.GetRescheduleByID(ctx, id)
}

type userStoreAdapter struct{ *fakeStore }

func (a userStoreAdapter) GetByID(ctx context.Context, id int) (models.User, error) {
	return a.GetUserByID(ctx, id)
}

// fixture wires every service onto one shared fake store and rail, the way
// the initializer wires the real ones.
type fixture struct {
	store *fakeStore
	rail  *fakeRail

	jobState   *JobStateService
	visitAuth  *VisitAuthorizationService
	settlement *VisitSettlementService
	completion *CompletionService
	payout     *PayoutService
	invoice    *InvoiceService
	reschedule *RescheduleService
}

func newFixture() *fixture {
	store := newFakeStore()
	rail := newFakeRail()

	invoices := invoiceStoreAdapter{store}
	payouts := payoutStoreAdapter{store}
	reschedules := rescheduleStoreAdapter{store}
	users := userStoreAdapter{store}

	jobState := &JobStateService{Jobs: store}
	payout := &PayoutService{
		Jobs:     store,
		Invoices: invoices,
		Payouts:  payouts,
		Billing:  store,
		Outbox:   store,
		Rail:     rail,
	}
	return &fixture{
		store: store,
		rail:  rail,

		jobState: jobState,
		visitAuth: &VisitAuthorizationService{
			Jobs:    store,
			Billing: store,
			Users:   users,
			Rail:    rail,
		},
		settlement: &VisitSettlementService{Jobs: store, Rail: rail, Outbox: store},
		completion: &CompletionService{Jobs: store, Invoices: invoices, Payouts: payout},
		payout:     payout,
		invoice: &InvoiceService{
			Jobs:           store,
			Invoices:       invoices,
			Billing:        store,
			Users:          users,
			Outbox:         store,
			Rail:           rail,
			CommissionRate: 0.10,
		},
		reschedule: &RescheduleService{
			Jobs:        store,
			Reschedules: reschedules,
			JobState:    jobState,
			Outbox:      store,
		},
	}
}

func (fx *fixture) seedUser(id int, role string) models.User {
	u := models.User{
		ID:    id,
		Name:  fmt.Sprintf("user %d", id),
		Phone: fmt.Sprintf("+7700%07d", id),
		Email: fmt.Sprintf("user%d@example.com", id),
		Role:  role,
	}
	fx.store.mu.Lock()
	fx.store.users[id] = u
	fx.store.mu.Unlock()
	return u
}

// seedJob places a job directly into the store at the given status.
func (fx *fixture) seedJob(clientID int, providerID *int, status string, visitFee float64) models.Job {
	fx.store.mu.Lock()
	defer fx.store.mu.Unlock()
	fx.store.nextJob++
	job := models.Job{
		ID:               fx.store.nextJob,
		ClientID:         clientID,
		ProviderID:       providerID,
		Status:           status,
		CompletionStatus: lifecycle.CompletionInProgress,
		VisitFeeAmount:   visitFee,
		CreatedAt:        time.Now(),
	}
	fx.store.jobs[job.ID] = job
	return job
}

func (fx *fixture) seedInvoice(jobID, providerID int, status string, subtotal, total float64) models.Invoice {
	fx.store.mu.Lock()
	defer fx.store.mu.Unlock()
	fx.store.nextInvoice++
	inv := models.Invoice{
		ID:                  fx.store.nextInvoice,
		JobID:               jobID,
		ProviderID:          providerID,
		SubtotalProvider:    subtotal,
		TotalCustomerAmount: total,
		Status:              status,
		CreatedAt:           time.Now(),
	}
	fx.store.invoices[inv.ID] = inv
	return inv
}

func (fx *fixture) enablePayouts(providerID int) {
	fx.store.mu.Lock()
	defer fx.store.mu.Unlock()
	fx.store.accounts[providerID] = models.PayoutAccount{
		ProviderID:     providerID,
		AccountRef:     fmt.Sprintf("acct_%d", providerID),
		PayoutsEnabled: true,
	}
}

func (fx *fixture) job(id int) models.Job {
	fx.store.mu.Lock()
	defer fx.store.mu.Unlock()
	return fx.store.jobs[id]
}

func (fx *fixture) invoiceByID(id int) models.Invoice {
	fx.store.mu.Lock()
	defer fx.store.mu.Unlock()
	return fx.store.invoices[id]
}

func intPtr(v int) *int { return &v }
