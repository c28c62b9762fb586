package deeplink

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roamsim/esim-platform/reconcile-service/internal/config"
	"github.com/roamsim/esim-platform/reconcile-service/internal/models"
	"github.com/roamsim/esim-platform/reconcile-service/internal/reconcile"
)

type scriptedFetcher struct {
	script []fetchStep
	calls  int
}

type fetchStep struct {
	order *models.Order
	err   error
}

func (f *scriptedFetcher) GetOrder(ctx context.Context, orderID string) (*models.Order, error) {
	if len(f.script) == 0 {
		f.calls++
		return nil, errors.New("no script")
	}
	step := f.script[len(f.script)-1]
	if f.calls < len(f.script) {
		step = f.script[f.calls]
	}
	f.calls++
	return step.order, step.err
}

type memPendingStore struct {
	mu      sync.Mutex
	records map[string]*models.PendingPurchase
}

func newMemPendingStore() *memPendingStore {
	return &memPendingStore{records: make(map[string]*models.PendingPurchase)}
}

func (s *memPendingStore) Store(ctx context.Context, userID string, rec *models.PendingPurchase) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec.CreatedAt = time.Now()
	s.records[userID] = rec
}

func (s *memPendingStore) Get(ctx context.Context, userID string) *models.PendingPurchase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.records[userID]
}

func (s *memPendingStore) Clear(ctx context.Context, userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, userID)
}

type memReferralStore struct {
	mu    sync.Mutex
	codes map[string]string
}

func newMemReferralStore() *memReferralStore {
	return &memReferralStore{codes: make(map[string]string)}
}

func (s *memReferralStore) SaveReferral(ctx context.Context, userID, code string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.codes[userID] = code
}

func (s *memReferralStore) Referral(ctx context.Context, userID string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.codes[userID]
}

func (s *memReferralStore) ClearReferral(ctx context.Context, userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.codes, userID)
}

type noopRecorder struct{}

func (noopRecorder) Record(ctx context.Context, userID, orderID, action, status, message string) {}

type noopNotifier struct{}

func (noopNotifier) PublishOutcome(userID, orderID, outcome, planName string) {}

// uiCapture records the router's terminal UI actions.
type uiCapture struct {
	navigation string
	alerts     []models.Alert
}

func (u *uiCapture) NavigateTo(target string) { u.navigation = target }

func (u *uiCapture) Info(title, message string) {
	u.alerts = append(u.alerts, models.Alert{Title: title, Message: message, Tone: "info"})
}

func (u *uiCapture) Error(title, message string) {
	u.alerts = append(u.alerts, models.Alert{Title: title, Message: message, Tone: "error"})
}

type routerFixture struct {
	router    *Router
	fetcher   *scriptedFetcher
	pending   *memPendingStore
	referrals *memReferralStore
	ui        *uiCapture
}

func newRouterFixture(script ...fetchStep) *routerFixture {
	fetcher := &scriptedFetcher{script: script}
	pending := newMemPendingStore()
	referrals := newMemReferralStore()

	policy := config.PollPolicy{MaxAttempts: 2, InitialDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond}

	return &routerFixture{
		router:    NewRouter(fetcher, pending, referrals, reconcile.NewPoller(fetcher), noopRecorder{}, noopNotifier{}, policy),
		fetcher:   fetcher,
		pending:   pending,
		referrals: referrals,
		ui:        &uiCapture{},
	}
}

func (fx *routerFixture) pendingPurchase(orderID string, topUp bool) {
	fx.pending.Store(context.Background(), "user-1", &models.PendingPurchase{
		OrderID:  orderID,
		PlanID:   "plan-eu-10gb",
		PlanName: "Europe 10GB",
		IsTopUp:  topUp,
	})
}

func (fx *routerFixture) handle(url string) {
	fx.router.Handle(context.Background(), "user-1", url, fx.ui, fx.ui)
}

func readyOrder(id string) *models.Order {
	return &models.Order{
		ID:             id,
		Status:         models.StatusCompleted,
		ActivationCode: "LPA:1$X",
		SMDPAddress:    "smdp.example.com",
	}
}

func TestPaymentReturnWithNoPendingPurchase(t *testing.T) {
	fx := newRouterFixture()

	fx.handle("app://payment-complete")

	assert.Equal(t, NavDashboard, fx.ui.navigation)
	assert.Empty(t, fx.ui.alerts)
	assert.Equal(t, 0, fx.fetcher.calls, "nothing to recover, no fetch performed")
}

func TestPaymentReturnOrderNotFoundIsTerminal(t *testing.T) {
	fx := newRouterFixture(fetchStep{err: errors.New("order not found: ord-1")})
	fx.pendingPurchase("ord-1", false)

	fx.handle("app://payment-complete")

	assert.Nil(t, fx.pending.Get(context.Background(), "user-1"), "marker retired, no recurring prompt")
	assert.Equal(t, NavDashboard, fx.ui.navigation)
	require.Len(t, fx.ui.alerts, 1)
	assert.Equal(t, "error", fx.ui.alerts[0].Tone)
	assert.Equal(t, "Order not found", fx.ui.alerts[0].Title)
	assert.Equal(t, 1, fx.fetcher.calls, "not-found is terminal here, no retries")
}

func TestPaymentReturnProvisionedPurchaseGoesToInstall(t *testing.T) {
	fx := newRouterFixture(fetchStep{order: readyOrder("ord-1")})
	fx.pendingPurchase("ord-1", false)

	fx.handle("app://payment-complete")

	assert.Nil(t, fx.pending.Get(context.Background(), "user-1"))
	assert.Equal(t, NavInstall, fx.ui.navigation)
	assert.Empty(t, fx.ui.alerts)
}

func TestPaymentReturnPaidButNotProvisioned(t *testing.T) {
	fx := newRouterFixture(fetchStep{order: &models.Order{ID: "ord-1", Status: models.StatusProvisioning}})
	fx.pendingPurchase("ord-1", false)

	fx.handle("app://payment-complete")

	assert.Nil(t, fx.pending.Get(context.Background(), "user-1"))
	assert.Equal(t, NavDashboard, fx.ui.navigation)
	require.Len(t, fx.ui.alerts, 1)
	assert.Equal(t, "info", fx.ui.alerts[0].Tone)
	assert.Equal(t, "Payment received", fx.ui.alerts[0].Title)
}

func TestPaymentReturnTopUpShowsSuccess(t *testing.T) {
	fx := newRouterFixture(fetchStep{order: &models.Order{ID: "ord-1", Status: models.StatusCompleted, IsTopUp: true}})
	fx.pendingPurchase("ord-1", true)

	fx.handle("app://payment-complete")

	assert.Equal(t, NavDashboard, fx.ui.navigation)
	require.Len(t, fx.ui.alerts, 1)
	assert.Equal(t, "info", fx.ui.alerts[0].Tone)
	assert.Equal(t, "Top-up complete", fx.ui.alerts[0].Title)
	assert.Contains(t, fx.ui.alerts[0].Message, "Europe 10GB")
}

func TestPaymentReturnPendingOrderAbsorbedByQuickPoll(t *testing.T) {
	// The initial fetch sees "pending"; the quick poll catches the order
	// completing a few seconds later.
	fx := newRouterFixture(
		fetchStep{order: &models.Order{ID: "ord-1", Status: models.StatusPending}},
		fetchStep{order: readyOrder("ord-1")},
	)
	fx.pendingPurchase("ord-1", false)

	fx.handle("app://payment-complete")

	assert.Nil(t, fx.pending.Get(context.Background(), "user-1"))
	assert.Equal(t, NavInstall, fx.ui.navigation)
}

func TestPaymentReturnStillPendingClearsAnyway(t *testing.T) {
	fx := newRouterFixture(fetchStep{order: &models.Order{ID: "ord-1", Status: models.StatusPending}})
	fx.pendingPurchase("ord-1", false)

	fx.handle("app://payment-complete")

	// Clearing despite inconclusiveness keeps the marker from becoming a
	// recurring prompt on every future link open.
	assert.Nil(t, fx.pending.Get(context.Background(), "user-1"))
	assert.Equal(t, NavDashboard, fx.ui.navigation)
	require.Len(t, fx.ui.alerts, 1)
	assert.Equal(t, "info", fx.ui.alerts[0].Tone)
	assert.Equal(t, "Payment processing", fx.ui.alerts[0].Title)
}

func TestPaymentReturnCancelledPollKeepsMarker(t *testing.T) {
	fx := newRouterFixture(fetchStep{order: &models.Order{ID: "ord-1", Status: models.StatusPending}})
	fx.pendingPurchase("ord-1", false)

	// The app going away mid-recovery cancels the context; the order is still
	// provisioning and may yet succeed.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	fx.router.Handle(ctx, "user-1", "app://payment-complete", fx.ui, fx.ui)

	rec := fx.pending.Get(context.Background(), "user-1")
	require.NotNil(t, rec, "cancellation learned nothing, marker survives for the next signal")
	assert.Equal(t, "ord-1", rec.OrderID)

	assert.Equal(t, NavDashboard, fx.ui.navigation)
	require.Len(t, fx.ui.alerts, 1)
	assert.Equal(t, "info", fx.ui.alerts[0].Tone, "no failure alert for an order still in flight")
}

func TestPaymentReturnTerminalFailure(t *testing.T) {
	fx := newRouterFixture(fetchStep{order: &models.Order{ID: "ord-1", Status: models.StatusCancelled}})
	fx.pendingPurchase("ord-1", false)

	fx.handle("app://payment-complete")

	assert.Nil(t, fx.pending.Get(context.Background(), "user-1"))
	assert.Equal(t, NavDashboard, fx.ui.navigation)
	require.Len(t, fx.ui.alerts, 1)
	assert.Equal(t, "error", fx.ui.alerts[0].Tone)
	assert.Equal(t, "Order was cancelled", fx.ui.alerts[0].Message)
}

func TestPaymentReturnDepletedPlanUsesInfoTone(t *testing.T) {
	fx := newRouterFixture(fetchStep{order: &models.Order{ID: "ord-1", Status: models.StatusDepleted}})
	fx.pendingPurchase("ord-1", false)

	fx.handle("app://payment-complete")

	require.Len(t, fx.ui.alerts, 1)
	assert.Equal(t, "info", fx.ui.alerts[0].Tone, "lifecycle end is informational, not an error")
}

func TestReferralLinkStoresNormalizedCode(t *testing.T) {
	fx := newRouterFixture()
	fx.pendingPurchase("ord-1", false)

	fx.handle("app://ref/ab12cd34")

	assert.Equal(t, "AB12CD34", fx.referrals.Referral(context.Background(), "user-1"))
	assert.Equal(t, 0, fx.fetcher.calls, "referral branch never fetches orders")
	assert.NotNil(t, fx.pending.Get(context.Background(), "user-1"), "referral branch never touches the pending slot")
	assert.Equal(t, NavDashboard, fx.ui.navigation)
}

func TestTopUpSuccessLinkIsIndependent(t *testing.T) {
	fx := newRouterFixture()
	fx.pendingPurchase("ord-1", false)

	fx.handle("app://dashboard?topup=success&order_id=6b4b1c6e-6a52-4bd3-9f68-1f3f0a1f8b7e")

	assert.Equal(t, 0, fx.fetcher.calls)
	assert.NotNil(t, fx.pending.Get(context.Background(), "user-1"))
	assert.Equal(t, NavDashboard, fx.ui.navigation)
	require.Len(t, fx.ui.alerts, 1)
	assert.Equal(t, "Top-up complete", fx.ui.alerts[0].Title)
}

func TestUnrecognizedLinkHasNoSideEffects(t *testing.T) {
	fx := newRouterFixture()
	fx.pendingPurchase("ord-1", false)

	fx.handle("app://mystery/path")

	assert.Empty(t, fx.ui.navigation)
	assert.Empty(t, fx.ui.alerts)
	assert.Equal(t, 0, fx.fetcher.calls)
	assert.NotNil(t, fx.pending.Get(context.Background(), "user-1"))
}

func TestRecoverUsesProvidedBudget(t *testing.T) {
	// Background sweep: the order stays pending through the whole budget.
	fx := newRouterFixture(fetchStep{order: &models.Order{ID: "ord-1", Status: models.StatusPending}})
	fx.pendingPurchase("ord-1", false)

	policy := config.PollPolicy{MaxAttempts: 4, InitialDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond}
	fx.router.Recover(context.Background(), "user-1", policy, fx.ui, fx.ui)

	// One initial fetch plus four poll attempts.
	assert.Equal(t, 5, fx.fetcher.calls)
	assert.Nil(t, fx.pending.Get(context.Background(), "user-1"))
	assert.Equal(t, NavDashboard, fx.ui.navigation)
}
