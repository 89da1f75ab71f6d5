package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/shyndaliu/saga/internal/domain"
	"github.com/shyndaliu/saga/internal/ledger"
	"github.com/shyndaliu/saga/internal/saga"
	apperrors "github.com/shyndaliu/saga/pkg/errors"
)

// --- Mocks ---

type mockDispatcher struct {
	mock.Mock
}

func (m *mockDispatcher) Dispatch(ctx context.Context, order *domain.Order) error {
	args := m.Called(ctx, order)
	return args.Error(0)
}

func (m *mockDispatcher) CancelDispatch(ctx context.Context, orderID string) error {
	args := m.Called(ctx, orderID)
	return args.Error(0)
}

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) PublishCheckoutCompleted(ctx context.Context, run domain.SagaRun, order *domain.Order, cost int64) error {
	args := m.Called(ctx, run, order, cost)
	return args.Error(0)
}

func (m *mockPublisher) PublishCheckoutFailed(ctx context.Context, run domain.SagaRun, order *domain.Order) error {
	args := m.Called(ctx, run, order)
	return args.Error(0)
}

func (m *mockPublisher) PublishCheckoutCompensated(ctx context.Context, run domain.SagaRun, order *domain.Order) error {
	args := m.Called(ctx, run, order)
	return args.Error(0)
}

func (m *mockPublisher) PublishShipmentDispatched(ctx context.Context, order *domain.Order) error {
	args := m.Called(ctx, order)
	return args.Error(0)
}

func (m *mockPublisher) PublishShipmentCancelled(ctx context.Context, order *domain.Order) error {
	args := m.Called(ctx, order)
	return args.Error(0)
}

// --- Test Helpers ---

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// quietPublisher accepts every event.
func quietPublisher() *mockPublisher {
	p := &mockPublisher{}
	p.On("PublishCheckoutCompleted", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil).Maybe()
	p.On("PublishCheckoutFailed", mock.Anything, mock.Anything, mock.Anything).Return(nil).Maybe()
	p.On("PublishCheckoutCompensated", mock.Anything, mock.Anything, mock.Anything).Return(nil).Maybe()
	p.On("PublishShipmentDispatched", mock.Anything, mock.Anything).Return(nil).Maybe()
	p.On("PublishShipmentCancelled", mock.Anything, mock.Anything).Return(nil).Maybe()
	return p
}

type fixture struct {
	catalog  *ledger.Catalog
	balances *ledger.Balances
	stock    *ledger.Stock
	ship     *mockDispatcher
	pub      *mockPublisher
	svc      *CheckoutService
}

func newFixture(t *testing.T, cfg Config) *fixture {
	t.Helper()
	f := &fixture{
		catalog:  ledger.NewCatalog(),
		balances: ledger.NewBalances(),
		stock:    ledger.NewStock(),
		ship:     &mockDispatcher{},
		pub:      quietPublisher(),
	}
	f.svc = NewCheckoutService(Stores{
		Catalog:  f.catalog,
		Balances: f.balances,
		Stock:    f.stock,
		Locker:   ledger.NewKeyLocker(),
	}, f.ship, f.pub, cfg, newTestLogger())
	return f
}

func (f *fixture) balance(t *testing.T, subject string) int64 {
	t.Helper()
	v, err := f.balances.GetBalance(context.Background(), subject)
	require.NoError(t, err)
	return v
}

func (f *fixture) qty(t *testing.T, item string) int64 {
	t.Helper()
	v, err := f.stock.GetStock(context.Background(), item)
	require.NoError(t, err)
	return v
}

func (f *fixture) put(t *testing.T, order domain.Order) {
	t.Helper()
	require.NoError(t, f.catalog.PutOrder(context.Background(), &order))
}

func (f *fixture) setBalance(t *testing.T, subject string, amount int64) {
	t.Helper()
	require.NoError(t, f.balances.SetBalance(context.Background(), subject, amount))
}

func (f *fixture) setStock(t *testing.T, item string, qty int64) {
	t.Helper()
	require.NoError(t, f.stock.SetStock(context.Background(), item, qty))
}

func stepKind(t *testing.T, err error) string {
	t.Helper()
	var stepErr *saga.StepError
	require.True(t, errors.As(err, &stepErr), "expected *saga.StepError, got %T", err)
	return stepErr.Kind
}

// --- ExecuteSaga ---

func TestExecuteSaga_ConcreteScenario(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	f.setBalance(t, "user1", 100)
	f.setStock(t, "item1", 5)
	f.put(t, domain.Order{ID: "order1", Subject: "user1", Destination: "Main St",
		Items: []domain.LineItem{{ItemID: "item1", Quantity: 2}}})
	f.ship.On("Dispatch", mock.Anything, mock.Anything).Return(nil).Once()

	outcome, err := f.svc.ExecuteSaga(context.Background(), "order1")
	require.NoError(t, err)

	assert.Equal(t, domain.Outcome{Message: "Order Completed"}, outcome)
	assert.Equal(t, int64(80), f.balance(t, "user1"))
	assert.Equal(t, int64(3), f.qty(t, "item1"))
	f.ship.AssertExpectations(t)
	f.ship.AssertNotCalled(t, "CancelDispatch", mock.Anything, mock.Anything)
	f.pub.AssertCalled(t, "PublishCheckoutCompleted", mock.Anything, mock.Anything, mock.Anything, int64(20))
	f.pub.AssertCalled(t, "PublishShipmentDispatched", mock.Anything, mock.Anything)
}

func TestExecuteSaga_ForwardSuccessMultipleItems(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	f.setBalance(t, "user1", 100)
	f.setStock(t, "a", 4)
	f.setStock(t, "b", 4)
	f.put(t, domain.Order{ID: "o", Subject: "user1", Destination: "Main St",
		Items: []domain.LineItem{{ItemID: "a", Quantity: 1}, {ItemID: "b", Quantity: 3}}})
	f.ship.On("Dispatch", mock.Anything, mock.Anything).Return(nil)

	outcome, err := f.svc.ExecuteSaga(context.Background(), "o")
	require.NoError(t, err)
	assert.True(t, outcome.OK())

	assert.Equal(t, int64(60), f.balance(t, "user1"))
	assert.Equal(t, int64(3), f.qty(t, "a"))
	assert.Equal(t, int64(1), f.qty(t, "b"))
}

func TestExecuteSaga_PaymentFailureMutatesNothing(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	f.setBalance(t, "user2", 5)
	f.setStock(t, "item2", 3)
	f.put(t, domain.Order{ID: "order2", Subject: "user2", Destination: "Main St",
		Items: []domain.LineItem{{ItemID: "item2", Quantity: 1}}})

	outcome, err := f.svc.ExecuteSaga(context.Background(), "order2")
	require.Error(t, err)

	assert.Equal(t, domain.Outcome{Error: "Insufficient balance"}, outcome)
	assert.ErrorIs(t, err, apperrors.ErrInsufficientFunds)
	assert.Equal(t, domain.FailureKindBusiness, stepKind(t, err))
	assert.Equal(t, int64(5), f.balance(t, "user2"))
	assert.Equal(t, int64(3), f.qty(t, "item2"))
	f.ship.AssertNotCalled(t, "Dispatch", mock.Anything, mock.Anything)
	f.pub.AssertCalled(t, "PublishCheckoutFailed", mock.Anything, mock.Anything, mock.Anything)
	f.pub.AssertNotCalled(t, "PublishCheckoutCompensated", mock.Anything, mock.Anything, mock.Anything)
}

func TestExecuteSaga_StockFailureRestoresBalance(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	f.setBalance(t, "user1", 100)
	f.setStock(t, "item1", 1)
	f.put(t, domain.Order{ID: "o", Subject: "user1", Destination: "Main St",
		Items: []domain.LineItem{{ItemID: "item1", Quantity: 2}}})

	outcome, err := f.svc.ExecuteSaga(context.Background(), "o")
	require.Error(t, err)

	assert.Equal(t, domain.Outcome{Error: "Not enough stock"}, outcome)
	assert.ErrorIs(t, err, apperrors.ErrInsufficientStock)
	assert.Equal(t, int64(100), f.balance(t, "user1"))
	assert.Equal(t, int64(1), f.qty(t, "item1"))
	f.pub.AssertCalled(t, "PublishCheckoutCompensated", mock.Anything, mock.Anything, mock.Anything)
}

func TestExecuteSaga_NoPartialStockMutation(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	f.setBalance(t, "user1", 100)
	f.setStock(t, "A", 5)
	f.setStock(t, "B", 0)
	f.put(t, domain.Order{ID: "o", Subject: "user1", Destination: "Main St",
		Items: []domain.LineItem{{ItemID: "A", Quantity: 3}, {ItemID: "B", Quantity: 1}}})

	outcome, err := f.svc.ExecuteSaga(context.Background(), "o")
	require.Error(t, err)

	assert.Equal(t, "Not enough stock", outcome.Error)
	assert.Equal(t, int64(5), f.qty(t, "A"))
	assert.Equal(t, int64(0), f.qty(t, "B"))
	assert.Equal(t, int64(100), f.balance(t, "user1"))
}

func TestExecuteSaga_UnknownItemIsOutOfStock(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	f.setBalance(t, "user1", 100)
	f.put(t, domain.Order{ID: "o", Subject: "user1", Destination: "Main St",
		Items: []domain.LineItem{{ItemID: "ghost", Quantity: 1}}})

	outcome, err := f.svc.ExecuteSaga(context.Background(), "o")
	require.Error(t, err)
	assert.Equal(t, "Not enough stock", outcome.Error)
	assert.Equal(t, int64(100), f.balance(t, "user1"))
}

func TestExecuteSaga_ShippingFailureRestoresEverything(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	f.setBalance(t, "user1", 100)
	f.setStock(t, "item1", 5)
	f.setStock(t, "item2", 3)
	f.put(t, domain.Order{ID: "o", Subject: "user1", Destination: "   ",
		Items: []domain.LineItem{{ItemID: "item1", Quantity: 2}, {ItemID: "item2", Quantity: 1}}})

	outcome, err := f.svc.ExecuteSaga(context.Background(), "o")
	require.Error(t, err)

	assert.Equal(t, domain.Outcome{Error: "Invalid shipping address"}, outcome)
	assert.ErrorIs(t, err, apperrors.ErrInvalidDestination)
	assert.Equal(t, int64(100), f.balance(t, "user1"))
	assert.Equal(t, int64(5), f.qty(t, "item1"))
	assert.Equal(t, int64(3), f.qty(t, "item2"))
	f.ship.AssertNotCalled(t, "Dispatch", mock.Anything, mock.Anything)
	f.ship.AssertNotCalled(t, "CancelDispatch", mock.Anything, mock.Anything)
}

func TestExecuteSaga_ShippingTimeoutCompensates(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ShippingTimeout = 20 * time.Millisecond
	f := newFixture(t, cfg)
	f.setBalance(t, "user1", 100)
	f.setStock(t, "item1", 5)
	f.put(t, domain.Order{ID: "o", Subject: "user1", Destination: "Main St",
		Items: []domain.LineItem{{ItemID: "item1", Quantity: 2}}})

	f.ship.On("Dispatch", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { <-args.Get(0).(context.Context).Done() }).
		Return(context.DeadlineExceeded)
	f.ship.On("CancelDispatch", mock.Anything, "o").Return(nil).Once()

	outcome, err := f.svc.ExecuteSaga(context.Background(), "o")
	require.Error(t, err)

	assert.Equal(t, domain.Outcome{Error: "internal error"}, outcome)
	assert.Equal(t, domain.FailureKindSystem, stepKind(t, err))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, int64(100), f.balance(t, "user1"))
	assert.Equal(t, int64(5), f.qty(t, "item1"))
	f.ship.AssertExpectations(t)
	f.pub.AssertCalled(t, "PublishShipmentCancelled", mock.Anything, mock.Anything)
}

func TestExecuteSaga_DispatcherRejection(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	f.setBalance(t, "user1", 100)
	f.setStock(t, "item1", 5)
	f.put(t, domain.Order{ID: "o", Subject: "user1", Destination: "Atlantis",
		Items: []domain.LineItem{{ItemID: "item1", Quantity: 1}}})

	f.ship.On("Dispatch", mock.Anything, mock.Anything).Return(apperrors.InvalidDestination("Invalid shipping address"))
	f.ship.On("CancelDispatch", mock.Anything, "o").Return(errors.New("shipping down"))

	outcome, err := f.svc.ExecuteSaga(context.Background(), "o")
	require.Error(t, err)

	assert.Equal(t, "Invalid shipping address", outcome.Error)
	assert.Equal(t, domain.FailureKindBusiness, stepKind(t, err))
	// A failing cancellation does not stop the unwind.
	assert.Equal(t, int64(100), f.balance(t, "user1"))
	assert.Equal(t, int64(5), f.qty(t, "item1"))
}

func TestExecuteSaga_UnknownOrder(t *testing.T) {
	f := newFixture(t, DefaultConfig())

	outcome, err := f.svc.ExecuteSaga(context.Background(), "nope")
	require.Error(t, err)

	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.NotEmpty(t, outcome.Error)
	var stepErr *saga.StepError
	assert.False(t, errors.As(err, &stepErr))
	f.pub.AssertNotCalled(t, "PublishCheckoutFailed", mock.Anything, mock.Anything, mock.Anything)
}

func TestExecuteSaga_EmptyOrderID(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	_, err := f.svc.ExecuteSaga(context.Background(), " ")
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestExecuteSaga_UnknownSubjectIsSystemFailure(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	f.setStock(t, "item1", 5)
	f.put(t, domain.Order{ID: "o", Subject: "nobody", Destination: "Main St",
		Items: []domain.LineItem{{ItemID: "item1", Quantity: 1}}})

	outcome, err := f.svc.ExecuteSaga(context.Background(), "o")
	require.Error(t, err)
	assert.Equal(t, "internal error", outcome.Error)
	assert.Equal(t, domain.FailureKindSystem, stepKind(t, err))
}

func TestExecuteSaga_RecordsRun(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	f.setBalance(t, "user1", 100)
	f.setStock(t, "item1", 1)
	f.put(t, domain.Order{ID: "o", Subject: "user1", Destination: "Main St",
		Items: []domain.LineItem{{ItemID: "item1", Quantity: 2}}})

	_, err := f.svc.ExecuteSaga(context.Background(), "o")
	require.Error(t, err)

	runs := f.svc.ListSagaRuns(context.Background(), "o")
	require.Len(t, runs, 1)
	run, err := f.svc.GetSagaRun(context.Background(), runs[0].ID)
	require.NoError(t, err)

	assert.Equal(t, domain.SagaStateFailed, run.State)
	assert.Equal(t, domain.StepStock, run.FailedStep)
	assert.Equal(t, "Not enough stock", run.FailureReason)
	assert.Equal(t, domain.SagaStepCompensated, run.Steps[0].Status)
	assert.Equal(t, domain.SagaStepFailed, run.Steps[1].Status)
	assert.Equal(t, domain.SagaStepPending, run.Steps[2].Status)
}

func TestExecuteSaga_PublishErrorsDoNotFailSaga(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	f.pub = &mockPublisher{}
	f.pub.On("PublishShipmentDispatched", mock.Anything, mock.Anything).Return(errors.New("broker down"))
	f.pub.On("PublishCheckoutCompleted", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(errors.New("broker down"))
	f.svc.publisher = f.pub

	f.setBalance(t, "user1", 100)
	f.setStock(t, "item1", 5)
	f.put(t, domain.Order{ID: "o", Subject: "user1", Destination: "Main St",
		Items: []domain.LineItem{{ItemID: "item1", Quantity: 1}}})
	f.ship.On("Dispatch", mock.Anything, mock.Anything).Return(nil)

	outcome, err := f.svc.ExecuteSaga(context.Background(), "o")
	require.NoError(t, err)
	assert.True(t, outcome.OK())
}

func TestExecuteSaga_RepeatedRejectionsKeepBoundedHistory(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RunRetention = saga.Retention{MaxAge: time.Hour, MaxRuns: 50}
	f := newFixture(t, cfg)
	f.setBalance(t, "user1", 0)
	f.setStock(t, "item1", 5)
	f.put(t, domain.Order{ID: "o", Subject: "user1", Destination: "Main St",
		Items: []domain.LineItem{{ItemID: "item1", Quantity: 1}}})

	for i := 0; i < 2000; i++ {
		outcome, err := f.svc.ExecuteSaga(context.Background(), "o")
		require.Error(t, err)
		require.Equal(t, "Insufficient balance", outcome.Error)
	}

	runs := f.svc.ListSagaRuns(context.Background(), "o")
	assert.LessOrEqual(t, len(runs), 50)
	assert.NotEmpty(t, runs)
}

func TestExecuteSaga_ConcurrentSagasNeverOverdraw(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	f.setBalance(t, "user1", 50)
	f.setStock(t, "item1", 100)
	f.ship.On("Dispatch", mock.Anything, mock.Anything).Return(nil)

	const n = 20
	for i := 0; i < n; i++ {
		f.put(t, domain.Order{ID: fmt.Sprintf("o%d", i), Subject: "user1", Destination: "Main St",
			Items: []domain.LineItem{{ItemID: "item1", Quantity: 1}}})
	}

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		completed int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			outcome, _ := f.svc.ExecuteSaga(context.Background(), id)
			if outcome.OK() {
				mu.Lock()
				completed++
				mu.Unlock()
			}
		}(fmt.Sprintf("o%d", i))
	}
	wg.Wait()

	assert.Equal(t, 5, completed)
	assert.Equal(t, int64(0), f.balance(t, "user1"))
	assert.Equal(t, int64(95), f.qty(t, "item1"))
}

func TestExecuteSaga_CapacityExhausted(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxConcurrent = 1
	cfg.AcquireTimeout = 20 * time.Millisecond
	f := newFixture(t, cfg)
	f.setBalance(t, "user1", 100)
	f.setStock(t, "item1", 5)
	f.put(t, domain.Order{ID: "slow", Subject: "user1", Destination: "Main St",
		Items: []domain.LineItem{{ItemID: "item1", Quantity: 1}}})

	release := make(chan struct{})
	started := make(chan struct{})
	f.ship.On("Dispatch", mock.Anything, mock.Anything).
		Run(func(mock.Arguments) {
			close(started)
			<-release
		}).
		Return(nil).Once()

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = f.svc.ExecuteSaga(context.Background(), "slow")
	}()
	<-started

	outcome, err := f.svc.ExecuteSaga(context.Background(), "slow")
	assert.ErrorIs(t, err, apperrors.ErrServiceUnavail)
	assert.NotEmpty(t, outcome.Error)

	close(release)
	<-done
}

// --- Steps ---

func TestBalanceStep_CompensateIsIdempotent(t *testing.T) {
	ctx := context.Background()
	balances := ledger.NewBalances()
	require.NoError(t, balances.SetBalance(ctx, "user1", 100))
	order := &domain.Order{ID: "o", Subject: "user1", Items: []domain.LineItem{{ItemID: "i", Quantity: 3}}}

	step := NewBalanceStep(balances, ledger.NewKeyLocker(), FlatUnitPrice{UnitPrice: 10})
	cost, err := step.Do(ctx, order)
	require.NoError(t, err)
	assert.Equal(t, int64(30), cost)

	require.NoError(t, step.Compensate(ctx, order))
	require.NoError(t, step.Compensate(ctx, order))

	got, err := balances.GetBalance(ctx, "user1")
	require.NoError(t, err)
	assert.Equal(t, int64(100), got)
}

func TestBalanceStep_CompensateWithoutDoIsNoop(t *testing.T) {
	ctx := context.Background()
	balances := ledger.NewBalances()
	require.NoError(t, balances.SetBalance(ctx, "user1", 7))

	step := NewBalanceStep(balances, ledger.NewKeyLocker(), FlatUnitPrice{UnitPrice: 10})
	require.NoError(t, step.Compensate(ctx, &domain.Order{Subject: "user1"}))

	got, err := balances.GetBalance(ctx, "user1")
	require.NoError(t, err)
	assert.Equal(t, int64(7), got)
}

func TestStockStep_DoThenCompensateNetsToZero(t *testing.T) {
	ctx := context.Background()
	stock := ledger.NewStock()
	require.NoError(t, stock.SetStock(ctx, "a", 5))
	require.NoError(t, stock.SetStock(ctx, "b", 2))
	order := &domain.Order{ID: "o", Items: []domain.LineItem{
		{ItemID: "a", Quantity: 2}, {ItemID: "b", Quantity: 1}, {ItemID: "a", Quantity: 1},
	}}

	step := NewStockStep(stock, ledger.NewKeyLocker())
	taken, err := step.Do(ctx, order)
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"a": 3, "b": 1}, taken)

	require.NoError(t, step.Compensate(ctx, order))
	require.NoError(t, step.Compensate(ctx, order))

	assert.Equal(t, []domain.StockLevel{{ItemID: "a", Quantity: 5}, {ItemID: "b", Quantity: 2}}, stock.Snapshot(ctx))
}

func TestShippingStep_CompensateOnlyAfterAttempt(t *testing.T) {
	ctx := context.Background()
	ship := &mockDispatcher{}
	step := NewShippingStep(ship, quietPublisher(), time.Second, newTestLogger())

	require.NoError(t, step.Compensate(ctx, &domain.Order{ID: "o"}))
	ship.AssertNotCalled(t, "CancelDispatch", mock.Anything, mock.Anything)

	ship.On("Dispatch", mock.Anything, mock.Anything).Return(nil)
	ship.On("CancelDispatch", mock.Anything, "o").Return(nil).Once()

	_, err := step.Do(ctx, &domain.Order{ID: "o", Destination: "Main St"})
	require.NoError(t, err)
	require.NoError(t, step.Compensate(ctx, &domain.Order{ID: "o"}))
	require.NoError(t, step.Compensate(ctx, &domain.Order{ID: "o"}))
	ship.AssertExpectations(t)
}

// --- Pricing ---

func TestFlatUnitPrice(t *testing.T) {
	tests := []struct {
		name  string
		price int64
		items []domain.LineItem
		want  int64
	}{
		{"single item", 10, []domain.LineItem{{ItemID: "item1", Quantity: 2}}, 20},
		{"several items", 10, []domain.LineItem{{ItemID: "a", Quantity: 1}, {ItemID: "b", Quantity: 4}}, 50},
		{"free", 0, []domain.LineItem{{ItemID: "a", Quantity: 9}}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FlatUnitPrice{UnitPrice: tt.price}.Cost(&domain.Order{Items: tt.items})
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFlatUnitPrice_Overflow(t *testing.T) {
	_, err := FlatUnitPrice{UnitPrice: 1 << 40}.Cost(&domain.Order{Items: []domain.LineItem{{ItemID: "a", Quantity: 1 << 40}}})
	assert.Error(t, err)
}
