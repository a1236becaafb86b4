package reconciler

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"wallex_bot/internal/models"
	"wallex_bot/internal/pricing"
)

type exchangeMock struct{ mock.Mock }

func (m *exchangeMock) OpenOrders(ctx context.Context, symbol string) ([]models.OpenOrder, error) {
	args := m.Called(ctx, symbol)
	orders, _ := args.Get(0).([]models.OpenOrder)
	return orders, args.Error(1)
}

func (m *exchangeMock) CancelOrder(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *exchangeMock) PlaceOrder(ctx context.Context, req models.OrderRequest) (models.Order, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(models.Order), args.Error(1)
}

func (m *exchangeMock) GetOrder(ctx context.Context, id string) (models.Order, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(models.Order), args.Error(1)
}

var fixedNow = time.Date(2024, 3, 1, 10, 15, 0, 123456000, time.UTC)

// fake clock: sleep advances now
func newTestReconciler(ex OrderExchange) (*Reconciler, *time.Time) {
	r := New(ex, pricing.NewCalculator(pricing.Config{TickValue: 0.01}), Params{
		Symbol:   "SHIBTMN",
		Quantity: "1000",
		Settle:   SettlePolicy{Interval: 100 * time.Millisecond, Timeout: time.Second},
	}, nil)
	clock := fixedNow
	r.now = func() time.Time { return clock }
	r.sleep = func(ctx context.Context, d time.Duration) error {
		clock = clock.Add(d)
		return ctx.Err()
	}
	return r, &clock
}

var buy = models.PriceDecision{Side: models.SideBuy, OrderPrice: 100, StopLossPrice: 90, TakeProfitPrice: 130}

func TestReconcilePlacesOnEmptyBook(t *testing.T) {
	ex := &exchangeMock{}
	ex.On("OpenOrders", mock.Anything, "SHIBTMN").Return([]models.OpenOrder{
		{ClientOrderID: "manual-1", Status: models.OrderStatusNew},
	}, nil).Twice()

	wantID := "bot-LIMIT-BUY-Time-1709288100.123456"
	ex.On("PlaceOrder", mock.Anything, models.OrderRequest{
		Symbol: "SHIBTMN", Type: "LIMIT", Side: models.SideBuy,
		Price: "100.00", Quantity: "1000", ClientOrderID: wantID,
	}).Return(models.Order{ClientOrderID: wantID, Status: models.OrderStatusNew}, nil).Once()

	r, _ := newTestReconciler(ex)
	out, err := r.Reconcile(context.Background(), buy, models.SideBuy, "bot")
	require.NoError(t, err)

	assert.True(t, out.Placed)
	assert.Equal(t, models.ReasonPlaced, out.Reason)
	assert.Equal(t, wantID, out.ClientOrderID)
	assert.Empty(t, out.Cancelled)
	ex.AssertNotCalled(t, "CancelOrder", mock.Anything, mock.Anything)
	ex.AssertExpectations(t)
}

func TestReconcileCancelsThenPlaces(t *testing.T) {
	ex := &exchangeMock{}
	stale := []models.OpenOrder{{ClientOrderID: "bot-LIMIT-SELL-Time-1.000001", Status: models.OrderStatusNew}}
	ex.On("OpenOrders", mock.Anything, "SHIBTMN").Return(stale, nil).Once()
	ex.On("CancelOrder", mock.Anything, "bot-LIMIT-SELL-Time-1.000001").Return(nil).Once()
	ex.On("OpenOrders", mock.Anything, "SHIBTMN").Return([]models.OpenOrder{}, nil)
	ex.On("PlaceOrder", mock.Anything, mock.Anything).
		Return(models.Order{Status: models.OrderStatusNew}, nil).Once()

	r, _ := newTestReconciler(ex)
	out, err := r.Reconcile(context.Background(), buy, models.SideBuy, "bot")
	require.NoError(t, err)
	assert.True(t, out.Placed)
	assert.Equal(t, []string{"bot-LIMIT-SELL-Time-1.000001"}, out.Cancelled)
	ex.AssertExpectations(t)
}

// cancel acknowledged, но ордер так и висит
func TestReconcileStaleOrderBlocksPlacement(t *testing.T) {
	ex := &exchangeMock{}
	stale := []models.OpenOrder{{ClientOrderID: "bot-LIMIT-BUY-Time-1.000001", Status: models.OrderStatusNew}}
	ex.On("OpenOrders", mock.Anything, "SHIBTMN").Return(stale, nil)
	ex.On("CancelOrder", mock.Anything, "bot-LIMIT-BUY-Time-1.000001").Return(nil).Once()

	r, clock := newTestReconciler(ex)
	out, err := r.Reconcile(context.Background(), buy, models.SideBuy, "bot")
	require.NoError(t, err)

	assert.False(t, out.Placed)
	assert.Equal(t, models.ReasonStaleOrderOpen, out.Reason)
	ex.AssertNotCalled(t, "PlaceOrder", mock.Anything, mock.Anything)
	assert.False(t, clock.Before(fixedNow.Add(time.Second)), "settle should wait the full timeout")
}

func TestReconcileNotAccepted(t *testing.T) {
	ex := &exchangeMock{}
	ex.On("OpenOrders", mock.Anything, "SHIBTMN").Return([]models.OpenOrder{}, nil)
	ex.On("PlaceOrder", mock.Anything, mock.Anything).
		Return(models.Order{Status: models.OrderStatusCanceled}, nil).Once()

	r, _ := newTestReconciler(ex)
	out, err := r.Reconcile(context.Background(), buy, models.SideBuy, "bot")
	require.NoError(t, err)
	assert.False(t, out.Placed)
	assert.Equal(t, models.ReasonNotAccepted, out.Reason)
	assert.Equal(t, models.OrderStatusCanceled, out.Status)
}

func TestReconcileInvalidClientID(t *testing.T) {
	ex := &exchangeMock{}
	ex.On("OpenOrders", mock.Anything, "SHIBTMN").Return([]models.OpenOrder{}, nil)

	r, _ := newTestReconciler(ex)
	out, err := r.Reconcile(context.Background(), buy, models.SideBuy, "bad prefix")
	require.NoError(t, err)
	assert.Equal(t, models.ReasonInvalidClientID, out.Reason)
	assert.False(t, out.Placed)
	ex.AssertNotCalled(t, "PlaceOrder", mock.Anything, mock.Anything)
}

func TestReconcilePropagatesTransientErrors(t *testing.T) {
	boom := models.Transient("OpenOrders", errors.New("timeout"))

	ex := &exchangeMock{}
	ex.On("OpenOrders", mock.Anything, "SHIBTMN").Return(nil, boom)

	r, _ := newTestReconciler(ex)
	_, err := r.Reconcile(context.Background(), buy, models.SideBuy, "bot")
	require.Error(t, err)
	assert.True(t, models.IsTransient(err))
	ex.AssertNotCalled(t, "PlaceOrder", mock.Anything, mock.Anything)
}

func TestReconcileCancelError(t *testing.T) {
	ex := &exchangeMock{}
	ex.On("OpenOrders", mock.Anything, "SHIBTMN").Return([]models.OpenOrder{{ClientOrderID: "bot-x"}}, nil)
	ex.On("CancelOrder", mock.Anything, "bot-x").Return(models.Transient("CancelOrder", errors.New("502")))

	r, _ := newTestReconciler(ex)
	out, err := r.Reconcile(context.Background(), buy, models.SideBuy, "bot")
	require.Error(t, err)
	assert.False(t, out.Placed)
	ex.AssertNotCalled(t, "PlaceOrder", mock.Anything, mock.Anything)
}

func TestStatus(t *testing.T) {
	ex := &exchangeMock{}
	ex.On("GetOrder", mock.Anything, "bot-1").Return(models.Order{ClientOrderID: "bot-1", Status: models.OrderStatusFilled}, nil)

	r, _ := newTestReconciler(ex)
	o, err := r.Status(context.Background(), "bot-1")
	require.NoError(t, err)
	assert.True(t, o.IsTerminal())
}

func TestClientOrderID(t *testing.T) {
	at := time.Date(2024, 3, 1, 10, 15, 0, 5000, time.UTC)
	id := ClientOrderID("bot-SHIBTMN", "LIMIT", models.SideSell, at)
	assert.Equal(t, "bot-SHIBTMN-LIMIT-SELL-Time-1709288100.000005", id)
	assert.NoError(t, models.ValidateClientID(id))
}
