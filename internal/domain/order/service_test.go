package order

import (
	"context"
	"testing"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evermart/storefront/internal/domain/product"
)

// --- Mock implementations ---

type mockProductRepo struct {
	byID   map[string]*product.Product
	getErr error
}

func (m *mockProductRepo) List(_ context.Context, _ product.Filter) ([]product.Product, error) {
	return nil, nil
}

func (m *mockProductRepo) GetByID(_ context.Context, id string) (*product.Product, error) {
	p, ok := m.byID[id]
	if !ok {
		return nil, product.ErrNotFound
	}
	return p, nil
}

func (m *mockProductRepo) GetByIDs(_ context.Context, ids []string) ([]product.Product, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	var out []product.Product
	for _, id := range ids {
		if p, ok := m.byID[id]; ok {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (m *mockProductRepo) Create(_ context.Context, _ *product.Product) error { return nil }
func (m *mockProductRepo) Update(_ context.Context, _ *product.Product) error { return nil }
func (m *mockProductRepo) AdjustStock(_ context.Context, _ string, _ int) (*product.Product, error) {
	return nil, nil
}

type mockOrderRepo struct {
	byID      map[string]*Order
	lastOrder *Order
	createErr error
}

func newMockOrderRepo() *mockOrderRepo {
	return &mockOrderRepo{byID: make(map[string]*Order)}
}

func (m *mockOrderRepo) Create(_ context.Context, o *Order) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.lastOrder = o
	m.byID[o.ID] = o
	return nil
}

func (m *mockOrderRepo) ListByUser(_ context.Context, userID string) ([]Order, error) {
	var out []Order
	for _, o := range m.byID {
		if o.UserID == userID {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (m *mockOrderRepo) GetByID(_ context.Context, userID, orderID string) (*Order, error) {
	o, ok := m.byID[orderID]
	if !ok || o.UserID != userID {
		return nil, ErrNotFound
	}
	return o, nil
}

func (m *mockOrderRepo) UpdateStatus(_ context.Context, userID, orderID string, status Status) (*Order, error) {
	o, ok := m.byID[orderID]
	if !ok || o.UserID != userID {
		return nil, ErrNotFound
	}
	o.Status = status
	return o, nil
}

// --- Helpers ---

func newTestProduct(id, name, price string) product.Product {
	return product.Product{
		ID:    id,
		Name:  name,
		Price: decimal.RequireFromString(price),
	}
}

func newProductRepo(products ...product.Product) *mockProductRepo {
	byID := make(map[string]*product.Product, len(products))
	for i := range products {
		byID[products[i].ID] = &products[i]
	}
	return &mockProductRepo{byID: byID}
}

// --- Tests ---

func TestPlaceOrder_EmptyItems(t *testing.T) {
	svc := NewService(newProductRepo(), newMockOrderRepo())

	_, err := svc.PlaceOrder(context.Background(), "u1", PlaceOrderRequest{})
	require.ErrorIs(t, err, ErrEmptyItems)
}

func TestPlaceOrder_InvalidQuantity(t *testing.T) {
	p1 := newTestProduct("p1", "Widget", "10.00")
	svc := NewService(newProductRepo(p1), newMockOrderRepo())

	_, err := svc.PlaceOrder(context.Background(), "u1", PlaceOrderRequest{
		Items: []ItemRequest{{ProductID: "p1", Quantity: 0}},
	})

	var iqErr *InvalidQuantityError
	require.ErrorAs(t, err, &iqErr)
	assert.Equal(t, "p1", iqErr.ProductID)
}

func TestPlaceOrder_ProductNotFound(t *testing.T) {
	svc := NewService(newProductRepo(), newMockOrderRepo())

	_, err := svc.PlaceOrder(context.Background(), "u1", PlaceOrderRequest{
		Items: []ItemRequest{{ProductID: "missing", Quantity: 1}},
	})

	var pnfErr *ProductNotFoundError
	require.ErrorAs(t, err, &pnfErr)
	assert.Equal(t, "missing", pnfErr.ProductID)
}

func TestPlaceOrder_TotalIsExactSum(t *testing.T) {
	p1 := newTestProduct("p1", "Widget", "10.00")
	p2 := newTestProduct("p2", "Gadget", "5.50")
	repo := newMockOrderRepo()
	svc := NewService(newProductRepo(p1, p2), repo)

	o, err := svc.PlaceOrder(context.Background(), "u1", PlaceOrderRequest{
		Items: []ItemRequest{
			{ProductID: "p1", Quantity: 2},
			{ProductID: "p2", Quantity: 3},
		},
	})

	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("36.50").Equal(o.Total))
	assert.Equal(t, StatusPending, o.Status)
	assert.Equal(t, "u1", o.UserID)
	require.NotNil(t, repo.lastOrder)
	assert.Equal(t, o.ID, repo.lastOrder.ID)
}

func TestPlaceOrder_SnapshotsCatalogPrices(t *testing.T) {
	p1 := newTestProduct("p1", "Widget", "10.00")
	svc := NewService(newProductRepo(p1), newMockOrderRepo())

	o, err := svc.PlaceOrder(context.Background(), "u1", PlaceOrderRequest{
		Items: []ItemRequest{{ProductID: "p1", Quantity: 2}},
	})

	require.NoError(t, err)
	require.Len(t, o.Items, 1)
	assert.True(t, decimal.RequireFromString("10.00").Equal(o.Items[0].Price))
	assert.Equal(t, 2, o.Items[0].Quantity)
}

func TestPlaceOrder_PreservesItemOrder(t *testing.T) {
	p1 := newTestProduct("p1", "Widget", "1.00")
	p2 := newTestProduct("p2", "Gadget", "2.00")
	p3 := newTestProduct("p3", "Gizmo", "3.00")
	svc := NewService(newProductRepo(p1, p2, p3), newMockOrderRepo())

	o, err := svc.PlaceOrder(context.Background(), "u1", PlaceOrderRequest{
		Items: []ItemRequest{
			{ProductID: "p3", Quantity: 1},
			{ProductID: "p1", Quantity: 1},
			{ProductID: "p2", Quantity: 1},
		},
	})

	require.NoError(t, err)
	require.Len(t, o.Items, 3)
	assert.Equal(t, "p3", o.Items[0].ProductID)
	assert.Equal(t, "p1", o.Items[1].ProductID)
	assert.Equal(t, "p2", o.Items[2].ProductID)
}

func TestPlaceOrder_KeepsShippingAddressVerbatim(t *testing.T) {
	p1 := newTestProduct("p1", "Widget", "10.00")
	svc := NewService(newProductRepo(p1), newMockOrderRepo())

	addr := Address{Street: "1 Main St", City: "Springfield", Country: "US"}
	o, err := svc.PlaceOrder(context.Background(), "u1", PlaceOrderRequest{
		Items:           []ItemRequest{{ProductID: "p1", Quantity: 1}},
		ShippingAddress: addr,
	})

	require.NoError(t, err)
	assert.Equal(t, addr, o.ShippingAddress)
}

func TestPlaceOrder_CreateError(t *testing.T) {
	p1 := newTestProduct("p1", "Widget", "10.00")
	repo := newMockOrderRepo()
	repo.createErr = errors.New("db write failed")
	svc := NewService(newProductRepo(p1), repo)

	_, err := svc.PlaceOrder(context.Background(), "u1", PlaceOrderRequest{
		Items: []ItemRequest{{ProductID: "p1", Quantity: 1}},
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "create order")
}

func TestParseStatus(t *testing.T) {
	for _, valid := range []string{"pending", "processing", "shipped", "delivered", "cancelled"} {
		s, err := ParseStatus(valid)
		require.NoError(t, err)
		assert.Equal(t, Status(valid), s)
	}

	_, err := ParseStatus("refunded")
	var isErr *InvalidStatusError
	require.ErrorAs(t, err, &isErr)
	assert.Equal(t, "refunded", isErr.Value)
}

func TestUpdateStatus_InvalidValueLeavesOrderUnchanged(t *testing.T) {
	p1 := newTestProduct("p1", "Widget", "10.00")
	repo := newMockOrderRepo()
	svc := NewService(newProductRepo(p1), repo)

	o, err := svc.PlaceOrder(context.Background(), "u1", PlaceOrderRequest{
		Items: []ItemRequest{{ProductID: "p1", Quantity: 1}},
	})
	require.NoError(t, err)

	_, err = svc.UpdateStatus(context.Background(), "u1", o.ID, "lost")
	var isErr *InvalidStatusError
	require.ErrorAs(t, err, &isErr)

	stored, err := svc.Get(context.Background(), "u1", o.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, stored.Status)
}

func TestUpdateStatus_AnyTransitionAllowed(t *testing.T) {
	p1 := newTestProduct("p1", "Widget", "10.00")
	repo := newMockOrderRepo()
	svc := NewService(newProductRepo(p1), repo)

	o, err := svc.PlaceOrder(context.Background(), "u1", PlaceOrderRequest{
		Items: []ItemRequest{{ProductID: "p1", Quantity: 1}},
	})
	require.NoError(t, err)

	// No transition table: delivered straight from pending, then back to
	// cancelled.
	updated, err := svc.UpdateStatus(context.Background(), "u1", o.ID, "delivered")
	require.NoError(t, err)
	assert.Equal(t, StatusDelivered, updated.Status)

	updated, err = svc.UpdateStatus(context.Background(), "u1", o.ID, "cancelled")
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, updated.Status)
}

func TestUpdateStatus_UnknownOrder(t *testing.T) {
	svc := NewService(newProductRepo(), newMockOrderRepo())

	_, err := svc.UpdateStatus(context.Background(), "u1", "nope", "shipped")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestGet_ForeignOrderIsNotFound(t *testing.T) {
	p1 := newTestProduct("p1", "Widget", "10.00")
	repo := newMockOrderRepo()
	svc := NewService(newProductRepo(p1), repo)

	o, err := svc.PlaceOrder(context.Background(), "u1", PlaceOrderRequest{
		Items: []ItemRequest{{ProductID: "p1", Quantity: 1}},
	})
	require.NoError(t, err)

	_, err = svc.Get(context.Background(), "u2", o.ID)
	require.ErrorIs(t, err, ErrNotFound)
}
