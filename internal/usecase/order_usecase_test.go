package usecase_test

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"supermercado/internal/domain/model"
	repo "supermercado/internal/repository"
	"supermercado/internal/usecase"
)

// =====================
// Mocks
// =====================

type ProductRepoMock struct{ mock.Mock }

func (m *ProductRepoMock) Search(ctx context.Context, q string, limit int) ([]model.Product, error) {
	args := m.Called(ctx, q, limit)
	items, _ := args.Get(0).([]model.Product)
	return items, args.Error(1)
}

func (m *ProductRepoMock) FindByIDsForUpdate(ctx context.Context, ids []int64) ([]model.Product, error) {
	args := m.Called(ctx, ids)
	items, _ := args.Get(0).([]model.Product)
	return items, args.Error(1)
}

func (m *ProductRepoMock) Upsert(ctx context.Context, p model.Product) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

func (m *ProductRepoMock) DecrementStock(ctx context.Context, productID int64, qty int64) (bool, error) {
	args := m.Called(ctx, productID, qty)
	return args.Bool(0), args.Error(1)
}

type OrderRepoMock struct{ mock.Mock }

func (m *OrderRepoMock) Create(ctx context.Context, order model.Order) (int64, error) {
	args := m.Called(ctx, order)
	return args.Get(0).(int64), args.Error(1)
}

func (m *OrderRepoMock) FindByID(ctx context.Context, orderID int64) (model.Order, error) {
	args := m.Called(ctx, orderID)
	o, _ := args.Get(0).(model.Order)
	return o, args.Error(1)
}

func (m *OrderRepoMock) ListRecent(ctx context.Context) ([]model.Order, error) {
	args := m.Called(ctx)
	orders, _ := args.Get(0).([]model.Order)
	return orders, args.Error(1)
}

type OrderItemRepoMock struct{ mock.Mock }

func (m *OrderItemRepoMock) CreateBulk(ctx context.Context, orderID int64, items []model.OrderItem) error {
	args := m.Called(ctx, orderID, items)
	return args.Error(0)
}

func (m *OrderItemRepoMock) ListByOrderID(ctx context.Context, orderID int64) ([]model.OrderItem, error) {
	args := m.Called(ctx, orderID)
	items, _ := args.Get(0).([]model.OrderItem)
	return items, args.Error(1)
}

type txReposStub struct {
	products   *ProductRepoMock
	orders     *OrderRepoMock
	orderItems *OrderItemRepoMock
}

func (r *txReposStub) Products() repo.ProductRepository     { return r.products }
func (r *txReposStub) Orders() repo.OrderRepository         { return r.orders }
func (r *txReposStub) OrderItems() repo.OrderItemRepository { return r.orderItems }

// WithinTxは渡されたクロージャをそのまま実行する（commit/rollbackなし）
type txManagerStub struct {
	repos *txReposStub
}

func (t *txManagerStub) WithinTx(ctx context.Context, fn func(r repo.TxRepos) error) error {
	return fn(t.repos)
}

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

func newOrderFixture() (*ProductRepoMock, *OrderRepoMock, *OrderItemRepoMock, *usecase.OrderUsecase) {
	products := new(ProductRepoMock)
	orders := new(OrderRepoMock)
	orderItems := new(OrderItemRepoMock)
	tx := &txManagerStub{repos: &txReposStub{products: products, orders: orders, orderItems: orderItems}}
	clock := fixedClock{t: time.Date(2025, 3, 10, 12, 0, 0, 0, time.Local)}
	uc := usecase.NewOrderUsecase(tx, clock, 5*time.Second)
	return products, orders, orderItems, uc
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// =====================
// CreateOrder: validation
// =====================

func TestCreateOrder_ValidationCollectsEveryProblem(t *testing.T) {
	_, _, _, uc := newOrderFixture()

	_, err := uc.CreateOrder(context.Background(), usecase.CreateOrderInput{
		CustomerName: "",
		DeliveryDate: "not-a-date",
		Items:        []usecase.OrderItemInput{{ProductID: 0, Qty: 0}},
	})

	ve, ok := usecase.AsValidationError(err)
	assert.True(t, ok)
	assert.Contains(t, ve.Errors, "customer_name")
	assert.Contains(t, ve.Errors, "delivery_date")
	assert.Contains(t, ve.Errors, "items.0.product_id")
	assert.Contains(t, ve.Errors, "items.0.qty")
}

func TestCreateOrder_EmptyItems(t *testing.T) {
	_, _, _, uc := newOrderFixture()

	_, err := uc.CreateOrder(context.Background(), usecase.CreateOrderInput{
		CustomerName: "Maria",
		DeliveryDate: "2025-03-12",
	})

	ve, ok := usecase.AsValidationError(err)
	assert.True(t, ok)
	assert.Contains(t, ve.Errors, "items")
}

func TestCreateOrder_CustomerNameTooLong(t *testing.T) {
	_, _, _, uc := newOrderFixture()

	_, err := uc.CreateOrder(context.Background(), usecase.CreateOrderInput{
		CustomerName: strings.Repeat("a", 121),
		DeliveryDate: "2025-03-12",
		Items:        []usecase.OrderItemInput{{ProductID: 1, Qty: 1}},
	})

	ve, ok := usecase.AsValidationError(err)
	assert.True(t, ok)
	assert.Contains(t, ve.Errors["customer_name"], "The customer_name may not be greater than 120 characters.")
}

func TestCreateOrder_DeliveryDateInPast(t *testing.T) {
	_, _, _, uc := newOrderFixture()

	//clockは2025-03-10固定
	_, err := uc.CreateOrder(context.Background(), usecase.CreateOrderInput{
		CustomerName: "Maria",
		DeliveryDate: "2025-03-09",
		Items:        []usecase.OrderItemInput{{ProductID: 1, Qty: 1}},
	})

	ve, ok := usecase.AsValidationError(err)
	assert.True(t, ok)
	assert.Contains(t, ve.Errors["delivery_date"], "The delivery_date must be a date after or equal to today.")
}

func TestCreateOrder_DeliveryDateToday(t *testing.T) {
	products, orders, orderItems, uc := newOrderFixture()

	products.On("FindByIDsForUpdate", mock.Anything, []int64{1}).
		Return([]model.Product{{ID: 1, Name: "Arroz", Price: dec("10.00"), QtyStock: 5}}, nil)
	products.On("DecrementStock", mock.Anything, int64(1), int64(1)).Return(true, nil)
	orders.On("Create", mock.Anything, mock.Anything).Return(int64(7), nil)
	orderItems.On("CreateBulk", mock.Anything, int64(7), mock.Anything).Return(nil)

	//当日指定はOK
	_, err := uc.CreateOrder(context.Background(), usecase.CreateOrderInput{
		CustomerName: "Maria",
		DeliveryDate: "2025-03-10",
		Items:        []usecase.OrderItemInput{{ProductID: 1, Qty: 1}},
	})
	assert.NoError(t, err)
}

func TestCreateOrder_DuplicateProductRejected(t *testing.T) {
	_, orders, _, uc := newOrderFixture()

	_, err := uc.CreateOrder(context.Background(), usecase.CreateOrderInput{
		CustomerName: "Maria",
		DeliveryDate: "2025-03-12",
		Items: []usecase.OrderItemInput{
			{ProductID: 1, Qty: 1},
			{ProductID: 1, Qty: 2},
		},
	})

	ve, ok := usecase.AsValidationError(err)
	assert.True(t, ok)
	assert.Contains(t, ve.Errors["items.1.product_id"], "The items.1.product_id field has a duplicate value.")
	orders.AssertNotCalled(t, "Create")
}

// =====================
// CreateOrder: transaction
// =====================

func TestCreateOrder_Success(t *testing.T) {
	products, orders, orderItems, uc := newOrderFixture()

	products.On("FindByIDsForUpdate", mock.Anything, []int64{1}).
		Return([]model.Product{{ID: 1, Name: "Arroz", Price: dec("10.00"), QtyStock: 5}}, nil)

	orders.On("Create", mock.Anything, mock.MatchedBy(func(o model.Order) bool {
		return o.CustomerName == "Maria" &&
			o.Total.Equal(dec("30.00")) &&
			o.DeliveryDate.Format("2006-01-02") == "2025-03-12"
	})).Return(int64(42), nil)

	orderItems.On("CreateBulk", mock.Anything, int64(42), mock.MatchedBy(func(items []model.OrderItem) bool {
		return len(items) == 1 &&
			items[0].ProductID == 1 &&
			items[0].Qty == 3 &&
			items[0].UnitPrice.Equal(dec("10.00")) &&
			items[0].Subtotal.Equal(dec("30.00"))
	})).Return(nil)

	products.On("DecrementStock", mock.Anything, int64(1), int64(3)).Return(true, nil)

	out, err := uc.CreateOrder(context.Background(), usecase.CreateOrderInput{
		CustomerName: "Maria",
		DeliveryDate: "2025-03-12",
		Items:        []usecase.OrderItemInput{{ProductID: 1, Qty: 3}},
	})

	assert.NoError(t, err)
	assert.Equal(t, int64(42), out.OrderID)
	assert.Equal(t, "30.00", out.Total.StringFixed(2))
	products.AssertExpectations(t)
	orders.AssertExpectations(t)
	orderItems.AssertExpectations(t)
}

func TestCreateOrder_TotalSumsEveryLine(t *testing.T) {
	products, orders, orderItems, uc := newOrderFixture()

	products.On("FindByIDsForUpdate", mock.Anything, []int64{1, 2}).
		Return([]model.Product{
			{ID: 1, Name: "Arroz", Price: dec("19.99"), QtyStock: 10},
			{ID: 2, Name: "Feijão", Price: dec("7.50"), QtyStock: 10},
		}, nil)

	orders.On("Create", mock.Anything, mock.MatchedBy(func(o model.Order) bool {
		// 19.99*3 + 7.50*2 = 59.97 + 15.00
		return o.Total.Equal(dec("74.97"))
	})).Return(int64(9), nil)

	orderItems.On("CreateBulk", mock.Anything, int64(9), mock.Anything).Return(nil)
	products.On("DecrementStock", mock.Anything, int64(1), int64(3)).Return(true, nil)
	products.On("DecrementStock", mock.Anything, int64(2), int64(2)).Return(true, nil)

	out, err := uc.CreateOrder(context.Background(), usecase.CreateOrderInput{
		CustomerName: "João",
		DeliveryDate: "2025-03-12",
		Items: []usecase.OrderItemInput{
			{ProductID: 1, Qty: 3},
			{ProductID: 2, Qty: 2},
		},
	})

	assert.NoError(t, err)
	assert.Equal(t, "74.97", out.Total.StringFixed(2))
	products.AssertExpectations(t)
}

func TestCreateOrder_InsufficientStockMessage(t *testing.T) {
	products, orders, _, uc := newOrderFixture()

	products.On("FindByIDsForUpdate", mock.Anything, []int64{1}).
		Return([]model.Product{{ID: 1, Name: "Arroz", Price: dec("10.00"), QtyStock: 2}}, nil)

	_, err := uc.CreateOrder(context.Background(), usecase.CreateOrderInput{
		CustomerName: "Maria",
		DeliveryDate: "2025-03-12",
		Items:        []usecase.OrderItemInput{{ProductID: 1, Qty: 3}},
	})

	ve, ok := usecase.AsValidationError(err)
	assert.True(t, ok)
	assert.Contains(t, ve.Errors["items"], "Produto Arroz: estoque insuficiente (2 disponível).")
	orders.AssertNotCalled(t, "Create")
	products.AssertNotCalled(t, "DecrementStock")
}

func TestCreateOrder_InsufficiencyListsEveryProduct(t *testing.T) {
	products, orders, _, uc := newOrderFixture()

	//idは昇順に揃えてロックされる（リクエストは5,2の順で送る）
	products.On("FindByIDsForUpdate", mock.Anything, []int64{2, 5}).
		Return([]model.Product{
			{ID: 2, Name: "Feijão", Price: dec("7.50"), QtyStock: 1},
			{ID: 5, Name: "Café", Price: dec("22.00"), QtyStock: 0},
		}, nil)

	_, err := uc.CreateOrder(context.Background(), usecase.CreateOrderInput{
		CustomerName: "Maria",
		DeliveryDate: "2025-03-12",
		Items: []usecase.OrderItemInput{
			{ProductID: 5, Qty: 1},
			{ProductID: 2, Qty: 4},
		},
	})

	ve, ok := usecase.AsValidationError(err)
	assert.True(t, ok)
	assert.Len(t, ve.Errors["items"], 2)
	assert.Contains(t, ve.Errors["items"], "Produto Café: estoque insuficiente (0 disponível).")
	assert.Contains(t, ve.Errors["items"], "Produto Feijão: estoque insuficiente (1 disponível).")
	orders.AssertNotCalled(t, "Create")
	products.AssertExpectations(t)
}

func TestCreateOrder_UnknownProduct(t *testing.T) {
	products, orders, _, uc := newOrderFixture()

	//id=99はロック結果に存在しない
	products.On("FindByIDsForUpdate", mock.Anything, []int64{99}).
		Return([]model.Product{}, nil)

	_, err := uc.CreateOrder(context.Background(), usecase.CreateOrderInput{
		CustomerName: "Maria",
		DeliveryDate: "2025-03-12",
		Items:        []usecase.OrderItemInput{{ProductID: 99, Qty: 1}},
	})

	ve, ok := usecase.AsValidationError(err)
	assert.True(t, ok)
	assert.Contains(t, ve.Errors["items.0.product_id"], "The selected items.0.product_id is invalid.")
	orders.AssertNotCalled(t, "Create")
}

func TestCreateOrder_ItemInsertFailureAborts(t *testing.T) {
	products, orders, orderItems, uc := newOrderFixture()

	products.On("FindByIDsForUpdate", mock.Anything, []int64{1}).
		Return([]model.Product{{ID: 1, Name: "Arroz", Price: dec("10.00"), QtyStock: 5}}, nil)
	orders.On("Create", mock.Anything, mock.Anything).Return(int64(42), nil)
	orderItems.On("CreateBulk", mock.Anything, int64(42), mock.Anything).Return(assert.AnError)

	_, err := uc.CreateOrder(context.Background(), usecase.CreateOrderInput{
		CustomerName: "Maria",
		DeliveryDate: "2025-03-12",
		Items:        []usecase.OrderItemInput{{ProductID: 1, Qty: 3}},
	})

	he, ok := usecase.AsHTTPError(err)
	assert.True(t, ok)
	assert.Equal(t, http.StatusInternalServerError, he.Status)
	//明細のinsertに失敗したら在庫減算まで進まない（txがロールバックする）
	products.AssertNotCalled(t, "DecrementStock")
}

// =====================
// ListOrders / GetOrderDetail
// =====================

func TestListOrders_MapsSummaryFields(t *testing.T) {
	_, orders, _, uc := newOrderFixture()

	created := time.Date(2025, 3, 10, 9, 30, 0, 0, time.Local)
	orders.On("ListRecent", mock.Anything).Return([]model.Order{
		{ID: 2, CustomerName: "João", DeliveryDate: time.Date(2025, 3, 15, 0, 0, 0, 0, time.Local), Total: dec("74.97"), CreatedAt: created},
		{ID: 1, CustomerName: "Maria", DeliveryDate: time.Date(2025, 3, 12, 0, 0, 0, 0, time.Local), Total: dec("30.00"), CreatedAt: created},
	}, nil)

	out, err := uc.ListOrders(context.Background())

	assert.NoError(t, err)
	assert.Len(t, out, 2)
	assert.Equal(t, int64(2), out[0].ID)
	assert.Equal(t, "74.97", out[0].Total)
	assert.Equal(t, "2025-03-15", out[0].DeliveryDate)
	assert.Equal(t, "Maria", out[1].CustomerName)
}

func TestGetOrderDetail_NotFound(t *testing.T) {
	_, orders, _, uc := newOrderFixture()

	orders.On("FindByID", mock.Anything, int64(999)).Return(model.Order{}, repo.ErrNotFound)

	_, err := uc.GetOrderDetail(context.Background(), 999)

	he, ok := usecase.AsHTTPError(err)
	assert.True(t, ok)
	assert.Equal(t, http.StatusNotFound, he.Status)
	assert.Equal(t, "Pedido não encontrado", he.Message)
}

func TestGetOrderDetail_NonPositiveID_NotFound(t *testing.T) {
	for _, id := range []int64{0, -1} {
		_, _, _, uc := newOrderFixture()

		_, err := uc.GetOrderDetail(context.Background(), id)

		he, ok := usecase.AsHTTPError(err)
		assert.True(t, ok)
		assert.Equal(t, http.StatusNotFound, he.Status)
		assert.Equal(t, "Pedido não encontrado", he.Message)
	}
}

func TestGetOrderDetail_AnnotatesProductName(t *testing.T) {
	_, orders, orderItems, uc := newOrderFixture()

	orders.On("FindByID", mock.Anything, int64(42)).Return(model.Order{
		ID:           42,
		CustomerName: "Maria",
		DeliveryDate: time.Date(2025, 3, 12, 0, 0, 0, 0, time.Local),
		Total:        dec("30.00"),
	}, nil)

	orderItems.On("ListByOrderID", mock.Anything, int64(42)).Return([]model.OrderItem{
		{
			ID:        7,
			OrderID:   42,
			ProductID: 1,
			Qty:       3,
			UnitPrice: dec("10.00"),
			Subtotal:  dec("30.00"),
			Product:   model.Product{ID: 1, Name: "Arroz"},
		},
	}, nil)

	out, err := uc.GetOrderDetail(context.Background(), 42)

	assert.NoError(t, err)
	assert.Equal(t, "30.00", out.Total)
	assert.Len(t, out.Items, 1)
	assert.Equal(t, "Arroz", out.Items[0].Product.Name)
	assert.Equal(t, "10.00", out.Items[0].UnitPrice)
	assert.Equal(t, "30.00", out.Items[0].Subtotal)
}
