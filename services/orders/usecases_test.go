package orders

import (
	"context"
	"errors"
	"testing"

	"github.com/helo0ks/heloyse4bimestre/services/auth"
	"github.com/helo0ks/heloyse4bimestre/services/shared"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

var errForeignKey = &pgconn.PgError{Code: "23503"}

const (
	customerCPF = "12345678901"
	adminCPF    = "00000000001"
)

var customer = &auth.Identity{CPF: customerCPF, Email: "ana@loja.com", Role: auth.RoleCustomer}

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func newCheckout(t *testing.T, db *memoryDB, handler HandlerPolicy, price PricePolicy) *CheckoutUseCase {
	t.Helper()
	uc, err := NewCheckoutUseCase(db, handler, price, tracenoop.NewTracerProvider().Tracer("test"), metricnoop.NewMeterProvider().Meter("test"))
	require.NoError(t, err)
	return uc
}

func seededDB() *memoryDB {
	db := newMemoryDB()
	db.addCustomer(customerCPF, "Ana")
	db.addAdminEmployee(adminCPF)
	db.addProduct(1, "Urso", "10.00", 5)
	db.addProduct(2, "Coelho", "7.50", 3)
	return db
}

func requireAppError(t *testing.T, err error, kind shared.Kind, message string) {
	t.Helper()
	var appErr *shared.AppError
	require.True(t, errors.As(err, &appErr), "expected AppError, got %v", err)
	assert.Equal(t, kind, appErr.Kind)
	if message != "" {
		assert.Equal(t, message, appErr.Message)
	}
}

func TestCheckout_DecrementsStockAndRecordsPayment(t *testing.T) {
	// Arrange
	db := seededDB()
	uc := newCheckout(t, db, nil, nil)

	// Act
	result, err := uc.Checkout(context.Background(), customer, CheckoutRequest{
		Items:           []CartItem{{ID: 1, Name: "Urso", Price: d("10"), Quantity: 2}},
		PaymentMethodID: 1,
		Total:           d("20"),
	})

	// Assert
	require.NoError(t, err)
	assert.Equal(t, 3, db.products[1].Stock)
	require.Len(t, db.orders, 1)

	order := db.orders[result.Order.ID]
	assert.Equal(t, customerCPF, order.CustomerCPF)
	assert.Equal(t, adminCPF, order.EmployeeCPF)

	require.Len(t, db.items[order.ID], 1)
	line := db.items[order.ID][1]
	assert.Equal(t, 2, line.Quantity)
	assert.True(t, d("10").Equal(line.UnitPrice))

	payment, ok := db.paymentOf(order.ID)
	require.True(t, ok)
	assert.True(t, d("20").Equal(payment.Total))
	require.Len(t, db.allocations[payment.ID], 1)
	assert.True(t, d("20").Equal(db.allocations[payment.ID][1].Amount))

	assert.Equal(t, "Ana", result.Order.CustomerName)
	assert.Equal(t, "Pix", result.Order.PaymentMethod)
	assert.Equal(t, 1, result.ItemsPurchased)
	assert.Equal(t, 1, db.commits)
}

func TestCheckout_InsufficientStockLeavesNothingBehind(t *testing.T) {
	db := seededDB()
	db.products[1] = Product{ID: 1, Name: "Urso", Price: d("10"), Stock: 3}
	uc := newCheckout(t, db, nil, nil)

	_, err := uc.Checkout(context.Background(), customer, CheckoutRequest{
		Items:           []CartItem{{ID: 1, Price: d("10"), Quantity: 10}},
		PaymentMethodID: 1,
		Total:           d("100"),
	})

	requireAppError(t, err, shared.KindValidation, "insufficient stock for product Urso: available 3, requested 10")
	assert.Equal(t, 3, db.products[1].Stock)
	assert.Empty(t, db.orders)
	assert.Empty(t, db.payments)
	assert.Zero(t, db.commits)
}

func TestCheckout_IsAllOrNothing(t *testing.T) {
	tests := []struct {
		name  string
		setup func(db *memoryDB)
		items []CartItem
		total string
		kind  shared.Kind
	}{
		{
			name:  "second product missing",
			items: []CartItem{{ID: 1, Price: d("10"), Quantity: 2}, {ID: 99, Price: d("1"), Quantity: 1}},
			total: "21",
			kind:  shared.KindNotFound,
		},
		{
			name:  "second product short",
			items: []CartItem{{ID: 1, Price: d("10"), Quantity: 2}, {ID: 2, Price: d("7.50"), Quantity: 4}},
			total: "50",
			kind:  shared.KindValidation,
		},
		{
			name:  "allocation write fails",
			setup: func(db *memoryDB) { db.failAllocation = errors.New("connection reset") },
			items: []CartItem{{ID: 1, Price: d("10"), Quantity: 2}, {ID: 2, Price: d("7.50"), Quantity: 1}},
			total: "27.50",
			kind:  shared.KindInternal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := seededDB()
			if tt.setup != nil {
				tt.setup(db)
			}
			uc := newCheckout(t, db, nil, nil)

			_, err := uc.Checkout(context.Background(), customer, CheckoutRequest{Items: tt.items, PaymentMethodID: 1, Total: d(tt.total)})

			require.Error(t, err)
			assert.Equal(t, tt.kind, shared.KindOf(err))
			assert.Equal(t, 5, db.products[1].Stock)
			assert.Equal(t, 3, db.products[2].Stock)
			assert.Empty(t, db.orders)
			assert.Empty(t, db.items)
			assert.Empty(t, db.payments)
			assert.Empty(t, db.allocations)
			assert.Equal(t, 1, db.rollbacks)
		})
	}
}

func TestCheckout_RejectsBeforeTransaction(t *testing.T) {
	tests := []struct {
		name     string
		identity *auth.Identity
		req      CheckoutRequest
		kind     shared.Kind
		message  string
	}{
		{
			name:     "admin identity",
			identity: &auth.Identity{CPF: adminCPF, Role: auth.RoleAdmin},
			req:      CheckoutRequest{Items: []CartItem{{ID: 1, Price: d("10"), Quantity: 1}}, PaymentMethodID: 1, Total: d("10")},
			kind:     shared.KindForbidden,
		},
		{
			name:     "other customer cpf",
			identity: customer,
			req:      CheckoutRequest{CustomerCPF: "99999999999", Items: []CartItem{{ID: 1, Price: d("10"), Quantity: 1}}, PaymentMethodID: 1, Total: d("10")},
			kind:     shared.KindForbidden,
		},
		{
			name:     "empty cart",
			identity: customer,
			req:      CheckoutRequest{PaymentMethodID: 1},
			kind:     shared.KindValidation,
			message:  "cart is empty",
		},
		{
			name:     "zero quantity",
			identity: customer,
			req:      CheckoutRequest{Items: []CartItem{{ID: 1, Price: d("10"), Quantity: 0}}, PaymentMethodID: 1},
			kind:     shared.KindValidation,
		},
		{
			name:     "negative price",
			identity: customer,
			req:      CheckoutRequest{Items: []CartItem{{ID: 1, Price: d("-1"), Quantity: 1}}, PaymentMethodID: 1, Total: d("-1")},
			kind:     shared.KindValidation,
		},
		{
			name:     "duplicate product",
			identity: customer,
			req:      CheckoutRequest{Items: []CartItem{{ID: 1, Price: d("10"), Quantity: 1}, {ID: 1, Price: d("10"), Quantity: 1}}, PaymentMethodID: 1, Total: d("20")},
			kind:     shared.KindValidation,
			message:  "product 1 appears more than once in the cart",
		},
		{
			name:     "total mismatch",
			identity: customer,
			req:      CheckoutRequest{Items: []CartItem{{ID: 1, Price: d("10"), Quantity: 2}}, PaymentMethodID: 1, Total: d("15")},
			kind:     shared.KindValidation,
			message:  "total 15.00 does not match the cart total 20.00",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := seededDB()
			uc := newCheckout(t, db, nil, nil)

			_, err := uc.Checkout(context.Background(), tt.identity, tt.req)

			requireAppError(t, err, tt.kind, tt.message)
			assert.Nil(t, db.snapshot, "transaction must not be opened")
			assert.Empty(t, db.orders)
			assert.Equal(t, 5, db.products[1].Stock)
		})
	}
}

func TestCheckout_RejectsInsideTransaction(t *testing.T) {
	cart := []CartItem{{ID: 1, Price: d("10"), Quantity: 1}}

	tests := []struct {
		name    string
		setup   func(db *memoryDB)
		method  int64
		kind    shared.Kind
		message string
	}{
		{
			name:    "person is admin in the database",
			setup:   func(db *memoryDB) { db.people[customerCPF] = Customer{CPF: customerCPF, Role: auth.RoleAdmin} },
			method:  1,
			kind:    shared.KindForbidden,
			message: "administrators cannot place orders, use a customer account",
		},
		{
			name:    "person missing",
			setup:   func(db *memoryDB) { delete(db.people, customerCPF) },
			method:  1,
			kind:    shared.KindNotFound,
			message: "customer not found",
		},
		{
			name:    "person without customer row",
			setup:   func(db *memoryDB) { db.people[customerCPF] = Customer{CPF: customerCPF, Role: auth.RoleCustomer} },
			method:  1,
			kind:    shared.KindNotFound,
			message: "customer not found",
		},
		{
			name:    "payment method missing",
			method:  42,
			kind:    shared.KindValidation,
			message: "payment method not found",
		},
		{
			name:    "no handler",
			setup:   func(db *memoryDB) { db.employees = map[string]bool{} },
			method:  1,
			kind:    shared.KindInternal,
			message: "no employee available to process the order",
		},
		{
			name:    "product missing",
			setup:   func(db *memoryDB) { delete(db.products, 1) },
			method:  1,
			kind:    shared.KindNotFound,
			message: "product 1 not found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := seededDB()
			if tt.setup != nil {
				tt.setup(db)
			}
			uc := newCheckout(t, db, nil, nil)

			_, err := uc.Checkout(context.Background(), customer, CheckoutRequest{Items: cart, PaymentMethodID: tt.method, Total: d("10")})

			requireAppError(t, err, tt.kind, tt.message)
			assert.Empty(t, db.orders)
			assert.Zero(t, db.commits)
		})
	}
}

func TestCheckout_Policies(t *testing.T) {
	t.Run("custom handler policy", func(t *testing.T) {
		db := seededDB()
		db.people["55555555555"] = Customer{CPF: "55555555555", Role: auth.RoleEmployee}
		db.employees["55555555555"] = true
		var seen *Customer
		policy := HandlerPolicyFunc(func(ctx context.Context, tx shared.Tx, c *Customer) (string, error) {
			seen = c
			return "55555555555", nil
		})
		uc := newCheckout(t, db, policy, nil)

		result, err := uc.Checkout(context.Background(), customer, CheckoutRequest{
			Items: []CartItem{{ID: 1, Price: d("10"), Quantity: 1}}, PaymentMethodID: 2, Total: d("10"),
		})

		require.NoError(t, err)
		assert.Equal(t, "55555555555", db.orders[result.Order.ID].EmployeeCPF)
		assert.Equal(t, customerCPF, seen.CPF)
	})

	t.Run("first admin employee picks lowest cpf", func(t *testing.T) {
		db := seededDB()
		db.addAdminEmployee("00000000000")
		uc := newCheckout(t, db, nil, nil)

		result, err := uc.Checkout(context.Background(), customer, CheckoutRequest{
			Items: []CartItem{{ID: 1, Price: d("10"), Quantity: 1}}, PaymentMethodID: 1, Total: d("10"),
		})

		require.NoError(t, err)
		assert.Equal(t, "00000000000", db.orders[result.Order.ID].EmployeeCPF)
	})

	t.Run("client price is recorded by default", func(t *testing.T) {
		db := seededDB()
		uc := newCheckout(t, db, nil, nil)

		result, err := uc.Checkout(context.Background(), customer, CheckoutRequest{
			Items: []CartItem{{ID: 1, Price: d("1.99"), Quantity: 1}}, PaymentMethodID: 1, Total: d("1.99"),
		})

		require.NoError(t, err)
		assert.True(t, d("1.99").Equal(db.items[result.Order.ID][1].UnitPrice))
	})

	t.Run("catalog price rejects stale price", func(t *testing.T) {
		db := seededDB()
		uc := newCheckout(t, db, nil, CatalogPrice{})

		_, err := uc.Checkout(context.Background(), customer, CheckoutRequest{
			Items: []CartItem{{ID: 1, Price: d("1.99"), Quantity: 1}}, PaymentMethodID: 1, Total: d("1.99"),
		})

		requireAppError(t, err, shared.KindValidation, "price of product Urso changed: current 10.00, submitted 1.99")
		assert.Equal(t, 5, db.products[1].Stock)
		assert.Empty(t, db.orders)
	})
}

func TestCheckout_StockIsConserved(t *testing.T) {
	db := seededDB()
	uc := newCheckout(t, db, nil, nil)
	initial := map[int64]int{1: db.products[1].Stock, 2: db.products[2].Stock}

	carts := [][]CartItem{
		{{ID: 1, Price: d("10"), Quantity: 2}},
		{{ID: 1, Price: d("10"), Quantity: 1}, {ID: 2, Price: d("7.50"), Quantity: 2}},
		{{ID: 2, Price: d("7.50"), Quantity: 5}},
		{{ID: 1, Price: d("10"), Quantity: 3}},
		{{ID: 1, Price: d("10"), Quantity: 2}, {ID: 2, Price: d("7.50"), Quantity: 1}},
	}

	for _, items := range carts {
		cart := Cart{Items: items}
		_, _ = uc.Checkout(context.Background(), customer, CheckoutRequest{Items: items, PaymentMethodID: 1, Total: cart.Total()})

		for id, start := range initial {
			assert.Equal(t, start, db.products[id].Stock+db.totalUnitsSold(id))
			assert.GreaterOrEqual(t, db.products[id].Stock, 0)
		}
	}

	assert.Equal(t, 0, db.products[1].Stock)
	assert.Equal(t, 0, db.products[2].Stock)
}

func TestCheckout_RecordsMetrics(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	db := seededDB()
	uc, err := NewCheckoutUseCase(db, nil, nil, tracenoop.NewTracerProvider().Tracer("test"), provider.Meter("test"))
	require.NoError(t, err)

	_, err = uc.Checkout(context.Background(), customer, CheckoutRequest{
		Items: []CartItem{{ID: 1, Price: d("10"), Quantity: 2}}, PaymentMethodID: 1, Total: d("20"),
	})
	require.NoError(t, err)
	_, err = uc.Checkout(context.Background(), customer, CheckoutRequest{
		Items: []CartItem{{ID: 1, Price: d("10"), Quantity: 50}}, PaymentMethodID: 1, Total: d("500"),
	})
	require.Error(t, err)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	sums := map[string]int64{}
	for _, scope := range rm.ScopeMetrics {
		for _, m := range scope.Metrics {
			if data, ok := m.Data.(metricdata.Sum[int64]); ok {
				for _, dp := range data.DataPoints {
					sums[m.Name] += dp.Value
				}
			}
		}
	}

	assert.Equal(t, int64(1), sums["checkout.completed"])
	assert.Equal(t, int64(1), sums["checkout.rejected"])
	assert.Equal(t, int64(2), sums["checkout.items"])
}

func orderInput(items []OrderItem, total string, allocations ...Allocation) OrderInput {
	return OrderInput{
		OrderDate:    "2025-02-01",
		CustomerCPF:  customerCPF,
		EmployeeCPF:  adminCPF,
		Items:        items,
		PaymentTotal: d(total),
		Allocations:  allocations,
	}
}

func TestOrderUseCase_CreateDoesNotTouchStock(t *testing.T) {
	db := seededDB()
	uc := NewOrderUseCase(db)

	summary, err := uc.Create(context.Background(), orderInput([]OrderItem{{ProductID: 1, Quantity: 4, UnitPrice: d("10")}}, "0"))

	require.NoError(t, err)
	assert.Equal(t, 5, db.products[1].Stock)
	assert.Nil(t, summary.PaymentID)
	assert.True(t, summary.Total.IsZero())
	assert.Equal(t, "2025-02-01", summary.OrderDate.Format(dateLayout))
}

func TestOrderUseCase_UpdateIsFullReplace(t *testing.T) {
	db := seededDB()
	uc := NewOrderUseCase(db)
	ctx := context.Background()

	created, err := uc.Create(ctx, orderInput(
		[]OrderItem{{ProductID: 1, Quantity: 1, UnitPrice: d("10")}, {ProductID: 2, Quantity: 2, UnitPrice: d("7.50")}},
		"25", Allocation{MethodID: 1, Amount: d("25")},
	))
	require.NoError(t, err)

	updated, err := uc.Update(ctx, created.ID, orderInput(
		[]OrderItem{{ProductID: 2, Quantity: 1, UnitPrice: d("7")}},
		"7", Allocation{MethodID: 2, Amount: d("7")},
	))
	require.NoError(t, err)

	detail, err := uc.Get(ctx, customer, created.ID)
	require.NoError(t, err)
	require.Len(t, detail.Items, 1)
	assert.Equal(t, int64(2), detail.Items[0].ProductID)
	assert.True(t, d("7").Equal(detail.Items[0].UnitPrice))
	require.Len(t, detail.Allocations, 1)
	assert.Equal(t, "Boleto", detail.Allocations[0].MethodName)
	assert.True(t, d("7").Equal(updated.Total))
	assert.Equal(t, created.PaymentID, updated.PaymentID)
	assert.Len(t, db.payments, 1)
	assert.Equal(t, 5, db.products[1].Stock)
}

func TestOrderUseCase_UpdateCreatesMissingPayment(t *testing.T) {
	db := seededDB()
	uc := NewOrderUseCase(db)
	ctx := context.Background()

	created, err := uc.Create(ctx, orderInput([]OrderItem{{ProductID: 1, Quantity: 1, UnitPrice: d("10")}}, "0"))
	require.NoError(t, err)

	updated, err := uc.Update(ctx, created.ID, orderInput([]OrderItem{{ProductID: 1, Quantity: 1, UnitPrice: d("10")}}, "10", Allocation{MethodID: 1, Amount: d("10")}))

	require.NoError(t, err)
	require.NotNil(t, updated.PaymentID)
	assert.Len(t, db.allocations[*updated.PaymentID], 1)
}

func TestOrderUseCase_UpdateMissingOrder(t *testing.T) {
	db := seededDB()
	_, err := NewOrderUseCase(db).Update(context.Background(), 77, orderInput(nil, "0"))

	requireAppError(t, err, shared.KindNotFound, "order not found")
}

func TestOrderUseCase_DeleteLeavesNoOrphans(t *testing.T) {
	db := seededDB()
	checkout := newCheckout(t, db, nil, nil)
	orders := NewOrderUseCase(db)
	ctx := context.Background()

	result, err := checkout.Checkout(ctx, customer, CheckoutRequest{
		Items:           []CartItem{{ID: 1, Price: d("10"), Quantity: 1}, {ID: 2, Price: d("7.50"), Quantity: 1}},
		PaymentMethodID: 1,
		Total:           d("17.50"),
	})
	require.NoError(t, err)
	withoutPayment, err := orders.Create(ctx, orderInput([]OrderItem{{ProductID: 1, Quantity: 1, UnitPrice: d("10")}}, "0"))
	require.NoError(t, err)

	require.NoError(t, orders.Delete(ctx, result.Order.ID))
	require.NoError(t, orders.Delete(ctx, withoutPayment.ID))

	assert.Empty(t, db.orders)
	assert.Empty(t, db.payments)
	assert.Zero(t, db.orphanCount())

	requireAppError(t, orders.Delete(ctx, result.Order.ID), shared.KindNotFound, "order not found")
}

func TestOrderUseCase_GetOwnership(t *testing.T) {
	db := seededDB()
	db.addCustomer("22222222222", "Bia")
	uc := NewOrderUseCase(db)
	ctx := context.Background()

	created, err := uc.Create(ctx, orderInput([]OrderItem{{ProductID: 1, Quantity: 1, UnitPrice: d("10")}}, "0"))
	require.NoError(t, err)

	_, err = uc.Get(ctx, &auth.Identity{CPF: "22222222222", Role: auth.RoleCustomer}, created.ID)
	requireAppError(t, err, shared.KindForbidden, "")

	_, err = uc.Get(ctx, &auth.Identity{CPF: adminCPF, Role: auth.RoleAdmin}, created.ID)
	assert.NoError(t, err)

	_, err = uc.Get(ctx, customer, 999)
	requireAppError(t, err, shared.KindNotFound, "")
}

func TestOrderInputValidation(t *testing.T) {
	tests := []struct {
		name string
		in   OrderInput
	}{
		{name: "bad date", in: OrderInput{OrderDate: "01/02/2025", CustomerCPF: customerCPF, EmployeeCPF: adminCPF}},
		{name: "missing employee", in: OrderInput{CustomerCPF: customerCPF}},
		{name: "zero quantity", in: orderInput([]OrderItem{{ProductID: 1, Quantity: 0}}, "0")},
		{name: "duplicate product", in: orderInput([]OrderItem{{ProductID: 1, Quantity: 1}, {ProductID: 1, Quantity: 2}}, "0")},
		{name: "negative total", in: orderInput(nil, "-1")},
		{name: "duplicate method", in: orderInput(nil, "10", Allocation{MethodID: 1, Amount: d("5")}, Allocation{MethodID: 1, Amount: d("5")})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := seededDB()
			_, err := NewOrderUseCase(db).Create(context.Background(), tt.in)

			requireAppError(t, err, shared.KindValidation, "")
			assert.Empty(t, db.orders)
		})
	}
}

func TestMine(t *testing.T) {
	db := seededDB()
	db.addCustomer("22222222222", "Bia")
	checkout := newCheckout(t, db, nil, nil)
	ctx := context.Background()

	_, err := checkout.Checkout(ctx, customer, CheckoutRequest{Items: []CartItem{{ID: 1, Price: d("10"), Quantity: 1}}, PaymentMethodID: 1, Total: d("10")})
	require.NoError(t, err)
	_, err = checkout.Checkout(ctx, &auth.Identity{CPF: "22222222222", Role: auth.RoleCustomer}, CheckoutRequest{Items: []CartItem{{ID: 2, Price: d("7.50"), Quantity: 1}}, PaymentMethodID: 1, Total: d("7.50")})
	require.NoError(t, err)

	mine, err := NewOrderUseCase(db).Mine(ctx, customerCPF)

	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Len(t, mine[0].Items, 1)
	assert.Len(t, mine[0].Allocations, 1)
	assert.True(t, d("10").Equal(mine[0].Total))
}
