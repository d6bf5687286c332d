package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/helo0ks/heloyse4bimestre/services/auth"
	"github.com/helo0ks/heloyse4bimestre/services/shared"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// CheckoutUseCase finaliza o carrinho em uma única transação
type CheckoutUseCase struct {
	repository    CheckoutRepository
	handlerPolicy HandlerPolicy
	pricePolicy   PricePolicy
	tracer        trace.Tracer

	completed metric.Int64Counter
	rejected  metric.Int64Counter
	items     metric.Int64Counter
}

// NewCheckoutUseCase cria uma nova instância de CheckoutUseCase.
// Políticas nil usam FirstAdminEmployee e TrustClientPrice.
func NewCheckoutUseCase(
	repository CheckoutRepository,
	handlerPolicy HandlerPolicy,
	pricePolicy PricePolicy,
	tracer trace.Tracer,
	meter metric.Meter,
) (*CheckoutUseCase, error) {
	if handlerPolicy == nil {
		handlerPolicy = FirstAdminEmployee(repository)
	}
	if pricePolicy == nil {
		pricePolicy = TrustClientPrice{}
	}

	completed, err := meter.Int64Counter("checkout.completed",
		metric.WithDescription("Carts turned into orders"))
	if err != nil {
		return nil, fmt.Errorf("failed to create checkout.completed counter: %w", err)
	}
	rejected, err := meter.Int64Counter("checkout.rejected",
		metric.WithDescription("Checkouts rolled back, by reason"))
	if err != nil {
		return nil, fmt.Errorf("failed to create checkout.rejected counter: %w", err)
	}
	items, err := meter.Int64Counter("checkout.items",
		metric.WithDescription("Units sold through checkout"))
	if err != nil {
		return nil, fmt.Errorf("failed to create checkout.items counter: %w", err)
	}

	return &CheckoutUseCase{
		repository:    repository,
		handlerPolicy: handlerPolicy,
		pricePolicy:   pricePolicy,
		tracer:        tracer,
		completed:     completed,
		rejected:      rejected,
		items:         items,
	}, nil
}

func (uc *CheckoutUseCase) reject(ctx context.Context, reason string, err error) error {
	uc.rejected.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
	return err
}

// Checkout valida o carrinho e grava pedido, itens, baixa de estoque, pagamento e alocação.
// Qualquer falha desfaz a transação inteira.
func (uc *CheckoutUseCase) Checkout(ctx context.Context, identity *auth.Identity, req CheckoutRequest) (*CheckoutResult, error) {
	if identity == nil {
		return nil, shared.Forbidden("authentication required")
	}
	if identity.IsAdmin() {
		return nil, uc.reject(ctx, "admin", shared.Forbidden("administrators cannot place orders, use a customer account"))
	}
	if req.CustomerCPF != "" && req.CustomerCPF != identity.CPF {
		return nil, uc.reject(ctx, "customer_mismatch", shared.Forbidden("cannot place orders for another customer"))
	}

	cart := req.Cart()
	if err := cart.Validate(); err != nil {
		return nil, uc.reject(ctx, "invalid_cart", err)
	}
	if expected := cart.Total(); !expected.Equal(req.Total) {
		return nil, uc.reject(ctx, "total_mismatch", shared.Validation("total %s does not match the cart total %s",
			req.Total.StringFixed(2), expected.StringFixed(2)))
	}

	log.Printf("➡️ [CHECKOUT] CPF=%s | items=%d | total=%s", identity.CPF, len(cart.Items), req.Total.StringFixed(2))

	// 1. Inicia a transação
	tx, err := uc.repository.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin checkout: %w", err)
	}
	defer tx.Rollback()

	// 2. Cliente precisa existir e não pode ser administrador
	customer, err := uc.repository.GetCustomerForShare(ctx, tx, identity.CPF)
	if errors.Is(err, ErrCustomerNotFound) {
		return nil, uc.reject(ctx, "customer_not_found", shared.NotFound("customer not found"))
	}
	if err != nil {
		return nil, err
	}
	if customer.Role == auth.RoleAdmin {
		return nil, uc.reject(ctx, "admin", shared.Forbidden("administrators cannot place orders, use a customer account"))
	}
	if !customer.IsCustomer {
		return nil, uc.reject(ctx, "customer_not_found", shared.NotFound("customer not found"))
	}

	method, err := uc.repository.GetPaymentMethod(ctx, tx, req.PaymentMethodID)
	if errors.Is(err, ErrPaymentMethodNotFound) {
		return nil, uc.reject(ctx, "payment_method", shared.Validation("payment method not found"))
	}
	if err != nil {
		return nil, err
	}

	// 3. Resolve o funcionário responsável
	handlerCPF, err := uc.handlerPolicy.AssignHandler(ctx, tx, customer)
	if errors.Is(err, ErrNoHandlerAvailable) {
		log.Printf("❌ [CHECKOUT] no handler available | CPF=%s", identity.CPF)
		return nil, uc.reject(ctx, "no_handler", shared.Internal("no employee available to process the order"))
	}
	if err != nil {
		return nil, err
	}

	// 4. Cria o pedido
	order := &Order{CustomerCPF: customer.CPF, EmployeeCPF: handlerCPF}
	if err := uc.repository.InsertOrder(ctx, tx, order); err != nil {
		return nil, err
	}

	// 5. Para cada item: lock pessimista, checa estoque, grava a linha e baixa o estoque
	units, err := uc.reserveItems(ctx, tx, order.ID, cart)
	if err != nil {
		return nil, err
	}

	// 6. Pagamento com o total enviado e uma alocação para a forma escolhida
	payment := &Payment{OrderID: order.ID, Total: req.Total}
	if err := uc.repository.InsertPayment(ctx, tx, payment); err != nil {
		return nil, err
	}
	if err := uc.repository.InsertAllocation(ctx, tx, payment.ID, Allocation{MethodID: method.ID, Amount: req.Total}); err != nil {
		return nil, err
	}

	// 7. Commit
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit checkout: %w", err)
	}

	uc.completed.Add(ctx, 1)
	uc.items.Add(ctx, units)
	log.Printf("✅ [CHECKOUT] OrderID=%d | CPF=%s | handler=%s", order.ID, customer.CPF, handlerCPF)

	return &CheckoutResult{
		Order: Receipt{
			ID:            order.ID,
			OrderDate:     order.OrderDate,
			CustomerName:  customer.Name,
			CustomerEmail: customer.Email,
			PaymentTotal:  payment.Total,
			PaidAt:        payment.PaidAt,
			PaymentMethod: method.Name,
		},
		ItemsPurchased: len(cart.Items),
	}, nil
}

func (uc *CheckoutUseCase) reserveItems(ctx context.Context, tx shared.Tx, orderID int64, cart Cart) (int64, error) {
	ctx, span := uc.tracer.Start(ctx, "checkout.reserve_items")
	defer span.End()
	span.SetAttributes(attribute.Int64("order_id", orderID), attribute.Int("lines", len(cart.Items)))

	var units int64
	for _, item := range cart.Items {
		product, err := uc.repository.GetProductForUpdate(ctx, tx, item.ID)
		if errors.Is(err, ErrProductNotFound) {
			return 0, uc.reject(ctx, "product_not_found", shared.NotFound("product %d not found", item.ID))
		}
		if err != nil {
			return 0, err
		}

		if product.Stock < item.Quantity {
			log.Printf("❌ [CHECKOUT] insufficient stock | ProductID=%d | available=%d | requested=%d",
				product.ID, product.Stock, item.Quantity)
			return 0, uc.reject(ctx, "insufficient_stock", shared.Validation(
				"insufficient stock for product %s: available %d, requested %d", product.Name, product.Stock, item.Quantity))
		}

		price, err := uc.pricePolicy.UnitPrice(item, product)
		if err != nil {
			return 0, uc.reject(ctx, "price_mismatch", err)
		}

		if err := uc.repository.InsertItem(ctx, tx, orderID, OrderItem{ProductID: product.ID, Quantity: item.Quantity, UnitPrice: price}); err != nil {
			return 0, err
		}
		if err := uc.repository.DecreaseStock(ctx, tx, product.ID, item.Quantity); err != nil {
			if errors.Is(err, ErrInsufficientStock) {
				return 0, uc.reject(ctx, "insufficient_stock", shared.Validation(
					"insufficient stock for product %s: available %d, requested %d", product.Name, product.Stock, item.Quantity))
			}
			return 0, err
		}
		units += int64(item.Quantity)
	}
	return units, nil
}

// OrderUseCase contém as operações administrativas e de consulta de pedidos
type OrderUseCase struct {
	repository OrderRepository
	now        func() time.Time
}

// NewOrderUseCase cria uma nova instância de OrderUseCase
func NewOrderUseCase(repository OrderRepository) *OrderUseCase {
	return &OrderUseCase{repository: repository, now: time.Now}
}

func (uc *OrderUseCase) List(ctx context.Context) ([]OrderSummary, error) {
	return uc.repository.ListOrders(ctx)
}

func (uc *OrderUseCase) detail(ctx context.Context, summary *OrderSummary) (*OrderDetail, error) {
	items, err := uc.repository.ListItems(ctx, summary.ID)
	if err != nil {
		return nil, err
	}
	allocations, err := uc.repository.ListAllocations(ctx, summary.ID)
	if err != nil {
		return nil, err
	}
	return &OrderDetail{OrderSummary: *summary, Items: items, Allocations: allocations}, nil
}

// Get devolve o pedido completo para administradores ou para o próprio cliente
func (uc *OrderUseCase) Get(ctx context.Context, identity *auth.Identity, id int64) (*OrderDetail, error) {
	summary, err := uc.repository.GetOrderSummary(ctx, id)
	if errors.Is(err, ErrOrderNotFound) {
		return nil, shared.NotFound("order not found")
	}
	if err != nil {
		return nil, err
	}
	if !identity.IsAdmin() && summary.CustomerCPF != identity.CPF {
		return nil, shared.Forbidden("access denied")
	}
	return uc.detail(ctx, summary)
}

// Mine lista os pedidos do cliente com itens e alocações
func (uc *OrderUseCase) Mine(ctx context.Context, cpf string) ([]OrderDetail, error) {
	summaries, err := uc.repository.ListOrdersByCustomer(ctx, cpf)
	if err != nil {
		return nil, err
	}

	details := make([]OrderDetail, 0, len(summaries))
	for i := range summaries {
		d, err := uc.detail(ctx, &summaries[i])
		if err != nil {
			return nil, err
		}
		details = append(details, *d)
	}
	return details, nil
}

func (uc *OrderUseCase) writeLines(ctx context.Context, tx shared.Tx, orderID int64, items []OrderItem) error {
	for _, item := range items {
		if err := uc.repository.InsertItem(ctx, tx, orderID, item); err != nil {
			return err
		}
	}
	return nil
}

func (uc *OrderUseCase) writeAllocations(ctx context.Context, tx shared.Tx, paymentID int64, allocations []Allocation) error {
	for _, a := range allocations {
		if err := uc.repository.InsertAllocation(ctx, tx, paymentID, a); err != nil {
			return err
		}
	}
	return nil
}

// Create grava pedido, itens e, quando payment_total > 0, pagamento e alocações. Não altera estoque.
func (uc *OrderUseCase) Create(ctx context.Context, in OrderInput) (*OrderSummary, error) {
	order, err := in.toOrder(uc.now())
	if err != nil {
		return nil, err
	}

	tx, err := uc.repository.BeginTx(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if err := uc.repository.InsertOrder(ctx, tx, order); err != nil {
		return nil, err
	}
	if err := uc.writeLines(ctx, tx, order.ID, in.Items); err != nil {
		return nil, err
	}

	if in.PaymentTotal.GreaterThan(decimal.Zero) {
		payment := &Payment{OrderID: order.ID, Total: in.PaymentTotal}
		if err := uc.repository.InsertPayment(ctx, tx, payment); err != nil {
			return nil, err
		}
		if err := uc.writeAllocations(ctx, tx, payment.ID, in.Allocations); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit order: %w", err)
	}

	log.Printf("✅ [ORDER] created OrderID=%d | lines=%d", order.ID, len(in.Items))
	return uc.repository.GetOrderSummary(ctx, order.ID)
}

// Update substitui por completo os itens e, quando payment_total > 0, o pagamento e suas alocações
func (uc *OrderUseCase) Update(ctx context.Context, id int64, in OrderInput) (*OrderSummary, error) {
	order, err := in.toOrder(uc.now())
	if err != nil {
		return nil, err
	}
	order.ID = id

	tx, err := uc.repository.BeginTx(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if err := uc.repository.LockOrder(ctx, tx, id); err != nil {
		if errors.Is(err, ErrOrderNotFound) {
			return nil, shared.NotFound("order not found")
		}
		return nil, err
	}
	if err := uc.repository.UpdateOrder(ctx, tx, order); err != nil {
		return nil, err
	}

	if err := uc.repository.DeleteItems(ctx, tx, id); err != nil {
		return nil, err
	}
	if err := uc.writeLines(ctx, tx, id, in.Items); err != nil {
		return nil, err
	}

	if in.PaymentTotal.GreaterThan(decimal.Zero) {
		payment, err := uc.repository.GetPaymentForUpdate(ctx, tx, id)
		switch {
		case errors.Is(err, ErrPaymentNotFound):
			payment = &Payment{OrderID: id, Total: in.PaymentTotal}
			if err := uc.repository.InsertPayment(ctx, tx, payment); err != nil {
				return nil, err
			}
		case err != nil:
			return nil, err
		default:
			payment.Total = in.PaymentTotal
			if err := uc.repository.UpdatePayment(ctx, tx, payment); err != nil {
				return nil, err
			}
		}

		if err := uc.repository.DeleteAllocations(ctx, tx, payment.ID); err != nil {
			return nil, err
		}
		if err := uc.writeAllocations(ctx, tx, payment.ID, in.Allocations); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit order: %w", err)
	}

	log.Printf("✅ [ORDER] updated OrderID=%d | lines=%d", id, len(in.Items))
	return uc.repository.GetOrderSummary(ctx, id)
}

// Delete remove alocações, pagamento, itens e o pedido, nessa ordem
func (uc *OrderUseCase) Delete(ctx context.Context, id int64) error {
	tx, err := uc.repository.BeginTx(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := uc.repository.LockOrder(ctx, tx, id); err != nil {
		if errors.Is(err, ErrOrderNotFound) {
			return shared.NotFound("order not found")
		}
		return err
	}

	payment, err := uc.repository.GetPaymentForUpdate(ctx, tx, id)
	switch {
	case errors.Is(err, ErrPaymentNotFound):
	case err != nil:
		return err
	default:
		if err := uc.repository.DeleteAllocations(ctx, tx, payment.ID); err != nil {
			return err
		}
		if err := uc.repository.DeletePayment(ctx, tx, payment.ID); err != nil {
			return err
		}
	}

	if err := uc.repository.DeleteItems(ctx, tx, id); err != nil {
		return err
	}
	if err := uc.repository.DeleteOrder(ctx, tx, id); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit order removal: %w", err)
	}

	log.Printf("🗑️ [ORDER] deleted OrderID=%d", id)
	return nil
}

// LookupUseCase expõe as listas de seleção dos formulários
type LookupUseCase struct {
	repository LookupRepository
}

// NewLookupUseCase cria uma nova instância de LookupUseCase
func NewLookupUseCase(repository LookupRepository) *LookupUseCase {
	return &LookupUseCase{repository: repository}
}

func (uc *LookupUseCase) Customers(ctx context.Context) ([]PersonRef, error) {
	return uc.repository.ListCustomers(ctx)
}

func (uc *LookupUseCase) Employees(ctx context.Context) ([]PersonRef, error) {
	return uc.repository.ListEmployees(ctx)
}

func (uc *LookupUseCase) Products(ctx context.Context) ([]ProductRef, error) {
	return uc.repository.ListProductsInStock(ctx)
}

func (uc *LookupUseCase) PaymentMethods(ctx context.Context) ([]PaymentMethod, error) {
	return uc.repository.ListPaymentMethods(ctx)
}
