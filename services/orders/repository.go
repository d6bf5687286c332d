package orders

import (
	"context"
	"errors"
	"fmt"

	"github.com/helo0ks/heloyse4bimestre/services/shared"
	"github.com/jackc/pgx/v5"
)

var (
	ErrCustomerNotFound      = errors.New("customer not found")
	ErrProductNotFound       = errors.New("product not found")
	ErrPaymentMethodNotFound = errors.New("payment method not found")
	ErrOrderNotFound         = errors.New("order not found")
	ErrPaymentNotFound       = errors.New("payment not found")
	ErrInsufficientStock     = errors.New("insufficient stock")
)

// CheckoutRepository define as operações usadas dentro da transação de checkout
type CheckoutRepository interface {
	BeginTx(ctx context.Context) (shared.Tx, error)
	GetCustomerForShare(ctx context.Context, tx shared.Tx, cpf string) (*Customer, error)
	GetPaymentMethod(ctx context.Context, tx shared.Tx, id int64) (*PaymentMethod, error)
	FirstAdminEmployee(ctx context.Context, tx shared.Tx) (string, error)
	GetProductForUpdate(ctx context.Context, tx shared.Tx, id int64) (*Product, error)
	DecreaseStock(ctx context.Context, tx shared.Tx, productID int64, quantity int) error
	InsertOrder(ctx context.Context, tx shared.Tx, o *Order) error
	InsertItem(ctx context.Context, tx shared.Tx, orderID int64, item OrderItem) error
	InsertPayment(ctx context.Context, tx shared.Tx, p *Payment) error
	InsertAllocation(ctx context.Context, tx shared.Tx, paymentID int64, a Allocation) error
}

// OrderRepository define as operações administrativas e de leitura de pedidos
type OrderRepository interface {
	BeginTx(ctx context.Context) (shared.Tx, error)
	InsertOrder(ctx context.Context, tx shared.Tx, o *Order) error
	InsertItem(ctx context.Context, tx shared.Tx, orderID int64, item OrderItem) error
	InsertPayment(ctx context.Context, tx shared.Tx, p *Payment) error
	InsertAllocation(ctx context.Context, tx shared.Tx, paymentID int64, a Allocation) error
	LockOrder(ctx context.Context, tx shared.Tx, id int64) error
	UpdateOrder(ctx context.Context, tx shared.Tx, o *Order) error
	DeleteItems(ctx context.Context, tx shared.Tx, orderID int64) error
	GetPaymentForUpdate(ctx context.Context, tx shared.Tx, orderID int64) (*Payment, error)
	UpdatePayment(ctx context.Context, tx shared.Tx, p *Payment) error
	DeleteAllocations(ctx context.Context, tx shared.Tx, paymentID int64) error
	DeletePayment(ctx context.Context, tx shared.Tx, paymentID int64) error
	DeleteOrder(ctx context.Context, tx shared.Tx, id int64) error

	ListOrders(ctx context.Context) ([]OrderSummary, error)
	ListOrdersByCustomer(ctx context.Context, cpf string) ([]OrderSummary, error)
	GetOrderSummary(ctx context.Context, id int64) (*OrderSummary, error)
	ListItems(ctx context.Context, orderID int64) ([]ItemView, error)
	ListAllocations(ctx context.Context, orderID int64) ([]AllocationView, error)
}

// LookupRepository define as listas de seleção dos formulários de pedido
type LookupRepository interface {
	ListCustomers(ctx context.Context) ([]PersonRef, error)
	ListEmployees(ctx context.Context) ([]PersonRef, error)
	ListProductsInStock(ctx context.Context) ([]ProductRef, error)
	ListPaymentMethods(ctx context.Context) ([]PaymentMethod, error)
}

// PostgresRepository implementa os repositórios de pedidos
type PostgresRepository struct {
	db shared.Pool
}

// NewPostgresRepository cria uma nova instância do repositório
func NewPostgresRepository(db shared.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) BeginTx(ctx context.Context) (shared.Tx, error) {
	return shared.BeginTx(ctx, r.db)
}

// GetCustomerForShare lê a pessoa com FOR SHARE para impedir a remoção durante o checkout
func (r *PostgresRepository) GetCustomerForShare(ctx context.Context, tx shared.Tx, cpf string) (*Customer, error) {
	var c Customer
	err := shared.Pgx(tx).QueryRow(ctx, `
		SELECT p.cpf, p.name, p.email, p.role, c.person_cpf IS NOT NULL
		FROM people p
		LEFT JOIN customers c ON c.person_cpf = p.cpf
		WHERE p.cpf = $1
		FOR SHARE OF p`, cpf,
	).Scan(&c.CPF, &c.Name, &c.Email, &c.Role, &c.IsCustomer)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrCustomerNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get customer: %w", err)
	}
	return &c, nil
}

func (r *PostgresRepository) GetPaymentMethod(ctx context.Context, tx shared.Tx, id int64) (*PaymentMethod, error) {
	var m PaymentMethod
	err := shared.Pgx(tx).QueryRow(ctx, `SELECT id, name FROM payment_methods WHERE id = $1`, id).Scan(&m.ID, &m.Name)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrPaymentMethodNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get payment method: %w", err)
	}
	return &m, nil
}

// FirstAdminEmployee devolve o cpf do funcionário administrador de menor cpf
func (r *PostgresRepository) FirstAdminEmployee(ctx context.Context, tx shared.Tx) (string, error) {
	var cpf string
	err := shared.Pgx(tx).QueryRow(ctx, `
		SELECT e.person_cpf
		FROM employees e
		JOIN people p ON p.cpf = e.person_cpf
		WHERE p.role = 'admin'
		ORDER BY e.person_cpf
		LIMIT 1`,
	).Scan(&cpf)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrNoHandlerAvailable
	}
	if err != nil {
		return "", fmt.Errorf("failed to find handler: %w", err)
	}
	return cpf, nil
}

// GetProductForUpdate lê o produto com lock pessimista (SELECT FOR UPDATE)
func (r *PostgresRepository) GetProductForUpdate(ctx context.Context, tx shared.Tx, id int64) (*Product, error) {
	var p Product
	err := shared.Pgx(tx).QueryRow(ctx, `
		SELECT id, name, price, stock FROM products WHERE id = $1 FOR UPDATE`, id,
	).Scan(&p.ID, &p.Name, &p.Price, &p.Stock)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock product: %w", err)
	}
	return &p, nil
}

// DecreaseStock baixa o estoque apenas se houver saldo suficiente
func (r *PostgresRepository) DecreaseStock(ctx context.Context, tx shared.Tx, productID int64, quantity int) error {
	tag, err := shared.Pgx(tx).Exec(ctx, `
		UPDATE products SET stock = stock - $1, updated_at = NOW()
		WHERE id = $2 AND stock >= $1`,
		quantity, productID,
	)
	if err != nil {
		return fmt.Errorf("failed to decrease stock: %w", err)
	}
	if tag.RowsAffected() != 1 {
		return ErrInsufficientStock
	}
	return nil
}

func (r *PostgresRepository) InsertOrder(ctx context.Context, tx shared.Tx, o *Order) error {
	err := shared.Pgx(tx).QueryRow(ctx, `
		INSERT INTO orders (order_date, customer_cpf, employee_cpf)
		VALUES (COALESCE($1, CURRENT_DATE), $2, $3)
		RETURNING id, order_date`,
		nullableDate(o), o.CustomerCPF, o.EmployeeCPF,
	).Scan(&o.ID, &o.OrderDate)
	if err != nil {
		return fmt.Errorf("failed to insert order: %w", err)
	}
	return nil
}

func (r *PostgresRepository) InsertItem(ctx context.Context, tx shared.Tx, orderID int64, item OrderItem) error {
	_, err := shared.Pgx(tx).Exec(ctx, `
		INSERT INTO order_items (order_id, product_id, quantity, unit_price)
		VALUES ($1, $2, $3, $4)`,
		orderID, item.ProductID, item.Quantity, item.UnitPrice,
	)
	if err != nil {
		return fmt.Errorf("failed to insert order item: %w", err)
	}
	return nil
}

func (r *PostgresRepository) InsertPayment(ctx context.Context, tx shared.Tx, p *Payment) error {
	err := shared.Pgx(tx).QueryRow(ctx, `
		INSERT INTO payments (order_id, paid_at, total)
		VALUES ($1, NOW(), $2)
		RETURNING id, paid_at`,
		p.OrderID, p.Total,
	).Scan(&p.ID, &p.PaidAt)
	if err != nil {
		return fmt.Errorf("failed to insert payment: %w", err)
	}
	return nil
}

func (r *PostgresRepository) InsertAllocation(ctx context.Context, tx shared.Tx, paymentID int64, a Allocation) error {
	_, err := shared.Pgx(tx).Exec(ctx, `
		INSERT INTO payment_allocations (payment_id, method_id, amount)
		VALUES ($1, $2, $3)`,
		paymentID, a.MethodID, a.Amount,
	)
	if err != nil {
		return fmt.Errorf("failed to insert payment allocation: %w", err)
	}
	return nil
}

// LockOrder trava o pedido (SELECT FOR UPDATE); ErrOrderNotFound se ausente
func (r *PostgresRepository) LockOrder(ctx context.Context, tx shared.Tx, id int64) error {
	var locked int64
	err := shared.Pgx(tx).QueryRow(ctx, `SELECT id FROM orders WHERE id = $1 FOR UPDATE`, id).Scan(&locked)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrOrderNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to lock order: %w", err)
	}
	return nil
}

func (r *PostgresRepository) UpdateOrder(ctx context.Context, tx shared.Tx, o *Order) error {
	tag, err := shared.Pgx(tx).Exec(ctx, `
		UPDATE orders SET order_date = $1, customer_cpf = $2, employee_cpf = $3
		WHERE id = $4`,
		o.OrderDate, o.CustomerCPF, o.EmployeeCPF, o.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update order: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrOrderNotFound
	}
	return nil
}

func (r *PostgresRepository) DeleteItems(ctx context.Context, tx shared.Tx, orderID int64) error {
	if _, err := shared.Pgx(tx).Exec(ctx, `DELETE FROM order_items WHERE order_id = $1`, orderID); err != nil {
		return fmt.Errorf("failed to delete order items: %w", err)
	}
	return nil
}

func (r *PostgresRepository) GetPaymentForUpdate(ctx context.Context, tx shared.Tx, orderID int64) (*Payment, error) {
	var p Payment
	err := shared.Pgx(tx).QueryRow(ctx, `
		SELECT id, order_id, total, paid_at FROM payments WHERE order_id = $1 FOR UPDATE`, orderID,
	).Scan(&p.ID, &p.OrderID, &p.Total, &p.PaidAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrPaymentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock payment: %w", err)
	}
	return &p, nil
}

func (r *PostgresRepository) UpdatePayment(ctx context.Context, tx shared.Tx, p *Payment) error {
	err := shared.Pgx(tx).QueryRow(ctx, `
		UPDATE payments SET total = $1, paid_at = NOW() WHERE id = $2
		RETURNING paid_at`,
		p.Total, p.ID,
	).Scan(&p.PaidAt)
	if err != nil {
		return fmt.Errorf("failed to update payment: %w", err)
	}
	return nil
}

func (r *PostgresRepository) DeleteAllocations(ctx context.Context, tx shared.Tx, paymentID int64) error {
	if _, err := shared.Pgx(tx).Exec(ctx, `DELETE FROM payment_allocations WHERE payment_id = $1`, paymentID); err != nil {
		return fmt.Errorf("failed to delete payment allocations: %w", err)
	}
	return nil
}

func (r *PostgresRepository) DeletePayment(ctx context.Context, tx shared.Tx, paymentID int64) error {
	if _, err := shared.Pgx(tx).Exec(ctx, `DELETE FROM payments WHERE id = $1`, paymentID); err != nil {
		return fmt.Errorf("failed to delete payment: %w", err)
	}
	return nil
}

func (r *PostgresRepository) DeleteOrder(ctx context.Context, tx shared.Tx, id int64) error {
	tag, err := shared.Pgx(tx).Exec(ctx, `DELETE FROM orders WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete order: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrOrderNotFound
	}
	return nil
}

const summarySelect = `
	SELECT o.id, o.order_date, o.customer_cpf, cp.name, cp.email,
	       o.employee_cpf, ep.name, COALESCE(pay.total, 0), pay.paid_at, pay.id
	FROM orders o
	JOIN people cp ON cp.cpf = o.customer_cpf
	JOIN people ep ON ep.cpf = o.employee_cpf
	LEFT JOIN payments pay ON pay.order_id = o.id`

func scanSummary(row pgx.Row) (*OrderSummary, error) {
	var s OrderSummary
	err := row.Scan(&s.ID, &s.OrderDate, &s.CustomerCPF, &s.CustomerName, &s.CustomerEmail,
		&s.EmployeeCPF, &s.EmployeeName, &s.Total, &s.PaidAt, &s.PaymentID)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *PostgresRepository) querySummaries(ctx context.Context, query string, args ...any) ([]OrderSummary, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	defer rows.Close()

	summaries := []OrderSummary{}
	for rows.Next() {
		s, err := scanSummary(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		summaries = append(summaries, *s)
	}
	return summaries, rows.Err()
}

func (r *PostgresRepository) ListOrders(ctx context.Context) ([]OrderSummary, error) {
	return r.querySummaries(ctx, summarySelect+` ORDER BY o.order_date DESC, o.id DESC`)
}

func (r *PostgresRepository) ListOrdersByCustomer(ctx context.Context, cpf string) ([]OrderSummary, error) {
	return r.querySummaries(ctx, summarySelect+` WHERE o.customer_cpf = $1 ORDER BY o.order_date DESC, o.id DESC`, cpf)
}

func (r *PostgresRepository) GetOrderSummary(ctx context.Context, id int64) (*OrderSummary, error) {
	s, err := scanSummary(r.db.QueryRow(ctx, summarySelect+` WHERE o.id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	return s, nil
}

func (r *PostgresRepository) ListItems(ctx context.Context, orderID int64) ([]ItemView, error) {
	rows, err := r.db.Query(ctx, `
		SELECT oi.product_id, p.name, oi.quantity, oi.unit_price, oi.quantity * oi.unit_price
		FROM order_items oi
		JOIN products p ON p.id = oi.product_id
		WHERE oi.order_id = $1
		ORDER BY oi.product_id`, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to list order items: %w", err)
	}
	defer rows.Close()

	items := []ItemView{}
	for rows.Next() {
		var it ItemView
		if err := rows.Scan(&it.ProductID, &it.ProductName, &it.Quantity, &it.UnitPrice, &it.Subtotal); err != nil {
			return nil, fmt.Errorf("failed to scan order item: %w", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func (r *PostgresRepository) ListAllocations(ctx context.Context, orderID int64) ([]AllocationView, error) {
	rows, err := r.db.Query(ctx, `
		SELECT pa.method_id, pm.name, pa.amount
		FROM payment_allocations pa
		JOIN payments pay ON pay.id = pa.payment_id
		JOIN payment_methods pm ON pm.id = pa.method_id
		WHERE pay.order_id = $1
		ORDER BY pa.method_id`, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to list payment allocations: %w", err)
	}
	defer rows.Close()

	allocations := []AllocationView{}
	for rows.Next() {
		var a AllocationView
		if err := rows.Scan(&a.MethodID, &a.MethodName, &a.Amount); err != nil {
			return nil, fmt.Errorf("failed to scan payment allocation: %w", err)
		}
		allocations = append(allocations, a)
	}
	return allocations, rows.Err()
}

func (r *PostgresRepository) listPeople(ctx context.Context, table string) ([]PersonRef, error) {
	rows, err := r.db.Query(ctx, `
		SELECT p.cpf, p.name, p.email
		FROM `+table+` x
		JOIN people p ON p.cpf = x.person_cpf
		ORDER BY p.name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", table, err)
	}
	defer rows.Close()

	people := []PersonRef{}
	for rows.Next() {
		var p PersonRef
		if err := rows.Scan(&p.CPF, &p.Name, &p.Email); err != nil {
			return nil, fmt.Errorf("failed to scan %s: %w", table, err)
		}
		people = append(people, p)
	}
	return people, rows.Err()
}

func (r *PostgresRepository) ListCustomers(ctx context.Context) ([]PersonRef, error) {
	return r.listPeople(ctx, "customers")
}

func (r *PostgresRepository) ListEmployees(ctx context.Context) ([]PersonRef, error) {
	return r.listPeople(ctx, "employees")
}

func (r *PostgresRepository) ListProductsInStock(ctx context.Context) ([]ProductRef, error) {
	rows, err := r.db.Query(ctx, `SELECT id, name, price, stock FROM products WHERE stock > 0 ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	defer rows.Close()

	products := []ProductRef{}
	for rows.Next() {
		var p ProductRef
		if err := rows.Scan(&p.ID, &p.Name, &p.Price, &p.Stock); err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

func (r *PostgresRepository) ListPaymentMethods(ctx context.Context) ([]PaymentMethod, error) {
	rows, err := r.db.Query(ctx, `SELECT id, name FROM payment_methods ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list payment methods: %w", err)
	}
	defer rows.Close()

	methods := []PaymentMethod{}
	for rows.Next() {
		var m PaymentMethod
		if err := rows.Scan(&m.ID, &m.Name); err != nil {
			return nil, fmt.Errorf("failed to scan payment method: %w", err)
		}
		methods = append(methods, m)
	}
	return methods, rows.Err()
}

// nullableDate devolve nil para usar CURRENT_DATE quando o pedido não tem data
func nullableDate(o *Order) any {
	if o.OrderDate.IsZero() {
		return nil
	}
	return o.OrderDate
}
