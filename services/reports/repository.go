package reports

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// Repository define as consultas de agregação dos relatórios
type Repository interface {
	SalesByProduct(ctx context.Context) ([]ProductSales, error)
	SalesByPeriod(ctx context.Context, f PeriodFilter) ([]PeriodSales, error)
	CustomerSpending(ctx context.Context) ([]CustomerSpending, error)
}

// SQLRepository executa os relatórios via sqlx, podendo apontar para uma réplica de leitura
type SQLRepository struct {
	db *sqlx.DB
}

// NewSQLRepository cria uma nova instância de SQLRepository
func NewSQLRepository(db *sqlx.DB) *SQLRepository {
	return &SQLRepository{db: db}
}

const salesByProductQuery = `
	SELECT p.id AS product_id,
	       p.name AS product,
	       SUM(oi.quantity) AS quantity_sold,
	       SUM(oi.quantity * oi.unit_price) AS total_revenue
	FROM order_items oi
	JOIN products p ON p.id = oi.product_id
	GROUP BY p.id, p.name
	ORDER BY total_revenue DESC, p.id`

func (r *SQLRepository) SalesByProduct(ctx context.Context) ([]ProductSales, error) {
	rows := []ProductSales{}
	if err := r.db.SelectContext(ctx, &rows, salesByProductQuery); err != nil {
		return nil, fmt.Errorf("failed to aggregate sales by product: %w", err)
	}
	return rows, nil
}

const salesByPeriodQuery = `
	SELECT to_char(t.bucket, $2) AS period,
	       COUNT(DISTINCT t.order_id) AS total_orders,
	       COALESCE(SUM(t.quantity), 0) AS total_items,
	       COALESCE(SUM(t.quantity * t.unit_price), 0) AS total_revenue
	FROM (
	    SELECT date_trunc($1::text, o.order_date::timestamp) AS bucket,
	           o.id AS order_id,
	           oi.quantity,
	           oi.unit_price
	    FROM orders o
	    LEFT JOIN order_items oi ON oi.order_id = o.id
	    WHERE ($3::date IS NULL OR o.order_date >= $3::date)
	      AND ($4::date IS NULL OR o.order_date <= $4::date)
	) t
	GROUP BY t.bucket
	ORDER BY t.bucket`

// SalesByPeriod agrupa pedidos por dia, semana ou mês
func (r *SQLRepository) SalesByPeriod(ctx context.Context, f PeriodFilter) ([]PeriodSales, error) {
	rows := []PeriodSales{}
	err := r.db.SelectContext(ctx, &rows, salesByPeriodQuery,
		string(f.Granularity), f.Granularity.Label(), f.From, f.To)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate sales by period: %w", err)
	}
	return rows, nil
}

const customerSpendingQuery = `
	SELECT p.cpf,
	       p.name,
	       p.email,
	       COUNT(DISTINCT o.id) AS total_orders,
	       COALESCE(SUM(pay.total), 0) AS total_spent
	FROM customers c
	JOIN people p ON p.cpf = c.person_cpf
	LEFT JOIN orders o ON o.customer_cpf = c.person_cpf
	LEFT JOIN payments pay ON pay.order_id = o.id
	GROUP BY p.cpf, p.name, p.email
	ORDER BY total_spent DESC, p.name`

// CustomerSpending inclui clientes sem pedidos
func (r *SQLRepository) CustomerSpending(ctx context.Context) ([]CustomerSpending, error) {
	rows := []CustomerSpending{}
	if err := r.db.SelectContext(ctx, &rows, customerSpendingQuery); err != nil {
		return nil, fmt.Errorf("failed to aggregate customer spending: %w", err)
	}
	return rows, nil
}
