package reports

import (
	"strings"
	"time"

	"github.com/helo0ks/heloyse4bimestre/services/shared"
	"github.com/shopspring/decimal"
)

const dateLayout = "2006-01-02"

// ProductSales representa as vendas agregadas de um produto
type ProductSales struct {
	ProductID    int64           `db:"product_id" json:"product_id"`
	Product      string          `db:"product" json:"product"`
	QuantitySold int64           `db:"quantity_sold" json:"quantity_sold"`
	TotalRevenue decimal.Decimal `db:"total_revenue" json:"total_revenue"`
}

type SalesTotals struct {
	TotalQuantity int64           `json:"total_quantity"`
	TotalRevenue  decimal.Decimal `json:"total_revenue"`
}

// SalesReport é a resposta do relatório de vendas por produto
type SalesReport struct {
	Products []ProductSales `json:"products"`
	Totals   SalesTotals    `json:"totals"`
}

// PeriodSales representa as vendas de um intervalo de tempo
type PeriodSales struct {
	Period       string          `db:"period" json:"period"`
	TotalOrders  int64           `db:"total_orders" json:"total_orders"`
	TotalItems   int64           `db:"total_items" json:"total_items"`
	TotalRevenue decimal.Decimal `db:"total_revenue" json:"total_revenue"`
}

// CustomerSpending representa o histórico de compras de um cliente
type CustomerSpending struct {
	CPF         string          `db:"cpf" json:"cpf"`
	Name        string          `db:"name" json:"name"`
	Email       string          `db:"email" json:"email"`
	TotalOrders int64           `db:"total_orders" json:"total_orders"`
	TotalSpent  decimal.Decimal `db:"total_spent" json:"total_spent"`
}

type CustomerTotals struct {
	TotalCustomers  int             `json:"total_customers"`
	WithPurchase    int             `json:"with_purchase"`
	WithoutPurchase int             `json:"without_purchase"`
	TotalSpent      decimal.Decimal `json:"total_spent"`
	AverageTicket   decimal.Decimal `json:"average_ticket"`
}

// CustomerReport separa clientes com e sem compras
type CustomerReport struct {
	WithPurchases    []CustomerSpending `json:"customers_with_purchases"`
	WithoutPurchases []CustomerSpending `json:"customers_without_purchases"`
	Totals           CustomerTotals     `json:"totals"`
}

// Granularity é o tamanho do intervalo usado no agrupamento por período
type Granularity string

const (
	Day   Granularity = "day"
	Week  Granularity = "week"
	Month Granularity = "month"
)

var granularityAliases = map[string]Granularity{
	"day":    Day,
	"dia":    Day,
	"week":   Week,
	"semana": Week,
	"month":  Month,
	"mes":    Month,
	"mês":    Month,
}

// ParseGranularity aceita os nomes em inglês e em português; vazio vira mês
func ParseGranularity(raw string) (Granularity, error) {
	raw = strings.ToLower(strings.TrimSpace(raw))
	if raw == "" {
		return Month, nil
	}
	g, ok := granularityAliases[raw]
	if !ok {
		return "", shared.Validation("invalid period %q: use day, week or month", raw)
	}
	return g, nil
}

// Label devolve o formato to_char usado para rotular o intervalo
func (g Granularity) Label() string {
	switch g {
	case Day:
		return "YYYY-MM-DD"
	case Week:
		return `IYYY-"W"IW`
	default:
		return "YYYY-MM"
	}
}

// PeriodFilter delimita o relatório por período
type PeriodFilter struct {
	Granularity Granularity
	From        *time.Time
	To          *time.Time
}

// ParsePeriodFilter valida os parâmetros de consulta do relatório por período
func ParsePeriodFilter(period, from, to string) (PeriodFilter, error) {
	g, err := ParseGranularity(period)
	if err != nil {
		return PeriodFilter{}, err
	}

	f := PeriodFilter{Granularity: g}
	if f.From, err = parseDate("from", from); err != nil {
		return PeriodFilter{}, err
	}
	if f.To, err = parseDate("to", to); err != nil {
		return PeriodFilter{}, err
	}
	if f.From != nil && f.To != nil && f.To.Before(*f.From) {
		return PeriodFilter{}, shared.Validation("to must not be before from")
	}
	return f, nil
}

func parseDate(name, raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(dateLayout, raw)
	if err != nil {
		return nil, shared.Validation("invalid %s date %q: expected YYYY-MM-DD", name, raw)
	}
	return &t, nil
}
