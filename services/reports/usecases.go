package reports

import (
	"context"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

// ReportUseCase monta os relatórios administrativos
type ReportUseCase struct {
	repository Repository
}

// NewReportUseCase cria uma nova instância de ReportUseCase
func NewReportUseCase(repository Repository) *ReportUseCase {
	return &ReportUseCase{repository: repository}
}

// Sales devolve as vendas por produto com os totais gerais
func (uc *ReportUseCase) Sales(ctx context.Context) (*SalesReport, error) {
	rows, err := uc.repository.SalesByProduct(ctx)
	if err != nil {
		return nil, err
	}

	report := &SalesReport{Products: rows, Totals: SalesTotals{TotalRevenue: decimal.Zero}}
	for _, r := range rows {
		report.Totals.TotalQuantity += r.QuantitySold
		report.Totals.TotalRevenue = report.Totals.TotalRevenue.Add(r.TotalRevenue)
	}
	return report, nil
}

func (uc *ReportUseCase) SalesByPeriod(ctx context.Context, f PeriodFilter) ([]PeriodSales, error) {
	return uc.repository.SalesByPeriod(ctx, f)
}

// Customers separa os clientes com e sem compras e calcula o ticket médio
func (uc *ReportUseCase) Customers(ctx context.Context) (*CustomerReport, error) {
	rows, err := uc.repository.CustomerSpending(ctx)
	if err != nil {
		return nil, err
	}

	report := &CustomerReport{
		WithPurchases:    []CustomerSpending{},
		WithoutPurchases: []CustomerSpending{},
		Totals: CustomerTotals{
			TotalCustomers: len(rows),
			TotalSpent:     decimal.Zero,
			AverageTicket:  decimal.Zero,
		},
	}

	var orders int64
	for _, r := range rows {
		if r.TotalOrders > 0 {
			report.WithPurchases = append(report.WithPurchases, r)
		} else {
			report.WithoutPurchases = append(report.WithoutPurchases, r)
		}
		orders += r.TotalOrders
		report.Totals.TotalSpent = report.Totals.TotalSpent.Add(r.TotalSpent)
	}

	report.Totals.WithPurchase = len(report.WithPurchases)
	report.Totals.WithoutPurchase = len(report.WithoutPurchases)
	if orders > 0 {
		report.Totals.AverageTicket = report.Totals.TotalSpent.
			Div(decimal.NewFromInt(orders)).
			Round(2)
	}
	return report, nil
}

// Export gera a planilha com as vendas por produto e por mês
func (uc *ReportUseCase) Export(ctx context.Context) (*Workbook, error) {
	sales, err := uc.Sales(ctx)
	if err != nil {
		return nil, err
	}
	periods, err := uc.repository.SalesByPeriod(ctx, PeriodFilter{Granularity: Month})
	if err != nil {
		return nil, err
	}

	wb, err := buildWorkbook(sales, periods)
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"products": len(sales.Products),
		"periods":  len(periods),
	}).Info("📊 [REPORTS] Planilha de vendas gerada")
	return wb, nil
}
