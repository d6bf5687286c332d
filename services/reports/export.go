package reports

import (
	"fmt"
	"io"

	"github.com/tealeg/xlsx"
)

const (
	// ExportFilename é o nome sugerido para o download da planilha
	ExportFilename = "relatorio-vendas.xlsx"
	ExportMIME     = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

	moneyFormat = "#,##0.00"
)

// Workbook embrulha a planilha gerada pelo relatório
type Workbook struct {
	file *xlsx.File
}

// Write grava a planilha em w
func (wb *Workbook) Write(w io.Writer) error {
	return wb.file.Write(w)
}

func buildWorkbook(sales *SalesReport, periods []PeriodSales) (*Workbook, error) {
	file := xlsx.NewFile()

	products, err := file.AddSheet("Produtos")
	if err != nil {
		return nil, fmt.Errorf("failed to create products sheet: %w", err)
	}
	addHeader(products, "ID", "Produto", "Quantidade vendida", "Receita total")
	for _, p := range sales.Products {
		row := products.AddRow()
		row.AddCell().SetInt64(p.ProductID)
		row.AddCell().SetString(p.Product)
		row.AddCell().SetInt64(p.QuantitySold)
		row.AddCell().SetFloatWithFormat(p.TotalRevenue.InexactFloat64(), moneyFormat)
	}
	total := products.AddRow()
	total.AddCell()
	total.AddCell().SetString("Total")
	total.AddCell().SetInt64(sales.Totals.TotalQuantity)
	total.AddCell().SetFloatWithFormat(sales.Totals.TotalRevenue.InexactFloat64(), moneyFormat)

	byPeriod, err := file.AddSheet("Periodo")
	if err != nil {
		return nil, fmt.Errorf("failed to create period sheet: %w", err)
	}
	addHeader(byPeriod, "Período", "Pedidos", "Itens", "Receita total")
	for _, p := range periods {
		row := byPeriod.AddRow()
		row.AddCell().SetString(p.Period)
		row.AddCell().SetInt64(p.TotalOrders)
		row.AddCell().SetInt64(p.TotalItems)
		row.AddCell().SetFloatWithFormat(p.TotalRevenue.InexactFloat64(), moneyFormat)
	}

	return &Workbook{file: file}, nil
}

func addHeader(sheet *xlsx.Sheet, titles ...string) {
	row := sheet.AddRow()
	for _, t := range titles {
		row.AddCell().SetString(t)
	}
}
