package reports

import (
	"bytes"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/helo0ks/heloyse4bimestre/services/shared"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// ReportHandler contém os handlers HTTP dos relatórios
type ReportHandler struct {
	useCase *ReportUseCase
	tracer  trace.Tracer
}

// NewReportHandler cria uma nova instância de ReportHandler
func NewReportHandler(useCase *ReportUseCase, tracer trace.Tracer) *ReportHandler {
	return &ReportHandler{
		useCase: useCase,
		tracer:  tracer,
	}
}

// RegisterAdmin registra as rotas de relatórios sob /admin
func (h *ReportHandler) RegisterAdmin(r gin.IRouter) {
	g := r.Group("/reports")
	g.GET("/sales", h.Sales)
	g.GET("/sales/by-period", h.SalesByPeriod)
	g.GET("/sales/export", h.Export)
	g.GET("/customers", h.Customers)
}

func (h *ReportHandler) Sales(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "report_sales")
	defer span.End()

	report, err := h.useCase.Sales(ctx)
	if err != nil {
		span.RecordError(err)
		shared.RespondError(c, err, "failed to build sales report")
		return
	}
	c.JSON(http.StatusOK, report)
}

// SalesByPeriod aceita period, from e to na query string
func (h *ReportHandler) SalesByPeriod(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "report_sales_by_period")
	defer span.End()

	filter, err := ParsePeriodFilter(c.Query("period"), c.Query("from"), c.Query("to"))
	if err != nil {
		shared.RespondError(c, err, "invalid period")
		return
	}
	span.SetAttributes(attribute.String("report.granularity", string(filter.Granularity)))

	rows, err := h.useCase.SalesByPeriod(ctx, filter)
	if err != nil {
		span.RecordError(err)
		shared.RespondError(c, err, "failed to build period report")
		return
	}
	c.JSON(http.StatusOK, rows)
}

func (h *ReportHandler) Customers(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "report_customers")
	defer span.End()

	report, err := h.useCase.Customers(ctx)
	if err != nil {
		span.RecordError(err)
		shared.RespondError(c, err, "failed to build customer report")
		return
	}
	c.JSON(http.StatusOK, report)
}

// Export devolve a planilha de vendas como anexo
func (h *ReportHandler) Export(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "report_export")
	defer span.End()

	wb, err := h.useCase.Export(ctx)
	if err != nil {
		span.RecordError(err)
		shared.RespondError(c, err, "failed to export report")
		return
	}

	// cabeçalhos só depois da planilha completa
	var buf bytes.Buffer
	if err := wb.Write(&buf); err != nil {
		span.RecordError(err)
		shared.RespondError(c, err, "failed to export report")
		return
	}

	c.Header("Content-Disposition", "attachment; filename="+ExportFilename)
	c.Data(http.StatusOK, ExportMIME, buf.Bytes())
}
