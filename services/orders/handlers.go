package orders

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/helo0ks/heloyse4bimestre/services/auth"
	"github.com/helo0ks/heloyse4bimestre/services/shared"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// OrderHandler contém os handlers HTTP de pedidos
type OrderHandler struct {
	checkout *CheckoutUseCase
	orders   *OrderUseCase
	lookups  *LookupUseCase
	tracer   trace.Tracer
}

// NewOrderHandler cria uma nova instância de OrderHandler
func NewOrderHandler(checkout *CheckoutUseCase, orders *OrderUseCase, lookups *LookupUseCase, tracer trace.Tracer) *OrderHandler {
	return &OrderHandler{
		checkout: checkout,
		orders:   orders,
		lookups:  lookups,
		tracer:   tracer,
	}
}

// RegisterPublic registra as rotas sem autenticação
func (h *OrderHandler) RegisterPublic(r gin.IRouter) {
	r.GET("/payment-methods/public", h.PaymentMethods)
}

// Register registra as rotas de /orders; r já exige identidade e adminOnly restringe a administradores
func (h *OrderHandler) Register(r gin.IRouter, adminOnly gin.HandlerFunc) {
	r.POST("/finalize-cart", h.FinalizeCart)
	r.GET("/mine", h.Mine)

	lookups := r.Group("/lookups")
	lookups.GET("/customers", h.LookupCustomers)
	lookups.GET("/employees", h.LookupEmployees)
	lookups.GET("/products", h.LookupProducts)
	lookups.GET("/payment-methods", h.PaymentMethods)

	r.GET("/:id", h.Get)
	r.GET("", adminOnly, h.List)
	r.POST("", adminOnly, h.Create)
	r.PUT("/:id", adminOnly, h.Update)
	r.DELETE("/:id", adminOnly, h.Delete)
}

// FinalizeCart transforma o carrinho do cliente em pedido
func (h *OrderHandler) FinalizeCart(c *gin.Context) {
	identity, ok := auth.FromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}
	if identity.IsAdmin() {
		c.JSON(http.StatusForbidden, gin.H{"error": "administrators cannot place orders, use a customer account"})
		return
	}

	var req CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		shared.BindError(c, err)
		return
	}

	ctx, span := h.tracer.Start(c.Request.Context(), "finalize_cart")
	defer span.End()
	span.SetAttributes(
		attribute.String("cpf", identity.CPF),
		attribute.Int("items", len(req.Items)),
		attribute.Int64("payment_method_id", req.PaymentMethodID),
	)

	result, err := h.checkout.Checkout(ctx, identity, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "checkout failed")
		shared.RespondError(c, err, "failed to finalize order")
		return
	}

	span.SetAttributes(attribute.Int64("order_id", result.Order.ID))
	c.JSON(http.StatusCreated, gin.H{
		"success":         true,
		"message":         "order placed successfully",
		"order":           result.Order,
		"items_purchased": result.ItemsPurchased,
	})
}

// Mine lista os pedidos do cliente autenticado
func (h *OrderHandler) Mine(c *gin.Context) {
	identity, _ := auth.FromContext(c)

	orders, err := h.orders.Mine(c.Request.Context(), identity.CPF)
	if err != nil {
		shared.RespondError(c, err, "failed to list your orders")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"orders":  orders,
		"total":   len(orders),
	})
}

func (h *OrderHandler) List(c *gin.Context) {
	orders, err := h.orders.List(c.Request.Context())
	if err != nil {
		shared.RespondError(c, err, "failed to list orders")
		return
	}
	c.JSON(http.StatusOK, orders)
}

func (h *OrderHandler) Get(c *gin.Context) {
	id, ok := shared.ParseIDParam(c, "id")
	if !ok {
		return
	}
	identity, _ := auth.FromContext(c)

	order, err := h.orders.Get(c.Request.Context(), identity, id)
	if err != nil {
		shared.RespondError(c, err, "failed to get order")
		return
	}
	c.JSON(http.StatusOK, order)
}

func (h *OrderHandler) Create(c *gin.Context) {
	var req OrderInput
	if err := c.ShouldBindJSON(&req); err != nil {
		shared.BindError(c, err)
		return
	}

	ctx, span := h.tracer.Start(c.Request.Context(), "create_order")
	defer span.End()

	order, err := h.orders.Create(ctx, req)
	if err != nil {
		span.RecordError(err)
		shared.RespondError(c, err, "failed to create order")
		return
	}

	span.SetAttributes(attribute.Int64("order_id", order.ID))
	c.JSON(http.StatusCreated, order)
}

func (h *OrderHandler) Update(c *gin.Context) {
	id, ok := shared.ParseIDParam(c, "id")
	if !ok {
		return
	}
	var req OrderInput
	if err := c.ShouldBindJSON(&req); err != nil {
		shared.BindError(c, err)
		return
	}

	ctx, span := h.tracer.Start(c.Request.Context(), "update_order")
	defer span.End()
	span.SetAttributes(attribute.Int64("order_id", id))

	order, err := h.orders.Update(ctx, id, req)
	if err != nil {
		span.RecordError(err)
		shared.RespondError(c, err, "failed to update order")
		return
	}
	c.JSON(http.StatusOK, order)
}

func (h *OrderHandler) Delete(c *gin.Context) {
	id, ok := shared.ParseIDParam(c, "id")
	if !ok {
		return
	}

	ctx, span := h.tracer.Start(c.Request.Context(), "delete_order")
	defer span.End()
	span.SetAttributes(attribute.Int64("order_id", id))

	if err := h.orders.Delete(ctx, id); err != nil {
		span.RecordError(err)
		shared.RespondError(c, err, "failed to delete order")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "order deleted"})
}

func (h *OrderHandler) LookupCustomers(c *gin.Context) {
	customers, err := h.lookups.Customers(c.Request.Context())
	if err != nil {
		shared.RespondError(c, err, "failed to list customers")
		return
	}
	c.JSON(http.StatusOK, customers)
}

func (h *OrderHandler) LookupEmployees(c *gin.Context) {
	employees, err := h.lookups.Employees(c.Request.Context())
	if err != nil {
		shared.RespondError(c, err, "failed to list employees")
		return
	}
	c.JSON(http.StatusOK, employees)
}

func (h *OrderHandler) LookupProducts(c *gin.Context) {
	products, err := h.lookups.Products(c.Request.Context())
	if err != nil {
		shared.RespondError(c, err, "failed to list products")
		return
	}
	c.JSON(http.StatusOK, products)
}

func (h *OrderHandler) PaymentMethods(c *gin.Context) {
	methods, err := h.lookups.PaymentMethods(c.Request.Context())
	if err != nil {
		shared.RespondError(c, err, "failed to list payment methods")
		return
	}
	c.JSON(http.StatusOK, methods)
}
