package catalog

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/helo0ks/heloyse4bimestre/services/shared"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// ProductHandler contém os handlers HTTP do catálogo
type ProductHandler struct {
	useCase *ProductUseCase
	tracer  trace.Tracer
}

// NewProductHandler cria uma nova instância de ProductHandler
func NewProductHandler(useCase *ProductUseCase, tracer trace.Tracer) *ProductHandler {
	return &ProductHandler{
		useCase: useCase,
		tracer:  tracer,
	}
}

// RegisterPublic registra as rotas da vitrine
func (h *ProductHandler) RegisterPublic(r gin.IRouter) {
	r.GET("/products/public", h.ListPublic)
	r.GET("/products/:id/image", h.Image)
}

// RegisterAdmin registra as rotas de administração de produtos
func (h *ProductHandler) RegisterAdmin(r gin.IRouter) {
	r.GET("/products", h.List)
	r.GET("/products/:id", h.Get)
	r.GET("/products/:id/image", h.Image)
	r.POST("/products", h.Create)
	r.PUT("/products/:id", h.Update)
	r.DELETE("/products/:id", h.Delete)
}

// ListPublic lista os produtos disponíveis na vitrine
func (h *ProductHandler) ListPublic(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "list_public_products")
	defer span.End()

	products, err := h.useCase.ListPublic(ctx)
	if err != nil {
		span.RecordError(err)
		shared.RespondError(c, err, "failed to list products")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    products,
		"total":   len(products),
	})
}

// Image serve os bytes da imagem do produto
func (h *ProductHandler) Image(c *gin.Context) {
	id, ok := shared.ParseIDParam(c, "id")
	if !ok {
		return
	}

	img, err := h.useCase.Image(c.Request.Context(), id)
	if err != nil {
		shared.RespondError(c, err, "failed to load image")
		return
	}

	c.Header("Cache-Control", "no-store")
	c.Header("ETag", fmt.Sprintf(`"produto-%d-%d"`, id, len(img.Data)))
	c.Data(http.StatusOK, img.MIME, img.Data)
}

func (h *ProductHandler) List(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "list_products")
	defer span.End()

	products, err := h.useCase.List(ctx)
	if err != nil {
		span.RecordError(err)
		shared.RespondError(c, err, "failed to list products")
		return
	}
	c.JSON(http.StatusOK, products)
}

func (h *ProductHandler) Get(c *gin.Context) {
	id, ok := shared.ParseIDParam(c, "id")
	if !ok {
		return
	}

	product, err := h.useCase.Get(c.Request.Context(), id)
	if err != nil {
		shared.RespondError(c, err, "failed to get product")
		return
	}
	c.JSON(http.StatusOK, product)
}

// Create cria um produto a partir de um formulário multipart
func (h *ProductHandler) Create(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "create_product")
	defer span.End()

	in, err := h.bindProductForm(c)
	if err != nil {
		span.RecordError(err)
		shared.RespondError(c, err, "failed to read product form")
		return
	}

	product, err := h.useCase.Create(ctx, *in)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "create failed")
		shared.RespondError(c, err, "failed to create product")
		return
	}

	span.SetAttributes(attribute.Int64("product_id", product.ID))
	c.JSON(http.StatusCreated, product)
}

// Update sobrescreve o produto; sem arquivo a imagem atual é mantida
func (h *ProductHandler) Update(c *gin.Context) {
	id, ok := shared.ParseIDParam(c, "id")
	if !ok {
		return
	}

	ctx, span := h.tracer.Start(c.Request.Context(), "update_product")
	defer span.End()
	span.SetAttributes(attribute.Int64("product_id", id))

	in, err := h.bindProductForm(c)
	if err != nil {
		span.RecordError(err)
		shared.RespondError(c, err, "failed to read product form")
		return
	}

	product, err := h.useCase.Update(ctx, id, *in)
	if err != nil {
		span.RecordError(err)
		shared.RespondError(c, err, "failed to update product")
		return
	}
	c.JSON(http.StatusOK, product)
}

func (h *ProductHandler) Delete(c *gin.Context) {
	id, ok := shared.ParseIDParam(c, "id")
	if !ok {
		return
	}

	ctx, span := h.tracer.Start(c.Request.Context(), "delete_product")
	defer span.End()
	span.SetAttributes(attribute.Int64("product_id", id))

	if err := h.useCase.Delete(ctx, id); err != nil {
		span.RecordError(err)
		shared.RespondError(c, err, "failed to delete product")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "product deleted"})
}

// bindProductForm lê os campos do formulário e o arquivo opcional "image"
func (h *ProductHandler) bindProductForm(c *gin.Context) (*ProductInput, error) {
	priceRaw := strings.TrimSpace(c.PostForm("price"))
	if priceRaw == "" {
		return nil, shared.Validation("price is required")
	}
	price, err := decimal.NewFromString(strings.Replace(priceRaw, ",", ".", 1))
	if err != nil {
		return nil, shared.Validation("price must be a number")
	}

	stockRaw := strings.TrimSpace(c.PostForm("stock"))
	if stockRaw == "" {
		return nil, shared.Validation("stock is required")
	}
	stock, err := strconv.Atoi(stockRaw)
	if err != nil {
		return nil, shared.Validation("stock must be an integer")
	}

	in := &ProductInput{
		Name:        c.PostForm("name"),
		Description: c.PostForm("description"),
		Price:       price,
		Stock:       stock,
	}
	if category, ok := c.GetPostForm("category"); ok {
		in.Category = &category
	}

	file, err := c.FormFile("image")
	if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
		return in, nil
	}
	if err != nil {
		return nil, shared.Validation("invalid image upload")
	}
	if h.useCase.maxImageBytes > 0 && file.Size > h.useCase.maxImageBytes {
		return nil, shared.Validation("image exceeds the maximum size of %d bytes", h.useCase.maxImageBytes)
	}

	f, err := file.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open upload: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}

	in.Image, err = h.useCase.DecodeImage(data)
	if err != nil {
		return nil, err
	}
	return in, nil
}
