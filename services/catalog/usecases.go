package catalog

import (
	"context"
	"errors"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/helo0ks/heloyse4bimestre/services/shared"
	log "github.com/sirupsen/logrus"
)

// ProductUseCase contém a lógica de negócio do catálogo
type ProductUseCase struct {
	repository    ProductRepository
	maxImageBytes int64
}

// NewProductUseCase cria uma nova instância de ProductUseCase
func NewProductUseCase(repository ProductRepository, maxImageBytes int64) *ProductUseCase {
	return &ProductUseCase{
		repository:    repository,
		maxImageBytes: maxImageBytes,
	}
}

// ListPublic devolve os produtos com estoque para a vitrine
func (uc *ProductUseCase) ListPublic(ctx context.Context) ([]PublicProduct, error) {
	products, err := uc.repository.ListInStock(ctx)
	if err != nil {
		return nil, err
	}

	public := make([]PublicProduct, 0, len(products))
	for _, p := range products {
		public = append(public, p.Public())
	}
	return public, nil
}

func (uc *ProductUseCase) List(ctx context.Context) ([]Product, error) {
	return uc.repository.ListProducts(ctx)
}

func (uc *ProductUseCase) Get(ctx context.Context, id int64) (*Product, error) {
	p, err := uc.repository.GetProduct(ctx, id)
	if errors.Is(err, ErrProductNotFound) {
		return nil, shared.NotFound("product not found")
	}
	return p, err
}

// Image devolve os bytes da imagem do produto
func (uc *ProductUseCase) Image(ctx context.Context, id int64) (*Image, error) {
	img, err := uc.repository.GetImage(ctx, id)
	switch {
	case errors.Is(err, ErrProductNotFound):
		return nil, shared.NotFound("product not found")
	case errors.Is(err, ErrImageNotFound):
		return nil, shared.NotFound("image not found")
	}
	return img, err
}

// DecodeImage valida o tamanho e detecta o tipo real da imagem enviada
func (uc *ProductUseCase) DecodeImage(data []byte) (*Image, error) {
	if len(data) == 0 {
		return nil, shared.Validation("image is empty")
	}
	if uc.maxImageBytes > 0 && int64(len(data)) > uc.maxImageBytes {
		return nil, shared.Validation("image exceeds the maximum size of %d bytes", uc.maxImageBytes)
	}

	mtype := mimetype.Detect(data)
	if !strings.HasPrefix(mtype.String(), "image/") {
		return nil, shared.Validation("file is not an image (detected %s)", mtype.String())
	}
	return &Image{Data: data, MIME: mtype.String()}, nil
}

func (uc *ProductUseCase) Create(ctx context.Context, in ProductInput) (*Product, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	p, err := uc.repository.CreateProduct(ctx, in)
	if err != nil {
		return nil, err
	}

	log.Printf("✅ [PRODUCT] created ID=%d name=%q", p.ID, p.Name)
	return p, nil
}

// Update sobrescreve os campos do produto, mantendo a imagem quando in.Image é nil
func (uc *ProductUseCase) Update(ctx context.Context, id int64, in ProductInput) (*Product, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	p, err := uc.repository.UpdateProduct(ctx, id, in)
	if errors.Is(err, ErrProductNotFound) {
		return nil, shared.NotFound("product not found")
	}
	if err != nil {
		return nil, err
	}

	log.Printf("✅ [PRODUCT] updated ID=%d image_replaced=%t", p.ID, in.Image != nil)
	return p, nil
}

func (uc *ProductUseCase) Delete(ctx context.Context, id int64) error {
	err := uc.repository.DeleteProduct(ctx, id)
	if errors.Is(err, ErrProductNotFound) {
		return shared.NotFound("product not found")
	}
	if shared.IsForeignKeyViolation(err) {
		return shared.Validation("product is referenced by existing orders")
	}
	if err != nil {
		return err
	}

	log.Printf("🗑️ [PRODUCT] deleted ID=%d", id)
	return nil
}
