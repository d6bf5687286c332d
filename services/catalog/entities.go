package catalog

import (
	"fmt"
	"strings"
	"time"

	"github.com/helo0ks/heloyse4bimestre/services/shared"
	"github.com/shopspring/decimal"
)

const (
	// DefaultCategory é exibida na vitrine quando o produto não tem categoria
	DefaultCategory = "Pelúcia"
	// DefaultImageMIME é usado quando a imagem foi gravada sem tipo
	DefaultImageMIME = "image/jpeg"
)

// Product representa um produto do catálogo, sem os bytes da imagem
type Product struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock"`
	Category    *string         `json:"category"`
	ImageMIME   *string         `json:"image_mime"`
	HasImage    bool            `json:"has_image"`
	ImageURL    *string         `json:"image_url"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// PublicProduct é a visão do produto exposta na vitrine
type PublicProduct struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Quantity    int             `json:"quantity"`
	ImageURL    *string         `json:"image_url"`
	Category    string          `json:"category"`
}

// Image são os bytes da imagem com o tipo MIME
type Image struct {
	Data []byte
	MIME string
}

// ProductInput são os campos gravados em create/update.
// Image nil mantém a imagem atual no update.
type ProductInput struct {
	Name        string
	Description string
	Price       decimal.Decimal
	Stock       int
	Category    *string
	Image       *Image
}

// ImageURL devolve o caminho público da imagem do produto
func ImageURL(id int64) string {
	return fmt.Sprintf("/products/%d/image", id)
}

// withImageURL preenche ImageURL quando há imagem
func (p *Product) withImageURL() *Product {
	if p.HasImage {
		url := ImageURL(p.ID)
		p.ImageURL = &url
	}
	return p
}

// Public converte para a visão da vitrine
func (p Product) Public() PublicProduct {
	category := DefaultCategory
	if p.Category != nil && strings.TrimSpace(*p.Category) != "" {
		category = *p.Category
	}

	var url *string
	if p.HasImage {
		u := ImageURL(p.ID)
		url = &u
	}

	return PublicProduct{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price,
		Quantity:    p.Stock,
		ImageURL:    url,
		Category:    category,
	}
}

// Validate normaliza e valida os campos do produto
func (in *ProductInput) Validate() error {
	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)
	if in.Category != nil {
		trimmed := strings.TrimSpace(*in.Category)
		if trimmed == "" {
			in.Category = nil
		} else {
			in.Category = &trimmed
		}
	}

	if in.Name == "" {
		return shared.Validation("name is required")
	}
	if in.Price.IsNegative() {
		return shared.Validation("price must be zero or greater")
	}
	if in.Stock < 0 {
		return shared.Validation("stock must be zero or greater")
	}
	return nil
}
