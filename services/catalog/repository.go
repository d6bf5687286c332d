package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/helo0ks/heloyse4bimestre/services/shared"
	"github.com/jackc/pgx/v5"
)

// ErrProductNotFound indica produto inexistente
var ErrProductNotFound = errors.New("product not found")

// ErrImageNotFound indica produto sem imagem gravada
var ErrImageNotFound = errors.New("image not found")

// ProductRepository define a interface do repositório de produtos
type ProductRepository interface {
	ListProducts(ctx context.Context) ([]Product, error)
	ListInStock(ctx context.Context) ([]Product, error)
	GetProduct(ctx context.Context, id int64) (*Product, error)
	GetImage(ctx context.Context, id int64) (*Image, error)
	CreateProduct(ctx context.Context, in ProductInput) (*Product, error)
	UpdateProduct(ctx context.Context, id int64, in ProductInput) (*Product, error)
	DeleteProduct(ctx context.Context, id int64) error
}

// PostgresProductRepository implementa ProductRepository
type PostgresProductRepository struct {
	db shared.Pool
}

// NewPostgresProductRepository cria uma nova instância do repositório
func NewPostgresProductRepository(db shared.Pool) *PostgresProductRepository {
	return &PostgresProductRepository{db: db}
}

const productColumns = `id, name, description, price, stock, category, image_mime,
	image_data IS NOT NULL, created_at, updated_at`

func scanProduct(row pgx.Row) (*Product, error) {
	var p Product
	err := row.Scan(
		&p.ID, &p.Name, &p.Description, &p.Price, &p.Stock, &p.Category,
		&p.ImageMIME, &p.HasImage, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return p.withImageURL(), nil
}

func (r *PostgresProductRepository) listProducts(ctx context.Context, query string) ([]Product, error) {
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	defer rows.Close()

	products := []Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, *p)
	}
	return products, rows.Err()
}

func (r *PostgresProductRepository) ListProducts(ctx context.Context) ([]Product, error) {
	return r.listProducts(ctx, `SELECT `+productColumns+` FROM products ORDER BY id`)
}

// ListInStock lista os produtos com estoque positivo em ordem alfabética
func (r *PostgresProductRepository) ListInStock(ctx context.Context) ([]Product, error) {
	return r.listProducts(ctx, `SELECT `+productColumns+` FROM products WHERE stock > 0 ORDER BY name, id`)
}

func (r *PostgresProductRepository) GetProduct(ctx context.Context, id int64) (*Product, error) {
	row := r.db.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id)
	p, err := scanProduct(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	return p, nil
}

// GetImage busca os bytes da imagem; ErrProductNotFound ou ErrImageNotFound quando ausentes
func (r *PostgresProductRepository) GetImage(ctx context.Context, id int64) (*Image, error) {
	var data []byte
	var mime *string
	err := r.db.QueryRow(ctx, `SELECT image_data, image_mime FROM products WHERE id = $1`, id).Scan(&data, &mime)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get image: %w", err)
	}
	if len(data) == 0 {
		return nil, ErrImageNotFound
	}

	img := &Image{Data: data, MIME: DefaultImageMIME}
	if mime != nil && *mime != "" {
		img.MIME = *mime
	}
	return img, nil
}

func (r *PostgresProductRepository) CreateProduct(ctx context.Context, in ProductInput) (*Product, error) {
	var data []byte
	var mime *string
	if in.Image != nil {
		data = in.Image.Data
		mime = &in.Image.MIME
	}

	row := r.db.QueryRow(ctx, `
		INSERT INTO products (name, description, price, stock, category, image_data, image_mime)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+productColumns,
		in.Name, in.Description, in.Price, in.Stock, in.Category, data, mime,
	)
	p, err := scanProduct(row)
	if err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}
	return p, nil
}

// UpdateProduct sobrescreve todos os campos; a imagem só é trocada quando in.Image != nil
func (r *PostgresProductRepository) UpdateProduct(ctx context.Context, id int64, in ProductInput) (*Product, error) {
	var row pgx.Row
	if in.Image != nil {
		row = r.db.QueryRow(ctx, `
			UPDATE products
			SET name = $1, description = $2, price = $3, stock = $4, category = $5,
			    image_data = $6, image_mime = $7, updated_at = NOW()
			WHERE id = $8
			RETURNING `+productColumns,
			in.Name, in.Description, in.Price, in.Stock, in.Category, in.Image.Data, in.Image.MIME, id,
		)
	} else {
		row = r.db.QueryRow(ctx, `
			UPDATE products
			SET name = $1, description = $2, price = $3, stock = $4, category = $5, updated_at = NOW()
			WHERE id = $6
			RETURNING `+productColumns,
			in.Name, in.Description, in.Price, in.Stock, in.Category, id,
		)
	}

	p, err := scanProduct(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update product: %w", err)
	}
	return p, nil
}

func (r *PostgresProductRepository) DeleteProduct(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrProductNotFound
	}
	return nil
}
