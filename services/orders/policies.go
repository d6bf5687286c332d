package orders

import (
	"context"
	"errors"

	"github.com/helo0ks/heloyse4bimestre/services/shared"
	"github.com/shopspring/decimal"
)

// ErrNoHandlerAvailable indica que nenhum funcionário pode processar o pedido
var ErrNoHandlerAvailable = errors.New("no employee available to process the order")

// HandlerPolicy escolhe o funcionário responsável por um pedido do carrinho
type HandlerPolicy interface {
	AssignHandler(ctx context.Context, tx shared.Tx, customer *Customer) (string, error)
}

// HandlerPolicyFunc adapta uma função a HandlerPolicy
type HandlerPolicyFunc func(ctx context.Context, tx shared.Tx, customer *Customer) (string, error)

func (f HandlerPolicyFunc) AssignHandler(ctx context.Context, tx shared.Tx, customer *Customer) (string, error) {
	return f(ctx, tx, customer)
}

// AdminEmployeeFinder busca o funcionário administrador de menor cpf
type AdminEmployeeFinder interface {
	FirstAdminEmployee(ctx context.Context, tx shared.Tx) (string, error)
}

// FirstAdminEmployee atribui todo pedido ao administrador-funcionário de menor cpf
func FirstAdminEmployee(finder AdminEmployeeFinder) HandlerPolicy {
	return HandlerPolicyFunc(func(ctx context.Context, tx shared.Tx, _ *Customer) (string, error) {
		return finder.FirstAdminEmployee(ctx, tx)
	})
}

// PricePolicy define o preço unitário gravado na linha do pedido
type PricePolicy interface {
	UnitPrice(item CartItem, product *Product) (decimal.Decimal, error)
}

// TrustClientPrice grava o preço enviado pelo carrinho
type TrustClientPrice struct{}

func (TrustClientPrice) UnitPrice(item CartItem, _ *Product) (decimal.Decimal, error) {
	return item.Price, nil
}

// CatalogPrice rejeita itens cujo preço difere do preço atual do catálogo
type CatalogPrice struct{}

func (CatalogPrice) UnitPrice(item CartItem, product *Product) (decimal.Decimal, error) {
	if !item.Price.Equal(product.Price) {
		return decimal.Zero, shared.Validation("price of product %s changed: current %s, submitted %s",
			product.Name, product.Price.StringFixed(2), item.Price.StringFixed(2))
	}
	return product.Price, nil
}
