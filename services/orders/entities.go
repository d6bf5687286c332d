package orders

import (
	"strings"
	"time"

	"github.com/helo0ks/heloyse4bimestre/services/shared"
	"github.com/shopspring/decimal"
)

const dateLayout = "2006-01-02"

// CartItem é uma entrada do carrinho enviada pela vitrine
type CartItem struct {
	ID             int64           `json:"id"`
	Name           string          `json:"name"`
	Price          decimal.Decimal `json:"price"`
	Quantity       int             `json:"quantity"`
	AvailableStock *int            `json:"available_stock,omitempty"`
}

// Cart é o carrinho mantido pelo cliente e enviado inteiro no checkout
type Cart struct {
	Items []CartItem
}

// Validate exige itens, quantidades positivas, preços não negativos e produtos sem repetição
func (c Cart) Validate() error {
	if len(c.Items) == 0 {
		return shared.Validation("cart is empty")
	}

	seen := make(map[int64]bool, len(c.Items))
	for _, item := range c.Items {
		if item.ID <= 0 {
			return shared.Validation("invalid product id %d", item.ID)
		}
		if item.Quantity <= 0 {
			return shared.Validation("quantity for product %d must be greater than zero", item.ID)
		}
		if item.Price.IsNegative() {
			return shared.Validation("price for product %d must be zero or greater", item.ID)
		}
		if seen[item.ID] {
			return shared.Validation("product %d appears more than once in the cart", item.ID)
		}
		seen[item.ID] = true
	}
	return nil
}

// Total soma quantidade x preço de todos os itens
func (c Cart) Total() decimal.Decimal {
	total := decimal.Zero
	for _, item := range c.Items {
		total = total.Add(item.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	return total
}

// CheckoutRequest é o corpo de POST /orders/finalize-cart
type CheckoutRequest struct {
	CustomerCPF     string          `json:"customer_cpf"`
	Items           []CartItem      `json:"items"`
	PaymentMethodID int64           `json:"payment_method_id"`
	Total           decimal.Decimal `json:"total"`
}

// Cart devolve o carrinho do corpo da requisição
func (r CheckoutRequest) Cart() Cart {
	return Cart{Items: r.Items}
}

// Customer é a pessoa que compra, com a indicação de ter a linha em customers
type Customer struct {
	CPF        string
	Name       string
	Email      string
	Role       string
	IsCustomer bool
}

// Product é a linha viva do produto lida sob lock no checkout
type Product struct {
	ID    int64
	Name  string
	Price decimal.Decimal
	Stock int
}

// PaymentMethod é uma forma de pagamento
type PaymentMethod struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Order é a linha de pedido gravada
type Order struct {
	ID          int64
	OrderDate   time.Time
	CustomerCPF string
	EmployeeCPF string
}

// OrderItem é uma linha do pedido
type OrderItem struct {
	ProductID int64           `json:"product_id"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// Payment é o pagamento de um pedido
type Payment struct {
	ID      int64
	OrderID int64
	Total   decimal.Decimal
	PaidAt  time.Time
}

// Allocation vincula parte do pagamento a uma forma de pagamento
type Allocation struct {
	MethodID int64           `json:"method_id"`
	Amount   decimal.Decimal `json:"amount"`
}

// Receipt é o resumo devolvido pelo checkout
type Receipt struct {
	ID            int64           `json:"id"`
	OrderDate     time.Time       `json:"order_date"`
	CustomerName  string          `json:"customer_name"`
	CustomerEmail string          `json:"customer_email"`
	PaymentTotal  decimal.Decimal `json:"payment_total"`
	PaidAt        time.Time       `json:"paid_at"`
	PaymentMethod string          `json:"payment_method"`
}

// CheckoutResult é o resultado do checkout
type CheckoutResult struct {
	Order          Receipt `json:"order"`
	ItemsPurchased int     `json:"items_purchased"`
}

// OrderSummary é a visão de listagem de um pedido
type OrderSummary struct {
	ID            int64           `json:"id"`
	OrderDate     time.Time       `json:"order_date"`
	CustomerCPF   string          `json:"customer_cpf"`
	CustomerName  string          `json:"customer_name"`
	CustomerEmail string          `json:"customer_email"`
	EmployeeCPF   string          `json:"employee_cpf"`
	EmployeeName  string          `json:"employee_name"`
	Total         decimal.Decimal `json:"total"`
	PaidAt        *time.Time      `json:"paid_at"`
	PaymentID     *int64          `json:"payment_id"`
}

// ItemView é uma linha do pedido com nome e subtotal
type ItemView struct {
	ProductID   int64           `json:"product_id"`
	ProductName string          `json:"product_name"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Subtotal    decimal.Decimal `json:"subtotal"`
}

// AllocationView é uma alocação com o nome da forma de pagamento
type AllocationView struct {
	MethodID   int64           `json:"method_id"`
	MethodName string          `json:"method_name"`
	Amount     decimal.Decimal `json:"amount"`
}

// OrderDetail é o pedido completo
type OrderDetail struct {
	OrderSummary
	Items       []ItemView       `json:"items"`
	Allocations []AllocationView `json:"allocations"`
}

// OrderInput é o corpo de criação/edição administrativa de pedido
type OrderInput struct {
	OrderDate    string          `json:"order_date"`
	CustomerCPF  string          `json:"customer_cpf" binding:"required"`
	EmployeeCPF  string          `json:"employee_cpf" binding:"required"`
	Items        []OrderItem     `json:"items"`
	PaymentTotal decimal.Decimal `json:"payment_total"`
	Allocations  []Allocation    `json:"allocations"`
}

// toOrder valida o corpo e monta a linha de pedido; data vazia vira a data de hoje
func (in *OrderInput) toOrder(now time.Time) (*Order, error) {
	in.CustomerCPF = strings.TrimSpace(in.CustomerCPF)
	in.EmployeeCPF = strings.TrimSpace(in.EmployeeCPF)
	if in.CustomerCPF == "" || in.EmployeeCPF == "" {
		return nil, shared.Validation("customer_cpf and employee_cpf are required")
	}

	y, m, d := now.Date()
	date := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	if strings.TrimSpace(in.OrderDate) != "" {
		parsed, err := time.Parse(dateLayout, strings.TrimSpace(in.OrderDate))
		if err != nil {
			return nil, shared.Validation("order_date must use the YYYY-MM-DD format")
		}
		date = parsed
	}

	seen := make(map[int64]bool, len(in.Items))
	for _, item := range in.Items {
		if item.ProductID <= 0 {
			return nil, shared.Validation("invalid product id %d", item.ProductID)
		}
		if item.Quantity <= 0 {
			return nil, shared.Validation("quantity for product %d must be greater than zero", item.ProductID)
		}
		if item.UnitPrice.IsNegative() {
			return nil, shared.Validation("unit price for product %d must be zero or greater", item.ProductID)
		}
		if seen[item.ProductID] {
			return nil, shared.Validation("product %d appears more than once", item.ProductID)
		}
		seen[item.ProductID] = true
	}

	if in.PaymentTotal.IsNegative() {
		return nil, shared.Validation("payment_total must be zero or greater")
	}
	methods := make(map[int64]bool, len(in.Allocations))
	for _, a := range in.Allocations {
		if a.MethodID <= 0 {
			return nil, shared.Validation("invalid payment method id %d", a.MethodID)
		}
		if a.Amount.IsNegative() {
			return nil, shared.Validation("allocation amount must be zero or greater")
		}
		if methods[a.MethodID] {
			return nil, shared.Validation("payment method %d appears more than once", a.MethodID)
		}
		methods[a.MethodID] = true
	}

	return &Order{OrderDate: date, CustomerCPF: in.CustomerCPF, EmployeeCPF: in.EmployeeCPF}, nil
}

// PersonRef é uma pessoa em listas de seleção
type PersonRef struct {
	CPF   string `json:"cpf"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// ProductRef é um produto em listas de seleção
type ProductRef struct {
	ID    int64           `json:"id"`
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
	Stock int             `json:"stock"`
}
