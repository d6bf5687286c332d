package orders

import (
	"context"
	"sort"
	"time"

	"github.com/helo0ks/heloyse4bimestre/services/shared"
	"github.com/shopspring/decimal"
)

// memoryDB implementa os repositórios de pedidos em memória.
// BeginTx tira um snapshot e Rollback sem Commit o restaura.
type memoryDB struct {
	people      map[string]Customer
	employees   map[string]bool
	products    map[int64]Product
	methods     map[int64]PaymentMethod
	orders      map[int64]Order
	items       map[int64]map[int64]OrderItem
	payments    map[int64]Payment
	allocations map[int64]map[int64]Allocation
	nextOrder   int64
	nextPayment int64

	snapshot       *memoryDB
	commits        int
	rollbacks      int
	failAllocation error
}

type memoryTx struct {
	db   *memoryDB
	done bool
}

func (t *memoryTx) Commit() error {
	t.done = true
	t.db.snapshot = nil
	t.db.commits++
	return nil
}

func (t *memoryTx) Rollback() error {
	if t.done {
		return nil
	}
	t.done = true
	t.db.restore()
	t.db.rollbacks++
	return nil
}

func newMemoryDB() *memoryDB {
	return &memoryDB{
		people:      map[string]Customer{},
		employees:   map[string]bool{},
		products:    map[int64]Product{},
		methods:     map[int64]PaymentMethod{1: {ID: 1, Name: "Pix"}, 2: {ID: 2, Name: "Boleto"}},
		orders:      map[int64]Order{},
		items:       map[int64]map[int64]OrderItem{},
		payments:    map[int64]Payment{},
		allocations: map[int64]map[int64]Allocation{},
	}
}

func (db *memoryDB) addCustomer(cpf, name string) {
	db.people[cpf] = Customer{CPF: cpf, Name: name, Email: cpf + "@loja.com", Role: "customer", IsCustomer: true}
}

func (db *memoryDB) addAdminEmployee(cpf string) {
	db.people[cpf] = Customer{CPF: cpf, Name: "Admin " + cpf, Email: cpf + "@loja.com", Role: "admin"}
	db.employees[cpf] = true
}

func (db *memoryDB) addProduct(id int64, name, price string, stock int) {
	db.products[id] = Product{ID: id, Name: name, Price: decimal.RequireFromString(price), Stock: stock}
}

func (db *memoryDB) restore() {
	s := db.snapshot
	if s == nil {
		return
	}
	db.people, db.employees, db.products, db.methods = s.people, s.employees, s.products, s.methods
	db.orders, db.items, db.payments, db.allocations = s.orders, s.items, s.payments, s.allocations
	db.nextOrder, db.nextPayment = s.nextOrder, s.nextPayment
	db.snapshot = nil
}

func (db *memoryDB) clone() *memoryDB {
	c := newMemoryDB()
	c.methods = map[int64]PaymentMethod{}
	for k, v := range db.people {
		c.people[k] = v
	}
	for k, v := range db.employees {
		c.employees[k] = v
	}
	for k, v := range db.products {
		c.products[k] = v
	}
	for k, v := range db.methods {
		c.methods[k] = v
	}
	for k, v := range db.orders {
		c.orders[k] = v
	}
	for k, lines := range db.items {
		c.items[k] = map[int64]OrderItem{}
		for pk, line := range lines {
			c.items[k][pk] = line
		}
	}
	for k, v := range db.payments {
		c.payments[k] = v
	}
	for k, allocs := range db.allocations {
		c.allocations[k] = map[int64]Allocation{}
		for mk, a := range allocs {
			c.allocations[k][mk] = a
		}
	}
	c.nextOrder, c.nextPayment = db.nextOrder, db.nextPayment
	return c
}

func (db *memoryDB) BeginTx(ctx context.Context) (shared.Tx, error) {
	db.snapshot = db.clone()
	return &memoryTx{db: db}, nil
}

func (db *memoryDB) GetCustomerForShare(ctx context.Context, tx shared.Tx, cpf string) (*Customer, error) {
	c, ok := db.people[cpf]
	if !ok {
		return nil, ErrCustomerNotFound
	}
	return &c, nil
}

func (db *memoryDB) GetPaymentMethod(ctx context.Context, tx shared.Tx, id int64) (*PaymentMethod, error) {
	m, ok := db.methods[id]
	if !ok {
		return nil, ErrPaymentMethodNotFound
	}
	return &m, nil
}

func (db *memoryDB) FirstAdminEmployee(ctx context.Context, tx shared.Tx) (string, error) {
	var cpfs []string
	for cpf := range db.employees {
		if db.people[cpf].Role == "admin" {
			cpfs = append(cpfs, cpf)
		}
	}
	if len(cpfs) == 0 {
		return "", ErrNoHandlerAvailable
	}
	sort.Strings(cpfs)
	return cpfs[0], nil
}

func (db *memoryDB) GetProductForUpdate(ctx context.Context, tx shared.Tx, id int64) (*Product, error) {
	p, ok := db.products[id]
	if !ok {
		return nil, ErrProductNotFound
	}
	return &p, nil
}

func (db *memoryDB) DecreaseStock(ctx context.Context, tx shared.Tx, productID int64, quantity int) error {
	p, ok := db.products[productID]
	if !ok || p.Stock < quantity {
		return ErrInsufficientStock
	}
	p.Stock -= quantity
	db.products[productID] = p
	return nil
}

func (db *memoryDB) InsertOrder(ctx context.Context, tx shared.Tx, o *Order) error {
	db.nextOrder++
	o.ID = db.nextOrder
	if o.OrderDate.IsZero() {
		o.OrderDate = time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	}
	db.orders[o.ID] = *o
	db.items[o.ID] = map[int64]OrderItem{}
	return nil
}

func (db *memoryDB) InsertItem(ctx context.Context, tx shared.Tx, orderID int64, item OrderItem) error {
	db.items[orderID][item.ProductID] = item
	return nil
}

func (db *memoryDB) InsertPayment(ctx context.Context, tx shared.Tx, p *Payment) error {
	db.nextPayment++
	p.ID = db.nextPayment
	p.PaidAt = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	db.payments[p.ID] = *p
	db.allocations[p.ID] = map[int64]Allocation{}
	return nil
}

func (db *memoryDB) InsertAllocation(ctx context.Context, tx shared.Tx, paymentID int64, a Allocation) error {
	if db.failAllocation != nil {
		return db.failAllocation
	}
	db.allocations[paymentID][a.MethodID] = a
	return nil
}

func (db *memoryDB) LockOrder(ctx context.Context, tx shared.Tx, id int64) error {
	if _, ok := db.orders[id]; !ok {
		return ErrOrderNotFound
	}
	return nil
}

func (db *memoryDB) UpdateOrder(ctx context.Context, tx shared.Tx, o *Order) error {
	if _, ok := db.orders[o.ID]; !ok {
		return ErrOrderNotFound
	}
	db.orders[o.ID] = *o
	return nil
}

func (db *memoryDB) DeleteItems(ctx context.Context, tx shared.Tx, orderID int64) error {
	db.items[orderID] = map[int64]OrderItem{}
	return nil
}

func (db *memoryDB) paymentOf(orderID int64) (Payment, bool) {
	for _, p := range db.payments {
		if p.OrderID == orderID {
			return p, true
		}
	}
	return Payment{}, false
}

func (db *memoryDB) GetPaymentForUpdate(ctx context.Context, tx shared.Tx, orderID int64) (*Payment, error) {
	p, ok := db.paymentOf(orderID)
	if !ok {
		return nil, ErrPaymentNotFound
	}
	return &p, nil
}

func (db *memoryDB) UpdatePayment(ctx context.Context, tx shared.Tx, p *Payment) error {
	db.payments[p.ID] = *p
	return nil
}

func (db *memoryDB) DeleteAllocations(ctx context.Context, tx shared.Tx, paymentID int64) error {
	db.allocations[paymentID] = map[int64]Allocation{}
	return nil
}

func (db *memoryDB) DeletePayment(ctx context.Context, tx shared.Tx, paymentID int64) error {
	if len(db.allocations[paymentID]) > 0 {
		return errForeignKey
	}
	delete(db.allocations, paymentID)
	delete(db.payments, paymentID)
	return nil
}

func (db *memoryDB) DeleteOrder(ctx context.Context, tx shared.Tx, id int64) error {
	if len(db.items[id]) > 0 {
		return errForeignKey
	}
	if _, ok := db.paymentOf(id); ok {
		return errForeignKey
	}
	delete(db.items, id)
	delete(db.orders, id)
	return nil
}

func (db *memoryDB) summary(o Order) OrderSummary {
	s := OrderSummary{
		ID:            o.ID,
		OrderDate:     o.OrderDate,
		CustomerCPF:   o.CustomerCPF,
		CustomerName:  db.people[o.CustomerCPF].Name,
		CustomerEmail: db.people[o.CustomerCPF].Email,
		EmployeeCPF:   o.EmployeeCPF,
		EmployeeName:  db.people[o.EmployeeCPF].Name,
		Total:         decimal.Zero,
	}
	if p, ok := db.paymentOf(o.ID); ok {
		id, paidAt := p.ID, p.PaidAt
		s.Total, s.PaymentID, s.PaidAt = p.Total, &id, &paidAt
	}
	return s
}

func (db *memoryDB) sortedSummaries(filter func(Order) bool) []OrderSummary {
	out := []OrderSummary{}
	for _, o := range db.orders {
		if filter(o) {
			out = append(out, db.summary(o))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out
}

func (db *memoryDB) ListOrders(ctx context.Context) ([]OrderSummary, error) {
	return db.sortedSummaries(func(Order) bool { return true }), nil
}

func (db *memoryDB) ListOrdersByCustomer(ctx context.Context, cpf string) ([]OrderSummary, error) {
	return db.sortedSummaries(func(o Order) bool { return o.CustomerCPF == cpf }), nil
}

func (db *memoryDB) GetOrderSummary(ctx context.Context, id int64) (*OrderSummary, error) {
	o, ok := db.orders[id]
	if !ok {
		return nil, ErrOrderNotFound
	}
	s := db.summary(o)
	return &s, nil
}

func (db *memoryDB) ListItems(ctx context.Context, orderID int64) ([]ItemView, error) {
	out := []ItemView{}
	for _, it := range db.items[orderID] {
		out = append(out, ItemView{
			ProductID:   it.ProductID,
			ProductName: db.products[it.ProductID].Name,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
			Subtotal:    it.UnitPrice.Mul(decimal.NewFromInt(int64(it.Quantity))),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ProductID < out[j].ProductID })
	return out, nil
}

func (db *memoryDB) ListAllocations(ctx context.Context, orderID int64) ([]AllocationView, error) {
	out := []AllocationView{}
	if p, ok := db.paymentOf(orderID); ok {
		for _, a := range db.allocations[p.ID] {
			out = append(out, AllocationView{MethodID: a.MethodID, MethodName: db.methods[a.MethodID].Name, Amount: a.Amount})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].MethodID < out[j].MethodID })
	return out, nil
}

func (db *memoryDB) ListCustomers(ctx context.Context) ([]PersonRef, error) {
	out := []PersonRef{}
	for _, p := range db.people {
		if p.IsCustomer {
			out = append(out, PersonRef{CPF: p.CPF, Name: p.Name, Email: p.Email})
		}
	}
	return out, nil
}

func (db *memoryDB) ListEmployees(ctx context.Context) ([]PersonRef, error) {
	out := []PersonRef{}
	for cpf := range db.employees {
		p := db.people[cpf]
		out = append(out, PersonRef{CPF: p.CPF, Name: p.Name, Email: p.Email})
	}
	return out, nil
}

func (db *memoryDB) ListProductsInStock(ctx context.Context) ([]ProductRef, error) {
	out := []ProductRef{}
	for _, p := range db.products {
		if p.Stock > 0 {
			out = append(out, ProductRef{ID: p.ID, Name: p.Name, Price: p.Price, Stock: p.Stock})
		}
	}
	return out, nil
}

func (db *memoryDB) ListPaymentMethods(ctx context.Context) ([]PaymentMethod, error) {
	out := []PaymentMethod{}
	for _, m := range db.methods {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// totalUnitsSold soma as quantidades de todas as linhas gravadas do produto
func (db *memoryDB) totalUnitsSold(productID int64) int {
	total := 0
	for _, lines := range db.items {
		total += lines[productID].Quantity
	}
	return total
}

func (db *memoryDB) orphanCount() int {
	n := 0
	for orderID := range db.items {
		if _, ok := db.orders[orderID]; !ok {
			n++
		}
	}
	for _, p := range db.payments {
		if _, ok := db.orders[p.OrderID]; !ok {
			n++
		}
	}
	for paymentID := range db.allocations {
		if _, ok := db.payments[paymentID]; !ok {
			n++
		}
	}
	return n
}
