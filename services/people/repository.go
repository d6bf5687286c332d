package people

import (
	"context"
	"errors"
	"fmt"

	"github.com/helo0ks/heloyse4bimestre/services/shared"
	"github.com/jackc/pgx/v5"
)

var (
	ErrPersonNotFound   = errors.New("person not found")
	ErrPositionNotFound = errors.New("position not found")
	ErrEmployeeNotFound = errors.New("employee not found")
)

// PersonRepository define o acesso a pessoas e clientes
type PersonRepository interface {
	BeginTx(ctx context.Context) (shared.Tx, error)
	ListPeople(ctx context.Context) ([]Person, error)
	GetPerson(ctx context.Context, cpf string) (*Person, error)
	GetPersonForUpdate(ctx context.Context, tx shared.Tx, cpf string) (*Person, error)
	InsertPerson(ctx context.Context, tx shared.Tx, p *Person) error
	UpdatePerson(ctx context.Context, tx shared.Tx, p *Person) error
	EnsureCustomer(ctx context.Context, tx shared.Tx, cpf string) error
	IsEmployee(ctx context.Context, tx shared.Tx, cpf string) (bool, error)
	HasOrders(ctx context.Context, tx shared.Tx, cpf string) (bool, error)
	DeletePerson(ctx context.Context, tx shared.Tx, cpf string) error
}

// PositionRepository define o acesso a cargos
type PositionRepository interface {
	BeginTx(ctx context.Context) (shared.Tx, error)
	ListPositions(ctx context.Context) ([]Position, error)
	GetPosition(ctx context.Context, id int64) (*Position, error)
	CreatePosition(ctx context.Context, name string) (*Position, error)
	UpdatePosition(ctx context.Context, id int64, name string) (*Position, error)
	LockPosition(ctx context.Context, tx shared.Tx, id int64) (bool, error)
	PositionInUse(ctx context.Context, tx shared.Tx, id int64) (bool, error)
	DeletePosition(ctx context.Context, tx shared.Tx, id int64) error
}

// EmployeeRepository define o acesso a funcionários
type EmployeeRepository interface {
	BeginTx(ctx context.Context) (shared.Tx, error)
	ListEmployees(ctx context.Context) ([]Employee, error)
	ListAvailablePeople(ctx context.Context) ([]Person, error)
	GetEmployee(ctx context.Context, cpf string) (*Employee, error)
	GetPersonForUpdate(ctx context.Context, tx shared.Tx, cpf string) (*Person, error)
	IsEmployee(ctx context.Context, tx shared.Tx, cpf string) (bool, error)
	LockPosition(ctx context.Context, tx shared.Tx, id int64) (bool, error)
	GetEmployeeForUpdate(ctx context.Context, tx shared.Tx, cpf string) (*Employee, error)
	InsertEmployee(ctx context.Context, tx shared.Tx, e *Employee) error
	UpdateEmployee(ctx context.Context, tx shared.Tx, e *Employee) error
	DeleteEmployee(ctx context.Context, cpf string) error
}

// PostgresRepository implementa os três repositórios sobre o mesmo pool
type PostgresRepository struct {
	db shared.Pool
}

// NewPostgresRepository cria uma nova instância do repositório
func NewPostgresRepository(db shared.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) BeginTx(ctx context.Context) (shared.Tx, error) {
	return shared.BeginTx(ctx, r.db)
}

const personColumns = `cpf, name, email, role, created_at`

func scanPerson(row pgx.Row) (*Person, error) {
	var p Person
	if err := row.Scan(&p.CPF, &p.Name, &p.Email, &p.Role, &p.CreatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *PostgresRepository) queryPeople(ctx context.Context, query string) ([]Person, error) {
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list people: %w", err)
	}
	defer rows.Close()

	people := []Person{}
	for rows.Next() {
		p, err := scanPerson(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan person: %w", err)
		}
		people = append(people, *p)
	}
	return people, rows.Err()
}

func (r *PostgresRepository) ListPeople(ctx context.Context) ([]Person, error) {
	return r.queryPeople(ctx, `SELECT `+personColumns+` FROM people ORDER BY name, cpf`)
}

// ListAvailablePeople lista pessoas que ainda não são funcionários
func (r *PostgresRepository) ListAvailablePeople(ctx context.Context) ([]Person, error) {
	return r.queryPeople(ctx, `
		SELECT `+personColumns+` FROM people p
		WHERE NOT EXISTS (SELECT 1 FROM employees e WHERE e.person_cpf = p.cpf)
		ORDER BY name, cpf`)
}

func (r *PostgresRepository) GetPerson(ctx context.Context, cpf string) (*Person, error) {
	p, err := scanPerson(r.db.QueryRow(ctx, `SELECT `+personColumns+` FROM people WHERE cpf = $1`, cpf))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrPersonNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get person: %w", err)
	}
	return p, nil
}

// GetPersonForUpdate busca a pessoa com lock (SELECT FOR UPDATE), incluindo o hash da senha
func (r *PostgresRepository) GetPersonForUpdate(ctx context.Context, tx shared.Tx, cpf string) (*Person, error) {
	var p Person
	err := shared.Pgx(tx).QueryRow(ctx, `
		SELECT cpf, name, email, role, password_hash, created_at
		FROM people WHERE cpf = $1 FOR UPDATE`, cpf,
	).Scan(&p.CPF, &p.Name, &p.Email, &p.Role, &p.PasswordHash, &p.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrPersonNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock person: %w", err)
	}
	return &p, nil
}

func (r *PostgresRepository) InsertPerson(ctx context.Context, tx shared.Tx, p *Person) error {
	err := shared.Pgx(tx).QueryRow(ctx, `
		INSERT INTO people (cpf, name, email, password_hash, role)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at`,
		p.CPF, p.Name, p.Email, p.PasswordHash, p.Role,
	).Scan(&p.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert person: %w", err)
	}
	return nil
}

func (r *PostgresRepository) UpdatePerson(ctx context.Context, tx shared.Tx, p *Person) error {
	tag, err := shared.Pgx(tx).Exec(ctx, `
		UPDATE people SET name = $1, email = $2, role = $3, password_hash = $4
		WHERE cpf = $5`,
		p.Name, p.Email, p.Role, p.PasswordHash, p.CPF,
	)
	if err != nil {
		return fmt.Errorf("failed to update person: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrPersonNotFound
	}
	return nil
}

// EnsureCustomer garante a linha de extensão em customers
func (r *PostgresRepository) EnsureCustomer(ctx context.Context, tx shared.Tx, cpf string) error {
	_, err := shared.Pgx(tx).Exec(ctx, `
		INSERT INTO customers (person_cpf) VALUES ($1)
		ON CONFLICT (person_cpf) DO NOTHING`, cpf)
	if err != nil {
		return fmt.Errorf("failed to insert customer: %w", err)
	}
	return nil
}

func (r *PostgresRepository) exists(ctx context.Context, tx shared.Tx, query string, arg any) (bool, error) {
	var exists bool
	if err := shared.Pgx(tx).QueryRow(ctx, query, arg).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check existence: %w", err)
	}
	return exists, nil
}

func (r *PostgresRepository) IsEmployee(ctx context.Context, tx shared.Tx, cpf string) (bool, error) {
	return r.exists(ctx, tx, `SELECT EXISTS (SELECT 1 FROM employees WHERE person_cpf = $1)`, cpf)
}

func (r *PostgresRepository) HasOrders(ctx context.Context, tx shared.Tx, cpf string) (bool, error) {
	return r.exists(ctx, tx, `SELECT EXISTS (SELECT 1 FROM orders WHERE customer_cpf = $1)`, cpf)
}

// DeletePerson remove a linha de customers e depois a pessoa
func (r *PostgresRepository) DeletePerson(ctx context.Context, tx shared.Tx, cpf string) error {
	pgxTx := shared.Pgx(tx)
	if _, err := pgxTx.Exec(ctx, `DELETE FROM customers WHERE person_cpf = $1`, cpf); err != nil {
		return fmt.Errorf("failed to delete customer: %w", err)
	}
	tag, err := pgxTx.Exec(ctx, `DELETE FROM people WHERE cpf = $1`, cpf)
	if err != nil {
		return fmt.Errorf("failed to delete person: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrPersonNotFound
	}
	return nil
}

func (r *PostgresRepository) ListPositions(ctx context.Context) ([]Position, error) {
	rows, err := r.db.Query(ctx, `SELECT id, name FROM positions ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list positions: %w", err)
	}
	defer rows.Close()

	positions := []Position{}
	for rows.Next() {
		var p Position
		if err := rows.Scan(&p.ID, &p.Name); err != nil {
			return nil, fmt.Errorf("failed to scan position: %w", err)
		}
		positions = append(positions, p)
	}
	return positions, rows.Err()
}

func (r *PostgresRepository) GetPosition(ctx context.Context, id int64) (*Position, error) {
	var p Position
	err := r.db.QueryRow(ctx, `SELECT id, name FROM positions WHERE id = $1`, id).Scan(&p.ID, &p.Name)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrPositionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get position: %w", err)
	}
	return &p, nil
}

func (r *PostgresRepository) CreatePosition(ctx context.Context, name string) (*Position, error) {
	p := Position{Name: name}
	if err := r.db.QueryRow(ctx, `INSERT INTO positions (name) VALUES ($1) RETURNING id`, name).Scan(&p.ID); err != nil {
		return nil, fmt.Errorf("failed to create position: %w", err)
	}
	return &p, nil
}

func (r *PostgresRepository) UpdatePosition(ctx context.Context, id int64, name string) (*Position, error) {
	tag, err := r.db.Exec(ctx, `UPDATE positions SET name = $1 WHERE id = $2`, name, id)
	if err != nil {
		return nil, fmt.Errorf("failed to update position: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, ErrPositionNotFound
	}
	return &Position{ID: id, Name: name}, nil
}

// LockPosition trava o cargo (SELECT FOR UPDATE) e informa se ele existe
func (r *PostgresRepository) LockPosition(ctx context.Context, tx shared.Tx, id int64) (bool, error) {
	var locked int64
	err := shared.Pgx(tx).QueryRow(ctx, `SELECT id FROM positions WHERE id = $1 FOR UPDATE`, id).Scan(&locked)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to lock position: %w", err)
	}
	return true, nil
}

func (r *PostgresRepository) PositionInUse(ctx context.Context, tx shared.Tx, id int64) (bool, error) {
	return r.exists(ctx, tx, `SELECT EXISTS (SELECT 1 FROM employees WHERE position_id = $1)`, id)
}

func (r *PostgresRepository) DeletePosition(ctx context.Context, tx shared.Tx, id int64) error {
	tag, err := shared.Pgx(tx).Exec(ctx, `DELETE FROM positions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete position: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrPositionNotFound
	}
	return nil
}

const employeeSelect = `
	SELECT e.person_cpf, p.name, p.email, p.role, e.salary, e.commission_pct, e.position_id, pos.name
	FROM employees e
	JOIN people p ON p.cpf = e.person_cpf
	LEFT JOIN positions pos ON pos.id = e.position_id`

func scanEmployee(row pgx.Row) (*Employee, error) {
	var e Employee
	err := row.Scan(&e.CPF, &e.Name, &e.Email, &e.Role, &e.Salary, &e.CommissionPct, &e.PositionID, &e.PositionName)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *PostgresRepository) ListEmployees(ctx context.Context) ([]Employee, error) {
	rows, err := r.db.Query(ctx, employeeSelect+` ORDER BY p.name, e.person_cpf`)
	if err != nil {
		return nil, fmt.Errorf("failed to list employees: %w", err)
	}
	defer rows.Close()

	employees := []Employee{}
	for rows.Next() {
		e, err := scanEmployee(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan employee: %w", err)
		}
		employees = append(employees, *e)
	}
	return employees, rows.Err()
}

func (r *PostgresRepository) GetEmployee(ctx context.Context, cpf string) (*Employee, error) {
	e, err := scanEmployee(r.db.QueryRow(ctx, employeeSelect+` WHERE e.person_cpf = $1`, cpf))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrEmployeeNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get employee: %w", err)
	}
	return e, nil
}

// GetEmployeeForUpdate busca o registro do funcionário com lock
func (r *PostgresRepository) GetEmployeeForUpdate(ctx context.Context, tx shared.Tx, cpf string) (*Employee, error) {
	var e Employee
	err := shared.Pgx(tx).QueryRow(ctx, `
		SELECT person_cpf, salary, commission_pct, position_id
		FROM employees WHERE person_cpf = $1 FOR UPDATE`, cpf,
	).Scan(&e.CPF, &e.Salary, &e.CommissionPct, &e.PositionID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrEmployeeNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock employee: %w", err)
	}
	return &e, nil
}

func (r *PostgresRepository) InsertEmployee(ctx context.Context, tx shared.Tx, e *Employee) error {
	_, err := shared.Pgx(tx).Exec(ctx, `
		INSERT INTO employees (person_cpf, salary, commission_pct, position_id)
		VALUES ($1, $2, $3, $4)`,
		e.CPF, e.Salary, e.CommissionPct, e.PositionID,
	)
	if err != nil {
		return fmt.Errorf("failed to insert employee: %w", err)
	}
	return nil
}

func (r *PostgresRepository) UpdateEmployee(ctx context.Context, tx shared.Tx, e *Employee) error {
	_, err := shared.Pgx(tx).Exec(ctx, `
		UPDATE employees SET salary = $1, commission_pct = $2, position_id = $3
		WHERE person_cpf = $4`,
		e.Salary, e.CommissionPct, e.PositionID, e.CPF,
	)
	if err != nil {
		return fmt.Errorf("failed to update employee: %w", err)
	}
	return nil
}

func (r *PostgresRepository) DeleteEmployee(ctx context.Context, cpf string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM employees WHERE person_cpf = $1`, cpf)
	if err != nil {
		return fmt.Errorf("failed to delete employee: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrEmployeeNotFound
	}
	return nil
}
