package people

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/helo0ks/heloyse4bimestre/services/auth"
	"github.com/helo0ks/heloyse4bimestre/services/shared"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

// PersonUseCase contém as regras de cadastro de pessoas
type PersonUseCase struct {
	repository PersonRepository
	hashCost   int
}

// NewPersonUseCase cria uma nova instância de PersonUseCase
func NewPersonUseCase(repository PersonRepository, hashCost int) *PersonUseCase {
	if hashCost == 0 {
		hashCost = bcrypt.DefaultCost
	}
	return &PersonUseCase{
		repository: repository,
		hashCost:   hashCost,
	}
}

func (uc *PersonUseCase) hashPassword(password string) (string, error) {
	if len(password) < MinPasswordLength {
		return "", shared.Validation("password must have at least %d characters", MinPasswordLength)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), uc.hashCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

func (uc *PersonUseCase) List(ctx context.Context) ([]Person, error) {
	return uc.repository.ListPeople(ctx)
}

func (uc *PersonUseCase) Get(ctx context.Context, rawCPF string) (*Person, error) {
	cpf, err := NormalizeCPF(rawCPF)
	if err != nil {
		return nil, err
	}
	p, err := uc.repository.GetPerson(ctx, cpf)
	if errors.Is(err, ErrPersonNotFound) {
		return nil, shared.NotFound("person not found")
	}
	return p, err
}

// Create grava a pessoa e, para clientes, a linha de customers na mesma transação
func (uc *PersonUseCase) Create(ctx context.Context, in PersonInput) (*Person, error) {
	cpf, err := NormalizeCPF(in.CPF)
	if err != nil {
		return nil, err
	}
	if err := in.normalize(); err != nil {
		return nil, err
	}
	hash, err := uc.hashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	person := &Person{CPF: cpf, Name: in.Name, Email: in.Email, Role: in.Role, PasswordHash: hash}

	tx, err := uc.repository.BeginTx(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if err := uc.repository.InsertPerson(ctx, tx, person); err != nil {
		return nil, err
	}
	if person.Role == auth.RoleCustomer {
		if err := uc.repository.EnsureCustomer(ctx, tx, cpf); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit person: %w", err)
	}

	log.Printf("✅ [PERSON] created CPF=%s role=%s", cpf, person.Role)
	return person, nil
}

// Update sobrescreve nome, email e papel; senha vazia mantém o hash atual
func (uc *PersonUseCase) Update(ctx context.Context, rawCPF string, in PersonInput) (*Person, error) {
	cpf, err := NormalizeCPF(rawCPF)
	if err != nil {
		return nil, err
	}
	if err := in.normalize(); err != nil {
		return nil, err
	}

	var newHash string
	if in.Password != "" {
		if newHash, err = uc.hashPassword(in.Password); err != nil {
			return nil, err
		}
	}

	tx, err := uc.repository.BeginTx(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	person, err := uc.repository.GetPersonForUpdate(ctx, tx, cpf)
	if errors.Is(err, ErrPersonNotFound) {
		return nil, shared.NotFound("person not found")
	}
	if err != nil {
		return nil, err
	}

	person.Name = in.Name
	person.Email = in.Email
	person.Role = in.Role
	if newHash != "" {
		person.PasswordHash = newHash
	}

	if err := uc.repository.UpdatePerson(ctx, tx, person); err != nil {
		return nil, err
	}
	if person.Role == auth.RoleCustomer {
		if err := uc.repository.EnsureCustomer(ctx, tx, cpf); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit person: %w", err)
	}
	return person, nil
}

// Delete remove a pessoa quando ela não é funcionário nem tem pedidos
func (uc *PersonUseCase) Delete(ctx context.Context, rawCPF string) error {
	cpf, err := NormalizeCPF(rawCPF)
	if err != nil {
		return err
	}

	tx, err := uc.repository.BeginTx(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := uc.repository.GetPersonForUpdate(ctx, tx, cpf); err != nil {
		if errors.Is(err, ErrPersonNotFound) {
			return shared.NotFound("person not found")
		}
		return err
	}

	isEmployee, err := uc.repository.IsEmployee(ctx, tx, cpf)
	if err != nil {
		return err
	}
	if isEmployee {
		return shared.Validation("person is registered as an employee, remove the employee first")
	}

	hasOrders, err := uc.repository.HasOrders(ctx, tx, cpf)
	if err != nil {
		return err
	}
	if hasOrders {
		return shared.Validation("person has orders and cannot be removed")
	}

	if err := uc.repository.DeletePerson(ctx, tx, cpf); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit person removal: %w", err)
	}

	log.Printf("🗑️ [PERSON] deleted CPF=%s", cpf)
	return nil
}

// PositionUseCase contém as regras de cargos
type PositionUseCase struct {
	repository PositionRepository
}

// NewPositionUseCase cria uma nova instância de PositionUseCase
func NewPositionUseCase(repository PositionRepository) *PositionUseCase {
	return &PositionUseCase{repository: repository}
}

func (uc *PositionUseCase) List(ctx context.Context) ([]Position, error) {
	return uc.repository.ListPositions(ctx)
}

func (uc *PositionUseCase) Get(ctx context.Context, id int64) (*Position, error) {
	p, err := uc.repository.GetPosition(ctx, id)
	if errors.Is(err, ErrPositionNotFound) {
		return nil, shared.NotFound("position not found")
	}
	return p, err
}

func (uc *PositionUseCase) Create(ctx context.Context, in PositionInput) (*Position, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, shared.Validation("name is required")
	}
	return uc.repository.CreatePosition(ctx, name)
}

func (uc *PositionUseCase) Update(ctx context.Context, id int64, in PositionInput) (*Position, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, shared.Validation("name is required")
	}
	p, err := uc.repository.UpdatePosition(ctx, id, name)
	if errors.Is(err, ErrPositionNotFound) {
		return nil, shared.NotFound("position not found")
	}
	return p, err
}

// Delete remove o cargo se nenhum funcionário o referencia
func (uc *PositionUseCase) Delete(ctx context.Context, id int64) error {
	tx, err := uc.repository.BeginTx(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	found, err := uc.repository.LockPosition(ctx, tx, id)
	if err != nil {
		return err
	}
	if !found {
		return shared.NotFound("position not found")
	}

	inUse, err := uc.repository.PositionInUse(ctx, tx, id)
	if err != nil {
		return err
	}
	if inUse {
		return shared.Validation("position is assigned to employees and cannot be removed")
	}

	if err := uc.repository.DeletePosition(ctx, tx, id); err != nil {
		return err
	}
	return tx.Commit()
}

// EmployeeUseCase contém as regras de cadastro de funcionários
type EmployeeUseCase struct {
	repository EmployeeRepository
}

// NewEmployeeUseCase cria uma nova instância de EmployeeUseCase
func NewEmployeeUseCase(repository EmployeeRepository) *EmployeeUseCase {
	return &EmployeeUseCase{repository: repository}
}

func (uc *EmployeeUseCase) List(ctx context.Context) ([]Employee, error) {
	return uc.repository.ListEmployees(ctx)
}

// AvailablePeople lista as pessoas que podem virar funcionários
func (uc *EmployeeUseCase) AvailablePeople(ctx context.Context) ([]Person, error) {
	return uc.repository.ListAvailablePeople(ctx)
}

func (uc *EmployeeUseCase) Get(ctx context.Context, rawCPF string) (*Employee, error) {
	cpf, err := NormalizeCPF(rawCPF)
	if err != nil {
		return nil, err
	}
	e, err := uc.repository.GetEmployee(ctx, cpf)
	if errors.Is(err, ErrEmployeeNotFound) {
		return nil, shared.NotFound("employee not found")
	}
	return e, err
}

func (uc *EmployeeUseCase) checkPosition(ctx context.Context, tx shared.Tx, id *int64) error {
	if id == nil {
		return nil
	}
	found, err := uc.repository.LockPosition(ctx, tx, *id)
	if err != nil {
		return err
	}
	if !found {
		return shared.Validation("position not found")
	}
	return nil
}

// Create cadastra o funcionário verificando pessoa, duplicidade e cargo antes de gravar
func (uc *EmployeeUseCase) Create(ctx context.Context, in EmployeeInput) (*Employee, error) {
	cpf, err := NormalizeCPF(in.CPF)
	if err != nil {
		return nil, err
	}
	if in.Salary == nil {
		return nil, shared.Validation("salary is required")
	}
	if err := validateCompensation(in.Salary, in.CommissionPct); err != nil {
		return nil, err
	}

	employee := &Employee{CPF: cpf, Salary: *in.Salary, CommissionPct: decimal.Zero, PositionID: in.PositionID}
	if in.CommissionPct != nil {
		employee.CommissionPct = *in.CommissionPct
	}

	// 1. Inicia a transação
	tx, err := uc.repository.BeginTx(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	// 2. A pessoa precisa existir
	if _, err := uc.repository.GetPersonForUpdate(ctx, tx, cpf); err != nil {
		if errors.Is(err, ErrPersonNotFound) {
			return nil, shared.Validation("cpf not registered as a person, register the person first")
		}
		return nil, err
	}

	// 3. E ainda não pode ser funcionário
	already, err := uc.repository.IsEmployee(ctx, tx, cpf)
	if err != nil {
		return nil, err
	}
	if already {
		return nil, shared.Validation("person is already registered as an employee")
	}

	// 4. Cargo, quando informado, precisa existir
	if err := uc.checkPosition(ctx, tx, in.PositionID); err != nil {
		return nil, err
	}

	if err := uc.repository.InsertEmployee(ctx, tx, employee); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit employee: %w", err)
	}

	log.Printf("✅ [EMPLOYEE] created CPF=%s", cpf)
	return uc.repository.GetEmployee(ctx, cpf)
}

// Update altera apenas os campos informados
func (uc *EmployeeUseCase) Update(ctx context.Context, rawCPF string, in EmployeeInput) (*Employee, error) {
	cpf, err := NormalizeCPF(rawCPF)
	if err != nil {
		return nil, err
	}
	if err := validateCompensation(in.Salary, in.CommissionPct); err != nil {
		return nil, err
	}

	tx, err := uc.repository.BeginTx(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	employee, err := uc.repository.GetEmployeeForUpdate(ctx, tx, cpf)
	if errors.Is(err, ErrEmployeeNotFound) {
		return nil, shared.NotFound("employee not found")
	}
	if err != nil {
		return nil, err
	}

	if in.Salary != nil {
		employee.Salary = *in.Salary
	}
	if in.CommissionPct != nil {
		employee.CommissionPct = *in.CommissionPct
	}
	if in.PositionID != nil {
		if err := uc.checkPosition(ctx, tx, in.PositionID); err != nil {
			return nil, err
		}
		employee.PositionID = in.PositionID
	}

	if err := uc.repository.UpdateEmployee(ctx, tx, employee); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit employee: %w", err)
	}
	return uc.repository.GetEmployee(ctx, cpf)
}

func (uc *EmployeeUseCase) Delete(ctx context.Context, rawCPF string) error {
	cpf, err := NormalizeCPF(rawCPF)
	if err != nil {
		return err
	}

	err = uc.repository.DeleteEmployee(ctx, cpf)
	switch {
	case errors.Is(err, ErrEmployeeNotFound):
		return shared.NotFound("employee not found")
	case shared.IsForeignKeyViolation(err):
		return shared.Validation("employee has dependent orders")
	case err != nil:
		return err
	}

	log.Printf("🗑️ [EMPLOYEE] deleted CPF=%s", cpf)
	return nil
}
