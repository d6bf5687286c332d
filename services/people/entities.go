package people

import (
	"strings"
	"time"
	"unicode"

	"github.com/helo0ks/heloyse4bimestre/services/auth"
	"github.com/helo0ks/heloyse4bimestre/services/shared"
	"github.com/shopspring/decimal"
)

// MinPasswordLength é o tamanho mínimo de senha aceito no cadastro
const MinPasswordLength = 6

var maxCommissionPct = decimal.NewFromInt(100)

// Person representa uma pessoa cadastrada
type Person struct {
	CPF          string    `json:"cpf"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	Role         string    `json:"role"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// PersonInput é o corpo de criação/edição de pessoa
type PersonInput struct {
	CPF      string `json:"cpf"`
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password"`
	Role     string `json:"role" binding:"required"`
}

// Position representa um cargo
type Position struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// PositionInput é o corpo de criação/edição de cargo
type PositionInput struct {
	Name string `json:"name" binding:"required"`
}

// Employee é a visão do funcionário com os dados da pessoa e do cargo
type Employee struct {
	CPF           string          `json:"cpf"`
	Name          string          `json:"name"`
	Email         string          `json:"email"`
	Role          string          `json:"role"`
	Salary        decimal.Decimal `json:"salary"`
	CommissionPct decimal.Decimal `json:"commission_pct"`
	PositionID    *int64          `json:"position_id"`
	PositionName  *string         `json:"position_name"`
}

// EmployeeInput é o corpo de criação/edição de funcionário.
// No update, campos ausentes mantêm o valor gravado.
type EmployeeInput struct {
	CPF           string           `json:"cpf"`
	Salary        *decimal.Decimal `json:"salary"`
	CommissionPct *decimal.Decimal `json:"commission_pct"`
	PositionID    *int64           `json:"position_id"`
}

// NormalizeCPF remove a pontuação e exige 11 dígitos
func NormalizeCPF(raw string) (string, error) {
	var b strings.Builder
	for _, r := range raw {
		if unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	cpf := b.String()
	if len(cpf) != 11 {
		return "", shared.Validation("cpf must have 11 digits")
	}
	return cpf, nil
}

// normalize valida os campos comuns de pessoa; a senha é tratada pelo use case
func (in *PersonInput) normalize() error {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))

	if in.Name == "" {
		return shared.Validation("name is required")
	}
	if in.Email == "" {
		return shared.Validation("email is required")
	}

	role := auth.NormalizeRole(in.Role)
	if role == "" {
		return shared.Validation("role must be one of customer, employee, admin")
	}
	in.Role = role
	return nil
}

func validateCompensation(salary, commission *decimal.Decimal) error {
	if salary != nil && salary.IsNegative() {
		return shared.Validation("salary must be zero or greater")
	}
	if commission != nil && (commission.IsNegative() || commission.GreaterThan(maxCommissionPct)) {
		return shared.Validation("commission_pct must be between 0 and 100")
	}
	return nil
}
