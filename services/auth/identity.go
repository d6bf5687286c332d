package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"
)

const (
	RoleCustomer = "customer"
	RoleEmployee = "employee"
	RoleAdmin    = "admin"
)

// ErrUnauthenticated indica token ausente, inválido ou expirado
var ErrUnauthenticated = errors.New("missing or invalid credentials")

// Identity é o usuário autenticado da requisição
type Identity struct {
	CPF   string `json:"cpf"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// IsAdmin informa se a identidade tem papel de administrador
func (i Identity) IsAdmin() bool {
	return i.Role == RoleAdmin
}

// Verifier resolve a identidade de uma requisição
type Verifier interface {
	Verify(ctx context.Context, r *http.Request) (*Identity, error)
}

// NormalizeRole aceita os nomes em português usados pelo serviço de login
func NormalizeRole(role string) string {
	switch strings.ToLower(strings.TrimSpace(role)) {
	case "admin", "administrador":
		return RoleAdmin
	case "employee", "funcionario", "funcionário":
		return RoleEmployee
	case "customer", "cliente":
		return RoleCustomer
	default:
		return ""
	}
}

// ValidRole informa se role é um dos papéis conhecidos
func ValidRole(role string) bool {
	return role == RoleCustomer || role == RoleEmployee || role == RoleAdmin
}

// tokenFromRequest lê o token do header Authorization (Bearer) ou do cookie
func tokenFromRequest(r *http.Request, cookieName string) string {
	if header := r.Header.Get("Authorization"); header != "" {
		if token, ok := strings.CutPrefix(header, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
	}
	if cookieName == "" {
		return ""
	}
	cookie, err := r.Cookie(cookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}
