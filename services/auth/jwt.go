package auth

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims são as claims dos tokens emitidos pelo serviço de login
type Claims struct {
	CPF   string `json:"cpf"`
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// JWTVerifier valida tokens HS256 localmente
type JWTVerifier struct {
	secret     []byte
	cookieName string
}

// NewJWTVerifier cria um verificador com o segredo compartilhado
func NewJWTVerifier(secret []byte, cookieName string) *JWTVerifier {
	return &JWTVerifier{secret: secret, cookieName: cookieName}
}

func (v *JWTVerifier) Verify(_ context.Context, r *http.Request) (*Identity, error) {
	raw := tokenFromRequest(r, v.cookieName)
	if raw == "" {
		return nil, ErrUnauthenticated
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		return v.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}

	role := NormalizeRole(claims.Role)
	if claims.CPF == "" || role == "" {
		return nil, fmt.Errorf("%w: incomplete claims", ErrUnauthenticated)
	}

	return &Identity{CPF: claims.CPF, Email: claims.Email, Role: role}, nil
}

// IssueToken assina um token HS256 para a identidade
func IssueToken(secret []byte, id Identity, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		CPF:   id.CPF,
		Email: id.Email,
		Role:  id.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.CPF,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}
