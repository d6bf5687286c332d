package auth

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// sessionResponse é a resposta de GET /auth/check-session do serviço de login
type sessionResponse struct {
	Authenticated bool `json:"authenticated"`
	User          struct {
		CPF   string `json:"cpf"`
		Email string `json:"email"`
		Tipo  string `json:"tipo"`
		Role  string `json:"role"`
	} `json:"user"`
}

// RemoteVerifier delega a verificação da sessão ao serviço de login
type RemoteVerifier struct {
	client     *resty.Client
	sessionURL string
	cookieName string
}

// NewRemoteVerifier cria um verificador que consulta {baseURL}/auth/check-session
func NewRemoteVerifier(baseURL, cookieName string, timeout time.Duration) *RemoteVerifier {
	return &RemoteVerifier{
		client:     resty.New().SetTimeout(timeout),
		sessionURL: strings.TrimRight(baseURL, "/") + "/auth/check-session",
		cookieName: cookieName,
	}
}

func (v *RemoteVerifier) Verify(ctx context.Context, r *http.Request) (*Identity, error) {
	req := v.client.R().
		SetContext(ctx).
		SetResult(&sessionResponse{})

	if header := r.Header.Get("Authorization"); header != "" {
		req.SetHeader("Authorization", header)
	}
	if v.cookieName != "" {
		if cookie, err := r.Cookie(v.cookieName); err == nil {
			req.SetCookie(&http.Cookie{Name: cookie.Name, Value: cookie.Value})
		}
	}

	resp, err := req.Get(v.sessionURL)
	if err != nil {
		return nil, fmt.Errorf("failed to check session: %w", err)
	}
	if resp.StatusCode() == http.StatusUnauthorized || resp.StatusCode() == http.StatusForbidden {
		return nil, ErrUnauthenticated
	}
	if resp.IsError() {
		return nil, fmt.Errorf("session service returned status %d", resp.StatusCode())
	}

	session, ok := resp.Result().(*sessionResponse)
	if !ok || !session.Authenticated {
		return nil, ErrUnauthenticated
	}

	role := NormalizeRole(session.User.Role)
	if role == "" {
		role = NormalizeRole(session.User.Tipo)
	}
	if session.User.CPF == "" || role == "" {
		return nil, fmt.Errorf("%w: incomplete session", ErrUnauthenticated)
	}

	return &Identity{CPF: session.User.CPF, Email: session.User.Email, Role: role}, nil
}
