package service

import (
	"context"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"support-chat/internal/domain"
)

// AuthService verifica la credencial presentada al abrir una conexión y la
// cambia por una identidad (id, rol, nombre). La verificación corre bajo un
// presupuesto de tiempo acotado: si no termina dentro del plazo, la conexión
// se rechaza en lugar de quedar colgada.
type AuthService struct {
	secret  []byte
	timeout time.Duration
}

// Claims transporta la identidad dentro del token de acceso.
type Claims struct {
	UserID      string `json:"uid"`
	Role        string `json:"role"`
	DisplayName string `json:"display_name,omitempty"`
	Email       string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

func NewAuthService(secret string, timeout time.Duration) *AuthService {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &AuthService{
		secret:  []byte(secret),
		timeout: timeout,
	}
}

// Verify valida la credencial y devuelve la identidad verificada.
// Una credencial ausente falla de inmediato; una con forma inválida falla
// antes de intentar la verificación criptográfica.
func (s *AuthService) Verify(ctx context.Context, credential string) (domain.Identity, error) {
	credential = strings.TrimSpace(credential)
	if credential == "" {
		return domain.Identity{}, ErrCredentialMissing
	}
	if strings.Count(credential, ".") != 2 {
		return domain.Identity{}, ErrCredentialMalformed
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if ctx.Err() != nil {
		return domain.Identity{}, ErrAuthenticationTimeout
	}

	type result struct {
		identity domain.Identity
		err      error
	}
	done := make(chan result, 1)
	go func() {
		id, err := s.parse(credential)
		done <- result{identity: id, err: err}
	}()

	select {
	case <-ctx.Done():
		return domain.Identity{}, ErrAuthenticationTimeout
	case res := <-done:
		return res.identity, res.err
	}
}

func (s *AuthService) parse(credential string) (domain.Identity, error) {
	if len(s.secret) == 0 {
		return domain.Identity{}, ErrAuthenticationFailed
	}

	var claims Claims
	token, err := jwt.ParseWithClaims(credential, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrAuthenticationFailed
		}
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		return domain.Identity{}, ErrAuthenticationFailed
	}
	if claims.UserID == "" {
		return domain.Identity{}, ErrAuthenticationFailed
	}
	if claims.Role != domain.RoleCustomer && claims.Role != domain.RoleStaff {
		return domain.Identity{}, ErrAuthenticationFailed
	}

	return domain.Identity{
		ID:          claims.UserID,
		Role:        claims.Role,
		DisplayName: claims.DisplayName,
		Email:       claims.Email,
	}, nil
}
