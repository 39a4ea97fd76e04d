package auth

import (
	"context"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"grantly.org/internal/apperr"
)

// Service turns a raw Authorization header value into an Auth. It is the
// single seam where a real credential backend can be substituted without
// touching the service or query layers.
type Service struct {
	secret []byte
}

// ServiceOption configures Service behavior.
type ServiceOption func(*Service)

// WithTokenSecret enables HS256 JWT verification; the token's "sub" claim
// becomes the subject. Without a secret the service runs the demo policy:
// any non-empty token is taken as the subject verbatim.
func WithTokenSecret(secret string) ServiceOption {
	return func(s *Service) {
		if strings.TrimSpace(secret) != "" {
			s.secret = []byte(secret)
		}
	}
}

// NewService constructs the authorization service.
func NewService(opts ...ServiceOption) *Service {
	svc := &Service{}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// Authorize derives the request's Auth from the Authorization header
// value. An absent credential yields an anonymous Auth, not an error;
// whether anonymity is acceptable is the caller's assertion to make.
func (s *Service) Authorize(ctx context.Context, header string) (Auth, error) {
	token := strings.TrimSpace(header)
	if t, ok := strings.CutPrefix(token, "Bearer "); ok {
		token = strings.TrimSpace(t)
	}
	if token == "" {
		return Auth{}, nil
	}

	if len(s.secret) == 0 {
		// Demo-grade policy: presence of a token is the whole trust
		// decision and the token itself names the subject.
		return NewAuth(token), nil
	}

	claims := jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, apperr.Unauthorized("unexpected-signing-method")
		}
		return s.secret, nil
	})
	if err != nil || !parsed.Valid {
		return Auth{}, apperr.Unauthorized("invalid-token")
	}
	if claims.Subject == "" {
		return Auth{}, apperr.Unauthorized("subject-missing")
	}
	return NewAuth(claims.Subject), nil
}
