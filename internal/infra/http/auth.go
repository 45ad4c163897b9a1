package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type ctxKey int

const userIDKey ctxKey = iota

// Claims токена доступа. Subject содержит UUID пользователя.
type Claims struct {
	jwt.RegisteredClaims
}

// JWTAuth проверяет Bearer токены, подписанные HS256.
type JWTAuth struct {
	secret []byte
	issuer string
}

// NewJWTAuth создаёт проверку токенов. Пустой issuer не проверяется.
func NewJWTAuth(secret, issuer string) (*JWTAuth, error) {
	if secret == "" {
		return nil, errors.New("jwt secret is empty")
	}
	return &JWTAuth{secret: []byte(secret), issuer: issuer}, nil
}

// ParseUserID проверяет токен и возвращает UUID пользователя из sub.
func (a *JWTAuth) ParseUserID(raw string) (string, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if a.issuer != "" {
		opts = append(opts, jwt.WithIssuer(a.issuer))
	}
	token, err := jwt.ParseWithClaims(raw, &Claims{}, func(*jwt.Token) (any, error) {
		return a.secret, nil
	}, opts...)
	if err != nil {
		return "", err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return "", errors.New("invalid token")
	}
	id, err := uuid.Parse(claims.Subject)
	if err != nil {
		return "", fmt.Errorf("subject is not a uuid: %w", err)
	}
	return id.String(), nil
}

// Issue подписывает токен для пользователя. Используется CLI и тестами.
func (a *JWTAuth) Issue(userID string, claims jwt.RegisteredClaims) (string, error) {
	claims.Subject = userID
	if claims.Issuer == "" {
		claims.Issuer = a.issuer
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{RegisteredClaims: claims}).SignedString(a.secret)
}

// Middleware пропускает только запросы с валидным токеном и кладёт user id в контекст.
func (a *JWTAuth) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := bearerToken(r)
		if raw == "" {
			WriteError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
			return
		}
		userID, err := a.ParseUserID(raw)
		if err != nil {
			WriteError(w, http.StatusUnauthorized, "unauthorized", "invalid token")
			return
		}
		next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), userID)))
	})
}

// WithUserID кладёт идентификатор пользователя в контекст.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// UserID возвращает идентификатор аутентифицированного пользователя.
func UserID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(userIDKey).(string)
	return id, ok && id != ""
}

// bearerToken читает токен из заголовка Authorization или параметра ?token=.
func bearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(header) > 7 && strings.EqualFold(header[:7], "bearer ") {
		return strings.TrimSpace(header[7:])
	}
	if header != "" {
		return ""
	}
	return strings.TrimSpace(r.URL.Query().Get("token"))
}
