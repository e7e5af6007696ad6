package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/julienschmidt/httprouter"

	"jobconnect/globals"
	"jobconnect/utils"
)

// JWT claims
type Claims struct {
	UserID string `json:"userId"`
	Role   string `json:"role"`
	Phone  string `json:"phone"`
	jwt.RegisteredClaims
}

// Auth signs and checks access tokens with one HMAC secret.
type Auth struct {
	Secret []byte
	TTL    time.Duration
}

func NewAuth(secret []byte, ttl time.Duration) *Auth {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Auth{Secret: secret, TTL: ttl}
}

// IssueToken signs {userId, role, phone} with the configured expiry.
func (a *Auth) IssueToken(userID, role, phone string) (string, error) {
	now := time.Now()
	claims := &Claims{
		UserID: userID,
		Role:   role,
		Phone:  phone,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.TTL)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.Secret)
}

// ParseToken validates a raw (no "Bearer ") token.
func ParseToken(tokenString string, secret []byte) (*Claims, error) {
	if tokenString == "" {
		return nil, errors.New("missing token")
	}
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return nil, err
	}
	if !token.Valid || claims.UserID == "" {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

func bearer(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	if !strings.HasPrefix(h, "Bearer ") || len(h) <= len("Bearer ") {
		return "", false
	}
	return strings.TrimSpace(h[len("Bearer "):]), true
}

func withClaims(r *http.Request, c *Claims) *http.Request {
	ctx := context.WithValue(r.Context(), globals.UserIDKey, c.UserID)
	ctx = context.WithValue(ctx, globals.RoleKey, c.Role)
	ctx = context.WithValue(ctx, globals.PhoneKey, c.Phone)
	return r.WithContext(ctx)
}

// Authenticate rejects the request with 401 unless it carries a valid bearer token.
func (a *Auth) Authenticate(next httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		if r.Header.Get("Authorization") == "" {
			utils.RespondWithError(w, http.StatusUnauthorized, "Access denied. No token provided.")
			return
		}
		tokenString, ok := bearer(r)
		if !ok {
			utils.RespondWithError(w, http.StatusUnauthorized, "Invalid token format")
			return
		}
		claims, err := ParseToken(tokenString, a.Secret)
		if err != nil {
			utils.RespondWithError(w, http.StatusUnauthorized, "Invalid token")
			return
		}
		next(w, withClaims(r, claims), ps)
	}
}

// OptionalAuth attaches claims when a valid token is present and proceeds regardless.
func (a *Auth) OptionalAuth(next httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		if tokenString, ok := bearer(r); ok {
			if claims, err := ParseToken(tokenString, a.Secret); err == nil {
				r = withClaims(r, claims)
			}
		}
		next(w, r, ps)
	}
}

// RequireRole must run inside Authenticate.
func RequireRole(role string, next httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		if utils.GetRoleFromRequest(r) != role {
			utils.RespondWithError(w, http.StatusForbidden, "Only "+role+"s can do this")
			return
		}
		next(w, r, ps)
	}
}
