package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type contextKey string

const donorIDKey contextKey = "donor_id"

// RequireDonor gates a route on a bearer token issued by the identity
// collaborator. The token's subject is the donor's id. Issuing and refreshing
// tokens is not this service's concern; verifying them is.
func RequireDonor(secret string) func(http.Handler) http.Handler {
	key := []byte(secret)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")

			raw, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || raw == "" {
				http.Error(w, "authentication required", http.StatusUnauthorized)
				return
			}

			var claims jwt.RegisteredClaims

			token, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
				return key, nil
			}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
			if err != nil || !token.Valid {
				http.Error(w, "invalid token", http.StatusUnauthorized)
				return
			}

			donorID, err := uuid.Parse(claims.Subject)
			if err != nil {
				http.Error(w, "invalid token subject", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), donorIDKey, donorID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// DonorID returns the authenticated donor from the request context.
func DonorID(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(donorIDKey).(uuid.UUID)
	return id, ok
}
