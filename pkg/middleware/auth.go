package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// householdClaim is the JWT claim carrying the caller's household scope.
const householdClaim = "household_id"

// Auth validates a Bearer token and stores the household id in the request
// context. Paths in publicPaths bypass authentication.
func Auth(secret []byte, publicPaths ...string) func(http.Handler) http.Handler {
	public := make(map[string]struct{}, len(publicPaths))
	for _, p := range publicPaths {
		public[p] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := public[r.URL.Path]; ok {
				next.ServeHTTP(w, r)
				return
			}

			header := r.Header.Get("Authorization")
			if !strings.HasPrefix(header, "Bearer ") {
				http.Error(w, "authentication required", http.StatusUnauthorized)
				return
			}
			raw := strings.TrimPrefix(header, "Bearer ")

			token, err := jwt.Parse(raw, func(t *jwt.Token) (any, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, jwt.ErrSignatureInvalid
				}
				return secret, nil
			})
			if err != nil || !token.Valid {
				http.Error(w, "invalid token", http.StatusUnauthorized)
				return
			}

			claims, ok := token.Claims.(jwt.MapClaims)
			if !ok {
				http.Error(w, "invalid token", http.StatusUnauthorized)
				return
			}
			rawID, _ := claims[householdClaim].(string)
			householdID, err := uuid.Parse(rawID)
			if err != nil {
				http.Error(w, "invalid household claim", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), householdIDKey, householdID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetHouseholdID returns the authenticated household scope.
func GetHouseholdID(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(householdIDKey).(uuid.UUID)
	return id, ok
}
