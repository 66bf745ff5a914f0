package middleware

import (
	"net/http"

	"github.com/angelmondragon/boxoffice-backend/api/responses"
	"github.com/angelmondragon/boxoffice-backend/internal/cart"
	"github.com/angelmondragon/boxoffice-backend/pkg/logger"
)

// CartSessionHeader carries the buyer's opaque cart session id.
const CartSessionHeader = "X-Cart-Session"

// CartSession requires a valid cart session header on buyer routes.
func CartSession(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sessionID, err := cart.ValidateSessionID(r.Header.Get(CartSessionHeader))
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithCartSession(r.Context(), sessionID)))
		})
	}
}
