package middleware

import (
	"net/http"

	"github.com/rs/cors"

	"github.com/preston-bernstein/epl-fixtures-service/internal/http/requestutil"
)

// CORS allows browser clients on any origin to read the API. Only the refresh
// endpoint accepts POST.
func CORS(next http.Handler) http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodHead, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type", requestutil.HeaderRequestID},
		ExposedHeaders: []string{requestutil.HeaderRequestID},
		MaxAge:         600,
	})
	return c.Handler(next)
}
