package http

import (
	"net/http"

	"github.com/rs/cors"
)

// CORS allows browser clients from the configured origins. "*" allows any
// origin.
func CORS(allowedOrigins []string, next http.Handler) http.Handler {
	return cors.New(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", HeaderActorID, HeaderActorRole},
		MaxAge:         600,
	}).Handler(next)
}
