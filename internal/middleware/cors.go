package middleware

import (
	"net/http"

	"github.com/rs/cors"
)

// CORSMiddleware allows browser clients on any origin to call the API.
func CORSMiddleware(next http.Handler) http.Handler {
	return cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"*"},
	}).Handler(next)
}
