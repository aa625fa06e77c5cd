// Package api is the HTTP surface of the portfolio service.
package api

import (
	"crypto/subtle"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewServer creates an HTTP server with all routes configured.
func NewServer(port string, handler *Handler, adminAPIKey string) *http.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", handler.Healthz)
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("GET /api/v1/portfolio/{identity}", handler.GetPortfolio)
	mux.HandleFunc("GET /api/v1/portfolio/{identity}/export", handler.ExportPortfolio)
	mux.HandleFunc("POST /api/v1/link", handler.ClaimLink)

	overrideHandler := http.HandlerFunc(handler.SetOverride)
	if adminAPIKey != "" {
		mux.Handle("PUT /api/v1/overrides/{symbol}", requireAuth(adminAPIKey, overrideHandler))
	} else {
		mux.Handle("PUT /api/v1/overrides/{symbol}", overrideHandler)
	}

	return &http.Server{
		Addr:         ":" + port,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

func requireAuth(apiKey string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		token := strings.TrimPrefix(auth, "Bearer ")
		if !strings.HasPrefix(auth, "Bearer ") || subtle.ConstantTimeCompare([]byte(token), []byte(apiKey)) != 1 {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}
