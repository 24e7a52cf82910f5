package http_server

import (
	"net/http"

	"github.com/jaennil/guide_helper/backend/viewer/pkg/config"
	"github.com/jaennil/guide_helper/backend/viewer/pkg/logger"
)

func NewServer(l logger.Logger, cfg config.Server, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      withLogger(l, handler),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
}

// withLogger makes l reachable through logger.FromContext for everything
// downstream of the server.
func withLogger(l logger.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r.WithContext(logger.WithLogger(r.Context(), l)))
	})
}
