// Package httpserver builds the process HTTP server from config.
package httpserver

import (
	"net/http"

	"rolesync/internal/platform/config"
)

// New builds a server for handler. Zero timeouts in cfg leave the net/http
// default of no limit.
func New(cfg config.Server, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		ReadTimeout:       cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
	}
}
