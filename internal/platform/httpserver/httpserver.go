package httpserver

import (
	"net/http"
	"time"

	"evidex/internal/platform/config"
)

// writeGrace lets a handler that hit its request timeout still write the
// error envelope before the connection is cut.
const writeGrace = 5 * time.Second

// New builds the HTTP server. Evidence uploads arrive as JSON bodies, so the
// read timeout is generous while headers must arrive quickly.
func New(cfg config.Server, handler http.Handler) *http.Server {
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       2 * time.Minute,
		IdleTimeout:       2 * time.Minute,
	}
	if cfg.RequestTimeout > 0 {
		srv.WriteTimeout = cfg.RequestTimeout + writeGrace
	}
	return srv
}
