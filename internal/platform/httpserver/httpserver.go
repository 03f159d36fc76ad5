// Package httpserver builds the service's HTTP server.
package httpserver

import (
	"net/http"
	"time"
)

// New builds the server for the sync endpoints. A dry-run submission answers
// on the request itself after probing the registry for every identifier in
// the batch, so the server carries no write timeout; the short-lived status
// and health routes get their deadline from the router's timeout middleware.
// The read timeout bounds uploading the batch document.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}
}
