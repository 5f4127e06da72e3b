// Package server wires HTTP handlers into a ServeMux for the Parlor
// application via routing helpers.
package server

import (
	"net/http"

	"github.com/parlor-chat/parlor/internal/directory"
)

// SetupRoutes configures and returns an HTTP ServeMux with all application
// routes: health check, WebSocket endpoint, test page, and the room
// directory REST API. StartHub must have run first.
func SetupRoutes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/", HealthHandler)
	mux.HandleFunc("/ws", WebSocketHandler)
	mux.HandleFunc("/test", TestPageHandler)
	if roomDirectory != nil {
		directory.Register(mux, roomDirectory)
	}
	return mux
}
