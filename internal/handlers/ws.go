package handlers

import (
	"net/http"

	"github.com/xelth-com/berrycheck/internal/websocket"
)

// serveWs attaches an authenticated listener to the event hub
func (r *Router) serveWs(w http.ResponseWriter, req *http.Request) {
	if r.svc.Hub == nil {
		respondError(w, http.StatusServiceUnavailable, "Realtime events disabled")
		return
	}
	websocket.ServeWs(r.svc.Hub, caller(req).ID, w, req)
}
