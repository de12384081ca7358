package server

import (
	"net/http"
	"strings"

	"github.com/gorilla/websocket"
)

// isWebSocketUpgrade reports whether r asks to switch protocols to
// WebSocket, the convention graphql-ws/graphql-transport-ws clients use for
// GET /graphql.
func isWebSocketUpgrade(r *http.Request) bool {
	return strings.EqualFold(r.Header.Get("Upgrade"), "websocket") &&
		strings.Contains(strings.ToLower(r.Header.Get("Connection")), "upgrade")
}

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	Subprotocols:    []string{"graphql-transport-ws", "graphql-ws"},
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// serveWebSocketHandshake completes the WebSocket upgrade and immediately
// closes the connection with a policy-violation close code: subscriptions
// are explicitly out of scope (spec.md §1 Non-goals), so only the
// connection's existence — not its protocol — is supported here.
func (h *Handler) serveWebSocketHandshake(w http.ResponseWriter, r *http.Request) {
	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()
	msg := websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "subscriptions are not supported")
	_ = conn.WriteMessage(websocket.CloseMessage, msg)
}
