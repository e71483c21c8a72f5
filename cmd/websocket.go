package main

import (
	"log"
	"net/http"
	"strconv"

	"github.com/gorilla/websocket"
)

// WebSocketManager fans notification payloads out to connected clients, one
// registered socket per user.
type WebSocketManager struct {
	clients    map[int]*websocket.Conn
	broadcast  chan wsEnvelope
	register   chan wsClient
	unregister chan int
}

type wsClient struct {
	ID     int
	Socket *websocket.Conn
}

type wsEnvelope struct {
	UserID  int
	Payload []byte
}

func NewWebSocketManager() *WebSocketManager {
	return &WebSocketManager{
		clients:    make(map[int]*websocket.Conn),
		broadcast:  make(chan wsEnvelope, 64),
		register:   make(chan wsClient),
		unregister: make(chan int),
	}
}

func (ws *WebSocketManager) Run() {
	for {
		select {
		case client := <-ws.register:
			if old, ok := ws.clients[client.ID]; ok {
				old.Close()
			}
			ws.clients[client.ID] = client.Socket
		case clientID := <-ws.unregister:
			if conn, ok := ws.clients[clientID]; ok {
				conn.Close()
				delete(ws.clients, clientID)
			}
		case msg := <-ws.broadcast:
			conn, ok := ws.clients[msg.UserID]
			if !ok {
				continue
			}
			if err := conn.WriteMessage(websocket.TextMessage, msg.Payload); err != nil {
				log.Println("Error sending websocket message:", err)
				ws.unregister <- msg.UserID
			}
		}
	}
}

// Broadcast queues a payload for the user's live connection; a full queue
// drops the payload rather than blocking the caller.
func (ws *WebSocketManager) Broadcast(userID int, payload []byte) {
	select {
	case ws.broadcast <- wsEnvelope{UserID: userID, Payload: payload}:
	default:
	}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// WebSocketHandler upgrades the connection for the authenticated user and
// keeps it registered until it closes.
func (app *application) WebSocketHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value("user_id").(int)
	if !ok || userID == 0 {
		// Fallback for clients that cannot send headers on upgrade.
		userID, _ = strconv.Atoi(r.URL.Query().Get("user_id"))
	}
	if userID == 0 {
		http.Error(w, "Not authenticated", http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Println("WebSocket upgrade error:", err)
		return
	}
	app.wsManager.register <- wsClient{ID: userID, Socket: conn}

	go func() {
		defer func() {
			app.wsManager.unregister <- userID
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}
