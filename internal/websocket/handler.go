package websocket

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"rover_go/pkg/logger"

	"github.com/gorilla/websocket"
)

// Buffer de escrita dimensionado para quadros JPEG inteiros; com o
// padrão de 1KB cada quadro viraria dezenas de escritas no socket
const frameWriteBufferSize = 32 * 1024

// Upgrader para as conexões dos operadores. Compressão fica desligada:
// o grosso do tráfego são quadros JPEG, que não comprimem de novo.
var upgrader = websocket.Upgrader{
	ReadBufferSize:    1024,
	WriteBufferSize:   frameWriteBufferSize,
	EnableCompression: false,
	CheckOrigin:       checkOrigin,
}

// Handler aceita operadores e os registra no hub
type Handler struct {
	hub *Hub
}

// NewHandler cria um novo gerenciador de WebSocket
func NewHandler(hub *Hub) *Handler {
	return &Handler{
		hub: hub,
	}
}

// ServeHTTP implementa a interface http.Handler
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.HandleWebSocket(w, r)
}

// HandleWebSocket faz o upgrade da requisição e entrega a conexão ao hub
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Errorf("Erro ao fazer upgrade para WebSocket: %v", err)
		return
	}

	conn.SetReadLimit(maxMessageSize)

	userAgent := r.UserAgent()
	ipAddress := getIPAddress(r)

	logger.Infof("Nova conexão de operador de %s (%s)", ipAddress, userAgent)

	client := newClient(h.hub, conn, userAgent, ipAddress)

	// Registrar cliente no hub
	h.hub.register <- client

	// Iniciar goroutines de leitura e escrita
	go client.writePump()
	go client.readPump()
}

// checkOrigin verifica a origem da requisição WebSocket
func checkOrigin(r *http.Request) bool {
	// A ponte roda na LAN do operador; todas as origens são aceitas
	return true
}

// getIPAddress extrai o endereço IP do operador, preferindo os
// cabeçalhos de proxy quando presentes
func getIPAddress(r *http.Request) string {
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		// O primeiro endereço da lista é o do cliente original
		first, _, _ := strings.Cut(forwarded, ",")
		return strings.TrimSpace(first)
	}
	return r.RemoteAddr
}

// GetHealthHandler retorna um handler com a saúde e os contadores do hub
func (h *Handler) GetHealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		status := struct {
			Status    string    `json:"status"`
			Operators int       `json:"operators"`
			Stats     HubStats  `json:"stats"`
			Timestamp time.Time `json:"timestamp"`
		}{
			Status:    "ok",
			Operators: h.hub.ClientCount(),
			Stats:     h.hub.Stats(),
			Timestamp: time.Now(),
		}

		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(status)
	}
}
