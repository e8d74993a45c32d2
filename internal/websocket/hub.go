package websocket

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"rover_go/internal/models"
	"rover_go/pkg/logger"
)

// envelope é uma mensagem pronta para o transporte, com o tipo de frame
// (texto ou binário) que o writePump deve usar
type envelope struct {
	messageType int
	data        []byte
}

// Hub gerencia todas as conexões dos operadores e a distribuição de mensagens
type Hub struct {
	// Clientes registrados
	clients map[*Client]bool

	// Canal para registrar clientes
	register chan *Client

	// Canal para desregistrar clientes
	unregister chan *Client

	// Canal para mensagens de broadcast (texto e vídeo)
	broadcast chan envelope

	// Eventos recebidos dos operadores (teclado, joystick, comandos)
	events chan models.ClientEvent

	// Mutex para operações concorrentes no mapa de clientes
	mu sync.RWMutex

	// Última telemetria enviada (para limitar a taxa de envio)
	lastTelemetry     *models.Telemetry
	lastTelemetryTime time.Time
	telemetryLock     sync.Mutex

	// Destinos ligados pelo servidor antes de Run
	onEvent          func(models.ClientEvent)
	onPresence       func(count int)
	snapshotProvider func() (models.Telemetry, models.RoverStatus)
	historyProvider  func(metric string) []models.HistoryPoint

	// Estatísticas
	stats struct {
		totalMessages      int64
		totalFrames        int64
		totalClients       int64
		messagesPerSecond  float64
		lastStatsReset     time.Time
		messagesSinceReset int64
	}
	statsLock sync.Mutex

	// Sinal para encerramento do hub
	ctx    context.Context
	cancel context.CancelFunc
}

// NewHub cria uma nova instância do Hub
func NewHub() *Hub {
	ctx, cancel := context.WithCancel(context.Background())

	h := &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan envelope, 256), // Buffer aumentado para evitar bloqueios
		events:     make(chan models.ClientEvent, 100),
		ctx:        ctx,
		cancel:     cancel,
	}

	h.stats.lastStatsReset = time.Now()

	return h
}

// SetEventHandler define o destino dos eventos de pilotagem e comandos dos
// operadores. Deve ser chamado antes de Run.
func (h *Hub) SetEventHandler(fn func(models.ClientEvent)) {
	h.onEvent = fn
}

// SetPresenceHandler define o observador do número de operadores
// conectados, chamado a cada entrada e saída. Deve ser chamado antes
// de Run.
func (h *Hub) SetPresenceHandler(fn func(count int)) {
	h.onPresence = fn
}

// SetSnapshotProvider define a fonte da telemetria e do status atuais,
// usada ao receber um novo operador e em pedidos get_status.
// Deve ser chamado antes de Run.
func (h *Hub) SetSnapshotProvider(fn func() (models.Telemetry, models.RoverStatus)) {
	h.snapshotProvider = fn
}

// SetHistoryProvider define a fonte do histórico de métricas usada em
// pedidos get_history. Deve ser chamado antes de Run.
func (h *Hub) SetHistoryProvider(fn func(metric string) []models.HistoryPoint) {
	h.historyProvider = fn
}

// Run inicia o loop principal do hub para gerenciar clientes e mensagens
func (h *Hub) Run() {
	logger.Info("Iniciando WebSocket Hub")

	// Ticker para estatísticas periódicas
	statsTicker := time.NewTicker(30 * time.Second)
	defer statsTicker.Stop()

	// Ticker para manter as conexões dos operadores ativas
	keepaliveTicker := time.NewTicker(5 * time.Second)
	defer keepaliveTicker.Stop()

	for {
		select {
		case <-h.ctx.Done():
			// Contexto cancelado, encerrar o hub
			logger.Info("Encerrando WebSocket Hub")
			h.closeAllClients()
			return

		case client := <-h.register:
			// Registrar novo cliente
			h.mu.Lock()
			h.clients[client] = true
			clientCount := len(h.clients)
			h.mu.Unlock()

			logger.Infof("Novo operador conectado. ID: %s. Total: %d", client.id, clientCount)

			// Atualizar estatísticas
			h.statsLock.Lock()
			h.stats.totalClients++
			h.statsLock.Unlock()

			// Enviar dados iniciais para o cliente
			go h.sendInitialDataToClient(client)

			h.presenceChanged(clientCount)

		case client := <-h.unregister:
			if h.removeClient(client) {
				h.presenceChanged(h.ClientCount())
			}

		case env := <-h.broadcast:
			// Enviar mensagem para todos os clientes
			h.mu.RLock()
			clientCount := len(h.clients)

			// Atualizar estatísticas
			h.statsLock.Lock()
			h.stats.totalMessages++
			h.stats.messagesSinceReset++
			if env.messageType == websocket.BinaryMessage {
				h.stats.totalFrames++
			}
			h.statsLock.Unlock()

			if clientCount == 0 {
				h.mu.RUnlock()
				continue // Nenhum cliente conectado, pular broadcast
			}

			// Broadcast otimizado
			deadClients := make([]*Client, 0, 4) // Pré-alocar para alguns clientes mortos

			for client := range h.clients {
				select {
				case client.send <- env:
					// Mensagem enviada com sucesso
				default:
					// Canal do cliente está cheio, marcar para desconexão
					deadClients = append(deadClients, client)
				}
			}
			h.mu.RUnlock()

			// Remover clientes mortos fora do lock de leitura
			for _, client := range deadClients {
				logger.Warnf("Operador %s não consome mensagens, desconectando", client.id)
				h.removeClient(client)
			}
			if len(deadClients) > 0 {
				h.presenceChanged(h.ClientCount())
			}

		case ev := <-h.events:
			// Eventos de teclado precisam manter a ordem de chegada,
			// por isso o despacho é síncrono
			h.dispatchClientEvent(ev)

		case <-statsTicker.C:
			// Calcular taxa de mensagens por segundo
			h.statsLock.Lock()
			elapsed := time.Since(h.stats.lastStatsReset).Seconds()
			if elapsed > 0 {
				h.stats.messagesPerSecond = float64(h.stats.messagesSinceReset) / elapsed
			}

			// Resetar contador para próximo cálculo
			h.stats.messagesSinceReset = 0
			h.stats.lastStatsReset = time.Now()

			// Obter estatísticas para log
			mps := h.stats.messagesPerSecond
			total := h.stats.totalMessages
			frames := h.stats.totalFrames
			h.statsLock.Unlock()

			// Obter número de clientes
			h.mu.RLock()
			clientCount := len(h.clients)
			h.mu.RUnlock()

			logger.Infof("Estatísticas WebSocket: %d operadores, %.2f msgs/seg, total: %d mensagens, %d frames de vídeo",
				clientCount, mps, total, frames)

		case <-keepaliveTicker.C:
			// Enviar ping para todos os clientes para manter conexões ativas
			h.sendPingToAllClients()
		}
	}
}

// removeClient retira um cliente do mapa e fecha seu canal de envio.
// Retorna false se o cliente já tinha sido removido.
func (h *Hub) removeClient(client *Client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client]; !ok {
		return false
	}
	delete(h.clients, client)
	client.closeSend()

	logger.Infof("Operador desconectado. ID: %s. Total: %d", client.id, len(h.clients))
	return true
}

// BroadcastTelemetry envia a telemetria do rover para todos os operadores
func (h *Hub) BroadcastTelemetry(telemetry models.Telemetry) {
	// Verificar se devemos limitar a taxa de envio
	h.telemetryLock.Lock()

	// Se a última telemetria foi enviada há menos de 50ms, ignorar
	// exceto se houver mudanças significativas
	shouldSend := true
	if h.lastTelemetry != nil {
		timeSinceLastSend := time.Since(h.lastTelemetryTime)

		if timeSinceLastSend < 50*time.Millisecond {
			significantChange := abs(telemetry.BatteryVoltage-h.lastTelemetry.BatteryVoltage) > 0.05 ||
				abs(telemetry.DistanceCM-h.lastTelemetry.DistanceCM) > 1.0 ||
				telemetry.Speed != h.lastTelemetry.Speed ||
				telemetry.Direction != h.lastTelemetry.Direction ||
				telemetry.SteerAngle != h.lastTelemetry.SteerAngle ||
				telemetry.CamPan != h.lastTelemetry.CamPan ||
				telemetry.CamTilt != h.lastTelemetry.CamTilt

			// Se não houver mudança significativa, ignorar esta atualização
			if !significantChange {
				shouldSend = false
			}
		}
	}

	// Atualizar última telemetria enviada
	h.lastTelemetry = &telemetry
	h.lastTelemetryTime = time.Now()
	h.telemetryLock.Unlock()

	if !shouldSend {
		return
	}

	message := NewTelemetryMessage(telemetry)

	// Serializar e enviar a mensagem
	if jsonMessage, err := SerializeMessage(message); err == nil {
		h.broadcast <- envelope{websocket.TextMessage, jsonMessage}
	} else {
		logger.Error("Erro ao serializar mensagem de telemetria", err)
	}
}

// BroadcastEvent retransmite aos operadores uma mensagem tipada do rover
func (h *Hub) BroadcastEvent(event models.MessageType, payload interface{}) {
	message := NewEventMessage(event, payload)

	// Serializar e enviar a mensagem
	if jsonMessage, err := SerializeMessage(message); err == nil {
		h.broadcast <- envelope{websocket.TextMessage, jsonMessage}
	} else {
		logger.Errorf("Erro ao serializar evento %s: %v", event, err)
	}
}

// BroadcastStatus envia atualização de status da ligação com o rover
func (h *Hub) BroadcastStatus(status models.RoverStatus) {
	message := NewStatusMessage(status)

	// Serializar e enviar a mensagem
	if jsonMessage, err := SerializeMessage(message); err == nil {
		h.broadcast <- envelope{websocket.TextMessage, jsonMessage}
	} else {
		logger.Error("Erro ao serializar mensagem de status", err)
	}
}

// BroadcastVideoFrame retransmite um frame de vídeo já codificado para
// todos os operadores como mensagem binária. O hub assume a posse do
// buffer, portanto o chamador deve passar uma cópia estável.
func (h *Hub) BroadcastVideoFrame(frame []byte) {
	// Sem operadores não há razão para enfileirar vídeo
	if h.ClientCount() == 0 {
		return
	}

	h.broadcast <- envelope{websocket.BinaryMessage, frame}
}

// presenceChanged avisa o observador de presença e publica o novo
// número de operadores
func (h *Hub) presenceChanged(count int) {
	if h.onPresence != nil {
		h.onPresence(count)
	}
	h.broadcastOperatorCount(count)
}

// broadcastOperatorCount publica o número atual de operadores conectados.
// O envio não bloqueia: esta função roda dentro do próprio loop Run, que
// é quem consome a fila de broadcast.
func (h *Hub) broadcastOperatorCount(count int) {
	message := models.WebSocketMessage{
		Type:      "operators",
		Timestamp: time.Now(),
		Data:      map[string]interface{}{"count": count},
	}

	if jsonMessage, err := SerializeMessage(message); err == nil {
		select {
		case h.broadcast <- envelope{websocket.TextMessage, jsonMessage}:
		default:
			// Fila cheia; a próxima mudança de presença traz o número novo
		}
	}
}

// dispatchClientEvent processa um evento recebido de um operador
func (h *Hub) dispatchClientEvent(ev models.ClientEvent) {
	switch ev.Type {
	case "ping":
		h.sendPong(ev.ClientID, ev.Time)
	case "get_status":
		h.sendCurrentStatus(ev.ClientID)
	case "get_history":
		metric := "battery"
		if m, ok := ev.Params["metric"].(string); ok && m != "" {
			metric = m
		}
		h.sendHistory(ev.ClientID, metric)
	case "key_down", "key_up", "joystick", "command":
		if h.onEvent != nil {
			h.onEvent(ev)
		}
	default:
		logger.Warnf("Evento desconhecido do operador %s: %s", ev.ClientID, ev.Type)
	}
}

// sendHistory envia o histórico de uma métrica para um cliente específico
func (h *Hub) sendHistory(clientID string, metric string) {
	client := h.getClientByID(clientID)
	if client == nil || h.historyProvider == nil {
		return
	}

	message := NewHistoryMessage(metric, h.historyProvider(metric))

	if jsonMsg, err := SerializeMessage(message); err == nil {
		client.enqueue(envelope{websocket.TextMessage, jsonMsg})
	}
}

// sendCurrentStatus envia telemetria e status atuais para um cliente específico
func (h *Hub) sendCurrentStatus(clientID string) {
	client := h.getClientByID(clientID)
	if client == nil || h.snapshotProvider == nil {
		return
	}

	telemetry, status := h.snapshotProvider()

	if jsonMsg, err := SerializeMessage(NewTelemetryMessage(telemetry)); err == nil {
		client.enqueue(envelope{websocket.TextMessage, jsonMsg})
	}
	if jsonMsg, err := SerializeMessage(NewStatusMessage(status)); err == nil {
		client.enqueue(envelope{websocket.TextMessage, jsonMsg})
	}
}

// sendPong envia resposta de pong para um cliente específico
func (h *Hub) sendPong(clientID string, pingTime int64) {
	client := h.getClientByID(clientID)
	if client == nil {
		return
	}

	pong := CreatePongResponse(pingTime)

	// Serializar e enviar apenas para o cliente solicitante
	if jsonMsg, err := SerializeMessage(pong); err == nil {
		client.enqueue(envelope{websocket.TextMessage, jsonMsg})
	}
}

// sendInitialDataToClient envia dados iniciais para um novo cliente
func (h *Hub) sendInitialDataToClient(client *Client) {
	// Enviar mensagem de boas-vindas
	welcome := models.WebSocketMessage{
		Type:      "welcome",
		Timestamp: time.Now(),
		Data: map[string]interface{}{
			"message":  "Conectado ao servidor Rover Bridge",
			"clientId": client.id,
		},
	}

	if jsonMsg, err := SerializeMessage(welcome); err == nil {
		client.enqueue(envelope{websocket.TextMessage, jsonMsg})
	}

	// Enviar retrato atual do rover, se disponível
	if h.snapshotProvider == nil {
		return
	}
	telemetry, status := h.snapshotProvider()

	if jsonMsg, err := SerializeMessage(NewTelemetryMessage(telemetry)); err == nil {
		client.enqueue(envelope{websocket.TextMessage, jsonMsg})
	}
	if jsonMsg, err := SerializeMessage(NewStatusMessage(status)); err == nil {
		client.enqueue(envelope{websocket.TextMessage, jsonMsg})
	}
}

// Shutdown encerra graciosamente o hub
func (h *Hub) Shutdown() {
	h.cancel()
	// Aguardar um pequeno tempo para processamento finalizar
	time.Sleep(100 * time.Millisecond)
}

// closeAllClients fecha todas as conexões dos clientes
func (h *Hub) closeAllClients() {
	h.mu.Lock()
	defer h.mu.Unlock()

	logger.Info("Fechando todas as conexões de operadores")
	for client := range h.clients {
		client.closeSend()
		delete(h.clients, client)
	}
}

// ClientCount retorna o número atual de clientes conectados
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// HubStats resume os contadores de difusão do hub
type HubStats struct {
	TotalMessages     int64   `json:"totalMessages"`
	TotalFrames       int64   `json:"totalFrames"`
	TotalClients      int64   `json:"totalClients"`
	MessagesPerSecond float64 `json:"messagesPerSecond"`
}

// Stats retorna os contadores acumulados desde o início do hub
func (h *Hub) Stats() HubStats {
	h.statsLock.Lock()
	defer h.statsLock.Unlock()
	return HubStats{
		TotalMessages:     h.stats.totalMessages,
		TotalFrames:       h.stats.totalFrames,
		TotalClients:      h.stats.totalClients,
		MessagesPerSecond: h.stats.messagesPerSecond,
	}
}

// getClientByID retorna um cliente pelo seu ID
func (h *Hub) getClientByID(clientID string) *Client {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.clients {
		if client.id == clientID {
			return client
		}
	}
	return nil
}

// sendPingToAllClients envia ping para todos os clientes
func (h *Hub) sendPingToAllClients() {
	ping := models.PingMessage{
		WebSocketMessage: models.WebSocketMessage{
			Type:      "ping",
			Timestamp: time.Now(),
		},
		Time: time.Now().UnixMilli(),
	}

	if jsonMsg, err := SerializeMessage(ping); err == nil {
		h.mu.RLock()
		clientCount := len(h.clients)
		h.mu.RUnlock()

		// Chamado de dentro do Run; envio bloqueante travaria o loop
		if clientCount > 0 {
			select {
			case h.broadcast <- envelope{websocket.TextMessage, jsonMsg}:
			default:
			}
		}
	}
}

// abs retorna o valor absoluto de um float64
func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
