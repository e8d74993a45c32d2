package websocket

import (
	"encoding/json"
	"time"

	"rover_go/internal/models"
)

// Funções utilitárias para criação e processamento de mensagens WebSocket

// NewTelemetryMessage cria uma nova mensagem de telemetria
func NewTelemetryMessage(telemetry models.Telemetry) *models.TelemetryMessage {
	return &models.TelemetryMessage{
		WebSocketMessage: models.WebSocketMessage{
			Type:      "telemetry",
			Timestamp: time.Now(),
		},
		Telemetry: telemetry,
	}
}

// NewEventMessage cria uma mensagem retransmitindo um evento do rover
func NewEventMessage(event models.MessageType, payload interface{}) *models.EventMessage {
	return &models.EventMessage{
		WebSocketMessage: models.WebSocketMessage{
			Type:      "event",
			Timestamp: time.Now(),
		},
		Event:   event,
		Payload: payload,
	}
}

// NewStatusMessage cria uma nova mensagem de status da ligação com o rover
func NewStatusMessage(status models.RoverStatus) *models.StatusMessage {
	return &models.StatusMessage{
		WebSocketMessage: models.WebSocketMessage{
			Type:      "status",
			Timestamp: time.Now(),
		},
		Status:     status.Status,
		LastError:  status.LastError,
		ErrorCount: status.ErrorCount,
	}
}

// NewHistoryMessage cria uma nova mensagem com histórico de uma métrica
func NewHistoryMessage(metric string, history []models.HistoryPoint) *models.HistoryMessage {
	return &models.HistoryMessage{
		WebSocketMessage: models.WebSocketMessage{
			Type:      "history",
			Timestamp: time.Now(),
		},
		Metric:  metric,
		History: history,
	}
}

// NewErrorMessage cria uma nova mensagem de erro
func NewErrorMessage(message string, errorCode string) models.WebSocketMessage {
	return models.WebSocketMessage{
		Type:      "error",
		Timestamp: time.Now(),
		Error:     message,
		Data: map[string]string{
			"code": errorCode,
		},
	}
}

// SerializeMessage serializa uma mensagem para JSON
func SerializeMessage(message interface{}) ([]byte, error) {
	return json.Marshal(message)
}

// CreatePongResponse cria uma resposta para um ping do cliente
func CreatePongResponse(pingTime int64) *models.PongMessage {
	return &models.PongMessage{
		WebSocketMessage: models.WebSocketMessage{
			Type:      "pong",
			Timestamp: time.Now(),
		},
		Time:       pingTime,
		ServerTime: time.Now().UnixMilli(),
	}
}
