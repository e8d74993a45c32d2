package models

import "time"

// WebSocketMessage representa a estrutura base das mensagens enviadas aos operadores
type WebSocketMessage struct {
	Type      string      `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data,omitempty"`
	Error     string      `json:"error,omitempty"`
}

// TelemetryMessage publica o retrato atual do rover
type TelemetryMessage struct {
	WebSocketMessage
	Telemetry Telemetry `json:"telemetry"`
}

// EventMessage retransmite aos operadores uma mensagem tipada vinda do rover
type EventMessage struct {
	WebSocketMessage
	Event   MessageType `json:"event"`
	Payload interface{} `json:"payload,omitempty"`
}

// StatusMessage publica mudanças no estado da ligação com o rover
type StatusMessage struct {
	WebSocketMessage
	Status     string `json:"status"`
	LastError  string `json:"lastError,omitempty"`
	ErrorCount int    `json:"errorCount,omitempty"`
}

// HistoryMessage responde a uma consulta de histórico
type HistoryMessage struct {
	WebSocketMessage
	Metric  string         `json:"metric"`
	History []HistoryPoint `json:"history"`
}

// ClientEvent é uma mensagem recebida de um operador. Um único struct
// cobre todos os tipos; os campos não usados ficam vazios.
//
//	{"type":"key_down","key":"w"}
//	{"type":"joystick","angle":90,"distance":0.8}
//	{"type":"command","action":"takePhoto","params":{}}
//	{"type":"ping","time":1712345678901}
type ClientEvent struct {
	Type     string                 `json:"type"`
	Key      string                 `json:"key,omitempty"`
	Angle    float64                `json:"angle,omitempty"`
	Distance float64                `json:"distance,omitempty"`
	Action   string                 `json:"action,omitempty"`
	Params   map[string]interface{} `json:"params,omitempty"`
	Time     int64                  `json:"time,omitempty"`
	ClientID string                 `json:"-"`
}

// PingMessage é o keepalive aplicacional enviado periodicamente aos operadores
type PingMessage struct {
	WebSocketMessage
	Time int64 `json:"time"`
}

// PongMessage responde a um ping de operador
type PongMessage struct {
	WebSocketMessage
	Time       int64 `json:"time"`
	ServerTime int64 `json:"serverTime"`
}
