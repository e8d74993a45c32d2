package models

import "encoding/json"

// MessageType identifica o tipo de uma mensagem vinda do rover.
// O conjunto é fechado: tipos fora desta lista são ignorados.
type MessageType string

const (
	TypePlayer            MessageType = "player"
	TypeMusic             MessageType = "music"
	TypeVolume            MessageType = "volume"
	TypeActiveConnections MessageType = "active_connections"
	TypeUploaded          MessageType = "uploaded"
	TypeRemoved           MessageType = "removed"
	TypeStream            MessageType = "stream"
	TypeBattery           MessageType = "battery"
	TypeCamera            MessageType = "camera"
	TypeDetectionLoading  MessageType = "detection-loading"
	TypeDetection         MessageType = "detection"
	TypeSettings          MessageType = "settings"
	TypeDistance          MessageType = "distance"
	TypeInfo              MessageType = "info"
	TypeError             MessageType = "error"
	TypeImage             MessageType = "image"
)

// RoverMessage é o envelope de toda mensagem de texto vinda do rover
type RoverMessage struct {
	Type    MessageType     `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// BatteryPayload é o corpo de uma mensagem "battery"
type BatteryPayload struct {
	Voltage    float64 `json:"voltage"`
	Percentage int     `json:"percentage"`
}

// PlayerPayload é o corpo de uma mensagem "player"
type PlayerPayload struct {
	Playing  bool    `json:"playing"`
	Track    string  `json:"track"`
	Position float64 `json:"position"`
	Duration float64 `json:"duration"`
}

// CameraPayload é o corpo de uma mensagem "camera"
type CameraPayload struct {
	Pan  int `json:"pan"`
	Tilt int `json:"tilt"`
}

// DetectionBox é um objeto detectado pela visão do rover
type DetectionBox struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Width      float64 `json:"width"`
	Height     float64 `json:"height"`
}

// SettingsPayload é o corpo de uma mensagem "settings", o eco da
// configuração vigente no rover
type SettingsPayload struct {
	Name         string `json:"name"`
	Language     string `json:"language"`
	AutoMeasure  bool   `json:"autoMeasure"`
	VideoQuality int    `json:"videoQuality"`
}

// ImagePayload é o corpo de uma mensagem "image" (foto capturada)
type ImagePayload struct {
	Name string `json:"name"`
	Data string `json:"data"`
}

// Corpos escalares: distance (cm), volume (0-100), active_connections,
// detection-loading, stream e os textos info/error chegam como valores
// JSON simples e são decodificados direto em float64/int/bool/string.
