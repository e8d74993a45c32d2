package models

import "time"

// Telemetry é o retrato mais recente do estado do rover mantido pela ponte
type Telemetry struct {
	BatteryVoltage float64   `json:"batteryVoltage"`
	BatteryPercent int       `json:"batteryPercent"`
	DistanceCM     float64   `json:"distanceCm"`
	Speed          int       `json:"speed"`
	Direction      string    `json:"direction"`
	SteerAngle     int       `json:"steerAngle"`
	CamPan         int       `json:"camPan"`
	CamTilt        int       `json:"camTilt"`
	Timestamp      time.Time `json:"timestamp"`
}

// RoverStatus representa o estado da ligação com o rover
type RoverStatus struct {
	Status         string    `json:"status"`
	Timestamp      time.Time `json:"timestamp"`
	LastError      string    `json:"lastError,omitempty"`
	ErrorCount     int       `json:"errorCount,omitempty"`
	ConnectionInfo string    `json:"connectionInfo,omitempty"`
}

// VideoStats acumula estatísticas do fluxo de vídeo
type VideoStats struct {
	FrameRate     float64   `json:"frameRate"`
	LastTimestamp float64   `json:"lastTimestamp"`
	FramesTotal   uint64    `json:"framesTotal"`
	BytesTotal    uint64    `json:"bytesTotal"`
	LastFrameAt   time.Time `json:"lastFrameAt"`
}

// HistoryPoint representa um ponto de histórico de bateria ou distância
type HistoryPoint struct {
	Value     float64   `json:"value"`
	Timestamp time.Time `json:"timestamp"`
}
