package server

import (
	"encoding/json"
	"net/http"
	"time"

	"rover_go/internal/api"
	"rover_go/internal/discovery"
	"rover_go/internal/robot"
	"rover_go/internal/websocket"
	"rover_go/pkg/utils"
)

// setupRoutes configura todas as rotas do servidor
func (s *Server) setupRoutes() {
	// Criar handlers
	wsHandler := websocket.NewHandler(s.wsHub)
	apiHandler := api.NewHandler(s.roverClient, s.redisService)

	// Endpoint de saúde
	s.router.HandleFunc("/health", s.healthHandler)

	// Endpoint de informações do servidor
	s.router.HandleFunc("/info", s.infoHandler)

	// Endpoints de descoberta
	s.router.HandleFunc("/api/discover", s.discoverHandler)

	// WebSocket
	s.router.Handle("/ws", wsHandler)
	s.router.HandleFunc("/ws/health", wsHandler.GetHealthHandler())

	// API REST
	s.router.HandleFunc("/api/status", apiHandler.GetStatus)
	s.router.HandleFunc("/api/telemetry", apiHandler.GetTelemetry)
	s.router.HandleFunc("/api/battery-history", apiHandler.GetBatteryHistory)
	s.router.HandleFunc("/api/distance-history", apiHandler.GetDistanceHistory)
	s.router.HandleFunc("/api/photos", apiHandler.GetPhotos)
	s.router.HandleFunc("/api/photo", apiHandler.GetPhoto)
	s.router.HandleFunc("/api/server-info", s.serverInfoHandler)

	// Static assets (opcional)
	fs := http.FileServer(http.Dir("./static"))
	s.router.Handle("/", fs)

	// Middleware para logging, recuperação de panics e CORS
	s.handler = api.Chain(
		api.RecoveryMiddleware,
		api.CorsMiddleware,
		api.LoggingMiddleware,
	)(s.router)
}

// healthHandler responde com o status de saúde do servidor
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	// Verificar status dos serviços
	roverStatus := "ok"
	if s.roverClient == nil || s.roverClient.ControlState() != robot.StateOpen {
		roverStatus = "offline"
	}

	cameraStatus := "disabled"
	if s.roverClient != nil && s.roverClient.CameraActive() {
		if s.roverClient.CameraState() == robot.StateOpen {
			cameraStatus = "ok"
		} else {
			cameraStatus = "offline"
		}
	}

	redisStatus := "disabled"
	if s.config.Redis.Enabled {
		redisStatus = "ok"
		if s.redisService == nil || !s.redisService.IsConnected() {
			redisStatus = "offline"
		}
	}

	discoveryStatus := "ok"
	if s.discoveryService != nil && !s.discoveryService.IsRunning() {
		discoveryStatus = "offline"
	}

	// Construir resposta
	response := map[string]interface{}{
		"status":    "ok",
		"timestamp": time.Now(),
		"services": map[string]string{
			"rover":     roverStatus,
			"camera":    cameraStatus,
			"redis":     redisStatus,
			"websocket": "ok",
			"discovery": discoveryStatus,
		},
	}

	// Sem conexão com o rover o status geral é degradado
	if roverStatus == "offline" {
		response["status"] = "degraded"
	}

	// Enviar resposta
	json.NewEncoder(w).Encode(response)
}

// infoHandler retorna informações básicas sobre o servidor
func (s *Server) infoHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	// Obter informações do servidor
	info := s.GetServerInfo()

	// Construir resposta
	response := map[string]interface{}{
		"name":        "Rover Bridge",
		"version":     info.Version,
		"ip":          info.IP,
		"port":        info.Port,
		"websocket":   info.WebSocketURL,
		"api":         info.APIURL,
		"startTime":   info.StartTime,
		"uptime":      utils.FormatDuration(time.Since(info.StartTime)),
		"connections": info.Connections,
	}

	// Enviar resposta
	json.NewEncoder(w).Encode(response)
}

// serverInfoHandler retorna informações completas sobre o servidor
func (s *Server) serverInfoHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	// Obter informações do servidor
	info := s.GetServerInfo()

	// Adicionar informações do serviço de descoberta
	discoveryInfo := map[string]interface{}{
		"enabled":      s.discoveryService != nil,
		"running":      s.discoveryService != nil && s.discoveryService.IsRunning(),
		"instanceName": s.discoveryService.GetInstanceName(),
		"serviceType":  discovery.ServiceType,
	}

	videoStats := s.roverClient.VideoStats()

	// Construir resposta
	response := map[string]interface{}{
		"server": map[string]interface{}{
			"name":        "Rover Bridge",
			"version":     info.Version,
			"ip":          info.IP,
			"port":        info.Port,
			"websocket":   info.WebSocketURL,
			"api":         info.APIURL,
			"startTime":   info.StartTime,
			"uptime":      utils.FormatDuration(time.Since(info.StartTime)),
			"connections": info.Connections,
		},
		"discovery": discoveryInfo,
		"services": map[string]interface{}{
			"rover": map[string]interface{}{
				"control": s.roverClient.ControlState().String(),
				"camera":  s.roverClient.CameraState().String(),
				"address": s.roverClient.Status().ConnectionInfo,
			},
			"redis": map[string]interface{}{
				"enabled":   s.config.Redis.Enabled,
				"connected": s.redisService != nil && s.redisService.IsConnected(),
				"host":      s.config.Redis.Host,
				"port":      s.config.Redis.Port,
			},
			"video": map[string]interface{}{
				"frameRate":   videoStats.FrameRate,
				"framesTotal": videoStats.FramesTotal,
				"bytesTotal":  videoStats.BytesTotal,
				"lastFrameAt": videoStats.LastFrameAt,
			},
		},
	}

	// Enviar resposta
	json.NewEncoder(w).Encode(response)
}

// discoverHandler fornece informações para descoberta manual
func (s *Server) discoverHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	// Obter informações do servidor
	info := s.GetServerInfo()

	// Construir resposta
	response := map[string]interface{}{
		"name":        "Rover Bridge",
		"ip":          info.IP,
		"port":        info.Port,
		"wsUrl":       info.WebSocketURL,
		"apiUrl":      info.APIURL,
		"version":     info.Version,
		"wsEndpoint":  "/ws",
		"apiEndpoint": "/api",
	}

	// Enviar resposta
	json.NewEncoder(w).Encode(response)
}
