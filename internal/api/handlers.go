package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"rover_go/internal/models"
	"rover_go/internal/redis"
	"rover_go/internal/robot"
	"rover_go/pkg/logger"
)

// Handler contém os handlers HTTP para a API
type Handler struct {
	roverClient  *robot.Client
	redisService *redis.Service
}

// NewHandler cria um novo handler de API
func NewHandler(roverClient *robot.Client, redisService *redis.Service) *Handler {
	return &Handler{
		roverClient:  roverClient,
		redisService: redisService,
	}
}

// GetStatus retorna o status atual da ligação com o rover
func (h *Handler) GetStatus(w http.ResponseWriter, r *http.Request) {
	// Verificar método HTTP
	if r.Method != http.MethodGet {
		h.respondWithError(w, http.StatusMethodNotAllowed, "Método não permitido")
		return
	}

	var status models.RoverStatus

	// O cliente é a fonte da verdade; o Redis cobre o caso de a ponte
	// ainda não ter criado o cliente
	if h.roverClient != nil {
		status = h.roverClient.Status()
	} else if h.redisService != nil && h.redisService.IsConnected() {
		redisStatus, err := h.redisService.GetStatus()
		if err != nil || redisStatus == nil {
			h.respondWithError(w, http.StatusNotFound, "Nenhum status disponível")
			return
		}
		status = *redisStatus
	} else {
		h.respondWithError(w, http.StatusNotFound, "Nenhum status disponível")
		return
	}

	// Formatar resposta
	response := map[string]interface{}{
		"status":    status.Status,
		"timestamp": status.Timestamp.UnixMilli(),
	}

	if h.roverClient != nil {
		response["control"] = h.roverClient.ControlState().String()
		response["camera"] = h.roverClient.CameraState().String()
	}

	// Adicionar informações de erro, se houver
	if status.LastError != "" {
		response["lastError"] = status.LastError
	}
	if status.ErrorCount > 0 {
		response["errorCount"] = status.ErrorCount
	}
	if status.ConnectionInfo != "" {
		response["connection"] = status.ConnectionInfo
	}

	h.respondWithJSON(w, http.StatusOK, response)
}

// GetTelemetry retorna o retrato atual do rover
func (h *Handler) GetTelemetry(w http.ResponseWriter, r *http.Request) {
	// Verificar método HTTP
	if r.Method != http.MethodGet {
		h.respondWithError(w, http.StatusMethodNotAllowed, "Método não permitido")
		return
	}

	var telemetry models.Telemetry

	if h.roverClient != nil {
		telemetry = h.roverClient.Telemetry()
	} else if h.redisService != nil && h.redisService.IsConnected() {
		redisTelemetry, err := h.redisService.GetTelemetry()
		if err != nil || redisTelemetry == nil {
			h.respondWithError(w, http.StatusNotFound, "Nenhum dado disponível")
			return
		}
		telemetry = *redisTelemetry
	} else {
		h.respondWithError(w, http.StatusNotFound, "Nenhum dado disponível")
		return
	}

	// Formatar resposta
	response := map[string]interface{}{
		"telemetry": telemetry,
		"timestamp": telemetry.Timestamp.UnixMilli(),
	}

	// Anexar estatísticas de vídeo quando o cliente está ativo
	if h.roverClient != nil {
		response["video"] = h.roverClient.VideoStats()
	}

	h.respondWithJSON(w, http.StatusOK, response)
}

// GetBatteryHistory retorna o histórico de tensão da bateria
func (h *Handler) GetBatteryHistory(w http.ResponseWriter, r *http.Request) {
	h.respondWithHistory(w, r, "battery")
}

// GetDistanceHistory retorna o histórico do sensor de distância
func (h *Handler) GetDistanceHistory(w http.ResponseWriter, r *http.Request) {
	h.respondWithHistory(w, r, "distance")
}

// respondWithHistory serve o histórico de uma métrica a partir do Redis
func (h *Handler) respondWithHistory(w http.ResponseWriter, r *http.Request, metric string) {
	// Verificar método HTTP
	if r.Method != http.MethodGet {
		h.respondWithError(w, http.StatusMethodNotAllowed, "Método não permitido")
		return
	}

	var history []models.HistoryPoint

	// Se o Redis estiver disponível, obter histórico de lá
	if h.redisService != nil && h.redisService.IsConnected() {
		var err error
		switch metric {
		case "battery":
			history, err = h.redisService.GetBatteryHistory()
		case "distance":
			history, err = h.redisService.GetDistanceHistory()
		}
		if err != nil {
			logger.Debugf("Histórico de %s indisponível: %v", metric, err)
		}
	}

	// Se não houver histórico, responder com array vazio
	if history == nil {
		history = []models.HistoryPoint{}
	}

	h.respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"metric":  metric,
		"history": history,
	})
}

// GetPhotos lista as fotos mais recentes tiradas pelo rover
func (h *Handler) GetPhotos(w http.ResponseWriter, r *http.Request) {
	// Verificar método HTTP
	if r.Method != http.MethodGet {
		h.respondWithError(w, http.StatusMethodNotAllowed, "Método não permitido")
		return
	}

	var photos []string

	if h.redisService != nil && h.redisService.IsConnected() {
		index, err := h.redisService.GetPhotoIndex()
		if err == nil {
			photos = index
		}
	}

	if photos == nil {
		photos = []string{}
	}

	h.respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"photos": photos,
		"count":  len(photos),
	})
}

// GetPhoto devolve o conteúdo de uma foto pelo nome (?name=...)
func (h *Handler) GetPhoto(w http.ResponseWriter, r *http.Request) {
	// Verificar método HTTP
	if r.Method != http.MethodGet {
		h.respondWithError(w, http.StatusMethodNotAllowed, "Método não permitido")
		return
	}

	name := r.URL.Query().Get("name")
	if name == "" {
		h.respondWithError(w, http.StatusBadRequest, "Nome da foto não fornecido")
		return
	}

	if h.redisService == nil || !h.redisService.IsConnected() {
		h.respondWithError(w, http.StatusServiceUnavailable, "Armazenamento de fotos indisponível")
		return
	}

	data, err := h.redisService.GetPhoto(name)
	if err != nil {
		h.respondWithError(w, http.StatusNotFound, "Foto não encontrada")
		return
	}

	h.respondWithJSON(w, http.StatusOK, models.ImagePayload{
		Name: name,
		Data: data,
	})
}

// respondWithError responde com erro em formato JSON
func (h *Handler) respondWithError(w http.ResponseWriter, code int, message string) {
	h.respondWithJSON(w, code, map[string]string{"error": message})
}

// respondWithJSON responde com JSON
func (h *Handler) respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)

	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Errorf("Erro ao codificar resposta JSON: %v", err)
		// Se falhar ao codificar JSON, tentar responder com erro simples
		fmt.Fprintf(w, `{"error":"Erro interno ao processar resposta"}`)
	}
}
