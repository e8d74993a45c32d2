package robot

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"rover_go/internal/config"
	"rover_go/internal/models"
	"rover_go/internal/video"
	"rover_go/pkg/logger"
)

// Client é a visão de alto nível do rover: mantém a conexão de
// controle e a de câmera, decodifica as mensagens tipadas em telemetria
// e repassa tudo aos consumidores registrados (hub, histórico).
type Client struct {
	cfg config.RoverConfig

	control         *Conn
	camera          *Conn
	controlDispatch *Dispatcher
	cameraDispatch  *Dispatcher
	commander       *Commander

	mu           sync.RWMutex
	telemetry    models.Telemetry
	status       string
	lastError    string
	errorCount   int
	cameraActive bool

	onTelemetry func(models.Telemetry)
	onEvent     func(models.MessageType, interface{})
	onVideo     func(*video.Frame)
	onStatus    func(models.RoverStatus)
}

// NewClient monta o cliente do rover a partir da configuração. O host
// precisa estar resolvido (pela configuração ou pela descoberta mDNS)
// antes de Start.
func NewClient(cfg config.RoverConfig) *Client {
	c := &Client{
		cfg:             cfg,
		controlDispatch: NewDispatcher(),
		cameraDispatch:  NewDispatcher(),
		status:          "offline",
	}

	dialer := &WebsocketDialer{HandshakeTimeout: cfg.DialTimeout}

	c.control = NewConn(fmt.Sprintf("ws://%s:%d", cfg.Host, cfg.Port), dialer)
	c.control.SetRetryPolicy(NewRetryPolicy(nil, ConstantDelay(cfg.ReconnectDelay)))
	c.control.OnMessage(c.controlDispatch.Dispatch)
	c.control.OnOpen(c.handleControlOpen)
	c.control.OnClose(c.handleControlClose)
	c.control.OnError(c.handleControlError)

	c.camera = NewConn(fmt.Sprintf("ws://%s:%d", cfg.Host, cfg.CameraPort), dialer)
	// A câmera só volta sozinha enquanto o operador a mantiver ligada;
	// o predicado relê o estado a cada queda
	c.camera.SetRetryPolicy(NewRetryPolicy(func() (bool, error) {
		return c.CameraActive(), nil
	}, ConstantDelay(cfg.ReconnectDelay)))
	c.camera.OnMessage(c.cameraDispatch.Dispatch)
	c.cameraDispatch.HandleVideo(c.handleVideoFrame)

	c.commander = NewCommander(c.control)
	c.registerControlHandlers()

	return c
}

// SetHost troca o endereço do rover nas duas conexões. Usado quando o
// host vem da descoberta mDNS em vez da configuração. Deve ser chamado
// antes de Start.
func (c *Client) SetHost(host string) {
	c.mu.Lock()
	c.cfg.Host = host
	c.mu.Unlock()

	c.control.SetURL(fmt.Sprintf("ws://%s:%d", host, c.cfg.Port))
	c.camera.SetURL(fmt.Sprintf("ws://%s:%d", host, c.cfg.CameraPort))
}

// Start abre a conexão de controle e inicia o monitor de estatísticas.
// A câmera permanece fechada até EnableCamera.
func (c *Client) Start(ctx context.Context) error {
	c.mu.RLock()
	host := c.cfg.Host
	c.mu.RUnlock()
	if host == "" {
		return fmt.Errorf("endereço do rover não definido")
	}

	logger.Infof("Conectando ao rover em %s", c.control.URL())
	c.control.Open()

	go c.monitorStats(ctx)
	return nil
}

// Stop encerra as duas conexões de forma limpa
func (c *Client) Stop() {
	c.camera.Close()
	c.control.Close()
}

// Commander expõe o emissor de comandos da conexão de controle
func (c *Client) Commander() *Commander {
	return c.commander
}

// Dispatcher expõe o roteador da conexão de controle, para consumidores
// que queiram assinar tipos diretamente
func (c *Client) Dispatcher() *Dispatcher {
	return c.controlDispatch
}

// EnableCamera liga o fluxo de vídeo, abrindo a conexão de câmera
func (c *Client) EnableCamera() {
	c.mu.Lock()
	c.cameraActive = true
	c.mu.Unlock()
	logger.Info("Fluxo de câmera habilitado")
	c.camera.Open()
}

// DisableCamera desliga o fluxo de vídeo. A conexão é fechada e a
// reconexão automática fica suprimida pelo predicado.
func (c *Client) DisableCamera() {
	c.mu.Lock()
	c.cameraActive = false
	c.mu.Unlock()
	logger.Info("Fluxo de câmera desabilitado")
	c.camera.Close()
}

// CameraActive informa se o operador quer o fluxo de vídeo ativo
func (c *Client) CameraActive() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cameraActive
}

// ControlState retorna o estado da conexão de controle
func (c *Client) ControlState() State {
	return c.control.State()
}

// CameraState retorna o estado da conexão de câmera
func (c *Client) CameraState() State {
	return c.camera.State()
}

// Status consolida o estado da ligação com o rover
func (c *Client) Status() models.RoverStatus {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return models.RoverStatus{
		Status:         c.status,
		Timestamp:      time.Now(),
		LastError:      c.lastError,
		ErrorCount:     c.errorCount,
		ConnectionInfo: c.control.URL(),
	}
}

// Telemetry retorna o retrato mais recente do rover
func (c *Client) Telemetry() models.Telemetry {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.telemetry
}

// VideoStats expõe as estatísticas do fluxo de câmera
func (c *Client) VideoStats() models.VideoStats {
	return c.cameraDispatch.VideoStats()
}

// UpdateDriveState registra no retrato os valores comandados pelo
// loop de pilotagem
func (c *Client) UpdateDriveState(speed int, direction models.Direction, steer, pan, tilt int) {
	c.mu.Lock()
	c.telemetry.Speed = speed
	c.telemetry.Direction = string(direction)
	c.telemetry.SteerAngle = steer
	c.telemetry.CamPan = pan
	c.telemetry.CamTilt = tilt
	c.telemetry.Timestamp = time.Now()
	tel := c.telemetry
	cb := c.onTelemetry
	c.mu.Unlock()

	if cb != nil {
		cb(tel)
	}
}

// RegisterTelemetryHandler define o consumidor dos retratos de telemetria
func (c *Client) RegisterTelemetryHandler(fn func(models.Telemetry)) {
	c.mu.Lock()
	c.onTelemetry = fn
	c.mu.Unlock()
}

// RegisterEventHandler define o consumidor dos eventos tipados do rover
func (c *Client) RegisterEventHandler(fn func(models.MessageType, interface{})) {
	c.mu.Lock()
	c.onEvent = fn
	c.mu.Unlock()
}

// RegisterVideoHandler define o consumidor de quadros de vídeo. O
// quadro só é válido durante a chamada.
func (c *Client) RegisterVideoHandler(fn func(*video.Frame)) {
	c.mu.Lock()
	c.onVideo = fn
	c.mu.Unlock()
}

// RegisterStatusHandler define o consumidor de mudanças de estado da ligação
func (c *Client) RegisterStatusHandler(fn func(models.RoverStatus)) {
	c.mu.Lock()
	c.onStatus = fn
	c.mu.Unlock()
}

// registerControlHandlers liga cada tipo de mensagem do rover ao seu
// tratamento
func (c *Client) registerControlHandlers() {
	d := c.controlDispatch

	d.Handle(models.TypeBattery, c.handleBattery)
	d.Handle(models.TypeDistance, c.handleDistance)
	d.Handle(models.TypeCamera, c.handleCamera)
	d.Handle(models.TypeInfo, c.handleInfo)
	d.Handle(models.TypeError, c.handleError)

	// Os demais tipos não alimentam telemetria; seguem direto para os
	// operadores
	relay := func(t models.MessageType) MessageHandler {
		return func(payload json.RawMessage) {
			c.emitEvent(t, payload)
		}
	}
	d.Handle(models.TypePlayer, relay(models.TypePlayer))
	d.Handle(models.TypeMusic, relay(models.TypeMusic))
	d.Handle(models.TypeVolume, relay(models.TypeVolume))
	d.Handle(models.TypeActiveConnections, relay(models.TypeActiveConnections))
	d.Handle(models.TypeUploaded, relay(models.TypeUploaded))
	d.Handle(models.TypeRemoved, relay(models.TypeRemoved))
	d.Handle(models.TypeStream, relay(models.TypeStream))
	d.Handle(models.TypeDetectionLoading, relay(models.TypeDetectionLoading))
	d.Handle(models.TypeDetection, relay(models.TypeDetection))
	d.Handle(models.TypeSettings, relay(models.TypeSettings))
	d.Handle(models.TypeImage, relay(models.TypeImage))
}

func (c *Client) handleBattery(payload json.RawMessage) {
	var p models.BatteryPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		logger.Warnf("Payload de bateria inválido: %v", err)
		return
	}

	c.mu.Lock()
	c.telemetry.BatteryVoltage = p.Voltage
	c.telemetry.BatteryPercent = p.Percentage
	c.telemetry.Timestamp = time.Now()
	tel := c.telemetry
	cb := c.onTelemetry
	c.mu.Unlock()

	if cb != nil {
		cb(tel)
	}
	c.emitEvent(models.TypeBattery, p)
}

func (c *Client) handleDistance(payload json.RawMessage) {
	var cm float64
	if err := json.Unmarshal(payload, &cm); err != nil {
		logger.Warnf("Payload de distância inválido: %v", err)
		return
	}

	c.mu.Lock()
	c.telemetry.DistanceCM = cm
	c.telemetry.Timestamp = time.Now()
	tel := c.telemetry
	cb := c.onTelemetry
	c.mu.Unlock()

	if cb != nil {
		cb(tel)
	}
	c.emitEvent(models.TypeDistance, cm)
}

func (c *Client) handleCamera(payload json.RawMessage) {
	var p models.CameraPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		logger.Warnf("Payload de câmera inválido: %v", err)
		return
	}

	c.mu.Lock()
	c.telemetry.CamPan = p.Pan
	c.telemetry.CamTilt = p.Tilt
	c.mu.Unlock()

	c.emitEvent(models.TypeCamera, p)
}

func (c *Client) handleInfo(payload json.RawMessage) {
	var text string
	if err := json.Unmarshal(payload, &text); err != nil {
		logger.Warnf("Payload de info inválido: %v", err)
		return
	}
	logger.Infof("Rover: %s", text)
	c.emitEvent(models.TypeInfo, text)
}

func (c *Client) handleError(payload json.RawMessage) {
	var text string
	if err := json.Unmarshal(payload, &text); err != nil {
		logger.Warnf("Payload de erro inválido: %v", err)
		return
	}

	c.mu.Lock()
	c.errorCount++
	c.lastError = text
	c.mu.Unlock()

	logger.Warnf("Erro reportado pelo rover: %s", text)
	c.emitEvent(models.TypeError, text)
}

func (c *Client) handleVideoFrame(frame *video.Frame) {
	c.mu.RLock()
	cb := c.onVideo
	c.mu.RUnlock()
	if cb != nil {
		cb(frame)
	}
}

func (c *Client) emitEvent(t models.MessageType, payload interface{}) {
	c.mu.RLock()
	cb := c.onEvent
	c.mu.RUnlock()
	if cb != nil {
		cb(t, payload)
	}
}

func (c *Client) handleControlOpen() {
	c.setStatus("online", "")
}

func (c *Client) handleControlClose(err error) {
	if err != nil {
		c.setStatus("offline", err.Error())
		return
	}
	c.setStatus("offline", "")
}

func (c *Client) handleControlError(err error) {
	c.mu.Lock()
	c.errorCount++
	c.lastError = err.Error()
	c.mu.Unlock()
}

// setStatus atualiza o estado consolidado e notifica o consumidor
func (c *Client) setStatus(status, lastError string) {
	c.mu.Lock()
	c.status = status
	if lastError != "" {
		c.lastError = lastError
	}
	snapshot := models.RoverStatus{
		Status:         status,
		Timestamp:      time.Now(),
		LastError:      c.lastError,
		ErrorCount:     c.errorCount,
		ConnectionInfo: c.control.URL(),
	}
	cb := c.onStatus
	c.mu.Unlock()

	if cb != nil {
		cb(snapshot)
	}
}

// monitorStats registra periodicamente um resumo das conexões e do
// fluxo de vídeo, para diagnóstico
func (c *Client) monitorStats(ctx context.Context) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			stats := c.VideoStats()
			logger.Debugf("Rover: controle=%s camera=%s quadros=%d fps=%.1f fila=%d",
				c.control.State(), c.camera.State(),
				stats.FramesTotal, stats.FrameRate,
				c.control.PendingCount())
		}
	}
}
