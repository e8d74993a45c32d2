package robot

import (
	"encoding/json"
	"sync"

	"github.com/gorilla/websocket"

	"rover_go/internal/models"
	"rover_go/internal/video"
	"rover_go/pkg/logger"
)

// MessageHandler consome o corpo de uma mensagem tipada do rover
type MessageHandler func(payload json.RawMessage)

// VideoHandler consome um quadro de vídeo decodificado. O quadro só é
// válido durante a chamada; ver video.Decoder.
type VideoHandler func(frame *video.Frame)

// kind é o índice interno de despacho, derivado do tipo de mensagem.
// O conjunto é fechado: tipos fora da tabela caem em kindUnknown e a
// mensagem é ignorada.
type kind int

const (
	kindUnknown kind = iota
	kindPlayer
	kindMusic
	kindVolume
	kindActiveConnections
	kindUploaded
	kindRemoved
	kindStream
	kindBattery
	kindCamera
	kindDetectionLoading
	kindDetection
	kindSettings
	kindDistance
	kindInfo
	kindError
	kindImage
	kindCount
)

// kindOf traduz o tipo de mensagem do protocolo para o índice interno
func kindOf(t models.MessageType) kind {
	switch t {
	case models.TypePlayer:
		return kindPlayer
	case models.TypeMusic:
		return kindMusic
	case models.TypeVolume:
		return kindVolume
	case models.TypeActiveConnections:
		return kindActiveConnections
	case models.TypeUploaded:
		return kindUploaded
	case models.TypeRemoved:
		return kindRemoved
	case models.TypeStream:
		return kindStream
	case models.TypeBattery:
		return kindBattery
	case models.TypeCamera:
		return kindCamera
	case models.TypeDetectionLoading:
		return kindDetectionLoading
	case models.TypeDetection:
		return kindDetection
	case models.TypeSettings:
		return kindSettings
	case models.TypeDistance:
		return kindDistance
	case models.TypeInfo:
		return kindInfo
	case models.TypeError:
		return kindError
	case models.TypeImage:
		return kindImage
	}
	return kindUnknown
}

// Dispatcher roteia as mensagens de uma conexão: quadros binários vão
// para o decodificador de vídeo, mensagens de texto são discriminadas
// pelo campo type. Um handler por tipo; o último registro vale.
// Handlers rodam sincronicamente na goroutine de leitura e não devem
// bloquear.
type Dispatcher struct {
	decMu   sync.Mutex
	decoder *video.Decoder

	mu       sync.RWMutex
	handlers [kindCount]MessageHandler
	onVideo  VideoHandler
}

// NewDispatcher cria um roteador com um decodificador de vídeo próprio
func NewDispatcher() *Dispatcher {
	return &Dispatcher{decoder: video.NewDecoder()}
}

// Handle registra o handler de um tipo de mensagem, substituindo o
// anterior. Tipos fora do vocabulário são recusados com aviso.
func (d *Dispatcher) Handle(t models.MessageType, fn MessageHandler) {
	k := kindOf(t)
	if k == kindUnknown {
		logger.Warnf("Registro recusado para tipo de mensagem desconhecido: %q", t)
		return
	}
	d.mu.Lock()
	d.handlers[k] = fn
	d.mu.Unlock()
}

// HandleVideo registra o consumidor de quadros de vídeo, substituindo
// o anterior
func (d *Dispatcher) HandleVideo(fn VideoHandler) {
	d.mu.Lock()
	d.onVideo = fn
	d.mu.Unlock()
}

// VideoStats expõe as estatísticas do decodificador
func (d *Dispatcher) VideoStats() models.VideoStats {
	d.decMu.Lock()
	defer d.decMu.Unlock()
	return d.decoder.Stats()
}

// Dispatch roteia uma mensagem crua do transporte. Projetado para ser
// ligado direto em Conn.OnMessage.
func (d *Dispatcher) Dispatch(messageType int, data []byte) {
	if messageType == websocket.BinaryMessage {
		d.dispatchBinary(data)
		return
	}

	var msg models.RoverMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		logger.Warnf("Mensagem malformada do rover descartada: %v", err)
		return
	}

	k := kindOf(msg.Type)
	if k == kindUnknown {
		logger.Debugf("Mensagem de tipo desconhecido ignorada: %q", msg.Type)
		return
	}

	d.mu.RLock()
	fn := d.handlers[k]
	d.mu.RUnlock()
	if fn != nil {
		fn(msg.Payload)
	}
}

// dispatchBinary decodifica um quadro de vídeo e o entrega ao
// consumidor. Quadros curtos ou inválidos são descartados com aviso.
func (d *Dispatcher) dispatchBinary(data []byte) {
	d.mu.RLock()
	fn := d.onVideo
	d.mu.RUnlock()

	d.decMu.Lock()
	frame, err := d.decoder.Decode(data)
	d.decMu.Unlock()
	if err != nil {
		logger.Warnf("Quadro de vídeo descartado: %v", err)
		return
	}
	if fn != nil {
		fn(frame)
	}
}
