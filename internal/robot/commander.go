package robot

import (
	"encoding/json"

	"rover_go/internal/models"
	"rover_go/pkg/logger"
)

// sender é a fatia de Conn que o Commander usa; os testes injetam uma
// implementação que captura os envios
type sender interface {
	Send(data []byte)
}

// Commander serializa comandos e os entrega à conexão de controle. Sem
// deduplicação nem coalescência: todo comando enfileirado chega ao
// rover na ordem de enfileiramento.
type Commander struct {
	conn sender
}

// NewCommander cria um emissor de comandos sobre a conexão dada
func NewCommander(conn sender) *Commander {
	return &Commander{conn: conn}
}

// Enqueue serializa e envia um comando arbitrário. O vocabulário é
// extensível: chamadores podem montar ações fora das auxiliares abaixo.
func (c *Commander) Enqueue(cmd models.Command) {
	data, err := json.Marshal(cmd)
	if err != nil {
		logger.Error("Comando não serializável descartado", err)
		return
	}
	c.conn.Send(data)
}

// Move comanda movimento contínuo com sentido e velocidade (0-100)
func (c *Commander) Move(direction models.Direction, speed int) {
	c.Enqueue(models.NewMoveCommand(direction, speed))
}

// Stop comanda parada total
func (c *Commander) Stop() {
	c.Enqueue(models.NewStopCommand())
}

// SetServoAngle posiciona o servo da direção
func (c *Commander) SetServoAngle(angle int) {
	c.Enqueue(models.NewServoCommand(angle))
}

// SetCamTiltAngle inclina a câmera
func (c *Commander) SetCamTiltAngle(angle int) {
	c.Enqueue(models.NewCamTiltCommand(angle))
}

// SetCamPanAngle gira a câmera
func (c *Commander) SetCamPanAngle(angle int) {
	c.Enqueue(models.NewCamPanCommand(angle))
}

// PlayMusic toca uma faixa da biblioteca do rover
func (c *Commander) PlayMusic(name string) {
	c.Enqueue(models.NewPlayMusicCommand(name))
}

// PlaySound toca um efeito sonoro
func (c *Commander) PlaySound(name string) {
	c.Enqueue(models.NewPlaySoundCommand(name))
}

// SayText sintetiza voz no alto-falante do rover
func (c *Commander) SayText(text string) {
	c.Enqueue(models.NewSayTextCommand(text))
}

// TakePhoto solicita a captura de uma foto
func (c *Commander) TakePhoto() {
	c.Enqueue(models.NewTakePhotoCommand())
}

// StartAutoMeasureDistance liga a medição contínua de distância
func (c *Commander) StartAutoMeasureDistance() {
	c.Enqueue(models.NewStartAutoMeasureCommand())
}

// StopAutoMeasureDistance desliga a medição contínua de distância
func (c *Commander) StopAutoMeasureDistance() {
	c.Enqueue(models.NewStopAutoMeasureCommand())
}
