package models

import "encoding/json"

// Direction indica o sentido de movimento do rover
type Direction string

const (
	DirectionForward  Direction = "forward"
	DirectionBackward Direction = "backward"
)

// Ações aceitas pelo rover. O vocabulário é aberto: chamadores podem
// montar um Command com uma ação fora desta lista.
const (
	ActionMove             = "move"
	ActionStop             = "stop"
	ActionSetServo         = "setServo"
	ActionSetCamTiltAngle  = "setCamTiltAngle"
	ActionSetCamPanAngle   = "setCamPanAngle"
	ActionPlayMusic        = "playMusic"
	ActionPlaySound        = "playSound"
	ActionSayText          = "sayText"
	ActionTakePhoto        = "takePhoto"
	ActionStartAutoMeasure = "startAutoMeasureDistance"
	ActionStopAutoMeasure  = "stopAutoMeasureDistance"
)

// Command representa um comando de saída para o rover. Na serialização
// os parâmetros ficam no mesmo nível da ação:
//
//	{"action":"move","direction":"forward","speed":40}
type Command struct {
	Action string
	Params map[string]interface{}
}

// MarshalJSON achata Params ao lado do campo action
func (c Command) MarshalJSON() ([]byte, error) {
	obj := make(map[string]interface{}, len(c.Params)+1)
	for k, v := range c.Params {
		obj[k] = v
	}
	obj["action"] = c.Action
	return json.Marshal(obj)
}

// UnmarshalJSON reconstrói Action e Params a partir do objeto achatado
func (c *Command) UnmarshalJSON(data []byte) error {
	var obj map[string]interface{}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	if action, ok := obj["action"].(string); ok {
		c.Action = action
	}
	delete(obj, "action")
	if len(obj) > 0 {
		c.Params = obj
	} else {
		c.Params = nil
	}
	return nil
}

// NewMoveCommand monta um comando de movimento com sentido e velocidade (0-100)
func NewMoveCommand(direction Direction, speed int) Command {
	return Command{
		Action: ActionMove,
		Params: map[string]interface{}{
			"direction": string(direction),
			"speed":     speed,
		},
	}
}

// NewStopCommand monta um comando de parada total
func NewStopCommand() Command {
	return Command{Action: ActionStop}
}

// NewServoCommand monta um comando de ângulo da direção
func NewServoCommand(angle int) Command {
	return Command{
		Action: ActionSetServo,
		Params: map[string]interface{}{"angle": angle},
	}
}

// NewCamTiltCommand monta um comando de inclinação da câmera
func NewCamTiltCommand(angle int) Command {
	return Command{
		Action: ActionSetCamTiltAngle,
		Params: map[string]interface{}{"angle": angle},
	}
}

// NewCamPanCommand monta um comando de rotação da câmera
func NewCamPanCommand(angle int) Command {
	return Command{
		Action: ActionSetCamPanAngle,
		Params: map[string]interface{}{"angle": angle},
	}
}

// NewPlayMusicCommand toca uma faixa da biblioteca do rover
func NewPlayMusicCommand(name string) Command {
	return Command{
		Action: ActionPlayMusic,
		Params: map[string]interface{}{"name": name},
	}
}

// NewPlaySoundCommand toca um efeito sonoro
func NewPlaySoundCommand(name string) Command {
	return Command{
		Action: ActionPlaySound,
		Params: map[string]interface{}{"name": name},
	}
}

// NewSayTextCommand sintetiza voz no alto-falante do rover
func NewSayTextCommand(text string) Command {
	return Command{
		Action: ActionSayText,
		Params: map[string]interface{}{"text": text},
	}
}

// NewTakePhotoCommand solicita a captura de uma foto
func NewTakePhotoCommand() Command {
	return Command{Action: ActionTakePhoto}
}

// NewStartAutoMeasureCommand liga a medição contínua de distância
func NewStartAutoMeasureCommand() Command {
	return Command{Action: ActionStartAutoMeasure}
}

// NewStopAutoMeasureCommand desliga a medição contínua de distância
func NewStopAutoMeasureCommand() Command {
	return Command{Action: ActionStopAutoMeasure}
}
