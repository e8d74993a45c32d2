package pilot

import (
	"sync"
	"time"

	"rover_go/internal/config"
	"rover_go/internal/models"
	"rover_go/pkg/logger"
)

// Limites físicos da câmera do rover, em graus
const (
	panMin  = -90
	panMax  = 90
	tiltMin = -35
	tiltMax = 65
)

// CommandSink é a fatia do emissor de comandos que o loop usa; os
// testes injetam uma implementação que grava as chamadas
type CommandSink interface {
	Move(direction models.Direction, speed int)
	Stop()
	SetServoAngle(angle int)
	SetCamTiltAngle(angle int)
	SetCamPanAngle(angle int)
}

// Pilot amostra teclado e joystick em intervalos fixos e traduz o
// estado em comandos de movimento. Cada canal (velocidade+sentido,
// direção, pan, tilt) guarda o último valor enviado e só emite quando
// o valor muda. Eventos entre ticks apenas mutam o estado; o efeito
// sai no tick seguinte, numa amostragem atômica.
type Pilot struct {
	cfg  config.PilotConfig
	sink CommandSink
	keys *KeyState

	mu        sync.Mutex
	speed     int
	direction models.Direction
	pan       int
	tilt      int
	joystick  *JoystickState

	lastSpeed     int
	lastDirection models.Direction
	lastMoving    bool
	lastSteer     int
	lastPan       int
	lastTilt      int
	dirty         bool

	onChange func(speed int, direction models.Direction, steer, pan, tilt int)

	done chan struct{}
}

// New cria o loop de pilotagem sobre o emissor de comandos dado
func New(cfg config.PilotConfig, sink CommandSink) *Pilot {
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = 50 * time.Millisecond
	}
	return &Pilot{
		cfg:           cfg,
		sink:          sink,
		keys:          NewKeyState(),
		direction:     models.DirectionForward,
		lastDirection: models.DirectionForward,
	}
}

// SetOnChange registra o observador chamado ao fim de cada tick que
// emitiu algum comando
func (p *Pilot) SetOnChange(fn func(speed int, direction models.Direction, steer, pan, tilt int)) {
	p.mu.Lock()
	p.onChange = fn
	p.mu.Unlock()
}

// Start inicia a amostragem periódica. Chamadas repetidas são ignoradas.
func (p *Pilot) Start() {
	p.mu.Lock()
	if p.done != nil {
		p.mu.Unlock()
		return
	}
	p.done = make(chan struct{})
	done := p.done
	p.mu.Unlock()

	logger.Infof("Loop de pilotagem iniciado (tick de %s)", p.cfg.TickInterval)
	go p.run(done)
}

// Stop encerra a amostragem e descarta o estado de teclado acumulado
func (p *Pilot) Stop() {
	p.mu.Lock()
	if p.done == nil {
		p.mu.Unlock()
		return
	}
	close(p.done)
	p.done = nil
	p.mu.Unlock()

	p.keys.Reset()
	logger.Info("Loop de pilotagem encerrado")
}

// KeyDown registra uma tecla pressionada por um operador
func (p *Pilot) KeyDown(key string) {
	p.keys.KeyDown(key)
}

// KeyUp registra uma tecla solta por um operador
func (p *Pilot) KeyUp(key string) {
	p.keys.KeyUp(key)
}

// SetJoystick registra a posição atual do joystick. Dentro da zona
// morta o joystick é liberado e o teclado volta a valer, com a
// velocidade decaindo a partir do valor atual.
func (p *Pilot) SetJoystick(angle, distance float64) {
	js := MapJoystick(angle, distance, p.cfg.MaxSpeed, p.cfg.TurnAngle)

	p.mu.Lock()
	if distance <= deadZone {
		p.joystick = nil
	} else {
		p.joystick = &js
	}
	p.mu.Unlock()
}

// ReleaseAll solta todas as entradas, como se o operador tivesse
// largado teclado e joystick. Usado quando o último operador
// desconecta: a velocidade decai naturalmente até a parada nos ticks
// seguintes.
func (p *Pilot) ReleaseAll() {
	p.keys.Reset()
	p.mu.Lock()
	p.joystick = nil
	p.mu.Unlock()
}

// run é a goroutine de amostragem
func (p *Pilot) run(done chan struct{}) {
	ticker := time.NewTicker(p.cfg.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			p.tick()
		}
	}
}

// tick executa uma amostragem completa: resolve os alvos de cada canal
// e emite os que mudaram
func (p *Pilot) tick() {
	held := p.keys.Snapshot()

	p.mu.Lock()
	p.dirty = false

	var steerTarget int
	if p.joystick != nil {
		js := *p.joystick
		p.direction = js.Direction
		p.speed = js.Speed
		if js.Speed > 0 {
			p.emitMove(js.Direction, js.Speed)
		} else {
			p.emitStop()
		}
		steerTarget = js.Steer
	} else {
		switch {
		case held[IntentForward] && !held[IntentBackward]:
			p.direction = models.DirectionForward
			p.emitMove(p.direction, p.speed)
			p.speed = p.accelerate(p.speed)
		case held[IntentBackward] && !held[IntentForward]:
			p.direction = models.DirectionBackward
			p.emitMove(p.direction, p.speed)
			p.speed = p.accelerate(p.speed)
		default:
			// Decaimento passivo até a parada
			if p.speed > 0 {
				p.speed -= p.cfg.DecayStep
				if p.speed < 0 {
					p.speed = 0
				}
			}
			if p.speed > 0 {
				p.emitMove(p.direction, p.speed)
			} else {
				p.emitStop()
			}
		}

		if held[IntentLeft] && !held[IntentRight] {
			steerTarget = -p.cfg.TurnAngle
		} else if held[IntentRight] && !held[IntentLeft] {
			steerTarget = p.cfg.TurnAngle
		}
	}

	if steerTarget != p.lastSteer {
		p.sink.SetServoAngle(steerTarget)
		p.lastSteer = steerTarget
		p.dirty = true
	}

	// Pan e tilt andam por passos enquanto a tecla está segura e ficam
	// onde estão quando ela solta
	if held[IntentPanLeft] && !held[IntentPanRight] {
		p.pan = clampInt(p.pan-p.cfg.PanTiltStep, panMin, panMax)
	} else if held[IntentPanRight] && !held[IntentPanLeft] {
		p.pan = clampInt(p.pan+p.cfg.PanTiltStep, panMin, panMax)
	}
	if p.pan != p.lastPan {
		p.sink.SetCamPanAngle(p.pan)
		p.lastPan = p.pan
		p.dirty = true
	}

	if held[IntentTiltUp] && !held[IntentTiltDown] {
		p.tilt = clampInt(p.tilt+p.cfg.PanTiltStep, tiltMin, tiltMax)
	} else if held[IntentTiltDown] && !held[IntentTiltUp] {
		p.tilt = clampInt(p.tilt-p.cfg.PanTiltStep, tiltMin, tiltMax)
	}
	if p.tilt != p.lastTilt {
		p.sink.SetCamTiltAngle(p.tilt)
		p.lastTilt = p.tilt
		p.dirty = true
	}

	cb := p.onChange
	dirty := p.dirty
	speed, dir := p.lastSpeed, p.lastDirection
	steer, pan, tilt := p.lastSteer, p.pan, p.tilt
	p.mu.Unlock()

	if dirty && cb != nil {
		cb(speed, dir, steer, pan, tilt)
	}
}

// emitMove envia um comando de movimento se velocidade ou sentido
// mudaram desde o último envio
func (p *Pilot) emitMove(direction models.Direction, speed int) {
	if p.lastMoving && p.lastDirection == direction && p.lastSpeed == speed {
		return
	}
	p.sink.Move(direction, speed)
	p.lastMoving = true
	p.lastDirection = direction
	p.lastSpeed = speed
	p.dirty = true
}

// emitStop envia uma parada total uma única vez por repouso
func (p *Pilot) emitStop() {
	if !p.lastMoving {
		return
	}
	p.sink.Stop()
	p.lastMoving = false
	p.lastSpeed = 0
	p.dirty = true
}

// accelerate avança a velocidade um passo, limitada ao máximo
func (p *Pilot) accelerate(speed int) int {
	speed += p.cfg.AccelStep
	if speed > p.cfg.MaxSpeed {
		speed = p.cfg.MaxSpeed
	}
	return speed
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
