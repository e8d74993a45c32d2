package pilot

import (
	"strings"
	"sync"
)

// Intent é a intenção de pilotagem associada a uma tecla
type Intent int

const (
	IntentNone Intent = iota
	IntentForward
	IntentBackward
	IntentLeft
	IntentRight
	IntentPanLeft
	IntentPanRight
	IntentTiltUp
	IntentTiltDown
)

// keymap traduz as teclas enviadas pelas UIs em intenções: WASD move o
// rover, as setas movem a câmera
var keymap = map[string]Intent{
	"w":          IntentForward,
	"s":          IntentBackward,
	"a":          IntentLeft,
	"d":          IntentRight,
	"arrowup":    IntentTiltUp,
	"arrowdown":  IntentTiltDown,
	"arrowleft":  IntentPanLeft,
	"arrowright": IntentPanRight,
}

// IntentForKey traduz uma tecla em intenção; teclas fora do mapa
// retornam IntentNone
func IntentForKey(key string) Intent {
	return keymap[strings.ToLower(key)]
}

// KeyState acumula as teclas seguras entre amostragens do loop. Um
// toque completo entre dois ticks (pressionar e soltar sem nunca ser
// amostrado) não se perde: vale por um tick na amostragem seguinte.
type KeyState struct {
	mu      sync.Mutex
	held    map[Intent]bool
	sampled map[Intent]bool
	tapped  map[Intent]bool
}

// NewKeyState cria um acumulador de teclas vazio
func NewKeyState() *KeyState {
	return &KeyState{
		held:    make(map[Intent]bool),
		sampled: make(map[Intent]bool),
		tapped:  make(map[Intent]bool),
	}
}

// KeyDown registra uma tecla pressionada. Teclas sem intenção mapeada
// são ignoradas.
func (k *KeyState) KeyDown(key string) {
	in := IntentForKey(key)
	if in == IntentNone {
		return
	}
	k.mu.Lock()
	k.held[in] = true
	k.sampled[in] = false
	k.mu.Unlock()
}

// KeyUp registra uma tecla solta. Se a tecla nunca chegou a ser
// amostrada, o toque fica guardado para o próximo tick.
func (k *KeyState) KeyUp(key string) {
	in := IntentForKey(key)
	if in == IntentNone {
		return
	}
	k.mu.Lock()
	if k.held[in] && !k.sampled[in] {
		k.tapped[in] = true
	}
	delete(k.held, in)
	delete(k.sampled, in)
	k.mu.Unlock()
}

// Snapshot devolve o conjunto efetivo de intenções deste tick (teclas
// seguras mais toques pendentes) e consome os toques
func (k *KeyState) Snapshot() map[Intent]bool {
	k.mu.Lock()
	defer k.mu.Unlock()

	eff := make(map[Intent]bool, len(k.held)+len(k.tapped))
	for in := range k.held {
		eff[in] = true
		k.sampled[in] = true
	}
	for in := range k.tapped {
		eff[in] = true
	}
	k.tapped = make(map[Intent]bool)
	return eff
}

// Reset descarta todo o estado acumulado
func (k *KeyState) Reset() {
	k.mu.Lock()
	k.held = make(map[Intent]bool)
	k.sampled = make(map[Intent]bool)
	k.tapped = make(map[Intent]bool)
	k.mu.Unlock()
}
