package pilot

import (
	"math"

	"rover_go/internal/models"
)

// Zonas do joystick. O ângulo é medido em graus, com 90 apontando para
// frente. Posições a até pureZoneHalfAngle do eixo vertical comandam só
// aceleração; a até pureZoneHalfAngle do eixo horizontal, só direção;
// entre as duas zonas os dois canais são interpolados linearmente.
const (
	pureZoneHalfAngle = 22.5
	deadZone          = 0.1
)

// JoystickState é o resultado do mapeamento de uma posição do joystick
type JoystickState struct {
	Direction    models.Direction
	Speed        int
	Steer        int
	LockSteer    bool
	LockThrottle bool
}

// MapJoystick converte uma posição de joystick (ângulo em graus,
// distância normalizada 0-1) em velocidade e ângulo de direção. Os
// travamentos LockSteer e LockThrottle indicam as zonas de canal único
// e são independentes: na zona mista ambos ficam falsos.
func MapJoystick(angle, distance float64, maxSpeed, turnAngle int) JoystickState {
	if distance <= deadZone {
		return JoystickState{Direction: models.DirectionForward}
	}
	if distance > 1 {
		distance = 1
	}

	a := math.Mod(angle, 360)
	if a < 0 {
		a += 360
	}

	// Distância angular ao eixo vertical mais próximo: 0 = aceleração
	// pura, 90 = direção pura
	dv := math.Abs(a - 90)
	if a >= 180 {
		dv = math.Abs(a - 270)
	}

	var steerFrac, throttleFrac float64
	var lockSteer, lockThrottle bool
	switch {
	case dv <= pureZoneHalfAngle:
		throttleFrac = 1
		lockSteer = true
	case dv >= 90-pureZoneHalfAngle:
		steerFrac = 1
		lockThrottle = true
	default:
		steerFrac = (dv - pureZoneHalfAngle) / (90 - 2*pureZoneHalfAngle)
		throttleFrac = 1 - steerFrac
	}

	direction := models.DirectionForward
	if a >= 180 {
		direction = models.DirectionBackward
	}

	steer := int(math.Round(distance * float64(turnAngle) * steerFrac))
	if a > 90 && a < 270 {
		steer = -steer
	}

	return JoystickState{
		Direction:    direction,
		Speed:        int(math.Round(distance * float64(maxSpeed) * throttleFrac)),
		Steer:        steer,
		LockSteer:    lockSteer,
		LockThrottle: lockThrottle,
	}
}
