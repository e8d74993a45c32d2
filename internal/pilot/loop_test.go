package pilot

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rover_go/internal/config"
	"rover_go/internal/models"
)

type sinkCall struct {
	op        string
	direction models.Direction
	value     int
}

// fakeSink grava as chamadas do loop na ordem de emissão
type fakeSink struct {
	mu    sync.Mutex
	calls []sinkCall
}

func (s *fakeSink) Move(direction models.Direction, speed int) {
	s.record(sinkCall{op: "move", direction: direction, value: speed})
}

func (s *fakeSink) Stop() {
	s.record(sinkCall{op: "stop"})
}

func (s *fakeSink) SetServoAngle(angle int) {
	s.record(sinkCall{op: "servo", value: angle})
}

func (s *fakeSink) SetCamTiltAngle(angle int) {
	s.record(sinkCall{op: "tilt", value: angle})
}

func (s *fakeSink) SetCamPanAngle(angle int) {
	s.record(sinkCall{op: "pan", value: angle})
}

func (s *fakeSink) record(c sinkCall) {
	s.mu.Lock()
	s.calls = append(s.calls, c)
	s.mu.Unlock()
}

func (s *fakeSink) all() []sinkCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]sinkCall(nil), s.calls...)
}

func (s *fakeSink) ofOp(op string) []sinkCall {
	var out []sinkCall
	for _, c := range s.all() {
		if c.op == op {
			out = append(out, c)
		}
	}
	return out
}

func testConfig() config.PilotConfig {
	return config.PilotConfig{
		TickInterval: 50 * time.Millisecond,
		MaxSpeed:     80,
		AccelStep:    10,
		DecayStep:    10,
		TurnAngle:    30,
		PanTiltStep:  5,
	}
}

func ticks(p *Pilot, n int) {
	for i := 0; i < n; i++ {
		p.tick()
	}
}

func TestAccelerationRamp(t *testing.T) {
	sink := &fakeSink{}
	p := New(testConfig(), sink)

	p.KeyDown("w")
	ticks(p, 5)

	moves := sink.ofOp("move")
	require.Len(t, moves, 5)
	for i, want := range []int{0, 10, 20, 30, 40} {
		assert.Equal(t, want, moves[i].value, "tick %d", i+1)
		assert.Equal(t, models.DirectionForward, moves[i].direction)
	}
}

func TestSpeedCapsAtMaxWithoutReemission(t *testing.T) {
	sink := &fakeSink{}
	p := New(testConfig(), sink)

	p.KeyDown("w")
	ticks(p, 12)

	moves := sink.ofOp("move")
	// 0,10,...,80: nove valores; depois do teto nada se repete
	require.Len(t, moves, 9)
	assert.Equal(t, 80, moves[len(moves)-1].value)
}

func TestDecayToStop(t *testing.T) {
	sink := &fakeSink{}
	p := New(testConfig(), sink)

	p.KeyDown("w")
	ticks(p, 4) // envia 0,10,20,30; velocidade interna chega a 40
	p.KeyUp("w")
	ticks(p, 6)

	var got []string
	for _, c := range sink.all() {
		if c.op == "move" {
			got = append(got, fmt.Sprintf("%s:%d", c.direction, c.value))
			continue
		}
		got = append(got, c.op)
	}

	// Decaimento: 30 é o último valor enviado e não se repete; depois
	// 20 e 10, e uma única parada ao chegar a zero
	assert.Equal(t, []string{
		"forward:0", "forward:10", "forward:20", "forward:30",
		"forward:20", "forward:10", "stop",
	}, got)
}

func TestBackwardSymmetry(t *testing.T) {
	sink := &fakeSink{}
	p := New(testConfig(), sink)

	p.KeyDown("s")
	ticks(p, 3)

	moves := sink.ofOp("move")
	require.Len(t, moves, 3)
	for i, want := range []int{0, 10, 20} {
		assert.Equal(t, want, moves[i].value)
		assert.Equal(t, models.DirectionBackward, moves[i].direction)
	}
}

func TestSteeringIsEdgeTriggered(t *testing.T) {
	sink := &fakeSink{}
	p := New(testConfig(), sink)

	// Três ticks com a tecla segura: uma única deflexão
	p.KeyDown("a")
	ticks(p, 3)
	servos := sink.ofOp("servo")
	require.Len(t, servos, 1)
	assert.Equal(t, -30, servos[0].value)

	// Soltar recentra exatamente uma vez, no tick seguinte
	p.KeyUp("a")
	ticks(p, 1)
	servos = sink.ofOp("servo")
	require.Len(t, servos, 2)
	assert.Equal(t, 0, servos[1].value)

	ticks(p, 3)
	assert.Len(t, sink.ofOp("servo"), 2)
}

func TestSteeringRightAndLeftCancelOut(t *testing.T) {
	sink := &fakeSink{}
	p := New(testConfig(), sink)

	p.KeyDown("a")
	p.KeyDown("d")
	ticks(p, 2)

	// Teclas opostas seguras ao mesmo tempo não defletem
	assert.Empty(t, sink.ofOp("servo"))
}

func TestTapBetweenTicks(t *testing.T) {
	sink := &fakeSink{}
	p := New(testConfig(), sink)

	// Toque completo entre dois ticks ainda conta uma vez
	p.KeyDown("w")
	p.KeyUp("w")
	ticks(p, 2)

	var ops []string
	for _, c := range sink.all() {
		ops = append(ops, c.op)
	}
	assert.Equal(t, []string{"move", "stop"}, ops)
}

func TestPanTiltStepAndHold(t *testing.T) {
	sink := &fakeSink{}
	p := New(testConfig(), sink)

	p.KeyDown("ArrowRight")
	ticks(p, 3)
	p.KeyUp("ArrowRight")
	ticks(p, 2)

	pans := sink.ofOp("pan")
	require.Len(t, pans, 3)
	assert.Equal(t, 5, pans[0].value)
	assert.Equal(t, 10, pans[1].value)
	assert.Equal(t, 15, pans[2].value)
	// A câmera fica onde está quando a tecla solta
}

func TestTiltClampsAtLimit(t *testing.T) {
	sink := &fakeSink{}
	p := New(testConfig(), sink)

	p.KeyDown("ArrowUp")
	ticks(p, 20)

	tilts := sink.ofOp("tilt")
	require.NotEmpty(t, tilts)
	assert.Equal(t, 65, tilts[len(tilts)-1].value)
	// 5,10,...,65: treze emissões, nenhuma após o limite
	assert.Len(t, tilts, 13)
}

func TestJoystickDrivesChannels(t *testing.T) {
	sink := &fakeSink{}
	p := New(testConfig(), sink)

	p.SetJoystick(90, 1)
	ticks(p, 2)

	moves := sink.ofOp("move")
	require.Len(t, moves, 1)
	assert.Equal(t, 80, moves[0].value)
	assert.Empty(t, sink.ofOp("servo"))

	p.SetJoystick(45, 1)
	ticks(p, 1)

	moves = sink.ofOp("move")
	require.Len(t, moves, 2)
	assert.Equal(t, 40, moves[1].value)
	servos := sink.ofOp("servo")
	require.Len(t, servos, 1)
	assert.Equal(t, 15, servos[0].value)
}

func TestJoystickReleaseResumesDecay(t *testing.T) {
	sink := &fakeSink{}
	p := New(testConfig(), sink)

	p.SetJoystick(45, 1)
	ticks(p, 1) // move 40, servo 15

	p.SetJoystick(0, 0) // zona morta libera o joystick
	ticks(p, 1)

	moves := sink.ofOp("move")
	require.Len(t, moves, 2)
	assert.Equal(t, 30, moves[1].value, "decai a partir da última velocidade")

	servos := sink.ofOp("servo")
	require.Len(t, servos, 2)
	assert.Equal(t, 0, servos[1].value, "direção recentra sem joystick nem tecla")
}

func TestOnChangeFiresOnlyWhenSomethingWasEmitted(t *testing.T) {
	sink := &fakeSink{}
	p := New(testConfig(), sink)

	var mu sync.Mutex
	var notified int
	var lastSpeed int
	p.SetOnChange(func(speed int, _ models.Direction, _, _, _ int) {
		mu.Lock()
		notified++
		lastSpeed = speed
		mu.Unlock()
	})

	ticks(p, 3) // repouso: nada emitido, nada notificado
	mu.Lock()
	assert.Zero(t, notified)
	mu.Unlock()

	p.KeyDown("w")
	ticks(p, 2)
	mu.Lock()
	assert.Equal(t, 2, notified)
	assert.Equal(t, 10, lastSpeed)
	mu.Unlock()
}

func TestStartAndStopLifecycle(t *testing.T) {
	sink := &fakeSink{}
	cfg := testConfig()
	cfg.TickInterval = 5 * time.Millisecond
	p := New(cfg, sink)

	p.Start()
	p.Start() // repetido é inofensivo
	p.KeyDown("w")

	require.Eventually(t, func() bool {
		return len(sink.ofOp("move")) >= 2
	}, 2*time.Second, time.Millisecond)

	p.Stop()
	p.Stop()

	count := len(sink.all())
	time.Sleep(40 * time.Millisecond)
	assert.Equal(t, count, len(sink.all()), "nenhum tick depois de Stop")
}
