package robot

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rover_go/internal/models"
)

type captureSender struct {
	msgs [][]byte
}

func (s *captureSender) Send(data []byte) {
	s.msgs = append(s.msgs, data)
}

func TestCommanderSerializesActions(t *testing.T) {
	cs := &captureSender{}
	cmd := NewCommander(cs)

	cmd.Move(models.DirectionForward, 40)
	cmd.Stop()
	cmd.SetServoAngle(-30)
	cmd.SetCamTiltAngle(15)
	cmd.SetCamPanAngle(-45)
	cmd.PlayMusic("tema.mp3")
	cmd.PlaySound("buzina")
	cmd.SayText("olá mundo")
	cmd.TakePhoto()
	cmd.StartAutoMeasureDistance()
	cmd.StopAutoMeasureDistance()

	expected := []string{
		`{"action":"move","direction":"forward","speed":40}`,
		`{"action":"stop"}`,
		`{"action":"setServo","angle":-30}`,
		`{"action":"setCamTiltAngle","angle":15}`,
		`{"action":"setCamPanAngle","angle":-45}`,
		`{"action":"playMusic","name":"tema.mp3"}`,
		`{"action":"playSound","name":"buzina"}`,
		`{"action":"sayText","text":"olá mundo"}`,
		`{"action":"takePhoto"}`,
		`{"action":"startAutoMeasureDistance"}`,
		`{"action":"stopAutoMeasureDistance"}`,
	}

	require.Len(t, cs.msgs, len(expected))
	for i, want := range expected {
		assert.JSONEq(t, want, string(cs.msgs[i]), "comando %d", i)
	}
}

func TestCommanderAcceptsCallerActions(t *testing.T) {
	cs := &captureSender{}
	cmd := NewCommander(cs)

	cmd.Enqueue(models.Command{
		Action: "blinkLed",
		Params: map[string]interface{}{"color": "azul", "times": 3},
	})

	require.Len(t, cs.msgs, 1)
	assert.JSONEq(t, `{"action":"blinkLed","color":"azul","times":3}`, string(cs.msgs[0]))
}
