package websocket

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rover_go/internal/models"
)

// startHub liga o loop do hub e garante o encerramento no fim do teste
func startHub(t *testing.T, h *Hub) {
	t.Helper()
	go h.Run()
	t.Cleanup(h.Shutdown)
}

// attachClient registra um cliente de teste sem bombas de leitura/escrita;
// as mensagens ficam disponíveis diretamente no canal send
func attachClient(t *testing.T, h *Hub) *Client {
	t.Helper()
	client := newClient(h, nil, "test-agent", "127.0.0.1")
	h.register <- client
	require.Eventually(t, func() bool {
		return h.ClientCount() == 1
	}, 2*time.Second, 5*time.Millisecond)
	return client
}

// nextTextMessage consome o canal de envio até encontrar uma mensagem de
// texto do tipo pedido
func nextTextMessage(t *testing.T, c *Client, wantType string) map[string]interface{} {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case env, ok := <-c.send:
			require.True(t, ok, "canal de envio fechado antes de receber %q", wantType)
			if env.messageType != websocket.TextMessage {
				continue
			}
			var m map[string]interface{}
			require.NoError(t, json.Unmarshal(env.data, &m))
			if m["type"] == wantType {
				return m
			}
		case <-deadline:
			t.Fatalf("mensagem %q não recebida a tempo", wantType)
		}
	}
}

// nextBinaryMessage consome o canal de envio até encontrar um frame binário
func nextBinaryMessage(t *testing.T, c *Client) []byte {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case env, ok := <-c.send:
			require.True(t, ok, "canal de envio fechado antes do frame binário")
			if env.messageType == websocket.BinaryMessage {
				return env.data
			}
		case <-deadline:
			t.Fatal("frame binário não recebido a tempo")
		}
	}
}

func TestHubSendsWelcomeAndSnapshotOnRegister(t *testing.T) {
	h := NewHub()
	h.SetSnapshotProvider(func() (models.Telemetry, models.RoverStatus) {
		return models.Telemetry{Speed: 40, Direction: "forward"},
			models.RoverStatus{Status: "connected"}
	})
	startHub(t, h)

	client := attachClient(t, h)

	welcome := nextTextMessage(t, client, "welcome")
	data := welcome["data"].(map[string]interface{})
	assert.Equal(t, client.id, data["clientId"])

	telemetry := nextTextMessage(t, client, "telemetry")
	payload := telemetry["telemetry"].(map[string]interface{})
	assert.Equal(t, float64(40), payload["speed"])

	status := nextTextMessage(t, client, "status")
	assert.Equal(t, "connected", status["status"])
}

func TestHubBroadcastTelemetryReachesClients(t *testing.T) {
	h := NewHub()
	startHub(t, h)
	client := attachClient(t, h)

	h.BroadcastTelemetry(models.Telemetry{Speed: 20, Direction: "forward", BatteryPercent: 87})

	msg := nextTextMessage(t, client, "telemetry")
	payload := msg["telemetry"].(map[string]interface{})
	assert.Equal(t, float64(20), payload["speed"])
	assert.Equal(t, "forward", payload["direction"])
	assert.Equal(t, float64(87), payload["batteryPercent"])
}

func TestHubTelemetryRateLimitSuppressesDuplicates(t *testing.T) {
	h := NewHub()
	startHub(t, h)
	client := attachClient(t, h)

	sample := models.Telemetry{Speed: 30, Direction: "forward", BatteryVoltage: 7.4}
	h.BroadcastTelemetry(sample)

	// Repetição imediata sem mudança significativa deve ser suprimida
	h.BroadcastTelemetry(sample)

	// Mudança de velocidade conta como significativa mesmo dentro da janela
	changed := sample
	changed.Speed = 40
	h.BroadcastTelemetry(changed)

	first := nextTextMessage(t, client, "telemetry")
	assert.Equal(t, float64(30), first["telemetry"].(map[string]interface{})["speed"])

	second := nextTextMessage(t, client, "telemetry")
	assert.Equal(t, float64(40), second["telemetry"].(map[string]interface{})["speed"])
}

func TestHubBroadcastVideoFrameIsBinary(t *testing.T) {
	h := NewHub()
	startHub(t, h)

	// Sem operadores o frame é descartado sem enfileirar
	h.BroadcastVideoFrame([]byte{0xDE, 0xAD})

	client := attachClient(t, h)

	frame := []byte{0x01, 0x02, 0x03, 0x04}
	h.BroadcastVideoFrame(frame)

	got := nextBinaryMessage(t, client)
	assert.Equal(t, frame, got)
}

func TestHubBroadcastEventRelaysPayload(t *testing.T) {
	h := NewHub()
	startHub(t, h)
	client := attachClient(t, h)

	h.BroadcastEvent(models.TypeBattery, models.BatteryPayload{Voltage: 7.8, Percentage: 92})

	msg := nextTextMessage(t, client, "event")
	assert.Equal(t, "battery", msg["event"])
	payload := msg["payload"].(map[string]interface{})
	assert.Equal(t, 7.8, payload["voltage"])
}

func TestHubForwardsControlEventsInOrder(t *testing.T) {
	var mu sync.Mutex
	var got []string

	h := NewHub()
	h.SetEventHandler(func(ev models.ClientEvent) {
		mu.Lock()
		got = append(got, ev.Type+":"+ev.Key+ev.Action)
		mu.Unlock()
	})
	startHub(t, h)

	h.events <- models.ClientEvent{Type: "key_down", Key: "w"}
	h.events <- models.ClientEvent{Type: "key_up", Key: "w"}
	h.events <- models.ClientEvent{Type: "command", Action: "takePhoto"}

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 3
	}, 2*time.Second, 5*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"key_down:w", "key_up:w", "command:takePhoto"}, got)
}

func TestHubIgnoresUnknownEventTypes(t *testing.T) {
	var calls int
	var mu sync.Mutex

	h := NewHub()
	h.SetEventHandler(func(models.ClientEvent) {
		mu.Lock()
		calls++
		mu.Unlock()
	})
	startHub(t, h)
	client := attachClient(t, h)

	// O evento desconhecido entra primeiro; o ping seguinte prova que a
	// fila já foi processada quando o pong chega
	h.events <- models.ClientEvent{Type: "dance", ClientID: client.id}
	h.events <- models.ClientEvent{Type: "ping", Time: 123, ClientID: client.id}

	pong := nextTextMessage(t, client, "pong")
	assert.Equal(t, float64(123), pong["time"])

	mu.Lock()
	defer mu.Unlock()
	assert.Zero(t, calls)
}

func TestHubAnswersHistoryRequests(t *testing.T) {
	h := NewHub()
	h.SetHistoryProvider(func(metric string) []models.HistoryPoint {
		require.Equal(t, "distance", metric)
		return []models.HistoryPoint{{Value: 42.5, Timestamp: time.Now()}}
	})
	startHub(t, h)
	client := attachClient(t, h)

	h.events <- models.ClientEvent{
		Type:     "get_history",
		Params:   map[string]interface{}{"metric": "distance"},
		ClientID: client.id,
	}

	msg := nextTextMessage(t, client, "history")
	assert.Equal(t, "distance", msg["metric"])
	history := msg["history"].([]interface{})
	require.Len(t, history, 1)
	assert.Equal(t, 42.5, history[0].(map[string]interface{})["value"])
}

func TestHubClientCountAfterUnregister(t *testing.T) {
	h := NewHub()
	startHub(t, h)
	client := attachClient(t, h)

	h.unregister <- client
	require.Eventually(t, func() bool {
		return h.ClientCount() == 0
	}, 2*time.Second, 5*time.Millisecond)

	// O canal de envio deve ter sido fechado exatamente uma vez
	for {
		if _, ok := <-client.send; !ok {
			break
		}
	}
}
