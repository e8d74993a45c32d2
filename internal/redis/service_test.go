package redis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rover_go/internal/config"
)

func TestHistoryMemberRoundTrip(t *testing.T) {
	member := historyMember(1700000000123, 7.41)
	assert.Equal(t, "1700000000123:7.41", member)

	value, err := parseHistoryValue(member)
	require.NoError(t, err)
	assert.Equal(t, 7.41, value)
}

func TestParseHistoryValueWithoutTimestampPrefix(t *testing.T) {
	// Valores antigos gravados sem prefixo ainda devem ser lidos
	value, err := parseHistoryValue("42.5")
	require.NoError(t, err)
	assert.Equal(t, 42.5, value)
}

func TestParseHistoryValueRejectsGarbage(t *testing.T) {
	_, err := parseHistoryValue("1700000000123:banana")
	assert.Error(t, err)
}

func TestDisabledServiceStaysOffline(t *testing.T) {
	svc, err := NewService(config.RedisConfig{Enabled: false})
	require.NoError(t, err)

	assert.False(t, svc.IsConnected())
	assert.NoError(t, svc.WriteTelemetry(nil))

	_, err = svc.GetBatteryHistory()
	assert.Error(t, err)
}
