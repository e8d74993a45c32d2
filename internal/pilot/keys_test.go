package pilot

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIntentForKey(t *testing.T) {
	assert.Equal(t, IntentForward, IntentForKey("w"))
	assert.Equal(t, IntentForward, IntentForKey("W"))
	assert.Equal(t, IntentTiltUp, IntentForKey("ArrowUp"))
	assert.Equal(t, IntentNone, IntentForKey("x"))
	assert.Equal(t, IntentNone, IntentForKey(""))
}

func TestSnapshotTracksHeldKeys(t *testing.T) {
	k := NewKeyState()

	k.KeyDown("w")
	k.KeyDown("a")

	eff := k.Snapshot()
	assert.True(t, eff[IntentForward])
	assert.True(t, eff[IntentLeft])

	// Tecla segura continua valendo em amostragens seguintes
	eff = k.Snapshot()
	assert.True(t, eff[IntentForward])

	k.KeyUp("w")
	eff = k.Snapshot()
	assert.False(t, eff[IntentForward])
	assert.True(t, eff[IntentLeft])
}

func TestTapBetweenSnapshotsIsPreserved(t *testing.T) {
	k := NewKeyState()

	// Pressionar e soltar sem nenhuma amostragem no meio
	k.KeyDown("w")
	k.KeyUp("w")

	eff := k.Snapshot()
	assert.True(t, eff[IntentForward], "o toque vale por um tick")

	eff = k.Snapshot()
	assert.False(t, eff[IntentForward], "o toque é consumido")
}

func TestSampledKeyReleaseLeavesNoGhost(t *testing.T) {
	k := NewKeyState()

	k.KeyDown("a")
	k.Snapshot()
	k.KeyUp("a")

	eff := k.Snapshot()
	assert.Empty(t, eff)
}

func TestUnmappedKeysAreIgnored(t *testing.T) {
	k := NewKeyState()

	k.KeyDown("F5")
	k.KeyUp("F5")

	assert.Empty(t, k.Snapshot())
}

func TestReset(t *testing.T) {
	k := NewKeyState()

	k.KeyDown("w")
	k.KeyDown("a")
	k.KeyUp("a")
	k.Reset()

	assert.Empty(t, k.Snapshot())
}
