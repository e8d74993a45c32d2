package video

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeFrameRoundTrip(t *testing.T) {
	image := []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 0x4A, 0x46}
	raw := EncodeFrame(&Frame{Timestamp: 12.5, FrameRate: 29.97, Image: image})
	require.Len(t, raw, HeaderSize+len(image))

	d := NewDecoder()
	frame, err := d.Decode(raw)
	require.NoError(t, err)

	assert.Equal(t, 12.5, frame.Timestamp)
	assert.Equal(t, 29.97, frame.FrameRate)
	assert.Equal(t, image, frame.Image)
}

func TestDecodeShortBuffer(t *testing.T) {
	d := NewDecoder()

	cases := []struct {
		name string
		data []byte
	}{
		{"vazio", nil},
		{"um byte", []byte{0x01}},
		{"quinze bytes", make([]byte, HeaderSize-1)},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			frame, err := d.Decode(tc.data)
			require.ErrorIs(t, err, ErrShortFrame)
			assert.Nil(t, frame)
		})
	}
}

func TestDecodeHeaderOnly(t *testing.T) {
	// Cabeçalho sem imagem é válido: quadro com imagem vazia
	raw := EncodeFrame(&Frame{Timestamp: 1.0, FrameRate: 30.0})
	require.Len(t, raw, HeaderSize)

	d := NewDecoder()
	frame, err := d.Decode(raw)
	require.NoError(t, err)
	assert.Empty(t, frame.Image)
}

func TestDecodeInvalidatesPreviousFrame(t *testing.T) {
	d := NewDecoder()

	first, err := d.Decode(EncodeFrame(&Frame{Timestamp: 1, FrameRate: 30, Image: []byte("AAAA")}))
	require.NoError(t, err)
	keptImage := first.Image
	copied := EncodeFrame(first)

	_, err = d.Decode(EncodeFrame(&Frame{Timestamp: 2, FrameRate: 30, Image: []byte("BB")}))
	require.NoError(t, err)

	// O buffer interno foi reutilizado: a referência antiga não contém
	// mais a imagem original, mas a cópia feita antes permanece intacta
	assert.NotEqual(t, []byte("AAAA"), keptImage)
	assert.Equal(t, []byte("AAAA"), copied[HeaderSize:])
}

func TestDecoderStats(t *testing.T) {
	d := NewDecoder()

	raw1 := EncodeFrame(&Frame{Timestamp: 10.0, FrameRate: 25.0, Image: []byte("abc")})
	raw2 := EncodeFrame(&Frame{Timestamp: 10.04, FrameRate: 25.0, Image: []byte("defg")})

	_, err := d.Decode(raw1)
	require.NoError(t, err)
	_, err = d.Decode(raw2)
	require.NoError(t, err)

	stats := d.Stats()
	assert.Equal(t, uint64(2), stats.FramesTotal)
	assert.Equal(t, uint64(len(raw1)+len(raw2)), stats.BytesTotal)
	assert.Equal(t, 25.0, stats.FrameRate)
	assert.Equal(t, 10.04, stats.LastTimestamp)
	assert.False(t, stats.LastFrameAt.IsZero())
}
