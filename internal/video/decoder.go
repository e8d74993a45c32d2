package video

import (
	"errors"
	"fmt"
	"time"

	"rover_go/internal/models"
	"rover_go/pkg/utils"
)

// HeaderSize é o tamanho fixo do cabeçalho de um quadro de vídeo:
// dois float64 little-endian (timestamp e frameRate), seguidos dos
// bytes da imagem JPEG.
const HeaderSize = 16

// ErrShortFrame indica um buffer binário menor que o cabeçalho
var ErrShortFrame = errors.New("quadro de vídeo menor que o cabeçalho")

// Frame é um quadro de vídeo decodificado. Image aponta para o buffer
// interno do Decoder e só é válido até a próxima decodificação; quem
// precisar guardar a imagem deve copiá-la (ou usar EncodeFrame).
type Frame struct {
	Timestamp float64
	FrameRate float64
	Image     []byte
}

// Decoder decodifica quadros binários do fluxo de câmera. Mantém um
// único quadro vivo: decodificar o quadro N+1 invalida os bytes do
// quadro N. Não é seguro para uso concorrente; cada conexão de câmera
// tem o seu.
type Decoder struct {
	frame Frame
	buf   []byte

	frames      uint64
	bytes       uint64
	lastFrameAt time.Time
}

// NewDecoder cria um decodificador de quadros
func NewDecoder() *Decoder {
	return &Decoder{}
}

// Decode interpreta um buffer binário vindo do socket de câmera.
// Buffers menores que o cabeçalho são rejeitados e o quadro anterior
// permanece intacto.
func (d *Decoder) Decode(data []byte) (*Frame, error) {
	if len(data) < HeaderSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrShortFrame, len(data))
	}

	timestamp := utils.BytesToFloat(data[0:8])
	frameRate := utils.BytesToFloat(data[8:16])

	// Reutilizar o buffer interno libera a imagem anterior antes de
	// instalar a nova
	d.buf = append(d.buf[:0], data[HeaderSize:]...)
	d.frame = Frame{
		Timestamp: timestamp,
		FrameRate: frameRate,
		Image:     d.buf,
	}

	d.frames++
	d.bytes += uint64(len(data))
	d.lastFrameAt = time.Now()

	return &d.frame, nil
}

// Stats retorna as estatísticas acumuladas do fluxo
func (d *Decoder) Stats() models.VideoStats {
	return models.VideoStats{
		FrameRate:     d.frame.FrameRate,
		LastTimestamp: d.frame.Timestamp,
		FramesTotal:   d.frames,
		BytesTotal:    d.bytes,
		LastFrameAt:   d.lastFrameAt,
	}
}

// EncodeFrame serializa um quadro no formato binário do fluxo de
// câmera. Usado para retransmitir quadros aos operadores com um buffer
// próprio, independente do quadro vivo do Decoder.
func EncodeFrame(f *Frame) []byte {
	buf := make([]byte, HeaderSize+len(f.Image))
	utils.PutFloat64(buf[0:8], f.Timestamp)
	utils.PutFloat64(buf[8:16], f.FrameRate)
	copy(buf[HeaderSize:], f.Image)
	return buf
}
