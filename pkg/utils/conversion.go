package utils

import (
	"encoding/binary"
	"math"
)

// FloatToBytes converte um float64 para 8 bytes IEEE-754 little-endian,
// o formato usado no cabeçalho dos quadros de vídeo do rover
func FloatToBytes(val float64) []byte {
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint64(buf, math.Float64bits(val))
	return buf
}

// BytesToFloat interpreta 8 bytes IEEE-754 little-endian como float64.
// Retorna 0 se o slice for curto demais.
func BytesToFloat(buf []byte) float64 {
	if len(buf) < 8 {
		return 0
	}
	return math.Float64frombits(binary.LittleEndian.Uint64(buf))
}

// PutFloat64 grava um float64 little-endian em buf, que deve ter ao
// menos 8 bytes
func PutFloat64(buf []byte, val float64) {
	binary.LittleEndian.PutUint64(buf, math.Float64bits(val))
}
