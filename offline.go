package presto

import (
	"encoding/binary"
	"math"

	intseq "github.com/prestolab/presto-go/internal/sequencer"
)

// RenderSamples renders the piece offline for the given duration and returns
// interleaved samples. The frame count is rounded up to a whole number of
// quanta.
func RenderSamples(piece *intseq.Piece, seconds float64) []float32 {
	quantum := piece.Quantum()
	frames := int(math.Ceil(float64(piece.SampleRate()) * seconds))
	frames = ((frames + quantum - 1) / quantum) * quantum
	out := make([]float32, frames*piece.Channels())
	piece.Generate(out, piece.Channels())
	return out
}

func EncodeWAVFloat32LE(samples []float32, sampleRate int, channels int) []byte {
	dataSize := len(samples) * 4
	byteRate := sampleRate * channels * 4
	blockAlign := channels * 4
	chunkSize := 36 + dataSize
	out := make([]byte, 44+dataSize)
	copy(out[0:], []byte("RIFF"))
	binary.LittleEndian.PutUint32(out[4:], uint32(chunkSize))
	copy(out[8:], []byte("WAVE"))
	copy(out[12:], []byte("fmt "))
	binary.LittleEndian.PutUint32(out[16:], 16)
	binary.LittleEndian.PutUint16(out[20:], 3)
	binary.LittleEndian.PutUint16(out[22:], uint16(channels))
	binary.LittleEndian.PutUint32(out[24:], uint32(sampleRate))
	binary.LittleEndian.PutUint32(out[28:], uint32(byteRate))
	binary.LittleEndian.PutUint16(out[32:], uint16(blockAlign))
	binary.LittleEndian.PutUint16(out[34:], 32)
	copy(out[36:], []byte("data"))
	binary.LittleEndian.PutUint32(out[40:], uint32(dataSize))
	for i, s := range samples {
		binary.LittleEndian.PutUint32(out[44+i*4:], math.Float32bits(s))
	}
	return out
}
