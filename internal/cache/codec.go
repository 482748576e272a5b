package cache

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/sayright/sayright/pkg/audio"
	"github.com/sayright/sayright/pkg/provider/asr"
)

// audioMagic marks serialised audio blobs. The trailing digit is the frame
// version; bump it when the layout changes.
const audioMagic = "SRA1"

// AudioCodec serialises waveforms for the reference-audio cache using a
// little-endian binary frame: magic, sample rate, channel count, sample
// count, then raw float32 samples. Deterministic and bit-exact on round-trip.
type AudioCodec struct{}

// Encode implements Codec.
func (AudioCodec) Encode(c audio.Clip) ([]byte, error) {
	channels := c.Channels
	if channels < 1 {
		channels = 1
	}
	buf := make([]byte, 4+4+4+4+len(c.Samples)*4)
	copy(buf[0:4], audioMagic)
	binary.LittleEndian.PutUint32(buf[4:8], uint32(c.SampleRate))
	binary.LittleEndian.PutUint32(buf[8:12], uint32(channels))
	binary.LittleEndian.PutUint32(buf[12:16], uint32(len(c.Samples)))
	for i, s := range c.Samples {
		binary.LittleEndian.PutUint32(buf[16+i*4:], math.Float32bits(s))
	}
	return buf, nil
}

// Decode implements Codec.
func (AudioCodec) Decode(data []byte) (audio.Clip, error) {
	if len(data) < 16 {
		return audio.Clip{}, errors.New("audio blob truncated header")
	}
	if string(data[0:4]) != audioMagic {
		return audio.Clip{}, fmt.Errorf("audio blob bad magic %q", data[0:4])
	}
	n := int(binary.LittleEndian.Uint32(data[12:16]))
	if len(data) < 16+n*4 {
		return audio.Clip{}, fmt.Errorf("audio blob truncated: want %d samples, have %d bytes", n, len(data)-16)
	}
	clip := audio.Clip{
		SampleRate: int(binary.LittleEndian.Uint32(data[4:8])),
		Channels:   int(binary.LittleEndian.Uint32(data[8:12])),
		Samples:    make([]float32, n),
	}
	for i := range clip.Samples {
		clip.Samples[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[16+i*4:]))
	}
	return clip, nil
}

// TranscriptionCodec serialises asr.Result values as JSON for the
// transcription cache.
type TranscriptionCodec struct{}

// Encode implements Codec.
func (TranscriptionCodec) Encode(r asr.Result) ([]byte, error) {
	return json.Marshal(r)
}

// Decode implements Codec.
func (TranscriptionCodec) Decode(data []byte) (asr.Result, error) {
	var r asr.Result
	if err := json.Unmarshal(data, &r); err != nil {
		return asr.Result{}, err
	}
	return r, nil
}
