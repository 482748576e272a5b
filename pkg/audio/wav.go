package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// WAV format codes from the fmt sub-chunk.
const (
	formatPCM       = 1
	formatIEEEFloat = 3
)

var (
	// ErrNotWAV is returned when the input is not a RIFF/WAVE container.
	ErrNotWAV = errors.New("audio: not a RIFF/WAVE container")

	// ErrUnsupportedFormat is returned for WAV encodings other than 16-bit
	// integer PCM and 32-bit IEEE float.
	ErrUnsupportedFormat = errors.New("audio: unsupported WAV sample format")
)

// DecodeWAV parses a RIFF/WAVE container and returns the decoded samples as
// float32 in [-1, 1]. Both 16-bit integer PCM and 32-bit IEEE float encodings
// are accepted. The RIFF chunks are walked rather than assuming a fixed
// 44-byte header because the fmt chunk size may vary.
func DecodeWAV(wav []byte) (Clip, error) {
	if len(wav) < 12 || string(wav[0:4]) != "RIFF" || string(wav[8:12]) != "WAVE" {
		return Clip{}, ErrNotWAV
	}

	var (
		format     int
		channels   int
		sampleRate int
		bitDepth   int
		foundFmt   bool
	)

	offset := 12
	for offset+8 <= len(wav) {
		chunkID := string(wav[offset : offset+4])
		chunkSize := int(binary.LittleEndian.Uint32(wav[offset+4 : offset+8]))
		body := offset + 8

		switch chunkID {
		case "fmt ":
			if chunkSize < 16 || body+16 > len(wav) {
				return Clip{}, fmt.Errorf("audio: malformed fmt chunk (size %d)", chunkSize)
			}
			fmtData := wav[body:]
			format = int(binary.LittleEndian.Uint16(fmtData[0:2]))
			channels = int(binary.LittleEndian.Uint16(fmtData[2:4]))
			sampleRate = int(binary.LittleEndian.Uint32(fmtData[4:8]))
			bitDepth = int(binary.LittleEndian.Uint16(fmtData[14:16]))
			foundFmt = true
		case "data":
			if !foundFmt {
				return Clip{}, errors.New("audio: data chunk before fmt chunk")
			}
			end := body + chunkSize
			if end > len(wav) {
				end = len(wav)
			}
			samples, err := decodeSamples(wav[body:end], format, bitDepth)
			if err != nil {
				return Clip{}, err
			}
			return Clip{Samples: samples, SampleRate: sampleRate, Channels: channels}, nil
		}

		// Chunks are word-aligned: pad by 1 if the size is odd.
		offset = body + chunkSize
		if chunkSize%2 != 0 {
			offset++
		}
	}
	return Clip{}, errors.New("audio: missing data chunk")
}

func decodeSamples(data []byte, format, bitDepth int) ([]float32, error) {
	switch {
	case format == formatPCM && bitDepth == 16:
		n := len(data) / 2
		out := make([]float32, n)
		for i := range n {
			s := int16(binary.LittleEndian.Uint16(data[i*2:]))
			out[i] = float32(s) / 32768
		}
		return out, nil
	case format == formatIEEEFloat && bitDepth == 32:
		n := len(data) / 4
		out := make([]float32, n)
		for i := range n {
			out[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: format %d, %d-bit", ErrUnsupportedFormat, format, bitDepth)
	}
}

// EncodeWAV serialises the clip as a 16-bit PCM RIFF/WAVE file. Samples
// outside [-1, 1] are clamped. This is the interchange format written for
// the external scoring toolchain and returned by the synthesis endpoint.
func EncodeWAV(c Clip) []byte {
	channels := c.Channels
	if channels < 1 {
		channels = 1
	}
	dataSize := len(c.Samples) * 2
	buf := make([]byte, 44+dataSize)

	copy(buf[0:4], "RIFF")
	binary.LittleEndian.PutUint32(buf[4:8], uint32(36+dataSize))
	copy(buf[8:12], "WAVE")

	copy(buf[12:16], "fmt ")
	binary.LittleEndian.PutUint32(buf[16:20], 16)
	binary.LittleEndian.PutUint16(buf[20:22], formatPCM)
	binary.LittleEndian.PutUint16(buf[22:24], uint16(channels))
	binary.LittleEndian.PutUint32(buf[24:28], uint32(c.SampleRate))
	byteRate := c.SampleRate * channels * 2
	binary.LittleEndian.PutUint32(buf[28:32], uint32(byteRate))
	binary.LittleEndian.PutUint16(buf[32:34], uint16(channels*2)) // block align
	binary.LittleEndian.PutUint16(buf[34:36], 16)                 // bits per sample

	copy(buf[36:40], "data")
	binary.LittleEndian.PutUint32(buf[40:44], uint32(dataSize))

	for i, s := range c.Samples {
		v := float64(s)
		if v > 1 {
			v = 1
		} else if v < -1 {
			v = -1
		}
		pcm := int16(math.Round(v * 32767))
		binary.LittleEndian.PutUint16(buf[44+i*2:], uint16(pcm))
	}
	return buf
}
