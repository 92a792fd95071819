package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// wavFormat describes the decoded "fmt " chunk of a RIFF/WAVE container.
type wavFormat struct {
	AudioFormat   uint16
	Channels      int
	SampleRate    int
	BitsPerSample int
}

const wavHeaderSize = 44

var errNotWAV = errors.New("audio: not a RIFF/WAVE container")

// decodeWAV parses a WAVE container and returns its format plus the raw
// sample data from the first data chunk. Only uncompressed PCM is handled.
func decodeWAV(buf []byte) (wavFormat, []byte, error) {
	if len(buf) < 12 || string(buf[0:4]) != "RIFF" || string(buf[8:12]) != "WAVE" {
		return wavFormat{}, nil, errNotWAV
	}

	var (
		format   wavFormat
		data     []byte
		haveFmt  bool
		haveData bool
	)
	offset := 12

	for offset+8 <= len(buf) {
		chunkID := string(buf[offset : offset+4])
		chunkLen := int(binary.LittleEndian.Uint32(buf[offset+4 : offset+8]))
		body := offset + 8
		if chunkLen < 0 || body+chunkLen > len(buf) {
			// Truncated chunk: accept what is there for data, reject otherwise.
			if chunkID == "data" && body < len(buf) {
				chunkLen = len(buf) - body
			} else {
				break
			}
		}

		switch chunkID {
		case "fmt ":
			if chunkLen < 16 {
				return wavFormat{}, nil, fmt.Errorf("audio: fmt chunk too short (%d bytes)", chunkLen)
			}
			format = wavFormat{
				AudioFormat:   binary.LittleEndian.Uint16(buf[body : body+2]),
				Channels:      int(binary.LittleEndian.Uint16(buf[body+2 : body+4])),
				SampleRate:    int(binary.LittleEndian.Uint32(buf[body+4 : body+8])),
				BitsPerSample: int(binary.LittleEndian.Uint16(buf[body+14 : body+16])),
			}
			haveFmt = true
		case "data":
			data = buf[body : body+chunkLen]
			haveData = true
		}

		// Chunks are word aligned.
		offset = body + chunkLen
		if chunkLen%2 == 1 {
			offset++
		}
		if haveFmt && haveData {
			break
		}
	}

	if !haveFmt || !haveData {
		return wavFormat{}, nil, errors.New("audio: missing fmt or data chunk")
	}
	if format.AudioFormat != 1 {
		return wavFormat{}, nil, fmt.Errorf("audio: unsupported wav encoding %d (want PCM)", format.AudioFormat)
	}
	if format.Channels <= 0 || format.SampleRate <= 0 {
		return wavFormat{}, nil, errors.New("audio: invalid wav format chunk")
	}
	if format.BitsPerSample != 8 && format.BitsPerSample != 16 {
		return wavFormat{}, nil, fmt.Errorf("audio: unsupported bit depth %d", format.BitsPerSample)
	}
	return format, data, nil
}

// pcm16Samples converts raw sample data to interleaved int16 samples.
// 8-bit WAV samples are unsigned and get widened.
func pcm16Samples(format wavFormat, data []byte) []int16 {
	if format.BitsPerSample == 8 {
		samples := make([]int16, len(data))
		for i, b := range data {
			samples[i] = (int16(b) - 128) << 8
		}
		return samples
	}

	count := len(data) / 2
	samples := make([]int16, count)
	for i := 0; i < count; i++ {
		samples[i] = int16(binary.LittleEndian.Uint16(data[2*i : 2*i+2]))
	}
	return samples
}

// EncodeWAV wraps interleaved 16-bit PCM samples in a WAVE container.
func EncodeWAV(samples []int16, sampleRate, channels int) []byte {
	dataLen := len(samples) * 2
	buf := make([]byte, wavHeaderSize+dataLen)

	copy(buf[0:4], "RIFF")
	binary.LittleEndian.PutUint32(buf[4:8], uint32(36+dataLen))
	copy(buf[8:12], "WAVE")
	copy(buf[12:16], "fmt ")
	binary.LittleEndian.PutUint32(buf[16:20], 16)
	binary.LittleEndian.PutUint16(buf[20:22], 1)
	binary.LittleEndian.PutUint16(buf[22:24], uint16(channels))
	binary.LittleEndian.PutUint32(buf[24:28], uint32(sampleRate))
	binary.LittleEndian.PutUint32(buf[28:32], uint32(sampleRate*channels*2))
	binary.LittleEndian.PutUint16(buf[32:34], uint16(channels*2))
	binary.LittleEndian.PutUint16(buf[34:36], 16)
	copy(buf[36:40], "data")
	binary.LittleEndian.PutUint32(buf[40:44], uint32(dataLen))

	for i, s := range samples {
		binary.LittleEndian.PutUint16(buf[wavHeaderSize+2*i:wavHeaderSize+2*i+2], uint16(s))
	}
	return buf
}
