package audio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// ErrUnsupportedWAV is returned for WAV files other than 16-bit PCM.
var ErrUnsupportedWAV = errors.New("unsupported wav file")

const (
	pcmFormat       = 1
	supportedDepth  = 16
	fmtChunkMinSize = 16
)

// wavFormat describes the PCM stream of a WAV file.
type wavFormat struct {
	SampleRate int
	Channels   int
	BitDepth   int
}

// frameSize is the number of bytes of one sample across all channels.
func (f wavFormat) frameSize() int {
	return f.Channels * f.BitDepth / 8
}

// parseWAV returns the format and the raw PCM payload of a RIFF/WAVE file.
func parseWAV(data []byte) (wavFormat, []byte, error) {
	var format wavFormat

	r := bytes.NewReader(data)

	var header struct {
		RIFF [4]byte
		Size uint32
		WAVE [4]byte
	}

	if err := binary.Read(r, binary.LittleEndian, &header); err != nil {
		return format, nil, fmt.Errorf("%w: read header: %w", ErrUnsupportedWAV, err)
	}

	if string(header.RIFF[:]) != "RIFF" || string(header.WAVE[:]) != "WAVE" {
		return format, nil, fmt.Errorf("%w: not a RIFF/WAVE file", ErrUnsupportedWAV)
	}

	var haveFormat bool

	for {
		var chunk struct {
			ID   [4]byte
			Size uint32
		}

		if err := binary.Read(r, binary.LittleEndian, &chunk); err != nil {
			if errors.Is(err, io.EOF) {
				return format, nil, fmt.Errorf("%w: no data chunk", ErrUnsupportedWAV)
			}

			return format, nil, fmt.Errorf("%w: read chunk: %w", ErrUnsupportedWAV, err)
		}

		switch string(chunk.ID[:]) {
		case "fmt ":
			if chunk.Size < fmtChunkMinSize {
				return format, nil, fmt.Errorf("%w: short fmt chunk", ErrUnsupportedWAV)
			}

			var fmtChunk struct {
				AudioFormat   uint16
				Channels      uint16
				SampleRate    uint32
				ByteRate      uint32
				BlockAlign    uint16
				BitsPerSample uint16
			}

			if err := binary.Read(r, binary.LittleEndian, &fmtChunk); err != nil {
				return format, nil, fmt.Errorf("%w: read fmt chunk: %w", ErrUnsupportedWAV, err)
			}

			if fmtChunk.AudioFormat != pcmFormat || fmtChunk.BitsPerSample != supportedDepth || fmtChunk.Channels == 0 {
				return format, nil, fmt.Errorf("%w: format %d, %d bits, %d channels",
					ErrUnsupportedWAV, fmtChunk.AudioFormat, fmtChunk.BitsPerSample, fmtChunk.Channels)
			}

			format = wavFormat{
				SampleRate: int(fmtChunk.SampleRate),
				Channels:   int(fmtChunk.Channels),
				BitDepth:   int(fmtChunk.BitsPerSample),
			}
			haveFormat = true

			if _, err := r.Seek(int64(chunk.Size-fmtChunkMinSize), io.SeekCurrent); err != nil {
				return format, nil, fmt.Errorf("%w: skip fmt extension: %w", ErrUnsupportedWAV, err)
			}
		case "data":
			if !haveFormat {
				return format, nil, fmt.Errorf("%w: data before fmt chunk", ErrUnsupportedWAV)
			}

			size := min(int(chunk.Size), r.Len())
			payload := make([]byte, size)

			if _, err := io.ReadFull(r, payload); err != nil {
				return format, nil, fmt.Errorf("%w: read data: %w", ErrUnsupportedWAV, err)
			}

			// Drop a trailing partial frame.
			payload = payload[:len(payload)-len(payload)%format.frameSize()]

			return format, payload, nil
		default:
			// Chunks are word aligned.
			skip := int64(chunk.Size) + int64(chunk.Size%2)
			if _, err := r.Seek(skip, io.SeekCurrent); err != nil {
				return format, nil, fmt.Errorf("%w: skip chunk: %w", ErrUnsupportedWAV, err)
			}
		}
	}
}
