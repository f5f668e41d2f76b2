package audio

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"sync"
)

// WAVWriter writes PCM16 samples to an underlying io.WriteSeeker in WAV format.
type WAVWriter struct {
	w           io.WriteSeeker
	onClose     func()
	sampleRate  uint32
	numChannels uint32
	numBytes    uint32
	mu          sync.Mutex
}

// NewWAVWriter creates a writer and writes the WAV header with placeholder
// sizes. The real sizes are patched in on Close.
func NewWAVWriter(w io.WriteSeeker, sampleRate uint32, numChannels uint32, onClose func()) (*WAVWriter, error) {
	writer := &WAVWriter{
		w:           w,
		onClose:     onClose,
		sampleRate:  sampleRate,
		numChannels: numChannels,
	}

	if err := writer.writeHeader(); err != nil {
		return nil, fmt.Errorf("failed to write wav header: %w", err)
	}

	return writer, nil
}

// WriteSample appends one frame of PCM16 audio to the data chunk.
func (w *WAVWriter) WriteSample(sample PCM16Sample) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := binary.Write(w.w, binary.LittleEndian, sample); err != nil {
		return err
	}
	w.numBytes += uint32(len(sample) * 2)

	return nil
}

// Close patches the chunk sizes in the header, runs the onClose callback
// and closes the underlying writer when it is an *os.File.
func (w *WAVWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.updateHeader(); err != nil {
		return fmt.Errorf("failed to update wav header: %w", err)
	}

	if w.onClose != nil {
		w.onClose()
	}

	if f, ok := w.w.(*os.File); ok {
		return f.Close()
	}

	return nil
}

func (w *WAVWriter) writeHeader() error {
	// RIFF chunk descriptor. The total size is not known yet, so write
	// a placeholder.
	if _, err := w.w.Write([]byte("RIFF")); err != nil {
		return err
	}
	if err := binary.Write(w.w, binary.LittleEndian, uint32(0)); err != nil {
		return err
	}
	if _, err := w.w.Write([]byte("WAVE")); err != nil {
		return err
	}

	// fmt sub-chunk, always 16 bytes for plain PCM.
	if _, err := w.w.Write([]byte("fmt ")); err != nil {
		return err
	}
	if err := binary.Write(w.w, binary.LittleEndian, uint32(16)); err != nil {
		return err
	}
	if err := binary.Write(w.w, binary.LittleEndian, uint16(1)); err != nil {
		return err
	}
	if err := binary.Write(w.w, binary.LittleEndian, uint16(w.numChannels)); err != nil {
		return err
	}
	if err := binary.Write(w.w, binary.LittleEndian, w.sampleRate); err != nil {
		return err
	}
	byteRate := w.sampleRate * w.numChannels * 2
	if err := binary.Write(w.w, binary.LittleEndian, byteRate); err != nil {
		return err
	}
	blockAlign := uint16(w.numChannels * 2)
	if err := binary.Write(w.w, binary.LittleEndian, blockAlign); err != nil {
		return err
	}
	if err := binary.Write(w.w, binary.LittleEndian, uint16(16)); err != nil {
		return err
	}

	// data sub-chunk, size patched on Close.
	if _, err := w.w.Write([]byte("data")); err != nil {
		return err
	}
	if err := binary.Write(w.w, binary.LittleEndian, uint32(0)); err != nil {
		return err
	}

	return nil
}

func (w *WAVWriter) updateHeader() error {
	// RIFF chunk size at offset 4.
	if _, err := w.w.Seek(4, io.SeekStart); err != nil {
		return err
	}
	if err := binary.Write(w.w, binary.LittleEndian, w.numBytes+36); err != nil {
		return err
	}

	// data chunk size at offset 40.
	if _, err := w.w.Seek(40, io.SeekStart); err != nil {
		return err
	}
	if err := binary.Write(w.w, binary.LittleEndian, w.numBytes); err != nil {
		return err
	}

	return nil
}

// EncodeWAV wraps raw little-endian PCM16 bytes in a complete in-memory
// WAV container. Providers that only accept files use this to wrap a
// single phrase.
func EncodeWAV(pcm []byte, sampleRate uint32, numChannels uint32) []byte {
	buf := bytes.NewBuffer(make([]byte, 0, len(pcm)+44))
	dataSize := uint32(len(pcm))

	buf.WriteString("RIFF")
	_ = binary.Write(buf, binary.LittleEndian, dataSize+36)
	buf.WriteString("WAVE")

	buf.WriteString("fmt ")
	_ = binary.Write(buf, binary.LittleEndian, uint32(16))
	_ = binary.Write(buf, binary.LittleEndian, uint16(1))
	_ = binary.Write(buf, binary.LittleEndian, uint16(numChannels))
	_ = binary.Write(buf, binary.LittleEndian, sampleRate)
	_ = binary.Write(buf, binary.LittleEndian, sampleRate*numChannels*2)
	_ = binary.Write(buf, binary.LittleEndian, uint16(numChannels*2))
	_ = binary.Write(buf, binary.LittleEndian, uint16(16))

	buf.WriteString("data")
	_ = binary.Write(buf, binary.LittleEndian, dataSize)
	buf.Write(pcm)

	return buf.Bytes()
}

// DecodeWAV parses a WAV file and returns its samples. Only uncompressed
// 16-bit PCM is accepted.
func DecodeWAV(data []byte) (PCM16Sample, uint32, uint32, error) {
	if len(data) < 12 || string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return nil, 0, 0, fmt.Errorf("not a RIFF/WAVE file")
	}

	var (
		sampleRate  uint32
		numChannels uint32
		fmtSeen     bool
		pcm         []byte
	)

	pos := 12
	for pos+8 <= len(data) {
		id := string(data[pos : pos+4])
		size := int(binary.LittleEndian.Uint32(data[pos+4 : pos+8]))
		pos += 8

		if pos+size > len(data) {
			return nil, 0, 0, fmt.Errorf("truncated %q chunk", id)
		}
		chunk := data[pos : pos+size]

		switch id {
		case "fmt ":
			if size < 16 {
				return nil, 0, 0, fmt.Errorf("fmt chunk too short")
			}
			audioFormat := binary.LittleEndian.Uint16(chunk[0:2])
			if audioFormat != 1 {
				return nil, 0, 0, fmt.Errorf("unsupported audio format %d, only PCM is supported", audioFormat)
			}
			bitsPerSample := binary.LittleEndian.Uint16(chunk[14:16])
			if bitsPerSample != 16 {
				return nil, 0, 0, fmt.Errorf("unsupported bit depth %d, only 16-bit PCM is supported", bitsPerSample)
			}
			numChannels = uint32(binary.LittleEndian.Uint16(chunk[2:4]))
			sampleRate = binary.LittleEndian.Uint32(chunk[4:8])
			fmtSeen = true
		case "data":
			pcm = chunk
		}

		// Chunks are padded to an even number of bytes.
		pos += size
		if size%2 == 1 {
			pos++
		}
	}

	if !fmtSeen {
		return nil, 0, 0, fmt.Errorf("missing fmt chunk")
	}
	if pcm == nil {
		return nil, 0, 0, fmt.Errorf("missing data chunk")
	}

	return BytesToPCM16(pcm), sampleRate, numChannels, nil
}
