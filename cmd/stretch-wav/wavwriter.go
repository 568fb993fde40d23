package main

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"
)

const (
	// Sample format constants
	bitsPerSample16 = 16
	bitsPerSample24 = 24
	bitsPerSample32 = 32

	// WAV format constants
	wavHeaderSize      = 44 // Total WAV header size in bytes
	wavRiffHeaderSize  = 36 // RIFF header size (file size - 8 = riffHeaderSize + dataSize)
	wavPCMSubchunkSize = 16 // fmt subchunk size for PCM format
	wavFileSizeOffset  = 4  // Byte offset for file size field in header
	wavDataSizeOffset  = 40 // Byte offset for data size field in header
	bitsPerByte        = 8

	// Bit shift amounts for 24-bit sample encoding
	bitShift8  = 8
	bitShift16 = 16

	wavWriterBufferSize = 256 * 1024 // 256KB write buffer
)

// pcmWriter streams PCM samples to a WAV file and patches the header
// sizes on Close. Samples are encoded into one reused byte buffer.
type pcmWriter struct {
	w          *bufio.Writer
	ws         io.WriteSeeker
	sampleRate int
	bitDepth   int
	channels   int
	dataSize   uint32
	byteBuf    []byte
}

func newPCMWriter(ws io.WriteSeeker, sampleRate, bitDepth, channels int) (*pcmWriter, error) {
	w := &pcmWriter{
		w:          bufio.NewWriterSize(ws, wavWriterBufferSize),
		ws:         ws,
		sampleRate: sampleRate,
		bitDepth:   bitDepth,
		channels:   channels,
	}
	if err := w.writeHeader(); err != nil {
		return nil, err
	}
	return w, nil
}

func (w *pcmWriter) bytesPerSample() int { return w.bitDepth / bitsPerByte }

func (w *pcmWriter) writeHeader() error {
	blockAlign := w.channels * w.bytesPerSample()
	byteRate := w.sampleRate * blockAlign

	header := make([]byte, wavHeaderSize)

	// RIFF header, sizes patched on Close
	copy(header[0:4], "RIFF")
	copy(header[8:12], "WAVE")

	// fmt subchunk
	copy(header[12:16], "fmt ")
	binary.LittleEndian.PutUint32(header[16:20], wavPCMSubchunkSize)
	binary.LittleEndian.PutUint16(header[20:22], 1) // PCM
	binary.LittleEndian.PutUint16(header[22:24], uint16(w.channels))
	binary.LittleEndian.PutUint32(header[24:28], uint32(w.sampleRate))
	binary.LittleEndian.PutUint32(header[28:32], uint32(byteRate))
	binary.LittleEndian.PutUint16(header[32:34], uint16(blockAlign))
	binary.LittleEndian.PutUint16(header[34:36], uint16(w.bitDepth))

	// data subchunk
	copy(header[36:40], "data")

	_, err := w.w.Write(header)
	return err
}

// WriteSamples encodes interleaved samples at the writer's bit depth.
func (w *pcmWriter) WriteSamples(samples []int) error {
	size := w.bytesPerSample()
	needed := len(samples) * size
	if len(w.byteBuf) < needed {
		w.byteBuf = make([]byte, needed)
	}
	buf := w.byteBuf[:needed]

	switch w.bitDepth {
	case bitsPerSample24:
		for i, s := range samples {
			buf[i*size] = byte(s)
			buf[i*size+1] = byte(s >> bitShift8)
			buf[i*size+2] = byte(s >> bitShift16)
		}
	case bitsPerSample32:
		for i, s := range samples {
			binary.LittleEndian.PutUint32(buf[i*size:], uint32(int32(s)))
		}
	default:
		for i, s := range samples {
			binary.LittleEndian.PutUint16(buf[i*size:], uint16(int16(s)))
		}
	}

	written, err := w.w.Write(buf)
	w.dataSize += uint32(written)
	return err
}

// Close flushes buffered data and writes the final chunk sizes.
func (w *pcmWriter) Close() error {
	if err := w.w.Flush(); err != nil {
		return err
	}

	sizeBytes := make([]byte, 4)
	patch := func(offset int64, v uint32) error {
		if _, err := w.ws.Seek(offset, io.SeekStart); err != nil {
			return err
		}
		binary.LittleEndian.PutUint32(sizeBytes, v)
		_, err := w.ws.Write(sizeBytes)
		return err
	}

	if err := patch(wavFileSizeOffset, wavRiffHeaderSize+w.dataSize); err != nil {
		return err
	}
	return patch(wavDataSizeOffset, w.dataSize)
}

// wavOutputWriter owns the output file and its writer.
type wavOutputWriter struct {
	file   *os.File
	writer *pcmWriter
}

// createWAVOutput creates the output file and writes its header.
func createWAVOutput(path string, sampleRate, bitDepth, channels int) (*wavOutputWriter, error) {
	outputFile, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create output file: %w", err)
	}

	writer, err := newPCMWriter(outputFile, sampleRate, bitDepth, channels)
	if err != nil {
		_ = outputFile.Close()
		return nil, fmt.Errorf("failed to create WAV writer: %w", err)
	}

	return &wavOutputWriter{file: outputFile, writer: writer}, nil
}

// WriteSamples writes samples to the output file.
func (w *wavOutputWriter) WriteSamples(samples []int) error {
	return w.writer.WriteSamples(samples)
}

// Close closes the output writer and file.
func (w *wavOutputWriter) Close() error {
	if err := w.writer.Close(); err != nil {
		_ = w.file.Close()
		return err
	}
	return w.file.Close()
}
