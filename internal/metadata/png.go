package metadata

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"io"
)

var pngSignature = []byte("\x89PNG\r\n\x1a\n")

// maxChunkSize bounds both raw chunk length and decompressed text size.
// Larger values are treated as corruption.
const maxChunkSize = 64 << 20

var (
	// ErrNotPNG is returned when the stream does not start with the PNG signature.
	ErrNotPNG = errors.New("not a PNG file")
	// ErrCorruptChunk is returned for oversized chunks, bad CRCs and
	// malformed text chunk payloads.
	ErrCorruptChunk = errors.New("corrupt PNG chunk")
)

// ReadTextField scans PNG chunks for a tEXt, zTXt or iTXt entry with the
// given keyword and returns its text. found is false when the stream ends or
// IEND is reached without a match. Chunks are never buffered beyond the
// ones that could hold the keyword.
func ReadTextField(r io.Reader, keyword string) (text string, found bool, err error) {
	sig := make([]byte, len(pngSignature))
	if _, err := io.ReadFull(r, sig); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return "", false, ErrNotPNG
		}
		return "", false, err
	}
	if !bytes.Equal(sig, pngSignature) {
		return "", false, ErrNotPNG
	}

	var header [8]byte
	for {
		if _, err := io.ReadFull(r, header[:]); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				// Truncated after the last complete chunk.
				return "", false, nil
			}
			return "", false, err
		}

		length := binary.BigEndian.Uint32(header[:4])
		chunkType := string(header[4:8])
		if length > maxChunkSize {
			return "", false, fmt.Errorf("%w: %s chunk of %d bytes", ErrCorruptChunk, chunkType, length)
		}

		switch chunkType {
		case "tEXt", "zTXt", "iTXt":
			data := make([]byte, length)
			if _, err := io.ReadFull(r, data); err != nil {
				return "", false, fmt.Errorf("read %s chunk: %w", chunkType, err)
			}
			var crc [4]byte
			if _, err := io.ReadFull(r, crc[:]); err != nil {
				return "", false, fmt.Errorf("read %s crc: %w", chunkType, err)
			}

			// Other fields are skipped unchecked; only the wanted one can fail.
			key, rest, ok := bytes.Cut(data, []byte{0})
			if !ok || string(key) != keyword {
				continue
			}

			sum := crc32.NewIEEE()
			sum.Write(header[4:8])
			sum.Write(data)
			if sum.Sum32() != binary.BigEndian.Uint32(crc[:]) {
				return "", false, fmt.Errorf("%w: %s crc mismatch", ErrCorruptChunk, chunkType)
			}

			value, err := decodeTextValue(chunkType, rest)
			if err != nil {
				return "", false, err
			}
			return value, true, nil

		case "IEND":
			return "", false, nil

		default:
			// data + CRC
			if _, err := io.CopyN(io.Discard, r, int64(length)+4); err != nil {
				if errors.Is(err, io.EOF) {
					return "", false, nil
				}
				return "", false, err
			}
		}
	}
}

// decodeTextValue decodes the payload that follows the keyword separator.
func decodeTextValue(chunkType string, rest []byte) (string, error) {
	switch chunkType {
	case "tEXt":
		return string(rest), nil

	case "zTXt":
		if len(rest) < 1 || rest[0] != 0 {
			return "", fmt.Errorf("%w: unknown zTXt compression method", ErrCorruptChunk)
		}
		return inflate(rest[1:])

	default: // iTXt
		if len(rest) < 2 {
			return "", fmt.Errorf("%w: short iTXt header", ErrCorruptChunk)
		}
		compressed, method := rest[0] == 1, rest[1]
		rest = rest[2:]
		// language tag, then translated keyword
		for i := 0; i < 2; i++ {
			var found bool
			_, rest, found = bytes.Cut(rest, []byte{0})
			if !found {
				return "", fmt.Errorf("%w: truncated iTXt header", ErrCorruptChunk)
			}
		}
		if !compressed {
			return string(rest), nil
		}
		if method != 0 {
			return "", fmt.Errorf("%w: unknown iTXt compression method", ErrCorruptChunk)
		}
		return inflate(rest)
	}
}

func inflate(data []byte) (string, error) {
	zr, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrCorruptChunk, err)
	}
	defer zr.Close()

	out, err := io.ReadAll(io.LimitReader(zr, maxChunkSize+1))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrCorruptChunk, err)
	}
	if len(out) > maxChunkSize {
		return "", fmt.Errorf("%w: decompressed text exceeds %d bytes", ErrCorruptChunk, maxChunkSize)
	}
	return string(out), nil
}
